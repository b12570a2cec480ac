// Package docs registers the OpenAPI document served at /swagger.
// Regenerate with `swag init -g cmd/api/main.go` after changing handler annotations.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/health": {
            "get": {"tags": ["Health"], "summary": "Health Check", "produces": ["application/json"], "responses": {"200": {"description": "OK"}}}
        },
        "/invoices": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["Invoices"], "summary": "List Invoices",
                "parameters": [
                    {"type": "integer", "name": "page", "in": "query"},
                    {"type": "integer", "name": "per_page", "in": "query"},
                    {"type": "integer", "name": "house_id", "in": "query"},
                    {"type": "string", "name": "status", "in": "query"}
                ],
                "responses": {"200": {"description": "OK"}}},
            "post": {"security": [{"BearerAuth": []}], "tags": ["Invoices"], "summary": "Issue Invoice",
                "parameters": [{"name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.IssueInvoiceRequest"}}],
                "responses": {"201": {"description": "Created"}, "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handlers.ErrorBody"}}}}
        },
        "/invoices/{invoice_id}": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["Invoices"], "summary": "Get Invoice",
                "parameters": [{"type": "integer", "name": "invoice_id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handlers.ErrorBody"}}}}
        },
        "/invoices/{invoice_id}/outstanding": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["Invoices"], "summary": "Invoice Outstanding",
                "parameters": [{"type": "integer", "name": "invoice_id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}}}
        },
        "/invoices/{invoice_id}/verify": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["Invoices"], "summary": "Verify Invoice",
                "parameters": [{"type": "integer", "name": "invoice_id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "500": {"description": "Drift detected"}}}
        },
        "/invoices/{invoice_id}/payments": {
            "post": {"security": [{"BearerAuth": []}], "tags": ["Invoices"], "summary": "Apply Payment",
                "parameters": [
                    {"type": "integer", "name": "invoice_id", "in": "path", "required": true},
                    {"name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.ApplyPaymentRequest"}}
                ],
                "responses": {"201": {"description": "Created"}, "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/handlers.ErrorBody"}}}}
        },
        "/invoices/{invoice_id}/credit_notes": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["Invoices"], "summary": "List Credit Notes",
                "parameters": [{"type": "integer", "name": "invoice_id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}}},
            "post": {"security": [{"BearerAuth": []}], "tags": ["Invoices"], "summary": "Issue Credit Note",
                "parameters": [
                    {"type": "integer", "name": "invoice_id", "in": "path", "required": true},
                    {"name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.CreditNoteRequest"}}
                ],
                "responses": {"201": {"description": "Created"}, "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/handlers.ErrorBody"}}}}
        },
        "/payins": {
            "post": {"security": [{"BearerAuth": []}], "tags": ["Payins"], "summary": "Submit Pay-in",
                "parameters": [{"name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.SubmitPayinRequest"}}],
                "responses": {"201": {"description": "Created"}}}
        },
        "/payins/{payin_id}": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["Payins"], "summary": "Get Pay-in",
                "parameters": [{"type": "integer", "name": "payin_id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}}
        },
        "/payins/{payin_id}/accept": {
            "post": {"security": [{"BearerAuth": []}], "tags": ["Payins"], "summary": "Accept Pay-in",
                "parameters": [{"type": "integer", "name": "payin_id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "409": {"description": "Conflict"}}}
        },
        "/payins/{payin_id}/reject": {
            "post": {"security": [{"BearerAuth": []}], "tags": ["Payins"], "summary": "Reject Pay-in",
                "parameters": [{"type": "integer", "name": "payin_id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "409": {"description": "Conflict"}}}
        },
        "/payins/{payin_id}/candidates": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["Payins"], "summary": "Match Candidates",
                "parameters": [{"type": "integer", "name": "payin_id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}}}
        },
        "/payins/{payin_id}/promotions": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["Payins"], "summary": "Evaluate Promotions",
                "parameters": [{"type": "integer", "name": "payin_id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}}}
        },
        "/ledgers/{ledger_id}": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["Ledgers"], "summary": "Get Ledger",
                "parameters": [{"type": "integer", "name": "ledger_id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}}}
        },
        "/bank_transactions": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["Bank Transactions"], "summary": "List Bank Transactions",
                "parameters": [
                    {"type": "string", "name": "batch_id", "in": "query"},
                    {"type": "string", "name": "match_state", "in": "query"}
                ],
                "responses": {"200": {"description": "OK"}}}
        },
        "/bank_transactions/{transaction_id}": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["Bank Transactions"], "summary": "Get Bank Transaction",
                "parameters": [{"type": "integer", "name": "transaction_id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}}
        },
        "/bank_transactions/{transaction_id}/match": {
            "post": {"security": [{"BearerAuth": []}], "tags": ["Bank Transactions"], "summary": "Match Bank Transaction",
                "parameters": [
                    {"type": "integer", "name": "transaction_id", "in": "path", "required": true},
                    {"name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.MatchRequest"}}
                ],
                "responses": {"200": {"description": "OK"}, "409": {"description": "Conflict"}}}
        },
        "/bank_transactions/{transaction_id}/unmatch": {
            "post": {"security": [{"BearerAuth": []}], "tags": ["Bank Transactions"], "summary": "Unmatch Bank Transaction",
                "parameters": [{"type": "integer", "name": "transaction_id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}}}
        },
        "/statements": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["Statements"], "summary": "List Statement Imports", "responses": {"200": {"description": "OK"}}}
        },
        "/statements/preview": {
            "post": {"security": [{"BearerAuth": []}], "tags": ["Statements"], "summary": "Preview Statement", "consumes": ["multipart/form-data"],
                "parameters": [{"type": "file", "name": "file", "in": "formData", "required": true}],
                "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}}}
        },
        "/statements/{token}/confirm": {
            "post": {"security": [{"BearerAuth": []}], "tags": ["Statements"], "summary": "Confirm Statement Import",
                "parameters": [{"type": "string", "name": "token", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "409": {"description": "Conflict"}}}
        },
        "/statements/{token}/discard": {
            "post": {"security": [{"BearerAuth": []}], "tags": ["Statements"], "summary": "Discard Statement Import",
                "parameters": [{"type": "string", "name": "token", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}}}
        },
        "/promotions": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["Promotions"], "summary": "List Promotions", "responses": {"200": {"description": "OK"}}},
            "post": {"security": [{"BearerAuth": []}], "tags": ["Promotions"], "summary": "Create Promotion", "responses": {"201": {"description": "Created"}}}
        },
        "/audits": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["Audits"], "summary": "List Audit Logs", "responses": {"200": {"description": "OK"}}}
        },
        "/jobs/status": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["Jobs"], "summary": "Get background job status", "responses": {"200": {"description": "OK"}}}
        },
        "/jobs/{name}": {
            "post": {"security": [{"BearerAuth": []}], "tags": ["Jobs"], "summary": "Run a background job",
                "parameters": [{"type": "string", "name": "name", "in": "path", "required": true}],
                "responses": {"202": {"description": "Accepted"}}}
        }
    },
    "definitions": {
        "handlers.ErrorBody": {"type": "object", "properties": {"error": {"$ref": "#/definitions/handlers.ErrorDetail"}}},
        "handlers.ErrorDetail": {"type": "object", "properties": {"code": {"type": "string"}, "message": {"type": "string"}, "retryable": {"type": "boolean"}}},
        "handlers.IssueInvoiceRequest": {"type": "object", "properties": {
            "house_id": {"type": "integer"}, "total_amount": {"type": "string", "example": "1500.00"},
            "due_date": {"type": "string", "example": "2026-10-31"}, "is_manual": {"type": "boolean"}, "label": {"type": "string"}}},
        "handlers.ApplyPaymentRequest": {"type": "object", "properties": {
            "ledger_id": {"type": "integer"}, "amount": {"type": "string", "example": "600.00"}, "note": {"type": "string"}}},
        "handlers.CreditNoteRequest": {"type": "object", "properties": {
            "amount": {"type": "string", "example": "400.00"}, "reason": {"type": "string"}, "is_full_credit": {"type": "boolean"}}},
        "handlers.SubmitPayinRequest": {"type": "object", "properties": {
            "house_id": {"type": "integer"}, "amount": {"type": "string"}, "paid_at": {"type": "string"}, "note": {"type": "string"}}},
        "handlers.MatchRequest": {"type": "object", "properties": {"payin_id": {"type": "integer"}}}
    },
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/api/v1",
	Schemes:          []string{"http"},
	Title:            "Village Settlement API",
	Description:      "Invoice settlement and bank reconciliation engine for village fee collection",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
