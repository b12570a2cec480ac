package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sjperalta/village-settlement-api/internal/middleware"
	"github.com/sjperalta/village-settlement-api/internal/models"
	"github.com/sjperalta/village-settlement-api/internal/services"
	"github.com/sjperalta/village-settlement-api/internal/storage"
)

type ReconciliationHandler struct {
	reconciliation *services.ReconciliationService
}

func NewReconciliationHandler(reconciliation *services.ReconciliationService) *ReconciliationHandler {
	return &ReconciliationHandler{reconciliation: reconciliation}
}

type MatchRequest struct {
	PayinID uint `json:"payin_id"`
}

// @Summary List Bank Transactions
// @Description Get a paginated list of imported bank transactions
// @Tags Bank Transactions
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param per_page query int false "Items per page" default(20)
// @Param batch_id query string false "Filter by import batch"
// @Param match_state query string false "MATCHED or UNMATCHED"
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /bank_transactions [get]
func (h *ReconciliationHandler) Transactions(c *gin.Context) {
	query := listQuery(c)
	query.Filters["batch_id"] = c.Query("batch_id")
	query.Filters["match_state"] = c.Query("match_state")

	txns, total, err := h.reconciliation.ListTransactions(c.Request.Context(), query)
	if err != nil {
		respondError(c, err)
		return
	}
	responses := make([]models.BankTransactionResponse, 0, len(txns))
	for _, t := range txns {
		responses = append(responses, t.ToResponse())
	}
	c.JSON(http.StatusOK, gin.H{"bank_transactions": responses, "pagination": pagination(query, total)})
}

// @Summary Get Bank Transaction
// @Tags Bank Transactions
// @Produce json
// @Param transaction_id path int true "Bank transaction ID"
// @Success 200 {object} models.BankTransactionResponse
// @Failure 404 {object} ErrorBody
// @Security BearerAuth
// @Router /bank_transactions/{transaction_id} [get]
func (h *ReconciliationHandler) Transaction(c *gin.Context) {
	id, ok := parseID(c, "transaction_id")
	if !ok {
		return
	}
	t, err := h.reconciliation.GetTransaction(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bank_transaction": t.ToResponse()})
}

// @Summary Match Bank Transaction
// @Description Link a bank transaction to a pay-in. Moves no money.
// @Tags Bank Transactions
// @Accept json
// @Produce json
// @Param transaction_id path int true "Bank transaction ID"
// @Param request body MatchRequest true "Pay-in"
// @Success 200 {object} models.BankTransactionResponse
// @Failure 404 {object} ErrorBody
// @Failure 409 {object} ErrorBody
// @Security BearerAuth
// @Router /bank_transactions/{transaction_id}/match [post]
func (h *ReconciliationHandler) Match(c *gin.Context) {
	id, ok := parseID(c, "transaction_id")
	if !ok {
		return
	}
	var req MatchRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.PayinID == 0 {
		badRequest(c, "payin_id is required")
		return
	}

	t, err := h.reconciliation.Match(requestContext(c), id, req.PayinID, middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bank_transaction": t.ToResponse()})
}

// @Summary Unmatch Bank Transaction
// @Description Clear a bank transaction's link. Unmatching twice is a no-op.
// @Tags Bank Transactions
// @Produce json
// @Param transaction_id path int true "Bank transaction ID"
// @Success 200 {object} models.BankTransactionResponse
// @Failure 404 {object} ErrorBody
// @Security BearerAuth
// @Router /bank_transactions/{transaction_id}/unmatch [post]
func (h *ReconciliationHandler) Unmatch(c *gin.Context) {
	id, ok := parseID(c, "transaction_id")
	if !ok {
		return
	}
	t, err := h.reconciliation.Unmatch(requestContext(c), id, middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bank_transaction": t.ToResponse()})
}

// @Summary Preview Statement
// @Description Upload a CSV or XLSX bank statement and diff it against stored transactions. Nothing is imported.
// @Tags Statements
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Bank statement (.csv, .xlsx)"
// @Success 200 {object} services.StatementPreview
// @Failure 400 {object} ErrorBody
// @Security BearerAuth
// @Router /statements/preview [post]
func (h *ReconciliationHandler) Preview(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		badRequest(c, "file is required")
		return
	}
	if file.Size > storage.MaxFileSize() {
		badRequest(c, "file exceeds the upload limit")
		return
	}
	if !storage.IsStatementFile(file.Filename) {
		badRequest(c, "only .csv and .xlsx statements are accepted")
		return
	}

	src, err := file.Open()
	if err != nil {
		badRequest(c, "could not read upload")
		return
	}
	defer src.Close()

	data, err := io.ReadAll(io.LimitReader(src, storage.MaxFileSize()+1))
	if err != nil {
		badRequest(c, "could not read upload")
		return
	}

	preview, err := h.reconciliation.PreviewStatement(requestContext(c), file.Filename, data, middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"preview": preview})
}

// @Summary Confirm Statement Import
// @Description Persist a previewed statement's new rows as unmatched bank transactions
// @Tags Statements
// @Produce json
// @Param token path string true "Preview token"
// @Success 200 {object} models.StatementImportResponse
// @Failure 404 {object} ErrorBody
// @Failure 409 {object} ErrorBody
// @Security BearerAuth
// @Router /statements/{token}/confirm [post]
func (h *ReconciliationHandler) Confirm(c *gin.Context) {
	imp, err := h.reconciliation.ConfirmImport(requestContext(c), c.Param("token"), middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"statement_import": imp.ToResponse()})
}

// @Summary Discard Statement Import
// @Tags Statements
// @Produce json
// @Param token path string true "Preview token"
// @Success 200 {object} models.StatementImportResponse
// @Failure 404 {object} ErrorBody
// @Failure 409 {object} ErrorBody
// @Security BearerAuth
// @Router /statements/{token}/discard [post]
func (h *ReconciliationHandler) Discard(c *gin.Context) {
	imp, err := h.reconciliation.DiscardImport(requestContext(c), c.Param("token"), middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"statement_import": imp.ToResponse()})
}

// @Summary List Statement Imports
// @Tags Statements
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param per_page query int false "Items per page" default(20)
// @Param status query string false "PREVIEWED, CONFIRMED or DISCARDED"
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /statements [get]
func (h *ReconciliationHandler) Imports(c *gin.Context) {
	query := listQuery(c)
	query.Filters["status"] = c.Query("status")

	imports, total, err := h.reconciliation.ListImports(c.Request.Context(), query)
	if err != nil {
		respondError(c, err)
		return
	}
	responses := make([]models.StatementImportResponse, 0, len(imports))
	for _, imp := range imports {
		responses = append(responses, imp.ToResponse())
	}
	c.JSON(http.StatusOK, gin.H{"statement_imports": responses, "pagination": pagination(query, total)})
}
