package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/sjperalta/village-settlement-api/internal/services"
)

// Handlers holds all handler instances
type Handlers struct {
	Health         *HealthHandler
	Invoice        *InvoiceHandler
	Payin          *PayinHandler
	Reconciliation *ReconciliationHandler
	Promotion      *PromotionHandler
	Audit          *AuditHandler
	Job            *JobHandler
}

// NewHandlers creates all handler instances
func NewHandlers(svcs *services.Services) *Handlers {
	return &Handlers{
		Health:         NewHealthHandler(),
		Invoice:        NewInvoiceHandler(svcs.Intake, svcs.InvoiceLedger, svcs.Allocation, svcs.CreditNote),
		Payin:          NewPayinHandler(svcs.Intake, svcs.Reconciliation, svcs.Promotion),
		Reconciliation: NewReconciliationHandler(svcs.Reconciliation),
		Promotion:      NewPromotionHandler(svcs.Promotion),
		Audit:          NewAuditHandler(svcs.Audit),
		Job:            NewJobHandler(svcs.Job),
	}
}

// requestContext carries the caller's ip and user agent into audit records.
func requestContext(c *gin.Context) context.Context {
	return services.WithRequestMeta(c.Request.Context(), c.ClientIP(), c.Request.UserAgent())
}
