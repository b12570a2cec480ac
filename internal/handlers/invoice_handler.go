package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/sjperalta/village-settlement-api/internal/middleware"
	"github.com/sjperalta/village-settlement-api/internal/models"
	"github.com/sjperalta/village-settlement-api/internal/services"
)

type InvoiceHandler struct {
	intake     *services.IntakeService
	ledger     *services.InvoiceLedgerService
	allocation *services.AllocationService
	creditNote *services.CreditNoteService
}

func NewInvoiceHandler(intake *services.IntakeService, ledger *services.InvoiceLedgerService, allocation *services.AllocationService, creditNote *services.CreditNoteService) *InvoiceHandler {
	return &InvoiceHandler{
		intake:     intake,
		ledger:     ledger,
		allocation: allocation,
		creditNote: creditNote,
	}
}

type IssueInvoiceRequest struct {
	HouseID     uint            `json:"house_id"`
	TotalAmount decimal.Decimal `json:"total_amount" swaggertype:"string" example:"1500.00"`
	DueDate     string          `json:"due_date" example:"2026-10-31"`
	IsManual    bool            `json:"is_manual"`
	Label       string          `json:"label" example:"2026-10"`
}

type ApplyPaymentRequest struct {
	LedgerID uint            `json:"ledger_id"`
	Amount   decimal.Decimal `json:"amount" swaggertype:"string" example:"600.00"`
	Note     string          `json:"note"`
}

type CreditNoteRequest struct {
	Amount       decimal.Decimal `json:"amount" swaggertype:"string" example:"400.00"`
	Reason       string          `json:"reason" example:"overcharge"`
	IsFullCredit bool            `json:"is_full_credit"`
}

// @Summary List Invoices
// @Description Get a paginated list of invoices
// @Tags Invoices
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param per_page query int false "Items per page" default(20)
// @Param house_id query int false "Filter by house"
// @Param status query string false "Filter by status"
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /invoices [get]
func (h *InvoiceHandler) Index(c *gin.Context) {
	query := listQuery(c)
	query.Filters["house_id"] = c.Query("house_id")
	query.Filters["status"] = c.Query("status")

	invoices, total, err := h.intake.ListInvoices(c.Request.Context(), query)
	if err != nil {
		respondError(c, err)
		return
	}

	responses := make([]models.InvoiceResponse, 0, len(invoices))
	for _, inv := range invoices {
		responses = append(responses, inv.ToResponse())
	}

	c.JSON(http.StatusOK, gin.H{"invoices": responses, "pagination": pagination(query, total)})
}

// @Summary Issue Invoice
// @Description Issue a recurring or manual invoice for a house
// @Tags Invoices
// @Accept json
// @Produce json
// @Param request body IssueInvoiceRequest true "Invoice"
// @Success 201 {object} models.InvoiceResponse
// @Failure 400 {object} ErrorBody
// @Security BearerAuth
// @Router /invoices [post]
func (h *InvoiceHandler) Create(c *gin.Context) {
	var req IssueInvoiceRequest
	if err := BindNestedOrFlat(c, "invoice", &req); err != nil {
		badRequest(c, "invalid invoice payload: "+err.Error())
		return
	}
	dueDate, err := time.Parse("2006-01-02", req.DueDate)
	if err != nil {
		badRequest(c, "due_date must be YYYY-MM-DD")
		return
	}

	inv, err := h.intake.IssueInvoice(requestContext(c), services.IssueInvoiceInput{
		HouseID:  req.HouseID,
		Total:    req.TotalAmount,
		DueDate:  dueDate,
		IsManual: req.IsManual,
		Label:    req.Label,
		ActorID:  middleware.GetUserID(c),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"invoice": inv.ToResponse()})
}

// @Summary Get Invoice
// @Description Get an invoice with its payment applications, credit notes and event history
// @Tags Invoices
// @Produce json
// @Param invoice_id path int true "Invoice ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} ErrorBody
// @Security BearerAuth
// @Router /invoices/{invoice_id} [get]
func (h *InvoiceHandler) Show(c *gin.Context) {
	id, ok := parseID(c, "invoice_id")
	if !ok {
		return
	}
	detail, err := h.intake.GetInvoiceDetail(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	applications := make([]models.PaymentApplicationResponse, 0, len(detail.Applications))
	for _, a := range detail.Applications {
		applications = append(applications, a.ToResponse())
	}
	notes := make([]models.CreditNoteResponse, 0, len(detail.CreditNotes))
	for _, n := range detail.CreditNotes {
		notes = append(notes, n.ToResponse())
	}
	events := make([]models.InvoiceEventResponse, 0, len(detail.Events))
	for _, e := range detail.Events {
		events = append(events, e.ToResponse())
	}

	c.JSON(http.StatusOK, gin.H{
		"invoice":      detail.Invoice.ToResponse(),
		"applications": applications,
		"credit_notes": notes,
		"events":       events,
	})
}

// @Summary Invoice Outstanding
// @Description Get the current outstanding balance of an invoice
// @Tags Invoices
// @Produce json
// @Param invoice_id path int true "Invoice ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} ErrorBody
// @Security BearerAuth
// @Router /invoices/{invoice_id}/outstanding [get]
func (h *InvoiceHandler) Outstanding(c *gin.Context) {
	id, ok := parseID(c, "invoice_id")
	if !ok {
		return
	}
	outstanding, err := h.ledger.GetOutstanding(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"invoice_id": id, "outstanding_amount": outstanding.StringFixed(2)})
}

// @Summary Verify Invoice
// @Description Recompute outstanding and status from history and report drift
// @Tags Invoices
// @Produce json
// @Param invoice_id path int true "Invoice ID"
// @Success 200 {object} services.Verification
// @Failure 500 {object} ErrorBody
// @Security BearerAuth
// @Router /invoices/{invoice_id}/verify [get]
func (h *InvoiceHandler) Verify(c *gin.Context) {
	id, ok := parseID(c, "invoice_id")
	if !ok {
		return
	}
	v, err := h.ledger.VerifyInvoice(c.Request.Context(), id)
	if err != nil {
		status, detail := describeError(c, err)
		if v != nil {
			// drift keeps the report so the operator can see what disagrees
			c.JSON(status, gin.H{"error": detail, "verification": v})
			return
		}
		c.JSON(status, ErrorBody{Error: detail})
		return
	}
	c.JSON(http.StatusOK, gin.H{"verification": v})
}

// @Summary Apply Payment
// @Description Apply part of a payment pool entry to an invoice
// @Tags Invoices
// @Accept json
// @Produce json
// @Param invoice_id path int true "Invoice ID"
// @Param request body ApplyPaymentRequest true "Allocation"
// @Success 201 {object} models.PaymentApplicationResponse
// @Failure 400 {object} ErrorBody
// @Failure 404 {object} ErrorBody
// @Failure 409 {object} ErrorBody
// @Security BearerAuth
// @Router /invoices/{invoice_id}/payments [post]
func (h *InvoiceHandler) ApplyPayment(c *gin.Context) {
	id, ok := parseID(c, "invoice_id")
	if !ok {
		return
	}
	var req ApplyPaymentRequest
	if err := BindNestedOrFlat(c, "payment", &req); err != nil {
		badRequest(c, "invalid payment payload: "+err.Error())
		return
	}
	if req.LedgerID == 0 {
		badRequest(c, "ledger_id is required")
		return
	}

	application, err := h.allocation.ApplyPayment(requestContext(c), services.ApplyPaymentInput{
		InvoiceID: id,
		LedgerID:  req.LedgerID,
		Amount:    req.Amount,
		Note:      req.Note,
		ActorID:   middleware.GetUserID(c),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"payment_application": application.ToResponse()})
}

// @Summary Issue Credit Note
// @Description Reduce an invoice's outstanding with a credit note
// @Tags Invoices
// @Accept json
// @Produce json
// @Param invoice_id path int true "Invoice ID"
// @Param request body CreditNoteRequest true "Credit note"
// @Success 201 {object} models.CreditNoteResponse
// @Failure 400 {object} ErrorBody
// @Failure 409 {object} ErrorBody
// @Security BearerAuth
// @Router /invoices/{invoice_id}/credit_notes [post]
func (h *InvoiceHandler) CreateCreditNote(c *gin.Context) {
	id, ok := parseID(c, "invoice_id")
	if !ok {
		return
	}
	var req CreditNoteRequest
	if err := BindNestedOrFlat(c, "credit_note", &req); err != nil {
		badRequest(c, "invalid credit note payload: "+err.Error())
		return
	}

	note, err := h.creditNote.Issue(requestContext(c), services.IssueCreditNoteInput{
		InvoiceID:    id,
		Amount:       req.Amount,
		Reason:       req.Reason,
		IsFullCredit: req.IsFullCredit,
		ActorID:      middleware.GetUserID(c),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"credit_note": note.ToResponse()})
}

// @Summary List Credit Notes
// @Description Get the credit notes issued against an invoice
// @Tags Invoices
// @Produce json
// @Param invoice_id path int true "Invoice ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} ErrorBody
// @Security BearerAuth
// @Router /invoices/{invoice_id}/credit_notes [get]
func (h *InvoiceHandler) CreditNotes(c *gin.Context) {
	id, ok := parseID(c, "invoice_id")
	if !ok {
		return
	}
	notes, err := h.creditNote.List(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	responses := make([]models.CreditNoteResponse, 0, len(notes))
	for _, n := range notes {
		responses = append(responses, n.ToResponse())
	}
	c.JSON(http.StatusOK, gin.H{"credit_notes": responses})
}
