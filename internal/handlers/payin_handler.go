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

type PayinHandler struct {
	intake         *services.IntakeService
	reconciliation *services.ReconciliationService
	promotion      *services.PromotionService
}

func NewPayinHandler(intake *services.IntakeService, reconciliation *services.ReconciliationService, promotion *services.PromotionService) *PayinHandler {
	return &PayinHandler{
		intake:         intake,
		reconciliation: reconciliation,
		promotion:      promotion,
	}
}

type SubmitPayinRequest struct {
	HouseID uint            `json:"house_id"`
	Amount  decimal.Decimal `json:"amount" swaggertype:"string" example:"3000.00"`
	PaidAt  *time.Time      `json:"paid_at"`
	Note    string          `json:"note"`
}

// CandidateResponse is an unmatched bank row suggested for a pay-in
type CandidateResponse struct {
	Transaction      models.BankTransactionResponse `json:"transaction"`
	AmountDifference string                         `json:"amount_difference"`
	DaysApart        int                            `json:"days_apart"`
}

// @Summary Submit Pay-in
// @Description Record a resident's payment report (PENDING)
// @Tags Payins
// @Accept json
// @Produce json
// @Param request body SubmitPayinRequest true "Pay-in"
// @Success 201 {object} models.PayinResponse
// @Failure 400 {object} ErrorBody
// @Security BearerAuth
// @Router /payins [post]
func (h *PayinHandler) Create(c *gin.Context) {
	var req SubmitPayinRequest
	if err := BindNestedOrFlat(c, "payin", &req); err != nil {
		badRequest(c, "invalid pay-in payload: "+err.Error())
		return
	}

	in := services.SubmitPayinInput{
		HouseID: req.HouseID,
		Amount:  req.Amount,
		Note:    req.Note,
		ActorID: middleware.GetUserID(c),
	}
	if req.PaidAt != nil {
		in.PaidAt = *req.PaidAt
	}

	payin, err := h.intake.SubmitPayin(requestContext(c), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"payin": payin.ToResponse()})
}

// @Summary Get Pay-in
// @Description Get a pay-in report by ID
// @Tags Payins
// @Produce json
// @Param payin_id path int true "Pay-in ID"
// @Success 200 {object} models.PayinResponse
// @Failure 404 {object} ErrorBody
// @Security BearerAuth
// @Router /payins/{payin_id} [get]
func (h *PayinHandler) Show(c *gin.Context) {
	id, ok := parseID(c, "payin_id")
	if !ok {
		return
	}
	payin, err := h.intake.GetPayin(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"payin": payin.ToResponse()})
}

// @Summary Accept Pay-in
// @Description Accept a pending pay-in and create its payment pool entry. Accepting twice returns the same entry.
// @Tags Payins
// @Produce json
// @Param payin_id path int true "Pay-in ID"
// @Success 200 {object} models.LedgerResponse
// @Failure 404 {object} ErrorBody
// @Failure 409 {object} ErrorBody
// @Security BearerAuth
// @Router /payins/{payin_id}/accept [post]
func (h *PayinHandler) Accept(c *gin.Context) {
	id, ok := parseID(c, "payin_id")
	if !ok {
		return
	}
	ledger, err := h.intake.AcceptPayin(requestContext(c), id, middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ledger": ledger.ToResponse()})
}

// @Summary Reject Pay-in
// @Description Reject a pending pay-in
// @Tags Payins
// @Produce json
// @Param payin_id path int true "Pay-in ID"
// @Success 200 {object} models.PayinResponse
// @Failure 409 {object} ErrorBody
// @Security BearerAuth
// @Router /payins/{payin_id}/reject [post]
func (h *PayinHandler) Reject(c *gin.Context) {
	id, ok := parseID(c, "payin_id")
	if !ok {
		return
	}
	payin, err := h.intake.RejectPayin(requestContext(c), id, middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"payin": payin.ToResponse()})
}

// @Summary Match Candidates
// @Description List unmatched bank transactions close to the pay-in's amount and date, best first
// @Tags Payins
// @Produce json
// @Param payin_id path int true "Pay-in ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} ErrorBody
// @Security BearerAuth
// @Router /payins/{payin_id}/candidates [get]
func (h *PayinHandler) Candidates(c *gin.Context) {
	id, ok := parseID(c, "payin_id")
	if !ok {
		return
	}
	candidates, err := h.reconciliation.ListCandidates(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	responses := make([]CandidateResponse, 0, len(candidates))
	for _, cand := range candidates {
		responses = append(responses, CandidateResponse{
			Transaction:      cand.Transaction.ToResponse(),
			AmountDifference: cand.AmountDifference.StringFixed(2),
			DaysApart:        cand.DaysApart,
		})
	}
	c.JSON(http.StatusOK, gin.H{"candidates": responses})
}

// @Summary Evaluate Promotions
// @Description Suggest promotion credits for a pay-in. Nothing is applied.
// @Tags Payins
// @Produce json
// @Param payin_id path int true "Pay-in ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} ErrorBody
// @Security BearerAuth
// @Router /payins/{payin_id}/promotions [get]
func (h *PayinHandler) Promotions(c *gin.Context) {
	id, ok := parseID(c, "payin_id")
	if !ok {
		return
	}
	suggestions, err := h.promotion.Evaluate(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	responses := make([]models.PromotionSuggestionResponse, 0, len(suggestions))
	for _, s := range suggestions {
		responses = append(responses, s.ToResponse())
	}
	c.JSON(http.StatusOK, gin.H{"suggestions": responses})
}

// @Summary Get Ledger
// @Description Get a payment pool entry with its allocations
// @Tags Ledgers
// @Produce json
// @Param ledger_id path int true "Ledger ID"
// @Success 200 {object} models.LedgerResponse
// @Failure 404 {object} ErrorBody
// @Security BearerAuth
// @Router /ledgers/{ledger_id} [get]
func (h *PayinHandler) Ledger(c *gin.Context) {
	id, ok := parseID(c, "ledger_id")
	if !ok {
		return
	}
	detail, err := h.intake.GetLedger(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	resp := detail.Ledger.ToResponse()
	resp.Applications = make([]models.PaymentApplicationResponse, 0, len(detail.Applications))
	for _, a := range detail.Applications {
		resp.Applications = append(resp.Applications, a.ToResponse())
	}
	c.JSON(http.StatusOK, gin.H{"ledger": resp})
}
