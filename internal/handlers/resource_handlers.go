package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/sjperalta/village-settlement-api/internal/models"
	"github.com/sjperalta/village-settlement-api/internal/services"
)

type HealthHandler struct{}

func NewHealthHandler() *HealthHandler {
	return &HealthHandler{}
}

// @Summary Health Check
// @Description Checks if the API is running
// @Tags Health
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func (h *HealthHandler) Index(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "village-settlement-api",
		"version": "1.0.0",
	})
}

type AuditHandler struct {
	auditService *services.AuditService
}

func NewAuditHandler(auditService *services.AuditService) *AuditHandler {
	return &AuditHandler{auditService: auditService}
}

// @Summary List Audit Logs
// @Description Reconciliation and intake actions, newest first
// @Tags Audits
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param per_page query int false "Items per page" default(50)
// @Param entity query string false "Filter by entity (BankTransaction, StatementImport, Invoice, PayinReport)"
// @Param action query string false "Filter by action"
// @Param actor_id query int false "Filter by actor"
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /audits [get]
func (h *AuditHandler) Index(c *gin.Context) {
	query := listQuery(c)
	if c.Query("per_page") == "" {
		query.PerPage = 50
	}
	query.Filters["entity"] = c.Query("entity")
	query.Filters["action"] = c.Query("action")
	query.Filters["actor_id"] = c.Query("actor_id")

	logs, total, err := h.auditService.List(c.Request.Context(), query)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"audits": logs, "pagination": pagination(query, total)})
}

type PromotionHandler struct {
	promotionService *services.PromotionService
}

func NewPromotionHandler(promotionService *services.PromotionService) *PromotionHandler {
	return &PromotionHandler{promotionService: promotionService}
}

type PromotionRequest struct {
	Name       string           `json:"name" example:"Pay 6 months, get 1 free"`
	Code       string           `json:"code" example:"PREPAY6"`
	Kind       string           `json:"kind" example:"PREPAY_MONTHS"`
	MinMonths  int              `json:"min_months"`
	FreeMonths int              `json:"free_months"`
	MinAmount  decimal.Decimal  `json:"min_amount" swaggertype:"string"`
	Percent    decimal.Decimal  `json:"percent" swaggertype:"string"`
	MaxCredit  *decimal.Decimal `json:"max_credit" swaggertype:"string"`
	Active     *bool            `json:"active"`
	StartsAt   *time.Time       `json:"starts_at"`
	EndsAt     *time.Time       `json:"ends_at"`
}

// @Summary List Promotions
// @Tags Promotions
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /promotions [get]
func (h *PromotionHandler) Index(c *gin.Context) {
	promotions, err := h.promotionService.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"promotions": promotions})
}

// @Summary Create Promotion
// @Description Define a promotion rule. Rules only produce suggestions.
// @Tags Promotions
// @Accept json
// @Produce json
// @Param request body PromotionRequest true "Promotion"
// @Success 201 {object} models.Promotion
// @Failure 400 {object} ErrorBody
// @Security BearerAuth
// @Router /promotions [post]
func (h *PromotionHandler) Create(c *gin.Context) {
	var req PromotionRequest
	if err := BindNestedOrFlat(c, "promotion", &req); err != nil {
		badRequest(c, "invalid promotion payload: "+err.Error())
		return
	}

	p := &models.Promotion{
		Name:       req.Name,
		Code:       req.Code,
		Kind:       req.Kind,
		MinMonths:  req.MinMonths,
		FreeMonths: req.FreeMonths,
		MinAmount:  req.MinAmount,
		Percent:    req.Percent,
		Active:     req.Active == nil || *req.Active,
		StartsAt:   req.StartsAt,
		EndsAt:     req.EndsAt,
	}
	if req.MaxCredit != nil {
		p.MaxCredit = decimal.NewNullDecimal(*req.MaxCredit)
	}

	if err := h.promotionService.Create(c.Request.Context(), p); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"promotion": p})
}
