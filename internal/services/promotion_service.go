package services

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/sjperalta/village-settlement-api/internal/models"
	"github.com/sjperalta/village-settlement-api/internal/repository"
	"github.com/sjperalta/village-settlement-api/pkg/money"
)

// PromotionService suggests credits for a pay-in. It only reads: applying a
// suggestion is a separate, explicit credit note.
type PromotionService struct {
	repos *repository.Repositories
}

// NewPromotionService creates the promotion suggestion evaluator
func NewPromotionService(repos *repository.Repositories) *PromotionService {
	return &PromotionService{repos: repos}
}

// Evaluate reports every promotion with its eligibility and suggested credit
// for the pay-in. Credits are capped at the house's total outstanding.
func (s *PromotionService) Evaluate(ctx context.Context, payinID uint) ([]models.PromotionSuggestion, error) {
	payin, err := s.repos.Payin.FindByID(ctx, payinID)
	if err != nil {
		return nil, translate(err, ErrPayinNotFound)
	}

	promotions, err := s.repos.Promotion.FindAll(ctx)
	if err != nil {
		return nil, err
	}

	monthly := decimal.Zero
	latest, err := s.repos.Invoice.FindLatestRecurringByHouse(ctx, payin.HouseID)
	switch {
	case err == nil:
		monthly = latest.TotalAmount
	case !repository.IsNotFound(err):
		return nil, err
	}

	outstanding, err := s.repos.Invoice.SumOutstandingByHouse(ctx, payin.HouseID)
	if err != nil {
		return nil, err
	}

	suggestions := make([]models.PromotionSuggestion, 0, len(promotions))
	for _, p := range promotions {
		outcome := evaluateRule(p, payin.Amount, monthly, payin.PaidAt)
		credit := outcome.credit
		reason := outcome.reason
		if outcome.eligible && credit.GreaterThan(outstanding) {
			credit = money.Min(credit, outstanding)
			reason = "capped at the house's outstanding balance"
		}
		suggestions = append(suggestions, models.PromotionSuggestion{
			PromotionID:     p.ID,
			PromotionName:   p.Name,
			PromotionCode:   p.Code,
			Eligible:        outcome.eligible,
			SuggestedCredit: credit,
			Reason:          reason,
		})
	}
	return suggestions, nil
}

// Create stores a promotion definition
func (s *PromotionService) Create(ctx context.Context, p *models.Promotion) error {
	if p.Name == "" || p.Code == "" {
		return ErrInvalidInput.WithMessage("name and code are required")
	}
	switch p.Kind {
	case models.PromotionKindPrepayMonths, models.PromotionKindPercentDiscount:
	default:
		return ErrInvalidInput.WithMessage("unknown promotion kind %q", p.Kind)
	}
	if err := s.repos.Promotion.Create(ctx, p); err != nil {
		if repository.IsUniqueViolation(err) {
			return ErrInvalidInput.WithMessage("promotion code %q already exists", p.Code)
		}
		return err
	}
	return nil
}

// List returns all promotion definitions
func (s *PromotionService) List(ctx context.Context) ([]models.Promotion, error) {
	return s.repos.Promotion.FindAll(ctx)
}
