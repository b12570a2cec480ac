package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/sjperalta/village-settlement-api/pkg/money"
)

// Promotion is a rule definition owned by the committee. The engine only
// evaluates it; it never applies credit on its own.
type Promotion struct {
	ID         uint                `gorm:"primaryKey" json:"id"`
	Name       string              `gorm:"size:120;not null" json:"name"`
	Code       string              `gorm:"size:40;not null;uniqueIndex" json:"code"`
	Kind       string              `gorm:"size:32;not null" json:"kind"`
	MinMonths  int                 `gorm:"not null;default:0" json:"min_months"`
	FreeMonths int                 `gorm:"not null;default:0" json:"free_months"`
	MinAmount  decimal.Decimal     `gorm:"type:decimal(15,2);not null;default:0" json:"min_amount"`
	Percent    decimal.Decimal     `gorm:"type:decimal(5,2);not null;default:0" json:"percent"`
	MaxCredit  decimal.NullDecimal `gorm:"type:decimal(15,2)" json:"max_credit"`
	Active     bool                `gorm:"not null;default:true" json:"active"`
	StartsAt   *time.Time          `json:"starts_at"`
	EndsAt     *time.Time          `json:"ends_at"`
	CreatedAt  time.Time           `json:"created_at"`
	UpdatedAt  time.Time           `json:"updated_at"`
}

// TableName specifies the table name for Promotion
func (Promotion) TableName() string {
	return "promotions"
}

// Promotion kind constants
const (
	PromotionKindPrepayMonths    = "PREPAY_MONTHS"    // pay MinMonths ahead, FreeMonths credited
	PromotionKindPercentDiscount = "PERCENT_DISCOUNT" // Percent of the pay-in credited when >= MinAmount
)

// InWindow reports whether the promotion is switched on and running at t.
func (p *Promotion) InWindow(t time.Time) bool {
	if !p.Active {
		return false
	}
	if p.StartsAt != nil && t.Before(*p.StartsAt) {
		return false
	}
	if p.EndsAt != nil && t.After(*p.EndsAt) {
		return false
	}
	return true
}

// PromotionSuggestion is produced on demand for a pay-in and never stored.
type PromotionSuggestion struct {
	PromotionID     uint            `json:"promotion_id"`
	PromotionName   string          `json:"promotion_name"`
	PromotionCode   string          `json:"promotion_code"`
	Eligible        bool            `json:"eligible"`
	SuggestedCredit decimal.Decimal `json:"-"`
	Reason          string          `json:"reason,omitempty"`
}

// PromotionSuggestionResponse is the JSON response format for suggestions
type PromotionSuggestionResponse struct {
	PromotionID     uint   `json:"promotion_id"`
	PromotionName   string `json:"promotion_name"`
	PromotionCode   string `json:"promotion_code"`
	Eligible        bool   `json:"eligible"`
	SuggestedCredit string `json:"suggested_credit"`
	Reason          string `json:"reason,omitempty"`
}

// ToResponse converts PromotionSuggestion to PromotionSuggestionResponse
func (s *PromotionSuggestion) ToResponse() PromotionSuggestionResponse {
	return PromotionSuggestionResponse{
		PromotionID:     s.PromotionID,
		PromotionName:   s.PromotionName,
		PromotionCode:   s.PromotionCode,
		Eligible:        s.Eligible,
		SuggestedCredit: money.Format(s.SuggestedCredit),
		Reason:          s.Reason,
	}
}
