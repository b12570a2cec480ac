package services

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sjperalta/village-settlement-api/internal/models"
	"github.com/sjperalta/village-settlement-api/pkg/money"
)

var hundred = decimal.NewFromInt(100)

// ruleOutcome is a promotion's verdict before the house-outstanding cap.
type ruleOutcome struct {
	eligible bool
	credit   decimal.Decimal
	reason   string
}

func notEligible(format string, args ...any) ruleOutcome {
	return ruleOutcome{credit: decimal.Zero, reason: fmt.Sprintf(format, args...)}
}

// evaluateRule applies one promotion to a pay-in of amount made at paidAt.
// monthly is the house's usual monthly invoice total.
func evaluateRule(p models.Promotion, amount, monthly decimal.Decimal, paidAt time.Time) ruleOutcome {
	if !p.InWindow(paidAt) {
		if !p.Active {
			return notEligible("promotion is inactive")
		}
		return notEligible("pay-in date is outside the promotion window")
	}

	switch p.Kind {
	case models.PromotionKindPrepayMonths:
		if p.MinMonths <= 0 || p.FreeMonths <= 0 {
			return notEligible("promotion is misconfigured")
		}
		if !monthly.IsPositive() {
			return notEligible("house has no recurring invoice to size months against")
		}
		required := monthly.Mul(decimal.NewFromInt(int64(p.MinMonths)))
		if amount.LessThan(required) {
			return notEligible("pay-in covers less than %d months (%s required)", p.MinMonths, money.Format(required))
		}
		return ruleOutcome{
			eligible: true,
			credit:   monthly.Mul(decimal.NewFromInt(int64(p.FreeMonths))),
		}

	case models.PromotionKindPercentDiscount:
		if !p.Percent.IsPositive() {
			return notEligible("promotion is misconfigured")
		}
		if amount.LessThan(p.MinAmount) {
			return notEligible("pay-in is below the minimum of %s", money.Format(p.MinAmount))
		}
		credit := money.RoundHalfUp(amount.Mul(p.Percent).Div(hundred))
		if p.MaxCredit.Valid && credit.GreaterThan(p.MaxCredit.Decimal) {
			credit = p.MaxCredit.Decimal
		}
		return ruleOutcome{eligible: true, credit: credit}

	default:
		return notEligible("unknown promotion kind %q", p.Kind)
	}
}
