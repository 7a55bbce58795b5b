package order

import "github.com/shopspring/decimal"

// DefaultMaxPaymentAmount is the default upper bound for a submitted payment amount
var DefaultMaxPaymentAmount = decimal.NewFromInt(50000)

// Policy carries the deployment-specific business rules of the lifecycle
type Policy struct {
	// MinPaymentAmount and MaxPaymentAmount bound a submitted amount, inclusive
	MinPaymentAmount decimal.Decimal
	MaxPaymentAmount decimal.Decimal
	// SupervisorConfirmsPending lets supervisors settle a supply payment
	// straight from pending, without a finance approval first
	SupervisorConfirmsPending bool
}

// DefaultPolicy returns the marketplace defaults
func DefaultPolicy() Policy {
	return Policy{
		MinPaymentAmount:          decimal.Zero,
		MaxPaymentAmount:          DefaultMaxPaymentAmount,
		SupervisorConfirmsPending: true,
	}
}

// AmountInRange reports whether amount lies within the inclusive bounds
func (p Policy) AmountInRange(amount decimal.Decimal) bool {
	return amount.GreaterThanOrEqual(p.MinPaymentAmount) && amount.LessThanOrEqual(p.MaxPaymentAmount)
}
