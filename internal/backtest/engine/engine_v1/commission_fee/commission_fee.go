package commission_fee

type CommissionFee interface {
	// Calculate returns the fee charged for filling size units at the
	// given price.
	Calculate(price, size float64) float64
}

// ForRate returns the fee model for a percent-of-notional rate. A zero or
// negative rate yields the free model.
func ForRate(rate float64) CommissionFee {
	if rate <= 0 {
		return NewZeroCommissionFee()
	}

	return NewPercentCommissionFee(rate)
}
