package commission_fee

// PerUnitCommissionFee charges a flat amount per unit filled with an
// optional minimum per fill, the pricing shape brokers use for per-share
// commissions.
type PerUnitCommissionFee struct {
	perUnit float64
	minimum float64
}

func NewPerUnitCommissionFee(perUnit, minimum float64) PerUnitCommissionFee {
	return PerUnitCommissionFee{perUnit: perUnit, minimum: minimum}
}

func (f PerUnitCommissionFee) Calculate(price, size float64) float64 {
	fee := size * f.perUnit
	if fee < f.minimum {
		return f.minimum
	}

	return fee
}
