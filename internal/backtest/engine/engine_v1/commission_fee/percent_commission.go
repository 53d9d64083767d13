package commission_fee

// PercentCommissionFee charges a fixed percentage of the fill notional.
type PercentCommissionFee struct {
	rate float64
}

func NewPercentCommissionFee(rate float64) PercentCommissionFee {
	return PercentCommissionFee{rate: rate}
}

func (f PercentCommissionFee) Calculate(price, size float64) float64 {
	return price * size * f.rate / 100
}
