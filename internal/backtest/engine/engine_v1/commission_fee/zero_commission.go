package commission_fee

// ZeroCommissionFee charges nothing.
type ZeroCommissionFee struct{}

func NewZeroCommissionFee() ZeroCommissionFee {
	return ZeroCommissionFee{}
}

func (f ZeroCommissionFee) Calculate(price, size float64) float64 {
	return 0
}
