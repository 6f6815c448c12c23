package shared

import "math"

// RoundMoney rounds a monetary amount to two decimal places, half away
// from zero.
func RoundMoney(amount float64) float64 {
	return math.Round(amount*100) / 100
}

// LineAmounts computes the GST amount and line total for a line item.
// GST is charged on the gross amount; the percent is captured from the
// product at transaction time, never live-linked.
func LineAmounts(quantity int64, unitPrice, gstPercent float64) (gstAmount, lineTotal float64) {
	gross := float64(quantity) * unitPrice
	gstAmount = RoundMoney(gross * gstPercent / 100)
	lineTotal = RoundMoney(gross + gstAmount)
	return
}

// SplitGST divides a total GST amount into equal CGST and SGST halves.
func SplitGST(totalGst float64) (cgst, sgst float64) {
	half := RoundMoney(totalGst / 2)
	return half, half
}
