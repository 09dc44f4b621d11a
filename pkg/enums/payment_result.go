package enums

// PaymentResultStatus is the outcome a payment gateway reports for a charge attempt.
type PaymentResultStatus string

const (
	PaymentResultSuccess PaymentResultStatus = "success"
	PaymentResultFailure PaymentResultStatus = "failure"
)

// String implements fmt.Stringer.
func (p PaymentResultStatus) String() string {
	return string(p)
}
