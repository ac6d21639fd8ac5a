package esewa

// PaymentParams carries the order-specific inputs of a payment request.
type PaymentParams struct {
	TotalAmount     float64
	TransactionUUID string
	SuccessURL      string
	FailureURL      string
}

// PaymentRequest is the form payload posted by the browser to the form endpoint.
type PaymentRequest struct {
	Amount                float64 `json:"amount"`
	TaxAmount             float64 `json:"tax_amount"`
	TotalAmount           float64 `json:"total_amount"`
	TransactionUUID       string  `json:"transaction_uuid"`
	ProductCode           string  `json:"product_code"`
	ProductServiceCharge  float64 `json:"product_service_charge"`
	ProductDeliveryCharge float64 `json:"product_delivery_charge"`
	SuccessURL            string  `json:"success_url"`
	FailureURL            string  `json:"failure_url"`
	SignedFieldNames      string  `json:"signed_field_names"`
	Signature             string  `json:"signature"`
}

// FormField is a single hidden input of the payment form.
type FormField struct {
	Name  string
	Value string
}

// NewPaymentRequest builds a signed payment request. The total is rounded to
// two decimals and no tax or charges are broken out.
func (s Signer) NewPaymentRequest(p PaymentParams) PaymentRequest {
	total := RoundAmount(p.TotalAmount)
	return PaymentRequest{
		Amount:                total,
		TaxAmount:             0,
		TotalAmount:           total,
		TransactionUUID:       p.TransactionUUID,
		ProductCode:           s.productCode,
		ProductServiceCharge:  0,
		ProductDeliveryCharge: 0,
		SuccessURL:            p.SuccessURL,
		FailureURL:            p.FailureURL,
		SignedFieldNames:      SignedFieldNames,
		Signature:             s.Sign(total, p.TransactionUUID),
	}
}

// Fields returns the form inputs in the order eSewa documents them.
func (r PaymentRequest) Fields() []FormField {
	return []FormField{
		{Name: "amount", Value: FormatAmount(r.Amount)},
		{Name: "tax_amount", Value: FormatAmount(r.TaxAmount)},
		{Name: "total_amount", Value: FormatAmount(r.TotalAmount)},
		{Name: "transaction_uuid", Value: r.TransactionUUID},
		{Name: "product_code", Value: r.ProductCode},
		{Name: "product_service_charge", Value: FormatAmount(r.ProductServiceCharge)},
		{Name: "product_delivery_charge", Value: FormatAmount(r.ProductDeliveryCharge)},
		{Name: "success_url", Value: r.SuccessURL},
		{Name: "failure_url", Value: r.FailureURL},
		{Name: "signed_field_names", Value: r.SignedFieldNames},
		{Name: "signature", Value: r.Signature},
	}
}
