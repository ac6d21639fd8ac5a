package esewa

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidCallback is returned when a redirect payload cannot be trusted.
var ErrInvalidCallback = errors.New("invalid esewa callback")

// Callback is the payload eSewa base64-encodes into the success redirect.
type Callback struct {
	TransactionCode  string
	Status           string
	TotalAmount      float64
	TransactionUUID  string
	ProductCode      string
	SignedFieldNames string
	Signature        string
}

// DecodeCallback decodes data and checks its signature and product code.
// Field values are signed exactly as they appear in the JSON, so numbers
// keep their original text (e.g. "1000.0").
func (s Signer) DecodeCallback(data string) (*Callback, error) {
	raw, err := decodeBase64(strings.TrimSpace(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCallback, err)
	}

	var values map[string]json.RawMessage
	if err := json.Unmarshal(raw, &values); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCallback, err)
	}
	fields := make(map[string]string, len(values))
	for k, v := range values {
		fields[k] = rawText(v)
	}

	cb := &Callback{
		TransactionCode:  fields["transaction_code"],
		Status:           fields["status"],
		TransactionUUID:  fields["transaction_uuid"],
		ProductCode:      fields["product_code"],
		SignedFieldNames: fields["signed_field_names"],
		Signature:        fields["signature"],
	}
	if cb.SignedFieldNames == "" || cb.Signature == "" {
		return nil, fmt.Errorf("%w: missing signature", ErrInvalidCallback)
	}
	if !s.Verify(fields, cb.SignedFieldNames, cb.Signature) {
		return nil, fmt.Errorf("%w: signature mismatch", ErrInvalidCallback)
	}
	if cb.ProductCode != s.productCode {
		return nil, fmt.Errorf("%w: unexpected product code %q", ErrInvalidCallback, cb.ProductCode)
	}
	if cb.TotalAmount, err = ParseAmount(fields["total_amount"]); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCallback, err)
	}
	return cb, nil
}

func decodeBase64(s string) ([]byte, error) {
	if b, err := base64.StdEncoding.DecodeString(s); err == nil {
		return b, nil
	}
	return base64.URLEncoding.DecodeString(s)
}

// rawText returns the unquoted value of a JSON string, or the literal text
// of any other JSON value.
func rawText(v json.RawMessage) string {
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(v))
}
