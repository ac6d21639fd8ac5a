package esewa

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// SignedFieldNames is the field list eSewa expects a payment request to be signed over.
const SignedFieldNames = "total_amount,transaction_uuid,product_code"

// Signer produces eSewa HMAC-SHA256 signatures for a single merchant.
type Signer struct {
	productCode string
	secret      []byte
}

// NewSigner returns a Signer for productCode using secretKey.
func NewSigner(productCode, secretKey string) Signer {
	return Signer{productCode: productCode, secret: []byte(secretKey)}
}

// ProductCode returns the merchant code the signer signs for.
func (s Signer) ProductCode() string {
	return s.productCode
}

// Sign returns the base64 signature of
// "total_amount=<v>,transaction_uuid=<v>,product_code=<v>".
func (s Signer) Sign(totalAmount float64, transactionUUID string) string {
	message := fmt.Sprintf("total_amount=%s,transaction_uuid=%s,product_code=%s",
		FormatAmount(totalAmount), transactionUUID, s.productCode)
	return s.signMessage(message)
}

// SignFields signs the named fields in the order given by signedFieldNames.
// A name missing from fields contributes an empty value.
func (s Signer) SignFields(fields map[string]string, signedFieldNames string) string {
	names := strings.Split(signedFieldNames, ",")
	parts := make([]string, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		parts = append(parts, name+"="+fields[name])
	}
	return s.signMessage(strings.Join(parts, ","))
}

// Verify reports whether signature matches the signed fields.
func (s Signer) Verify(fields map[string]string, signedFieldNames, signature string) bool {
	expected := s.SignFields(fields, signedFieldNames)
	return hmac.Equal([]byte(expected), []byte(signature))
}

func (s Signer) signMessage(message string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(message))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// RoundAmount rounds v to two decimal places.
func RoundAmount(v float64) float64 {
	return math.Round(v*100) / 100
}

// FormatAmount renders v with the shortest decimal representation,
// e.g. 1500.5, 100 or 99.99. Signed messages and form fields use the same text.
func FormatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// SameAmount compares two amounts at paisa precision.
func SameAmount(a, b float64) bool {
	return math.Round(a*100) == math.Round(b*100)
}
