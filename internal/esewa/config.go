package esewa

import (
	"fmt"
	"time"
)

// Config holds the merchant credentials and endpoints for eSewa ePay v2.
type Config struct {
	// BaseURL is the ePay API root, e.g. https://rc-epay.esewa.com.np/api/epay.
	BaseURL     string
	ProductCode string
	SecretKey   string
	// StatusURL overrides the status endpoint derived from BaseURL.
	StatusURL     string
	StatusTimeout time.Duration
}

// FormEndpoint is where the browser posts the signed payment form.
func (c Config) FormEndpoint() string {
	return c.BaseURL + "/main/v2/form"
}

// StatusEndpoint is queried server-side to confirm a transaction.
func (c Config) StatusEndpoint() string {
	if c.StatusURL != "" {
		return c.StatusURL
	}
	return c.BaseURL + "/transaction/v2/status"
}

// Validate checks that every field required to sign and verify is present.
func (c Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base URL is required")
	}
	if c.ProductCode == "" {
		return fmt.Errorf("product code is required")
	}
	if c.SecretKey == "" {
		return fmt.Errorf("secret key is required")
	}
	if c.StatusTimeout <= 0 {
		return fmt.Errorf("status timeout must be positive")
	}
	return nil
}
