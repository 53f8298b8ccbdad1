package types

// CreditPackage describes a purchasable bundle of credits (price in cents)
type CreditPackage struct {
	Credits int `json:"credits"`
	Price   int `json:"price"`
}

// PackagesResponse represents GET /api/payments/packages
type PackagesResponse struct {
	Packages map[string]CreditPackage `json:"packages"`
}

// CheckoutRequest represents the checkout session payload
type CheckoutRequest struct {
	PackageID string `json:"package_id"`
}

// CheckoutResponse carries the hosted checkout page URL
type CheckoutResponse struct {
	CheckoutURL string `json:"checkout_url"`
}

// VerifyPaymentRequest identifies the checkout session to verify
type VerifyPaymentRequest struct {
	SessionID string `json:"session_id"`
}

// VerifyPaymentResponse reports the verification result and the new balance
type VerifyPaymentResponse struct {
	Success bool `json:"success"`
	Credits *int `json:"credits"`
}

// Transaction is one entry of the payment history (amount in dollars)
type Transaction struct {
	ID      string  `json:"id"`
	Amount  float64 `json:"amount"`
	Credits int     `json:"credits"`
	Status  string  `json:"status"`
	Date    string  `json:"date"`
}
