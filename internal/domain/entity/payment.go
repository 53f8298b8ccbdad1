package entity

import "time"

// Payment statuses
const (
	PaymentCreated   = "created"
	PaymentSucceeded = "succeeded"
)

// CreditPackage purchasable bundle, price in cents
type CreditPackage struct {
	Credits int
	Price   int
}

// Payment one checkout session
type Payment struct {
	ID        string
	UserID    string
	SessionID string
	PackageID string
	Amount    int // cents
	Credits   int
	Status    string
	CreatedAt time.Time
}

// Completed reports whether the credits were already granted
func (p *Payment) Completed() bool {
	return p.Status == PaymentSucceeded
}
