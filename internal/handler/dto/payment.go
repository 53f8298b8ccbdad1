package dto

import (
	"github.com/lvyanru/chatctl/internal/domain/entity"
)

// transactionDateLayout is the history date format
const transactionDateLayout = "2006-01-02 15:04:05"

// PackageResponse one catalogue entry (price in cents)
type PackageResponse struct {
	Credits int `json:"credits"`
	Price   int `json:"price"`
}

// PackagesResponse catalogue keyed by package id
type PackagesResponse struct {
	Packages map[string]PackageResponse `json:"packages"`
}

// CheckoutRequest checkout payload
type CheckoutRequest struct {
	PackageID string `json:"package_id"`
}

// CheckoutResponse hosted checkout URL
type CheckoutResponse struct {
	CheckoutURL string `json:"checkout_url"`
}

// VerifyPaymentRequest verify payload
type VerifyPaymentRequest struct {
	SessionID string `json:"session_id"`
}

// VerifyPaymentResponse new balance after verification
type VerifyPaymentResponse struct {
	Success bool `json:"success"`
	Credits int  `json:"credits"`
}

// TransactionResponse history entry, amount in dollars
type TransactionResponse struct {
	ID      string  `json:"id"`
	Amount  float64 `json:"amount"`
	Credits int     `json:"credits"`
	Status  string  `json:"status"`
	Date    string  `json:"date"`
}

// ToPackagesResponse converts the catalogue
func ToPackagesResponse(pkgs map[string]entity.CreditPackage) *PackagesResponse {
	out := make(map[string]PackageResponse, len(pkgs))
	for id, p := range pkgs {
		out[id] = PackageResponse{Credits: p.Credits, Price: p.Price}
	}
	return &PackagesResponse{Packages: out}
}

// ToTransactionListResponse converts payments into history entries
func ToTransactionListResponse(payments []*entity.Payment) []*TransactionResponse {
	out := make([]*TransactionResponse, len(payments))
	for i, p := range payments {
		out[i] = &TransactionResponse{
			ID:      p.ID,
			Amount:  float64(p.Amount) / 100,
			Credits: p.Credits,
			Status:  p.Status,
			Date:    p.CreatedAt.Format(transactionDateLayout),
		}
	}
	return out
}
