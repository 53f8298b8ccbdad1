package domain

import (
	"context"

	"github.com/lvyanru/chatctl/internal/domain/entity"
)

// PaymentRepository payment data access
type PaymentRepository interface {
	Create(ctx context.Context, payment *entity.Payment) error

	GetBySessionID(ctx context.Context, sessionID string) (*entity.Payment, error)

	// Complete marks a created payment succeeded and grants its credits in one
	// transaction. granted is false when the payment had already been completed;
	// balance is the user's balance afterwards either way.
	Complete(ctx context.Context, paymentID string) (balance int, granted bool, err error)

	// ListByUser returns the user's payments, newest first
	ListByUser(ctx context.Context, userID string) ([]*entity.Payment, error)
}

// PaymentUsecase simulated checkout
type PaymentUsecase interface {
	Packages() map[string]entity.CreditPackage

	// CreateCheckout records a payment and returns the URL the user is sent to
	CreateCheckout(ctx context.Context, userID, packageID string) (string, error)

	// Verify completes the checkout session and returns the new balance
	Verify(ctx context.Context, userID, sessionID string) (int, error)

	History(ctx context.Context, userID string) ([]*entity.Payment, error)
}
