package usecase

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lvyanru/chatctl/internal/domain"
	"github.com/lvyanru/chatctl/internal/domain/entity"
)

// creditPackages is the fixed catalogue (price in cents)
var creditPackages = map[string]entity.CreditPackage{
	"basic":    {Credits: 100, Price: 500},
	"standard": {Credits: 300, Price: 1200},
	"premium":  {Credits: 1000, Price: 3000},
}

// paymentUsecase simulates a hosted checkout: the checkout URL points straight
// at the return URL with payment_success=true, and Verify grants the credits
type paymentUsecase struct {
	paymentRepo      domain.PaymentRepository
	notificationRepo domain.NotificationRepository
	returnURL        string
	logger           *zap.Logger
}

// NewPaymentUsecase creates a PaymentUsecase; returnURL receives the
// payment_success and session_id query parameters
func NewPaymentUsecase(
	paymentRepo domain.PaymentRepository,
	notificationRepo domain.NotificationRepository,
	returnURL string,
	logger *zap.Logger,
) domain.PaymentUsecase {
	return &paymentUsecase{
		paymentRepo:      paymentRepo,
		notificationRepo: notificationRepo,
		returnURL:        returnURL,
		logger:           logger,
	}
}

// Packages returns a copy of the catalogue
func (u *paymentUsecase) Packages() map[string]entity.CreditPackage {
	out := make(map[string]entity.CreditPackage, len(creditPackages))
	for id, p := range creditPackages {
		out[id] = p
	}
	return out
}

func (u *paymentUsecase) CreateCheckout(ctx context.Context, userID, packageID string) (string, error) {
	pkg, ok := creditPackages[strings.TrimSpace(packageID)]
	if !ok {
		return "", domain.NewValidationError("Invalid package ID")
	}

	p := &entity.Payment{
		UserID:    userID,
		SessionID: "cs_" + strings.ReplaceAll(uuid.NewString(), "-", ""),
		PackageID: packageID,
		Amount:    pkg.Price,
		Credits:   pkg.Credits,
		Status:    entity.PaymentCreated,
	}
	if err := u.paymentRepo.Create(ctx, p); err != nil {
		return "", fmt.Errorf("failed to create payment: %w", err)
	}

	checkoutURL, err := u.checkoutURL(p.SessionID)
	if err != nil {
		return "", err
	}

	u.logger.Info("checkout session created",
		zap.String("user_id", userID),
		zap.String("package_id", packageID),
		zap.String("session_id", p.SessionID),
	)
	return checkoutURL, nil
}

func (u *paymentUsecase) checkoutURL(sessionID string) (string, error) {
	base, err := url.Parse(u.returnURL)
	if err != nil {
		return "", fmt.Errorf("invalid return url: %w", err)
	}
	q := base.Query()
	q.Set("payment_success", "true")
	q.Set("session_id", sessionID)
	base.RawQuery = q.Encode()
	return base.String(), nil
}

// Verify grants the payment's credits once; later calls report the balance
func (u *paymentUsecase) Verify(ctx context.Context, userID, sessionID string) (int, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return 0, domain.NewValidationError("session_id is required")
	}

	p, err := u.paymentRepo.GetBySessionID(ctx, sessionID)
	if err != nil {
		return 0, err
	}
	if p.UserID != userID {
		return 0, domain.NewForbiddenError("Not authorized to verify this payment")
	}

	balance, granted, err := u.paymentRepo.Complete(ctx, p.ID)
	if err != nil {
		return 0, fmt.Errorf("failed to complete payment: %w", err)
	}
	if !granted {
		return balance, nil
	}

	note := &entity.Notification{
		UserID:  userID,
		Message: fmt.Sprintf("Payment successful! %d credits added to your account.", p.Credits),
	}
	if err := u.notificationRepo.Create(ctx, note); err != nil {
		u.logger.Warn("failed to create payment notification", zap.String("user_id", userID), zap.Error(err))
	}

	u.logger.Info("payment verified",
		zap.String("user_id", userID),
		zap.String("session_id", sessionID),
		zap.Int("credits", p.Credits),
		zap.Int("balance", balance),
	)
	return balance, nil
}

func (u *paymentUsecase) History(ctx context.Context, userID string) ([]*entity.Payment, error) {
	list, err := u.paymentRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	return list, nil
}
