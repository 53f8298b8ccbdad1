// Package payment sends the user to hosted checkout and settles the result.
package payment

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/lvyanru/chatctl/internal/cli/notify"
	"github.com/lvyanru/chatctl/internal/cli/session"
	"github.com/lvyanru/chatctl/internal/cli/types"
	"github.com/lvyanru/chatctl/internal/domain"
)

const (
	MsgPaymentSuccess   = "Payment successful! Your credits have been updated."
	MsgPaymentCancelled = "Payment was cancelled."
	MsgPaymentFailed    = "Payment failed. Please try again later."
	MsgVerifyFailed     = "Failed to verify payment. Please contact support."
)

// API is the payment part of the chat service
type API interface {
	CreditPackages(ctx context.Context, token string) (map[string]types.CreditPackage, error)
	CreateCheckoutSession(ctx context.Context, token, packageID string) (string, error)
	VerifyPayment(ctx context.Context, token, sessionID string) (*types.VerifyPaymentResponse, error)
	TransactionHistory(ctx context.Context, token string) ([]types.Transaction, error)
}

// SessionHolder owns the working session (the chat controller)
type SessionHolder interface {
	Session() *session.Session
	UpdateSession(ctx context.Context, fn func(s *session.Session)) error
}

// Notifier shows toasts
type Notifier interface {
	Notify(level notify.Level, message string)
}

// Navigator leaves the program for an external page
type Navigator interface {
	Open(url string) error
}

// Package is a credit package with its id, sorted for display
type Package struct {
	ID string
	types.CreditPackage
}

// Return is what the checkout redirect carried back
type Return struct {
	Success   bool
	Cancelled bool
	SessionID string
}

// Redirector drives the purchase flow
type Redirector struct {
	api      API
	sessions SessionHolder
	nav      Navigator
	notifier Notifier
	logger   *zap.Logger
}

// NewRedirector creates a redirector. nav may be nil, in which case Checkout
// only returns the URL.
func NewRedirector(api API, sessions SessionHolder, nav Navigator, notifier Notifier, logger *zap.Logger) *Redirector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Redirector{api: api, sessions: sessions, nav: nav, notifier: notifier, logger: logger}
}

// Packages lists the purchasable packages ordered by credits
func (r *Redirector) Packages(ctx context.Context) ([]Package, error) {
	token, err := r.token()
	if err != nil {
		return nil, err
	}

	m, err := r.api.CreditPackages(ctx, token)
	if err != nil {
		return nil, err
	}

	out := make([]Package, 0, len(m))
	for id, p := range m {
		out = append(out, Package{ID: id, CreditPackage: p})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Credits != out[j].Credits {
			return out[i].Credits < out[j].Credits
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// Checkout creates a checkout session and hands its URL to the navigator
func (r *Redirector) Checkout(ctx context.Context, packageID string) (string, error) {
	packageID = strings.TrimSpace(packageID)
	if packageID == "" {
		return "", domain.NewValidationError("package id must not be empty")
	}
	token, err := r.token()
	if err != nil {
		return "", err
	}

	checkoutURL, err := r.api.CreateCheckoutSession(ctx, token, packageID)
	if err != nil {
		r.logger.Error("checkout failed",
			zap.String("package", packageID),
			zap.String("kind", domain.Kind(err)),
			zap.Error(err))
		r.notify(notify.LevelError, MsgPaymentFailed)
		return "", err
	}

	r.logger.Info("checkout session created", zap.String("package", packageID))
	if r.nav != nil {
		if err := r.nav.Open(checkoutURL); err != nil {
			// the URL is still usable by hand
			r.logger.Warn("failed to open browser", zap.Error(err))
		}
	}
	return checkoutURL, nil
}

// ParseReturn reads the checkout return redirect. A bare session id is accepted too.
func ParseReturn(raw string) (Return, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Return{}, domain.NewValidationError("return URL must not be empty")
	}
	if !strings.ContainsAny(raw, "?=/") {
		return Return{Success: true, SessionID: raw}, nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return Return{}, domain.NewValidationError(fmt.Sprintf("invalid return URL: %v", err))
	}
	q := u.Query()
	if !u.IsAbs() && u.RawQuery == "" {
		// "payment_success=true&session_id=..." without a URL around it
		if q, err = url.ParseQuery(raw); err != nil {
			return Return{}, domain.NewValidationError(fmt.Sprintf("invalid return query: %v", err))
		}
	}

	return Return{
		Success:   q.Get("payment_success") == "true",
		Cancelled: q.Get("payment_cancelled") == "true",
		SessionID: q.Get("session_id"),
	}, nil
}

// Settle applies a parsed return: cancelled → warning, success → Verify.
// It reports whether credits were added.
func (r *Redirector) Settle(ctx context.Context, ret Return) (bool, error) {
	switch {
	case ret.Cancelled:
		r.notify(notify.LevelWarning, MsgPaymentCancelled)
		return false, nil
	case !ret.Success:
		return false, domain.NewValidationError("return URL carries no payment result")
	}
	if _, err := r.Verify(ctx, ret.SessionID); err != nil {
		return false, err
	}
	return true, nil
}

// Verify asks the server to confirm a checkout session and stores the new balance
func (r *Redirector) Verify(ctx context.Context, sessionID string) (int, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return 0, domain.NewValidationError("session id must not be empty")
	}
	token, err := r.token()
	if err != nil {
		return 0, err
	}

	res, err := r.api.VerifyPayment(ctx, token, sessionID)
	if err != nil {
		r.logger.Error("payment verification failed",
			zap.String("kind", domain.Kind(err)),
			zap.Int("status", domain.StatusOf(err)),
			zap.Error(err))
		r.notify(notify.LevelError, MsgVerifyFailed)
		return 0, err
	}
	if !res.Success {
		r.notify(notify.LevelError, MsgVerifyFailed)
		return 0, domain.NewServerRejectedError(0, "", "payment was not completed")
	}

	credits := *res.Credits
	if err := r.sessions.UpdateSession(ctx, func(s *session.Session) {
		s.Credits = credits
	}); err != nil {
		r.logger.Error("failed to store new balance", zap.Error(err))
		return credits, err
	}

	r.logger.Info("payment verified", zap.Int("credits", credits))
	r.notify(notify.LevelSuccess, MsgPaymentSuccess)
	return credits, nil
}

// History returns the transaction history
func (r *Redirector) History(ctx context.Context) ([]types.Transaction, error) {
	token, err := r.token()
	if err != nil {
		return nil, err
	}
	return r.api.TransactionHistory(ctx, token)
}

func (r *Redirector) token() (string, error) {
	sess := r.sessions.Session()
	if sess == nil {
		return "", domain.ErrNotLoggedIn
	}
	return sess.Token, nil
}

func (r *Redirector) notify(level notify.Level, msg string) {
	if r.notifier != nil {
		r.notifier.Notify(level, msg)
	}
}
