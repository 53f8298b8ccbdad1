package client

import (
	"context"
	"fmt"

	"github.com/cloudwego/hertz/pkg/protocol/consts"

	"github.com/lvyanru/chatctl/internal/cli/types"
	"github.com/lvyanru/chatctl/internal/domain"
)

// CreditPackages lists purchasable credit bundles keyed by package id
func (c *APIClient) CreditPackages(ctx context.Context, token string) (map[string]types.CreditPackage, error) {
	resp, err := c.do(ctx, call{
		method: consts.MethodGet,
		path:   endpointPaymentPackages,
		token:  token,
	})
	if err != nil {
		return nil, fmt.Errorf("list packages: %w", err)
	}

	var out types.PackagesResponse
	if err := decodeJSON(resp, &out); err != nil {
		return nil, err
	}
	if out.Packages == nil {
		return nil, domain.NewMalformedResponseError("packages response has no packages")
	}
	return out.Packages, nil
}

// CreateCheckoutSession starts a hosted checkout and returns its URL
func (c *APIClient) CreateCheckoutSession(ctx context.Context, token, packageID string) (string, error) {
	resp, err := c.do(ctx, call{
		method: consts.MethodPost,
		path:   endpointCheckoutSession,
		token:  token,
		body:   types.CheckoutRequest{PackageID: packageID},
	})
	if err != nil {
		return "", fmt.Errorf("create checkout session: %w", err)
	}

	var out types.CheckoutResponse
	if err := decodeJSON(resp, &out); err != nil {
		return "", err
	}
	if out.CheckoutURL == "" {
		return "", domain.NewMalformedResponseError("checkout response has no checkout_url")
	}
	return out.CheckoutURL, nil
}

// VerifyPayment confirms a completed checkout session
func (c *APIClient) VerifyPayment(ctx context.Context, token, sessionID string) (*types.VerifyPaymentResponse, error) {
	resp, err := c.do(ctx, call{
		method: consts.MethodPost,
		path:   endpointVerifyPayment,
		token:  token,
		body:   types.VerifyPaymentRequest{SessionID: sessionID},
	})
	if err != nil {
		return nil, fmt.Errorf("verify payment: %w", err)
	}

	var out types.VerifyPaymentResponse
	if err := decodeJSON(resp, &out); err != nil {
		return nil, err
	}
	if out.Success && out.Credits == nil {
		return nil, domain.NewMalformedResponseError("verified payment has no credits")
	}
	return &out, nil
}

// TransactionHistory lists past purchases
func (c *APIClient) TransactionHistory(ctx context.Context, token string) ([]types.Transaction, error) {
	resp, err := c.do(ctx, call{
		method: consts.MethodGet,
		path:   endpointTransactionHistory,
		token:  token,
	})
	if err != nil {
		return nil, fmt.Errorf("transaction history: %w", err)
	}

	var out []types.Transaction
	if err := decodeJSON(resp, &out); err != nil {
		return nil, err
	}
	return out, nil
}
