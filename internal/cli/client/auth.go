package client

import (
	"context"
	"fmt"

	"github.com/cloudwego/hertz/pkg/protocol"
	"github.com/cloudwego/hertz/pkg/protocol/consts"

	"github.com/lvyanru/chatctl/internal/cli/types"
	"github.com/lvyanru/chatctl/internal/domain"
)

// Login performs user login
func (c *APIClient) Login(ctx context.Context, email, password string) (*types.AuthResult, error) {
	resp, err := c.do(ctx, call{
		method: consts.MethodPost,
		path:   endpointLogin,
		body:   types.LoginRequest{Email: email, Password: password},
	})
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	return decodeAuthResult(resp)
}

// Register creates an account; a rejected registration carries the server's detail message
func (c *APIClient) Register(ctx context.Context, username, email, password string) (*types.AuthResult, error) {
	resp, err := c.do(ctx, call{
		method: consts.MethodPost,
		path:   endpointRegister,
		body:   types.RegisterRequest{Username: username, Email: email, Password: password},
	})
	if err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}
	return decodeAuthResult(resp)
}

func decodeAuthResult(resp *protocol.Response) (*types.AuthResult, error) {
	var result types.AuthResult
	if err := decodeJSON(resp, &result); err != nil {
		return nil, err
	}
	if result.Token == "" || result.User == nil || result.User.ID == "" {
		return nil, domain.NewMalformedResponseError("auth response is missing the token or user")
	}
	return &result, nil
}
