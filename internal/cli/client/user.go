package client

import (
	"context"
	"fmt"
	"net/url"

	"github.com/cloudwego/hertz/pkg/protocol/consts"

	"github.com/lvyanru/chatctl/internal/cli/types"
	"github.com/lvyanru/chatctl/internal/domain"
)

// GetUser fetches the authoritative user record.
// A record without a numeric credits field is a MalformedResponse.
func (c *APIClient) GetUser(ctx context.Context, token, id string) (*types.UserRecord, error) {
	resp, err := c.do(ctx, call{
		method: consts.MethodGet,
		path:   fmt.Sprintf(endpointUser, url.PathEscape(id)),
		token:  token,
	})
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}

	var user types.UserRecord
	if err := decodeJSON(resp, &user); err != nil {
		return nil, err
	}
	if user.Credits == nil {
		return nil, domain.NewMalformedResponseError("user record has no credits")
	}
	return &user, nil
}

// UpdateProfile changes the username
func (c *APIClient) UpdateProfile(ctx context.Context, token, username string) error {
	resp, err := c.do(ctx, call{
		method: consts.MethodPost,
		path:   endpointUpdateProfile,
		token:  token,
		body:   types.UpdateProfileRequest{Username: username},
	})
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	discard(resp)
	return nil
}
