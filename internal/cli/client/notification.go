package client

import (
	"context"
	"fmt"

	"github.com/cloudwego/hertz/pkg/protocol/consts"

	"github.com/lvyanru/chatctl/internal/cli/types"
)

// Notifications lists the user's notifications
func (c *APIClient) Notifications(ctx context.Context, token string) ([]types.Notification, error) {
	resp, err := c.do(ctx, call{
		method: consts.MethodGet,
		path:   endpointNotifications,
		token:  token,
	})
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}

	var items []types.Notification
	if err := decodeJSON(resp, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// CreateNotification stores a notification for the current user
func (c *APIClient) CreateNotification(ctx context.Context, token, message string) (*types.Notification, error) {
	resp, err := c.do(ctx, call{
		method: consts.MethodPost,
		path:   endpointNotifications,
		token:  token,
		body:   types.CreateNotificationRequest{Message: message},
	})
	if err != nil {
		return nil, fmt.Errorf("create notification: %w", err)
	}

	var n types.Notification
	if err := decodeJSON(resp, &n); err != nil {
		return nil, err
	}
	return &n, nil
}

// MarkNotificationsRead marks every notification as read
func (c *APIClient) MarkNotificationsRead(ctx context.Context, token string) error {
	resp, err := c.do(ctx, call{
		method: consts.MethodPut,
		path:   endpointNotificationsMarkRead,
		token:  token,
	})
	if err != nil {
		return fmt.Errorf("mark notifications read: %w", err)
	}
	discard(resp)
	return nil
}
