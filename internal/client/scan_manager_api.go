package client

import (
	"context"
	"fmt"

	"github.com/Pusher91/truderwatch/internal/client/api"
	"github.com/Pusher91/truderwatch/internal/domain"
)

func (c *Client) Control(ctx context.Context, action domain.ScanAction, scanID string) error {
	if !action.Valid() {
		return fmt.Errorf("unknown scan action %q", action)
	}
	id, apiErr := api.RequireScanID(scanID)
	if apiErr != nil {
		return apiErr
	}
	return c.post(ctx, pathScans+"/"+string(action), api.ScanIDBody{ScanID: id}, nil)
}

func (c *Client) Pause(ctx context.Context, scanID string) error {
	return c.Control(ctx, domain.ActionPause, scanID)
}

func (c *Client) Resume(ctx context.Context, scanID string) error {
	return c.Control(ctx, domain.ActionResume, scanID)
}

func (c *Client) Stop(ctx context.Context, scanID string) error {
	return c.Control(ctx, domain.ActionStop, scanID)
}

func (c *Client) Delete(ctx context.Context, scanID string) error {
	return c.Control(ctx, domain.ActionDelete, scanID)
}
