package client

import (
	"context"

	"github.com/Pusher91/truderwatch/internal/client/api"
	"github.com/Pusher91/truderwatch/internal/domain"
)

// ProbeLog reads the full probe log for verbose scans and the error log
// otherwise.
func (c *Client) ProbeLog(ctx context.Context, scanID string, verbose bool, cursor domain.Cursor, limit int) (domain.Page[domain.Probe], error) {
	id, apiErr := api.RequireScanID(scanID)
	if apiErr != nil {
		return domain.Page[domain.Probe]{}, apiErr
	}
	path := pathErrors
	if verbose {
		path = pathLog
	}
	return fetchPage[domain.Probe](ctx, c, path, api.CursorLimitQuery(id, cursor, limit), cursor.OrFirst())
}
