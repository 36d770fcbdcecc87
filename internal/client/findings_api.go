package client

import (
	"context"

	"github.com/Pusher91/truderwatch/internal/client/api"
	"github.com/Pusher91/truderwatch/internal/domain"
)

func (c *Client) Findings(ctx context.Context, scanID string, cursor domain.Cursor, limit int, fq domain.FindingsQuery) (domain.Page[domain.Finding], error) {
	id, apiErr := api.RequireScanID(scanID)
	if apiErr != nil {
		return domain.Page[domain.Finding]{}, apiErr
	}
	q := api.FindingsQueryValues(id, cursor, limit, fq)
	return fetchPage[domain.Finding](ctx, c, pathFindings, q, cursor.OrFirst())
}
