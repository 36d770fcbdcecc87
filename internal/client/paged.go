package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/Pusher91/truderwatch/internal/client/api"
	"github.com/Pusher91/truderwatch/internal/domain"
)

func fetchPage[T any](ctx context.Context, c *Client, path string, q url.Values, cursor domain.Cursor) (domain.Page[T], error) {
	var raw api.Fields
	if err := c.get(ctx, path, q, &raw); err != nil {
		return domain.Page[T]{}, err
	}
	return decodePage[T](raw, cursor)
}

// decodePage normalises the accepted aliases. A missing next cursor means
// "unchanged", which the pager reads as no further data.
func decodePage[T any](raw api.Fields, cursor domain.Cursor) (domain.Page[T], error) {
	page := domain.Page[T]{Items: []T{}, NextCursor: cursor}

	if v, ok := raw.First(api.ItemsAliases); ok {
		if err := json.Unmarshal(v, &page.Items); err != nil {
			return domain.Page[T]{}, fmt.Errorf("decode page items: %w", err)
		}
		if page.Items == nil {
			page.Items = []T{}
		}
	}

	if v, ok := raw.First(api.NextCursorAliases); ok {
		var next domain.Cursor
		if err := json.Unmarshal(v, &next); err == nil && next != "" {
			page.NextCursor = next
		}
	}

	page.HasMore = raw.Bool("hasMore")
	page.Total = raw.Int(api.TotalAliases)
	return page, nil
}
