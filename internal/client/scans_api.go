package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/Pusher91/truderwatch/internal/client/api"
	"github.com/Pusher91/truderwatch/internal/domain"
)

func (c *Client) Scans(ctx context.Context) ([]domain.ScanListItem, error) {
	var raw api.Fields
	if err := c.get(ctx, pathScans, nil, &raw); err != nil {
		return nil, err
	}
	items := []domain.ScanListItem{}
	if v, ok := raw.First(api.ScanItemsAliases); ok {
		if err := json.Unmarshal(v, &items); err != nil {
			return nil, fmt.Errorf("decode scans: %w", err)
		}
	}
	return items, nil
}

func (c *Client) ScanState(ctx context.Context, scanID string) (domain.ScanState, error) {
	id, apiErr := api.RequireScanID(scanID)
	if apiErr != nil {
		return domain.ScanState{}, apiErr
	}

	var raw api.Fields
	if err := c.get(ctx, pathScanState, url.Values{"scanId": {id}}, &raw); err != nil {
		return domain.ScanState{}, err
	}

	metaFields := raw
	if v, ok := raw.First([]string{"meta"}); ok {
		metaFields = api.Fields{}
		if err := json.Unmarshal(v, &metaFields); err != nil {
			return domain.ScanState{}, fmt.Errorf("decode scan meta: %w", err)
		}
	}
	b, err := json.Marshal(metaFields)
	if err != nil {
		return domain.ScanState{}, fmt.Errorf("decode scan meta: %w", err)
	}

	var st domain.ScanState
	if err := json.Unmarshal(b, &st.Meta); err != nil {
		return domain.ScanState{}, fmt.Errorf("decode scan meta: %w", err)
	}
	if st.Meta.ID == "" {
		st.Meta.ID = id
	}
	if v := raw.Bool("active"); v != nil {
		st.Active = *v
	}

	st.SeedTotal = metaFields.Int(api.MetaTotalAliases)
	if st.SeedTotal == nil {
		st.SeedTotal = raw.Int(api.MetaTotalAliases)
	}
	return st, nil
}
