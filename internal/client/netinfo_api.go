package client

import (
	"context"
	"net/url"

	"github.com/Pusher91/truderwatch/internal/domain"
)

func (c *Client) NetInfo(ctx context.Context, public bool) (domain.NetInfo, error) {
	var q url.Values
	if public {
		q = url.Values{"public": {"1"}}
	}
	var out domain.NetInfo
	if err := c.get(ctx, pathNetInfo, q, &out); err != nil {
		return domain.NetInfo{}, err
	}
	if out.LocalIPv4s == nil {
		out.LocalIPv4s = []string{}
	}
	return out, nil
}
