package polymarket

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/alejandrodnm/forecastedge/internal/domain"
)

const gammaEventsPath = "/events"

// FetchEvent obtiene el evento configurado por slug con todos sus buckets.
func (c *Client) FetchEvent(ctx context.Context, spec domain.EventSpec) (domain.Event, error) {
	u := fmt.Sprintf("%s%s?slug=%s", c.gammaBase, gammaEventsPath, url.QueryEscape(spec.Slug))

	var resp gammaEventsResponse
	if err := c.gamma.GetJSON(ctx, u, &resp); err != nil {
		return domain.Event{}, fmt.Errorf("gamma.FetchEvent %s: %w", spec.Slug, err)
	}
	if len(resp) == 0 {
		return domain.Event{}, fmt.Errorf("gamma.FetchEvent %s: event not found", spec.Slug)
	}

	ev := mapEvent(resp[0], spec)
	slog.Debug("gamma event fetched",
		"slug", ev.Slug,
		"buckets", len(ev.Buckets),
		"closed", ev.Closed,
	)
	return ev, nil
}
