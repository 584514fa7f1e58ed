package proactor

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/tundish/turbo-ipc/internal/config"
	"github.com/tundish/turbo-ipc/internal/log"
)

// ConfigRefresher periodically polls a management HTTP surface's
// GET /config/<guid> route and hands back the decoded section, the
// Go counterpart of spec.md §4.8's config-refresh collaborator. It
// depends only on a bearer token and an *http.Client, never on whatever
// issues that token (spec.md §1's scope note keeps auth issuance out of
// scope).
type ConfigRefresher struct {
	BaseURL     string
	BearerToken string
	Client      *http.Client
	Interval    time.Duration
}

// NewConfigRefresher constructs a refresher whose Client has a 5-second
// timeout and whose Interval is 10 seconds.
func NewConfigRefresher(baseURL, bearerToken string) *ConfigRefresher {
	return &ConfigRefresher{
		BaseURL:     baseURL,
		BearerToken: bearerToken,
		Client:      &http.Client{Timeout: 5 * time.Second},
		Interval:    10 * time.Second,
	}
}

// Fetch performs one GET /config/<guid> request and decodes the result.
func (r *ConfigRefresher) Fetch(ctx context.Context, guid string) (config.Section, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.BaseURL+"/config/"+guid, nil)
	if err != nil {
		return config.Section{}, err
	}
	req.Header.Set("Authorization", "Bearer "+r.BearerToken)

	resp, err := r.Client.Do(req)
	if err != nil {
		return config.Section{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return config.Section{}, fmt.Errorf("proactor: config fetch for %s: status %d", guid, resp.StatusCode)
	}

	var section config.Section
	if err := json.NewDecoder(resp.Body).Decode(&section); err != nil {
		return config.Section{}, err
	}
	return section, nil
}

// Run polls Fetch for guid at Interval until ctx is cancelled, invoking
// onUpdate with each successful result. Fetch failures are logged and do
// not stop the loop.
func (r *ConfigRefresher) Run(ctx context.Context, guid string, onUpdate func(config.Section)) error {
	ticker := time.NewTicker(r.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			section, err := r.Fetch(ctx, guid)
			if err != nil {
				log.WithComponent("proactor.refresher").Warn().Err(err).
					Str("guid", guid).Msg("config fetch failed")
				continue
			}
			onUpdate(section)
		}
	}
}
