// Package sync pushes local usage records to a team server.
package sync

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/vattention/facio-superpowers/costs/internal/config"
	"github.com/vattention/facio-superpowers/internal/model"
)

// maxBatch bounds the records sent per request
const maxBatch = 500

// Client handles syncing to the server
type Client struct {
	server     string
	apiKey     string
	clientID   string
	httpClient *http.Client
}

// NewClient creates a new sync client
func NewClient(cfg *config.Config) *Client {
	return &Client{
		server:   cfg.Server,
		apiKey:   cfg.APIKey,
		clientID: cfg.ClientID,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// GetSyncStatus gets the last synced record time from the server.
// A nil time means the server has nothing from this client yet.
func (c *Client) GetSyncStatus(ctx context.Context) (*time.Time, error) {
	endpoint := fmt.Sprintf("%s/api/sync/status?client_id=%s", c.server, url.QueryEscape(c.clientID))

	var status model.SyncStatusResponse
	if err := c.get(ctx, endpoint, &status); err != nil {
		return nil, err
	}
	if status.Error != "" {
		return nil, fmt.Errorf("%s", status.Error)
	}
	return status.LastSyncAt, nil
}

// Sync sends usage records to the server in batches and returns the number inserted
func (c *Client) Sync(ctx context.Context, records []model.UsageRecord) (int64, error) {
	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = "unknown"
	}

	var inserted int64
	for start := 0; start < len(records); start += maxBatch {
		end := min(start+maxBatch, len(records))
		n, err := c.send(ctx, model.SyncRequest{
			ClientID:   c.clientID,
			ClientName: hostname,
			Records:    records[start:end],
		})
		inserted += n
		if err != nil {
			return inserted, err
		}
	}
	return inserted, nil
}

// TeamStats fetches aggregated usage across every client for a period
func (c *Client) TeamStats(ctx context.Context, period string) (*model.TeamStats, error) {
	endpoint := fmt.Sprintf("%s/api/stats?period=%s", c.server, url.QueryEscape(period))

	var stats model.TeamStats
	if err := c.get(ctx, endpoint, &stats); err != nil {
		return nil, err
	}
	if stats.Error != "" {
		return nil, fmt.Errorf("%s", stats.Error)
	}
	return &stats, nil
}

func (c *Client) send(ctx context.Context, body model.SyncRequest) (int64, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.server+"/api/sync", bytes.NewReader(data))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	var syncResp model.SyncResponse
	if err := json.NewDecoder(resp.Body).Decode(&syncResp); err != nil {
		return 0, fmt.Errorf("server returned status %d", resp.StatusCode)
	}

	if !syncResp.Success {
		errMsg := syncResp.Error
		if errMsg == "" {
			errMsg = syncResp.Message
		}
		return 0, fmt.Errorf("%s", errMsg)
	}

	return syncResp.Inserted, nil
}

func (c *Client) get(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("X-API-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server returned status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// Lookback is how far before the server's mark records are re-sent. A
// record appended after a sync can carry an older timestamp than the
// mark (clock skew, concurrent writers); the server drops the ones it
// already has.
const Lookback = 24 * time.Hour

// Pending returns the records at or after lastSync minus Lookback, in log
// order
func Pending(records []model.UsageRecord, lastSync *time.Time) []model.UsageRecord {
	var toSync []model.UsageRecord
	for _, r := range records {
		if lastSync == nil || !r.Timestamp.Before(lastSync.Add(-Lookback)) {
			toSync = append(toSync, r)
		}
	}
	return toSync
}
