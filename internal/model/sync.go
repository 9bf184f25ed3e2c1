package model

import "time"

// SyncRequest is the body of POST /api/sync
type SyncRequest struct {
	ClientID   string        `json:"client_id"`
	ClientName string        `json:"client_name"`
	Records    []UsageRecord `json:"records"`
}

// SyncResponse is returned by POST /api/sync
type SyncResponse struct {
	Success  bool   `json:"success"`
	Message  string `json:"message,omitempty"`
	Inserted int64  `json:"inserted,omitempty"`
	Error    string `json:"error,omitempty"`
}

// SyncStatusResponse is returned by GET /api/sync/status
type SyncStatusResponse struct {
	LastSyncAt *time.Time `json:"last_sync_at,omitempty"`
	Error      string     `json:"error,omitempty"`
}

// TeamStats is returned by GET /api/stats
type TeamStats struct {
	Period  string `json:"period"`
	Clients int    `json:"clients"`
	Stats   Stats  `json:"stats"`
	Error   string `json:"error,omitempty"`
}
