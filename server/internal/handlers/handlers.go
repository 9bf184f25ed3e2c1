package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/vattention/facio-superpowers/internal/aggregator"
	"github.com/vattention/facio-superpowers/internal/model"
	"github.com/vattention/facio-superpowers/server/internal/auth"
	"github.com/vattention/facio-superpowers/server/internal/database"
	"github.com/vattention/facio-superpowers/server/internal/metrics"
)

const (
	// maxBodyBytes bounds a sync request body
	maxBodyBytes = 10 << 20
	// maxRecords bounds the records accepted in one sync request
	maxRecords = 1000
)

// Handler holds dependencies for HTTP handlers
type Handler struct {
	db      *database.DB
	metrics *metrics.Collector
	logger  logrus.FieldLogger
	now     func() time.Time
}

// New creates a new Handler
func New(db *database.DB, m *metrics.Collector, logger logrus.FieldLogger) *Handler {
	return &Handler{
		db:      db,
		metrics: m,
		logger:  logger,
		now:     time.Now,
	}
}

// APISync stores a batch of usage records from one client
func (h *Handler) APISync(w http.ResponseWriter, r *http.Request) {
	key := auth.GetAPIKey(r.Context())
	if key == nil {
		h.jsonError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req model.SyncRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		h.jsonError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.ClientID == "" {
		h.jsonError(w, "client_id is required", http.StatusBadRequest)
		return
	}
	if len(req.Records) > maxRecords {
		h.jsonError(w, "Too many records in one request", http.StatusRequestEntityTooLarge)
		return
	}

	if len(req.Records) == 0 {
		h.jsonOK(w, model.SyncResponse{
			Success: true,
			Message: "No records to sync",
		})
		return
	}

	clientName := req.ClientName
	if clientName == "" {
		clientName = req.ClientID
	}
	if _, err := h.db.GetOrCreateClient(key.ID, req.ClientID, clientName); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			h.jsonError(w, "client_id belongs to another key", http.StatusForbidden)
			return
		}
		h.logger.WithError(err).Error("Failed to register client")
		h.jsonError(w, "Failed to register client", http.StatusInternalServerError)
		return
	}

	records := make([]model.UsageRecord, 0, len(req.Records))
	var newest time.Time
	for _, rec := range req.Records {
		if rec.Timestamp.IsZero() || rec.Model == "" {
			continue
		}
		records = append(records, rec)
		if rec.Timestamp.After(newest) {
			newest = rec.Timestamp
		}
	}
	skipped := len(req.Records) - len(records)
	if skipped > 0 {
		h.logger.WithFields(logrus.Fields{
			"client_id": req.ClientID,
			"skipped":   skipped,
		}).Warn("Skipped invalid records")
	}

	inserted, err := h.db.InsertUsageRecords(req.ClientID, records)
	if err != nil {
		h.logger.WithError(err).Error("Failed to insert records")
		h.jsonError(w, "Failed to insert records", http.StatusInternalServerError)
		return
	}
	h.metrics.SyncRecords(int(inserted), len(records)-int(inserted), skipped)

	if !newest.IsZero() {
		if err := h.db.UpdateClientLastSync(req.ClientID, newest); err != nil {
			h.logger.WithError(err).Warn("Failed to update last sync time")
		}
	}

	h.logger.WithFields(logrus.Fields{
		"client_id": req.ClientID,
		"received":  len(req.Records),
		"inserted":  inserted,
	}).Info("Sync completed")

	h.jsonOK(w, model.SyncResponse{
		Success:  true,
		Message:  "Sync completed",
		Inserted: inserted,
	})
}

// APISyncStatus returns the newest synced record time for a client
func (h *Handler) APISyncStatus(w http.ResponseWriter, r *http.Request) {
	key := auth.GetAPIKey(r.Context())
	if key == nil {
		h.jsonError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	clientID := r.URL.Query().Get("client_id")
	if clientID == "" {
		h.jsonError(w, "client_id is required", http.StatusBadRequest)
		return
	}

	lastSync, err := h.db.GetClientSyncStatus(key.ID, clientID)
	if err != nil {
		h.logger.WithError(err).Error("Failed to get sync status")
		h.jsonError(w, "Failed to get sync status", http.StatusInternalServerError)
		return
	}

	h.jsonOK(w, model.SyncStatusResponse{LastSyncAt: lastSync})
}

// APIStats aggregates every client's usage for a calendar period in UTC
func (h *Handler) APIStats(w http.ResponseWriter, r *http.Request) {
	if auth.GetAPIKey(r.Context()) == nil {
		h.jsonError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	period, err := aggregator.ParsePeriod(r.URL.Query().Get("period"))
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	window := aggregator.Window(period, h.now().UTC())
	records, err := h.db.ListUsage(window.Since, window.Until)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list usage")
		h.jsonError(w, "Failed to load usage", http.StatusInternalServerError)
		return
	}
	clients, err := h.db.CountClients(window.Since, window.Until)
	if err != nil {
		h.logger.WithError(err).Error("Failed to count clients")
		h.jsonError(w, "Failed to load usage", http.StatusInternalServerError)
		return
	}

	h.jsonOK(w, model.TeamStats{
		Period:  string(period),
		Clients: clients,
		Stats:   aggregator.Aggregate(records, time.UTC),
	})
}

// Health handles the health check endpoint
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.db.PingContext(r.Context()); err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(map[string]string{"status": "unhealthy", "error": "database unavailable"})
		return
	}

	h.jsonOK(w, map[string]string{"status": "healthy"})
}

func (h *Handler) jsonOK(w http.ResponseWriter, body any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.WithError(err).Warn("Failed to write response")
	}
}

func (h *Handler) jsonError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
