package http

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yanqian/healthsync/internal/domain/healthsync"
)

const maxListLimit = 1000

// SyncHandler exposes sync runs and stored records over HTTP.
type SyncHandler struct {
	svc    healthsync.Service
	queue  healthsync.JobQueue
	logger *slog.Logger
	now    func() time.Time
}

// NewSyncHandler constructs the handler.
func NewSyncHandler(svc healthsync.Service, queue healthsync.JobQueue, logger *slog.Logger) *SyncHandler {
	return &SyncHandler{
		svc:    svc,
		queue:  queue,
		logger: logger.With("component", "http.sync_handler"),
		now:    time.Now,
	}
}

type syncRequest struct {
	DaysToSync int `json:"daysToSync"`
}

type jobResponse struct {
	Status string             `json:"status"`
	Job    healthsync.SyncJob `json:"job"`
}

type recordsResponse struct {
	Records []healthsync.MetricRecord `json:"records"`
}

// Sync runs a backfill for the caller and returns the report.
func (h *SyncHandler) Sync(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	req, ok := bindSyncRequest(c)
	if !ok {
		return
	}

	report, err := h.svc.SyncWearablesData(c.Request.Context(), userID, c.Param("integrationId"), req.DaysToSync)
	if err != nil {
		abortWithError(c, fromAppError(err, "sync_failed"))
		return
	}
	c.JSON(http.StatusOK, report)
}

// EnqueueSync hands the backfill to the job worker.
func (h *SyncHandler) EnqueueSync(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	req, ok := bindSyncRequest(c)
	if !ok {
		return
	}
	integrationID := strings.TrimSpace(c.Param("integrationId"))
	if integrationID == "" {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", "integrationId is required", nil))
		return
	}

	job := healthsync.SyncJob{
		UserID:        userID,
		IntegrationID: integrationID,
		DaysToSync:    req.DaysToSync,
		RequestedAt:   h.now().UTC(),
	}
	if err := h.queue.Enqueue(c.Request.Context(), job); err != nil {
		abortWithError(c, NewHTTPError(http.StatusServiceUnavailable, "enqueue_failed", "failed to enqueue sync job", err))
		return
	}
	c.JSON(http.StatusAccepted, jobResponse{Status: "queued", Job: job})
}

// ListMetrics returns stored records for one connection.
func (h *SyncHandler) ListMetrics(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	filter := healthsync.RecordFilter{
		UserID:        userID,
		IntegrationID: c.Param("integrationId"),
		MetricType:    healthsync.CanonicalMetric(strings.TrimSpace(c.Query("metricType"))),
	}
	var err error
	if filter.From, err = parseTimeQuery(c, "from"); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", "from must be RFC3339", err))
		return
	}
	if filter.To, err = parseTimeQuery(c, "to"); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", "to must be RFC3339", err))
		return
	}
	if limit := c.Query("limit"); limit != "" {
		parsed, err := strconv.Atoi(limit)
		if err != nil || parsed <= 0 {
			abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", "limit must be a positive integer", err))
			return
		}
		filter.Limit = min(parsed, maxListLimit)
	}

	records, err := h.svc.ListRecords(c.Request.Context(), filter)
	if err != nil {
		abortWithError(c, fromAppError(err, "list_failed"))
		return
	}
	if records == nil {
		records = []healthsync.MetricRecord{}
	}
	c.JSON(http.StatusOK, recordsResponse{Records: records})
}

// Health reports liveness.
func (h *SyncHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func bindSyncRequest(c *gin.Context) (syncRequest, bool) {
	var req syncRequest
	if c.Request.ContentLength == 0 {
		return req, true
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", errMessage(err), err))
		return req, false
	}
	if req.DaysToSync < 0 {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", "daysToSync cannot be negative", nil))
		return req, false
	}
	return req, true
}

func requireUser(c *gin.Context) (string, bool) {
	claims, ok := getClaims(c)
	if !ok || claims.UserID == "" {
		abortWithError(c, NewHTTPError(http.StatusUnauthorized, "unauthorized", "missing authentication", nil))
		return "", false
	}
	return claims.UserID, true
}

func parseTimeQuery(c *gin.Context, key string) (time.Time, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, raw)
}

func errMessage(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
