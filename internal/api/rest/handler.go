package rest

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/agritrace/agritrace/internal/api/middleware"
	"github.com/agritrace/agritrace/internal/domain"
	"github.com/agritrace/agritrace/internal/ledger"
	"github.com/agritrace/agritrace/internal/registry"
	"github.com/agritrace/agritrace/internal/store/schema"
)

// maxPhotoBytes caps a single uploaded photo.
const maxPhotoBytes = 10 << 20

// BatchService is the slice of the batch registry the handlers need
type BatchService interface {
	CreateBatch(ctx context.Context, actor domain.Actor, input registry.CreateBatchInput) (*registry.CreatedBatch, error)
	GetTrace(ctx context.Context, traceID string) (*registry.TraceView, error)
}

// LedgerService is the slice of the activity ledger the handlers need
type LedgerService interface {
	Append(ctx context.Context, actor domain.Actor, traceID string, entries []ledger.Entry) ([]schema.Activity, error)
}

// Handler defines the interface for REST API handlers
type Handler interface {
	// CreateBatch registers a new batch with its two photos (farmers only)
	// POST /api/v1/batches (multipart/form-data)
	CreateBatch(c *gin.Context)

	// AppendActivities appends activities to a trace's ledger
	// POST /api/v1/traces/:trace_id/activities
	AppendActivities(c *gin.Context)

	// GetTrace retrieves the full trace view (public read access)
	// GET /api/v1/traces/:trace_id
	GetTrace(c *gin.Context)

	// HealthCheck returns the health status of the API
	// GET /health
	HealthCheck(c *gin.Context)
}

// handler implements the Handler interface
type handler struct {
	batches BatchService
	ledger  LedgerService
}

// NewHandler creates a new REST API handler
func NewHandler(batches BatchService, ledgerSvc LedgerService) Handler {
	return &handler{
		batches: batches,
		ledger:  ledgerSvc,
	}
}

// CreateBatch registers a new batch from a multipart form submission
func (h *handler) CreateBatch(c *gin.Context) {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		respondBadRequest(c, "Missing authenticated actor")
		return
	}

	input, err := parseCreateBatchForm(c)
	if err != nil {
		respondValidationError(c, err.Error())
		return
	}

	created, err := h.batches.CreateBatch(c.Request.Context(), actor, *input)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusCreated, CreateBatchResponse{
		Batch: toBatchDTO(created.Batch),
		Media: toMediaDTOs(created.Media),
	})
}

// AppendActivities appends one or more activities to a trace
func (h *handler) AppendActivities(c *gin.Context) {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		respondBadRequest(c, "Missing authenticated actor")
		return
	}

	traceID := c.Param("trace_id")
	if traceID == "" {
		respondBadRequest(c, "Trace ID is required")
		return
	}

	var req AppendActivitiesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "Invalid request body", err.Error())
		return
	}

	entries, err := toLedgerEntries(req)
	if err != nil {
		respondValidationError(c, err.Error())
		return
	}

	created, err := h.ledger.Append(c.Request.Context(), actor, traceID, entries)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusCreated, AppendActivitiesResponse{
		TraceID:    traceID,
		Activities: toActivityDTOs(created),
	})
}

// GetTrace retrieves the full view of one trace
func (h *handler) GetTrace(c *gin.Context) {
	traceID := c.Param("trace_id")
	if traceID == "" {
		respondBadRequest(c, "Trace ID is required")
		return
	}

	view, err := h.batches.GetTrace(c.Request.Context(), traceID)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, toTraceResponse(view))
}

// HealthCheck returns the health status of the API
func (h *handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// parseCreateBatchForm reads the multipart batch registration form. Both
// photos are required, under the product_photo and weighing_photo file fields.
func parseCreateBatchForm(c *gin.Context) (*registry.CreateBatchInput, error) {
	quantity, err := strconv.ParseFloat(strings.TrimSpace(c.PostForm("quantity")), 64)
	if err != nil {
		return nil, err
	}

	productionAt, err := time.Parse(productionDateLayout, strings.TrimSpace(c.PostForm("production_date")))
	if err != nil {
		return nil, err
	}

	input := &registry.CreateBatchInput{
		ProductName:      c.PostForm("product_name"),
		Quantity:         quantity,
		QuantityUnit:     domain.QuantityUnit(strings.TrimSpace(c.PostForm("quantity_unit"))),
		ProductionAt:     productionAt,
		LocationState:    c.PostForm("location_state"),
		LocationDistrict: c.PostForm("location_district"),
	}

	photoFields := []struct {
		field     string
		mediaType domain.MediaType
	}{
		{"product_photo", domain.MediaProductPhoto},
		{"weighing_photo", domain.MediaWeighingPhoto},
	}

	for _, pf := range photoFields {
		fileHeader, err := c.FormFile(pf.field)
		if err != nil {
			return nil, fmt.Errorf("%s file is required", pf.field)
		}
		content, err := readPhoto(fileHeader)
		if err != nil {
			return nil, err
		}
		input.Photos = append(input.Photos, registry.PhotoUpload{
			Type:    pf.mediaType,
			Content: content,
		})
	}

	return input, nil
}

func readPhoto(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	// Read one byte past the cap so an over-limit upload is rejected rather
	// than truncated
	content, err := io.ReadAll(io.LimitReader(f, maxPhotoBytes+1))
	if err != nil {
		return nil, err
	}
	if len(content) > maxPhotoBytes {
		return nil, fmt.Errorf("%s exceeds the %d MiB photo limit", fh.Filename, maxPhotoBytes>>20)
	}
	return content, nil
}
