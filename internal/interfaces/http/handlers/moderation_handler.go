package handlers

import (
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/modsentry/modsentry/internal/domain/entity"
	"github.com/modsentry/modsentry/internal/domain/repository"
	"github.com/modsentry/modsentry/internal/domain/service"
	apperrors "github.com/modsentry/modsentry/pkg/errors"
)

// maxImageBytes caps image uploads at 10 MiB.
const maxImageBytes = 10 << 20

// allowedImageMIME whitelists upload content types.
var allowedImageMIME = map[string]bool{
	"image/jpeg": true,
	"image/jpg":  true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// ModerationHandler serves the submission and summary endpoints.
type ModerationHandler struct {
	pipeline *service.Pipeline
	repo     repository.ModerationRepository
	logger   *zap.Logger
}

func NewModerationHandler(pipeline *service.Pipeline, repo repository.ModerationRepository, logger *zap.Logger) *ModerationHandler {
	return &ModerationHandler{
		pipeline: pipeline,
		repo:     repo,
		logger:   logger,
	}
}

type ModerateTextRequest struct {
	Text      string `json:"text" binding:"required"`
	Submitter string `json:"submitter" binding:"required,email"`
}

type ModerateResponse struct {
	RequestID uint   `json:"request_id"`
	Status    string `json:"status"`
	Message   string `json:"message"`
}

// ModerateText handles POST /api/v1/text/moderate.
func (h *ModerationHandler) ModerateText(c *gin.Context) {
	var req ModerateTextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	receipt, err := h.pipeline.Submit(c.Request.Context(), service.SubmitInput{
		ContentType: entity.ContentTypeText,
		Text:        req.Text,
		Submitter:   req.Submitter,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, ModerateResponse{
		RequestID: receipt.RequestID,
		Status:    string(receipt.Status),
		Message:   receipt.Message,
	})
}

// ModerateImage handles POST /api/v1/image/moderate (multipart: image + submitter).
func (h *ModerationHandler) ModerateImage(c *gin.Context) {
	submitter := c.PostForm("submitter")
	if submitter == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "submitter is required"})
		return
	}

	fileHeader, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "image file is required"})
		return
	}
	if fileHeader.Size > maxImageBytes {
		c.JSON(http.StatusBadRequest, gin.H{"error": "image exceeds maximum size of 10 MiB"})
		return
	}

	mime := fileHeader.Header.Get("Content-Type")
	if !allowedImageMIME[mime] {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported image type: " + mime})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		h.logger.Error("Failed to open uploaded image", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read image"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxImageBytes+1))
	if err != nil {
		h.logger.Error("Failed to read uploaded image", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read image"})
		return
	}

	receipt, err := h.pipeline.Submit(c.Request.Context(), service.SubmitInput{
		ContentType: entity.ContentTypeImage,
		Data:        data,
		Mime:        mime,
		Submitter:   submitter,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, ModerateResponse{
		RequestID: receipt.RequestID,
		Status:    string(receipt.Status),
		Message:   receipt.Message,
	})
}

type RequestView struct {
	ID          uint      `json:"id"`
	ContentType string    `json:"content_type"`
	ContentHash string    `json:"content_hash"`
	Submitter   string    `json:"submitter"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

type ResultView struct {
	Classification string    `json:"classification"`
	Confidence     *float64  `json:"confidence"`
	Reasoning      string    `json:"reasoning"`
	CreatedAt      time.Time `json:"created_at"`
}

type NotificationView struct {
	Channel   string    `json:"channel"`
	Outcome   string    `json:"outcome"`
	CreatedAt time.Time `json:"created_at"`
}

type SummaryResponse struct {
	Request       RequestView        `json:"request"`
	Result        *ResultView        `json:"result,omitempty"`
	Notifications []NotificationView `json:"notifications"`
}

// GetSummary handles GET /api/v1/summary/:id.
func (h *ModerationHandler) GetSummary(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id must be a positive integer"})
		return
	}

	ctx := c.Request.Context()
	req, err := h.repo.GetRequest(ctx, uint(id))
	if err != nil {
		h.respondError(c, err)
		return
	}

	resp := SummaryResponse{
		Request:       toRequestView(req),
		Notifications: []NotificationView{},
	}

	result, err := h.repo.GetResult(ctx, req.ID)
	if err != nil && !apperrors.IsNotFound(err) {
		h.respondError(c, err)
		return
	}
	if result != nil {
		resp.Result = &ResultView{
			Classification: result.Classification,
			Confidence:     result.Confidence,
			Reasoning:      result.Reasoning,
			CreatedAt:      result.CreatedAt,
		}
	}

	attempts, err := h.repo.ListNotifications(ctx, req.ID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	for _, a := range attempts {
		resp.Notifications = append(resp.Notifications, NotificationView{
			Channel:   a.Channel,
			Outcome:   string(a.Outcome),
			CreatedAt: a.CreatedAt,
		})
	}

	c.JSON(http.StatusOK, resp)
}

type ListSummariesResponse struct {
	Total int64         `json:"total"`
	Skip  int           `json:"skip"`
	Limit int           `json:"limit"`
	Items []RequestView `json:"items"`
}

// ListSummaries handles GET /api/v1/summary?skip&limit&content_type&status.
func (h *ModerationHandler) ListSummaries(c *gin.Context) {
	skip, err := strconv.Atoi(c.DefaultQuery("skip", "0"))
	if err != nil || skip < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "skip must be a non-negative integer"})
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if err != nil || limit < 1 || limit > 100 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be between 1 and 100"})
		return
	}

	var filter repository.ListFilter
	if ct := c.Query("content_type"); ct != "" {
		filter.ContentType = entity.ContentType(ct)
		if !filter.ContentType.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "content_type must be text or image"})
			return
		}
	}
	if st := c.Query("status"); st != "" {
		filter.Status = entity.RequestStatus(st)
		switch filter.Status {
		case entity.StatusPending, entity.StatusCompleted, entity.StatusFailed:
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "status must be pending, completed or failed"})
			return
		}
	}

	total, requests, err := h.repo.ListRequests(c.Request.Context(), filter, skip, limit)
	if err != nil {
		h.respondError(c, err)
		return
	}

	items := make([]RequestView, len(requests))
	for i, req := range requests {
		items[i] = toRequestView(req)
	}

	c.JSON(http.StatusOK, ListSummariesResponse{
		Total: total,
		Skip:  skip,
		Limit: limit,
		Items: items,
	})
}

func toRequestView(req *entity.ModerationRequest) RequestView {
	return RequestView{
		ID:          req.ID,
		ContentType: string(req.ContentType),
		ContentHash: req.ContentHash,
		Submitter:   req.Submitter,
		Status:      string(req.Status),
		CreatedAt:   req.CreatedAt,
	}
}

func (h *ModerationHandler) respondError(c *gin.Context, err error) {
	switch {
	case apperrors.IsInvalidInput(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case apperrors.IsNotFound(err):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		h.logger.Error("Request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
