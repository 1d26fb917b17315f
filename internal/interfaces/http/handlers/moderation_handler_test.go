package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/modsentry/modsentry/internal/domain/entity"
	"github.com/modsentry/modsentry/internal/domain/service"
	"github.com/modsentry/modsentry/internal/infrastructure/persistence"
)

type fixedAnalyzer struct {
	analysis *service.Analysis
}

func (a *fixedAnalyzer) AnalyzeText(ctx context.Context, text string) *service.Analysis {
	return a.analysis
}

func (a *fixedAnalyzer) AnalyzeImage(ctx context.Context, data []byte, mime string) *service.Analysis {
	return a.analysis
}

func newTestRouter(t *testing.T) (*gin.Engine, *persistence.MemoryModerationRepository) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repo := persistence.NewMemoryModerationRepository()
	analyzer := &fixedAnalyzer{analysis: &service.Analysis{
		Classification: "appropriate",
		Confidence:     service.Confidence(0.85),
		Reasoning:      "No inappropriate content detected.",
	}}
	pipeline := service.NewPipeline(repo, analyzer, nil, nil, zap.NewNop())
	analytics := service.NewAnalytics(repo)

	moderation := NewModerationHandler(pipeline, repo, zap.NewNop())
	analyticsHandler := NewAnalyticsHandler(analytics, zap.NewNop())

	router := gin.New()
	v1 := router.Group("/api/v1")
	v1.POST("/text/moderate", moderation.ModerateText)
	v1.POST("/image/moderate", moderation.ModerateImage)
	v1.GET("/summary", moderation.ListSummaries)
	v1.GET("/summary/:id", moderation.GetSummary)
	v1.GET("/analytics/summary", analyticsHandler.Summary)

	return router, repo
}

func postJSON(t *testing.T, router *gin.Engine, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestModerateText(t *testing.T) {
	router, repo := newTestRouter(t)

	w := postJSON(t, router, "/api/v1/text/moderate", map[string]string{
		"text":      "a lovely afternoon",
		"submitter": "user@example.com",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d, body %s", w.Code, w.Body.String())
	}

	var resp ModerateResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != "completed" || resp.RequestID == 0 {
		t.Fatalf("unexpected response: %+v", resp)
	}

	stored, err := repo.GetRequest(context.Background(), resp.RequestID)
	if err != nil {
		t.Fatalf("request not persisted: %v", err)
	}
	if stored.Submitter != "user@example.com" {
		t.Fatalf("submitter: %s", stored.Submitter)
	}
}

func TestModerateTextValidation(t *testing.T) {
	router, _ := newTestRouter(t)

	cases := []map[string]string{
		{},
		{"text": "hello"},
		{"submitter": "user@example.com"},
		{"text": "hello", "submitter": "not-an-email"},
	}
	for i, body := range cases {
		if w := postJSON(t, router, "/api/v1/text/moderate", body); w.Code != http.StatusBadRequest {
			t.Fatalf("case %d: got %d, want 400", i, w.Code)
		}
	}
}

func multipartImage(t *testing.T, fieldMIME string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	if err := mw.WriteField("submitter", "user@example.com"); err != nil {
		t.Fatalf("write field: %v", err)
	}

	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", `form-data; name="image"; filename="upload.bin"`)
	header.Set("Content-Type", fieldMIME)
	part, err := mw.CreatePart(header)
	if err != nil {
		t.Fatalf("create part: %v", err)
	}
	if _, err := part.Write(data); err != nil {
		t.Fatalf("write part: %v", err)
	}
	mw.Close()
	return &buf, mw.FormDataContentType()
}

func TestModerateImage(t *testing.T) {
	router, _ := newTestRouter(t)

	body, contentType := multipartImage(t, "image/png", []byte{0x89, 0x50, 0x4E, 0x47})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/image/moderate", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d, body %s", w.Code, w.Body.String())
	}
}

func TestModerateImageRejectsMIME(t *testing.T) {
	router, _ := newTestRouter(t)

	body, contentType := multipartImage(t, "application/pdf", []byte("%PDF-1.4"))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/image/moderate", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want 400", w.Code)
	}
}

func TestModerateImageRequiresSubmitter(t *testing.T) {
	router, _ := newTestRouter(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/image/moderate", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want 400", w.Code)
	}
}

func TestGetSummary(t *testing.T) {
	router, _ := newTestRouter(t)

	w := postJSON(t, router, "/api/v1/text/moderate", map[string]string{
		"text":      "hello",
		"submitter": "user@example.com",
	})
	var created ModerateResponse
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/v1/summary/%d", created.RequestID), nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d, body %s", w.Code, w.Body.String())
	}

	var detail SummaryResponse
	if err := json.Unmarshal(w.Body.Bytes(), &detail); err != nil {
		t.Fatalf("decode detail: %v", err)
	}
	if detail.Request.ID != created.RequestID || detail.Result == nil {
		t.Fatalf("unexpected detail: %+v", detail)
	}
	if detail.Result.Classification != "appropriate" {
		t.Fatalf("classification: %s", detail.Result.Classification)
	}
}

func TestGetSummaryNotFound(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/summary/9999", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status: got %d, want 404", w.Code)
	}
}

func TestListSummaries(t *testing.T) {
	router, _ := newTestRouter(t)

	for i := 0; i < 15; i++ {
		postJSON(t, router, "/api/v1/text/moderate", map[string]string{
			"text":      fmt.Sprintf("message %d", i),
			"submitter": "user@example.com",
		})
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/summary?skip=0&limit=10", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d", w.Code)
	}

	var resp ListSummariesResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if resp.Total != 15 || len(resp.Items) != 10 {
		t.Fatalf("pagination: total=%d items=%d", resp.Total, len(resp.Items))
	}
	// Newest first.
	if resp.Items[0].ID < resp.Items[1].ID {
		t.Fatal("list must be ordered newest first")
	}
}

func TestListSummariesValidation(t *testing.T) {
	router, _ := newTestRouter(t)

	for _, query := range []string{
		"limit=0",
		"limit=101",
		"skip=-1",
		"content_type=video",
		"status=stuck",
	} {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/summary?"+query, nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("query %q: got %d, want 400", query, w.Code)
		}
	}
}

func TestListSummariesStatusFilter(t *testing.T) {
	router, _ := newTestRouter(t)

	postJSON(t, router, "/api/v1/text/moderate", map[string]string{
		"text":      "hello",
		"submitter": "user@example.com",
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/summary?status="+string(entity.StatusCompleted), nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var resp ListSummariesResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Total != 1 {
		t.Fatalf("completed filter: total=%d, want 1", resp.Total)
	}
}

func TestAnalyticsSummaryEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)

	postJSON(t, router, "/api/v1/text/moderate", map[string]string{
		"text":      "hello",
		"submitter": "alice@example.com",
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/analytics/summary?user=alice@example.com", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d, body %s", w.Code, w.Body.String())
	}

	var summary service.AnalyticsSummary
	if err := json.Unmarshal(w.Body.Bytes(), &summary); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if summary.TotalRequests != 1 {
		t.Fatalf("total: got %d", summary.TotalRequests)
	}

	// Unknown submitter is a 404, missing user param a 400.
	req = httptest.NewRequest(http.MethodGet, "/api/v1/analytics/summary?user=nobody@example.com", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("unknown submitter: got %d, want 404", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/analytics/summary", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("missing user: got %d, want 400", w.Code)
	}
}
