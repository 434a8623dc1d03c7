package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nischhal-hub/lynx.io-server/module/core/domain"
	"github.com/nischhal-hub/lynx.io-server/module/core/service"
)

type mockPipeline struct {
	processBatchFn func(ctx context.Context, items []map[string]any) []service.ItemResult
}

func (m *mockPipeline) ProcessBatch(ctx context.Context, items []map[string]any) []service.ItemResult {
	return m.processBatchFn(ctx, items)
}

type mockPositionService struct {
	getAllVehiclesFn func(ctx context.Context) ([]domain.Vehicle, error)
	getLatestFn      func(ctx context.Context, entityID string) (*domain.PositionSample, error)
	getHistoryFn     func(ctx context.Context, entityID string, start, end time.Time) ([]domain.PositionSample, error)
}

func (m *mockPositionService) GetAllVehicles(ctx context.Context) ([]domain.Vehicle, error) {
	return m.getAllVehiclesFn(ctx)
}

func (m *mockPositionService) GetLatest(ctx context.Context, entityID string) (*domain.PositionSample, error) {
	return m.getLatestFn(ctx, entityID)
}

func (m *mockPositionService) GetHistory(ctx context.Context, entityID string, start, end time.Time) ([]domain.PositionSample, error) {
	return m.getHistoryFn(ctx, entityID, start, end)
}

type mockNotificationService struct {
	listByUserFn func(ctx context.Context, userID string) ([]domain.Notification, error)
	markReadFn   func(ctx context.Context, id string) error
}

func (m *mockNotificationService) ListByUser(ctx context.Context, userID string) ([]domain.Notification, error) {
	return m.listByUserFn(ctx, userID)
}

func (m *mockNotificationService) MarkRead(ctx context.Context, id string) error {
	return m.markReadFn(ctx, id)
}

func setupRouter(pipeline ingestPipeline, positions positionService, notifications notificationService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewTrackingHandler(pipeline, positions, notifications)
	h.Register(r.Group(""))
	return r
}

func TestIngestBatch_AllCreated(t *testing.T) {
	pipeline := &mockPipeline{
		processBatchFn: func(_ context.Context, items []map[string]any) []service.ItemResult {
			if len(items) != 2 {
				t.Fatalf("expected 2 items, got %d", len(items))
			}
			return []service.ItemResult{
				{Status: "created", EntityID: "DEV-1"},
				{Status: "created", EntityID: "DEV-2"},
			}
		},
	}

	r := setupRouter(pipeline, &mockPositionService{}, &mockNotificationService{})
	w := httptest.NewRecorder()
	body := `[{"deviceId":"DEV-1","latitude":27.70,"longitude":85.30},{"deviceId":"DEV-2","latitude":27.71,"longitude":85.31}]`
	req, _ := http.NewRequest("POST", "/locations", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Status  string               `json:"status"`
		Results []service.ItemResult `json:"results"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Status != "created" || len(resp.Results) != 2 {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestIngestBatch_PartialFailure(t *testing.T) {
	pipeline := &mockPipeline{
		processBatchFn: func(_ context.Context, _ []map[string]any) []service.ItemResult {
			return []service.ItemResult{
				{Status: "created", EntityID: "DEV-1"},
				{Status: "failed", Error: "latitude: out of range"},
			}
		},
	}

	r := setupRouter(pipeline, &mockPositionService{}, &mockNotificationService{})
	w := httptest.NewRecorder()
	body := `[{"deviceId":"DEV-1","latitude":27.70,"longitude":85.30},{"deviceId":"DEV-2","latitude":95.0,"longitude":85.31}]`
	req, _ := http.NewRequest("POST", "/locations", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusMultiStatus {
		t.Fatalf("expected 207, got %d", w.Code)
	}

	var resp struct {
		Status  string               `json:"status"`
		Failed  int                  `json:"failed"`
		Results []service.ItemResult `json:"results"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Status != "partial" || resp.Failed != 1 {
		t.Errorf("unexpected response: %+v", resp)
	}
	if resp.Results[1].Error == "" {
		t.Error("expected per-item error detail")
	}
}

func TestIngestBatch_RejectsNonArray(t *testing.T) {
	r := setupRouter(&mockPipeline{}, &mockPositionService{}, &mockNotificationService{})
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/locations", strings.NewReader(`{"deviceId":"DEV-1"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestIngestBatch_RejectsEmptyBatch(t *testing.T) {
	r := setupRouter(&mockPipeline{}, &mockPositionService{}, &mockNotificationService{})
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/locations", strings.NewReader(`[]`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestGetLatestLocation_Success(t *testing.T) {
	ts := time.Unix(1715003456, 0)
	positions := &mockPositionService{
		getLatestFn: func(_ context.Context, entityID string) (*domain.PositionSample, error) {
			if entityID != "DEV-1" {
				t.Fatalf("unexpected entity id: %s", entityID)
			}
			return &domain.PositionSample{
				EntityID:   "DEV-1",
				Kind:       domain.KindVehicle,
				Latitude:   27.7172,
				Longitude:  85.3240,
				CapturedAt: ts,
			}, nil
		},
	}

	r := setupRouter(&mockPipeline{}, positions, &mockNotificationService{})
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/vehicles/DEV-1/location", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var resp positionResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.EntityID != "DEV-1" {
		t.Errorf("expected DEV-1, got %s", resp.EntityID)
	}
	if resp.Latitude != 27.7172 {
		t.Errorf("expected 27.7172, got %f", resp.Latitude)
	}
	if resp.Timestamp != 1715003456 {
		t.Errorf("expected 1715003456, got %d", resp.Timestamp)
	}
}

func TestGetLatestLocation_NotFound(t *testing.T) {
	positions := &mockPositionService{
		getLatestFn: func(_ context.Context, _ string) (*domain.PositionSample, error) {
			return nil, domain.ErrNotFound
		},
	}

	r := setupRouter(&mockPipeline{}, positions, &mockNotificationService{})
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/vehicles/GHOST/location", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestGetAllVehicles_Success(t *testing.T) {
	positions := &mockPositionService{
		getAllVehiclesFn: func(_ context.Context) ([]domain.Vehicle, error) {
			return []domain.Vehicle{{VehicleID: "DEV-1"}, {VehicleID: "DEV-2"}}, nil
		},
	}

	r := setupRouter(&mockPipeline{}, positions, &mockNotificationService{})
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/vehicles", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var vehicles []domain.Vehicle
	if err := json.Unmarshal(w.Body.Bytes(), &vehicles); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(vehicles) != 2 {
		t.Errorf("expected 2 vehicles, got %d", len(vehicles))
	}
}

func TestGetHistory_PassesWindow(t *testing.T) {
	positions := &mockPositionService{
		getHistoryFn: func(_ context.Context, entityID string, start, end time.Time) ([]domain.PositionSample, error) {
			if entityID != "DEV-1" {
				t.Fatalf("unexpected entity id: %s", entityID)
			}
			if start.Unix() != 1715000000 || end.Unix() != 1715003600 {
				t.Fatalf("unexpected window %v - %v", start, end)
			}
			return []domain.PositionSample{
				{EntityID: "DEV-1", Latitude: 1, Longitude: 2, CapturedAt: start},
			}, nil
		},
	}

	r := setupRouter(&mockPipeline{}, positions, &mockNotificationService{})
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/vehicles/DEV-1/history?start=1715000000&end=1715003600", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var samples []positionResponse
	if err := json.Unmarshal(w.Body.Bytes(), &samples); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(samples) != 1 {
		t.Errorf("expected 1 sample, got %d", len(samples))
	}
}

func TestGetHistory_InvalidStart(t *testing.T) {
	r := setupRouter(&mockPipeline{}, &mockPositionService{}, &mockNotificationService{})
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/vehicles/DEV-1/history?start=yesterday", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestGetNotifications_EmptyIsArray(t *testing.T) {
	notifications := &mockNotificationService{
		listByUserFn: func(_ context.Context, userID string) ([]domain.Notification, error) {
			if userID != "U1" {
				t.Fatalf("unexpected user id: %s", userID)
			}
			return nil, nil
		},
	}

	r := setupRouter(&mockPipeline{}, &mockPositionService{}, notifications)
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/users/U1/notifications", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if body := strings.TrimSpace(w.Body.String()); body != "[]" {
		t.Errorf("expected empty JSON array, got %s", body)
	}
}

func TestMarkNotificationRead(t *testing.T) {
	called := ""
	notifications := &mockNotificationService{
		markReadFn: func(_ context.Context, id string) error {
			called = id
			return nil
		},
	}

	r := setupRouter(&mockPipeline{}, &mockPositionService{}, notifications)
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/notifications/n-1/read", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", w.Code)
	}
	if called != "n-1" {
		t.Errorf("expected mark read for n-1, got %q", called)
	}
}

func TestMarkNotificationRead_NotFound(t *testing.T) {
	notifications := &mockNotificationService{
		markReadFn: func(_ context.Context, _ string) error {
			return domain.ErrNotFound
		},
	}

	r := setupRouter(&mockPipeline{}, &mockPositionService{}, notifications)
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/notifications/ghost/read", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestGetAllVehicles_ServiceError(t *testing.T) {
	positions := &mockPositionService{
		getAllVehiclesFn: func(_ context.Context) ([]domain.Vehicle, error) {
			return nil, errors.New("db down")
		},
	}

	r := setupRouter(&mockPipeline{}, positions, &mockNotificationService{})
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/vehicles", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
}
