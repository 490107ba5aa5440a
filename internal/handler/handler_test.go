package handler

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/notevault-api/internal/dto"
	"github.com/noah-isme/notevault-api/internal/middleware"
	"github.com/noah-isme/notevault-api/internal/models"
	"github.com/noah-isme/notevault-api/internal/repository"
	"github.com/noah-isme/notevault-api/internal/service"
	"github.com/noah-isme/notevault-api/internal/store/memory"
	"github.com/noah-isme/notevault-api/pkg/config"
)

type testAPI struct {
	t      *testing.T
	router *gin.Engine
	tokens *service.TokenService
}

func newTestAPI(t *testing.T, checks map[string]ReadinessCheck) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)

	st := memory.New()
	metrics := service.NewMetricsService()
	collections := repository.NewCollectionRepository(st, "", nil)
	items := repository.NewItemRepository(st, "", nil)
	cascade := service.NewCascadeService(collections, items, st, metrics, nil, service.CascadeServiceConfig{Mode: config.CascadeModeAtomic})
	guard := service.NewLockGuard(0)
	reaper := service.NewRetentionService(collections, items, 0, nil, metrics, nil)
	tokens := service.NewTokenService(config.JWTConfig{Secret: "test-secret", Issuer: "notevault"})

	router := gin.New()
	router.Use(middleware.Metrics(metrics))
	metricsHandler := NewMetricsHandler(metrics, checks)
	router.GET("/health", metricsHandler.Health)
	router.GET("/ready", metricsHandler.Ready)
	Register(router.Group("/api/v1"), Handlers{
		Collections: NewCollectionHandler(service.NewCollectionService(collections, cascade, guard, nil, metrics, nil)),
		Items:       NewItemHandler(service.NewItemService(items, guard, nil, metrics, nil, nil)),
		Views:       NewViewHandler(service.NewViewService(collections, items, reaper, true, metrics, nil), reaper, time.Hour),
		Metrics:     metricsHandler,
	}, middleware.JWT(tokens))

	return &testAPI{t: t, router: router, tokens: tokens}
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (a *testAPI) do(method, path, owner string, body interface{}) (int, envelope) {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if owner != "" {
		token, err := a.tokens.Issue(owner, time.Hour)
		require.NoError(a.t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		_ = json.Unmarshal(w.Body.Bytes(), &env)
	}
	return w.Code, env
}

func (a *testAPI) createCollection(owner, name string) string {
	a.t.Helper()
	status, env := a.do(http.MethodPost, "/api/v1/collections", owner, gin.H{"name": name})
	require.Equal(a.t, http.StatusCreated, status)
	var res models.Result
	require.NoError(a.t, json.Unmarshal(env.Data, &res))
	require.True(a.t, res.Success)
	return res.ID
}

func TestCollectionEndpointsRequireAuth(t *testing.T) {
	api := newTestAPI(t, nil)

	status, env := api.do(http.MethodPost, "/api/v1/collections", "", gin.H{"name": "Work"})
	assert.Equal(t, http.StatusUnauthorized, status)
	require.NotNil(t, env.Error)
	assert.Equal(t, "AUTH_REQUIRED", env.Error.Code)
}

func TestCollectionLifecycleOverHTTP(t *testing.T) {
	api := newTestAPI(t, nil)
	id := api.createCollection("u1", "Work")

	status, env := api.do(http.MethodGet, "/api/v1/collections/"+id, "u1", nil)
	require.Equal(t, http.StatusOK, status)
	var c models.Collection
	require.NoError(t, json.Unmarshal(env.Data, &c))
	assert.Equal(t, "Work", c.Name)
	assert.Equal(t, "#4ECDC4", c.Color)

	status, _ = api.do(http.MethodGet, "/api/v1/collections/"+id, "u2", nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, env = api.do(http.MethodPost, "/api/v1/collections/"+id+"/actions/restore", "u1", nil)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "ILLEGAL_TRANSITION", env.Error.Code)

	status, _ = api.do(http.MethodPost, "/api/v1/collections/"+id+"/actions/explode", "u1", nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = api.do(http.MethodPost, "/api/v1/collections/"+id+"/actions/delete", "u1", nil)
	assert.Equal(t, http.StatusOK, status)

	status, _ = api.do(http.MethodDelete, "/api/v1/collections/"+id, "u1", nil)
	assert.Equal(t, http.StatusOK, status)
	status, _ = api.do(http.MethodDelete, "/api/v1/collections/"+id, "u1", nil)
	assert.Equal(t, http.StatusOK, status)
}

func TestCollectionEditKeepsLifecycleAndLock(t *testing.T) {
	api := newTestAPI(t, nil)
	id := api.createCollection("u1", "Work")

	status, _ := api.do(http.MethodPost, "/api/v1/collections/"+id+"/lock", "u1", gin.H{"password": "1234"})
	require.Equal(t, http.StatusOK, status)
	status, _ = api.do(http.MethodPost, "/api/v1/collections/"+id+"/actions/hide", "u1", nil)
	require.Equal(t, http.StatusOK, status)

	status, _ = api.do(http.MethodPut, "/api/v1/collections/"+id, "u1", gin.H{"name": "Personal", "color": "#45b7d1"})
	require.Equal(t, http.StatusOK, status)

	status, env := api.do(http.MethodGet, "/api/v1/collections/"+id, "u1", nil)
	require.Equal(t, http.StatusOK, status)
	var c models.Collection
	require.NoError(t, json.Unmarshal(env.Data, &c))
	assert.Equal(t, "Personal", c.Name)
	assert.Equal(t, "#45B7D1", c.Color)
	assert.True(t, c.IsHidden)
	assert.True(t, c.IsLocked)

	status, env = api.do(http.MethodPut, "/api/v1/collections/missing", "u1", gin.H{"name": "Ghost"})
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", env.Error.Code)
}

func TestCollectionCreateRejectsBadPayload(t *testing.T) {
	api := newTestAPI(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/collections", strings.NewReader(`{"name":`))
	token, err := api.tokens.Issue("u1", time.Hour)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	api.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	status, env := api.do(http.MethodPost, "/api/v1/collections", "u1", gin.H{"name": "Work", "color": "blue"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
}

func TestItemEndpoints(t *testing.T) {
	api := newTestAPI(t, nil)
	cid := api.createCollection("u1", "Work")
	base := "/api/v1/collections/" + cid + "/items"

	status, _ := api.do(http.MethodPost, "/api/v1/collections/missing/items", "u1", gin.H{"title": "a", "content": "b"})
	assert.Equal(t, http.StatusNotFound, status)

	status, env := api.do(http.MethodPost, base, "u1", gin.H{"title": "Groceries", "content": "milk"})
	require.Equal(t, http.StatusCreated, status)
	var res models.Result
	require.NoError(t, json.Unmarshal(env.Data, &res))
	itemURL := base + "/" + res.ID

	status, _ = api.do(http.MethodPost, itemURL+"/lock", "u1", gin.H{"password": "1234", "confirmation": "1234"})
	require.Equal(t, http.StatusOK, status)

	status, env = api.do(http.MethodPost, itemURL+"/verify", "u1", gin.H{"password": "0000"})
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"valid":false}`, string(env.Data))

	status, env = api.do(http.MethodGet, itemURL, "u1", nil)
	require.Equal(t, http.StatusOK, status)
	assert.NotContains(t, string(env.Data), "passwordHash")

	status, _ = api.do(http.MethodPost, itemURL+"/unlock", "u1", gin.H{"password": "0000"})
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = api.do(http.MethodPost, itemURL+"/actions/hide", "u1", nil)
	assert.Equal(t, http.StatusOK, status)

	status, _ = api.do(http.MethodDelete, itemURL, "u1", nil)
	assert.Equal(t, http.StatusOK, status)
	status, _ = api.do(http.MethodGet, itemURL, "u1", nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestSweepEndpoint(t *testing.T) {
	api := newTestAPI(t, nil)

	status, env := api.do(http.MethodPost, "/api/v1/recycle-bin/sweep", "u1", nil)
	require.Equal(t, http.StatusOK, status)
	var report models.SweepReport
	require.NoError(t, json.Unmarshal(env.Data, &report))
	assert.Equal(t, "u1", report.OwnerID)
	assert.Zero(t, report.CollectionsPurged)
}

func TestViewStreamEmitsSnapshots(t *testing.T) {
	api := newTestAPI(t, nil)
	id := api.createCollection("u1", "Work")

	srv := httptest.NewServer(api.router)
	defer srv.Close()

	token, err := api.tokens.Issue("u1", time.Hour)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/v1/views/active?access_token="+token, nil)
	require.NoError(t, err)
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/event-stream")

	scanner := bufio.NewScanner(resp.Body)
	var event string
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "event:") {
			event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
			continue
		}
		if event == "snapshot" && strings.HasPrefix(line, "data:") {
			var snap models.ViewSnapshot
			require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(strings.TrimPrefix(line, "data:"))), &snap))
			assert.Equal(t, models.ViewActive, snap.View)
			require.Len(t, snap.Entries, 1)
			assert.Equal(t, id, snap.Entries[0].Collection.ID)
			return
		}
	}
	t.Fatal("stream ended without a snapshot")
}

func TestViewStreamRejectsUnknownView(t *testing.T) {
	api := newTestAPI(t, nil)

	status, env := api.do(http.MethodGet, "/api/v1/views/archive", "u1", nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
}

func TestHealthReadyAndSummary(t *testing.T) {
	api := newTestAPI(t, map[string]ReadinessCheck{
		"store": func(context.Context) error { return nil },
	})

	status, _ := api.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, status)
	status, _ = api.do(http.MethodGet, "/ready", "", nil)
	assert.Equal(t, http.StatusOK, status)

	status, env := api.do(http.MethodGet, "/api/v1/metrics/summary", "", nil)
	require.Equal(t, http.StatusOK, status)
	var summary models.EngineMetrics
	require.NoError(t, json.Unmarshal(env.Data, &summary))
	assert.GreaterOrEqual(t, summary.RequestsTotal, uint64(2))

	failing := newTestAPI(t, map[string]ReadinessCheck{
		"store": func(context.Context) error { return errors.New("connection refused") },
	})
	status, env = failing.do(http.MethodGet, "/ready", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, "NOT_READY", env.Error.Code)
}

func TestPaletteIsPublic(t *testing.T) {
	api := newTestAPI(t, nil)

	status, env := api.do(http.MethodGet, "/api/v1/palette", "", nil)
	require.Equal(t, http.StatusOK, status)
	var palette dto.PaletteResponse
	require.NoError(t, json.Unmarshal(env.Data, &palette))
	assert.Equal(t, "#4ECDC4", palette.Default)
	assert.Len(t, palette.Colors, 10)
	assert.Contains(t, palette.Colors, palette.Default)
}
