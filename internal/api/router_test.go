package api

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"image/png"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jengzang/taxi-explorer-go/internal/config"
	"github.com/jengzang/taxi-explorer-go/internal/database"
	"github.com/jengzang/taxi-explorer-go/internal/explorer"
	"github.com/jengzang/taxi-explorer-go/internal/ingest"
	"github.com/jengzang/taxi-explorer-go/internal/models"
	"github.com/jengzang/taxi-explorer-go/internal/repository"
	"github.com/jengzang/taxi-explorer-go/internal/service"
	"github.com/jengzang/taxi-explorer-go/internal/store"
)

const testTripCount = 200

// envelope mirrors the response wrapper so tests can decode the data field
// into whatever shape each endpoint returns.
type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Detail  string          `json:"detail"`
	Data    json.RawMessage `json:"data"`
}

type testServer struct {
	router   *gin.Engine
	sessions *service.SessionService
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	repo := repository.NewTripRepository(db)
	if err := repo.EnsureSchema(); err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}
	if err := repo.InsertTrips(ingest.NewGenerator(1).Trips(testTripCount)); err != nil {
		t.Fatalf("failed to seed trips: %v", err)
	}

	viewStore, err := store.Open(filepath.Join(t.TempDir(), "views.db"))
	if err != nil {
		t.Fatalf("failed to open view store: %v", err)
	}
	t.Cleanup(func() { viewStore.Close() })

	cfg := config.Default()
	cfg.JWTSecret = "router-test-secret"
	cfg.Render.PlotWidth = 64
	cfg.Render.PlotHeight = 48

	opts := explorer.DefaultOptions()
	opts.PlotWidth = cfg.Render.PlotWidth
	opts.PlotHeight = cfg.Render.PlotHeight

	sessions := service.NewSessionService(repo, opts, cfg.SessionTTL())
	t.Cleanup(sessions.Close)

	router := SetupRouter(Deps{
		Config:   cfg,
		Sessions: sessions,
		Dataset:  service.NewDatasetService(repo),
		Views:    service.NewViewService(viewStore),
	})
	return &testServer{router: router, sessions: sessions}
}

// do sends one request through the router. A non-nil body is marshaled as
// JSON; a non-empty token becomes a bearer header.
func (ts *testServer) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal request body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder, out interface{}) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("failed to decode response %q: %v", w.Body.String(), err)
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			t.Fatalf("failed to decode data %q: %v", string(env.Data), err)
		}
	}
	return env
}

func (ts *testServer) openSession(t *testing.T) (string, models.SessionInfo) {
	t.Helper()
	w := ts.do(t, http.MethodPost, "/api/v1/sessions", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("create session: status = %d, body = %s", w.Code, w.Body.String())
	}
	var created models.CreateSessionResponse
	decodeData(t, w, &created)
	if created.Token == "" {
		t.Fatal("expected a bearer token")
	}
	if created.Session.ID == "" {
		t.Fatal("expected a session id")
	}
	return created.Token, created.Session
}

func (ts *testServer) putParam(t *testing.T, token, name string, value interface{}) *httptest.ResponseRecorder {
	t.Helper()
	return ts.do(t, http.MethodPut, "/api/v1/sessions/current/params/"+name, token,
		models.ParamUpdateRequest{Value: value})
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodGet, "/health", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"ok"`) {
		t.Errorf("unexpected health body: %s", w.Body.String())
	}
}

func TestCORSPreflight(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodOptions, "/api/v1/sessions", "", nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Access-Control-Allow-Origin = %q, want *", got)
	}
}

func TestSchemaNeedsNoSession(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodGet, "/api/v1/explorer/schema", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var schema models.SchemaResponse
	decodeData(t, w, &schema)
	if len(schema.Fields) != 4 {
		t.Fatalf("len(fields) = %d, want 4", len(schema.Fields))
	}

	byName := make(map[string]models.FieldSchema, len(schema.Fields))
	for _, f := range schema.Fields {
		byName[f.Name] = f
	}

	if got := byName["alpha"]; got.Kind != "magnitude" || got.Default.(float64) != 0.75 {
		t.Errorf("alpha schema = %+v", got)
	}
	cmap, ok := byName["colormap"]
	if !ok || cmap.Kind != "selector" {
		t.Fatalf("colormap schema = %+v", cmap)
	}
	found := false
	for _, name := range cmap.Allowed {
		if name == "fire" {
			found = true
		}
	}
	if !found {
		t.Errorf("colormap allowed %v missing fire", cmap.Allowed)
	}
	if got := byName["passengers"]; got.Kind != "range" || got.BoundHi != 10 {
		t.Errorf("passengers schema = %+v", got)
	}
}

func TestSessionLifecycleOverHTTP(t *testing.T) {
	ts := newTestServer(t)

	token, info := ts.openSession(t)
	if info.Params["alpha"].(float64) != 0.75 {
		t.Errorf("new session alpha = %v, want default 0.75", info.Params["alpha"])
	}

	w := ts.do(t, http.MethodGet, "/api/v1/sessions/current", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get current: status = %d", w.Code)
	}
	var got models.SessionInfo
	decodeData(t, w, &got)
	if got.ID != info.ID {
		t.Errorf("session id = %q, want %q", got.ID, info.ID)
	}

	if w := ts.do(t, http.MethodGet, "/api/v1/sessions/current", "", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("no token: status = %d, want 401", w.Code)
	}

	if w := ts.do(t, http.MethodDelete, "/api/v1/sessions/current", token, nil); w.Code != http.StatusOK {
		t.Fatalf("delete: status = %d", w.Code)
	}
	// Token still parses, but the session behind it is gone.
	if w := ts.do(t, http.MethodGet, "/api/v1/sessions/current", token, nil); w.Code != http.StatusUnauthorized {
		t.Errorf("after delete: status = %d, want 401", w.Code)
	}
}

func TestParamsOverHTTP(t *testing.T) {
	ts := newTestServer(t)
	token, _ := ts.openSession(t)

	w := ts.putParam(t, token, "alpha", 0.4)
	if w.Code != http.StatusOK {
		t.Fatalf("put alpha: status = %d, body = %s", w.Code, w.Body.String())
	}
	var updated map[string]interface{}
	decodeData(t, w, &updated)
	if updated["field"] != "alpha" || updated["value"].(float64) != 0.4 {
		t.Errorf("update echo = %v", updated)
	}

	if w := ts.putParam(t, token, "passengers", []int{2, 4}); w.Code != http.StatusOK {
		t.Fatalf("put passengers: status = %d, body = %s", w.Code, w.Body.String())
	}

	w = ts.do(t, http.MethodGet, "/api/v1/sessions/current/params", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get params: status = %d", w.Code)
	}
	var snap map[string]interface{}
	decodeData(t, w, &snap)
	if snap["alpha"].(float64) != 0.4 {
		t.Errorf("alpha = %v, want 0.4", snap["alpha"])
	}
	span, ok := snap["passengers"].(map[string]interface{})
	if !ok || span["lo"].(float64) != 2 || span["hi"].(float64) != 4 {
		t.Errorf("passengers = %v, want {lo:2 hi:4}", snap["passengers"])
	}

	// Out-of-bounds value: 422 with the constraint spelled out.
	w = ts.putParam(t, token, "alpha", 1.5)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("put alpha 1.5: status = %d, want 422", w.Code)
	}
	var details map[string]interface{}
	env := decodeData(t, w, &details)
	if env.Message != "Validation failed" {
		t.Errorf("message = %q", env.Message)
	}
	if details["field"] != "alpha" || details["constraint"] == "" {
		t.Errorf("validation details = %v", details)
	}

	if w := ts.putParam(t, token, "bananas", 1); w.Code != http.StatusNotFound {
		t.Errorf("unknown field: status = %d, want 404", w.Code)
	}

	// Malformed JSON body.
	req := httptest.NewRequest(http.MethodPut, "/api/v1/sessions/current/params/alpha",
		strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("malformed body: status = %d, want 400", rec.Code)
	}
}

func TestRenderViewOverHTTP(t *testing.T) {
	ts := newTestServer(t)
	token, _ := ts.openSession(t)

	// Default render: PNG at the configured plot size.
	w := ts.do(t, http.MethodGet, "/api/v1/sessions/current/view", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("render: status = %d, body = %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "image/png" {
		t.Fatalf("Content-Type = %q, want image/png", ct)
	}
	img, err := png.Decode(w.Body)
	if err != nil {
		t.Fatalf("failed to decode png: %v", err)
	}
	if img.Bounds().Dx() != 64 || img.Bounds().Dy() != 48 {
		t.Errorf("image size = %dx%d, want 64x48", img.Bounds().Dx(), img.Bounds().Dy())
	}

	// JSON envelope with an explicit viewport.
	path := "/api/v1/sessions/current/view?format=json" +
		"&min_x=-8242000&min_y=4965000&max_x=-8210000&max_y=4990000&width=32&height=32"
	w = ts.do(t, http.MethodGet, path, token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("render json: status = %d, body = %s", w.Code, w.Body.String())
	}
	var view models.ViewResponse
	decodeData(t, w, &view)
	if view.Width != 32 || view.Height != 32 {
		t.Errorf("view size = %dx%d, want 32x32", view.Width, view.Height)
	}
	if view.MinX != -8242000 || view.MaxY != 4990000 {
		t.Errorf("view bounds = (%v %v %v %v)", view.MinX, view.MinY, view.MaxX, view.MaxY)
	}
	if view.PointCount == 0 {
		t.Error("expected points inside the full extent")
	}
	raw, err := base64.StdEncoding.DecodeString(view.ImagePNG)
	if err != nil {
		t.Fatalf("image_png is not base64: %v", err)
	}
	if _, err := png.Decode(bytes.NewReader(raw)); err != nil {
		t.Fatalf("image_png does not decode: %v", err)
	}
	if view.Basemap.Zoom <= 0 || len(view.Basemap.TileURLs) == 0 {
		t.Errorf("basemap = %+v", view.Basemap)
	}

	// Degenerate bounds are rejected before rendering.
	w = ts.do(t, http.MethodGet,
		"/api/v1/sessions/current/view?min_x=5&min_y=5&max_x=1&max_y=9", token, nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad bounds: status = %d, want 400", w.Code)
	}
}

func TestViewportPost(t *testing.T) {
	ts := newTestServer(t)
	token, _ := ts.openSession(t)

	body := models.ViewportRequest{
		MinX: -8236000, MinY: 4972000, MaxX: -8228000, MaxY: 4978000,
		Width: 40, Height: 30,
	}
	w := ts.do(t, http.MethodPost, "/api/v1/sessions/current/viewport", token, body)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "queued") {
		t.Errorf("unexpected body: %s", w.Body.String())
	}
}

func TestFramesStream(t *testing.T) {
	ts := newTestServer(t)
	token, _ := ts.openSession(t)

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/sessions/current/frames", nil).WithContext(ctx)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		defer close(done)
		ts.router.ServeHTTP(w, req)
	}()

	// The view loop publishes an initial frame right after session creation;
	// give the stream time to pick it up, then disconnect.
	time.Sleep(500 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("stream did not stop after client disconnect")
	}

	body := w.Body.String()
	if !strings.Contains(body, "frame") || !strings.Contains(body, "image_png") {
		t.Errorf("stream body missing frame event: %q", body)
	}
}

func TestSavedViewsFlow(t *testing.T) {
	ts := newTestServer(t)
	token, _ := ts.openSession(t)

	// Creating a view requires a session.
	if w := ts.do(t, http.MethodPost, "/api/v1/views", "", models.SaveViewRequest{Name: "x"}); w.Code != http.StatusUnauthorized {
		t.Fatalf("unauthorized create: status = %d, want 401", w.Code)
	}

	// Move the session off its defaults so the snapshot is distinctive.
	if w := ts.putParam(t, token, "alpha", 0.3); w.Code != http.StatusOK {
		t.Fatalf("put alpha: status = %d", w.Code)
	}
	if w := ts.putParam(t, token, "passengers", []int{1, 3}); w.Code != http.StatusOK {
		t.Fatalf("put passengers: status = %d", w.Code)
	}

	create := models.SaveViewRequest{
		Name: "midtown rush",
		Bounds: models.ViewportRequest{
			MinX: -8236000, MinY: 4972000, MaxX: -8230000, MaxY: 4977000,
			Width: 48, Height: 48,
		},
	}
	w := ts.do(t, http.MethodPost, "/api/v1/views", token, create)
	if w.Code != http.StatusOK {
		t.Fatalf("create view: status = %d, body = %s", w.Code, w.Body.String())
	}
	var saved models.SavedView
	decodeData(t, w, &saved)
	if saved.ID == "" || saved.Name != "midtown rush" {
		t.Fatalf("saved = %+v", saved)
	}
	if saved.Params["alpha"].(float64) != 0.3 {
		t.Errorf("saved alpha = %v, want 0.3", saved.Params["alpha"])
	}

	// Listing and fetching need no session.
	w = ts.do(t, http.MethodGet, "/api/v1/views", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list views: status = %d", w.Code)
	}
	var list struct {
		Data  []models.SavedView `json:"data"`
		Count int                `json:"count"`
	}
	decodeData(t, w, &list)
	if list.Count != 1 || len(list.Data) != 1 {
		t.Fatalf("list = %+v", list)
	}

	if w := ts.do(t, http.MethodGet, "/api/v1/views/"+saved.ID, "", nil); w.Code != http.StatusOK {
		t.Errorf("get view: status = %d", w.Code)
	}
	if w := ts.do(t, http.MethodGet, "/api/v1/views/no-such-view", "", nil); w.Code != http.StatusNotFound {
		t.Errorf("get missing view: status = %d, want 404", w.Code)
	}

	// Drift the session, then apply the saved view to restore it. The saved
	// span comes back from persistence as a JSON object and must still land.
	if w := ts.putParam(t, token, "alpha", 0.9); w.Code != http.StatusOK {
		t.Fatalf("put alpha: status = %d", w.Code)
	}
	if w := ts.putParam(t, token, "passengers", []int{0, 10}); w.Code != http.StatusOK {
		t.Fatalf("put passengers: status = %d", w.Code)
	}

	w = ts.do(t, http.MethodPost, "/api/v1/views/"+saved.ID+"/apply", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("apply view: status = %d, body = %s", w.Code, w.Body.String())
	}

	w = ts.do(t, http.MethodGet, "/api/v1/sessions/current/params", token, nil)
	var snap map[string]interface{}
	decodeData(t, w, &snap)
	if snap["alpha"].(float64) != 0.3 {
		t.Errorf("restored alpha = %v, want 0.3", snap["alpha"])
	}
	span, ok := snap["passengers"].(map[string]interface{})
	if !ok || span["lo"].(float64) != 1 || span["hi"].(float64) != 3 {
		t.Errorf("restored passengers = %v, want {lo:1 hi:3}", snap["passengers"])
	}

	if w := ts.do(t, http.MethodDelete, "/api/v1/views/"+saved.ID, "", nil); w.Code != http.StatusOK {
		t.Fatalf("delete view: status = %d", w.Code)
	}
	if w := ts.do(t, http.MethodDelete, "/api/v1/views/"+saved.ID, "", nil); w.Code != http.StatusNotFound {
		t.Errorf("delete again: status = %d, want 404", w.Code)
	}
}

func TestDatasetEndpoints(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodGet, "/api/v1/dataset/summary", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("summary: status = %d, body = %s", w.Code, w.Body.String())
	}
	var sum models.DatasetSummary
	decodeData(t, w, &sum)
	if sum.TripCount != testTripCount {
		t.Errorf("trip_count = %d, want %d", sum.TripCount, testTripCount)
	}
	if sum.AvgFare <= 0 || sum.AvgDistanceKm <= 0 {
		t.Errorf("averages = %+v", sum)
	}
	if sum.FirstPickup > sum.LastPickup {
		t.Errorf("pickup range inverted: %d > %d", sum.FirstPickup, sum.LastPickup)
	}
	if sum.DistanceP50 <= 0 || sum.DistanceP50 > sum.DistanceP99 {
		t.Errorf("distance percentiles = %v %v %v", sum.DistanceP50, sum.DistanceP90, sum.DistanceP99)
	}

	// Dimension defaults to hour.
	w = ts.do(t, http.MethodGet, "/api/v1/dataset/histogram", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("histogram: status = %d", w.Code)
	}
	var hist models.HistogramResponse
	decodeData(t, w, &hist)
	if hist.By != models.HistogramByHour || hist.Total != testTripCount {
		t.Errorf("hour histogram = by %q total %d", hist.By, hist.Total)
	}

	w = ts.do(t, http.MethodGet, "/api/v1/dataset/histogram?by=passengers", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("passenger histogram: status = %d", w.Code)
	}
	decodeData(t, w, &hist)
	if hist.By != models.HistogramByPassengers || hist.Total != testTripCount {
		t.Errorf("passenger histogram = by %q total %d", hist.By, hist.Total)
	}
	for _, b := range hist.Buckets {
		if b.Key < 1 || b.Key > 6 {
			t.Errorf("unexpected passenger bucket %d", b.Key)
		}
	}

	if w := ts.do(t, http.MethodGet, "/api/v1/dataset/histogram?by=fare", "", nil); w.Code != http.StatusBadRequest {
		t.Errorf("unknown dimension: status = %d, want 400", w.Code)
	}
}
