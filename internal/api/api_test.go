package api

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"deepfake_shield/internal/db"
	"deepfake_shield/internal/kv"
	"deepfake_shield/internal/middleware"
	"deepfake_shield/internal/scan"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "api-test-secret"

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01")

func init() {
	gin.SetMode(gin.TestMode)
}

// fixedSource always yields a fake verdict at the bottom of the range.
type fixedSource struct{ f float64 }

func (s fixedSource) Float64() float64 { return s.f }
func (fixedSource) IntN(int) int       { return 0 }

type harness struct {
	router  *gin.Engine
	store   *db.Store
	storage kv.Store
}

type option func(*Deps)

func newHarness(t *testing.T, src scan.Source, opts ...option) *harness {
	t.Helper()
	store := db.New(db.Options{})
	require.NoError(t, store.Open(context.Background()))
	t.Cleanup(func() { _ = store.Close() })

	profile := scan.DefaultProfile()
	for i := range profile.Phases {
		profile.Phases[i].Duration = time.Millisecond
	}
	profile.FrameInterval = time.Millisecond

	storage := kv.NewMemory()
	deps := Deps{
		Store:     store,
		Storage:   storage,
		Registry:  NewScanRegistry(store, storage, profile, scan.NewGenerator(profile, src)),
		Profile:   profile,
		JWTSecret: testSecret,
	}
	for _, o := range opts {
		o(&deps)
	}
	r := gin.New()
	RegisterRoutes(r, deps)
	return &harness{router: r, store: store, storage: storage}
}

func (h *harness) do(method, path, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	return w
}

func (h *harness) upload(t *testing.T, token, name string, data []byte) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/scan", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	return w
}

func (h *harness) login(t *testing.T, username, role string) string {
	t.Helper()
	w := h.do(http.MethodPost, "/session", "", gin.H{"username": username, "role": role})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp LoginResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func (h *harness) waitForState(t *testing.T, token string, want scan.State) map[string]any {
	t.Helper()
	var snap map[string]any
	require.Eventually(t, func() bool {
		w := h.do(http.MethodGet, "/scan", token, nil)
		if w.Code != http.StatusOK {
			return false
		}
		snap = decode(t, w)["scan"].(map[string]any)
		return snap["state"] == string(want)
	}, 5*time.Second, 5*time.Millisecond)
	return snap
}

func TestHealth(t *testing.T) {
	h := newHarness(t, nil)
	assert.Equal(t, http.StatusOK, h.do(http.MethodGet, "/health", "", nil).Code)

	require.NoError(t, h.store.Close())
	assert.Equal(t, http.StatusServiceUnavailable, h.do(http.MethodGet, "/health", "", nil).Code)
}

func TestLogin(t *testing.T) {
	h := newHarness(t, nil)

	token := h.login(t, "admin", "admin")
	me := decode(t, h.do(http.MethodGet, "/me", token, nil))
	assert.Equal(t, true, me["is_admin"])

	w := h.do(http.MethodPost, "/session", "", gin.H{"username": "Grandpa", "role": "player"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"User not found"}`, w.Body.String())

	w = h.do(http.MethodPost, "/session", "", gin.H{"username": "admin", "role": "player"})
	assert.Equal(t, http.StatusNotFound, w.Code, "role must match")

	w = h.do(http.MethodPost, "/session", "", gin.H{"username": "admin", "role": "owner"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLogin_StoreNotOpen(t *testing.T) {
	h := newHarness(t, nil)
	require.NoError(t, h.store.Close())
	w := h.do(http.MethodPost, "/session", "", gin.H{"username": "admin", "role": "admin"})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestLogin_AdminPasscode(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("family-first"), bcrypt.MinCost)
	require.NoError(t, err)
	h := newHarness(t, nil, func(d *Deps) { d.AdminPasscodeHash = string(hash) })

	w := h.do(http.MethodPost, "/session", "", gin.H{"username": "admin", "role": "admin", "passcode": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w = h.do(http.MethodPost, "/session", "", gin.H{"username": "admin", "role": "admin", "passcode": "family-first"})
	assert.Equal(t, http.StatusOK, w.Code)
	h.login(t, "Grandma", "player")
}

func TestLogin_RateLimited(t *testing.T) {
	h := newHarness(t, nil, func(d *Deps) { d.LoginLimiter = middleware.NewIPRateLimiter(0.001, 2) })
	h.login(t, "Grandma", "player")
	h.login(t, "Grandma", "player")
	w := h.do(http.MethodPost, "/session", "", gin.H{"username": "Grandma", "role": "player"})
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestLogout(t *testing.T) {
	h := newHarness(t, nil)
	token := h.login(t, "Grandma", "player")

	assert.Equal(t, http.StatusOK, h.do(http.MethodDelete, "/session", token, nil).Code)
	assert.Equal(t, http.StatusUnauthorized, h.do(http.MethodGet, "/me", token, nil).Code)
}

func TestPlayerViews(t *testing.T) {
	h := newHarness(t, nil)
	token := h.login(t, "Grandma", "player")

	me := decode(t, h.do(http.MethodGet, "/me", token, nil))
	assert.Equal(t, map[string]any{"coins": float64(250), "streak": float64(5)}, me["stats"])
	assert.Equal(t, false, me["is_admin"])

	history := decode(t, h.do(http.MethodGet, "/me/history?filter=fake", token, nil))
	assert.Equal(t, float64(1), history["total"])
	scans := history["scans"].([]any)
	assert.Equal(t, "Face swap artifacts detected", scans[0].(map[string]any)["reason"])
	assert.Equal(t, "1 week ago", scans[0].(map[string]any)["age"])

	all := decode(t, h.do(http.MethodGet, "/me/history", token, nil))
	assert.Equal(t, float64(5), all["total"])
	assert.Equal(t, http.StatusBadRequest, h.do(http.MethodGet, "/me/history?filter=authentic", token, nil).Code)

	profile := decode(t, h.do(http.MethodGet, "/me/profile", token, nil))
	assert.Equal(t, float64(20), profile["fake_ratio"])
	assert.Len(t, profile["unlocked"], 4)
	assert.Len(t, profile["locked"], 2)

	for _, sort := range []string{"coins", "scans"} {
		lb := decode(t, h.do(http.MethodGet, "/leaderboard?sort="+sort, token, nil))
		players := lb["players"].([]any)
		require.Len(t, players, 1)
		assert.Equal(t, "Grandma", players[0].(map[string]any)["username"])
		assert.Equal(t, float64(1), players[0].(map[string]any)["rank"])
	}
	assert.Equal(t, http.StatusBadRequest, h.do(http.MethodGet, "/leaderboard?sort=streak", token, nil).Code)
}

func TestAccessibility(t *testing.T) {
	h := newHarness(t, nil)
	token := h.login(t, "Grandma", "player")

	assert.JSONEq(t, `{"enabled":true}`, h.do(http.MethodGet, "/me/accessibility", token, nil).Body.String())
	assert.JSONEq(t, `{"enabled":false}`, h.do(http.MethodPut, "/me/accessibility", token, nil).Body.String())
	assert.JSONEq(t, `{"enabled":false}`, h.do(http.MethodGet, "/me/accessibility", token, nil).Body.String())
	assert.JSONEq(t, `{"enabled":true}`, h.do(http.MethodPut, "/me/accessibility", token, gin.H{"enabled": true}).Body.String())
	assert.JSONEq(t, `{"enabled":true}`, h.do(http.MethodPut, "/me/accessibility", token, gin.H{"enabled": true}).Body.String())
}

func TestScan_EndToEnd(t *testing.T) {
	h := newHarness(t, fixedSource{f: 0})
	player := h.login(t, "Grandma", "player")
	admin := h.login(t, "admin", "admin")

	overview := decode(t, h.do(http.MethodGet, "/admin/overview", admin, nil))
	assert.Equal(t, false, overview["cached"])
	overview = decode(t, h.do(http.MethodGet, "/admin/overview", admin, nil))
	assert.Equal(t, true, overview["cached"])
	assert.Equal(t, float64(5), overview["overview"].(map[string]any)["total_scans"])

	w := h.upload(t, player, "notes.png", []byte("definitely not an image"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"Please upload an image or video file"}`, w.Body.String())
	assert.Equal(t, "idle", h.waitForState(t, player, scan.StateIdle)["state"])

	w = h.upload(t, player, "holiday.png", pngBytes)
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())

	snap := h.waitForState(t, player, scan.StateResult)
	result := snap["result"].(map[string]any)
	assert.Equal(t, "fake", result["verdict"])
	assert.Equal(t, float64(75), result["confidence"])
	assert.Equal(t, float64(15), result["reward"])
	assert.Equal(t, float64(265), result["coins"])

	assert.Equal(t, http.StatusConflict, h.upload(t, player, "again.png", pngBytes).Code, "reset first")
	assert.Equal(t, http.StatusOK, h.do(http.MethodPost, "/scan/reset", player, nil).Code)

	me := decode(t, h.do(http.MethodGet, "/me", player, nil))
	assert.Equal(t, float64(265), me["stats"].(map[string]any)["coins"])

	require.Eventually(t, func() bool {
		o := decode(t, h.do(http.MethodGet, "/admin/overview", admin, nil))
		return o["cached"] == false && o["overview"].(map[string]any)["total_scans"] == float64(6)
	}, 5*time.Second, 5*time.Millisecond, "completion invalidates the admin cache")

	family := decode(t, h.do(http.MethodGet, "/admin/family", admin, nil))
	assert.Equal(t, float64(1), family["alerts"])

	alerts := decode(t, h.do(http.MethodGet, "/admin/alerts", admin, nil))
	require.Equal(t, float64(1), alerts["total"])
	alertID := alerts["alerts"].([]any)[0].(map[string]any)["id"].(float64)

	path := fmt.Sprintf("/admin/alerts/%d/ack", int(alertID))
	assert.Equal(t, http.StatusOK, h.do(http.MethodPost, path, admin, nil).Code)
	assert.Equal(t, http.StatusOK, h.do(http.MethodPost, path, admin, nil).Code, "idempotent")
	assert.Equal(t, http.StatusNotFound, h.do(http.MethodPost, "/admin/alerts/999/ack", admin, nil).Code)
	assert.Equal(t, http.StatusBadRequest, h.do(http.MethodPost, "/admin/alerts/abc/ack", admin, nil).Code)
	ackAll := decode(t, h.do(http.MethodPost, "/admin/alerts/ack", admin, nil))
	assert.Equal(t, float64(0), ackAll["acknowledged"])

	logs := decode(t, h.do(http.MethodGet, "/admin/family/2/logs", admin, nil))
	assert.Len(t, logs["scans"], 6)
	assert.Equal(t, http.StatusNotFound, h.do(http.MethodGet, "/admin/family/99/logs", admin, nil).Code)
}

func TestScan_CancelAndReset(t *testing.T) {
	h := newHarness(t, nil)
	token := h.login(t, "Grandma", "player")

	assert.Equal(t, http.StatusConflict, h.do(http.MethodDelete, "/scan", token, nil).Code)
	assert.Equal(t, http.StatusOK, h.do(http.MethodPost, "/scan/reset", token, nil).Code, "reset from idle is a no-op")
	assert.Equal(t, http.StatusBadRequest, h.do(http.MethodPost, "/scan", token, nil).Code, "no file")
}

func TestAdminRoutesRejectPlayers(t *testing.T) {
	h := newHarness(t, nil)
	token := h.login(t, "Grandma", "player")
	for _, path := range []string{"/admin/overview", "/admin/family", "/admin/alerts", "/admin/family/2/logs"} {
		assert.Equal(t, http.StatusForbidden, h.do(http.MethodGet, path, token, nil).Code, path)
	}
	assert.Equal(t, http.StatusUnauthorized, h.do(http.MethodGet, "/admin/overview", "", nil).Code)
}

// openStream connects to the scan event stream and consumes the initial snapshot.
func openStream(t *testing.T, ctx context.Context, srv *httptest.Server, token string) (*http.Response, *bufio.Scanner) {
	t.Helper()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/scan/events?token="+token, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/event-stream")

	lines := bufio.NewScanner(resp.Body)
	require.True(t, lines.Scan())
	assert.Equal(t, "event:state", lines.Text(), "initial snapshot")
	return resp, lines
}

func TestScanEvents_Stream(t *testing.T) {
	h := newHarness(t, fixedSource{f: 0.9})
	token := h.login(t, "Grandma", "player")

	srv := httptest.NewServer(h.router)
	defer srv.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, lines := openStream(t, ctx, srv, token)

	w := h.upload(t, token, "clip.png", pngBytes)
	require.Equal(t, http.StatusAccepted, w.Code)

	var kinds []string
	var event, note, counters string
	for (note == "" || counters == "") && lines.Scan() {
		line := lines.Text()
		if name, ok := strings.CutPrefix(line, "event:"); ok {
			event = name
			kinds = append(kinds, name)
		}
		data, ok := strings.CutPrefix(line, "data:")
		switch {
		case !ok:
		case event == "stats":
			counters = data
		case strings.Contains(data, `"notification":{`):
			note = data
		}
	}
	assert.Contains(t, kinds, "progress")
	assert.Contains(t, note, "+10 coins earned!")
	assert.JSONEq(t, `{"stats":{"coins":260,"streak":5}}`, counters)

	me := decode(t, h.do(http.MethodGet, "/me", token, nil))
	assert.Equal(t, map[string]any{"coins": float64(260), "streak": float64(5)}, me["stats"])
}

func TestScanEvents_EndOnLogout(t *testing.T) {
	h := newHarness(t, nil)
	token := h.login(t, "Grandma", "player")

	srv := httptest.NewServer(h.router)
	defer srv.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, lines := openStream(t, ctx, srv, token)

	require.Equal(t, http.StatusOK, h.do(http.MethodDelete, "/session", token, nil).Code)
	for lines.Scan() {
	}
	assert.NoError(t, lines.Err(), "stream closed by the server, not the client timeout")
}

func TestLogin_TrimsUsername(t *testing.T) {
	h := newHarness(t, nil)
	h.login(t, "  admin ", "admin")

	w := h.do(http.MethodPost, "/session", "", gin.H{"username": "   ", "role": "player"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestScanRegistry_DropsAbandonedSessions(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	var registry *scan.Registry
	h := newHarness(t, nil, func(d *Deps) {
		registry = NewScanRegistry(d.Store, d.Storage, d.Profile, scan.NewGenerator(d.Profile, nil),
			scan.WithIdleTimeout(time.Minute), scan.WithClock(func() time.Time { return now }))
		d.Registry = registry
	})

	for i := 0; i < 50; i++ {
		token := h.login(t, "Grandma", "player")
		require.Equal(t, http.StatusOK, h.do(http.MethodGet, "/scan", token, nil).Code)
	}
	require.Equal(t, 50, registry.Len())

	now = now.Add(5 * time.Minute)
	token := h.login(t, "Grandma", "player")
	require.Equal(t, http.StatusOK, h.do(http.MethodGet, "/scan", token, nil).Code)
	assert.Equal(t, 1, registry.Len())
}
