package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"gallery3d/internal/api"
	"gallery3d/internal/geometry/vector"
	"gallery3d/internal/layout"
	"gallery3d/internal/nav"
	"gallery3d/internal/scene"
	"gallery3d/internal/sim"
)

type fixture struct {
	eng *sim.Engine
	ctx context.Context
	srv *api.Server
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	// debug output from connection goroutines may outlive the test
	logger := zaptest.NewLogger(t, zaptest.Level(zap.InfoLevel))

	n := nav.DefaultConfig()
	n.SkipIntro = true
	eng := sim.New(sim.Config{Manual: true, Standoff: 0, Nav: n}, logger)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- eng.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		require.NoError(t, <-errCh)
	})

	srv := api.NewServer(eng, api.Options{
		Layout:   layout.Request{RadiusMin: 30, RadiusMax: 120, MinDistance: 12, HeightRange: 100},
		Seed:     7,
		Adjuster: &scene.Chain{Adjusters: []scene.Adjuster{scene.DefaultHeightClamp()}},
	}, logger)
	return &fixture{eng: eng, ctx: ctx, srv: srv}
}

func (f *fixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.srv.Handler().ServeHTTP(rec, req)
	return rec
}

type layoutResponse struct {
	Placements []scene.Placement `json:"placements"`
	Unbound    []scene.Item      `json:"unbound"`
	Unplaced   int               `json:"unplaced"`
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok\n", rec.Body.String())
}

func TestLayoutSelectAndArrive(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/layout", map[string]any{
		"items": []scene.Item{{ID: "a"}, {ID: "b"}, {ID: "c"}},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp layoutResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Placements, 3)
	assert.Zero(t, resp.Unplaced)
	assert.Equal(t, "a", resp.Placements[0].Item.ID)

	rec = f.do(t, http.MethodGet, "/placements", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var ps []scene.Placement
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ps))
	assert.Equal(t, resp.Placements, ps)

	rec = f.do(t, http.MethodPost, "/command/select", map[string]any{"itemId": "b"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	st, err := f.eng.Advance(f.ctx, 400)
	require.NoError(t, err)
	assert.Equal(t, "b", st.OpenItem)
	assert.InDelta(t, 0, st.Position.Distance(ps[1].Position), 1e-9)

	rec = f.do(t, http.MethodPost, "/command/dismiss", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	st, err = f.eng.Advance(f.ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, st.OpenItem)
}

func TestLayoutDeterministicForSeed(t *testing.T) {
	f := newFixture(t)
	body := map[string]any{"items": make([]scene.Item, 5), "seed": 123}

	var first, second layoutResponse
	rec := f.do(t, http.MethodPost, "/layout", body)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &first))

	rec = f.do(t, http.MethodPost, "/layout", body)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &second))

	require.Len(t, first.Placements, 5)
	for i := range first.Placements {
		assert.Equal(t, first.Placements[i].Generated, second.Placements[i].Generated)
	}
}

func TestLayoutPartialReportsUnbound(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodPost, "/layout", map[string]any{
		"items":   []scene.Item{{ID: "a"}, {ID: "b"}, {ID: "c"}},
		"request": layout.Request{ItemCount: 3, RadiusMin: 1, RadiusMax: 2, MinDistance: 100, HeightRange: 1},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp layoutResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Placements, 1)
	assert.Equal(t, 2, resp.Unplaced)
	assert.Len(t, resp.Unbound, 2)
}

func TestLayoutInvalidRequest(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodPost, "/layout", map[string]any{
		"items":   []scene.Item{{ID: "a"}},
		"request": layout.Request{ItemCount: 1, RadiusMin: 10, RadiusMax: 5, MinDistance: 1, HeightRange: 1},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "radiusMax")
}

func TestLayoutRejectsCountBeyondItems(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodPost, "/layout", map[string]any{
		"items":   []scene.Item{{ID: "a"}},
		"request": layout.Request{ItemCount: 1 << 45, RadiusMin: 10, RadiusMax: 100, MinDistance: 1000, HeightRange: 10},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "itemCount")
}

func TestKeyCommand(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/command/key", map[string]any{"key": "ArrowUp", "down": true})
	require.Equal(t, http.StatusOK, rec.Code)
	st, err := f.eng.Advance(f.ctx, 2)
	require.NoError(t, err)
	assert.InDelta(t, 19.0, st.Position.Z, 1e-9)

	rec = f.do(t, http.MethodPost, "/command/key", map[string]any{"key": "jump", "down": true})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPost, "/command/key", map[string]any{"down": true})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSelectUnknownItem(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodPost, "/command/select", map[string]any{"itemId": "ghost"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodPost, "/command/select", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStateAndReset(t *testing.T) {
	f := newFixture(t)

	goal := vector.NewVec3(0, 0, 25)
	f.do(t, http.MethodPost, "/command/select", map[string]any{"itemId": "x", "position": goal})
	_, err := f.eng.Advance(f.ctx, 10)
	require.NoError(t, err)

	rec := f.do(t, http.MethodGet, "/state", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var st map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.Equal(t, "free-roam", st["mode"])
	assert.Equal(t, "x", st["openItem"])

	rec = f.do(t, http.MethodPost, "/command/reset", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = f.do(t, http.MethodGet, "/state", nil)
	var after map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &after))
	assert.NotContains(t, after, "openItem")
	assert.Equal(t, 0.0, after["tick"])
}

func TestWebsocketStreamsAndAcceptsInput(t *testing.T) {
	f := newFixture(t)
	ts := httptest.NewServer(f.srv.Handler())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	var st sim.CameraState
	require.NoError(t, conn.ReadJSON(&st))
	assert.Equal(t, f.eng.Session(), st.Session)

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "key", "key": "forward", "down": true}))

	require.Eventually(t, func() bool {
		s, err := f.eng.Advance(f.ctx, 0)
		return err == nil && s.Intent.Forward
	}, 2*time.Second, 10*time.Millisecond)

	_, err = f.eng.Advance(f.ctx, 1)
	require.NoError(t, err)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	for {
		require.NoError(t, conn.ReadJSON(&st))
		if st.Tick == 1 {
			break
		}
	}
	assert.InDelta(t, 19.5, st.Position.Z, 1e-9)
}
