package monitor

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEntities struct{ n, mounted int }

func (f fakeEntities) Len() int     { return f.n }
func (f fakeEntities) Mounted() int { return f.mounted }

type fakeLen int

func (f fakeLen) Len() int    { return int(f) }
func (f fakeLen) Queued() int { return int(f) }

func newTestService() *Service {
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	s := NewService(Dependencies{
		Entities: fakeEntities{n: 12, mounted: 2},
		Sessions: fakeLen(3),
		Queue:    fakeLen(5),
		Version:  "2.1.0",
		Started:  start,
	})
	s.now = func() time.Time { return start.Add(90 * time.Second) }
	return s
}

func TestStatus(t *testing.T) {
	st := newTestService().Status()

	assert.Equal(t, "2.1.0", st.Version)
	assert.Equal(t, 90*time.Second, st.Uptime)
	assert.Equal(t, 12, st.Entities)
	assert.Equal(t, 2, st.MountedVehicle)
	assert.Equal(t, 3, st.Sessions)
	assert.Equal(t, 5, st.QueuedTasks)
	assert.Positive(t, st.Goroutines)
}

func TestStatus_NilSources(t *testing.T) {
	st := NewService(Dependencies{Version: "dev"}).Status()

	assert.Zero(t, st.Entities)
	assert.Zero(t, st.Sessions)
	assert.Zero(t, st.QueuedTasks)
}

func TestStatus_Lines(t *testing.T) {
	lines := newTestService().Status().Lines()

	require.Len(t, lines, 6)
	assert.Equal(t, "uptime: 1m30s", lines[1])
	assert.Equal(t, "mounted vehicles: 2", lines[3])
}

func TestServeHTTP(t *testing.T) {
	srv := httptest.NewServer(newTestService())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/status")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "2.1.0", body["version"])
	assert.Equal(t, float64(90), body["uptime_seconds"])
	assert.Equal(t, float64(12), body["entities"])
	assert.NotContains(t, body, "Uptime")
}

func TestServeHTTP_MethodNotAllowed(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestService().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/status", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, "GET, HEAD", rec.Header().Get("Allow"))
}
