package monitor

import (
	"encoding/json"
	"fmt"
	"net/http"
	"runtime"
	"strings"
	"time"
)

// EntitySource reports cache occupancy.
type EntitySource interface {
	Len() int
	Mounted() int
}

// SessionSource reports connected viewer sessions.
type SessionSource interface {
	Len() int
}

// QueueSource reports pending background tasks.
type QueueSource interface {
	Queued() int
}

// Dependencies holds all dependencies for the monitor service
type Dependencies struct {
	Entities EntitySource
	Sessions SessionSource
	Queue    QueueSource
	Version  string
	Started  time.Time
}

// Status is a point-in-time snapshot of the interceptor.
type Status struct {
	Version        string        `json:"version"`
	Uptime         time.Duration `json:"-"`
	UptimeSeconds  float64       `json:"uptime_seconds"`
	Entities       int           `json:"entities"`
	MountedVehicle int           `json:"mounted_vehicles"`
	Sessions       int           `json:"sessions"`
	QueuedTasks    int           `json:"queued_tasks"`
	Goroutines     int           `json:"goroutines"`
	HeapAllocBytes uint64        `json:"heap_alloc_bytes"`
}

// Service serves status snapshots.
type Service struct {
	deps Dependencies
	now  func() time.Time
}

// NewService creates a new monitor service
func NewService(deps Dependencies) *Service {
	if deps.Started.IsZero() {
		deps.Started = time.Now()
	}
	return &Service{deps: deps, now: time.Now}
}

// Status returns the current program status. Nil sources report zero.
func (s *Service) Status() Status {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	uptime := s.now().Sub(s.deps.Started)
	st := Status{
		Version:        s.deps.Version,
		Uptime:         uptime,
		UptimeSeconds:  uptime.Seconds(),
		Goroutines:     runtime.NumGoroutine(),
		HeapAllocBytes: mem.HeapAlloc,
	}
	if s.deps.Entities != nil {
		st.Entities = s.deps.Entities.Len()
		st.MountedVehicle = s.deps.Entities.Mounted()
	}
	if s.deps.Sessions != nil {
		st.Sessions = s.deps.Sessions.Len()
	}
	if s.deps.Queue != nil {
		st.QueuedTasks = s.deps.Queue.Queued()
	}
	return st
}

// Lines renders the status the way it is written to the log.
func (st Status) Lines() []string {
	return []string{
		fmt.Sprintf("version: %s", st.Version),
		fmt.Sprintf("uptime: %s", st.Uptime.Truncate(time.Second)),
		fmt.Sprintf("entities: %d", st.Entities),
		fmt.Sprintf("mounted vehicles: %d", st.MountedVehicle),
		fmt.Sprintf("sessions: %d", st.Sessions),
		fmt.Sprintf("queued tasks: %d", st.QueuedTasks),
	}
}

func (st Status) String() string {
	return strings.Join(st.Lines(), ", ")
}

// ServeHTTP writes the current status as JSON.
func (s *Service) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if r.Method == http.MethodHead {
		return
	}
	if err := json.NewEncoder(w).Encode(s.Status()); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
