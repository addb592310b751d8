package influx

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/deathmotion/antihealthindicator/internal/config"
	"github.com/deathmotion/antihealthindicator/internal/monitor"
	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/rs/zerolog"
)

// Measurement is the measurement name of status points.
const Measurement = "ahi_status"

// PointWriter accepts points for asynchronous delivery.
type PointWriter interface {
	WritePoint(point *influxdb2_write.Point)
	Flush()
}

// StatusSource produces status snapshots.
type StatusSource interface {
	Status() monitor.Status
}

// Manager handles the InfluxDB connection and periodic status writes.
type Manager struct {
	client   influxdb2.Client
	writer   PointWriter
	source   StatusSource
	interval time.Duration
	tags     map[string]string
	logger   zerolog.Logger
}

// Connect establishes a connection to InfluxDB and creates the bucket writer.
func Connect(ctx context.Context, cfg config.InfluxConfig, source StatusSource, log zerolog.Logger) (*Manager, error) {
	if !cfg.Enabled {
		return nil, errors.New("influx.enabled is false")
	}

	client := influxdb2.NewClientWithOptions(
		cfg.URL(),
		cfg.Token,
		influxdb2.DefaultOptions().
			SetBatchSize(50).
			SetFlushInterval(1000),
	)

	running, err := client.Ping(ctx)
	if err != nil || !running {
		client.Close()
		if err == nil {
			err = errors.New("server not ready")
		}
		return nil, fmt.Errorf("influxdb ping %s: %w", cfg.URL(), err)
	}

	writeAPI := client.WriteAPI(cfg.Org, cfg.Bucket)
	go func() {
		for writeErr := range writeAPI.Errors() {
			log.Error().Err(writeErr).Str("bucket", cfg.Bucket).
				Msg("Error sending data to InfluxDB")
		}
	}()

	m := NewManager(writeAPI, source, cfg.Interval, log)
	m.client = client
	log.Info().Str("url", cfg.URL()).Str("bucket", cfg.Bucket).Msg("InfluxDB client initialized")
	return m, nil
}

// NewManager creates a manager writing to an existing writer.
func NewManager(w PointWriter, source StatusSource, interval time.Duration, log zerolog.Logger) *Manager {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Manager{
		writer:   w,
		source:   source,
		interval: interval,
		tags:     map[string]string{},
		logger:   log,
	}
}

// SetTag adds a tag written on every status point.
func (m *Manager) SetTag(key, value string) {
	m.tags[key] = value
}

// Run writes a status point every interval until ctx is cancelled.
func (m *Manager) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.logger.Debug().Dur("interval", m.interval).Msg("Starting status reporter")
	for {
		select {
		case <-ctx.Done():
			m.writer.Flush()
			return
		case now := <-ticker.C:
			m.Report(now)
		}
	}
}

// Report writes one status point stamped with t.
func (m *Manager) Report(t time.Time) {
	m.writer.WritePoint(StatusPoint(m.source.Status(), m.tags, t))
}

// Close flushes pending points and closes the client.
func (m *Manager) Close() {
	m.writer.Flush()
	if m.client != nil {
		m.client.Close()
	}
}

// StatusPoint converts a snapshot to a point.
func StatusPoint(st monitor.Status, tags map[string]string, t time.Time) *influxdb2_write.Point {
	point := influxdb2_write.NewPointWithMeasurement(Measurement).
		AddTag("version", st.Version).
		AddField("entities", st.Entities).
		AddField("mounted_vehicles", st.MountedVehicle).
		AddField("sessions", st.Sessions).
		AddField("queued_tasks", st.QueuedTasks).
		AddField("goroutines", st.Goroutines).
		AddField("heap_alloc_bytes", st.HeapAllocBytes).
		AddField("uptime_seconds", st.UptimeSeconds).
		SetTime(t)
	for k, v := range tags {
		point.AddTag(k, v)
	}
	return point
}
