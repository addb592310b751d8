package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/deathmotion/antihealthindicator/internal/bridge"
	"github.com/deathmotion/antihealthindicator/internal/cache"
	"github.com/deathmotion/antihealthindicator/internal/config"
	"github.com/deathmotion/antihealthindicator/internal/database"
	"github.com/deathmotion/antihealthindicator/internal/dispatcher"
	"github.com/deathmotion/antihealthindicator/internal/influx"
	"github.com/deathmotion/antihealthindicator/internal/logging"
	"github.com/deathmotion/antihealthindicator/internal/monitor"
	"github.com/deathmotion/antihealthindicator/internal/notifier"
	intOtel "github.com/deathmotion/antihealthindicator/internal/otel"
	"github.com/deathmotion/antihealthindicator/internal/permission"
	"github.com/deathmotion/antihealthindicator/internal/session"
	"github.com/deathmotion/antihealthindicator/internal/spoofer"
	"github.com/deathmotion/antihealthindicator/internal/tracker"
	"github.com/deathmotion/antihealthindicator/internal/update"
	"github.com/deathmotion/antihealthindicator/internal/worker"
	"github.com/deathmotion/antihealthindicator/pkg/protocol"

	"github.com/google/uuid"
	"github.com/pkg/profile"
	"github.com/rs/zerolog"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// BuildVersion can be set at build time via ldflags
var (
	BuildVersion = "2.1.0"
	BuildDate    = "unknown"
)

const appName = "antihealthindicator"

func main() {
	configDir := flag.String("config", ".", "directory containing "+config.FileName)
	profileMode := flag.String("profile", "", "enable profiling: cpu, mem, block, mutex or goroutine")
	flag.Parse()

	if p := startProfile(*profileMode); p != nil {
		defer p.Stop()
	}

	if err := run(*configDir); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", appName, err)
		os.Exit(1)
	}
}

func startProfile(mode string) interface{ Stop() } {
	opts := []func(*profile.Profile){profile.ProfilePath("."), profile.NoShutdownHook}
	switch mode {
	case "":
		return nil
	case "cpu":
		opts = append(opts, profile.CPUProfile)
	case "mem":
		opts = append(opts, profile.MemProfile)
	case "block":
		opts = append(opts, profile.BlockProfile)
	case "mutex":
		opts = append(opts, profile.MutexProfile)
	case "goroutine":
		opts = append(opts, profile.GoroutineProfile)
	default:
		fmt.Fprintf(os.Stderr, "unknown profile mode %q, profiling disabled\n", mode)
		return nil
	}
	return profile.Start(opts...)
}

func run(configDir string) error {
	started := time.Now()

	slogManager := logging.NewSlogManager()
	slogManager.Setup(logging.Options{Level: "info"})
	logger := slogManager.Logger()

	if err := config.Load(configDir); err != nil {
		logger.Warn("Failed to load config, using defaults!", "error", err)
	} else {
		logger.Info("Loaded config", "dir", configDir)
	}

	logPath := logging.LogFilePath(config.GetString("logsDir"), appName, started)
	logFile, err := logging.OpenLogFile(logPath)
	if err != nil {
		logger.Error("Failed to create/open log file!", "error", err, "path", logPath)
	} else {
		defer logFile.Close()
	}

	otelProvider, err := setupOTel(logFile)
	if err != nil {
		logger.Error("Failed to initialize OTel provider", "error", err)
	}

	var gelfWriter io.Writer
	if gl := config.GetGraylogConfig(); gl.Enabled {
		w, err := logging.NewGELFWriter(gl.Address)
		if err != nil {
			logger.Error("Failed to connect to Graylog", "error", err, "address", gl.Address)
		} else {
			defer w.Close()
			gelfWriter = w
		}
	}

	var otelLogProvider *sdklog.LoggerProvider
	if otelProvider != nil {
		otelLogProvider = otelProvider.LoggerProvider()
	}
	opts := logging.Options{
		Level:    config.GetString("logLevel"),
		Provider: otelLogProvider,
		GELF:     gelfWriter,
	}
	if logFile != nil {
		opts.File = logFile
	}
	slogManager.Setup(opts)
	logger = slogManager.Logger()
	logger.Info("Logging initialized", "path", logPath, "level", slogManager.Level().String(),
		"version", BuildVersion, "buildDate", BuildDate)

	zlog := zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
		With().Timestamp().Str("app", appName).Logger()
	if logFile != nil {
		zlog = zlog.Output(logFile)
	}

	serverCfg := config.GetServerConfig()
	gameVersion, err := protocol.ParseVersion(serverCfg.Version)
	if err != nil {
		return err
	}

	var dispatchLogger dispatcher.Logger = logger
	packetTrace := config.GetBool("debug.packetTrace")
	if packetTrace {
		dispatchLogger = logging.NewDispatcherLogger(logging.NewTraceLogger(traceSink(logFile), slog.LevelDebug))
	}
	d, err := dispatcher.New(dispatchLogger, dispatcher.WithTrace(packetTrace))
	if err != nil {
		return fmt.Errorf("create dispatcher: %w", err)
	}

	workerCfg := config.GetWorkerConfig()
	pool, err := worker.NewPool(worker.Config{Workers: workerCfg.Workers, QueueSize: workerCfg.QueueSize}, logger)
	if err != nil {
		return fmt.Errorf("create worker pool: %w", err)
	}

	checker, store, closeStore, err := setupPermissions(logger, zlog)
	if err != nil {
		return err
	}
	defer closeStore()

	entities := cache.NewEntityCache()
	spoofCfg := config.GetSpoofConfig()
	sp, err := spoofer.New(spoofer.Config{
		AllowBypass:            spoofCfg.AllowBypass,
		IgnoreVehicles:         spoofCfg.IgnoreVehicles,
		IgnoreWolves:           spoofCfg.IgnoreWolves,
		IgnoreTamedWolves:      spoofCfg.IgnoreTamedWolves,
		IgnoreOwnedWolves:      spoofCfg.IgnoreOwnedWolves,
		IgnoreIronGolems:       spoofCfg.IgnoreIronGolems,
		GradualIronGolemHealth: spoofCfg.GradualIronGolemHealth,
		Health:                 spoofCfg.Health,
		AirTicks:               spoofCfg.AirTicks,
		Absorption:             spoofCfg.Absorption,
		XP:                     spoofCfg.XP,
		HealthTextures:         gameVersion.SupportsHealthTextures(),
	}, entities, checker)
	if err != nil {
		return fmt.Errorf("create spoofer: %w", err)
	}

	mounts := notifier.New(entities, pool, sp, logger)
	tr := tracker.New(entities, mounts, tracker.Config{PlayersOnly: spoofCfg.PlayersOnly}, logger)

	// the tracker caches real values before the spoofer masks them
	tr.RegisterHandlers(d)
	sp.RegisterHandlers(d)

	sessions := session.NewRegistry()
	monitorService := monitor.NewService(monitor.Dependencies{
		Entities: entities,
		Sessions: sessions,
		Queue:    pool,
		Version:  BuildVersion,
		Started:  started,
	})

	mux := http.NewServeMux()
	mux.Handle("/ws", bridge.New(bridge.Config{
		Secret:         serverCfg.Secret,
		DefaultVersion: gameVersion,
	}, d, sessions, logger.With("component", "bridge")))
	mux.Handle("/status", monitorService)
	if store != nil {
		permission.NewAdmin(store, serverCfg.Secret, func(id uuid.UUID) (string, bool) {
			viewer, ok := sessions.Get(id)
			if !ok {
				return "", false
			}
			return viewer.Name(), true
		}).Routes(mux)
	}

	srv := &http.Server{
		Addr:              serverCfg.Address,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if influxCfg := config.GetInfluxConfig(); influxCfg.Enabled {
		reporter, err := influx.Connect(ctx, influxCfg, monitorService, zlog)
		if err != nil {
			logger.Error("Failed to initialize InfluxDB reporter", "error", err)
		} else {
			reporter.SetTag("server", serverCfg.Address)
			defer reporter.Close()
			go reporter.Run(ctx)
		}
	}

	if updateCfg := config.GetUpdateConfig(); updateCfg.Enabled {
		go update.New(updateCfg.URL).CheckAndLog(ctx, BuildVersion, logger)
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Listening for viewer connections", "address", srv.Addr, "gameVersion", gameVersion.String(),
			"playersOnly", spoofCfg.PlayersOnly)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		logger.Info("Shutting down", "status", monitorService.Status().String())
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP shutdown failed", "error", err)
	}
	if err := pool.Close(shutdownCtx); err != nil {
		logger.Error("Worker pool shutdown failed", "error", err)
	}
	if err := slogManager.Flush(shutdownCtx); err != nil {
		logger.Error("Log flush failed", "error", err)
	}
	if otelProvider != nil {
		if err := otelProvider.Shutdown(shutdownCtx); err != nil {
			logger.Error("OTel shutdown failed", "error", err)
		}
	}
	return nil
}

func setupOTel(logFile *os.File) (*intOtel.Provider, error) {
	otelCfg := config.GetOTelConfig()
	if !otelCfg.Enabled {
		return nil, nil
	}
	if logFile == nil {
		return nil, errors.New("OTel requires a log file")
	}
	return intOtel.New(intOtel.Config{
		Enabled:        otelCfg.Enabled,
		ServiceName:    otelCfg.ServiceName,
		ServiceVersion: BuildVersion,
		BatchTimeout:   otelCfg.BatchTimeout,
		Writer:         logFile,
		Endpoint:       otelCfg.Endpoint,
		Insecure:       otelCfg.Insecure,
	})
}

// setupPermissions combines the static grants with the database store when
// one is enabled. The store is nil when disabled. The returned func closes
// the store connection.
func setupPermissions(logger *slog.Logger, zlog zerolog.Logger) (permission.Checker, *permission.Store, func(), error) {
	permCfg := config.GetPermissionConfig()

	grants := make(map[uuid.UUID][]string, len(permCfg.Grants))
	for key, names := range permCfg.Grants {
		id, err := uuid.Parse(key)
		if err != nil {
			logger.Warn("Ignoring permission grant with invalid uuid", "uuid", key)
			continue
		}
		grants[id] = names
	}
	static := permission.NewStatic(grants)

	dbCfg := permCfg.Database
	if !dbCfg.Enabled {
		return static, nil, func() {}, nil
	}

	db, err := database.Open(database.Config{
		Driver:   dbCfg.Driver,
		Path:     dbCfg.Path,
		Host:     dbCfg.Host,
		Port:     dbCfg.Port,
		Username: dbCfg.Username,
		Password: dbCfg.Password,
		Database: dbCfg.Database,
	}, zlog)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("open permission database: %w", err)
	}
	closeDB := func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}

	store, err := permission.NewStore(db, permCfg.CacheTTL, logger)
	if err != nil {
		closeDB()
		return nil, nil, nil, err
	}
	logger.Info("Permission store ready", "driver", db.Dialector.Name())
	return permission.Any(static, store), store, closeDB, nil
}

func traceSink(logFile *os.File) io.Writer {
	if logFile != nil {
		return logFile
	}
	return os.Stdout
}
