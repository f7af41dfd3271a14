// graylight - composite light bridge
//
// graylight exposes virtual lights that stand for groups of physical
// lights. Commands sent to a virtual light are fanned out to its children,
// batched per multi-channel endpoint, and its state is aggregated back from
// theirs. Children may be native multi-channel endpoints, zigbee2mqtt
// devices, or other virtual lights.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/nerrad567/graylight/internal/api"
	"github.com/nerrad567/graylight/internal/driver"
	"github.com/nerrad567/graylight/internal/endpoint"
	"github.com/nerrad567/graylight/internal/infrastructure/config"
	"github.com/nerrad567/graylight/internal/infrastructure/database"
	"github.com/nerrad567/graylight/internal/infrastructure/influxdb"
	"github.com/nerrad567/graylight/internal/infrastructure/logging"
	"github.com/nerrad567/graylight/internal/infrastructure/mqtt"
	"github.com/nerrad567/graylight/internal/light"
	"github.com/nerrad567/graylight/internal/virtual"
	"github.com/nerrad567/graylight/migrations"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

// historyPruneInterval is how often expired state history is deleted.
const historyPruneInterval = time.Hour

func main() {
	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error { //nolint:gocognit,gocyclo // startup sequence: each step wires one component
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting graylight",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open database
	db, err := database.Open(ctx, database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	if migrateErr := db.Migrate(ctx, migrations.FS); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	history := light.NewSQLiteHistoryRepository(db.DB)
	if cfg.Database.HistoryRetentionDays > 0 {
		go pruneHistoryLoop(ctx, history, cfg.Database.HistoryRetention(), log)
	}

	// Load lights
	defs, err := light.LoadFile(cfg.Lights.File)
	if err != nil {
		return fmt.Errorf("loading lights: %w", err)
	}
	lights := light.NewRegistry()
	lights.SetLogger(log.Component("lights"))
	lights.Load(defs)

	// Metrics
	metricsReg := prometheus.NewRegistry()
	metricsReg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	endpoints := endpoint.NewClient(cfg.Virtual.EndpointTimeout(),
		endpoint.WithMetrics(endpoint.NewMetrics(metricsReg)),
	)

	drivers := driver.NewRegistry()
	drivers.Register(light.ProtocolMemory, driver.MemoryDriver{})
	drivers.Register(light.ProtocolNativeMulti, driver.NewNativeMultiDriver(endpoints))

	health := map[string]api.HealthChecker{"database": db}

	// Connect to MQTT broker (optional)
	if cfg.MQTT.Enabled {
		mqttClient, mqttErr := connectMQTT(ctx, cfg, lights, drivers, log)
		if mqttErr != nil {
			return mqttErr
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		health["mqtt"] = mqttClient
	} else {
		log.Info("MQTT disabled")
	}

	// Connect to InfluxDB (optional)
	var telemetry virtual.TelemetryWriter
	if cfg.InfluxDB.Enabled {
		influxClient, influxErr := influxdb.Connect(ctx, cfg.InfluxDB)
		if influxErr != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", influxErr)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		telemetry = influxClient
		health["influxdb"] = influxClient
	} else {
		log.Info("InfluxDB disabled")
	}

	// Virtual light core
	virtualLog := log.Component("virtual")
	recorder := virtual.NewHistoryRecorder(history, telemetry, virtualLog)
	drivers.SetAdvertiser(recorder.Advertise)

	vcfg := virtual.Config{
		MaxConcurrency: cfg.Virtual.MaxConcurrency,
		MaxDepth:       cfg.Virtual.MaxDepth,
	}
	vmetrics := virtual.NewMetrics(metricsReg)

	forwarder := virtual.NewForwarder(lights, drivers, endpoints, vcfg, virtualLog)
	forwarder.SetMetrics(vmetrics)
	forwarder.SetRecorder(recorder)

	aggregator := virtual.NewAggregator(lights, drivers, endpoints, vcfg, virtualLog)
	aggregator.SetMetrics(vmetrics)
	aggregator.SetRecorder(recorder)

	drivers.Register(light.ProtocolVirtual, virtual.NewDriver(forwarder, aggregator))
	log.Info("lights loaded",
		"lights", lights.Len(),
		"protocols", drivers.Protocols(),
	)

	resolveAll(ctx, lights, aggregator, log)

	// Start API server
	server, err := api.New(api.Deps{
		Config:     cfg.API,
		Logger:     log,
		Lights:     lights,
		Drivers:    drivers,
		Forwarder:  forwarder,
		Aggregator: aggregator,
		History:    history,
		Health:     health,
		Gatherer:   metricsReg,
		Version:    version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	log.Info("initialisation complete, waiting for shutdown signal")

	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls run in reverse order:
	// 1. API server
	// 2. InfluxDB (if enabled)
	// 3. MQTT (if enabled)
	// 4. Database

	log.Info("graylight stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses GRAYLIGHT_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("GRAYLIGHT_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// connectMQTT connects to the broker and registers the zigbee2mqtt driver.
func connectMQTT(ctx context.Context, cfg *config.Config, lights *light.Registry, drivers *driver.Registry, log *logging.Logger) (*mqtt.Client, error) {
	client, err := mqtt.Connect(ctx, cfg.MQTT)
	if err != nil {
		return nil, fmt.Errorf("connecting to MQTT: %w", err)
	}
	client.SetLogger(log.Component("mqtt"))
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)

	z2m := driver.NewMQTTDriver(client, mqtt.Topics{Base: cfg.MQTT.BaseTopic}, lights)
	z2m.SetLogger(log.Component("zigbee2mqtt"))
	if err := z2m.Start(ctx, client); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("starting zigbee2mqtt driver: %w", err)
	}
	drivers.Register(light.ProtocolMQTT, z2m)
	return client, nil
}

// Resolver is the part of the aggregator resolveAll needs.
type Resolver interface {
	Resolve(ctx context.Context, id string) virtual.Result
}

// resolveAll refreshes every virtual light once so their cached state is
// meaningful before the first request.
func resolveAll(ctx context.Context, lights *light.Registry, agg Resolver, log *logging.Logger) {
	resolved := 0
	for _, l := range lights.List() {
		if !l.IsVirtual() {
			continue
		}
		res := agg.Resolve(ctx, l.ID)
		if res.Err != nil {
			log.Warn("initial resolve failed", "light_id", l.ID, "error", res.Err)
			continue
		}
		resolved++
	}
	log.Info("virtual lights resolved", "count", resolved)
}

// HistoryPruner deletes history older than a cutoff.
type HistoryPruner interface {
	Prune(ctx context.Context, olderThan time.Duration) (int64, error)
}

// pruneHistoryLoop deletes expired history now and then every
// historyPruneInterval until ctx is cancelled.
func pruneHistoryLoop(ctx context.Context, p HistoryPruner, retention time.Duration, log *logging.Logger) {
	ticker := time.NewTicker(historyPruneInterval)
	defer ticker.Stop()

	for {
		n, err := p.Prune(ctx, retention)
		switch {
		case err != nil:
			log.Warn("history prune failed", "error", err)
		case n > 0:
			log.Info("history pruned", "rows", n)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
