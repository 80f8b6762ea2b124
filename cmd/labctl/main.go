// labctl synchronises a shared lab's device inventory.
//
// On each run it loads the per-device configuration files, registers every
// device and its reservation row in SQLite while holding the sync lock,
// optionally checks the LAVA server connection, and prints a JSON result
// envelope on stdout. Logs go to stderr.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"
	"time"

	"github.com/nerrad567/labctl/internal/audit"
	"github.com/nerrad567/labctl/internal/device"
	"github.com/nerrad567/labctl/internal/infrastructure/config"
	"github.com/nerrad567/labctl/internal/infrastructure/database"
	"github.com/nerrad567/labctl/internal/infrastructure/influxdb"
	"github.com/nerrad567/labctl/internal/infrastructure/logging"
	"github.com/nerrad567/labctl/internal/infrastructure/mqtt"
	"github.com/nerrad567/labctl/internal/lava"
	"github.com/nerrad567/labctl/internal/lock"
	"github.com/nerrad567/labctl/internal/reservation"
	"github.com/nerrad567/labctl/internal/response"
)

// Version information, set at build time via ldflags:
// go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

const (
	defaultConfigPath = "configs/config.yaml"

	// syncLockName is the lock file, inside locking.dir, held for a sync.
	syncLockName = "sync.lock"
)

// errSyncBusy is returned when another process holds the sync lock.
var errSyncBusy = errors.New("device sync already running, try again later")

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Stdout); err != nil {
		if lava.IsFatal(err) {
			fmt.Fprintf(os.Stderr, "Fatal: %v\n", err)
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		cancel()
		os.Exit(1)
	}
}

// syncSummary is the content of the result envelope.
type syncSummary struct {
	RunID       string   `json:"run_id"`
	Devices     []string `json:"devices"`
	Registered  int      `json:"registered"`
	Existing    int      `json:"existing"`
	Skipped     []string `json:"skipped,omitempty"`
	Duplicates  []string `json:"duplicates,omitempty"`
	DurationMS  int64    `json:"duration_ms"`
	LAVAVersion string   `json:"lava_version,omitempty"`

	PreviousSync *previousSync `json:"previous_sync,omitempty"`
}

// previousSync identifies the last successful sync of the same directory.
type previousSync struct {
	RunID string    `json:"run_id,omitempty"`
	At    time.Time `json:"at"`
}

// run is the application logic, separated from main for testability.
// The result envelope is written to stdout.
func run(ctx context.Context, stdout io.Writer) error {
	log := logging.Default()

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log = logging.New(cfg.Logging, version)
	log.Info("starting labctl",
		"version", version,
		"commit", commit,
		"build_date", date,
		"config", configPath,
	)

	// A bad LAVA configuration is fatal, so check it before touching state.
	var lavaVersion string
	if cfg.LAVA.Server != "" {
		client, version, connectErr := connectLAVA(ctx, cfg, log)
		if connectErr != nil {
			return connectErr
		}
		defer client.Close() //nolint:errcheck // Only idle connections to drop
		lavaVersion = version
		log.Info("LAVA server reachable", "url", client.URL(), "server_version", lavaVersion)
	}

	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()

	store, err := reservation.Initialize(ctx, db)
	if err != nil {
		return fmt.Errorf("initialising reservation store: %w", err)
	}
	log.Info("reservation store ready", "path", db.Path())

	mqttClient := connectMQTT(cfg, log)
	if mqttClient != nil {
		defer func() {
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
	}

	influxClient := connectInfluxDB(cfg, log)
	if influxClient != nil {
		defer func() {
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
	}

	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("health check failed: database: %w", err)
	}
	announcer, telemetry := checkOptional(ctx, log, mqttClient, influxClient)

	locks := lock.NewManager(lock.Options{
		MaxAttempts:   cfg.Locking.MaxAttempts,
		RetryInterval: cfg.LockRetryInterval(),
	})
	locks.SetLogger(log)

	dir := device.NewDirectory(store)
	dir.SetLogger(log)
	if announcer != nil {
		dir.SetPublisher(&mqttDevicePublisher{client: announcer})
	}
	if telemetry != nil {
		dir.SetRecorder(&influxSyncRecorder{client: telemetry})
		locks.SetObserver(&influxLockObserver{client: telemetry})
	}

	syncLock, err := lock.OpenFile(filepath.Join(cfg.Locking.Dir, syncLockName))
	if err != nil {
		return fmt.Errorf("opening sync lock: %w", err)
	}
	defer syncLock.Close() //nolint:errcheck // Closing drops any lock still held

	var result *device.SyncResult
	ran, err := locks.WithLock(ctx, syncLock, 0, func() error {
		var syncErr error
		result, syncErr = dir.Sync(ctx, cfg.Devices.ConfigDir)
		return syncErr
	})
	auditLog := audit.NewSQLiteRepository(db.DB)
	if err != nil {
		recordAudit(ctx, auditLog, log, audit.ActionSyncFail, cfg.Devices.ConfigDir, map[string]any{"error": err.Error()})
		return fmt.Errorf("syncing devices: %w", err)
	}
	if !ran {
		recordAudit(ctx, auditLog, log, audit.ActionSyncBusy, cfg.Devices.ConfigDir, nil)
		if writeErr := writeEnvelope(stdout, response.StatusBusy, errSyncBusy.Error()); writeErr != nil {
			return writeErr
		}
		return errSyncBusy
	}

	previous, err := auditLog.Last(ctx, audit.ActionSync, cfg.Devices.ConfigDir)
	if err != nil {
		log.Warn("failed to read previous sync", "error", err)
	}

	recordAudit(ctx, auditLog, log, audit.ActionSync, cfg.Devices.ConfigDir, map[string]any{
		"run_id":     result.RunID,
		"devices":    len(result.Devices),
		"registered": result.Registered,
		"existing":   result.Existing,
		"skipped":    len(result.Skipped),
		"duplicates": len(result.Duplicates),
	})

	summary := summarise(result, lavaVersion)
	summary.PreviousSync = previousSyncOf(previous)
	return writeEnvelope(stdout, response.StatusOK, summary)
}

// getConfigPath returns LABCTL_CONFIG if set, otherwise the default path.
func getConfigPath() string {
	if path := os.Getenv("LABCTL_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// connectLAVA builds the credential-bearing URL, connects and checks the
// server answers, returning its version. Every failure is a *lava.FatalError.
func connectLAVA(ctx context.Context, cfg *config.Config, log *logging.Logger) (*lava.Client, string, error) {
	rawURL, err := lava.BuildURL(cfg.LAVA.Username, cfg.LAVA.Token, cfg.LAVA.Server)
	if err != nil {
		return nil, "", err
	}

	client, err := lava.Connect(rawURL, lava.Options{
		InsecureSkipVerify: cfg.LAVA.InsecureSkipVerify,
		Timeout:            cfg.LAVATimeout(),
	})
	if err != nil {
		return nil, "", err
	}
	if client.Insecure() {
		log.Warn("TLS certificate verification disabled for LAVA server",
			"url", client.URL(),
			"setting", "lava.insecure_skip_verify",
		)
	}

	version, err := client.HealthCheck(ctx)
	if err != nil {
		client.Close() //nolint:errcheck // Best effort cleanup on error path
		return nil, "", err
	}
	return client, version, nil
}

// connectMQTT connects when enabled. A broker that cannot be reached only
// disables announcements for this run.
func connectMQTT(cfg *config.Config, log *logging.Logger) *mqtt.Client {
	if !cfg.MQTT.Enabled {
		log.Debug("MQTT disabled")
		return nil
	}

	client, err := mqtt.Connect(cfg.MQTT)
	if err != nil {
		log.Warn("MQTT unavailable, device announcements disabled", "error", err)
		return nil
	}
	client.SetLogger(log)
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)
	return client
}

// connectInfluxDB connects when enabled. An unreachable server only
// disables telemetry for this run.
func connectInfluxDB(cfg *config.Config, log *logging.Logger) *influxdb.Client {
	client, err := influxdb.Connect(cfg.InfluxDB)
	if errors.Is(err, influxdb.ErrDisabled) {
		log.Debug("InfluxDB disabled")
		return nil
	}
	if err != nil {
		log.Warn("InfluxDB unavailable, telemetry disabled", "error", err)
		return nil
	}

	client.SetOnError(func(err error) {
		log.Error("InfluxDB write error", "error", err)
	})
	log.Info("InfluxDB connected",
		"url", cfg.InfluxDB.URL,
		"org", cfg.InfluxDB.Org,
		"bucket", cfg.InfluxDB.Bucket,
	)
	return client
}

// checkOptional health-checks the optional clients and returns the ones
// still usable. A failing client is left out for the rest of the run.
func checkOptional(ctx context.Context, log *logging.Logger, mqttClient *mqtt.Client, influxClient *influxdb.Client) (*mqtt.Client, *influxdb.Client) {
	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			log.Warn("MQTT unhealthy, device announcements disabled", "error", err)
			mqttClient = nil
		}
	}
	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			log.Warn("InfluxDB unhealthy, telemetry disabled", "error", err)
			influxClient = nil
		}
	}
	return mqttClient, influxClient
}

// recordAudit writes one audit entry. A failed write is logged, never
// returned, so it cannot change the outcome of the run.
func recordAudit(ctx context.Context, repo audit.Repository, log *logging.Logger, action, dir string, details map[string]any) {
	entry := &audit.Entry{
		Action:     action,
		EntityType: audit.EntityDeviceDirectory,
		EntityID:   dir,
		Source:     "labctl",
		Details:    details,
	}
	if err := repo.Create(context.WithoutCancel(ctx), entry); err != nil {
		log.Warn("failed to record audit entry", "action", action, "error", err)
	}
}

func previousSyncOf(entry *audit.Entry) *previousSync {
	if entry == nil {
		return nil
	}
	runID, _ := entry.Details["run_id"].(string)
	return &previousSync{RunID: runID, At: entry.CreatedAt}
}

func summarise(result *device.SyncResult, lavaVersion string) syncSummary {
	names := make([]string, 0, len(result.Devices))
	for name := range result.Devices {
		names = append(names, name)
	}
	sort.Strings(names)

	var skipped []string
	for _, s := range result.Skipped {
		skipped = append(skipped, filepath.Base(s.Path))
	}

	return syncSummary{
		RunID:       result.RunID,
		Devices:     names,
		Registered:  result.Registered,
		Existing:    result.Existing,
		Skipped:     skipped,
		Duplicates:  result.Duplicates,
		DurationMS:  result.Duration.Milliseconds(),
		LAVAVersion: lavaVersion,
	}
}

func writeEnvelope(w io.Writer, status string, content any) error {
	out, err := response.Marshal(status, content)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w, out); err != nil {
		return fmt.Errorf("writing response: %w", err)
	}
	return nil
}
