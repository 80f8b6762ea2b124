package device

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Logger defines the logging interface used by the Directory.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Registrar persists a device name. created is false when the device was
// already registered; that is not an error.
type Registrar interface {
	RegisterDevice(ctx context.Context, name string) (created bool, err error)
}

// Publisher announces an ingested device to other services.
type Publisher interface {
	PublishDevice(dev *Device) error
}

// Recorder receives the result of every completed sync.
type Recorder interface {
	RecordSync(result *SyncResult)
}

// SkippedFile is a directory entry that did not yield a device.
type SkippedFile struct {
	Path   string
	Reason error
}

// SyncResult describes one pass over a device directory.
type SyncResult struct {
	// RunID identifies this sync in logs and telemetry.
	RunID string

	// Devices maps hostname to device. When two files share a hostname
	// the later file (in lexical order) wins.
	Devices map[string]*Device

	// Registered counts devices newly written to the store; Existing
	// counts those the store already had.
	Registered int
	Existing   int

	Skipped []SkippedFile

	// Duplicates lists hostnames defined by more than one file. The store
	// keeps the first registration while Devices holds the last file.
	Duplicates []string

	Duration time.Duration
}

// Directory loads device files and registers them with a Registrar.
type Directory struct {
	registrar Registrar
	publisher Publisher
	recorder  Recorder
	logger    Logger
}

// NewDirectory creates a Directory that registers devices with registrar.
func NewDirectory(registrar Registrar) *Directory {
	return &Directory{
		registrar: registrar,
		logger:    noopLogger{},
	}
}

// SetLogger sets the logger for the directory.
func (d *Directory) SetLogger(logger Logger) {
	d.logger = logger
}

// SetPublisher sets an optional publisher called for every ingested device.
func (d *Directory) SetPublisher(p Publisher) {
	d.publisher = p
}

// SetRecorder sets an optional recorder called after every successful sync.
func (d *Directory) SetRecorder(r Recorder) {
	d.recorder = r
}

// Sync reads every entry of dir in lexical order, builds the device map
// and registers each device.
//
// Hidden files, non-regular entries and files missing a required key are
// recorded in SyncResult.Skipped and the scan continues. Any other
// ingestion error, a registrar error, or ctx ending aborts the scan.
func (d *Directory) Sync(ctx context.Context, dir string) (*SyncResult, error) {
	start := time.Now()

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading device directory: %w", err)
	}

	result := &SyncResult{
		RunID:   uuid.NewString(),
		Devices: make(map[string]*Device, len(entries)),
	}

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		path := filepath.Join(dir, entry.Name())
		dev, err := d.load(path, entry)
		if err != nil {
			if IsSkippable(err) {
				d.logger.Debug("skipping device file", "path", path, "reason", err)
				result.Skipped = append(result.Skipped, SkippedFile{Path: path, Reason: err})
				continue
			}
			return nil, err
		}

		if prev, ok := result.Devices[dev.Hostname]; ok {
			d.logger.Warn("duplicate device hostname",
				"hostname", dev.Hostname,
				"first", prev.Source,
				"replaced_by", dev.Source,
			)
			result.Duplicates = append(result.Duplicates, dev.Hostname)
		}
		result.Devices[dev.Hostname] = dev

		created, err := d.registrar.RegisterDevice(ctx, dev.Hostname)
		if err != nil {
			return nil, fmt.Errorf("registering device %s: %w", dev.Hostname, err)
		}
		if created {
			result.Registered++
			d.logger.Info("device registered", "hostname", dev.Hostname)
		} else {
			result.Existing++
		}

		if d.publisher != nil {
			if err := d.publisher.PublishDevice(dev); err != nil {
				d.logger.Warn("publishing device failed", "hostname", dev.Hostname, "error", err)
			}
		}
	}

	result.Duration = time.Since(start)
	d.logger.Info("device directory synced",
		"run_id", result.RunID,
		"dir", dir,
		"devices", len(result.Devices),
		"registered", result.Registered,
		"existing", result.Existing,
		"skipped", len(result.Skipped),
		"duplicates", len(result.Duplicates),
		"duration", result.Duration,
	)

	if d.recorder != nil {
		d.recorder.RecordSync(result)
	}
	return result, nil
}

func (d *Directory) load(path string, entry os.DirEntry) (*Device, error) {
	if strings.HasPrefix(entry.Name(), ".") {
		return nil, fmt.Errorf("%w: %s", ErrHiddenFile, path)
	}
	if !entry.Type().IsRegular() {
		// Symlinks are followed; anything else is skipped.
		if entry.Type()&os.ModeSymlink == 0 {
			return nil, fmt.Errorf("%w: %s", ErrNotRegularFile, path)
		}
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("reading device file: %w", err)
		}
		if !info.Mode().IsRegular() {
			return nil, fmt.Errorf("%w: %s", ErrNotRegularFile, path)
		}
	}
	return LoadFile(path)
}

// LoadDirectory syncs dir into registrar and returns only the device map.
func LoadDirectory(ctx context.Context, dir string, registrar Registrar) (map[string]*Device, error) {
	result, err := NewDirectory(registrar).Sync(ctx, dir)
	if err != nil {
		return nil, err
	}
	return result.Devices, nil
}
