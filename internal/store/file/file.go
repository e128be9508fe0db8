// Package file implements the snapshot store on a single JSON file.
//
// Writers are serialized by a process mutex plus a cross-process flock on
// a sidecar lock file. Saves go through write-to-temp-then-rename so a
// reader never observes a half-written snapshot, and the previous good
// snapshot is kept as a .bak for corruption recovery.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"github.com/saturnino-fabrica-de-software/presenca/internal/domain"
	"github.com/saturnino-fabrica-de-software/presenca/internal/store"
)

// SchemaVersion is the current on-disk snapshot schema.
const SchemaVersion = 1

// ErrCorruptSnapshot marks a snapshot payload that could not be decoded.
var ErrCorruptSnapshot = errors.New("corrupt snapshot")

// Store is the file-backed snapshot store.
type Store struct {
	path   string
	lock   *flock.Flock
	logger *slog.Logger
	mu     sync.Mutex
}

var _ store.Store = (*Store)(nil)

// New creates a store over the given snapshot path. The file does not
// need to exist yet.
func New(path string, logger *slog.Logger) *Store {
	return &Store{
		path:   path,
		lock:   flock.New(path + ".lock"),
		logger: logger,
	}
}

// envelope is the versioned on-disk form of a snapshot.
type envelope struct {
	SchemaVersion int               `json:"schema_version"`
	Users         []domain.Identity `json:"users"`
	Attendance    domain.Attendance `json:"attendance"`
}

// legacyEnvelope is the unversioned pre-v1 layout, where descriptors were
// sometimes stored as a JSON-encoded string instead of nested arrays.
type legacyEnvelope struct {
	Users []struct {
		ID           string          `json:"id"`
		Name         string          `json:"name"`
		Descriptors  json.RawMessage `json:"descriptors"`
		RegisteredAt time.Time       `json:"registration_date"`
	} `json:"users"`
	Attendance domain.Attendance `json:"attendance"`
}

// Load implements store.Store.
func (s *Store) Load(ctx context.Context) (*domain.Snapshot, error) {
	if err := s.lock.RLock(); err != nil {
		return nil, fmt.Errorf("acquire read lock: %w", err)
	}
	defer func() {
		_ = s.lock.Unlock()
	}()

	return s.loadLocked(), nil
}

// loadLocked reads the snapshot assuming the file lock is held. Corruption
// is recovered, never surfaced: the bad file is quarantined, the read is
// retried from the .bak last-known-good, and only when that fails too does
// an empty snapshot come back.
func (s *Store) loadLocked() *domain.Snapshot {
	snap, err := readSnapshot(s.path)
	if err == nil {
		return snap
	}
	if errors.Is(err, os.ErrNotExist) {
		// First boot may still have a backup from an interrupted save.
		if snap, bakErr := readSnapshot(s.backupPath()); bakErr == nil {
			return snap
		}
		return domain.NewSnapshot()
	}

	quarantined := s.quarantine()
	s.logger.Error("snapshot unreadable, quarantined",
		slog.String("path", s.path),
		slog.String("quarantine", quarantined),
		slog.Any("error", err),
	)

	snap, bakErr := readSnapshot(s.backupPath())
	if bakErr != nil {
		s.logger.Error("backup snapshot unusable, starting empty",
			slog.String("path", s.backupPath()),
			slog.Any("error", bakErr),
		)
		return domain.NewSnapshot()
	}

	s.logger.Warn("serving from backup snapshot", slog.String("path", s.backupPath()))
	return snap
}

// Update implements store.Store.
func (s *Store) Update(ctx context.Context, fn store.UpdateFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.lock.Lock(); err != nil {
		return fmt.Errorf("acquire write lock: %w", err)
	}
	defer func() {
		_ = s.lock.Unlock()
	}()

	snap := s.loadLocked()

	changed, err := fn(snap)
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}

	return s.saveLocked(snap)
}

// saveLocked writes the snapshot atomically: marshal to a temp file in the
// same directory, fsync, then rename over the live file. The previous live
// file becomes the .bak last-known-good.
func (s *Store) saveLocked(snap *domain.Snapshot) error {
	env := envelope{
		SchemaVersion: SchemaVersion,
		Users:         snap.Users,
		Attendance:    snap.Attendance,
	}
	if env.Users == nil {
		env.Users = []domain.Identity{}
	}
	if env.Attendance == nil {
		env.Attendance = domain.Attendance{}
	}

	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write temp snapshot: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("sync temp snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close temp snapshot: %w", err)
	}

	// Keep the outgoing live file as last-known-good. If the process dies
	// between the two renames, Load recovers from the backup.
	if _, err := os.Stat(s.path); err == nil {
		if err := os.Rename(s.path, s.backupPath()); err != nil {
			_ = os.Remove(tmpPath)
			return fmt.Errorf("rotate backup snapshot: %w", err)
		}
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("replace snapshot: %w", err)
	}

	return nil
}

func (s *Store) backupPath() string {
	return s.path + ".bak"
}

// quarantine moves the corrupt snapshot aside for operator inspection and
// returns the new name, or empty when the move itself failed.
func (s *Store) quarantine() string {
	dst := fmt.Sprintf("%s.corrupt-%s", s.path, time.Now().Format("20060102T150405"))
	if err := os.Rename(s.path, dst); err != nil {
		return ""
	}
	return dst
}

// readSnapshot decodes one snapshot file, migrating legacy unversioned
// payloads. Any undecodable or malformed content maps to ErrCorruptSnapshot.
func readSnapshot(path string) (*domain.Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var probe struct {
		SchemaVersion *int `json:"schema_version"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
	}

	if probe.SchemaVersion == nil {
		return readLegacy(data)
	}

	switch *probe.SchemaVersion {
	case SchemaVersion:
		var env envelope
		if err := json.Unmarshal(data, &env); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
		}
		snap := &domain.Snapshot{Users: env.Users, Attendance: env.Attendance}
		normalize(snap)
		if err := validate(snap); err != nil {
			return nil, err
		}
		return snap, nil
	default:
		return nil, fmt.Errorf("%w: unknown schema_version %d", ErrCorruptSnapshot, *probe.SchemaVersion)
	}
}

// readLegacy performs the one-way migration from the unversioned layout.
// Descriptors stored as encoded text are decoded; the next save rewrites
// the file in the v1 schema.
func readLegacy(data []byte) (*domain.Snapshot, error) {
	var legacy legacyEnvelope
	if err := json.Unmarshal(data, &legacy); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
	}

	snap := domain.NewSnapshot()
	for _, u := range legacy.Users {
		descriptors, err := decodeLegacyDescriptors(u.Descriptors)
		if err != nil {
			return nil, err
		}
		snap.Users = append(snap.Users, domain.Identity{
			ID:           u.ID,
			Name:         u.Name,
			Descriptors:  descriptors,
			RegisteredAt: u.RegisteredAt,
		})
	}
	if legacy.Attendance != nil {
		snap.Attendance = legacy.Attendance
	}
	normalize(snap)
	if err := validate(snap); err != nil {
		return nil, err
	}
	return snap, nil
}

func decodeLegacyDescriptors(raw json.RawMessage) ([]domain.Descriptor, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: user without descriptors", ErrCorruptSnapshot)
	}

	var descriptors []domain.Descriptor
	if err := json.Unmarshal(raw, &descriptors); err == nil {
		return descriptors, nil
	}

	var encoded string
	if err := json.Unmarshal(raw, &encoded); err != nil {
		return nil, fmt.Errorf("%w: unexpected descriptors shape", ErrCorruptSnapshot)
	}
	if err := json.Unmarshal([]byte(encoded), &descriptors); err != nil {
		return nil, fmt.Errorf("%w: encoded descriptors: %v", ErrCorruptSnapshot, err)
	}
	return descriptors, nil
}

func normalize(snap *domain.Snapshot) {
	if snap.Users == nil {
		snap.Users = []domain.Identity{}
	}
	if snap.Attendance == nil {
		snap.Attendance = domain.Attendance{}
	}
}

// validate rejects structurally decoded snapshots that violate the data
// model, so they go through the same quarantine path as raw corruption.
func validate(snap *domain.Snapshot) error {
	seen := make(map[string]struct{}, len(snap.Users))
	for _, u := range snap.Users {
		if u.ID == "" {
			return fmt.Errorf("%w: user with empty id", ErrCorruptSnapshot)
		}
		if _, dup := seen[u.ID]; dup {
			return fmt.Errorf("%w: duplicate user id %q", ErrCorruptSnapshot, u.ID)
		}
		seen[u.ID] = struct{}{}
		if len(u.Descriptors) == 0 {
			return fmt.Errorf("%w: user %q without descriptors", ErrCorruptSnapshot, u.ID)
		}
		for _, d := range u.Descriptors {
			if !d.Valid() {
				return fmt.Errorf("%w: user %q descriptor of length %d", ErrCorruptSnapshot, u.ID, len(d))
			}
		}
	}
	return nil
}
