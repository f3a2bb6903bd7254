// Package store provides a thin bbolt wrapper for emissions' local data store.
//
// Only user choices are persisted. Datasets and aggregates are always
// recomputed from the source; the store never caches them.
//
// Buckets:
//
//	presets  named chart selections, keyed by preset name
//	state    the web UI's last selection per chart variant
//	_meta    schema version, created_at
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/derickschaefer/emissions/internal/model"
)

// Current schema version. Bump when bucket layout or key format changes.
const schemaVersion = 1

// Bucket name constants.
var (
	bucketPresets  = []byte("presets")
	bucketState    = []byte("state")
	bucketInternal = []byte("_meta")
)

// AllBuckets lists every top-level bucket for stats and clear operations.
var AllBuckets = []string{"presets", "state"}

var (
	// ErrPresetNotFound is returned when a named preset does not exist.
	ErrPresetNotFound = errors.New("preset not found")
	// ErrInvalidName is returned for preset names that cannot be stored.
	ErrInvalidName = errors.New("invalid preset name")
	// ErrUnknownBucket is returned by ClearBucket for names not in AllBuckets.
	ErrUnknownBucket = errors.New("unknown bucket")
)

// MaxNameLen bounds preset names.
const MaxNameLen = 64

// Store wraps a bbolt database.
type Store struct {
	db *bolt.DB
}

// Open opens (or creates) the bbolt database at path.
// Parent directories are created automatically.
// Runs schema migrations on every open.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("creating db directory: %w", err)
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening db %s: %w", path, err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migration: %w", err)
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the filesystem path of the open database.
func (s *Store) Path() string {
	return s.db.Path()
}

// ─── Migrations ───────────────────────────────────────────────────────────────

// migrate ensures all buckets exist and schema is current.
func (s *Store) migrate() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{bucketPresets, bucketState, bucketInternal} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("creating bucket %s: %w", name, err)
			}
		}

		meta := tx.Bucket(bucketInternal)
		if meta.Get([]byte("schema_version")) == nil {
			if err := meta.Put([]byte("schema_version"), []byte(fmt.Sprintf("%d", schemaVersion))); err != nil {
				return err
			}
			if err := meta.Put([]byte("created_at"), []byte(time.Now().UTC().Format(time.RFC3339))); err != nil {
				return err
			}
		}
		return nil
	})
}

// ─── Presets ──────────────────────────────────────────────────────────────────

// ValidateName checks that name can be used as a preset key.
func ValidateName(name string) error {
	switch {
	case strings.TrimSpace(name) == "":
		return fmt.Errorf("%w: name is empty", ErrInvalidName)
	case len(name) > MaxNameLen:
		return fmt.Errorf("%w: %q is longer than %d bytes", ErrInvalidName, name, MaxNameLen)
	case strings.ContainsAny(name, "\n\r\t"):
		return fmt.Errorf("%w: %q contains control characters", ErrInvalidName, name)
	}
	return nil
}

// PutPreset saves p under p.Name, replacing any existing preset of that
// name. SavedAt is stamped when zero.
func (s *Store) PutPreset(p model.Preset) error {
	if err := ValidateName(p.Name); err != nil {
		return err
	}
	if p.SavedAt.IsZero() {
		p.SavedAt = time.Now().UTC()
	}
	b, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encoding preset: %w", err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketPresets).Put([]byte(p.Name), b)
	})
}

// GetPreset retrieves a preset by name.
// Returns (preset, true, nil) if found, (zero, false, nil) if not found.
func (s *Store) GetPreset(name string) (model.Preset, bool, error) {
	var p model.Preset
	var found bool
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketPresets).Get([]byte(name))
		if v == nil {
			return nil
		}
		found = true
		return json.Unmarshal(v, &p)
	})
	if err != nil {
		return model.Preset{}, false, fmt.Errorf("decoding preset %s: %w", name, err)
	}
	return p, found, nil
}

// ListPresets returns all presets sorted by name.
func (s *Store) ListPresets() ([]model.Preset, error) {
	presets := []model.Preset{}
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketPresets).ForEach(func(k, v []byte) error {
			var p model.Preset
			if err := json.Unmarshal(v, &p); err != nil {
				return fmt.Errorf("decoding preset %s: %w", k, err)
			}
			presets = append(presets, p)
			return nil
		})
	})
	sort.Slice(presets, func(i, j int) bool { return presets[i].Name < presets[j].Name })
	return presets, err
}

// DeletePreset removes a preset by name. Deleting a missing preset returns
// ErrPresetNotFound.
func (s *Store) DeletePreset(name string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketPresets)
		if b.Get([]byte(name)) == nil {
			return fmt.Errorf("%w: %s", ErrPresetNotFound, name)
		}
		return b.Delete([]byte(name))
	})
}

// ─── UI State ─────────────────────────────────────────────────────────────────

// PutState records the current selection of a chart variant so the web UI
// can resume it after a restart.
func (s *Store) PutState(variant string, p model.Preset) error {
	p.Variant = variant
	p.SavedAt = time.Now().UTC()
	b, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encoding state: %w", err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketState).Put([]byte(variant), b)
	})
}

// GetState returns the last recorded selection of a chart variant.
func (s *Store) GetState(variant string) (model.Preset, bool, error) {
	var p model.Preset
	var found bool
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketState).Get([]byte(variant))
		if v == nil {
			return nil
		}
		found = true
		return json.Unmarshal(v, &p)
	})
	if err != nil {
		return model.Preset{}, false, fmt.Errorf("decoding state %s: %w", variant, err)
	}
	return p, found, nil
}

// ─── Stats & Maintenance ──────────────────────────────────────────────────────

// BucketStats holds row count and byte size for a single bucket.
type BucketStats struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
	Bytes int64  `json:"bytes"`
}

// Stats returns row counts and approximate sizes for all buckets, in
// AllBuckets order.
func (s *Store) Stats() ([]BucketStats, error) {
	var stats []BucketStats
	err := s.db.View(func(tx *bolt.Tx) error {
		for _, name := range AllBuckets {
			b := tx.Bucket([]byte(name))
			if b == nil {
				continue
			}
			var count int
			var bytes int64
			_ = b.ForEach(func(k, v []byte) error {
				count++
				bytes += int64(len(k) + len(v))
				return nil
			})
			stats = append(stats, BucketStats{Name: name, Count: count, Bytes: bytes})
		}
		return nil
	})
	return stats, err
}

// ClearBucket deletes all entries in the named bucket.
func (s *Store) ClearBucket(name string) error {
	known := false
	for _, b := range AllBuckets {
		if b == name {
			known = true
			break
		}
	}
	if !known {
		return fmt.Errorf("%w %q (want %s)", ErrUnknownBucket, name, strings.Join(AllBuckets, ", "))
	}
	bname := []byte(name)
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(bname); err != nil {
			return fmt.Errorf("clearing bucket %s: %w", name, err)
		}
		_, err := tx.CreateBucket(bname)
		return err
	})
}

// ClearAll deletes all entries from every user-facing bucket.
func (s *Store) ClearAll() error {
	for _, name := range AllBuckets {
		if err := s.ClearBucket(name); err != nil {
			return err
		}
	}
	return nil
}
