package zone

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
)

// ErrInvalidRect is returned by Add for rectangles without positive area.
var ErrInvalidRect = errors.New("zone: invalid rectangle")

// ErrCorruptZoneFile is returned by Load when the file exists but cannot be
// parsed into valid zone records. The in-memory set is left untouched.
var ErrCorruptZoneFile = errors.New("zone: corrupt zone file")

// zoneFile is the on-disk envelope. The key name is kept from the legacy
// excluded_areas.json format.
type zoneFile struct {
	ExcludedAreas []ExclusionZone `json:"excluded_areas"`
}

// Store owns the set of exclusion zones. All access is mutex-guarded; List
// returns a snapshot so a monitoring cycle sees a consistent set even while
// the foreground adds or removes zones.
type Store struct {
	mu    sync.Mutex
	zones []ExclusionZone
}

func NewStore() *Store { return &Store{} }

// Add appends a zone with a fresh identifier and returns the stored record.
// It performs no I/O.
func (s *Store) Add(r Rect, src Source) (ExclusionZone, error) {
	if !r.Valid() {
		return ExclusionZone{}, fmt.Errorf("%w: %s", ErrInvalidRect, r)
	}
	z := ExclusionZone{ID: uuid.NewString(), Rect: r, Source: src}
	s.mu.Lock()
	s.zones = append(s.zones, z)
	s.mu.Unlock()
	return z, nil
}

// Remove deletes the zone with the given id. Removing an unknown id is a no-op.
func (s *Store) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, z := range s.zones {
		if z.ID == id {
			s.zones = append(s.zones[:i], s.zones[i+1:]...)
			return
		}
	}
}

// Clear drops all zones.
func (s *Store) Clear() {
	s.mu.Lock()
	s.zones = nil
	s.mu.Unlock()
}

// List returns a copy of the current zone set in insertion order.
func (s *Store) List() []ExclusionZone {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ExclusionZone, len(s.zones))
	copy(out, s.zones)
	return out
}

// Count returns the number of stored zones.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.zones)
}

// Save serializes the full zone set to path. The write goes to a temp file in
// the same directory followed by a rename, so a crash mid-write never corrupts
// an existing file.
func (s *Store) Save(path string) error {
	s.mu.Lock()
	data, err := json.MarshalIndent(zoneFile{ExcludedAreas: s.zones}, "", "  ")
	s.mu.Unlock()
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".zones-*.json")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

// Load replaces the in-memory set with the file's contents. A missing file is
// not an error and yields an empty set. A file that cannot be parsed into
// valid rectangles fails with ErrCorruptZoneFile and leaves the previous
// in-memory set untouched.
func (s *Store) Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			s.mu.Lock()
			s.zones = nil
			s.mu.Unlock()
			return nil
		}
		return err
	}
	var f zoneFile
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("%w: %v", ErrCorruptZoneFile, err)
	}
	for i := range f.ExcludedAreas {
		z := &f.ExcludedAreas[i]
		if !z.Valid() {
			return fmt.Errorf("%w: record %d has rectangle %s", ErrCorruptZoneFile, i, z.Rect)
		}
		if z.ID == "" {
			z.ID = uuid.NewString()
		}
		if z.Source == "" {
			z.Source = SourceLivePreview
		}
	}
	s.mu.Lock()
	s.zones = f.ExcludedAreas
	s.mu.Unlock()
	return nil
}
