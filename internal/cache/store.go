// Package cache implements the persistent on-disk cache for ESIOS
// data: wide-format time-series frames, item metadata, per-endpoint
// catalogues, the global geo registry, and extracted archive bundles.
//
// # Layout
//
//	{root}/
//	  geos.json
//	  {endpoint}/
//	    catalog.json
//	    {item-id}/
//	      data.coljson
//	      meta.json
//	  archives/
//	    {archive-id}/
//	      {name}_{date-key}/
//
// All writes go through a temp-file-plus-rename so a crash never leaves
// a partial file. Corrupt files are deleted on read and treated as a
// cache miss; the caller refetches. There is no cross-process lock:
// concurrent writers race at file granularity and last-writer-wins,
// which is safe because the frame merge is commutative when both
// writers observed the same base.
package cache

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/colthorp/esios-cli-go/internal/core"
	"github.com/colthorp/esios-cli-go/internal/frame"
)

// Config holds cache behaviour options.
type Config struct {
	Enabled         bool
	Dir             string
	RecentTTLHours  int
	MetaTTLDays     int
	CatalogTTLHours int
}

// DefaultConfig returns the standard cache configuration.
func DefaultConfig() Config {
	return Config{
		Enabled:         true,
		Dir:             core.CacheRoot(),
		RecentTTLHours:  core.RecentTTLHours,
		MetaTTLDays:     core.MetaTTLDays,
		CatalogTTLHours: core.CatalogTTLHours,
	}
}

// Store is the single owner of all on-disk cache state. It performs no
// network I/O and no fetch planning beyond gap detection.
type Store struct {
	root       string
	enabled    bool
	recentTTL  time.Duration
	metaTTL    time.Duration
	catalogTTL time.Duration
	log        zerolog.Logger
	now        func() time.Time
}

// NewStore creates a store rooted at cfg.Dir.
func NewStore(cfg Config) *Store {
	dir := cfg.Dir
	if dir == "" {
		dir = core.CacheRoot()
	}
	return &Store{
		root:       dir,
		enabled:    cfg.Enabled,
		recentTTL:  time.Duration(cfg.RecentTTLHours) * time.Hour,
		metaTTL:    time.Duration(cfg.MetaTTLDays) * 24 * time.Hour,
		catalogTTL: time.Duration(cfg.CatalogTTLHours) * time.Hour,
		log:        core.Logger("cache"),
		now:        time.Now,
	}
}

// Enabled reports whether caching is switched on.
func (s *Store) Enabled() bool { return s.enabled }

// Root returns the cache root directory.
func (s *Store) Root() string { return s.root }

// SetNow overrides the clock, for tests exercising TTL behaviour.
func (s *Store) SetNow(now func() time.Time) { s.now = now }

// -- Path resolution ---------------------------------------------------------

func (s *Store) itemDir(endpoint string, id int) string {
	return filepath.Join(s.root, endpoint, strconv.Itoa(id))
}

func (s *Store) dataPath(endpoint string, id int) string {
	return filepath.Join(s.itemDir(endpoint, id), "data.coljson")
}

func (s *Store) metaPath(endpoint string, id int) string {
	return filepath.Join(s.itemDir(endpoint, id), "meta.json")
}

func (s *Store) catalogPath(endpoint string) string {
	return filepath.Join(s.root, endpoint, "catalog.json")
}

func (s *Store) geosPath() string {
	return filepath.Join(s.root, "geos.json")
}

// ArchiveDir resolves the bundle directory for an archive download:
// {root}/archives/{archive-id}/{name}_{date-key}/.
func (s *Store) ArchiveDir(archiveID int, name, dateKey string) string {
	return filepath.Join(s.root, core.EndpointArchives, strconv.Itoa(archiveID), fmt.Sprintf("%s_%s", name, dateKey))
}

// ArchiveExists reports whether a bundle directory exists and holds at
// least one entry.
func (s *Store) ArchiveExists(archiveID int, name, dateKey string) bool {
	entries, err := os.ReadDir(s.ArchiveDir(archiveID, name, dateKey))
	return err == nil && len(entries) > 0
}

// -- Migration ---------------------------------------------------------------

// maybeMigrate moves old flat cache files ({endpoint}/{id}.coljson)
// into the per-item directory layout.
func (s *Store) maybeMigrate(endpoint string, id int) {
	oldPath := filepath.Join(s.root, endpoint, strconv.Itoa(id)+".coljson")
	if _, err := os.Stat(oldPath); err != nil {
		return
	}
	newPath := s.dataPath(endpoint, id)
	if _, err := os.Stat(newPath); err == nil {
		os.Remove(oldPath)
		s.log.Info().Str("path", oldPath).Msg("removed old cache file (already migrated)")
		return
	}
	if err := os.MkdirAll(filepath.Dir(newPath), 0o755); err != nil {
		return
	}
	if err := os.Rename(oldPath, newPath); err == nil {
		s.log.Info().Str("from", oldPath).Str("to", newPath).Msg("migrated cache file")
	}
}

// -- Frame read / write ------------------------------------------------------

// Read returns the cached slice [start, end] for an item, restricted to
// the given columns when non-empty. A missing or corrupt file yields an
// empty frame; corrupt files are deleted so the next fetch rebuilds them.
func (s *Store) Read(endpoint string, id int, start, end time.Time, columns []string) *frame.Frame {
	s.maybeMigrate(endpoint, id)
	path := s.dataPath(endpoint, id)
	data, err := os.ReadFile(path)
	if err != nil {
		return frame.New()
	}
	f, err := frame.Unmarshal(data)
	if err != nil {
		s.log.Warn().Str("path", path).Err(err).Msg("corrupt cache file, removing")
		os.Remove(path)
		return frame.New()
	}
	f = f.Slice(start, core.EndOfDay(end))
	if len(columns) > 0 {
		f = f.Select(columns)
	}
	return f
}

// Write merges a new wide frame into the item's cache file and persists
// atomically. New values win on overlap; columns absent from the new
// frame are preserved. An empty frame is a no-op. Failures are logged
// and swallowed: a broken cache never fails a data call.
func (s *Store) Write(endpoint string, id int, f *frame.Frame) {
	if f.IsEmpty() {
		return
	}
	path := s.dataPath(endpoint, id)

	existing := frame.New()
	if data, err := os.ReadFile(path); err == nil {
		existing, err = frame.Unmarshal(data)
		if err != nil {
			s.log.Warn().Str("path", path).Err(err).Msg("corrupt cache file, overwriting")
			existing = frame.New()
		}
	}

	merged := frame.Merge(existing, f)
	data, err := frame.Marshal(merged)
	if err != nil {
		s.log.Warn().Str("path", path).Err(err).Msg("failed to encode cache frame")
		return
	}
	if err := writeFileAtomic(path, data); err != nil {
		s.log.Warn().Str("path", path).Err(err).Msg("failed to write cache, continuing without")
	}
}

// -- Item metadata -----------------------------------------------------------

type metaEnvelope struct {
	Version  int             `json:"version"`
	CachedAt time.Time       `json:"cached_at"`
	Item     json.RawMessage `json:"item"`
}

// ReadMeta returns the cached metadata record for an item, or nil when
// absent, stale, or corrupt.
func (s *Store) ReadMeta(endpoint string, id int) json.RawMessage {
	path := s.metaPath(endpoint, id)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	var env metaEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		s.log.Warn().Str("path", path).Err(err).Msg("corrupt meta file, ignoring")
		return nil
	}
	if s.now().Sub(env.CachedAt) > s.metaTTL {
		s.log.Debug().Str("endpoint", endpoint).Int("id", id).Msg("meta is stale")
		return nil
	}
	return env.Item
}

// WriteMeta persists an item's metadata record with a cached_at stamp.
func (s *Store) WriteMeta(endpoint string, id int, item json.RawMessage) {
	env := metaEnvelope{Version: 1, CachedAt: s.now().UTC(), Item: item}
	data, err := json.Marshal(env)
	if err != nil {
		s.log.Warn().Err(err).Msg("failed to encode meta")
		return
	}
	if err := writeFileAtomic(s.metaPath(endpoint, id), data); err != nil {
		s.log.Warn().Err(err).Msg("failed to write meta")
	}
}

// -- Per-endpoint catalogue --------------------------------------------------

// CatalogItem is the lightweight projection stored per endpoint.
type CatalogItem struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	ShortName string `json:"short_name"`
}

type catalogEnvelope struct {
	Version   int           `json:"version"`
	UpdatedAt time.Time     `json:"updated_at"`
	Items     []CatalogItem `json:"items"`
}

// ReadCatalog returns the cached catalogue for an endpoint, or nil when
// absent, stale, or corrupt.
func (s *Store) ReadCatalog(endpoint string) []CatalogItem {
	path := s.catalogPath(endpoint)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	var env catalogEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		s.log.Warn().Str("path", path).Err(err).Msg("corrupt catalog, ignoring")
		return nil
	}
	if s.now().Sub(env.UpdatedAt) > s.catalogTTL {
		s.log.Debug().Str("endpoint", endpoint).Msg("catalog is stale")
		return nil
	}
	return env.Items
}

// WriteCatalog persists the catalogue for an endpoint.
func (s *Store) WriteCatalog(endpoint string, items []CatalogItem) {
	env := catalogEnvelope{Version: 1, UpdatedAt: s.now().UTC(), Items: items}
	data, err := json.Marshal(env)
	if err != nil {
		s.log.Warn().Err(err).Msg("failed to encode catalog")
		return
	}
	if err := writeFileAtomic(s.catalogPath(endpoint), data); err != nil {
		s.log.Warn().Err(err).Msg("failed to write catalog")
	}
}

// -- Global geo registry -----------------------------------------------------

type geosEnvelope struct {
	Version   int               `json:"version"`
	UpdatedAt time.Time         `json:"updated_at"`
	Geos      map[string]string `json:"geos"`
}

// ReadGeos returns the global geo-id to geo-name registry. Reads are
// best-effort: a corrupt registry yields an empty map and a warning,
// never a failed call.
func (s *Store) ReadGeos() map[string]string {
	data, err := os.ReadFile(s.geosPath())
	if err != nil {
		return map[string]string{}
	}
	var env geosEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		s.log.Warn().Str("path", s.geosPath()).Err(err).Msg("corrupt geos registry, ignoring")
		return map[string]string{}
	}
	if env.Geos == nil {
		return map[string]string{}
	}
	return env.Geos
}

// MergeGeos merges new id→name pairs into the registry. Idempotent;
// last write wins per id; an empty merge is a no-op.
func (s *Store) MergeGeos(geos map[string]string) {
	if len(geos) == 0 {
		return
	}
	existing := s.ReadGeos()
	for id, name := range geos {
		existing[id] = name
	}
	env := geosEnvelope{Version: 1, UpdatedAt: s.now().UTC(), Geos: existing}
	data, err := json.Marshal(env)
	if err != nil {
		s.log.Warn().Err(err).Msg("failed to encode geos registry")
		return
	}
	if err := writeFileAtomic(s.geosPath(), data); err != nil {
		s.log.Warn().Err(err).Msg("failed to write geos registry")
	}
}

// -- Maintenance -------------------------------------------------------------

// Clear removes cached files. Scope narrows with the arguments: no
// endpoint clears everything; endpoint alone clears that endpoint; both
// clear a single item (or archive). Returns the number of files removed.
func (s *Store) Clear(endpoint, id string) int {
	target := s.root
	if endpoint != "" && id != "" {
		target = filepath.Join(s.root, endpoint, id)
	} else if endpoint != "" {
		target = filepath.Join(s.root, endpoint)
	}
	count := countFiles(target)
	if count > 0 || dirExists(target) {
		if err := os.RemoveAll(target); err != nil {
			s.log.Warn().Str("path", target).Err(err).Msg("failed to clear cache")
			return 0
		}
	}
	pruneEmptyDirs(s.root)
	return count
}

// Status summarises the cache for operator visibility.
type Status struct {
	Path      string         `json:"path"`
	Files     int            `json:"files"`
	SizeMB    float64        `json:"size_mb"`
	Endpoints map[string]int `json:"endpoints"`
}

// StoreStatus returns cache statistics: path, file count, total size,
// and a per-endpoint file breakdown.
func (s *Store) StoreStatus() Status {
	st := Status{Path: s.root, Endpoints: map[string]int{}}
	var totalSize int64
	filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		st.Files++
		if info, err := d.Info(); err == nil {
			totalSize += info.Size()
		}
		if rel, err := filepath.Rel(s.root, path); err == nil {
			if top := topDir(rel); top != "" {
				st.Endpoints[top]++
			}
		}
		return nil
	})
	st.SizeMB = float64(totalSize) / (1024 * 1024)
	return st
}

// -- Helpers -----------------------------------------------------------------

// topDir returns the first path element of a relative path, or "" for a
// bare filename (files living directly under the cache root).
func topDir(rel string) string {
	rel = filepath.ToSlash(rel)
	for i := 0; i < len(rel); i++ {
		if rel[i] == '/' {
			return rel[:i]
		}
	}
	return ""
}

func countFiles(root string) int {
	count := 0
	filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err == nil && !d.IsDir() {
			count++
		}
		return nil
	})
	return count
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// pruneEmptyDirs removes empty directories below root, leaving root
// itself in place.
func pruneEmptyDirs(root string) {
	var dirs []string
	filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err == nil && d.IsDir() && path != root {
			dirs = append(dirs, path)
		}
		return nil
	})
	// Deepest first so nested empties collapse upward.
	for i := len(dirs) - 1; i >= 0; i-- {
		if entries, err := os.ReadDir(dirs[i]); err == nil && len(entries) == 0 {
			os.Remove(dirs[i])
		}
	}
}
