package esios

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/goccy/go-json"

	"github.com/colthorp/esios-cli-go/internal/api"
	"github.com/colthorp/esios-cli-go/internal/cache"
	"github.com/colthorp/esios-cli-go/internal/core"
	"github.com/colthorp/esios-cli-go/internal/zipx"
)

// ArchiveManager serves the /archives endpoint: downloadable file
// bundles published daily or monthly.
type ArchiveManager struct {
	client *Client
}

// List returns the archive catalogue, served from the catalogue cache
// within its TTL.
func (m *ArchiveManager) List(ctx context.Context) ([]cache.CatalogItem, error) {
	store := m.client.store
	if store.Enabled() {
		if items := store.ReadCatalog(core.EndpointArchives); items != nil {
			return items, nil
		}
	}
	params := url.Values{}
	params.Set("date_type", "publicacion")
	body, err := m.client.transport.Get(ctx, core.EndpointArchives, params)
	if err != nil {
		return nil, err
	}
	var resp api.ArchivesResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode archives list: %w", err)
	}
	items := make([]cache.CatalogItem, 0, len(resp.Archives))
	for _, a := range resp.Archives {
		items = append(items, cache.CatalogItem{ID: a.ID, Name: a.Name})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	if store.Enabled() {
		store.WriteCatalog(core.EndpointArchives, items)
	}
	return items, nil
}

// Get returns a bound handle for one archive.
func (m *ArchiveManager) Get(ctx context.Context, id int) (*ArchiveHandle, error) {
	body, err := m.client.transport.Get(ctx, fmt.Sprintf("%s/%d", core.EndpointArchives, id), nil)
	if err != nil {
		return nil, err
	}
	var resp api.ArchiveResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode archives/%d: %w", id, err)
	}
	return &ArchiveHandle{mgr: m, Archive: resp.Archive}, nil
}

// Download is the one-call form: Get followed by the handle's Download.
func (m *ArchiveManager) Download(ctx context.Context, id int, opts DownloadOptions) ([]string, error) {
	h, err := m.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return h.Download(ctx, opts)
}

// ArchiveHandle binds the manager to one archive's metadata.
type ArchiveHandle struct {
	mgr     *ArchiveManager
	Archive api.Archive

	downloadPath string
}

// ConfigureOptions select the publication window to resolve. Provide
// either Date, or Start and End.
type ConfigureOptions struct {
	Date     string
	Start    string
	End      string
	DateType string
	Locale   string
}

// Configure re-resolves the archive metadata for a window, refreshing
// the bundle name and the download path.
func (h *ArchiveHandle) Configure(ctx context.Context, opts ConfigureOptions) error {
	params := url.Values{}
	if opts.DateType != "" {
		params.Set("date_type", opts.DateType)
	} else {
		params.Set("date_type", "datos")
	}
	if opts.Locale != "" {
		params.Set("locale", opts.Locale)
	} else {
		params.Set("locale", "es")
	}
	switch {
	case opts.Date != "":
		params.Set("date", opts.Date+"T00:00:00")
	case opts.Start != "" && opts.End != "":
		params.Set("start_date", opts.Start+"T00:00:00")
		params.Set("end_date", opts.End+"T23:59:59")
	default:
		return fmt.Errorf("provide either a date, or both start and end")
	}

	body, err := h.mgr.client.transport.Get(ctx, fmt.Sprintf("%s/%d", core.EndpointArchives, h.Archive.ID), params)
	if err != nil {
		return err
	}
	var resp api.ArchiveResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return fmt.Errorf("decode archives/%d: %w", h.Archive.ID, err)
	}
	h.Archive = resp.Archive
	if h.Archive.Download == nil {
		return fmt.Errorf("archive %d has no download for the requested window", h.Archive.ID)
	}
	h.downloadPath = h.Archive.Download.URL
	return nil
}

// DownloadOptions select what to download and where copies go. Provide
// either Date, or Start and End. Files always land in the cache;
// OutputDir receives an additional copy.
type DownloadOptions struct {
	Date      string
	Start     string
	End       string
	OutputDir string
	DateType  string
}

// Download fetches the archive for a date or range, expanding ZIP
// bundles into per-chunk cache directories. Already cached chunks are
// not re-fetched; failed chunks are logged and skipped. Returns the
// sorted list of files across all chunks.
func (h *ArchiveHandle) Download(ctx context.Context, opts DownloadOptions) ([]string, error) {
	if opts.Date != "" {
		return h.downloadSingle(ctx, opts)
	}
	if opts.Start == "" || opts.End == "" {
		return nil, fmt.Errorf("provide a date, or both start and end")
	}
	start, err := core.ParseDate(opts.Start)
	if err != nil {
		return nil, err
	}
	end, err := core.ParseDate(opts.End)
	if err != nil {
		return nil, err
	}

	store := h.mgr.client.store
	log := h.mgr.client.log

	var chunks []cache.DateRange
	if h.Archive.Horizon == "M" {
		chunks = cache.SplitMonths(cache.DateRange{Start: start, End: end})
	} else {
		chunks = cache.SplitDays(cache.DateRange{Start: start, End: end}, 0)
	}

	var files []string
	for _, chunk := range chunks {
		key := h.dateKey(chunk.Start)
		dir := store.ArchiveDir(h.Archive.ID, h.bundleName(), key)

		if store.Enabled() && store.ArchiveExists(h.Archive.ID, h.bundleName(), key) {
			log.Info().Str("dir", dir).Msg("archive cache hit")
			files = append(files, listFiles(dir)...)
			h.copyToOutput(dir, opts.OutputDir)
			continue
		}

		err := h.Configure(ctx, ConfigureOptions{
			Start:    core.FormatDate(chunk.Start),
			End:      core.FormatDate(chunk.End),
			DateType: opts.DateType,
		})
		var content []byte
		if err == nil {
			content, err = h.mgr.client.transport.Download(ctx, h.downloadPath)
		}
		if err != nil {
			log.Warn().
				Str("start", core.FormatDate(chunk.Start)).
				Str("end", core.FormatDate(chunk.End)).
				Err(err).
				Msg("archive chunk failed, skipping")
			continue
		}

		// Name may have changed after Configure.
		dir = store.ArchiveDir(h.Archive.ID, h.bundleName(), key)
		if err := h.writeContent(content, dir, key); err != nil {
			log.Warn().Str("dir", dir).Err(err).Msg("archive extraction failed, skipping")
			continue
		}
		files = append(files, listFiles(dir)...)
		h.copyToOutput(dir, opts.OutputDir)
	}

	sort.Strings(files)
	return files, nil
}

func (h *ArchiveHandle) downloadSingle(ctx context.Context, opts DownloadOptions) ([]string, error) {
	if err := h.Configure(ctx, ConfigureOptions{Date: opts.Date, DateType: opts.DateType}); err != nil {
		return nil, err
	}
	key, err := h.resolvedDateKey(opts.Date)
	if err != nil {
		return nil, err
	}

	store := h.mgr.client.store
	dir := store.ArchiveDir(h.Archive.ID, h.bundleName(), key)
	if !store.Enabled() || !store.ArchiveExists(h.Archive.ID, h.bundleName(), key) {
		content, err := h.mgr.client.transport.Download(ctx, h.downloadPath)
		if err != nil {
			return nil, err
		}
		if err := h.writeContent(content, dir, key); err != nil {
			return nil, err
		}
	} else {
		h.mgr.client.log.Info().Str("dir", dir).Msg("archive cache hit")
	}
	h.copyToOutput(dir, opts.OutputDir)
	files := listFiles(dir)
	sort.Strings(files)
	return files, nil
}

// dateKey formats the chunk key: YYYYMM for monthly archives, YYYYMMDD
// for daily ones.
func (h *ArchiveHandle) dateKey(t time.Time) string {
	if h.Archive.Horizon == "M" {
		return t.Format(core.DateKeyMonthly)
	}
	return t.Format(core.DateKeyDaily)
}

// resolvedDateKey derives the key from metadata returned by Configure,
// falling back to the requested date.
func (h *ArchiveHandle) resolvedDateKey(requested string) (string, error) {
	if h.Archive.Horizon == "M" && len(h.Archive.DateTimes) > 0 {
		if t, ok := parseArchiveTime(h.Archive.DateTimes[0]); ok {
			return t.Format(core.DateKeyMonthly), nil
		}
	}
	if h.Archive.Horizon != "M" && h.Archive.Date != nil {
		if t, ok := parseArchiveTime(h.Archive.Date.Date); ok {
			return t.Format(core.DateKeyDaily), nil
		}
	}
	t, err := core.ParseDate(requested)
	if err != nil {
		return "", err
	}
	return h.dateKey(t), nil
}

func (h *ArchiveHandle) bundleName() string {
	if h.Archive.Download != nil && h.Archive.Download.Name != "" {
		return h.Archive.Download.Name
	}
	return h.Archive.Name
}

// writeContent expands a ZIP bundle into dir, or writes a flat file
// for xls archives.
func (h *ArchiveHandle) writeContent(content []byte, dir, key string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	switch h.Archive.ArchiveType {
	case "", "zip":
		return zipx.ExtractAll(content, dir)
	case "xls":
		name := fmt.Sprintf("%s_%s.xls", h.bundleName(), key)
		return os.WriteFile(filepath.Join(dir, name), content, 0o644)
	default:
		return fmt.Errorf("unsupported archive type %q", h.Archive.ArchiveType)
	}
}

// copyToOutput mirrors a cached bundle directory into the user's
// output directory. Existing non-empty destinations are left alone.
func (h *ArchiveHandle) copyToOutput(cacheDir, outputDir string) {
	if outputDir == "" {
		return
	}
	log := h.mgr.client.log
	dest := filepath.Join(outputDir, filepath.Base(cacheDir))
	if entries, err := os.ReadDir(dest); err == nil && len(entries) > 0 {
		log.Info().Str("dir", dest).Msg("output already exists")
		return
	}
	if err := os.MkdirAll(dest, 0o755); err != nil {
		log.Warn().Str("dir", dest).Err(err).Msg("cannot create output directory")
		return
	}
	for _, src := range listFiles(cacheDir) {
		if err := copyFile(src, filepath.Join(dest, filepath.Base(src))); err != nil {
			log.Warn().Str("file", src).Err(err).Msg("copy failed")
		}
	}
	log.Info().Str("dir", dest).Msg("copied to output")
}

func parseArchiveTime(s string) (time.Time, bool) {
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05.000-07:00", core.DateFmt} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// listFiles returns the regular files directly inside dir.
func listFiles(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	return files
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
