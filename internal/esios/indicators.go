package esios

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/colthorp/esios-cli-go/internal/api"
	"github.com/colthorp/esios-cli-go/internal/cache"
	"github.com/colthorp/esios-cli-go/internal/core"
	"github.com/colthorp/esios-cli-go/internal/frame"
)

// IndicatorManager serves one indicator-style endpoint. The same
// machinery backs /indicators and /offer_indicators; they differ only
// in endpoint path and chunk size.
type IndicatorManager struct {
	client    *Client
	endpoint  string
	chunkDays int
}

// List returns the endpoint catalogue, served from the catalogue cache
// within its TTL.
func (m *IndicatorManager) List(ctx context.Context) ([]cache.CatalogItem, error) {
	store := m.client.store
	if store.Enabled() {
		if items := store.ReadCatalog(m.endpoint); items != nil {
			return items, nil
		}
	}
	body, err := m.client.transport.Get(ctx, m.endpoint, nil)
	if err != nil {
		return nil, err
	}
	var resp api.IndicatorsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode %s list: %w", m.endpoint, err)
	}
	items := make([]cache.CatalogItem, 0, len(resp.Indicators))
	for _, ind := range resp.Indicators {
		items = append(items, cache.CatalogItem{ID: ind.ID, Name: ind.Name, ShortName: ind.ShortName})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	if store.Enabled() {
		store.WriteCatalog(m.endpoint, items)
	}
	return items, nil
}

// Search filters the catalogue by case-insensitive substring match on
// name and short name.
func (m *IndicatorManager) Search(ctx context.Context, query string) ([]cache.CatalogItem, error) {
	items, err := m.List(ctx)
	if err != nil {
		return nil, err
	}
	q := strings.ToLower(query)
	var out []cache.CatalogItem
	for _, item := range items {
		if strings.Contains(strings.ToLower(item.Name), q) ||
			strings.Contains(strings.ToLower(item.ShortName), q) {
			out = append(out, item)
		}
	}
	return out, nil
}

// Get returns a bound handle for one indicator, with metadata served
// from the per-item cache within its TTL.
func (m *IndicatorManager) Get(ctx context.Context, id int) (*IndicatorHandle, error) {
	store := m.client.store
	if store.Enabled() {
		if raw := store.ReadMeta(m.endpoint, id); raw != nil {
			var ind api.Indicator
			if err := json.Unmarshal(raw, &ind); err == nil {
				return &IndicatorHandle{mgr: m, Indicator: ind}, nil
			}
		}
	}
	body, err := m.client.transport.Get(ctx, fmt.Sprintf("%s/%d", m.endpoint, id), nil)
	if err != nil {
		return nil, err
	}
	var resp api.IndicatorResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode %s/%d: %w", m.endpoint, id, err)
	}
	ind := resp.Indicator
	ind.Description = htmlToText(ind.Description)
	// Metadata only; values arrive through Historical.
	ind.Values = nil

	if store.Enabled() {
		if raw, err := json.Marshal(ind); err == nil {
			store.WriteMeta(m.endpoint, id, raw)
		}
		store.MergeGeos(geoRegistryEntries(ind.Geos))
	}
	return &IndicatorHandle{mgr: m, Indicator: ind}, nil
}

// HistoricalOptions tunes a data request. Aggregation and truncation
// options bypass the cache because their values are not mergeable with
// the raw hourly series.
type HistoricalOptions struct {
	GeoIDs    []int
	Locale    string
	TimeAgg   string
	GeoAgg    string
	TimeTrunc string
	GeoTrunc  string
}

// Compare fetches several indicators over the same range and merges
// their primary series into one frame, columns named by indicator.
func (m *IndicatorManager) Compare(ctx context.Context, ids []int, start, end time.Time, opts HistoricalOptions) (*frame.Frame, error) {
	b := frame.NewBuilder()
	for _, id := range ids {
		h, err := m.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		f, err := h.Historical(ctx, start, end, opts)
		if err != nil {
			return nil, err
		}
		cols := f.Columns()
		if len(cols) == 0 {
			continue
		}
		name := h.Indicator.Name
		if name == "" {
			name = strconv.Itoa(id)
		}
		for i, t := range f.Index() {
			if v := f.At(i, cols[0]); !math.IsNaN(v) {
				b.Set(t, name, v)
			}
		}
	}
	return b.Build().InZone(m.client.loc), nil
}

// IndicatorHandle binds an IndicatorManager to one indicator's
// metadata, giving access to its time series.
type IndicatorHandle struct {
	mgr       *IndicatorManager
	Indicator api.Indicator
}

// ID returns the indicator id.
func (h *IndicatorHandle) ID() int { return h.Indicator.ID }

// Geos lists the geographies known for this indicator.
func (h *IndicatorHandle) Geos() []api.Geo { return h.Indicator.Geos }

// ResolveGeo maps a geo reference to a geo id. Accepts a numeric id,
// a case-insensitive substring of a geo name from this indicator's
// metadata, or a name from the global geo registry.
func (h *IndicatorHandle) ResolveGeo(ref string) (int, error) {
	if id, err := strconv.Atoi(ref); err == nil {
		return id, nil
	}
	needle := strings.ToLower(ref)
	for _, g := range h.Indicator.Geos {
		if strings.Contains(strings.ToLower(g.GeoName), needle) {
			return g.GeoID, nil
		}
	}
	for idStr, name := range h.mgr.client.store.ReadGeos() {
		if strings.Contains(strings.ToLower(name), needle) {
			if id, err := strconv.Atoi(idStr); err == nil {
				return id, nil
			}
		}
	}
	available := make([]string, 0, len(h.Indicator.Geos))
	for _, g := range h.Indicator.Geos {
		available = append(available, g.GeoName)
	}
	return 0, fmt.Errorf("no geo matching %q for indicator %d (available: %s)",
		ref, h.Indicator.ID, strings.Join(available, ", "))
}

// Historical returns the indicator's values over [start, end] as a
// wide frame, one column per geography (or a single value column).
// Cached date ranges are served locally; only missing sub-ranges are
// fetched, in windows the API accepts.
func (h *IndicatorHandle) Historical(ctx context.Context, start, end time.Time, opts HistoricalOptions) (*frame.Frame, error) {
	mgr := h.mgr
	store := mgr.client.store
	log := mgr.client.log

	base := url.Values{}
	if opts.Locale != "" {
		base.Set("locale", opts.Locale)
	} else {
		base.Set("locale", "es")
	}
	if len(opts.GeoIDs) > 0 {
		ids := make([]string, len(opts.GeoIDs))
		for i, g := range opts.GeoIDs {
			ids[i] = strconv.Itoa(g)
		}
		base.Set("geo_ids[]", strings.Join(ids, ","))
	}
	for k, v := range map[string]string{
		"time_agg": opts.TimeAgg, "geo_agg": opts.GeoAgg,
		"time_trunc": opts.TimeTrunc, "geo_trunc": opts.GeoTrunc,
	} {
		if v != "" {
			base.Set(k, v)
		}
	}

	geoNames := h.geoNameIndex()

	// Cache column names are geo names. With a geo filter only those
	// columns must be covered; otherwise every known geo must be.
	var cacheCols []string
	if len(opts.GeoIDs) > 0 {
		for _, gid := range opts.GeoIDs {
			name, ok := geoNames[strconv.Itoa(gid)]
			if !ok {
				name = strconv.Itoa(gid)
			}
			cacheCols = append(cacheCols, name)
		}
	} else if len(h.Indicator.Geos) > 0 {
		for _, g := range h.Indicator.Geos {
			cacheCols = append(cacheCols, g.GeoName)
		}
	}

	// Aggregated or truncated responses are not mergeable with raw
	// values, so they bypass the cache entirely.
	useCache := store.Enabled() && opts.TimeAgg == "" && opts.GeoAgg == "" &&
		opts.TimeTrunc == "" && opts.GeoTrunc == ""

	var readCols []string
	if len(opts.GeoIDs) > 0 {
		readCols = cacheCols
	}

	cached := frame.New()
	var gaps []cache.DateRange
	if useCache {
		cached = store.Read(mgr.endpoint, h.Indicator.ID, start, end, readCols)
		gaps = store.FindGaps(cached, start, end, cacheCols)
		if len(gaps) == 0 {
			log.Debug().Int("id", h.Indicator.ID).Msg("cache hit")
			return h.finalize(cached), nil
		}
		log.Debug().Int("id", h.Indicator.ID).Int("gaps", len(gaps)).Msg("cache partial, fetching gaps")
	} else {
		gaps = []cache.DateRange{{Start: start, End: end}}
	}

	var values []api.Value
	for _, gap := range gaps {
		for _, chunk := range cache.SplitDays(gap, mgr.chunkDays) {
			params := url.Values{}
			for k, vs := range base {
				params[k] = vs
			}
			params.Set("start_date", core.FormatDate(chunk.Start))
			params.Set("end_date", core.FormatDate(chunk.End)+"T23:59:59")
			body, err := mgr.client.transport.Get(ctx, fmt.Sprintf("%s/%d", mgr.endpoint, h.Indicator.ID), params)
			if err != nil {
				return nil, err
			}
			var resp api.IndicatorResponse
			if err := json.Unmarshal(body, &resp); err != nil {
				return nil, fmt.Errorf("decode %s/%d values: %w", mgr.endpoint, h.Indicator.ID, err)
			}
			values = append(values, resp.Indicator.Values...)
		}
	}

	h.learnGeos(values, geoNames)

	newWide := toWide(values, geoNames)
	if useCache && !newWide.IsEmpty() {
		store.Write(mgr.endpoint, h.Indicator.ID, newWide)
	}

	result := frame.Merge(cached, newWide).Slice(start, core.EndOfDay(end))
	if len(readCols) > 0 {
		if selected := result.Select(readCols); !selected.IsEmpty() {
			result = selected
		}
	}
	return h.finalize(result), nil
}

// geoNameIndex maps stringified geo ids to names, combining indicator
// metadata with the global registry.
func (h *IndicatorHandle) geoNameIndex() map[string]string {
	names := map[string]string{}
	for id, name := range h.mgr.client.store.ReadGeos() {
		names[id] = name
	}
	for _, g := range h.Indicator.Geos {
		names[strconv.Itoa(g.GeoID)] = g.GeoName
	}
	return names
}

// learnGeos records geographies discovered in response values that the
// indicator metadata did not list (the catalogue is incomplete for
// cross-border indicators), refreshing the cached metadata and the
// global registry.
func (h *IndicatorHandle) learnGeos(values []api.Value, geoNames map[string]string) {
	known := map[int]bool{}
	for _, g := range h.Indicator.Geos {
		known[g.GeoID] = true
	}
	learned := map[string]string{}
	for _, v := range values {
		if v.GeoID == nil || v.GeoName == "" {
			continue
		}
		learned[strconv.Itoa(*v.GeoID)] = v.GeoName
		if !known[*v.GeoID] {
			h.Indicator.Geos = append(h.Indicator.Geos, api.Geo{GeoID: *v.GeoID, GeoName: v.GeoName})
			known[*v.GeoID] = true
			geoNames[strconv.Itoa(*v.GeoID)] = v.GeoName
		}
	}
	if len(learned) == 0 {
		return
	}
	store := h.mgr.client.store
	if store.Enabled() {
		store.MergeGeos(learned)
		if raw, err := json.Marshal(h.Indicator); err == nil {
			store.WriteMeta(h.mgr.endpoint, h.Indicator.ID, raw)
		}
	}
}

// finalize prepares a frame for callers: a lone value column takes the
// indicator id as its name, and timestamps move to the display zone.
func (h *IndicatorHandle) finalize(f *frame.Frame) *frame.Frame {
	if f.IsEmpty() {
		return f
	}
	if cols := f.Columns(); len(cols) == 1 && cols[0] == frame.ValueColumn {
		f.Rename(frame.ValueColumn, strconv.Itoa(h.Indicator.ID))
	}
	return f.InZone(h.mgr.client.loc)
}

// toWide pivots raw API values into a wide frame: one column per geo
// name, or a single value column for series without geographies.
// Duplicate observations for the same cell keep the first occurrence.
func toWide(values []api.Value, geoNames map[string]string) *frame.Frame {
	b := frame.NewBuilder()
	for _, v := range values {
		t, err := v.Time()
		if err != nil {
			continue
		}
		col := frame.ValueColumn
		if v.GeoID != nil {
			col = v.GeoName
			if col == "" {
				col = geoNames[strconv.Itoa(*v.GeoID)]
			}
			if col == "" {
				col = strconv.Itoa(*v.GeoID)
			}
		}
		b.Set(t, col, v.Value)
	}
	return b.Build()
}

func geoRegistryEntries(geos []api.Geo) map[string]string {
	out := map[string]string{}
	for _, g := range geos {
		if g.GeoName != "" {
			out[strconv.Itoa(g.GeoID)] = g.GeoName
		}
	}
	return out
}
