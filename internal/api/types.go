package api

import (
	"fmt"
	"time"
)

// Geo identifies a geographic scope attached to indicator values
// (countries, electrical systems, bidding zones).
type Geo struct {
	GeoID   int    `json:"geo_id"`
	GeoName string `json:"geo_name"`
}

// Value is a single time-series data point. GeoID is nil for
// indicators without geographic breakdown.
type Value struct {
	Value       float64 `json:"value"`
	Datetime    string  `json:"datetime"`
	DatetimeUTC string  `json:"datetime_utc"`
	TZTime      string  `json:"tz_time"`
	GeoID       *int    `json:"geo_id"`
	GeoName     string  `json:"geo_name"`
}

// valueTimeFormats covers the timestamp shapes ESIOS emits: RFC3339
// with and without fractional seconds, and the occasional "Z" form.
var valueTimeFormats = []string{
	"2006-01-02T15:04:05.000-07:00",
	time.RFC3339,
	"2006-01-02T15:04:05.000Z",
}

// Time returns the data point's timestamp in UTC, preferring the
// explicit datetime_utc field.
func (v Value) Time() (time.Time, error) {
	raw := v.DatetimeUTC
	if raw == "" {
		raw = v.Datetime
	}
	for _, layout := range valueTimeFormats {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable value timestamp %q", raw)
}

// Indicator is the metadata record for an indicator or offer
// indicator. Values is populated only on data requests.
type Indicator struct {
	ID          int     `json:"id"`
	Name        string  `json:"name"`
	ShortName   string  `json:"short_name"`
	Description string  `json:"description"`
	StepType    string  `json:"step_type"`
	Geos        []Geo   `json:"geos"`
	Values      []Value `json:"values"`
}

// IndicatorResponse is the envelope for a single-indicator request.
type IndicatorResponse struct {
	Indicator Indicator `json:"indicator"`
}

// IndicatorsResponse is the envelope for the catalogue listing.
type IndicatorsResponse struct {
	Indicators []Indicator `json:"indicators"`
}

// ArchiveDownload carries the relative download path of an archive.
type ArchiveDownload struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// ArchiveDate carries the publication date of a daily archive.
type ArchiveDate struct {
	Date string `json:"date"`
}

// Archive is the metadata record for a downloadable file bundle.
// Horizon describes the publication cadence ("D" daily, "M" monthly).
type Archive struct {
	ID          int              `json:"id"`
	Name        string           `json:"name"`
	Horizon     string           `json:"horizon"`
	ArchiveType string           `json:"archive_type"`
	Download    *ArchiveDownload `json:"download"`
	Date        *ArchiveDate     `json:"date"`
	DateTimes   []string         `json:"date_times"`
}

// ArchiveResponse is the envelope for a single-archive request.
type ArchiveResponse struct {
	Archive Archive `json:"archive"`
}

// ArchivesResponse is the envelope for the archive catalogue.
type ArchivesResponse struct {
	Archives []Archive `json:"archives"`
}
