package extractors

import (
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/miradorstack/meeting-correlator/internal/lexicon"
	"github.com/miradorstack/meeting-correlator/internal/models"
	"github.com/miradorstack/meeting-correlator/internal/utils"
)

// Artifact timestamp sources, in preference order.
const (
	SourceFilename     = "filename"
	SourceMetadata     = "metadata"
	SourceMetadataDate = "metadata-date"
	SourceFilenameDate = "filename-date"
)

var zonedLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	time.RFC1123Z,
	time.RFC822Z,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"2006-01-02T15:04:05-0700",
	"2006-01-02 15:04:05-07:00",
	"2006-01-02 15:04:05 -0700",
}

var naiveLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"Mon, 2 Jan 2006 15:04:05",
	"Mon, 02 Jan 2006 15:04:05",
	"2 Jan 2006 15:04:05",
	"02 Jan 06 15:04",
	"01/02/2006 15:04",
	"01/02/2006 3:04 PM",
	"January 2, 2006 3:04 PM",
}

var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	"January 2, 2006",
}

// Timestamp is a resolved instant with its provenance.
type Timestamp struct {
	Time   time.Time
	Source string
	// AssumedUTC holds the unresolved zone abbreviation, if UTC was assumed.
	AssumedUTC string
}

// TimeExtractor pulls best-effort timestamps out of records and normalises
// them to the reference location.
type TimeExtractor struct {
	reference *time.Location
	zones     map[string]*time.Location
	logger    *slog.Logger
}

// NewTimeExtractor builds an extractor. Configured abbreviations that do not
// resolve are dropped with a warning.
func NewTimeExtractor(lex *lexicon.Lexicon, reference *time.Location, logger *slog.Logger) *TimeExtractor {
	if lex == nil {
		lex = lexicon.Default()
	}
	if reference == nil {
		reference = time.UTC
	}
	if logger == nil {
		logger = slog.Default()
	}
	e := &TimeExtractor{reference: reference, zones: make(map[string]*time.Location), logger: logger}
	for abbr, target := range lex.Zones() {
		loc, err := resolveTarget(abbr, target)
		if err != nil {
			logger.Warn("ignoring timezone abbreviation", slog.String("abbreviation", abbr), utils.Error(err))
			continue
		}
		e.zones[abbr] = loc
	}
	return e
}

// NoticeTime resolves the notice timestamp from its checked fields, then its
// metadata block.
func (e *TimeExtractor) NoticeTime(n models.Notice) (Timestamp, bool) {
	for _, v := range n.TimestampValues() {
		ts, err := e.parseValue(v, e.reference)
		if err != nil {
			e.logger.Debug("skipping malformed notice timestamp", utils.NoticeID(n.ID), utils.Error(err))
			continue
		}
		ts.Source = "notice"
		return ts, true
	}
	return Timestamp{}, false
}

// ArtifactTime resolves the artifact timestamp: filename stamp, structured
// metadata date/time, then date-only fallbacks at day start.
func (e *TimeExtractor) ArtifactTime(a models.Artifact) (Timestamp, bool) {
	var parts FilenameParts
	if filename, ok := a.Filename(); ok {
		parts = SplitFilename(filename)
		if parts.Stamp.HasClock() {
			ts, err := e.fromStamp(parts.Stamp)
			if err == nil {
				return ts, true
			}
			e.logger.Debug("skipping malformed filename stamp", utils.ArtifactID(a.ID), utils.Error(err))
		}
	}

	meta, hasMeta := a.Metadata()
	zone := e.reference
	assumed := ""
	if hasMeta {
		if tz, ok := meta.Text("timezone", "tz", "time_zone"); ok {
			zone, assumed = e.resolveZone(tz)
		}
		if v, ok := meta.Value("datetime", "timestamp", "start_time", "start"); ok {
			ts, err := e.parseValue(v, zone)
			if err == nil {
				ts.Source = SourceMetadata
				if ts.AssumedUTC == "" {
					ts.AssumedUTC = assumed
				}
				return ts, true
			}
			e.logger.Debug("skipping malformed metadata timestamp", utils.ArtifactID(a.ID), utils.Error(err))
		}
		date, hasDate := meta.Text("date")
		if clock, ok := meta.Text("time"); ok && hasDate {
			ts, err := e.parseValue(date+" "+clock, zone)
			if err == nil {
				ts.Source = SourceMetadata
				if ts.AssumedUTC == "" {
					ts.AssumedUTC = assumed
				}
				return ts, true
			}
			e.logger.Debug("skipping malformed metadata date/time", utils.ArtifactID(a.ID), utils.Error(err))
		}
		if hasDate {
			if day, err := parseDate(date, zone); err == nil {
				return Timestamp{Time: day.In(e.reference), Source: SourceMetadataDate, AssumedUTC: assumed}, true
			}
			e.logger.Debug("skipping malformed metadata date", utils.ArtifactID(a.ID), utils.Field("metadata.date"))
		}
	}

	if parts.Stamp != nil && !parts.Stamp.HasClock() {
		day, err := parseDate(parts.Stamp.Year+"-"+parts.Stamp.Month+"-"+parts.Stamp.Day, e.reference)
		if err == nil {
			return Timestamp{Time: day, Source: SourceFilenameDate}, true
		}
	}
	return Timestamp{}, false
}

func (e *TimeExtractor) fromStamp(s *FilenameStamp) (Timestamp, error) {
	value := fmt.Sprintf("%s-%s-%s %s:%s", s.Year, s.Month, s.Day, s.Hour, s.Minute)
	layout := "2006-01-02 15:04"
	if s.Second != "" {
		value += ":" + s.Second
		layout += ":05"
	}
	if s.Meridiem != "" {
		layout = strings.Replace(layout, "15", "03", 1) + " PM"
		value += " " + s.Meridiem
	}
	loc, assumed := e.resolveZone(s.Zone)
	t, err := time.ParseInLocation(layout, value, loc)
	if err != nil {
		return Timestamp{}, fmt.Errorf("parse filename stamp: %w", err)
	}
	return Timestamp{Time: t.In(e.reference), Source: SourceFilename, AssumedUTC: assumed}, nil
}

// parseValue converts a raw field value. Zone-less values are read in loc.
func (e *TimeExtractor) parseValue(v any, loc *time.Location) (Timestamp, error) {
	if t, ok := models.TimeValue(v); ok {
		return Timestamp{Time: t.In(e.reference)}, nil
	}
	switch val := v.(type) {
	case float64:
		return e.fromEpoch(val)
	case int:
		return e.fromEpoch(float64(val))
	case int64:
		return e.fromEpoch(float64(val))
	case string:
		return e.parseString(val, loc)
	}
	return Timestamp{}, fmt.Errorf("unsupported timestamp type %T", v)
}

func (e *TimeExtractor) fromEpoch(v float64) (Timestamp, error) {
	if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return Timestamp{}, fmt.Errorf("invalid epoch value %v", v)
	}
	if v > 1e12 {
		v /= 1000
	}
	sec, frac := math.Modf(v)
	return Timestamp{Time: time.Unix(int64(sec), int64(frac*1e9)).In(e.reference)}, nil
}

func (e *TimeExtractor) parseString(raw string, loc *time.Location) (Timestamp, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return Timestamp{}, fmt.Errorf("empty timestamp")
	}
	// Bare numbers below 1e8 are more likely compact dates than epochs.
	if epoch, err := strconv.ParseFloat(value, 64); err == nil && epoch >= 1e8 {
		return e.fromEpoch(epoch)
	}
	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return Timestamp{Time: t.In(e.reference)}, nil
		}
	}

	// A trailing alphabetic token is a zone name or abbreviation.
	assumed := ""
	if head, zone, ok := splitZoneSuffix(value); ok {
		var zl *time.Location
		zl, assumed = e.resolveZone(zone)
		value, loc = head, zl
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return Timestamp{Time: t.In(e.reference), AssumedUTC: assumed}, nil
		}
	}
	if day, err := parseDate(value, loc); err == nil {
		return Timestamp{Time: day.In(e.reference), AssumedUTC: assumed}, nil
	}
	return Timestamp{}, fmt.Errorf("unrecognised timestamp %q", raw)
}

func parseDate(value string, loc *time.Location) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t, nil
		}
	}
	// A full timestamp in a date field still only contributes its day.
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return utils.StartOfDay(t, loc), nil
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", value)
}

// splitZoneSuffix splits "2025-06-24 08:48 PDT" into value and zone.
func splitZoneSuffix(value string) (string, string, bool) {
	idx := strings.LastIndexByte(value, ' ')
	if idx <= 0 {
		return value, "", false
	}
	token := value[idx+1:]
	if strings.EqualFold(token, "AM") || strings.EqualFold(token, "PM") {
		return value, "", false
	}
	for _, r := range token {
		if !unicode.IsLetter(r) && r != '/' && r != '_' {
			return value, "", false
		}
	}
	return strings.TrimSpace(value[:idx]), token, true
}

// resolveZone maps a zone token to a location. Unknown abbreviations resolve
// to UTC and are reported back so callers can surface the assumption.
func (e *TimeExtractor) resolveZone(token string) (*time.Location, string) {
	token = strings.TrimSpace(token)
	switch strings.ToUpper(token) {
	case "":
		return e.reference, ""
	case "Z", "UTC", "GMT":
		return time.UTC, ""
	}
	if loc, ok := e.zones[strings.ToUpper(token)]; ok {
		return loc, ""
	}
	if strings.Contains(token, "/") {
		if loc, err := time.LoadLocation(token); err == nil {
			return loc, ""
		}
	}
	e.logger.Debug("unresolved timezone abbreviation, assuming UTC", slog.String("abbreviation", token))
	return time.UTC, token
}

// resolveTarget turns a configured abbreviation target into a location.
func resolveTarget(abbr, target string) (*time.Location, error) {
	if target == "" {
		return nil, fmt.Errorf("empty target for %s", abbr)
	}
	if target[0] == '+' || target[0] == '-' {
		offset, err := parseOffset(target)
		if err != nil {
			return nil, err
		}
		return time.FixedZone(abbr, offset), nil
	}
	return time.LoadLocation(target)
}

func parseOffset(value string) (int, error) {
	t, err := time.Parse("-07:00", value)
	if err != nil {
		t, err = time.Parse("-0700", value)
		if err != nil {
			return 0, fmt.Errorf("invalid offset %q", value)
		}
	}
	_, offset := t.Zone()
	return offset, nil
}
