package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Record is one notice or artifact as handed over by an upstream collector.
// Field probing never fails: absent or mistyped values report ok=false.
type Record struct {
	ID     string
	Fields map[string]any
}

// NewRecord builds a Record, taking the ID from the "id" field when present.
func NewRecord(fields map[string]any) Record {
	r := Record{Fields: fields}
	if id, ok := r.Text("id"); ok {
		r.ID = id
	}
	return r
}

// Value returns the raw value stored under the first present key.
func (r Record) Value(keys ...string) (any, bool) {
	if r.Fields == nil {
		return nil, false
	}
	for _, key := range keys {
		if v, ok := r.Fields[key]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

// Text returns the first non-blank textual value among keys.
func (r Record) Text(keys ...string) (string, bool) {
	for _, key := range keys {
		v, ok := r.Value(key)
		if !ok {
			continue
		}
		if s, ok := asText(v); ok {
			return s, true
		}
	}
	return "", false
}

// List returns the first list-shaped value among keys. Delimited strings
// (comma or semicolon) are accepted as lists.
func (r Record) List(keys ...string) ([]string, bool) {
	for _, key := range keys {
		v, ok := r.Value(key)
		if !ok {
			continue
		}
		if items, ok := asList(v); ok && len(items) > 0 {
			return items, true
		}
	}
	return nil, false
}

// Block returns a nested key/value block as a Record.
func (r Record) Block(key string) (Record, bool) {
	v, ok := r.Value(key)
	if !ok {
		return Record{}, false
	}
	switch block := v.(type) {
	case map[string]any:
		return Record{ID: r.ID, Fields: block}, true
	case map[string]string:
		fields := make(map[string]any, len(block))
		for k, val := range block {
			fields[k] = val
		}
		return Record{ID: r.ID, Fields: fields}, true
	case Record:
		return block, true
	}
	return Record{}, false
}

func asText(v any) (string, bool) {
	switch val := v.(type) {
	case string:
		s := strings.TrimSpace(val)
		return s, s != ""
	case fmt.Stringer:
		s := strings.TrimSpace(val.String())
		return s, s != ""
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), true
	case int:
		return strconv.Itoa(val), true
	case int64:
		return strconv.FormatInt(val, 10), true
	}
	return "", false
}

func asList(v any) ([]string, bool) {
	switch val := v.(type) {
	case []string:
		return compact(val), true
	case []any:
		items := make([]string, 0, len(val))
		for _, item := range val {
			if s, ok := asText(item); ok {
				items = append(items, s)
			}
		}
		return items, true
	case string:
		sep := ","
		if strings.Contains(val, ";") {
			sep = ";"
		}
		return compact(strings.Split(val, sep)), true
	}
	return nil, false
}

func compact(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Field keys read from notice records, in priority order.
var (
	NoticeTimestampKeys   = []string{"timestamp", "start_time", "start", "datetime", "date", "received_at", "sent_at", "created_at"}
	NoticeTitleKeys       = []string{"title", "subject", "summary", "name"}
	NoticeBodyKeys        = []string{"description", "body", "content"}
	NoticeParticipantKeys = []string{"participants", "attendees", "invitees", "recipients", "to"}
	MetadataTimestampKeys = []string{"timestamp", "start_time", "start", "datetime", "date"}
)

// Field keys read from artifact records.
var (
	ArtifactFilenameKeys    = []string{"filename", "file_name", "name"}
	ArtifactTitleKeys       = []string{"title"}
	ArtifactContentKeys     = []string{"content", "body", "text"}
	ArtifactParticipantKeys = []string{"participants", "attendees"}
)

// Notice is the typed view over a notice record.
type Notice struct {
	Record
}

// Title returns the subject line of the notice.
func (n Notice) Title() (string, bool) { return n.Text(NoticeTitleKeys...) }

// Body returns descriptive text, used when the notice has no title.
func (n Notice) Body() (string, bool) { return n.Text(NoticeBodyKeys...) }

// TimestampValues returns timestamp candidates: top-level keys first, then
// the metadata block.
func (n Notice) TimestampValues() []any {
	values := make([]any, 0, 2)
	for _, key := range NoticeTimestampKeys {
		if v, ok := n.Value(key); ok {
			values = append(values, v)
		}
	}
	if meta, ok := n.Block("metadata"); ok {
		for _, key := range MetadataTimestampKeys {
			if v, ok := meta.Value(key); ok {
				values = append(values, v)
			}
		}
	}
	return values
}

// Participants returns the raw participant values (emails or names).
func (n Notice) Participants() ([]string, bool) { return n.List(NoticeParticipantKeys...) }

// Artifact is the typed view over an artifact record.
type Artifact struct {
	Record
}

// Filename returns the document filename.
func (a Artifact) Filename() (string, bool) { return a.Text(ArtifactFilenameKeys...) }

// Title returns the document title.
func (a Artifact) Title() (string, bool) { return a.Text(ArtifactTitleKeys...) }

// Metadata returns the structured metadata block.
func (a Artifact) Metadata() (Record, bool) { return a.Block("metadata") }

// Content returns the document body.
func (a Artifact) Content() (string, bool) { return a.Text(ArtifactContentKeys...) }

// MetadataParticipants returns participants listed in the metadata block.
func (a Artifact) MetadataParticipants() ([]string, bool) {
	meta, ok := a.Metadata()
	if !ok {
		return nil, false
	}
	return meta.List(ArtifactParticipantKeys...)
}

// TimeValue is satisfied by values already holding a parsed instant.
func TimeValue(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, !t.IsZero()
	case *time.Time:
		if t == nil {
			return time.Time{}, false
		}
		return *t, !t.IsZero()
	}
	return time.Time{}, false
}
