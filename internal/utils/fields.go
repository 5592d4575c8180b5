package utils

import (
	"log/slog"
	"time"
)

// Log attribute keys shared across packages.
const (
	FieldRunID      = "run_id"
	FieldNoticeID   = "notice_id"
	FieldArtifactID = "artifact_id"
	FieldStrategy   = "strategy"
	FieldMatcher    = "matcher"
	FieldField      = "field"
	FieldDuration   = "duration_ms"
	FieldError      = "error"
)

// RunID returns a slog attribute for the correlation run id.
func RunID(id string) slog.Attr { return slog.String(FieldRunID, id) }

// NoticeID returns a slog attribute for a notice record id.
func NoticeID(id string) slog.Attr { return slog.String(FieldNoticeID, id) }

// ArtifactID returns a slog attribute for an artifact record id.
func ArtifactID(id string) slog.Attr { return slog.String(FieldArtifactID, id) }

// Strategy returns a slog attribute for the fusion strategy.
func Strategy(name string) slog.Attr { return slog.String(FieldStrategy, name) }

// Matcher returns a slog attribute naming a matcher.
func Matcher(name string) slog.Attr { return slog.String(FieldMatcher, name) }

// Field returns a slog attribute naming a record field.
func Field(name string) slog.Attr { return slog.String(FieldField, name) }

// Duration returns a slog attribute for a duration in milliseconds.
func Duration(d time.Duration) slog.Attr { return slog.Int64(FieldDuration, d.Milliseconds()) }

// Error returns a slog attribute for an error.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(FieldError, "")
	}
	return slog.String(FieldError, err.Error())
}
