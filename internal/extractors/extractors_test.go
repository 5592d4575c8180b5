package extractors

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/miradorstack/meeting-correlator/internal/lexicon"
	"github.com/miradorstack/meeting-correlator/internal/models"
	"github.com/miradorstack/meeting-correlator/internal/utils"
)

func notice(fields map[string]any) models.Notice {
	return models.Notice{Record: models.NewRecord(fields)}
}

func artifact(fields map[string]any) models.Artifact {
	return models.Artifact{Record: models.NewRecord(fields)}
}

func TestSplitFilename(t *testing.T) {
	parts := SplitFilename("David _ Charlie - 2025_06_24 08_48 PDT - Notes by Gemini.docx")
	require.NotNil(t, parts.Stamp)
	assert.Equal(t, "2025", parts.Stamp.Year)
	assert.Equal(t, "48", parts.Stamp.Minute)
	assert.Equal(t, "PDT", parts.Stamp.Zone)
	assert.Equal(t, []string{"David", "Charlie"}, parts.Names)

	titled := SplitFilename("Team Sync Notes - 2025_06_24 08_48 - Notes by Gemini")
	assert.Equal(t, "Team Sync Notes", titled.Lead)
	assert.Empty(t, titled.Names)
	assert.Empty(t, titled.Stamp.Zone)

	evening := SplitFilename("Standup - 2025_06_24 08_48 PM - Notes")
	require.NotNil(t, evening.Stamp)
	assert.Equal(t, "PM", evening.Stamp.Meridiem)
	assert.Empty(t, evening.Stamp.Zone)

	morning := SplitFilename("Standup - 2025_06_24 08_48 am PDT")
	require.NotNil(t, morning.Stamp)
	assert.Equal(t, "AM", morning.Stamp.Meridiem)
	assert.Equal(t, "PDT", morning.Stamp.Zone)

	plain := SplitFilename("random.pdf")
	assert.Nil(t, plain.Stamp)
	assert.Equal(t, "random", plain.Lead)
}

func TestNoticeTimeFormats(t *testing.T) {
	e := NewTimeExtractor(nil, time.UTC, utils.NopLogger())
	want := time.Date(2025, 6, 24, 8, 46, 0, 0, time.UTC)

	cases := map[string]map[string]any{
		"rfc3339":        {"timestamp": "2025-06-24T08:46:00Z"},
		"offset":         {"start_time": "2025-06-24T10:46:00+02:00"},
		"email header":   {"sent_at": "Tue, 24 Jun 2025 08:46:00 +0000"},
		"naive":          {"start": "2025-06-24 08:46"},
		"time value":     {"timestamp": want},
		"epoch":          {"timestamp": float64(want.Unix())},
		"metadata block": {"metadata": map[string]any{"start_time": "2025-06-24T08:46:00Z"}},
		"malformed then valid": {
			"timestamp":  "not a time",
			"start_time": "2025-06-24T08:46:00Z",
		},
	}
	for name, fields := range cases {
		t.Run(name, func(t *testing.T) {
			ts, ok := e.NoticeTime(notice(fields))
			require.True(t, ok)
			assert.True(t, want.Equal(ts.Time), "got %s", ts.Time)
		})
	}
}

func TestNoticeTimeAbsent(t *testing.T) {
	e := NewTimeExtractor(nil, nil, utils.NopLogger())
	_, ok := e.NoticeTime(notice(map[string]any{"title": "status update"}))
	assert.False(t, ok)

	_, ok = e.NoticeTime(notice(map[string]any{"timestamp": []any{"x"}}))
	assert.False(t, ok)
}

func TestArtifactTimeFromFilenameAssumesUTCForUnknownAbbreviation(t *testing.T) {
	e := NewTimeExtractor(nil, time.UTC, utils.NopLogger())
	ts, ok := e.ArtifactTime(artifact(map[string]any{"filename": "Team Sync - 2025_06_24 08_48 PDT - Notes by Gemini"}))
	require.True(t, ok)
	assert.Equal(t, SourceFilename, ts.Source)
	assert.Equal(t, "PDT", ts.AssumedUTC)
	assert.True(t, time.Date(2025, 6, 24, 8, 48, 0, 0, time.UTC).Equal(ts.Time))
}

func TestArtifactTimeWithConfiguredAbbreviation(t *testing.T) {
	f := lexicon.DefaultFile()
	f.TimezoneAbbreviations = map[string]string{"PDT": "-07:00"}
	e := NewTimeExtractor(lexicon.New(f), time.UTC, utils.NopLogger())

	ts, ok := e.ArtifactTime(artifact(map[string]any{"filename": "Team Sync - 2025_06_24 08_48 PDT"}))
	require.True(t, ok)
	assert.Empty(t, ts.AssumedUTC)
	assert.True(t, time.Date(2025, 6, 24, 15, 48, 0, 0, time.UTC).Equal(ts.Time))
}

func TestArtifactTimeTwelveHourStamp(t *testing.T) {
	e := NewTimeExtractor(nil, time.UTC, utils.NopLogger())

	ts, ok := e.ArtifactTime(artifact(map[string]any{"filename": "Standup - 2025_06_24 08_48 PM - Notes"}))
	require.True(t, ok)
	assert.Equal(t, SourceFilename, ts.Source)
	assert.Empty(t, ts.AssumedUTC)
	assert.True(t, time.Date(2025, 6, 24, 20, 48, 0, 0, time.UTC).Equal(ts.Time))

	ts, ok = e.ArtifactTime(artifact(map[string]any{"filename": "Standup - 2025_06_24 12_05 AM"}))
	require.True(t, ok)
	assert.True(t, time.Date(2025, 6, 24, 0, 5, 0, 0, time.UTC).Equal(ts.Time))
}

func TestArtifactTimeMetadataFallbacks(t *testing.T) {
	e := NewTimeExtractor(nil, time.UTC, utils.NopLogger())

	ts, ok := e.ArtifactTime(artifact(map[string]any{
		"filename": "notes.docx",
		"metadata": map[string]any{"date": "2025-06-24", "time": "09:30"},
	}))
	require.True(t, ok)
	assert.Equal(t, SourceMetadata, ts.Source)
	assert.True(t, time.Date(2025, 6, 24, 9, 30, 0, 0, time.UTC).Equal(ts.Time))

	ts, ok = e.ArtifactTime(artifact(map[string]any{
		"metadata": map[string]any{"date": "2025-06-24", "time": "25:99"},
	}))
	require.True(t, ok)
	assert.Equal(t, SourceMetadataDate, ts.Source)
	assert.True(t, time.Date(2025, 6, 24, 0, 0, 0, 0, time.UTC).Equal(ts.Time))

	ts, ok = e.ArtifactTime(artifact(map[string]any{
		"metadata": map[string]any{"date": "2025-06-24T15:30:00Z"},
	}))
	require.True(t, ok)
	assert.Equal(t, SourceMetadataDate, ts.Source)
	assert.True(t, time.Date(2025, 6, 24, 0, 0, 0, 0, time.UTC).Equal(ts.Time))

	ts, ok = e.ArtifactTime(artifact(map[string]any{"filename": "Offsite - 2025_06_24"}))
	require.True(t, ok)
	assert.Equal(t, SourceFilenameDate, ts.Source)
	assert.True(t, time.Date(2025, 6, 24, 0, 0, 0, 0, time.UTC).Equal(ts.Time))

	_, ok = e.ArtifactTime(artifact(map[string]any{"title": "Q2 Budget Review"}))
	assert.False(t, ok)
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "David", DisplayName("david@co.com"))
	assert.Equal(t, "Mary Jane Watson", DisplayName("mary.jane_watson+cal@co.com"))
	assert.Equal(t, "David Chen", DisplayName("David Chen <dchen@co.com>"))
	assert.Equal(t, "Alice", DisplayName("Alice"))
	assert.Equal(t, "Bob", DisplayName("bob42@co.com"))
}

func TestParticipantNormalization(t *testing.T) {
	e := NewParticipantExtractor(nil, utils.NopLogger())
	assert.Equal(t, "david", e.Normalize("Dave"))
	assert.Equal(t, "jose obrien", e.Normalize("José O'Brien"))
	assert.Equal(t, "mary jane", e.Normalize("Mary-Jane"))
	assert.Empty(t, e.Normalize("  ...  "))
}

func TestParticipantsFromNoticeAndArtifact(t *testing.T) {
	e := NewParticipantExtractor(nil, utils.NopLogger())

	people := e.FromNotice(notice(map[string]any{
		"participants": []any{"david@co.com", "charlie@co.com", "dave@co.com"},
	}))
	require.Len(t, people, 2, "dave and david collapse to one identity")
	assert.Equal(t, "david", people[0].Normalized)
	assert.Equal(t, "charles", people[1].Normalized)

	fromMeta := e.FromArtifact(artifact(map[string]any{
		"metadata": map[string]any{"participants": []string{"David", "Charlie"}},
	}))
	require.Len(t, fromMeta, 2)

	fromName := e.FromArtifact(artifact(map[string]any{
		"filename": "Alice Smith _ Bob - 2025_06_24 08_48 PDT - Notes by Gemini",
	}))
	require.Len(t, fromName, 2)
	assert.Equal(t, "smith", fromName[0].Last())
	assert.Equal(t, "", fromName[1].Last())

	assert.Empty(t, e.FromNotice(notice(map[string]any{"participants": 42})))
}

func TestTextNormalizeAndKeywords(t *testing.T) {
	a := NewTextAnalyzer(nil)

	assert.Equal(t, "weekly team sync", a.Normalize("Re: Meeting: Weekly Team Sync!"))
	assert.Equal(t, "oneonone with alice", a.Normalize("Invitation: 1:1 w/ Alice"))
	assert.Equal(t, "team sync", a.Normalize("Team Sync - Notes by Gemini"))

	kw := a.Keywords(a.Normalize("Weekly Team Sync"))
	assert.Equal(t, []string{"team", "sync"}, kw.Terms)
	assert.Equal(t, "sync", kw.MeetingType)
	assert.InDelta(t, 1.5, kw.Weights["sync"], 1e-9)

	retro := a.Keywords(a.Normalize("Sprint Retro"))
	assert.Equal(t, "retrospective", retro.MeetingType)
	assert.InDelta(t, 1.5*1.2, retro.Weights["retrospective"], 1e-9)
}

func TestArtifactTextFallbacks(t *testing.T) {
	a := NewTextAnalyzer(nil)

	text, ok := a.ArtifactText(artifact(map[string]any{"filename": "Budget Review - 2025_06_24 08_48 PDT - Notes by Gemini"}))
	require.True(t, ok)
	assert.Equal(t, "Budget Review", text)

	_, ok = a.ArtifactText(artifact(map[string]any{"filename": "Alice _ Bob - 2025_06_24 08_48"}))
	assert.False(t, ok, "participant blocks are not titles")

	text, ok = a.ArtifactText(artifact(map[string]any{"content": "Kickoff for project Atlas\nmore lines"}))
	require.True(t, ok)
	assert.Equal(t, "Kickoff for project Atlas", text)
}
