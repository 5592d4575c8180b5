package api

import (
	"time"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/miradorstack/meeting-correlator/internal/models"
	"github.com/miradorstack/meeting-correlator/internal/utils"
)

// FromStructRequest maps a Correlate request document into a domain request.
// "notices" and "artifacts" must be lists of objects when present; strategy
// and minConfidence are optional.
func FromStructRequest(req *structpb.Struct) (models.CorrelationRequest, error) {
	const op = "api.FromStructRequest"
	if req == nil {
		return models.CorrelationRequest{}, utils.InvalidInput(op, "request is nil")
	}
	fields := req.GetFields()

	notices, err := recordList(op, fields, "notices")
	if err != nil {
		return models.CorrelationRequest{}, err
	}
	artifacts, err := recordList(op, fields, "artifacts")
	if err != nil {
		return models.CorrelationRequest{}, err
	}
	out := models.CorrelationRequest{Notices: notices, Artifacts: artifacts}

	if v, ok := fields["strategy"]; ok {
		name, isString := v.GetKind().(*structpb.Value_StringValue)
		if !isString {
			return models.CorrelationRequest{}, utils.InvalidInput(op, "strategy must be a string")
		}
		s, err := models.ParseStrategy(name.StringValue)
		if err != nil {
			return models.CorrelationRequest{}, utils.InvalidInput(op, "%v", err)
		}
		out.Strategy = &s
	}

	for _, key := range []string{"minConfidence", "min_confidence"} {
		v, ok := fields[key]
		if !ok {
			continue
		}
		num, isNumber := v.GetKind().(*structpb.Value_NumberValue)
		if !isNumber {
			return models.CorrelationRequest{}, utils.InvalidInput(op, "%s must be a number", key)
		}
		threshold := num.NumberValue
		out.MinConfidence = &threshold
		break
	}
	return out, nil
}

func recordList(op string, fields map[string]*structpb.Value, key string) ([]models.Record, error) {
	v, ok := fields[key]
	if !ok {
		return nil, nil
	}
	if _, isNull := v.GetKind().(*structpb.Value_NullValue); isNull {
		return nil, nil
	}
	list := v.GetListValue()
	if list == nil {
		return nil, utils.InvalidInput(op, "%s must be a list", key)
	}
	records := make([]models.Record, 0, len(list.GetValues()))
	for i, item := range list.GetValues() {
		obj := item.GetStructValue()
		if obj == nil {
			return nil, utils.InvalidInput(op, "%s[%d] must be an object", key, i)
		}
		records = append(records, models.NewRecord(obj.AsMap()))
	}
	return records, nil
}

// ToStructRun renders a correlation run as a response document.
func ToStructRun(run models.CorrelationRun) (*structpb.Struct, error) {
	return structpb.NewStruct(RunDocument(run))
}

// RunDocument renders a correlation run as JSON-compatible maps.
func RunDocument(run models.CorrelationRun) map[string]any {
	entities := make([]any, 0, len(run.Entities))
	for _, e := range run.Entities {
		entities = append(entities, entityDocument(e))
	}
	review := make([]any, 0, len(run.Review))
	for _, r := range run.Review {
		review = append(review, reviewDocument(r))
	}
	return map[string]any{
		"runId":         run.RunID,
		"strategy":      run.Strategy.String(),
		"minConfidence": run.MinConfidence,
		"entities":      entities,
		"orphans": map[string]any{
			"notices":   orphanDocuments(run.NoticeOrphans),
			"artifacts": orphanDocuments(run.ArtifactOrphans),
		},
		"review":  review,
		"metrics": metricsDocument(run.Metrics),
	}
}

func entityDocument(e models.CorrelatedEntity) map[string]any {
	doc := map[string]any{
		"id":           e.ID,
		"title":        e.Title,
		"participants": anyList(e.Participants),
		"content":      e.Content,
		"noticeId":     e.Sources.NoticeID,
		"artifactId":   e.Sources.ArtifactID,
		"match":        matchDocument(e.Match, true),
	}
	if !e.Timestamp.IsZero() {
		doc["timestamp"] = e.Timestamp.UTC().Format(time.RFC3339)
	}
	return doc
}

func matchDocument(m models.CorrelationMatch, withExplanation bool) map[string]any {
	doc := map[string]any{
		"noticeId":   m.NoticeID,
		"artifactId": m.ArtifactID,
		"category":   m.Category.String(),
		"confidence": m.Confidence,
		"strategy":   m.Strategy.String(),
		"components": map[string]any{
			"temporal":    m.Components.Temporal,
			"participant": m.Components.Participant,
			"content":     m.Components.Content,
		},
	}
	if withExplanation {
		doc["explanation"] = explanationDocument(m.Explanation)
	}
	return doc
}

func explanationDocument(ex models.Explanation) map[string]any {
	doc := map[string]any{}
	if t := ex.Temporal; t != nil {
		temporal := map[string]any{
			"noticeTime":   t.NoticeTime.UTC().Format(time.RFC3339),
			"artifactTime": t.ArtifactTime.UTC().Format(time.RFC3339),
			"deltaSeconds": t.Delta.Seconds(),
			"source":       t.ArtifactSource,
		}
		if t.AssumedUTC != "" {
			temporal["assumedUtc"] = t.AssumedUTC
		}
		doc["temporal"] = temporal
	}
	if p := ex.Participant; p != nil {
		pairs := make([]any, 0, len(p.Pairs))
		for _, pair := range p.Pairs {
			pairs = append(pairs, map[string]any{
				"notice":     pair.Notice,
				"artifact":   pair.Artifact,
				"similarity": pair.Similarity,
			})
		}
		doc["participant"] = map[string]any{
			"pairs":         pairs,
			"overlap":       p.Overlap,
			"noticeCount":   p.NoticeCount,
			"artifactCount": p.ArtifactCount,
		}
	}
	if c := ex.Content; c != nil {
		doc["content"] = map[string]any{
			"noticeText":      c.NoticeText,
			"artifactText":    c.ArtifactText,
			"sharedKeywords":  anyList(c.SharedKeywords),
			"sequence":        c.Sequence,
			"jaccard":         c.Jaccard,
			"weightedOverlap": c.WeightedOverlap,
			"meetingType":     c.MeetingType,
			"similarity":      c.Similarity,
		}
	}
	return doc
}

func orphanDocuments(orphans []models.OrphanRecord) []any {
	out := make([]any, 0, len(orphans))
	for _, o := range orphans {
		attempts := make([]any, 0, len(o.Attempts))
		for _, a := range o.Attempts {
			attempts = append(attempts, matchDocument(a, false))
		}
		out = append(out, map[string]any{
			"side":     o.Side.String(),
			"recordId": o.RecordID,
			"index":    o.Index,
			"title":    o.Title,
			"reason":   o.Reason,
			"attempts": attempts,
		})
	}
	return out
}

func reviewDocument(r models.ReviewItem) map[string]any {
	doc := map[string]any{
		"side":     r.Side.String(),
		"recordId": r.RecordID,
		"title":    r.Title,
		"attempts": r.Attempts,
		"priority": r.Priority,
		"reason":   r.Reason,
	}
	if r.BestCandidateID != "" {
		doc["bestCandidateId"] = r.BestCandidateID
		doc["bestConfidence"] = r.BestConfidence
		doc["bestCategory"] = r.BestCategory.String()
	}
	return doc
}

func metricsDocument(m models.CorrelationMetrics) map[string]any {
	byCategory := map[string]any{}
	for _, c := range models.Categories {
		byCategory[c.String()] = m.ByCategory[c]
	}
	side := func(s models.SideCounts) map[string]any {
		return map[string]any{"total": s.Total, "matched": s.Matched, "orphaned": s.Orphaned}
	}
	return map[string]any{
		"notices":        side(m.Notices),
		"artifacts":      side(m.Artifacts),
		"byCategory":     byCategory,
		"meanConfidence": m.MeanConfidence,
		"durationMs":     float64(m.Duration.Microseconds()) / 1000,
		"accuracy":       m.Accuracy,
		"strategy":       m.Strategy.String(),
		"minConfidence":  m.MinConfidence,
	}
}

// anyList converts to the []any form structpb expects.
func anyList(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
