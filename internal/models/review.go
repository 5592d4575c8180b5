package models

// ReviewItem is one orphan queued for manual review.
type ReviewItem struct {
	Side     Side
	RecordID string
	Title    string
	// BestCandidateID is the counterpart of the strongest near miss, if any.
	BestCandidateID string
	BestConfidence  float64
	BestCategory    MatchCategory
	Attempts        int
	Priority        int
	Reason          string
}
