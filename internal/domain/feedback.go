package domain

import (
	"encoding/json"
	"time"
)

// ClassificationRecord is one persisted classification outcome.
type ClassificationRecord struct {
	ID           int64
	TicketID     string
	Title        string
	Client       string
	Channel      string
	Priority     Priority
	Urgency      Urgency
	Impact       Impact
	Confidence   float64
	ModelUsed    string
	ClassifiedAt time.Time
}

// FeedbackEntry is a human correction of a classification. Append-only.
// Corrected values are kept as the JSON the reviewer sent.
type FeedbackEntry struct {
	ID              int64                      `json:"id"`
	TicketID        string                     `json:"ticketId"`
	CorrectedFields map[string]json.RawMessage `json:"correctedFields"`
	Comment         string                     `json:"comment"`
	CreatedAt       time.Time                  `json:"createdAt"`
}

type ClassificationStats struct {
	TotalClassifications int     `json:"total_classifications"`
	TotalFeedback        int     `json:"total_feedback"`
	AvgConfidence        float64 `json:"avg_confidence"`
	HeuristicCount       int     `json:"heuristic_count"`
	BucketBelow50        int     `json:"bucket_below_50"`
	Bucket50to70         int     `json:"bucket_50_70"`
	Bucket70to90         int     `json:"bucket_70_90"`
	Bucket90Plus         int     `json:"bucket_90_plus"`
}
