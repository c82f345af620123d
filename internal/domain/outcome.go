package domain

import "fmt"

type OutcomeStatus string

const (
	OutcomeIngested OutcomeStatus = "ingested"
	OutcomeSkipped  OutcomeStatus = "skipped"
	OutcomeFailed   OutcomeStatus = "failed"
)

// Outcome is the result of processing one product URL.
type Outcome struct {
	URL       string        `json:"url"`
	Status    OutcomeStatus `json:"status"`
	ProductID int64         `json:"product_id,omitempty"`
	Err       error         `json:"-"`
}

// Summary aggregates outcomes of one run.
type Summary struct {
	Discovered int `json:"discovered"`
	Ingested   int `json:"ingested"`
	Skipped    int `json:"skipped"`
	Failed     int `json:"failed"`
}

func (s *Summary) Add(o Outcome) {
	switch o.Status {
	case OutcomeIngested:
		s.Ingested++
	case OutcomeSkipped:
		s.Skipped++
	case OutcomeFailed:
		s.Failed++
	}
}

func (s Summary) String() string {
	return fmt.Sprintf("discovered=%d ingested=%d skipped=%d failed=%d",
		s.Discovered, s.Ingested, s.Skipped, s.Failed)
}
