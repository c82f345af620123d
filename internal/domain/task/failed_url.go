package task

type FailedURLTask struct {
	RunID        string `json:"run_id"`        // Run that recorded the failure
	URL          string `json:"url"`           // Product URL that failed
	Site         string `json:"site"`          // Site config path the URL belongs to
	Error        string `json:"error"`         // Error message from the failure
	FailureStage string `json:"failure_stage"` // "fetch", "extract" or "ingest"
}

func (t *FailedURLTask) TaskType() string {
	return "FailedURLTask"
}

func (t *FailedURLTask) TaskValue() ([]byte, error) {
	return DefaultTaskValue(t)
}
