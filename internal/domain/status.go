package domain

// FetchStatus aggregates the outcome of one acquisition cycle. A single
// failed sub-fetch marks the cycle unsuccessful but never aborts siblings;
// every failure leaves a human-readable message for the dashboard.
type FetchStatus struct {
	Success  bool
	Messages []string

	// Per-symbol counts for the crypto universe fetch.
	Cached  int
	Fetched int
	Failed  int
}

// NewFetchStatus returns a status with no recorded failures.
func NewFetchStatus() *FetchStatus {
	return &FetchStatus{Success: true}
}

// Fail records a failure message and marks the cycle unsuccessful.
func (s *FetchStatus) Fail(msg string) {
	s.Success = false
	s.Messages = append(s.Messages, msg)
}
