package domain

import "time"

// CycleOutcome classifies how a query cycle ended.
type CycleOutcome string

const (
	OutcomeSuccess   CycleOutcome = "success"
	OutcomeInvalid   CycleOutcome = "invalid"
	OutcomeHTTPError CycleOutcome = "http_error"
	OutcomeError     CycleOutcome = "error"
)

// Cycle is the journal record of one finished query cycle. It carries
// metadata only; prompts and responses are never stored.
type Cycle struct {
	ID            string
	Provider      string
	Model         string
	Outcome       CycleOutcome
	HTTPStatus    int
	TokenEstimate int
	DurationMS    int64
	FrameKey      string
	Error         string
	StartedAt     time.Time
}
