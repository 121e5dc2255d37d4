package resilience

import "time"

// StateVersion is the schema version of the health file. Files with any
// other version are ignored.
const StateVersion = 1

// Circuit states.
const (
	CircuitClosed   = "closed"
	CircuitOpen     = "open"
	CircuitHalfOpen = "half_open"
)

// State is the persisted health of the booking API.
type State struct {
	Version int `json:"version"`

	Circuit CircuitState `json:"circuit"`

	// RetryAfterUntil is set from a 429's Retry-After header. No request is
	// sent before it passes.
	RetryAfterUntil time.Time `json:"retry_after_until"`

	UpdatedAt time.Time `json:"updated_at"`
}

// CircuitState counts consecutive outcomes.
type CircuitState struct {
	State     string    `json:"state"`
	Failures  int       `json:"failures"`
	Successes int       `json:"successes"`
	OpenedAt  time.Time `json:"opened_at"`
}

// NewState returns a closed, unblocked state.
func NewState() *State {
	return &State{Version: StateVersion, Circuit: CircuitState{State: CircuitClosed}}
}

func (c *CircuitState) open(now time.Time) {
	c.State = CircuitOpen
	c.OpenedAt = now
	c.Successes = 0
}

func (c *CircuitState) close() {
	*c = CircuitState{State: CircuitClosed}
}
