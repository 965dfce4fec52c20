package profiler

import (
	"time"

	"github.com/google/uuid"
)

// Token correlates a Start call with its matching Stop call.
// Tokens are random UUIDs and are never reused; the zero Token is never issued.
type Token uuid.UUID

func newToken() Token {
	return Token(uuid.New())
}

// String returns the canonical UUID form of the token
func (t Token) String() string {
	return uuid.UUID(t).String()
}

// IsZero reports whether t is the zero Token
func (t Token) IsZero() bool {
	return uuid.UUID(t) == uuid.Nil
}

// ParseToken parses the String form of a token
func ParseToken(s string) (Token, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return Token{}, err
	}
	return Token(id), nil
}

// Event is one timed span of work.
//
// While running, EndTime is zero and Duration is 0. Stop sets both exactly
// once; after that the event is immutable.
type Event struct {
	Name      string    `json:"name" yaml:"name"`
	StartTime time.Time `json:"start_time" yaml:"start_time"`
	EndTime   time.Time `json:"end_time,omitempty" yaml:"end_time,omitempty"`
	// Duration is the total elapsed time in microseconds
	Duration int64 `json:"duration_us" yaml:"duration_us"`
}

// Finished reports whether the event has been stopped
func (e Event) Finished() bool {
	return !e.EndTime.IsZero()
}

// Elapsed returns Duration as a time.Duration
func (e Event) Elapsed() time.Duration {
	return time.Duration(e.Duration) * time.Microsecond
}

// finish records the end time. The full elapsed time is kept, not only the
// sub-second part.
func (e *Event) finish(end time.Time) {
	if end.Before(e.StartTime) {
		// wall clock stepped backwards
		end = e.StartTime
	}
	e.EndTime = end
	e.Duration = end.Sub(e.StartTime).Microseconds()
}
