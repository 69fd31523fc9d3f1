package application

import "time"

// Layouts used when stamping reports and chat turns.
const (
	ReportTimestampLayout = "2006-01-02 15:04:05"
	TurnTimestampLayout   = "15:04:05"
)

// Clock interface supaya gampang ditest
type Clock interface {
	Now() time.Time
}

// SystemClock implementasi default, pakai time.Now()
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// FixedClock always returns T.
type FixedClock struct{ T time.Time }

func (c FixedClock) Now() time.Time { return c.T }
