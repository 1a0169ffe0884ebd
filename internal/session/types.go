// internal/session/types.go
//
// Type definitions for puzzle sessions.
// Defines:
//   - Mode: fixed-list vs. sequential play.
//   - State: idle / active / complete lifecycle.
//   - Question: one sequential-mode round (answer + pass-through text).
//   - Result: the score record handed back on finish.
//   - Config: host-supplied wiring (calibration, clock ceiling, limits).

package session

import (
	"math/rand"

	"github.com/pmallott/wordsearch/internal/gesture"
)

// Mode selects the session rules.
type Mode string

const (
	// ModeFixedList hides every target word in one grid; the session ends
	// when all are found or time runs out.
	ModeFixedList Mode = "fixed-list"

	// ModeSequential plays quiz-driven one-word rounds, several per session.
	ModeSequential Mode = "sequential"
)

// State is the session lifecycle phase.
type State string

const (
	StateIdle     State = "idle"
	StateActive   State = "active"
	StateComplete State = "complete"
)

// Question is one sequential-mode round. Only Answer drives placement;
// Clue and Hint are surfaced to the host for display.
type Question struct {
	Answer string `json:"answer"`
	Clue   string `json:"clue"`
	Hint   string `json:"hint"`
}

// Result is the score record computed by Finish.
type Result struct {
	XPEarned   int `json:"xpEarned"`
	WordsFound int `json:"wordsFound"`
	Total      int `json:"total"`
}

// Config wires a session to its host. Zero-value fields fall back to the
// defaults below.
type Config struct {
	GridSize    int                 // board dimension; default 8
	TimeCeiling int                 // countdown ticks per session; default 600
	RoundCap    int                 // max sequential rounds; default 5
	Calibration gesture.Calibration // pixel mapping for pointer samples
	Rand        *rand.Rand          // placement randomness; default time-seeded

	// AlreadyPlayed is the daily-limit predicate, consulted only at start.
	// Nil means no limit. The session never tracks calendar dates itself.
	AlreadyPlayed func(Mode) bool
}

const (
	defaultGridSize    = 8
	defaultTimeCeiling = 600
	defaultRoundCap    = 5
)

func (c Config) withDefaults() Config {
	if c.GridSize <= 0 {
		c.GridSize = defaultGridSize
	}
	if c.TimeCeiling <= 0 {
		c.TimeCeiling = defaultTimeCeiling
	}
	if c.RoundCap <= 0 {
		c.RoundCap = defaultRoundCap
	}
	return c
}
