// internal/session/session.go
//
// Session controller: composes the grid generator and the gesture
// recognizer into one puzzle lifecycle (idle → active → complete).
// Responsibilities:
//   - Start refusal when a daily limit denies play or a session is active.
//   - Mode rules: fixed word list vs. sequential one-word rounds.
//   - Countdown bookkeeping driven by an external clock via Tick.
//   - Scoring on finish, idempotent (the first computed result sticks).
//
// Every public entry point takes the session mutex, so a tick firing while
// a gesture update is mid-flight still applies as one indivisible state
// transition.

package session

import (
	"errors"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/pmallott/wordsearch/internal/gesture"
	"github.com/pmallott/wordsearch/internal/grid"
)

var (
	// ErrDailyLimit means the daily-limit predicate denied play for the
	// requested mode. Expected and recoverable; callers branch on it.
	ErrDailyLimit = errors.New("session: daily limit reached")

	// ErrSessionActive means start was called while a session is running.
	ErrSessionActive = errors.New("session: already active")

	// ErrNoQuestions means sequential mode was started with an empty pool.
	ErrNoQuestions = errors.New("session: empty question pool")
)

// Session is the aggregate root owning one puzzle at a time.
type Session struct {
	mu  sync.Mutex
	cfg Config

	mode  Mode
	state State

	gen   *grid.Generator
	board *grid.Grid
	words []*grid.WordPlacement
	rec   *gesture.Recognizer

	remaining       int
	roundsCompleted int

	questions     []Question
	round         int
	plannedRounds int
	hintUsed      bool

	result *Result
}

// New constructs an idle session. Multiple sessions can coexist (useful in
// tests); a host typically keeps one per player.
func New(cfg Config) *Session {
	cfg = cfg.withDefaults()
	rng := cfg.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Session{
		cfg:   cfg,
		state: StateIdle,
		gen:   grid.NewGenerator(rng),
	}
}

// StartFixedList begins a fixed-list session over the given words.
func (s *Session) StartFixedList(words []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.refuseStart(ModeFixedList); err != nil {
		return err
	}
	s.mode = ModeFixedList
	s.questions = nil
	s.beginPuzzle(words)
	return nil
}

// StartSequential begins a sequential session over the question pool. At
// most RoundCap rounds are played even if the pool is larger.
func (s *Session) StartSequential(questions []Question) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.refuseStart(ModeSequential); err != nil {
		return err
	}
	if len(questions) == 0 {
		return ErrNoQuestions
	}
	s.mode = ModeSequential
	s.questions = questions
	s.plannedRounds = len(questions)
	if s.plannedRounds > s.cfg.RoundCap {
		s.plannedRounds = s.cfg.RoundCap
	}
	s.round = 0
	s.beginPuzzle([]string{questions[0].Answer})
	return nil
}

func (s *Session) refuseStart(mode Mode) error {
	if s.state == StateActive {
		return ErrSessionActive
	}
	if s.cfg.AlreadyPlayed != nil && s.cfg.AlreadyPlayed(mode) {
		return ErrDailyLimit
	}
	return nil
}

// beginPuzzle resets per-session counters and generates the first grid.
// Caller holds the mutex.
func (s *Session) beginPuzzle(words []string) {
	s.board, s.words = s.gen.Generate(words, s.cfg.GridSize)
	s.rec = gesture.NewRecognizer(s.cfg.Calibration, s.cfg.GridSize)
	s.remaining = s.cfg.TimeCeiling
	s.roundsCompleted = 0
	s.hintUsed = false
	s.result = nil
	s.state = StateActive
}

// Tick applies elapsed countdown ticks from the host clock. Reaching zero
// forces completion regardless of an in-progress selection.
func (s *Session) Tick(elapsed int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateActive || elapsed <= 0 {
		return
	}
	s.remaining -= elapsed
	if s.remaining <= 0 {
		s.remaining = 0
		s.state = StateComplete
	}
}

// BeginGesture anchors a pointer gesture. Samples outside the grid are
// ignored.
func (s *Session) BeginGesture(p gesture.Point) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateActive {
		return
	}
	s.rec.Begin(p)
}

// UpdateGesture extends the gesture and returns the cells currently traced.
func (s *Session) UpdateGesture(p gesture.Point) []grid.Cell {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateActive {
		return nil
	}
	s.rec.Update(p)
	return s.rec.Selection()
}

// Selection returns the cells currently traced by the in-flight gesture.
func (s *Session) Selection() []grid.Cell {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rec == nil {
		return nil
	}
	return s.rec.Selection()
}

// EndGesture finishes the gesture and applies mode rules on a match:
// fixed-list completes when every word is found; sequential advances to the
// next round (new grid, timer and round counter preserved) up to the cap.
func (s *Session) EndGesture() gesture.MatchResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateActive {
		return gesture.MatchResult{}
	}
	res := s.rec.End(s.words)
	if !res.Matched {
		return res
	}

	switch s.mode {
	case ModeFixedList:
		if s.allFound() {
			s.state = StateComplete
		}
	case ModeSequential:
		s.roundsCompleted++
		if s.roundsCompleted >= s.plannedRounds || s.remaining == 0 {
			s.state = StateComplete
			break
		}
		s.round++
		s.board, s.words = s.gen.Generate([]string{s.questions[s.round].Answer}, s.cfg.GridSize)
		s.rec = gesture.NewRecognizer(s.cfg.Calibration, s.cfg.GridSize)
	}
	return res
}

func (s *Session) allFound() bool {
	for _, w := range s.words {
		if !w.Found {
			return false
		}
	}
	return true
}

// UseHint reveals the current round's hint in sequential mode and flags the
// session for the reduced score multiplier. Calling it again returns the
// same hint without further penalty; other modes report ok=false.
func (s *Session) UseHint() (hint string, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateActive || s.mode != ModeSequential {
		return "", false
	}
	s.hintUsed = true
	return s.questions[s.round].Hint, true
}

// Finish computes the score record and transitions to complete. Idempotent:
// a second call returns the already-computed result unchanged.
func (s *Session) Finish() Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.result != nil {
		return *s.result
	}

	frac := float64(s.remaining) / float64(s.cfg.TimeCeiling)
	var r Result
	switch s.mode {
	case ModeSequential:
		r.WordsFound = s.roundsCompleted
		r.Total = s.plannedRounds
		mult := 1.0
		if s.hintUsed {
			mult = 0.5
		}
		r.XPEarned = int(math.Round(float64(r.WordsFound) * 80 * (1 + 0.5*frac) * mult))
	default:
		for _, w := range s.words {
			if w.Found {
				r.WordsFound++
			}
		}
		r.Total = len(s.words)
		r.XPEarned = int(math.Round(float64(r.WordsFound) * 40 * (1 + 0.5*frac)))
	}

	s.result = &r
	s.state = StateComplete
	return r
}

// Reset discards the puzzle and returns the session to idle.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateIdle
	s.mode = ""
	s.board = nil
	s.words = nil
	s.rec = nil
	s.questions = nil
	s.round = 0
	s.plannedRounds = 0
	s.roundsCompleted = 0
	s.remaining = 0
	s.hintUsed = false
	s.result = nil
}

// ----------------------------- accessors -----------------------------------

// State reports the lifecycle phase.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Mode reports the active mode ("" when idle since creation).
func (s *Session) Mode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// GridRows returns the board letters, one string per row.
func (s *Session) GridRows() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.board == nil {
		return nil
	}
	return s.board.Rows()
}

// Placements returns copies of the word placements (words and found state).
func (s *Session) Placements() []grid.WordPlacement {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]grid.WordPlacement, len(s.words))
	for i, w := range s.words {
		out[i] = *w
	}
	return out
}

// Remaining reports countdown ticks left.
func (s *Session) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remaining
}

// RoundsCompleted reports sequential rounds answered so far.
func (s *Session) RoundsCompleted() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.roundsCompleted
}

// CurrentQuestion returns the active sequential round's question text.
func (s *Session) CurrentQuestion() (Question, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mode != ModeSequential || s.round >= len(s.questions) {
		return Question{}, false
	}
	return s.questions[s.round], true
}
