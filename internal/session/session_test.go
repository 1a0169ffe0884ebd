package session

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/pmallott/wordsearch/internal/gesture"
	"github.com/pmallott/wordsearch/internal/grid"
)

var testCal = gesture.Calibration{OriginX: 0, OriginY: 0, Stride: 40}

func testConfig(seed int64) Config {
	return Config{
		Calibration: testCal,
		Rand:        rand.New(rand.NewSource(seed)),
	}
}

func cellCenter(c grid.Cell) gesture.Point {
	return gesture.Point{
		X: (float64(c.Col) + 0.5) * testCal.Stride,
		Y: (float64(c.Row) + 0.5) * testCal.Stride,
	}
}

// traceWord drives the gesture API along a placement's path. The final
// sample is placed just past the last cell center along the drag direction
// so the projected span lands exactly on the word length for diagonals too.
func traceWord(s *Session, path []grid.Cell) gesture.MatchResult {
	start := cellCenter(path[0])
	s.BeginGesture(start)

	n := len(path)
	dr := float64(path[1].Row - path[0].Row)
	dc := float64(path[1].Col - path[0].Col)
	norm := math.Hypot(dr, dc)
	dist := (float64(n-1) + 0.2) * testCal.Stride
	s.UpdateGesture(gesture.Point{
		X: start.X + dist*dc/norm,
		Y: start.Y + dist*dr/norm,
	})
	return s.EndGesture()
}

func findPlacement(t *testing.T, s *Session, word string) grid.WordPlacement {
	t.Helper()
	for _, p := range s.Placements() {
		if p.Word == word {
			return p
		}
	}
	t.Fatalf("placement %q missing", word)
	return grid.WordPlacement{}
}

func TestFixedListScenario(t *testing.T) {
	s := New(testConfig(1))
	if err := s.StartFixedList([]string{"CAT", "DOG"}); err != nil {
		t.Fatalf("start: %v", err)
	}
	if got := len(s.Placements()); got != 2 {
		t.Fatalf("expected 2 placements, got %d", got)
	}

	cat := findPlacement(t, s, "CAT")
	if res := traceWord(s, cat.Path); !res.Matched || res.Word != "CAT" {
		t.Fatalf("CAT trace: %+v", res)
	}
	if s.State() != StateActive {
		t.Fatalf("one of two words found, state = %v", s.State())
	}

	dog := findPlacement(t, s, "DOG")
	if res := traceWord(s, dog.Path); !res.Matched || res.Word != "DOG" {
		t.Fatalf("DOG trace: %+v", res)
	}
	if s.State() != StateComplete {
		t.Fatalf("all words found, state = %v", s.State())
	}
}

func TestFixedListReverseTrace(t *testing.T) {
	s := New(testConfig(2))
	if err := s.StartFixedList([]string{"CAT"}); err != nil {
		t.Fatalf("start: %v", err)
	}
	p := findPlacement(t, s, "CAT")
	reversed := []grid.Cell{p.Path[2], p.Path[1], p.Path[0]}
	if res := traceWord(s, reversed); !res.Matched || res.Word != "CAT" {
		t.Fatalf("reverse trace: %+v", res)
	}
}

func TestDailyLimitRefusal(t *testing.T) {
	cfg := testConfig(3)
	cfg.AlreadyPlayed = func(m Mode) bool { return m == ModeFixedList }
	s := New(cfg)

	err := s.StartFixedList([]string{"CAT"})
	if !errors.Is(err, ErrDailyLimit) {
		t.Fatalf("expected ErrDailyLimit, got %v", err)
	}
	if s.State() != StateIdle {
		t.Fatalf("refused start changed state to %v", s.State())
	}

	// Sequential is a different mode and is still allowed.
	if err := s.StartSequential([]Question{{Answer: "CAT"}}); err != nil {
		t.Fatalf("sequential start: %v", err)
	}
}

func TestStartWhileActiveRefused(t *testing.T) {
	s := New(testConfig(4))
	if err := s.StartFixedList([]string{"CAT"}); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := s.StartFixedList([]string{"DOG"}); !errors.Is(err, ErrSessionActive) {
		t.Fatalf("expected ErrSessionActive, got %v", err)
	}
}

func TestTickExpiryForcesComplete(t *testing.T) {
	s := New(testConfig(5))
	if err := s.StartFixedList([]string{"CAT"}); err != nil {
		t.Fatalf("start: %v", err)
	}
	s.Tick(599)
	if s.State() != StateActive {
		t.Fatal("completed early")
	}
	s.Tick(1)
	if s.State() != StateComplete {
		t.Fatalf("timer hit zero, state = %v", s.State())
	}
	if s.Remaining() != 0 {
		t.Fatalf("remaining = %d, want 0", s.Remaining())
	}
}

func TestSequentialFullRunScoring(t *testing.T) {
	// Five rounds, all answered, no hint, no ticks consumed:
	// xp = round(5 * 80 * (1 + 0.5*1) * 1) = 600.
	questions := []Question{
		{Answer: "CAT"}, {Answer: "DOG"}, {Answer: "SUN"},
		{Answer: "MAP"}, {Answer: "FOX"}, {Answer: "SPARE"},
	}
	s := New(testConfig(6))
	if err := s.StartSequential(questions); err != nil {
		t.Fatalf("start: %v", err)
	}

	for round := 0; round < 5; round++ {
		q, ok := s.CurrentQuestion()
		if !ok {
			t.Fatalf("round %d: no current question", round)
		}
		p := findPlacement(t, s, q.Answer)
		if res := traceWord(s, p.Path); !res.Matched {
			t.Fatalf("round %d: trace of %q did not match", round, q.Answer)
		}
	}

	// Round cap is 5 even though the pool has 6 questions.
	if s.State() != StateComplete {
		t.Fatalf("state after 5 rounds = %v", s.State())
	}
	if s.RoundsCompleted() != 5 {
		t.Fatalf("roundsCompleted = %d", s.RoundsCompleted())
	}

	r := s.Finish()
	want := Result{XPEarned: 600, WordsFound: 5, Total: 5}
	if r != want {
		t.Fatalf("result = %+v, want %+v", r, want)
	}
}

func TestSequentialPreservesTimerAcrossRounds(t *testing.T) {
	s := New(testConfig(7))
	if err := s.StartSequential([]Question{{Answer: "CAT"}, {Answer: "DOG"}}); err != nil {
		t.Fatalf("start: %v", err)
	}
	s.Tick(100)

	p := findPlacement(t, s, "CAT")
	if res := traceWord(s, p.Path); !res.Matched {
		t.Fatal("CAT not matched")
	}
	if s.State() != StateActive {
		t.Fatalf("state = %v, want active for round 2", s.State())
	}
	if s.Remaining() != 500 {
		t.Fatalf("remaining = %d, want 500 preserved across rounds", s.Remaining())
	}
	if _, ok := findNoFail(s, "DOG"); !ok {
		t.Fatal("round 2 grid does not hold DOG")
	}
}

func findNoFail(s *Session, word string) (grid.WordPlacement, bool) {
	for _, p := range s.Placements() {
		if p.Word == word {
			return p, true
		}
	}
	return grid.WordPlacement{}, false
}

func TestHintHalvesScore(t *testing.T) {
	s := New(testConfig(8))
	err := s.StartSequential([]Question{{Answer: "CAT", Clue: "feline", Hint: "purrs"}})
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	hint, ok := s.UseHint()
	if !ok || hint != "purrs" {
		t.Fatalf("UseHint = %q, %v", hint, ok)
	}
	// Repeat call is a no-op returning the same hint.
	if again, ok := s.UseHint(); !ok || again != hint {
		t.Fatalf("second UseHint = %q, %v", again, ok)
	}

	p := findPlacement(t, s, "CAT")
	if res := traceWord(s, p.Path); !res.Matched {
		t.Fatal("CAT not matched")
	}

	r := s.Finish()
	// round(1 * 80 * 1.5 * 0.5) = 60.
	if r.XPEarned != 60 {
		t.Fatalf("xp = %d, want 60", r.XPEarned)
	}
}

func TestHintRefusedInFixedList(t *testing.T) {
	s := New(testConfig(9))
	if err := s.StartFixedList([]string{"CAT"}); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, ok := s.UseHint(); ok {
		t.Fatal("hint allowed in fixed-list mode")
	}
}

func TestFixedListScoringWithElapsedTime(t *testing.T) {
	s := New(testConfig(10))
	if err := s.StartFixedList([]string{"CAT", "DOG"}); err != nil {
		t.Fatalf("start: %v", err)
	}
	s.Tick(300) // half the ceiling gone

	for _, w := range []string{"CAT", "DOG"} {
		p := findPlacement(t, s, w)
		if res := traceWord(s, p.Path); !res.Matched {
			t.Fatalf("%s not matched", w)
		}
	}

	r := s.Finish()
	// round(2 * 40 * (1 + 0.5*300/600)) = round(100) = 100.
	want := Result{XPEarned: 100, WordsFound: 2, Total: 2}
	if r != want {
		t.Fatalf("result = %+v, want %+v", r, want)
	}
}

func TestFinishIdempotent(t *testing.T) {
	s := New(testConfig(11))
	if err := s.StartFixedList([]string{"CAT"}); err != nil {
		t.Fatalf("start: %v", err)
	}
	p := findPlacement(t, s, "CAT")
	traceWord(s, p.Path)

	first := s.Finish()
	s.Tick(100) // must not alter the recorded result
	second := s.Finish()
	if first != second {
		t.Fatalf("finish not idempotent: %+v then %+v", first, second)
	}
}

func TestResetReturnsToIdle(t *testing.T) {
	s := New(testConfig(12))
	if err := s.StartFixedList([]string{"CAT"}); err != nil {
		t.Fatalf("start: %v", err)
	}
	s.Reset()
	if s.State() != StateIdle {
		t.Fatalf("state = %v, want idle", s.State())
	}
	if err := s.StartFixedList([]string{"DOG"}); err != nil {
		t.Fatalf("restart after reset: %v", err)
	}
}

func TestSequentialEmptyPoolRefused(t *testing.T) {
	s := New(testConfig(13))
	if err := s.StartSequential(nil); !errors.Is(err, ErrNoQuestions) {
		t.Fatalf("expected ErrNoQuestions, got %v", err)
	}
}
