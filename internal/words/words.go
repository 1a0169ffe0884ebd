// internal/words/words.go
//
// Provides puzzle content for the word-search engine.
//
// Responsibilities:
//   - Load the fixed-list word pool from an environment-provided file or
//     fall back to the embedded default.
//   - Load the sequential-mode question pool (answer/clue/hint JSON) the
//     same way.
//   - Supply helpers to draw a word set or question order for one session.
//
// Constraints:
//   • Words are normalized to uppercase and must be 3-8 letters A-Z;
//     anything else is silently skipped (content is not dictionary-checked).
//   • Question answers are normalized the same way; questions with an
//     invalid answer are skipped.
//   • Initialization runs once (sync.Once).
//
// Environment variables:
//   WORDS_FILE=/path/to/words.txt         (one word per line, # comments)
//   QUESTIONS_FILE=/path/to/questions.json

package words

import (
	"bufio"
	"encoding/json"
	"errors"
	"math/rand"
	"os"
	"strings"
	"sync"

	"github.com/pmallott/wordsearch/assets"
	"github.com/pmallott/wordsearch/internal/session"
)

const (
	minWordLen = 3
	maxWordLen = 8
)

var (
	initOnce   sync.Once
	pool       []string
	questions  []session.Question
	initialErr error
)

// Init loads word and question pools exactly once. Returns an error if
// either pool ends up empty.
func Init() error {
	initOnce.Do(func() {
		var list []string
		if path := os.Getenv("WORDS_FILE"); path != "" {
			var err error
			list, err = readWordFile(path)
			if err != nil {
				initialErr = err
				return
			}
		} else {
			raw, err := assets.WordList()
			if err != nil {
				initialErr = err
				return
			}
			list = filterWords(raw)
		}
		pool = list

		var data []byte
		if path := os.Getenv("QUESTIONS_FILE"); path != "" {
			var err error
			data, err = os.ReadFile(path)
			if err != nil {
				initialErr = err
				return
			}
		} else {
			var err error
			data, err = assets.QuestionData()
			if err != nil {
				initialErr = err
				return
			}
		}
		qs, err := parseQuestions(data)
		if err != nil {
			initialErr = err
			return
		}
		questions = qs

		if len(pool) == 0 {
			initialErr = errors.New("words: word pool is empty")
		} else if len(questions) == 0 {
			initialErr = errors.New("words: question pool is empty")
		}
	})
	return initialErr
}

// Words returns the fixed-list word pool (uppercase, 3-8 letters).
func Words() []string { return pool }

// Questions returns the sequential-mode question pool.
func Questions() []session.Question { return questions }

// Stats returns pool sizes: (words, questions).
func Stats() (wordCount, questionCount int) {
	return len(pool), len(questions)
}

// Pick draws n distinct words from the pool starting at index start
// (wrapping around). Deterministic for a fixed (start, n), which is what
// the daily puzzle needs.
func Pick(start, n int) []string {
	if len(pool) == 0 || n <= 0 {
		return nil
	}
	if n > len(pool) {
		n = len(pool)
	}
	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, pool[(start+i)%len(pool)])
	}
	return out
}

// ShuffledQuestions returns a copy of the question pool in rng order.
func ShuffledQuestions(rng *rand.Rand) []session.Question {
	out := make([]session.Question, len(questions))
	copy(out, questions)
	rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}

// readWordFile loads one word per line, skipping blanks and # comments.
func readWordFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var raw []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		s := strings.TrimSpace(sc.Text())
		if s == "" || strings.HasPrefix(s, "#") {
			continue
		}
		raw = append(raw, s)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return filterWords(raw), nil
}

// filterWords uppercases and keeps only valid puzzle words.
func filterWords(in []string) []string {
	var out []string
	for _, w := range in {
		w = strings.ToUpper(strings.TrimSpace(w))
		if len(w) >= minWordLen && len(w) <= maxWordLen && isUpperAlpha(w) {
			out = append(out, w)
		}
	}
	return out
}

// parseQuestions decodes the JSON question pool, normalizing answers and
// dropping entries whose answer is not a valid puzzle word.
func parseQuestions(data []byte) ([]session.Question, error) {
	var raw []session.Question
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	var out []session.Question
	for _, q := range raw {
		q.Answer = strings.ToUpper(strings.TrimSpace(q.Answer))
		if len(q.Answer) >= minWordLen && len(q.Answer) <= maxWordLen && isUpperAlpha(q.Answer) {
			out = append(out, q)
		}
	}
	return out, nil
}

// isUpperAlpha reports whether s is all uppercase ASCII letters.
func isUpperAlpha(s string) bool {
	for _, r := range s {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}
