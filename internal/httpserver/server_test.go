package httpserver

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pmallott/wordsearch/internal/session"
	"github.com/pmallott/wordsearch/internal/store"
	"github.com/pmallott/wordsearch/internal/words"
)

// newTestServer runs without a database; persistence is best-effort and
// skipped, which is exactly what these tests want.
func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	if err := words.Init(); err != nil {
		t.Fatalf("words.Init: %v", err)
	}
	s := New(store.NewMemoryStore(), nil)
	ts := httptest.NewServer(s.Router())
	t.Cleanup(ts.Close)
	return ts
}

func postJSON(t *testing.T, ts *httptest.Server, path string, body any, out any) *http.Response {
	t.Helper()
	b, _ := json.Marshal(body)
	resp, err := http.Post(ts.URL+path, "application/json", bytes.NewReader(b))
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s: %v", path, err)
		}
	}
	return resp
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)
	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

// findWordPaths scans the returned grid for every straight-line occurrence
// of word, so the test can trace a gesture without knowing the placement.
func findWordPaths(rows []string, word string) [][2]int {
	size := len(rows)
	dirs := [8][2]int{{0, 1}, {1, 1}, {1, 0}, {1, -1}, {0, -1}, {-1, -1}, {-1, 0}, {-1, 1}}
	var paths [][2]int // flattened (start, end) pairs
	for r := 0; r < size; r++ {
		for c := 0; c < size; c++ {
			for _, d := range dirs {
				er, ec := r+d[0]*(len(word)-1), c+d[1]*(len(word)-1)
				if er < 0 || er >= size || ec < 0 || ec >= size {
					continue
				}
				ok := true
				for i := 0; i < len(word); i++ {
					if rows[r+d[0]*i][c+d[1]*i] != word[i] {
						ok = false
						break
					}
				}
				if ok {
					paths = append(paths, [2]int{r, c}, [2]int{er, ec})
				}
			}
		}
	}
	return paths
}

func TestPuzzleFlowFixedList(t *testing.T) {
	ts := newTestServer(t)

	var created newPuzzleRes
	postJSON(t, ts, "/puzzle/new", map[string]any{
		"mode":        "fixed-list",
		"words":       []string{"CAT", "DOG"},
		"calibration": map[string]float64{"originX": 0, "originY": 0, "stride": 40},
	}, &created)

	if created.PuzzleID == "" || len(created.Grid) != 8 {
		t.Fatalf("unexpected puzzle: %+v", created)
	}
	if len(created.Words) != 2 {
		t.Fatalf("expected 2 target words, got %v", created.Words)
	}

	matched := traceAnyOccurrence(t, ts, created.PuzzleID, created.Grid, "CAT")
	if !matched {
		t.Fatal("no CAT trace matched")
	}

	// Finish twice; both calls must return the identical record.
	var first, second map[string]int
	postJSON(t, ts, "/puzzle/finish", map[string]string{"puzzleId": created.PuzzleID}, &first)
	postJSON(t, ts, "/puzzle/finish", map[string]string{"puzzleId": created.PuzzleID}, &second)
	if first["xpEarned"] != second["xpEarned"] || first["wordsFound"] != second["wordsFound"] {
		t.Fatalf("finish not idempotent: %v then %v", first, second)
	}
	if first["wordsFound"] != 1 || first["total"] != 2 {
		t.Fatalf("unexpected result: %v", first)
	}
}

// traceAnyOccurrence tries a begin/move/end gesture along each straight-line
// occurrence of word until one matches the recorded placement.
func traceAnyOccurrence(t *testing.T, ts *httptest.Server, id string, rows []string, word string) bool {
	t.Helper()
	pairs := findWordPaths(rows, word)
	if len(pairs) == 0 {
		t.Fatalf("%s not findable in grid %v", word, rows)
	}
	const stride = 40.0
	for i := 0; i < len(pairs); i += 2 {
		start, end := pairs[i], pairs[i+1]
		sx := (float64(start[1]) + 0.5) * stride
		sy := (float64(start[0]) + 0.5) * stride
		// Sample just past the final cell center so diagonal projections
		// still span exactly len(word) cells.
		n := float64(len(word) - 1)
		dr := float64(end[0]-start[0]) / n
		dc := float64(end[1]-start[1]) / n
		norm := math.Hypot(dr, dc)
		dist := (n + 0.2) * stride

		postJSON(t, ts, "/puzzle/gesture", map[string]any{
			"puzzleId": id, "phase": "begin", "x": sx, "y": sy,
		}, nil)
		postJSON(t, ts, "/puzzle/gesture", map[string]any{
			"puzzleId": id, "phase": "move", "x": sx + dist*dc/norm, "y": sy + dist*dr/norm,
		}, nil)
		var res gestureRes
		postJSON(t, ts, "/puzzle/gesture", map[string]any{
			"puzzleId": id, "phase": "end",
		}, &res)
		if res.Matched {
			if res.Word != word {
				t.Fatalf("matched %q, want %q", res.Word, word)
			}
			return true
		}
	}
	return false
}

func TestPuzzleTickExpires(t *testing.T) {
	ts := newTestServer(t)

	var created newPuzzleRes
	postJSON(t, ts, "/puzzle/new", map[string]any{
		"mode":  "fixed-list",
		"words": []string{"CAT"},
	}, &created)

	var ticked tickRes
	postJSON(t, ts, "/puzzle/tick", map[string]any{
		"puzzleId": created.PuzzleID, "elapsed": 600,
	}, &ticked)
	if ticked.State != "complete" || ticked.Remaining != 0 {
		t.Fatalf("after full elapse: %+v", ticked)
	}
}

func TestSequentialPuzzleHasClueAndHint(t *testing.T) {
	ts := newTestServer(t)

	var created newPuzzleRes
	postJSON(t, ts, "/puzzle/new", map[string]any{"mode": "sequential"}, &created)
	if created.Clue == "" {
		t.Fatalf("sequential puzzle missing clue: %+v", created)
	}
	if len(created.Words) != 0 {
		t.Fatalf("sequential puzzle must not reveal the answer: %v", created.Words)
	}

	var h hintRes
	resp := postJSON(t, ts, "/puzzle/hint", map[string]string{"puzzleId": created.PuzzleID}, &h)
	if resp.StatusCode != http.StatusOK || h.Hint == "" {
		t.Fatalf("hint: status %d, %+v", resp.StatusCode, h)
	}
}

func TestHintRefusedForFixedList(t *testing.T) {
	ts := newTestServer(t)

	var created newPuzzleRes
	postJSON(t, ts, "/puzzle/new", map[string]any{
		"mode": "fixed-list", "words": []string{"CAT"},
	}, &created)

	b, _ := json.Marshal(map[string]string{"puzzleId": created.PuzzleID})
	resp, err := http.Post(ts.URL+"/puzzle/hint", "application/json", bytes.NewReader(b))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("status = %d, want 409", resp.StatusCode)
	}
}

func TestUnknownPuzzleIs404(t *testing.T) {
	ts := newTestServer(t)
	b, _ := json.Marshal(map[string]any{"puzzleId": "nope", "elapsed": 1})
	resp, err := http.Post(ts.URL+"/puzzle/tick", "application/json", bytes.NewReader(b))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

func TestDebugWords(t *testing.T) {
	ts := newTestServer(t)
	resp, err := http.Get(ts.URL + "/debug/words")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var counts map[string]int
	if err := json.NewDecoder(resp.Body).Decode(&counts); err != nil {
		t.Fatal(err)
	}
	if counts["words"] == 0 || counts["questions"] == 0 {
		t.Fatalf("empty pools: %v", counts)
	}
}

// newSchemaDB opens an in-memory SQLite database with the real schema.
func newSchemaDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	schema, err := os.ReadFile("../../sql/001_init.sql")
	if err != nil {
		t.Fatalf("read schema: %v", err)
	}
	if _, err := db.Exec(string(schema)); err != nil {
		t.Fatalf("apply schema: %v", err)
	}
	return db
}

func TestFinishPersistsOnce(t *testing.T) {
	if err := words.Init(); err != nil {
		t.Fatalf("words.Init: %v", err)
	}
	db := newSchemaDB(t)
	s := New(store.NewMemoryStore(), db)

	if _, err := db.Exec(`INSERT INTO users (id, username, password_hash, created_at)
	                      VALUES ('u1', 'alice', 'x', '2026-01-01T00:00:00Z')`); err != nil {
		t.Fatalf("seed user: %v", err)
	}

	sess := session.New(session.Config{})
	if err := sess.StartFixedList([]string{"CAT"}); err != nil {
		t.Fatalf("start: %v", err)
	}
	p := &store.Puzzle{
		ID:        "p1",
		OwnerID:   "u1",
		Sess:      sess,
		Daily:     true,
		Date:      "2026-08-23",
		CreatedAt: time.Now().UTC(),
	}

	r := httptest.NewRequest(http.MethodPost, "/puzzle/finish", nil)
	r = r.WithContext(context.WithValue(r.Context(), ctxUserKey{}, &authUser{ID: "u1", Username: "alice"}))
	s.insertPuzzleRow(r, p, "fixed-list")

	result := session.Result{XPEarned: 50, WordsFound: 1, Total: 1}
	s.persistFinish(r, p, result)
	s.persistFinish(r, p, result)

	var xp, played int
	if err := db.QueryRow(`SELECT xp_total, puzzles_played FROM users WHERE id='u1'`).Scan(&xp, &played); err != nil {
		t.Fatalf("read user: %v", err)
	}
	if xp != 50 || played != 1 {
		t.Fatalf("xp_total=%d puzzles_played=%d, want 50 and 1", xp, played)
	}

	var attempts int
	if err := db.QueryRow(`SELECT COUNT(1) FROM daily_attempts WHERE user_id='u1'`).Scan(&attempts); err != nil {
		t.Fatalf("count attempts: %v", err)
	}
	if attempts != 1 {
		t.Fatalf("daily attempts = %d, want 1", attempts)
	}
}

func TestDailyLeaderboardWithoutDB(t *testing.T) {
	ts := newTestServer(t)
	resp, err := http.Get(ts.URL + "/daily/leaderboard")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var body struct {
		Date string `json:"date"`
		Top  []any  `json:"top"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Date == "" || len(body.Top) != 0 {
		t.Fatalf("unexpected body: %+v", body)
	}
}

func TestRootListsEndpoints(t *testing.T) {
	ts := newTestServer(t)
	resp, err := http.Get(ts.URL + "/")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "/puzzle/new") {
		t.Fatalf("unexpected root body: %s", buf.String())
	}
}
