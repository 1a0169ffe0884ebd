// internal/httpserver/routes_daily.go
//
// HTTP routes for the daily puzzle.
// Exposes endpoints under /daily:
//   - POST /daily/new         → start today's puzzle (one attempt per user/day/mode)
//   - GET  /daily/leaderboard → top results for today (or a given date)
//
// Every player sees the same board on a given date: the word window (or
// question rotation) is chosen deterministically from HMAC(salt, date).
// The once-per-day rule is enforced by the session controller's daily-limit
// predicate, backed by the daily_attempts table.

package httpserver

import (
	"encoding/json"
	"errors"
	"math"
	mrand "math/rand"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pmallott/wordsearch/internal/daily"
	"github.com/pmallott/wordsearch/internal/session"
	"github.com/pmallott/wordsearch/internal/store"
	"github.com/pmallott/wordsearch/internal/words"
)

// dailyServer wraps dependencies for /daily endpoints.
type dailyServer struct {
	srv   *Server
	store *daily.Store
	salt  string
}

// mountDaily registers all /daily routes.
func (s *Server) mountDaily(r chi.Router) {
	dd := &dailyServer{
		srv:   s,
		store: daily.NewStore(s.db),
		salt:  getEnv("DAILY_SALT", "local_dev_salt"),
	}
	r.Route("/daily", func(r chi.Router) {
		r.Post("/new", dd.handleNew)
		r.Get("/leaderboard", dd.handleLeaderboard)
	})
}

// dailyNewReq payload for POST /daily/new.
type dailyNewReq struct {
	Mode        string         `json:"mode"` // "fixed-list" (default) | "sequential"
	Calibration calibrationReq `json:"calibration"`
}

// dailyNewRes payload; Played=true means the limit already tripped and no
// puzzle was created.
type dailyNewRes struct {
	Played bool          `json:"played"`
	Date   string        `json:"date"`
	Puzzle *newPuzzleRes `json:"puzzle,omitempty"`
}

// handleNew starts today's puzzle for the caller. The daily-limit predicate
// is consulted inside session start, so refusal never mutates state.
func (d *dailyServer) handleNew(w http.ResponseWriter, r *http.Request) {
	var req dailyNewReq
	_ = json.NewDecoder(r.Body).Decode(&req)

	mode := session.ModeFixedList
	if session.Mode(req.Mode) == session.ModeSequential {
		mode = session.ModeSequential
	}

	uid := d.srv.ownerID(w, r)
	now := time.Now().UTC()
	date := daily.DateKey(now)

	sess := session.New(session.Config{
		Calibration: req.Calibration.toEngine(),
		Rand:        mrand.New(mrand.NewSource(int64(daily.PuzzleIndex(now, d.salt+"|layout", math.MaxInt32)))),
		AlreadyPlayed: func(m session.Mode) bool {
			if d.srv.db == nil {
				return false
			}
			played, err := d.store.AlreadyPlayed(r.Context(), uid, date, string(m))
			return err == nil && played
		},
	})

	var err error
	switch mode {
	case session.ModeSequential:
		pool := words.Questions()
		offset := daily.PuzzleIndex(now, d.salt, len(pool))
		rotated := append(append([]session.Question{}, pool[offset:]...), pool[:offset]...)
		err = sess.StartSequential(rotated)
	default:
		start := daily.PuzzleIndex(now, d.salt, len(words.Words()))
		err = sess.StartFixedList(words.Pick(start, fixedListWords))
	}
	if errors.Is(err, session.ErrDailyLimit) {
		_ = json.NewEncoder(w).Encode(dailyNewRes{Played: true, Date: date})
		return
	}
	if err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusConflict)
		return
	}

	p := &store.Puzzle{
		ID:        genID(),
		OwnerID:   uid,
		Sess:      sess,
		Daily:     true,
		Date:      date,
		CreatedAt: now,
	}
	if err := d.srv.store.Save(r.Context(), p); err != nil {
		http.Error(w, `{"error":"save_failed"}`, http.StatusInternalServerError)
		return
	}
	d.srv.insertPuzzleRow(r, p, string(mode))

	res := d.srv.describePuzzle(p)
	_ = json.NewEncoder(w).Encode(dailyNewRes{Played: false, Date: date, Puzzle: &res})
}

// lbRes is returned by /daily/leaderboard.
type lbRes struct {
	Date string        `json:"date"`
	Top  []daily.LBRow `json:"top"`
}

// handleLeaderboard returns the leaderboard for the given date (default today).
func (d *dailyServer) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" {
		date = daily.DateKey(time.Now())
	}
	if d.srv.db == nil {
		_ = json.NewEncoder(w).Encode(lbRes{Date: date})
		return
	}
	rows, err := d.store.Leaderboard(r.Context(), date, 20)
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	_ = json.NewEncoder(w).Encode(lbRes{Date: date, Top: rows})
}
