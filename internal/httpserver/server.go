// internal/httpserver/server.go
//
// HTTP server wiring for the word-search backend.
// Responsibilities:
//   - Router + middleware (JSON, CORS, timeouts, panic recovery, request IDs).
//   - Public endpoints: "/", "/health", "/debug/words".
//   - Puzzle endpoints (optional auth): POST /puzzle/new, /puzzle/gesture,
//     /puzzle/tick, /puzzle/hint, /puzzle/finish.
//   - Daily puzzle endpoints (optional auth): mounted under /daily.
//   - Auth + profile/stat endpoints (require auth): /auth/*, /stats/me.
//   - JWT + cookie handling, anonymous session cookie, user CRUD helpers.
//   - Database persistence for puzzle history and XP totals.
//
// Notes:
//   - The engine itself (grid/gesture/session) is a pure library; this
//     package is the host that owns the clock, the pointer samples, and
//     all persistence.
//   - Optional auth decorates requests with user context when a valid
//     token is present; guests play under an anonymous cookie identity.

package httpserver

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"encoding/json"
	"errors"
	mrand "math/rand"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"github.com/pmallott/wordsearch/internal/daily"
	"github.com/pmallott/wordsearch/internal/gesture"
	"github.com/pmallott/wordsearch/internal/session"
	"github.com/pmallott/wordsearch/internal/store"
	"github.com/pmallott/wordsearch/internal/words"
)

// fixedListWords is how many words a free-play or daily board hides.
const fixedListWords = 5

// Server bundles router, in-memory puzzle store, and DB handle.
type Server struct {
	r     *chi.Mux
	store store.Store
	db    *sql.DB
}

// New constructs a Server, installs middleware, and registers routes.
func New(st store.Store, db *sql.DB) *Server {
	s := &Server{r: chi.NewRouter(), store: st, db: db}

	// --- middleware ---
	s.r.Use(chimw.RequestID)                 // add X-Request-ID
	s.r.Use(chimw.RealIP)                    // set RemoteAddr from X-Forwarded-For etc.
	s.r.Use(chimw.Recoverer)                 // recover from panics
	s.r.Use(chimw.Timeout(10 * time.Second)) // bound handler time
	s.r.Use(jsonContentType)                 // default JSON responses
	s.r.Use(corsFromEnv)                     // credentials-friendly CORS

	// --- diagnostics ---
	s.r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"service":"wordsearch-go","endpoints":["/health","POST /puzzle/new","POST /puzzle/gesture","POST /puzzle/finish","/daily/*","/auth/*"]}`))
	})
	s.r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	})
	s.r.Get("/debug/words", func(w http.ResponseWriter, r *http.Request) {
		wc, qc := words.Stats()
		_ = json.NewEncoder(w).Encode(map[string]int{"words": wc, "questions": qc})
	})

	// Puzzle endpoints — OPTIONAL AUTH (guests can play)
	s.r.With(s.withOptionalAuth()).Post("/puzzle/new", s.handleNewPuzzle)
	s.r.With(s.withOptionalAuth()).Post("/puzzle/gesture", s.handleGesture)
	s.r.With(s.withOptionalAuth()).Post("/puzzle/tick", s.handleTick)
	s.r.With(s.withOptionalAuth()).Post("/puzzle/hint", s.handleHint)
	s.r.With(s.withOptionalAuth()).Post("/puzzle/finish", s.handleFinish)

	// Daily puzzle — OPTIONAL AUTH (one attempt per user per day per mode)
	s.mountDaily(s.r.With(s.withOptionalAuth()))

	// Auth + profile/stats (require auth)
	s.mountAuthRoutes()

	// JSON 404 for easier debugging
	s.r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"not_found","path":"`+r.URL.Path+`"}`, http.StatusNotFound)
	})

	return s
}

// Start begins serving HTTP on addr.
func (s *Server) Start(addr string) error { return http.ListenAndServe(addr, s.r) }

// Router exposes the internal router (useful for tests).
func (s *Server) Router() chi.Router { return s.r }

// ----------------------------- middleware ----------------------------------

// jsonContentType sets a default JSON Content-Type header on all responses.
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		next.ServeHTTP(w, r)
	})
}

// corsFromEnv enables credentialed CORS for a single origin.
// Uses CLIENT_ORIGIN env var; defaults to http://localhost:5173.
func corsFromEnv(next http.Handler) http.Handler {
	origin := os.Getenv("CLIENT_ORIGIN")
	if origin == "" {
		origin = "http://localhost:5173"
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Vary", "Origin")
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Credentials", "true")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ------------------------------ PUZZLE --------------------------------------

// calibrationReq carries the caller's pixel mapping for the rendered grid.
// The engine translates pointer samples with it for the whole session.
type calibrationReq struct {
	OriginX float64 `json:"originX"`
	OriginY float64 `json:"originY"`
	Stride  float64 `json:"stride"`
}

func (c calibrationReq) toEngine() gesture.Calibration {
	if c.Stride <= 0 {
		c.Stride = 40
	}
	return gesture.Calibration{OriginX: c.OriginX, OriginY: c.OriginY, Stride: c.Stride}
}

// newPuzzleReq/Res payloads for POST /puzzle/new.
type newPuzzleReq struct {
	Mode        string         `json:"mode"`  // "fixed-list" | "sequential"
	Words       []string       `json:"words"` // optional fixed word list (testing)
	Calibration calibrationReq `json:"calibration"`
}
type newPuzzleRes struct {
	PuzzleID  string   `json:"puzzleId"`
	Grid      []string `json:"grid"`
	Words     []string `json:"words,omitempty"` // fixed-list targets actually placed
	Clue      string   `json:"clue,omitempty"`  // sequential round clue
	Remaining int      `json:"remaining"`
}

// handleNewPuzzle starts a free-play session (no daily limit) and persists
// a DB owner row for history/stats.
func (s *Server) handleNewPuzzle(w http.ResponseWriter, r *http.Request) {
	var req newPuzzleReq
	_ = json.NewDecoder(r.Body).Decode(&req)

	sess := session.New(session.Config{
		Calibration: req.Calibration.toEngine(),
		Rand:        mrand.New(mrand.NewSource(time.Now().UnixNano())),
	})

	rng := mrand.New(mrand.NewSource(time.Now().UnixNano()))
	var err error
	mode := session.Mode(req.Mode)
	switch mode {
	case session.ModeSequential:
		err = sess.StartSequential(words.ShuffledQuestions(rng))
	default:
		mode = session.ModeFixedList
		list := req.Words
		if len(list) == 0 {
			list = words.Pick(rng.Intn(maxInt(1, len(words.Words()))), fixedListWords)
		}
		err = sess.StartFixedList(list)
	}
	if err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusConflict)
		return
	}

	p := &store.Puzzle{
		ID:        genID(),
		OwnerID:   s.ownerID(w, r),
		Sess:      sess,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.Save(r.Context(), p); err != nil {
		log.Error().Err(err).Msg("save puzzle")
		http.Error(w, `{"error":"save_failed"}`, http.StatusInternalServerError)
		return
	}
	s.insertPuzzleRow(r, p, string(mode))

	_ = json.NewEncoder(w).Encode(s.describePuzzle(p))
}

// describePuzzle builds the newPuzzleRes for a freshly started session.
func (s *Server) describePuzzle(p *store.Puzzle) newPuzzleRes {
	res := newPuzzleRes{
		PuzzleID:  p.ID,
		Grid:      p.Sess.GridRows(),
		Remaining: p.Sess.Remaining(),
	}
	if q, ok := p.Sess.CurrentQuestion(); ok {
		res.Clue = q.Clue
	} else {
		for _, pl := range p.Sess.Placements() {
			res.Words = append(res.Words, pl.Word)
		}
	}
	return res
}

// gestureReq/Res payloads for POST /puzzle/gesture.
type gestureReq struct {
	PuzzleID string  `json:"puzzleId"`
	Phase    string  `json:"phase"` // "begin" | "move" | "end"
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
}
type gestureRes struct {
	Selection []selCell `json:"selection"`
	Matched   bool      `json:"matched"`
	Word      string    `json:"word,omitempty"`
	State     string    `json:"state"`
	Remaining int       `json:"remaining"`
	Grid      []string  `json:"grid,omitempty"` // sent when a sequential round advances
	Clue      string    `json:"clue,omitempty"`
}
type selCell struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// handleGesture forwards one pointer sample (or gesture end) to the session.
func (s *Server) handleGesture(w http.ResponseWriter, r *http.Request) {
	var req gestureReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"bad_json"}`, http.StatusBadRequest)
		return
	}
	p, err := s.store.Get(r.Context(), req.PuzzleID)
	if err != nil {
		http.Error(w, `{"error":"not_found"}`, http.StatusNotFound)
		return
	}

	res := gestureRes{}
	point := gesture.Point{X: req.X, Y: req.Y}
	switch req.Phase {
	case "begin":
		p.Sess.BeginGesture(point)
		for _, c := range p.Sess.Selection() {
			res.Selection = append(res.Selection, selCell{Row: c.Row, Col: c.Col})
		}
	case "move":
		for _, c := range p.Sess.UpdateGesture(point) {
			res.Selection = append(res.Selection, selCell{Row: c.Row, Col: c.Col})
		}
	case "end":
		match := p.Sess.EndGesture()
		res.Matched = match.Matched
		res.Word = match.Word
		// A sequential match that keeps the session active means a new
		// round began: ship the fresh grid and clue.
		if match.Matched && p.Sess.State() == session.StateActive {
			if q, ok := p.Sess.CurrentQuestion(); ok {
				res.Grid = p.Sess.GridRows()
				res.Clue = q.Clue
			}
		}
	default:
		http.Error(w, `{"error":"bad_phase"}`, http.StatusBadRequest)
		return
	}

	res.State = string(p.Sess.State())
	res.Remaining = p.Sess.Remaining()
	_ = json.NewEncoder(w).Encode(res)
}

// tickReq payload for POST /puzzle/tick. The server owns no clock; the
// client (or a scheduler) reports elapsed countdown ticks.
type tickReq struct {
	PuzzleID string `json:"puzzleId"`
	Elapsed  int    `json:"elapsed"`
}
type tickRes struct {
	State     string `json:"state"`
	Remaining int    `json:"remaining"`
}

func (s *Server) handleTick(w http.ResponseWriter, r *http.Request) {
	var req tickReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"bad_json"}`, http.StatusBadRequest)
		return
	}
	p, err := s.store.Get(r.Context(), req.PuzzleID)
	if err != nil {
		http.Error(w, `{"error":"not_found"}`, http.StatusNotFound)
		return
	}
	p.Sess.Tick(req.Elapsed)
	_ = json.NewEncoder(w).Encode(tickRes{State: string(p.Sess.State()), Remaining: p.Sess.Remaining()})
}

// hintReq/Res payloads for POST /puzzle/hint (sequential mode only).
type hintReq struct {
	PuzzleID string `json:"puzzleId"`
}
type hintRes struct {
	Hint string `json:"hint"`
}

func (s *Server) handleHint(w http.ResponseWriter, r *http.Request) {
	var req hintReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"bad_json"}`, http.StatusBadRequest)
		return
	}
	p, err := s.store.Get(r.Context(), req.PuzzleID)
	if err != nil {
		http.Error(w, `{"error":"not_found"}`, http.StatusNotFound)
		return
	}
	hint, ok := p.Sess.UseHint()
	if !ok {
		http.Error(w, `{"error":"hint_unavailable"}`, http.StatusConflict)
		return
	}
	_ = json.NewEncoder(w).Encode(hintRes{Hint: hint})
}

// finishReq payload for POST /puzzle/finish.
type finishReq struct {
	PuzzleID string `json:"puzzleId"`
}

// handleFinish computes the score record, persists history/XP, and (for
// daily puzzles) records the attempt that enforces tomorrow's limit.
// Finishing twice returns the same result without double-awarding.
func (s *Server) handleFinish(w http.ResponseWriter, r *http.Request) {
	var req finishReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"bad_json"}`, http.StatusBadRequest)
		return
	}
	p, err := s.store.Get(r.Context(), req.PuzzleID)
	if err != nil {
		http.Error(w, `{"error":"not_found"}`, http.StatusNotFound)
		return
	}

	result := p.Sess.Finish()

	s.persistFinish(r, p, result)
	_ = json.NewEncoder(w).Encode(result)
}

// persistFinish writes history, XP, and daily-attempt rows. Best effort:
// failures are logged, never surfaced. The puzzles UPDATE claims the finish
// exactly once (finished_at IS NULL); when it affects no row a prior call
// already awarded XP and the attempt, so everything downstream is skipped.
func (s *Server) persistFinish(r *http.Request, p *store.Puzzle, result session.Result) {
	if s.db == nil {
		return
	}
	now := time.Now().UTC().Format(time.RFC3339)
	res, err := s.db.Exec(`UPDATE puzzles SET finished_at=?, xp=?, words_found=? WHERE id=? AND finished_at IS NULL`,
		now, result.XPEarned, result.WordsFound, p.ID)
	if err != nil {
		log.Warn().Err(err).Str("puzzleId", p.ID).Msg("finish puzzle row")
		return
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return
	}

	if p.Daily {
		err := daily.NewStore(s.db).InsertAttempt(r.Context(), daily.Attempt{
			UserID:     p.OwnerID,
			Date:       p.Date,
			Mode:       string(p.Sess.Mode()),
			XP:         result.XPEarned,
			WordsFound: result.WordsFound,
			Total:      result.Total,
		})
		if err != nil {
			log.Warn().Err(err).Str("puzzleId", p.ID).Msg("insert daily attempt")
		}
	}

	if me, _ := r.Context().Value(ctxUserKey{}).(*authUser); me != nil {
		if err := s.bumpStats(me.ID, result.XPEarned); err != nil {
			log.Warn().Err(err).Str("user", me.ID).Msg("bump stats")
		}
	}
}

// insertPuzzleRow records puzzle ownership for history (best effort).
func (s *Server) insertPuzzleRow(r *http.Request, p *store.Puzzle, mode string) {
	if s.db == nil {
		return
	}
	now := p.CreatedAt.Format(time.RFC3339)
	var err error
	if me, _ := r.Context().Value(ctxUserKey{}).(*authUser); me != nil {
		_, err = s.db.Exec(`INSERT INTO puzzles (id, user_id, mode, started_at) VALUES (?,?,?,?)`,
			p.ID, me.ID, mode, now)
	} else {
		_, err = s.db.Exec(`INSERT INTO puzzles (id, anonymous_id, mode, started_at) VALUES (?,?,?,?)`,
			p.ID, p.OwnerID, mode, now)
	}
	if err != nil {
		log.Warn().Err(err).Str("puzzleId", p.ID).Msg("insert puzzle row")
	}
}

// ownerID returns the authenticated user ID or the anonymous cookie ID.
func (s *Server) ownerID(w http.ResponseWriter, r *http.Request) string {
	if me, _ := r.Context().Value(ctxUserKey{}).(*authUser); me != nil {
		return me.ID
	}
	return s.ensureAnonID(w, r)
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// ------------------------------- AUTH --------------------------------------

// Request payloads for signup/login.
type signupReq struct{ Username, Password string }
type loginReq struct{ Username, Password string }

// authUser is placed into request context by auth middleware.
type authUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// mountAuthRoutes registers authentication + gated routes (/auth/*, /stats/me).
func (s *Server) mountAuthRoutes() {
	s.r.Post("/auth/signup", s.handleSignup)
	s.r.Post("/auth/login", s.handleLogin)
	s.r.Post("/auth/logout", s.handleLogout)

	// Current user (gated)
	s.r.With(s.requireAuth()).Get("/auth/me", func(w http.ResponseWriter, r *http.Request) {
		me, _ := r.Context().Value(ctxUserKey{}).(*authUser)
		if me == nil {
			http.Error(w, `{"error":"Unauthorized"}`, http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(me)
	})

	// Stats (gated)
	s.r.With(s.requireAuth()).Get("/stats/me", func(w http.ResponseWriter, r *http.Request) {
		me, _ := r.Context().Value(ctxUserKey{}).(*authUser)
		if me == nil {
			http.Error(w, `{"error":"Unauthorized"}`, http.StatusUnauthorized)
			return
		}
		u, err := s.findUserByID(me.ID)
		if err != nil {
			http.Error(w, `{"error":"not_found"}`, http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":            u.ID,
			"xpTotal":       u.XPTotal,
			"puzzlesPlayed": u.PuzzlesPlayed,
		})
	})
}

// handleSignup creates a new user, signs a JWT, sets auth cookie, and claims anon history.
func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var body signupReq
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, `{"error":"invalid_json"}`, http.StatusBadRequest)
		return
	}
	u, err := s.createUser(body.Username, body.Password)
	if err != nil {
		if err.Error() == "username taken" {
			http.Error(w, `{"error":"Username taken"}`, http.StatusConflict)
			return
		}
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusBadRequest)
		return
	}
	tok, exp, err := s.signJWT(u.ID, u.Username)
	if err != nil {
		http.Error(w, `{"error":"sign_failed"}`, http.StatusInternalServerError)
		return
	}
	s.setAuthCookie(w, tok, exp)
	s.claimAnonPuzzles(s.ensureAnonID(w, r), u.ID)
	_ = json.NewEncoder(w).Encode(map[string]any{"id": u.ID, "username": u.Username, "createdAt": u.CreatedAt})
}

// handleLogin authenticates user, sets cookie, and claims anon history.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body loginReq
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, `{"error":"invalid_json"}`, http.StatusBadRequest)
		return
	}
	u, err := s.findUserByUsername(strings.TrimSpace(body.Username))
	if err != nil || !checkPassword(u.PasswordHash, body.Password) {
		http.Error(w, `{"error":"Invalid username or password"}`, http.StatusUnauthorized)
		return
	}
	tok, exp, err := s.signJWT(u.ID, u.Username)
	if err != nil {
		http.Error(w, `{"error":"sign_failed"}`, http.StatusInternalServerError)
		return
	}
	s.setAuthCookie(w, tok, exp)
	s.claimAnonPuzzles(s.ensureAnonID(w, r), u.ID)
	_ = json.NewEncoder(w).Encode(map[string]any{"id": u.ID, "username": u.Username})
}

// handleLogout clears the auth cookie.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.clearAuthCookie(w)
	_ = json.NewEncoder(w).Encode(map[string]bool{"ok": true})
}

// --------------------------- optional auth ---------------------------------

// withOptionalAuth decorates requests with user context if a valid JWT is present.
// It never 401s; used for routes where guests are allowed.
func (s *Server) withOptionalAuth() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if tok := bearerOrCookie(r); tok != "" {
				claims := jwt.MapClaims{}
				if t, err := jwt.ParseWithClaims(tok, claims, func(t *jwt.Token) (interface{}, error) {
					return []byte(getEnv("JWT_SECRET", "dev_secret_change_me")), nil
				}); err == nil && t.Valid {
					if id, _ := claims["id"].(string); id != "" {
						if u, err := s.findUserByID(id); err == nil {
							ctx := context.WithValue(r.Context(), ctxUserKey{}, &authUser{ID: u.ID, Username: u.Username})
							r = r.WithContext(ctx)
						}
					}
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

const anonCookieName = "wordsearch_anon"

// ensureAnonID returns an existing anon cookie or sets a new one.
// Used to associate guest puzzles with a stable identifier.
func (s *Server) ensureAnonID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(anonCookieName); err == nil && c.Value != "" {
		return c.Value
	}
	id := genID()
	http.SetCookie(w, &http.Cookie{
		Name:     anonCookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   os.Getenv("NODE_ENV") == "production",
		SameSite: func() http.SameSite {
			if os.Getenv("NODE_ENV") == "production" {
				return http.SameSiteNoneMode
			}
			return http.SameSiteLaxMode
		}(),
		Expires: time.Now().Add(180 * 24 * time.Hour),
	})
	return id
}

// claimAnonPuzzles transfers any anonymous puzzles to a user account after auth.
func (s *Server) claimAnonPuzzles(anonID, userID string) {
	if anonID == "" || userID == "" || s.db == nil {
		return
	}
	if _, err := s.db.Exec(`UPDATE puzzles SET user_id=?, anonymous_id=NULL WHERE anonymous_id=?`, userID, anonID); err != nil {
		log.Warn().Err(err).Msg("claim anon puzzles")
	}
}

// ------------------------ auth helpers & users -----------------------------

// userRow matches the users table shape.
type userRow struct {
	ID            string
	Username      string
	PasswordHash  string
	CreatedAt     time.Time
	XPTotal       int
	PuzzlesPlayed int
}

// createUser validates input, checks uniqueness, hashes password, and inserts a new user.
func (s *Server) createUser(username, pw string) (*userRow, error) {
	username = strings.TrimSpace(username)
	if err := validateSignup(username, pw); err != nil {
		return nil, err
	}
	var exists int
	_ = s.db.QueryRow(`SELECT 1 FROM users WHERE lower(username)=lower(?)`, username).Scan(&exists)
	if exists == 1 {
		return nil, errors.New("username taken")
	}
	h, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC().Format(time.RFC3339)
	id := genID()
	if _, err := s.db.Exec(`INSERT INTO users (id, username, password_hash, created_at) VALUES (?,?,?,?)`,
		id, username, string(h), now); err != nil {
		return nil, err
	}
	return &userRow{ID: id, Username: username, PasswordHash: string(h), CreatedAt: mustParse(now)}, nil
}

// findUserByUsername/ID load a user row or return an error if missing.
func (s *Server) findUserByUsername(username string) (*userRow, error) {
	row := s.db.QueryRow(`SELECT id, username, password_hash, created_at, xp_total, puzzles_played
	                      FROM users WHERE lower(username)=lower(?)`, username)
	return scanUser(row)
}
func (s *Server) findUserByID(id string) (*userRow, error) {
	if s.db == nil {
		return nil, errors.New("no db")
	}
	row := s.db.QueryRow(`SELECT id, username, password_hash, created_at, xp_total, puzzles_played
	                      FROM users WHERE id=?`, id)
	return scanUser(row)
}

// scanUser converts a *sql.Row into a userRow.
func scanUser(row *sql.Row) (*userRow, error) {
	var u userRow
	var created string
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &created, &u.XPTotal, &u.PuzzlesPlayed); err != nil {
		return nil, err
	}
	u.CreatedAt = mustParse(created)
	return &u, nil
}

// mustParse parses RFC3339 timestamps; on error returns zero time.
func mustParse(s string) time.Time {
	t, _ := time.Parse(time.RFC3339, s)
	return t
}

// checkPassword is a bcrypt verifier.
func checkPassword(hash, pw string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw)) == nil
}

// validateSignup enforces basic username/password rules.
func validateSignup(u, p string) error {
	if len(u) < 3 || len(u) > 24 {
		return errors.New("username must be 3-24 chars")
	}
	for _, r := range u {
		if !(r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
			return errors.New("username: letters, numbers, underscore only")
		}
	}
	if len(p) < 8 || len(p) > 100 {
		return errors.New("password must be 8-100 chars")
	}
	return nil
}

// genID creates a 22-char URL-safe, crypto-random identifier (no padding).
func genID() string {
	var b [16]byte
	_, _ = rand.Read(b[:])
	s := base64.URLEncoding.WithPadding(base64.NoPadding).EncodeToString(b[:])
	if len(s) > 22 {
		return s[:22]
	}
	return s
}

// bumpStats adds earned XP and increments the puzzle counter.
func (s *Server) bumpStats(userID string, xp int) error {
	_, err := s.db.Exec(`UPDATE users SET xp_total = xp_total + ?, puzzles_played = puzzles_played + 1 WHERE id=?`,
		xp, userID)
	return err
}

// ------------------------------ JWT & cookies ------------------------------

// signJWT creates an HS256 JWT with id/username and a configurable expiry (JWT_EXPIRES_DAYS; default 14).
func (s *Server) signJWT(id, username string) (string, time.Time, error) {
	secret := getEnv("JWT_SECRET", "dev_secret_change_me")
	days := 14
	if v := os.Getenv("JWT_EXPIRES_DAYS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			days = n
		}
	}
	exp := time.Now().Add(time.Duration(days) * 24 * time.Hour)
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"id":       id,
		"username": username,
		"exp":      exp.Unix(),
		"iat":      time.Now().Unix(),
	})
	ss, err := t.SignedString([]byte(secret))
	return ss, exp, err
}

// setAuthCookie writes the auth token cookie with appropriate security attributes.
func (s *Server) setAuthCookie(w http.ResponseWriter, token string, exp time.Time) {
	name := getEnv("COOKIE_NAME", "wordsearch_token")
	secure := os.Getenv("NODE_ENV") == "production"
	sameSite := http.SameSiteLaxMode
	if secure {
		sameSite = http.SameSiteNoneMode // required for third-party contexts when Secure
	}
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: sameSite,
		Expires:  exp,
	})
}

// clearAuthCookie deletes the auth token cookie.
func (s *Server) clearAuthCookie(w http.ResponseWriter) {
	name := getEnv("COOKIE_NAME", "wordsearch_token")
	secure := os.Getenv("NODE_ENV") == "production"
	sameSite := http.SameSiteLaxMode
	if secure {
		sameSite = http.SameSiteNoneMode
	}
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: sameSite,
		MaxAge:   -1,
	})
}

// bearerOrCookie extracts a bearer token from Authorization header or auth cookie.
func bearerOrCookie(r *http.Request) string {
	if a := r.Header.Get("Authorization"); strings.HasPrefix(strings.ToLower(a), "bearer ") {
		return strings.TrimSpace(a[7:])
	}
	if c, err := r.Cookie(getEnv("COOKIE_NAME", "wordsearch_token")); err == nil {
		return c.Value
	}
	return ""
}

// ---------------------------- auth middleware ------------------------------

// ctxUserKey is the context key type for storing authUser.
type ctxUserKey struct{}

// requireAuth enforces a valid JWT and injects authUser into request context.
func (s *Server) requireAuth() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr := bearerOrCookie(r)
			if tokenStr == "" {
				http.Error(w, `{"error":"Unauthorized"}`, http.StatusUnauthorized)
				return
			}
			claims := jwt.MapClaims{}
			token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
				return []byte(getEnv("JWT_SECRET", "dev_secret_change_me")), nil
			})
			if err != nil || !token.Valid {
				http.Error(w, `{"error":"Invalid token"}`, http.StatusUnauthorized)
				return
			}
			id, _ := claims["id"].(string)
			username, _ := claims["username"].(string)
			if id == "" || username == "" {
				http.Error(w, `{"error":"Invalid token"}`, http.StatusUnauthorized)
				return
			}
			// Ensure user still exists
			if _, err := s.findUserByID(id); err != nil {
				http.Error(w, `{"error":"Invalid token"}`, http.StatusUnauthorized)
				return
			}
			ctx := context.WithValue(r.Context(), ctxUserKey{}, &authUser{ID: id, Username: username})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ------------------------------- small util --------------------------------

// getEnv returns the value of k or def if unset/empty.
func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
