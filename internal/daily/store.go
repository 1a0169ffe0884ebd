// internal/daily/store.go
//
// SQLite-backed store for daily puzzle attempts. One row per
// (user, date, mode); its existence is the daily-limit predicate the
// session controller consults at start.

package daily

import (
	"context"
	"database/sql"
)

// Attempt is one finished daily puzzle for one user.
type Attempt struct {
	UserID     string `json:"userId"`
	Date       string `json:"date"`
	Mode       string `json:"mode"`
	XP         int    `json:"xp"`
	WordsFound int    `json:"wordsFound"`
	Total      int    `json:"total"`
}

type Store struct{ db *sql.DB }

func NewStore(db *sql.DB) *Store { return &Store{db: db} }

// AlreadyPlayed reports whether the user finished a daily puzzle of the
// given mode on the given date.
func (s *Store) AlreadyPlayed(ctx context.Context, userID, date, mode string) (bool, error) {
	var cnt int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM daily_attempts WHERE user_id=? AND date=? AND mode=?",
		userID, date, mode,
	).Scan(&cnt)
	return cnt > 0, err
}

// InsertAttempt records a finished daily puzzle. Re-inserting the same
// (user, date, mode) is ignored, so a double finish never double-counts.
func (s *Store) InsertAttempt(ctx context.Context, a Attempt) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO daily_attempts(user_id, date, mode, xp, words_found, total)
		 VALUES(?,?,?,?,?,?)`, a.UserID, a.Date, a.Mode, a.XP, a.WordsFound, a.Total,
	)
	return err
}

// LBRow is one leaderboard entry.
type LBRow struct {
	UserID     string `json:"userId"`
	XP         int    `json:"xp"`
	WordsFound int    `json:"wordsFound"`
}

// Leaderboard returns the top attempts for a date, highest XP first.
func (s *Store) Leaderboard(ctx context.Context, date string, limit int) ([]LBRow, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id, xp, words_found
		 FROM daily_attempts
		 WHERE date=?
		 ORDER BY xp DESC, words_found DESC, created_at ASC
		 LIMIT ?`, date, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []LBRow
	for rows.Next() {
		var r LBRow
		if err := rows.Scan(&r.UserID, &r.XP, &r.WordsFound); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
