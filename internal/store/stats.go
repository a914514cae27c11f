package store

import (
	"context"
	"os"
)

// Stats holds database statistics.
type Stats struct {
	DBPath           string      `json:"db_path"`
	DBSizeBytes      int64       `json:"db_size_bytes"`
	Words            int         `json:"words"`
	Transitions      int         `json:"transitions"`
	TotalOccurrences int64       `json:"total_occurrences"`
	Roles            []RoleStats `json:"roles"`
	RecentFeeds      []FeedRun   `json:"recent_feeds,omitempty"`
}

// RoleStats holds per-role word counts.
type RoleStats struct {
	Role  string `json:"role"`
	Count int    `json:"count"`
}

// Stats returns database statistics.
func (s *SQLiteStore) Stats(ctx context.Context, dbPath string) (*Stats, error) {
	st := &Stats{DBPath: dbPath}

	// DB file size
	if info, err := os.Stat(dbPath); err == nil {
		st.DBSizeBytes = info.Size()
	}

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM Words`).Scan(&st.Words); err != nil {
		return st, unavailable("count words", err)
	}
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(occurrences), 0) FROM Occurrence`).Scan(&st.Transitions, &st.TotalOccurrences); err != nil {
		return st, unavailable("count transitions", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT keyword, COUNT(*) AS cnt
		FROM Words GROUP BY keyword ORDER BY cnt DESC, keyword`)
	if err != nil {
		return st, unavailable("count roles", err)
	}
	defer rows.Close()

	for rows.Next() {
		var r RoleStats
		if err := rows.Scan(&r.Role, &r.Count); err != nil {
			return st, unavailable("scan role", err)
		}
		st.Roles = append(st.Roles, r)
	}
	if err := rows.Err(); err != nil {
		return st, unavailable("count roles", err)
	}
	rows.Close()

	st.RecentFeeds, err = s.Feeds(ctx, 5)
	if err != nil {
		return st, err
	}

	return st, nil
}
