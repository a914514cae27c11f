package store

import (
	"context"
	"fmt"

	"github.com/rcliao/chatterchain/internal/model"
)

// Word is the surface form of a lexicon entry in an export.
type Word struct {
	Role model.Role `json:"role"`
	Text string     `json:"text"`
}

// ExportedTransition is a transition keyed by surface form rather than by
// identity, so it can be replayed into any store.
type ExportedTransition struct {
	Prev        Word  `json:"prev"`
	Curr        Word  `json:"curr"`
	Next        Word  `json:"next"`
	Occurrences int64 `json:"occurrences"`
}

// ExportAll returns every transition in identity order.
func (s *SQLiteStore) ExportAll(ctx context.Context) ([]ExportedTransition, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT p.keyword, p.string, c.keyword, c.string, n.keyword, n.string, o.occurrences
		FROM Occurrence o
		JOIN Words p ON p.id = o.prev
		JOIN Words c ON c.id = o.curr
		JOIN Words n ON n.id = o.next
		ORDER BY o.prev, o.curr, o.next`)
	if err != nil {
		return nil, unavailable("export", err)
	}
	defer rows.Close()

	var out []ExportedTransition
	for rows.Next() {
		var t ExportedTransition
		var pr, cr, nr string
		if err := rows.Scan(&pr, &t.Prev.Text, &cr, &t.Curr.Text, &nr, &t.Next.Text, &t.Occurrences); err != nil {
			return nil, unavailable("export", err)
		}
		t.Prev.Role, t.Curr.Role, t.Next.Role = model.Role(pr), model.Role(cr), model.Role(nr)
		out = append(out, t)
	}
	return out, rows.Err()
}

// Importer is a store that can take bulk occurrence counts.
type Importer interface {
	Lexicon
	AddOccurrences(ctx context.Context, prev, curr, next model.ID, n int64) error
}

// Import replays exported transitions into dst, adding their counts to any
// already present. The caller must have established the sentinels first.
func Import(ctx context.Context, dst Importer, transitions []ExportedTransition) (int, error) {
	imported := 0
	for _, t := range transitions {
		if !model.ValidRoles[t.Prev.Role] || !model.ValidRoles[t.Curr.Role] || !model.ValidRoles[t.Next.Role] {
			return imported, fmt.Errorf("import transition %d: invalid role", imported)
		}

		var ids [3]model.ID
		for i, w := range []Word{t.Prev, t.Curr, t.Next} {
			id, err := dst.AddWord(ctx, w.Role, w.Text)
			if err != nil {
				return imported, fmt.Errorf("import word: %w", err)
			}
			ids[i] = id
		}

		if err := dst.AddOccurrences(ctx, ids[0], ids[1], ids[2], t.Occurrences); err != nil {
			return imported, fmt.Errorf("import transition: %w", err)
		}
		imported++
	}
	return imported, nil
}
