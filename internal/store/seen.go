package store

import (
	"context"
	"log"
	"time"

	"fresherwatch/internal/domain"
)

// FilterNew returns the postings whose link has not yet been recorded for the
// channel, preserving input order. A read failure degrades to "nothing seen"
// so the refresh still goes out; the anomaly is logged.
func (s *Store) FilterNew(ctx context.Context, channelID string, postings []domain.JobPosting) []domain.JobPosting {
	if len(postings) == 0 {
		return nil
	}

	seen, err := s.seenLinks(ctx, channelID)
	if err != nil {
		log.Printf("[store] seen read failed channel=%s err=%v (treating as empty)", channelID, err)
		seen = nil
	}

	var out []domain.JobPosting
	for _, p := range postings {
		if !seen[p.Link] {
			out = append(out, p)
		}
	}
	return out
}

// Record adds each posting's link to the channel's seen set. Re-recording a
// link is a no-op, so concurrent refreshes of one channel can both write
// without losing anything; sqlite serializes the inserts.
func (s *Store) Record(ctx context.Context, channelID string, postings []domain.JobPosting) error {
	if len(postings) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC().Format(time.RFC3339)
	for _, p := range postings {
		if p.Link == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx, `
INSERT OR IGNORE INTO seen(channel_id, link, first_seen) VALUES(?,?,?);`,
			channelID, p.Link, now); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Reset forgets everything recorded for the channel. Never called
// automatically.
func (s *Store) Reset(ctx context.Context, channelID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM seen WHERE channel_id = ?;`, channelID)
	return err
}

// SeenCount reports how many links the channel has accumulated.
func (s *Store) SeenCount(ctx context.Context, channelID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
SELECT COUNT(*) FROM seen WHERE channel_id = ?;`, channelID).Scan(&n)
	return n, err
}

func (s *Store) seenLinks(ctx context.Context, channelID string) (map[string]bool, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT link FROM seen WHERE channel_id = ?;`, channelID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	seen := map[string]bool{}
	for rows.Next() {
		var link string
		if err := rows.Scan(&link); err != nil {
			return nil, err
		}
		seen[link] = true
	}
	return seen, rows.Err()
}
