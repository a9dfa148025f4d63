package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/okian/rally/internal/domain/model"
)

// txn implements Tx (and so Reader) over one database/sql transaction.
type txn struct {
	tx *sql.Tx
	d  dialect
}

var _ Tx = (*txn)(nil)

type scanner interface {
	Scan(dest ...any) error
}

const (
	playerColumns = `id, name, mu, sigma, updated_at`
	matchColumns  = `id, player1_id, player2_id, score1, score2, played_at, season`
	matchupCols   = `player_a, player_b, matches_played, wins_a, wins_b`
	replayOrder   = ` ORDER BY played_at, id`
)

func (t *txn) query(ctx context.Context, q string, args ...any) (*sql.Rows, error) {
	return t.tx.QueryContext(ctx, t.d.rebind(q), args...)
}

func (t *txn) queryRow(ctx context.Context, q string, args ...any) *sql.Row {
	return t.tx.QueryRowContext(ctx, t.d.rebind(q), args...)
}

func (t *txn) exec(ctx context.Context, q string, args ...any) (sql.Result, error) {
	return t.tx.ExecContext(ctx, t.d.rebind(q), args...)
}

func nanos(ts time.Time) int64 { return ts.UnixNano() }

func fromNanos(n int64) time.Time { return time.Unix(0, n).UTC() }

func scanPlayer(s scanner) (model.Player, error) {
	var p model.Player
	var updated int64
	if err := s.Scan(&p.ID, &p.Name, &p.Mu, &p.Sigma, &updated); err != nil {
		return model.Player{}, err
	}
	p.UpdatedAt = fromNanos(updated)
	return p, nil
}

func scanMatch(s scanner) (model.Match, error) {
	var m model.Match
	var played int64
	if err := s.Scan(&m.ID, &m.Player1ID, &m.Player2ID, &m.Score1, &m.Score2, &played, &m.Season); err != nil {
		return model.Match{}, err
	}
	m.PlayedAt = fromNanos(played)
	return m, nil
}

func scanMatchup(s scanner) (model.Matchup, error) {
	var m model.Matchup
	err := s.Scan(&m.PlayerA, &m.PlayerB, &m.MatchesPlayed, &m.WinsA, &m.WinsB)
	return m, err
}

func scanSnapshot(s scanner) (model.Snapshot, error) {
	var sn model.Snapshot
	err := s.Scan(&sn.PlayerID, &sn.MatchID, &sn.Mu, &sn.Sigma)
	return sn, err
}

// one maps sql.ErrNoRows to ErrNotFound.
func one[T any](v T, err error, what string) (T, error) {
	if errors.Is(err, sql.ErrNoRows) {
		return v, fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	if err != nil {
		return v, fmt.Errorf("%s: %w", what, err)
	}
	return v, nil
}

func collect[T any](rows *sql.Rows, err error, scan func(scanner) (T, error)) ([]T, error) {
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (t *txn) Player(ctx context.Context, id int64) (model.Player, error) {
	p, err := scanPlayer(t.queryRow(ctx, `SELECT `+playerColumns+` FROM players WHERE id = ?`, id))
	return one(p, err, fmt.Sprintf("player %d", id))
}

func (t *txn) PlayerByName(ctx context.Context, name string) (model.Player, error) {
	p, err := scanPlayer(t.queryRow(ctx, `SELECT `+playerColumns+` FROM players WHERE name = ?`, name))
	return one(p, err, fmt.Sprintf("player %q", name))
}

func (t *txn) Players(ctx context.Context) ([]model.Player, error) {
	rows, err := t.query(ctx, `SELECT `+playerColumns+` FROM players ORDER BY id`)
	return collect(rows, err, scanPlayer)
}

func (t *txn) CountPlayers(ctx context.Context) (int, error) {
	var n int
	err := t.queryRow(ctx, `SELECT COUNT(*) FROM players`).Scan(&n)
	return n, err
}

func (t *txn) Match(ctx context.Context, id int64) (model.Match, error) {
	m, err := scanMatch(t.queryRow(ctx, `SELECT `+matchColumns+` FROM matches WHERE id = ?`, id))
	return one(m, err, fmt.Sprintf("match %d", id))
}

func (t *txn) Matches(ctx context.Context) ([]model.Match, error) {
	rows, err := t.query(ctx, `SELECT `+matchColumns+` FROM matches`+replayOrder)
	return collect(rows, err, scanMatch)
}

func (t *txn) MatchesFor(ctx context.Context, playerID int64) ([]model.Match, error) {
	rows, err := t.query(ctx, `SELECT `+matchColumns+` FROM matches
		WHERE player1_id = ? OR player2_id = ?`+replayOrder, playerID, playerID)
	return collect(rows, err, scanMatch)
}

func (t *txn) MatchesBetween(ctx context.Context, start, end time.Time) ([]model.Match, error) {
	rows, err := t.query(ctx, `SELECT `+matchColumns+` FROM matches
		WHERE played_at >= ? AND played_at <= ?`+replayOrder, nanos(start), nanos(end))
	return collect(rows, err, scanMatch)
}

func (t *txn) MatchesInSeason(ctx context.Context, season int) ([]model.Match, error) {
	rows, err := t.query(ctx, `SELECT `+matchColumns+` FROM matches WHERE season = ?`+replayOrder, season)
	return collect(rows, err, scanMatch)
}

func (t *txn) RecentMatches(ctx context.Context, limit int) ([]model.Match, error) {
	rows, err := t.query(ctx, `SELECT `+matchColumns+` FROM matches
		ORDER BY played_at DESC, id DESC LIMIT ?`, limit)
	return collect(rows, err, scanMatch)
}

func (t *txn) LatestMatch(ctx context.Context) (model.Match, error) {
	m, err := scanMatch(t.queryRow(ctx, `SELECT `+matchColumns+` FROM matches
		ORDER BY played_at DESC, id DESC LIMIT 1`))
	return one(m, err, "latest match")
}

func (t *txn) CountMatches(ctx context.Context) (int, error) {
	var n int
	err := t.queryRow(ctx, `SELECT COUNT(*) FROM matches`).Scan(&n)
	return n, err
}

func (t *txn) Seasons(ctx context.Context) ([]int, error) {
	rows, err := t.query(ctx, `SELECT DISTINCT season FROM matches ORDER BY season`)
	return collect(rows, err, func(s scanner) (int, error) {
		var n int
		err := s.Scan(&n)
		return n, err
	})
}

func (t *txn) Matchup(ctx context.Context, x, y int64) (model.Matchup, error) {
	a, b := model.CanonicalPair(x, y)
	m, err := scanMatchup(t.queryRow(ctx, `SELECT `+matchupCols+` FROM matchups
		WHERE player_a = ? AND player_b = ?`, a, b))
	return one(m, err, fmt.Sprintf("matchup %d-%d", a, b))
}

func (t *txn) Matchups(ctx context.Context) ([]model.Matchup, error) {
	rows, err := t.query(ctx, `SELECT `+matchupCols+` FROM matchups ORDER BY player_a, player_b`)
	return collect(rows, err, scanMatchup)
}

func (t *txn) Snapshot(ctx context.Context, playerID, matchID int64) (model.Snapshot, error) {
	s, err := scanSnapshot(t.queryRow(ctx, `SELECT player_id, match_id, mu, sigma FROM rating_snapshots
		WHERE player_id = ? AND match_id = ?`, playerID, matchID))
	return one(s, err, fmt.Sprintf("snapshot %d@%d", playerID, matchID))
}

func (t *txn) SnapshotsFor(ctx context.Context, playerID int64) ([]model.Snapshot, error) {
	rows, err := t.query(ctx, `SELECT player_id, match_id, mu, sigma FROM rating_snapshots
		WHERE player_id = ? ORDER BY match_id`, playerID)
	return collect(rows, err, scanSnapshot)
}

func (t *txn) SnapshotsForMatch(ctx context.Context, matchID int64) ([]model.Snapshot, error) {
	rows, err := t.query(ctx, `SELECT player_id, match_id, mu, sigma FROM rating_snapshots
		WHERE match_id = ? ORDER BY player_id`, matchID)
	return collect(rows, err, scanSnapshot)
}

func (t *txn) Setting(ctx context.Context, key string) (string, error) {
	var v string
	err := t.queryRow(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&v)
	return one(v, err, fmt.Sprintf("setting %q", key))
}

func (t *txn) InsertPlayer(ctx context.Context, p model.Player) (model.Player, error) {
	err := t.queryRow(ctx, `INSERT INTO players (name, mu, sigma, updated_at)
		VALUES (?, ?, ?, ?) RETURNING id`, p.Name, p.Mu, p.Sigma, nanos(p.UpdatedAt)).Scan(&p.ID)
	if isUniqueViolation(err) {
		return model.Player{}, fmt.Errorf("player %q: %w", p.Name, ErrDuplicate)
	}
	if err != nil {
		return model.Player{}, fmt.Errorf("insert player: %w", err)
	}
	p.UpdatedAt = fromNanos(nanos(p.UpdatedAt))
	return p, nil
}

func (t *txn) UpdatePlayer(ctx context.Context, p model.Player) error {
	res, err := t.exec(ctx, `UPDATE players SET mu = ?, sigma = ?, updated_at = ? WHERE id = ?`,
		p.Mu, p.Sigma, nanos(p.UpdatedAt), p.ID)
	return affected(res, err, fmt.Sprintf("player %d", p.ID))
}

func (t *txn) DeletePlayer(ctx context.Context, id int64) error {
	res, err := t.exec(ctx, `DELETE FROM players WHERE id = ?`, id)
	return affected(res, err, fmt.Sprintf("player %d", id))
}

func (t *txn) InsertMatch(ctx context.Context, m model.Match) (model.Match, error) {
	err := t.queryRow(ctx, `INSERT INTO matches (player1_id, player2_id, score1, score2, played_at, season)
		VALUES (?, ?, ?, ?, ?, ?) RETURNING id`,
		m.Player1ID, m.Player2ID, m.Score1, m.Score2, nanos(m.PlayedAt), m.Season).Scan(&m.ID)
	if err != nil {
		return model.Match{}, fmt.Errorf("insert match: %w", err)
	}
	m.PlayedAt = fromNanos(nanos(m.PlayedAt))
	return m, nil
}

func (t *txn) DeleteMatch(ctx context.Context, id int64) error {
	res, err := t.exec(ctx, `DELETE FROM matches WHERE id = ?`, id)
	return affected(res, err, fmt.Sprintf("match %d", id))
}

func (t *txn) PutSnapshot(ctx context.Context, s model.Snapshot) error {
	_, err := t.exec(ctx, `INSERT INTO rating_snapshots (player_id, match_id, mu, sigma)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (player_id, match_id) DO UPDATE SET mu = excluded.mu, sigma = excluded.sigma`,
		s.PlayerID, s.MatchID, s.Mu, s.Sigma)
	if err != nil {
		return fmt.Errorf("put snapshot %d@%d: %w", s.PlayerID, s.MatchID, err)
	}
	return nil
}

func (t *txn) PutMatchup(ctx context.Context, m model.Matchup) error {
	_, err := t.exec(ctx, `INSERT INTO matchups (`+matchupCols+`)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (player_a, player_b) DO UPDATE SET
			matches_played = excluded.matches_played,
			wins_a = excluded.wins_a,
			wins_b = excluded.wins_b`,
		m.PlayerA, m.PlayerB, m.MatchesPlayed, m.WinsA, m.WinsB)
	if err != nil {
		return fmt.Errorf("put matchup %d-%d: %w", m.PlayerA, m.PlayerB, err)
	}
	return nil
}

func (t *txn) DeleteMatchup(ctx context.Context, x, y int64) error {
	a, b := model.CanonicalPair(x, y)
	res, err := t.exec(ctx, `DELETE FROM matchups WHERE player_a = ? AND player_b = ?`, a, b)
	return affected(res, err, fmt.Sprintf("matchup %d-%d", a, b))
}

func (t *txn) ClearMatchups(ctx context.Context) error {
	_, err := t.exec(ctx, `DELETE FROM matchups`)
	return err
}

func (t *txn) Clear(ctx context.Context) error {
	for _, table := range []string{"rating_snapshots", "matchups", "matches", "players"} {
		if _, err := t.exec(ctx, `DELETE FROM `+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	return nil
}

func (t *txn) PutSetting(ctx context.Context, key, value string) error {
	_, err := t.exec(ctx, `INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value`, key, value)
	if err != nil {
		return fmt.Errorf("put setting %q: %w", key, err)
	}
	return nil
}

func affected(res sql.Result, err error, what string) error {
	if err != nil {
		return fmt.Errorf("%s: %w", what, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", what, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return nil
}
