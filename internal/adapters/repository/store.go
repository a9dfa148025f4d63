// Package repository persists ledger state behind a transactional store.
package repository

import (
	"context"
	"time"

	"github.com/okian/rally/internal/domain/model"
)

// Reader exposes consistent reads. Match lists are in replay order
// (played_at, id) unless stated otherwise.
type Reader interface {
	// Player returns ErrNotFound if id is unknown.
	Player(ctx context.Context, id int64) (model.Player, error)
	PlayerByName(ctx context.Context, name string) (model.Player, error)
	// Players returns every player ordered by id.
	Players(ctx context.Context) ([]model.Player, error)
	CountPlayers(ctx context.Context) (int, error)

	Match(ctx context.Context, id int64) (model.Match, error)
	Matches(ctx context.Context) ([]model.Match, error)
	MatchesFor(ctx context.Context, playerID int64) ([]model.Match, error)
	// MatchesBetween returns matches with start <= played_at <= end.
	MatchesBetween(ctx context.Context, start, end time.Time) ([]model.Match, error)
	MatchesInSeason(ctx context.Context, season int) ([]model.Match, error)
	// RecentMatches returns at most limit matches, newest first.
	RecentMatches(ctx context.Context, limit int) ([]model.Match, error)
	// LatestMatch returns the last match in replay order or ErrNotFound.
	LatestMatch(ctx context.Context) (model.Match, error)
	CountMatches(ctx context.Context) (int, error)
	// Seasons lists distinct seasons with at least one match, ascending.
	Seasons(ctx context.Context) ([]int, error)

	// Matchup accepts the pair in any order and returns ErrNotFound if
	// the two never met.
	Matchup(ctx context.Context, x, y int64) (model.Matchup, error)
	Matchups(ctx context.Context) ([]model.Matchup, error)

	Snapshot(ctx context.Context, playerID, matchID int64) (model.Snapshot, error)
	SnapshotsFor(ctx context.Context, playerID int64) ([]model.Snapshot, error)
	SnapshotsForMatch(ctx context.Context, matchID int64) ([]model.Snapshot, error)

	Setting(ctx context.Context, key string) (string, error)
}

// Tx is a read-write transaction.
type Tx interface {
	Reader

	// InsertPlayer returns ErrDuplicate if the name is taken.
	InsertPlayer(ctx context.Context, p model.Player) (model.Player, error)
	UpdatePlayer(ctx context.Context, p model.Player) error
	// DeletePlayer cascades to matches, matchups and snapshots.
	DeletePlayer(ctx context.Context, id int64) error

	InsertMatch(ctx context.Context, m model.Match) (model.Match, error)
	// DeleteMatch cascades to the match's snapshots.
	DeleteMatch(ctx context.Context, id int64) error

	PutSnapshot(ctx context.Context, s model.Snapshot) error
	PutMatchup(ctx context.Context, m model.Matchup) error
	DeleteMatchup(ctx context.Context, x, y int64) error
	ClearMatchups(ctx context.Context) error

	// Clear removes players, matches, matchups and snapshots. Settings stay.
	Clear(ctx context.Context) error
	PutSetting(ctx context.Context, key, value string) error
}

// Store runs transactions. fn's error rolls the transaction back.
type Store interface {
	Update(ctx context.Context, fn func(Tx) error) error
	View(ctx context.Context, fn func(Reader) error) error
	Ping(ctx context.Context) error
	Close() error
}
