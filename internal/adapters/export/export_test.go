package export_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/okian/rally/internal/adapters/export"
	"github.com/okian/rally/internal/domain/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

var pngMagic = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

func TestRatingChart(t *testing.T) {
	at := time.Date(2024, 5, 6, 18, 0, 0, 0, time.UTC)

	t.Run("history renders a png", func(t *testing.T) {
		points := []types.RatingPoint{
			{Seq: 0, Mu: 25, Sigma: 8.333},
			{Seq: 1, MatchID: 1, PlayedAt: &at, Mu: 29.2, Sigma: 7.19},
			{Seq: 2, MatchID: 3, PlayedAt: &at, Mu: 27.1, Sigma: 6.5},
		}
		out, err := export.RatingChart("ana", points)
		require.NoError(t, err)
		assert.True(t, bytes.HasPrefix(out, pngMagic))
	})

	t.Run("a player without matches gets a placeholder", func(t *testing.T) {
		out, err := export.RatingChart("ben", []types.RatingPoint{{Seq: 0, Mu: 25, Sigma: 8.333}})
		require.NoError(t, err)
		assert.True(t, bytes.HasPrefix(out, pngMagic))
	})
}

func TestLadderWorkbook(t *testing.T) {
	delta := 4.205473
	ladder := []types.LadderEntry{
		{Rank: 1, PlayerID: 1, Name: "ana", Mu: 29.205473, Sigma: 7.194816, Conservative: 7.620925, Delta: &delta},
		{Rank: 2, PlayerID: 2, Name: "ben", Mu: 20.794527, Sigma: 7.194816, Conservative: -0.790021},
	}
	table := []types.WinLossEntry{
		{PlayerID: 1, Name: "ana", Played: 1, Wins: 1, WinPct: 100, Form: []string{"W"}},
		{PlayerID: 2, Name: "ben", Played: 1, Losses: 1, Form: []string{"L"}},
	}

	out, err := export.LadderWorkbook(ladder, table)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(out))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{export.SheetLadder, export.SheetWinLoss}, f.GetSheetList())

	rows, err := f.GetRows(export.SheetLadder)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Rank", rows[0][0])
	assert.Equal(t, []string{"1", "ana", "29.21", "7.19", "7.62", "4.21"}, rows[1])
	assert.Equal(t, "ben", rows[2][1])

	rows, err = f.GetRows(export.SheetWinLoss)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"ana", "1", "1", "0", "100", "W"}, rows[1])
	assert.Equal(t, "L", rows[2][5])
}
