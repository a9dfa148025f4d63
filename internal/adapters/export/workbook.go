package export

import (
	"fmt"
	"math"
	"strings"

	"github.com/okian/rally/internal/domain/types"
	"github.com/xuri/excelize/v2"
)

// Sheet names in the ladder workbook.
const (
	SheetLadder  = "Ladder"
	SheetWinLoss = "Win-Loss"
)

var (
	ladderHeader  = []interface{}{"Rank", "Player", "Mu", "Sigma", "Conservative", "Last change"}
	winLossHeader = []interface{}{"Player", "Played", "Wins", "Losses", "Win %", "Form"}
)

// LadderWorkbook writes the ladder and the win/loss table into one xlsx file.
func LadderWorkbook(ladder []types.LadderEntry, table []types.WinLossEntry) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetLadder); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRender, err)
	}
	if _, err := f.NewSheet(SheetWinLoss); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRender, err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRender, err)
	}

	rows := make([][]interface{}, 0, len(ladder)+1)
	rows = append(rows, ladderHeader)
	for _, e := range ladder {
		var delta interface{}
		if e.Delta != nil {
			delta = round2(*e.Delta)
		}
		rows = append(rows, []interface{}{e.Rank, e.Name, round2(e.Mu), round2(e.Sigma), round2(e.Conservative), delta})
	}
	if err := writeSheet(f, SheetLadder, rows, bold); err != nil {
		return nil, err
	}

	rows = rows[:0]
	rows = append(rows, winLossHeader)
	for _, e := range table {
		rows = append(rows, []interface{}{e.Name, e.Played, e.Wins, e.Losses, round2(e.WinPct), strings.Join(e.Form, "")})
	}
	if err := writeSheet(f, SheetWinLoss, rows, bold); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRender, err)
	}
	return buf.Bytes(), nil
}

func writeSheet(f *excelize.File, sheet string, rows [][]interface{}, headerStyle int) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrRender, err)
		}
		r := row
		if err := f.SetSheetRow(sheet, cell, &r); err != nil {
			return fmt.Errorf("%w: sheet %q row %d: %w", ErrRender, sheet, i+1, err)
		}
	}
	last, err := excelize.CoordinatesToCellName(len(rows[0]), 1)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRender, err)
	}
	if err := f.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
		return fmt.Errorf("%w: %w", ErrRender, err)
	}
	return f.SetColWidth(sheet, "B", "B", 20)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
