package insightsservice

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/xuri/excelize/v2"
)

// ExportLeaderboardXLSX renders a leaderboard into a spreadsheet: one
// summary sheet with rank/username/points and one column per activity type.
func ExportLeaderboardXLSX(entries []LeaderboardEntry) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Leaderboard"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, fmt.Errorf("failed to name leaderboard sheet: %w", err)
	}

	typeNames := collectTypeNames(entries)
	header := append([]string{"Rank", "Username", "Display Name", "Total Points"}, typeNames...)
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("failed to write header row: %w", err)
	}

	for i, entry := range entries {
		row := make([]any, 0, len(header))
		row = append(row, i+1, entry.Username, entry.DisplayName, entry.TotalPoints)
		for _, name := range typeNames {
			row = append(row, entry.ActivityBreakdown[name].Points)
		}
		cell := fmt.Sprintf("A%d", i+2)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to serialize spreadsheet: %w", err)
	}
	return buf.Bytes(), nil
}

func collectTypeNames(entries []LeaderboardEntry) []string {
	seen := make(map[string]bool)
	var names []string
	for _, entry := range entries {
		for name := range entry.ActivityBreakdown {
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}
	sort.Strings(names)
	return names
}
