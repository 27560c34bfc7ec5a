// Package report renders analytics snapshots as spreadsheets for administrators.
package report

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"secaware-training-service/internal/domain"
)

// ContentType is the MIME type of the workbook WriteAnalytics produces.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const (
	SheetOverview = "Overview"
	SheetScores   = "Scores"
	SheetMissed   = "MostMissed"
	SheetActivity = "DailyActivity"
	SheetRecent   = "RecentSessions"
)

type sheet struct {
	name    string
	headers []interface{}
	rows    [][]interface{}
}

// WriteAnalytics writes snap as an xlsx workbook with one sheet per section.
func WriteAnalytics(w io.Writer, snap domain.AnalyticsSnapshot) error {
	f := excelize.NewFile()
	defer f.Close()

	for i, sh := range analyticsSheets(snap) {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", sh.name); err != nil {
				return fmt.Errorf("rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(sh.name); err != nil {
			return fmt.Errorf("create sheet %s: %w", sh.name, err)
		}
		if err := writeSheet(f, sh); err != nil {
			return err
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeSheet(f *excelize.File, sh sheet) error {
	sw, err := f.NewStreamWriter(sh.name)
	if err != nil {
		return fmt.Errorf("stream %s: %w", sh.name, err)
	}
	if err := sw.SetRow("A1", sh.headers); err != nil {
		return fmt.Errorf("%s headers: %w", sh.name, err)
	}
	for i, row := range sh.rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, row); err != nil {
			return fmt.Errorf("%s row %d: %w", sh.name, i+2, err)
		}
	}
	return sw.Flush()
}

func analyticsSheets(snap domain.AnalyticsSnapshot) []sheet {
	o := snap.Overview
	overview := sheet{
		name:    SheetOverview,
		headers: []interface{}{"Metric", "Value"},
		rows: [][]interface{}{
			{"Active users", o.TotalUsers},
			{"Total items", o.TotalItems},
			{"Quiz questions", o.TotalQuestions},
			{"Phishing emails", o.TotalPhishing},
			{"Scenarios", o.TotalScenarios},
			{"Completed sessions", o.TotalGameSessions},
		},
	}

	scores := sheet{name: SheetScores, headers: []interface{}{"Game type", "Average score", "Sessions"}}
	for _, s := range snap.ScoresByCategory {
		scores.rows = append(scores.rows, []interface{}{string(s.GameType), s.AverageScore, s.TotalSessions})
	}

	missed := sheet{name: SheetMissed, headers: []interface{}{"Item", "Question", "Category", "Difficulty", "Missed"}}
	for _, m := range snap.MissedQuestions {
		missed.rows = append(missed.rows, []interface{}{
			m.ItemID, sanitizeForExcel(m.Question), sanitizeForExcel(m.Category), m.Difficulty, m.MissedCount,
		})
	}

	activity := sheet{name: SheetActivity, headers: []interface{}{"Date", "Sessions", "Unique users"}}
	for _, d := range snap.DailyActivity {
		activity.rows = append(activity.rows, []interface{}{d.Date, d.Sessions, d.UniqueUsers})
	}

	recent := sheet{name: SheetRecent, headers: []interface{}{"Result", "User", "Game type", "Score", "Completed at"}}
	for _, r := range snap.RecentSessions {
		recent.rows = append(recent.rows, []interface{}{
			r.ResultID, sanitizeForExcel(r.UserID), string(r.GameType), r.Score, r.CompletedAt.UTC().Format(time.RFC3339),
		})
	}

	return []sheet{overview, scores, missed, activity, recent}
}

// sanitizeForExcel keeps user-controlled text from being evaluated as a formula.
func sanitizeForExcel(s string) string {
	if len(s) == 0 {
		return s
	}
	switch s[0] {
	case '=', '+', '-', '@', '\t', '\r':
		return "'" + s
	}
	return s
}
