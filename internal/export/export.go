// Package export writes a learner's mastery and progress as a spreadsheet
// for parents and teachers who work outside the dashboard.
package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/abhisek/skilltrace/internal/diagnosis"
	"github.com/abhisek/skilltrace/internal/mastery"
	"github.com/abhisek/skilltrace/internal/progress"
	"github.com/abhisek/skilltrace/internal/store"
)

// Sheet names, in workbook order.
const (
	SheetMastery    = "Mastery"
	SheetDaily      = "Daily"
	SheetWeaknesses = "Weaknesses"
)

var (
	masteryHeader    = []any{"Concept", "Name", "Mastery %", "Raw %", "Correct", "Attempts", "Capped by", "Confident", "Level"}
	dailyHeader      = []any{"Date", "Attempted", "Correct", "Accuracy %"}
	weaknessesHeader = []any{"Kind", "Token", "Description", "Value"}
)

// Workbook writes an XLSX workbook for one learner to w. The learner's name
// and year level title the Mastery sheet.
func Workbook(w io.Writer, learner store.Learner, records []mastery.Record, daily []progress.Day, rep *diagnosis.Report) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetMastery); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	for _, name := range []string{SheetDaily, SheetWeaknesses} {
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("create sheet %s: %w", name, err)
		}
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create style: %w", err)
	}

	title := fmt.Sprintf("%s (Year %d)", learner.Name, learner.YearLevel)
	if err := f.SetCellValue(SheetMastery, "A1", title); err != nil {
		return err
	}
	if err := f.SetCellStyle(SheetMastery, "A1", "A1", bold); err != nil {
		return err
	}
	rows := make([][]any, 0, len(records))
	for _, r := range records {
		rows = append(rows, []any{
			r.Concept, r.Name, r.MasteryScore, r.RawScore, r.CorrectAttempts,
			r.TotalAttempts, r.CappedBy, r.Confident, r.Level.Label(),
		})
	}
	if err := writeTable(f, SheetMastery, 3, masteryHeader, rows, bold); err != nil {
		return err
	}

	rows = rows[:0]
	for _, d := range daily {
		rows = append(rows, []any{d.Date, d.QuestionsAttempted, d.QuestionsCorrect, d.Accuracy})
	}
	if err := writeTable(f, SheetDaily, 1, dailyHeader, rows, bold); err != nil {
		return err
	}

	rows = rows[:0]
	if rep != nil {
		for _, c := range rep.WeakConcepts {
			rows = append(rows, []any{"weak concept", c.Concept, c.Name, c.MasteryScore})
		}
		for _, p := range rep.ErrorPatterns {
			rows = append(rows, []any{"error pattern", p.TokenID, p.Description, p.Occurrences})
		}
	}
	if err := writeTable(f, SheetWeaknesses, 1, weaknessesHeader, rows, bold); err != nil {
		return err
	}

	if err := f.SetColWidth(SheetMastery, "A", "B", 28); err != nil {
		return err
	}
	if err := f.SetColWidth(SheetWeaknesses, "B", "C", 36); err != nil {
		return err
	}
	f.SetActiveSheet(0)

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// writeTable writes a bold header at startRow followed by rows.
func writeTable(f *excelize.File, sheet string, startRow int, header []any, rows [][]any, headerStyle int) error {
	first, err := excelize.CoordinatesToCellName(1, startRow)
	if err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(len(header), startRow)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, first, &header); err != nil {
		return fmt.Errorf("%s header: %w", sheet, err)
	}
	if err := f.SetCellStyle(sheet, first, last, headerStyle); err != nil {
		return err
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, startRow+1+i)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("%s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}
