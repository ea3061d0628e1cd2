package study

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/p-n-ai/pai-study/internal/curriculum"
	"github.com/p-n-ai/pai-study/internal/navigation"
)

// ResultsSheet is the worksheet name of an exported results workbook.
const ResultsSheet = "Results"

var resultsHeader = []any{"Domain", "Topic", "Correct", "Answered", "Percent", "Completed"}

// ExportResults writes the session's quiz results as an xlsx workbook: one row
// per topic quiz in curriculum order, followed by the progress label.
func (s *Service) ExportResults(id string, w io.Writer) error {
	sess, err := s.Get(id)
	if err != nil {
		return err
	}

	sess.mu.Lock()
	c := sess.machine.Curriculum()
	results := sess.machine.Results()
	progress := sess.machine.Progress()
	sess.mu.Unlock()

	return WriteResults(w, c, results, progress)
}

// WriteResults writes a results workbook.
func WriteResults(w io.Writer, c *curriculum.Curriculum, results map[string]navigation.QuizResult, progress navigation.Progress) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", ResultsSheet); err != nil {
		return fmt.Errorf("naming sheet: %w", err)
	}
	if err := f.SetSheetRow(ResultsSheet, "A1", &resultsHeader); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("creating style: %w", err)
	}
	if err := f.SetCellStyle(ResultsSheet, "A1", "F1", bold); err != nil {
		return fmt.Errorf("styling header: %w", err)
	}

	row := 2
	for di, d := range c.Domains {
		for ti, t := range d.Topics {
			if t.Quiz == nil {
				continue
			}
			r := results[navigation.QuizKey(di, ti)]
			cell, err := excelize.CoordinatesToCellName(1, row)
			if err != nil {
				return err
			}
			completed := "no"
			if r.Completed {
				completed = "yes"
			}
			values := []any{d.Title, t.Title, r.Correct, r.Total, r.Percent(), completed}
			if err := f.SetSheetRow(ResultsSheet, cell, &values); err != nil {
				return fmt.Errorf("writing row %d: %w", row, err)
			}
			row++
		}
	}

	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetCellStr(ResultsSheet, cell, progress.Label()); err != nil {
		return fmt.Errorf("writing progress: %w", err)
	}

	if err := f.SetColWidth(ResultsSheet, "A", "B", 30); err != nil {
		return fmt.Errorf("sizing columns: %w", err)
	}
	if err := f.Write(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}
