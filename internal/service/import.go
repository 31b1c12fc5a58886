package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/phdplan/internal/access"
	"github.com/iliyamo/phdplan/internal/importer"
	"github.com/iliyamo/phdplan/internal/queue"
)

// SheetReport counts what happened to one sheet of an import.
type SheetReport struct {
	Sheet      string   `json:"sheet"`
	Imported   int64    `json:"imported"`
	Skipped    []string `json:"skipped"`
	Duplicates int      `json:"duplicates"`
}

// ImportReport is the outcome of ImportWorkbook. Strategies is nil when
// the workbook has no strategy sheet.
type ImportReport struct {
	Tasks      SheetReport  `json:"tasks"`
	Strategies *SheetReport `json:"strategies,omitempty"`
}

// ImportError names the sheet whose write failed. Nothing was committed.
type ImportError struct {
	Sheet string
	Err   error
}

func (e *ImportError) Error() string {
	return fmt.Sprintf("import of sheet %q failed: %v", e.Sheet, e.Err)
}

func (e *ImportError) Unwrap() error { return e.Err }

func skippedLines(skipped []*importer.RowSkippedError) []string {
	out := make([]string, len(skipped))
	for i, s := range skipped {
		log.Printf("import: %v", s)
		out[i] = s.Error()
	}
	return out
}

// ImportWorkbook replaces actor's tasks, and strategies when the sheet is
// present, with the contents of an .xlsx stream. Unreadable rows are
// skipped and reported. The deletes and inserts of every sheet run in one
// transaction, so a failure leaves the previous data untouched.
func (s *Planner) ImportWorkbook(ctx context.Context, actor access.Actor, r io.Reader) (ImportReport, error) {
	wb, err := importer.OpenWorkbook(r)
	if err != nil {
		return ImportReport{}, invalid("file", "not a readable .xlsx workbook")
	}
	defer wb.Close()

	taskSheet := s.mapping.Sheets.Tasks
	taskRows, err := wb.Rows(taskSheet)
	if errors.Is(err, importer.ErrSheetNotFound) {
		return ImportReport{}, invalid("file", "sheet %q not found", taskSheet)
	}
	if err != nil {
		return ImportReport{}, invalid("file", "%v", err)
	}
	tasks := importer.MapTasks(taskSheet, taskRows, s.mapping)
	report := ImportReport{Tasks: SheetReport{
		Sheet:      taskSheet,
		Skipped:    skippedLines(tasks.Skipped),
		Duplicates: tasks.Duplicates,
	}}

	var strategies *importer.StrategyBatch
	stratSheet := s.mapping.Sheets.Strategies
	if stratSheet != "" && wb.HasSheet(stratSheet) {
		rows, err := wb.Rows(stratSheet)
		if err != nil {
			return ImportReport{}, invalid("file", "%v", err)
		}
		b := importer.MapStrategies(stratSheet, rows, s.mapping)
		strategies = &b
		report.Strategies = &SheetReport{Sheet: stratSheet, Skipped: skippedLines(b.Skipped)}
	}

	err = s.txm.WithTx(ctx, func(tx *sqlx.Tx) error {
		taskRepo := s.tasks.WithTx(tx)
		if _, err := taskRepo.DeleteByOwner(ctx, actor.ID); err != nil {
			return &ImportError{Sheet: taskSheet, Err: err}
		}
		n, err := taskRepo.CreateBatch(ctx, actor.ID, tasks.Tasks)
		if err != nil {
			return &ImportError{Sheet: taskSheet, Err: err}
		}
		report.Tasks.Imported = n

		if strategies == nil {
			return nil
		}
		stratRepo := s.strategies.WithTx(tx)
		if _, err := stratRepo.DeleteByOwner(ctx, actor.ID); err != nil {
			return &ImportError{Sheet: stratSheet, Err: err}
		}
		n, err = stratRepo.CreateBatch(ctx, actor.ID, strategies.Strategies)
		if err != nil {
			return &ImportError{Sheet: stratSheet, Err: err}
		}
		report.Strategies.Imported = n
		return nil
	})
	if err != nil {
		return ImportReport{}, txFail("import workbook", err)
	}

	log.Printf("import: user %d imported %d tasks (%d skipped, %d duplicates)",
		actor.ID, report.Tasks.Imported, len(report.Tasks.Skipped), report.Tasks.Duplicates)
	ev := queue.ImportCompletedEvent{
		UserID:         actor.ID,
		TasksImported:  report.Tasks.Imported,
		TasksSkipped:   len(report.Tasks.Skipped),
		TasksDuplicate: report.Tasks.Duplicates,
		CompletedAt:    s.now().UTC().Format(time.RFC3339),
	}
	if report.Strategies != nil {
		ev.StrategiesImported = report.Strategies.Imported
		ev.StrategiesSkipped = len(report.Strategies.Skipped)
	}
	publishAsync(s.events, queue.ImportCompletedQueue, ev)
	return report, nil
}
