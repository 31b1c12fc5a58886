// Package importer turns spreadsheet rows into planner records and
// renders task snapshots back into spreadsheets.
package importer

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/iliyamo/phdplan/internal/model"
)

// DefaultCategory is assigned to imported tasks without a category.
const DefaultCategory = "Geral"

// ErrRowSkipped matches every RowSkippedError with errors.Is.
var ErrRowSkipped = errors.New("row skipped")

// RowSkippedError reports a single spreadsheet row that could not be
// mapped. Row is the 1-based sheet row, counting the header as row 1.
type RowSkippedError struct {
	Sheet  string
	Row    int
	Reason string
}

func (e *RowSkippedError) Error() string {
	return fmt.Sprintf("%s row %d skipped: %s", e.Sheet, e.Row, e.Reason)
}

func (e *RowSkippedError) Is(target error) bool { return target == ErrRowSkipped }

// Row is one data row keyed by its header text.
type Row map[string]string

// lookup returns the first alias present in the row. Headers compare
// case-insensitively with surrounding spaces ignored.
func (r Row) lookup(aliases []string) (string, bool) {
	for _, a := range aliases {
		if v, ok := r[a]; ok {
			return v, true
		}
	}
	for _, a := range aliases {
		for k, v := range r {
			if strings.EqualFold(strings.TrimSpace(k), strings.TrimSpace(a)) {
				return v, true
			}
		}
	}
	return "", false
}

// blank reports whether every cell of the row is empty.
func (r Row) blank() bool {
	for _, v := range r {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func (r Row) text(aliases []string) string {
	v, _ := r.lookup(aliases)
	return cellText(v)
}

// cellText coerces a raw cell to display text. Spreadsheet NaN
// placeholders become the empty string.
func cellText(v string) string {
	if strings.EqualFold(strings.TrimSpace(v), "nan") {
		return ""
	}
	return v
}

// TaskBatch is the result of mapping a task sheet.
type TaskBatch struct {
	Tasks      []model.TaskFields
	Skipped    []*RowSkippedError
	Duplicates int
}

// StrategyBatch is the result of mapping a strategy sheet. Strategies
// carry no id or owner yet.
type StrategyBatch struct {
	Strategies []model.Strategy
	Skipped    []*RowSkippedError
}

// doneWords are the status spellings that mean a task is finished.
var doneWords = map[string]bool{
	"ok":        true,
	"feito":     true,
	"concluído": true,
	"concluido": true,
}

// NormalizeStatus classifies a free-text status cell. Only the done
// spellings map to Feito; everything else, Fazendo included, becomes
// A fazer.
func NormalizeStatus(raw string) model.Status {
	if doneWords[strings.ToLower(strings.TrimSpace(raw))] {
		return model.StatusDone
	}
	return model.StatusTodo
}

// dayFirstLayouts are tried after ISO. Single-digit layouts also accept
// zero-padded input.
var dayFirstLayouts = []string{
	"2/1/2006",
	"2/1/2006 15:04",
	"2/1/2006 15:04:05",
	"2-1-2006",
	"2.1.2006",
	"2/1/06",
	"2-1-06",
	"2.1.06",
}

var isoLayouts = []string{
	"2006-1-2",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
}

// ParseCellDate reads a date cell. Numeric cells are Excel serial dates;
// text is ISO or day-first.
func ParseCellDate(raw string) (model.Date, error) {
	s := strings.TrimSpace(cellText(raw))
	if s == "" {
		return model.Date{}, errors.New("empty date")
	}
	if serial, err := strconv.ParseFloat(s, 64); err == nil {
		if serial < 1 || serial >= 2958466 {
			return model.Date{}, fmt.Errorf("date serial %q out of range", s)
		}
		t, err := excelize.ExcelDateToTime(serial, false)
		if err != nil {
			return model.Date{}, fmt.Errorf("invalid date serial %q: %w", s, err)
		}
		return model.DateOf(t), nil
	}
	for _, layout := range isoLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return model.DateOf(t), nil
		}
	}
	for _, layout := range dayFirstLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return model.DateOf(t), nil
		}
	}
	return model.Date{}, fmt.Errorf("unrecognised date %q", s)
}

// taskKey holds every mapped column of a row as read. Two rows with
// equal keys are the same row.
type taskKey struct {
	date, status, what, action, priority, category   string
	how, where, cta, duration, kpi, dayType, weekday string
	macroTheme, angle, channel                       string
}

// MapTasks maps the rows of the daily plan sheet. rows are positional,
// rows[i] being sheet row i+2; blank rows are ignored. Bad rows are
// reported in Skipped and never stop the batch. Exact repeats of a
// mapped row are dropped.
func MapTasks(sheet string, rows []Row, m *Mapping) TaskBatch {
	var out TaskBatch
	seen := make(map[taskKey]bool, len(rows))
	cols := m.Tasks
	for i, row := range rows {
		if row.blank() {
			continue
		}
		key := taskKey{
			date:       row.text(cols.Date),
			status:     row.text(cols.Status),
			what:       row.text(cols.What),
			action:     row.text(cols.ActionDescription),
			priority:   row.text(cols.Priority),
			category:   row.text(cols.Category),
			how:        row.text(cols.How),
			where:      row.text(cols.Where),
			cta:        row.text(cols.CTA),
			duration:   row.text(cols.Duration),
			kpi:        row.text(cols.KPI),
			dayType:    row.text(cols.DayType),
			weekday:    row.text(cols.Weekday),
			macroTheme: row.text(cols.MacroTheme),
			angle:      row.text(cols.Angle),
			channel:    row.text(cols.Channel),
		}
		date, err := ParseCellDate(key.date)
		if err != nil {
			out.Skipped = append(out.Skipped, &RowSkippedError{Sheet: sheet, Row: i + 2, Reason: err.Error()})
			continue
		}
		if seen[key] {
			out.Duplicates++
			continue
		}
		seen[key] = true
		out.Tasks = append(out.Tasks, taskFromKey(key, date))
	}
	return out
}

func taskFromKey(k taskKey, date model.Date) model.TaskFields {
	priority := model.PriorityMedium
	if strings.TrimSpace(k.priority) != "" {
		// unknown spellings keep the default
		priority, _ = model.ParsePriority(k.priority)
	}
	category := k.category
	if strings.TrimSpace(category) == "" {
		category = DefaultCategory
	}
	return model.TaskFields{
		Description:         model.DescriptionFrom(k.what, k.action),
		Date:                date,
		Status:              NormalizeStatus(k.status),
		Priority:            priority,
		Category:            category,
		OriginalDescription: k.action,
		Details: model.Details{
			What:       k.what,
			How:        k.how,
			Where:      k.where,
			CTA:        k.cta,
			Duration:   k.duration,
			KPI:        k.kpi,
			DayType:    k.dayType,
			Weekday:    k.weekday,
			MacroTheme: k.macroTheme,
			Angle:      k.angle,
			Channel:    k.channel,
		},
	}
}

// MapStrategies maps the weekly themes sheet. Rows are positional as in
// MapTasks. The week end is always six days after the start.
func MapStrategies(sheet string, rows []Row, m *Mapping) StrategyBatch {
	var out StrategyBatch
	cols := m.Strategies
	for i, row := range rows {
		if row.blank() {
			continue
		}
		raw, _ := row.lookup(cols.WeekStart)
		start, err := ParseCellDate(raw)
		if err != nil {
			out.Skipped = append(out.Skipped, &RowSkippedError{Sheet: sheet, Row: i + 2, Reason: err.Error()})
			continue
		}
		var parts []string
		for _, angle := range cols.Angles {
			v, _ := row.lookup(angle.Columns)
			v = strings.TrimSpace(v)
			if v == "" || strings.Contains(strings.ToLower(v), "nan") {
				continue
			}
			parts = append(parts, angle.Label+": "+v)
		}
		out.Strategies = append(out.Strategies, model.Strategy{
			Theme:       row.text(cols.Theme),
			WeekStart:   start,
			WeekEnd:     start.AddDays(model.WeekLength),
			Description: strings.Join(parts, cols.Separator),
		})
	}
	return out
}
