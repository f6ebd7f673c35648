package export

import (
	"fmt"
	"strings"
	"time"

	"gubanews/internal/logging"

	"github.com/xuri/excelize/v2"
)

// Task is one row of the batch workbook: a stock code and the event
// date to harvest around.
type Task struct {
	Code string
	Date time.Time
}

// Layouts accepted for the date column; excelize formats cells before
// returning them, so both ISO and excel default renderings show up.
var taskDateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"2006/1/2",
	"01-02-06",
	"1/2/06",
	"2006-01-02 15:04:05",
}

// ReadTasks reads (code, date) pairs from the first sheet of an XLSX
// workbook. The first row is a header and is skipped; blank rows are
// skipped; anything else malformed is an error naming the row.
func ReadTasks(path string) ([]Task, error) {
	timer := logging.StartTimer(logging.CategoryExport, "read tasks")
	defer timer.Stop()

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook %s: %w", path, err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, fmt.Errorf("workbook %s has no sheets", path)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheet, err)
	}

	var tasks []Task
	for i, row := range rows {
		if i == 0 {
			continue // header
		}
		if isBlankRow(row) {
			continue
		}
		if len(row) < 2 {
			return nil, fmt.Errorf("row %d: want code and date columns, got %d cells", i+1, len(row))
		}

		code := strings.TrimSpace(row[0])
		if code == "" {
			return nil, fmt.Errorf("row %d: empty stock code", i+1)
		}

		date, err := parseTaskDate(strings.TrimSpace(row[1]))
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		tasks = append(tasks, Task{Code: code, Date: date})
	}

	logging.Export("read %d tasks from %s", len(tasks), path)
	return tasks, nil
}

func parseTaskDate(cell string) (time.Time, error) {
	for _, layout := range taskDateLayouts {
		if t, err := time.Parse(layout, cell); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", cell)
}

func isBlankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
