package roster

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/amuthap/wedding-automation/internal/models"
)

// Load reads a roster from a .csv or .xlsx file. The header row must carry
// the required columns; Phone and WhatsApp are optional.
func Load(path string) ([]models.RosterRow, error) {
	if isWorkbook(path) {
		return loadWorkbook(path)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("roster: open %s: %w", path, err)
	}
	defer f.Close()
	return Read(f)
}

// Read parses CSV roster data.
func Read(r io.Reader) ([]models.RosterRow, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("roster: read csv: %w", err)
	}
	return fromRecords(records)
}

func loadWorkbook(path string) ([]models.RosterRow, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("roster: open %s: %w", path, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("roster: %s has no sheets", path)
	}
	records, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("roster: read %s: %w", path, err)
	}
	return fromRecords(records)
}

func fromRecords(records [][]string) ([]models.RosterRow, error) {
	if len(records) == 0 {
		return nil, errors.New("roster: missing header row")
	}
	index := make(map[string]int, len(records[0]))
	for i, h := range records[0] {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if _, dup := index[h]; !dup {
			index[h] = i
		}
	}
	var missing []string
	for _, col := range models.RequiredColumns {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("roster: missing columns %s", strings.Join(missing, ", "))
	}

	field := func(rec []string, col string) string {
		i, ok := index[col]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	rows := make([]models.RosterRow, 0, len(records)-1)
	for _, rec := range records[1:] {
		if blank(rec) {
			continue
		}
		rows = append(rows, models.RosterRow{
			Date:     field(rec, models.ColumnDate),
			ImageURL: field(rec, models.ColumnImage),
			Name:     field(rec, models.ColumnName),
			Address:  field(rec, models.ColumnAddress),
			Role:     field(rec, models.ColumnRole),
			Phone:    field(rec, models.ColumnPhone),
			WhatsApp: field(rec, models.ColumnWhatsApp),
		})
	}
	return rows, nil
}

// Save writes rows with the fixed column order. A .xlsx path produces a
// workbook, anything else CSV.
func Save(path string, rows []models.RosterRow) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("roster: create %s: %w", dir, err)
		}
	}
	if isWorkbook(path) {
		return saveWorkbook(path, rows)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("roster: create %s: %w", path, err)
	}
	if err := Write(f, rows); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Write encodes rows as CSV with a header.
func Write(w io.Writer, rows []models.RosterRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(models.RosterColumns); err != nil {
		return fmt.Errorf("roster: write header: %w", err)
	}
	for _, row := range rows {
		if err := cw.Write(row.Values()); err != nil {
			return fmt.Errorf("roster: write row %q: %w", row.Name, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func saveWorkbook(path string, rows []models.RosterRow) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	write := func(rowNum int, values []string) error {
		cell, err := excelize.CoordinatesToCellName(1, rowNum)
		if err != nil {
			return err
		}
		return f.SetSheetRow(sheet, cell, &values)
	}
	if err := write(1, models.RosterColumns); err != nil {
		return fmt.Errorf("roster: write header: %w", err)
	}
	for i, row := range rows {
		if err := write(i+2, row.Values()); err != nil {
			return fmt.Errorf("roster: write row %q: %w", row.Name, err)
		}
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("roster: save %s: %w", path, err)
	}
	return nil
}

func isWorkbook(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".xlsx")
}

func blank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
