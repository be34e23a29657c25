// Package airline reads the airline lookup table from an .xlsx workbook.
package airline

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/kailas-cloud/flightq/internal/domain"
	"github.com/kailas-cloud/flightq/internal/domain/airline"
)

// Columns names the header cells of the dataset.
type Columns struct {
	NameEN string
	NameAR string
	Code   string
}

// DefaultColumns match the shipped dataset.
var DefaultColumns = Columns{NameEN: "name_en", NameAR: "name_ar", Code: "airline_code"}

// Dataset loads airline records from a workbook.
type Dataset struct {
	sheet   string
	columns Columns
	logger  *zap.Logger
}

// NewDataset creates a dataset reader. An empty sheet selects the first one.
func NewDataset(sheet string, columns Columns, logger *zap.Logger) *Dataset {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dataset{sheet: sheet, columns: columns, logger: logger}
}

// LoadFile reads records from the workbook at path.
func (d *Dataset) LoadFile(path string) ([]airline.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", domain.ErrDatasetUnavailable, path, err)
	}
	defer func() { _ = f.Close() }()

	records, err := d.Load(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return records, nil
}

// Load reads records from a workbook stream. Rows the domain rejects are skipped.
func (d *Dataset) Load(r io.Reader) ([]airline.Record, error) {
	wb, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: read workbook: %w", domain.ErrDatasetUnavailable, err)
	}
	defer func() { _ = wb.Close() }()

	sheet := d.sheet
	if sheet == "" {
		sheets := wb.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("%w: workbook has no sheets", domain.ErrDatasetUnavailable)
		}
		sheet = sheets[0]
	}

	rows, err := wb.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("%w: read sheet %q: %w", domain.ErrDatasetUnavailable, sheet, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: sheet %q is empty", domain.ErrDatasetUnavailable, sheet)
	}

	idx, err := d.headerIndex(rows[0])
	if err != nil {
		return nil, err
	}

	records := make([]airline.Record, 0, len(rows)-1)
	skipped := 0
	for i, row := range rows[1:] {
		rec, err := airline.NewRecord(cell(row, idx.en), cell(row, idx.ar), cell(row, idx.code))
		if err != nil {
			skipped++
			if errors.Is(err, domain.ErrInvalidRecord) {
				d.logger.Debug("Skipping dataset row", zap.Int("row", i+2), zap.Error(err))
				continue
			}
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		records = append(records, rec)
	}

	d.logger.Info("Airline dataset loaded",
		zap.String("sheet", sheet),
		zap.Int("records", len(records)),
		zap.Int("skipped", skipped),
	)
	return records, nil
}

type columnIndex struct {
	en, ar, code int
}

func (d *Dataset) headerIndex(header []string) (columnIndex, error) {
	pos := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimSpace(name)
		if _, dup := pos[name]; !dup {
			pos[name] = i
		}
	}

	var idx columnIndex
	for _, c := range []struct {
		name string
		dst  *int
	}{
		{d.columns.NameEN, &idx.en},
		{d.columns.NameAR, &idx.ar},
		{d.columns.Code, &idx.code},
	} {
		i, ok := pos[c.name]
		if !ok {
			return columnIndex{}, fmt.Errorf("%w: missing column %q", domain.ErrDatasetUnavailable, c.name)
		}
		*c.dst = i
	}
	return idx, nil
}

// cell returns the trimmed value at i; excelize truncates trailing empty cells.
func cell(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}
