// Package ingest reads specimen tables from CSV and XLSX sources into
// the wide-table Frame format. Reading never validates the schema; the
// caller decides when to run validation or repair.
package ingest

import (
	"encoding/csv"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"ftnirs/domain/dataset"
	"ftnirs/internal/errors"
)

// Read loads a table from path, dispatching on the file extension
func Read(path string) (*dataset.Frame, error) {
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return ReadXLSX(path)
	}
	return ReadCSV(path)
}

// ReadCSV loads a comma-separated table from path
func ReadCSV(path string) (*dataset.Frame, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s", path)
	}
	defer f.Close()
	return ReadCSVFrom(f)
}

// ReadCSVFrom loads a comma-separated table from any reader
func ReadCSVFrom(r io.Reader) (*dataset.Frame, error) {
	records, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse csv input")
	}
	return frameFromRows(records)
}

// ReadXLSX loads the first sheet of an Excel workbook
func ReadXLSX(path string) (*dataset.Frame, error) {
	wb, err := excelize.OpenFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open workbook %s", path)
	}
	defer wb.Close()

	sheet := wb.GetSheetName(0)
	rows, err := wb.GetRows(sheet)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read sheet %s", sheet)
	}
	return frameFromRows(rows)
}

func frameFromRows(rows [][]string) (*dataset.Frame, error) {
	if len(rows) < 2 {
		return nil, errors.Newf(errors.CodeIngestError, "input needs a header row and at least one data row, got %d rows", len(rows))
	}
	header := rows[0]
	if len(header) < dataset.NumericOffset+1 {
		return nil, errors.Newf(errors.CodeIngestError, "header has only %d columns", len(header))
	}

	f := dataset.New(header, len(rows)-1)
	for i, row := range rows[1:] {
		if len(row) > len(header) {
			return nil, errors.Newf(errors.CodeIngestError, "row %d has %d cells, header has %d columns", i+2, len(row), len(header))
		}
		cell := func(j int) string {
			if j < len(row) {
				return strings.TrimSpace(row[j])
			}
			return ""
		}
		f.Filenames[i] = cell(0)
		f.Samples[i] = cell(1)
		for j := dataset.NumericOffset; j < len(header); j++ {
			f.Values.Set(i, j-dataset.NumericOffset, parseCell(cell(j)))
		}
	}
	return f, nil
}

// parseCell maps empty or malformed cells to NaN so the data quality
// check can report them instead of the reader guessing values
func parseCell(s string) float64 {
	if s == "" {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}
