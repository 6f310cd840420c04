package ingest

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"ftnirs/internal/errors"
)

const sampleCSV = `filename,sample,age,weight,length
scan_001.spc,training,3.5,82.1,17.2
scan_002.spc,test,7,120.4,22.9
scan_003.spc,training,,95.0,bad
`

func TestReadCSVFrom(t *testing.T) {
	f, err := ReadCSVFrom(strings.NewReader(sampleCSV))
	require.NoError(t, err)

	assert.Equal(t, []string{"filename", "sample", "age", "weight", "length"}, f.Columns)
	assert.Equal(t, 3, f.Rows())
	assert.Equal(t, []string{"scan_001.spc", "scan_002.spc", "scan_003.spc"}, f.Filenames)
	assert.Equal(t, []string{"training", "test", "training"}, f.Samples)

	assert.Equal(t, 3.5, f.Values.At(0, 0))
	assert.Equal(t, 82.1, f.Values.At(0, 1))
	assert.Equal(t, 7.0, f.Values.At(1, 0))

	// empty and malformed cells surface as NaN for the quality check
	assert.True(t, math.IsNaN(f.Values.At(2, 0)))
	assert.True(t, math.IsNaN(f.Values.At(2, 2)))
}

func TestReadCSV_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "specimens.csv")
	require.NoError(t, os.WriteFile(path, []byte(sampleCSV), 0o644))

	f, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, 3, f.Rows())
}

func TestReadCSVFrom_HeaderOnly(t *testing.T) {
	_, err := ReadCSVFrom(strings.NewReader("filename,sample,age\n"))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeIngestError))
}

func TestReadCSVFrom_NarrowHeader(t *testing.T) {
	_, err := ReadCSVFrom(strings.NewReader("filename,sample\nscan,training\n"))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeIngestError))
}

func TestReadXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "specimens.xlsx")
	wb := excelize.NewFile()
	sheet := wb.GetSheetName(0)
	rows := [][]interface{}{
		{"filename", "sample", "age", "weight"},
		{"scan_001.spc", "training", 2.5, 60.2},
		{"scan_002.spc", "test", 9.0, 140.8},
	}
	for i, row := range rows {
		cellRef, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, wb.SetSheetRow(sheet, cellRef, &row))
	}
	require.NoError(t, wb.SaveAs(path))
	require.NoError(t, wb.Close())

	f, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"filename", "sample", "age", "weight"}, f.Columns)
	assert.Equal(t, 2, f.Rows())
	assert.Equal(t, "scan_002.spc", f.Filenames[1])
	assert.Equal(t, 9.0, f.Values.At(1, 0))
	assert.Equal(t, 140.8, f.Values.At(1, 1))
}

func TestRead_MissingFile(t *testing.T) {
	_, err := Read(filepath.Join(t.TempDir(), "absent.csv"))
	require.Error(t, err)
}
