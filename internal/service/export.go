package service

import (
	"bytes"
	"encoding/base64"
	"encoding/csv"
	"fmt"
	"math"
	"strconv"
	"strings"

	"dropoutpredictor/internal/model"

	"github.com/xuri/excelize/v2"
)

const (
	ExportFileName  = "predictions.csv"
	dataURIPrefix   = "data:file/csv;base64,"
	exportSheetName = "Predictions"
)

// ExportCSV serializes the result table with its header.
func ExportCSV(header []string, rows []model.Record) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(header); err != nil {
		return nil, err
	}
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DataURI embeds a CSV export as a base64 data URI.
func DataURI(csvData []byte) string {
	return dataURIPrefix + base64.StdEncoding.EncodeToString(csvData)
}

// DecodeDataURI reverses DataURI.
func DecodeDataURI(uri string) ([]byte, error) {
	payload, ok := strings.CutPrefix(uri, dataURIPrefix)
	if !ok {
		return nil, fmt.Errorf("not a CSV data URI")
	}
	return base64.StdEncoding.DecodeString(payload)
}

// ParseExport reads a CSV export back into a header and rows.
func ParseExport(csvData []byte) ([]string, []model.Record, error) {
	records, err := csv.NewReader(bytes.NewReader(csvData)).ReadAll()
	if err != nil {
		return nil, nil, err
	}
	if len(records) == 0 {
		return nil, nil, fmt.Errorf("export is empty")
	}
	rows := make([]model.Record, len(records)-1)
	for i, r := range records[1:] {
		rows[i] = r
	}
	return records[0], rows, nil
}

// ExportXLSX writes the result table to a single-sheet workbook. Numeric
// cells are stored as numbers.
func ExportXLSX(header []string, rows []model.Record) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", exportSheetName); err != nil {
		return nil, err
	}
	if err := writeSheetRow(f, 1, header, false); err != nil {
		return nil, err
	}
	for i, row := range rows {
		if err := writeSheetRow(f, i+2, row, true); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeSheetRow(f *excelize.File, rowNum int, cells []string, numeric bool) error {
	cell, err := excelize.CoordinatesToCellName(1, rowNum)
	if err != nil {
		return err
	}
	values := make([]interface{}, len(cells))
	for i, c := range cells {
		values[i] = c
		if numeric {
			if v, err := strconv.ParseFloat(c, 64); err == nil && !math.IsNaN(v) && !math.IsInf(v, 0) {
				values[i] = v
			}
		}
	}
	return f.SetSheetRow(exportSheetName, cell, &values)
}
