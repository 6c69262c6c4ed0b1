package dataset

import (
	"encoding/csv"
	"errors"
	"io"
	"path/filepath"
	"strings"

	"dropoutpredictor/internal/apperr"
	"dropoutpredictor/internal/model"

	"github.com/xuri/excelize/v2"
)

// Supported upload extensions.
const (
	ExtCSV  = ".csv"
	ExtXLSX = ".xlsx"
)

// Supported reports whether fileName has an extension Read understands.
func Supported(fileName string) bool {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ExtCSV, ExtXLSX:
		return true
	}
	return false
}

// Read parses an uploaded table, choosing the format from fileName's extension.
func Read(fileName string, r io.Reader) (*model.Dataset, error) {
	var (
		rows [][]string
		err  error
	)
	switch ext := strings.ToLower(filepath.Ext(fileName)); ext {
	case ExtCSV:
		rows, err = readCSV(r)
	case ExtXLSX:
		rows, err = readXLSX(r)
	default:
		return nil, apperr.ParseError("unsupported file type %q: upload a .csv or .xlsx file", ext)
	}
	if err != nil {
		return nil, err
	}
	ds, err := build(rows)
	if err != nil {
		return nil, err
	}
	ds.Name = filepath.Base(fileName)
	return ds, nil
}

func readCSV(r io.Reader) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	var rows [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				return nil, apperr.ParseError("malformed CSV at line %d: %v", perr.Line, perr.Err)
			}
			return nil, apperr.Wrap(err, apperr.CodeParse, "failed to read CSV")
		}
		rows = append(rows, record)
	}
	if len(rows) > 0 && len(rows[0]) > 0 {
		rows[0][0] = strings.TrimPrefix(rows[0][0], "\ufeff")
	}
	return rows, nil
}

func readXLSX(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeParse, "failed to open Excel workbook")
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, apperr.ParseError("Excel workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, apperr.Wrapf(err, apperr.CodeParse, "failed to read sheet %s", sheets[0])
	}

	// excelize drops trailing empty cells and keeps blank rows.
	var out [][]string
	for i, row := range rows {
		if i > 0 && blank(row) {
			continue
		}
		out = append(out, row)
	}
	if len(out) == 0 {
		return out, nil
	}
	width := len(out[0])
	for i := 1; i < len(out); i++ {
		row := out[i]
		for len(row) > width && strings.TrimSpace(row[len(row)-1]) == "" {
			row = row[:len(row)-1]
		}
		if len(row) > width {
			return nil, apperr.ParseError("row %d has %d values but the header has %d columns", i+1, len(row), width)
		}
		for len(row) < width {
			row = append(row, "")
		}
		out[i] = row
	}
	return out, nil
}

func build(rows [][]string) (*model.Dataset, error) {
	if len(rows) == 0 || blank(rows[0]) {
		return nil, apperr.ParseError("file is empty: a header row is required")
	}

	header := make([]string, len(rows[0]))
	seen := make(map[string]int, len(header))
	for i, h := range rows[0] {
		h = strings.TrimSpace(h)
		if h == "" {
			return nil, apperr.ParseError("column %d has an empty name", i+1)
		}
		if prev, dup := seen[h]; dup {
			return nil, apperr.ParseError("duplicate column %q (columns %d and %d)", h, prev+1, i+1)
		}
		seen[h] = i
		header[i] = h
	}

	if len(rows) < 2 {
		return nil, apperr.ParseError("file must have a header row and at least one data row")
	}

	records := make([]model.Record, 0, len(rows)-1)
	for _, row := range rows[1:] {
		rec := make(model.Record, len(header))
		for j := range header {
			if j < len(row) {
				rec[j] = strings.TrimSpace(row[j])
			}
		}
		records = append(records, rec)
	}
	return &model.Dataset{Header: header, Records: records}, nil
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
