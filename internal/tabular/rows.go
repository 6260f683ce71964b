package tabular

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ErrMalformed marks workbook bytes that cannot be parsed at all. Individual
// bad rows never trigger it; they are reported per row by the decoders.
var ErrMalformed = errors.New("tabular: malformed workbook")

// Row is one data row keyed by header cell.
type Row map[string]string

// Get looks a column up by header name, case-insensitively.
func (r Row) Get(key string) string {
	if v, ok := r[key]; ok {
		return v
	}
	for k, v := range r {
		if strings.EqualFold(k, key) {
			return v
		}
	}
	return ""
}

var xlsxMagic = []byte{0x50, 0x4b, 0x03, 0x04}

// ParseWorkbook turns uploaded spreadsheet bytes into header-keyed rows.
// The first sheet (xlsx) or the whole payload (CSV) is read; the first
// non-empty row is the header. Fully empty data rows are dropped.
func ParseWorkbook(data []byte) ([]Row, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("%w: file too small", ErrMalformed)
	}

	var records [][]string
	var err error
	if bytes.HasPrefix(data, xlsxMagic) {
		records, err = readXLSX(data)
	} else {
		records, err = readCSV(data)
	}
	if err != nil {
		return nil, err
	}

	return assembleRows(records), nil
}

func readXLSX(data []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	defer f.Close() //nolint:errcheck

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: workbook has no sheets", ErrMalformed)
	}
	records, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return records, nil
}

func readCSV(data []byte) ([][]string, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return records, nil
}

func assembleRows(records [][]string) []Row {
	var headers []string
	rows := make([]Row, 0, len(records))

	for _, record := range records {
		if emptyRecord(record) {
			continue
		}
		if headers == nil {
			headers = make([]string, len(record))
			for i, cell := range record {
				headers[i] = strings.TrimSpace(cell)
			}
			continue
		}

		row := make(Row, len(headers))
		for i, header := range headers {
			if header == "" {
				continue
			}
			if i < len(record) {
				row[header] = record[i]
			} else {
				row[header] = ""
			}
		}
		rows = append(rows, row)
	}

	return rows
}

func emptyRecord(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
