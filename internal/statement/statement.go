// Package statement parses bank statement exports into rows the reconciler
// can diff and import. CSV and XLSX are supported; both need a header row.
package statement

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"golang.org/x/crypto/blake2b"

	"github.com/sjperalta/village-settlement-api/pkg/money"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported statement format, expected .csv or .xlsx")
	ErrEmptyFile         = errors.New("statement file is empty")
	ErrMissingColumns    = errors.New("statement header must name a date column and an amount or credit/debit column")
)

// DateLayouts are tried in order for the date column.
var DateLayouts = []string{"2006-01-02", "02/01/2006", "2/1/2006", "02-01-2006"}

// Row is one parsed statement line. Line is 1-based and counts the header.
type Row struct {
	Line        int
	Date        time.Time
	Amount      decimal.Decimal
	Description string
}

// Hash identifies the row by date, amount and description. Two uploads that
// contain the same movement produce the same hash.
func (r Row) Hash() string {
	key := fmt.Sprintf("%s|%s|%s", r.Date.Format("2006-01-02"), money.Format(r.Amount), strings.TrimSpace(r.Description))
	sum := blake2b.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

// RowError reports why a line was skipped.
type RowError struct {
	Line    int    `json:"line"`
	Message string `json:"message"`
}

// Result is the outcome of parsing one file.
type Result struct {
	Rows   []Row
	Errors []RowError
	Total  decimal.Decimal
}

// Fingerprint returns the blake2b-256 digest of the raw file.
func Fingerprint(data []byte) string {
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Parse picks a parser from the file extension.
func Parse(filename string, data []byte) (*Result, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrEmptyFile
	}
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv", ".txt":
		return ParseCSV(bytes.NewReader(data))
	case ".xlsx":
		return ParseXLSX(bytes.NewReader(data))
	default:
		return nil, ErrUnsupportedFormat
	}
}

type columns struct {
	date, description, amount, credit, debit int
	// serialDates accepts spreadsheet date serials in the date column.
	serialDates bool
}

var headerAliases = map[string]string{
	"date":             "date",
	"transaction date": "date",
	"วันที่":           "date",
	"description":      "description",
	"details":          "description",
	"memo":             "description",
	"รายการ":           "description",
	"amount":           "amount",
	"จำนวนเงิน":        "amount",
	"credit":           "credit",
	"deposit":          "credit",
	"ฝาก":              "credit",
	"debit":            "debit",
	"withdrawal":       "debit",
	"ถอน":              "debit",
}

func detectColumns(header []string) (columns, error) {
	cols := columns{date: -1, description: -1, amount: -1, credit: -1, debit: -1}
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		switch headerAliases[name] {
		case "date":
			cols.date = i
		case "description":
			cols.description = i
		case "amount":
			cols.amount = i
		case "credit":
			cols.credit = i
		case "debit":
			cols.debit = i
		}
	}
	if cols.date < 0 || (cols.amount < 0 && cols.credit < 0) {
		return cols, ErrMissingColumns
	}
	return cols, nil
}

// record is one raw line of cells with its 1-based position in the file.
type record struct {
	line  int
	cells []string
}

// collect turns raw records (header first) into a Result.
func collect(records []record, serialDates bool) (*Result, error) {
	start := -1
	for i, rec := range records {
		if !blank(rec.cells) {
			start = i
			break
		}
	}
	if start < 0 {
		return nil, ErrEmptyFile
	}

	cols, err := detectColumns(records[start].cells)
	if err != nil {
		return nil, err
	}
	cols.serialDates = serialDates

	res := &Result{Total: decimal.Zero}
	for _, rec := range records[start+1:] {
		if blank(rec.cells) {
			continue
		}
		row, err := cols.parse(rec.cells)
		if err != nil {
			res.Errors = append(res.Errors, RowError{Line: rec.line, Message: err.Error()})
			continue
		}
		row.Line = rec.line
		res.Rows = append(res.Rows, row)
		res.Total = res.Total.Add(row.Amount)
	}
	return res, nil
}

func (c columns) parse(rec []string) (Row, error) {
	var row Row

	raw := cell(rec, c.date)
	date, err := parseDate(raw)
	if err != nil && c.serialDates {
		if serial, serr := parseDateSerial(raw); serr == nil {
			date, err = serial, nil
		}
	}
	if err != nil {
		return row, err
	}
	row.Date = date
	row.Description = cell(rec, c.description)

	var amount decimal.Decimal
	if c.amount >= 0 {
		amount, err = money.Parse(cell(rec, c.amount))
		if err != nil {
			return row, err
		}
	} else {
		credit, err := optionalAmount(cell(rec, c.credit))
		if err != nil {
			return row, err
		}
		debit, err := optionalAmount(cell(rec, c.debit))
		if err != nil {
			return row, err
		}
		amount = credit.Sub(debit)
	}

	if amount.IsZero() {
		return row, errors.New("amount is zero")
	}
	if !money.IsMinorUnit(amount) {
		return row, money.ErrPrecision
	}
	row.Amount = amount
	return row, nil
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errors.New("date is empty")
	}
	for _, layout := range DateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

// parseDateSerial reads an Excel 1900-system day number, dropping any time of day.
func parseDateSerial(s string) (time.Time, error) {
	serial, err := strconv.ParseFloat(s, 64)
	if err != nil || serial < 1 {
		return time.Time{}, fmt.Errorf("unrecognized date %q", s)
	}
	t, err := excelize.ExcelDateToTime(serial, false)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
}

func optionalAmount(s string) (decimal.Decimal, error) {
	if strings.TrimSpace(s) == "" || strings.TrimSpace(s) == "-" {
		return decimal.Zero, nil
	}
	return money.Parse(s)
}

func cell(rec []string, i int) string {
	if i < 0 || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

func blank(rec []string) bool {
	for _, c := range rec {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
