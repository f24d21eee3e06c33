package main

import (
	"context"
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"

	"github.com/xenking/foodcourt/internal/domain/discount"
)

// CSV columns, in order. Only code, type and value are mandatory.
const (
	colCode = iota
	colType
	colValue
	colMinOrder
	colMaxUses
	colExpiresAt
	colDescription
	numColumns
)

var hundred = decimal.NewFromInt(100)

// record is a parsed row with its origin, used to keep the first occurrence
// of duplicated codes.
type record struct {
	file int
	line int
	code discount.Code
}

// rowError reports a row that could not be parsed. It is skipped.
type rowError struct {
	path string
	line int
	err  error
}

func (e *rowError) Error() string {
	return e.path + ":" + strconv.Itoa(e.line) + ": " + e.err.Error()
}

func (e *rowError) Unwrap() error {
	return e.err
}

// parseFile reads a gzip-compressed CSV file. An optional header row whose
// first column is "code" is skipped. Malformed rows are returned as rowErrors
// next to the valid records.
func parseFile(ctx context.Context, idx int, path string) ([]record, []*rowError, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "create gzip reader for %s", path)
	}
	defer func() { _ = gz.Close() }()

	return parseCSV(ctx, idx, path, gz)
}

func parseCSV(ctx context.Context, idx int, path string, r io.Reader) ([]record, []*rowError, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true

	var (
		records []record
		bad     []*rowError
	)
	for {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}

		fields, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				bad = append(bad, &rowError{path: path, line: parseErr.Line, err: parseErr.Err})
				continue
			}
			return nil, nil, errors.Wrapf(err, "read %s", path)
		}
		line, _ := cr.FieldPos(0)

		if line == 1 && strings.EqualFold(strings.TrimSpace(fields[0]), "code") {
			continue
		}

		dc, err := parseRow(fields)
		if err != nil {
			bad = append(bad, &rowError{path: path, line: line, err: err})
			continue
		}
		records = append(records, record{file: idx, line: line, code: dc})
	}
	return records, bad, nil
}

// parseRow converts one CSV row into an active discount code.
func parseRow(fields []string) (discount.Code, error) {
	if len(fields) < colValue+1 || len(fields) > numColumns {
		return discount.Code{}, errors.Errorf("expected %d to %d columns, got %d", colValue+1, numColumns, len(fields))
	}
	get := func(col int) string {
		if col >= len(fields) {
			return ""
		}
		return strings.TrimSpace(fields[col])
	}

	dc := discount.Code{
		Code:        discount.Normalize(get(colCode)),
		Type:        discount.Type(strings.ToLower(get(colType))),
		Description: get(colDescription),
		Active:      true,
	}
	if dc.Code == "" {
		return discount.Code{}, errors.New("empty code")
	}
	if !dc.Type.Valid() {
		return discount.Code{}, errors.Errorf("unknown discount type %q", get(colType))
	}

	value, err := decimal.NewFromString(get(colValue))
	if err != nil {
		return discount.Code{}, errors.Wrap(err, "value")
	}
	if value.IsNegative() {
		return discount.Code{}, errors.New("value must not be negative")
	}
	if dc.Type == discount.TypePercentage && value.GreaterThan(hundred) {
		return discount.Code{}, errors.New("percentage must not exceed 100")
	}
	dc.Value = value

	if v := get(colMinOrder); v != "" {
		minOrder, err := decimal.NewFromString(v)
		if err != nil {
			return discount.Code{}, errors.Wrap(err, "min_order")
		}
		dc.MinOrderValue = &minOrder
	}

	if v := get(colMaxUses); v != "" {
		maxUses, err := strconv.Atoi(v)
		if err != nil {
			return discount.Code{}, errors.Wrap(err, "max_uses")
		}
		if maxUses < 1 {
			return discount.Code{}, errors.New("max_uses must be at least 1")
		}
		dc.MaxUses = &maxUses
	}

	if v := get(colExpiresAt); v != "" {
		expiresAt, err := parseTime(v)
		if err != nil {
			return discount.Code{}, errors.Wrap(err, "expires_at")
		}
		dc.ExpiresAt = &expiresAt
	}

	return dc, nil
}

// parseTime accepts RFC 3339 timestamps and plain dates. A plain date expires
// at the end of that day in UTC.
func parseTime(v string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.DateOnly, v)
	if err != nil {
		return time.Time{}, errors.Errorf("invalid time %q", v)
	}
	return t.Add(24*time.Hour - time.Second), nil
}
