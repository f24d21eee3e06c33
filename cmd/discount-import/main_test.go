package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/foodcourt/internal/domain/discount"
)

func writeGz(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	gz := pgzip.NewWriter(f)
	_, err = gz.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	return path
}

func TestParseRow(t *testing.T) {
	tests := []struct {
		name    string
		row     string
		want    func(t *testing.T, dc discount.Code)
		wantErr string
	}{
		{
			name: "minimal",
			row:  " save10 ,Percentage,10",
			want: func(t *testing.T, dc discount.Code) {
				assert.Equal(t, "SAVE10", dc.Code)
				assert.Equal(t, discount.TypePercentage, dc.Type)
				assert.True(t, dc.Value.Equal(decimal.NewFromInt(10)))
				assert.True(t, dc.Active)
				assert.Nil(t, dc.MinOrderValue)
				assert.Nil(t, dc.MaxUses)
				assert.Nil(t, dc.ExpiresAt)
			},
		},
		{
			name: "all columns",
			row:  "BIG,fixed,15,50,10,2026-12-31T18:00:00Z,$15 off",
			want: func(t *testing.T, dc discount.Code) {
				assert.True(t, dc.MinOrderValue.Equal(decimal.NewFromInt(50)))
				assert.Equal(t, 10, *dc.MaxUses)
				assert.Equal(t, time.Date(2026, 12, 31, 18, 0, 0, 0, time.UTC), dc.ExpiresAt.UTC())
				assert.Equal(t, "$15 off", dc.Description)
			},
		},
		{
			name: "plain date expires at end of day",
			row:  "DAY,fixed,1,,,2026-01-31",
			want: func(t *testing.T, dc discount.Code) {
				assert.Equal(t, time.Date(2026, 1, 31, 23, 59, 59, 0, time.UTC), *dc.ExpiresAt)
			},
		},
		{name: "too few columns", row: "X,fixed", wantErr: "expected 3 to 7 columns"},
		{name: "empty code", row: " ,fixed,1", wantErr: "empty code"},
		{name: "unknown type", row: "X,free_lowest,0", wantErr: `unknown discount type "free_lowest"`},
		{name: "bad value", row: "X,fixed,ten", wantErr: "value"},
		{name: "negative value", row: "X,fixed,-1", wantErr: "must not be negative"},
		{name: "percentage over 100", row: "X,percentage,101", wantErr: "must not exceed 100"},
		{name: "zero max uses", row: "X,fixed,1,,0", wantErr: "max_uses must be at least 1"},
		{name: "bad expiry", row: "X,fixed,1,,,tomorrow", wantErr: "expires_at"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dc, err := parseRow(strings.Split(tt.row, ","))
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			tt.want(t, dc)
		})
	}
}

const sampleCSV = `code,type,value,min_order,max_uses,expires_at,description
save10,percentage,10,20,,,10% off
FLAT5, fixed ,5
BAD,bogus,1
BA"D,fixed,1
LATE,fixed,2,,3,2026-01-31,Expires soon
`

func TestParseFile(t *testing.T) {
	path := writeGz(t, t.TempDir(), "codes.csv.gz", sampleCSV)

	records, bad, err := parseFile(context.Background(), 2, path)
	require.NoError(t, err)

	require.Len(t, records, 3)
	assert.Equal(t, "SAVE10", records[0].code.Code)
	assert.Equal(t, 2, records[0].line)
	assert.Equal(t, 2, records[0].file)
	assert.Equal(t, "FLAT5", records[1].code.Code)
	assert.Equal(t, discount.TypeFixed, records[1].code.Type)
	assert.Equal(t, "LATE", records[2].code.Code)
	assert.Equal(t, 6, records[2].line)

	require.Len(t, bad, 2)
	assert.Equal(t, 4, bad[0].line)
	assert.Contains(t, bad[0].Error(), "codes.csv.gz:4: unknown discount type")
	assert.Equal(t, 5, bad[1].line)
}

func TestParseFile_NotGzip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plain.csv")
	require.NoError(t, os.WriteFile(path, []byte(sampleCSV), 0o600))

	_, _, err := parseFile(context.Background(), 0, path)
	require.Error(t, err)
}

func TestParseFiles_Concurrent(t *testing.T) {
	dir := t.TempDir()
	files := []string{
		writeGz(t, dir, "a.csv.gz", "A,fixed,1\nB,fixed,2\n"),
		writeGz(t, dir, "b.csv.gz", "C,fixed,3\n"),
	}

	results, err := parseFiles(context.Background(), files)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Len(t, results[0].records, 2)
	assert.Len(t, results[1].records, 1)
	assert.Equal(t, 1, results[1].records[0].file)

	_, err = parseFiles(context.Background(), append(files, filepath.Join(dir, "missing.gz")))
	require.Error(t, err)
}

func TestDedupe_FirstOccurrenceWins(t *testing.T) {
	mk := func(file, line int, code, desc string) record {
		return record{file: file, line: line, code: discount.Code{Code: code, Description: desc}}
	}
	records := []record{
		mk(1, 5, "A", "second file"),
		mk(0, 3, "A", "first file"),
		mk(0, 2, "B", ""),
		mk(1, 1, "C", ""),
		mk(0, 9, "B", "duplicate in same file"),
	}

	codes, duplicates := dedupe(records)
	assert.Equal(t, 2, duplicates)
	require.Len(t, codes, 3)
	assert.Equal(t, "B", codes[0].Code)
	assert.Empty(t, codes[0].Description)
	assert.Equal(t, "A", codes[1].Code)
	assert.Equal(t, "first file", codes[1].Description)
	assert.Equal(t, "C", codes[2].Code)
}

func TestDedupe_Empty(t *testing.T) {
	codes, duplicates := dedupe(nil)
	assert.Empty(t, codes)
	assert.Zero(t, duplicates)
}

type fakeWriter struct {
	batches [][]discount.Code
	err     error
}

func (f *fakeWriter) Upsert(_ context.Context, codes []discount.Code) error {
	if f.err != nil {
		return f.err
	}
	f.batches = append(f.batches, append([]discount.Code(nil), codes...))
	return nil
}

func TestWriteCodes_Batches(t *testing.T) {
	codes := make([]discount.Code, 5)
	for i := range codes {
		codes[i].Code = string(rune('A' + i))
	}
	w := &fakeWriter{}

	require.NoError(t, writeCodes(context.Background(), w, codes, 2))
	require.Len(t, w.batches, 3)
	assert.Len(t, w.batches[0], 2)
	assert.Len(t, w.batches[2], 1)
	for _, b := range w.batches {
		for _, dc := range b {
			assert.NotEmpty(t, dc.ID)
		}
	}
}

func TestExpandFiles(t *testing.T) {
	dir := t.TempDir()
	writeGz(t, dir, "b.csv.gz", "")
	writeGz(t, dir, "a.csv.gz", "")

	files, err := expandFiles([]string{filepath.Join(dir, "*.csv.gz")})
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a.csv.gz"), filepath.Join(dir, "b.csv.gz")}, files)

	_, err = expandFiles([]string{filepath.Join(dir, "*.zip")})
	require.Error(t, err)
}
