package metadata

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dalemusser/stratadelivery/internal/domain/delivererr"
)

// DataMarker introduces the per-sample section of a SampleSheet.
const DataMarker = "[Data]"

// Field is one column of a SampleSheet row.
type Field struct {
	Key   string
	Value string
}

// Row is a SampleSheet [Data] row with its columns in file order.
type Row []Field

// Get returns the value of the column named key.
func (r Row) Get(key string) (string, bool) {
	for _, f := range r {
		if f.Key == key {
			return f.Value, true
		}
	}
	return "", false
}

// Keys returns the column names of the row in order.
func (r Row) Keys() []string {
	keys := make([]string, len(r))
	for i, f := range r {
		keys[i] = f.Key
	}
	return keys
}

// Map returns a new row built by applying fn to every field of r.
// r is left untouched.
func (r Row) Map(fn func(Field) string) Row {
	out := make(Row, len(r))
	for i, f := range r {
		out[i] = Field{Key: f.Key, Value: fn(f)}
	}
	return out
}

// ParseSampleSheet reads the rows of the [Data] section. Lines before the
// marker are skipped. A missing marker is reported as a missing samplesheet.
func ParseSampleSheet(r io.Reader) ([]Row, error) {
	br := bufio.NewReader(r)
	for {
		line, err := br.ReadString('\n')
		if strings.HasPrefix(line, DataMarker) {
			break
		}
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: no %s section", delivererr.ErrSamplesheetNotFound, DataMarker)
		}
		if err != nil {
			return nil, err
		}
	}

	cr := csv.NewReader(br)
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("parse samplesheet header: %w", err)
	}

	var rows []Row
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse samplesheet: %w", err)
		}
		row := make(Row, len(header))
		for i, key := range header {
			var v string
			if i < len(rec) {
				v = rec[i]
			}
			row[i] = Field{Key: key, Value: v}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// FormatSampleSheet renders rows under a [Data] marker, taking the header from
// the first row. With no rows only the marker is written.
func FormatSampleSheet(rows []Row) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(DataMarker + "\n")
	if len(rows) == 0 {
		return buf.Bytes(), nil
	}

	w := csv.NewWriter(&buf)
	w.UseCRLF = true
	header := rows[0].Keys()
	if err := w.Write(header); err != nil {
		return nil, err
	}
	for _, row := range rows {
		rec := make([]string, len(header))
		for i, key := range header {
			rec[i], _ = row.Get(key)
		}
		if err := w.Write(rec); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
