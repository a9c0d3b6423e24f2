package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	utf8BOM      = "\uFEFF"
	maxIdentSize = 63
)

// ReadHeader reads the first CSV record from r.
func ReadHeader(r io.Reader) ([]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	rec, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read header: empty file")
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if len(rec) > 0 {
		rec[0] = strings.TrimPrefix(rec[0], utf8BOM)
	}
	return rec, nil
}

// NormalizeFieldName converts arbitrary header text into a lowercase ASCII
// identifier:
//  1. lowercase
//  2. strip accents (NFD → remove Mn → NFC)
//  3. keep [a-z0-9]; spaces, dashes, dots and underscores collapse into one
//     underscore; drop everything else
//  4. trim underscores, cap at 63 bytes
//
// The result is empty when nothing usable remains.
func NormalizeFieldName(s string) string {
	s = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(s, utf8BOM)))

	t := transform.Chain(
		norm.NFD,
		runes.Remove(runes.In(unicode.Mn)),
		norm.NFC,
	)
	ascii, _, _ := transform.String(t, s)

	var b strings.Builder
	prevUnderscore := false
	for _, r := range ascii {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			prevUnderscore = false
		case r == '_' || r == ' ' || r == '-' || r == '.' || r == '/':
			if !prevUnderscore {
				b.WriteRune('_')
				prevUnderscore = true
			}
		}
	}
	name := strings.Trim(b.String(), "_")
	if len(name) > maxIdentSize {
		name = strings.TrimRight(name[:maxIdentSize], "_")
	}
	return name
}

// NormalizeHeader normalizes every header cell and makes the result usable
// as a staging column list: empty names become column_<n>, names starting
// with a digit get a c_ prefix, and duplicates get a _2, _3 ... suffix.
func NormalizeHeader(header []string) []string {
	out := make([]string, len(header))
	seen := make(map[string]struct{}, len(header))
	for i, h := range header {
		name := NormalizeFieldName(h)
		if name == "" {
			name = "column_" + strconv.Itoa(i+1)
		}
		if name[0] >= '0' && name[0] <= '9' {
			name = "c_" + name
		}
		if len(name) > maxIdentSize {
			name = name[:maxIdentSize]
		}
		candidate := name
		for n := 2; ; n++ {
			if _, taken := seen[candidate]; !taken {
				break
			}
			suffix := "_" + strconv.Itoa(n)
			base := name
			if len(base)+len(suffix) > maxIdentSize {
				base = base[:maxIdentSize-len(suffix)]
			}
			candidate = base + suffix
		}
		seen[candidate] = struct{}{}
		out[i] = candidate
	}
	return out
}

// Binding ties a dataset to the header of one concrete CSV file.
type Binding struct {
	Dataset Dataset
	// Header is the normalized header in file order; it is also the staging
	// column list.
	Header []string
	// Sources maps each bound destination column to its staging column.
	Sources map[string]string
	// Missing lists destination columns with no staging column; inserted
	// rows get NULL and updated rows keep their stored value.
	Missing []string
}

// Source returns the staging column feeding dest.
func (b Binding) Source(dest string) (string, bool) {
	s, ok := b.Sources[dest]
	return s, ok
}

// Bind normalizes header and resolves every manifest column against it. The
// key column and the geometry coordinates are required; any other column
// that is absent is recorded in Missing.
func Bind(ds Dataset, header []string) (Binding, error) {
	if len(header) == 0 {
		return Binding{}, fmt.Errorf("bind %s: empty header", ds.Name)
	}
	cols := NormalizeHeader(header)
	present := make(map[string]struct{}, len(cols))
	for _, h := range cols {
		if h == LineColumn {
			return Binding{}, fmt.Errorf("bind %s: header uses reserved column %s", ds.Name, LineColumn)
		}
		present[h] = struct{}{}
	}

	required := map[string]struct{}{ds.Key: {}}
	if ds.Geometry != nil {
		required[ds.Geometry.Latitude] = struct{}{}
		required[ds.Geometry.Longitude] = struct{}{}
	}

	b := Binding{Dataset: ds, Header: cols, Sources: make(map[string]string, len(ds.Columns))}
	for _, c := range ds.Columns {
		src := c.SourceName()
		if _, ok := present[src]; ok {
			b.Sources[c.Name] = src
			continue
		}
		if _, ok := required[c.Name]; ok {
			return Binding{}, fmt.Errorf("bind %s: required column %s (header %q) not found in CSV header", ds.Name, c.Name, src)
		}
		b.Missing = append(b.Missing, c.Name)
	}
	return b, nil
}

// ExpectedHeader returns the header a file matching the manifest exactly
// would carry (source names in declaration order).
func ExpectedHeader(ds Dataset) []string {
	out := make([]string, len(ds.Columns))
	for i, c := range ds.Columns {
		out[i] = c.SourceName()
	}
	return out
}
