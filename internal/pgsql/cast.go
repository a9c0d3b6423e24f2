package pgsql

import (
	"fmt"
	"strings"

	"crashloader/internal/dataset"
	"crashloader/internal/ddl"
)

// Patterns guarding numeric casts. Anything that does not match becomes NULL
// instead of aborting the statement. Digit runs are capped at the largest
// regex bound Postgres accepts, which keeps the intermediate numeric cast
// well inside its range; the type range is checked on that numeric value.
const (
	integerPattern = `^[-+]?[0-9]{1,255}$`
	doublePattern  = `^[-+]?([0-9]{1,255}(\.[0-9]{0,255})?|\.[0-9]{1,255})([eE][-+]?[0-9]{1,3})?$`
)

// Inclusive bounds of the numeric destination types.
const (
	integerMin   = "-2147483648"
	integerMax   = "2147483647"
	bigintMin    = "-9223372036854775808"
	bigintMax    = "9223372036854775807"
	doubleMaxAbs = "1.7976931348623157e308"
	// Smallest normal double; smaller nonzero magnitudes become NULL.
	doubleMinAbs = "2.2250738585072014e-308"
)

// Default boolean literals, compared lowercased.
var (
	DefaultTruthy = []string{"true", "t", "yes", "y", "1"}
	DefaultFalsy  = []string{"false", "f", "no", "n", "0"}
)

// CastExpr returns the expression converting staging column src into the
// typed value of c. Empty strings are NULL for every type; text keeps
// surrounding whitespace, every other type is trimmed first.
func CastExpr(c dataset.Column, src string) (string, error) {
	col := ddl.QuoteIdent(src)
	if c.Type == dataset.Text {
		return fmt.Sprintf("NULLIF(%s, '')", col), nil
	}

	v := fmt.Sprintf("NULLIF(btrim(%s), '')", col)
	switch c.Type {
	case dataset.Integer:
		return guarded(v, integerPattern, fmt.Sprintf("%s BETWEEN %s AND %s", numeric(v), integerMin, integerMax), "integer"), nil
	case dataset.BigInt:
		return guarded(v, integerPattern, fmt.Sprintf("%s BETWEEN %s AND %s", numeric(v), bigintMin, bigintMax), "bigint"), nil
	case dataset.Double:
		abs := "abs(" + numeric(v) + ")"
		inRange := fmt.Sprintf("(%s = 0 OR %s BETWEEN %s AND %s)", abs, abs, doubleMinAbs, doubleMaxAbs)
		return guarded(v, doublePattern, inRange, "double precision"), nil
	case dataset.Timestamp:
		return fmt.Sprintf("%s(%s, %s)", TryTimestampFunc, v, ddl.QuoteLiteral(c.Layout)), nil
	case dataset.Boolean:
		truthy, falsy := c.Truthy, c.Falsy
		if len(truthy) == 0 {
			truthy = DefaultTruthy
		}
		if len(falsy) == 0 {
			falsy = DefaultFalsy
		}
		return fmt.Sprintf("CASE WHEN lower(%s) IN (%s) THEN TRUE WHEN lower(%s) IN (%s) THEN FALSE END",
			v, literalList(truthy), v, literalList(falsy)), nil
	default:
		return "", fmt.Errorf("column %s: unsupported type %q", c.Name, c.Type)
	}
}

// NullExpr is the typed NULL used for columns missing from the file.
func NullExpr(c dataset.Column) string {
	return "NULL::" + c.Type.SQLType()
}

// guarded casts v to typ when it matches pattern and satisfies inRange. The
// CASEs are nested so the numeric cast in inRange only sees matching text.
func guarded(v, pattern, inRange, typ string) string {
	return fmt.Sprintf("CASE WHEN %s ~ %s THEN CASE WHEN %s THEN (%s)::%s END END",
		v, ddl.QuoteLiteral(pattern), inRange, v, typ)
}

func numeric(v string) string { return "(" + v + ")::numeric" }

func literalList(vals []string) string {
	out := make([]string, len(vals))
	for i, s := range vals {
		out[i] = ddl.QuoteLiteral(strings.ToLower(s))
	}
	return strings.Join(out, ", ")
}
