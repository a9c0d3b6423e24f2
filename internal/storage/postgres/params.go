package postgres

import (
	"fmt"
	"strconv"
	"strings"

	"crashloader/internal/storage"
)

// bindNamed rewrites :name placeholders into pgx's $n form and returns the
// positional arguments. Placeholders inside string literals, quoted
// identifiers, dollar-quoted bodies and comments are left alone, as are
// ::type casts. A name used twice maps to the same $n.
func bindNamed(sql string, params []storage.Param) (string, []any, error) {
	values := make(map[string]any, len(params))
	for _, p := range params {
		values[p.Name] = p.Value
	}

	var (
		out   strings.Builder
		args  []any
		index = map[string]int{}
		n     = len(sql)
	)
	out.Grow(n)

	for i := 0; i < n; {
		c := sql[i]
		switch {
		case c == '\'' || c == '"':
			j := skipQuoted(sql, i, c)
			out.WriteString(sql[i:j])
			i = j

		case c == '-' && i+1 < n && sql[i+1] == '-':
			j := strings.IndexByte(sql[i:], '\n')
			if j < 0 {
				j = n - i
			}
			out.WriteString(sql[i : i+j])
			i += j

		case c == '/' && i+1 < n && sql[i+1] == '*':
			j := strings.Index(sql[i+2:], "*/")
			end := n
			if j >= 0 {
				end = i + 2 + j + 2
			}
			out.WriteString(sql[i:end])
			i = end

		case c == '$':
			if tag, ok := dollarTag(sql, i); ok {
				j := strings.Index(sql[i+len(tag):], tag)
				end := n
				if j >= 0 {
					end = i + len(tag) + j + len(tag)
				}
				out.WriteString(sql[i:end])
				i = end
				continue
			}
			out.WriteByte(c)
			i++

		case c == ':' && i+1 < n && sql[i+1] == ':':
			out.WriteString("::")
			i += 2

		case c == ':' && i+1 < n && isIdentStart(sql[i+1]):
			j := i + 1
			for j < n && isIdentPart(sql[j]) {
				j++
			}
			name := sql[i+1 : j]
			v, ok := values[name]
			if !ok {
				return "", nil, fmt.Errorf("postgres: no value for parameter :%s", name)
			}
			pos, seen := index[name]
			if !seen {
				args = append(args, v)
				pos = len(args)
				index[name] = pos
			}
			out.WriteString("$" + strconv.Itoa(pos))
			i = j

		default:
			out.WriteByte(c)
			i++
		}
	}
	return out.String(), args, nil
}

// skipQuoted returns the index just past the literal or identifier opened by
// quote at i. Doubled quotes are escapes.
func skipQuoted(s string, i int, quote byte) int {
	for j := i + 1; j < len(s); j++ {
		if s[j] != quote {
			continue
		}
		if j+1 < len(s) && s[j+1] == quote {
			j++
			continue
		}
		return j + 1
	}
	return len(s)
}

// dollarTag reports the $tag$ opening a dollar-quoted string at i.
func dollarTag(s string, i int) (string, bool) {
	j := i + 1
	if j < len(s) && s[j] == '$' {
		return "$$", true
	}
	if j >= len(s) || !isIdentStart(s[j]) {
		return "", false
	}
	for j < len(s) && isIdentPart(s[j]) {
		j++
	}
	if j < len(s) && s[j] == '$' {
		return s[i : j+1], true
	}
	return "", false
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}
