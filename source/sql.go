package source

import (
	"bytes"
	"context"
	"strings"

	"github.com/getpup/pupsourcing-migrator"
)

// SplitStatements splits SQL text into individual statements on semicolons.
// Comments ("--" to end of line and /* ... */) are dropped. Semicolons inside
// single-quoted literals (a doubled quote is an escape) and dollar-quoted
// bodies such as $$ ... $$ or $fn$ ... $fn$ do not split.
func SplitStatements(sql string) []string {
	var (
		statements []string
		current    []byte
	)

	flush := func() {
		if stmt := strings.TrimSpace(string(current)); stmt != "" {
			statements = append(statements, stmt)
		}
		current = current[:0]
	}

	for i := 0; i < len(sql); {
		rest := sql[i:]
		switch {
		case rest[0] == '\'':
			end := i + quotedLen(rest)
			current = append(current, sql[i:end]...)
			i = end
		case strings.HasPrefix(rest, "--"):
			current = bytes.TrimRight(current, " \t")
			if n := strings.IndexByte(rest, '\n'); n >= 0 {
				i += n
			} else {
				i = len(sql)
			}
		case strings.HasPrefix(rest, "/*"):
			current = append(current, ' ')
			if n := strings.Index(rest[2:], "*/"); n >= 0 {
				i += n + 4
			} else {
				i = len(sql)
			}
		case rest[0] == '$':
			tag := dollarTag(rest)
			if tag == "" {
				current = append(current, '$')
				i++
				continue
			}
			end := len(sql)
			if n := strings.Index(rest[len(tag):], tag); n >= 0 {
				end = i + len(tag) + n + len(tag)
			}
			current = append(current, sql[i:end]...)
			i = end
		case rest[0] == ';':
			flush()
			i++
		default:
			current = append(current, rest[0])
			i++
		}
	}
	flush()

	return statements
}

// quotedLen returns the length of the single-quoted literal at the start of s,
// including both quotes. An unterminated literal runs to the end of s.
func quotedLen(s string) int {
	for j := 1; j < len(s); j++ {
		if s[j] != '\'' {
			continue
		}
		if j+1 < len(s) && s[j+1] == '\'' {
			j++
			continue
		}
		return j + 1
	}
	return len(s)
}

// dollarTag returns the opening tag of a dollar-quoted string at the start of
// s ("$$" or "$name$"), or "" when s starts with a placeholder such as $1.
func dollarTag(s string) string {
	for j := 1; j < len(s); j++ {
		c := s[j]
		switch {
		case c == '$':
			return s[:j+1]
		case c == '_' || (c|0x20 >= 'a' && c|0x20 <= 'z'):
		case c >= '0' && c <= '9' && j > 1:
		default:
			return ""
		}
	}
	return ""
}

// Statements returns a MigrateFunc that executes each statement in order.
func Statements(statements ...string) migrator.MigrateFunc {
	return func(ctx context.Context, conn migrator.Conn) error {
		for _, stmt := range statements {
			if err := conn.Exec(ctx, stmt); err != nil {
				return err
			}
		}
		return nil
	}
}
