package db

import (
	"strconv"
	"strings"
)

// Where accumulates AND-ed filter clauses with positional arguments. Clauses
// use "?" as the placeholder; SQL renumbers them to $1..$n.
type Where struct {
	clauses []string
	args    []any
}

func (w *Where) Add(clause string, args ...any) {
	w.clauses = append(w.clauses, clause)
	w.args = append(w.args, args...)
}

// SQL returns " WHERE ..." or "" when no clause was added.
func (w *Where) SQL() string {
	if len(w.clauses) == 0 {
		return ""
	}
	n := 0
	parts := make([]string, len(w.clauses))
	for i, c := range w.clauses {
		var b strings.Builder
		for _, r := range c {
			if r == '?' {
				n++
				b.WriteString("$" + strconv.Itoa(n))
				continue
			}
			b.WriteRune(r)
		}
		parts[i] = b.String()
	}
	return " WHERE " + strings.Join(parts, " AND ")
}

// Args returns the collected arguments followed by extra (LIMIT/OFFSET).
func (w *Where) Args(extra ...any) []any {
	out := make([]any, 0, len(w.args)+len(extra))
	out = append(out, w.args...)
	return append(out, extra...)
}

// Next is the placeholder index following the collected arguments.
func (w *Where) Next(offset int) string {
	return "$" + strconv.Itoa(len(w.args)+offset)
}

// Like wraps s for a case-insensitive substring match.
func Like(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(strings.TrimSpace(s)) + "%"
}
