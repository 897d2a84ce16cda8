// Package markdown rewrites the semi-structured markdown a model writes into
// prose fields: table rows get consistent cell spacing and a separator row,
// fenced SQL blocks get their keywords uppercased, and closing fences end the
// line they are on.
package markdown

import (
	"regexp"
	"strings"
)

// Transform is one step of the normalization pipeline. Every transform is
// idempotent on its own.
type Transform func(string) string

// Pipeline lists the transforms in the order Normalize applies them.
var Pipeline = []Transform{
	NormalizeCellSpacing,
	InsertSeparatorRows,
	NormalizeSQLTables,
	BreakAfterClosingFence,
	UppercaseSQLKeywords,
}

// maxPasses bounds the fixpoint loop. Splitting a closing fence can expose a
// new prose line to the table rules, which one more pass settles.
const maxPasses = 3

// CRLF and bare CR both become LF, in one pass.
var lineEndings = strings.NewReplacer("\r\n", "\n", "\r", "\n")

// Normalize runs the pipeline until the text stops changing.
func Normalize(text string) string {
	if text == "" {
		return text
	}
	out := lineEndings.Replace(text)
	for pass := 0; pass < maxPasses; pass++ {
		next := out
		for _, t := range Pipeline {
			next = t(next)
		}
		if next == out {
			break
		}
		out = next
	}
	return out
}

type lineKind int

const (
	prose lineKind = iota
	fenceOpen
	fenceClose
	code
)

type lineInfo struct {
	kind lineKind
	lang string
}

var sqlDialects = map[string]bool{
	"sql":        true,
	"mysql":      true,
	"postgres":   true,
	"postgresql": true,
	"pgsql":      true,
	"plsql":      true,
	"sqlite":     true,
	"tsql":       true,
}

func classify(lines []string) []lineInfo {
	info := make([]lineInfo, len(lines))
	inFence := false
	lang := ""
	for i, l := range lines {
		t := strings.TrimSpace(l)
		if strings.HasPrefix(t, "```") {
			if !inFence {
				inFence = true
				lang = strings.ToLower(strings.TrimSpace(strings.TrimLeft(t, "`")))
				info[i] = lineInfo{kind: fenceOpen, lang: lang}
			} else {
				inFence = false
				info[i] = lineInfo{kind: fenceClose, lang: lang}
				lang = ""
			}
			continue
		}
		if inFence {
			info[i] = lineInfo{kind: code, lang: lang}
		} else {
			info[i] = lineInfo{kind: prose}
		}
	}
	return info
}

func isTableRow(l string) bool {
	t := strings.TrimSpace(l)
	return len(t) >= 3 && t[0] == '|' && t[len(t)-1] == '|'
}

func splitCells(l string) []string {
	t := strings.TrimSpace(l)
	cells := strings.Split(t[1:len(t)-1], "|")
	for i := range cells {
		cells[i] = strings.TrimSpace(cells[i])
	}
	return cells
}

func formatRow(l string) string {
	indent := l[:len(l)-len(strings.TrimLeft(l, " \t"))]
	return indent + "| " + strings.Join(splitCells(l), " | ") + " |"
}

var separatorCell = regexp.MustCompile(`^:?-+:?$`)

func isSeparatorRow(l string) bool {
	if !isTableRow(l) {
		return false
	}
	for _, c := range splitCells(l) {
		if !separatorCell.MatchString(c) {
			return false
		}
	}
	return true
}

func separatorRow(indent string, columns int) string {
	cells := make([]string, columns)
	for i := range cells {
		cells[i] = "---"
	}
	return indent + "| " + strings.Join(cells, " | ") + " |"
}

// NormalizeCellSpacing rewrites prose table rows as "| a | b |".
func NormalizeCellSpacing(text string) string {
	lines := strings.Split(text, "\n")
	info := classify(lines)
	for i, l := range lines {
		if info[i].kind == prose && isTableRow(l) {
			lines[i] = formatRow(l)
		}
	}
	return strings.Join(lines, "\n")
}

// InsertSeparatorRows adds the dash row between a table header and its first
// data row when the model left it out.
func InsertSeparatorRows(text string) string {
	lines := strings.Split(text, "\n")
	info := classify(lines)
	out := make([]string, 0, len(lines)+1)
	for i, l := range lines {
		out = append(out, l)
		if info[i].kind != prose || !isTableRow(l) || isSeparatorRow(l) {
			continue
		}
		headerStart := i == 0 || info[i-1].kind != prose || !isTableRow(lines[i-1])
		if !headerStart || i+1 >= len(lines) {
			continue
		}
		next := lines[i+1]
		if info[i+1].kind == prose && isTableRow(next) && !isSeparatorRow(next) {
			indent := l[:len(l)-len(strings.TrimLeft(l, " \t"))]
			out = append(out, separatorRow(indent, len(splitCells(l))))
		}
	}
	return strings.Join(out, "\n")
}

// NormalizeSQLTables applies the cell spacing rule to result tables inside
// SQL fences. Fence lines themselves are never table rows, so the closing
// fence is left alone.
func NormalizeSQLTables(text string) string {
	lines := strings.Split(text, "\n")
	info := classify(lines)
	for i, l := range lines {
		if info[i].kind == code && sqlDialects[info[i].lang] && isTableRow(l) {
			lines[i] = formatRow(l)
		}
	}
	return strings.Join(lines, "\n")
}

// BreakAfterClosingFence moves prose glued to a closing fence onto its own line.
func BreakAfterClosingFence(text string) string {
	lines := strings.Split(text, "\n")
	info := classify(lines)
	out := make([]string, 0, len(lines))
	for i, l := range lines {
		if info[i].kind != fenceClose {
			out = append(out, l)
			continue
		}
		trimmed := strings.TrimLeft(l, " \t")
		indent := l[:len(l)-len(trimmed)]
		rest := strings.TrimLeft(trimmed, "`")
		fence := trimmed[:len(trimmed)-len(rest)]
		rest = strings.TrimSpace(rest)
		if rest == "" {
			out = append(out, l)
			continue
		}
		out = append(out, indent+fence, rest)
	}
	return strings.Join(out, "\n")
}

var sqlKeyword = regexp.MustCompile(`(?i)\b(select|from|where|join|inner|left|right|outer|full|cross|on|group|by|order|having|limit|offset|insert|into|values|update|set|delete|create|table|drop|alter|and|or|not|null|is|in|as|distinct|union|all|case|when|then|else|end|exists|between|like|count|sum|avg|min|max|asc|desc|primary|key|foreign|references|with)\b`)

// UppercaseSQLKeywords uppercases reserved words in SQL fences. Quoted
// literals, quoted identifiers, comments and result table rows are skipped.
func UppercaseSQLKeywords(text string) string {
	lines := strings.Split(text, "\n")
	info := classify(lines)
	for i, l := range lines {
		if info[i].kind == code && sqlDialects[info[i].lang] && !isTableRow(l) {
			lines[i] = uppercaseKeywords(l)
		}
	}
	return strings.Join(lines, "\n")
}

func uppercaseKeywords(line string) string {
	var b strings.Builder
	b.Grow(len(line))
	start := 0
	flush := func(end int) {
		b.WriteString(sqlKeyword.ReplaceAllStringFunc(line[start:end], strings.ToUpper))
	}
	for i := 0; i < len(line); i++ {
		c := line[i]
		if c == '-' && i+1 < len(line) && line[i+1] == '-' {
			flush(i)
			b.WriteString(line[i:])
			return b.String()
		}
		if c != '\'' && c != '"' && c != '`' {
			continue
		}
		flush(i)
		end := strings.IndexByte(line[i+1:], c)
		if end < 0 {
			b.WriteString(line[i:])
			return b.String()
		}
		end += i + 2
		b.WriteString(line[i:end])
		start = end
		i = end - 1
	}
	flush(len(line))
	return b.String()
}
