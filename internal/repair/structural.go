package repair

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"peerprep/questiongen/internal/models"
)

// FieldKind says how a missing field is defaulted.
type FieldKind int

const (
	Scalar FieldKind = iota
	TestCaseArray
)

// Field is one required top-level key of the target record.
type Field struct {
	Name    string
	Kind    FieldKind
	Default string
}

// Schema lists the top-level keys the structural pass knows about.
type Schema struct {
	Fields []Field
}

// ArrayFields returns the names of the test case arrays, in schema order.
func (s Schema) ArrayFields() []string {
	var names []string
	for _, f := range s.Fields {
		if f.Kind == TestCaseArray {
			names = append(names, f.Name)
		}
	}
	return names
}

const jsonString = `"(?:[^"\\]|\\.)*"`

// testCaseElement matches one complete {input, output} object in either key order.
var testCaseElement = regexp.MustCompile(
	`\{\s*"input"\s*:\s*` + jsonString + `\s*,\s*"output"\s*:\s*` + jsonString + `\s*\}` +
		`|\{\s*"output"\s*:\s*` + jsonString + `\s*,\s*"input"\s*:\s*` + jsonString + `\s*\}`,
)

// Structural repairs truncated or malformed test case arrays and then injects
// any required field that is not lexically present. The notes describe each
// change and end up as degradation warnings.
func Structural(text string, schema Schema) (string, []string) {
	text, notes := RepairArrays(text, schema)
	text, injected := InjectMissingFields(text, schema)
	return text, append(notes, injected...)
}

// RepairArrays fixes every test case array of schema found in text. An array
// cut off by truncation keeps its complete elements and is closed along with
// the containers around it; a closed array that is not valid on its own is
// rebuilt from the complete elements it holds.
func RepairArrays(text string, schema Schema) (string, []string) {
	var notes []string
	for _, name := range schema.ArrayFields() {
		loc := arrayLabel(name).FindStringIndex(text)
		if loc == nil {
			continue
		}
		open := loc[1] - 1

		end, closed := matchingClose(text, open)
		if !closed {
			elems := testCaseElement.FindAllStringIndex(text[open:], -1)
			var b strings.Builder
			if len(elems) == 0 {
				b.WriteString(text[:open+1])
				b.WriteString(placeholderJSON(name, 0))
				notes = append(notes, fmt.Sprintf("%s was truncated with no complete elements; substituted a placeholder", name))
			} else {
				b.WriteString(text[:open+elems[len(elems)-1][1]])
				notes = append(notes, fmt.Sprintf("%s was truncated; kept %d complete elements", name, len(elems)))
			}
			b.WriteByte(']')
			for _, c := range unclosed(text[:open]) {
				b.WriteByte(c)
			}
			text = b.String()
			continue
		}

		region := text[open : end+1]
		if json.Valid([]byte(region)) {
			continue
		}
		elems := testCaseElement.FindAllString(region, -1)
		rebuilt := "[" + strings.Join(elems, ",") + "]"
		if len(elems) == 0 {
			rebuilt = "[" + placeholderJSON(name, 0) + "]"
		}
		text = text[:open] + rebuilt + text[end+1:]
		notes = append(notes, fmt.Sprintf("%s was malformed; rebuilt from %d complete elements", name, len(elems)))
	}
	return text, notes
}

// InjectMissingFields adds a default for every schema field whose label does
// not appear in text, just before the final closing brace.
func InjectMissingFields(text string, schema Schema) (string, []string) {
	var notes []string
	for _, f := range schema.Fields {
		if fieldLabel(f.Name).MatchString(text) {
			continue
		}
		at := strings.LastIndexByte(text, '}')
		if at < 0 {
			break
		}

		var value string
		if f.Kind == TestCaseArray {
			value = "[" + placeholderJSON(f.Name, 0) + "]"
		} else {
			raw, _ := json.Marshal(f.Default)
			value = string(raw)
		}
		key, _ := json.Marshal(f.Name)

		head := strings.TrimRight(text[:at], " \t\r\n")
		sep := ", "
		if strings.HasSuffix(head, "{") || strings.HasSuffix(head, ",") {
			sep = ""
		}
		text = head + sep + string(key) + ": " + value + text[at:]
		notes = append(notes, fmt.Sprintf("injected missing field %s", f.Name))
	}
	return text, notes
}

func arrayLabel(name string) *regexp.Regexp {
	return regexp.MustCompile(`"` + regexp.QuoteMeta(name) + `"\s*:\s*\[`)
}

func fieldLabel(name string) *regexp.Regexp {
	return regexp.MustCompile(`"` + regexp.QuoteMeta(name) + `"\s*:`)
}

func placeholderJSON(field string, i int) string {
	raw, _ := json.Marshal(models.PlaceholderTestCase(field, i))
	return string(raw)
}

// matchingClose finds the bracket closing the container opened at open.
// String contents and closers that match no open container are ignored.
func matchingClose(text string, open int) (int, bool) {
	var stack []byte
	inString, escaped := false, false
	for i := open; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '[', '{':
			stack = append(stack, c)
		case ']', '}':
			n := len(stack)
			if n == 0 || stack[n-1] != opener(c) {
				continue
			}
			stack = stack[:n-1]
			if n == 1 {
				return i, true
			}
		}
	}
	return 0, false
}

// unclosed returns the closers for containers still open at the end of
// prefix, innermost first.
func unclosed(prefix string) []byte {
	var stack []byte
	inString, escaped := false, false
	for i := 0; i < len(prefix); i++ {
		c := prefix[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '[', '{':
			stack = append(stack, c)
		case ']', '}':
			if n := len(stack); n > 0 && stack[n-1] == opener(c) {
				stack = stack[:n-1]
			}
		}
	}
	closers := make([]byte, 0, len(stack))
	for i := len(stack) - 1; i >= 0; i-- {
		closers = append(closers, closer(stack[i]))
	}
	return closers
}
