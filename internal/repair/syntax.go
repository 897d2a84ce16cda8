// Package repair turns almost-JSON written by a model into text that is more
// likely to parse. Syntax repair is a single left-to-right pass of a small
// state machine; structural repair works on whole fields of a known schema.
package repair

import "strings"

// State is the lexical context of the Scanner.
type State int

const (
	Outside State = iota
	InString
	Escaped
)

func (s State) String() string {
	switch s {
	case Outside:
		return "outside"
	case InString:
		return "in_string"
	case Escaped:
		return "escaped"
	}
	return "unknown"
}

// Scanner rewrites one structured-text blob. Each input byte is handled by
// exactly one state, so a quote is either a string boundary or an escaped
// literal, never both.
type Scanner struct {
	src     string
	out     []byte
	state   State
	stack   []byte
	lastSig int
}

// NewScanner prepares a scanner over text that already starts at the first
// container opener.
func NewScanner(src string) *Scanner {
	return &Scanner{
		src:     src,
		out:     make([]byte, 0, len(src)+16),
		lastSig: -1,
	}
}

// Syntax strips prose and fences around the first object, escapes raw quotes
// and newlines inside strings, drops control characters, separates adjacent
// containers and closes whatever is left open. Text with no container opener
// is returned unchanged. Syntax(Syntax(x)) == Syntax(x).
func Syntax(text string) string {
	body, ok := trimToStructure(text)
	if !ok {
		return text
	}
	return NewScanner(body).Run()
}

// trimToStructure cuts everything before the first opening brace (or a
// bracket directly enclosing it) and after the last closer.
func trimToStructure(text string) (string, bool) {
	obj := strings.IndexByte(text, '{')
	arr := strings.IndexByte(text, '[')
	start := obj
	switch {
	case obj < 0 && arr < 0:
		return "", false
	case obj < 0:
		start = arr
	case arr >= 0 && arr < obj && strings.TrimSpace(text[arr+1:obj]) == "":
		start = arr
	}

	end := strings.LastIndexByte(text, '}')
	if last := strings.LastIndexByte(text, ']'); last > end {
		end = last
	}
	if end < start {
		return text[start:], true
	}
	return text[start : end+1], true
}

// Run scans the whole input and returns the repaired text.
func (s *Scanner) Run() string {
	for i := 0; i < len(s.src); i++ {
		switch s.state {
		case Outside:
			s.outside(s.src[i])
		case InString:
			s.inString(i, s.src[i])
		case Escaped:
			s.escaped(i, s.src[i])
		}
	}
	s.finish()
	return string(s.out)
}

// State reports the scanner's current lexical state.
func (s *Scanner) State() State {
	return s.state
}

func (s *Scanner) emit(b ...byte) {
	s.out = append(s.out, b...)
}

// emitSig writes a significant byte outside string content and remembers it
// for separator and trailing-comma decisions.
func (s *Scanner) emitSig(c byte) {
	s.lastSig = len(s.out)
	s.out = append(s.out, c)
}

func (s *Scanner) lastSigByte() byte {
	if s.lastSig < 0 {
		return 0
	}
	return s.out[s.lastSig]
}

func (s *Scanner) outside(c byte) {
	switch {
	case c == '"':
		s.emitSig(c)
		s.state = InString
	case c == '{' || c == '[':
		if prev := s.lastSigByte(); prev == '}' || prev == ']' {
			s.emitSig(',')
		}
		s.stack = append(s.stack, c)
		s.emitSig(c)
	case c == '}' || c == ']':
		s.dropTrailingComma()
		if n := len(s.stack); n > 0 && s.stack[n-1] == opener(c) {
			s.stack = s.stack[:n-1]
		}
		s.emitSig(c)
	case isSpace(c):
		s.emit(c)
	case c < 0x20 || c == 0x7f:
		// control byte, dropped
	default:
		s.emitSig(c)
	}
}

func (s *Scanner) inString(i int, c byte) {
	switch {
	case c == '\\':
		s.emit(c)
		s.state = Escaped
	case c == '"':
		if s.closesString(i) {
			s.emitSig(c)
			s.state = Outside
		} else {
			s.emit('\\', '"')
		}
	case c == '\n':
		s.emit('\\', 'n')
	case c == '\r':
		if i+1 < len(s.src) && s.src[i+1] == '\n' {
			return
		}
		s.emit('\\', 'n')
	case c == '\t':
		s.emit('\\', 't')
	case c < 0x20 || c == 0x7f:
		// control byte, dropped
	default:
		s.emit(c)
	}
}

func (s *Scanner) escaped(i int, c byte) {
	switch c {
	case '"', '\\', '/', 'b', 'f', 'n', 'r', 't':
		s.emit(c)
		s.state = InString
		return
	case 'u':
		if isHex4(s.src[i+1:]) {
			s.emit(c)
			s.state = InString
			return
		}
	}
	// a lone backslash: escape it, then treat c as ordinary string content
	s.emit('\\')
	s.state = InString
	s.inString(i, c)
}

// closesString decides whether the quote at i ends the string: it does when
// the next meaningful byte can follow a string value or key.
func (s *Scanner) closesString(i int) bool {
	for j := i + 1; j < len(s.src); j++ {
		c := s.src[j]
		if c <= ' ' || c == 0x7f {
			continue
		}
		return c == ',' || c == '}' || c == ']' || c == ':'
	}
	return true
}

func (s *Scanner) dropTrailingComma() {
	for s.lastSigByte() == ',' {
		at := s.lastSig
		s.out = append(s.out[:at], s.out[at+1:]...)
		s.lastSig = -1
		for j := at - 1; j >= 0; j-- {
			if !isSpace(s.out[j]) {
				s.lastSig = j
				break
			}
		}
	}
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\n' || c == '\r' || c == '\t'
}

func (s *Scanner) finish() {
	if s.state == Escaped {
		s.emit('\\')
		s.state = InString
	}
	if s.state == InString {
		s.emitSig('"')
		s.state = Outside
	}
	if len(s.stack) == 0 {
		return
	}
	if s.lastSigByte() == ':' {
		for _, c := range []byte("null") {
			s.emitSig(c)
		}
	}
	for j := len(s.stack) - 1; j >= 0; j-- {
		s.dropTrailingComma()
		s.emitSig(closer(s.stack[j]))
	}
	s.stack = s.stack[:0]
}

func opener(c byte) byte {
	if c == '}' {
		return '{'
	}
	return '['
}

func closer(c byte) byte {
	if c == '{' {
		return '}'
	}
	return ']'
}

func isHex4(s string) bool {
	if len(s) < 4 {
		return false
	}
	for i := 0; i < 4; i++ {
		c := s[i]
		if !('0' <= c && c <= '9' || 'a' <= c && c <= 'f' || 'A' <= c && c <= 'F') {
			return false
		}
	}
	return true
}
