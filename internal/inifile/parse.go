package inifile

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMalformed is matched by every ParseError.
var ErrMalformed = errors.New("malformed document")

// ParseError reports a line Parse could not accept.
type ParseError struct {
	Line int
	Msg  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("malformed document: line %d: %s", e.Line, e.Msg)
}

// Is lets errors.Is(err, ErrMalformed) match any ParseError.
func (e *ParseError) Is(target error) bool {
	return target == ErrMalformed
}

// Parse reads a configuration document.
func Parse(text string) (*Document, error) {
	d := New()
	if strings.HasSuffix(firstLine(text), "\r\n") {
		d.newline = "\r\n"
	}

	var (
		current    *Section
		lastOption *OptionEntry
		sawOption  bool
	)

	for i, l := range splitLines(text) {
		lineNo := i + 1
		trimmed := strings.TrimSpace(l.text)

		switch {
		case trimmed == "":
			lastOption = nil
			d.appendLine(current, l)

		case trimmed[0] == '#' || trimmed[0] == ';':
			lastOption = nil
			d.appendLine(current, l)

		case trimmed[0] == '[':
			name, err := parseHeader(trimmed)
			if err != nil {
				return nil, &ParseError{Line: lineNo, Msg: err.Error()}
			}
			if _, dup := d.index[name]; dup {
				return nil, &ParseError{Line: lineNo, Msg: fmt.Sprintf("duplicate section [%s]", name)}
			}
			current = &Section{Name: name, doc: d, header: l, index: make(map[string]*OptionEntry)}
			d.sections = append(d.sections, current)
			d.index[name] = current
			lastOption = nil

		case lastOption != nil && isIndented(l.text):
			lastOption.Value += "\n" + trimmed
			lastOption.continuation = append(lastOption.continuation, l)

		default:
			if current == nil {
				return nil, &ParseError{Line: lineNo, Msg: "option outside of any section"}
			}
			e, err := parseOption(l.text)
			if err != nil {
				return nil, &ParseError{Line: lineNo, Msg: err.Error()}
			}
			if _, dup := current.index[e.Name]; dup {
				return nil, &ParseError{Line: lineNo, Msg: fmt.Sprintf("duplicate option %q in section [%s]", e.Name, current.Name)}
			}
			if !sawOption {
				d.separator = separatorOf(l.text)
				sawOption = true
			}
			l.option = e
			current.index[e.Name] = e
			current.body = append(current.body, l)
			lastOption = e
		}
	}

	return d, nil
}

func (d *Document) appendLine(s *Section, l *line) {
	if s == nil {
		d.preamble = append(d.preamble, l)
		return
	}
	s.body = append(s.body, l)
}

func parseHeader(trimmed string) (string, error) {
	end := strings.IndexByte(trimmed, ']')
	if end < 0 {
		return "", fmt.Errorf("unterminated section header %q", trimmed)
	}
	name := strings.TrimSpace(trimmed[1:end])
	if name == "" {
		return "", fmt.Errorf("empty section name")
	}
	if rest := strings.TrimSpace(trimmed[end+1:]); rest != "" && rest[0] != '#' && rest[0] != ';' {
		return "", fmt.Errorf("unexpected text after section header: %q", rest)
	}
	return name, nil
}

func parseOption(text string) (*OptionEntry, error) {
	eq := strings.IndexByte(text, '=')
	if eq < 0 {
		return nil, fmt.Errorf("expected \"option = value\", got %q", strings.TrimSpace(text))
	}
	name := strings.TrimSpace(text[:eq])
	if name == "" {
		return nil, fmt.Errorf("missing option name")
	}

	rest := text[eq+1:]
	value := strings.TrimSpace(rest)
	lead := rest[:len(rest)-len(strings.TrimLeft(rest, " \t"))]

	prefix := text[:eq+1] + lead
	if value == "" {
		// Keep "key = value" spacing when an empty option is filled in later.
		prefix = text[:eq+1]
		if eq > 0 && (text[eq-1] == ' ' || text[eq-1] == '\t') {
			prefix += " "
		}
	}

	return &OptionEntry{
		Name:   name,
		Value:  value,
		Origin: OriginOriginal,
		prefix: prefix,
	}, nil
}

// separatorOf returns the text between name and value on an option line,
// for example " = " or "=".
func separatorOf(text string) string {
	eq := strings.IndexByte(text, '=')
	before := text[:eq]
	after := text[eq+1:]
	sep := before[len(strings.TrimRight(before, " \t")):] + "="
	sep += after[:len(after)-len(strings.TrimLeft(after, " \t"))]
	if strings.TrimSpace(after) == "" && strings.HasPrefix(sep, " ") && !strings.HasSuffix(sep, " ") {
		sep += " "
	}
	return sep
}

func isIndented(s string) bool {
	return s != "" && (s[0] == ' ' || s[0] == '\t')
}

func firstLine(text string) string {
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		return text[:i+1]
	}
	return text
}

// splitLines splits text into lines, remembering each terminator.
func splitLines(text string) []*line {
	var out []*line
	for len(text) > 0 {
		i := strings.IndexByte(text, '\n')
		if i < 0 {
			out = append(out, &line{text: text})
			break
		}
		l := &line{text: text[:i], eol: "\n"}
		if strings.HasSuffix(l.text, "\r") {
			l.text = l.text[:len(l.text)-1]
			l.eol = "\r\n"
		}
		out = append(out, l)
		text = text[i+1:]
	}
	return out
}
