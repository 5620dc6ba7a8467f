package inifile

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Origin records where an option's current value came from.
type Origin string

const (
	OriginOriginal Origin = "original"
	OriginPatched  Origin = "patched"
)

const defaultSeparator = " = "

// OptionEntry is one option of a section.
type OptionEntry struct {
	Name   string
	Value  string
	Origin Origin

	// prefix is everything before the value on the option line.
	prefix       string
	continuation []*line
	dirty        bool
}

// line is one physical line. eol is the terminator it was read with; it is
// empty only for a final line without a newline.
type line struct {
	text   string
	eol    string
	option *OptionEntry
}

// Section is a named group of options.
type Section struct {
	Name string

	doc    *Document
	lead   []*line
	header *line
	body   []*line
	index  map[string]*OptionEntry
}

// Document is an in-memory configuration file.
type Document struct {
	preamble  []*line
	sections  []*Section
	index     map[string]*Section
	newline   string
	separator string
}

// New returns an empty document.
func New() *Document {
	return &Document{
		index:     make(map[string]*Section),
		newline:   "\n",
		separator: defaultSeparator,
	}
}

// Sections returns the sections in document order.
func (d *Document) Sections() []*Section {
	out := make([]*Section, len(d.sections))
	copy(out, d.sections)
	return out
}

// GetSection returns the named section or nil.
func (d *Document) GetSection(name string) *Section {
	return d.index[name]
}

// EnsureSection returns the named section, appending an empty one at the end
// of the document when it does not exist yet.
func (d *Document) EnsureSection(name string) *Section {
	if s, ok := d.index[name]; ok {
		return s
	}

	s := &Section{
		Name:   name,
		doc:    d,
		header: &line{text: "[" + name + "]", eol: d.newline},
		index:  make(map[string]*OptionEntry),
	}
	if lines := d.lines(); len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1].text) != "" {
		s.lead = []*line{{eol: d.newline}}
	}

	d.sections = append(d.sections, s)
	d.index[name] = s
	return s
}

// ErrUnrepresentable is returned by CheckValue.
var ErrUnrepresentable = errors.New("value cannot be written as an option")

// CheckValue reports whether value reads back unchanged once written. A
// continuation line starting with a comment or section marker would be read
// as a comment or header instead of as part of the value.
func CheckValue(value string) error {
	lines := strings.Split(value, "\n")
	for i, l := range lines[1:] {
		t := strings.TrimSpace(l)
		if t != "" && strings.ContainsRune("#;[", rune(t[0])) {
			return fmt.Errorf("%w: line %d starts with %q", ErrUnrepresentable, i+2, t[:1])
		}
	}
	return nil
}

// SetOption assigns value to section.option, creating either as needed.
// Values should pass CheckValue.
func (d *Document) SetOption(section, option, value string) {
	d.EnsureSection(section).Set(option, value)
}

// Get returns the value of section.option.
func (d *Document) Get(section, option string) (string, bool) {
	s := d.GetSection(section)
	if s == nil {
		return "", false
	}
	e := s.Get(option)
	if e == nil {
		return "", false
	}
	return e.Value, true
}

// Change is one option whose value was set after parsing.
type Change struct {
	Section string
	Option  string
	Value   string
}

// Changes lists patched options in document order.
func (d *Document) Changes() []Change {
	var out []Change
	for _, s := range d.sections {
		for _, e := range s.Options() {
			if e.Origin == OriginPatched {
				out = append(out, Change{Section: s.Name, Option: e.Name, Value: e.Value})
			}
		}
	}
	return out
}

// Options returns the section's options in file order.
func (s *Section) Options() []*OptionEntry {
	var out []*OptionEntry
	for _, l := range s.body {
		if l.option != nil {
			out = append(out, l.option)
		}
	}
	return out
}

// Get returns the named option or nil.
func (s *Section) Get(name string) *OptionEntry {
	return s.index[name]
}

// Set overwrites an existing option in place or appends a new one after the
// section's last option. Setting an option to its current value changes
// nothing.
func (s *Section) Set(name, value string) {
	if e, ok := s.index[name]; ok {
		if e.Value == value {
			return
		}
		e.Value = value
		e.Origin = OriginPatched
		e.dirty = true
		return
	}

	e := &OptionEntry{
		Name:   name,
		Value:  value,
		Origin: OriginPatched,
		prefix: name + s.doc.separator,
		dirty:  true,
	}
	s.index[name] = e

	at := s.insertionPoint()
	l := &line{eol: s.doc.newline, option: e}
	s.body = append(s.body, nil)
	copy(s.body[at+1:], s.body[at:])
	s.body[at] = l
}

// insertionPoint is the body index just past the last option, or past the
// last comment when the section has no options yet.
func (s *Section) insertionPoint() int {
	lastOption, lastText := -1, -1
	for i, l := range s.body {
		if l.option != nil {
			lastOption = i
		}
		if strings.TrimSpace(l.text) != "" || l.option != nil {
			lastText = i
		}
	}
	if lastOption >= 0 {
		return lastOption + 1
	}
	return lastText + 1
}

// lines flattens the document into physical lines.
func (d *Document) lines() []*line {
	var out []*line
	out = append(out, d.preamble...)
	for _, s := range d.sections {
		out = append(out, s.lead...)
		out = append(out, s.header)
		for _, l := range s.body {
			out = append(out, l.render(d.newline)...)
		}
	}
	return out
}

// render expands a body line into the physical lines it serializes to.
func (l *line) render(newline string) []*line {
	e := l.option
	if e == nil {
		return []*line{l}
	}
	if !e.dirty {
		return append([]*line{l}, e.continuation...)
	}

	parts := strings.Split(e.Value, "\n")
	out := make([]*line, 0, len(parts))
	for i, p := range parts {
		if i > 0 && strings.TrimSpace(p) == "" {
			continue
		}
		text := "    " + p
		if i == 0 {
			text = e.prefix + p
		}
		out = append(out, &line{text: strings.TrimRight(text, " \t"), eol: newline})
	}
	out[len(out)-1].eol = l.eol
	return out
}

// WriteTo serializes the document.
func (d *Document) WriteTo(w io.Writer) (int64, error) {
	var buf bytes.Buffer
	lines := d.lines()
	for i, l := range lines {
		buf.WriteString(l.text)
		eol := l.eol
		if eol == "" && i < len(lines)-1 {
			eol = d.newline
		}
		buf.WriteString(eol)
	}
	return buf.WriteTo(w)
}

// Bytes returns the serialized document.
func (d *Document) Bytes() []byte {
	var buf bytes.Buffer
	_, _ = d.WriteTo(&buf)
	return buf.Bytes()
}

// String returns the serialized document.
func (d *Document) String() string {
	return string(d.Bytes())
}

// Clone returns a deep copy that can be modified independently.
func (d *Document) Clone() *Document {
	c := &Document{
		preamble:  cloneLines(d.preamble),
		index:     make(map[string]*Section, len(d.sections)),
		newline:   d.newline,
		separator: d.separator,
	}
	for _, s := range d.sections {
		cs := &Section{
			Name:   s.Name,
			doc:    c,
			lead:   cloneLines(s.lead),
			header: &line{text: s.header.text, eol: s.header.eol},
			index:  make(map[string]*OptionEntry, len(s.index)),
		}
		for _, l := range s.body {
			cl := &line{text: l.text, eol: l.eol}
			if l.option != nil {
				e := *l.option
				e.continuation = cloneLines(l.option.continuation)
				cl.option = &e
				cs.index[e.Name] = &e
			}
			cs.body = append(cs.body, cl)
		}
		c.sections = append(c.sections, cs)
		c.index[cs.Name] = cs
	}
	return c
}

func cloneLines(in []*line) []*line {
	if in == nil {
		return nil
	}
	out := make([]*line, len(in))
	for i, l := range in {
		out[i] = &line{text: l.text, eol: l.eol}
	}
	return out
}
