// Package vars resolves the named variables referenced by configuration
// templates.
package vars

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"
)

// ErrUndefined is matched by every UndefinedVariableError.
var ErrUndefined = errors.New("undefined variable")

// UndefinedVariableError reports a variable that no source could resolve.
type UndefinedVariableError struct {
	Name string
}

func (e *UndefinedVariableError) Error() string {
	return fmt.Sprintf("undefined variable %q", e.Name)
}

// Is lets errors.Is(err, ErrUndefined) match any undefined variable.
func (e *UndefinedVariableError) Is(target error) bool {
	return target == ErrUndefined
}

// Resolver looks up the value of a named variable.
type Resolver interface {
	Lookup(name string) (string, error)
}

// Map is a Resolver backed by a plain map.
type Map map[string]string

func (m Map) Lookup(name string) (string, error) {
	if v, ok := m[name]; ok {
		return v, nil
	}
	return "", &UndefinedVariableError{Name: name}
}

// Names returns the variable names in sorted order.
func (m Map) Names() []string {
	names := make([]string, 0, len(m))
	for k := range m {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Merge returns a new Map with the entries of others layered over m.
func (m Map) Merge(others ...Map) Map {
	out := make(Map, len(m))
	for k, v := range m {
		out[k] = v
	}
	for _, o := range others {
		for k, v := range o {
			out[k] = v
		}
	}
	return out
}

// Env resolves variables from the process environment. A variable named
// polling_interval is read from <Prefix>POLLING_INTERVAL.
type Env struct {
	Prefix string

	lookupEnv func(string) (string, bool)
}

// DefaultEnvPrefix is the environment prefix used by the CLI.
const DefaultEnvPrefix = "AGENT_DEPLOY_VAR_"

// FromEnv returns an Env resolver reading the real process environment.
func FromEnv(prefix string) Env {
	return Env{Prefix: prefix, lookupEnv: os.LookupEnv}
}

func (e Env) Lookup(name string) (string, error) {
	lookup := e.lookupEnv
	if lookup == nil {
		lookup = os.LookupEnv
	}
	if v, ok := lookup(e.Prefix + envKey(name)); ok {
		return v, nil
	}
	return "", &UndefinedVariableError{Name: name}
}

func envKey(name string) string {
	return strings.ToUpper(strings.NewReplacer("-", "_", ".", "_").Replace(name))
}

// Chain tries each resolver in order. The first resolver that knows the
// variable wins; errors other than undefined variables stop the search.
type Chain []Resolver

func (c Chain) Lookup(name string) (string, error) {
	for _, r := range c {
		if r == nil {
			continue
		}
		v, err := r.Lookup(name)
		if err == nil {
			return v, nil
		}
		if !errors.Is(err, ErrUndefined) {
			return "", err
		}
	}
	return "", &UndefinedVariableError{Name: name}
}

var placeholderRegex = regexp.MustCompile(`\{\{\s*([A-Za-z_][A-Za-z0-9_.-]*)\s*\}\}`)

// Placeholders returns the variable names referenced by a template, in order
// of first appearance.
func Placeholders(template string) []string {
	var names []string
	seen := make(map[string]bool)
	for _, m := range placeholderRegex.FindAllStringSubmatch(template, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			names = append(names, m[1])
		}
	}
	return names
}

// PlaceholderError reports {{...}} text that is not a valid placeholder,
// such as "{{}}" or "{{foo bar}}". It matches ErrUndefined so a typo fails
// like a missing variable instead of reaching the output.
type PlaceholderError struct {
	Text string
}

func (e *PlaceholderError) Error() string {
	return fmt.Sprintf("malformed placeholder %q", e.Text)
}

func (e *PlaceholderError) Is(target error) bool {
	return target == ErrUndefined
}

// checkLiteral rejects template text between placeholders that still
// contains a {{...}} pair.
func checkLiteral(text string) error {
	open := strings.Index(text, "{{")
	if open < 0 {
		return nil
	}
	if end := strings.Index(text[open:], "}}"); end >= 0 {
		return &PlaceholderError{Text: text[open : open+end+2]}
	}
	return nil
}

// Render substitutes every {{name}} placeholder in template. Text outside
// placeholders is copied literally but may not contain a malformed
// placeholder.
func Render(template string, r Resolver) (string, error) {
	matches := placeholderRegex.FindAllStringSubmatchIndex(template, -1)

	var b strings.Builder
	last := 0
	for _, m := range matches {
		if err := checkLiteral(template[last:m[0]]); err != nil {
			return "", err
		}
		name := template[m[2]:m[3]]
		value, err := r.Lookup(name)
		if err != nil {
			return "", err
		}
		b.WriteString(template[last:m[0]])
		b.WriteString(value)
		last = m[1]
	}
	if err := checkLiteral(template[last:]); err != nil {
		return "", err
	}
	b.WriteString(template[last:])
	return b.String(), nil
}
