// Package patch applies declarative option assignments to configuration
// documents.
package patch

import (
	"errors"
	"fmt"

	"github.com/firefly-engineering/agent-deploy/internal/inifile"
	"github.com/firefly-engineering/agent-deploy/internal/vars"
)

// Directive assigns a templated value to one option.
type Directive struct {
	Section  string
	Option   string
	Template string
}

func (d Directive) String() string {
	return fmt.Sprintf("[%s] %s = %s", d.Section, d.Option, d.Template)
}

// DirectiveError ties a resolution failure to the directive that caused it.
type DirectiveError struct {
	Directive Directive
	Err       error
}

func (e *DirectiveError) Error() string {
	return fmt.Sprintf("[%s] %s: %v", e.Directive.Section, e.Directive.Option, e.Err)
}

func (e *DirectiveError) Unwrap() error {
	return e.Err
}

// Apply resolves every directive and then assigns them, in order, to a copy
// of doc. doc itself is never modified and nothing is returned when any
// template fails to resolve.
func Apply(doc *inifile.Document, directives []Directive, r vars.Resolver) (*inifile.Document, error) {
	values, err := Resolve(directives, r)
	if err != nil {
		return nil, err
	}

	out := doc.Clone()
	for i, d := range directives {
		out.SetOption(d.Section, d.Option, values[i])
	}
	return out, nil
}

// Resolve renders every directive template. The returned slice is parallel
// to directives.
func Resolve(directives []Directive, r vars.Resolver) ([]string, error) {
	values := make([]string, len(directives))
	for i, d := range directives {
		v, err := vars.Render(d.Template, r)
		if err == nil {
			err = inifile.CheckValue(v)
		}
		if err != nil {
			return nil, &DirectiveError{Directive: d, Err: err}
		}
		values[i] = v
	}
	return values, nil
}

// Variables returns every variable referenced by directives, in order of
// first use.
func Variables(directives []Directive) []string {
	var names []string
	seen := make(map[string]bool)
	for _, d := range directives {
		for _, name := range vars.Placeholders(d.Template) {
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}
	return names
}

// Missing returns the referenced variables r cannot resolve.
func Missing(directives []Directive, r vars.Resolver) ([]string, error) {
	var missing []string
	for _, name := range Variables(directives) {
		if _, err := r.Lookup(name); err != nil {
			if !errors.Is(err, vars.ErrUndefined) {
				return nil, err
			}
			missing = append(missing, name)
		}
	}
	return missing, nil
}
