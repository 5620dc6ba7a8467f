package patch

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/firefly-engineering/agent-deploy/internal/inifile"
	"github.com/firefly-engineering/agent-deploy/internal/vars"
)

// fullVars resolves every variable of the default directive list.
func fullVars() vars.Map {
	m := vars.Map{}
	for _, name := range Variables(DefaultDirectives()) {
		m[name] = "value-of-" + name
	}
	m["mechanism_drivers"] = "nsxv3"
	m["nsxv3_connection_retry_count"] = "5"
	return m
}

const existing = `# ml2_conf.ini
[DEFAULT]
debug = false

[ml2]
mechanism_drivers = openvswitch
extension_drivers = port_security

[NSXV3]
nsxv3_connection_retry_count = 10
`

func mustParse(t *testing.T, text string) *inifile.Document {
	t.Helper()
	doc, err := inifile.Parse(text)
	require.NoError(t, err)
	return doc
}

func TestDefaultDirectivesShape(t *testing.T) {
	ds := DefaultDirectives()
	assert.Len(t, ds, 29)

	seen := make(map[string]bool)
	for _, d := range ds {
		key := d.Section + "." + d.Option
		assert.False(t, seen[key], "duplicate directive %s", key)
		seen[key] = true
		assert.Equal(t, []string{d.Option}, vars.Placeholders(d.Template), "variable name follows option name for %s", key)
	}

	ds[0].Option = "mutated"
	assert.Equal(t, "mechanism_drivers", DefaultDirectives()[0].Option, "DefaultDirectives returns a copy")
}

func TestApplyEndToEndFromEmpty(t *testing.T) {
	out, err := Apply(inifile.New(), DefaultDirectives(), fullVars())
	require.NoError(t, err)

	text := out.String()
	assert.Equal(t, 1, strings.Count(text, "[ml2]\n"))
	assert.Equal(t, 1, strings.Count(text, "[NSXV3]\n"))
	assert.Equal(t, 1, strings.Count(text, "mechanism_drivers = nsxv3\n"))
	assert.Equal(t, 1, strings.Count(text, "nsxv3_connection_retry_count = 5\n"))

	v, ok := out.Get("ml2", "mechanism_drivers")
	require.True(t, ok)
	assert.Equal(t, "nsxv3", v)
	v, ok = out.Get("NSXV3", "nsxv3_connection_retry_count")
	require.True(t, ok)
	assert.Equal(t, "5", v)

	var names []string
	for _, s := range out.Sections() {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{"ml2", "ml2_type_flat", "ml2_type_vlan", "securitygroup", "AGENT", "AGENT_CLI", "NSXV3"}, names)
}

func TestApplyPreservesUnrelatedContent(t *testing.T) {
	doc := mustParse(t, existing)
	out, err := Apply(doc, DefaultDirectives(), fullVars())
	require.NoError(t, err)

	text := out.String()
	assert.True(t, strings.HasPrefix(text, "# ml2_conf.ini\n[DEFAULT]\ndebug = false\n\n[ml2]\nmechanism_drivers = nsxv3\nextension_drivers = port_security\ntype_drivers = "))

	v, _ := out.Get("ml2", "extension_drivers")
	assert.Equal(t, "port_security", v)
	v, _ = out.Get("NSXV3", "nsxv3_connection_retry_count")
	assert.Equal(t, "5", v)

	assert.Equal(t, existing, doc.String(), "input document is not modified")
}

func TestApplyIdempotent(t *testing.T) {
	starts := map[string]string{
		"empty":    "",
		"existing": existing,
		"crlf":     strings.ReplaceAll(existing, "\n", "\r\n"),
		"no eol":   strings.TrimSuffix(existing, "\n"),
	}

	for name, text := range starts {
		t.Run(name, func(t *testing.T) {
			once, err := Apply(mustParse(t, text), DefaultDirectives(), fullVars())
			require.NoError(t, err)

			reparsed := mustParse(t, once.String())
			twice, err := Apply(reparsed, DefaultDirectives(), fullVars())
			require.NoError(t, err)

			assert.Equal(t, once.String(), twice.String())
			assert.Empty(t, twice.Changes(), "second application changes nothing")

			direct, err := Apply(once, DefaultDirectives(), fullVars())
			require.NoError(t, err)
			assert.Equal(t, once.String(), direct.String())
		})
	}
}

func TestApplyLaterDirectiveWins(t *testing.T) {
	ds := []Directive{
		{Section: "AGENT", Option: "polling_interval", Template: "{{first}}"},
		{Section: "AGENT", Option: "agent_id", Template: "node01"},
		{Section: "AGENT", Option: "polling_interval", Template: "{{second}}"},
	}
	out, err := Apply(inifile.New(), ds, vars.Map{"first": "2", "second": "10"})
	require.NoError(t, err)

	assert.Equal(t, "[AGENT]\npolling_interval = 10\nagent_id = node01\n", out.String())
}

func TestApplyEmptyValueIsWritten(t *testing.T) {
	doc := mustParse(t, "[AGENT_CLI]\nneutron_port_id = abc\n")
	ds := []Directive{{Section: "AGENT_CLI", Option: "neutron_port_id", Template: "{{neutron_port_id}}"}}

	out, err := Apply(doc, ds, vars.Map{"neutron_port_id": ""})
	require.NoError(t, err)
	assert.Equal(t, "[AGENT_CLI]\nneutron_port_id =\n", out.String())

	v, ok := out.Get("AGENT_CLI", "neutron_port_id")
	assert.True(t, ok)
	assert.Equal(t, "", v)
}

func TestApplyUndefinedVariableAborts(t *testing.T) {
	doc := mustParse(t, existing)
	r := fullVars()
	delete(r, "nsxv3_login_password")

	out, err := Apply(doc, DefaultDirectives(), r)
	require.Error(t, err)
	assert.Nil(t, out)
	assert.True(t, errors.Is(err, vars.ErrUndefined))

	var undef *vars.UndefinedVariableError
	require.True(t, errors.As(err, &undef))
	assert.Equal(t, "nsxv3_login_password", undef.Name)

	var derr *DirectiveError
	require.True(t, errors.As(err, &derr))
	assert.Equal(t, SectionNSXV3, derr.Directive.Section)

	assert.Equal(t, existing, doc.String())
	assert.Empty(t, doc.Changes())
}

func TestApplyNewSectionAppended(t *testing.T) {
	doc := mustParse(t, existing)
	ds := []Directive{{Section: "securitygroup", Option: "firewall_driver", Template: "nsxv3"}}

	out, err := Apply(doc, ds, vars.Map{})
	require.NoError(t, err)
	assert.Equal(t, existing+"\n[securitygroup]\nfirewall_driver = nsxv3\n", out.String())
}

func TestMissing(t *testing.T) {
	missing, err := Missing(DefaultDirectives(), vars.Map{"mechanism_drivers": "nsxv3"})
	require.NoError(t, err)
	assert.Len(t, missing, 28)
	assert.NotContains(t, missing, "mechanism_drivers")

	missing, err = Missing(DefaultDirectives(), fullVars())
	require.NoError(t, err)
	assert.Empty(t, missing)
}

func TestDirectiveString(t *testing.T) {
	d := Directive{Section: "ml2", Option: "mechanism_drivers", Template: "{{mechanism_drivers}}"}
	assert.Equal(t, "[ml2] mechanism_drivers = {{mechanism_drivers}}", d.String())
}

func TestApplyRejectsValuesThatReadBackDifferently(t *testing.T) {
	ds := []Directive{{Section: "AGENT", Option: "x", Template: "{{x}}"}}

	for _, value := range []string{"a\n#note", "a\n;note", "a\n[evil]"} {
		doc := mustParse(t, "[AGENT]\nx = old\n")
		out, err := Apply(doc, ds, vars.Map{"x": value})
		require.Error(t, err, "%q", value)
		assert.Nil(t, out)
		assert.True(t, errors.Is(err, inifile.ErrUnrepresentable))

		var derr *DirectiveError
		require.True(t, errors.As(err, &derr))
		assert.Equal(t, "x", derr.Directive.Option)
	}
}

func TestApplyMultiLineValueIdempotent(t *testing.T) {
	ds := []Directive{{Section: "ml2_type_vlan", Option: "network_vlan_ranges", Template: "{{ranges}}"}}
	r := vars.Map{"ranges": "physnet1:100:200,\nphysnet2:300:400"}

	once, err := Apply(inifile.New(), ds, r)
	require.NoError(t, err)
	twice, err := Apply(mustParse(t, once.String()), ds, r)
	require.NoError(t, err)

	assert.Equal(t, once.String(), twice.String())
	assert.Empty(t, twice.Changes())
}
