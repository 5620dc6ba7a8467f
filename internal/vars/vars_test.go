package vars

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapLookup(t *testing.T) {
	m := Map{"polling_interval": "2", "empty": ""}

	v, err := m.Lookup("polling_interval")
	require.NoError(t, err)
	assert.Equal(t, "2", v)

	v, err = m.Lookup("empty")
	require.NoError(t, err)
	assert.Equal(t, "", v)

	_, err = m.Lookup("missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUndefined))

	var undef *UndefinedVariableError
	require.True(t, errors.As(err, &undef))
	assert.Equal(t, "missing", undef.Name)
}

func TestMapMerge(t *testing.T) {
	base := Map{"a": "1", "b": "2"}
	merged := base.Merge(Map{"b": "3"}, Map{"c": "4"})

	assert.Equal(t, Map{"a": "1", "b": "3", "c": "4"}, merged)
	assert.Equal(t, "2", base["b"], "Merge must not modify the receiver")
	assert.Equal(t, []string{"a", "b", "c"}, merged.Names())
}

func TestEnvLookup(t *testing.T) {
	env := map[string]string{"AGENT_DEPLOY_VAR_NSXV3_LOGIN_PORT": "443"}
	e := Env{Prefix: DefaultEnvPrefix, lookupEnv: func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}}

	v, err := e.Lookup("nsxv3_login_port")
	require.NoError(t, err)
	assert.Equal(t, "443", v)

	_, err = e.Lookup("nsxv3_login_user")
	assert.ErrorIs(t, err, ErrUndefined)
}

func TestChainPrecedence(t *testing.T) {
	c := Chain{
		Map{"agent_id": "node01"},
		nil,
		Map{"agent_id": "global", "polling_interval": "2"},
	}

	v, err := c.Lookup("agent_id")
	require.NoError(t, err)
	assert.Equal(t, "node01", v)

	v, err = c.Lookup("polling_interval")
	require.NoError(t, err)
	assert.Equal(t, "2", v)

	_, err = c.Lookup("nope")
	assert.ErrorIs(t, err, ErrUndefined)
}

type brokenResolver struct{}

func (brokenResolver) Lookup(string) (string, error) { return "", errors.New("backend down") }

func TestChainStopsOnHardError(t *testing.T) {
	c := Chain{brokenResolver{}, Map{"x": "1"}}
	_, err := c.Lookup("x")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrUndefined))
}

func TestRender(t *testing.T) {
	r := Map{"host": "nsx.example.com", "port": "443", "empty": ""}

	tests := []struct {
		name     string
		template string
		want     string
	}{
		{"literal", "plain value", "plain value"},
		{"single", "{{host}}", "nsx.example.com"},
		{"spaced", "{{ host }}", "nsx.example.com"},
		{"multiple", "https://{{host}}:{{ port }}/api", "https://nsx.example.com:443/api"},
		{"empty value", "{{empty}}", ""},
		{"unbalanced braces kept", "{{host", "{{host"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Render(tt.template, r)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRenderUndefined(t *testing.T) {
	_, err := Render("{{host}}:{{port}}", Map{"host": "a"})
	var undef *UndefinedVariableError
	require.True(t, errors.As(err, &undef))
	assert.Equal(t, "port", undef.Name)
}

func TestRenderMalformedPlaceholder(t *testing.T) {
	r := Map{"foo": "x", "bar": "y"}

	for _, template := range []string{"{{}}", "{{foo bar}}", "{{foo}}-{{ 1bad }}", "pre {{foo!}} post"} {
		t.Run(template, func(t *testing.T) {
			got, err := Render(template, r)
			require.Error(t, err)
			assert.Empty(t, got)
			assert.True(t, errors.Is(err, ErrUndefined))

			var perr *PlaceholderError
			require.True(t, errors.As(err, &perr))
			assert.Contains(t, template, perr.Text)
		})
	}
}

func TestRenderDoesNotRescanValues(t *testing.T) {
	got, err := Render("{{a}}", Map{"a": "{{not a template}}"})
	require.NoError(t, err)
	assert.Equal(t, "{{not a template}}", got)
}

func TestPlaceholders(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, Placeholders("{{a}}-{{ b }}-{{a}}"))
	assert.Empty(t, Placeholders("no placeholders"))
}

func TestParseYAML(t *testing.T) {
	data := []byte(`
nsxv3_connection_retry_count: 5
nsxv3_login_port: "0443"
nsxv3_suppress_ssl_wornings: true
nsxv3_managed_hosts:
  - esx-1
  - esx-2
agent_id: ~
`)
	m, err := ParseYAML(data)
	require.NoError(t, err)

	assert.Equal(t, "5", m["nsxv3_connection_retry_count"])
	assert.Equal(t, "0443", m["nsxv3_login_port"])
	assert.Equal(t, "true", m["nsxv3_suppress_ssl_wornings"])
	assert.Equal(t, "esx-1,esx-2", m["nsxv3_managed_hosts"])
	v, ok := m["agent_id"]
	assert.True(t, ok)
	assert.Equal(t, "", v)
}

func TestParseYAMLRejectsNesting(t *testing.T) {
	_, err := ParseYAML([]byte("nsxv3:\n  port: 443\n"))
	require.Error(t, err)

	_, err = ParseYAML([]byte("- a\n- b\n"))
	require.Error(t, err)
}

func TestParseYAMLEmpty(t *testing.T) {
	m, err := ParseYAML(nil)
	require.NoError(t, err)
	assert.Empty(t, m)
}

func TestLoadFiles(t *testing.T) {
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "vars.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte("polling_interval: 2\n"), 0600))
	m, err := LoadYAMLFile(yamlPath)
	require.NoError(t, err)
	assert.Equal(t, "2", m["polling_interval"])

	envPath := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envPath, []byte("nsxv3_login_password=s3cret\n"), 0600))
	m, err = LoadEnvFile(envPath)
	require.NoError(t, err)
	assert.Equal(t, "s3cret", m["nsxv3_login_password"])

	_, err = LoadYAMLFile(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}
