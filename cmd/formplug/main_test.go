package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vango-dev/formplug/internal/config"
	"github.com/vango-dev/formplug/internal/errors"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--log-level", "error"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version", "--short")
	require.NoError(t, err)
	assert.Equal(t, "dev\n", out)

	out, err = execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "Commit:     none")
}

func TestDemo(t *testing.T) {
	out, err := execute(t, "demo")
	require.NoError(t, err)

	assert.Contains(t, out, "component/rating owned by stars-a")
	assert.Contains(t, out, "stars-b with warn: component/rating still owned by stars-a")
	assert.Contains(t, out, "now owned by stars-c")
	assert.Contains(t, out, "stars-d with error: rejected (E202), installed=false")
	assert.Contains(t, out, `replace built-in "text": builtin=true`)
	assert.Contains(t, out, "rating widget present=false, owner=(unowned)")
	assert.Contains(t, out, "contact form rejected: Provide an email address or a phone number")
	assert.Contains(t, out, "inbox holds 1 message(s)")
}

func TestList(t *testing.T) {
	out, err := execute(t, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "PLUGIN")
	assert.Contains(t, out, "contact")
	assert.Contains(t, out, "component/rating")
	assert.Contains(t, out, "fieldCustomValidator/contact:subject")

	out, err = execute(t, "list", "--samples=false")
	require.NoError(t, err)
	assert.Contains(t, out, "no plugins installed")
}

func TestListWithManifest(t *testing.T) {
	manifest := filepath.Join("..", "..", "pkg", "manifest", "testdata", "survey.yaml")
	out, err := execute(t, "list", "--manifest", manifest)
	require.NoError(t, err)
	assert.Contains(t, out, "survey")
	assert.Contains(t, out, "component/likert")
}

func TestValidate(t *testing.T) {
	out, err := execute(t, "validate", "contact",
		"--set", "name=Ada", "--set", "email=ada@example.com",
		"--set", "subject=Greetings", "--set", "message=Hello")
	require.NoError(t, err)
	assert.Contains(t, out, "contact: valid")

	out, err = execute(t, "validate", "contact", "--set", "name=Ada", "--set", "subject=Hi")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeSubmitInvalid))
	assert.Contains(t, out, "message: This field is required")
	assert.Contains(t, out, "subject: Must be at least 3 characters")
	assert.Contains(t, out, "Provide an email address or a phone number")

	_, err = execute(t, "validate", "missing")
	assert.ErrorContains(t, err, `unknown form "missing"`)
}

func TestValidateValuesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "values.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: Ada\nphone: 555-123-4567\nsubject: Greetings\nmessage: Hello\n"), 0o644))

	out, err := execute(t, "validate", "contact", "--values", path)
	require.NoError(t, err)
	assert.Contains(t, out, "contact: valid")
}

func TestValidateLocale(t *testing.T) {
	out, err := execute(t, "validate", "contact", "--locale", "de", "--set", "email=ada@example.com")
	require.Error(t, err)
	assert.Contains(t, out, "name: Dieses Feld ist erforderlich")
}

func TestValidateConfigLocale(t *testing.T) {
	path := filepath.Join(t.TempDir(), "formplug.yaml")
	require.NoError(t, os.WriteFile(path, []byte("locale: de\n"), 0o644))

	out, err := execute(t, "--config", path, "validate", "contact", "--set", "email=ada@example.com")
	require.Error(t, err)
	assert.Contains(t, out, "name: Dieses Feld ist erforderlich")
}

func TestInit(t *testing.T) {
	dir := t.TempDir()
	out, err := execute(t, "init", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "wrote")

	path := filepath.Join(dir, config.ConfigName+".yaml")
	cfg, err := config.NewLoader().Load(path)
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Strategy)

	out, err = execute(t, "init", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "already exists")
}

func TestStrategyFlag(t *testing.T) {
	_, err := execute(t, "list", "--strategy", "bogus")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeConfigInvalid))
}

func TestNoColor(t *testing.T) {
	t.Setenv("NO_COLOR", "")
	defer errors.EnableColors()

	out, err := execute(t, "demo")
	require.NoError(t, err)
	assert.Contains(t, out, "\033[32m✓\033[0m installed stars-a")

	out, err = execute(t, "--no-color", "demo")
	require.NoError(t, err)
	assert.NotContains(t, out, "\033[")
	assert.Contains(t, out, "✓ installed stars-a")
	assert.NotContains(t, errors.New(errors.CodeItemConflict).Format(), "\033[")
}
