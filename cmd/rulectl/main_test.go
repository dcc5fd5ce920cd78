package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(args ...string) (string, error) {
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const sampleEML = "From: Acme Billing <billing@acme.com>\r\n" +
	"To: alice@example.com\r\n" +
	"Subject: Invoice 2291\r\n" +
	"Message-ID: <inv-2291@acme.com>\r\n" +
	"Date: Fri, 01 Aug 2014 16:45:32 -0400\r\n" +
	"Content-Type: text/plain; charset=utf-8\r\n" +
	"\r\n" +
	"Please pay by Friday.\r\n"

func TestValidate(t *testing.T) {
	out, err := run("validate", `contains(Subject, "invoice")`)
	require.NoError(t, err)
	assert.Equal(t, "ok\n", out)

	out, err = run("validate", "  ")
	require.NoError(t, err)
	assert.Contains(t, out, "empty rule")

	out, err = run("validate", `Subject == "a" and`)
	require.Error(t, err)
	lines := strings.Split(out, "\n")
	assert.Equal(t, `Subject == "a" and`, lines[0])
	assert.Equal(t, strings.Repeat(" ", 18)+"^", lines[1])
}

func TestMatchEML(t *testing.T) {
	path := writeTemp(t, "invoice.eml", sampleEML)

	out, err := run("match", `FromFull.Email ~= "@acme\\.com$" and contains(TextBody, "friday")`, "--eml", path)
	require.NoError(t, err)
	assert.Equal(t, "match\n", out)

	out, err = run("match", `Subject == "Receipt"`, "--eml", path)
	require.NoError(t, err)
	assert.Equal(t, "no match\n", out)
}

func TestMatchJSON(t *testing.T) {
	path := writeTemp(t, "hook.json", `{"MessageID":"m-1","Subject":"Lunch","FromFull":{"Email":"bob@mail.com"},"ToFull":[{"Email":"alice@example.com"}],"Tag":"social"}`)

	out, err := run("match", `upper(Tag)`, "--json", path, "--value")
	require.NoError(t, err)
	assert.Equal(t, "value: \"SOCIAL\"\nmatch\n", out)
}

func TestMatchNeedsOneSource(t *testing.T) {
	_, err := run("match", "true")
	assert.ErrorContains(t, err, "exactly one of --eml or --json")
}

func TestFunctions(t *testing.T) {
	out, err := run("functions")
	require.NoError(t, err)
	assert.Contains(t, strings.Fields(out), "contains")
	assert.Contains(t, strings.Fields(out), "random")
}
