//go:build v8

package v8engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scriptbridge/scriptbridge"
)

func newHost(t *testing.T) *scriptbridge.Host {
	t.Helper()
	h, err := scriptbridge.New(scriptbridge.Config{EngineFactory: Factory})
	require.NoError(t, err)
	t.Cleanup(h.Close)
	return h
}

func TestRunSync_Add(t *testing.T) {
	h := newHost(t)
	got, err := h.RunSync("add", "[2,3]", `function add(a, b) { return a + b; }`, nil)
	require.NoError(t, err)
	assert.Equal(t, "5", got)
}

func TestCallback_Double(t *testing.T) {
	h := newHost(t)
	script := `function main(p) { return double(p); }`
	callbacks := scriptbridge.CallbackMap{
		"double": func(parameter string) string { return "42" },
	}

	got, err := h.RunSync("main", "21", script, callbacks)
	require.NoError(t, err)
	assert.Equal(t, "42", got)
}

func TestScriptFailure_CarriesDiagnostic(t *testing.T) {
	h := newHost(t)
	_, err := h.RunSync("boom", "", `function boom() { throw new Error("exploded"); }`, nil)
	require.Error(t, err)
	var scriptErr *scriptbridge.ScriptError
	require.ErrorAs(t, err, &scriptErr)
	assert.Contains(t, scriptErr.Message, "exploded")
}
