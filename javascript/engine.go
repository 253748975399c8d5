// Package javascript provides the default scriptbridge engine, backed by the
// pure-Go goja runtime.
package javascript

import (
	"encoding/json"
	"fmt"

	"github.com/dop251/goja"
	"github.com/dop251/goja_nodejs/console"
	"github.com/dop251/goja_nodejs/require"

	"github.com/scriptbridge/scriptbridge"
)

// Engine runs scripts on a goja runtime. One Engine serves exactly one
// execution request and is confined to the goroutine that calls Run.
type Engine struct {
	runtime *goja.Runtime
}

var _ scriptbridge.Engine = (*Engine)(nil)

// New creates a fresh engine with console support enabled, so scripts can
// console.log during execution.
func New() (*Engine, error) {
	rt := goja.New()
	registry := new(require.Registry)
	registry.Enable(rt)
	console.Enable(rt)
	return &Engine{runtime: rt}, nil
}

// Factory is a scriptbridge.EngineFactory producing goja engines.
func Factory() (scriptbridge.Engine, error) {
	return New()
}

// RegisterCallback exposes fn as a global script function. A callback error
// surfaces to the script as a thrown exception.
func (e *Engine) RegisterCallback(name string, fn scriptbridge.Callback) error {
	if name == "" {
		return fmt.Errorf("callback name must not be empty")
	}
	return e.runtime.Set(name, func(call goja.FunctionCall) goja.Value {
		var parameter string
		if len(call.Arguments) > 0 {
			parameter = call.Argument(0).String()
		}
		value, err := fn(parameter)
		if err != nil {
			panic(e.runtime.NewGoError(err))
		}
		return e.runtime.ToValue(value)
	})
}

// Run evaluates the script, then calls the global functionName with arguments
// decoded from the parameters string and returns the stringified result.
func (e *Engine) Run(functionName, parameters, script string) (string, error) {
	if _, err := e.runtime.RunString(script); err != nil {
		return "", fmt.Errorf("evaluating script: %w", err)
	}

	fn, ok := goja.AssertFunction(e.runtime.Get(functionName))
	if !ok {
		return "", fmt.Errorf("%q is not a function", functionName)
	}

	value, err := fn(goja.Undefined(), e.decodeArgs(parameters)...)
	if err != nil {
		return "", err
	}
	return value.String(), nil
}

// decodeArgs interprets the opaque parameters string: a JSON array spreads
// into positional arguments, anything else is passed through as one string.
func (e *Engine) decodeArgs(parameters string) []goja.Value {
	var arr []any
	if err := json.Unmarshal([]byte(parameters), &arr); err == nil {
		args := make([]goja.Value, len(arr))
		for i, v := range arr {
			args[i] = e.runtime.ToValue(v)
		}
		return args
	}
	return []goja.Value{e.runtime.ToValue(parameters)}
}

// Close releases the runtime.
func (e *Engine) Close() error {
	e.runtime = nil
	return nil
}
