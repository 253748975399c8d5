//go:build v8

// Package v8engine provides a scriptbridge engine backed by V8 via
// github.com/tommie/v8go. Build with -tags v8.
package v8engine

import (
	"fmt"

	v8 "github.com/tommie/v8go"

	"github.com/scriptbridge/scriptbridge"
)

// Engine runs scripts on a dedicated V8 isolate+context pair. One Engine
// serves exactly one execution request and is confined to the goroutine that
// calls Run.
type Engine struct {
	iso *v8.Isolate
	ctx *v8.Context
}

var _ scriptbridge.Engine = (*Engine)(nil)

// New creates a fresh isolate and context.
func New() (*Engine, error) {
	iso := v8.NewIsolate()
	ctx := v8.NewContext(iso)
	return &Engine{iso: iso, ctx: ctx}, nil
}

// Factory is a scriptbridge.EngineFactory producing V8 engines.
func Factory() (scriptbridge.Engine, error) {
	return New()
}

// RegisterCallback exposes fn as a global script function. A callback error
// surfaces to the script as a thrown exception.
func (e *Engine) RegisterCallback(name string, fn scriptbridge.Callback) error {
	if name == "" {
		return fmt.Errorf("callback name must not be empty")
	}
	tmpl := v8.NewFunctionTemplate(e.iso, func(info *v8.FunctionCallbackInfo) *v8.Value {
		var parameter string
		if args := info.Args(); len(args) > 0 {
			parameter = args[0].String()
		}
		value, err := fn(parameter)
		if err != nil {
			msg, _ := v8.NewValue(e.iso, err.Error())
			e.iso.ThrowException(msg)
			return nil
		}
		jsVal, err := v8.NewValue(e.iso, value)
		if err != nil {
			msg, _ := v8.NewValue(e.iso, fmt.Sprintf("converting %s result: %v", name, err))
			e.iso.ThrowException(msg)
			return nil
		}
		return jsVal
	})
	return e.ctx.Global().Set(name, tmpl.GetFunction(e.ctx))
}

// Run evaluates the script, then calls the global functionName with arguments
// decoded from the parameters string (JSON array spreads into positional
// arguments, anything else passes through as one string) and returns the
// stringified result.
func (e *Engine) Run(functionName, parameters, script string) (string, error) {
	if _, err := e.ctx.RunScript(script, "script.js"); err != nil {
		return "", fmt.Errorf("evaluating script: %w", err)
	}

	params, err := v8.NewValue(e.iso, parameters)
	if err != nil {
		return "", fmt.Errorf("converting parameters: %w", err)
	}
	if err := e.ctx.Global().Set("__params", params); err != nil {
		return "", fmt.Errorf("setting parameters: %w", err)
	}

	invoke := fmt.Sprintf(`(function() {
		var args;
		try { args = JSON.parse(globalThis.__params); } catch (err) { args = globalThis.__params; }
		if (!Array.isArray(args)) args = [globalThis.__params];
		delete globalThis.__params;
		var fn = globalThis[%q];
		if (typeof fn !== "function") throw new TypeError(%q + " is not a function");
		return String(fn.apply(null, args));
	})()`, functionName, functionName)

	result, err := e.ctx.RunScript(invoke, "invoke.js")
	if err != nil {
		return "", err
	}
	return result.String(), nil
}

// Close disposes the context and isolate.
func (e *Engine) Close() error {
	e.ctx.Close()
	e.iso.Dispose()
	return nil
}
