// Package quickjs provides a scriptbridge engine backed by the QuickJS
// runtime from modernc.org/quickjs (transpiled C, no cgo).
package quickjs

import (
	"fmt"

	"modernc.org/quickjs"

	"github.com/scriptbridge/scriptbridge"
)

// Engine runs scripts on a QuickJS VM. One Engine serves exactly one
// execution request and is confined to the goroutine that calls Run.
type Engine struct {
	vm *quickjs.VM
}

var _ scriptbridge.Engine = (*Engine)(nil)

// New creates a fresh engine.
func New() (*Engine, error) {
	vm, err := quickjs.NewVM()
	if err != nil {
		return nil, fmt.Errorf("creating QuickJS VM: %w", err)
	}
	return &Engine{vm: vm}, nil
}

// Factory is a scriptbridge.EngineFactory producing QuickJS engines.
func Factory() (scriptbridge.Engine, error) {
	return New()
}

// eval evaluates JavaScript and discards the result.
func (e *Engine) eval(js string) error {
	v, err := e.vm.EvalValue(js, quickjs.EvalGlobal)
	if err != nil {
		return err
	}
	v.Free()
	return nil
}

// setGlobal sets a global property on the VM's global object.
func (e *Engine) setGlobal(name string, value any) error {
	atom, err := e.vm.NewAtom(name)
	if err != nil {
		return fmt.Errorf("creating atom %q: %w", name, err)
	}
	glob := e.vm.GlobalObject()
	defer glob.Free()
	return glob.SetProperty(atom, value)
}

// RegisterCallback exposes fn as a global script function. The QuickJS Go
// wrapper returns multi-value Go results as JS arrays, so the raw function is
// wrapped in a JS shim that unwraps (value, error): on error it throws, on
// success it returns the value.
func (e *Engine) RegisterCallback(name string, fn scriptbridge.Callback) error {
	if name == "" {
		return fmt.Errorf("callback name must not be empty")
	}
	rawName := "__raw_" + name
	if err := e.vm.RegisterFunc(rawName, fn, false); err != nil {
		return err
	}
	shim := fmt.Sprintf(`(function() {
		var raw = globalThis[%q];
		globalThis[%q] = function(parameter) {
			var r = raw(String(parameter === undefined ? "" : parameter));
			if (Array.isArray(r)) {
				if (r[1] !== null && r[1] !== undefined) throw new Error(String(r[1]));
				return r[0];
			}
			return r;
		};
		delete globalThis[%q];
	})()`, rawName, name, rawName)
	return e.eval(shim)
}

// Run evaluates the script, then calls the global functionName with arguments
// decoded from the parameters string (JSON array spreads into positional
// arguments, anything else passes through as one string) and returns the
// stringified result.
func (e *Engine) Run(functionName, parameters, script string) (string, error) {
	if err := e.eval(script); err != nil {
		return "", fmt.Errorf("evaluating script: %w", err)
	}

	if err := e.setGlobal("__params", parameters); err != nil {
		return "", err
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

	result, err := e.vm.Eval(invoke, quickjs.EvalGlobal)
	if err != nil {
		return "", err
	}
	if result == nil {
		return "", nil
	}
	return fmt.Sprint(result), nil
}

// Close releases the VM.
func (e *Engine) Close() error {
	e.vm.Close()
	return nil
}
