// Package lua provides a scriptbridge engine backed by gopher-lua.
package lua

import (
	"fmt"

	luajson "github.com/vadv/gopher-lua-libs/json"
	lua "github.com/yuin/gopher-lua"

	"github.com/scriptbridge/scriptbridge"
)

// Engine runs scripts on a gopher-lua state. One Engine serves exactly one
// execution request and is confined to the goroutine that calls Run.
type Engine struct {
	state *lua.LState
}

var _ scriptbridge.Engine = (*Engine)(nil)

// New creates a fresh engine. The json library is preloaded so scripts can
// require("json") to decode a JSON parameters string.
func New() (*Engine, error) {
	state := lua.NewState()
	luajson.Preload(state)
	return &Engine{state: state}, nil
}

// Factory is a scriptbridge.EngineFactory producing gopher-lua engines.
func Factory() (scriptbridge.Engine, error) {
	return New()
}

// RegisterCallback exposes fn as a global script function. A callback error
// surfaces to the script as a raised Lua error.
func (e *Engine) RegisterCallback(name string, fn scriptbridge.Callback) error {
	if name == "" {
		return fmt.Errorf("callback name must not be empty")
	}
	e.state.SetGlobal(name, e.state.NewFunction(func(L *lua.LState) int {
		parameter := L.OptString(1, "")
		value, err := fn(parameter)
		if err != nil {
			L.RaiseError("%s", err.Error())
			return 0
		}
		L.Push(lua.LString(value))
		return 1
	}))
	return nil
}

// Run evaluates the script, then calls the global functionName with the raw
// parameters string as its single argument and returns the result as a
// string. Lua scripts that want structured arguments decode them with the
// preloaded json library.
func (e *Engine) Run(functionName, parameters, script string) (string, error) {
	if err := e.state.DoString(script); err != nil {
		return "", fmt.Errorf("evaluating script: %w", err)
	}

	fn := e.state.GetGlobal(functionName)
	if fn.Type() != lua.LTFunction {
		return "", fmt.Errorf("%q is not a function", functionName)
	}

	err := e.state.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, lua.LString(parameters))
	if err != nil {
		return "", err
	}

	ret := e.state.Get(-1)
	e.state.Pop(1)
	return lua.LVAsString(ret), nil
}

// Close releases the Lua state.
func (e *Engine) Close() error {
	e.state.Close()
	return nil
}
