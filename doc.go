// Package scriptbridge runs embedded scripts off the host's own goroutine
// while letting those scripts synchronously call back into host functions
// that are confined to a single host loop goroutine.
//
// A Host owns the loop. Run schedules a script on a dedicated worker
// goroutine and delivers the outcome to a completion handler on the loop;
// the loop stays free between callback invocations. RunSync executes the
// script and its callbacks in place on the caller's goroutine.
//
// The script engine itself is an external collaborator behind the Engine
// interface. Adapters for goja, gopher-lua, QuickJS and V8 live in the
// javascript, lua, quickjs and v8engine subpackages.
package scriptbridge
