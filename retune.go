//go:build (!retune_off && !js) || retune_on

package retune

import (
	"runtime"
	"sync"

	"retune/internal/engine"
	"retune/internal/literal"
)

// Engine is the public handle around the runtime core. The process-wide
// instance from Default serves the package-level helpers; tests build
// isolated engines with New.
type Engine struct {
	inner *engine.Engine
}

func New(opts Options) *Engine {
	return &Engine{inner: engine.New(engine.Options{
		CheckInterval: opts.CheckInterval,
		PollInterval:  opts.PollInterval,
		Markers:       opts.Markers,
	})}
}

// Core exposes the underlying engine for in-module tooling.
func (e *Engine) Core() *engine.Engine { return e.inner }

// BlockUntilChanged suspends the calling goroutine until path changes
// on disk.
func (e *Engine) BlockUntilChanged(path string) { e.inner.BlockUntilChanged(path) }

// Invalidate makes the next lookup for path skip the stat throttle.
func (e *Engine) Invalidate(path string) { e.inner.Invalidate(path) }

var (
	defaultEngine *Engine
	defaultMu     sync.Mutex
)

// Default returns the process-wide engine, constructing it with default
// options on first use.
func Default() *Engine {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultEngine == nil {
		defaultEngine = New(Options{})
	}
	return defaultEngine
}

// SetDefault replaces the process-wide engine. Intended for program
// startup (custom markers or intervals) before any tweak call runs.
func SetDefault(e *Engine) {
	defaultMu.Lock()
	defaultEngine = e
	defaultMu.Unlock()
}

// V returns the live value of the literal written at the call site, or
// def when the engine cannot serve it.
func V[T Tweakable](def T) T {
	return Resolve(Default(), callerSite(1), def)
}

// Expr is the override form: while the call's literal occurrence exists
// in the source, its value is returned and compute never runs. Once the
// occurrence is gone (or the engine cannot serve it), compute supplies
// the value, falling back to override when compute is nil.
func Expr[T Tweakable](override T, compute func() T) T {
	site := callerSite(1)
	if v, ok := Default().inner.Lookup(toEngineSite(site), kindOf[T]()); ok {
		if out, done := fromValue[T](v); done {
			return out
		}
	}
	if compute != nil {
		return compute()
	}
	return override
}

// Wait blocks the calling goroutine until the caller's own source file
// changes on disk. The original loop-and-edit workflow: change a value
// above the Wait call, save, and the loop resumes.
func Wait() {
	if _, file, _, ok := runtime.Caller(1); ok {
		Default().BlockUntilChanged(file)
	}
}

// WaitFile blocks until the given file changes on disk.
func WaitFile(path string) {
	Default().BlockUntilChanged(path)
}

// Resolve serves a fully specified call site against e. This is the
// surface generated call sites use; V is Resolve with the site taken
// from runtime.Caller.
func Resolve[T Tweakable](e *Engine, site Site, fallback T) T {
	v := e.inner.Resolve(toEngineSite(site), kindOf[T](), toValue(fallback))
	out, ok := fromValue[T](v)
	if !ok {
		return fallback
	}
	return out
}

func callerSite(skip int) Site {
	_, file, line, ok := runtime.Caller(skip + 1)
	if !ok {
		return Site{}
	}
	return Site{File: file, Line: line}
}

func toEngineSite(s Site) engine.Site {
	return engine.Site{File: s.File, Line: s.Line, Column: s.Column}
}

func kindOf[T Tweakable]() literal.Kind {
	var zero T
	switch any(zero).(type) {
	case float32, float64:
		return literal.KindFloat
	case bool:
		return literal.KindBool
	case string:
		return literal.KindText
	default:
		return literal.KindInt
	}
}

func toValue[T Tweakable](v T) literal.Value {
	switch x := any(v).(type) {
	case int:
		return literal.IntValue(int64(x))
	case int32:
		return literal.IntValue(int64(x))
	case int64:
		return literal.IntValue(x)
	case uint:
		return literal.IntValue(int64(x))
	case uint32:
		return literal.IntValue(int64(x))
	case uint64:
		return literal.IntValue(int64(x))
	case float32:
		return literal.FloatValue(float64(x))
	case float64:
		return literal.FloatValue(x)
	case bool:
		return literal.BoolValue(x)
	case string:
		return literal.TextValue(x)
	}
	return literal.Value{}
}

func fromValue[T Tweakable](v literal.Value) (T, bool) {
	var out T
	switch p := any(&out).(type) {
	case *int:
		if v.Kind != literal.KindInt {
			return out, false
		}
		*p = int(v.Int)
	case *int32:
		if v.Kind != literal.KindInt {
			return out, false
		}
		*p = int32(v.Int)
	case *int64:
		if v.Kind != literal.KindInt {
			return out, false
		}
		*p = v.Int
	case *uint:
		if v.Kind != literal.KindInt || v.Int < 0 {
			return out, false
		}
		*p = uint(v.Int)
	case *uint32:
		if v.Kind != literal.KindInt || v.Int < 0 {
			return out, false
		}
		*p = uint32(v.Int)
	case *uint64:
		if v.Kind != literal.KindInt || v.Int < 0 {
			return out, false
		}
		*p = uint64(v.Int)
	case *float32:
		if v.Kind != literal.KindFloat {
			return out, false
		}
		*p = float32(v.Float)
	case *float64:
		if v.Kind != literal.KindFloat {
			return out, false
		}
		*p = v.Float
	case *bool:
		if v.Kind != literal.KindBool {
			return out, false
		}
		*p = v.Bool
	case *string:
		if v.Kind != literal.KindText {
			return out, false
		}
		*p = v.Text
	default:
		return out, false
	}
	return out, true
}
