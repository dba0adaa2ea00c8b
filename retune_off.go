//go:build (retune_off || js) && !retune_on

package retune

// Compiled-out build: every operation collapses to the compiled-in
// value and nothing ever touches the filesystem. The symbols mirror the
// live build so call sites are identical either way.

type Engine struct{}

func New(Options) *Engine { return &Engine{} }

func Default() *Engine { return &Engine{} }

func SetDefault(*Engine) {}

func (e *Engine) BlockUntilChanged(string) {}
func (e *Engine) Invalidate(string)        {}

func V[T Tweakable](def T) T { return def }

func Expr[T Tweakable](override T, compute func() T) T {
	if compute != nil {
		return compute()
	}
	return override
}

func Resolve[T Tweakable](_ *Engine, _ Site, fallback T) T { return fallback }

func Wait()           {}
func WaitFile(string) {}
