// Package retune makes literals in Go source live-editable while the
// program runs. A call like
//
//	speed := retune.V(3.5)
//
// returns 3.5, and keeps returning whatever number is currently written
// at that position in the file: edit the source, save, and the running
// process picks the new value up within the check interval, no restart.
// The source file itself is the store; nothing is persisted elsewhere.
//
// The override form suppresses a computation while a literal is present:
//
//	n := retune.Expr(100, rollDice) // always 100 until the call is edited away
//
// Builds tagged retune_off (and js targets, unless retune_on forces the
// engine back in) compile every operation down to returning the
// compiled-in value; no filesystem work remains.
package retune

import "time"

// Tweakable enumerates the literal types a call site can carry.
type Tweakable interface {
	int | int32 | int64 | uint | uint32 | uint64 | float32 | float64 | bool | string
}

// Site identifies a call-site origin: the file, line and column the
// lookup was compiled at. The convenience helpers fill this from
// runtime.Caller (column 0); generated call sites may supply real
// columns to disambiguate several invocations on one line.
type Site struct {
	File   string
	Line   int
	Column int
}

// Options configures an Engine. Zero values select the defaults.
type Options struct {
	// CheckInterval throttles per-file metadata queries (default 250ms).
	CheckInterval time.Duration
	// PollInterval is the sleep between change polls in Wait (default 50ms).
	PollInterval time.Duration
	// Markers are the invocation names recognized in source. Defaults to
	// the helpers of this package.
	Markers []string
}
