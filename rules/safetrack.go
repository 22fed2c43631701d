//go:build ruleguard

// Package gorules contains custom linting rules for golangci-lint via ruleguard.
package gorules

import "github.com/quasilyte/go-ruleguard/dsl"

// EngineClock flags wall-clock reads inside the inspection engine. Timestamps
// there come from the injected clock.
//
//	now := time.Now()      // flagged
//	now := e.clock()       // ok
func EngineClock(m dsl.Matcher) {
	m.Match(`time.Now()`, `time.Since($_)`).
		Where(m.File().PkgPath.Matches(`/internal/inspection$`) &&
			!m.File().Name.Matches(`_test\.go$`)).
		Report("inspection code must read time from the engine clock, not $$")
}

// DefaultRegistry flags use of the global Prometheus registry. Collectors are
// registered on the private registry owned by observability.Metrics.
func DefaultRegistry(m dsl.Matcher) {
	m.Match(
		`prometheus.MustRegister($*_)`,
		`prometheus.Register($_)`,
		`prometheus.DefaultRegisterer`,
		`prometheus.DefaultGatherer`,
	).
		Report("register collectors on the observability registry instead of the global one")

	m.Match(`promhttp.Handler()`).
		Report("serve metrics with Metrics.Handler() so only SafeTrack collectors are exposed")
}

// StdlibLogging flags ad hoc printing from library packages. Output goes
// through the central logger (logger.Global().Module(...)).
func StdlibLogging(m dsl.Matcher) {
	m.Match(
		`log.Printf($*_)`,
		`log.Println($*_)`,
		`log.Fatalf($*_)`,
		`fmt.Printf($*_)`,
		`fmt.Println($*_)`,
	).
		Where(m.File().PkgPath.Matches(`/internal/`)).
		Report("use the module logger instead of $$")
}

// ErrorIdentity flags direct comparison against sentinel errors. Store and
// engine errors are wrapped, so equality misses them.
//
//	if err == inspection.ErrNotFound   // flagged
//	if errors.Is(err, inspection.ErrNotFound)
func ErrorIdentity(m dsl.Matcher) {
	m.Match(`$err == $target`, `$err != $target`).
		Where(m["err"].Type.Is("error") &&
			m["target"].Type.Is("error") &&
			!m["target"].Text.Matches(`^nil$`) &&
			!m["err"].Text.Matches(`^nil$`)).
		Report("use errors.Is($err, $target) to compare errors")
}

// UnscopedGormDelete flags deletes without a WHERE clause, which GORM rejects
// at runtime with ErrMissingWhereClause.
func UnscopedGormDelete(m dsl.Matcher) {
	m.Match(`$db.Delete($model)`).
		Where(m["db"].Type.Is("*gorm.DB") && !m["model"].Text.Matches(`^&?\w+\{.+\}$`)).
		Report("Delete without conditions; add .Where(...) before $db.Delete")
}
