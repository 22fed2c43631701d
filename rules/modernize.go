//go:build ruleguard

package gorules

import "github.com/quasilyte/go-ruleguard/dsl"

// WaitGroupGo suggests sync.WaitGroup.Go over manual Add/Done pairs (Go 1.25+).
//
//	wg.Add(1)
//	go func() {
//	    defer wg.Done()
//	    work()
//	}()
//
// becomes
//
//	wg.Go(work)
func WaitGroupGo(m dsl.Matcher) {
	m.Match(`$wg.Add(1); go func() { defer $wg.Done(); $*body }()`).
		Where(m["wg"].Type.Is("*sync.WaitGroup") || m["wg"].Type.Is("sync.WaitGroup")).
		Report("use $wg.Go(func() { ... }) instead of Add/Done (Go 1.25+)").
		Suggest("$wg.Go(func() { $body })")

	m.Match(`go func() { defer $wg.Done(); $*_ }()`).
		Where(m["wg"].Type.Is("*sync.WaitGroup")).
		Report("use $wg.Go(func() { ... }) instead of go func() { defer $wg.Done(); ... }() (Go 1.25+)")
}

// TestingContext suggests t.Context() in tests so goroutines started by the
// code under test see cancellation when the test ends (Go 1.24+).
func TestingContext(m dsl.Matcher) {
	m.Match(`context.Background()`, `context.TODO()`).
		Where(m.File().Name.Matches(`_test\.go$`)).
		Report("use t.Context() instead of $$ in tests (Go 1.24+)")
}

// SortSlices suggests the generic slices package over sort helpers (Go 1.21+).
func SortSlices(m dsl.Matcher) {
	m.Match(`sort.Strings($s)`, `sort.Ints($s)`).
		Report("use slices.Sort($s) instead (Go 1.21+)").
		Suggest("slices.Sort($s)")

	m.Match(`sort.Slice($s, func($i, $j int) bool { return $s[$i].$f < $s[$j].$f })`).
		Report("use slices.SortFunc with cmp.Compare on $f (Go 1.21+)")
}

// TimeLayoutConstants suggests the named layouts added in Go 1.20.
func TimeLayoutConstants(m dsl.Matcher) {
	m.Match(`$t.Format("2006-01-02 15:04:05")`).
		Report("use $t.Format(time.DateTime)").
		Suggest("$t.Format(time.DateTime)")

	m.Match(`$t.Format("2006-01-02")`).
		Report("use $t.Format(time.DateOnly)").
		Suggest("$t.Format(time.DateOnly)")

	m.Match(`$t.Format("15:04:05")`).
		Report("use $t.Format(time.TimeOnly)").
		Suggest("$t.Format(time.TimeOnly)")
}

// MinMaxBuiltin suggests the min/max builtins over float round trips (Go 1.21+).
func MinMaxBuiltin(m dsl.Matcher) {
	m.Match(`int(math.Min(float64($a), float64($b)))`).
		Report("use min($a, $b) (Go 1.21+)").
		Suggest("min($a, $b)")

	m.Match(`int(math.Max(float64($a), float64($b)))`).
		Report("use max($a, $b) (Go 1.21+)").
		Suggest("max($a, $b)")
}
