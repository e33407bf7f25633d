//go:build ruleguard

// Package gorules contains custom linting rules for golangci-lint via ruleguard.
package gorules

import "github.com/quasilyte/go-ruleguard/dsl"

// WaitGroupGo detects the manual Add/Done goroutine pattern that wg.Go
// replaces (Go 1.25+).
//
//	wg.Add(1)
//	go func() {
//	    defer wg.Done()
//	    work()
//	}()
func WaitGroupGo(m dsl.Matcher) {
	m.Match(`go func() { defer $wg.Done(); $*_ }()`).
		Where(m["wg"].Type.Is("*sync.WaitGroup")).
		Report("Use $wg.Go(func() { ... }) instead of go func() { defer $wg.Done(); ... }()").
		Suggest("$wg.Go(func() { $*_ })")

	m.Match(`$wg.Add(1)`).
		Where(m["wg"].Type.Is("*sync.WaitGroup")).
		Report("Consider using $wg.Go() which calls Add(1) automatically")
}

// SortSlices detects the typed sort helpers. Node ids and species codes are
// sorted with the slices package.
func SortSlices(m dsl.Matcher) {
	m.Match(`sort.Ints($s)`, `sort.Strings($s)`, `sort.Float64s($s)`).
		Report("use slices.Sort($s)").
		Suggest("slices.Sort($s)")

	m.Match(`sort.Slice($s, func($i, $j int) bool { return $s[$i] < $s[$j] })`).
		Report("use slices.Sort($s)").
		Suggest("slices.Sort($s)")
}

// RangeOverInteger detects counting loops that can range over an int.
func RangeOverInteger(m dsl.Matcher) {
	m.Match(`for $i := 0; $i < $n; $i++ { $*body }`).
		Where(!m["n"].Text.Matches(`.*\.N$`)).
		Report("use for $i := range $n").
		Suggest("for $i := range $n { $body }")
}

// PlanarDistance detects hand-written Euclidean distances. Hearing range
// checks go through geometry.Distance so that every comparison against the
// radius uses the same tolerance.
func PlanarDistance(m dsl.Matcher) {
	m.Match(
		`math.Sqrt($dx*$dx + $dy*$dy)`,
		`math.Hypot($a.X-$b.X, $a.Y-$b.Y)`,
	).
		Where(!m.File().PkgPath.Matches(`/internal/geometry$`)).
		Report("use geometry.Distance for distances between points")
}

// EnhancedErrors detects plain errors created in the census packages, which
// report through the enhanced errors builder.
func EnhancedErrors(m dsl.Matcher) {
	m.Match(`fmt.Errorf($*_)`).
		Where(m.File().PkgPath.Matches(`/internal/(census|sensorgraph|geometry|detection|scenario)$`) &&
			!m.File().Name.Matches(`_test\.go$`)).
		Report("use the internal/errors builder so the error carries a component and category")

	m.Match(`errors.New($text)`).
		Where(m.File().PkgPath.Matches(`/internal/(census|sensorgraph|geometry|detection|scenario)$`) &&
			!m.File().Name.Matches(`_test\.go$`) && m["text"].Type.Is("string")).
		Report("use errors.Newf($text) so the error carries a component and category")
}

// DeferredTimeSince detects time.Since evaluated when a defer is declared
// instead of when it runs.
func DeferredTimeSince(m dsl.Matcher) {
	m.Match(`defer $f(time.Since($t))`, `defer $f($*_, time.Since($t), $*_)`).
		Report("time.Since is evaluated at the defer statement; wrap the call in a closure")
}
