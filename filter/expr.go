package filter

import (
	"encoding/json"
	"maps"
	"strings"
	"time"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/s0up4200/tvcatalog/tvdb"
)

// exprFilter implements CompiledFilter using the expr language
type exprFilter struct {
	expression string
	program    *vm.Program
	funcs      map[string]any
}

// ExprCompilerOption configures an expr compiler
type ExprCompilerOption func(*exprCompiler)

// WithCache enables filter caching with the specified size
func WithCache(size int) ExprCompilerOption {
	return func(c *exprCompiler) {
		if size <= 0 {
			return
		}
		if cache, err := lru.New[string, CompiledFilter](size); err == nil {
			c.cache = cache
		}
	}
}

// WithCustomFunctions adds custom helper functions
func WithCustomFunctions(funcs map[string]any) ExprCompilerOption {
	return func(c *exprCompiler) {
		maps.Copy(c.helperFuncs, funcs)
	}
}

// NewExprCompiler creates a new expr-based filter compiler
func NewExprCompiler(opts ...ExprCompilerOption) CachingCompiler {
	c := &exprCompiler{
		helperFuncs: make(map[string]any, 16),
	}
	addHelperFunctions(c.helperFuncs)

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// CompileFilter compiles a single expression without caching
func CompileFilter(expression string) (CompiledFilter, error) {
	return NewExprCompiler().Compile(expression)
}

// exprCompiler implements Compiler for expr-based filters
type exprCompiler struct {
	helperFuncs map[string]any
	cache       *lru.Cache[string, CompiledFilter]
}

// Compile compiles an expression into an executable filter
func (c *exprCompiler) Compile(expression string) (CompiledFilter, error) {
	expression = strings.TrimSpace(expression)
	if expression == "" {
		return nil, &CompilationError{
			Expression: expression,
			Reason:     "empty expression",
			Position:   -1,
		}
	}

	if c.cache != nil {
		if cached, ok := c.cache.Get(expression); ok {
			return cached, nil
		}
	}

	program, err := expr.Compile(expression,
		expr.Env(c.compileEnvironment()),
		expr.AllowUndefinedVariables(),
		expr.AsBool(),
	)
	if err != nil {
		return nil, &CompilationError{
			Expression: expression,
			Reason:     "failed to compile expression",
			Position:   -1,
			Err:        err,
		}
	}

	filter := &exprFilter{
		expression: expression,
		program:    program,
		funcs:      c.helperFuncs,
	}

	if c.cache != nil {
		c.cache.Add(expression, filter)
	}

	return filter, nil
}

// Clear removes all cached filters
func (c *exprCompiler) Clear() {
	if c.cache != nil {
		c.cache.Purge()
	}
}

// Size returns the number of cached filters
func (c *exprCompiler) Size() int {
	if c.cache != nil {
		return c.cache.Len()
	}
	return 0
}

// compileEnvironment types the episode variables so expressions are checked
// against them at compile time.
func (c *exprCompiler) compileEnvironment() map[string]any {
	env := make(map[string]any, len(c.helperFuncs)+12)
	maps.Copy(env, c.helperFuncs)
	env["Season"] = 0
	env["Episode"] = 0
	env["Absolute"] = 0
	env["Name"] = ""
	env["Overview"] = ""
	env["FirstAired"] = time.Time{}
	env["Rating"] = 0.0
	env["SeriesName"] = ""
	env["SeriesID"] = 0
	env["attr"] = func(string) any { return nil }
	env["hasAttr"] = func(string) bool { return false }
	return env
}

// Evaluate evaluates the filter against an episode. Runtime errors count as
// no match.
func (f *exprFilter) Evaluate(ep *tvdb.Episode) bool {
	ok, err := f.Run(ep)
	return err == nil && ok
}

// Run evaluates the filter and reports runtime failures.
func (f *exprFilter) Run(ep *tvdb.Episode) (bool, error) {
	if ep == nil {
		return false, nil
	}

	result, err := expr.Run(f.program, createRuntimeEnvironment(ep, f.funcs))
	if err != nil {
		return false, &EvaluationError{
			FilterName: f.expression,
			Episode:    ep,
			Err:        err,
		}
	}

	// AsBool guarantees the result type
	return result.(bool), nil
}

// Expression returns the original expression
func (f *exprFilter) Expression() string {
	return f.expression
}

// addHelperFunctions adds all helper functions to the provided map
func addHelperFunctions(env map[string]any) {
	// Date helpers
	env["daysSince"] = func(t time.Time) int {
		return int(time.Since(t).Hours() / 24)
	}
	env["daysAgo"] = func(days int) time.Time {
		return time.Now().AddDate(0, 0, -days)
	}
	env["monthsAgo"] = func(months int) time.Time {
		return time.Now().AddDate(0, -months, 0)
	}
	env["yearsAgo"] = func(years int) time.Time {
		return time.Now().AddDate(-years, 0, 0)
	}
	env["parseDate"] = func(dateStr string) time.Time {
		t, _ := time.Parse(time.DateOnly, dateStr)
		return t
	}
	// String helpers
	env["contains"] = func(str, substr string) bool {
		return strings.Contains(strings.ToLower(str), strings.ToLower(substr))
	}
	env["startsWith"] = func(str, prefix string) bool {
		return strings.HasPrefix(strings.ToLower(str), strings.ToLower(prefix))
	}
	env["endsWith"] = func(str, suffix string) bool {
		return strings.HasSuffix(strings.ToLower(str), strings.ToLower(suffix))
	}
	env["lower"] = strings.ToLower
	env["upper"] = strings.ToUpper
	env["now"] = time.Now
}

// createRuntimeEnvironment binds one episode's fields next to funcs
func createRuntimeEnvironment(ep *tvdb.Episode, funcs map[string]any) map[string]any {
	env := make(map[string]any, len(funcs)+12)
	maps.Copy(env, funcs)

	attrs := ep.Attributes()

	env["Episode"] = ep.Number()
	env["Name"] = ep.Name()
	env["Overview"] = ep.Overview()
	env["Absolute"] = intValue(attrs["absoluteNumber"])
	env["Rating"] = floatValue(attrs["siteRating"])

	firstAired, _ := time.Parse(time.DateOnly, ep.FirstAired())
	env["FirstAired"] = firstAired

	env["Season"] = 0
	env["SeriesName"] = ""
	env["SeriesID"] = 0
	if season := ep.Season(); season != nil {
		env["Season"] = season.Number()
		if series := season.Series(); series != nil {
			env["SeriesName"] = series.Name()
			env["SeriesID"] = int(series.ID())
		}
	}

	env["attr"] = func(key string) any {
		return normalize(attrs[key])
	}
	env["hasAttr"] = func(key string) bool {
		v, ok := attrs[key]
		return ok && v != nil
	}

	return env
}

func normalize(v any) any {
	n, ok := v.(json.Number)
	if !ok {
		return v
	}
	if i, err := n.Int64(); err == nil {
		return int(i)
	}
	if f, err := n.Float64(); err == nil {
		return f
	}
	return n.String()
}

func intValue(v any) int {
	switch n := normalize(v).(type) {
	case int:
		return n
	case float64:
		return int(n)
	}
	return 0
}

func floatValue(v any) float64 {
	switch n := normalize(v).(type) {
	case int:
		return float64(n)
	case float64:
		return n
	}
	return 0
}
