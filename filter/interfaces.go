package filter

import (
	"github.com/s0up4200/tvcatalog/tvdb"
)

// Filter decides whether an episode is kept.
type Filter interface {
	Evaluate(ep *tvdb.Episode) bool
}

// CompiledFilter is a Filter that remembers its source expression.
type CompiledFilter interface {
	Filter
	Expression() string
}

// Compiler turns an expression into a CompiledFilter.
type Compiler interface {
	Compile(expression string) (CompiledFilter, error)
}

// CachingCompiler is a Compiler that reuses programs for repeated
// expressions.
type CachingCompiler interface {
	Compiler

	// Clear drops every cached program
	Clear()

	// Size returns the number of cached programs
	Size() int
}
