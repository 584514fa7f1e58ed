package types

import (
	"regexp"

	"github.com/tundish/turbo-ipc/internal/wire"
)

// Scalar is a built-in payload type demonstrating that applications may
// register their own records with the Assembly alongside the Header:
// a named, unit-tagged value with a validation pattern and a human tip.
// The Regex field's wire encoding is its pattern source, not the compiled
// form (turberfield.ipc.message.TypesEncoder does the same for
// compiled-regex values).
type Scalar struct {
	Name  string
	Unit  string
	Value string
	Regex *regexp.Regexp
	Tip   string
}

func init() {
	wire.Register(Scalar{})
}
