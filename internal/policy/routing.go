package policy

import (
	"fmt"

	"github.com/tundish/turbo-ipc/internal/log"
	"github.com/tundish/turbo-ipc/internal/types"
	"github.com/tundish/turbo-ipc/internal/wire"
)

// Rule is one routing-table entry: messages from Src addressed to Dst are
// subject to the hop ceiling HMax, with Via naming an override next hop.
type Rule struct {
	Src  types.Address
	Dst  types.Address
	HMax int
	Via  types.Address
}

// Application is an ordered list of routing rules, keyed by (Src, Dst).
// Duplicate keys are a warning-level anomaly, not an error.
type Application []Rule

func init() {
	wire.Register(Rule{})
}

// Replace implements the routing-table mutation contract of spec.md §4.3:
//
//   - If a rule for (src, dst) exists, it's replaced with rule (or removed
//     when rule is nil) and the previous rule is returned.
//   - If no such rule exists and rule is non-nil, it's inserted.
//   - If rule is non-nil but its key doesn't equal (src, dst), nothing
//     happens and nil is returned.
func (a *Application) Replace(src, dst types.Address, rule *Rule) *Rule {
	var matches []int
	for i, r := range *a {
		if r.Src == src && r.Dst == dst {
			matches = append(matches, i)
		}
	}
	if len(matches) > 1 {
		log.WithComponent("policy.routing").Warn().
			Str("src", src.Application).
			Str("dst", dst.Application).
			Msg("duplicate rules for src/dst pair in table")
	}

	if len(matches) == 0 {
		if rule != nil && rule.Src == src && rule.Dst == dst {
			*a = append(*a, *rule)
		}
		return nil
	}

	index := matches[0]
	prev := (*a)[index]
	if rule == nil {
		*a = append((*a)[:index], (*a)[index+1:]...)
		return &prev
	}
	if rule.Src != src || rule.Dst != dst {
		return nil
	}
	(*a)[index] = *rule
	return &prev
}

// decodeApplication converts the []interface{} that wire.Loads produces
// for a bare JSON array (Application has no "_type" discriminator) back
// into an Application of concrete Rule values.
func decodeApplication(raw interface{}) (Policy, error) {
	if raw == nil {
		return Application{}, nil
	}
	items, ok := raw.([]interface{})
	if !ok {
		return nil, fmt.Errorf("policy: expected array for Routing.Application, got %T", raw)
	}
	out := make(Application, 0, len(items))
	for _, item := range items {
		rule, ok := item.(Rule)
		if !ok {
			return nil, fmt.Errorf("policy: expected Rule in Routing.Application, got %T", item)
		}
		out = append(out, rule)
	}
	return out, nil
}
