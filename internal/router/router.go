// Package router implements the hop-by-hop forwarding decision described
// by spec.md §4.6: given a local token, an in-flight message, and the
// policy name of the relevant transport, decide the next transmission
// point and the rewritten message. It is a pure function modulo a
// read-only peek at the Flow registry.
package router

import (
	"github.com/tundish/turbo-ipc/internal/flow"
	"github.com/tundish/turbo-ipc/internal/log"
	"github.com/tundish/turbo-ipc/internal/message"
	"github.com/tundish/turbo-ipc/internal/policy"
	"github.com/tundish/turbo-ipc/internal/types"
)

// Hop decides the next hop for msg. It returns:
//
//   - (nil, nil): the message has expired (Hop >= HMax before this hop).
//   - (nil, msg'): either local delivery (msg'.Header.Dst is this node's
//     address; the caller should surface msg' upward) or no route was
//     found (a warning is logged; msg'.Header.Dst is another endpoint).
//   - (poa, msg'): forward msg' to poa.
//
// Per spec.md §9(a), the destination check happens *after* the hop
// increment, so any delivered message has Hop >= 1.
func Hop(token flow.Resource, msg message.Message, policyName string) (*policy.UDP, *message.Message, error) {
	here := types.Address{
		Namespace: token.Namespace, User: token.User,
		Service: token.Service, Application: token.Application,
	}

	if msg.Header.Hop >= msg.Header.HMax {
		log.WithComponent("router").Warn().
			Int("hop", msg.Header.Hop).Int("hMax", msg.Header.HMax).
			Msg("message expired")
		return nil, nil, nil
	}

	// A sender may pre-populate Via on a fresh message (Hop == 0) to
	// source-route its first hop to a specific application rather than
	// the final destination. After any hop Via names the previous
	// forwarder, so it is not treated as an override; either way it is
	// overwritten with this node's own address.
	lookupApplication := msg.Header.Dst.Application
	if msg.Header.Via != nil && msg.Header.Hop == 0 {
		lookupApplication = msg.Header.Via.Application
	}

	next := msg
	next.Header.Hop++
	next.Header.Via = &here

	if next.Header.Dst == here {
		return nil, &next, nil
	}

	ref, err := firstMatch(token, lookupApplication, policyName)
	if err != nil {
		return nil, nil, err
	}
	if ref != nil {
		poa, err := inspectUDP(*ref)
		if err != nil {
			return nil, nil, err
		}
		if poa != nil {
			return poa, &next, nil
		}
	}

	if poa := RouteViaTable(token, lookupApplication, policyName); poa != nil {
		return poa, &next, nil
	}

	log.WithComponent("router").Warn().
		Str("dst", next.Header.Dst.Application).
		Msg("no route found")
	return nil, &next, nil
}

func firstMatch(token flow.Resource, application, policyName string) (*flow.Resource, error) {
	refs, err := flow.Find(token, application, policyName)
	if err != nil {
		return nil, err
	}
	if len(refs) == 0 {
		return nil, nil
	}
	return &refs[0], nil
}

func inspectUDP(ref flow.Resource) (*policy.UDP, error) {
	v, err := flow.Inspect(ref)
	if err != nil || v == nil {
		return nil, err
	}
	udp, ok := v.(policy.UDP)
	if !ok {
		return nil, nil
	}
	return &udp, nil
}

// RouteViaTable consults any Routing.Application policy found in the
// endpoint's own flows for a rule whose destination application matches,
// and resolves the rule's Via address to a POA under the same policy
// name. This wires the extension point spec.md §4.6 step 6 describes
// (delivery.py's commented-out routing-table search), rather than always
// falling back to "no route" as the baseline allows.
func RouteViaTable(token flow.Resource, application, policyName string) *policy.UDP {
	refs, err := flow.Find(token, token.Application, "application")
	if err != nil {
		return nil
	}
	for _, ref := range refs {
		v, err := flow.Inspect(ref)
		if err != nil || v == nil {
			continue
		}
		table, ok := v.(policy.Application)
		if !ok {
			continue
		}
		for _, rule := range table {
			if rule.Dst.Application != application {
				continue
			}
			viaRef, err := firstMatch(token, rule.Via.Application, policyName)
			if err != nil || viaRef == nil {
				continue
			}
			poa, err := inspectUDP(*viaRef)
			if err == nil && poa != nil {
				return poa
			}
		}
	}
	return nil
}
