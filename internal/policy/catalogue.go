// Package policy implements the three named-extension registries — POA
// (point of attachment), Role, and Routing — each mapping a textual policy
// name to a constructor discovered from a build-time manifest. Constructors
// whose values must avoid colliding with already-live entries of the same
// kind (POA.UDP's port/address pair) implement pooled allocation.
package policy

import (
	"fmt"
)

// Policy is any value that can be serialized through the Assembly (see
// internal/wire) and stored as a flow's policy file.
type Policy interface{}

// Constructor describes one named policy kind.
type Constructor struct {
	Name string
	// New default-constructs a policy value.
	New func() Policy
	// Allocate, when non-nil, marks this constructor as pooled: given the
	// list of currently live values of this kind, it returns a new value
	// whose identity key does not collide with any of them.
	Allocate func(existing []Policy) Policy
	// Key extracts the identity key used for pool-uniqueness checks; it
	// is only meaningful when Allocate is non-nil.
	Key func(Policy) interface{}
	// Decode converts a value freshly parsed off the wire into this
	// policy's concrete Go type. Most policies are registered structs and
	// decode correctly as-is; Decode exists for the one exception,
	// Routing.Application, whose wire form is a bare JSON array with no
	// "_type" discriminator. nil means "use the decoded value unchanged".
	Decode func(interface{}) (Policy, error)
}

// Pooled reports whether c allocates from a collision-avoiding pool.
func (c Constructor) Pooled() bool { return c.Allocate != nil }

// catalogue is a named-extension registry: policy name -> Constructor.
type catalogue map[string]Constructor

func (c catalogue) register(ctor Constructor) {
	c[ctor.Name] = ctor
}

// Lookup finds a constructor by name, reporting ok=false for an
// unregistered name (the UnknownPolicy fault in the error-handling design).
func (c catalogue) Lookup(name string) (Constructor, bool) {
	ctor, ok := c[name]
	return ctor, ok
}

var (
	// POACatalogue holds point-of-attachment policy constructors,
	// advertised through the turberfield.ipc.poa entry point in the
	// Python original; here it's a build-time manifest instead of a
	// runtime entry-point scan.
	POACatalogue = catalogue{}
	// RoleCatalogue holds transport-timing policy constructors.
	RoleCatalogue = catalogue{}
	// RoutingCatalogue holds routing-table policy constructors.
	RoutingCatalogue = catalogue{}
)

func init() {
	POACatalogue.register(Constructor{
		Name:     "udp",
		New:      func() Policy { return NewUDP(DefaultPool) },
		Allocate: func(existing []Policy) Policy { return AllocateUDP(existing, DefaultPool) },
		Key: func(p Policy) interface{} {
			u := p.(UDP)
			return [2]interface{}{u.Addr, u.Port}
		},
	})
	RoleCatalogue.register(Constructor{
		Name: "role.rx",
		New:  func() Policy { return NewRX() },
	})
	RoleCatalogue.register(Constructor{
		Name: "role.tx",
		New:  func() Policy { return NewTX() },
	})
	RoutingCatalogue.register(Constructor{
		Name:   "application",
		New:    func() Policy { return Application{} },
		Decode: decodeApplication,
	})
}

// ErrUnknownPolicy describes a policy name with no registered constructor
// in any catalogue. Nothing in this module returns it: Lookup reports that
// case with ok=false, and flow.Create logs it and yields a nil slot.
type ErrUnknownPolicy struct {
	Name string
}

func (e *ErrUnknownPolicy) Error() string {
	return fmt.Sprintf("policy: no constructor registered for %q", e.Name)
}
