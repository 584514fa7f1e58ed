// Package types holds the small set of record types shared across every
// layer of the fabric: the four-level Address that names an endpoint.
package types

import "github.com/tundish/turbo-ipc/internal/wire"

// Address is a semantically hierarchical address for distributed
// networking.
//
//   - Namespace delimits a trust domain.
//   - User names a principal.
//   - Service names a currently operating instantiation of the network.
//   - Application names the endpoint function.
type Address struct {
	Namespace   string
	User        string
	Service     string
	Application string
}

func init() {
	wire.Register(Address{})
}
