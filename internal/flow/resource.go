// Package flow implements the durable, filesystem-backed directory of
// endpoints, flows, and policy records described by spec.md §4.4: a
// hierarchy rooted at a file:// URL,
//
//	<root>/<namespace>/<user>/<service>/<application>/
//	<root>/<namespace>/<user>/<service>/<application>/flow_XXXX/
//	<root>/<namespace>/<user>/<service>/<application>/flow_XXXX/<policy>.json
//
// Readers always re-scan the directory tree; there is no trusted
// in-memory index, since the registry is shared across processes on the
// same host (spec.md §5).
package flow

import (
	"fmt"
	"net/url"
	"os"
	"os/user"
	"path/filepath"

	"github.com/tundish/turbo-ipc/internal/log"
)

// Resource identifies an endpoint's registry entry, optionally narrowed to
// a specific flow and policy file. It doubles as the Token used to mint
// and address an endpoint (spec.md §3): the first four fields are the
// canonical Address, Root anchors the filesystem, and Flow/Policy/Suffix
// are transient fields populated once a flow or policy file is in view.
type Resource struct {
	Root        string
	Namespace   string
	User        string
	Service     string
	Application string
	Flow        string
	Policy      string
	Suffix      string
}

// ErrUnsupportedScheme is returned by NewToken when connect's scheme is
// not "file".
type ErrUnsupportedScheme struct {
	Scheme string
}

func (e *ErrUnsupportedScheme) Error() string {
	return fmt.Sprintf("flow: unsupported connect scheme %q (only file:// is available)", e.Scheme)
}

// NewToken mints a token for application within service, rooted at the
// file:// URL connect. The endpoint's registry directory is created if it
// does not already exist (spec.md §3 invariant: "created on first token
// minting"). Namespace defaults to "turberfield" and User to the current
// OS user, matching turberfield.ipc.fsdb.token.
func NewToken(connect, service, application string) (Resource, error) {
	bits, err := url.Parse(connect)
	if err != nil {
		return Resource{}, err
	}
	if bits.Scheme != "file" {
		log.WithComponent("flow").Warn().
			Str("scheme", bits.Scheme).
			Msg("only a file-based registry is available")
		return Resource{}, &ErrUnsupportedScheme{Scheme: bits.Scheme}
	}

	u, err := user.Current()
	username := "unknown"
	if err == nil {
		username = u.Username
	}

	tok := Resource{
		Root:        bits.Path,
		Namespace:   "turberfield",
		User:        username,
		Service:     service,
		Application: application,
	}

	if err := os.MkdirAll(endpointDir(tok), 0o755); err != nil {
		return Resource{}, err
	}
	return tok, nil
}

// endpointDir is the directory that roots one endpoint's registry entry.
func endpointDir(r Resource) string {
	return filepath.Join(r.Root, r.Namespace, r.User, r.Service, r.Application)
}

// flowDir is the directory of one flow under its endpoint.
func flowDir(r Resource) string {
	return filepath.Join(endpointDir(r), r.Flow)
}

// policyPath is the file holding one policy record within a flow.
func policyPath(r Resource) string {
	suffix := r.Suffix
	if suffix == "" {
		suffix = ".json"
	}
	return filepath.Join(flowDir(r), r.Policy+suffix)
}

// scopeDir is the (namespace, user, service) directory under which every
// application for one service lives — the scope a pooled-policy search
// widens to when gathering existing live values (spec.md §4.4's "find
// (..., application='*', ...)").
func scopeDir(r Resource) string {
	return filepath.Join(r.Root, r.Namespace, r.User, r.Service)
}
