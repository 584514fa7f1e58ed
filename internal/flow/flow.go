package flow

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/tundish/turbo-ipc/internal/log"
	"github.com/tundish/turbo-ipc/internal/policy"
	"github.com/tundish/turbo-ipc/internal/wire"
)

// Request names the policies to instantiate in a new flow, one list per
// catalogue (spec.md §4.4's create(token, {poa: [...], role: [...],
// routing: [...]})).
type Request struct {
	POA     []string
	Role    []string
	Routing []string
}

// flowPrefix matches the Python tempfile.mkdtemp(prefix="flow_") naming.
const flowPrefix = "flow_"

// Create allocates a fresh flow directory beneath token's endpoint (an
// atomic unique-name allocation, via os.MkdirTemp) and writes one policy
// file per requested name. Pooled policies are allocated against the
// existing live values gathered across the whole endpoint scope; an
// unregistered policy name yields a nil *Resource for that slot and a
// logged warning, rather than failing the whole call.
func Create(token Resource, req Request) ([]*Resource, error) {
	if err := os.MkdirAll(endpointDir(token), 0o755); err != nil {
		return nil, err
	}
	dir, err := os.MkdirTemp(endpointDir(token), flowPrefix)
	if err != nil {
		return nil, err
	}
	flowName := filepath.Base(dir)

	var out []*Resource
	for _, name := range req.POA {
		out = append(out, instantiate(token, flowName, policy.POACatalogue, name))
	}
	for _, name := range req.Role {
		out = append(out, instantiate(token, flowName, policy.RoleCatalogue, name))
	}
	for _, name := range req.Routing {
		out = append(out, instantiate(token, flowName, policy.RoutingCatalogue, name))
	}
	return out, nil
}

func instantiate(token Resource, flowName string, cat interface {
	Lookup(string) (policy.Constructor, bool)
}, name string) *Resource {
	ctor, ok := cat.Lookup(name)
	if !ok {
		log.WithComponent("flow").Warn().Str("policy", name).Msg("no policy constructor registered")
		return nil
	}

	var value policy.Policy
	if ctor.Pooled() {
		existing, err := existingValues(token, name, ctor)
		if err != nil {
			log.WithComponent("flow").Warn().Err(err).Str("policy", name).Msg("failed to gather existing policy values")
		}
		value = ctor.Allocate(existing)
	} else {
		value = ctor.New()
	}

	ref := Resource{
		Root: token.Root, Namespace: token.Namespace, User: token.User,
		Service: token.Service, Application: token.Application,
		Flow: flowName, Policy: name, Suffix: ".json",
	}
	if err := writePolicy(ref, value); err != nil {
		log.WithComponent("flow").Warn().Err(err).Str("policy", name).Msg("failed to write policy file")
		return nil
	}
	return &ref
}

func existingValues(token Resource, name string, ctor policy.Constructor) ([]policy.Policy, error) {
	refs, err := Find(token, "*", name)
	if err != nil {
		return nil, err
	}
	out := make([]policy.Policy, 0, len(refs))
	for _, ref := range refs {
		v, err := Inspect(ref)
		if err != nil || v == nil {
			continue
		}
		out = append(out, v)
	}
	return out, nil
}

// Find enumerates policy files matching application and policy under
// token's (namespace, user, service) scope. An empty or "*" application
// widens the search to every application in scope; an empty or "*" policy
// widens to every policy kind. Results are ordered by file modification
// time, most recent first.
func Find(token Resource, application, policyName string) ([]Resource, error) {
	apps, err := applicationDirs(token, application)
	if err != nil {
		return nil, err
	}

	type hit struct {
		ref Resource
		mod int64
	}
	var hits []hit

	for _, appDir := range apps {
		appName := filepath.Base(appDir)
		flows, err := os.ReadDir(appDir)
		if err != nil {
			continue
		}
		for _, fd := range flows {
			if !fd.IsDir() {
				continue
			}
			flowPath := filepath.Join(appDir, fd.Name())
			files, err := os.ReadDir(flowPath)
			if err != nil {
				continue
			}
			for _, f := range files {
				if f.IsDir() {
					continue
				}
				name := f.Name()
				ext := filepath.Ext(name)
				base := name[:len(name)-len(ext)]
				if policyName != "" && policyName != "*" && base != policyName {
					continue
				}
				info, err := f.Info()
				if err != nil {
					continue
				}
				hits = append(hits, hit{
					ref: Resource{
						Root: token.Root, Namespace: token.Namespace, User: token.User,
						Service: token.Service, Application: appName,
						Flow: fd.Name(), Policy: base, Suffix: ext,
					},
					mod: info.ModTime().UnixNano(),
				})
			}
		}
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].mod > hits[j].mod })
	out := make([]Resource, len(hits))
	for i, h := range hits {
		out[i] = h.ref
	}
	return out, nil
}

func applicationDirs(token Resource, application string) ([]string, error) {
	scope := scopeDir(token)
	if application != "" && application != "*" {
		return []string{filepath.Join(scope, application)}, nil
	}
	entries, err := os.ReadDir(scope)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var dirs []string
	for _, e := range entries {
		if e.IsDir() {
			dirs = append(dirs, filepath.Join(scope, e.Name()))
		}
	}
	return dirs, nil
}

// catalogueFor locates the catalogue owning a policy name, trying POA,
// then Role, then Routing, since a Resource only records the bare name.
func catalogueFor(name string) (policy.Constructor, bool) {
	if ctor, ok := policy.POACatalogue.Lookup(name); ok {
		return ctor, true
	}
	if ctor, ok := policy.RoleCatalogue.Lookup(name); ok {
		return ctor, true
	}
	if ctor, ok := policy.RoutingCatalogue.Lookup(name); ok {
		return ctor, true
	}
	return policy.Constructor{}, false
}

// Inspect reads a policy file and decodes it via the Assembly, using the
// constructor registered for resource.Policy. It returns nil for a
// missing file or an unregistered policy name.
func Inspect(resource Resource) (policy.Policy, error) {
	ctor, ok := catalogueFor(resource.Policy)
	if !ok {
		log.WithComponent("flow").Warn().Str("policy", resource.Policy).Msg("no constructor for policy")
		return nil, nil
	}
	data, err := os.ReadFile(policyPath(resource))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	raw, err := wire.Loads(string(data))
	if err != nil {
		return nil, err
	}
	if ctor.Decode != nil {
		return ctor.Decode(raw)
	}
	return raw, nil
}

// Replace overwrites a policy file atomically (write-then-rename) with
// the canonical encoding of value.
func Replace(resource Resource, value policy.Policy) error {
	return writePolicy(resource, value)
}

func writePolicy(resource Resource, value policy.Policy) error {
	encoded, err := wire.Dumps(value)
	if err != nil {
		return err
	}
	final := policyPath(resource)
	tmp, err := os.CreateTemp(filepath.Dir(final), ".tmp-*")
	if err != nil {
		return err
	}
	if _, err := tmp.WriteString(encoded); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), final)
}
