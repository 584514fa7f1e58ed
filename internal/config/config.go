// Package config implements the INI-style configuration contract used
// between an Initiator and the child process it spawns (spec.md §6): one
// section per known guid, with keys listen_addr, listen_port,
// child_port_min, child_port_max, parent_addr, parent_port, token,
// host_scheme, host_addr, host_port.
//
// No third-party INI library appears anywhere in the retrieved corpus,
// so this is a deliberately small hand-rolled reader/writer rather than
// an adopted dependency — see DESIGN.md.
package config

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
)

// Section mirrors one guid's worth of settings, the Go shape of the key
// set turberfield.utils.misc.config_parser populates per section.
type Section struct {
	ListenAddr   string
	ListenPort   int
	ChildPortMin int
	ChildPortMax int
	ParentAddr   string
	ParentPort   int
	Token        string
	HostScheme   string
	HostAddr     string
	HostPort     int
}

// keys lists the Section fields in the order they should be written,
// matching spec.md §6's key list.
var keys = []string{
	"listen_addr", "listen_port", "child_port_min", "child_port_max",
	"parent_addr", "parent_port", "token", "host_scheme", "host_addr", "host_port",
}

func (s Section) values() map[string]string {
	return map[string]string{
		"listen_addr":    s.ListenAddr,
		"listen_port":    strconv.Itoa(s.ListenPort),
		"child_port_min": strconv.Itoa(s.ChildPortMin),
		"child_port_max": strconv.Itoa(s.ChildPortMax),
		"parent_addr":    s.ParentAddr,
		"parent_port":    strconv.Itoa(s.ParentPort),
		"token":          s.Token,
		"host_scheme":    s.HostScheme,
		"host_addr":      s.HostAddr,
		"host_port":      strconv.Itoa(s.HostPort),
	}
}

func sectionFromValues(v map[string]string) Section {
	atoi := func(key string) int {
		n, _ := strconv.Atoi(v[key])
		return n
	}
	return Section{
		ListenAddr:   v["listen_addr"],
		ListenPort:   atoi("listen_port"),
		ChildPortMin: atoi("child_port_min"),
		ChildPortMax: atoi("child_port_max"),
		ParentAddr:   v["parent_addr"],
		ParentPort:   atoi("parent_port"),
		Token:        v["token"],
		HostScheme:   v["host_scheme"],
		HostAddr:     v["host_addr"],
		HostPort:     atoi("host_port"),
	}
}

// File holds one or more guid-named sections, preserving insertion order
// on write (configparser's OrderedDict behaviour in the original).
type File struct {
	order    []string
	sections map[string]Section
}

// New returns an empty configuration file.
func New() *File {
	return &File{sections: make(map[string]Section)}
}

// Set installs or replaces the section for guid.
func (f *File) Set(guid string, s Section) {
	if _, exists := f.sections[guid]; !exists {
		f.order = append(f.order, guid)
	}
	f.sections[guid] = s
}

// Get returns the section for guid, if present.
func (f *File) Get(guid string) (Section, bool) {
	s, ok := f.sections[guid]
	return s, ok
}

// Remove deletes guid's section, used when a child's record is discarded
// after an early exit (spec.md §7's ChildEarlyExit retry policy).
func (f *File) Remove(guid string) {
	delete(f.sections, guid)
	for i, g := range f.order {
		if g == guid {
			f.order = append(f.order[:i], f.order[i+1:]...)
			break
		}
	}
}

// Clone copies the section at fromGUID to toGUID, applying overrides
// afterwards, then installs the result. It is the Go counterpart of
// turberfield.utils.misc.clone_config_section: a worker's section
// starts as a copy of its launching parent's, with its own listen_port.
func (f *File) Clone(fromGUID, toGUID string, overrides func(*Section)) Section {
	base, _ := f.Get(fromGUID)
	if overrides != nil {
		overrides(&base)
	}
	f.Set(toGUID, base)
	return base
}

// Reference builds a back-pointer section: toGUID's ParentAddr/ParentPort
// point at fromGUID's ListenAddr/ListenPort, the Go counterpart of
// turberfield.utils.misc.reference_config_section.
func (f *File) Reference(fromGUID, toGUID string) Section {
	parent, _ := f.Get(fromGUID)
	child, _ := f.Get(toGUID)
	child.ParentAddr = parent.ListenAddr
	child.ParentPort = parent.ListenPort
	f.Set(toGUID, child)
	return child
}

// WriteTo serializes f as INI text, one [guid] section per entry in
// insertion order, keys in the fixed order spec.md §6 lists.
func (f *File) WriteTo(w io.Writer) (int64, error) {
	var n int
	guids := f.order
	if len(guids) == 0 {
		guids = sortedKeys(f.sections)
	}
	for _, guid := range guids {
		s, ok := f.sections[guid]
		if !ok {
			continue
		}
		wrote, err := fmt.Fprintf(w, "[%s]\n", guid)
		n += wrote
		if err != nil {
			return int64(n), err
		}
		values := s.values()
		for _, key := range keys {
			wrote, err := fmt.Fprintf(w, "%s = %s\n", key, values[key])
			n += wrote
			if err != nil {
				return int64(n), err
			}
		}
		wrote, err = fmt.Fprintln(w)
		n += wrote
		if err != nil {
			return int64(n), err
		}
	}
	return int64(n), nil
}

func sortedKeys(m map[string]Section) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// ReadFrom parses INI text in the same shape WriteTo produces.
func ReadFrom(r io.Reader) (*File, error) {
	f := New()
	scanner := bufio.NewScanner(r)
	var guid string
	var values map[string]string

	flush := func() {
		if guid != "" {
			f.Set(guid, sectionFromValues(values))
		}
	}

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, ";") {
			continue
		}
		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			flush()
			guid = strings.TrimSuffix(strings.TrimPrefix(line, "["), "]")
			values = make(map[string]string)
			continue
		}
		key, value, found := strings.Cut(line, "=")
		if !found {
			continue
		}
		if values != nil {
			values[strings.TrimSpace(key)] = strings.TrimSpace(value)
		}
	}
	flush()
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return f, nil
}
