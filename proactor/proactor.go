// Package proactor implements process supervision for child workers
// (spec.md §4.8): spawning a worker, allocating it a port from a fixed
// pool, propagating its configuration over stdin, and retrying once on
// an early exit. Ported from proactor.py's Initiator, restructured per
// spec.md §9's "structured tasks" guidance: the job runner is an
// errgroup-supervised goroutine reading a buffered channel of guids,
// replacing the asyncio task_runner coroutine.
package proactor

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/tundish/turbo-ipc/internal/config"
	"github.com/tundish/turbo-ipc/internal/log"
)

// configTimeout bounds how long a freshly spawned child is given to
// either exit (failure) or still be running (treated as success,
// matching proactor.py's CONFIG_TIMEOUT_SEC window).
const configTimeout = 3 * time.Second

// waitGrace is added to configTimeout before the supervising goroutine
// gives up waiting on the child process, mirroring the "+2" in the
// original's asyncio.wait_for call.
const waitGrace = 2 * time.Second

// Worker records the outcome of one launch.
type Worker struct {
	GUID   string
	Port   int
	Module string
}

// ErrNoPort is returned when every port in the configured range is
// already assigned to a live worker.
type ErrNoPort struct {
	Min, Max int
}

func (e *ErrNoPort) Error() string {
	return fmt.Sprintf("proactor: no free port in [%d, %d]", e.Min, e.Max)
}

// ErrChildEarlyExit is returned by launch's retry path when a respawned
// child also exits before the configuration window elapses.
type ErrChildEarlyExit struct {
	GUID string
}

func (e *ErrChildEarlyExit) Error() string {
	return fmt.Sprintf("proactor: child %s exited before serving", e.GUID)
}

// Options configures an Initiator.
type Options struct {
	// Interpreter is the executable used to launch a worker module, e.g.
	// os.Args[0] for a self-re-exec, matching sys.executable's role in
	// the original.
	Interpreter string
	// ChildPortMin/ChildPortMax bound the port pool workers are assigned
	// from.
	ChildPortMin int
	ChildPortMax int
	// ParentAddr/ParentPort are written into every child's config
	// section as its back-reference to this Initiator.
	ParentAddr string
	ParentPort int
}

// Initiator launches and supervises worker processes.
type Initiator struct {
	opts  Options
	cfg   *config.File
	queue chan string

	mu   sync.Mutex
	busy map[int]bool
	jobs map[string]Worker
}

// NewInitiator constructs an Initiator ready to have Run called on it.
func NewInitiator(opts Options) *Initiator {
	return &Initiator{
		opts:  opts,
		cfg:   config.New(),
		queue: make(chan string, 32),
		busy:  make(map[int]bool),
		jobs:  make(map[string]Worker),
	}
}

// Run drives the task runner until ctx is cancelled, logging each
// completed launch as the original's task_runner coroutine does.
func (i *Initiator) Run(ctx context.Context) error {
	log.WithComponent("proactor").Info().Msg("running tasks")
	for {
		select {
		case <-ctx.Done():
			return nil
		case guid := <-i.queue:
			if w, ok := i.Job(guid); ok {
				log.WithComponent("proactor").Info().
					Str("guid", guid).Int("port", w.Port).Msg("job complete")
			}
		}
	}
}

// Job returns the recorded outcome for guid, if any.
func (i *Initiator) Job(guid string) (Worker, bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	w, ok := i.jobs[guid]
	return w, ok
}

// Launch spawns module as a child process, assigning it a guid (minted
// if empty) and a port from the configured pool. It implements spec.md
// §7's retry policy: a child that exits within the configuration window
// (ChildEarlyExit) is retried exactly once, with its prior config
// section removed first; a child still running at the window's end
// (ChildTimeout) is treated as a success.
func (i *Initiator) Launch(ctx context.Context, g *errgroup.Group, module, guid string) (string, error) {
	if guid == "" {
		guid = uuid.NewString()
	}
	w, err := i.attempt(ctx, module, guid)
	if _, ok := err.(*ErrChildEarlyExit); ok {
		i.cfg.Remove(guid)
		w, err = i.attempt(ctx, module, guid)
	}
	if err != nil {
		i.mu.Lock()
		delete(i.jobs, guid)
		i.mu.Unlock()
		return guid, err
	}

	i.mu.Lock()
	i.jobs[guid] = w
	i.mu.Unlock()

	if g != nil {
		g.Go(func() error {
			select {
			case i.queue <- guid:
			case <-ctx.Done():
			}
			return nil
		})
	}
	return guid, nil
}

func (i *Initiator) attempt(ctx context.Context, module, guid string) (Worker, error) {
	port, err := i.allocatePort()
	if err != nil {
		return Worker{}, err
	}

	section := config.Section{
		ListenAddr:   "127.0.0.1",
		ListenPort:   port,
		ChildPortMin: i.opts.ChildPortMin,
		ChildPortMax: i.opts.ChildPortMax,
		ParentAddr:   i.opts.ParentAddr,
		ParentPort:   i.opts.ParentPort,
		Token:        guid,
	}
	i.cfg.Set(guid, section)

	args := []string{
		"-m", module,
		"--guid", guid,
		"--port", fmt.Sprintf("%d", port),
	}
	cmd := exec.CommandContext(ctx, i.opts.Interpreter, args...)

	var stdin bytes.Buffer
	if _, err := i.cfg.WriteTo(&stdin); err != nil {
		i.releasePort(port)
		return Worker{}, err
	}
	cmd.Stdin = &stdin

	if err := cmd.Start(); err != nil {
		i.releasePort(port)
		return Worker{}, err
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	select {
	case <-time.After(configTimeout + waitGrace):
		return Worker{GUID: guid, Port: port, Module: module}, nil
	case err := <-done:
		i.releasePort(port)
		if err == nil {
			return Worker{}, &ErrChildEarlyExit{GUID: guid}
		}
		return Worker{}, &ErrChildEarlyExit{GUID: guid}
	case <-ctx.Done():
		i.releasePort(port)
		return Worker{}, ctx.Err()
	}
}

func (i *Initiator) allocatePort() (int, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	for p := i.opts.ChildPortMin; p <= i.opts.ChildPortMax; p++ {
		if !i.busy[p] {
			i.busy[p] = true
			return p, nil
		}
	}
	return 0, &ErrNoPort{Min: i.opts.ChildPortMin, Max: i.opts.ChildPortMax}
}

func (i *Initiator) releasePort(port int) {
	i.mu.Lock()
	defer i.mu.Unlock()
	delete(i.busy, port)
}
