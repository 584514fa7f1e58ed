// Command router runs a bare forwarding node with no application logic
// of its own, grounded on demo/router.py.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tundish/turbo-ipc/internal/flow"
	"github.com/tundish/turbo-ipc/internal/log"
	"github.com/tundish/turbo-ipc/node"
)

// demoService is shared by every demo binary so that Find's
// (namespace, user, service) scope search can see across them;
// application is what actually distinguishes router from sender/receiver.
const demoService = "turbo-ipc.demo"
const appName = "router"

var (
	connect string
	logJSON bool
)

var rootCmd = &cobra.Command{
	Use:   "router",
	Short: "Runs a forwarding-only node",
	RunE:  run,
}

func init() {
	rootCmd.Flags().StringVar(&connect, "connect", "file:///tmp/turbo-ipc", "registry root URL")
	rootCmd.Flags().BoolVar(&logJSON, "log-json", false, "emit structured JSON logs")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	log.Init(log.Config{JSONOutput: logJSON})

	tok, err := flow.NewToken(connect, demoService, appName)
	if err != nil {
		return err
	}

	n, err := node.CreateUDPNode(tok)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	log.WithComponent("router").Info().Msg("starting router node")

	go func() {
		for range n.Up() {
			// Messages addressed to this node itself have nowhere further
			// to go; a bare router has no application logic to hand them
			// to, so they are simply discarded.
		}
	}()

	return n.Run(ctx)
}
