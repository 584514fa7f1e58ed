// Command sender demonstrates originating a parcel from a fresh
// endpoint, grounded on demo/sender.py's EchoClientProtocol.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/tundish/turbo-ipc/internal/flow"
	"github.com/tundish/turbo-ipc/internal/log"
	"github.com/tundish/turbo-ipc/internal/message"
	"github.com/tundish/turbo-ipc/internal/types"
	"github.com/tundish/turbo-ipc/node"
)

// demoService is shared by every demo binary so that Find's
// (namespace, user, service) scope search can see across them;
// application is what actually distinguishes sender from receiver.
const demoService = "turbo-ipc.demo"
const appName = "sender"

var (
	connect string
	dst     string
	text    string
	logJSON bool
)

var rootCmd = &cobra.Command{
	Use:   "sender",
	Short: "Sends a single text parcel to another endpoint",
	RunE:  run,
}

func init() {
	rootCmd.Flags().StringVar(&connect, "connect", "file:///tmp/turbo-ipc", "registry root URL")
	rootCmd.Flags().StringVar(&dst, "dst", "receiver", "destination application name")
	rootCmd.Flags().StringVar(&text, "text", "Hello World!", "payload text")
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

	go func() { _ = n.Run(ctx) }()

	src := types.Address{
		Namespace: tok.Namespace, User: tok.User, Service: tok.Service, Application: tok.Application,
	}
	msg := message.Parcel(src, []interface{}{text}, message.WithDst(types.Address{
		Namespace: tok.Namespace, User: tok.User, Service: tok.Service, Application: dst,
	}))

	log.WithComponent("sender").Info().Str("text", text).Msg("sending parcel")
	if err := n.Send(ctx, msg); err != nil {
		return err
	}

	select {
	case reply := <-n.Up():
		log.WithComponent("sender").Info().Str("id", reply.Header.ID).Msg("received reply")
	case <-time.After(5 * time.Second):
		log.WithComponent("sender").Warn().Msg("no reply within timeout")
	case <-ctx.Done():
	}
	return nil
}
