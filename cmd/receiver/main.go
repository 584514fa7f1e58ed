// Command receiver echoes back every parcel it is delivered, grounded
// on demo/receiver.py's EchoServerProtocol.
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
	"github.com/tundish/turbo-ipc/internal/message"
	"github.com/tundish/turbo-ipc/node"
)

// demoService is shared by every demo binary so that Find's
// (namespace, user, service) scope search can see across them;
// application is what actually distinguishes sender from receiver.
const demoService = "turbo-ipc.demo"
const appName = "receiver"

var (
	connect string
	logJSON bool
)

var rootCmd = &cobra.Command{
	Use:   "receiver",
	Short: "Echoes every parcel it receives back to its sender",
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

	go func() { _ = n.Run(ctx) }()

	log.WithComponent("receiver").Info().Msg("starting UDP server")
	for {
		select {
		case <-ctx.Done():
			return nil
		case in, ok := <-n.Up():
			if !ok {
				return nil
			}
			log.WithComponent("receiver").Info().
				Str("src", in.Header.Src.Application).Msg("received parcel")
			reply := message.Reply(in.Header, in.Payload)
			if err := n.Send(ctx, reply); err != nil {
				log.WithComponent("receiver").Warn().Err(err).Msg("failed to echo reply")
			}
		}
	}
}
