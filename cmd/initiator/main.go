// Command initiator launches and supervises a pool of worker processes,
// grounded on demo/initiator.py and demo/processor.py.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/tundish/turbo-ipc/internal/log"
	"github.com/tundish/turbo-ipc/proactor"
)

var (
	module       string
	childPortMin int
	childPortMax int
	parentAddr   string
	parentPort   int
	logJSON      bool
)

var rootCmd = &cobra.Command{
	Use:   "initiator",
	Short: "Launches and supervises worker processes",
	RunE:  run,
}

func init() {
	rootCmd.Flags().StringVar(&module, "module", "", "worker module to launch (required)")
	rootCmd.Flags().IntVar(&childPortMin, "child-port-min", 60000, "lowest port assignable to a worker")
	rootCmd.Flags().IntVar(&childPortMax, "child-port-max", 60099, "highest port assignable to a worker")
	rootCmd.Flags().StringVar(&parentAddr, "parent-addr", "127.0.0.1", "this initiator's own address")
	rootCmd.Flags().IntVar(&parentPort, "parent-port", 8081, "this initiator's own management port")
	rootCmd.Flags().BoolVar(&logJSON, "log-json", false, "emit structured JSON logs")
	_ = rootCmd.MarkFlagRequired("module")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	log.Init(log.Config{JSONOutput: logJSON})

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	supervisor := proactor.NewInitiator(proactor.Options{
		Interpreter:  os.Args[0],
		ChildPortMin: childPortMin,
		ChildPortMax: childPortMax,
		ParentAddr:   parentAddr,
		ParentPort:   parentPort,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return supervisor.Run(gctx) })

	guid, err := supervisor.Launch(gctx, g, module, "")
	if err != nil {
		return err
	}
	log.WithComponent("initiator").Info().Str("guid", guid).Msg("launched worker")

	return g.Wait()
}
