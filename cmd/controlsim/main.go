package main

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"projekt/control/cmd/base"
)

var (
	socket        string
	eventInterval time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "controlsim",
	Short: "Simulate the daemon side of the control interface on a unix socket",
	Long: `Simulate the daemon side of the control interface on a unix socket

Usage
	controlsim --socket control.sock
	controlctl --socket control.sock watch

`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		env, err := base.Setup(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		if err := os.Remove(socket); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		l, err := net.Listen("unix", socket)
		if err != nil {
			return err
		}
		defer os.Remove(socket)

		env.Log.Info("Listening",
			zap.String("socket", socket),
			zap.String("protocolVersion", env.Config.ProtocolVersion),
			zap.Duration("eventInterval", eventInterval))

		daemon := &Daemon{
			Version:       env.Config.ProtocolVersion,
			EventInterval: eventInterval,
			Log:           env.Log.Named("daemon"),
		}
		err = daemon.Serve(ctx, l)
		env.Log.Info("Exiting")
		return err
	},
}

func init() {
	flags := rootCmd.Flags()
	flags.StringVar(&socket, "socket", base.DefaultSocket, "path of the unix socket to listen on")
	flags.DurationVar(&eventInterval, "event-interval", 2*time.Second, "interval of heartbeat events, 0 disables them")
}

func main() {
	ctx, stop := base.SignalContext()
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
