package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/anypb"

	"projekt/control/cmd/base"
	"projekt/control/lib/message"
	"projekt/control/lib/session"
)

var (
	// Unix socket of a controlsim instance, the FIFOs are used if empty
	socket string

	// Identifier of the next request, generated if empty
	requestID string

	masks    []string
	workload Workload
)

var rootCmd = &cobra.Command{
	Use:           "controlctl",
	Short:         "Talk to the daemon through the control interface",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var helloCmd = &cobra.Command{
	Use:   "hello",
	Short: "Perform the handshake and report the result",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd.Context(), func(ctx context.Context, env *base.Env, s *session.Session) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "connected, protocol version %v\n", env.Config.ProtocolVersion)
			return err
		})
	},
}

var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Request the complete state, optionally filtered by field masks",
	Long: `Request the complete state, optionally filtered by field masks

Usage
	controlctl state --mask desired_state.workloads.dynamic_nginx

`,
	RunE: func(cmd *cobra.Command, args []string) error {
		payload, err := CompleteStateRequest(masks)
		if err != nil {
			return err
		}
		return request(cmd, payload)
	},
}

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Add or replace a workload in the desired state",
	RunE: func(cmd *cobra.Command, args []string) error {
		payload, err := UpdateStateRequest(workload)
		if err != nil {
			return err
		}
		return request(cmd, payload)
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print the events pushed by the daemon until the session ends",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd.Context(), func(ctx context.Context, env *base.Env, s *session.Session) error {
			sub := s.Subscribe()
			defer sub.Close()
			out := cmd.OutOrStdout()
			for {
				select {
				case event, ok := <-sub.Events():
					if !ok {
						return s.Err()
					}
					if err := printPayload(out, event.Name, event.Payload); err != nil {
						return err
					}
				case <-ctx.Done():
					return nil
				}
			}
		})
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&socket, "socket", "", "unix socket of a controlsim instance instead of the control interface FIFOs")
	rootCmd.PersistentFlags().StringVar(&requestID, "id", "", "request identifier, generated if empty")

	stateCmd.Flags().StringSliceVar(&masks, "mask", nil, "field mask, may be given more than once")

	flags := applyCmd.Flags()
	flags.StringVar(&workload.Name, "workload", "", "workload name")
	flags.StringVar(&workload.Runtime, "runtime", "podman", "runtime of the workload")
	flags.StringVar(&workload.Agent, "agent", "", "agent the workload is scheduled on")
	flags.StringVar(&workload.RestartPolicy, "restart-policy", "", "never, on_failure or always")
	flags.StringVar(&workload.RuntimeConfig, "config", "", "runtime configuration of the workload")
	_ = applyCmd.MarkFlagRequired("workload")
	_ = applyCmd.MarkFlagRequired("agent")

	rootCmd.AddCommand(helloCmd, stateCmd, applyCmd, watchCmd)
}

func withSession(ctx context.Context, run func(context.Context, *base.Env, *session.Session) error) error {
	env, err := base.Setup(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := env.Close(); err != nil {
			env.Log.Error("Failed to stop metrics endpoint", zap.Error(err))
		}
	}()

	s, err := env.Connect(ctx, socket)
	if err != nil {
		return err
	}
	defer base.Shutdown(s, env.Log)
	return run(ctx, env, s)
}

func request(cmd *cobra.Command, payload *anypb.Any) error {
	return withSession(cmd.Context(), func(ctx context.Context, env *base.Env, s *session.Session) error {
		ctx, cancel := context.WithTimeout(ctx, base.RequestTimeout)
		defer cancel()
		response, err := s.Request(ctx, message.Request{ID: requestID, Payload: payload})
		if err != nil {
			return err
		}
		switch outcome := response.Outcome.(type) {
		case message.Success:
			return printPayload(cmd.OutOrStdout(), response.ID, outcome.Payload)
		case message.Failure:
			return &session.RequestFailedError{ID: response.ID, Message: outcome.Message}
		}
		return message.ErrNoOutcome
	})
}

func printPayload(w io.Writer, label string, payload *anypb.Any) error {
	if payload == nil {
		_, err := fmt.Fprintf(w, "%v: <empty>\n", label)
		return err
	}
	data, err := protojson.MarshalOptions{Multiline: true}.Marshal(payload)
	if err != nil {
		// the payload type is not linked into this binary
		_, err = fmt.Fprintf(w, "%v: %v (%d bytes)\n", label, payload.GetTypeUrl(), len(payload.GetValue()))
		return err
	}
	_, err = fmt.Fprintf(w, "%v: %s\n", label, data)
	return err
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
