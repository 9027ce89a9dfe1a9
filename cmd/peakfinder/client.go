package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/signalsfoundry/peakfinder/internal/api"
	"github.com/signalsfoundry/peakfinder/internal/config"
	"github.com/signalsfoundry/peakfinder/internal/rpc"
	"github.com/signalsfoundry/peakfinder/model"
)

// clientFlags are shared by the subcommands that talk to a running server.
type clientFlags struct {
	addr    string
	timeout time.Duration
}

func (f *clientFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.addr, "addr", config.Default().Listen, "goal API address")
	cmd.Flags().DurationVar(&f.timeout, "timeout", 5*time.Second, "per-call timeout")
}

// withClient dials the goal API and hands a client to fn.
func (f *clientFlags) withClient(ctx context.Context, fn func(context.Context, *rpc.PeakFinderClient) error) error {
	opts := append(api.DialOptions(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	cc, err := grpc.NewClient(f.addr, opts...)
	if err != nil {
		return fmt.Errorf("dial %s: %w", f.addr, err)
	}
	defer cc.Close()
	return fn(ctx, rpc.NewPeakFinderClient(cc))
}

func (f *clientFlags) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if f.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, f.timeout)
}

func newParkCommand() *cobra.Command {
	var (
		flags clientFlags
		wait  bool
		every time.Duration
	)
	cmd := &cobra.Command{
		Use:   "park",
		Short: "Submit a ParkAtPeak goal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return flags.withClient(cmd.Context(), func(ctx context.Context, c *rpc.PeakFinderClient) error {
				callCtx, cancel := flags.callContext(ctx)
				resp, err := c.ParkAtPeak(callCtx)
				cancel()
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "accepted goal %s\n", resp.GoalID)
				if !wait {
					return nil
				}
				st, err := waitForGoal(ctx, c, &flags, resp.GoalID, every, cmd.OutOrStdout())
				if err != nil {
					return err
				}
				printStatus(cmd.OutOrStdout(), st)
				return nil
			})
		},
	}
	flags.register(cmd)
	cmd.Flags().BoolVar(&wait, "wait", false, "follow the goal until it finishes")
	cmd.Flags().DurationVar(&every, "interval", 500*time.Millisecond, "status polling interval with --wait")
	return cmd
}

// waitForGoal polls until the goal is terminal, printing each new iteration.
func waitForGoal(ctx context.Context, c *rpc.PeakFinderClient, flags *clientFlags, id string, every time.Duration, w io.Writer) (*rpc.GoalStatus, error) {
	if every <= 0 {
		every = 500 * time.Millisecond
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	seen := -1
	for {
		callCtx, cancel := flags.callContext(ctx)
		st, err := c.GetGoal(callCtx, id)
		cancel()
		if err != nil {
			return nil, err
		}
		if state, ok := model.ParseGoalState(st.State); ok && state.IsTerminal() {
			return st, nil
		}
		if st.Iterations != seen {
			seen = st.Iterations
			fmt.Fprintf(w, "  %s iteration=%d position=<%.4f, %.4f> elevation=%.4f\n",
				st.State, st.Iterations, st.X, st.Y, st.Elevation)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func newCancelCommand() *cobra.Command {
	var flags clientFlags
	cmd := &cobra.Command{
		Use:   "cancel GOAL_ID",
		Short: "Request cancellation of a goal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return flags.withClient(cmd.Context(), func(ctx context.Context, c *rpc.PeakFinderClient) error {
				ctx, cancel := flags.callContext(ctx)
				defer cancel()
				st, err := c.CancelGoal(ctx, args[0])
				if err != nil {
					return err
				}
				printStatus(cmd.OutOrStdout(), st)
				return nil
			})
		},
	}
	flags.register(cmd)
	return cmd
}

func newStatusCommand() *cobra.Command {
	var flags clientFlags
	cmd := &cobra.Command{
		Use:   "status GOAL_ID",
		Short: "Show one goal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return flags.withClient(cmd.Context(), func(ctx context.Context, c *rpc.PeakFinderClient) error {
				ctx, cancel := flags.callContext(ctx)
				defer cancel()
				st, err := c.GetGoal(ctx, args[0])
				if err != nil {
					return err
				}
				printStatus(cmd.OutOrStdout(), st)
				return nil
			})
		},
	}
	flags.register(cmd)
	return cmd
}

func newListCommand() *cobra.Command {
	var flags clientFlags
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List retained goals, oldest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return flags.withClient(cmd.Context(), func(ctx context.Context, c *rpc.PeakFinderClient) error {
				ctx, cancel := flags.callContext(ctx)
				defer cancel()
				resp, err := c.ListGoals(ctx)
				if err != nil {
					return err
				}
				for i := range resp.Goals {
					printStatus(cmd.OutOrStdout(), &resp.Goals[i])
				}
				return nil
			})
		},
	}
	flags.register(cmd)
	return cmd
}

func printStatus(w io.Writer, st *rpc.GoalStatus) {
	fmt.Fprintf(w, "%s %s iterations=%d position=<%.4f, %.4f> elevation=%.4f",
		st.GoalID, st.State, st.Iterations, st.X, st.Y, st.Elevation)
	if st.CancelRequested {
		fmt.Fprint(w, " cancel_requested=true")
	}
	if st.Reason != "" {
		fmt.Fprintf(w, " reason=%q", st.Reason)
	}
	fmt.Fprintln(w)
}
