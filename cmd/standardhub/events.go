package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	cfnats "github.com/Strob0t/standardhub/internal/adapter/nats"
	"github.com/Strob0t/standardhub/internal/port/messagequeue"
)

func eventsCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Observe feedback queue events on NATS",
	}

	var subject string
	tail := &cobra.Command{
		Use:   "tail",
		Short: "Print new feedback events until interrupted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !c.cfg.NATS.Enabled {
				return errors.New("events require nats.enabled")
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			q, err := cfnats.Connect(ctx, c.cfg.NATS.URL)
			if err != nil {
				return err
			}
			defer func() { _ = q.Close() }()

			out := cmd.OutOrStdout()
			cancel, err := q.Subscribe(ctx, subject, func(_ context.Context, subj string, data []byte) error {
				_, err := fmt.Fprintf(out, "%s %s\n", subj, data)
				return err
			})
			if err != nil {
				return err
			}
			defer cancel()

			<-ctx.Done()
			return nil
		},
	}
	tail.Flags().StringVar(&subject, "subject", messagequeue.SubjectFeedbackAll, "Subject filter")
	cmd.AddCommand(tail)
	return cmd
}
