package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/opendistro-for-elasticsearch/index-management-kibana-plugin-sub001/cli/pkg/output"
	"github.com/opendistro-for-elasticsearch/index-management-kibana-plugin-sub001/common/logging"
	"github.com/opendistro-for-elasticsearch/index-management-kibana-plugin-sub001/common/messaging"
	natsclient "github.com/opendistro-for-elasticsearch/index-management-kibana-plugin-sub001/common/messaging/nats"
)

// jobEvent is the payload the service publishes on rollup.* subjects.
type jobEvent struct {
	SessionID   string    `json:"session_id"`
	JobID       string    `json:"job_id"`
	Action      string    `json:"action"`
	SourceIndex string    `json:"source_index"`
	TargetIndex string    `json:"target_index"`
	Reason      string    `json:"reason"`
	Timestamp   time.Time `json:"timestamp"`
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow rollup job events",
	Long: `Print rollup job lifecycle events as the wizard service publishes them:
jobs created, updated, rejected and wizards cancelled. Runs until interrupted.

Examples:
  rollupctl watch
  rollupctl watch --nats-url nats://nats.internal:4222 --subject 'rollup.jobs.failed.>'`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		url, _ := cmd.Flags().GetString("nats-url")
		subject, _ := cmd.Flags().GetString("subject")

		natsCfg := natsclient.DefaultConfig()
		natsCfg.Name = "rollupctl-watch"
		if url != "" {
			natsCfg.URL = url
		}
		logger := logging.NewWithWriter(cmd.ErrOrStderr(), logging.ParseLevel("warn"), "text")
		client, err := natsclient.NewClient(natsCfg, logger)
		if err != nil {
			return fmt.Errorf("failed to connect to %s: %w", natsCfg.URL, err)
		}
		defer client.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		out := printer(cmd)
		out.Info("Watching %s on %s", subject, natsCfg.URL)
		return watchEvents(ctx, client, subject, out)
	},
}

// watchEvents prints every message on subject until ctx is done.
func watchEvents(ctx context.Context, sub messaging.Subscriber, subject string, out *output.Printer) error {
	s, err := sub.Subscribe(subject, func(_ context.Context, msg *messaging.Message) error {
		printEvent(out, msg)
		return nil
	})
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", subject, err)
	}
	defer s.Unsubscribe()

	<-ctx.Done()
	return nil
}

func printEvent(out *output.Printer, msg *messaging.Message) {
	var ev jobEvent
	if err := json.Unmarshal(msg.Data, &ev); err != nil {
		out.Warn("%s: undecodable event: %v", msg.Subject, err)
		return
	}
	if ev.SessionID == "" {
		ev.SessionID = msg.Metadata[messaging.HeaderSession]
	}
	ts := ev.Timestamp
	if ts.IsZero() {
		ts = msg.Timestamp
	}

	line := fmt.Sprintf("%s  %-32s job=%s session=%s", ts.UTC().Format(time.RFC3339), msg.Subject, orDash(ev.JobID), orDash(ev.SessionID))
	if ev.SourceIndex != "" {
		line += fmt.Sprintf(" %s -> %s", ev.SourceIndex, ev.TargetIndex)
	}

	switch {
	case strings.HasPrefix(msg.Subject, messaging.SubjectRollupJobsFailed):
		out.Warn("%s reason=%q", line, ev.Reason)
	case strings.HasPrefix(msg.Subject, messaging.SubjectRollupJobsCreated),
		strings.HasPrefix(msg.Subject, messaging.SubjectRollupJobsUpdated):
		out.Success("%s", line)
	default:
		out.Info("%s", line)
	}
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().String("nats-url", os.Getenv("ROLLUP_NATS_URL"), "NATS server URL (default: nats://localhost:4222)")
	watchCmd.Flags().String("subject", messaging.SubjectRollupAll, "subject to follow")
}
