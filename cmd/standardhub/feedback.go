package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Strob0t/standardhub/internal/domain/feedback"
)

func feedbackCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "feedback",
		Short: "Inspect and review the feedback queue",
	}
	cmd.AddCommand(
		feedbackListCmd(c),
		feedbackShowCmd(c),
		feedbackSubmitCmd(c),
		feedbackActionCmd(c, "llm-approve", "Record an LLM approval", feedback.ActionLLMApprove),
		feedbackActionCmd(c, "llm-reject", "Record an LLM rejection (requires --notes)", feedback.ActionLLMReject),
		feedbackActionCmd(c, "human-approve", "Record a human approval", feedback.ActionHumanApprove),
		feedbackActionCmd(c, "human-reject", "Record a human rejection (requires --notes)", feedback.ActionHumanReject),
		feedbackMergeCmd(c),
		feedbackRejectCmd(c),
	)
	return cmd
}

func feedbackListCmd(c *cli) *cobra.Command {
	var (
		view   string
		filter feedback.ListFilter
		status string
		target string
		risk   string
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List feedback items",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := buildApp(cmd.Context(), c.cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			var items []feedback.Item
			switch view {
			case "pending":
				items, err = a.feedback.Pending(cmd.Context(), filter.AfterID, filter.Limit)
			case "human_review":
				items, err = a.feedback.AwaitingHumanReview(cmd.Context(), filter.AfterID, filter.Limit)
			case "":
				filter.Status = feedback.Status(strings.ToUpper(status))
				filter.TargetType = feedback.TargetType(strings.ToUpper(target))
				filter.RiskLevel = feedback.RiskLevel(strings.ToUpper(risk))
				items, err = a.feedback.List(cmd.Context(), filter)
			default:
				return fmt.Errorf("unknown view %q (want pending or human_review)", view)
			}
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), items)
			}
			return writeTable(cmd.OutOrStdout(), items)
		},
	}
	cmd.Flags().StringVar(&view, "view", "", "Queue view: pending or human_review")
	cmd.Flags().StringVar(&status, "status", "", "Filter by status")
	cmd.Flags().StringVar(&target, "target-type", "", "Filter by target type")
	cmd.Flags().StringVar(&risk, "risk", "", "Filter by risk level")
	cmd.Flags().Int64Var(&filter.AfterID, "after", 0, "Return items after this id")
	cmd.Flags().IntVar(&filter.Limit, "limit", feedback.DefaultListLimit, "Page size")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of a table")
	return cmd
}

func feedbackShowCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Print a feedback item as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			a, err := buildApp(cmd.Context(), c.cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			it, err := a.feedback.Get(cmd.Context(), id)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), it)
		},
	}
}

func feedbackSubmitCmd(c *cli) *cobra.Command {
	var (
		targetType   string
		feedbackType string
		targetID     int64
		payloadPath  string
		risk         string
	)
	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit a proposal; the payload is read from --payload or stdin",
		RunE: func(cmd *cobra.Command, _ []string) error {
			payload, err := readPayload(cmd.InOrStdin(), payloadPath)
			if err != nil {
				return err
			}
			var tid *int64
			if targetID > 0 {
				tid = &targetID
			}
			fc, err := feedback.ParseCreateCommand(targetType, tid, feedbackType, payload, risk)
			if err != nil {
				return err
			}

			a, err := buildApp(cmd.Context(), c.cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			it, err := a.feedback.Create(cmd.Context(), fc)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), it)
		},
	}
	cmd.Flags().StringVar(&targetType, "target-type", "", "Target entity type (required)")
	cmd.Flags().StringVar(&feedbackType, "type", "", "ADD, MODIFY or DELETE (required)")
	cmd.Flags().Int64Var(&targetID, "target-id", 0, "Target entity id for MODIFY and DELETE")
	cmd.Flags().StringVar(&payloadPath, "payload", "", "Payload JSON file; - or empty reads stdin")
	cmd.Flags().StringVar(&risk, "risk", "", "Risk level; defaults per target type")
	_ = cmd.MarkFlagRequired("target-type")
	_ = cmd.MarkFlagRequired("type")
	return cmd
}

func feedbackActionCmd(c *cli, use, short string, action feedback.Action) *cobra.Command {
	var notes string
	cmd := &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			a, err := buildApp(cmd.Context(), c.cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			it, err := a.feedback.Process(cmd.Context(), feedback.ProcessCommand{
				FeedbackID:  id,
				Action:      action,
				ReviewNotes: notes,
			})
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), it)
		},
	}
	cmd.Flags().StringVar(&notes, "notes", "", "Review notes")
	return cmd
}

func feedbackMergeCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "merge <id>",
		Short: "Merge an approved item into the catalogue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			a, err := buildApp(cmd.Context(), c.cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			it, err := a.feedback.Merge(cmd.Context(), id)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), it)
		},
	}
}

func feedbackRejectCmd(c *cli) *cobra.Command {
	var notes string
	cmd := &cobra.Command{
		Use:   "reject <id>",
		Short: "Reject an item at its current review stage",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			a, err := buildApp(cmd.Context(), c.cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			it, err := a.feedback.Reject(cmd.Context(), id, notes)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), it)
		},
	}
	cmd.Flags().StringVar(&notes, "notes", "", "Rejection reason (required)")
	_ = cmd.MarkFlagRequired("notes")
	return cmd
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

func readPayload(stdin io.Reader, path string) (json.RawMessage, error) {
	var (
		data []byte
		err  error
	)
	if path == "" || path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path) //nolint:gosec // G304: path comes from the operator
	}
	if err != nil {
		return nil, fmt.Errorf("read payload: %w", err)
	}
	return json.RawMessage(strings.TrimSpace(string(data))), nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeTable(w io.Writer, items []feedback.Item) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTARGET\tTARGET_ID\tTYPE\tRISK\tSTATUS\tUPDATED")
	for i := range items {
		it := &items[i]
		target := "-"
		if it.TargetID != nil {
			target = strconv.FormatInt(*it.TargetID, 10)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			it.ID, it.TargetType, target, it.FeedbackType, it.RiskLevel, it.Status,
			it.UpdatedAt.Format("2006-01-02 15:04:05"))
	}
	return tw.Flush()
}
