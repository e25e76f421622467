package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"proposaldesk/internal/client"
	"proposaldesk/internal/proposal"
)

// LoginCmd returns the login command
func LoginCmd() *cobra.Command {
	var flags remoteFlags
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and save the session token",
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				password = os.Getenv("PROPOSALDESK_PASSWORD")
			}
			result, err := client.New(flags.server).Login(cmd.Context(), email, password)
			if err != nil {
				return fmt.Errorf("login failed: %w", err)
			}
			path, err := saveToken(result.Token)
			if err != nil {
				return err
			}
			fmt.Printf("Signed in as %s (%s)\n", result.User.Name, result.User.Role)
			fmt.Printf("Token saved to %s\n", path)
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password (or PROPOSALDESK_PASSWORD)")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

// ListCmd returns the list command
func ListCmd() *cobra.Command {
	var flags remoteFlags
	var department, status string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List proposals visible to you",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := flags.client()
			if err != nil {
				return err
			}
			items, err := c.Proposals(cmd.Context(), department, status)
			if err != nil {
				return err
			}
			if len(items) == 0 {
				fmt.Println("No proposals found.")
				return nil
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTITLE\tDEPARTMENT\tSTATUS\tVERSION")
			for _, p := range items {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\tv%d\n", p.ID, p.Title, p.Department, statusBadge(p.Status), p.Version)
			}
			return w.Flush()
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&department, "department", "", "filter by department")
	cmd.Flags().StringVar(&status, "status", "", "filter by status")
	return cmd
}

// ShowCmd returns the show command
func ShowCmd() *cobra.Command {
	var flags remoteFlags

	cmd := &cobra.Command{
		Use:   "show <proposal-id>",
		Short: "Show a proposal and its version history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := flags.client()
			if err != nil {
				return err
			}
			p, err := c.Proposal(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			history, err := c.History(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printProposal(os.Stdout, p, history)
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

// ThreadCmd returns the thread command
func ThreadCmd() *cobra.Command {
	var flags remoteFlags

	cmd := &cobra.Command{
		Use:   "thread <proposal-id>",
		Short: "Show the review thread grouped by version",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := flags.client()
			if err != nil {
				return err
			}
			groups, err := c.Thread(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printThread(os.Stdout, groups)
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

// ReviewCmd returns the review command
func ReviewCmd() *cobra.Command {
	var flags remoteFlags
	var decision, comment string

	cmd := &cobra.Command{
		Use:   "review <proposal-id>",
		Short: "Submit a review decision with a comment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := flags.client()
			if err != nil {
				return err
			}
			p, err := c.Review(cmd.Context(), args[0], decision, comment)
			if err != nil {
				return err
			}
			fmt.Printf("✓ %s is now %s (v%d)\n", p.ID, statusBadge(p.Status), p.Version)
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&decision, "decision", "", "Pending, Reviewed, Approved or Rejected")
	cmd.Flags().StringVar(&comment, "comment", "", "review comment")
	_ = cmd.MarkFlagRequired("decision")
	_ = cmd.MarkFlagRequired("comment")
	return cmd
}

// ReplyCmd returns the reply command
func ReplyCmd() *cobra.Command {
	var flags remoteFlags

	cmd := &cobra.Command{
		Use:   "reply <proposal-id> <text>",
		Short: "Reply to reviewer feedback on your proposal",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := flags.client()
			if err != nil {
				return err
			}
			p, err := c.Reply(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Printf("✓ reply added to %s (%d replies)\n", p.ID, len(p.Replies))
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

// EditCmd returns the edit command
func EditCmd() *cobra.Command {
	var flags remoteFlags
	var title, description, objectives, outcomes, schedule, venue, eventDate string
	var budget float64

	cmd := &cobra.Command{
		Use:   "edit <proposal-id>",
		Short: "Edit proposal content; unset flags keep their current value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := flags.client()
			if err != nil {
				return err
			}
			current, err := c.Proposal(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			content := current.Content
			changed := cmd.Flags().Changed
			if changed("title") {
				content.Title = title
			}
			if changed("description") {
				content.Description = description
			}
			if changed("objectives") {
				content.Objectives = objectives
			}
			if changed("outcomes") {
				content.Outcomes = outcomes
			}
			if changed("budget") {
				content.Budget = budget
			}
			if changed("schedule") {
				content.Schedule = schedule
			}
			if changed("venue") {
				content.Venue = venue
			}
			if changed("event-date") {
				content.EventDate = eventDate
			}
			p, err := c.Edit(cmd.Context(), args[0], content)
			if err != nil {
				return err
			}
			fmt.Printf("✓ %s saved as v%d [%s]\n", p.ID, p.Version, statusBadge(p.Status))
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&title, "title", "", "event title")
	cmd.Flags().StringVar(&description, "description", "", "description")
	cmd.Flags().StringVar(&objectives, "objectives", "", "objectives")
	cmd.Flags().StringVar(&outcomes, "outcomes", "", "expected outcomes")
	cmd.Flags().Float64Var(&budget, "budget", 0, "budget")
	cmd.Flags().StringVar(&schedule, "schedule", "", "schedule")
	cmd.Flags().StringVar(&venue, "venue", "", "venue")
	cmd.Flags().StringVar(&eventDate, "event-date", "", "event date")
	return cmd
}

// SearchCmd returns the search command
func SearchCmd() *cobra.Command {
	var flags remoteFlags
	var limit int

	cmd := &cobra.Command{
		Use:   "search <text>",
		Short: "Search proposals and reviewer comments",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := flags.client()
			if err != nil {
				return err
			}
			resp, err := c.Search(cmd.Context(), strings.Join(args, " "), limit)
			if err != nil {
				return err
			}
			fmt.Printf("%d result(s) for %q\n", resp.Total, resp.Query)
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			for _, r := range resp.Results {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.Type, r.ProposalID, r.Title, r.Snippet)
			}
			return w.Flush()
		},
	}
	flags.register(cmd)
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum results")
	return cmd
}

func printProposal(out io.Writer, p proposal.Proposal, history []proposal.HistoryEntry) {
	bold := color.New(color.Bold)
	bold.Fprintf(out, "%s\n", p.Title)
	fmt.Fprintf(out, "  %s | %s | v%d | %s\n", p.ID, p.Department, p.Version, statusBadge(p.Status))
	fmt.Fprintf(out, "  Proposer: %s\n", p.ProposerName)
	if p.Description != "" {
		fmt.Fprintf(out, "\n  %s\n", p.Description)
	}
	if len(history) == 0 {
		return
	}
	fmt.Fprintln(out)
	bold.Fprintln(out, "History")
	for _, h := range history {
		fmt.Fprintf(out, "  v%d  %s  %s\n", h.Version, formatTime(h.UpdatedAt), h.Remarks)
	}
}

func printThread(out io.Writer, groups []proposal.ThreadGroup) {
	if len(groups) == 0 {
		fmt.Fprintln(out, "No comments yet.")
		return
	}
	header := color.New(color.FgHiCyan, color.Bold)
	reviewer := color.New(color.FgYellow)
	proposer := color.New(color.FgGreen)
	for i, g := range groups {
		if i > 0 {
			fmt.Fprintln(out)
		}
		header.Fprintln(out, g.Label)
		if g.Remarks != "" {
			color.New(color.FgHiBlack).Fprintf(out, "  %s\n", g.Remarks)
		}
		for _, item := range g.Items {
			switch c := item.(type) {
			case proposal.ReviewerComment:
				reviewer.Fprintf(out, "  [%s] %s", formatTime(c.Timestamp), c.ReviewerName)
				if c.Status != "" {
					fmt.Fprintf(out, " %s", statusBadge(c.Status))
				}
				fmt.Fprintf(out, "\n    %s\n", c.Text)
			case proposal.ProposerComment:
				proposer.Fprintf(out, "  [%s] %s (proposer)", formatTime(c.Timestamp), c.AuthorName)
				fmt.Fprintf(out, "\n    %s\n", c.Text)
			}
		}
	}
}

func statusBadge(s proposal.Status) string {
	switch s {
	case proposal.StatusApproved:
		return color.New(color.FgHiGreen).Sprint(s)
	case proposal.StatusRejected:
		return color.New(color.FgRed).Sprint(s)
	case proposal.StatusReviewed:
		return color.New(color.FgYellow).Sprint(s)
	default:
		return color.New(color.FgHiBlue).Sprint(s)
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}

func withTimeout(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return context.WithTimeout(parent, 2*time.Minute)
}
