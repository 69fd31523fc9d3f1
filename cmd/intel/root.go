package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/bryanwahyu/market-intel/internal/application/intel"
	"github.com/bryanwahyu/market-intel/internal/domain/report"
	"github.com/bryanwahyu/market-intel/internal/format"
)

const defaultWidth = 100

// newRootCmd builds the command tree. The returned close func releases the
// environment opened by the first command; call it however Execute ends,
// because cobra skips post-run hooks when RunE fails.
func newRootCmd(open opener) (*cobra.Command, func() error) {
	var e *env

	rootCmd := &cobra.Command{
		Use:   "intel",
		Short: "Global market intelligence reports from the terminal",
		Long: `intel generates search-grounded company intelligence reports,
keeps them in the local history and answers follow-up questions about them.

Configuration is read from config.yaml (or CONFIG_PATH); the API key can come
from GEMINI_API_KEY or API_KEY.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			e, err = open(cmd.Context())
			return err
		},
	}
	rootCmd.PersistentFlags().Int("width", defaultWidth, "render width in columns")

	envFn := func() *env { return e }
	rootCmd.AddCommand(
		newAnalyzeCmd(envFn),
		newAskCmd(envFn),
		newHistoryCmd(envFn),
		newExportCmd(envFn),
		newTextCmd(envFn),
	)

	closeEnv := func() error {
		if e == nil || e.close == nil {
			return nil
		}
		c := e.close
		e = nil
		return c()
	}
	return rootCmd, closeEnv
}

func width(cmd *cobra.Command) int {
	w, err := cmd.Flags().GetInt("width")
	if err != nil || w <= 0 {
		return defaultWidth
	}
	return w
}

func newAnalyzeCmd(envFn func() *env) *cobra.Command {
	var lang string
	placeholder := intel.MessagesFor(report.DefaultLanguage).Placeholder
	cmd := &cobra.Command{
		Use:   "analyze [company]",
		Short: "Generate a new intelligence report",
		Long: `Runs one search-grounded generation for the company and stores the report
in the history. Progress is printed to stderr while the model works.`,
		Example: fmt.Sprintf("  intel analyze %[1]q\n  intel analyze %[1]q --lang en", placeholder),
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e := envFn()
			l, err := report.ParseLanguage(lang)
			if err != nil {
				return err
			}
			company := strings.Join(args, " ")

			_, result, err := e.sess.Start(company, l)
			if err != nil {
				return err
			}
			if err := waitWithProgress(cmd.Context(), e.sess, result, cmd.ErrOrStderr()); err != nil {
				return err
			}

			snap := e.sess.Snapshot()
			if snap.Report == nil {
				return fmt.Errorf("analysis finished without a report")
			}
			fmt.Fprintln(cmd.OutOrStdout(), format.RenderTerminal(snap.Report, width(cmd)))
			fmt.Fprintf(cmd.ErrOrStderr(), "report id: %s\n", snap.Report.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&lang, "lang", string(report.DefaultLanguage), "report language (zh or en)")
	return cmd
}

// waitWithProgress prints the cosmetic progress value until the run settles
// and returns the run's error, or ctx's when interrupted.
func waitWithProgress(ctx context.Context, sess *intel.Session, result <-chan error, w io.Writer) error {
	t := time.NewTicker(500 * time.Millisecond)
	defer t.Stop()
	for {
		select {
		case err := <-result:
			fmt.Fprintln(w)
			if err != nil {
				return errors.New(sess.Snapshot().Error)
			}
			return nil
		case <-ctx.Done():
			fmt.Fprintln(w)
			return ctx.Err()
		case <-t.C:
			snap := sess.Snapshot()
			fmt.Fprintf(w, "\r%-10s %3d%%", snap.Status, snap.Progress)
		}
	}
}

func newAskCmd(envFn func() *env) *cobra.Command {
	return &cobra.Command{
		Use:   "ask [report-id] [question]",
		Short: "Ask a follow-up question about a stored report",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			e := envFn()
			res, err := e.svc.Ask(cmd.Context(), args[0], strings.Join(args[1:], " "))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), format.RenderChat(res.Report.ChatHistory))
			if res.Outcome == intel.OutcomeFailed {
				return fmt.Errorf("follow-up failed: %s", res.Reason)
			}
			return nil
		},
	}
}

func newHistoryCmd(envFn func() *env) *cobra.Command {
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "List, show, delete or clear stored reports",
	}

	var page, pageSize int
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List stored reports, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			res := envFn().svc.Reports(page, pageSize)
			out := cmd.OutOrStdout()
			if res.Total == 0 {
				fmt.Fprintln(out, "no reports yet")
				return nil
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tCOMPANY\tLANG\tCREATED\tTURNS")
			for _, r := range res.Data {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\n", r.ID, r.CompanyName, r.Language, r.Timestamp, len(r.ChatHistory))
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(out, "page %d/%d, %d reports\n", res.Page, max(res.TotalPages, 1), res.Total)
			return nil
		},
	}
	listCmd.Flags().IntVar(&page, "page", 1, "page number")
	listCmd.Flags().IntVar(&pageSize, "page-size", 20, "reports per page")

	showCmd := &cobra.Command{
		Use:   "show [report-id]",
		Short: "Render a stored report with its chat",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := envFn().svc.Report(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, format.RenderTerminal(r, width(cmd)))
			if len(r.ChatHistory) > 0 {
				fmt.Fprintln(out, format.RenderChat(r.ChatHistory))
			}
			return nil
		},
	}

	deleteCmd := &cobra.Command{
		Use:   "delete [report-id]",
		Short: "Delete one stored report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := envFn().sess.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
			return nil
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every stored report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := envFn().sess.Clear(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "history cleared")
			return nil
		},
	}

	historyCmd.AddCommand(listCmd, showCmd, deleteCmd, clearCmd)
	return historyCmd
}

func newExportCmd(envFn func() *env) *cobra.Command {
	var outDir string
	cmd := &cobra.Command{
		Use:   "export [report-id]",
		Short: "Write the printable HTML document of a report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := envFn().svc.Export(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return err
			}
			dst := filepath.Join(outDir, a.Filename)
			if err := os.WriteFile(dst, a.Body, 0o644); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), dst)
			if a.URL != "" {
				fmt.Fprintln(cmd.OutOrStdout(), a.URL)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&outDir, "out", "o", ".", "output directory")
	return cmd
}

func newTextCmd(envFn func() *env) *cobra.Command {
	return &cobra.Command{
		Use:   "text [report-id]",
		Short: "Print a report as plain text for copying",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := envFn().svc.PlainText(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), text)
			return nil
		},
	}
}
