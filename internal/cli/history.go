package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/tokensender/internal/ir"
)

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show the audit log",
		Long: `Show recorded requests, oldest first. Every state-changing request is
recorded, including rejected ones; queries are not.

Examples:
  tokensender history
  tokensender history --limit 5 --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit < 0 {
				return NewExitError(ExitCommandError, "--limit must be non-negative")
			}

			ctx := commandContext(cmd)
			env, err := openEnvironment(ctx, rootOpts)
			if err != nil {
				return err
			}
			defer env.Close()

			f := newFormatter(cmd, rootOpts)
			entries, err := env.engine.History(ctx, limit)
			if err != nil {
				return f.Fail(err)
			}

			var b strings.Builder
			if len(entries) == 0 {
				b.WriteString("No requests recorded.")
			}
			for i, e := range entries {
				if i > 0 {
					b.WriteByte('\n')
				}
				inv, comp := e.Invocation, e.Completion
				fmt.Fprintf(&b, "[%d] %s %s", inv.Seq, inv.Kind, inv.Action)
				if inv.Sender != "" {
					fmt.Fprintf(&b, " from %s", inv.Sender)
				}
				fmt.Fprintf(&b, " -> %s", comp.Outcome)
				if comp.Outcome != ir.OutcomeSuccess {
					if msg, ok := comp.Result["error"].(ir.IRString); ok {
						fmt.Fprintf(&b, " (%s)", msg)
					}
				}
			}
			return f.Success(entries, b.String())
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "show only the most recent N requests (0 = all)")

	return cmd
}
