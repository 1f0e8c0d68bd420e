package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/tokensender/internal/engine"
	"github.com/roach88/tokensender/internal/ir"
)

// NewInitCommand creates the init command, which instantiates the ledger.
func NewInitCommand(rootOpts *RootOptions) *cobra.Command {
	var sender, limit string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Instantiate the ledger",
		Long: `Create the ledger record with the sender as owner and the given
initial limit. The ledger can be instantiated only once.

Example:
  tokensender init --sender cosmos1... --limit 100`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			msg, err := json.Marshal(map[string]string{"limit": limit})
			if err != nil {
				return err
			}
			return runRequest(cmd, rootOpts, engine.Request{Kind: ir.KindInstantiate, Sender: sender, Msg: msg})
		},
	}

	cmd.Flags().StringVar(&sender, "sender", "", "owner address (required)")
	cmd.Flags().StringVar(&limit, "limit", "", "initial limit (required)")
	_ = cmd.MarkFlagRequired("sender")
	_ = cmd.MarkFlagRequired("limit")

	return cmd
}

// NewExecuteCommand creates the execute command.
func NewExecuteCommand(rootOpts *RootOptions) *cobra.Command {
	var sender string

	cmd := &cobra.Command{
		Use:   "execute <msg-json>",
		Short: "Send an execute message",
		Long: `Send an execute message as the given sender.

Examples:
  tokensender execute --sender cosmos1... '{"increment_limit":{}}'
  tokensender execute --sender cosmos1... '{"update_limit":{"limit":"110"}}'
  tokensender execute --sender cosmos1... '{"send_tokens":{"recipient":"cosmos1...","amount":"25"}}'`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRequest(cmd, rootOpts, engine.Request{Kind: ir.KindExecute, Sender: sender, Msg: json.RawMessage(args[0])})
		},
	}

	cmd.Flags().StringVar(&sender, "sender", "", "caller address (required)")
	_ = cmd.MarkFlagRequired("sender")

	return cmd
}

// NewSudoCommand creates the sudo command.
func NewSudoCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sudo <msg-json>",
		Short: "Send a privileged message",
		Long: `Send a privileged message. Sudo messages have no caller; anyone with
access to the database can send them.

Example:
  tokensender sudo '{"send_token_to_contract":{"amount":"30"}}'`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRequest(cmd, rootOpts, engine.Request{Kind: ir.KindSudo, Msg: json.RawMessage(args[0])})
		},
	}
}

// NewQueryCommand creates the query command.
func NewQueryCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "query <msg-json>",
		Short: "Query the ledger",
		Long: `Run a read-only query. Queries are not recorded in the audit log.

Examples:
  tokensender query '{"get_limit":{}}'
  tokensender query '{"get_validator":{}}'`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRequest(cmd, rootOpts, engine.Request{Kind: ir.KindQuery, Msg: json.RawMessage(args[0])})
		},
	}
}

func runRequest(cmd *cobra.Command, opts *RootOptions, req engine.Request) error {
	ctx := commandContext(cmd)
	env, err := openEnvironment(ctx, opts)
	if err != nil {
		return err
	}
	defer env.Close()

	// Instantiate and queries never read the oracle.
	if req.Kind == ir.KindExecute || req.Kind == ir.KindSudo {
		if err := env.checkOracle(ctx); err != nil {
			return err
		}
	}

	f := newFormatter(cmd, opts)
	res, err := env.engine.Process(ctx, req)
	if err != nil {
		return f.Fail(err)
	}

	if req.Kind == ir.KindQuery {
		return f.Success(res.Data, string(res.Data))
	}
	return f.Success(res, formatResult(res))
}

// formatResult renders a committed request for text output.
func formatResult(res engine.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "committed %s (seq %d)", res.InvocationID, res.Seq)
	if res.Response == nil {
		return b.String()
	}
	for _, a := range res.Response.Attributes {
		fmt.Fprintf(&b, "\n  %s = %s", a.Key, a.Value)
	}
	for _, m := range res.Response.Messages {
		for _, c := range m.Amount {
			fmt.Fprintf(&b, "\n  send %s%s %s -> %s", c.Amount, c.Denom, m.From, m.ToAddress)
		}
	}
	return b.String()
}
