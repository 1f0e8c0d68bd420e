package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/tokensender/internal/ir"
	"github.com/roach88/tokensender/internal/ledger"
)

// NewBankCommand creates the bank command group.
func NewBankCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bank",
		Short: "Inspect and fund bank balances",
	}

	cmd.AddCommand(newBankFundCommand(rootOpts))
	cmd.AddCommand(newBankBalanceCommand(rootOpts))
	cmd.AddCommand(newBankHoldingsCommand(rootOpts))

	return cmd
}

// BalanceOutput is the JSON payload of bank fund and bank balance.
type BalanceOutput struct {
	Address string     `json:"address"`
	Denom   string     `json:"denom"`
	Amount  ir.Uint128 `json:"amount"`
}

func newBankFundCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "fund <address> <amount>",
		Short: "Credit tokens to an account",
		Long: `Credit tokens of the ledger denomination to an account. This is the
operator's mint, used for genesis balances and top-ups.

Example:
  tokensender bank fund cosmos1... 120`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(cmd, rootOpts)

			amount, err := ir.ParseUint128(args[1])
			if err != nil {
				return f.Fail(ledger.NewInvalidRequest(fmt.Errorf("amount: %w", err)))
			}

			ctx := commandContext(cmd)
			env, err := openEnvironment(ctx, rootOpts)
			if err != nil {
				return err
			}
			defer env.Close()

			bal, err := env.engine.Fund(ctx, args[0], amount)
			if err != nil {
				return f.Fail(err)
			}
			out := BalanceOutput{Address: args[0], Denom: env.cfg.Denom, Amount: bal}
			return f.Success(out, fmt.Sprintf("%s: %s%s", out.Address, out.Amount, out.Denom))
		},
	}
}

func newBankBalanceCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "balance <address>",
		Short:         "Show an account balance",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			env, err := openEnvironment(ctx, rootOpts)
			if err != nil {
				return err
			}
			defer env.Close()

			f := newFormatter(cmd, rootOpts)
			bal, err := env.engine.Balance(ctx, args[0])
			if err != nil {
				return f.Fail(err)
			}
			out := BalanceOutput{Address: args[0], Denom: env.cfg.Denom, Amount: bal}
			return f.Success(out, fmt.Sprintf("%s: %s%s", out.Address, out.Amount, out.Denom))
		},
	}
}

func newBankHoldingsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "holdings",
		Short:         "List every account holding the ledger denomination",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			env, err := openEnvironment(ctx, rootOpts)
			if err != nil {
				return err
			}
			defer env.Close()

			f := newFormatter(cmd, rootOpts)
			holdings, err := env.engine.Holdings(ctx)
			if err != nil {
				return f.Fail(err)
			}

			var b strings.Builder
			if len(holdings) == 0 {
				b.WriteString("No holdings.")
			}
			for i, h := range holdings {
				if i > 0 {
					b.WriteByte('\n')
				}
				fmt.Fprintf(&b, "%s: %s%s", h.Address, h.Amount, env.cfg.Denom)
			}
			return f.Success(holdings, b.String())
		},
	}
}
