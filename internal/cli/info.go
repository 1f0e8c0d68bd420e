package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/tokensender/internal/ledger"
)

// InfoOutput is the JSON payload of the info command.
type InfoOutput struct {
	Contract     string `json:"contract,omitempty"`
	Version      string `json:"version,omitempty"`
	Instantiated bool   `json:"instantiated"`
	Address      string `json:"address"`
	Denom        string `json:"denom"`
	Prefix       string `json:"bech32_prefix"`
	Database     string `json:"database"`
	Oracle       string `json:"oracle"`
}

// NewInfoCommand creates the info command.
func NewInfoCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "info",
		Short:         "Show contract version and configuration",
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
			out := InfoOutput{
				Address:  env.cfg.ContractAddress,
				Denom:    env.cfg.Denom,
				Prefix:   env.cfg.Bech32Prefix,
				Database: env.cfg.Database,
				Oracle:   env.cfg.Oracle.Kind,
			}

			info, err := env.engine.ContractInfo(ctx)
			switch {
			case err == nil:
				out.Instantiated = true
				out.Contract = info.Contract
				out.Version = info.Version
			case !ledger.IsNotInstantiated(err):
				return f.Fail(err)
			}

			version := "not instantiated"
			if out.Instantiated {
				version = out.Contract + " " + out.Version
			}
			text := fmt.Sprintf("contract: %s\naddress:  %s\ndenom:    %s\ndatabase: %s\noracle:   %s",
				version, out.Address, out.Denom, out.Database, out.Oracle)
			return f.Success(out, text)
		},
	}
}
