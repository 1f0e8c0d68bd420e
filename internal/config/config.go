// Package config loads tokensender configuration from CUE files.
//
// A config file is unified with an embedded schema that supplies defaults
// and constraints, so partial files are fine and invalid values are
// reported with their position.
package config

import (
	_ "embed"
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"

	"github.com/roach88/tokensender/internal/address"
	"github.com/roach88/tokensender/internal/ir"
)

//go:embed schema.cue
var schemaCUE string

// ContractLabel seeds the derived contract address.
const ContractLabel = "tokensender"

// Oracle kinds.
const (
	OracleBank  = "bank"
	OracleRedis = "redis"
)

// Config is the decoded configuration.
type Config struct {
	Denom           string       `json:"denom"`
	Bech32Prefix    string       `json:"bech32_prefix"`
	ContractAddress string       `json:"contract_address"`
	Database        string       `json:"database"`
	Oracle          OracleConfig `json:"oracle"`
	HTTP            HTTPConfig   `json:"http"`
}

// OracleConfig selects the balance oracle.
type OracleConfig struct {
	Kind        string `json:"kind"`
	RedisAddr   string `json:"redis_addr"`
	RedisDB     int    `json:"redis_db"`
	RedisPrefix string `json:"redis_prefix"`
}

// HTTPConfig configures the gateway.
type HTTPConfig struct {
	Listen    string `json:"listen"`
	SudoToken string `json:"sudo_token"`
}

// Default returns the configuration of an empty file.
func Default() (Config, error) {
	return Parse(nil, "")
}

// Load reads and validates the CUE file at path. An empty path returns Default().
func Load(path string) (Config, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return Parse(data, path)
}

// Parse validates CUE source against the schema and decodes it.
// filename is used in error positions only.
func Parse(src []byte, filename string) (Config, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return Config{}, fmt.Errorf("compile config schema: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Config"))

	if filename == "" {
		filename = "config.cue"
	}
	data := ctx.CompileBytes(src, cue.Filename(filename))
	if err := data.Err(); err != nil {
		return Config{}, formatCUEError(err)
	}

	v := def.Unify(data)
	if err := v.Validate(); err != nil {
		return Config{}, formatCUEError(err)
	}

	var cfg Config
	if err := v.Decode(&cfg); err != nil {
		return Config{}, formatCUEError(err)
	}

	if err := cfg.resolve(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// resolve fills derived values and checks what the schema cannot.
func (c *Config) resolve() error {
	if c.ContractAddress == "" {
		c.ContractAddress = string(address.DeriveContract(c.Bech32Prefix, ContractLabel))
		return nil
	}
	if _, err := address.NewValidator(c.Bech32Prefix).Validate(c.ContractAddress); err != nil {
		return fmt.Errorf("config: contract_address: %w", err)
	}
	return nil
}

// Contract returns the contract address.
func (c Config) Contract() ir.Addr {
	return ir.Addr(c.ContractAddress)
}

// formatCUEError flattens CUE's error list into one message with positions.
func formatCUEError(err error) error {
	return fmt.Errorf("config: %s", errors.Details(err, nil))
}
