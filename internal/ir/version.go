package ir

// Version constants recorded at instantiation.
const (
	// ContractName identifies the contract in its stored version record.
	ContractName = "crates.io:token-sender"

	// ContractVersion is the contract code version.
	ContractVersion = "0.1.0"
)
