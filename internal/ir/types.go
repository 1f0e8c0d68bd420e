package ir

import "errors"

// ErrRecordNotFound is returned by stores when a keyed record does not exist.
var ErrRecordNotFound = errors.New("record not found")

// Addr is a validated bech32 account address.
// Construct through an address validator; never from raw user input.
type Addr string

// String returns the address text.
func (a Addr) String() string {
	return string(a)
}

// LimitRecord is the singleton ledger state.
// Owner is set at instantiation and never changes.
type LimitRecord struct {
	Count Uint128 `json:"count"`
	Owner Addr    `json:"owner"`
}

// ContractInfo is the stored contract name/version pair written at instantiation.
type ContractInfo struct {
	Contract string `json:"contract"`
	Version  string `json:"version"`
}

// Coin is an amount of a single denomination.
type Coin struct {
	Denom  string  `json:"denom"`
	Amount Uint128 `json:"amount"`
}

// BankSend is a transfer instruction emitted by a ledger operation and
// carried out by the platform after the operation succeeds.
//
// From is the account debited. It is the contract itself for sends out of
// contract holdings and the caller for authorized transfers.
type BankSend struct {
	From      Addr   `json:"from"`
	ToAddress Addr   `json:"to_address"`
	Amount    []Coin `json:"amount"`
}

// Attribute is a human-readable key/value annotation on a Response.
type Attribute struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Response is the result of a successful state-changing request.
type Response struct {
	Messages   []BankSend  `json:"messages"`
	Attributes []Attribute `json:"attributes"`
}

// NewResponse returns an empty Response with non-nil slices.
func NewResponse() Response {
	return Response{Messages: []BankSend{}, Attributes: []Attribute{}}
}

// AddMessage appends a transfer instruction.
func (r Response) AddMessage(m BankSend) Response {
	r.Messages = append(r.Messages, m)
	return r
}

// AddAttribute appends a key/value annotation.
func (r Response) AddAttribute(key, value string) Response {
	r.Attributes = append(r.Attributes, Attribute{Key: key, Value: value})
	return r
}

// Attribute returns the first value for key and whether it was present.
func (r Response) Attribute(key string) (string, bool) {
	for _, a := range r.Attributes {
		if a.Key == key {
			return a.Value, true
		}
	}
	return "", false
}

// RequestKind identifies the entry point a request came through.
type RequestKind string

const (
	KindInstantiate RequestKind = "instantiate"
	KindExecute     RequestKind = "execute"
	KindSudo        RequestKind = "sudo"
	KindQuery       RequestKind = "query"
)

// OutcomeSuccess is the completion outcome of a request that committed.
// Failed requests record their error code instead.
const OutcomeSuccess = "Success"

// Invocation is the audit record of a state-changing request.
type Invocation struct {
	ID           string      `json:"id"` // Content-addressed hash
	RequestToken string      `json:"request_token"`
	Kind         RequestKind `json:"kind"`
	Action       string      `json:"action"`
	Sender       string      `json:"sender"` // Empty for sudo
	Args         IRObject    `json:"args"`
	Seq          int64       `json:"seq"`
}

// Completion is the audit record of a request's outcome.
type Completion struct {
	ID           string   `json:"id"` // Content-addressed hash
	InvocationID string   `json:"invocation_id"`
	Outcome      string   `json:"outcome"` // OutcomeSuccess or an error code
	Result       IRObject `json:"result"`
	Seq          int64    `json:"seq"`
}
