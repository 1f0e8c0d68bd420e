package ir

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// InstantiateMsg creates the ledger record.
type InstantiateMsg struct {
	Limit Uint128 `json:"limit"`
}

// UpdateLimit sets the limit after a balance check.
type UpdateLimit struct {
	Limit Uint128 `json:"limit"`
}

// UpdateLimitWithoutCheck sets the limit unconditionally.
type UpdateLimitWithoutCheck struct {
	Limit Uint128 `json:"limit"`
}

// SendTokens sends contract holdings to a recipient.
type SendTokens struct {
	Recipient string  `json:"recipient"`
	Amount    Uint128 `json:"amount"`
}

// TransferTokens moves funds between two accounts on behalf of the sender.
type TransferTokens struct {
	Sender    string  `json:"sender"`
	Recipient string  `json:"recipient"`
	Amount    Uint128 `json:"amount"`
}

// SendTokenToContract consumes limit by sending to the contract address.
type SendTokenToContract struct {
	Amount Uint128 `json:"amount"`
}

// Empty is the payload of variants that carry no fields.
type Empty struct{}

// ExecuteMsg is the externally tagged union of user-facing state changes.
// Exactly one field is set.
type ExecuteMsg struct {
	IncrementLimit          *Empty                   `json:"increment_limit,omitempty"`
	UpdateLimit             *UpdateLimit             `json:"update_limit,omitempty"`
	UpdateLimitWithoutCheck *UpdateLimitWithoutCheck `json:"update_limit_without_check,omitempty"`
	SendTokens              *SendTokens              `json:"send_tokens,omitempty"`
	TransferTokens          *TransferTokens          `json:"transfer_tokens,omitempty"`
}

// SudoMsg is the union of privileged requests.
type SudoMsg struct {
	SendTokenToContract *SendTokenToContract `json:"send_token_to_contract,omitempty"`
}

// QueryMsg is the union of read-only requests.
type QueryMsg struct {
	GetLimit     *Empty `json:"get_limit,omitempty"`
	GetValidator *Empty `json:"get_validator,omitempty"`
}

// GetLimitResponse answers QueryMsg.GetLimit.
type GetLimitResponse struct {
	Limit Uint128 `json:"limit"`
}

// GetValidatorResponse answers QueryMsg.GetValidator.
type GetValidatorResponse struct {
	Validator string `json:"validator"`
}

// Action returns the snake_case variant name of the message.
func (m ExecuteMsg) Action() string {
	switch {
	case m.IncrementLimit != nil:
		return "increment_limit"
	case m.UpdateLimit != nil:
		return "update_limit"
	case m.UpdateLimitWithoutCheck != nil:
		return "update_limit_without_check"
	case m.SendTokens != nil:
		return "send_tokens"
	case m.TransferTokens != nil:
		return "transfer_tokens"
	}
	return ""
}

// Action returns the snake_case variant name of the message.
func (m SudoMsg) Action() string {
	if m.SendTokenToContract != nil {
		return "send_token_to_contract"
	}
	return ""
}

// Action returns the snake_case variant name of the message.
func (m QueryMsg) Action() string {
	switch {
	case m.GetLimit != nil:
		return "get_limit"
	case m.GetValidator != nil:
		return "get_validator"
	}
	return ""
}

// requiredFields lists the payload keys each variant must carry. A missing
// or null key is an error, never a zero value.
var requiredFields = map[string][]string{
	"update_limit":               {"limit"},
	"update_limit_without_check": {"limit"},
	"send_tokens":                {"recipient", "amount"},
	"transfer_tokens":            {"sender", "recipient", "amount"},
	"send_token_to_contract":     {"amount"},
}

// ParseInstantiateMsg decodes an instantiate message, rejecting unknown
// and missing fields.
func ParseInstantiateMsg(data []byte) (InstantiateMsg, error) {
	var msg InstantiateMsg
	if err := requireFields(data, "limit"); err != nil {
		return InstantiateMsg{}, fmt.Errorf("parse instantiate msg: %w", err)
	}
	if err := decodeStrict(data, &msg); err != nil {
		return InstantiateMsg{}, fmt.Errorf("parse instantiate msg: %w", err)
	}
	return msg, nil
}

// ParseExecuteMsg decodes an execute message with exactly one variant.
func ParseExecuteMsg(data []byte) (ExecuteMsg, error) {
	var msg ExecuteMsg
	if err := decodeVariant(data, &msg); err != nil {
		return ExecuteMsg{}, fmt.Errorf("parse execute msg: %w", err)
	}
	return msg, nil
}

// ParseSudoMsg decodes a sudo message with exactly one variant.
func ParseSudoMsg(data []byte) (SudoMsg, error) {
	var msg SudoMsg
	if err := decodeVariant(data, &msg); err != nil {
		return SudoMsg{}, fmt.Errorf("parse sudo msg: %w", err)
	}
	return msg, nil
}

// ParseQueryMsg decodes a query message with exactly one variant.
func ParseQueryMsg(data []byte) (QueryMsg, error) {
	var msg QueryMsg
	if err := decodeVariant(data, &msg); err != nil {
		return QueryMsg{}, fmt.Errorf("parse query msg: %w", err)
	}
	return msg, nil
}

// decodeVariant checks the top-level object has exactly one key, then
// decodes strictly so unknown variants and fields are rejected.
func decodeVariant(data []byte, v any) error {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return err
	}
	if len(top) != 1 {
		return fmt.Errorf("expected exactly one variant, got %d", len(top))
	}
	for name, payload := range top {
		if isNull(payload) {
			return fmt.Errorf("variant %q has null payload", name)
		}
		if err := requireFields(payload, requiredFields[name]...); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return decodeStrict(data, v)
}

// requireFields checks that the object in data has every named key with a
// non-null value.
func requireFields(data []byte, fields ...string) error {
	if len(fields) == 0 {
		return nil
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	for _, f := range fields {
		raw, ok := obj[f]
		if !ok || isNull(raw) {
			return fmt.Errorf("missing field %q", f)
		}
	}
	return nil
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

func decodeStrict(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return fmt.Errorf("unexpected data after message")
	}
	return nil
}

// MsgArgs converts any message to an IRObject for audit records.
// The message is round-tripped through JSON so amounts keep their string form.
func MsgArgs(msg any) (IRObject, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("marshal msg: %w", err)
	}
	v, err := UnmarshalIRValue(data)
	if err != nil {
		return nil, fmt.Errorf("convert msg: %w", err)
	}
	obj, ok := v.(IRObject)
	if !ok {
		return nil, fmt.Errorf("msg is %T, want object", v)
	}
	return obj, nil
}
