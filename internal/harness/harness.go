package harness

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"

	"github.com/roach88/tokensender/internal/address"
	"github.com/roach88/tokensender/internal/config"
	"github.com/roach88/tokensender/internal/engine"
	"github.com/roach88/tokensender/internal/ir"
	"github.com/roach88/tokensender/internal/ledger"
	"github.com/roach88/tokensender/internal/store"
	"github.com/roach88/tokensender/internal/testutil"
)

// placeholder matches "${name}" inside message strings.
var placeholder = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Harness runs one scenario against a private engine.
type Harness struct {
	store    *store.Store
	engine   *engine.Engine
	prefix   string
	contract ir.Addr

	// names maps every address handed out back to its account name.
	names map[ir.Addr]string
}

// Run executes a scenario on a fresh in-memory store and returns the result.
//
// Expectation and assertion failures are reported in the Result. An error
// is returned only when the scenario could not be run at all: the store
// failed to open, genesis funding failed, or instantiation failed.
func Run(scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	prefix := scenario.Prefix
	if prefix == "" {
		prefix = address.DefaultPrefix
	}
	contract := address.DeriveContract(prefix, config.ContractLabel)

	h := &Harness{
		store:    st,
		prefix:   prefix,
		contract: contract,
		names:    map[ir.Addr]string{contract: ContractAccount},
	}
	h.engine = engine.New(st, address.NewValidator(prefix),
		ledger.Config{ContractAddress: contract, Denom: scenario.Denom},
		engine.WithTokenGenerator(testutil.NewSequentialTokens("")),
	)

	ctx := context.Background()
	result := NewResult()

	if err := h.fund(ctx, scenario.Balances); err != nil {
		return nil, fmt.Errorf("failed to fund accounts: %w", err)
	}
	if scenario.Instantiate != nil {
		if err := h.instantiate(ctx, scenario.Instantiate); err != nil {
			return nil, fmt.Errorf("failed to instantiate: %w", err)
		}
	}

	for i, step := range scenario.Steps {
		if err := h.runStep(ctx, i, step, result); err != nil {
			return nil, err
		}
	}

	if scenario.Final != nil {
		h.checkFinal(ctx, scenario.Final, result)
	}

	trace, err := h.trace(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read trace: %w", err)
	}
	result.Trace = trace

	for _, msg := range EvaluateAssertions(result.Trace, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

// addr resolves an account name to its address.
func (h *Harness) addr(name string) ir.Addr {
	if name == ContractAccount {
		return h.contract
	}
	a := address.Derive(h.prefix, name)
	h.names[a] = name
	return a
}

func (h *Harness) fund(ctx context.Context, balances map[string]string) error {
	names := make([]string, 0, len(balances))
	for name := range balances {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		amount, err := ir.ParseUint128(balances[name])
		if err != nil {
			return fmt.Errorf("balance of %s: %w", name, err)
		}
		if _, err := h.engine.Fund(ctx, h.addr(name).String(), amount); err != nil {
			return fmt.Errorf("fund %s: %w", name, err)
		}
	}
	return nil
}

func (h *Harness) instantiate(ctx context.Context, step *InstantiateStep) error {
	msg, err := json.Marshal(map[string]string{"limit": step.Limit})
	if err != nil {
		return err
	}
	_, err = h.engine.Process(ctx, engine.Request{
		Kind:   ir.KindInstantiate,
		Sender: h.addr(step.Sender).String(),
		Msg:    msg,
	})
	return err
}

func (h *Harness) runStep(ctx context.Context, i int, step Step, result *Result) error {
	kind, msg := step.kind()
	label := fmt.Sprintf("steps[%d] %s %s", i, kind, variantOf(msg))

	expanded, err := h.expand(msg)
	if err != nil {
		return fmt.Errorf("%s: %w", label, err)
	}
	raw, err := json.Marshal(expanded)
	if err != nil {
		return fmt.Errorf("%s: encode message: %w", label, err)
	}

	req := engine.Request{Kind: ir.RequestKind(kind), Msg: raw}
	if step.Sender != "" {
		req.Sender = h.addr(step.Sender).String()
	}

	res, err := h.engine.Process(ctx, req)

	expect := step.Expect
	if expect == nil {
		expect = &Expect{}
	}

	if err != nil {
		switch code := string(ledger.CodeOf(err)); {
		case expect.Error == "":
			result.AddError(fmt.Sprintf("%s: unexpected error: %v", label, err))
		case code != expect.Error:
			result.AddError(fmt.Sprintf("%s: expected error %s, got %s (%v)", label, expect.Error, code, err))
		}
		return nil
	}
	if expect.Error != "" {
		result.AddError(fmt.Sprintf("%s: expected error %s, got success", label, expect.Error))
		return nil
	}

	if res.Response != nil {
		h.checkResponse(label, expect, *res.Response, result)
	} else if len(expect.Attributes) > 0 || expect.Messages != nil {
		result.AddError(fmt.Sprintf("%s: expected a response, got none", label))
	}

	if expect.Data != nil {
		if err := h.checkData(expect.Data, res.Data); err != nil {
			result.AddError(fmt.Sprintf("%s: %v", label, err))
		}
	}
	return nil
}

func (h *Harness) checkResponse(label string, expect *Expect, resp ir.Response, result *Result) {
	keys := make([]string, 0, len(expect.Attributes))
	for k := range expect.Attributes {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		want := h.expandString(expect.Attributes[k])
		got, ok := resp.Attribute(k)
		if !ok {
			result.AddError(fmt.Sprintf("%s: attribute %q missing", label, k))
			continue
		}
		if got != want {
			result.AddError(fmt.Sprintf("%s: attribute %q = %q, want %q", label, k, h.redact(got), expect.Attributes[k]))
		}
	}

	if expect.Messages == nil {
		return
	}
	if len(resp.Messages) != len(expect.Messages) {
		result.AddError(fmt.Sprintf("%s: %d messages, want %d", label, len(resp.Messages), len(expect.Messages)))
		return
	}
	for j, want := range expect.Messages {
		got := resp.Messages[j]
		if got.From != h.addr(want.From) || got.ToAddress != h.addr(want.To) {
			result.AddError(fmt.Sprintf("%s: messages[%d] %s -> %s, want %s -> %s",
				label, j, h.redact(got.From.String()), h.redact(got.ToAddress.String()), want.From, want.To))
			continue
		}
		amount, err := ir.ParseUint128(want.Amount)
		if err != nil {
			result.AddError(fmt.Sprintf("%s: messages[%d]: %v", label, j, err))
			continue
		}
		if len(got.Amount) != 1 || !got.Amount[0].Amount.Equal(amount) || got.Amount[0].Denom != h.engine.Config().Denom {
			result.AddError(fmt.Sprintf("%s: messages[%d] amount %v, want %s", label, j, got.Amount, want.Amount))
		}
	}
}

func (h *Harness) checkData(want map[string]any, got json.RawMessage) error {
	expanded, err := h.expand(want)
	if err != nil {
		return err
	}
	wantJSON, err := json.Marshal(expanded)
	if err != nil {
		return err
	}

	var w, g any
	if err := json.Unmarshal(wantJSON, &w); err != nil {
		return err
	}
	if err := json.Unmarshal(got, &g); err != nil {
		return fmt.Errorf("decode query data: %w", err)
	}
	if !reflect.DeepEqual(w, g) {
		return fmt.Errorf("data = %s, want %s", h.redact(string(got)), wantJSON)
	}
	return nil
}

func (h *Harness) checkFinal(ctx context.Context, final *FinalState, result *Result) {
	if final.Limit != "" {
		res, err := h.engine.Process(ctx, engine.Request{Kind: ir.KindQuery, Msg: json.RawMessage(`{"get_limit":{}}`)})
		if err != nil {
			result.AddError(fmt.Sprintf("final: get_limit: %v", err))
		} else {
			var resp ir.GetLimitResponse
			if err := json.Unmarshal(res.Data, &resp); err != nil {
				result.AddError(fmt.Sprintf("final: get_limit: %v", err))
			} else if want, err := ir.ParseUint128(final.Limit); err != nil || !resp.Limit.Equal(want) {
				result.AddError(fmt.Sprintf("final: limit = %s, want %s", resp.Limit, final.Limit))
			}
		}
	}

	if final.Owner != "" {
		res, err := h.engine.Process(ctx, engine.Request{Kind: ir.KindQuery, Msg: json.RawMessage(`{"get_validator":{}}`)})
		if err != nil {
			result.AddError(fmt.Sprintf("final: get_validator: %v", err))
		} else {
			var resp ir.GetValidatorResponse
			if err := json.Unmarshal(res.Data, &resp); err != nil {
				result.AddError(fmt.Sprintf("final: get_validator: %v", err))
			} else if resp.Validator != h.addr(final.Owner).String() {
				result.AddError(fmt.Sprintf("final: owner = %s, want %s", h.redact(resp.Validator), final.Owner))
			}
		}
	}

	names := make([]string, 0, len(final.Balances))
	for name := range final.Balances {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		bal, err := h.engine.Balance(ctx, h.addr(name).String())
		if err != nil {
			result.AddError(fmt.Sprintf("final: balance of %s: %v", name, err))
			continue
		}
		if want, err := ir.ParseUint128(final.Balances[name]); err != nil || !bal.Equal(want) {
			result.AddError(fmt.Sprintf("final: balance of %s = %s, want %s", name, bal, final.Balances[name]))
		}
	}
}

// trace reads the audit log back as trace events.
func (h *Harness) trace(ctx context.Context) ([]TraceEvent, error) {
	entries, err := h.engine.History(ctx, 0)
	if err != nil {
		return nil, err
	}

	trace := make([]TraceEvent, 0, 2*len(entries))
	for _, e := range entries {
		inv, comp := e.Invocation, e.Completion
		trace = append(trace, TraceEvent{
			Type:   EventInvocation,
			Seq:    inv.Seq,
			Kind:   string(inv.Kind),
			Action: inv.Action,
			Sender: h.redact(inv.Sender),
			Args:   h.plainObject(inv.Args),
		})

		ev := TraceEvent{Type: EventCompletion, Seq: comp.Seq, Outcome: comp.Outcome}
		if comp.Outcome == ir.OutcomeSuccess {
			ev.Result = h.plainObject(comp.Result)
		}
		trace = append(trace, ev)
	}
	return trace, nil
}

// expand replaces placeholders in every string of a YAML-decoded value.
func (h *Harness) expand(v any) (any, error) {
	switch val := v.(type) {
	case string:
		return h.expandString(val), nil
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, elem := range val {
			e, err := h.expand(elem)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", k, err)
			}
			out[k] = e
		}
		return out, nil
	case []any:
		out := make([]any, len(val))
		for i, elem := range val {
			e, err := h.expand(elem)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			out[i] = e
		}
		return out, nil
	case nil:
		return nil, fmt.Errorf("null values are not allowed in messages")
	default:
		return val, nil
	}
}

func (h *Harness) expandString(s string) string {
	return placeholder.ReplaceAllStringFunc(s, func(m string) string {
		name := placeholder.FindStringSubmatch(m)[1]
		return h.addr(name).String()
	})
}

// redact writes known addresses in s back as placeholders.
func (h *Harness) redact(s string) string {
	for a, name := range h.names {
		s = strings.ReplaceAll(s, a.String(), "${"+name+"}")
	}
	return s
}

// plainObject converts an IR object to plain Go values, redacting addresses.
func (h *Harness) plainObject(obj ir.IRObject) map[string]any {
	out := make(map[string]any, len(obj))
	for k, v := range obj {
		out[k] = h.plain(v)
	}
	return out
}

func (h *Harness) plain(v ir.IRValue) any {
	switch val := v.(type) {
	case ir.IRString:
		return h.redact(string(val))
	case ir.IRInt:
		return int64(val)
	case ir.IRBool:
		return bool(val)
	case ir.IRArray:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = h.plain(elem)
		}
		return out
	case ir.IRObject:
		return h.plainObject(val)
	}
	return nil
}

// variantOf returns the message's variant name for labels.
func variantOf(msg map[string]any) string {
	keys := make([]string, 0, len(msg))
	for k := range msg {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return strings.Join(keys, ",")
}
