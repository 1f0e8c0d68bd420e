package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// The version suffix leaves room for a future algorithm change.
const (
	DomainInvocation = "tokensender/invocation/v1"
	DomainCompletion = "tokensender/completion/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
// The null separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// InvocationID computes the content-addressed ID of a request.
// The sender is part of the identity: the same message from two callers
// can authorize differently.
func InvocationID(requestToken string, kind RequestKind, action, sender string, args IRObject, seq int64) (string, error) {
	obj := IRObject{
		"request_token": IRString(requestToken),
		"kind":          IRString(kind),
		"action":        IRString(action),
		"sender":        IRString(sender),
		"args":          args,
		"seq":           IRInt(seq),
	}

	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("InvocationID: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainInvocation, canonical), nil
}

// CompletionID computes the content-addressed ID of a request outcome.
func CompletionID(invocationID, outcome string, result IRObject, seq int64) (string, error) {
	obj := IRObject{
		"invocation_id": IRString(invocationID),
		"outcome":       IRString(outcome),
		"result":        result,
		"seq":           IRInt(seq),
	}

	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("CompletionID: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainCompletion, canonical), nil
}

// MustInvocationID is like InvocationID but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustInvocationID(requestToken string, kind RequestKind, action, sender string, args IRObject, seq int64) string {
	id, err := InvocationID(requestToken, kind, action, sender, args, seq)
	if err != nil {
		panic(err)
	}
	return id
}

// MustCompletionID is like CompletionID but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustCompletionID(invocationID, outcome string, result IRObject, seq int64) string {
	id, err := CompletionID(invocationID, outcome, result, seq)
	if err != nil {
		panic(err)
	}
	return id
}
