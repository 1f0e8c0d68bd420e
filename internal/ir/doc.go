// Package ir provides the canonical types shared by every tokensender package.
//
// This package contains type definitions and their encodings only. All other
// internal packages import ir; ir imports nothing internal.
//
// Key design constraints:
//   - Token amounts are Uint128, serialized as decimal JSON strings
//   - Messages are externally tagged: exactly one snake_case variant per message
//   - Audit records (Invocation, Completion) carry content-addressed IDs computed
//     from RFC 8785 canonical JSON
//   - Logical clocks (seq) only, never wall-clock timestamps
package ir
