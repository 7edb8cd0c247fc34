package condense

import (
	"errors"
	"fmt"
	"strings"
)

// Policy says what to do with a malformed input.
type Policy string

// Policies.
const (
	// PolicyFail aborts the run.
	PolicyFail Policy = "fail"
	// PolicySkip logs the problem and carries on.
	PolicySkip Policy = "skip"
)

// ErrUnknownPolicy is returned by ParsePolicy.
var ErrUnknownPolicy = errors.New("unknown policy")

// ParsePolicy accepts "fail" or "skip", case-insensitively.
func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(strings.ToLower(strings.TrimSpace(s))); p {
	case PolicyFail, PolicySkip:
		return p, nil
	default:
		return "", fmt.Errorf("%w: %q (want %q or %q)", ErrUnknownPolicy, s, PolicyFail, PolicySkip)
	}
}
