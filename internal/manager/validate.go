// Package manager implements the per-entity operation managers. Every
// operation validates its inputs before touching the gateway; validation
// failures never reach the network.
package manager

import (
	"fmt"
	"strings"
)

// ValidationError reports a caller input that violates an operation's
// preconditions, naming the offending field and the violated rule.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func validationErr(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// Channel IDs start with C (public), G (group/private), or D (direct).
func validChannelID(id string) bool {
	return id != "" && strings.ContainsRune("CGD", rune(id[0]))
}

// User IDs start with U, or W for Enterprise Grid users.
func validUserID(id string) bool {
	return id != "" && (id[0] == 'U' || id[0] == 'W')
}

func invalidTypes(types []string, valid map[string]bool) []string {
	var bad []string
	for _, t := range types {
		if !valid[t] {
			bad = append(bad, t)
		}
	}
	return bad
}
