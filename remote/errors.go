package remote

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrNetwork wraps transport failures and server-side (5xx) failures: the
// call did not produce a usable answer.
var ErrNetwork = errors.New("network failure")

// ValidationError is returned when the API rejects a request (4xx). Fields
// carries per-field messages when the API returned them.
type ValidationError struct {
	Status  int
	Fields  map[string]string
	Message string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		if e.Message == "" {
			return fmt.Sprintf("request rejected (status %d)", e.Status)
		}
		return fmt.Sprintf("request rejected (status %d): %s", e.Status, e.Message)
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ": " + e.Fields[k]
	}
	return fmt.Sprintf("request rejected (status %d): %s", e.Status, strings.Join(parts, "; "))
}
