package classifier

import (
	"fmt"

	"github.com/Brownie44l1/classifier-api/internal/apperr"
)

// DefaultClasses is the label set of the shipped classifier.
var DefaultClasses = []string{"A", "B", "C", "D"}

// ClassTable maps class indices emitted by the model to names.
type ClassTable struct {
	names []string
}

func NewClassTable(names ...string) (ClassTable, error) {
	if len(names) == 0 {
		return ClassTable{}, fmt.Errorf("class table must have at least one entry")
	}
	seen := make(map[string]struct{}, len(names))
	for i, n := range names {
		if n == "" {
			return ClassTable{}, fmt.Errorf("class %d has an empty name", i)
		}
		if _, dup := seen[n]; dup {
			return ClassTable{}, fmt.Errorf("class name %q appears more than once", n)
		}
		seen[n] = struct{}{}
	}
	return ClassTable{names: append([]string(nil), names...)}, nil
}

// Lookup returns the name for index, or an UnknownClass error when the
// index is outside the table.
func (t ClassTable) Lookup(index int64) (string, error) {
	if index < 0 || index >= int64(len(t.names)) {
		return "", apperr.New(apperr.UnknownClass, "lookup class",
			"model returned class index %d, table has %d classes", index, len(t.names))
	}
	return t.names[index], nil
}

func (t ClassTable) Len() int { return len(t.names) }

func (t ClassTable) Names() []string { return append([]string(nil), t.names...) }
