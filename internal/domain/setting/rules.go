package setting

import (
	"fmt"
	"strings"

	"github.com/erp/backoffice/internal/domain/shared"
)

// Condition matches when a setting holds the given canonical value
type Condition struct {
	Key   string
	Value string
}

func (c Condition) String() string {
	return c.Key + "=" + c.Value
}

// CascadeRule forces dependent settings when a trigger condition holds
// on the resulting values of a batch.
type CascadeRule struct {
	Name   string
	When   Condition
	Forces []Change
}

// Apply returns the forced changes when the rule triggers on the given values
func (r CascadeRule) Apply(values Values) []Change {
	if values[r.When.Key] != r.When.Value {
		return nil
	}
	return r.Forces
}

// GuardRule rejects a batch whose resulting values match every condition
type GuardRule struct {
	Name    string
	When    []Condition
	Message string
}

// Check returns a validation error when the guard is violated
func (r GuardRule) Check(values Values) error {
	for _, c := range r.When {
		if values[c.Key] != c.Value {
			return nil
		}
	}
	conds := make([]string, len(r.When))
	for i, c := range r.When {
		conds[i] = c.String()
	}
	return shared.ErrValidation.WithMessage(fmt.Sprintf("%s (%s)", r.Message, strings.Join(conds, ", ")))
}
