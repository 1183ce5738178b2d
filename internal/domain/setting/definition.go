package setting

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/erp/backoffice/internal/domain/shared"
)

// Definition declares a known setting: its key, type and default value
type Definition struct {
	Key         string    `json:"key"`
	Type        ValueType `json:"type"`
	Default     string    `json:"default"`
	Options     []string  `json:"options,omitempty"`
	Nullable    bool      `json:"nullable,omitempty"`
	Sensitive   bool      `json:"sensitive,omitempty"`
	Description string    `json:"description,omitempty"`

	// Canonicalize is applied to string and enum values before validation
	Canonicalize func(string) string `json:"-"`
}

// Normalize parses raw according to the declared type and returns its
// canonical string encoding.
func (d Definition) Normalize(raw string) (string, error) {
	value := strings.TrimSpace(raw)
	if value == "" && d.Nullable {
		return "", nil
	}
	if d.Canonicalize != nil && (d.Type == TypeString || d.Type == TypeEnum) {
		value = d.Canonicalize(value)
	}

	switch d.Type {
	case TypeBool:
		b, err := strconv.ParseBool(strings.ToLower(value))
		if err != nil {
			return "", d.invalid(raw, "expected true or false")
		}
		return strconv.FormatBool(b), nil
	case TypeInt:
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return "", d.invalid(raw, "expected an integer")
		}
		return strconv.FormatInt(n, 10), nil
	case TypeEnum:
		if !slices.Contains(d.Options, value) {
			return "", d.invalid(raw, "expected one of "+strings.Join(d.Options, ", "))
		}
		return value, nil
	case TypeList:
		return strings.Join(SplitList(value), ","), nil
	case TypeJSON:
		if value == "" {
			return "", d.invalid(raw, "expected a JSON document")
		}
		var buf bytes.Buffer
		if err := json.Compact(&buf, []byte(value)); err != nil {
			return "", d.invalid(raw, "expected a JSON document")
		}
		return buf.String(), nil
	default:
		return value, nil
	}
}

func (d Definition) invalid(raw, reason string) error {
	return shared.ErrValidation.WithMessage(fmt.Sprintf("invalid value %q for setting %s: %s", raw, d.Key, reason))
}

// SplitList splits a comma separated value, dropping blanks
func SplitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
