package setting

import (
	"database/sql/driver"
	"fmt"
	"strings"
)

// ValueType is the declared type of a setting value. Values are always
// persisted as strings; the type decides how they are parsed and re-encoded.
type ValueType string

const (
	// TypeBool is "true" or "false"
	TypeBool ValueType = "bool"
	// TypeInt is a base-10 integer
	TypeInt ValueType = "int"
	// TypeString is free text, trimmed
	TypeString ValueType = "string"
	// TypeEnum is one of a declared set of options
	TypeEnum ValueType = "enum"
	// TypeList is a comma separated list
	TypeList ValueType = "list"
	// TypeJSON is a JSON document, stored compacted
	TypeJSON ValueType = "json"
)

// AllValueTypes returns all valid value types
func AllValueTypes() []ValueType {
	return []ValueType{TypeBool, TypeInt, TypeString, TypeEnum, TypeList, TypeJSON}
}

// IsValid checks if the value type is valid
func (t ValueType) IsValid() bool {
	switch t {
	case TypeBool, TypeInt, TypeString, TypeEnum, TypeList, TypeJSON:
		return true
	default:
		return false
	}
}

// String returns the string representation of the value type
func (t ValueType) String() string {
	return string(t)
}

// Scan implements the sql.Scanner interface
func (t *ValueType) Scan(value any) error {
	if value == nil {
		return nil
	}
	s, ok := value.(string)
	if !ok {
		return fmt.Errorf("setting: cannot scan type %T into ValueType", value)
	}
	*t = ValueType(strings.ToLower(s))
	if !t.IsValid() {
		return fmt.Errorf("setting: invalid value type: %s", s)
	}
	return nil
}

// Value implements the driver.Valuer interface
func (t ValueType) Value() (driver.Value, error) {
	return string(t), nil
}
