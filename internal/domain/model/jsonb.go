package model

import (
	"database/sql/driver"
	"encoding/json"
)

// JSONB stores arbitrary JSON documents in a jsonb column.
type JSONB map[string]interface{}

// Value implements driver.Valuer interface
func (j JSONB) Value() (driver.Value, error) {
	return json.Marshal(j)
}

// Scan implements sql.Scanner interface
func (j *JSONB) Scan(src interface{}) error {
	if src == nil {
		*j = make(JSONB)
		return nil
	}

	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, j)
	case string:
		return json.Unmarshal([]byte(v), j)
	default:
		*j = make(JSONB)
		return nil
	}
}

// Features represents granted visibility flags as JSONB
type Features map[string]interface{}

// Value implements driver.Valuer interface
func (f Features) Value() (driver.Value, error) {
	return json.Marshal(f)
}

// Scan implements sql.Scanner interface
func (f *Features) Scan(src interface{}) error {
	if src == nil {
		*f = make(Features)
		return nil
	}

	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, f)
	case string:
		return json.Unmarshal([]byte(v), f)
	default:
		*f = make(Features)
		return nil
	}
}
