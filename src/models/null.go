package models

import (
	"database/sql"
	"database/sql/driver"
	"encoding/json"
)

// NullString is an alias for sql.NullString with JSON null handling.
type NullString sql.NullString

// NewNullString returns a valid NullString holding s.
func NewNullString(s string) NullString {
	return NullString{String: s, Valid: true}
}

func (ns NullString) MarshalJSON() ([]byte, error) {
	if !ns.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(ns.String)
}

func (ns *NullString) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*ns = NullString{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*ns = NullString{String: s, Valid: true}
	return nil
}

// Scan implements sql.Scanner.
func (ns *NullString) Scan(value any) error {
	var s sql.NullString
	if err := s.Scan(value); err != nil {
		return err
	}
	*ns = NullString(s)
	return nil
}

// Value implements driver.Valuer.
func (ns NullString) Value() (driver.Value, error) {
	if !ns.Valid {
		return nil, nil
	}
	return ns.String, nil
}
