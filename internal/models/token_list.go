package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// TokenList is an ordered list of string tokens (role names, member ids)
// stored as a JSON array in a text column. An empty list is stored as NULL
// and means "no restriction".
type TokenList []string

func (l TokenList) Value() (driver.Value, error) {
	if len(l) == 0 {
		return nil, nil
	}
	b, err := json.Marshal([]string(l))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (l *TokenList) Scan(src interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*l = nil
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("token list: unsupported column type %T", src)
	}
	if len(raw) == 0 {
		*l = nil
		return nil
	}
	var tokens []string
	if err := json.Unmarshal(raw, &tokens); err != nil {
		return fmt.Errorf("token list: %w", err)
	}
	*l = TokenList(tokens)
	return nil
}

// Contains reports whether token is present in the list.
func (l TokenList) Contains(token string) bool {
	for _, t := range l {
		if t == token {
			return true
		}
	}
	return false
}

// MarshalJSON always renders an array so clients never see null.
func (l TokenList) MarshalJSON() ([]byte, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]string(l))
}
