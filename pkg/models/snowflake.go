// Package models defines the archived Discord entities and their
// search descriptors.
package models

import (
	"fmt"
	"strconv"
	"strings"
)

// Snowflake is a 64-bit Discord identifier. It is stored as an
// integer in SQL and serialised as a decimal string in JSON, since
// the values exceed what JavaScript numbers represent losslessly.
type Snowflake int64

// ParseSnowflake parses a decimal-string identifier.
func ParseSnowflake(s string) (Snowflake, error) {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid snowflake %q: %w", s, err)
	}
	return Snowflake(v), nil
}

func (s Snowflake) String() string {
	return strconv.FormatInt(int64(s), 10)
}

// Int64 returns the SQL representation.
func (s Snowflake) Int64() int64 { return int64(s) }

// MarshalJSON emits the decimal-string form.
func (s Snowflake) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// UnmarshalJSON accepts both string and bare-number forms.
func (s *Snowflake) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(string(data), `"`)
	if raw == "" || raw == "null" {
		*s = 0
		return nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid snowflake %q: %w", raw, err)
	}
	*s = Snowflake(v)
	return nil
}

// nullableID converts an optional snowflake for the write path.
func nullableID(s *Snowflake) any {
	if s == nil {
		return nil
	}
	return s.Int64()
}
