package abodeql

import (
	"fmt"
	"strconv"
	"strings"
)

// operation is one compiled comparison: the SQL operator, the
// argument value for the placeholder, and the placeholder text
// itself (usually $n, wrapped for full-text matches).
type operation struct {
	op      string
	arg     any
	varText string
}

// selectOperator picks the SQL operator and argument for one token
// against a resolved field type. n is the 1-based index the next
// placeholder should use. Nullability does not affect selection.
func selectOperator(fieldType effectiveType, token Node, exact bool, n int) (operation, error) {
	value, quoted, err := tokenText(fieldType, token)
	if err != nil {
		return operation{}, err
	}

	if fieldType.FTS {
		return operation{op: "@@", arg: value, varText: fmt.Sprintf("to_tsquery($%d)", n)}, nil
	}

	placeholder := fmt.Sprintf("$%d", n)

	switch fieldType.Kind {
	case KindSnowflake, KindInteger:
		parsed, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return operation{}, &UnsupportedTypeError{Type: string(fieldType.Kind), Token: value}
		}
		return operation{op: "=", arg: parsed, varText: placeholder}, nil

	case KindString:
		if exact {
			return operation{op: "=", arg: value, varText: placeholder}, nil
		}
		if quoted {
			// ILIKE without wildcards just buys case-insensitivity.
			return operation{op: "ILIKE", arg: value, varText: placeholder}, nil
		}
		if strings.Contains(value, "*") {
			return operation{op: "ILIKE", arg: strings.ReplaceAll(value, "*", "%"), varText: placeholder}, nil
		}
		return operation{op: "ILIKE", arg: "%" + value + "%", varText: placeholder}, nil

	default:
		return operation{}, &UnsupportedTypeError{Type: string(fieldType.Kind), Token: value}
	}
}

// tokenText extracts the raw text of a symbol or string token.
// Regex tokens never reach the selector; they emit directly.
func tokenText(fieldType effectiveType, token Node) (value string, quoted bool, err error) {
	switch t := token.(type) {
	case *Symbol:
		return t.Value, false, nil
	case *String:
		return t.Value, true, nil
	default:
		return "", false, &UnsupportedTypeError{Type: string(fieldType.Kind)}
	}
}
