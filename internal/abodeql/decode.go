package abodeql

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DecodeResults turns flat result rows back into egress-ready values
// using the compiled model projection. Each row must carry the
// concatenated columns of every model in models, in field order.
//
// With returnFields, each result row is the ordered set of requested
// dotted paths; fields echoes that order. Without, each result is the
// root model instance with every joined reference nested under its
// reference name, and fields is the root's flat field list.
func DecodeResults(models []*Model, returnFields []string, rows [][]any) ([]map[string]any, []string, error) {
	if len(models) == 0 {
		return nil, nil, fmt.Errorf("decode: empty model projection")
	}

	width := 0
	for _, m := range models {
		width += len(m.Fields)
	}

	projected := returnFields != nil && !isFlatProjection(models[0], returnFields)
	if projected {
		return decodeProjection(models, returnFields, rows, width)
	}

	results := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		if len(row) != width {
			return nil, nil, fmt.Errorf("decode: row has %d columns, projection needs %d", len(row), width)
		}

		offset := 0
		var root map[string]any
		for i, m := range models {
			instance, err := decodeModel(m, row[offset:offset+len(m.Fields)])
			if err != nil {
				return nil, nil, err
			}
			offset += len(m.Fields)

			if i == 0 {
				root = instance
				continue
			}
			name, ok := models[0].refNameFor(m)
			if !ok {
				return nil, nil, fmt.Errorf("decode: model %q is not referenced by %q", m.Name, models[0].Name)
			}
			root[name] = instance
		}
		results = append(results, root)
	}

	return results, models[0].FieldNames(), nil
}

// isFlatProjection reports whether returnFields is just the root's
// own field list, i.e. no explicit -> clause narrowed the result.
func isFlatProjection(root *Model, returnFields []string) bool {
	names := root.FieldNames()
	if len(returnFields) != len(names) {
		return false
	}
	for i, f := range returnFields {
		if f != names[i] {
			return false
		}
	}
	return true
}

func decodeProjection(models []*Model, returnFields []string, rows [][]any, width int) ([]map[string]any, []string, error) {
	type slot struct {
		offset    int
		fieldType FieldType
	}
	slots := make([]slot, len(returnFields))

	for i, path := range returnFields {
		offset, fieldType, err := columnOffset(models, path)
		if err != nil {
			return nil, nil, err
		}
		slots[i] = slot{offset: offset, fieldType: fieldType}
	}

	results := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		if len(row) != width {
			return nil, nil, fmt.Errorf("decode: row has %d columns, projection needs %d", len(row), width)
		}
		out := make(map[string]any, len(returnFields))
		for i, path := range returnFields {
			out[path] = egressValue(row[slots[i].offset], slots[i].fieldType)
		}
		results = append(results, out)
	}

	return results, returnFields, nil
}

// columnOffset locates a dotted field path inside the flat row: the
// owning model is found by walking refs from the root, and its
// position in the models slice fixes the base offset.
func columnOffset(models []*Model, path string) (int, FieldType, error) {
	owner := models[0]
	field := path
	for {
		name, rest, found := strings.Cut(field, ".")
		if !found {
			break
		}
		ref, ok := owner.RefByName(name)
		if !ok {
			return 0, FieldType{}, &UnknownFieldError{Field: name, Model: owner.Name}
		}
		owner = ref.Target
		field = rest
	}

	base := 0
	located := false
	for _, m := range models {
		if m == owner {
			located = true
			break
		}
		base += len(m.Fields)
	}
	if !located {
		return 0, FieldType{}, fmt.Errorf("decode: field %q needs model %q which is not in the projection", path, owner.Name)
	}

	for i, f := range owner.Fields {
		if f.Name == field {
			return base + i, f.Type, nil
		}
	}
	return 0, FieldType{}, &UnknownFieldError{Field: field, Model: owner.Name}
}

func decodeModel(m *Model, values []any) (map[string]any, error) {
	instance := make(map[string]any, len(m.Fields))
	for i, f := range m.Fields {
		instance[f.Name] = egressValue(values[i], f.Type)
	}
	return instance, nil
}

// egressValue converts a database value to its JSON egress form:
// snowflakes and timestamps become strings, jsonb stays raw.
func egressValue(value any, fieldType FieldType) any {
	if value == nil {
		return nil
	}

	switch fieldType.Kind {
	case KindSnowflake:
		switch v := value.(type) {
		case int64:
			return strconv.FormatInt(v, 10)
		case int32:
			return strconv.FormatInt(int64(v), 10)
		case int:
			return strconv.Itoa(v)
		case string:
			return v
		}
	case KindTimestamp:
		if t, ok := value.(time.Time); ok {
			return t.UTC().Format(time.RFC3339Nano)
		}
	case KindJSONB:
		if b, ok := value.([]byte); ok {
			return json.RawMessage(b)
		}
	}
	return value
}
