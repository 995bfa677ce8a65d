package abodeql

import (
	"fmt"
	"strings"
)

// effectiveType is a field's declared type plus the FTS wrapping the
// resolver applies when the field is full-text searchable.
type effectiveType struct {
	FieldType
	FTS bool
}

// resolveField maps a dotted field path to a qualified column, its
// effective type, and the joins needed to reach it. Reference
// segments may nest arbitrarily deep; the join set is the union of
// every step traversed, in traversal order.
func resolveField(path string, model *Model) (string, effectiveType, *joinSet, error) {
	joins := newJoinSet()

	if name, rest, found := strings.Cut(path, "."); found {
		ref, ok := model.RefByName(name)
		if !ok {
			return "", effectiveType{}, nil, &UnknownFieldError{Field: name, Model: model.Name}
		}
		joins.add(ref.Target.Table, joinCondition(model, ref))

		column, fieldType, restJoins, err := resolveField(rest, ref.Target)
		if err != nil {
			return "", effectiveType{}, nil, err
		}
		joins.merge(restJoins)
		return column, fieldType, joins, nil
	}

	field, ok := model.FieldByName(path)
	if !ok {
		return "", effectiveType{}, nil, &UnknownFieldError{Field: path, Model: model.Name}
	}

	if model.IsFTS(path) {
		column := fmt.Sprintf("to_tsvector('english', %s.%s)", model.Table, path)
		return column, effectiveType{FieldType: field.Type, FTS: true}, joins, nil
	}

	return model.Table + "." + path, effectiveType{FieldType: field.Type}, joins, nil
}

// resolveRefPath walks a dotted reference path (no terminal field)
// and returns the joins it implies. Used for bare-symbol traversals.
func resolveRefPath(path string, model *Model) (*joinSet, bool) {
	joins := newJoinSet()
	current := model
	for _, name := range strings.Split(path, ".") {
		ref, ok := current.RefByName(name)
		if !ok {
			return nil, false
		}
		joins.add(ref.Target.Table, joinCondition(current, ref))
		current = ref.Target
	}
	return joins, true
}

func joinCondition(model *Model, ref Ref) string {
	return fmt.Sprintf("%s.%s = %s.%s", model.Table, ref.Local, ref.Target.Table, ref.Foreign)
}
