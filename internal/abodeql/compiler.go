package abodeql

import (
	"fmt"
	"strings"
)

// CompileOptions controls compilation. The zero value is the
// documented default for every option.
type CompileOptions struct {
	// Limit caps the result set; 0 omits the LIMIT clause.
	Limit int
	// Offset skips rows; emitted only when Limit is also positive.
	Offset int
	// OrderBy is a dotted field path resolved against the root model.
	OrderBy string
	// OrderDir is ASC or DESC; empty means ASC.
	OrderDir string
	// IncludeForeignData appends always-join reference models (and any
	// reference already joined by the WHERE clause) to the projection.
	IncludeForeignData bool
	// SubqueryOptimize rewrites one-level foreign field labels as IN
	// subqueries instead of joins.
	SubqueryOptimize bool
	// Returns includes the ReturnFields slice in the result.
	Returns bool
}

// CompileResult is a compiled query: SQL with $1..$N placeholders,
// the positional arguments, the ordered models whose columns appear
// in the SELECT list, and (when requested) the projected field paths.
type CompileResult struct {
	SQL          string
	Args         []any
	Models       []*Model
	ReturnFields []string
}

// CompileQuery parses a query string and compiles it into SQL against
// the given root model. All user-sourced values flow through Args;
// nothing is interpolated into the SQL text.
func CompileQuery(query string, model *Model, opts CompileOptions) (*CompileResult, error) {
	nodes, err := Parse(query)
	if err != nil {
		return nil, err
	}

	c := &compiler{
		root:     model,
		opts:     opts,
		joins:    newJoinSet(),
		varIndex: 1,
	}

	var fragments []string
	for _, node := range nodes {
		fragment, err := c.compileNode(node, binding{})
		if err != nil {
			return nil, err
		}
		if fragment != "" {
			fragments = append(fragments, fragment)
		}
	}

	orderClause, err := c.compileOrder()
	if err != nil {
		return nil, err
	}

	// Joins needed to reach projected fields are added even when the
	// WHERE clause never touched them.
	for _, field := range c.returnFields {
		_, _, joins, err := resolveField(field, c.root)
		if err != nil {
			return nil, err
		}
		c.joins.merge(joins)
	}

	models := []*Model{c.root}
	if opts.IncludeForeignData {
		for _, ref := range c.root.Refs {
			switch {
			case ref.AlwaysJoin:
				c.joins.add(ref.Target.Table, joinCondition(c.root, ref))
				models = append(models, ref.Target)
			case c.joins.has(ref.Target.Table):
				models = append(models, ref.Target)
			}
		}
	}

	var sql strings.Builder
	sql.WriteString("SELECT ")
	if len(models) == 1 {
		sql.WriteString(c.root.Table + ".*")
	} else {
		selectors := make([]string, len(models))
		for i, m := range models {
			selectors[i] = Selector(m)
		}
		sql.WriteString(strings.Join(selectors, ", "))
	}
	sql.WriteString(" FROM " + c.root.Table)

	for _, table := range c.joins.tables {
		sql.WriteString(fmt.Sprintf(" JOIN %s ON %s", table, c.joins.conds[table]))
	}

	if len(fragments) > 0 {
		sql.WriteString(" WHERE " + strings.Join(fragments, " "))
	}
	sql.WriteString(orderClause)

	if opts.Limit > 0 {
		fmt.Fprintf(&sql, " LIMIT %d", opts.Limit)
		if opts.Offset > 0 {
			fmt.Fprintf(&sql, " OFFSET %d", opts.Offset)
		}
	}

	result := &CompileResult{
		SQL:    sql.String(),
		Args:   c.args,
		Models: models,
	}
	if opts.Returns {
		if c.hasReturn {
			result.ReturnFields = c.returnFields
		} else {
			result.ReturnFields = c.root.FieldNames()
		}
	}
	return result, nil
}

// Selector returns the fully qualified, comma-separated column list
// of a model, preserving field order.
func Selector(m *Model) string {
	columns := make([]string, len(m.Fields))
	for i, f := range m.Fields {
		columns[i] = m.Table + "." + f.Name
	}
	return strings.Join(columns, ", ")
}

// binding is the field context threaded through compilation: the
// resolved column a label bound, its effective type, and the exact
// flag propagated from the label into its descendants.
type binding struct {
	column    string
	fieldType effectiveType
	bound     bool
	exact     bool
}

type compiler struct {
	root         *Model
	opts         CompileOptions
	joins        *joinSet
	args         []any
	varIndex     int
	hasReturn    bool
	returnFields []string
}

func (c *compiler) compileNode(node Node, b binding) (string, error) {
	switch n := node.(type) {
	case *Label:
		return c.compileLabel(n, b)

	case *Symbol:
		if n.IsJoiner() || n.Value == wordNot {
			return n.Value, nil
		}
		if b.bound {
			return c.compileComparison(n, b)
		}
		// An unbound symbol is a reference traversal: it contributes
		// its joins and matches everything.
		if joins, ok := resolveRefPath(n.Value, c.root); ok {
			c.joins.merge(joins)
			return "true", nil
		}
		return "", &UnlabeledSymbolError{Symbol: n.Value}

	case *String:
		if !b.bound {
			return "", &UnlabeledSymbolError{Symbol: n.Value}
		}
		return c.compileComparison(n, b)

	case *Regex:
		if !b.bound {
			return "", &UnlabeledSymbolError{Symbol: n.Pattern}
		}
		fragment := fmt.Sprintf("%s %s $%d", b.column, regexOp(n), c.varIndex)
		c.args = append(c.args, n.Pattern)
		c.varIndex++
		return fragment, nil

	case *Group:
		var parts []string
		for _, child := range n.Children {
			fragment, err := c.compileNode(child, b)
			if err != nil {
				return "", err
			}
			if fragment != "" {
				parts = append(parts, fragment)
			}
		}
		return "(" + strings.Join(parts, " ") + ")", nil

	case *Return:
		if c.hasReturn {
			return "", &ParseError{Message: "multiple return clauses"}
		}
		c.hasReturn = true
		c.returnFields = n.Fields
		return "", nil

	default:
		return "", &ParseError{Message: fmt.Sprintf("unexpected node %T", node)}
	}
}

func (c *compiler) compileLabel(label *Label, b binding) (string, error) {
	if c.opts.SubqueryOptimize {
		if fragment, ok, err := c.compileSubquery(label); err != nil {
			return "", err
		} else if ok {
			return fragment, nil
		}
	}

	column, fieldType, joins, err := resolveField(label.Name, c.root)
	if err != nil {
		return "", err
	}
	c.joins.merge(joins)

	return c.compileNode(label.Value, binding{
		column:    column,
		fieldType: fieldType,
		bound:     true,
		exact:     label.Exact || b.exact,
	})
}

func (c *compiler) compileComparison(token Node, b binding) (string, error) {
	op, err := selectOperator(b.fieldType, token, b.exact, c.varIndex)
	if err != nil {
		return "", err
	}
	c.args = append(c.args, op.arg)
	c.varIndex++
	return fmt.Sprintf("%s %s %s", b.column, op.op, op.varText), nil
}

// compileSubquery rewrites a one-level foreign scalar label as
//
//	local IN (SELECT foreign FROM ftable WHERE col op $n)
//
// emitting no join. Deeper paths, group values, and unknown refs fall
// back to the join path (ok=false).
func (c *compiler) compileSubquery(label *Label) (string, bool, error) {
	refName, rest, found := strings.Cut(label.Name, ".")
	if !found || strings.Contains(rest, ".") {
		return "", false, nil
	}
	ref, ok := c.root.RefByName(refName)
	if !ok {
		return "", false, nil
	}

	column, fieldType, _, err := resolveField(rest, ref.Target)
	if err != nil {
		return "", false, err
	}

	var condition string
	switch value := label.Value.(type) {
	case *Symbol, *String:
		op, err := selectOperator(fieldType, value, label.Exact, c.varIndex)
		if err != nil {
			return "", false, err
		}
		c.args = append(c.args, op.arg)
		c.varIndex++
		condition = fmt.Sprintf("%s %s %s", column, op.op, op.varText)
	case *Regex:
		condition = fmt.Sprintf("%s %s $%d", column, regexOp(value), c.varIndex)
		c.args = append(c.args, value.Pattern)
		c.varIndex++
	default:
		return "", false, nil
	}

	fragment := fmt.Sprintf("%s.%s IN (SELECT %s FROM %s WHERE %s)",
		c.root.Table, ref.Local, ref.Foreign, ref.Target.Table, condition)
	return fragment, true, nil
}

func (c *compiler) compileOrder() (string, error) {
	if c.opts.OrderBy == "" {
		return "", nil
	}
	dir := c.opts.OrderDir
	if dir == "" {
		dir = "ASC"
	}
	if dir != "ASC" && dir != "DESC" {
		return "", &OrderDirectionError{Dir: c.opts.OrderDir}
	}

	column, _, joins, err := resolveField(c.opts.OrderBy, c.root)
	if err != nil {
		return "", err
	}
	c.joins.merge(joins)
	return fmt.Sprintf(" ORDER BY %s %s", column, dir), nil
}

func regexOp(r *Regex) string {
	if r.CaseInsensitive {
		return "~*"
	}
	return "~"
}
