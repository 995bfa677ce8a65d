package abodeql

// Kind is the semantic type of a model field. It drives operator
// selection at compile time and egress conversion at decode time.
type Kind string

const (
	KindString    Kind = "string"
	KindInteger   Kind = "integer"
	KindSnowflake Kind = "snowflake"
	KindBoolean   Kind = "boolean"
	KindTimestamp Kind = "timestamp"
	KindJSONB     Kind = "jsonb"
)

// FieldType is a Kind plus nullability.
type FieldType struct {
	Kind     Kind `json:"kind"`
	Nullable bool `json:"nullable,omitempty"`
}

// Base field types. Optional wraps any of them.
var (
	TypeString    = FieldType{Kind: KindString}
	TypeInteger   = FieldType{Kind: KindInteger}
	TypeSnowflake = FieldType{Kind: KindSnowflake}
	TypeBoolean   = FieldType{Kind: KindBoolean}
	TypeTimestamp = FieldType{Kind: KindTimestamp}
	TypeJSONB     = FieldType{Kind: KindJSONB}
)

// Optional returns the nullable variant of t.
func Optional(t FieldType) FieldType {
	t.Nullable = true
	return t
}

// Field is one named column of a model. Field order fixes the column
// order used when decoding result rows.
type Field struct {
	Name string    `json:"name"`
	Type FieldType `json:"type"`
}

// Ref is a typed pointer from one model to another. Local and Foreign
// name the join columns on the owning and target tables.
type Ref struct {
	Name       string `json:"name"`
	Target     *Model `json:"-"`
	Local      string `json:"local"`
	Foreign    string `json:"foreign"`
	AlwaysJoin bool   `json:"always_join,omitempty"`
}

// Model describes one table: its columns in order, its primary key,
// the set of full-text fields, and its references to other models.
type Model struct {
	Name       string  `json:"name"`
	Table      string  `json:"table"`
	PrimaryKey string  `json:"primary_key"`
	Fields     []Field `json:"fields"`
	Refs       []Ref   `json:"refs,omitempty"`

	fts map[string]bool
}

// NewModel starts a model descriptor for the given table. Describe
// columns and references with the chained Field/FTS/Ref calls.
func NewModel(name, table, primaryKey string) *Model {
	return &Model{
		Name:       name,
		Table:      table,
		PrimaryKey: primaryKey,
		fts:        map[string]bool{},
	}
}

// Field appends a column.
func (m *Model) Field(name string, t FieldType) *Model {
	m.Fields = append(m.Fields, Field{Name: name, Type: t})
	return m
}

// FTS marks a previously declared field as full-text searchable.
func (m *Model) FTS(name string) *Model {
	m.fts[name] = true
	return m
}

// Ref declares a reference to another model. Declaration order is the
// order refs are considered for foreign-data projection.
func (m *Model) Ref(name string, target *Model, local, foreign string, alwaysJoin bool) *Model {
	m.Refs = append(m.Refs, Ref{
		Name:       name,
		Target:     target,
		Local:      local,
		Foreign:    foreign,
		AlwaysJoin: alwaysJoin,
	})
	return m
}

// FieldByName looks up a declared field.
func (m *Model) FieldByName(name string) (Field, bool) {
	for _, f := range m.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// RefByName looks up a declared reference.
func (m *Model) RefByName(name string) (Ref, bool) {
	for _, r := range m.Refs {
		if r.Name == name {
			return r, true
		}
	}
	return Ref{}, false
}

// IsFTS reports whether the named field is full-text searchable.
func (m *Model) IsFTS(name string) bool { return m.fts[name] }

// FieldNames returns the declared field names in order.
func (m *Model) FieldNames() []string {
	names := make([]string, len(m.Fields))
	for i, f := range m.Fields {
		names[i] = f.Name
	}
	return names
}

// refNameFor returns the name of the first ref pointing at target.
func (m *Model) refNameFor(target *Model) (string, bool) {
	for _, r := range m.Refs {
		if r.Target == target {
			return r.Name, true
		}
	}
	return "", false
}

// joinSet is an insertion-ordered table → ON-clause mapping.
// Deduplication is by table, not by clause.
type joinSet struct {
	tables []string
	conds  map[string]string
}

func newJoinSet() *joinSet {
	return &joinSet{conds: map[string]string{}}
}

func (j *joinSet) add(table, cond string) {
	if _, ok := j.conds[table]; ok {
		return
	}
	j.tables = append(j.tables, table)
	j.conds[table] = cond
}

func (j *joinSet) merge(other *joinSet) {
	for _, t := range other.tables {
		j.add(t, other.conds[t])
	}
}

func (j *joinSet) has(table string) bool {
	_, ok := j.conds[table]
	return ok
}
