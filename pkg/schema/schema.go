// pkg/schema/schema.go
package schema

import (
	"errors"
	"slices"
	"sort"
	"strings"
	"sync"

	"kuneiform/pkg/action"
	"kuneiform/pkg/procedure"
	"kuneiform/pkg/syntax"
)

var (
	ErrTableNotFound  = errors.New("table not found")
	ErrSchemaNotFound = errors.New("schema not found")
	ErrSchemaExists   = errors.New("schema already exists")
)

// ConstraintType represents the type of a column constraint
type ConstraintType int

const (
	ConstraintPrimaryKey ConstraintType = iota
	ConstraintUnique
	ConstraintNotNull
	ConstraintDefault
	ConstraintMin
	ConstraintMax
	ConstraintMinLength
	ConstraintMaxLength
)

// String returns the string representation of the constraint type
func (ct ConstraintType) String() string {
	switch ct {
	case ConstraintPrimaryKey:
		return "PRIMARY KEY"
	case ConstraintUnique:
		return "UNIQUE"
	case ConstraintNotNull:
		return "NOT NULL"
	case ConstraintDefault:
		return "DEFAULT"
	case ConstraintMin:
		return "MIN"
	case ConstraintMax:
		return "MAX"
	case ConstraintMinLength:
		return "MINLEN"
	case ConstraintMaxLength:
		return "MAXLEN"
	default:
		return "UNKNOWN"
	}
}

// ForeignKeyAction represents the action to take when a referenced row is modified
type ForeignKeyAction int

const (
	FKActionNoAction ForeignKeyAction = iota
	FKActionRestrict
	FKActionCascade
	FKActionSetNull
	FKActionSetDefault
)

// String returns the string representation of the foreign key action
func (fka ForeignKeyAction) String() string {
	switch fka {
	case FKActionNoAction:
		return "NO ACTION"
	case FKActionRestrict:
		return "RESTRICT"
	case FKActionCascade:
		return "CASCADE"
	case FKActionSetNull:
		return "SET NULL"
	case FKActionSetDefault:
		return "SET DEFAULT"
	default:
		return "UNKNOWN"
	}
}

// ForeignKeyEvent is the change to the referenced row an action applies to
type ForeignKeyEvent int

const (
	FKOnUpdate ForeignKeyEvent = iota
	FKOnDelete
)

// String returns the string representation of the event
func (e ForeignKeyEvent) String() string {
	if e == FKOnDelete {
		return "ON DELETE"
	}
	return "ON UPDATE"
}

// IndexType represents the type of index
type IndexType int

const (
	IndexTypeBTree IndexType = iota
	IndexTypeUnique
	IndexTypePrimary
)

// String returns the string representation of the index type
func (it IndexType) String() string {
	switch it {
	case IndexTypeBTree:
		return "INDEX"
	case IndexTypeUnique:
		return "UNIQUE"
	case IndexTypePrimary:
		return "PRIMARY"
	default:
		return "UNKNOWN"
	}
}

// Modifier is an access modifier on an action or procedure
type Modifier int

const (
	ModifierPublic Modifier = iota
	ModifierPrivate
	ModifierView
	ModifierOwner
)

// String returns the keyword for the modifier
func (m Modifier) String() string {
	switch m {
	case ModifierPublic:
		return "public"
	case ModifierPrivate:
		return "private"
	case ModifierView:
		return "view"
	case ModifierOwner:
		return "owner"
	default:
		return "unknown"
	}
}

// LookupModifier matches an access modifier keyword case-insensitively.
func LookupModifier(word string) (Modifier, bool) {
	switch strings.ToLower(word) {
	case "public":
		return ModifierPublic, true
	case "private":
		return ModifierPrivate, true
	case "view":
		return ModifierView, true
	case "owner":
		return ModifierOwner, true
	}
	return 0, false
}

// LiteralKind distinguishes literal values
type LiteralKind int

const (
	LiteralText LiteralKind = iota
	LiteralNumber
	LiteralBlob
	LiteralBoolean
	LiteralNull
)

// String returns the string representation of the literal kind
func (k LiteralKind) String() string {
	switch k {
	case LiteralText:
		return "TEXT"
	case LiteralNumber:
		return "NUMBER"
	case LiteralBlob:
		return "BLOB"
	case LiteralBoolean:
		return "BOOLEAN"
	case LiteralNull:
		return "NULL"
	default:
		return "UNKNOWN"
	}
}

// Literal is a constant in a column constraint or extension config. Text
// values are unescaped.
type Literal struct {
	Kind  LiteralKind
	Value string
}

// DataType is a column, parameter or return type
type DataType struct {
	Name     string
	Metadata []int // decimal(10, 2)
	IsArray  bool
}

// Schema is a parsed Kuneiform document
type Schema struct {
	Name              string // database name
	Uses              []*Use
	Tables            []*Table
	Actions           []*Action
	Procedures        []*Procedure
	ForeignProcedures []*ForeignProcedure
	Span              syntax.Span
}

// ConfigEntry is one key: value pair of an extension initialization
type ConfigEntry struct {
	Key   string
	Value *Literal
}

// Use imports an extension under an alias
type Use struct {
	Extension string
	Config    []*ConfigEntry // in source order, duplicates kept
	Alias     string
	Span      syntax.Span
}

// Constraint is a column-level constraint. Value holds the argument of
// DEFAULT, MIN, MAX, MINLEN and MAXLEN.
type Constraint struct {
	Type  ConstraintType
	Value *Literal
}

// Column defines a table column
type Column struct {
	Name        string
	Type        *DataType
	Constraints []*Constraint
	Span        syntax.Span
}

// HasConstraint returns true if the column has a constraint of the given type
func (c *Column) HasConstraint(ct ConstraintType) bool {
	return c.GetConstraint(ct) != nil
}

// GetConstraint returns the first constraint of the given type, or nil if not found
func (c *Column) GetConstraint(ct ConstraintType) *Constraint {
	for _, con := range c.Constraints {
		if con.Type == ct {
			return con
		}
	}
	return nil
}

// Index is a named table index, #name kind(columns)
type Index struct {
	Name    string // without the leading #
	Type    IndexType
	Columns []string
	Span    syntax.Span
}

// ForeignKeyClause is one ON UPDATE or ON DELETE action
type ForeignKeyClause struct {
	On ForeignKeyEvent
	Do ForeignKeyAction
}

// ForeignKey is a table-level foreign key
type ForeignKey struct {
	Columns    []string
	RefTable   string
	RefColumns []string
	Actions    []*ForeignKeyClause
	Span       syntax.Span
}

// Action returns the action for event, or FKActionNoAction if none is set.
func (fk *ForeignKey) Action(event ForeignKeyEvent) ForeignKeyAction {
	for _, a := range fk.Actions {
		if a.On == event {
			return a.Do
		}
	}
	return FKActionNoAction
}

// Table defines a table
type Table struct {
	Name        string
	Columns     []*Column
	Indexes     []*Index
	ForeignKeys []*ForeignKey
	Span        syntax.Span
}

// GetColumn returns the column definition and index by name.
// Returns (nil, -1) if not found. Names match exactly.
func (t *Table) GetColumn(name string) (*Column, int) {
	for i, col := range t.Columns {
		if col.Name == name {
			return col, i
		}
	}
	return nil, -1
}

// PrimaryKey returns the primary key column names: the columns marked
// primary key, or else the columns of a primary index.
func (t *Table) PrimaryKey() []string {
	var cols []string
	for _, col := range t.Columns {
		if col.HasConstraint(ConstraintPrimaryKey) {
			cols = append(cols, col.Name)
		}
	}
	if len(cols) > 0 {
		return cols
	}
	for _, idx := range t.Indexes {
		if idx.Type == IndexTypePrimary {
			return idx.Columns
		}
	}
	return nil
}

// Param is a typed procedure parameter or a named return column
type Param struct {
	Name string
	Type *DataType
}

// Returns describes what a procedure returns. Unnamed return types are
// named col0, col1, ...
type Returns struct {
	IsTable bool
	Fields  []*Param
}

// Action is an action declaration. Body is the source between the braces,
// trimmed; BodySpan locates it in the document. Statements is set once the
// body has been parsed.
type Action struct {
	Annotations []string
	Name        string
	Params      []string
	Modifiers   []Modifier
	Body        string
	BodySpan    syntax.Span
	Statements  []action.Statement
	Span        syntax.Span
}

// Procedure is a procedure declaration
type Procedure struct {
	Annotations []string
	Name        string
	Params      []*Param
	Modifiers   []Modifier
	Returns     *Returns
	Body        string
	BodySpan    syntax.Span
	Statements  []procedure.Statement
	Span        syntax.Span
}

// ForeignProcedure declares the signature of a procedure in another schema
type ForeignProcedure struct {
	Name    string
	Params  []*DataType
	Returns *Returns
	Span    syntax.Span
}

// GetTable returns a table by its exact name.
func (s *Schema) GetTable(name string) (*Table, error) {
	for _, t := range s.Tables {
		if t.Name == name {
			return t, nil
		}
	}
	return nil, ErrTableNotFound
}

// Extend returns a new schema holding s's declarations followed by
// other's. Neither input is modified. The result keeps s's name and span.
func (s *Schema) Extend(other *Schema) *Schema {
	out := *s
	out.Uses = append(slices.Clip(s.Uses), other.Uses...)
	out.Tables = append(slices.Clip(s.Tables), other.Tables...)
	out.Actions = append(slices.Clip(s.Actions), other.Actions...)
	out.Procedures = append(slices.Clip(s.Procedures), other.Procedures...)
	out.ForeignProcedures = append(slices.Clip(s.ForeignProcedures), other.ForeignProcedures...)
	return &out
}

// ForeignKeyReference represents a foreign key that references a specific table/column
type ForeignKeyReference struct {
	ReferencingTable   string
	ReferencingColumns []string
	OnDelete           ForeignKeyAction
	OnUpdate           ForeignKeyAction
}

// GetForeignKeyReferences returns all foreign keys referencing the given
// table and column.
func (s *Schema) GetForeignKeyReferences(tableName, columnName string) []ForeignKeyReference {
	var refs []ForeignKeyReference
	for _, table := range s.Tables {
		for _, fk := range table.ForeignKeys {
			if fk.RefTable != tableName {
				continue
			}
			for _, refCol := range fk.RefColumns {
				if refCol == columnName {
					refs = append(refs, ForeignKeyReference{
						ReferencingTable:   table.Name,
						ReferencingColumns: fk.Columns,
						OnDelete:           fk.Action(FKOnDelete),
						OnUpdate:           fk.Action(FKOnUpdate),
					})
					break
				}
			}
		}
	}
	return refs
}

// Catalog holds parsed schemas by database name. It is safe for concurrent use.
type Catalog struct {
	mu      sync.RWMutex
	schemas map[string]*Schema
}

// NewCatalog creates a new empty catalog
func NewCatalog() *Catalog {
	return &Catalog{schemas: make(map[string]*Schema)}
}

// Add registers a schema, failing if its database name is taken
func (c *Catalog) Add(s *Schema) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.schemas[s.Name]; exists {
		return ErrSchemaExists
	}
	c.schemas[s.Name] = s
	return nil
}

// Put registers a schema, replacing any with the same database name. It
// reports whether one was replaced.
func (c *Catalog) Put(s *Schema) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, exists := c.schemas[s.Name]
	c.schemas[s.Name] = s
	return exists
}

// Drop removes a schema
func (c *Catalog) Drop(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.schemas[name]; !exists {
		return ErrSchemaNotFound
	}
	delete(c.schemas, name)
	return nil
}

// Get returns a schema by database name, or nil
func (c *Catalog) Get(name string) *Schema {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.schemas[name]
}

// List returns all database names in sorted order
func (c *Catalog) List() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.schemas))
	for name := range c.schemas {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of schemas
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.schemas)
}
