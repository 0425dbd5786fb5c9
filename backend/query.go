package backend

// Op is the comparison applied by a predicate leaf.
type Op int

const (
	// OpEq matches equality; with a nil value it matches null.
	OpEq Op = iota
	// OpNot matches inequality; with a nil value it matches not-null.
	OpNot
	// OpIn matches membership of a scalar column in a value list.
	OpIn
	// OpGt, OpGte and OpLte compare ordered columns.
	OpGt
	OpGte
	OpLte
	// OpContains matches list columns containing every listed value.
	OpContains
	// OpContainsNoCase matches a case-insensitive substring.
	OpContainsNoCase
)

// Cond is one node of a backend-independent predicate tree. The engine
// builds the tree; each backend serializes it into its own filter syntax.
type Cond interface {
	isCond()
}

// Field compares a column of the agent (or feedback) entity.
type Field struct {
	Name  string
	Op    Op
	Value any
}

// Scope nests conditions under a related entity, such as the agent's
// registration file.
type Scope struct {
	Field string
	Conds []Cond
}

// And holds when every child holds. An empty And holds trivially.
type And []Cond

// Or holds when at least one child holds.
type Or []Cond

func (Field) isCond() {}
func (Scope) isCond() {}
func (And) isCond()   {}
func (Or) isCond()    {}

// Eq builds an equality leaf.
func Eq(name string, value any) Field { return Field{Name: name, Op: OpEq, Value: value} }

// Not builds an inequality leaf.
func Not(name string, value any) Field { return Field{Name: name, Op: OpNot, Value: value} }

// Null matches rows where the column is null.
func Null(name string) Field { return Field{Name: name, Op: OpEq, Value: nil} }

// NotNull matches rows where the column is present.
func NotNull(name string) Field { return Field{Name: name, Op: OpNot, Value: nil} }

// In matches rows whose column equals one of the values.
func In[T any](name string, values []T) Field {
	anyValues := make([]any, len(values))
	for i, v := range values {
		anyValues[i] = v
	}
	return Field{Name: name, Op: OpIn, Value: anyValues}
}

// Gt, Gte and Lte build ordered comparisons.
func Gt(name string, value any) Field  { return Field{Name: name, Op: OpGt, Value: value} }
func Gte(name string, value any) Field { return Field{Name: name, Op: OpGte, Value: value} }
func Lte(name string, value any) Field { return Field{Name: name, Op: OpLte, Value: value} }

// ContainsAll matches list columns containing every value.
func ContainsAll[T any](name string, values []T) Field {
	anyValues := make([]any, len(values))
	for i, v := range values {
		anyValues[i] = v
	}
	return Field{Name: name, Op: OpContains, Value: anyValues}
}

// ContainsFold matches a case-insensitive substring.
func ContainsFold(name, substring string) Field {
	return Field{Name: name, Op: OpContainsNoCase, Value: substring}
}

// Direction orders query results.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// AgentQuery pages through agent rows matching a predicate tree.
type AgentQuery struct {
	Where     Cond // nil selects everything
	First     int
	Skip      int
	OrderBy   string
	Direction Direction
}

// MetadataQuery pages through on-chain metadata entries for one key.
// Value, when set, is the "0x"-prefixed hex encoding of the required value;
// empty means key presence alone.
type MetadataQuery struct {
	Key   string
	Value string
	First int
	Skip  int
}

// FeedbackQuery pages through feedback rows matching a predicate tree.
type FeedbackQuery struct {
	Where     Cond
	First     int
	Skip      int
	OrderBy   string
	Direction Direction
}
