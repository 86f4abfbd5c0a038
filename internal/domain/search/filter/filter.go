// Package filter holds backend-neutral pre-filters for search queries:
// exact tag matches and numeric ranges combined with must, should and
// must-not groups.
package filter

// Expression is a conjunction of must conditions, at least one should
// condition (when any are given) and no must-not condition. The zero
// value matches everything.
type Expression struct {
	must    []Condition
	should  []Condition
	mustNot []Condition
}

func (e Expression) Must() []Condition    { return e.must }
func (e Expression) Should() []Condition  { return e.should }
func (e Expression) MustNot() []Condition { return e.mustNot }

// WithMust returns a copy of e with conds added to the must group.
func (e Expression) WithMust(conds ...Condition) Expression {
	e.must = extend(e.must, conds)
	return e
}

// WithShould returns a copy of e with conds added to the should group.
func (e Expression) WithShould(conds ...Condition) Expression {
	e.should = extend(e.should, conds)
	return e
}

// WithMustNot returns a copy of e with conds added to the must-not group.
func (e Expression) WithMustNot(conds ...Condition) Expression {
	e.mustNot = extend(e.mustNot, conds)
	return e
}

// IsEmpty reports whether e has no conditions.
func (e Expression) IsEmpty() bool {
	return len(e.must)+len(e.should)+len(e.mustNot) == 0
}

// extend never appends in place, so expressions derived from one base do
// not share backing arrays.
func extend(group, conds []Condition) []Condition {
	out := make([]Condition, 0, len(group)+len(conds))
	return append(append(out, group...), conds...)
}

// Condition is either a tag match or a numeric range on one field.
type Condition struct {
	key   string
	match string
	rng   *Range
}

// Match matches documents whose tag field key contains value exactly.
func Match(key, value string) Condition {
	return Condition{key: key, match: value}
}

// AtLeast matches key >= v.
func AtLeast(key string, v float64) Condition {
	return Condition{key: key, rng: &Range{Min: &Bound{Value: v}}}
}

// Above matches key > v.
func Above(key string, v float64) Condition {
	return Condition{key: key, rng: &Range{Min: &Bound{Value: v, Exclusive: true}}}
}

// Between matches lo <= key <= hi.
func Between(key string, lo, hi float64) Condition {
	return Condition{key: key, rng: &Range{Min: &Bound{Value: lo}, Max: &Bound{Value: hi}}}
}

func (c Condition) Key() string   { return c.key }
func (c Condition) Match() string { return c.match }
func (c Condition) Range() *Range { return c.rng }
func (c Condition) IsMatch() bool { return c.rng == nil && c.match != "" }
func (c Condition) IsRange() bool { return c.rng != nil }

// Range is a numeric interval. A nil bound is unbounded on that side.
type Range struct {
	Min *Bound
	Max *Bound
}

// Bound is one end of a Range.
type Bound struct {
	Value     float64
	Exclusive bool
}
