package cod

import (
	"fmt"
	"strconv"
	"sync"
)

// Kind identifies which representation a Value carries.
type Kind int

const (
	KindInt Kind = iota
	KindFloat
	KindString
	KindArray
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	default:
		return "Kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Value is one of Int, Float, String or Array.
type Value interface {
	Kind() Kind
	isValue()
}

// Int is an integer value.
type Int int

// Float is a floating point value.
type Float float64

// String is a raw string value.
type String string

// Array is an ordered list of variables.
type Array []Variable

func (Int) Kind() Kind    { return KindInt }
func (Float) Kind() Kind  { return KindFloat }
func (String) Kind() Kind { return KindString }
func (Array) Kind() Kind  { return KindArray }

func (Int) isValue()    {}
func (Float) isValue()  {}
func (String) isValue() {}
func (Array) isValue()  {}

// Variable is a named value attached to an object.
type Variable struct {
	Name  string
	Value Value
}

// Kind returns the kind of the active representation.
func (v Variable) Kind() Kind {
	if v.Value == nil {
		return KindString
	}
	return v.Value.Kind()
}

// Int returns the integer representation, truncating floats and parsing
// numeric strings. ok is false for arrays and non-numeric strings.
func (v Variable) Int() (int, bool) {
	switch x := v.Value.(type) {
	case Int:
		return int(x), true
	case Float:
		return int(x), true
	case String:
		n, err := strconv.Atoi(string(x))
		return n, err == nil
	case Array, nil:
		return 0, false
	default:
		panic(fmt.Sprintf("cod: unexpected value type %T", x))
	}
}

// Float returns the float representation of numeric values.
func (v Variable) Float() (float64, bool) {
	switch x := v.Value.(type) {
	case Int:
		return float64(x), true
	case Float:
		return float64(x), true
	case String:
		f, err := strconv.ParseFloat(string(x), 64)
		return f, err == nil
	case Array, nil:
		return 0, false
	default:
		panic(fmt.Sprintf("cod: unexpected value type %T", x))
	}
}

// String returns the value formatted as text. Arrays are rendered as a
// comma separated list.
func (v Variable) String() string {
	return formatValue(v.Value)
}

// Array returns the array elements, or nil if the variable is not an array.
func (v Variable) Array() []Variable {
	if a, ok := v.Value.(Array); ok {
		return a
	}
	return nil
}

// Len returns the number of array elements, or 0 for scalars.
func (v Variable) Len() int {
	return len(v.Array())
}

// Clone returns a deep copy of the variable.
func (v Variable) Clone() Variable {
	if a, ok := v.Value.(Array); ok {
		elems := make(Array, len(a))
		for i, e := range a {
			elems[i] = e.Clone()
		}
		return Variable{Name: v.Name, Value: elems}
	}
	return v
}

// renamed returns a deep copy of v named name. Array elements take the
// same name.
func (v Variable) renamed(name string) Variable {
	out := Variable{Name: name, Value: v.Value}
	if a, ok := v.Value.(Array); ok {
		elems := make(Array, len(a))
		for i, e := range a {
			elems[i] = e.renamed(name)
		}
		out.Value = elems
	}
	return out
}

func formatValue(val Value) string {
	switch x := val.(type) {
	case Int:
		return strconv.Itoa(int(x))
	case Float:
		return strconv.FormatFloat(float64(x), 'g', -1, 64)
	case String:
		return string(x)
	case Array:
		s := ""
		for i, e := range x {
			if i > 0 {
				s += ", "
			}
			s += formatValue(e.Value)
		}
		return s
	case nil:
		return ""
	default:
		panic(fmt.Sprintf("cod: unexpected value type %T", x))
	}
}

// Object is a named node holding variables and child objects.
type Object struct {
	Name      string
	Variables []Variable
	Objects   []*Object
}

// NewObject creates an empty object.
func NewObject(name string) *Object {
	return &Object{Name: name}
}

// NumVariables returns the number of variables.
func (o *Object) NumVariables() int { return len(o.Variables) }

// VariableAt returns the i-th variable in insertion order.
func (o *Object) VariableAt(i int) Variable { return o.Variables[i] }

// Variable looks up a variable by name.
func (o *Object) Variable(name string) (Variable, bool) {
	if i := o.variableIndex(name); i >= 0 {
		return o.Variables[i], true
	}
	return Variable{}, false
}

func (o *Object) variableIndex(name string) int {
	for i := range o.Variables {
		if o.Variables[i].Name == name {
			return i
		}
	}
	return -1
}

// Set overwrites the variable with the same name or appends a new one.
func (o *Object) Set(v Variable) {
	if i := o.variableIndex(v.Name); i >= 0 {
		o.Variables[i] = v
		return
	}
	o.Variables = append(o.Variables, v)
}

// NumChildren returns the number of child objects.
func (o *Object) NumChildren() int { return len(o.Objects) }

// ChildAt returns the i-th child object.
func (o *Object) ChildAt(i int) *Object { return o.Objects[i] }

// Child returns the first child with the given name, or nil.
func (o *Object) Child(name string) *Object {
	for _, c := range o.Objects {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// Clone returns a deep copy of the object and its subtree.
func (o *Object) Clone() *Object {
	c := &Object{Name: o.Name}
	if o.Variables != nil {
		c.Variables = make([]Variable, len(o.Variables))
		for i, v := range o.Variables {
			c.Variables[i] = v.Clone()
		}
	}
	if o.Objects != nil {
		c.Objects = make([]*Object, len(o.Objects))
		for i, child := range o.Objects {
			c.Objects[i] = child.Clone()
		}
	}
	return c
}

// Diagnostic records a line the parser skipped.
type Diagnostic struct {
	Line   int
	Text   string
	Reason string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("line %d: %s: %s", d.Line, d.Reason, d.Text)
}

// Document represents a decoded COD file.
type Document struct {
	Objects     []*Object
	Diagnostics []Diagnostic

	// Source is the file the document was loaded from, if any.
	Source string
	// FromCache reports whether the tree was read from the cache file.
	FromCache bool

	idsOnce sync.Once
	ids     map[int]*Object
}

// Len returns the number of top-level objects.
func (d *Document) Len() int { return len(d.Objects) }

// At returns the i-th top-level object.
func (d *Document) At(i int) *Object { return d.Objects[i] }

// Object returns the first top-level object with the given name, or nil.
func (d *Document) Object(name string) *Object {
	for _, o := range d.Objects {
		if o.Name == name {
			return o
		}
	}
	return nil
}

// Find walks the tree by child names, starting at the top level.
func (d *Document) Find(path ...string) *Object {
	if len(path) == 0 {
		return nil
	}
	obj := d.Object(path[0])
	for _, name := range path[1:] {
		if obj == nil {
			return nil
		}
		obj = obj.Child(name)
	}
	return obj
}

// ObjectByID returns the object whose "Id" variable equals id. The index
// is built on first use and is safe for concurrent readers; later changes
// to the tree are not seen.
func (d *Document) ObjectByID(id int) *Object {
	d.idsOnce.Do(func() {
		d.ids = make(map[int]*Object)
		for _, o := range d.Objects {
			indexIDs(o, d.ids)
		}
	})
	return d.ids[id]
}

func indexIDs(o *Object, ids map[int]*Object) {
	if v, ok := o.Variable(idVariable); ok {
		if n, ok := v.Value.(Int); ok {
			if _, seen := ids[int(n)]; !seen {
				ids[int(n)] = o
			}
		}
	}
	for _, c := range o.Objects {
		indexIDs(c, ids)
	}
}
