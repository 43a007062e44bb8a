package cod

import (
	"strconv"

	"github.com/dlclark/regexp2"
	"go.uber.org/zap"
)

// Diagnostic reasons.
const (
	ReasonUnrecognized   = "unrecognized line"
	ReasonUnbalanced     = "EndObj without open object"
	ReasonFillOutside    = "ObjFill outside object"
	ReasonUnresolvedFill = "unresolved ObjFill source"
	ReasonOverflow       = "integer out of range"
)

// idVariable is the variable that registers an object for ObjFill imports.
const idVariable = "Id"

// stackEntry is an open object during parsing.
type stackEntry struct {
	obj      *Object
	indent   int
	numbered bool
}

// state is the working state of a single parse.
type state struct {
	log       *zap.Logger
	doc       *Document
	line      Line
	stack     []stackEntry
	constants map[string]Variable
	ids       map[int]*Object
	idOf      map[*Object]int
	counter   int
	fill      *fillRange
}

func newState(p *Parser) *state {
	return &state{
		log:       p.logger,
		doc:       &Document{},
		constants: make(map[string]Variable),
		ids:       make(map[int]*Object),
		idOf:      make(map[*Object]int),
	}
}

func (s *state) diagnose(reason string) {
	s.doc.Diagnostics = append(s.doc.Diagnostics, Diagnostic{
		Line:   s.line.Number,
		Text:   s.line.Text,
		Reason: reason,
	})
	s.log.Debug(reason, zap.Int("line", s.line.Number), zap.String("text", s.line.Text))
}

func (s *state) top() *stackEntry {
	if len(s.stack) == 0 {
		return nil
	}
	return &s.stack[len(s.stack)-1]
}

// current returns the object receiving variables, or nil at top level.
func (s *state) current() *Object {
	if e := s.top(); e != nil {
		return e.obj
	}
	return nil
}

func (s *state) push(obj *Object, numbered bool) {
	s.stack = append(s.stack, stackEntry{obj: obj, indent: s.line.Indent, numbered: numbered})
}

func (s *state) pop() {
	s.stack = s.stack[:len(s.stack)-1]
}

// attach adds obj as the last child of the current object, or as a
// top-level object.
func (s *state) attach(obj *Object) {
	if parent := s.current(); parent != nil {
		parent.Objects = append(parent.Objects, obj)
		return
	}
	s.doc.Objects = append(s.doc.Objects, obj)
}

// detach removes the stack top from its parent's children.
func (s *state) detach() {
	obj := s.current()
	siblings := &s.doc.Objects
	if len(s.stack) > 1 {
		siblings = &s.stack[len(s.stack)-2].obj.Objects
	}
	for i := len(*siblings) - 1; i >= 0; i-- {
		if (*siblings)[i] == obj {
			*siblings = append((*siblings)[:i], (*siblings)[i+1:]...)
			return
		}
	}
}

// lookup finds name in the current object, then in the constant table.
func (s *state) lookup(name string) (Variable, bool) {
	if obj := s.current(); obj != nil {
		if v, ok := obj.Variable(name); ok {
			return v, true
		}
	}
	v, ok := s.constants[name]
	return v, ok
}

// assign stores v in the current object, or in the constant table at top
// level.
func (s *state) assign(v Variable) {
	if obj := s.current(); obj != nil {
		obj.Set(v)
		if v.Name == idVariable {
			s.syncID(obj)
		}
		return
	}
	s.constants[v.Name] = v
}

// NAME = VALUE, @NAME = ±N
func (s *state) constant(m *regexp2.Match) {
	v, ok := s.resolveValue(group(m, 2), group(m, 3), group(m, 1) == "@")
	if !ok {
		s.diagnose(ReasonOverflow)
		return
	}
	s.assign(v)
}

// @NAME: v0, v1, ...
func (s *state) positionDelta(m *regexp2.Match) {
	name := group(m, 1)
	var prev []Variable
	if v, ok := s.lookup(name); ok {
		prev = v.Array()
	}
	deltas := splitList(group(m, 2))
	size := max(len(deltas), len(prev))
	elems := make(Array, size)
	for i := range elems {
		base := 0
		if i < len(prev) {
			base = intOf(prev[i])
		}
		if i < len(deltas) {
			d, ok := parseSigned(deltas[i])
			if ok {
				base, ok = addInt(base, d)
			}
			if !ok {
				s.diagnose(ReasonOverflow)
				return
			}
		}
		elems[i] = Variable{Name: name, Value: Int(base)}
	}
	s.assign(Variable{Name: name, Value: elems})
}

var elementReference = mustCompile(`^([+-]?\d+)\s*([+-])\s*([A-Za-z_]\w*)\[(\d+)\]$`)

// NAME: N+Other[i], ...
func (s *state) arrayReference(m *regexp2.Match) {
	name := group(m, 1)
	parts := splitList(group(m, 2))
	elems := make(Array, len(parts))
	for i, part := range parts {
		em, err := elementReference.FindStringMatch(part)
		if err != nil || em == nil {
			v, ok := s.resolveValue(name, part, false)
			if !ok {
				s.diagnose(ReasonOverflow)
				return
			}
			elems[i] = v
			continue
		}
		lit, err := strconv.Atoi(group(em, 1))
		if err != nil {
			s.diagnose(ReasonOverflow)
			return
		}
		ref := 0
		idx, err := strconv.Atoi(group(em, 4))
		if v, ok := s.lookup(group(em, 3)); ok {
			if arr := v.Array(); err == nil && idx < len(arr) {
				ref = intOf(arr[idx])
			}
		}
		if group(em, 2) == "-" {
			ref = -ref
		}
		n, ok := addInt(lit, ref)
		if !ok {
			s.diagnose(ReasonOverflow)
			return
		}
		elems[i] = Variable{Name: name, Value: Int(n)}
	}
	s.assign(Variable{Name: name, Value: elems})
}

// NAME: a, b, c
func (s *state) list(m *regexp2.Match) {
	name := group(m, 1)
	parts := splitList(group(m, 2))
	elems := make(Array, len(parts))
	for i, part := range parts {
		v, ok := s.resolveValue(name, part, false)
		if !ok {
			s.diagnose(ReasonOverflow)
			return
		}
		elems[i] = v
	}
	s.assign(Variable{Name: name, Value: elems})
}

// @NAME: ±N
func (s *state) relativeScalar(m *regexp2.Match) {
	name := group(m, 1)
	base := 0
	if v, ok := s.lookup(name); ok {
		base = intOf(v)
	}
	n, ok := signed(group(m, 2), group(m, 3))
	if ok {
		n, ok = addInt(base, n)
	}
	if !ok {
		s.diagnose(ReasonOverflow)
		return
	}
	s.assign(Variable{Name: name, Value: Int(n)})
}

// NAME: OTHER±N
func (s *state) namedArithmetic(m *regexp2.Match) {
	n, ok := signed(group(m, 3), group(m, 4))
	if ok {
		n, ok = addInt(s.baseValue(group(m, 2)), n)
	}
	if !ok {
		s.diagnose(ReasonOverflow)
		return
	}
	s.assign(Variable{Name: group(m, 1), Value: Int(n)})
}

// NAME: VALUE
func (s *state) scalar(m *regexp2.Match) {
	v, ok := s.classifyValue(group(m, 1), group(m, 2))
	if !ok {
		s.diagnose(ReasonOverflow)
		return
	}
	s.assign(v)
}

// syncID brings the Id registry in line with the current Id of obj. The
// first object holding an Id keeps it; the fill template is never
// registered since it is not part of the tree.
func (s *state) syncID(obj *Object) {
	s.dropID(obj)
	if s.fill != nil && obj == s.fill.template {
		return
	}
	v, ok := obj.Variable(idVariable)
	if !ok {
		return
	}
	n, ok := v.Value.(Int)
	if !ok {
		return
	}
	if _, seen := s.ids[int(n)]; !seen {
		s.ids[int(n)] = obj
		s.idOf[obj] = int(n)
	}
}

func (s *state) dropID(obj *Object) {
	if old, ok := s.idOf[obj]; ok {
		delete(s.ids, old)
		delete(s.idOf, obj)
	}
}

// Objekt: NAME
func (s *state) objekt(m *regexp2.Match) {
	obj := NewObject(compactName(group(m, 1)))
	s.attach(obj)
	s.push(obj, false)
}

// Nummer: ±N
func (s *state) nummer(m *regexp2.Match) {
	n, err := strconv.Atoi(group(m, 2))
	ok := err == nil
	if ok {
		switch group(m, 1) {
		case "+":
			n, ok = addInt(s.counter, n)
		case "-":
			n, ok = addInt(s.counter, -n)
		}
	}
	if !ok {
		s.diagnose(ReasonOverflow)
		return
	}
	s.counter = n
	s.openNumbered(strconv.Itoa(s.counter))
}

// Nummer: NAME
func (s *state) namedNummer(m *regexp2.Match) {
	s.openNumbered(group(m, 1))
}

// openNumbered closes an open numbered object at the same or a deeper
// indentation, then opens a new one and seeds it from an active fill.
func (s *state) openNumbered(name string) {
	for e := s.top(); e != nil && e.numbered && s.line.Indent <= e.indent; e = s.top() {
		s.pop()
	}
	obj := NewObject(name)
	s.attach(obj)
	s.push(obj, true)
	s.applyFill(obj)
}

// EndObj
func (s *state) endObj(*regexp2.Match) {
	if len(s.stack) == 0 {
		s.diagnose(ReasonUnbalanced)
		return
	}
	if s.fill != nil && len(s.stack) <= s.fill.depth {
		s.endFill("block closed")
	}
	if e := s.top(); e.numbered && len(s.stack) > 1 && s.line.Indent < e.indent {
		s.closeNumberedAndBlock()
		return
	}
	s.pop()
}

// closeNumberedAndBlock handles an EndObj dedented below an open numbered
// object: numbered objects need no EndObj of their own, so the implicit
// numbered object and the explicit block both close.
func (s *state) closeNumberedAndBlock() {
	s.pop()
	s.pop()
}

// ObjFill: A[, B]
func (s *state) objFill(m *regexp2.Match) {
	if s.current() == nil {
		s.diagnose(ReasonFillOutside)
		return
	}
	from, to := group(m, 1), group(m, 2)
	if to != "" {
		s.beginFill(from, to)
		return
	}
	s.importObject(from)
}

func compactName(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] != ' ' && s[i] != '\t' {
			out = append(out, s[i])
		}
	}
	return string(out)
}
