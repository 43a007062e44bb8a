package cod

import (
	"strconv"

	"go.uber.org/zap"
)

// fillRange is an active "ObjFill: start, stop" template.
type fillRange struct {
	template *Object
	start    string
	stop     string
	depth    int // stack height of the template when the fill began
}

// covers reports whether a numbered object called name receives the
// template. Non-numeric names and bounds always do.
func (f *fillRange) covers(name string) bool {
	n, err := strconv.Atoi(name)
	if err != nil {
		return true
	}
	if lo, err := strconv.Atoi(f.start); err == nil && n < lo {
		return false
	}
	if hi, err := strconv.Atoi(f.stop); err == nil && n > hi {
		return false
	}
	return true
}

// boundName resolves a fill bound through the constant table.
func (s *state) boundName(tok string) string {
	if c, ok := s.constants[tok]; ok {
		switch c.Value.(type) {
		case Int, Float:
			return strconv.Itoa(intOf(c))
		}
	}
	return tok
}

// beginFill turns the current object into the template of a fill range.
// The object stays open so the following lines describe the template, but
// it is removed from the tree.
func (s *state) beginFill(start, stop string) {
	if s.fill != nil {
		s.log.Warn("ObjFill range replaces an active range",
			zap.Int("line", s.line.Number),
			zap.String("template", s.fill.template.Name))
	}
	s.detach()
	s.dropID(s.current())
	s.fill = &fillRange{
		template: s.current(),
		start:    s.boundName(start),
		stop:     s.boundName(stop),
		depth:    len(s.stack),
	}
}

// applyFill seeds a freshly opened numbered object with the template.
func (s *state) applyFill(obj *Object) {
	f := s.fill
	if f == nil {
		return
	}
	if len(s.stack) != f.depth {
		s.endFill("numbered object opened at another depth")
		return
	}
	if !f.covers(obj.Name) {
		if n, err := strconv.Atoi(obj.Name); err == nil {
			if hi, err := strconv.Atoi(f.stop); err == nil && n > hi {
				s.endFill("passed stop bound")
			}
		}
		return
	}
	seed := f.template.Clone()
	obj.Variables = seed.Variables
	obj.Objects = seed.Objects
	s.syncID(obj)
	if obj.Name == f.stop {
		s.endFill("stop bound reached")
	}
}

func (s *state) endFill(reason string) {
	s.log.Debug("ObjFill range ended",
		zap.Int("line", s.line.Number),
		zap.String("reason", reason))
	s.fill = nil
}

// importObject copies the variables and children of the object named by
// ref into the current object.
func (s *state) importObject(ref string) {
	src := s.resolveObject(ref)
	if src == nil {
		s.diagnose(ReasonUnresolvedFill)
		return
	}
	merge(s.current(), src)
	s.syncID(s.current())
}

// resolveObject finds the source of an ObjFill import: a constant holding
// an Id, a literal Id, or a top-level object name.
func (s *state) resolveObject(ref string) *Object {
	if c, ok := s.constants[ref]; ok {
		if obj := s.ids[intOf(c)]; obj != nil {
			return obj
		}
	}
	if n, err := strconv.Atoi(ref); err == nil {
		if obj := s.ids[n]; obj != nil {
			return obj
		}
	}
	return s.doc.Object(ref)
}

// merge deep-copies src into dst. Variables overwrite by name; a child
// replaces the first child of dst with the same name or is appended.
func merge(dst, src *Object) {
	if dst == src {
		return
	}
	for _, v := range src.Variables {
		dst.Set(v.Clone())
	}
	for _, child := range src.Objects {
		replaced := false
		for i, existing := range dst.Objects {
			if existing.Name == child.Name {
				dst.Objects[i] = child.Clone()
				replaced = true
				break
			}
		}
		if !replaced {
			dst.Objects = append(dst.Objects, child.Clone())
		}
	}
}
