package cod

import (
	"strconv"
	"strings"
)

// Legacy files reference this constant without ever declaring a numeric
// value for it.
const (
	legacyConstant      = "RUINE_KONTOR_1"
	legacyConstantValue = 424242
)

var (
	arithmeticExpr = mustCompile(`^([A-Za-z_]\w*)?\s*([+-])\s*(\d+)$`)
	intExpr        = mustCompile(`^[+-]?\d+$`)
	floatExpr      = mustCompile(`^[+-]?\d*\.\d+$`)
)

// resolveValue turns a value expression into a variable named key. In
// relative mode the base of an arithmetic expression is the key itself.
// ok is false when an integer leaves the int range.
func (s *state) resolveValue(key, expr string, relative bool) (Variable, bool) {
	expr = strings.TrimSpace(expr)
	if m, err := arithmeticExpr.FindStringMatch(expr); err == nil && m != nil {
		base := group(m, 1)
		if relative {
			base = key
		}
		if base != "" {
			n, ok := signed(group(m, 2), group(m, 3))
			if ok {
				n, ok = addInt(s.baseValue(base), n)
			}
			return Variable{Name: key, Value: Int(n)}, ok
		}
	}
	return s.classifyValue(key, expr)
}

// classifyValue types expr by shape: integer, float, a known constant, or
// a raw string.
func (s *state) classifyValue(key, expr string) (Variable, bool) {
	switch {
	case matches(intExpr, expr):
		n, err := strconv.Atoi(expr)
		return Variable{Name: key, Value: Int(n)}, err == nil
	case matches(floatExpr, expr):
		f, err := strconv.ParseFloat(expr, 64)
		return Variable{Name: key, Value: Float(f)}, err == nil
	}
	if c, ok := s.constants[expr]; ok {
		return c.renamed(key), true
	}
	return Variable{Name: key, Value: String(expr)}, true
}

// baseValue returns the integer value of a constant used as an arithmetic
// base. Unknown constants count as 0.
func (s *state) baseValue(name string) int {
	c, ok := s.constants[name]
	if !ok {
		if name == legacyConstant {
			return legacyConstantValue
		}
		return 0
	}
	return intOf(c)
}

// intOf reads a variable as an integer the way arithmetic sees it.
func intOf(v Variable) int {
	switch x := v.Value.(type) {
	case Int:
		return int(x)
	case Float:
		return int(x)
	case String:
		if string(x) == legacyConstant {
			return legacyConstantValue
		}
		n, err := strconv.Atoi(string(x))
		if err != nil {
			return 0
		}
		return n
	case Array, nil:
		return 0
	}
	return 0
}

func signed(op, digits string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(digits))
	if err != nil {
		return 0, false
	}
	if op == "-" {
		return -n, true
	}
	return n, true
}

// parseSigned reads tokens such as "+42", "- 2" or "7".
func parseSigned(tok string) (int, bool) {
	tok = strings.ReplaceAll(strings.TrimSpace(tok), " ", "")
	n, err := strconv.Atoi(tok)
	return n, err == nil
}

// addInt adds a and b, reporting false on overflow.
func addInt(a, b int) (int, bool) {
	c := a + b
	if (b > 0 && c < a) || (b < 0 && c > a) {
		return 0, false
	}
	return c, true
}

// splitList splits a comma separated value list and trims each element.
func splitList(s string) []string {
	parts := strings.Split(s, ",")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return parts
}
