package cod

import (
	"strings"

	"github.com/dlclark/regexp2"
)

// DefaultSkipDirectives lists directive keywords the decoder ignores.
var DefaultSkipDirectives = []string{"Nahrung", "Soldat", "Turm"}

// keywordGuard keeps the scalar and list shapes from claiming block
// directives such as "Objekt: A, B".
const keywordGuard = `(?!(?:Objekt|Nummer|ObjFill|EndObj)\b)`

// directive pairs a line shape with the handler that applies it. Directives
// are tried in order and the first match wins.
type directive struct {
	name   string
	re     *regexp2.Regexp
	handle func(s *state, m *regexp2.Match)
}

func mustCompile(expr string) *regexp2.Regexp {
	return regexp2.MustCompile(expr, regexp2.None)
}

var builtinDirectives = []directive{
	{"constant", mustCompile(`^(@?)([A-Za-z_]\w*)\s*=\s*(\S.*)$`), (*state).constant},
	{"position delta", mustCompile(`^@(\w+)\s*:\s*([+-]?\s*\d+(?:\s*,\s*[+-]?\s*\d+)+)$`), (*state).positionDelta},
	{"array reference", mustCompile(`^` + keywordGuard + `(\w+)\s*:\s*(.*\d\s*[+-]\s*[A-Za-z_]\w*\[\d+\].*)$`), (*state).arrayReference},
	{"list", mustCompile(`^` + keywordGuard + `(\w+)\s*:\s*([^,]*(?:,[^,]*)+)$`), (*state).list},
	{"relative scalar", mustCompile(`^@(\w+)\s*:\s*([+-]?)\s*(\d+)$`), (*state).relativeScalar},
	{"named arithmetic", mustCompile(`^` + keywordGuard + `(\w+)\s*:\s*([A-Za-z_]\w*)\s*([+-])\s*(\d+)$`), (*state).namedArithmetic},
	{"scalar", mustCompile(`^` + keywordGuard + `(\w+)\s*:\s*(.+)$`), (*state).scalar},
	{"Objekt", mustCompile(`^Objekt\s*:\s*(\w+(?:\s*,\s*\w+)*)$`), (*state).objekt},
	{"Nummer", mustCompile(`^Nummer\s*:\s*([+-]?)\s*(\d+)$`), (*state).nummer},
	{"EndObj", mustCompile(`^EndObj\b`), (*state).endObj},
	{"ObjFill", mustCompile(`^ObjFill\s*:\s*(\w+)(?:\s*,\s*(\w+))?$`), (*state).objFill},
	{"named Nummer", mustCompile(`^Nummer\s*:\s*(\w+)$`), (*state).namedNummer},
}

// skipDirective builds the no-op directive for the given keywords.
func skipDirective(keywords []string) (directive, bool) {
	if len(keywords) == 0 {
		return directive{}, false
	}
	quoted := make([]string, len(keywords))
	for i, k := range keywords {
		quoted[i] = regexp2.Escape(k)
	}
	return directive{
		name:   "skip",
		re:     mustCompile(`^(?:` + strings.Join(quoted, "|") + `)\s*:`),
		handle: func(*state, *regexp2.Match) {},
	}, true
}

func buildDirectives(skip []string) []directive {
	var ds []directive
	if d, ok := skipDirective(skip); ok {
		ds = append(ds, d)
	}
	return append(ds, builtinDirectives...)
}

// classify returns the first directive matching text.
func classify(directives []directive, text string) (directive, *regexp2.Match, bool) {
	for _, d := range directives {
		m, err := d.re.FindStringMatch(text)
		if err != nil || m == nil {
			continue
		}
		return d, m, true
	}
	return directive{}, nil, false
}

// group returns the text of capture group n, or "" if it did not take part
// in the match.
func group(m *regexp2.Match, n int) string {
	g := m.GroupByNumber(n)
	if g == nil || len(g.Captures) == 0 {
		return ""
	}
	return g.String()
}

func matches(re *regexp2.Regexp, s string) bool {
	ok, err := re.MatchString(s)
	return err == nil && ok
}
