package parkingzone

import (
	"regexp"
	"strings"
)

var placeholderPattern = regexp.MustCompile(`\\\{(\w+)\\\}`)

// template renders "{name}" placeholders and parses a rendering back.
type template struct {
	format string
	re     *regexp.Regexp
}

func newTemplate(format string) template {
	expr := placeholderPattern.ReplaceAllString(regexp.QuoteMeta(format), `(?P<$1>\S+)`)
	return template{format: format, re: regexp.MustCompile("^" + expr + "$")}
}

func (t template) render(vals map[string]string) string {
	pairs := make([]string, 0, 2*len(vals))
	for k, v := range vals {
		pairs = append(pairs, "{"+k+"}", v)
	}
	return strings.NewReplacer(pairs...).Replace(t.format)
}

func (t template) parse(text string) (map[string]string, bool) {
	m := t.re.FindStringSubmatch(text)
	if m == nil {
		return nil, false
	}
	vals := make(map[string]string, len(m)-1)
	for i, name := range t.re.SubexpNames() {
		if name != "" {
			vals[name] = m[i]
		}
	}
	return vals, true
}
