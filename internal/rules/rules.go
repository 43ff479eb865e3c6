// Package rules implements a declarative mock rule engine. Rules are
// loaded from a YAML file and evaluated per request; the highest
// priority matching rule fabricates the response, and requests no rule
// matches pass through.
package rules

import (
	"regexp"
	"strings"
	"sync"
)

// Rule pairs a request matcher with the response to fabricate.
type Rule struct {
	Name     string  `mapstructure:"name"`
	Priority int     `mapstructure:"priority"`
	Match    Match   `mapstructure:"match"`
	Respond  Respond `mapstructure:"respond"`
}

// Match selects requests. An empty field matches everything, so the
// zero Match matches every request.
type Match struct {
	// URL is compared against the full request URL according to Mode.
	URL string `mapstructure:"url"`
	// Mode is one of exact, prefix, regex, or glob (the default).
	Mode    string   `mapstructure:"mode"`
	Methods []string `mapstructure:"methods"`
	Headers map[string]string `mapstructure:"headers"`
}

// Respond describes the fabricated response. Patch entries are applied
// to the JSON body after it is rendered, keyed by dotted path.
type Respond struct {
	Status     int               `mapstructure:"status"`
	StatusText string            `mapstructure:"status_text"`
	Headers    map[string]string `mapstructure:"headers"`
	Body       string            `mapstructure:"body"`
	Patch      map[string]any    `mapstructure:"patch"`
}

// Engine evaluates a rule set. Safe for concurrent use; Update swaps
// the whole set atomically.
type Engine struct {
	mu    sync.RWMutex
	rules []Rule
}

func New(rules []Rule) *Engine { return &Engine{rules: rules} }

func (e *Engine) Update(rules []Rule) {
	e.mu.Lock()
	e.rules = rules
	e.mu.Unlock()
}

func (e *Engine) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.rules)
}

// Ctx is the request view the matcher sees.
type Ctx struct {
	URL     string
	Method  string
	Headers map[string]string
}

// Eval returns the winning rule for ctx, or nil when nothing matches.
// Among matching rules the highest Priority wins; ties go to the rule
// declared first.
func (e *Engine) Eval(ctx Ctx) *Rule {
	e.mu.RLock()
	defer e.mu.RUnlock()
	var chosen *Rule
	for i := range e.rules {
		r := &e.rules[i]
		if matchRule(ctx, r.Match) {
			if chosen == nil || r.Priority > chosen.Priority {
				chosen = r
			}
		}
	}
	return chosen
}

func matchRule(ctx Ctx, m Match) bool {
	if m.URL != "" && !matchURL(ctx.URL, m.URL, m.Mode) {
		return false
	}
	if len(m.Methods) > 0 && !matchMethod(ctx.Method, m.Methods) {
		return false
	}
	for name, want := range m.Headers {
		got, ok := ctx.Headers[strings.ToLower(name)]
		if !ok || got != want {
			return false
		}
	}
	return true
}

func matchURL(url, pattern, mode string) bool {
	switch mode {
	case "exact":
		return url == pattern
	case "prefix":
		return strings.HasPrefix(url, pattern)
	case "regex":
		return matchRegex(url, pattern)
	default:
		return glob(url, pattern)
	}
}

func matchMethod(method string, methods []string) bool {
	for _, m := range methods {
		if strings.EqualFold(method, m) {
			return true
		}
	}
	return false
}

func glob(s, pattern string) bool {
	if pattern == "*" {
		return true
	}
	if strings.HasPrefix(pattern, "*") && strings.HasSuffix(s, strings.TrimPrefix(pattern, "*")) {
		return true
	}
	if strings.HasSuffix(pattern, "*") && strings.HasPrefix(s, strings.TrimSuffix(pattern, "*")) {
		return true
	}
	return s == pattern
}

var (
	regexMu    sync.Mutex
	regexCache = map[string]*regexp.Regexp{}
)

func matchRegex(s, pattern string) bool {
	regexMu.Lock()
	re, ok := regexCache[pattern]
	if !ok {
		var err error
		re, err = regexp.Compile(pattern)
		if err != nil {
			regexMu.Unlock()
			return false
		}
		regexCache[pattern] = re
	}
	regexMu.Unlock()
	return re.MatchString(s)
}
