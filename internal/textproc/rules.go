package textproc

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
)

const defaultIterationLimit = 30

type rule struct {
	source      string
	re          *regexp.Regexp
	replacement string
	firstOnly   bool
}

func (r rule) apply(input string) (string, bool) {
	if !r.firstOnly {
		output := r.re.ReplaceAllString(input, r.replacement)
		return output, output != input
	}
	loc := r.re.FindStringIndex(input)
	if loc == nil {
		return input, false
	}
	replaced := r.re.ReplaceAllString(input[loc[0]:loc[1]], r.replacement)
	output := input[:loc[0]] + replaced + input[loc[1]:]
	return output, output != input
}

// Substitutions applies user vocabulary fixes after normalization.
// A file holds one rule per line: "spoken => written" or "s/pattern/replacement/flags".
type Substitutions struct {
	rules []rule
	limit int
}

// LoadSubstitutions reads path. A missing or empty path yields a no-op set.
func LoadSubstitutions(path string, limit int) (*Substitutions, error) {
	if limit <= 0 {
		limit = defaultIterationLimit
	}
	if strings.TrimSpace(path) == "" {
		return &Substitutions{limit: limit}, nil
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Substitutions{limit: limit}, nil
		}
		return nil, fmt.Errorf("read substitutions %q: %w", path, err)
	}

	rules, err := parseSubstitutions(string(contents))
	if err != nil {
		return nil, fmt.Errorf("parse substitutions %q: %w", path, err)
	}
	return &Substitutions{rules: rules, limit: limit}, nil
}

// parseSubstitutions compiles rule text. Blank lines and # comments are skipped.
func parseSubstitutions(contents string) ([]rule, error) {
	lines := strings.Split(contents, "\n")
	rules := make([]rule, 0, len(lines))
	for index, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		var (
			r   rule
			err error
		)
		switch {
		case isRegexRule(line):
			r, err = parseRegexRule(line)
		case strings.Contains(line, "=>"):
			r, err = parseLiteralRule(line)
		default:
			err = errors.New("unsupported rule format")
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", index+1, err)
		}
		rules = append(rules, r)
	}
	return rules, nil
}

// Len returns how many rules are loaded.
func (s *Substitutions) Len() int {
	return len(s.rules)
}

// Apply repeats all rules until the text stops changing or the iteration limit is hit.
func (s *Substitutions) Apply(text string) (string, error) {
	if len(s.rules) == 0 {
		return text, nil
	}
	for i := 0; i < s.limit; i++ {
		changed := false
		for _, r := range s.rules {
			if next, ok := r.apply(text); ok {
				text = next
				changed = true
			}
		}
		if !changed {
			return text, nil
		}
	}
	return text, fmt.Errorf("substitutions still changing after %d passes", s.limit)
}

func parseLiteralRule(line string) (rule, error) {
	from, to, _ := strings.Cut(line, "=>")
	from = strings.TrimSpace(from)
	if from == "" {
		return rule{}, errors.New("literal rule source cannot be empty")
	}
	return rule{
		source:      line,
		re:          regexp.MustCompile("(?i)" + regexp.QuoteMeta(from)),
		replacement: strings.ReplaceAll(strings.TrimSpace(to), "$", "$$"),
	}, nil
}

func parseRegexRule(line string) (rule, error) {
	delim := line[1]
	pattern, pos, err := readDelimited(line, 2, delim)
	if err != nil {
		return rule{}, fmt.Errorf("pattern: %w", err)
	}
	replacement, pos, err := readDelimited(line, pos, delim)
	if err != nil {
		return rule{}, fmt.Errorf("replacement: %w", err)
	}

	global := false
	prefix := "i"
	for _, flag := range strings.TrimSpace(line[pos:]) {
		switch flag {
		case 'i':
		case 'g':
			global = true
		case 'm', 's':
			if !strings.ContainsRune(prefix, flag) {
				prefix += string(flag)
			}
		case ' ':
		default:
			return rule{}, fmt.Errorf("unsupported regex flag %q", flag)
		}
	}

	re, err := regexp.Compile("(?" + prefix + ")" + pattern)
	if err != nil {
		return rule{}, fmt.Errorf("invalid regex: %w", err)
	}
	return rule{source: line, re: re, replacement: replacement, firstOnly: !global}, nil
}

func readDelimited(line string, start int, delim byte) (string, int, error) {
	var b strings.Builder
	escaped := false
	for i := start; i < len(line); i++ {
		c := line[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\':
			escaped = true
		case c == delim:
			return b.String(), i + 1, nil
		}
		b.WriteByte(c)
	}
	return "", 0, errors.New("unterminated expression")
}

func isRegexRule(line string) bool {
	if len(line) < 2 || line[0] != 's' {
		return false
	}
	c := line[1]
	alnum := (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
	return !alnum && c != ' ' && c != '\t'
}
