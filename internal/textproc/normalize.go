package textproc

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/sirupsen/logrus"
)

var spokenNewline = regexp.MustCompile(`[\s\p{Z}]*(개행|엔터)[\s\p{Z}]*`)

type step struct {
	name  string
	apply func(string) string
}

// Normalizer cleans raw transcript text before delivery.
type Normalizer struct {
	steps []step
	log   *logrus.Entry
}

func NewNormalizer(log *logrus.Entry) *Normalizer {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Normalizer{
		log: log.WithField("component", "normalizer"),
		steps: []step{
			{name: "spoken newline", apply: replaceSpokenNewlines},
			{name: "outer periods", apply: trimOuterPeriods},
			{name: "line cleanup", apply: cleanLines},
		},
	}
}

// Normalize runs every step in order, logging each one that changed the text.
func (n *Normalizer) Normalize(text string) string {
	for _, s := range n.steps {
		next := s.apply(text)
		if next != text {
			n.log.WithFields(logrus.Fields{"step": s.name, "before": text, "after": next}).Debug("normalized transcript")
			text = next
		}
	}
	return text
}

func replaceSpokenNewlines(text string) string {
	return spokenNewline.ReplaceAllString(text, "\n")
}

func trimOuterPeriods(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, ".")
	text = strings.TrimSuffix(text, ".")
	return strings.TrimSpace(text)
}

func cleanLines(text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, ".") {
			line = strings.TrimLeftFunc(line[1:], unicode.IsSpace)
		}
		lines[i] = line
	}
	return strings.Join(lines, "\n")
}
