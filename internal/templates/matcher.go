// Package templates scores statement text against bank layout signatures and
// keeps the library of known signatures.
package templates

import (
	"regexp"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/insightdelivered/statement-extractor/internal/models"
)

// DefaultAcceptFloor is the minimum score a template needs to be selected.
const DefaultAcceptFloor = 0.3

type compiled struct {
	tmpl     models.StatementTemplate
	patterns []*regexp.Regexp // nil entries never match
}

// Matcher picks the template that best explains a document's text. It only
// reads the templates it was built with.
type Matcher struct {
	floor     float64
	templates []compiled
	log       logrus.FieldLogger
}

// NewMatcher compiles every pattern once. Patterns are matched
// case-insensitively; ones that fail to compile still count toward a
// template's total.
func NewMatcher(library []models.StatementTemplate, floor float64, log logrus.FieldLogger) *Matcher {
	if log == nil {
		log = logrus.StandardLogger()
	}
	log = log.WithField("component", "templates")

	m := &Matcher{floor: floor, log: log}
	for _, t := range library {
		c := compiled{tmpl: clone(t)}
		for _, category := range sortedKeys(t.Patterns) {
			for _, p := range t.Patterns[category] {
				re, err := regexp.Compile("(?i)" + p)
				if err != nil {
					log.WithFields(logrus.Fields{"template": t.Name, "pattern": p}).WithError(err).Warn("invalid template pattern")
				}
				c.patterns = append(c.patterns, re)
			}
		}
		m.templates = append(m.templates, c)
	}
	return m
}

func (c compiled) score(text string) float64 {
	if len(c.patterns) == 0 {
		return 0
	}
	matched := 0
	for _, re := range c.patterns {
		if re != nil && re.MatchString(text) {
			matched++
		}
	}
	return float64(matched) / float64(len(c.patterns))
}

// Score returns the fraction of t's patterns that match text.
func Score(t models.StatementTemplate, text string) float64 {
	return NewMatcher([]models.StatementTemplate{t}, 0, logrus.New()).templates[0].score(text)
}

// Best returns the highest scoring template and its score. ok is false when
// no template reaches the floor. Ties keep the first template declared.
func (m *Matcher) Best(text string) (tmpl *models.StatementTemplate, score float64, ok bool) {
	best := -1
	for i, c := range m.templates {
		s := c.score(text)
		m.log.WithFields(logrus.Fields{"template": c.tmpl.Name, "score": s}).Debug("scored template")
		if s > score {
			best, score = i, s
		}
	}
	if best < 0 || score < m.floor {
		return nil, score, false
	}
	t := clone(m.templates[best].tmpl)
	return &t, score, true
}

// Len is the number of templates the matcher was built with.
func (m *Matcher) Len() int { return len(m.templates) }

func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
