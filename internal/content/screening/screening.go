// Package screening matches post text against a blocked-term list using an
// Aho-Corasick automaton, so the cost stays linear in the text length no
// matter how long the term list grows.
package screening

import (
	"fmt"
	"strings"

	goahocorasick "github.com/anknown/ahocorasick"
	"github.com/samber/lo"
)

// Screener checks text against the configured blocked terms. A nil or empty
// term list yields a screener that matches nothing.
type Screener struct {
	machine *goahocorasick.Machine
}

// New builds the automaton from the term list. Terms are matched
// case-insensitively.
func New(terms []string) (*Screener, error) {
	cleaned := make([][]rune, 0, len(terms))
	for _, term := range terms {
		term = strings.ToLower(strings.TrimSpace(term))
		if term != "" {
			cleaned = append(cleaned, []rune(term))
		}
	}
	if len(cleaned) == 0 {
		return &Screener{}, nil
	}

	machine := new(goahocorasick.Machine)
	if err := machine.Build(cleaned); err != nil {
		return nil, fmt.Errorf("build screening automaton: %w", err)
	}
	return &Screener{machine: machine}, nil
}

// Check returns the distinct blocked terms found in the text.
func (s *Screener) Check(text string) []string {
	if s.machine == nil || text == "" {
		return nil
	}
	hits := s.machine.MultiPatternSearch([]rune(strings.ToLower(text)), false)
	matched := make([]string, 0, len(hits))
	for _, hit := range hits {
		matched = append(matched, string(hit.Word))
	}
	return lo.Uniq(matched)
}
