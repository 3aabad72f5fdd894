package detectors

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/trustwrapper/core/pkg/contracts"
)

// negationRule finds a negated assertion about some subject, then
// checks whether the same response also makes the positive assertion
// about that subject — a self-contradiction. positiveTemplate is a
// regexp pattern with one %s placeholder for the captured subject.
type negationRule struct {
	subject          *regexp.Regexp
	positiveTemplate string
	// excludeWord is the word immediately after the positive verb that
	// would otherwise make the negated form match the positive pattern
	// too (e.g. "is not" also matches "is <word>").
	excludeWord string
	label       string
}

var defaultNegationRules = []negationRule{
	{
		label:            "is/is-not",
		subject:          regexp.MustCompile(`(?i)\b(\w+(?:\s+\w+){0,3})\s+is\s+not\s+\w`),
		positiveTemplate: `(?i)\b%s\s+is\s+(\w+)`,
		excludeWord:      "not",
	},
	{
		label:            "always/never",
		subject:          regexp.MustCompile(`(?i)\b(\w+(?:\s+\w+){0,3})\s+never\s+\w`),
		positiveTemplate: `(?i)\b%s\s+always\s+(\w+)`,
	},
}

// ContradictionDetector flags a response that both asserts and denies
// the same claim about the same subject, via a small set of
// negation-pair rules. This is intentionally narrow: general natural
// language inference is out of scope (no ML models are executed), but
// these patterns catch the common "X is Y ... later, X is not Y" case.
type ContradictionDetector struct {
	Rules []negationRule
}

// NewContradictionDetector returns a ContradictionDetector with the
// default negation-pair rules.
func NewContradictionDetector() *ContradictionDetector {
	return &ContradictionDetector{Rules: defaultNegationRules}
}

func (d *ContradictionDetector) Name() string { return "contradiction" }

func (d *ContradictionDetector) Detect(ctx context.Context, resp *contracts.Response, now time.Time) Finding {
	text := normalize(resp.Text)

	for _, rule := range d.Rules {
		negMatch := rule.subject.FindStringSubmatch(text)
		if negMatch == nil {
			continue
		}
		subject := strings.TrimSpace(negMatch[1])
		if subject == "" {
			continue
		}
		posRe, err := regexp.Compile(fmt.Sprintf(rule.positiveTemplate, regexp.QuoteMeta(subject)))
		if err != nil {
			continue
		}
		for _, posMatch := range posRe.FindAllStringSubmatch(text, -1) {
			word := strings.ToLower(posMatch[1])
			if rule.excludeWord != "" && word == rule.excludeWord {
				continue
			}
			return Finding{
				Factor:     contracts.FactorFactualContradiction,
				Confidence: 0.7,
				Evidence:   fmt.Sprintf("response both affirms and denies a claim about %q (%s rule)", subject, rule.label),
			}
		}
	}
	return Finding{}
}
