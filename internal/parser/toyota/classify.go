package toyota

import (
	"regexp"
	"strings"
)

// qualifier maps a family of operating-condition phrases to a label.
type qualifier struct {
	label   string
	pattern *regexp.Regexp
}

// qualifiers are checked in order; the first match labels the condition.
var qualifiers = []qualifier{
	{"dusty_roads", regexp.MustCompile(`(?i)\b(?:dusty|dirt\s+roads?|unpaved|gravel\s+roads?|muddy|off[-\s]?road)\b`)},
	{"towing", regexp.MustCompile(`(?i)\b(?:tow(?:ing)?|trailer|car[-\s]top\s+carrier|camper)\b`)},
	{"heavy_loading", regexp.MustCompile(`(?i)\bheavy\s+(?:vehicle\s+)?load(?:ing|s)?\b`)},
	{"cold_climate", regexp.MustCompile(`(?i)(?:\bcold\s+(?:climates?|weather)|\bbelow\s+32|\bfreezing\b|\bshort\s+trips\b|\btrips\s+of\s+less\s+than\b)`)},
	{"extensive_idling", regexp.MustCompile(`(?i)\b(?:extensive\s+idling|idling|low[-\s]speed\s+driving|stop[-\s]and[-\s]go)\b`)},
	{"fleet_use", regexp.MustCompile(`(?i)\b(?:police|taxi|door[-\s]to[-\s]door\s+delivery|fleet)\b`)},
	{"severe", regexp.MustCompile(`(?i)\bsevere\b`)},
}

// conditionLabel returns the label of the first qualifier found in s.
func conditionLabel(s string) (string, bool) {
	for _, q := range qualifiers {
		if q.pattern.MatchString(s) {
			return q.label, true
		}
	}
	return "", false
}

var actionVerb = regexp.MustCompile(`(?i)^(?:visually\s+)?(?:replace|inspect|rotate|check|tighten|re-?torque|torque|add|lubricate|lube|clean|adjust|change|top\s+off|test|reset|drain|flush|perform|install|apply|road\s+test|service)\b`)

// isAction reports whether s reads as a maintenance instruction.
func isAction(s string) bool {
	return actionVerb.MatchString(s)
}

var (
	parenthetical = regexp.MustCompile(`\s*\(([^()]*)\)`)
	clauseWord    = regexp.MustCompile(`(?i)\s+(?:if|when|under|during|while)\s+`)
	forWord       = regexp.MustCompile(`(?i)\s+for\s+`)
	specialHeader = regexp.MustCompile(`(?i)(?:additional\s+maintenance\s+items\s+for\s+)?special\s+operating\s+conditions?`)
	severeHeader  = regexp.MustCompile(`(?i)^(?:severe\s+(?:duty|service|conditions?|driving)(?:\s+(?:schedule|maintenance|items))?)\s*:?\s*$`)
)

// splitCondition removes an inline operating-condition qualifier from an item
// and returns the bare name plus the qualifier text. A parenthetical wins over
// a trailing if/when/under/during/while clause, which wins over a trailing
// "for" clause. Qualifier-free parentheticals stay part of the name.
func splitCondition(item string) (name, condition string) {
	for _, loc := range parenthetical.FindAllStringSubmatchIndex(item, -1) {
		inner := strings.TrimSpace(item[loc[2]:loc[3]])
		if _, ok := conditionLabel(inner); ok {
			name = strings.TrimSpace(item[:loc[0]] + item[loc[1]:])
			return cleanName(name), inner
		}
	}
	for _, loc := range clauseWord.FindAllStringIndex(item, -1) {
		if name, cond, ok := cutClause(item, loc); ok {
			return name, cond
		}
	}
	fors := forWord.FindAllStringIndex(item, -1)
	for i := len(fors) - 1; i >= 0; i-- {
		if name, cond, ok := cutClause(item, fors[i]); ok {
			return name, cond
		}
	}
	return cleanName(item), ""
}

// cutClause splits item at a conjunction when the clause after it names an
// operating condition.
func cutClause(item string, loc []int) (name, condition string, ok bool) {
	clause := strings.TrimRight(strings.TrimSpace(item[loc[1]:]), ".;, ")
	if _, found := conditionLabel(clause); !found {
		return "", "", false
	}
	name = cleanName(item[:loc[0]])
	if name == "" {
		return "", "", false
	}
	return name, clause, true
}

var (
	spaceRun  = regexp.MustCompile(`\s+`)
	leadJunk  = regexp.MustCompile(`^[\s:\-–—.,*>]+`)
	trailJunk = regexp.MustCompile(`[\s:;,.*]+$`)
)

func cleanName(s string) string {
	s = spaceRun.ReplaceAllString(s, " ")
	s = leadJunk.ReplaceAllString(s, "")
	s = trailJunk.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

func dedupKey(name string) string {
	return strings.ToLower(spaceRun.ReplaceAllString(strings.TrimSpace(name), " "))
}
