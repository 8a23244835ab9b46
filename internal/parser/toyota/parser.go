// Package toyota parses Toyota Warranty & Maintenance Guide text into
// structured maintenance schedules, and supplies the standard schedule used
// when a guide cannot be parsed.
package toyota

import (
	"bytes"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/JakeFAU/toyota-maintenance-collector/internal/collector"
)

// minMarkerMileage filters out incidental distances such as "trips of less
// than 5 miles".
const minMarkerMileage = 1000

// maxControlRatio is the share of control runes above which text is treated
// as undecoded binary.
const maxControlRatio = 0.01

var (
	markerPattern = regexp.MustCompile(
		`(?i)\b(?:(\d{1,3}(?:,\d{3})+|\d{3,6})\s*(?:miles?|mi)\b\.?|(\d{1,3})\s*k\b(?:\s*(?:miles?|mi)\b\.?)?)` +
			`(?:\s*(?:/|,|or)?\s*(\d{1,3})\s*months?\b)?`)
	markerLead = regexp.MustCompile(
		`(?i)^[\s■□•●▪*\-–]*(?:(?:at|every|interval|maintenance\s+(?:required|service)\s+at|service\s+at)\s*:?\s*)?$`)
	segmentSplit = regexp.MustCompile(`\s*;\s*|\s{3,}`)
	bulletSplit  = regexp.MustCompile(`[■□•●▪]`)
	bulletLead   = regexp.MustCompile(`^\s*(?:[-*]|\d+[.)])\s+`)
	pageNumber   = regexp.MustCompile(`^\d{1,3}$`)
	noise        = regexp.MustCompile(`(?i)^\(|whichever\s+comes\s+first|^page\s+\d+|^months?$`)
)

// Parser converts maintenance guide text to records.
type Parser struct {
	clock collector.Clock
}

// New returns a Parser that stamps records with clock's time.
func New(clock collector.Clock) *Parser {
	return &Parser{clock: clock}
}

// Parse segments text at mileage markers and classifies each block's items as
// standard or special-condition. It returns a *collector.ParseError when the
// input is empty, not decodable text, or contains no usable interval.
func (p *Parser) Parse(raw []byte, model string, year int) (collector.MaintenanceRecord, error) {
	text, err := normalize(raw)
	if err != nil {
		return collector.MaintenanceRecord{}, err
	}

	markers := findMarkers(text)
	if len(markers) == 0 {
		return collector.MaintenanceRecord{}, &collector.ParseError{
			Reason: collector.ReasonNoIntervals,
			Detail: "no mileage markers",
		}
	}

	intervals := make([]*collector.MaintenanceInterval, 0, len(markers))
	for i, m := range markers {
		end := len(text)
		if i+1 < len(markers) {
			end = markers[i+1].start
		}
		standard, special := parseBlock(text[m.end:end])
		intervals = append(intervals, &collector.MaintenanceInterval{
			Mileage:               m.mileage,
			Months:                m.months,
			Items:                 standard,
			SpecialOperatingItems: special,
		})
	}

	merged := mergeIntervals(intervals)
	if len(merged) == 0 {
		return collector.MaintenanceRecord{}, &collector.ParseError{
			Reason: collector.ReasonNoIntervals,
			Detail: "mileage markers found but no service items",
		}
	}

	return collector.MaintenanceRecord{
		Source:    collector.SourceToyotaPDF,
		Model:     model,
		Year:      year,
		Intervals: merged,
		ScrapedAt: p.now(),
	}, nil
}

func (p *Parser) now() time.Time {
	if p.clock == nil {
		return time.Now().UTC()
	}
	return p.clock.Now()
}

// normalize validates encoding and folds compatibility characters (ligatures,
// full-width digits) into their plain forms.
func normalize(raw []byte) (string, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return "", &collector.ParseError{Reason: collector.ReasonEmptyInput}
	}
	if !utf8.Valid(raw) {
		return "", &collector.ParseError{Reason: collector.ReasonMalformedEncoding, Detail: "invalid utf-8"}
	}
	var runes, control int
	for _, r := range string(raw) {
		runes++
		switch {
		case r == 0:
			return "", &collector.ParseError{Reason: collector.ReasonMalformedEncoding, Detail: "nul byte"}
		case r == '\n' || r == '\r' || r == '\t' || r == '\f':
		case unicode.IsControl(r) || r == utf8.RuneError:
			control++
		}
	}
	if float64(control)/float64(runes) > maxControlRatio {
		return "", &collector.ParseError{
			Reason: collector.ReasonMalformedEncoding,
			Detail: strconv.Itoa(control) + " control characters",
		}
	}
	text := norm.NFKC.String(string(raw))
	text = strings.NewReplacer("\r\n", "\n", "\r", "\n", "\f", "\n").Replace(text)
	if strings.TrimSpace(text) == "" {
		return "", &collector.ParseError{Reason: collector.ReasonEmptyInput}
	}
	return text, nil
}

type marker struct {
	start, end int
	mileage    int
	months     *int
}

// findMarkers returns mileage headings in text order. A distance counts as a
// heading only when it opens its line, optionally after a bullet or a lead-in
// such as "every" or "service at". Distances inside item text, such as
// "Replace coolant at first 100,000 miles or 120 months", are not headings.
func findMarkers(text string) []marker {
	var out []marker
	for _, loc := range markerPattern.FindAllStringSubmatchIndex(text, -1) {
		mileage := mileageOf(text, loc)
		if mileage < minMarkerMileage {
			continue
		}
		var months *int
		if loc[6] >= 0 {
			if n, err := strconv.Atoi(text[loc[6]:loc[7]]); err == nil {
				months = &n
			}
		}
		lineStart := strings.LastIndexByte(text[:loc[0]], '\n') + 1
		if !markerLead.MatchString(text[lineStart:loc[0]]) {
			continue
		}
		out = append(out, marker{start: loc[0], end: loc[1], mileage: mileage, months: months})
	}
	return out
}

func mileageOf(text string, loc []int) int {
	if loc[2] >= 0 {
		n, err := strconv.Atoi(strings.ReplaceAll(text[loc[2]:loc[3]], ",", ""))
		if err != nil {
			return 0
		}
		return n
	}
	n, err := strconv.Atoi(text[loc[4]:loc[5]])
	if err != nil {
		return 0
	}
	return n * 1000
}

type segment struct {
	text    string
	bullet  bool
	newLine bool
}

// segments splits a block into candidate item strings. The remainder of the
// marker's own line is treated like a bulleted list.
func segments(block string) []segment {
	var out []segment
	for li, line := range strings.Split(block, "\n") {
		parts := bulletSplit.Split(line, -1)
		for pi, part := range parts {
			bulleted := li == 0 || pi > 0
			if loc := bulletLead.FindStringIndex(part); loc != nil {
				part = part[loc[1]:]
				bulleted = true
			}
			for si, piece := range segmentSplit.Split(part, -1) {
				piece = cleanName(piece)
				if piece == "" {
					continue
				}
				out = append(out, segment{
					text:    piece,
					bullet:  bulleted || si > 0,
					newLine: pi == 0 && si == 0,
				})
			}
		}
	}
	return out
}

type blockState struct {
	special   bool
	condition string
	standard  []collector.ServiceItem
	extra     []collector.ServiceItem
	last      *collector.ServiceItem
}

// parseBlock classifies the lines of one interval block. Items are deduplicated
// after wrapped continuation lines have been joined.
func parseBlock(block string) (standard, special []collector.ServiceItem) {
	st := &blockState{}
	for _, seg := range segments(block) {
		text := seg.text
		if loc := specialHeader.FindStringIndex(text); loc != nil {
			st.special = true
			st.condition = ""
			st.last = nil
			text = cleanName(text[loc[1]:])
			if text == "" {
				continue
			}
		}
		if severeHeader.MatchString(text) {
			st.special = true
			st.condition = cleanName(text)
			st.last = nil
			continue
		}
		if pageNumber.MatchString(text) || noise.MatchString(text) {
			continue
		}

		action := isAction(text)
		if !action {
			if _, ok := conditionLabel(text); ok {
				st.condition = cleanName(text)
				st.last = nil
				continue
			}
			if st.last != nil && seg.newLine && startsLower(text) {
				st.last.Name = cleanName(st.last.Name + " " + text)
				continue
			}
			if !seg.bullet {
				st.last = nil
				continue
			}
		}
		st.add(text)
	}
	return dedup(st.standard), dedup(st.extra)
}

func (st *blockState) add(text string) {
	name, inline := splitCondition(text)
	if name == "" {
		return
	}
	cond := inline
	if cond == "" {
		cond = st.condition
	}
	isSpecial := inline != "" || st.special || st.condition != ""
	item := collector.ServiceItem{Name: name, Required: !isSpecial}
	if isSpecial && cond != "" {
		item.SpecialConditions = &cond
	}
	if isSpecial {
		st.extra = append(st.extra, item)
		st.last = &st.extra[len(st.extra)-1]
		return
	}
	st.standard = append(st.standard, item)
	st.last = &st.standard[len(st.standard)-1]
}

func dedup(items []collector.ServiceItem) []collector.ServiceItem {
	var l itemList
	for _, it := range items {
		l.add(it)
	}
	return l.items
}

func startsLower(s string) bool {
	r, _ := utf8.DecodeRuneInString(s)
	return unicode.IsLower(r)
}

// itemList keeps first occurrences in order.
type itemList struct {
	items []collector.ServiceItem
	seen  map[string]struct{}
}

func (l *itemList) add(item collector.ServiceItem) *collector.ServiceItem {
	if l.seen == nil {
		l.seen = make(map[string]struct{})
	}
	key := dedupKey(item.Name)
	if _, dup := l.seen[key]; dup {
		return nil
	}
	l.seen[key] = struct{}{}
	l.items = append(l.items, item)
	return &l.items[len(l.items)-1]
}

// mergeIntervals folds repeated mileages together, drops empty intervals and
// sorts by mileage.
func mergeIntervals(in []*collector.MaintenanceInterval) []collector.MaintenanceInterval {
	byMileage := make(map[int]int)
	var out []collector.MaintenanceInterval
	var standard, special []itemList
	for _, iv := range in {
		idx, ok := byMileage[iv.Mileage]
		if !ok {
			idx = len(out)
			byMileage[iv.Mileage] = idx
			out = append(out, collector.MaintenanceInterval{Mileage: iv.Mileage, Months: iv.Months})
			standard = append(standard, itemList{})
			special = append(special, itemList{})
		}
		if out[idx].Months == nil {
			out[idx].Months = iv.Months
		}
		for _, it := range iv.Items {
			standard[idx].add(it)
		}
		for _, it := range iv.SpecialOperatingItems {
			special[idx].add(it)
		}
	}

	kept := out[:0]
	for i := range out {
		if len(standard[i].items) == 0 && len(special[i].items) == 0 {
			continue
		}
		iv := out[i]
		iv.Items = nonNil(standard[i].items)
		iv.SpecialOperatingItems = nonNil(special[i].items)
		kept = append(kept, iv)
	}
	slices.SortFunc(kept, func(a, b collector.MaintenanceInterval) int { return a.Mileage - b.Mileage })
	return kept
}

func nonNil(items []collector.ServiceItem) []collector.ServiceItem {
	if items == nil {
		return []collector.ServiceItem{}
	}
	return items
}
