package toyota

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/toyota-maintenance-collector/internal/collector"
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

var parsedAt = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newParser() *Parser {
	return New(fixedClock{t: parsedAt})
}

func TestParseCamryInlineMarker(t *testing.T) {
	t.Parallel()

	rec, err := newParser().Parse([]byte("5,000 miles: Rotate tires; Replace oil (severe duty)\n"), "Camry", 2024)
	require.NoError(t, err)

	assert.Equal(t, collector.SourceToyotaPDF, rec.Source)
	assert.Equal(t, "Camry", rec.Model)
	assert.Equal(t, 2024, rec.Year)
	assert.Equal(t, parsedAt, rec.ScrapedAt)
	assert.False(t, rec.Fallback)

	require.Len(t, rec.Intervals, 1)
	iv := rec.Intervals[0]
	assert.Equal(t, 5000, iv.Mileage)
	assert.Nil(t, iv.Months)

	require.Len(t, iv.Items, 1)
	assert.Equal(t, "Rotate tires", iv.Items[0].Name)
	assert.True(t, iv.Items[0].Required)
	assert.Nil(t, iv.Items[0].SpecialConditions)

	require.Len(t, iv.SpecialOperatingItems, 1)
	special := iv.SpecialOperatingItems[0]
	assert.Equal(t, "Replace oil", special.Name)
	assert.False(t, special.Required)
	require.NotNil(t, special.SpecialConditions)
	assert.Equal(t, "severe duty", *special.SpecialConditions)
}

const guide = `2024 Camry Warranty & Maintenance Guide
Maintenance Schedule

15,000 miles or 18 months
■ Rotate tires
■ Inspect wiper blades
■ Inspect brake lines and hoses
Additional maintenance items for special operating conditions
■ Tighten nuts and bolts on chassis and body
■ Replace engine air filter if driving on dirt roads

5,000 miles or 6 months
■ Rotate tires
■ Inspect and adjust all fluid levels
■ Rotate tires
Driving on dirt roads or dusty roads
■ Inspect ball joints and dust covers

10,000 miles or 12 months
■ Replace engine oil and oil filter
□ Replace cabin air filter
  every other service
12
`

func TestParseGuideOrdersAndClassifies(t *testing.T) {
	t.Parallel()

	rec, err := newParser().Parse([]byte(guide), "Camry", 2024)
	require.NoError(t, err)
	require.Len(t, rec.Intervals, 3)

	mileages := []int{rec.Intervals[0].Mileage, rec.Intervals[1].Mileage, rec.Intervals[2].Mileage}
	assert.Equal(t, []int{5000, 10000, 15000}, mileages)
	for _, iv := range rec.Intervals {
		require.NotNil(t, iv.Months)
		assert.Equal(t, iv.Mileage/5000*6, *iv.Months)
	}

	five := rec.Intervals[0]
	assert.Equal(t, []string{"Rotate tires", "Inspect and adjust all fluid levels"}, names(five.Items))
	require.Len(t, five.SpecialOperatingItems, 1)
	assert.Equal(t, "Inspect ball joints and dust covers", five.SpecialOperatingItems[0].Name)
	require.NotNil(t, five.SpecialOperatingItems[0].SpecialConditions)
	assert.Equal(t, "Driving on dirt roads or dusty roads", *five.SpecialOperatingItems[0].SpecialConditions)

	ten := rec.Intervals[1]
	assert.Equal(t, []string{"Replace engine oil and oil filter", "Replace cabin air filter every other service"}, names(ten.Items))
	assert.Empty(t, ten.SpecialOperatingItems)

	fifteen := rec.Intervals[2]
	assert.Equal(t, []string{"Rotate tires", "Inspect wiper blades", "Inspect brake lines and hoses"}, names(fifteen.Items))
	assert.Equal(t, []string{"Tighten nuts and bolts on chassis and body", "Replace engine air filter"}, names(fifteen.SpecialOperatingItems))
	for _, it := range fifteen.SpecialOperatingItems {
		assert.False(t, it.Required)
	}
	require.Nil(t, fifteen.SpecialOperatingItems[0].SpecialConditions)
	require.NotNil(t, fifteen.SpecialOperatingItems[1].SpecialConditions)
	assert.Equal(t, "driving on dirt roads", *fifteen.SpecialOperatingItems[1].SpecialConditions)
}

func TestParseMergesRepeatedMileages(t *testing.T) {
	t.Parallel()

	text := "30,000 miles\n• Replace engine air filter\n\n30k miles or 36 months\n• Replace engine air filter\n• Inspect drive shaft boots\n"
	rec, err := newParser().Parse([]byte(text), "RAV4", 2023)
	require.NoError(t, err)
	require.Len(t, rec.Intervals, 1)
	iv := rec.Intervals[0]
	assert.Equal(t, 30000, iv.Mileage)
	require.NotNil(t, iv.Months)
	assert.Equal(t, 36, *iv.Months)
	assert.Equal(t, []string{"Replace engine air filter", "Inspect drive shaft boots"}, names(iv.Items))
}

func TestParseIgnoresProseDistances(t *testing.T) {
	t.Parallel()

	text := "Short trips of less than 5 miles count as severe.\nCheck your tires every 5,000 miles.\n"
	_, err := newParser().Parse([]byte(text), "Camry", 2024)
	var perr *collector.ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, collector.ReasonNoIntervals, perr.Reason)
}

func TestParseKeepsDistancesInsideItems(t *testing.T) {
	t.Parallel()

	text := "60,000 miles or 72 months\n" +
		"■ Replace engine coolant at first 100,000 miles or 120 months\n" +
		"■ Inspect drive belts\n" +
		"■ Replace spark plugs\n" +
		"65,000 miles or 78 months\n" +
		"■ Rotate tires\n"
	rec, err := newParser().Parse([]byte(text), "Tundra", 2022)
	require.NoError(t, err)
	require.Len(t, rec.Intervals, 2)

	sixty := rec.Intervals[0]
	assert.Equal(t, 60000, sixty.Mileage)
	require.NotNil(t, sixty.Months)
	assert.Equal(t, 72, *sixty.Months)
	assert.Equal(t, []string{
		"Replace engine coolant at first 100,000 miles or 120 months",
		"Inspect drive belts",
		"Replace spark plugs",
	}, names(sixty.Items))

	assert.Equal(t, 65000, rec.Intervals[1].Mileage)
	assert.Equal(t, []string{"Rotate tires"}, names(rec.Intervals[1].Items))
}

func TestParseDedupsOnJoinedNames(t *testing.T) {
	t.Parallel()

	text := "30,000 miles or 36 months\n" +
		"■ Inspect ball joints and\n  dust covers\n" +
		"■ Inspect ball joints and\n  steering linkage\n" +
		"■ Replace engine air filter\n" +
		"■ Inspect ball joints and\n  dust covers\n"
	rec, err := newParser().Parse([]byte(text), "4Runner", 2023)
	require.NoError(t, err)
	require.Len(t, rec.Intervals, 1)
	assert.Equal(t, []string{
		"Inspect ball joints and dust covers",
		"Inspect ball joints and steering linkage",
		"Replace engine air filter",
	}, names(rec.Intervals[0].Items))
}

func TestParseFailures(t *testing.T) {
	t.Parallel()

	cases := map[string]struct {
		raw    []byte
		reason collector.ParseReason
	}{
		"empty":        {raw: nil, reason: collector.ReasonEmptyInput},
		"whitespace":   {raw: []byte(" \n\t\n"), reason: collector.ReasonEmptyInput},
		"invalid utf8": {raw: []byte{0xff, 0xfe, 0x35, 0x30}, reason: collector.ReasonMalformedEncoding},
		"nul bytes":    {raw: []byte("5,000 miles\x00 Rotate tires"), reason: collector.ReasonMalformedEncoding},
		"binary":       {raw: []byte("\x01\x02\x03\x04 5,000 miles Rotate"), reason: collector.ReasonMalformedEncoding},
		"no markers":   {raw: []byte("Welcome to your new Toyota.\nRead this guide carefully."), reason: collector.ReasonNoIntervals},
		"marker only":  {raw: []byte("5,000 miles or 6 months\n"), reason: collector.ReasonNoIntervals},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			_, err := newParser().Parse(tc.raw, "Camry", 2024)
			require.ErrorIs(t, err, collector.ErrParse)
			var perr *collector.ParseError
			require.ErrorAs(t, err, &perr)
			assert.Equal(t, tc.reason, perr.Reason)
		})
	}
}

func TestParseNormalizesCompatibilityForms(t *testing.T) {
	t.Parallel()

	// Full-width digits and the "fi" ligature as emitted by some PDF fonts.
	text := "５,０００ miles\n• Replace engine oil ﬁlter\n"
	rec, err := newParser().Parse([]byte(text), "Corolla", 2022)
	require.NoError(t, err)
	require.Len(t, rec.Intervals, 1)
	assert.Equal(t, 5000, rec.Intervals[0].Mileage)
	assert.Equal(t, []string{"Replace engine oil filter"}, names(rec.Intervals[0].Items))
}

func TestSplitCondition(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in, name, cond string
	}{
		{"Replace oil (severe duty)", "Replace oil", "severe duty"},
		{"Inspect brake pads (front and rear)", "Inspect brake pads (front and rear)", ""},
		{"Inspect ball joints and dust covers", "Inspect ball joints and dust covers", ""},
		{"Replace engine air filter if driving on dirt roads", "Replace engine air filter", "driving on dirt roads"},
		{"Inspect brakes for wear when towing a trailer", "Inspect brakes for wear", "towing a trailer"},
		{"Lubricate propeller shaft for towing", "Lubricate propeller shaft", "towing"},
	}
	for _, tc := range cases {
		name, cond := splitCondition(tc.in)
		assert.Equal(t, tc.name, name, tc.in)
		assert.Equal(t, tc.cond, cond, tc.in)
	}
}

func names(items []collector.ServiceItem) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.Name)
	}
	return out
}
