package toyota

import (
	"time"

	"github.com/JakeFAU/toyota-maintenance-collector/internal/catalog"
	"github.com/JakeFAU/toyota-maintenance-collector/internal/collector"
)

// Standard schedule shape: 5,000-mile steps up to 120,000, six months apart.
const (
	scheduleStep   = 5000
	scheduleLimit  = 120000
	monthsPerStep  = 6
	oilEvery       = 10000
	majorEvery     = 30000
	beltEvery      = 60000
	coolantMileage = 100000
)

var everyInterval = []string{
	"Rotate tires",
	"Inspect wiper blades",
	"Inspect and adjust all fluid levels",
	"Visually inspect brake system",
	"Check installation of driver's floor mat",
}

var majorItems = []string{
	"Replace engine air filter",
	"Inspect drive shaft boots",
	"Inspect ball joints and dust covers",
	"Inspect fuel system",
}

// sparkPlugMileages lists where spark plugs are replaced for each category.
var sparkPlugMileages = map[catalog.Category][]int{
	catalog.CategoryFourCylinder: {120000},
	catalog.CategoryV6:           {60000, 120000},
	catalog.CategoryTruck:        {60000, 120000},
}

// StandardSchedule returns Toyota's generic maintenance schedule for a
// category. The record is flagged as a fallback and has no source URL.
func StandardSchedule(category catalog.Category, model string, year int, now time.Time) collector.MaintenanceRecord {
	plugs := sparkPlugMileages[category]
	intervals := make([]collector.MaintenanceInterval, 0, scheduleLimit/scheduleStep)
	for miles := scheduleStep; miles <= scheduleLimit; miles += scheduleStep {
		months := miles / scheduleStep * monthsPerStep
		names := make([]string, 0, 12)
		if miles%oilEvery == 0 {
			names = append(names, "Replace engine oil and oil filter")
		}
		names = append(names, everyInterval...)
		if miles%majorEvery == 0 {
			names = append(names, majorItems...)
		}
		if miles%beltEvery == 0 {
			names = append(names, "Inspect drive belts")
		}
		if miles == coolantMileage {
			names = append(names, "Replace engine coolant")
		}
		for _, m := range plugs {
			if m == miles {
				names = append(names, "Replace spark plugs")
			}
		}
		if miles%oilEvery == 0 {
			names = append(names, "Replace cabin air filter")
		}

		items := make([]collector.ServiceItem, 0, len(names))
		for _, n := range names {
			items = append(items, collector.ServiceItem{Name: n, Required: true})
		}
		intervals = append(intervals, collector.MaintenanceInterval{
			Mileage:               miles,
			Months:                &months,
			Items:                 items,
			SpecialOperatingItems: []collector.ServiceItem{},
		})
	}

	return collector.MaintenanceRecord{
		Source:    collector.SourceToyotaPDF,
		Model:     model,
		Year:      year,
		Intervals: intervals,
		ScrapedAt: now,
		Fallback:  true,
	}
}
