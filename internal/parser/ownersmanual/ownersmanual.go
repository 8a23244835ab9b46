// Package ownersmanual generates fluid and capacity specs from a model's
// category. Toyota's manuals sit behind a VIN lookup, so the values are the
// published defaults for each engine family.
package ownersmanual

import (
	"time"

	"github.com/JakeFAU/toyota-maintenance-collector/internal/catalog"
	"github.com/JakeFAU/toyota-maintenance-collector/internal/collector"
)

// Fluid specifications shared by every 2018+ model.
const (
	OilStandard  = "0W-20 synthetic"
	OilHybrid    = "0W-16 synthetic"
	Coolant      = "Toyota Super Long Life Coolant"
	Transmission = "Toyota ATF WS"
	BrakeFluid   = "DOT 3"
)

var oilCapacity = map[catalog.Category]string{
	catalog.CategoryFourCylinder: "4.8 quarts with filter",
	catalog.CategoryV6:           "6.4 quarts with filter",
	catalog.CategoryTruck:        "7.5-8.5 quarts with filter",
}

// StandardSpecs returns the service specs for model in year.
func StandardSpecs(model catalog.Model, year int, manualURL string, now time.Time) collector.ServiceSpec {
	oil := OilStandard
	if model.Hybrid {
		oil = OilHybrid
	}
	capacity, ok := oilCapacity[model.Category]
	if !ok {
		capacity = oilCapacity[catalog.CategoryFourCylinder]
	}
	return collector.ServiceSpec{
		Model:             model.Name,
		Year:              year,
		Category:          string(model.Category),
		OilType:           oil,
		OilCapacity:       capacity,
		CoolantType:       Coolant,
		TransmissionFluid: Transmission,
		BrakeFluid:        BrakeFluid,
		Fluids: []collector.FluidSpec{
			{FluidType: "Engine Oil", Specification: oil, Capacity: &capacity},
			{FluidType: "Coolant", Specification: Coolant},
			{FluidType: "Automatic Transmission", Specification: Transmission},
			{FluidType: "Brake Fluid", Specification: BrakeFluid},
		},
		ManualURL: manualURL,
		ScrapedAt: now,
	}
}
