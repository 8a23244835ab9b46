package collector

import "strconv"

// Dataset names, one output file each.
const (
	DatasetMaintenance  = "maintenance_schedules"
	DatasetFuelEconomy  = "fueleconomy_vehicles"
	DatasetServiceSpecs = "service_specs"
)

// Line is one row of an output dataset.
type Line interface {
	DedupKey() string
}

// Record is the output of one completed unit. A record may expand to zero or
// more lines in its dataset.
type Record interface {
	Unit() WorkUnit
	Dataset() string
	Lines() []Line
}

// Unit implements Record.
func (r MaintenanceRecord) Unit() WorkUnit {
	return WorkUnit{Source: r.Source, Model: r.Model, Year: r.Year}
}

// Dataset implements Record.
func (MaintenanceRecord) Dataset() string { return DatasetMaintenance }

// Lines implements Record.
func (r MaintenanceRecord) Lines() []Line { return []Line{r} }

// DedupKey implements Line.
func (r MaintenanceRecord) DedupKey() string {
	return string(r.Source) + "|" + r.Model + "|" + strconv.Itoa(r.Year)
}

// VehicleSpecSet holds every FuelEconomy.gov configuration matched for a
// catalog model year. An empty set is a valid result.
type VehicleSpecSet struct {
	Model    string
	Year     int
	Vehicles []VehicleSpec
}

// Unit implements Record.
func (s VehicleSpecSet) Unit() WorkUnit {
	return WorkUnit{Source: SourceFuelEconomy, Model: s.Model, Year: s.Year}
}

// Dataset implements Record.
func (VehicleSpecSet) Dataset() string { return DatasetFuelEconomy }

// Lines implements Record.
func (s VehicleSpecSet) Lines() []Line {
	lines := make([]Line, 0, len(s.Vehicles))
	for _, v := range s.Vehicles {
		lines = append(lines, v)
	}
	return lines
}

// DedupKey implements Line.
func (v VehicleSpec) DedupKey() string {
	return strconv.Itoa(v.VehicleID)
}

// Unit implements Record.
func (s ServiceSpec) Unit() WorkUnit {
	return WorkUnit{Source: SourceOwnersManual, Model: s.Model, Year: s.Year}
}

// Dataset implements Record.
func (ServiceSpec) Dataset() string { return DatasetServiceSpecs }

// Lines implements Record.
func (s ServiceSpec) Lines() []Line { return []Line{s} }

// DedupKey implements Line.
func (s ServiceSpec) DedupKey() string {
	return s.Model + "|" + strconv.Itoa(s.Year)
}
