package collector

import (
	"cmp"
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Source identifies where a unit's data comes from.
type Source string

// Supported sources, listed in matrix order.
const (
	SourceToyotaPDF    Source = "toyota_pdf"
	SourceFuelEconomy  Source = "fueleconomy"
	SourceOwnersManual Source = "owners_manual"
)

var sourceOrder = []Source{SourceToyotaPDF, SourceFuelEconomy, SourceOwnersManual}

// Sources returns every known source in matrix order.
func Sources() []Source {
	return slices.Clone(sourceOrder)
}

// ParseSource accepts both the underscore form and the hyphenated CLI form
// ("toyota-pdf", "owners-manual").
func ParseSource(raw string) (Source, error) {
	norm := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(raw)), "-", "_")
	for _, s := range sourceOrder {
		if string(s) == norm {
			return s, nil
		}
	}
	return "", &ConfigError{Field: "source", Reason: fmt.Sprintf("unknown source %q", raw)}
}

// Rank returns the position of s in matrix order, or -1 when unknown.
func (s Source) Rank() int {
	return slices.Index(sourceOrder, s)
}

// Valid reports whether s is a known source.
func (s Source) Valid() bool {
	return s.Rank() >= 0
}

// WorkUnit is one (source, model, year) item of collection work.
type WorkUnit struct {
	Source Source `json:"source"`
	Model  string `json:"model"`
	Year   int    `json:"year"`
}

// Key returns the checkpoint key "source:model:year".
func (u WorkUnit) Key() string {
	return string(u.Source) + ":" + u.Model + ":" + strconv.Itoa(u.Year)
}

func (u WorkUnit) String() string {
	return u.Key()
}

// CompareUnits orders units by source rank, then model, then year.
func CompareUnits(a, b WorkUnit) int {
	if c := cmp.Compare(a.Source.Rank(), b.Source.Rank()); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Model, b.Model); c != 0 {
		return c
	}
	return cmp.Compare(a.Year, b.Year)
}

// MatrixSpec is the resolved selection of sources, models and years for a run.
type MatrixSpec struct {
	Sources []Source
	Models  []string
	Years   []int
}

// ServiceItem is one maintenance action.
type ServiceItem struct {
	Name              string  `json:"name"`
	Required          bool    `json:"required"`
	SpecialConditions *string `json:"special_conditions"`
}

// MaintenanceInterval groups the items due at one mileage.
type MaintenanceInterval struct {
	Mileage               int           `json:"mileage"`
	Months                *int          `json:"months"`
	Items                 []ServiceItem `json:"items"`
	SpecialOperatingItems []ServiceItem `json:"special_operating_items"`
}

// MaintenanceRecord is the structured schedule for one model year.
type MaintenanceRecord struct {
	Source         Source                `json:"source"`
	Model          string                `json:"model"`
	Year           int                   `json:"year"`
	Intervals      []MaintenanceInterval `json:"intervals"`
	SourceURL      *string               `json:"source_url"`
	ScrapedAt      time.Time             `json:"scraped_at"`
	Fallback       bool                  `json:"fallback"`
	FallbackReason string                `json:"fallback_reason,omitempty"`
	ContentSHA256  string                `json:"content_sha256,omitempty"`
	RawURI         string                `json:"raw_uri,omitempty"`
}

// VehicleSpec is one FuelEconomy.gov vehicle configuration.
type VehicleSpec struct {
	VehicleID       int       `json:"vehicle_id"`
	Make            string    `json:"make"`
	Model           string    `json:"model"`
	Year            int       `json:"year"`
	Options         string    `json:"options,omitempty"`
	Displacement    float64   `json:"displacement"`
	Cylinders       int       `json:"cylinders"`
	Transmission    string    `json:"transmission"`
	Drive           string    `json:"drive"`
	FuelType        string    `json:"fuel_type"`
	CityMPG         int       `json:"city_mpg"`
	HighwayMPG      int       `json:"highway_mpg"`
	CombinedMPG     int       `json:"combined_mpg"`
	VehicleClass    string    `json:"vehicle_class"`
	AnnualFuelCost  int       `json:"annual_fuel_cost"`
	CO2GramsPerMile float64   `json:"co2_grams_per_mile"`
	CatalogModel    string    `json:"catalog_model"`
	ScrapedAt       time.Time `json:"scraped_at"`
}

// FluidSpec describes one fluid and its capacity.
type FluidSpec struct {
	FluidType     string  `json:"fluid_type"`
	Specification string  `json:"specification"`
	Capacity      *string `json:"capacity"`
}

// ServiceSpec is the static owner's-manual data for one model year.
type ServiceSpec struct {
	Model             string      `json:"model"`
	Year              int         `json:"year"`
	Category          string      `json:"category"`
	OilType           string      `json:"oil_type"`
	OilCapacity       string      `json:"oil_capacity"`
	CoolantType       string      `json:"coolant_type"`
	TransmissionFluid string      `json:"transmission_fluid"`
	BrakeFluid        string      `json:"brake_fluid"`
	Fluids            []FluidSpec `json:"fluids"`
	ManualURL         string      `json:"manual_url"`
	ScrapedAt         time.Time   `json:"scraped_at"`
}

// FetchStatus is the outcome class of a fetch.
type FetchStatus string

// Fetch outcomes.
const (
	FetchSuccess          FetchStatus = "success"
	FetchRetryableFailure FetchStatus = "retryable_failure"
	FetchFatalFailure     FetchStatus = "fatal_failure"
)

// Target is a fully formed request for one source.
type Target struct {
	Source  Source
	URL     string
	Rate    float64
	Headers http.Header
}

// FetchResult is the transient outcome of a fetch. It is never persisted.
type FetchResult struct {
	Status     FetchStatus
	Payload    []byte
	HTTPStatus int
	Header     http.Header
	Attempts   int
	Err        error
}

// OK reports whether the fetch succeeded.
func (r FetchResult) OK() bool {
	return r.Status == FetchSuccess
}

// Document is the raw material a handler fetched for a unit.
type Document struct {
	URL         string
	ContentType string
	Body        []byte
	HTTPStatus  int
	// Decoded holds the structured payload for API sources.
	Decoded any
}
