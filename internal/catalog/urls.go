package catalog

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Default source endpoints.
const (
	DefaultPDFPrimaryBase   = "https://www.toyota.com/content/dam/toyota/brochures/pdf"
	DefaultPDFAlternateBase = "https://assets.sia.toyota.com/publications/en/omms-s"
	DefaultFuelEconomyBase  = "https://www.fueleconomy.gov/ws/rest"
	DefaultOwnersManualBase = "https://www.toyota.com/owners/warranty-owners-manuals"
	DefaultFuelEconomyMake  = "Toyota"
)

// DocumentID is the warranty and maintenance guide identifier, e.g. T-MMS-24Camry.
func DocumentID(model string, year int) string {
	yy := strconv.Itoa(year % 100)
	if len(yy) == 1 {
		yy = "0" + yy
	}
	return "T-MMS-" + yy + model
}

// URLs builds source endpoints from configurable bases.
type URLs struct {
	PDFPrimaryBase   string
	PDFAlternateBase string
	FuelEconomyBase  string
	FuelEconomyMake  string
	OwnersManualBase string
}

// DefaultURLs returns the production endpoints.
func DefaultURLs() URLs {
	return URLs{
		PDFPrimaryBase:   DefaultPDFPrimaryBase,
		PDFAlternateBase: DefaultPDFAlternateBase,
		FuelEconomyBase:  DefaultFuelEconomyBase,
		FuelEconomyMake:  DefaultFuelEconomyMake,
		OwnersManualBase: DefaultOwnersManualBase,
	}
}

// PDFCandidates returns the maintenance guide URLs to try in order.
func (u URLs) PDFCandidates(model string, year int) []string {
	doc := DocumentID(model, year)
	return []string{
		fmt.Sprintf("%s/%d/%s.pdf", strings.TrimRight(u.PDFPrimaryBase, "/"), year, doc),
		fmt.Sprintf("%s/%s/pdf/%s.pdf", strings.TrimRight(u.PDFAlternateBase, "/"), doc, doc),
	}
}

// FuelEconomyModels lists the API's model names for a make and year.
func (u URLs) FuelEconomyModels(year int) string {
	q := url.Values{}
	q.Set("year", strconv.Itoa(year))
	q.Set("make", u.FuelEconomyMake)
	return strings.TrimRight(u.FuelEconomyBase, "/") + "/vehicle/menu/model?" + q.Encode()
}

// FuelEconomyOptions lists vehicle IDs for one API model name.
func (u URLs) FuelEconomyOptions(year int, apiModel string) string {
	q := url.Values{}
	q.Set("year", strconv.Itoa(year))
	q.Set("make", u.FuelEconomyMake)
	q.Set("model", apiModel)
	return strings.TrimRight(u.FuelEconomyBase, "/") + "/vehicle/menu/options?" + q.Encode()
}

// FuelEconomyVehicle fetches one vehicle record.
func (u URLs) FuelEconomyVehicle(id int) string {
	return strings.TrimRight(u.FuelEconomyBase, "/") + "/vehicle/" + strconv.Itoa(id)
}

// OwnersManual is the informational manual landing page for a model year.
func (u URLs) OwnersManual(model string, year int) string {
	return fmt.Sprintf("%s/%d-%s", strings.TrimRight(u.OwnersManualBase, "/"), year, strings.ToLower(model))
}
