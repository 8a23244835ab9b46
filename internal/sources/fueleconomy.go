package sources

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"go.uber.org/zap"

	"github.com/JakeFAU/toyota-maintenance-collector/internal/catalog"
	"github.com/JakeFAU/toyota-maintenance-collector/internal/collector"
	"github.com/JakeFAU/toyota-maintenance-collector/internal/parser/fueleconomy"
)

var jsonHeaders = http.Header{"Accept": {"application/json"}}

// vehiclePayload is one raw vehicle/{id} response with its options label.
type vehiclePayload struct {
	Options string
	Body    []byte
}

// FuelEconomy collects every FuelEconomy.gov configuration of a catalog model
// year. Any failed request fails the whole unit so no partial set is emitted.
type FuelEconomy struct {
	Fetcher collector.Fetcher
	Catalog *catalog.Catalog
	URLs    catalog.URLs
	Rate    float64
	Clock   collector.Clock
	Logger  *zap.Logger

	mu     sync.Mutex
	models map[int][]string
}

// Source implements Handler.
func (h *FuelEconomy) Source() collector.Source { return collector.SourceFuelEconomy }

// Fetch walks the model menu, the option menus of the matching API models and
// each vehicle. The model menu is cached per year.
func (h *FuelEconomy) Fetch(ctx context.Context, unit collector.WorkUnit) (collector.Document, error) {
	model, ok := h.Catalog.Lookup(unit.Model)
	if !ok {
		return collector.Document{}, &collector.ConfigError{Field: "models", Reason: fmt.Sprintf("unknown model %q", unit.Model)}
	}

	apiModels, err := h.yearModels(ctx, unit.Year)
	if err != nil {
		return collector.Document{}, err
	}
	matched := fueleconomy.MatchModels(apiModels, model, h.Catalog.Models())
	h.logger().Debug("matched api models",
		zap.String("unit", unit.Key()),
		zap.Strings("api_models", matched),
	)

	var payloads []vehiclePayload
	for _, apiModel := range matched {
		items, err := h.menu(ctx, h.URLs.FuelEconomyOptions(unit.Year, apiModel))
		if err != nil {
			return collector.Document{}, err
		}
		ids, err := fueleconomy.VehicleIDs(items)
		if err != nil {
			return collector.Document{}, err
		}
		for i, id := range ids {
			res, err := h.fetch(ctx, h.URLs.FuelEconomyVehicle(id))
			if err != nil {
				return collector.Document{}, err
			}
			payloads = append(payloads, vehiclePayload{Options: items[i].Text, Body: res.Payload})
		}
	}

	return collector.Document{
		URL:         h.URLs.FuelEconomyModels(unit.Year),
		ContentType: "application/json",
		HTTPStatus:  http.StatusOK,
		Decoded:     payloads,
	}, nil
}

// Parse decodes every fetched vehicle into one set.
func (h *FuelEconomy) Parse(_ context.Context, unit collector.WorkUnit, doc collector.Document) (Outcome, error) {
	payloads, ok := doc.Decoded.([]vehiclePayload)
	if !ok && doc.Decoded != nil {
		return Outcome{}, fmt.Errorf("unexpected payload %T", doc.Decoded)
	}
	now := h.Clock.Now()
	set := collector.VehicleSpecSet{Model: unit.Model, Year: unit.Year, Vehicles: make([]collector.VehicleSpec, 0, len(payloads))}
	for _, p := range payloads {
		v, err := fueleconomy.DecodeVehicle(p.Body, p.Options, unit.Model, now)
		if err != nil {
			return Outcome{}, err
		}
		set.Vehicles = append(set.Vehicles, v)
	}
	return Outcome{Record: set}, nil
}

func (h *FuelEconomy) yearModels(ctx context.Context, year int) ([]string, error) {
	h.mu.Lock()
	cached, ok := h.models[year]
	h.mu.Unlock()
	if ok {
		return cached, nil
	}

	items, err := h.menu(ctx, h.URLs.FuelEconomyModels(year))
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(items))
	for _, it := range items {
		names = append(names, it.Value)
	}

	h.mu.Lock()
	if h.models == nil {
		h.models = make(map[int][]string)
	}
	h.models[year] = names
	h.mu.Unlock()
	return names, nil
}

func (h *FuelEconomy) menu(ctx context.Context, url string) ([]fueleconomy.MenuItem, error) {
	res, err := h.fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	return fueleconomy.DecodeMenu(res.Payload)
}

func (h *FuelEconomy) fetch(ctx context.Context, url string) (collector.FetchResult, error) {
	return fetchOK(ctx, h.Fetcher, collector.Target{
		Source:  collector.SourceFuelEconomy,
		URL:     url,
		Rate:    h.Rate,
		Headers: jsonHeaders,
	})
}

func (h *FuelEconomy) logger() *zap.Logger {
	if h.Logger == nil {
		return zap.NewNop()
	}
	return h.Logger
}
