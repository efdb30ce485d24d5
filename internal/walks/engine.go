// Package walks suggests walking routes that cover the remaining step
// deficit of the day and builds map links for them.
package walks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/franckalain/wellness/internal/locale"
	"github.com/franckalain/wellness/internal/ml"
	"github.com/franckalain/wellness/internal/models"
)

var (
	ErrLocationUnavailable = errors.New("location unavailable")
	ErrAddressNotFound     = errors.New("address not found")
	ErrAddressRequired     = errors.New("confirmed address required")
	ErrRoutesUnavailable   = errors.New("routes unavailable")
	ErrInvalidMode         = errors.New("invalid walk mode")
)

// Location describes where a walk starts. Denied is set when the client
// reported that geolocation was refused or timed out.
type Location struct {
	Coords  *ml.LatLng
	Address string
	Denied  bool
}

type Request struct {
	StepsNeeded int
	Mode        models.WalkMode
	Location    Location
}

type Options struct {
	Model     string
	Timeout   time.Duration
	CacheSize int
}

// Engine generates routes through the model and repairs them.
type Engine struct {
	model     ml.Model
	locales   *locale.Store
	addresses *lru.Cache[string, string]
	opts      Options
	logger    *zap.Logger
}

func NewEngine(model ml.Model, locales *locale.Store, opts Options, logger *zap.Logger) (*Engine, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = 256
	}
	cache, err := lru.New[string, string](opts.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create address cache: %w", err)
	}
	return &Engine{
		model:     model,
		locales:   locales,
		addresses: cache,
		opts:      opts,
		logger:    logger.Named("walks"),
	}, nil
}

func cacheKey(input string) string {
	return strings.ToLower(strings.Join(strings.Fields(input), " "))
}

// NormalizeAddress turns free text into a canonical address or returns
// ErrAddressNotFound.
func (e *Engine) NormalizeAddress(ctx context.Context, input string) (string, error) {
	key := cacheKey(input)
	if key == "" {
		return "", ErrAddressNotFound
	}
	if addr, ok := e.addresses.Get(key); ok {
		return addr, nil
	}

	ctx, cancel := context.WithTimeout(ctx, e.opts.Timeout)
	defer cancel()
	addr, err := e.model.NormalizeAddress(ctx, strings.TrimSpace(input))
	if errors.Is(err, ml.ErrNotFound) {
		return "", ErrAddressNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to normalize address: %w", err)
	}
	e.addresses.Add(key, addr)
	e.addresses.Add(cacheKey(addr), addr)
	return addr, nil
}

// Suggest asks for four routes covering req.StepsNeeded. Any model or
// parsing failure yields ErrRoutesUnavailable and no routes. A custom
// start address must normalize to a known address first.
func (e *Engine) Suggest(ctx context.Context, req Request) ([]models.WalkingRoute, error) {
	if !req.Mode.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidMode, req.Mode)
	}
	loc := req.Location
	switch req.Mode {
	case models.WalkCustomAddress:
		if strings.TrimSpace(loc.Address) == "" {
			return nil, ErrAddressRequired
		}
		addr, err := e.NormalizeAddress(ctx, loc.Address)
		if errors.Is(err, ErrAddressNotFound) {
			return nil, err
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrRoutesUnavailable, err)
		}
		loc.Address = addr
	default:
		if loc.Coords == nil && loc.Denied {
			return nil, ErrLocationUnavailable
		}
	}

	steps := req.StepsNeeded
	if steps <= 0 {
		steps = FallbackSteps
	}
	km := TargetDistanceKm(steps)
	pack := e.locales.Current()

	ctx, cancel := context.WithTimeout(ctx, e.opts.Timeout)
	defer cancel()
	resp, err := e.model.GenerateText(ctx, ml.TextRequest{
		Prompt:   buildPrompt(req.Mode, loc, steps, km, pack.Language),
		Model:    e.opts.Model,
		Tools:    []ml.Tool{ml.ToolMaps},
		Location: loc.Coords,
	})
	if err != nil {
		e.logger.Warn("route generation failed", zap.String("mode", string(req.Mode)), zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrRoutesUnavailable, err)
	}

	routes, err := parseRoutes(resp.Text)
	if err != nil {
		e.logger.Warn("unusable route response", zap.String("mode", string(req.Mode)), zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrRoutesUnavailable, err)
	}

	routes = RepairRoutes(req.Mode, routes, pack.Messages.WalkTof)
	fillEstimates(routes, steps, km)
	start := StartToken(req.Mode, loc)
	for i := range routes {
		routes[i].Links = BuildLinks(req.Mode, start, routes[i])
	}
	e.logger.Debug("routes suggested",
		zap.String("mode", string(req.Mode)),
		zap.Int("steps", steps),
		zap.Int("routes", len(routes)))
	return routes, nil
}

func parseRoutes(text string) ([]models.WalkingRoute, error) {
	raw, ok := ml.ExtractArray(text)
	if !ok {
		return nil, fmt.Errorf("%w: no JSON array in reply", ml.ErrMalformedOutput)
	}
	var routes []models.WalkingRoute
	if err := json.Unmarshal([]byte(raw), &routes); err != nil {
		return nil, fmt.Errorf("%w: %w", ml.ErrMalformedOutput, err)
	}
	if len(routes) == 0 {
		return nil, fmt.Errorf("%w: empty route list", ml.ErrMalformedOutput)
	}
	return routes, nil
}

func buildPrompt(mode models.WalkMode, loc Location, steps int, km float64, language string) string {
	var start string
	switch {
	case mode == models.WalkCustomAddress && loc.Address != "":
		start = fmt.Sprintf("START POINT: the address %q.", loc.Address)
	case loc.Coords != nil:
		start = fmt.Sprintf("START POINT: coordinates %s.", FormatCoords(*loc.Coords))
	default:
		start = "The location is unknown, use the center of Moscow."
	}

	var b strings.Builder
	b.WriteString("You are a professional walking guide. Create exactly 4 DIFFERENT walking routes for the user.\n\n")
	b.WriteString(start + "\n\n")
	fmt.Fprintf(&b, "OVERALL DISTANCE GOAL: walk %.1f km (about %d steps).\n\n", km, steps)
	fmt.Fprintf(&b, "Mode: %s\n\n", mode)
	b.WriteString("1. Mode 'nearby':\n")
	b.WriteString("   - Find the 4 nearest parks or squares.\n")
	b.WriteString("   - Route: from the start to the park entrance and a walk inside.\n")
	b.WriteString("   - \"isRoundTrip\": false\n")
	b.WriteString("2. Modes 'direct' and 'custom_address':\n")
	fmt.Fprintf(&b, "   - The FIRST 3 routes are ROUND TRIPS: point B is about %.1f km from the start, "+
		"the user walks start -> B -> start.\n", km/2)
	fmt.Fprintf(&b, "   - The 4th route is ONE-WAY: point B is about %.1f km from the start.\n\n", km)
	b.WriteString("POINT B RULES:\n")
	b.WriteString("- In a residential area pick a school, mall, metro station, monument or a major crossing.\n")
	b.WriteString("- \"endLocation\" MUST differ from \"startLocation\".\n")
	b.WriteString("- Give every route an appealing \"title\".\n\n")
	fmt.Fprintf(&b, "Write titles and descriptions in %s.\n", language)
	b.WriteString("Return ONLY a valid JSON array of 4 objects, no markdown:\n")
	fmt.Fprintf(&b, `[{"title": "...", "description": "short directions", "estimatedSteps": %d, `+
		`"durationMinutes": %d, "distanceKm": %.1f, "startLocation": "start address as given", `+
		`"endLocation": "finish or turnaround address", "isRoundTrip": true}]`,
		steps, DurationMinutes(km), km)
	return b.String()
}
