package walks

import (
	"strconv"
	"strings"

	"github.com/franckalain/wellness/internal/ml"
	"github.com/franckalain/wellness/internal/models"
)

const (
	yandexBase = "https://yandex.ru/maps/?rtext="
	googleBase = "https://www.google.com/maps/dir/?api=1"
)

// EncodeComponent percent-encodes s the way browsers encode a URI
// component: everything except A-Z a-z 0-9 and -_.!~*'() is escaped.
func EncodeComponent(s string) string {
	const hex = "0123456789ABCDEF"
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if unreserved(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hex[c>>4])
		b.WriteByte(hex[c&0x0f])
	}
	return b.String()
}

func unreserved(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	return strings.IndexByte("-_.!~*'()", c) >= 0
}

// FormatCoords renders a coordinate pair with the fewest digits that
// round-trip, so 55.0 becomes "55".
func FormatCoords(p ml.LatLng) string {
	return strconv.FormatFloat(p.Lat, 'f', -1, 64) + "," + strconv.FormatFloat(p.Lng, 'f', -1, 64)
}

// StartToken is the origin used in map links: the confirmed address in
// custom_address mode, otherwise the coordinates, otherwise empty.
func StartToken(mode models.WalkMode, loc Location) string {
	if mode == models.WalkCustomAddress && loc.Address != "" {
		return loc.Address
	}
	if loc.Coords != nil {
		return FormatCoords(*loc.Coords)
	}
	return ""
}

// BuildLinks returns the Yandex and Google walking links for a route.
func BuildLinks(mode models.WalkMode, start string, r models.WalkingRoute) models.MapLinks {
	origin := EncodeComponent(start)
	routeStart := EncodeComponent(r.StartLocation)
	routeEnd := EncodeComponent(r.EndLocation)

	var chain string
	switch {
	case mode == models.WalkNearby:
		chain = origin + "~" + routeStart + "~" + routeEnd
	case r.IsRoundTrip:
		chain = origin + "~" + routeEnd + "~" + origin
	default:
		chain = origin + "~" + routeEnd
	}

	destination := routeEnd
	if r.IsRoundTrip {
		destination = origin
	}
	var waypoints string
	if mode == models.WalkNearby {
		waypoints = routeStart
	} else if r.IsRoundTrip {
		waypoints = routeEnd
	}
	google := googleBase + "&origin=" + origin + "&destination=" + destination + "&travelmode=walking"
	if waypoints != "" {
		google += "&waypoints=" + waypoints
	}

	return models.MapLinks{
		Yandex: yandexBase + chain + "&rtt=pd",
		Google: google,
	}
}
