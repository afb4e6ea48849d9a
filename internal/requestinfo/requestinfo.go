// internal/requestinfo/requestinfo.go
//
// Per-request client metadata: user-agent fingerprint, IP with
// geolocation hints, URL, and timestamp.  These structs are inert.
// They contain no pointers to database handles or large buffers, so
// they are safe to log, JSON-encode, or copy into capture records.
//
// Dependencies
// • github.com/avct/uasurfer          (UA parsing)
// • github.com/oschwald/geoip2-golang (MaxMind lookup)
package requestinfo

import (
	"context"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	surfer "github.com/avct/uasurfer"
	"github.com/oschwald/geoip2-golang"
	"go.uber.org/zap"
)

// UA holds the parsed user-agent properties recorded with captures.
type UA struct {
	Raw         string // Entire User-Agent header
	Browser     string // "Chrome", "Firefox", "Safari", ...
	Version     string // "124.0.6367"
	OS          string // "macOS", "Windows", "Android", ...
	Device      string // "Desktop", "Phone", "Tablet", ...
	IsBot       bool   // True if UA matches crawler signatures
	PrimaryLang string // First tag from Accept-Language ("en", "es", ...)
}

// Geo holds IP-based geolocation hints.  Best-effort; fields may be
// empty when the database has no match.
type Geo struct {
	IP         net.IP // Original client address
	CountryISO string // "US", "CA", "FR", ...
	City       string // "Chicago", "Paris", ...
}

// RequestInfo is stored in the request context by Enrich.
type RequestInfo struct {
	UA        UA
	Geo       Geo
	URL       *url.URL // Pointer copy, safe to dereference read-only
	Timestamp time.Time
}

// geoReader is a singleton MaxMind handle.  Safe for concurrent reads,
// which is all we ever perform.  Nil when no database is configured;
// lookups then return the bare IP.
var geoReader *geoip2.Reader

// InitGeo opens the GeoLite2-City database.  Call from main() when the
// config names a database path; lookup stays degraded-but-working when
// it is absent.
func InitGeo(dbPath string) error {
	r, err := geoip2.Open(dbPath)
	if err != nil {
		return err
	}
	geoReader = r
	return nil
}

type ctxKey struct{} // unexported, collision-proof

// FromContext returns the pointer previously stored by Enrich, or nil
// when the middleware has not run.
func FromContext(ctx context.Context) *RequestInfo {
	v, _ := ctx.Value(ctxKey{}).(*RequestInfo)
	return v
}

// parseUA converts a raw header into our UA struct using uasurfer.
func parseUA(uaHeader, acceptLang string) UA {
	u := surfer.Parse(uaHeader)

	osName := strings.TrimPrefix(u.OS.Name.String(), "OS")
	if osName == "MacOSX" {
		osName = "macOS"
	}

	return UA{
		Raw:         uaHeader,
		Browser:     strings.TrimPrefix(u.Browser.Name.String(), "Browser"),
		Version:     versionString(u.Browser.Version),
		OS:          osName,
		Device:      deviceString(u.DeviceType),
		IsBot:       u.IsBot(),
		PrimaryLang: primaryLang(acceptLang),
	}
}

// versionString builds "major.minor.patch" and trims trailing ".0".
func versionString(v surfer.Version) string {
	out := strconv.Itoa(v.Major) + "." + strconv.Itoa(v.Minor) + "." + strconv.Itoa(v.Patch)
	out = strings.TrimSuffix(strings.TrimSuffix(out, ".0"), ".0")
	if out == "" {
		return "0"
	}
	return out
}

// deviceString maps uasurfer.DeviceType to a user-friendly string.
func deviceString(dt surfer.DeviceType) string {
	switch dt {
	case surfer.DeviceComputer:
		return "Desktop"
	case surfer.DevicePhone:
		return "Phone"
	case surfer.DeviceTablet:
		return "Tablet"
	case surfer.DeviceConsole:
		return "Console"
	case surfer.DeviceWearable:
		return "Wearable"
	case surfer.DeviceTV:
		return "TV"
	case surfer.DeviceUnknown:
		return "Unknown"
	default:
		return "Other"
	}
}

// primaryLang extracts the first language subtag before any ";q=" rule.
func primaryLang(al string) string {
	if al == "" {
		return ""
	}
	tag := strings.TrimSpace(strings.Split(al, ",")[0])
	if i := strings.Index(tag, ";"); i != -1 {
		tag = tag[:i]
	}
	return strings.ToLower(tag)
}

// lookupGeo returns best-effort Geo data using the global reader.
func lookupGeo(ip net.IP) Geo {
	if geoReader == nil || ip == nil {
		return Geo{IP: ip}
	}
	rec, err := geoReader.City(ip)
	if err != nil {
		zap.S().Debugw("geo lookup failed", "ip", ip, "err", err)
		return Geo{IP: ip}
	}
	return Geo{
		IP:         ip,
		CountryISO: rec.Country.IsoCode,
		City:       rec.City.Names["en"],
	}
}
