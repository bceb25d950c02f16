// Command gendataset generates a bundled facility dataset by laying out a
// fixed roster of facility templates around major metro centers. Placement is
// purely index-based, so the same flags always produce the same file; it runs
// every record through the actual normalization path to guarantee the output
// loads cleanly.
//
// Usage:
//
//	go run ./cmd/gendataset -out internal/adapter/bundled/dataset.json -version 2026.09
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/couchcryptid/facility-discovery/internal/domain"
)

type metro struct {
	slug  string
	city  string
	state string
	lat   float64
	lon   float64
}

// metros lists one anchor city per state, so the dataset always covers all
// fifty states with a full template roster each.
var metros = []metro{
	{slug: "atx", city: "Austin", state: "TX", lat: 30.2672, lon: -97.7431},
	{slug: "nyc", city: "New York", state: "NY", lat: 40.7128, lon: -74.0060},
	{slug: "sf", city: "San Francisco", state: "CA", lat: 37.7749, lon: -122.4194},
	{slug: "chi", city: "Chicago", state: "IL", lat: 41.8781, lon: -87.6298},
	{slug: "sea", city: "Seattle", state: "WA", lat: 47.6062, lon: -122.3321},
	{slug: "den", city: "Denver", state: "CO", lat: 39.7392, lon: -104.9903},
	{slug: "atl", city: "Atlanta", state: "GA", lat: 33.7490, lon: -84.3880},
	{slug: "phx", city: "Phoenix", state: "AZ", lat: 33.4484, lon: -112.0740},
	{slug: "bhm", city: "Birmingham", state: "AL", lat: 33.5207, lon: -86.8025},
	{slug: "anc", city: "Anchorage", state: "AK", lat: 61.2181, lon: -149.9003},
	{slug: "lit", city: "Little Rock", state: "AR", lat: 34.7465, lon: -92.2896},
	{slug: "hfd", city: "Hartford", state: "CT", lat: 41.7658, lon: -72.6734},
	{slug: "wlm", city: "Wilmington", state: "DE", lat: 39.7391, lon: -75.5398},
	{slug: "mia", city: "Miami", state: "FL", lat: 25.7617, lon: -80.1918},
	{slug: "hnl", city: "Honolulu", state: "HI", lat: 21.3069, lon: -157.8583},
	{slug: "boi", city: "Boise", state: "ID", lat: 43.6150, lon: -116.2023},
	{slug: "ind", city: "Indianapolis", state: "IN", lat: 39.7684, lon: -86.1581},
	{slug: "dsm", city: "Des Moines", state: "IA", lat: 41.5868, lon: -93.6250},
	{slug: "ict", city: "Wichita", state: "KS", lat: 37.6872, lon: -97.3301},
	{slug: "lou", city: "Louisville", state: "KY", lat: 38.2527, lon: -85.7585},
	{slug: "msy", city: "New Orleans", state: "LA", lat: 29.9511, lon: -90.0715},
	{slug: "pwm", city: "Portland", state: "ME", lat: 43.6591, lon: -70.2568},
	{slug: "bal", city: "Baltimore", state: "MD", lat: 39.2904, lon: -76.6122},
	{slug: "bos", city: "Boston", state: "MA", lat: 42.3601, lon: -71.0589},
	{slug: "det", city: "Detroit", state: "MI", lat: 42.3314, lon: -83.0458},
	{slug: "msp", city: "Minneapolis", state: "MN", lat: 44.9778, lon: -93.2650},
	{slug: "jan", city: "Jackson", state: "MS", lat: 32.2988, lon: -90.1848},
	{slug: "stl", city: "St. Louis", state: "MO", lat: 38.6270, lon: -90.1994},
	{slug: "bil", city: "Billings", state: "MT", lat: 45.7833, lon: -108.5007},
	{slug: "oma", city: "Omaha", state: "NE", lat: 41.2565, lon: -95.9345},
	{slug: "las", city: "Las Vegas", state: "NV", lat: 36.1699, lon: -115.1398},
	{slug: "mht", city: "Manchester", state: "NH", lat: 42.9956, lon: -71.4548},
	{slug: "ewr", city: "Newark", state: "NJ", lat: 40.7357, lon: -74.1724},
	{slug: "abq", city: "Albuquerque", state: "NM", lat: 35.0844, lon: -106.6504},
	{slug: "clt", city: "Charlotte", state: "NC", lat: 35.2271, lon: -80.8431},
	{slug: "far", city: "Fargo", state: "ND", lat: 46.8772, lon: -96.7898},
	{slug: "cmh", city: "Columbus", state: "OH", lat: 39.9612, lon: -82.9988},
	{slug: "okc", city: "Oklahoma City", state: "OK", lat: 35.4676, lon: -97.5164},
	{slug: "pdx", city: "Portland", state: "OR", lat: 45.5152, lon: -122.6784},
	{slug: "phl", city: "Philadelphia", state: "PA", lat: 39.9526, lon: -75.1652},
	{slug: "pvd", city: "Providence", state: "RI", lat: 41.8240, lon: -71.4128},
	{slug: "chs", city: "Charleston", state: "SC", lat: 32.7765, lon: -79.9311},
	{slug: "fsd", city: "Sioux Falls", state: "SD", lat: 43.5446, lon: -96.7311},
	{slug: "mem", city: "Memphis", state: "TN", lat: 35.1495, lon: -90.0490},
	{slug: "slc", city: "Salt Lake City", state: "UT", lat: 40.7608, lon: -111.8910},
	{slug: "btv", city: "Burlington", state: "VT", lat: 44.4759, lon: -73.2121},
	{slug: "ric", city: "Richmond", state: "VA", lat: 37.5407, lon: -77.4360},
	{slug: "crw", city: "Charleston", state: "WV", lat: 38.3498, lon: -81.6326},
	{slug: "mke", city: "Milwaukee", state: "WI", lat: 43.0389, lon: -87.9065},
	{slug: "cpr", city: "Casper", state: "WY", lat: 42.8501, lon: -106.3252},
}

// template is one facility archetype stamped out per metro. Hours and
// accessibility are part of the archetype, never randomized, so regenerating
// the dataset is reproducible.
type template struct {
	nameSuffix string
	typ        string
	accessible bool
	hours      string
}

var templates = []template{
	{nameSuffix: "Park Restroom", typ: "restroom", accessible: true, hours: "6:00-22:00"},
	{nameSuffix: "Plaza Restroom", typ: "restroom", accessible: false, hours: "8:00-20:00"},
	{nameSuffix: "Transit Center Restroom", typ: "restroom", accessible: true, hours: "5:00-23:00"},
	{nameSuffix: "Park Water Fountain", typ: "water_fountain", accessible: true},
	{nameSuffix: "Trail Water Fountain", typ: "water_fountain", accessible: false},
	{nameSuffix: "Central Library", typ: "library", accessible: true, hours: "10:00-20:00"},
	{nameSuffix: "Public Wifi Zone", typ: "wifi", accessible: true},
	{nameSuffix: "Kiosk Charging Station", typ: "charging_station", accessible: true},
	{nameSuffix: "Station ATM", typ: "atm", accessible: true, hours: "24/7"},
	{nameSuffix: "Emergency Shelter", typ: "shelter", accessible: true, hours: "24/7"},
	{nameSuffix: "Community Food Pantry", typ: "free_food", accessible: true, hours: "9:00-17:00"},
	{nameSuffix: "Free Health Clinic", typ: "clinic", accessible: true, hours: "9:00-17:00"},
	{nameSuffix: "Transit Stop", typ: "transit", accessible: true},
	{nameSuffix: "Public Handwashing Station", typ: "handwashing", accessible: true},
}

// goldenAngle spreads successive templates evenly around the metro center.
const goldenAngle = 2.399963

type datasetFile struct {
	Version     string             `json:"version"`
	GeneratedAt time.Time          `json:"generated_at"`
	Records     []domain.RawRecord `json:"records"`
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	out := flag.String("out", "", "output path for the dataset JSON")
	version := flag.String("version", "", "dataset version string (e.g. 2026.09)")
	flag.Parse()

	if *out == "" || *version == "" {
		flag.Usage()
		return fmt.Errorf("missing required flags: -out, -version")
	}

	generatedAt := time.Date(2026, time.August, 3, 0, 0, 0, 0, time.UTC)
	records := make([]domain.RawRecord, 0, len(metros)*len(templates))

	for _, m := range metros {
		for i, tpl := range templates {
			rec := buildRecord(m, tpl, i)

			// Dry-run normalization so a broken record fails generation, not
			// service startup.
			if _, err := domain.Normalize(rec, domain.ProviderBundled, generatedAt); err != nil {
				return fmt.Errorf("%s: generated record is invalid: %w", rec.LocalID, err)
			}
			records = append(records, rec)
		}
		log.Printf("%s (%s): %d records", m.city, m.state, len(templates))
	}

	file := datasetFile{
		Version:     *version,
		GeneratedAt: generatedAt,
		Records:     records,
	}
	if err := writeJSON(*out, file); err != nil {
		return fmt.Errorf("writing dataset: %w", err)
	}
	log.Printf("wrote %d records to %s", len(records), *out)

	printStats(records)
	return nil
}

// buildRecord places template i on a deterministic spiral around the metro
// center: roughly half a kilometre per step, angle advanced by the golden
// angle so no two facilities overlap.
func buildRecord(m metro, tpl template, i int) domain.RawRecord {
	distKm := 0.4 + 0.5*float64(i)
	angle := goldenAngle * float64(i)

	latOffset := (distKm / 111.0) * math.Sin(angle)
	lonOffset := (distKm / (111.0 * math.Cos(m.lat*math.Pi/180))) * math.Cos(angle)

	return domain.RawRecord{
		LocalID:    fmt.Sprintf("%s-%03d", m.slug, i+1),
		Name:       fmt.Sprintf("%s %s", m.city, tpl.nameSuffix),
		Type:       tpl.typ,
		Latitude:   round5(m.lat + latOffset),
		Longitude:  round5(m.lon + lonOffset),
		City:       m.city,
		State:      m.state,
		Accessible: boolPtr(tpl.accessible),
		Hours:      tpl.hours,
	}
}

func round5(v float64) float64 {
	return math.Round(v*1e5) / 1e5
}

func boolPtr(b bool) *bool { return &b }

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o600)
}

func printStats(records []domain.RawRecord) {
	typeCounts := map[string]int{}
	accessible := 0
	for _, r := range records {
		typeCounts[r.Type]++
		if r.Accessible != nil && *r.Accessible {
			accessible++
		}
	}

	fmt.Println("\n=== Stats for updating test assertions ===")
	fmt.Printf("Total: %d across %d metros\n", len(records), len(metros))
	fmt.Printf("Accessible: %d\n", accessible)
	fmt.Print("By type: ")
	for _, tpl := range templates {
		if n, ok := typeCounts[tpl.typ]; ok {
			fmt.Printf("%s=%d ", tpl.typ, n)
			delete(typeCounts, tpl.typ)
		}
	}
	fmt.Println()
}
