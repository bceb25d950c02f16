// Command validate runs integrity checks over a facility dataset: parse and
// normalization, category mapping coverage, geographic sanity, and display
// field quality. Without a -dataset flag it validates the dataset embedded in
// the service binary.
//
// Usage:
//
//	go run ./cmd/validate [-dataset path/to/dataset.json]
package main

import (
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/couchcryptid/facility-discovery/internal/adapter/bundled"
	"github.com/couchcryptid/facility-discovery/internal/domain"
)

// usBox is a loose continental-US bounding box (plus Alaska and Hawaii).
// A record outside it is almost certainly a transposed or mis-signed
// coordinate.
type boundingBox struct {
	name           string
	minLat, maxLat float64
	minLon, maxLon float64
}

var usBoxes = []boundingBox{
	{name: "continental US", minLat: 24.0, maxLat: 50.0, minLon: -125.0, maxLon: -66.0},
	{name: "Alaska", minLat: 51.0, maxLat: 72.0, minLon: -180.0, maxLon: -129.0},
	{name: "Hawaii", minLat: 18.5, maxLat: 22.5, minLon: -161.0, maxLon: -154.0},
}

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	datasetPath := flag.String("dataset", "", "dataset JSON to validate (default: the embedded dataset)")
	flag.Parse()

	if code := run(*datasetPath); code != 0 {
		os.Exit(code)
	}
}

func run(datasetPath string) int {
	fmt.Println("=== Facility Dataset Integrity Validation ===")
	fmt.Println()

	facilities, version, err := loadDataset(datasetPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		return 1
	}
	fmt.Printf("Dataset version %s: %d facilities\n", version, len(facilities))

	phases := []*phase{
		validateCategories(facilities),
		validateGeography(facilities),
		validateDisplayFields(facilities),
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	printStats(facilities)

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// loadDataset parses either the embedded dataset or an external file. Parse
// already enforces record validity and ID uniqueness, so a successful load
// covers the structural phase.
func loadDataset(path string) ([]domain.Facility, string, error) {
	if path == "" {
		facilities, err := bundled.Load()
		return facilities, bundled.Version(), err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", err
	}
	return bundled.Parse(data)
}

// validateCategories ensures every record's type string had a mapping entry.
// CategoryUnknown in a curated dataset means a typo or a missing table row.
func validateCategories(facilities []domain.Facility) *phase {
	p := &phase{name: "Phase 1: Category Mapping Coverage"}
	for _, f := range facilities {
		if f.Category == domain.CategoryUnknown {
			p.errorf("%s (%q): type did not map to a category", f.ID, f.Name)
		}
	}
	return p
}

// validateGeography checks every coordinate falls inside a US bounding box.
func validateGeography(facilities []domain.Facility) *phase {
	p := &phase{name: "Phase 2: Geographic Sanity"}
	for _, f := range facilities {
		if !insideAnyBox(f.Location) {
			p.errorf("%s (%q): %.4f,%.4f is outside every known region",
				f.ID, f.Name, f.Location.Lat, f.Location.Lon)
		}
	}
	return p
}

func insideAnyBox(loc domain.LatLon) bool {
	for _, b := range usBoxes {
		if loc.Lat >= b.minLat && loc.Lat <= b.maxLat &&
			loc.Lon >= b.minLon && loc.Lon <= b.maxLon {
			return true
		}
	}
	return false
}

// validateDisplayFields checks the fields the client renders directly.
func validateDisplayFields(facilities []domain.Facility) *phase {
	p := &phase{name: "Phase 3: Display Field Quality"}
	for _, f := range facilities {
		if strings.HasSuffix(f.Address, " area") {
			p.errorf("%s (%q): address was synthesized; curated records should carry a real address", f.ID, f.Name)
		}
		if f.Hours != "" && !validHours(f.Hours) {
			p.errorf("%s (%q): unrecognized hours format %q", f.ID, f.Name, f.Hours)
		}
		if f.Rating != nil && (*f.Rating < 0 || *f.Rating > 5) {
			p.errorf("%s (%q): rating %g out of range", f.ID, f.Name, *f.Rating)
		}
	}
	return p
}

// validHours accepts "24/7" or comma-separated "H:MM-H:MM" ranges.
func validHours(hours string) bool {
	if hours == "24/7" {
		return true
	}
	for _, span := range strings.Split(hours, ",") {
		parts := strings.Split(strings.TrimSpace(span), "-")
		if len(parts) != 2 {
			return false
		}
		for _, t := range parts {
			hm := strings.Split(t, ":")
			if len(hm) != 2 {
				return false
			}
		}
	}
	return true
}

func printStats(facilities []domain.Facility) {
	byCategory := map[domain.Category]int{}
	byState := map[string]int{}
	accessible := 0
	for _, f := range facilities {
		byCategory[f.Category]++
		if f.Accessible {
			accessible++
		}
		// The state is the second-to-last address component for curated
		// records ("street, city, state, zip" or "city, state").
		parts := strings.Split(f.Address, ", ")
		if len(parts) >= 2 {
			candidate := parts[len(parts)-1]
			if len(candidate) != 2 {
				candidate = parts[len(parts)-2]
			}
			if len(candidate) == 2 {
				byState[candidate]++
			}
		}
	}

	fmt.Println("\n=== Dataset stats ===")
	fmt.Printf("Accessible: %d of %d\n", accessible, len(facilities))

	categories := make([]string, 0, len(byCategory))
	for c := range byCategory {
		categories = append(categories, string(c))
	}
	sort.Strings(categories)
	fmt.Print("Categories: ")
	for _, c := range categories {
		fmt.Printf("%s=%d ", c, byCategory[domain.Category(c)])
	}
	fmt.Println()

	states := make([]string, 0, len(byState))
	for s := range byState {
		states = append(states, s)
	}
	sort.Strings(states)
	fmt.Print("States: ")
	for _, s := range states {
		fmt.Printf("%s=%d ", s, byState[s])
	}
	fmt.Println()
}
