// Package seed generates the synthetic reference dataset served by the
// reference endpoints and consumed by the scenario engine. Output is
// reproducible for a given seed.
package seed

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/lmsynth/lmsynth/internal/domain/reference"
)

// Config controls the volume and shape of generated data.
type Config struct {
	Seed         int64 `json:"seed"`
	Sites        int   `json:"sites"`
	BaselineYear int   `json:"baseline_year"`
	// StayScale scales the number of inpatient stays generated per
	// (site, program); 1.0 yields realistic annual volumes.
	StayScale float64 `json:"stay_scale"`
}

func DefaultConfig() Config {
	return Config{
		Seed:         42,
		Sites:        8,
		BaselineYear: reference.DefaultBaselineYear,
		StayScale:    1.0,
	}
}

type programProfile struct {
	name            string
	losMean, losStd float64
	alcMean, alcStd float64
	hppd            float64
	admMin, admMax  int
	subprograms     []string
}

// programs is keyed by program id.
var programs = map[int]programProfile{
	1: {"Medicine", 5.8, 0.8, 0.12, 0.02, 6.5, 2400, 4200, []string{"General Medicine", "Cardiology", "Respirology"}},
	2: {"Surgery", 4.2, 0.4, 0.08, 0.01, 5.8, 1200, 2200, []string{"General Surgery", "Orthopedics"}},
	3: {"MHSU", 6.5, 1.0, 0.15, 0.03, 8.2, 300, 700, []string{"Adult Psychiatry", "Substance Use"}},
	4: {"Critical Care", 8.3, 1.2, 0.05, 0.02, 12.5, 200, 450, []string{"ICU", "CCU"}},
	5: {"Periop", 3.8, 0.5, 0.06, 0.01, 4.5, 800, 1500, []string{"Day Surgery"}},
	6: {"Emergency", 0.5, 0.1, 0.02, 0.01, 4.2, 3000, 5500, []string{"Adult Emergency", "Pediatric Emergency"}},
}

var programOrder = []int{1, 2, 3, 4, 5, 6}

// scheduledPrograms carry staffed beds.
var scheduledPrograms = []int{1, 2, 4, 6}

var globalSeasonality = [12]float64{1.00, 1.00, 1.02, 1.01, 1.00, 1.00, 0.98, 0.98, 1.01, 1.02, 1.03, 1.04}

// programSeasonality overrides the global curve for some months.
var programSeasonality = map[int]map[int]float64{
	6: {1: 1.06, 7: 1.05, 8: 1.05, 12: 1.08},
}

var siteNames = []string{
	"Riverside General", "Northshore Regional", "Lakeview Memorial", "Eastgate Community",
	"Hillcrest University", "Westbrook District", "Harbourview", "Southfield Health Centre",
	"Cedar Valley", "Pinecrest", "Maple Ridge", "Summit Heights",
}

// Generator produces a Dataset from a seeded source.
type Generator struct {
	rng *rand.Rand
	cfg Config
}

// NewGenerator returns a generator for cfg. A zero seed picks a time-based one.
func NewGenerator(cfg Config) *Generator {
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}
	if cfg.Sites <= 0 {
		cfg.Sites = DefaultConfig().Sites
	}
	if cfg.BaselineYear <= 0 {
		cfg.BaselineYear = reference.DefaultBaselineYear
	}
	if cfg.StayScale <= 0 {
		cfg.StayScale = 1.0
	}
	return &Generator{rng: rand.New(rand.NewSource(cfg.Seed)), cfg: cfg}
}

func (g *Generator) normal(mean, std float64) float64 {
	return g.rng.NormFloat64()*std + mean
}

func (g *Generator) uniform(lo, hi float64) float64 {
	return lo + g.rng.Float64()*(hi-lo)
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// Generate builds the full dataset. Tables are generated in a fixed order so
// the same seed always yields the same rows.
func (g *Generator) Generate() *Dataset {
	d := &Dataset{Config: g.cfg}

	for i := 1; i <= g.cfg.Sites; i++ {
		name := siteNames[(i-1)%len(siteNames)]
		if i > len(siteNames) {
			name = fmt.Sprintf("%s %d", name, i)
		}
		d.Sites = append(d.Sites, reference.Site{ID: i, Code: fmt.Sprintf("S%02d", i), Name: name})
	}

	for _, pid := range programOrder {
		prof := programs[pid]
		d.Programs = append(d.Programs, reference.Program{ID: pid, Name: prof.name})
		for j, sub := range prof.subprograms {
			d.Subprograms = append(d.Subprograms, reference.Subprogram{ProgramID: pid, ID: j + 1, Name: sub})
		}
	}

	g.staffedBeds(d)
	g.baselines(d)
	g.seasonality(d)
	g.staffingFactors(d)
	g.stays(d)
	return d
}

func (g *Generator) staffedBeds(d *Dataset) {
	for _, site := range d.Sites {
		medicine := 40 + g.rng.Intn(50)
		for _, pid := range scheduledPrograms {
			var beds int
			switch pid {
			case 1:
				beds = medicine
			case 2:
				beds = int(float64(medicine) * 0.3)
			case 4:
				beds = max(8, int(float64(medicine)*0.15))
			case 6:
				beds = 15 + g.rng.Intn(20)
			}
			d.Schedules = append(d.Schedules,
				reference.StaffedBedsSchedule{SiteID: site.ID, ProgramID: pid, ScheduleCode: "Sched-A", StaffedBeds: beds},
				// Sched-B models a 10% expansion of the current plan.
				reference.StaffedBedsSchedule{SiteID: site.ID, ProgramID: pid, ScheduleCode: "Sched-B", StaffedBeds: int(math.Ceil(float64(beds) * 1.1))},
			)
		}
	}
}

func (g *Generator) baselines(d *Dataset) {
	for _, site := range d.Sites {
		for _, pid := range programOrder {
			prof := programs[pid]
			d.Baselines = append(d.Baselines, reference.ClinicalBaseline{
				SiteID:       site.ID,
				ProgramID:    pid,
				BaselineYear: g.cfg.BaselineYear,
				LOSBaseDays:  round(math.Max(0.25, g.normal(prof.losMean, prof.losStd)), 3),
				ALCRate:      round(clamp(g.normal(prof.alcMean, prof.alcStd), 0, 0.30), 4),
			})
		}
	}
}

func (g *Generator) seasonality(d *Dataset) {
	for i, m := range globalSeasonality {
		d.Seasonality = append(d.Seasonality, reference.SeasonalityMultiplier{Month: i + 1, Multiplier: m})
	}
	for _, pid := range programOrder {
		overrides, ok := programSeasonality[pid]
		if !ok {
			continue
		}
		for month := 1; month <= 12; month++ {
			if m, ok := overrides[month]; ok {
				d.Seasonality = append(d.Seasonality, reference.SeasonalityMultiplier{ProgramID: &pid, Month: month, Multiplier: m})
			}
		}
	}
}

func (g *Generator) staffingFactors(d *Dataset) {
	for _, pid := range programOrder {
		prof := programs[pid]
		d.StaffingFactors = append(d.StaffingFactors, reference.StaffingFactor{
			ProgramID:          pid,
			HPPD:               round(prof.hppd*g.uniform(0.95, 1.05), 3),
			AnnualHoursPerFTE:  reference.DefaultAnnualHoursPerFTE,
			ProductivityFactor: round(g.uniform(0.88, 0.95), 3),
		})
	}
	// Cardiology runs richer than the Medicine average.
	cardiology := 2
	d.StaffingFactors = append(d.StaffingFactors, reference.StaffingFactor{
		ProgramID:          1,
		SubprogramID:       &cardiology,
		HPPD:               round(7.4*g.uniform(0.97, 1.03), 3),
		AnnualHoursPerFTE:  reference.DefaultAnnualHoursPerFTE,
		ProductivityFactor: 0.9,
	})
}

// stays emits inpatient stays whose count, LOS and ALC share track each
// baseline. Admission months are drawn in proportion to seasonality.
func (g *Generator) stays(d *Dataset) {
	fixture := d.Fixture()
	yearStart := time.Date(g.cfg.BaselineYear, time.January, 1, 0, 0, 0, 0, time.UTC)

	var id int64
	for _, b := range d.Baselines {
		prof := programs[b.ProgramID]
		n := int(float64(prof.admMin+g.rng.Intn(prof.admMax-prof.admMin+1)) * g.cfg.StayScale)
		if n < 1 {
			n = 1
		}
		weights := reference.ResolveProfile(fixture.Seasonality, b.SiteID, b.ProgramID)
		for k := 0; k < n; k++ {
			month := g.pickMonth(weights)
			monthStart := yearStart.AddDate(0, month, 0)
			days := monthStart.AddDate(0, 1, 0).Sub(monthStart)
			admit := monthStart.Add(time.Duration(g.rng.Int63n(int64(days)))).Truncate(time.Minute)

			los := round(math.Max(0.1, g.normal(b.LOSBaseDays, b.LOSBaseDays*0.35)), 3)
			id++
			d.Stays = append(d.Stays, reference.Stay{
				ID:          id,
				SiteID:      b.SiteID,
				ProgramID:   b.ProgramID,
				AdmitTS:     admit,
				DischargeTS: admit.Add(time.Duration(los * 24 * float64(time.Hour))).Truncate(time.Minute),
				LOSDays:     los,
				ALCFlag:     g.rng.Float64() < b.ALCRate,
			})
		}
	}
}

// pickMonth returns a zero-based month index weighted by w.
func (g *Generator) pickMonth(w [12]float64) int {
	var total float64
	for _, v := range w {
		total += v
	}
	r := g.rng.Float64() * total
	for i, v := range w {
		if r < v {
			return i
		}
		r -= v
	}
	return 11
}
