package scenario

import (
	"encoding/json"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/lmsynth/lmsynth/internal/domain/reference"
)

const (
	ModelVersion      = "1.1.0"
	SeasonalityMethod = "mean_of_monthly"
	SchedulePolicy    = "include_without_staffed_beds"

	DefaultHorizonYears = 3
	DaysPerYear         = 365.0
	// LOSFloorRatio bounds effective LOS below by this share of LOS_b.
	LOSFloorRatio = 0.25
)

// ScenarioParams are the user-tunable levers of a projection.
type ScenarioParams struct {
	OccupancyTarget float64 `json:"occupancy_target"`
	LOSDelta        float64 `json:"los_delta"`
	ALCTarget       float64 `json:"alc_target"`
	GrowthPct       float64 `json:"growth_pct"`
	ScheduleCode    string  `json:"schedule_code"`
	Seasonality     bool    `json:"seasonality"`
}

// UnmarshalJSON applies wire defaults. occupancy_target and alc_target have
// no default; when absent they decode as NaN and fail validation.
func (p *ScenarioParams) UnmarshalJSON(data []byte) error {
	type raw ScenarioParams
	v := raw(missingParams())
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*p = ScenarioParams(v)
	return nil
}

func missingParams() ScenarioParams {
	return ScenarioParams{
		OccupancyTarget: math.NaN(),
		ALCTarget:       math.NaN(),
		ScheduleCode:    reference.DefaultScheduleCode,
	}
}

// ScenarioRequest selects the sites, program and baseline year to project.
type ScenarioRequest struct {
	Sites        []int          `json:"sites"`
	ProgramID    int            `json:"program_id"`
	SubprogramID *int           `json:"subprogram_id,omitempty"`
	BaselineYear int            `json:"baseline_year"`
	HorizonYears int            `json:"horizon_years"`
	Params       ScenarioParams `json:"params"`
}

// UnmarshalJSON fills baseline_year, horizon_years and params defaults for
// omitted fields.
func (r *ScenarioRequest) UnmarshalJSON(data []byte) error {
	type raw ScenarioRequest
	v := raw{
		BaselineYear: reference.DefaultBaselineYear,
		HorizonYears: DefaultHorizonYears,
		Params:       missingParams(),
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*r = ScenarioRequest(v)
	return nil
}

// MarshalJSON keeps NaN placeholders from breaking encoding of echoed
// requests; they are written as null.
func (p ScenarioParams) MarshalJSON() ([]byte, error) {
	type wire struct {
		OccupancyTarget *float64 `json:"occupancy_target"`
		LOSDelta        float64  `json:"los_delta"`
		ALCTarget       *float64 `json:"alc_target"`
		GrowthPct       float64  `json:"growth_pct"`
		ScheduleCode    string   `json:"schedule_code"`
		Seasonality     bool     `json:"seasonality"`
	}
	return json.Marshal(wire{
		OccupancyTarget: finite(p.OccupancyTarget),
		LOSDelta:        p.LOSDelta,
		ALCTarget:       finite(p.ALCTarget),
		GrowthPct:       p.GrowthPct,
		ScheduleCode:    p.ScheduleCode,
		Seasonality:     p.Seasonality,
	})
}

func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// SiteResult is the projection for one included site. Pointer fields are
// null when the underlying fact is absent.
type SiteResult struct {
	SiteID              int      `json:"site_id"`
	SiteCode            string   `json:"site_code"`
	SiteName            string   `json:"site_name"`
	AdmissionsBaseline  int      `json:"admissions_baseline"`
	AdmissionsProjected float64  `json:"admissions_projected"`
	LOSBase             float64  `json:"los_base"`
	ALCBase             float64  `json:"alc_base"`
	LOSEffective        float64  `json:"los_effective"`
	LOSFloorApplied     bool     `json:"los_floor_applied"`
	SeasonalityFactor   float64  `json:"seasonality_factor"`
	PatientDays         float64  `json:"patient_days"`
	CensusAverage       float64  `json:"census_average"`
	RequiredBeds        float64  `json:"required_beds"`
	StaffedBeds         *int     `json:"staffed_beds"`
	CapacityGap         *float64 `json:"capacity_gap"`
	ProjectedOccupancy  *float64 `json:"projected_occupancy"`
	NursingFTE          *float64 `json:"nursing_fte"`
	Warnings            []string `json:"warnings,omitempty"`
}

const WarningScheduleNotFound = "schedule_not_found"

type ExclusionReason string

const ReasonBaselineNotFound ExclusionReason = "baseline_not_found"

// Exclusion records why a requested site is missing from by_site.
type Exclusion struct {
	SiteID int             `json:"site_id"`
	Reason ExclusionReason `json:"reason"`
}

// SiteOutcome is exactly one of Result or Exclusion.
type SiteOutcome struct {
	SiteID    int
	Result    *SiteResult
	Exclusion *Exclusion
}

// ScenarioKPIs aggregate the included sites.
type ScenarioKPIs struct {
	TotalRequiredBeds float64  `json:"total_required_beds"`
	TotalStaffedBeds  int      `json:"total_staffed_beds"`
	TotalCapacityGap  float64  `json:"total_capacity_gap"`
	TotalNursingFTE   *float64 `json:"total_nursing_fte"`
	AvgOccupancy      *float64 `json:"avg_occupancy"`
	TotalAdmissions   float64  `json:"total_admissions"`
	AvgLOSEffective   float64  `json:"avg_los_effective"`
	TotalPatientDays  float64  `json:"total_patient_days"`
	SitesIncluded     int      `json:"sites_included"`
	SitesExcluded     int      `json:"sites_excluded"`
}

type Metadata struct {
	ModelVersion      string          `json:"model_version"`
	CalculatedAt      time.Time       `json:"calculated_at"`
	SeasonalityMethod string          `json:"seasonality_method"`
	SchedulePolicy    string          `json:"schedule_policy"`
	Request           ScenarioRequest `json:"request"`
}

type ScenarioResponse struct {
	KPIs     ScenarioKPIs `json:"kpis"`
	BySite   []SiteResult `json:"by_site"`
	Excluded []Exclusion  `json:"excluded"`
	Metadata Metadata     `json:"metadata"`
}

// SavedScenario is a named request together with the response it produced.
type SavedScenario struct {
	ID        uuid.UUID        `json:"id"`
	Name      string           `json:"name"`
	CreatedBy string           `json:"created_by"`
	Request   ScenarioRequest  `json:"request"`
	Response  ScenarioResponse `json:"response"`
	CreatedAt time.Time        `json:"created_at"`
}

// SavedSummary is the list view of a SavedScenario.
type SavedSummary struct {
	ID        uuid.UUID    `json:"id"`
	Name      string       `json:"name"`
	CreatedBy string       `json:"created_by"`
	KPIs      ScenarioKPIs `json:"kpis"`
	CreatedAt time.Time    `json:"created_at"`
}

type SaveRequest struct {
	Name    string          `json:"name"`
	Request ScenarioRequest `json:"request"`
}
