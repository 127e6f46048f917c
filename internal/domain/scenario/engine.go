package scenario

import (
	"math"

	"github.com/lmsynth/lmsynth/internal/domain/reference"
)

// SiteFacts are the reference facts gathered for one site. A site whose
// Baseline is nil or whose Admissions is zero is excluded.
type SiteFacts struct {
	SiteID      int
	Site        *reference.Site
	Baseline    *reference.ClinicalBaseline
	Admissions  int
	StaffedBeds *int
	// Seasonality holds the resolved monthly multipliers. It is ignored
	// unless the request enables seasonality.
	Seasonality [12]float64
}

// Inputs is everything Compute needs; it performs no I/O.
type Inputs struct {
	Request  ScenarioRequest
	Sites    []SiteFacts
	Staffing *reference.StaffingFactor
}

// Result is the engine output before metadata is attached.
type Result struct {
	KPIs     ScenarioKPIs
	Outcomes []SiteOutcome
}

// Compute validates the request, projects each site and aggregates. It is a
// pure function of its inputs.
func Compute(in Inputs) (*Result, error) {
	if err := Validate(in.Request); err != nil {
		return nil, err
	}

	outcomes := make([]SiteOutcome, len(in.Sites))
	for i, facts := range in.Sites {
		outcomes[i] = ProjectSite(in.Request, facts, in.Staffing)
	}

	kpis, err := Aggregate(outcomes)
	if err != nil {
		return nil, err
	}
	return &Result{KPIs: kpis, Outcomes: outcomes}, nil
}

// SeasonalityFactor collapses the monthly multipliers into the annual scalar
// applied to patient days.
func SeasonalityFactor(enabled bool, months [12]float64) float64 {
	if !enabled {
		return 1.0
	}
	return reference.MeanFactor(months)
}

// ProjectSite applies the per-site capacity formula.
func ProjectSite(req ScenarioRequest, facts SiteFacts, staffing *reference.StaffingFactor) SiteOutcome {
	if facts.Baseline == nil || facts.Admissions <= 0 {
		return SiteOutcome{
			SiteID:    facts.SiteID,
			Exclusion: &Exclusion{SiteID: facts.SiteID, Reason: ReasonBaselineNotFound},
		}
	}

	p := req.Params
	losBase := facts.Baseline.LOSBaseDays
	alcBase := facts.Baseline.ALCRate

	adm := float64(facts.Admissions) * math.Pow(1+p.GrowthPct, float64(req.HorizonYears))
	losAcute := losBase * (1 + p.LOSDelta)
	losEff := losAcute * (1 + (p.ALCTarget - alcBase))

	floor := LOSFloorRatio * losBase
	floorApplied := false
	if losEff < floor {
		losEff = floor
		floorApplied = true
	}

	season := SeasonalityFactor(p.Seasonality, facts.Seasonality)
	patientDays := adm * losEff * season
	census := patientDays / DaysPerYear
	required := census / p.OccupancyTarget

	res := &SiteResult{
		SiteID:              facts.SiteID,
		SiteCode:            siteLabel(facts.Site).Code,
		SiteName:            siteLabel(facts.Site).Name,
		AdmissionsBaseline:  facts.Admissions,
		AdmissionsProjected: adm,
		LOSBase:             losBase,
		ALCBase:             alcBase,
		LOSEffective:        losEff,
		LOSFloorApplied:     floorApplied,
		SeasonalityFactor:   season,
		PatientDays:         patientDays,
		CensusAverage:       census,
		RequiredBeds:        required,
	}

	if facts.StaffedBeds != nil {
		beds := *facts.StaffedBeds
		gap := required - float64(beds)
		res.StaffedBeds = &beds
		res.CapacityGap = &gap
		if beds > 0 {
			occ := census / float64(beds)
			res.ProjectedOccupancy = &occ
		}
	} else {
		res.Warnings = append(res.Warnings, WarningScheduleNotFound)
	}

	if staffing != nil {
		sf := staffing.WithDefaults()
		fte := required * sf.HPPD * DaysPerYear / (float64(sf.AnnualHoursPerFTE) * sf.ProductivityFactor)
		res.NursingFTE = &fte
	}

	return SiteOutcome{SiteID: facts.SiteID, Result: res}
}

func siteLabel(s *reference.Site) reference.Site {
	if s == nil {
		return reference.Site{}
	}
	return *s
}

// Aggregate totals the included sites. It returns a *NoDataError when every
// outcome is an exclusion.
func Aggregate(outcomes []SiteOutcome) (ScenarioKPIs, error) {
	var (
		k                  ScenarioKPIs
		excluded           []Exclusion
		fteSum, occSum     float64
		fteCount, occCount int
		losSum             float64
	)

	for _, o := range outcomes {
		if o.Exclusion != nil {
			excluded = append(excluded, *o.Exclusion)
			continue
		}
		r := o.Result
		k.SitesIncluded++
		k.TotalRequiredBeds += r.RequiredBeds
		k.TotalAdmissions += r.AdmissionsProjected
		k.TotalPatientDays += r.PatientDays
		losSum += r.LOSEffective

		if r.StaffedBeds != nil {
			k.TotalStaffedBeds += *r.StaffedBeds
		}
		if r.CapacityGap != nil {
			k.TotalCapacityGap += *r.CapacityGap
		}
		if r.ProjectedOccupancy != nil {
			occSum += *r.ProjectedOccupancy
			occCount++
		}
		if r.NursingFTE != nil {
			fteSum += *r.NursingFTE
			fteCount++
		}
	}
	k.SitesExcluded = len(excluded)

	if k.SitesIncluded == 0 {
		return ScenarioKPIs{}, &NoDataError{Excluded: excluded}
	}

	k.AvgLOSEffective = losSum / float64(k.SitesIncluded)
	if occCount > 0 {
		avg := occSum / float64(occCount)
		k.AvgOccupancy = &avg
	}
	if fteCount > 0 {
		k.TotalNursingFTE = &fteSum
	}
	return k, nil
}

// Split separates outcomes into by_site results and exclusions, preserving
// request order.
func Split(outcomes []SiteOutcome) ([]SiteResult, []Exclusion) {
	results := make([]SiteResult, 0, len(outcomes))
	excluded := make([]Exclusion, 0)
	for _, o := range outcomes {
		if o.Exclusion != nil {
			excluded = append(excluded, *o.Exclusion)
			continue
		}
		results = append(results, *o.Result)
	}
	return results, excluded
}
