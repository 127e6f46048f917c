package seed

import "github.com/lmsynth/lmsynth/internal/domain/reference"

// Dataset is one generated copy of every reference table.
type Dataset struct {
	Config          Config
	Sites           []reference.Site
	Programs        []reference.Program
	Subprograms     []reference.Subprogram
	Baselines       []reference.ClinicalBaseline
	Schedules       []reference.StaffedBedsSchedule
	Seasonality     []reference.SeasonalityMultiplier
	StaffingFactors []reference.StaffingFactor
	Stays           []reference.Stay
}

// Summary counts rows per table.
type Summary struct {
	Sites           int `json:"sites"`
	Programs        int `json:"programs"`
	Subprograms     int `json:"subprograms"`
	Baselines       int `json:"baselines"`
	Schedules       int `json:"staffed_beds"`
	Seasonality     int `json:"seasonality"`
	StaffingFactors int `json:"staffing_factors"`
	Stays           int `json:"stays"`
}

func (d *Dataset) Summary() Summary {
	return Summary{
		Sites:           len(d.Sites),
		Programs:        len(d.Programs),
		Subprograms:     len(d.Subprograms),
		Baselines:       len(d.Baselines),
		Schedules:       len(d.Schedules),
		Seasonality:     len(d.Seasonality),
		StaffingFactors: len(d.StaffingFactors),
		Stays:           len(d.Stays),
	}
}

// Fixture exposes the dataset as an in-memory reference store. Admissions
// are counted from the generated stays.
func (d *Dataset) Fixture() *reference.Fixture {
	return &reference.Fixture{
		Sites:           d.Sites,
		Programs:        d.Programs,
		Subprograms:     d.Subprograms,
		Baselines:       d.Baselines,
		Schedules:       d.Schedules,
		Seasonality:     d.Seasonality,
		StaffingFactors: d.StaffingFactors,
		Stays:           d.Stays,
	}
}
