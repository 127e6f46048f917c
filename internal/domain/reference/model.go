package reference

import "time"

// Site maps to dim_site.
type Site struct {
	ID   int    `db:"site_id" json:"site_id"`
	Code string `db:"site_code" json:"site_code"`
	Name string `db:"site_name" json:"site_name"`
}

// Program maps to dim_program.
type Program struct {
	ID   int    `db:"program_id" json:"program_id"`
	Name string `db:"program_name" json:"program_name"`
}

// Subprogram maps to dim_subprogram.
type Subprogram struct {
	ProgramID int    `db:"program_id" json:"program_id"`
	ID        int    `db:"subprogram_id" json:"subprogram_id"`
	Name      string `db:"subprogram_name" json:"subprogram_name"`
}

// ClinicalBaseline maps to clinical_baseline. One row per (site, program, year).
type ClinicalBaseline struct {
	SiteID       int     `db:"site_id" json:"site_id"`
	ProgramID    int     `db:"program_id" json:"program_id"`
	BaselineYear int     `db:"baseline_year" json:"baseline_year"`
	LOSBaseDays  float64 `db:"los_base_days" json:"los_base_days"`
	ALCRate      float64 `db:"alc_rate" json:"alc_rate"`
}

// StaffedBedsSchedule maps to staffed_beds_schedule.
type StaffedBedsSchedule struct {
	SiteID       int    `db:"site_id" json:"site_id"`
	ProgramID    int    `db:"program_id" json:"program_id"`
	ScheduleCode string `db:"schedule_code" json:"schedule_code"`
	StaffedBeds  int    `db:"staffed_beds" json:"staffed_beds"`
}

// SeasonalityMultiplier maps to seasonality_monthly. A nil SiteID or
// ProgramID widens the row's scope.
type SeasonalityMultiplier struct {
	SiteID     *int    `db:"site_id" json:"site_id"`
	ProgramID  *int    `db:"program_id" json:"program_id"`
	Month      int     `db:"month" json:"month"`
	Multiplier float64 `db:"multiplier" json:"multiplier"`
}

// StaffingFactor maps to staffing_factors.
type StaffingFactor struct {
	ProgramID          int     `db:"program_id" json:"program_id"`
	SubprogramID       *int    `db:"subprogram_id" json:"subprogram_id"`
	HPPD               float64 `db:"hppd" json:"hppd"`
	AnnualHoursPerFTE  int     `db:"annual_hours_per_fte" json:"annual_hours_per_fte"`
	ProductivityFactor float64 `db:"productivity_factor" json:"productivity_factor"`
}

const (
	DefaultAnnualHoursPerFTE  = 1950
	DefaultProductivityFactor = 0.90
	DefaultMultiplier         = 1.0
	DefaultScheduleCode       = "Sched-A"
	DefaultBaselineYear       = 2022
)

// WithDefaults fills zero-valued optional columns.
func (f StaffingFactor) WithDefaults() StaffingFactor {
	if f.AnnualHoursPerFTE == 0 {
		f.AnnualHoursPerFTE = DefaultAnnualHoursPerFTE
	}
	if f.ProductivityFactor == 0 {
		f.ProductivityFactor = DefaultProductivityFactor
	}
	return f
}

// Stay maps to ip_stay, the inpatient facts baseline admissions are counted from.
type Stay struct {
	ID          int64     `db:"stay_id" json:"stay_id"`
	SiteID      int       `db:"site_id" json:"site_id"`
	ProgramID   int       `db:"program_id" json:"program_id"`
	AdmitTS     time.Time `db:"admit_ts" json:"admit_ts"`
	DischargeTS time.Time `db:"discharge_ts" json:"discharge_ts"`
	LOSDays     float64   `db:"los_days" json:"los_days"`
	ALCFlag     bool      `db:"alc_flag" json:"alc_flag"`
}

// StayFilter narrows ListStays. Zero values are ignored.
type StayFilter struct {
	SiteID    int
	ProgramID int
	Year      int
}

// Matches reports whether s passes the filter.
func (f StayFilter) Matches(s Stay) bool {
	if f.SiteID != 0 && s.SiteID != f.SiteID {
		return false
	}
	if f.ProgramID != 0 && s.ProgramID != f.ProgramID {
		return false
	}
	if f.Year != 0 && s.AdmitTS.UTC().Year() != f.Year {
		return false
	}
	return true
}
