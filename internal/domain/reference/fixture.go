package reference

import (
	"context"
	"fmt"
	"sort"

	"github.com/lmsynth/lmsynth/pkg/pagination"
)

// AdmissionCount pins the admissions for a (site, program, year) instead of
// counting Stays.
type AdmissionCount struct {
	SiteID    int `json:"site_id"`
	ProgramID int `json:"program_id"`
	Year      int `json:"year"`
	Count     int `json:"count"`
}

// Fixture is an in-memory Store. It is read-only once built and safe for
// concurrent use.
type Fixture struct {
	Sites           []Site                  `json:"sites"`
	Programs        []Program               `json:"programs"`
	Subprograms     []Subprogram            `json:"subprograms"`
	Baselines       []ClinicalBaseline      `json:"baselines"`
	Schedules       []StaffedBedsSchedule   `json:"staffed_beds"`
	Seasonality     []SeasonalityMultiplier `json:"seasonality"`
	StaffingFactors []StaffingFactor        `json:"staffing_factors"`
	Admissions      []AdmissionCount        `json:"admissions,omitempty"`
	Stays           []Stay                  `json:"stays,omitempty"`
}

var (
	_ Store           = (*Fixture)(nil)
	_ ProfileProvider = (*Fixture)(nil)
)

func (f *Fixture) Site(_ context.Context, siteID int) (*Site, error) {
	for _, s := range f.Sites {
		if s.ID == siteID {
			out := s
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

func (f *Fixture) Baseline(_ context.Context, siteID, programID, year int) (*ClinicalBaseline, error) {
	for _, b := range f.Baselines {
		if b.SiteID == siteID && b.ProgramID == programID && b.BaselineYear == year {
			out := b
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

func (f *Fixture) BaselineAdmissions(_ context.Context, siteID, programID, year int) (int, error) {
	for _, a := range f.Admissions {
		if a.SiteID == siteID && a.ProgramID == programID && a.Year == year {
			if a.Count <= 0 {
				return 0, ErrNotFound
			}
			return a.Count, nil
		}
	}
	filter := StayFilter{SiteID: siteID, ProgramID: programID, Year: year}
	n := 0
	for _, s := range f.Stays {
		if filter.Matches(s) {
			n++
		}
	}
	if n == 0 {
		return 0, ErrNotFound
	}
	return n, nil
}

func (f *Fixture) StaffedBeds(_ context.Context, siteID, programID int, scheduleCode string) (int, error) {
	for _, s := range f.Schedules {
		if s.SiteID == siteID && s.ProgramID == programID && s.ScheduleCode == scheduleCode {
			return s.StaffedBeds, nil
		}
	}
	return 0, ErrNotFound
}

func (f *Fixture) SeasonalityMultiplier(_ context.Context, siteID, programID, month int) (float64, error) {
	if month < 1 || month > 12 {
		return 0, fmt.Errorf("month %d out of range", month)
	}
	return ResolveMonth(f.Seasonality, siteID, programID, month), nil
}

func (f *Fixture) SeasonalityProfile(_ context.Context, siteID, programID int) ([12]float64, error) {
	return ResolveProfile(f.Seasonality, siteID, programID), nil
}

func (f *Fixture) StaffingFactor(_ context.Context, programID int, subprogramID *int) (*StaffingFactor, error) {
	var fallback *StaffingFactor
	for i := range f.StaffingFactors {
		sf := f.StaffingFactors[i]
		if sf.ProgramID != programID {
			continue
		}
		switch {
		case sf.SubprogramID == nil:
			out := sf.WithDefaults()
			fallback = &out
		case subprogramID != nil && *sf.SubprogramID == *subprogramID:
			out := sf.WithDefaults()
			return &out, nil
		}
	}
	return fallback, nil
}

func (f *Fixture) ListSites(context.Context) ([]Site, error) {
	out := append([]Site(nil), f.Sites...)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *Fixture) ListPrograms(context.Context) ([]Program, error) {
	out := append([]Program(nil), f.Programs...)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *Fixture) ListSubprograms(_ context.Context, programID *int) ([]Subprogram, error) {
	var out []Subprogram
	for _, s := range f.Subprograms {
		if programID == nil || s.ProgramID == *programID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ProgramID != out[j].ProgramID {
			return out[i].ProgramID < out[j].ProgramID
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (f *Fixture) ListStaffedBeds(_ context.Context, scheduleCode string) ([]StaffedBedsSchedule, error) {
	var out []StaffedBedsSchedule
	for _, s := range f.Schedules {
		if s.ScheduleCode == scheduleCode {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *Fixture) ListBaselines(_ context.Context, year int) ([]ClinicalBaseline, error) {
	var out []ClinicalBaseline
	for _, b := range f.Baselines {
		if b.BaselineYear == year {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *Fixture) ListSeasonality(context.Context) ([]SeasonalityMultiplier, error) {
	return append([]SeasonalityMultiplier(nil), f.Seasonality...), nil
}

func (f *Fixture) ListStaffingFactors(context.Context) ([]StaffingFactor, error) {
	out := make([]StaffingFactor, len(f.StaffingFactors))
	for i, sf := range f.StaffingFactors {
		out[i] = sf.WithDefaults()
	}
	return out, nil
}

func (f *Fixture) ListStays(_ context.Context, filter StayFilter, limit, offset int) ([]Stay, int, error) {
	var matched []Stay
	for _, s := range f.Stays {
		if filter.Matches(s) {
			matched = append(matched, s)
		}
	}
	total := len(matched)
	if limit <= 0 {
		limit = total
	}
	start, end := pagination.Params{Limit: limit, Offset: offset}.Window(total)
	return matched[start:end], total, nil
}
