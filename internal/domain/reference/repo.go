package reference

import (
	"context"
	"errors"
)

// ErrNotFound is returned when no row exists for the exact lookup key.
var ErrNotFound = errors.New("reference data not found")

// Provider supplies the baseline facts the scenario engine projects from.
type Provider interface {
	// Site returns the dimension row used to label per-site results.
	Site(ctx context.Context, siteID int) (*Site, error)
	// Baseline returns the row for exactly (site, program, year).
	Baseline(ctx context.Context, siteID, programID, year int) (*ClinicalBaseline, error)
	// BaselineAdmissions returns the admissions observed in year.
	BaselineAdmissions(ctx context.Context, siteID, programID, year int) (int, error)
	StaffedBeds(ctx context.Context, siteID, programID int, scheduleCode string) (int, error)
	// SeasonalityMultiplier never returns ErrNotFound; unresolved months are 1.0.
	SeasonalityMultiplier(ctx context.Context, siteID, programID, month int) (float64, error)
	// StaffingFactor returns (nil, nil) when the program has no factor.
	StaffingFactor(ctx context.Context, programID int, subprogramID *int) (*StaffingFactor, error)
}

// ProfileProvider is implemented by providers that can resolve all twelve
// months in one round trip.
type ProfileProvider interface {
	SeasonalityProfile(ctx context.Context, siteID, programID int) ([12]float64, error)
}

// Catalog lists reference tables for the read endpoints.
type Catalog interface {
	ListSites(ctx context.Context) ([]Site, error)
	ListPrograms(ctx context.Context) ([]Program, error)
	ListSubprograms(ctx context.Context, programID *int) ([]Subprogram, error)
	ListStaffedBeds(ctx context.Context, scheduleCode string) ([]StaffedBedsSchedule, error)
	ListBaselines(ctx context.Context, year int) ([]ClinicalBaseline, error)
	ListSeasonality(ctx context.Context) ([]SeasonalityMultiplier, error)
	ListStaffingFactors(ctx context.Context) ([]StaffingFactor, error)
	ListStays(ctx context.Context, filter StayFilter, limit, offset int) ([]Stay, int, error)
}

// Store is both a Provider and a Catalog.
type Store interface {
	Provider
	Catalog
}
