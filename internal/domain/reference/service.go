package reference

import (
	"context"
	"fmt"
)

type Service struct {
	catalog  Catalog
	provider Provider
}

// NewService serves listings from catalog and resolved lookups from provider.
// They are usually the same store, with provider wrapped in a CachedProvider.
func NewService(catalog Catalog, provider Provider) *Service {
	return &Service{catalog: catalog, provider: provider}
}

func (s *Service) ListSites(ctx context.Context) ([]Site, error) {
	return s.catalog.ListSites(ctx)
}

func (s *Service) ListPrograms(ctx context.Context) ([]Program, error) {
	return s.catalog.ListPrograms(ctx)
}

func (s *Service) ListSubprograms(ctx context.Context, programID *int) ([]Subprogram, error) {
	if programID != nil && *programID <= 0 {
		return nil, fmt.Errorf("program_id must be positive")
	}
	return s.catalog.ListSubprograms(ctx, programID)
}

func (s *Service) ListStaffedBeds(ctx context.Context, scheduleCode string) ([]StaffedBedsSchedule, error) {
	if scheduleCode == "" {
		scheduleCode = DefaultScheduleCode
	}
	return s.catalog.ListStaffedBeds(ctx, scheduleCode)
}

func (s *Service) ListBaselines(ctx context.Context, year int) ([]ClinicalBaseline, error) {
	if year <= 0 {
		return nil, fmt.Errorf("year must be positive")
	}
	return s.catalog.ListBaselines(ctx, year)
}

func (s *Service) ListSeasonality(ctx context.Context) ([]SeasonalityMultiplier, error) {
	return s.catalog.ListSeasonality(ctx)
}

func (s *Service) ListStaffingFactors(ctx context.Context) ([]StaffingFactor, error) {
	return s.catalog.ListStaffingFactors(ctx)
}

func (s *Service) ListStays(ctx context.Context, filter StayFilter, limit, offset int) ([]Stay, int, error) {
	if filter.SiteID < 0 || filter.ProgramID < 0 || filter.Year < 0 {
		return nil, 0, fmt.Errorf("filters must be positive")
	}
	return s.catalog.ListStays(ctx, filter, limit, offset)
}

// ResolvedSeasonality is the month-by-month outcome of multiplier resolution
// for one site and program.
type ResolvedSeasonality struct {
	SiteID    int         `json:"site_id"`
	ProgramID int         `json:"program_id"`
	Months    [12]float64 `json:"months"`
	Mean      float64     `json:"mean"`
}

func (s *Service) ResolveSeasonality(ctx context.Context, siteID, programID int) (*ResolvedSeasonality, error) {
	if siteID <= 0 || programID <= 0 {
		return nil, fmt.Errorf("site_id and program_id are required")
	}
	months, err := Profile(ctx, s.provider, siteID, programID)
	if err != nil {
		return nil, err
	}
	return &ResolvedSeasonality{
		SiteID:    siteID,
		ProgramID: programID,
		Months:    months,
		Mean:      MeanFactor(months),
	}, nil
}

// MeanFactor is the arithmetic mean of the twelve monthly multipliers.
func MeanFactor(months [12]float64) float64 {
	var sum float64
	for _, m := range months {
		sum += m
	}
	return sum / 12
}
