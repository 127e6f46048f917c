package scenario

import (
	"fmt"
	"math"
)

type bounds struct {
	min, max float64
}

var (
	occupancyBounds = bounds{0.80, 1.00}
	losDeltaBounds  = bounds{-0.5, 0.5}
	alcTargetBounds = bounds{0, 0.5}
	growthBounds    = bounds{-0.2, 0.2}
)

// MaxHorizonYears keeps compounded growth finite.
const MaxHorizonYears = 50

func (b bounds) check(field string, v float64, errs *[]FieldError) {
	switch {
	case math.IsNaN(v):
		*errs = append(*errs, FieldError{Field: field, Message: "is required and must be a number"})
	case v < b.min || v > b.max:
		*errs = append(*errs, FieldError{Field: field, Message: fmt.Sprintf("must be between %.2f and %.2f", b.min, b.max)})
	}
}

// Validate checks every field and reports all failures at once. It never
// touches reference data.
func Validate(req ScenarioRequest) error {
	var errs []FieldError

	if len(req.Sites) == 0 {
		errs = append(errs, FieldError{Field: "sites", Message: "at least one site is required"})
	}
	seen := make(map[int]bool, len(req.Sites))
	for i, id := range req.Sites {
		field := fmt.Sprintf("sites[%d]", i)
		switch {
		case id <= 0:
			errs = append(errs, FieldError{Field: field, Message: "must be a positive site id"})
		case seen[id]:
			errs = append(errs, FieldError{Field: field, Message: fmt.Sprintf("duplicate site id %d", id)})
		}
		seen[id] = true
	}
	if req.ProgramID <= 0 {
		errs = append(errs, FieldError{Field: "program_id", Message: "must be a positive program id"})
	}
	if req.SubprogramID != nil && *req.SubprogramID <= 0 {
		errs = append(errs, FieldError{Field: "subprogram_id", Message: "must be a positive subprogram id"})
	}
	if req.BaselineYear <= 0 {
		errs = append(errs, FieldError{Field: "baseline_year", Message: "must be a positive year"})
	}
	switch {
	case req.HorizonYears < 0:
		errs = append(errs, FieldError{Field: "horizon_years", Message: "must not be negative"})
	case req.HorizonYears > MaxHorizonYears:
		errs = append(errs, FieldError{Field: "horizon_years", Message: fmt.Sprintf("must be at most %d", MaxHorizonYears)})
	}

	p := req.Params
	occupancyBounds.check("params.occupancy_target", p.OccupancyTarget, &errs)
	losDeltaBounds.check("params.los_delta", p.LOSDelta, &errs)
	alcTargetBounds.check("params.alc_target", p.ALCTarget, &errs)
	growthBounds.check("params.growth_pct", p.GrowthPct, &errs)
	if p.ScheduleCode == "" {
		errs = append(errs, FieldError{Field: "params.schedule_code", Message: "must not be empty"})
	}

	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}
