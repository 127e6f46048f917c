package reference

import "context"

const (
	scopeExact = iota
	scopeProgram
	scopeGlobal
	scopeNone
)

// scope classifies a row against a (site, program) lookup.
func scope(m SeasonalityMultiplier, siteID, programID int) int {
	switch {
	case m.SiteID != nil && m.ProgramID != nil && *m.SiteID == siteID && *m.ProgramID == programID:
		return scopeExact
	case m.SiteID == nil && m.ProgramID != nil && *m.ProgramID == programID:
		return scopeProgram
	case m.SiteID == nil && m.ProgramID == nil:
		return scopeGlobal
	default:
		return scopeNone
	}
}

// ResolveMonth picks the most specific multiplier for month, or 1.0.
func ResolveMonth(rows []SeasonalityMultiplier, siteID, programID, month int) float64 {
	best, value := scopeNone, DefaultMultiplier
	for _, m := range rows {
		if m.Month != month {
			continue
		}
		if s := scope(m, siteID, programID); s < best {
			best, value = s, m.Multiplier
		}
	}
	return value
}

// ResolveProfile resolves all twelve months; index 0 is January.
func ResolveProfile(rows []SeasonalityMultiplier, siteID, programID int) [12]float64 {
	var out [12]float64
	for i := range out {
		out[i] = ResolveMonth(rows, siteID, programID, i+1)
	}
	return out
}

// Profile returns the twelve resolved multipliers for a site and program,
// batching through ProfileProvider when p supports it.
func Profile(ctx context.Context, p Provider, siteID, programID int) ([12]float64, error) {
	if pp, ok := p.(ProfileProvider); ok {
		return pp.SeasonalityProfile(ctx, siteID, programID)
	}
	var out [12]float64
	for i := range out {
		m, err := p.SeasonalityMultiplier(ctx, siteID, programID, i+1)
		if err != nil {
			return out, err
		}
		out[i] = m
	}
	return out, nil
}
