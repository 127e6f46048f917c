package seed

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lmsynth/lmsynth/internal/domain/reference"
)

func smallConfig() Config {
	return Config{Seed: 7, Sites: 3, BaselineYear: 2022, StayScale: 0.05}
}

func TestGenerate_Deterministic(t *testing.T) {
	a := NewGenerator(smallConfig()).Generate()
	b := NewGenerator(smallConfig()).Generate()

	assert.Equal(t, a.Baselines, b.Baselines)
	assert.Equal(t, a.Schedules, b.Schedules)
	assert.Equal(t, a.StaffingFactors, b.StaffingFactors)
	require.Equal(t, len(a.Stays), len(b.Stays))
	assert.Equal(t, a.Stays[len(a.Stays)-1], b.Stays[len(b.Stays)-1])
}

func TestGenerate_DifferentSeeds(t *testing.T) {
	cfg := smallConfig()
	a := NewGenerator(cfg).Generate()
	cfg.Seed = 8
	b := NewGenerator(cfg).Generate()

	assert.NotEqual(t, a.Baselines, b.Baselines)
}

func TestGenerate_Dimensions(t *testing.T) {
	d := NewGenerator(smallConfig()).Generate()

	require.Len(t, d.Sites, 3)
	assert.Equal(t, "S01", d.Sites[0].Code)
	assert.Len(t, d.Programs, 6)
	assert.Len(t, d.Baselines, 3*6)
	// Sched-A and Sched-B for four programs per site.
	assert.Len(t, d.Schedules, 3*4*2)
	// 12 global months plus 4 emergency overrides.
	assert.Len(t, d.Seasonality, 16)
	assert.Len(t, d.StaffingFactors, 7)
}

func TestGenerate_Ranges(t *testing.T) {
	d := NewGenerator(Config{Seed: 99, Sites: 12, StayScale: 0.01}).Generate()

	for _, b := range d.Baselines {
		assert.GreaterOrEqual(t, b.LOSBaseDays, 0.25)
		assert.GreaterOrEqual(t, b.ALCRate, 0.0)
		assert.LessOrEqual(t, b.ALCRate, 0.30)
		assert.Equal(t, reference.DefaultBaselineYear, b.BaselineYear)
	}
	for _, s := range d.Schedules {
		assert.Positive(t, s.StaffedBeds)
	}
	for _, f := range d.StaffingFactors {
		assert.GreaterOrEqual(t, f.ProductivityFactor, 0.88)
		assert.LessOrEqual(t, f.ProductivityFactor, 0.95)
		assert.Equal(t, reference.DefaultAnnualHoursPerFTE, f.AnnualHoursPerFTE)
	}
	for _, s := range d.Stays {
		assert.Equal(t, 2022, s.AdmitTS.Year())
		assert.False(t, s.DischargeTS.Before(s.AdmitTS))
	}
}

func TestGenerate_SchedBExpandsSchedA(t *testing.T) {
	d := NewGenerator(smallConfig()).Generate()
	f := d.Fixture()
	ctx := context.Background()

	for _, s := range d.Sites {
		a, err := f.StaffedBeds(ctx, s.ID, 1, "Sched-A")
		require.NoError(t, err)
		b, err := f.StaffedBeds(ctx, s.ID, 1, "Sched-B")
		require.NoError(t, err)
		assert.Greater(t, b, a)
		assert.GreaterOrEqual(t, a, 40)
		assert.Less(t, a, 90)
	}
}

func TestFixture_AdmissionsFromStays(t *testing.T) {
	d := NewGenerator(smallConfig()).Generate()
	f := d.Fixture()

	n, err := f.BaselineAdmissions(context.Background(), 1, 1, 2022)
	require.NoError(t, err)

	var want int
	for _, s := range d.Stays {
		if s.SiteID == 1 && s.ProgramID == 1 {
			want++
		}
	}
	assert.Equal(t, want, n)
	assert.Positive(t, n)
}

func TestFixture_SeasonalityResolves(t *testing.T) {
	f := NewGenerator(smallConfig()).Generate().Fixture()
	ctx := context.Background()

	m, err := f.SeasonalityMultiplier(ctx, 1, 6, 12)
	require.NoError(t, err)
	assert.InDelta(t, 1.08, m, 1e-9)

	m, err = f.SeasonalityMultiplier(ctx, 1, 1, 12)
	require.NoError(t, err)
	assert.InDelta(t, 1.04, m, 1e-9)
}

func TestFixture_CardiologyStaffingFactor(t *testing.T) {
	f := NewGenerator(smallConfig()).Generate().Fixture()
	sub := 2

	sf, err := f.StaffingFactor(context.Background(), 1, &sub)
	require.NoError(t, err)
	require.NotNil(t, sf)
	require.NotNil(t, sf.SubprogramID)
	assert.Equal(t, 2, *sf.SubprogramID)
}

func TestTableCopies_ParentsFirst(t *testing.T) {
	d := NewGenerator(smallConfig()).Generate()
	copies := tableCopies(d)

	require.Len(t, copies, len(truncateOrder))
	assert.Equal(t, "dim_site", copies[0].table)
	assert.Equal(t, "ip_stay", copies[len(copies)-1].table)
	for _, s := range copies {
		for _, row := range s.rows {
			assert.Len(t, row, len(s.columns), s.table)
		}
	}
	assert.Len(t, copies[7].rows, len(d.Stays))
}

func TestPickMonth_Weighted(t *testing.T) {
	g := NewGenerator(Config{Seed: 1})
	var w [12]float64
	w[4] = 1
	for i := 0; i < 50; i++ {
		assert.Equal(t, 4, g.pickMonth(w))
	}
}
