package seed

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/lmsynth/lmsynth/internal/domain/reference"
	"github.com/lmsynth/lmsynth/internal/platform/cache"
	"github.com/lmsynth/lmsynth/internal/platform/db"
)

// truncateOrder lists reference tables children first.
var truncateOrder = []string{
	"ip_stay",
	"staffing_factors",
	"seasonality_monthly",
	"staffed_beds_schedule",
	"clinical_baseline",
	"dim_subprogram",
	"dim_program",
	"dim_site",
}

// Loader replaces the reference tables with a generated dataset. When store
// is set, cached reference lookups are flushed after each load.
type Loader struct {
	pool   *pgxpool.Pool
	store  cache.Store
	logger zerolog.Logger
}

func NewLoader(pool *pgxpool.Pool, store cache.Store, logger zerolog.Logger) *Loader {
	return &Loader{pool: pool, store: store, logger: logger}
}

type tableCopy struct {
	table   string
	columns []string
	rows    [][]any
}

// Load truncates every reference table and bulk-copies d in one transaction.
// Saved scenarios are left untouched.
func (l *Loader) Load(ctx context.Context, d *Dataset) (Summary, error) {
	err := db.WithTx(ctx, l.pool, func(ctx context.Context) error {
		tx := db.TxFromContext(ctx)
		for _, table := range truncateOrder {
			if _, err := tx.Exec(ctx, "TRUNCATE TABLE "+table+" RESTART IDENTITY CASCADE"); err != nil {
				return fmt.Errorf("truncate %s: %w", table, err)
			}
		}
		for _, tc := range tableCopies(d) {
			n, err := tx.CopyFrom(ctx, pgx.Identifier{tc.table}, tc.columns, pgx.CopyFromRows(tc.rows))
			if err != nil {
				return fmt.Errorf("copy %s: %w", tc.table, err)
			}
			l.logger.Debug().Str("table", tc.table).Int64("rows", n).Msg("loaded reference table")
		}
		return nil
	})
	if err != nil {
		return Summary{}, err
	}
	l.invalidate(ctx)

	sum := d.Summary()
	l.logger.Info().
		Int64("seed", d.Config.Seed).
		Int("sites", sum.Sites).
		Int("stays", sum.Stays).
		Msg("reference data loaded")
	return sum, nil
}

// invalidate flushes the shared reference cache. A failed flush leaves the
// committed load in place; stale entries then age out with the cache TTL.
func (l *Loader) invalidate(ctx context.Context) {
	if l.store == nil {
		return
	}
	n, err := reference.FlushCache(ctx, l.store)
	if err != nil {
		l.logger.Warn().Err(err).Msg("reference cache flush failed")
		return
	}
	l.logger.Info().Int("keys", n).Msg("reference cache flushed")
}

// tableCopies orders tables parents first so foreign keys hold.
func tableCopies(d *Dataset) []tableCopy {
	copies := []tableCopy{
		{table: "dim_site", columns: []string{"site_id", "site_code", "site_name"}},
		{table: "dim_program", columns: []string{"program_id", "program_name"}},
		{table: "dim_subprogram", columns: []string{"program_id", "subprogram_id", "subprogram_name"}},
		{table: "clinical_baseline", columns: []string{"site_id", "program_id", "baseline_year", "los_base_days", "alc_rate"}},
		{table: "staffed_beds_schedule", columns: []string{"site_id", "program_id", "schedule_code", "staffed_beds"}},
		{table: "seasonality_monthly", columns: []string{"site_id", "program_id", "month", "multiplier"}},
		{table: "staffing_factors", columns: []string{"program_id", "subprogram_id", "hppd", "annual_hours_per_fte", "productivity_factor"}},
		{table: "ip_stay", columns: []string{"site_id", "program_id", "admit_ts", "discharge_ts", "los_days", "alc_flag"}},
	}

	for _, s := range d.Sites {
		copies[0].rows = append(copies[0].rows, []any{s.ID, s.Code, s.Name})
	}
	for _, p := range d.Programs {
		copies[1].rows = append(copies[1].rows, []any{p.ID, p.Name})
	}
	for _, s := range d.Subprograms {
		copies[2].rows = append(copies[2].rows, []any{s.ProgramID, s.ID, s.Name})
	}
	for _, b := range d.Baselines {
		copies[3].rows = append(copies[3].rows, []any{b.SiteID, b.ProgramID, b.BaselineYear, b.LOSBaseDays, b.ALCRate})
	}
	for _, s := range d.Schedules {
		copies[4].rows = append(copies[4].rows, []any{s.SiteID, s.ProgramID, s.ScheduleCode, s.StaffedBeds})
	}
	for _, m := range d.Seasonality {
		copies[5].rows = append(copies[5].rows, []any{m.SiteID, m.ProgramID, m.Month, m.Multiplier})
	}
	for _, f := range d.StaffingFactors {
		copies[6].rows = append(copies[6].rows, []any{f.ProgramID, f.SubprogramID, f.HPPD, f.AnnualHoursPerFTE, f.ProductivityFactor})
	}
	for _, s := range d.Stays {
		copies[7].rows = append(copies[7].rows, []any{s.SiteID, s.ProgramID, s.AdmitTS, s.DischargeTS, s.LOSDays, s.ALCFlag})
	}
	return copies
}
