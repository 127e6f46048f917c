package reference

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lmsynth/lmsynth/internal/platform/db"
)

type repoPG struct {
	pool *pgxpool.Pool
}

// NewRepo returns the Postgres-backed provider and catalog.
func NewRepo(pool *pgxpool.Pool) Store {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

func (r *repoPG) Site(ctx context.Context, siteID int) (*Site, error) {
	var s Site
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT site_id, site_code, site_name
		FROM dim_site
		WHERE site_id = $1`,
		siteID,
	).Scan(&s.ID, &s.Code, &s.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query site: %w", err)
	}
	return &s, nil
}

func (r *repoPG) Baseline(ctx context.Context, siteID, programID, year int) (*ClinicalBaseline, error) {
	var b ClinicalBaseline
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT site_id, program_id, baseline_year, los_base_days::float8, alc_rate::float8
		FROM clinical_baseline
		WHERE site_id = $1 AND program_id = $2 AND baseline_year = $3`,
		siteID, programID, year,
	).Scan(&b.SiteID, &b.ProgramID, &b.BaselineYear, &b.LOSBaseDays, &b.ALCRate)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query baseline: %w", err)
	}
	return &b, nil
}

func (r *repoPG) BaselineAdmissions(ctx context.Context, siteID, programID, year int) (int, error) {
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(1, 0, 0)

	var n int
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT COUNT(*)
		FROM ip_stay
		WHERE site_id = $1 AND program_id = $2 AND admit_ts >= $3 AND admit_ts < $4`,
		siteID, programID, start, end,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count admissions: %w", err)
	}
	if n == 0 {
		return 0, ErrNotFound
	}
	return n, nil
}

func (r *repoPG) StaffedBeds(ctx context.Context, siteID, programID int, scheduleCode string) (int, error) {
	var beds int
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT staffed_beds
		FROM staffed_beds_schedule
		WHERE site_id = $1 AND program_id = $2 AND schedule_code = $3`,
		siteID, programID, scheduleCode,
	).Scan(&beds)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("query staffed beds: %w", err)
	}
	return beds, nil
}

// seasonalityScope matches the exact, program-level and global rows for a
// (site, program) pair. The rank column orders them most specific first.
const seasonalityScope = `
	(site_id = $1 AND program_id = $2)
	OR (site_id IS NULL AND program_id = $2)
	OR (site_id IS NULL AND program_id IS NULL)`

func (r *repoPG) SeasonalityMultiplier(ctx context.Context, siteID, programID, month int) (float64, error) {
	if month < 1 || month > 12 {
		return 0, fmt.Errorf("month %d out of range", month)
	}
	var m float64
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT multiplier::float8
		FROM seasonality_monthly
		WHERE month = $3 AND (`+seasonalityScope+`)
		ORDER BY CASE WHEN site_id IS NOT NULL THEN 0 WHEN program_id IS NOT NULL THEN 1 ELSE 2 END
		LIMIT 1`,
		siteID, programID, month,
	).Scan(&m)
	if errors.Is(err, pgx.ErrNoRows) {
		return DefaultMultiplier, nil
	}
	if err != nil {
		return 0, fmt.Errorf("query seasonality: %w", err)
	}
	return m, nil
}

// SeasonalityProfile resolves all twelve months with a single query.
func (r *repoPG) SeasonalityProfile(ctx context.Context, siteID, programID int) ([12]float64, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT site_id, program_id, month, multiplier::float8
		FROM seasonality_monthly
		WHERE `+seasonalityScope,
		siteID, programID,
	)
	if err != nil {
		return [12]float64{}, fmt.Errorf("query seasonality profile: %w", err)
	}
	defer rows.Close()

	var ms []SeasonalityMultiplier
	for rows.Next() {
		var m SeasonalityMultiplier
		if err := rows.Scan(&m.SiteID, &m.ProgramID, &m.Month, &m.Multiplier); err != nil {
			return [12]float64{}, err
		}
		ms = append(ms, m)
	}
	if err := rows.Err(); err != nil {
		return [12]float64{}, err
	}
	return ResolveProfile(ms, siteID, programID), nil
}

const staffingCols = `program_id, subprogram_id, hppd::float8, annual_hours_per_fte, productivity_factor::float8`

func scanStaffing(row pgx.Row) (*StaffingFactor, error) {
	var f StaffingFactor
	if err := row.Scan(&f.ProgramID, &f.SubprogramID, &f.HPPD, &f.AnnualHoursPerFTE, &f.ProductivityFactor); err != nil {
		return nil, err
	}
	f = f.WithDefaults()
	return &f, nil
}

func (r *repoPG) StaffingFactor(ctx context.Context, programID int, subprogramID *int) (*StaffingFactor, error) {
	var row pgx.Row
	if subprogramID != nil {
		row = r.conn(ctx).QueryRow(ctx, `
			SELECT `+staffingCols+`
			FROM staffing_factors
			WHERE program_id = $1 AND (subprogram_id = $2 OR subprogram_id IS NULL)
			ORDER BY subprogram_id NULLS LAST
			LIMIT 1`,
			programID, *subprogramID,
		)
	} else {
		row = r.conn(ctx).QueryRow(ctx, `
			SELECT `+staffingCols+`
			FROM staffing_factors
			WHERE program_id = $1 AND subprogram_id IS NULL`,
			programID,
		)
	}
	f, err := scanStaffing(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query staffing factor: %w", err)
	}
	return f, nil
}

// -- Catalog --

func (r *repoPG) ListSites(ctx context.Context) ([]Site, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT site_id, site_code, site_name FROM dim_site ORDER BY site_id`)
	if err != nil {
		return nil, fmt.Errorf("list sites: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Site, error) {
		var s Site
		err := row.Scan(&s.ID, &s.Code, &s.Name)
		return s, err
	})
}

func (r *repoPG) ListPrograms(ctx context.Context) ([]Program, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT program_id, program_name FROM dim_program ORDER BY program_id`)
	if err != nil {
		return nil, fmt.Errorf("list programs: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Program, error) {
		var p Program
		err := row.Scan(&p.ID, &p.Name)
		return p, err
	})
}

func (r *repoPG) ListSubprograms(ctx context.Context, programID *int) ([]Subprogram, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT program_id, subprogram_id, subprogram_name
		FROM dim_subprogram
		WHERE $1::int IS NULL OR program_id = $1
		ORDER BY program_id, subprogram_id`, programID)
	if err != nil {
		return nil, fmt.Errorf("list subprograms: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Subprogram, error) {
		var s Subprogram
		err := row.Scan(&s.ProgramID, &s.ID, &s.Name)
		return s, err
	})
}

func (r *repoPG) ListStaffedBeds(ctx context.Context, scheduleCode string) ([]StaffedBedsSchedule, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT site_id, program_id, schedule_code, staffed_beds
		FROM staffed_beds_schedule
		WHERE schedule_code = $1
		ORDER BY site_id, program_id`, scheduleCode)
	if err != nil {
		return nil, fmt.Errorf("list staffed beds: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (StaffedBedsSchedule, error) {
		var s StaffedBedsSchedule
		err := row.Scan(&s.SiteID, &s.ProgramID, &s.ScheduleCode, &s.StaffedBeds)
		return s, err
	})
}

func (r *repoPG) ListBaselines(ctx context.Context, year int) ([]ClinicalBaseline, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT site_id, program_id, baseline_year, los_base_days::float8, alc_rate::float8
		FROM clinical_baseline
		WHERE baseline_year = $1
		ORDER BY site_id, program_id`, year)
	if err != nil {
		return nil, fmt.Errorf("list baselines: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (ClinicalBaseline, error) {
		var b ClinicalBaseline
		err := row.Scan(&b.SiteID, &b.ProgramID, &b.BaselineYear, &b.LOSBaseDays, &b.ALCRate)
		return b, err
	})
}

func (r *repoPG) ListSeasonality(ctx context.Context) ([]SeasonalityMultiplier, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT site_id, program_id, month, multiplier::float8
		FROM seasonality_monthly
		ORDER BY site_id NULLS FIRST, program_id NULLS FIRST, month`)
	if err != nil {
		return nil, fmt.Errorf("list seasonality: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (SeasonalityMultiplier, error) {
		var m SeasonalityMultiplier
		err := row.Scan(&m.SiteID, &m.ProgramID, &m.Month, &m.Multiplier)
		return m, err
	})
}

func (r *repoPG) ListStaffingFactors(ctx context.Context) ([]StaffingFactor, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+staffingCols+`
		FROM staffing_factors
		ORDER BY program_id, subprogram_id NULLS FIRST`)
	if err != nil {
		return nil, fmt.Errorf("list staffing factors: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (StaffingFactor, error) {
		f, err := scanStaffing(row)
		if err != nil {
			return StaffingFactor{}, err
		}
		return *f, nil
	})
}

func (r *repoPG) ListStays(ctx context.Context, filter StayFilter, limit, offset int) ([]Stay, int, error) {
	var (
		where []string
		args  []interface{}
	)
	add := func(clause string, v interface{}) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}
	if filter.SiteID != 0 {
		add("site_id = $%d", filter.SiteID)
	}
	if filter.ProgramID != 0 {
		add("program_id = $%d", filter.ProgramID)
	}
	if filter.Year != 0 {
		start := time.Date(filter.Year, time.January, 1, 0, 0, 0, 0, time.UTC)
		add("admit_ts >= $%d", start)
		add("admit_ts < $%d", start.AddDate(1, 0, 0))
	}
	whereSQL := ""
	if len(where) > 0 {
		whereSQL = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM ip_stay`+whereSQL, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count stays: %w", err)
	}

	args = append(args, limit, offset)
	rows, err := r.conn(ctx).Query(ctx, fmt.Sprintf(`
		SELECT stay_id, site_id, program_id, admit_ts, discharge_ts, los_days::float8, alc_flag
		FROM ip_stay%s
		ORDER BY admit_ts, stay_id
		LIMIT $%d OFFSET $%d`, whereSQL, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list stays: %w", err)
	}
	stays, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Stay, error) {
		var s Stay
		err := row.Scan(&s.ID, &s.SiteID, &s.ProgramID, &s.AdmitTS, &s.DischargeTS, &s.LOSDays, &s.ALCFlag)
		return s, err
	})
	if err != nil {
		return nil, 0, err
	}
	return stays, total, nil
}
