package scenario

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/sync/errgroup"

	"github.com/lmsynth/lmsynth/internal/domain/reference"
)

const tracerName = "github.com/lmsynth/lmsynth/internal/domain/scenario"

// DefaultFetchConcurrency bounds parallel per-site lookups.
const DefaultFetchConcurrency = 8

type Service struct {
	provider    reference.Provider
	repo        Repository
	logger      zerolog.Logger
	tracer      trace.Tracer
	concurrency int
	now         func() time.Time
}

type Option func(*Service)

// WithRepository enables saved scenarios.
func WithRepository(repo Repository) Option {
	return func(s *Service) { s.repo = repo }
}

func WithLogger(logger zerolog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Service) {
		if tp != nil {
			s.tracer = tp.Tracer(tracerName)
		}
	}
}

func WithConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithClock overrides the calculated_at source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(provider reference.Provider, opts ...Option) *Service {
	s := &Service{
		provider:    provider,
		logger:      zerolog.Nop(),
		tracer:      noop.NewTracerProvider().Tracer(tracerName),
		concurrency: DefaultFetchConcurrency,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Compute validates req, gathers reference facts for every site and runs the
// engine. Reference lookups fan out across sites; aggregation starts only
// after every lookup has finished.
func (s *Service) Compute(ctx context.Context, req ScenarioRequest) (*ScenarioResponse, error) {
	ctx, span := s.tracer.Start(ctx, "scenario.Compute", trace.WithAttributes(
		attribute.Int("scenario.sites", len(req.Sites)),
		attribute.Int("scenario.program_id", req.ProgramID),
		attribute.Int("scenario.baseline_year", req.BaselineYear),
	))
	defer span.End()

	if err := Validate(req); err != nil {
		span.SetStatus(codes.Error, "invalid params")
		return nil, err
	}

	staffing, err := s.provider.StaffingFactor(ctx, req.ProgramID, req.SubprogramID)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("staffing factor: %w", err)
	}

	facts, err := s.gather(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "reference lookup failed")
		return nil, err
	}

	res, err := Compute(Inputs{Request: req, Sites: facts, Staffing: staffing})
	if err != nil {
		var nd *NoDataError
		if errors.As(err, &nd) {
			s.logger.Info().
				Int("program_id", req.ProgramID).
				Int("baseline_year", req.BaselineYear).
				Int("excluded", len(nd.Excluded)).
				Msg("scenario has no data")
		}
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	bySite, excluded := Split(res.Outcomes)
	span.SetAttributes(
		attribute.Int("scenario.sites_included", res.KPIs.SitesIncluded),
		attribute.Int("scenario.sites_excluded", res.KPIs.SitesExcluded),
	)
	if len(excluded) > 0 {
		s.logger.Debug().Interface("excluded", excluded).Msg("sites excluded from scenario")
	}

	return &ScenarioResponse{
		KPIs:     res.KPIs,
		BySite:   bySite,
		Excluded: excluded,
		Metadata: Metadata{
			ModelVersion:      ModelVersion,
			CalculatedAt:      s.now().UTC(),
			SeasonalityMethod: SeasonalityMethod,
			SchedulePolicy:    SchedulePolicy,
			Request:           req,
		},
	}, nil
}

// gather fetches per-site facts with bounded concurrency. Each goroutine
// writes only its own slot.
func (s *Service) gather(ctx context.Context, req ScenarioRequest) ([]SiteFacts, error) {
	facts := make([]SiteFacts, len(req.Sites))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, siteID := range req.Sites {
		i, siteID := i, siteID
		g.Go(func() error {
			f, err := s.siteFacts(gctx, req, siteID)
			if err != nil {
				return fmt.Errorf("site %d: %w", siteID, err)
			}
			facts[i] = f
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return facts, nil
}

func (s *Service) siteFacts(ctx context.Context, req ScenarioRequest, siteID int) (SiteFacts, error) {
	ctx, span := s.tracer.Start(ctx, "scenario.siteFacts", trace.WithAttributes(attribute.Int("site_id", siteID)))
	defer span.End()

	f := SiteFacts{SiteID: siteID}

	b, err := s.provider.Baseline(ctx, siteID, req.ProgramID, req.BaselineYear)
	if errors.Is(err, reference.ErrNotFound) {
		return f, nil
	}
	if err != nil {
		return f, err
	}

	adm, err := s.provider.BaselineAdmissions(ctx, siteID, req.ProgramID, req.BaselineYear)
	if errors.Is(err, reference.ErrNotFound) {
		return f, nil
	}
	if err != nil {
		return f, err
	}
	f.Baseline = b
	f.Admissions = adm

	site, err := s.provider.Site(ctx, siteID)
	switch {
	case errors.Is(err, reference.ErrNotFound):
	case err != nil:
		return f, err
	default:
		f.Site = site
	}

	beds, err := s.provider.StaffedBeds(ctx, siteID, req.ProgramID, req.Params.ScheduleCode)
	switch {
	case errors.Is(err, reference.ErrNotFound):
	case err != nil:
		return f, err
	default:
		f.StaffedBeds = &beds
	}

	if req.Params.Seasonality {
		f.Seasonality, err = reference.Profile(ctx, s.provider, siteID, req.ProgramID)
		if err != nil {
			return f, err
		}
	}
	return f, nil
}

// -- Saved scenarios --

var errNoRepository = errors.New("saved scenarios are not enabled")

// Save recomputes the request and stores it with its response.
func (s *Service) Save(ctx context.Context, name, createdBy string, req ScenarioRequest) (*SavedScenario, error) {
	if s.repo == nil {
		return nil, errNoRepository
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, &ValidationError{Fields: []FieldError{{Field: "name", Message: "is required"}}}
	}
	if len(name) > 255 {
		return nil, &ValidationError{Fields: []FieldError{{Field: "name", Message: "must be at most 255 characters"}}}
	}

	resp, err := s.Compute(ctx, req)
	if err != nil {
		return nil, err
	}

	saved := &SavedScenario{
		Name:      name,
		CreatedBy: createdBy,
		Request:   req,
		Response:  *resp,
		CreatedAt: resp.Metadata.CalculatedAt,
	}
	if err := s.repo.Create(ctx, saved); err != nil {
		return nil, fmt.Errorf("save scenario: %w", err)
	}
	s.logger.Info().Str("scenario_id", saved.ID.String()).Str("name", name).Msg("scenario saved")
	return saved, nil
}

func (s *Service) GetSaved(ctx context.Context, id uuid.UUID) (*SavedScenario, error) {
	if s.repo == nil {
		return nil, errNoRepository
	}
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListSaved(ctx context.Context, limit, offset int) ([]SavedSummary, int, error) {
	if s.repo == nil {
		return nil, 0, errNoRepository
	}
	return s.repo.List(ctx, limit, offset)
}

func (s *Service) DeleteSaved(ctx context.Context, id uuid.UUID) error {
	if s.repo == nil {
		return errNoRepository
	}
	return s.repo.Delete(ctx, id)
}
