package reference

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/lmsynth/lmsynth/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/reference")
	g.GET("/sites", h.ListSites)
	g.GET("/programs", h.ListPrograms)
	g.GET("/subprograms", h.ListSubprograms)
	g.GET("/staffed-beds", h.ListStaffedBeds)
	g.GET("/baselines", h.ListBaselines)
	g.GET("/seasonality", h.ListSeasonality)
	g.GET("/seasonality/resolved", h.ResolveSeasonality)
	g.GET("/staffing-factors", h.ListStaffingFactors)
	g.GET("/stays", h.ListStays)
}

type listResponse struct {
	Data interface{} `json:"data"`
	Meta listMeta    `json:"meta"`
}

type listMeta struct {
	Count int `json:"count"`
}

func list[T any](c echo.Context, items []T) error {
	if items == nil {
		items = []T{}
	}
	return c.JSON(http.StatusOK, listResponse{Data: items, Meta: listMeta{Count: len(items)}})
}

// intParam parses an optional positive integer query parameter.
func intParam(c echo.Context, name string) (int, bool, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return 0, false, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return 0, false, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return v, true, nil
}

func (h *Handler) ListSites(c echo.Context) error {
	sites, err := h.svc.ListSites(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return list(c, sites)
}

func (h *Handler) ListPrograms(c echo.Context) error {
	programs, err := h.svc.ListPrograms(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return list(c, programs)
}

func (h *Handler) ListSubprograms(c echo.Context) error {
	pid, ok, err := intParam(c, "program_id")
	if err != nil {
		return err
	}
	var programID *int
	if ok {
		programID = &pid
	}
	subs, err := h.svc.ListSubprograms(c.Request().Context(), programID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return list(c, subs)
}

func (h *Handler) ListStaffedBeds(c echo.Context) error {
	beds, err := h.svc.ListStaffedBeds(c.Request().Context(), c.QueryParam("schedule"))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return list(c, beds)
}

func (h *Handler) ListBaselines(c echo.Context) error {
	year, ok, err := intParam(c, "year")
	if err != nil {
		return err
	}
	if !ok {
		year = DefaultBaselineYear
	}
	baselines, err := h.svc.ListBaselines(c.Request().Context(), year)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return list(c, baselines)
}

func (h *Handler) ListSeasonality(c echo.Context) error {
	ms, err := h.svc.ListSeasonality(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return list(c, ms)
}

func (h *Handler) ResolveSeasonality(c echo.Context) error {
	siteID, okSite, err := intParam(c, "site_id")
	if err != nil {
		return err
	}
	programID, okProgram, err := intParam(c, "program_id")
	if err != nil {
		return err
	}
	if !okSite || !okProgram {
		return echo.NewHTTPError(http.StatusBadRequest, "site_id and program_id are required")
	}
	res, err := h.svc.ResolveSeasonality(c.Request().Context(), siteID, programID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, res)
}

func (h *Handler) ListStaffingFactors(c echo.Context) error {
	fs, err := h.svc.ListStaffingFactors(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return list(c, fs)
}

func (h *Handler) ListStays(c echo.Context) error {
	var filter StayFilter
	var err error
	if filter.SiteID, _, err = intParam(c, "site_id"); err != nil {
		return err
	}
	if filter.ProgramID, _, err = intParam(c, "program_id"); err != nil {
		return err
	}
	if filter.Year, _, err = intParam(c, "year"); err != nil {
		return err
	}

	pg := pagination.FromContext(c)
	stays, total, err := h.svc.ListStays(c.Request().Context(), filter, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if stays == nil {
		stays = []Stay{}
	}
	return c.JSON(http.StatusOK, pagination.NewPage(stays, len(stays), total, pg))
}
