package scenario

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/lmsynth/lmsynth/internal/platform/auth"
	"github.com/lmsynth/lmsynth/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/scenarios")
	g.POST("/compute", h.Compute)
	g.POST("/saved", h.Save)
	g.GET("/saved", h.ListSaved)
	g.GET("/saved/:id", h.GetSaved)
	g.DELETE("/saved/:id", h.DeleteSaved)
}

type errorBody struct {
	Error    string       `json:"error"`
	Message  string       `json:"message,omitempty"`
	Details  []FieldError `json:"details,omitempty"`
	Excluded []Exclusion  `json:"excluded,omitempty"`
}

// writeError maps domain errors onto the documented error bodies. Anything
// unrecognised becomes an echo 500.
func writeError(c echo.Context, err error) error {
	var (
		ve *ValidationError
		nd *NoDataError
	)
	switch {
	case errors.As(err, &ve):
		return c.JSON(http.StatusBadRequest, errorBody{Error: "invalid_params", Details: ve.Fields})
	case errors.As(err, &nd):
		excluded := nd.Excluded
		if excluded == nil {
			excluded = []Exclusion{}
		}
		return c.JSON(http.StatusUnprocessableEntity, errorBody{Error: "no_data", Excluded: excluded})
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "saved scenario not found")
	case errors.Is(err, errNoRepository):
		return echo.NewHTTPError(http.StatusNotImplemented, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

func badBody(c echo.Context, err error) error {
	return c.JSON(http.StatusBadRequest, errorBody{
		Error:   "invalid_params",
		Details: []FieldError{{Field: "body", Message: err.Error()}},
	})
}

func (h *Handler) Compute(c echo.Context) error {
	var req ScenarioRequest
	if err := c.Bind(&req); err != nil {
		return badBody(c, err)
	}
	resp, err := h.svc.Compute(c.Request().Context(), req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *Handler) Save(c echo.Context) error {
	var body SaveRequest
	if err := c.Bind(&body); err != nil {
		return badBody(c, err)
	}
	user := auth.UserIDFromContext(c.Request().Context())
	if user == "" {
		user = auth.AnonymousUser
	}
	saved, err := h.svc.Save(c.Request().Context(), body.Name, user, body.Request)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, saved)
}

func (h *Handler) ListSaved(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListSaved(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return writeError(c, err)
	}
	if items == nil {
		items = []SavedSummary{}
	}
	return c.JSON(http.StatusOK, pagination.NewPage(items, len(items), total, pg))
}

func (h *Handler) GetSaved(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	saved, err := h.svc.GetSaved(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, saved)
}

func (h *Handler) DeleteSaved(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.DeleteSaved(c.Request().Context(), id); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
