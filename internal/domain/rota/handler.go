package rota

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/shadynafie/rotato-sub000/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	read := api.Group("", auth.RequireRole("admin", "consultant", "registrar", "coordinator"))
	read.GET("/schedule", h.ComputeSchedule)
	read.GET("/leave", h.ListLeave)
	read.GET("/overrides", h.ListOverrides)
	read.GET("/jobplan/:clinicianId", h.ListJobPlan)

	write := api.Group("", auth.RequireRole("admin", "coordinator"))
	write.POST("/leave", h.CreateLeave)
	write.POST("/leave/range", h.CreateLeaveRange)
	write.DELETE("/leave/:id", h.DeleteLeave)
	write.PUT("/overrides", h.SaveOverride)
	write.DELETE("/overrides/:id", h.DeleteOverride)
	write.PUT("/jobplan", h.SaveJobPlanEntry)
	write.DELETE("/jobplan/:id", h.DeleteJobPlanEntry)
}

func parseDateParam(c echo.Context, name string) (time.Time, error) {
	v := c.QueryParam(name)
	if v == "" {
		return time.Time{}, errors.New(name + " query parameter required")
	}
	d, err := time.Parse("2006-01-02", v)
	if err != nil {
		return time.Time{}, errors.New("invalid " + name + ", expected YYYY-MM-DD")
	}
	return d, nil
}

func (h *Handler) ComputeSchedule(c echo.Context) error {
	from, err := parseDateParam(c, "from")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	to, err := parseDateParam(c, "to")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	entries, err := h.svc.ComputeSchedule(c.Request().Context(), from, to)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, entries)
}

// -- Leave Handlers --

func (h *Handler) CreateLeave(c echo.Context) error {
	var l Leave
	if err := c.Bind(&l); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateLeave(c.Request().Context(), &l); err != nil {
		if errors.Is(err, ErrDuplicateLeave) {
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, l)
}

func (h *Handler) CreateLeaveRange(c echo.Context) error {
	var body struct {
		ClinicianID uuid.UUID `json:"clinician_id"`
		From        time.Time `json:"from"`
		To          time.Time `json:"to"`
		Session     string    `json:"session"`
		Type        string    `json:"type"`
		Note        *string   `json:"note"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	count, err := h.svc.CreateLeaveRange(c.Request().Context(), body.ClinicianID, body.From, body.To, body.Session, body.Type, body.Note)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, map[string]int{"count": count})
}

func (h *Handler) DeleteLeave(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.DeleteLeave(c.Request().Context(), id); err != nil {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ListLeave(c echo.Context) error {
	from, err := parseDateParam(c, "from")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	to, err := parseDateParam(c, "to")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	items, err := h.svc.ListLeave(c.Request().Context(), from, to)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, items)
}

// -- Override Handlers --

func (h *Handler) SaveOverride(c echo.Context) error {
	var e RotaEntry
	if err := c.Bind(&e); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.SaveOverride(c.Request().Context(), &e); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, e)
}

func (h *Handler) DeleteOverride(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.DeleteOverride(c.Request().Context(), id); err != nil {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ListOverrides(c echo.Context) error {
	from, err := parseDateParam(c, "from")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	to, err := parseDateParam(c, "to")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	items, err := h.svc.ListOverrides(c.Request().Context(), from, to)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, items)
}

// -- Job Plan Handlers --

func (h *Handler) SaveJobPlanEntry(c echo.Context) error {
	var e JobPlanEntry
	if err := c.Bind(&e); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.SaveJobPlanEntry(c.Request().Context(), &e); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, e)
}

func (h *Handler) DeleteJobPlanEntry(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.DeleteJobPlanEntry(c.Request().Context(), id); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ListJobPlan(c echo.Context) error {
	id, err := uuid.Parse(c.Param("clinicianId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid clinician id")
	}
	items, err := h.svc.ListJobPlan(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, items)
}
