package coverage

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/labstack/echo/v4"

	"github.com/shadynafie/rotato-sub000/internal/platform/auth"
	"github.com/shadynafie/rotato-sub000/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	read := api.Group("", auth.RequireRole("admin", "consultant", "registrar", "coordinator"))
	read.GET("/coverage/requests", h.ListRequests)
	read.GET("/coverage/requests/:id", h.GetRequest)
	read.GET("/coverage/requests/:id/suggest", h.Suggest)
	read.GET("/coverage/needs/:clinicianId", h.DetectForClinician)

	write := api.Group("", auth.RequireRole("admin", "coordinator"))
	write.POST("/coverage/requests", h.CreateRequest)
	write.POST("/coverage/requests/:id/assign", h.Assign)
	write.POST("/coverage/requests/:id/unassign", h.Unassign)
	write.POST("/coverage/requests/:id/cancel", h.Cancel)
	write.DELETE("/coverage/requests/:id", h.DeleteRequest)
	write.POST("/coverage/auto-assign", h.BulkAutoAssign)
}

func requestID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

func mapLifecycleErr(err error) error {
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return echo.NewHTTPError(http.StatusNotFound, "coverage request not found")
	case errors.Is(err, ErrNotPending), errors.Is(err, ErrNotAssigned), errors.Is(err, ErrNotCancelled):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, ErrDuplicateRequest):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	}
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}

func (h *Handler) ListRequests(c echo.Context) error {
	p := pagination.FromContext(c)
	items, total, err := h.svc.ListRequests(c.Request().Context(), c.QueryParam("status"), p.Limit, p.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, p.Limit, p.Offset))
}

func (h *Handler) GetRequest(c echo.Context) error {
	id, err := requestID(c)
	if err != nil {
		return err
	}
	req, err := h.svc.GetRequest(c.Request().Context(), id)
	if err != nil {
		return mapLifecycleErr(err)
	}
	return c.JSON(http.StatusOK, req)
}

func (h *Handler) CreateRequest(c echo.Context) error {
	var req Request
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateManualRequest(c.Request().Context(), &req); err != nil {
		if errors.Is(err, ErrDuplicateRequest) {
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, req)
}

func (h *Handler) Suggest(c echo.Context) error {
	id, err := requestID(c)
	if err != nil {
		return err
	}
	suggestion, err := h.svc.Suggest(c.Request().Context(), id)
	if err != nil {
		return mapLifecycleErr(err)
	}
	return c.JSON(http.StatusOK, suggestion)
}

func (h *Handler) Assign(c echo.Context) error {
	id, err := requestID(c)
	if err != nil {
		return err
	}
	var body struct {
		ClinicianID uuid.UUID `json:"clinician_id"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if body.ClinicianID == uuid.Nil {
		return echo.NewHTTPError(http.StatusBadRequest, "clinician_id is required")
	}
	req, err := h.svc.Assign(c.Request().Context(), id, body.ClinicianID)
	if err != nil {
		return mapLifecycleErr(err)
	}
	return c.JSON(http.StatusOK, req)
}

func (h *Handler) Unassign(c echo.Context) error {
	id, err := requestID(c)
	if err != nil {
		return err
	}
	req, err := h.svc.Unassign(c.Request().Context(), id)
	if err != nil {
		return mapLifecycleErr(err)
	}
	return c.JSON(http.StatusOK, req)
}

func (h *Handler) Cancel(c echo.Context) error {
	id, err := requestID(c)
	if err != nil {
		return err
	}
	req, err := h.svc.Cancel(c.Request().Context(), id)
	if err != nil {
		return mapLifecycleErr(err)
	}
	return c.JSON(http.StatusOK, req)
}

func (h *Handler) DeleteRequest(c echo.Context) error {
	id, err := requestID(c)
	if err != nil {
		return err
	}
	if err := h.svc.DeleteRequest(c.Request().Context(), id); err != nil {
		return mapLifecycleErr(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) BulkAutoAssign(c echo.Context) error {
	report, err := h.svc.BulkAutoAssign(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, report)
}

func (h *Handler) DetectForClinician(c echo.Context) error {
	clinicianID, err := uuid.Parse(c.Param("clinicianId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid clinician id")
	}
	parse := func(name string) (time.Time, error) {
		v := c.QueryParam(name)
		if v == "" {
			return time.Time{}, errors.New(name + " query parameter required")
		}
		return time.Parse("2006-01-02", v)
	}
	from, err := parse("from")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	to, err := parse("to")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	detection, err := h.svc.DetectForClinician(c.Request().Context(), clinicianID, from, to)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, detection)
}
