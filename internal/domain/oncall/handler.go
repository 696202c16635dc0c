package oncall

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
	read.GET("/oncall/today", h.TodayOncall)
	read.GET("/oncall/:role/definition", h.GetDefinition)
	read.GET("/oncall/slots/:id/assignments", h.ListAssignments)

	write := api.Group("", auth.RequireRole("admin", "coordinator"))
	write.PUT("/oncall/:role/config", h.SaveConfig)
	write.POST("/oncall/slots", h.CreateSlot)
	write.DELETE("/oncall/slots/:id", h.DeleteSlot)
	write.PUT("/oncall/:role/pattern", h.SetPattern)
	write.POST("/oncall/assignments", h.CreateAssignment)
	write.PUT("/oncall/assignments/:id/end", h.EndAssignment)
	write.DELETE("/oncall/assignments/:id", h.DeleteAssignment)
}

func (h *Handler) TodayOncall(c echo.Context) error {
	result, err := h.svc.TodayOncall(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"date":   DateOnly(time.Now()).Format("2006-01-02"),
		"oncall": result,
	})
}

func (h *Handler) GetDefinition(c echo.Context) error {
	def, err := h.svc.Definition(c.Request().Context(), c.Param("role"))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if def == nil {
		return echo.NewHTTPError(http.StatusNotFound, "no rotation configured for role")
	}
	resp := map[string]interface{}{
		"config":       def.Config,
		"slots":        def.Slots,
		"pattern":      def.Pattern,
		"cycle_length": def.CycleLength(),
	}
	// Surface configuration problems to administrators instead of hiding them.
	if err := def.Validate(); err != nil {
		resp["warning"] = err.Error()
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *Handler) SaveConfig(c echo.Context) error {
	var cfg Config
	if err := c.Bind(&cfg); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	cfg.Role = c.Param("role")
	if err := h.svc.SaveConfig(c.Request().Context(), &cfg); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, cfg)
}

func (h *Handler) CreateSlot(c echo.Context) error {
	var sl Slot
	if err := c.Bind(&sl); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateSlot(c.Request().Context(), &sl); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, sl)
}

func (h *Handler) DeleteSlot(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.DeleteSlot(c.Request().Context(), id); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) SetPattern(c echo.Context) error {
	var entries []*PatternEntry
	if err := c.Bind(&entries); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.SetPattern(c.Request().Context(), c.Param("role"), entries); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, entries)
}

func (h *Handler) CreateAssignment(c echo.Context) error {
	var a SlotAssignment
	if err := c.Bind(&a); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateAssignment(c.Request().Context(), &a); err != nil {
		if errors.Is(err, ErrOverlappingAssignment) {
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, a)
}

func (h *Handler) EndAssignment(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var body struct {
		EndDate time.Time `json:"end_date"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.EndAssignment(c.Request().Context(), id, body.EndDate); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) DeleteAssignment(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.DeleteAssignment(c.Request().Context(), id); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ListAssignments(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	items, err := h.svc.ListAssignments(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, items)
}
