package linking

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/notes/:id/link", h.LinkNote)
	api.POST("/notes/:id/unlink", h.UnlinkNote)
	api.POST("/notes/bulk-link", h.BulkLinkNotes)
	api.POST("/clients/:id/auto-link", h.AutoLink)
	api.POST("/practices/:practiceId/reconcile", h.Reconcile)
	api.POST("/actions/undo", h.Undo)
}

type linkRequest struct {
	AppointmentID uuid.UUID `json:"appointment_id"`
	Override      bool      `json:"override"`
}

func (h *Handler) LinkNote(c echo.Context) error {
	noteID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid note id")
	}
	var req linkRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.AppointmentID == uuid.Nil {
		return echo.NewHTTPError(http.StatusBadRequest, "appointment_id is required")
	}
	result, err := h.svc.Link(c.Request().Context(), noteID, req.AppointmentID, req.Override)
	if err != nil {
		return linkError(err)
	}
	return c.JSON(http.StatusOK, result)
}

func (h *Handler) UnlinkNote(c echo.Context) error {
	noteID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid note id")
	}
	result, err := h.svc.Unlink(c.Request().Context(), noteID)
	if err != nil {
		return linkError(err)
	}
	return c.JSON(http.StatusOK, result)
}

type bulkLinkRequest struct {
	NoteIDs       []uuid.UUID `json:"note_ids"`
	AppointmentID uuid.UUID   `json:"appointment_id"`
}

func (h *Handler) BulkLinkNotes(c echo.Context) error {
	var req bulkLinkRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if len(req.NoteIDs) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "note_ids is required")
	}
	if req.AppointmentID == uuid.Nil {
		return echo.NewHTTPError(http.StatusBadRequest, "appointment_id is required")
	}
	result, err := h.svc.BulkLink(c.Request().Context(), req.NoteIDs, req.AppointmentID)
	if err != nil {
		return linkError(err)
	}
	return c.JSON(http.StatusOK, result)
}

func (h *Handler) AutoLink(c echo.Context) error {
	clientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid client id")
	}
	result, err := h.svc.AutoLink(c.Request().Context(), clientID)
	if err != nil {
		return linkError(err)
	}
	return c.JSON(http.StatusOK, result)
}

type reconcileRequest struct {
	AutoCreate bool `json:"auto_create"`
}

func (h *Handler) Reconcile(c echo.Context) error {
	practiceID, err := uuid.Parse(c.Param("practiceId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid practice id")
	}
	var req reconcileRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	report, err := h.svc.Reconcile(c.Request().Context(), practiceID, ReconcileOptions{AutoCreate: req.AutoCreate})
	if err != nil {
		return linkError(err)
	}
	return c.JSON(http.StatusOK, report)
}

func (h *Handler) Undo(c echo.Context) error {
	result, err := h.svc.UndoLast(c.Request().Context())
	if err != nil {
		return linkError(err)
	}
	return c.JSON(http.StatusOK, result)
}

// linkError maps the engine's error taxonomy onto HTTP statuses.
func linkError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrConflict):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, ErrSubjectMismatch):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, ErrExpired):
		return echo.NewHTTPError(http.StatusGone, "nothing to undo")
	case errors.Is(err, ErrExternalService):
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}
