package alert

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/aftercare/aftercare/internal/domain/followup"
	"github.com/aftercare/aftercare/internal/domain/patient"
	"github.com/aftercare/aftercare/internal/domain/triage"
	"github.com/aftercare/aftercare/internal/platform/auth"
)

type Handler struct {
	dispatcher *Dispatcher
	triageSvc  *triage.Service
	patientSvc *patient.Service
	followSvc  *followup.Service
}

func NewHandler(dispatcher *Dispatcher, triageSvc *triage.Service, patientSvc *patient.Service, followSvc *followup.Service) *Handler {
	return &Handler{dispatcher: dispatcher, triageSvc: triageSvc, patientSvc: patientSvc, followSvc: followSvc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("", auth.RequireRole("admin", "physician"))
	g.POST("/assessments/:id/alert", h.RedispatchAlert)
}

// RedispatchAlert re-sends the physician notification for an assessment
// whose original alert never arrived.
func (h *Handler) RedispatchAlert(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	ctx := c.Request().Context()

	a, err := h.triageSvc.GetAssessment(ctx, id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "assessment not found")
	}
	if a.FinalLevel < triage.LevelHigh {
		return echo.NewHTTPError(http.StatusBadRequest, "assessment level does not warrant an alert")
	}
	p, err := h.patientSvc.GetPatient(ctx, a.PatientID)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "patient not found")
	}
	surgeryType := ""
	if f, err := h.followSvc.GetFollowUp(ctx, a.FollowUpID); err == nil {
		surgeryType = f.SurgeryType
	}
	if err := h.dispatcher.Redispatch(ctx, a, p, surgeryType); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusAccepted, map[string]string{"status": "alert enqueued"})
}
