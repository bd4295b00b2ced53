package handlers

import (
	"net/http"

	schedulerRepo "consultbook/database/repository/scheduler"
	"consultbook/middleware"
	"consultbook/models"
	"consultbook/services/booking"
	"consultbook/utils"

	"github.com/gin-gonic/gin"
)

// AppointmentHandler exposes booking, the appointment lifecycle and slot blocks.
type AppointmentHandler struct {
	Service booking.AppointmentService
}

func NewAppointmentHandler(svc booking.AppointmentService) *AppointmentHandler {
	return &AppointmentHandler{Service: svc}
}

type bookAppointmentInput struct {
	Date     string `json:"date" binding:"required"`
	Timeslot string `json:"timeslot" binding:"required"`
	Type     string `json:"type" binding:"required"`
	Email    string `json:"email"`
	Name     string `json:"name"`
}

type statusChangeInput struct {
	Status   string `json:"status" binding:"required"`
	Date     string `json:"date"`
	Timeslot string `json:"timeslot"`
}

type blockedSlotInput struct {
	Date     string `json:"date" binding:"required"`
	Timeslot string `json:"timeslot"`
	Reason   string `json:"reason"`
}

// CheckSlotHandler reports whether a slot can be booked right now.
func (h *AppointmentHandler) CheckSlotHandler(c *gin.Context) {
	verdict, err := h.Service.CheckSlot(c.Request.Context(), c.Query("date"), c.Query("timeslot"))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, verdict)
}

func (h *AppointmentHandler) BookAppointmentHandler(c *gin.Context) {
	var input bookAppointmentInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}
	appt, err := h.Service.BookAppointment(c.Request.Context(), booking.BookingRequest{
		UserID:   middleware.UserID(c),
		Date:     input.Date,
		Timeslot: input.Timeslot,
		Type:     models.AppointmentType(input.Type),
		Email:    input.Email,
		Name:     input.Name,
	})
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, appt)
}

func (h *AppointmentHandler) ListMyAppointmentsHandler(c *gin.Context) {
	appts, err := h.Service.ListAppointments(c.Request.Context(), schedulerRepo.AppointmentFilter{
		UserID: middleware.UserID(c),
		Status: models.AppointmentStatus(c.Query("status")),
	})
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, appts)
}

// GetMyAppointmentHandler hides other users' appointments behind 404.
func (h *AppointmentHandler) GetMyAppointmentHandler(c *gin.Context) {
	appt, err := h.Service.GetAppointment(c.Request.Context(), c.Param("id"))
	if err == nil && appt.UserID != middleware.UserID(c) {
		err = utils.NewEngineError(utils.ErrNotFound, "appointment %s not found", c.Param("id"))
	}
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, appt)
}

func (h *AppointmentHandler) RequestRescheduleHandler(c *gin.Context) {
	appt, err := h.Service.TransitionAppointment(c.Request.Context(), booking.TransitionRequest{
		AppointmentID: c.Param("id"),
		NewStatus:     models.AppointmentRescheduleRequested,
		ActorUserID:   middleware.UserID(c),
	})
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, appt)
}

// AdminUpdateStatusHandler applies an administrative status transition.
func (h *AppointmentHandler) AdminUpdateStatusHandler(c *gin.Context) {
	var input statusChangeInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}
	appt, err := h.Service.TransitionAppointment(c.Request.Context(), booking.TransitionRequest{
		AppointmentID: c.Param("id"),
		NewStatus:     models.AppointmentStatus(input.Status),
		Date:          input.Date,
		Timeslot:      input.Timeslot,
		Admin:         true,
	})
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, appt)
}

func (h *AppointmentHandler) AdminListAppointmentsHandler(c *gin.Context) {
	appts, err := h.Service.ListAppointments(c.Request.Context(), schedulerRepo.AppointmentFilter{
		UserID: c.Query("userId"),
		Date:   c.Query("date"),
		Status: models.AppointmentStatus(c.Query("status")),
	})
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, appts)
}

func (h *AppointmentHandler) CreateBlockedSlotHandler(c *gin.Context) {
	var input blockedSlotInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}
	blocked, err := h.Service.CreateBlockedSlot(c.Request.Context(), input.Date, input.Timeslot, input.Reason)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, blocked)
}

func (h *AppointmentHandler) RemoveBlockedSlotHandler(c *gin.Context) {
	if err := h.Service.RemoveBlockedSlot(c.Request.Context(), c.Param("id")); err != nil {
		utils.RespondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
