package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"consultbook/middleware"
	"consultbook/models"
	"consultbook/services/subscription"
	"consultbook/utils"

	"github.com/gin-gonic/gin"
)

// SubscriptionHandler exposes the service plan. The version travels in ETag
// and If-Match so concurrent editors do not overwrite each other.
type SubscriptionHandler struct {
	Service subscription.SubscriptionService
}

func NewSubscriptionHandler(svc subscription.SubscriptionService) *SubscriptionHandler {
	return &SubscriptionHandler{Service: svc}
}

type updatePlanInput struct {
	ServicePlan string `json:"servicePlan" binding:"required"`
	Confirm     bool   `json:"confirm"`
}

// expectedVersion parses If-Match; a missing header means unconditional.
func expectedVersion(c *gin.Context) (*int64, error) {
	raw := strings.TrimSpace(c.GetHeader("If-Match"))
	if raw == "" || raw == "*" {
		return nil, nil
	}
	raw = strings.TrimPrefix(raw, "W/")
	v, err := strconv.ParseInt(strings.Trim(raw, `"`), 10, 64)
	if err != nil {
		return nil, utils.NewEngineError(utils.ErrInvalidInput, "If-Match must carry a plan version, got %q", raw)
	}
	return &v, nil
}

func writePlan(c *gin.Context, status int, view *subscription.PlanView) {
	c.Header("ETag", strconv.Quote(strconv.FormatInt(view.Version, 10)))
	c.JSON(status, view)
}

func (h *SubscriptionHandler) GetMyPlanHandler(c *gin.Context) {
	view, err := h.Service.GetServicePlan(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	writePlan(c, http.StatusOK, view)
}

func (h *SubscriptionHandler) UpdateMyPlanHandler(c *gin.Context) {
	h.updatePlan(c, middleware.UserID(c))
}

// AdminUpdatePlanHandler lets staff change a client's plan under the same rules.
func (h *SubscriptionHandler) AdminUpdatePlanHandler(c *gin.Context) {
	h.updatePlan(c, c.Param("uid"))
}

func (h *SubscriptionHandler) updatePlan(c *gin.Context, userID string) {
	var input updatePlanInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}
	version, err := expectedVersion(c)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	view, err := h.Service.UpdateServicePlan(c.Request.Context(), subscription.UpdatePlanRequest{
		UserID:          userID,
		RequestedPlan:   models.ServicePlan(input.ServicePlan),
		Confirm:         input.Confirm,
		ExpectedVersion: version,
	})
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	writePlan(c, http.StatusOK, view)
}

func (h *SubscriptionHandler) RenewMyPlanHandler(c *gin.Context) {
	version, err := expectedVersion(c)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	view, err := h.Service.RenewServicePlan(c.Request.Context(), middleware.UserID(c), version)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	writePlan(c, http.StatusOK, view)
}
