// internal/handlers/cancellation.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/artime/artime-backend/internal/i18n"
	"github.com/artime/artime-backend/internal/services"
	"github.com/artime/artime-backend/internal/utils"
)

type CancellationHandler struct {
	cancellationService *services.CancellationService
}

func NewCancellationHandler(cancellationService *services.CancellationService) *CancellationHandler {
	return &CancellationHandler{
		cancellationService: cancellationService,
	}
}

// POST /bookings/:id/cancel
func (h *CancellationHandler) CancelBooking(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	bookingID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	lang := utils.GetLangFromContext(c)
	var req services.CancelBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "input"), err.Error())
		return
	}

	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	booking, cancellationCase, err := h.cancellationService.CancelBooking(actor, bookingID, &req)
	if err != nil {
		serviceErrorResponse(c, err)
		return
	}

	response := gin.H{
		"message": i18n.T(lang, i18n.KeyBookingCancelled),
		"booking": booking,
	}
	if cancellationCase != nil {
		response["message"] = i18n.T(lang, i18n.KeyCancellationOpened)
		response["case"] = cancellationCase
	}

	utils.SuccessResponse(c, response)
}

// GET /cancellations/:id
func (h *CancellationHandler) GetCase(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	caseID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	cancellationCase, err := h.cancellationService.GetCase(actor, caseID)
	if err != nil {
		serviceErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"case": cancellationCase})
}

// GET /admin/cancellations
func (h *CancellationHandler) ListOpenCases(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	params := utils.GetPaginationParams(c)
	result, err := h.cancellationService.ListOpenCases(actor, params)
	if err != nil {
		serviceErrorResponse(c, err)
		return
	}

	utils.PaginatedResponse(c, *result)
}

// POST /admin/cancellations/:id/resolve
func (h *CancellationHandler) ResolveCase(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	caseID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	lang := utils.GetLangFromContext(c)
	var req services.ResolveCaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "input"), err.Error())
		return
	}

	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	resolution, err := h.cancellationService.ResolveCase(actor, caseID, &req)
	if err != nil {
		serviceErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message":    i18n.T(lang, i18n.KeyCancellationResolved),
		"resolution": resolution,
	})
}

// POST /admin/cancellations/:id/execute
func (h *CancellationHandler) ExecuteResolution(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	caseID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	execution, err := h.cancellationService.ExecuteResolution(actor, caseID)
	if err != nil {
		serviceErrorResponse(c, err)
		return
	}

	lang := utils.GetLangFromContext(c)
	utils.SuccessResponse(c, gin.H{
		"message":   i18n.T(lang, i18n.KeyCancellationExecuted),
		"execution": execution,
	})
}
