// internal/handlers/booking.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/artime/artime-backend/internal/i18n"
	"github.com/artime/artime-backend/internal/models"
	"github.com/artime/artime-backend/internal/services"
	"github.com/artime/artime-backend/internal/utils"
)

type BookingHandler struct {
	bookingService     *services.BookingService
	negotiationService *services.NegotiationService
	contractService    *services.ContractService
	settlementService  *services.SettlementService
}

func NewBookingHandler(
	bookingService *services.BookingService,
	negotiationService *services.NegotiationService,
	contractService *services.ContractService,
	settlementService *services.SettlementService,
) *BookingHandler {
	return &BookingHandler{
		bookingService:     bookingService,
		negotiationService: negotiationService,
		contractService:    contractService,
		settlementService:  settlementService,
	}
}

// POST /bookings
func (h *BookingHandler) CreateBooking(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	lang := utils.GetLangFromContext(c)
	var req services.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "input"), err.Error())
		return
	}

	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	booking, err := h.bookingService.CreateBooking(actor, &req)
	if err != nil {
		serviceErrorResponse(c, err)
		return
	}

	utils.CreatedResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyBookingCreated),
		"booking": booking,
	})
}

// POST /bookings/:id/publish
func (h *BookingHandler) PublishBooking(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	bookingID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	booking, err := h.bookingService.PublishBooking(actor, bookingID)
	if err != nil {
		serviceErrorResponse(c, err)
		return
	}

	lang := utils.GetLangFromContext(c)
	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyBookingPublished),
		"booking": booking,
	})
}

// GET /bookings/:id
func (h *BookingHandler) GetBooking(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	bookingID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	booking, err := h.bookingService.GetBooking(actor, bookingID)
	if err != nil {
		serviceErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"booking": booking})
}

// GET /bookings
func (h *BookingHandler) ListBookings(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	params := utils.GetPaginationParams(c)
	filter := &services.BookingFilter{
		Status: models.BookingStatus(c.Query("status")),
	}

	result, err := h.bookingService.ListBookings(actor, filter, params)
	if err != nil {
		serviceErrorResponse(c, err)
		return
	}

	utils.PaginatedResponse(c, *result)
}

// GET /bookings/:id/messages
func (h *BookingHandler) GetMessages(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	bookingID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	messages, err := h.bookingService.GetMessages(actor, bookingID)
	if err != nil {
		serviceErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"messages": messages})
}

// POST /bookings/:id/messages
func (h *BookingHandler) SendMessage(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	bookingID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	lang := utils.GetLangFromContext(c)
	var req services.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "input"), err.Error())
		return
	}

	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	message, err := h.negotiationService.SendMessage(actor, bookingID, &req)
	if err != nil {
		serviceErrorResponse(c, err)
		return
	}

	utils.CreatedResponse(c, gin.H{
		"message_sent": i18n.T(lang, i18n.KeyNegotiationMessageSent),
		"data":         message,
	})
}

// POST /bookings/:id/final-offer
func (h *BookingHandler) SendFinalOffer(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	bookingID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	lang := utils.GetLangFromContext(c)
	var req services.FinalOfferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "input"), err.Error())
		return
	}

	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	offer, err := h.negotiationService.SendFinalOffer(actor, bookingID, &req)
	if err != nil {
		serviceErrorResponse(c, err)
		return
	}

	utils.CreatedResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyNegotiationFinalOfferSent),
		"offer":   offer,
	})
}

// POST /bookings/:id/accept
func (h *BookingHandler) AcceptBooking(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	bookingID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	booking, err := h.negotiationService.AcceptBooking(actor, bookingID)
	if err != nil {
		serviceErrorResponse(c, err)
		return
	}

	lang := utils.GetLangFromContext(c)
	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyBookingAccepted),
		"booking": booking,
	})
}

// POST /bookings/:id/reject
func (h *BookingHandler) RejectBooking(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	bookingID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	booking, err := h.negotiationService.RejectBooking(actor, bookingID)
	if err != nil {
		serviceErrorResponse(c, err)
		return
	}

	lang := utils.GetLangFromContext(c)
	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyBookingRejected),
		"booking": booking,
	})
}

// POST /bookings/:id/complete
func (h *BookingHandler) CompleteBooking(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	bookingID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	booking, err := h.bookingService.CompleteBooking(actor, bookingID)
	if err != nil {
		serviceErrorResponse(c, err)
		return
	}

	lang := utils.GetLangFromContext(c)
	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyBookingCompleted),
		"booking": booking,
	})
}

// GET /bookings/:id/contract
func (h *BookingHandler) GetContract(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	bookingID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	doc, err := h.contractService.GetContract(actor, bookingID)
	if err != nil {
		serviceErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"contract": doc})
}

// POST /bookings/:id/contract/sign
func (h *BookingHandler) SignContract(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	bookingID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	booking, err := h.contractService.MarkSigned(actor, bookingID)
	if err != nil {
		serviceErrorResponse(c, err)
		return
	}

	lang := utils.GetLangFromContext(c)
	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyContractSigned),
		"booking": booking,
	})
}

// GET /bookings/:id/split
func (h *BookingHandler) GetSplit(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	bookingID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	split, err := h.settlementService.GetSplit(actor, bookingID)
	if err != nil {
		serviceErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"split": split})
}
