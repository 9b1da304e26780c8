// internal/handlers/common.go
package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/artime/artime-backend/internal/i18n"
	"github.com/artime/artime-backend/internal/models"
	"github.com/artime/artime-backend/internal/services"
	"github.com/artime/artime-backend/internal/utils"
)

// actorFromContext rebuilds the acting party from the JWT claims the auth
// middleware stored on the context.
func actorFromContext(c *gin.Context) (services.Actor, bool) {
	userIDStr, exists := utils.GetUserIDFromContext(c)
	if !exists {
		utils.UnauthorizedResponse(c, "")
		return services.Actor{}, false
	}
	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		utils.BadRequestResponse(c, "Invalid user ID", nil)
		return services.Actor{}, false
	}

	userType, _ := utils.GetUserTypeFromContext(c)
	role, ok := models.RoleForUserType(models.UserType(userType))
	if !ok {
		utils.ForbiddenResponse(c, "")
		return services.Actor{}, false
	}

	return services.Actor{UserID: userID, Role: role}, true
}

func pathUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		lang := utils.GetLangFromContext(c)
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, name), nil)
		return uuid.Nil, false
	}
	return id, true
}

// serviceErrorResponse maps a service error to the HTTP status its kind
// calls for.
func serviceErrorResponse(c *gin.Context, err error) {
	switch services.Classify(err) {
	case services.KindValidation:
		utils.BadRequestResponse(c, err.Error(), nil)
	case services.KindAuthorization:
		utils.ForbiddenResponse(c, err.Error())
	case services.KindConflict:
		utils.ConflictResponse(c, err.Error())
	case services.KindNotFound:
		utils.ErrorResponse(c, 404, "NOT_FOUND", err.Error(), nil)
	case services.KindExternal:
		utils.ErrorResponse(c, 502, "PROVIDER_ERROR", err.Error(), nil)
	default:
		utils.InternalErrorResponse(c, err.Error())
	}
}
