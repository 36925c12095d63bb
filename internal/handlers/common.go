package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"fixpoint_backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

// requestActor pulls the authenticated user and store from the Gin context
// populated by the auth middleware. On failure it writes the 401 response and
// returns ok=false; the handler should just return.
func requestActor(c *gin.Context) (userID, storeID int64, ok bool) {
	userIDRaw, exists := c.Get("userID")
	if !exists {
		utils.LogError(errors.New("userID not found in context"), "requestActor: userID not in context")
		utils.RespondWithError(c, utils.NewAPIError(http.StatusUnauthorized, utils.ErrCodeUnauthorized, "User not authenticated.", "Missing user ID in context"))
		return 0, 0, false
	}
	userID, castOK := userIDRaw.(int64)
	if !castOK {
		utils.LogError(errors.New("userID is not of type int64"), "requestActor: userID type assertion failed")
		utils.RespondWithError(c, utils.NewAPIError(http.StatusUnauthorized, utils.ErrCodeUnauthorized, "User ID format incorrect.", "Invalid user ID format in context"))
		return 0, 0, false
	}

	storeIDRaw, exists := c.Get("storeID")
	if !exists {
		utils.LogError(errors.New("storeID not found in context"), "requestActor: storeID not in context")
		utils.RespondWithError(c, utils.NewAPIError(http.StatusUnauthorized, utils.ErrCodeUnauthorized, "Store not resolved for user.", "Missing store ID in context"))
		return 0, 0, false
	}
	storeID, castOK = storeIDRaw.(int64)
	if !castOK {
		utils.LogError(errors.New("storeID is not of type int64"), "requestActor: storeID type assertion failed")
		utils.RespondWithError(c, utils.NewAPIError(http.StatusUnauthorized, utils.ErrCodeUnauthorized, "Store ID format incorrect.", "Invalid store ID format in context"))
		return 0, 0, false
	}

	return userID, storeID, true
}

// pathID parses the named int64 path parameter. On failure it writes the 400
// response and returns ok=false.
func pathID(c *gin.Context, name string) (int64, bool) {
	idStr := c.Param(name)
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid "+name+" format.", err.Error()))
		return 0, false
	}
	return id, true
}
