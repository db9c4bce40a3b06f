package handler

import (
	"go-auth-api/common"
	"go-auth-api/logger"
	"go-auth-api/model"
	"net/http"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type UserHandler struct {
	service UserService
}

func NewUserHandler(service UserService) *UserHandler {
	return &UserHandler{service: service}
}

// pathUserID returns the {id} path value. Ids are UUIDs, so anything else
// cannot name a user.
func pathUserID(r *http.Request) (string, *common.AppError) {
	id := r.PathValue("id")
	if _, err := uuid.Parse(id); err != nil {
		return "", common.NewAppError(http.StatusNotFound, "User not found", nil)
	}
	return id, nil
}

// ListUsers godoc
// @Summary      List all users
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  model.UsersResponse
// @Failure      403  {object}  common.AppError
// @Router       /auth/users [get]
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) *common.AppError {
	users, err := h.service.ListUsers(r.Context())
	if err != nil {
		return serviceError(err)
	}

	common.WriteJSON(w, http.StatusOK, model.UsersResponse{Users: users})
	return nil
}

// GetUser godoc
// @Summary      Get a user
// @Description  Admins can read any user, other users only themselves
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "User ID"
// @Success      200  {object}  model.ProfileResponse
// @Failure      403  {object}  common.AppError
// @Failure      404  {object}  common.AppError
// @Router       /auth/users/{id} [get]
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) *common.AppError {
	requesterID, role, appErr := identityFrom(r)
	if appErr != nil {
		return appErr
	}
	userID, appErr := pathUserID(r)
	if appErr != nil {
		return appErr
	}

	user, err := h.service.GetUser(r.Context(), requesterID, role, userID)
	if err != nil {
		return serviceError(err)
	}

	common.WriteJSON(w, http.StatusOK, model.ProfileResponse{User: *user})
	return nil
}

// UpdateUserRole godoc
// @Summary      Change a user's role
// @Tags         users
// @Accept       json
// @Security     BearerAuth
// @Param        id    path  string                       true  "User ID"
// @Param        role  body  model.UpdateUserRoleRequest  true  "New role"
// @Success      204
// @Failure      400  {object}  common.AppError
// @Failure      403  {object}  common.AppError
// @Failure      404  {object}  common.AppError
// @Router       /auth/users/{id}/role [patch]
func (h *UserHandler) UpdateUserRole(w http.ResponseWriter, r *http.Request) *common.AppError {
	userID, appErr := pathUserID(r)
	if appErr != nil {
		return appErr
	}
	var req model.UpdateUserRoleRequest
	if appErr := common.ValidateAndDecode(r, &req); appErr != nil {
		return appErr
	}

	role, err := model.ParseRole(req.Role)
	if err != nil {
		return common.NewAppError(http.StatusBadRequest, "Invalid role specified", nil)
	}

	logger.Log.WithFields(logrus.Fields{"user_id": userID, "role": role}).Info("Update role request received")

	if err := h.service.UpdateUserRole(r.Context(), userID, role); err != nil {
		return serviceError(err)
	}

	w.WriteHeader(http.StatusNoContent)
	return nil
}
