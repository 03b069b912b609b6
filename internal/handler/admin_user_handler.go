package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/stemsi/exstem-console/internal/middleware"
	"github.com/stemsi/exstem-console/internal/model"
	"github.com/stemsi/exstem-console/internal/response"
	"github.com/stemsi/exstem-console/internal/service"
	"github.com/stemsi/exstem-console/internal/validator"
)

type AdminUserHandler struct {
	service *service.AdminUserService
	log     zerolog.Logger
}

func NewAdminUserHandler(service *service.AdminUserService, log zerolog.Logger) *AdminUserHandler {
	return &AdminUserHandler{
		service: service,
		log:     log.With().Str("component", "admin_user_handler").Logger(),
	}
}

// ListUsers godoc
// GET /api/v1/admin/users?page=&per_page=&role=&q=
func (h *AdminUserHandler) ListUsers(c *gin.Context) {
	var q service.UserListQuery
	if fields := validator.BindQuery(c, &q); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PerPage < 1 {
		q.PerPage = 10
	}

	users, total, err := h.service.ListUsers(c.Request.Context(), middleware.GetAuth(c), q)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	response.SuccessWithPagination(c, http.StatusOK, gin.H{"users": users}, &response.Pagination{
		Page:       q.Page,
		PerPage:    q.PerPage,
		TotalItems: total,
		TotalPages: (total + q.PerPage - 1) / q.PerPage,
	})
}

// CreateUser handles creating an account of any role.
func (h *AdminUserHandler) CreateUser(c *gin.Context) {
	var req model.CreateUserRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	user, err := h.service.CreateUser(c.Request.Context(), middleware.GetAuth(c), req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	h.log.Info().Int("user_id", user.ID).Str("email", user.Email).Msg("User created")
	response.Success(c, http.StatusCreated, gin.H{"user": user})
}

// SetRoles replaces a user's roles. Admins cannot drop their own admin role.
func (h *AdminUserHandler) SetRoles(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req model.SetRolesRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.service.SetRoles(c.Request.Context(), middleware.GetAuth(c), id, req.Roles); err != nil {
		respondError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"message": "roles updated"})
}

// SetStatus activates or deactivates an account.
func (h *AdminUserHandler) SetStatus(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req model.SetStatusRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.service.SetStatus(c.Request.Context(), middleware.GetAuth(c), id, req.Status); err != nil {
		respondError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"message": "status updated"})
}

// PendingTeachers lists self-registered teachers awaiting approval.
func (h *AdminUserHandler) PendingTeachers(c *gin.Context) {
	users, err := h.service.PendingTeachers(c.Request.Context(), middleware.GetAuth(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	if users == nil {
		users = []model.User{}
	}
	response.Success(c, http.StatusOK, gin.H{"users": users})
}

func (h *AdminUserHandler) ApproveTeacher(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	if err := h.service.ApproveTeacher(c.Request.Context(), middleware.GetAuth(c), id); err != nil {
		respondError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"message": "teacher approved"})
}
