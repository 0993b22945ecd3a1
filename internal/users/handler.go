package users

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/sentinel-iam/sentinel/internal/platform/httpx"
	"github.com/sentinel-iam/sentinel/internal/rbac"
)

// Handler wires HTTP endpoints for user management.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	rbac      rbac.Middleware
	validator *validator.Validate
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, rbacMiddleware rbac.Middleware) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		rbac:      rbacMiddleware,
		validator: validator.New(),
	}
}

// MountRoutes registers user routes. Creation carries no permission
// middleware: anonymous requests reach the service, which arbitrates the
// bootstrap path; authenticated requests are checked there against
// users.edit.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/", h.createUser)

	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(rbac.PermUsersView))
		r.Get("/", h.listUsers)
		r.Get("/{id}", h.getUser)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(rbac.PermUsersEdit))
		r.Delete("/{id}", h.deactivateUser)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(rbac.PermRolesView))
		r.Get("/{id}/roles", h.listRoles)
		r.Get("/{id}/permissions", h.listPermissions)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(rbac.PermRolesAssign))
		r.Put("/{id}/roles/{role}", h.assignRole)
		r.Delete("/{id}/roles/{role}", h.removeRole)
	})
}

func (h *Handler) createUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, httpx.FailureValidation, nil)
		return
	}
	if details, ok := h.validate(req); !ok {
		httpx.Fail(w, httpx.FailureValidation, details)
		return
	}

	principal := rbac.PrincipalFromContext(r.Context())
	user, err := h.service.Create(r.Context(), principal, CreateInput{
		Username: req.Username,
		Name:     req.Name,
		Password: req.Password,
		Roles:    req.Roles,
	})
	if err != nil {
		h.respondError(w, r, "create user", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toUserResponse(user))
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.List(r.Context())
	if err != nil {
		h.respondError(w, r, "list users", err)
		return
	}
	out := make([]userResponse, len(users))
	for i := range users {
		out[i] = toUserResponse(&users[i])
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) getUser(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	user, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, r, "get user", err)
		return
	}
	httpx.JSON(w, http.StatusOK, toUserResponse(user))
}

func (h *Handler) deactivateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	principal := rbac.PrincipalFromContext(r.Context())
	if err := h.service.Deactivate(r.Context(), principal, id); err != nil {
		h.respondError(w, r, "deactivate user", err)
		return
	}
	httpx.NoContent(w)
}

func (h *Handler) listRoles(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	roles, err := h.service.Roles(r.Context(), id)
	if err != nil {
		h.respondError(w, r, "list roles", err)
		return
	}
	if roles == nil {
		roles = []string{}
	}
	httpx.JSON(w, http.StatusOK, rolesResponse{Roles: roles})
}

func (h *Handler) listPermissions(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	perms, err := h.service.Permissions(r.Context(), id)
	if err != nil {
		h.respondError(w, r, "list permissions", err)
		return
	}
	if perms == nil {
		perms = []string{}
	}
	httpx.JSON(w, http.StatusOK, permissionsResponse{Permissions: perms})
}

func (h *Handler) assignRole(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	principal := rbac.PrincipalFromContext(r.Context())
	if err := h.service.AssignRole(r.Context(), principal, id, chi.URLParam(r, "role")); err != nil {
		h.respondError(w, r, "assign role", err)
		return
	}
	httpx.NoContent(w)
}

func (h *Handler) removeRole(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	principal := rbac.PrincipalFromContext(r.Context())
	if err := h.service.RemoveRole(r.Context(), principal, id, chi.URLParam(r, "role")); err != nil {
		h.respondError(w, r, "remove role", err)
		return
	}
	httpx.NoContent(w)
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.NotFound(w)
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) validate(req any) (map[string]string, bool) {
	if err := h.validator.Struct(req); err != nil {
		details := make(map[string]string)
		for _, fieldErr := range err.(validator.ValidationErrors) {
			details[fieldErr.Field()] = fieldErr.Tag()
		}
		return details, false
	}
	return nil, true
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, op string, err error) {
	kind := httpx.Classify(err)
	if kind == httpx.FailureUnavailable || kind == httpx.FailureInternal {
		h.logger.Error(op, slog.String("path", r.URL.Path), slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
