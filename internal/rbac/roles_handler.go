package rbac

import (
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"

	"github.com/sentinel-iam/sentinel/internal/platform/httpx"
)

// RolesHandler exposes the static role catalog.
type RolesHandler struct {
	catalog *Catalog
	rbac    Middleware
}

// NewRolesHandler builds a RolesHandler instance.
func NewRolesHandler(catalog *Catalog, rbacMiddleware Middleware) *RolesHandler {
	return &RolesHandler{catalog: catalog, rbac: rbacMiddleware}
}

// MountRoutes registers role catalog routes.
func (h *RolesHandler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(PermRolesView))
		r.Get("/", h.listRoles)
	})
}

type roleEntry struct {
	Name        string   `json:"name"`
	Permissions []string `json:"permissions"`
}

func (h *RolesHandler) listRoles(w http.ResponseWriter, r *http.Request) {
	names := h.catalog.Roles()
	sort.Strings(names)
	out := make([]roleEntry, 0, len(names))
	for _, name := range names {
		perms := h.catalog.PermissionsFor(name)
		entries := make([]string, 0, len(perms))
		for _, p := range perms {
			entries = append(entries, string(p))
		}
		sort.Strings(entries)
		out = append(out, roleEntry{Name: name, Permissions: entries})
	}
	httpx.JSON(w, http.StatusOK, out)
}
