package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/diewo77/jsign/auth"
	"github.com/diewo77/jsign/internal/models"
	"github.com/diewo77/jsign/internal/services"
	"github.com/diewo77/jsign/validation"
	"github.com/diewo77/jsign/view"
)

// AdminHandler serves the user-management pages. Every route redirects back
// to the dashboard with a flash message; access control is the admin gate
// middleware on the router.
type AdminHandler struct {
	svc *services.AdminService
}

func NewAdminHandler(svc *services.AdminService) *AdminHandler {
	return &AdminHandler{svc: svc}
}

func (h *AdminHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	users, err := h.svc.ListUsers(r.Context())
	if err != nil {
		http.Error(w, "failed to load users", http.StatusInternalServerError)
		return
	}
	if err := view.Render(w, r, "admin_dashboard.html", map[string]any{"Users": users}); err != nil {
		http.Error(w, "template error", http.StatusInternalServerError)
	}
}

func redirectDashboard(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/admin/dashboard", http.StatusSeeOther)
}

func (h *AdminHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	username := r.FormValue("username")
	email := r.FormValue("email")
	password := r.FormValue("password")
	role := r.FormValue("role")
	if role == "" {
		role = models.RoleUser
	}

	v := validation.Violations{}
	validation.Required("username", username, v)
	validation.Required("email", email, v)
	validation.Required("password", password, v)
	validation.Email("email", email, v)
	validation.OneOf("role", role, []string{models.RoleUser, models.RoleAdmin}, v)
	if !v.Empty() {
		auth.SetFlash(w, "error", "All fields are required.")
		redirectDashboard(w, r)
		return
	}

	err := h.svc.CreateUser(r.Context(), username, email, password, role)
	switch {
	case errors.Is(err, services.ErrDuplicateUser):
		auth.SetFlash(w, "error", "Username or email already exists.")
	case err != nil:
		auth.SetFlash(w, "error", "Failed to create user.")
	default:
		auth.SetFlash(w, "success", "User created successfully!")
	}
	redirectDashboard(w, r)
}

func (h *AdminHandler) EditUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		auth.SetFlash(w, "error", "User not found.")
		redirectDashboard(w, r)
		return
	}
	username := r.FormValue("username")
	email := r.FormValue("email")
	role := r.FormValue("role")
	password := r.FormValue("password")

	err := h.svc.UpdateUser(r.Context(), id, username, email, role, password)
	switch {
	case errors.Is(err, services.ErrNotFound):
		auth.SetFlash(w, "error", "User not found.")
	case errors.Is(err, services.ErrDuplicateUser):
		auth.SetFlash(w, "error", "Username or email already exists.")
	case err != nil:
		auth.SetFlash(w, "error", "Failed to update user.")
	default:
		auth.SetFlash(w, "success", fmt.Sprintf("User %q updated successfully.", username))
	}
	redirectDashboard(w, r)
}

func (h *AdminHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		auth.SetFlash(w, "error", "User not found.")
		redirectDashboard(w, r)
		return
	}
	adminID, _ := auth.UserIDFromContext(r.Context())

	err := h.svc.DeleteUser(r.Context(), adminID, id)
	switch {
	case errors.Is(err, services.ErrSelfDelete):
		auth.SetFlash(w, "error", "You cannot delete your own account.")
	case errors.Is(err, services.ErrNotFound):
		auth.SetFlash(w, "error", "User not found.")
	case err != nil:
		auth.SetFlash(w, "error", "Failed to delete user.")
	default:
		auth.SetFlash(w, "success", "User deleted. Their documents have been reassigned to you.")
	}
	redirectDashboard(w, r)
}
