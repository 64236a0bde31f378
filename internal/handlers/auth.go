package handlers

import (
	"net/http"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/diewo77/jsign/auth"
	"github.com/diewo77/jsign/internal/models"
	"github.com/diewo77/jsign/view"
)

type AuthHandler struct {
	db *gorm.DB
}

func NewAuthHandler(db *gorm.DB) *AuthHandler {
	return &AuthHandler{db: db}
}

// Login renders the form on GET and authenticates on POST. Unknown user and
// wrong password produce the same message on purpose.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet {
		if err := view.Render(w, r, "login.html", nil); err != nil {
			http.Error(w, "template error", http.StatusInternalServerError)
		}
		return
	}

	username := r.FormValue("username")
	password := r.FormValue("password")

	var user models.User
	if err := h.db.Where("username = ?", username).First(&user).Error; err != nil {
		view.Render(w, r, "login.html", map[string]any{"Error": "Invalid username or password."})
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		view.Render(w, r, "login.html", map[string]any{"Error": "Invalid username or password."})
		return
	}

	auth.CreateSession(w, user.ID)
	auth.SetFlash(w, "success", "Logged in successfully!")
	if user.IsAdmin() {
		http.Redirect(w, r, "/admin/dashboard", http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	auth.ClearSession(w)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// Index renders the document overview page; the data loads via /api/documents.
func (h *AuthHandler) Index(w http.ResponseWriter, r *http.Request) {
	if err := view.Render(w, r, "index.html", nil); err != nil {
		http.Error(w, "template error", http.StatusInternalServerError)
	}
}
