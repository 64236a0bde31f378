package server

import (
	"context"
	"log"
	"net/http"
	"time"

	"gorm.io/gorm"

	"github.com/diewo77/jsign/auth"
	"github.com/diewo77/jsign/httpx"
	"github.com/diewo77/jsign/internal/config"
	"github.com/diewo77/jsign/internal/convert"
	"github.com/diewo77/jsign/internal/files"
	"github.com/diewo77/jsign/internal/handlers"
	"github.com/diewo77/jsign/internal/policy"
	"github.com/diewo77/jsign/internal/services"
)

// New constructs the root http.Handler with all routes and middlewares applied.
func New(db *gorm.DB, cfg config.Config) (http.Handler, error) {
	store, err := files.NewStore(cfg.UploadDir)
	if err != nil {
		return nil, err
	}
	ag := policy.NewAuthGate(db)
	docSvc := services.NewDocumentService(db, store, convert.New(cfg.ConverterBin), ag)
	adminSvc := services.NewAdminService(db)

	authHandler := handlers.NewAuthHandler(db)
	docHandler := handlers.NewDocumentHandler(docSvc, store)
	adminHandler := handlers.NewAdminHandler(adminSvc)

	// Sessions for deleted users are cleared on the next request.
	auth.SetUserVerifier(func(ctx context.Context, uid uint) bool {
		var count int64
		if err := db.WithContext(ctx).Table("users").Where("id = ?", uid).Limit(1).Count(&count).Error; err != nil {
			return false
		}
		return count > 0
	})

	mux := http.NewServeMux()

	// Health endpoints
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		if err := db.Exec("SELECT 1").Error; err != nil {
			httpx.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Auth
	mux.HandleFunc("GET /login", authHandler.Login)
	mux.HandleFunc("POST /login", authHandler.Login)
	mux.Handle("GET /logout", requireAuth(authHandler.Logout))

	// Pages
	mux.Handle("GET /{$}", requireAuth(authHandler.Index))

	// Document API
	mux.Handle("GET /api/documents", requireAuth(docHandler.List))
	mux.Handle("POST /api/documents", requireAuth(docHandler.Upload))
	mux.Handle("GET /api/documents/{id}", requireAuth(docHandler.Detail))
	mux.Handle("POST /api/documents/{id}/sign", requireAuth(docHandler.Sign))
	mux.Handle("DELETE /api/documents/{id}", requireAuth(docHandler.Delete))
	mux.Handle("GET /download/signed/{id}", requireAuth(docHandler.Download))
	mux.Handle("GET /uploads/{filename}", requireAuth(docHandler.ServeUpload))

	// Admin
	admin := func(h http.HandlerFunc) http.Handler {
		return auth.RequireAuth(ag.RequireAdmin()(h))
	}
	mux.Handle("GET /admin/dashboard", admin(adminHandler.Dashboard))
	mux.Handle("POST /admin/users", admin(adminHandler.CreateUser))
	mux.Handle("POST /admin/users/{id}/edit", admin(adminHandler.EditUser))
	mux.Handle("POST /admin/users/{id}/delete", admin(adminHandler.DeleteUser))

	return auth.Middleware(withRecover(withLogging(mux))), nil
}

func requireAuth(h http.HandlerFunc) http.Handler {
	return auth.RequireAuth(h)
}

func withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s %s", r.Method, r.URL.Path, time.Since(start))
	})
}

func withRecover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				log.Printf("panic serving %s %s: %v", r.Method, r.URL.Path, rec)
				httpx.JSONError(w, http.StatusInternalServerError, "internal_error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}
