package policy

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/diewo77/jsign/auth"
	"github.com/diewo77/jsign/gate"
	"github.com/diewo77/jsign/internal/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:" + t.Name() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}, &models.Document{}, &models.Acknowledgment{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func seedUsers(t *testing.T, db *gorm.DB) (admin, user models.User) {
	t.Helper()
	admin = models.User{Username: "boss", Email: "boss@test", PasswordHash: "x", Role: models.RoleAdmin}
	user = models.User{Username: "alice", Email: "alice@test", PasswordHash: "x", Role: models.RoleUser}
	if err := db.Create(&admin).Error; err != nil {
		t.Fatalf("admin: %v", err)
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("user: %v", err)
	}
	return admin, user
}

func TestDocumentDeletePolicy(t *testing.T) {
	db := setupTestDB(t)
	admin, user := seedUsers(t, db)
	other := models.User{Username: "bob", Email: "bob@test", PasswordHash: "x", Role: models.RoleUser}
	if err := db.Create(&other).Error; err != nil {
		t.Fatalf("other: %v", err)
	}
	ag := NewAuthGate(db)
	doc := &models.Document{Filename: "a.pdf", Filepath: "k_a.pdf", UploaderID: user.ID}

	ctxFor := func(id uint) context.Context { return auth.WithUserID(context.Background(), id) }

	if err := ag.Authorize(ctxFor(user.ID), gate.ActionDelete, ResourceDocument, doc); err != nil {
		t.Errorf("uploader should delete own document: %v", err)
	}
	if err := ag.Authorize(ctxFor(admin.ID), gate.ActionDelete, ResourceDocument, doc); err != nil {
		t.Errorf("admin should delete any document: %v", err)
	}
	if err := ag.Authorize(ctxFor(other.ID), gate.ActionDelete, ResourceDocument, doc); err != gate.ErrUnauthorized {
		t.Errorf("non-owner non-admin should be denied, got %v", err)
	}
	if !ag.Can(ctxFor(other.ID), gate.ActionView, ResourceDocument, doc) {
		t.Error("any authenticated user should view documents")
	}
}

func TestUserResourceAdminOnly(t *testing.T) {
	db := setupTestDB(t)
	admin, user := seedUsers(t, db)
	ag := NewAuthGate(db)

	adminCtx := auth.WithUserID(context.Background(), admin.ID)
	userCtx := auth.WithUserID(context.Background(), user.ID)

	if !ag.Can(adminCtx, gate.ActionCreate, ResourceUser, nil) {
		t.Error("admin should manage users")
	}
	if ag.Can(userCtx, gate.ActionCreate, ResourceUser, nil) {
		t.Error("plain user must not manage users")
	}
	if ag.Can(context.Background(), gate.ActionCreate, ResourceUser, nil) {
		t.Error("unauthenticated caller must be denied")
	}
}

func TestRequireAdminMiddleware(t *testing.T) {
	db := setupTestDB(t)
	admin, user := seedUsers(t, db)
	ag := NewAuthGate(db)

	var called bool
	h := ag.RequireAdmin()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	req := httptest.NewRequest(http.MethodGet, "/admin/dashboard", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req.WithContext(auth.WithUserID(req.Context(), user.ID)))
	if w.Code != http.StatusForbidden || called {
		t.Fatalf("expected 403 for role=user, got %d called=%v", w.Code, called)
	}

	w2 := httptest.NewRecorder()
	h.ServeHTTP(w2, req.WithContext(auth.WithUserID(req.Context(), admin.ID)))
	if w2.Code != http.StatusOK || !called {
		t.Fatalf("expected admin to pass, got %d called=%v", w2.Code, called)
	}

	w3 := httptest.NewRecorder()
	h.ServeHTTP(w3, httptest.NewRequest(http.MethodGet, "/admin/dashboard", nil))
	if w3.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without session, got %d", w3.Code)
	}
}
