package services

import (
	"context"
	"errors"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/diewo77/jsign/internal/models"
)

func TestCreateUserDuplicate(t *testing.T) {
	db := setupTestDB(t)
	svc := NewAdminService(db)
	ctx := context.Background()

	if err := svc.CreateUser(ctx, "alice", "alice@test", "secret", ""); err != nil {
		t.Fatalf("create: %v", err)
	}
	// Same email, different username.
	if err := svc.CreateUser(ctx, "alice2", "alice@test", "secret", ""); !errors.Is(err, ErrDuplicateUser) {
		t.Fatalf("expected ErrDuplicateUser, got %v", err)
	}
	// Same username, different email.
	if err := svc.CreateUser(ctx, "alice", "other@test", "secret", ""); !errors.Is(err, ErrDuplicateUser) {
		t.Fatalf("expected ErrDuplicateUser, got %v", err)
	}

	var users []models.User
	if err := db.Find(&users).Error; err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(users) != 1 {
		t.Fatalf("expected existing rows untouched, got %d users", len(users))
	}
	if users[0].Username != "alice" || users[0].Email != "alice@test" {
		t.Fatalf("original row mutated: %+v", users[0])
	}
}

func TestCreateUserDefaultsAndHash(t *testing.T) {
	db := setupTestDB(t)
	svc := NewAdminService(db)

	if err := svc.CreateUser(context.Background(), "alice", "alice@test", "secret", ""); err != nil {
		t.Fatalf("create: %v", err)
	}
	var u models.User
	if err := db.First(&u).Error; err != nil {
		t.Fatalf("find: %v", err)
	}
	if u.Role != models.RoleUser {
		t.Errorf("expected default role user, got %q", u.Role)
	}
	if u.PasswordHash == "secret" {
		t.Error("password stored in clear")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("secret")); err != nil {
		t.Errorf("hash does not verify: %v", err)
	}
}

func TestUpdateUser(t *testing.T) {
	db := setupTestDB(t)
	svc := NewAdminService(db)
	ctx := context.Background()

	if err := svc.CreateUser(ctx, "alice", "alice@test", "secret", ""); err != nil {
		t.Fatalf("create: %v", err)
	}
	var before models.User
	if err := db.First(&before).Error; err != nil {
		t.Fatalf("find: %v", err)
	}

	// No password supplied: hash must be unchanged.
	if err := svc.UpdateUser(ctx, before.ID, "alicia", "alicia@test", models.RoleAdmin, ""); err != nil {
		t.Fatalf("update: %v", err)
	}
	var after models.User
	if err := db.First(&after, before.ID).Error; err != nil {
		t.Fatalf("find: %v", err)
	}
	if after.Username != "alicia" || after.Email != "alicia@test" || after.Role != models.RoleAdmin {
		t.Fatalf("fields not overwritten: %+v", after)
	}
	if after.PasswordHash != before.PasswordHash {
		t.Error("password hash changed without a new password")
	}

	// New password supplied: re-hashed.
	if err := svc.UpdateUser(ctx, before.ID, "alicia", "alicia@test", models.RoleAdmin, "newpass"); err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := db.First(&after, before.ID).Error; err != nil {
		t.Fatalf("find: %v", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(after.PasswordHash), []byte("newpass")); err != nil {
		t.Errorf("new password does not verify: %v", err)
	}

	if err := svc.UpdateUser(ctx, 999, "x", "x@test", models.RoleUser, ""); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteUserReassignsAndCascades(t *testing.T) {
	db := setupTestDB(t)
	svc := NewAdminService(db)
	ctx := context.Background()

	admin := seedUser(t, db, "boss", models.RoleAdmin)
	alice := seedUser(t, db, "alice", models.RoleUser)
	bob := seedUser(t, db, "bob", models.RoleUser)

	d1 := models.Document{Filename: "a.pdf", Filepath: "k_a.pdf", UploaderID: alice.ID}
	d2 := models.Document{Filename: "b.pdf", Filepath: "k_b.pdf", UploaderID: alice.ID}
	if err := db.Create(&d1).Error; err != nil {
		t.Fatalf("d1: %v", err)
	}
	if err := db.Create(&d2).Error; err != nil {
		t.Fatalf("d2: %v", err)
	}
	// Acknowledgments by the deleted user and by another user.
	if err := db.Create(&models.Acknowledgment{UserID: alice.ID, DocumentID: d1.ID}).Error; err != nil {
		t.Fatalf("ack: %v", err)
	}
	if err := db.Create(&models.Acknowledgment{UserID: bob.ID, DocumentID: d1.ID}).Error; err != nil {
		t.Fatalf("ack: %v", err)
	}

	if err := svc.DeleteUser(ctx, admin.ID, alice.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	var count int64
	db.Model(&models.User{}).Where("id = ?", alice.ID).Count(&count)
	if count != 0 {
		t.Error("user row should be gone")
	}
	db.Model(&models.Document{}).Where("uploader_id = ?", admin.ID).Count(&count)
	if count != 2 {
		t.Errorf("expected 2 documents reassigned to admin, got %d", count)
	}
	db.Model(&models.Acknowledgment{}).Where("user_id = ?", alice.ID).Count(&count)
	if count != 0 {
		t.Error("deleted user's acknowledgments should cascade")
	}
	db.Model(&models.Acknowledgment{}).Where("user_id = ?", bob.ID).Count(&count)
	if count != 1 {
		t.Error("other users' acknowledgments must survive")
	}
}

func TestDeleteUserSelfRejected(t *testing.T) {
	db := setupTestDB(t)
	svc := NewAdminService(db)
	admin := seedUser(t, db, "boss", models.RoleAdmin)

	if err := svc.DeleteUser(context.Background(), admin.ID, admin.ID); !errors.Is(err, ErrSelfDelete) {
		t.Fatalf("expected ErrSelfDelete, got %v", err)
	}
	var count int64
	db.Model(&models.User{}).Count(&count)
	if count != 1 {
		t.Fatalf("state changed on rejected self-deletion")
	}
}

func TestDeleteUserMissing(t *testing.T) {
	db := setupTestDB(t)
	svc := NewAdminService(db)
	admin := seedUser(t, db, "boss", models.RoleAdmin)

	if err := svc.DeleteUser(context.Background(), admin.ID, 999); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteUserAtomicity(t *testing.T) {
	db := setupTestDB(t)
	svc := NewAdminService(db)

	admin := seedUser(t, db, "boss", models.RoleAdmin)
	alice := seedUser(t, db, "alice", models.RoleUser)
	doc := models.Document{Filename: "a.pdf", Filepath: "k_a.pdf", UploaderID: alice.ID}
	if err := db.Create(&doc).Error; err != nil {
		t.Fatalf("doc: %v", err)
	}

	// Sabotage the middle step so the transaction fails after the reassign.
	if err := db.Migrator().DropTable(&models.Acknowledgment{}); err != nil {
		t.Fatalf("drop table: %v", err)
	}

	if err := svc.DeleteUser(context.Background(), admin.ID, alice.ID); err == nil {
		t.Fatal("expected failure with acknowledgments table missing")
	}

	// Nothing may be partially applied: user still there, document not reassigned.
	var count int64
	db.Model(&models.User{}).Where("id = ?", alice.ID).Count(&count)
	if count != 1 {
		t.Error("user was deleted despite failed transaction")
	}
	var got models.Document
	if err := db.First(&got, doc.ID).Error; err != nil {
		t.Fatalf("doc: %v", err)
	}
	if got.UploaderID != alice.ID {
		t.Errorf("document reassigned despite failed transaction: uploader=%d", got.UploaderID)
	}
}
