package service

import (
	"errors"
	"testing"

	"github.com/jmoka/minhas-obras-sub000/internal/db"
)

func TestRegisterDefaultsToPendingApproval(t *testing.T) {
	gdb, cleanup := setupServiceTestDB(t)
	defer cleanup()

	svc := NewUserService(gdb)

	user, err := svc.Register("ana", "segredo123", "Ana Lima")
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	if !user.Blocked {
		t.Fatal("expected new account to be blocked pending approval")
	}
	if user.IsAdmin {
		t.Fatal("expected new account to not be admin")
	}
	if user.Password == "segredo123" {
		t.Fatal("expected password to be hashed")
	}
}

func TestRegisterDuplicateUsername(t *testing.T) {
	gdb, cleanup := setupServiceTestDB(t)
	defer cleanup()

	svc := NewUserService(gdb)

	if _, err := svc.Register("bruno", "senha", ""); err != nil {
		t.Fatalf("first register failed: %v", err)
	}

	if _, err := svc.Register("bruno", "outra", ""); !errors.Is(err, ErrUsernameTaken) {
		t.Fatalf("expected ErrUsernameTaken, got %v", err)
	}
}

func TestAuthenticate(t *testing.T) {
	gdb, cleanup := setupServiceTestDB(t)
	defer cleanup()

	svc := NewUserService(gdb)

	if _, err := svc.Register("carla", "senha-forte", "Carla"); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	user, err := svc.Authenticate("carla", "senha-forte")
	if err != nil {
		t.Fatalf("authenticate failed: %v", err)
	}
	if user.Username != "carla" {
		t.Fatalf("unexpected user: %q", user.Username)
	}

	if _, err := svc.Authenticate("carla", "senha-errada"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := svc.Authenticate("ninguem", "senha"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown user, got %v", err)
	}
}

func TestSetBlockedTogglesApproval(t *testing.T) {
	gdb, cleanup := setupServiceTestDB(t)
	defer cleanup()

	svc := NewUserService(gdb)

	user, err := svc.Register("diego", "senha", "")
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	approved, err := svc.SetBlocked(user.ID, false)
	if err != nil {
		t.Fatalf("approve failed: %v", err)
	}
	if approved.Blocked {
		t.Fatal("expected account to be approved")
	}

	blocked, err := svc.IsBlocked(user.ID)
	if err != nil {
		t.Fatalf("IsBlocked failed: %v", err)
	}
	if blocked {
		t.Fatal("expected IsBlocked to report false after approval")
	}
}

func TestIsBlockedFailsClosedForUnknownUser(t *testing.T) {
	gdb, cleanup := setupServiceTestDB(t)
	defer cleanup()

	svc := NewUserService(gdb)

	blocked, err := svc.IsBlocked(12345)
	if !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
	if !blocked {
		t.Fatal("expected blocked=true on lookup failure")
	}
}

func TestDeleteUserRemovesObras(t *testing.T) {
	gdb, cleanup := setupServiceTestDB(t)
	defer cleanup()

	users := NewUserService(gdb)
	obras := NewObraService(gdb)

	user, err := users.Register("elisa", "senha", "")
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	if _, err := obras.Create(user.ID, ObraInput{Title: "Aurora", ImageURL: "/static/uploads/a.png"}); err != nil {
		t.Fatalf("create obra failed: %v", err)
	}

	if err := users.DeleteUser(user.ID); err != nil {
		t.Fatalf("delete user failed: %v", err)
	}

	var count int64
	if err := gdb.Model(&db.Obra{}).Where("user_id = ?", user.ID).Count(&count).Error; err != nil {
		t.Fatalf("count obras failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected user obras removed, found %d", count)
	}
}

func TestUpdateProfile(t *testing.T) {
	gdb, cleanup := setupServiceTestDB(t)
	defer cleanup()

	svc := NewUserService(gdb)

	user, err := svc.Register("fabio", "senha", "")
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	updated, err := svc.UpdateProfile(user.ID, ProfileInput{
		DisplayName: "Fábio Costa",
		Bio:         "Pintor e escultor.",
		AvatarURL:   "/static/uploads/fabio.png",
	})
	if err != nil {
		t.Fatalf("update profile failed: %v", err)
	}

	if updated.DisplayName != "Fábio Costa" || updated.Bio != "Pintor e escultor." {
		t.Fatalf("unexpected profile: %+v", updated)
	}

	if _, err := svc.UpdateProfile(user.ID, ProfileInput{DisplayName: "  "}); !errors.Is(err, ErrUserInputInvalid) {
		t.Fatalf("expected ErrUserInputInvalid, got %v", err)
	}
}
