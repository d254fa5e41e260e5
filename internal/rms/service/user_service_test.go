package service

import (
	"context"
	"errors"
	"testing"

	"github.com/bitfantasy/nimo-rms/internal/rms/entity"
	"github.com/bitfantasy/nimo-rms/internal/rms/repository"
	"github.com/bitfantasy/nimo-rms/internal/rms/testutil"
	"go.uber.org/zap"
)

func setupUserService(t *testing.T) (*UserService, *entity.User) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	repos := repository.NewRepositories(db)
	svc := NewUserService(repos.User, zap.NewNop())
	owner := testutil.SeedTestUser(t, db, "owner000000000000000000000000001", "Boss", entity.RoleOwner)
	return svc, owner
}

func TestUserCreate(t *testing.T) {
	svc, owner := setupUserService(t)
	ctx := context.Background()
	ownerOp := Operator{UserID: owner.ID, Role: entity.RoleOwner}

	user, err := svc.Create(ctx, CreateUserReq{
		Email:    "tech@example.com",
		Password: "secret123",
		Name:     "Tech One",
		Role:     entity.RoleStaff,
	}, ownerOp)
	if err != nil {
		t.Fatalf("Create staff failed: %v", err)
	}
	if user.Status != entity.UserStatusActive {
		t.Errorf("New user status = %s, want ACTIVE", user.Status)
	}
	if user.PasswordHash == "secret123" {
		t.Error("Password must be stored hashed")
	}

	// Duplicate email conflicts
	_, err = svc.Create(ctx, CreateUserReq{
		Email: "tech@example.com", Password: "x", Name: "Dup", Role: entity.RoleStaff,
	}, ownerOp)
	if !errors.Is(err, ErrConflict) {
		t.Errorf("Duplicate email error = %v, want ErrConflict", err)
	}

	// Only STAFF and CUSTOMER can be created
	_, err = svc.Create(ctx, CreateUserReq{
		Email: "boss2@example.com", Password: "x", Name: "Boss Two", Role: entity.RoleOwner,
	}, ownerOp)
	if !errors.Is(err, ErrValidation) {
		t.Errorf("Owner role create error = %v, want ErrValidation", err)
	}

	// Only the owner manages users
	_, err = svc.Create(ctx, CreateUserReq{
		Email: "x@example.com", Password: "x", Name: "X", Role: entity.RoleCustomer,
	}, Operator{UserID: user.ID, Role: entity.RoleStaff})
	if !errors.Is(err, ErrForbidden) {
		t.Errorf("Staff create error = %v, want ErrForbidden", err)
	}
}

func TestUserSetStatus(t *testing.T) {
	svc, owner := setupUserService(t)
	ctx := context.Background()
	ownerOp := Operator{UserID: owner.ID, Role: entity.RoleOwner}

	user, err := svc.Create(ctx, CreateUserReq{
		Email: "cust@example.com", Password: "secret123", Name: "Cust", Role: entity.RoleCustomer,
	}, ownerOp)
	if err != nil {
		t.Fatalf("Create customer failed: %v", err)
	}

	updated, err := svc.SetStatus(ctx, user.ID, entity.UserStatusDisabled, ownerOp)
	if err != nil {
		t.Fatalf("Disable user failed: %v", err)
	}
	if updated.Status != entity.UserStatusDisabled {
		t.Errorf("Status = %s, want DISABLED", updated.Status)
	}

	// Owner cannot disable themselves
	_, err = svc.SetStatus(ctx, owner.ID, entity.UserStatusDisabled, ownerOp)
	if !errors.Is(err, ErrValidation) {
		t.Errorf("Self-disable error = %v, want ErrValidation", err)
	}

	// Unknown status value rejected
	_, err = svc.SetStatus(ctx, user.ID, "FROZEN", ownerOp)
	if !errors.Is(err, ErrValidation) {
		t.Errorf("Invalid status error = %v, want ErrValidation", err)
	}

	// Unknown user
	_, err = svc.SetStatus(ctx, "missing", entity.UserStatusActive, ownerOp)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Missing user error = %v, want ErrNotFound", err)
	}
}

func TestUserListFilters(t *testing.T) {
	svc, owner := setupUserService(t)
	ctx := context.Background()
	ownerOp := Operator{UserID: owner.ID, Role: entity.RoleOwner}

	for _, u := range []CreateUserReq{
		{Email: "s1@example.com", Password: "x1234567", Name: "Staff One", Role: entity.RoleStaff},
		{Email: "s2@example.com", Password: "x1234567", Name: "Staff Two", Role: entity.RoleStaff},
		{Email: "c1@example.com", Password: "x1234567", Name: "Customer One", Role: entity.RoleCustomer},
	} {
		if _, err := svc.Create(ctx, u, ownerOp); err != nil {
			t.Fatalf("Seed user %s failed: %v", u.Email, err)
		}
	}

	_, total, err := svc.List(ctx, ListUsersReq{Page: 1, PageSize: 20, Role: entity.RoleStaff}, ownerOp)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if total != 2 {
		t.Errorf("Staff count = %d, want 2", total)
	}

	users, total, err := svc.List(ctx, ListUsersReq{Page: 1, PageSize: 20, Keyword: "Customer"}, ownerOp)
	if err != nil {
		t.Fatalf("Keyword list failed: %v", err)
	}
	if total != 1 || users[0].Email != "c1@example.com" {
		t.Errorf("Keyword list = %d users, want the customer", total)
	}

	// Non-owner gets nothing
	if _, _, err := svc.List(ctx, ListUsersReq{Page: 1, PageSize: 20}, Operator{UserID: "x", Role: entity.RoleStaff}); !errors.Is(err, ErrForbidden) {
		t.Errorf("Staff list error = %v, want ErrForbidden", err)
	}
}
