package services

import (
	"context"
	"errors"
	"testing"

	"github.com/dmitrijs2005/envvault/internal/common"
	"github.com/dmitrijs2005/envvault/internal/server/models"
)

func TestCanActOn(t *testing.T) {
	cases := []struct {
		actor  models.Role
		target models.Role
		want   bool
	}{
		{models.RoleOwner, models.RoleAdmin, true},
		{models.RoleOwner, models.RoleMember, true},
		{models.RoleOwner, models.RoleOwner, false},
		{models.RoleAdmin, models.RoleMember, true},
		{models.RoleAdmin, models.RoleAdmin, false},
		{models.RoleAdmin, models.RoleOwner, false},
		{models.RoleMember, models.RoleMember, false},
		{models.RoleMember, models.RoleOwner, false},
	}
	for _, tc := range cases {
		if got := CanActOn(tc.actor, tc.target); got != tc.want {
			t.Fatalf("CanActOn(%s, %s) = %v, want %v", tc.actor, tc.target, got, tc.want)
		}
	}
}

func TestRequireMember_MissingMembershipIsForbidden(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	owner := env.mustUser(t, "owner@example.com", models.TierFree)
	stranger := env.mustUser(t, "stranger@example.com", models.TierFree)
	project := env.mustProject(t, owner.ID, "acme", "123456", "hunter2-strong")

	access := NewAccessService(env.db, env.rm)

	if _, err := access.RequireMember(ctx, env.db, project.ID, stranger.ID); !errors.Is(err, common.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}

	member, err := access.RequireMember(ctx, env.db, project.ID, owner.ID)
	if err != nil {
		t.Fatalf("RequireMember error: %v", err)
	}
	if member.Role != models.RoleOwner {
		t.Fatalf("role = %s, want owner", member.Role)
	}
}

func TestRequireRole(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	owner := env.mustUser(t, "owner@example.com", models.TierFree)
	member := env.mustUser(t, "member@example.com", models.TierFree)
	project := env.mustProject(t, owner.ID, "acme", "123456", "hunter2-strong")
	if _, err := env.members.Add(ctx, owner.ID, project.ID, member.Email, models.RoleMember); err != nil {
		t.Fatalf("Add error: %v", err)
	}

	access := NewAccessService(env.db, env.rm)

	if _, err := access.RequireRole(ctx, env.db, project.ID, member.ID, models.RoleAdmin); !errors.Is(err, common.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if _, err := access.RequireRole(ctx, env.db, project.ID, member.ID, models.RoleMember); err != nil {
		t.Fatalf("RequireRole(member) error: %v", err)
	}
	if _, err := access.RequireRole(ctx, env.db, project.ID, owner.ID, models.RoleAdmin); err != nil {
		t.Fatalf("owner must satisfy admin, got %v", err)
	}
}
