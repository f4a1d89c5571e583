package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/dmitrijs2005/envvault/internal/common"
	"github.com/dmitrijs2005/envvault/internal/server/models"
)

func TestEnvironmentCreate_QuotaAndRoles(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	owner := env.mustUser(t, "owner@example.com", models.TierFree)
	member := env.mustUser(t, "member@example.com", models.TierFree)
	project := env.mustProject(t, owner.ID, "acme", "123456", "hunter2-strong")
	if _, err := env.members.Add(ctx, owner.ID, project.ID, member.Email, models.RoleMember); err != nil {
		t.Fatalf("Add error: %v", err)
	}

	// a plain member cannot create environments
	if _, err := env.environments.Create(ctx, member.ID, project.ID, "staging", ""); !errors.Is(err, common.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}

	// the default environment counts toward the free ceiling of 3
	limit := models.LimitsFor(models.TierFree).MaxEnvironmentsPerProject
	for i := 1; i < limit; i++ {
		if _, err := env.environments.Create(ctx, owner.ID, project.ID, fmt.Sprintf("env-%d", i), ""); err != nil {
			t.Fatalf("environment %d: %v", i, err)
		}
	}
	if _, err := env.environments.Create(ctx, owner.ID, project.ID, "over", ""); !errors.Is(err, common.ErrLimitReached) {
		t.Fatalf("expected ErrLimitReached, got %v", err)
	}

	// deleting one frees the slot
	envs, _ := env.environments.List(ctx, owner.ID, project.ID)
	if err := env.environments.Delete(ctx, owner.ID, envs[0].ID); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	if _, err := env.environments.Create(ctx, owner.ID, project.ID, "replacement", ""); err != nil {
		t.Fatalf("create after delete: %v", err)
	}
}

func TestEnvironmentUpdateInfo(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	owner := env.mustUser(t, "owner@example.com", models.TierFree)
	project := env.mustProject(t, owner.ID, "acme", "123456", "hunter2-strong")
	envs, _ := env.environments.List(ctx, owner.ID, project.ID)

	if err := env.environments.UpdateInfo(ctx, owner.ID, envs[0].ID, "production", "live"); err != nil {
		t.Fatalf("UpdateInfo error: %v", err)
	}
	got, _ := env.rm.Environments(nil).GetByID(ctx, envs[0].ID)
	if got.Name != "production" || got.Description != "live" {
		t.Fatalf("unexpected environment: %+v", got)
	}

	if err := env.environments.UpdateInfo(ctx, owner.ID, envs[0].ID, "", ""); !errors.Is(err, common.ErrBadRequest) {
		t.Fatalf("expected ErrBadRequest for empty name, got %v", err)
	}
}

func TestEnvironmentDelete_CascadesVariables(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	owner := env.mustUser(t, "owner@example.com", models.TierFree)
	project := env.mustProject(t, owner.ID, "acme", "123456", "hunter2-strong")
	envs, _ := env.environments.List(ctx, owner.ID, project.ID)
	environmentID := envs[0].ID

	if _, err := env.variables.Set(ctx, owner.ID, project.ID, environmentID, "KEY", "value"); err != nil {
		t.Fatalf("Set error: %v", err)
	}

	if err := env.environments.Delete(ctx, owner.ID, environmentID); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	if n, _ := env.rm.Variables(nil).CountByEnvironment(ctx, environmentID); n != 0 {
		t.Fatalf("expected variables cascade-deleted, have %d", n)
	}
}
