package models

import (
	"fmt"

	"github.com/dmitrijs2005/envvault/internal/common"
)

// Tier is an account-level plan rank. Tiers form a closed, totally ordered
// set; TierSuperAdmin is a platform role that sits above every paid plan and
// bypasses all numeric limits.
type Tier int

const (
	TierFree Tier = iota
	TierPro
	TierTeam
	TierEnterprise
	TierSuperAdmin
)

// Unlimited marks a limit field that is never enforced.
const Unlimited = -1

func (t Tier) String() string {
	switch t {
	case TierFree:
		return "free"
	case TierPro:
		return "pro"
	case TierTeam:
		return "team"
	case TierEnterprise:
		return "enterprise"
	case TierSuperAdmin:
		return "superadmin"
	default:
		return fmt.Sprintf("tier(%d)", int(t))
	}
}

// ParseTier maps the stored string form back to a Tier.
func ParseTier(s string) (Tier, error) {
	switch s {
	case "free":
		return TierFree, nil
	case "pro":
		return TierPro, nil
	case "team":
		return TierTeam, nil
	case "enterprise":
		return TierEnterprise, nil
	case "superadmin":
		return TierSuperAdmin, nil
	default:
		return 0, fmt.Errorf("%w: unknown tier %q", common.ErrBadRequest, s)
	}
}

// TierLimits holds the numeric ceilings of a plan. A value of Unlimited
// disables the corresponding check.
type TierLimits struct {
	MaxProjects                int
	MaxEnvironmentsPerProject  int
	MaxMembersPerProject       int
	MaxSharedSecretsPerProject int
	MaxVariablesPerEnvironment int
}

// LimitsFor returns the limits of the given tier. Limits of any project are
// always looked up with the project owner's tier; collaborators inherit the
// owner's ceiling.
func LimitsFor(t Tier) TierLimits {
	switch t {
	case TierSuperAdmin:
		return TierLimits{Unlimited, Unlimited, Unlimited, Unlimited, Unlimited}
	case TierEnterprise:
		return TierLimits{
			MaxProjects:                100,
			MaxEnvironmentsPerProject:  20,
			MaxMembersPerProject:       100,
			MaxSharedSecretsPerProject: 100,
			MaxVariablesPerEnvironment: 500,
		}
	case TierTeam:
		return TierLimits{
			MaxProjects:                20,
			MaxEnvironmentsPerProject:  10,
			MaxMembersPerProject:       25,
			MaxSharedSecretsPerProject: 30,
			MaxVariablesPerEnvironment: 200,
		}
	case TierPro:
		return TierLimits{
			MaxProjects:                10,
			MaxEnvironmentsPerProject:  5,
			MaxMembersPerProject:       10,
			MaxSharedSecretsPerProject: 10,
			MaxVariablesPerEnvironment: 100,
		}
	default: // TierFree
		return TierLimits{
			MaxProjects:                3,
			MaxEnvironmentsPerProject:  3,
			MaxMembersPerProject:       3,
			MaxSharedSecretsPerProject: 3,
			MaxVariablesPerEnvironment: 50,
		}
	}
}

// ResourceType names a per-project quota counter.
type ResourceType string

const (
	ResourceEnvironments  ResourceType = "environments"
	ResourceMembers       ResourceType = "members"
	ResourceSharedSecrets ResourceType = "shared_secrets"
)

// Limit returns the ceiling the given tier puts on this resource type.
func (rt ResourceType) Limit(t Tier) int {
	limits := LimitsFor(t)
	switch rt {
	case ResourceEnvironments:
		return limits.MaxEnvironmentsPerProject
	case ResourceMembers:
		return limits.MaxMembersPerProject
	case ResourceSharedSecrets:
		return limits.MaxSharedSecretsPerProject
	default:
		return Unlimited
	}
}
