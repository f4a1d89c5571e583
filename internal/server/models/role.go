package models

import (
	"fmt"

	"github.com/dmitrijs2005/envvault/internal/common"
)

// Role is a project membership role. Roles form a closed, totally ordered
// set; comparisons use the numeric rank, never the string form.
type Role int

const (
	RoleMember Role = iota
	RoleAdmin
	RoleOwner
)

func (r Role) String() string {
	switch r {
	case RoleOwner:
		return "owner"
	case RoleAdmin:
		return "admin"
	case RoleMember:
		return "member"
	default:
		return fmt.Sprintf("role(%d)", int(r))
	}
}

// ParseRole maps the stored string form back to a Role.
func ParseRole(s string) (Role, error) {
	switch s {
	case "owner":
		return RoleOwner, nil
	case "admin":
		return RoleAdmin, nil
	case "member":
		return RoleMember, nil
	default:
		return 0, fmt.Errorf("%w: unknown role %q", common.ErrBadRequest, s)
	}
}

// AtLeast reports whether r ranks at or above min.
func (r Role) AtLeast(min Role) bool {
	return r >= min
}
