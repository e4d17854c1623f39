package risk

import (
	"time"

	"github.com/geocoder89/accounthub/internal/domain/user"
)

// Policy is the sliding-window budget for one role.
type Policy struct {
	Max    int
	Window time.Duration
}

// PolicyTable maps each role to its budget. Admin gets the most permissive
// window, then user, then guest the strictest.
type PolicyTable struct {
	Guest Policy
	User  Policy
	Admin Policy
}

func DefaultPolicies() PolicyTable {
	return PolicyTable{
		Guest: Policy{Max: 5, Window: time.Minute},
		User:  Policy{Max: 10, Window: time.Minute},
		Admin: Policy{Max: 20, Window: time.Minute},
	}
}

// For is total over the closed role enumeration; anything unexpected gets
// the guest budget.
func (t PolicyTable) For(role user.Role) Policy {
	switch role {
	case user.RoleAdmin:
		return t.Admin
	case user.RoleUser:
		return t.User
	default:
		return t.Guest
	}
}
