package account

import "github.com/shankerdev/campus/core"

// Capability is the authenticated identity threaded through every service call.
// The zero value is unauthenticated.
type Capability struct {
	AccountID string
	Role      Role
}

func (c Capability) Authenticated() bool {
	return c.AccountID != "" && c.Role.Valid()
}

// Require returns core.ErrForbidden unless c is authenticated with one of roles.
// No roles means any authenticated account.
func (c Capability) Require(roles ...Role) error {
	if !c.Authenticated() {
		return core.ErrForbidden
	}
	if len(roles) == 0 {
		return nil
	}
	for _, role := range roles {
		if c.Role == role {
			return nil
		}
	}
	return core.ErrForbidden
}

func (c Capability) Is(role Role) bool {
	return c.Authenticated() && c.Role == role
}
