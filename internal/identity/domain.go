package identity

import (
	"time"

	"github.com/flutterbye/platform/internal/shared"
)

// Role is the coarse permission tier of an identity.
type Role string

// Roles ordered from least to most privileged.
const (
	RoleGuest      Role = "guest"
	RoleUser       Role = "user"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "super_admin"
)

var roleRank = map[Role]int{
	RoleGuest:      0,
	RoleUser:       1,
	RoleAdmin:      2,
	RoleSuperAdmin: 3,
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	_, ok := roleRank[r]
	return ok
}

// AtLeast reports whether r sits at or above min in the hierarchy.
func (r Role) AtLeast(min Role) bool {
	return roleRank[r] >= roleRank[min]
}

// rolePermissions maps each role to the permissions it grants directly.
// Higher roles inherit everything below them, so the effective set is the
// union walking down the hierarchy.
var rolePermissions = map[Role][]string{
	RoleGuest: nil,
	RoleUser: {
		shared.PermChatPost,
	},
	RoleAdmin: {
		shared.PermFeaturesView,
		shared.PermFeaturesEdit,
		shared.PermIdentitiesView,
		shared.PermChatModerate,
		shared.PermAdminDashboard,
	},
	RoleSuperAdmin: {
		shared.PermIdentitiesEdit,
	},
}

// Implies reports whether the role grants perm, including everything
// inherited from lower roles. super_admin passes unconditionally.
func (r Role) Implies(perm string) bool {
	if r == RoleSuperAdmin {
		return true
	}
	rank := roleRank[r]
	for role, perms := range rolePermissions {
		if roleRank[role] > rank {
			continue
		}
		for _, p := range perms {
			if p == perm {
				return true
			}
		}
	}
	return false
}

// Identity is the durable, role-bearing record for one wallet address.
type Identity struct {
	WalletAddress string    `json:"walletAddress"`
	Role          Role      `json:"role"`
	Permissions   []string  `json:"permissions"`
	CreatedAt     time.Time `json:"createdAt"`
	LastAuthAt    time.Time `json:"lastAuthAt"`
}

// Wallet implements shared.Principal.
func (id *Identity) Wallet() string { return id.WalletAddress }

// RoleName implements shared.Principal.
func (id *Identity) RoleName() string { return string(id.Role) }

// IsAdmin reports whether the identity holds admin privileges or above.
func (id *Identity) IsAdmin() bool {
	return id != nil && id.Role.AtLeast(RoleAdmin)
}

// clone returns a deep copy so snapshot readers never share permission slices
// with a writer.
func (id *Identity) clone() *Identity {
	if id == nil {
		return nil
	}
	dup := *id
	dup.Permissions = append([]string(nil), id.Permissions...)
	return &dup
}
