package rbac

import "github.com/xcro-market/backend/internal/auth"

// Permission constants
const (
	PermManageInvites    = "manage_invites"
	PermViewBuyers       = "view_buyers"
	PermManageSchedule   = "manage_schedule"
	PermActivateAuction  = "activate_auction"
	PermViewTransactions = "view_transactions"
	PermResetEscrow      = "reset_escrow"
	PermCreateAuction    = "create_auction"
	PermAllocateEscrow   = "allocate_escrow"
	PermPlaceBid         = "place_bid"
	PermPurchase         = "purchase"
	PermViewEscrow       = "view_escrow"
)

// RolePermissions defines what each role can do.
var RolePermissions = map[string][]string{
	auth.RoleAdmin: {
		PermManageInvites, PermViewBuyers, PermManageSchedule, PermActivateAuction,
		PermViewTransactions, PermResetEscrow, PermAllocateEscrow, PermViewEscrow,
	},
	auth.RoleSeller: {
		PermCreateAuction, PermAllocateEscrow, PermViewEscrow,
		// sellers never bid or buy
	},
	auth.RoleBuyer: {
		PermPlaceBid, PermPurchase, PermViewEscrow,
	},
}

// HasPermission checks if a role has a specific permission.
func HasPermission(role, permission string) bool {
	perms, ok := RolePermissions[role]
	if !ok {
		return false
	}
	for _, p := range perms {
		if p == permission {
			return true
		}
	}
	return false
}

// OneOf reports whether role is in roles.
func OneOf(role string, roles ...string) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

// IsAdminOperation reports whether permission is reserved to admins.
func IsAdminOperation(permission string) bool {
	return HasPermission(auth.RoleAdmin, permission) &&
		!HasPermission(auth.RoleSeller, permission) &&
		!HasPermission(auth.RoleBuyer, permission)
}
