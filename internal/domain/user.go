package domain

import "time"

// Role is the marketplace capability granted to a user
type Role string

const (
	RoleCustomer Role = "customer" // Default role on first sign-in
	RoleSeller   Role = "seller"   // May list products and manage their orders
	RoleAdmin    Role = "admin"    // May adjudicate role requests
)

// Valid reports whether r is one of the known roles
func (r Role) Valid() bool {
	switch r {
	case RoleCustomer, RoleSeller, RoleAdmin:
		return true
	}
	return false
}

// UserStatus tracks the promotion workflow
type UserStatus string

const (
	StatusNone      UserStatus = "none"      // Nothing requested
	StatusRequested UserStatus = "requested" // Waiting for an admin decision
	StatusVerified  UserStatus = "verified"  // Role granted by an admin
)

// User Model
type User struct {
	Email     string     `gorm:"primaryKey;size:191" json:"email"`              // Unique key
	Name      string     `json:"name"`                                          // Display name
	Photo     string     `json:"photo"`                                         // Avatar URL
	Role      Role       `gorm:"size:16;not null;default:customer" json:"role"` // Role: customer, seller or admin
	Status    UserStatus `gorm:"size:16;not null;default:none" json:"status"`   // Promotion status
	CreatedAt time.Time  `gorm:"autoCreateTime" json:"createdAt"`               // First sign-in time
	UpdatedAt time.Time  `gorm:"autoUpdateTime" json:"updatedAt"`               // Last role or status change
}
