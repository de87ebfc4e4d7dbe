package model

import "time"

// Role is the closed set of user roles. A user's role never changes after registration.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleFarmer   Role = "farmer"
	RoleAdmin    Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleCustomer, RoleFarmer, RoleAdmin:
		return true
	}
	return false
}

// CanPurchase reports whether users with this role may buy products.
func (r Role) CanPurchase() bool {
	return r == RoleCustomer
}

// CanManageProducts reports whether users with this role may list, edit and delete products.
func (r Role) CanManageProducts() bool {
	return r == RoleFarmer
}

// CanViewHistory reports whether users with this role have a transaction history.
func (r Role) CanViewHistory() bool {
	return r == RoleCustomer || r == RoleFarmer
}

// RegistrationRole maps a requested role to the role actually granted on sign-up.
// Only farmers can self-register as such; everything else becomes a customer.
func RegistrationRole(requested string) Role {
	if Role(requested) == RoleFarmer {
		return RoleFarmer
	}
	return RoleCustomer
}

// User represents a registered marketplace user.
type User struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	Username     string    `json:"username" gorm:"uniqueIndex;size:255;not null"`
	Email        string    `json:"email" gorm:"size:255"`
	PasswordHash string    `json:"-" gorm:"size:255;not null"` // Never expose in JSON
	Role         Role      `json:"role" gorm:"type:varchar(20);not null;index"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
