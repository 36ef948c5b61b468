package models

import (
	"strings"
	"time"
)

type Role string

const (
	RoleClient           Role = "client"
	RoleCoach            Role = "coach"
	RoleHealthSpecialist Role = "healthSpecialist"
	RoleGymOwner         Role = "gymOwner"
	RoleSportFieldOwner  Role = "sportFieldOwner"
	RoleAdmin            Role = "admin"
)

// ServiceProviderRoles are the roles allowed to own services and mark
// bookings as completed.
var ServiceProviderRoles = []Role{RoleCoach, RoleHealthSpecialist, RoleGymOwner, RoleSportFieldOwner}

type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Email     string    `gorm:"uniqueIndex;not null" json:"email"`
	Role      Role      `gorm:"type:varchar(20);not null;default:'client'" json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

func (u *User) DisplayName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// ProviderClient records that a client has booked with a provider at least
// once. Inserted with ON CONFLICT DO NOTHING so repeat bookings are no-ops.
type ProviderClient struct {
	ProviderID uint      `gorm:"primaryKey" json:"provider_id"`
	ClientID   uint      `gorm:"primaryKey" json:"client_id"`
	CreatedAt  time.Time `json:"created_at"`
}
