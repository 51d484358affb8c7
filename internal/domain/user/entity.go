package user

import (
	"strings"
	"time"
)

type Role string

const (
	RoleAdmin Role = "ADMIN" // Manager/administrator, can decide requests and run reconciliation
	RoleUser  Role = "USER"  // Regular employee
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleUser
}

type User struct {
	ID        string
	Name      string
	Email     string
	Role      Role
	ManagerID *string
	// WeekOffs holds upper-case English weekday names, e.g. "SATURDAY".
	WeekOffs  []string
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsAdmin checks if user can approve requests and sessions
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// IsWeekOff reports whether date falls on one of the user's configured week-off days.
func (u *User) IsWeekOff(date time.Time) bool {
	day := strings.ToUpper(date.Weekday().String())
	for _, w := range u.WeekOffs {
		if strings.ToUpper(strings.TrimSpace(w)) == day {
			return true
		}
	}
	return false
}
