package model

import (
	"time"
)

const (
	RoleStudent    = "student"
	RoleStaff      = "staff"
	RoleAdmin      = "admin"
	RoleSupervisor = "supervisor"
)

// KnownRoles lists every role seeded in the roles table.
var KnownRoles = []string{RoleStudent, RoleStaff, RoleAdmin, RoleSupervisor}

type User struct {
	ID             string    `json:"id"`
	RollNo         string    `json:"roll_no"`
	UserName       string    `json:"user_name"`
	Email          string    `json:"email"`
	HashedPassword string    `json:"-"` // Not exposed
	IsActive       bool      `json:"is_active"`
	Roles          []string  `json:"roles,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Block is one entry of the block audit trail; users.is_active mirrors the active entries.
type Block struct {
	ID              string     `json:"block_id"`
	UserID          string     `json:"user_id"`
	RollNo          string     `json:"roll_no,omitempty"`
	UserName        string     `json:"user_name,omitempty"`
	Email           string     `json:"email,omitempty"`
	Reason          string     `json:"block_reason"`
	BlockedBy       string     `json:"blocked_by"`
	ClassroomTestID *string    `json:"classroom_test_id,omitempty"`
	IsActive        bool       `json:"is_active"`
	BlockedAt       time.Time  `json:"blocked_at"`
	UnblockedBy     *string    `json:"unblocked_by,omitempty"`
	UnblockedAt     *time.Time `json:"unblocked_at,omitempty"`
}

type RoleCount struct {
	Role  string `json:"role"`
	Count int    `json:"count"`
}

type StaffSummary struct {
	ID             string `json:"id"`
	UserName       string `json:"user_name"`
	Email          string `json:"email"`
	ClassroomCount int    `json:"classroom_count"`
	TestCount      int    `json:"test_count"`
}
