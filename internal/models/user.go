package models

import (
	"time"

	"gorm.io/gorm"
)

type UserRole string

const (
	RoleAdmin   UserRole = "admin"
	RoleManager UserRole = "manager"
	RoleMember  UserRole = "member"
)

// CanManageTasks reports whether the role may mutate tasks and workflows.
// Members are read-only and only appear as assignment targets.
func (r UserRole) CanManageTasks() bool {
	return r == RoleAdmin || r == RoleManager
}

type User struct {
	ID           uint64         `gorm:"primarykey" json:"id"`
	Name         string         `gorm:"type:varchar(100);not null" json:"name"`
	Email        string         `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	PasswordHash string         `gorm:"type:varchar(255);not null" json:"-"`
	Role         UserRole       `gorm:"type:varchar(20);not null;default:'member'" json:"role"`
	IsActive     bool           `gorm:"not null;default:true" json:"is_active"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`

	// Relations
	CreatedTasks     []Task           `gorm:"foreignKey:CreatedByID" json:"-"`
	CreatedWorkflows []Workflow       `gorm:"foreignKey:CreatedByID" json:"-"`
	Assignments      []TaskAssignment `gorm:"foreignKey:UserID" json:"-"`
}
