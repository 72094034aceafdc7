package models

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

type ProfileRole string

const (
	RoleUser   ProfileRole = "user"
	RoleMaster ProfileRole = "master"
)

func (r ProfileRole) Valid() bool {
	return r == RoleUser || r == RoleMaster
}

type Profile struct {
	IdentityID string      `gorm:"primarykey;type:varchar(64)" json:"identity_id"`
	Approved   bool        `gorm:"not null;default:false;index" json:"approved"`
	Role       ProfileRole `gorm:"type:varchar(20);not null;default:'user'" json:"role"`
	ApprovedBy *string     `gorm:"type:varchar(64)" json:"approved_by,omitempty"`
	ApprovedAt *time.Time  `json:"approved_at,omitempty"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`

	Identity *Identity `gorm:"foreignKey:IdentityID" json:"identity,omitempty"`
}

// NewPendingProfile is the profile every regular identity starts with.
func NewPendingProfile(identityID string) *Profile {
	return &Profile{
		IdentityID: identityID,
		Approved:   false,
		Role:       RoleUser,
	}
}

// NewMasterProfile is the only profile with role master.
func NewMasterProfile() *Profile {
	return &Profile{
		IdentityID: MasterIdentityID,
		Approved:   true,
		Role:       RoleMaster,
	}
}

func (p *Profile) IsMaster() bool {
	return p.Role == RoleMaster && p.IdentityID == MasterIdentityID
}

func (p *Profile) BeforeSave(tx *gorm.DB) error {
	if !p.Role.Valid() {
		return fmt.Errorf("%w: role %q", ErrInvalidField, p.Role)
	}
	if p.Role == RoleMaster && p.IdentityID != MasterIdentityID {
		return fmt.Errorf("%w: role master is reserved", ErrInvalidField)
	}
	return nil
}
