package models

import "time"

// MasterIdentityID is the reserved identity of the master account.
const MasterIdentityID = "master"

type Identity struct {
	ID          string    `gorm:"primarykey;type:varchar(64)" json:"id"`
	Email       string    `gorm:"type:varchar(255);index" json:"email"`
	DisplayName string    `gorm:"type:varchar(255);not null" json:"display_name"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	Profile *Profile `gorm:"foreignKey:IdentityID" json:"profile,omitempty"`
}

func (i Identity) IsMaster() bool {
	return i.ID == MasterIdentityID
}
