package models

import (
	"fmt"
	"slices"
	"time"

	"github.com/yukikurage/mayau-app/internal/id"
	"gorm.io/gorm"
)

// The fixed set of project workspaces.
const (
	WorkspaceMayauOffice     = "Mayau Office"
	WorkspaceMayauProduction = "Mayau Production"
	WorkspaceMayauMarketing  = "Mayau Marketing"
)

var WorkspaceNames = []string{
	WorkspaceMayauOffice,
	WorkspaceMayauProduction,
	WorkspaceMayauMarketing,
}

func IsWorkspaceName(name string) bool {
	return slices.Contains(WorkspaceNames, name)
}

type Workspace struct {
	ID        int64     `gorm:"primarykey;autoIncrement:false" json:"id,string"`
	Name      string    `gorm:"type:varchar(100);not null;index" json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Members []WorkspaceMember `gorm:"foreignKey:WorkspaceID" json:"members,omitempty"`
}

func (w *Workspace) BeforeCreate(tx *gorm.DB) error {
	if w.ID == 0 {
		w.ID = id.New()
	}
	return nil
}

func (w *Workspace) BeforeSave(tx *gorm.DB) error {
	if !IsWorkspaceName(w.Name) {
		return fmt.Errorf("%w: workspace name %q", ErrInvalidField, w.Name)
	}
	return nil
}

// MemberIDs returns the member identity ids.
func (w Workspace) MemberIDs() []string {
	ids := make([]string, 0, len(w.Members))
	for _, m := range w.Members {
		ids = append(ids, m.IdentityID)
	}
	return ids
}

type WorkspaceMember struct {
	WorkspaceID int64     `gorm:"primarykey;autoIncrement:false" json:"workspace_id,string"`
	IdentityID  string    `gorm:"primarykey;type:varchar(64)" json:"identity_id"`
	CreatedAt   time.Time `json:"created_at"`
}
