package models

import (
	"slices"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ProjectStatus string

const (
	StatusLead       ProjectStatus = "LEAD"
	StatusInProgress ProjectStatus = "IN_PROGRESS"
	StatusOnHold     ProjectStatus = "ON_HOLD"
	StatusDone       ProjectStatus = "DONE"
)

func (s ProjectStatus) Valid() bool {
	switch s {
	case StatusLead, StatusInProgress, StatusOnHold, StatusDone:
		return true
	}
	return false
}

type Project struct {
	ID      string        `gorm:"primaryKey;size:36"`
	Title   string        `gorm:"size:255;not null"`
	Client  string        `gorm:"size:255;not null"`
	Budget  int64         `gorm:"not null"`
	Status  ProjectStatus `gorm:"type:varchar(20);not null;default:LEAD"`
	OwnerID string        `gorm:"size:36;not null;index"`

	Members []ProjectMember `gorm:"foreignKey:ProjectID"`

	// bumped on every write, checked by the store for optimistic locking
	Version int `gorm:"not null;default:1"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// ProjectMember grants an assigned user status-only access to a project.
type ProjectMember struct {
	ProjectID string `gorm:"primaryKey;size:36"`
	UserID    string `gorm:"primaryKey;size:36;index"`
}

func (p *Project) BeforeCreate(*gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

// MemberIDs returns the assigned user ids, sorted and de-duplicated.
func (p *Project) MemberIDs() []string {
	ids := make([]string, 0, len(p.Members))
	for _, m := range p.Members {
		ids = append(ids, m.UserID)
	}
	slices.Sort(ids)
	return slices.Compact(ids)
}

// SetMemberIDs replaces the member set.
func (p *Project) SetMemberIDs(ids []string) {
	members := make([]ProjectMember, 0, len(ids))
	for _, id := range ids {
		members = append(members, ProjectMember{ProjectID: p.ID, UserID: id})
	}
	p.Members = members
}

func (p *Project) HasMember(userID string) bool {
	for _, m := range p.Members {
		if m.UserID == userID {
			return true
		}
	}
	return false
}

// Snapshot is the flat view of the record compared by the audit diff.
// Timestamps and Version are bookkeeping and left out.
func (p *Project) Snapshot() map[string]any {
	return map[string]any{
		"id":      p.ID,
		"title":   p.Title,
		"client":  p.Client,
		"budget":  p.Budget,
		"status":  string(p.Status),
		"ownerId": p.OwnerID,
		"members": p.MemberIDs(),
	}
}
