package projects

import (
	"slices"
	"strings"

	"projecthub/internal/models"
	"projecthub/internal/policy"
	"projecthub/internal/validation"
)

const (
	defaultPage = 1
	defaultSize = 10
	maxSize     = 100
)

type CreateInput struct {
	Title  string               `json:"title" validate:"required,min=2"`
	Client string               `json:"client" validate:"required,min=2"`
	Budget *int64               `json:"budget" validate:"required,gte=0"`
	Status models.ProjectStatus `json:"status,omitempty" validate:"omitempty,oneof=LEAD IN_PROGRESS ON_HOLD DONE"`
	// Members is honoured for admins only.
	Members []string `json:"members,omitempty"`
}

// Validate checks lengths on the text as sent; surrounding spaces count.
func (in *CreateInput) Validate() error {
	if err := validation.Struct(in); err != nil {
		return err
	}
	if in.Status == "" {
		in.Status = models.StatusLead
	}
	return nil
}

// payload is the validated body recorded as the diff of a create entry.
func (in CreateInput) payload(members []string) map[string]any {
	out := map[string]any{
		"title":  in.Title,
		"client": in.Client,
		"budget": *in.Budget,
		"status": string(in.Status),
	}
	if len(members) > 0 {
		out["members"] = members
	}
	return out
}

// UpdateInput is a partial update: nil fields are left alone.
type UpdateInput struct {
	Title  *string               `json:"title,omitempty" validate:"omitempty,min=2"`
	Client *string               `json:"client,omitempty" validate:"omitempty,min=2"`
	Budget *int64                `json:"budget,omitempty" validate:"omitempty,gte=0"`
	Status *models.ProjectStatus `json:"status,omitempty" validate:"omitempty,oneof=LEAD IN_PROGRESS ON_HOLD DONE"`
}

func (in *UpdateInput) Validate() error {
	return validation.Struct(in)
}

// NarrowToScope drops every field the scope does not allow to change.
// Status-only actors keep just the status; nothing is rejected here.
func NarrowToScope(in UpdateInput, scope policy.Scope) UpdateInput {
	switch scope {
	case policy.ScopeFull:
		return in
	case policy.ScopeStatusOnly:
		return UpdateInput{Status: in.Status}
	default:
		return UpdateInput{}
	}
}

func (in UpdateInput) applyTo(p *models.Project) {
	if in.Title != nil {
		p.Title = *in.Title
	}
	if in.Client != nil {
		p.Client = *in.Client
	}
	if in.Budget != nil {
		p.Budget = *in.Budget
	}
	if in.Status != nil {
		p.Status = *in.Status
	}
}

type MembersInput struct {
	MemberIDs []string `json:"memberIds" validate:"dive,required"`
}

// Validate trims and de-duplicates the ids. A nil list clears the members.
func (in *MembersInput) Validate() error {
	ids := make([]string, 0, len(in.MemberIDs))
	for _, id := range in.MemberIDs {
		ids = append(ids, strings.TrimSpace(id))
	}
	in.MemberIDs = ids
	if err := validation.Struct(in); err != nil {
		return err
	}
	slices.Sort(in.MemberIDs)
	in.MemberIDs = slices.Compact(in.MemberIDs)
	return nil
}

type Query struct {
	Q      string               `form:"q" json:"q"`
	Status models.ProjectStatus `form:"status" json:"status" validate:"omitempty,oneof=LEAD IN_PROGRESS ON_HOLD DONE"`
	Page   int                  `form:"page" json:"page"`
	Size   int                  `form:"size" json:"size"`
}

// Normalize validates the status and clamps paging: page starts at 1, size
// defaults to 10 and stays within [1, 100].
func (q *Query) Normalize() error {
	q.Q = strings.TrimSpace(q.Q)
	if err := validation.Struct(q); err != nil {
		return err
	}
	if q.Page < 1 {
		q.Page = defaultPage
	}
	switch {
	case q.Size == 0:
		q.Size = defaultSize
	case q.Size < 1:
		q.Size = 1
	case q.Size > maxSize:
		q.Size = maxSize
	}
	return nil
}

func (q Query) offset() int {
	return (q.Page - 1) * q.Size
}
