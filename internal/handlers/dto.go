package handlers

import (
	"time"

	"projecthub/internal/models"
)

type projectResponse struct {
	ID        string               `json:"id"`
	Title     string               `json:"title"`
	Client    string               `json:"client"`
	Budget    int64                `json:"budget"`
	Status    models.ProjectStatus `json:"status"`
	OwnerID   string               `json:"ownerId"`
	MemberIDs []string             `json:"memberIds"`
	Owner     *userRef             `json:"owner"`
	Members   []userRef            `json:"members"`
	Version   int                  `json:"version"`
	CreatedAt time.Time            `json:"createdAt"`
	UpdatedAt time.Time            `json:"updatedAt"`
}

// userRef is the short form of a user embedded in other responses.
type userRef struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// toProjectResponse fills owner and members from users; ids missing from
// users are left out of the expanded fields but stay in memberIds.
func toProjectResponse(p *models.Project, users map[string]models.User) projectResponse {
	members := make([]userRef, 0, len(p.Members))
	for _, id := range p.MemberIDs() {
		if u, ok := users[id]; ok {
			members = append(members, userRef{ID: u.ID, Email: u.Email, Name: u.Name})
		}
	}
	var owner *userRef
	if u, ok := users[p.OwnerID]; ok {
		owner = &userRef{ID: u.ID, Email: u.Email, Name: u.Name}
	}
	return projectResponse{
		Owner:     owner,
		Members:   members,
		ID:        p.ID,
		Title:     p.Title,
		Client:    p.Client,
		Budget:    p.Budget,
		Status:    p.Status,
		OwnerID:   p.OwnerID,
		MemberIDs: p.MemberIDs(),
		Version:   p.Version,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

type projectPage struct {
	Items []projectResponse `json:"items"`
	Total int64             `json:"total"`
	Page  int               `json:"page"`
	Size  int               `json:"size"`
}

type userResponse struct {
	ID        string          `json:"id"`
	Email     string          `json:"email"`
	Role      models.UserRole `json:"role"`
	CreatedAt *time.Time      `json:"createdAt,omitempty"`
}

func toUserResponse(u *models.User) userResponse {
	return userResponse{ID: u.ID, Email: u.Email, Role: u.Role}
}

type profileResponse struct {
	ID      string          `json:"id"`
	Email   string          `json:"email"`
	Role    models.UserRole `json:"role"`
	Name    string          `json:"name"`
	Company string          `json:"company"`
}

func toProfileResponse(u *models.User) profileResponse {
	return profileResponse{ID: u.ID, Email: u.Email, Role: u.Role, Name: u.Name, Company: u.Company}
}

type loginResponse struct {
	Token string       `json:"token"`
	User  userResponse `json:"user"`
}

type itemsResponse[T any] struct {
	Items []T `json:"items"`
}
