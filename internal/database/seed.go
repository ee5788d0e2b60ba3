package database

import (
	"context"
	"fmt"
	"log/slog"

	"projecthub/internal/models"

	"gorm.io/gorm"
)

// SeedUser is a demo account created by Seed.
type SeedUser struct {
	Email    string
	Password string
	Role     models.UserRole
}

var DefaultSeedUsers = []SeedUser{
	{Email: "admin@demo.com", Password: "Admin@123", Role: models.RoleAdmin},
	{Email: "member@demo.com", Password: "Member@123", Role: models.RoleMember},
}

const minSeedProjects = 6

// Seed upserts the demo users and tops the project table up with samples.
// Sample projects bypass the mutation pipeline, so they carry no audit trail.
func Seed(ctx context.Context, db *gorm.DB, hash func(string) (string, error), log *slog.Logger) error {
	users := NewUserStore(db)
	projects := NewProjectStore(db)

	seeded := make(map[models.UserRole]*models.User, len(DefaultSeedUsers))
	for _, su := range DefaultSeedUsers {
		h, err := hash(su.Password)
		if err != nil {
			return fmt.Errorf("hash password for %s: %w", su.Email, err)
		}
		u := &models.User{Email: su.Email, PasswordHash: h, Role: su.Role}
		if err := users.Upsert(ctx, u); err != nil {
			return fmt.Errorf("seed user %s: %w", su.Email, err)
		}
		seeded[su.Role] = u
		log.Info("seeded user", "email", u.Email, "role", u.Role)
	}

	var count int64
	if err := db.WithContext(ctx).Model(&models.Project{}).Count(&count).Error; err != nil {
		return fmt.Errorf("count projects: %w", err)
	}
	if count >= minSeedProjects {
		return nil
	}

	admin, member := seeded[models.RoleAdmin], seeded[models.RoleMember]
	samples := []models.Project{
		{Title: "Website Redesign", Client: "Acme Corp", Budget: 12000, Status: models.StatusLead, OwnerID: admin.ID},
		{Title: "Mobile App", Client: "Globex", Budget: 45000, Status: models.StatusInProgress, OwnerID: admin.ID},
		{Title: "CRM Migration", Client: "Initech", Budget: 18000, Status: models.StatusOnHold, OwnerID: member.ID},
		{Title: "SEO Campaign", Client: "Umbrella", Budget: 8000, Status: models.StatusDone, OwnerID: member.ID},
		{Title: "Data Pipeline", Client: "Soylent", Budget: 35000, Status: models.StatusLead, OwnerID: admin.ID},
		{Title: "Support Retainer", Client: "Stark Industries", Budget: 6000, Status: models.StatusInProgress, OwnerID: member.ID},
	}
	for i := range samples {
		if err := projects.Create(ctx, &samples[i]); err != nil {
			return fmt.Errorf("seed project %q: %w", samples[i].Title, err)
		}
	}
	log.Info("seeded sample projects", "count", len(samples))
	return nil
}
