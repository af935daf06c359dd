package backend

import (
	"fmt"
	"time"

	"github.com/jrsteele09/qa-console/tracker"
	"github.com/jrsteele09/qa-console/users"
	"github.com/rs/zerolog/log"
)

// Demo accounts created by Seed
const (
	SeedManagerID   = "manager"
	SeedTesterID    = "tester"
	SeedDeveloperID = "developer"
)

// Seed creates the demo users, projects and defects unless the users already exist
func (b *Backend) Seed() error {
	password := b.config.GetSeedPassword()
	if err := users.ValidatePasswordStrength(password); err != nil {
		return fmt.Errorf("[Backend Seed] seed password: %w", err)
	}

	accounts := []users.User{
		{ID: SeedManagerID, Name: "Mina Manager", Email: "manager@example.com", RoleCode: users.RoleManager, Authorities: []string{"REPORT"}},
		{ID: SeedTesterID, Name: "Theo Tester", Email: "tester@example.com", RoleCode: users.RoleTester, Authorities: []string{}},
		{ID: SeedDeveloperID, Name: "Dana Developer", Email: "developer@example.com", RoleCode: users.RoleDeveloper, Authorities: []string{}},
	}

	created := 0
	for i := range accounts {
		u := accounts[i]
		if _, err := b.users.GetByID(u.ID); err == nil {
			continue
		}
		hash, err := users.HashPassword(password)
		if err != nil {
			return fmt.Errorf("[Backend Seed] failed to hash password: %w", err)
		}
		u.PasswordHash = hash
		if err := b.users.Upsert(&u); err != nil {
			return fmt.Errorf("[Backend Seed] failed to create %s: %w", u.ID, err)
		}
		created++
	}
	if created == 0 {
		return nil
	}

	b.seedCatalog()

	log.Info().
		Strs("users", []string{SeedManagerID, SeedTesterID, SeedDeveloperID}).
		Str("password", password).
		Msg("seeded demo accounts")
	return nil
}

func (b *Backend) seedCatalog() {
	base := time.Now().Add(-72 * time.Hour)

	web := b.catalog.UpsertProject(tracker.Project{ID: "P-100", Name: "Web Storefront", Status: "ACTIVE", ManagerID: SeedManagerID, CreatedAt: base})
	mobile := b.catalog.UpsertProject(tracker.Project{ID: "P-200", Name: "Mobile App", Status: "ACTIVE", ManagerID: SeedManagerID, CreatedAt: base.Add(time.Hour)})
	b.catalog.UpsertProject(tracker.Project{ID: "P-300", Name: "Legacy Billing", Status: "CLOSED", ManagerID: SeedManagerID, CreatedAt: base.Add(-24 * time.Hour)})

	defects := []tracker.Defect{
		{ID: "D-1001", ProjectID: web.ID, Title: "Checkout button unresponsive on Safari", Severity: "CRITICAL", Status: "OPEN", ReporterID: SeedTesterID, AssigneeID: SeedDeveloperID},
		{ID: "D-1002", ProjectID: web.ID, Title: "Cart total rounds incorrectly", Severity: "MAJOR", Status: "IN_PROGRESS", ReporterID: SeedTesterID, AssigneeID: SeedDeveloperID},
		{ID: "D-1003", ProjectID: web.ID, Title: "Footer links misaligned", Severity: "TRIVIAL", Status: "RESOLVED", ReporterID: SeedTesterID},
		{ID: "D-2001", ProjectID: mobile.ID, Title: "Crash when rotating on login screen", Severity: "CRITICAL", Status: "OPEN", ReporterID: SeedTesterID},
		{ID: "D-2002", ProjectID: mobile.ID, Title: "Push notification badge not cleared", Severity: "MINOR", Status: "OPEN", ReporterID: SeedTesterID, AssigneeID: SeedDeveloperID},
	}
	for i, d := range defects {
		d.CreatedAt = base.Add(time.Duration(i+2) * time.Hour)
		d.Description = "Reported during regression testing."
		b.catalog.UpsertDefect(d)
	}
}
