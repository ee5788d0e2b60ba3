package projects_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"

	"projecthub/internal/apperr"
	"projecthub/internal/database"
	"projecthub/internal/metrics"
	"projecthub/internal/models"
	"projecthub/internal/policy"
	"projecthub/internal/projects"
	dbtest "projecthub/internal/testutil"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"gorm.io/datatypes"
)

func ptr[T any](v T) *T { return &v }

type ServiceSuite struct {
	suite.Suite
	ctx      context.Context
	projects *database.ProjectStore
	audit    *database.AuditStore
	users    *database.UserStore
	metrics  *metrics.Metrics
	svc      *projects.Service

	admin    policy.Actor
	owner    policy.Actor
	assignee policy.Actor
	stranger policy.Actor
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctx = context.Background()
	db := dbtest.NewDB(s.T())
	s.projects = database.NewProjectStore(db)
	s.audit = database.NewAuditStore(db)
	s.users = database.NewUserStore(db)
	s.metrics = metrics.New()
	s.svc = projects.NewService(s.projects, s.audit, s.users, s.metrics, dbtest.DiscardLogger())

	s.admin = s.newActor("admin@demo.com", models.RoleAdmin)
	s.owner = s.newActor("owner@demo.com", models.RoleMember)
	s.assignee = s.newActor("member@demo.com", models.RoleMember)
	s.stranger = s.newActor("stranger@demo.com", models.RoleMember)
}

func (s *ServiceSuite) newActor(email string, role models.UserRole) policy.Actor {
	u := &models.User{Email: email, PasswordHash: "x", Role: role}
	s.Require().NoError(s.users.Create(s.ctx, u))
	return policy.Actor{ID: u.ID, Email: u.Email, Role: u.Role}
}

func (s *ServiceSuite) createAs(actor policy.Actor, title, client string) *models.Project {
	p, err := s.svc.Create(s.ctx, actor, projects.CreateInput{Title: title, Client: client, Budget: ptr(int64(12000))})
	s.Require().NoError(err)
	return p
}

// ownedWithAssignee returns a project owned by s.owner with s.assignee assigned.
func (s *ServiceSuite) ownedWithAssignee() *models.Project {
	p := s.createAs(s.owner, "Website Redesign", "Acme Corp")
	_, err := s.svc.SetMembers(s.ctx, s.admin, p.ID, projects.MembersInput{MemberIDs: []string{s.assignee.ID}})
	s.Require().NoError(err)
	return p
}

func (s *ServiceSuite) auditFor(projectID string) []models.AuditLog {
	logs, err := s.audit.List(s.ctx, database.AuditFilter{ProjectID: projectID})
	s.Require().NoError(err)
	return logs
}

func (s *ServiceSuite) TestLifecycleScenario() {
	// admin creates
	p, err := s.svc.Create(s.ctx, s.admin, projects.CreateInput{
		Title:  "Website Redesign",
		Client: "Acme Corp",
		Budget: ptr(int64(12000)),
		Status: models.StatusLead,
	})
	s.Require().NoError(err)
	s.Equal(s.admin.ID, p.OwnerID)

	logs := s.auditFor(p.ID)
	s.Require().Len(logs, 1)
	s.Equal(models.ActionCreate, logs[0].Action)
	s.Equal(map[string]any{
		"title":  "Website Redesign",
		"client": "Acme Corp",
		"budget": float64(12000),
		"status": "LEAD",
	}, plain(logs[0].Diff))

	// admin assigns a member
	_, err = s.svc.SetMembers(s.ctx, s.admin, p.ID, projects.MembersInput{MemberIDs: []string{s.assignee.ID}})
	s.Require().NoError(err)

	logs = s.auditFor(p.ID)
	s.Require().Len(logs, 2)
	s.Equal(models.ActionUpdate, logs[0].Action)
	s.Equal(map[string]any{
		"members": map[string]any{"from": []any{}, "to": []any{s.assignee.ID}},
	}, plain(logs[0].Diff))

	// member moves the status
	_, err = s.svc.Update(s.ctx, s.assignee, p.ID, projects.UpdateInput{Status: ptr(models.StatusInProgress)})
	s.Require().NoError(err)

	logs = s.auditFor(p.ID)
	s.Require().Len(logs, 3)
	s.Equal(s.assignee.ID, logs[0].UserID)
	s.Equal(map[string]any{
		"status": map[string]any{"from": "LEAD", "to": "IN_PROGRESS"},
	}, plain(logs[0].Diff))

	// admin deletes
	s.Require().NoError(s.svc.Delete(s.ctx, s.admin, p.ID))

	page, err := s.svc.List(s.ctx, s.admin, projects.Query{})
	s.Require().NoError(err)
	s.Zero(page.Total)

	logs = s.auditFor(p.ID)
	s.Require().Len(logs, 4)
	s.Equal(models.ActionDelete, logs[0].Action)
	s.Equal(map[string]any{"id": p.ID}, plain(logs[0].Diff))
}

func (s *ServiceSuite) TestStrangerCannotSeeOrMutate() {
	p := s.ownedWithAssignee()

	page, err := s.svc.List(s.ctx, s.stranger, projects.Query{})
	s.Require().NoError(err)
	s.Zero(page.Total)
	s.Empty(page.Items)

	_, err = s.svc.Get(s.ctx, s.stranger, p.ID)
	s.Equal(apperr.CodeForbidden, apperr.CodeOf(err))

	_, err = s.svc.Update(s.ctx, s.stranger, p.ID, projects.UpdateInput{Status: ptr(models.StatusDone)})
	s.Equal(apperr.CodeForbidden, apperr.CodeOf(err))

	_, err = s.svc.SetMembers(s.ctx, s.stranger, p.ID, projects.MembersInput{MemberIDs: []string{s.stranger.ID}})
	s.Equal(apperr.CodeForbidden, apperr.CodeOf(err))

	s.Equal(apperr.CodeForbidden, apperr.CodeOf(s.svc.Delete(s.ctx, s.stranger, p.ID)))

	stored, err := s.projects.FindByID(s.ctx, p.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusLead, stored.Status)
	s.Equal(3.0, testutil.ToFloat64(s.metrics.AccessDenied.WithLabelValues("update"))+
		testutil.ToFloat64(s.metrics.AccessDenied.WithLabelValues("set_members"))+
		testutil.ToFloat64(s.metrics.AccessDenied.WithLabelValues("delete")))
}

func (s *ServiceSuite) TestAssigneeIsStatusOnly() {
	p := s.ownedWithAssignee()

	updated, err := s.svc.Update(s.ctx, s.assignee, p.ID, projects.UpdateInput{
		Title:  ptr("X"),
		Status: ptr(models.StatusDone),
	})
	s.Require().NoError(err)
	s.Equal("Website Redesign", updated.Title)
	s.Equal(models.StatusDone, updated.Status)

	stored, err := s.projects.FindByID(s.ctx, p.ID)
	s.Require().NoError(err)
	s.Equal("Website Redesign", stored.Title)
	s.Equal(models.StatusDone, stored.Status)

	logs := s.auditFor(p.ID)
	s.Require().NotEmpty(logs)
	s.Equal([]string{"status"}, keys(logs[0].Diff))
}

func (s *ServiceSuite) TestAssigneeSubmittingOnlyOtherFieldsChangesNothing() {
	p := s.ownedWithAssignee()
	before := len(s.auditFor(p.ID))

	updated, err := s.svc.Update(s.ctx, s.assignee, p.ID, projects.UpdateInput{Budget: ptr(int64(1))})
	s.Require().NoError(err)
	s.Equal(int64(12000), updated.Budget)
	s.Len(s.auditFor(p.ID), before)
}

func (s *ServiceSuite) TestOwnerHasFullScope() {
	p := s.createAs(s.owner, "Mobile App", "Globex")

	updated, err := s.svc.Update(s.ctx, s.owner, p.ID, projects.UpdateInput{Budget: ptr(int64(15000))})
	s.Require().NoError(err)
	s.Equal(int64(15000), updated.Budget)

	logs := s.auditFor(p.ID)
	s.Equal(map[string]any{
		"budget": map[string]any{"from": float64(12000), "to": float64(15000)},
	}, plain(logs[0].Diff))
}

func (s *ServiceSuite) TestEmptyDiffIsNotRecorded() {
	p := s.createAs(s.owner, "Mobile App", "Globex")
	versionBefore := p.Version

	_, err := s.svc.Update(s.ctx, s.owner, p.ID, projects.UpdateInput{Title: ptr("Mobile App")})
	s.Require().NoError(err)
	_, err = s.svc.SetMembers(s.ctx, s.admin, p.ID, projects.MembersInput{})
	s.Require().NoError(err)

	s.Len(s.auditFor(p.ID), 1)
	stored, err := s.projects.FindByID(s.ctx, p.ID)
	s.Require().NoError(err)
	s.Equal(versionBefore, stored.Version)
}

func (s *ServiceSuite) TestOwnerCannotDelete() {
	p := s.createAs(s.owner, "CRM Migration", "Initech")

	err := s.svc.Delete(s.ctx, s.owner, p.ID)
	s.Equal(apperr.CodeForbidden, apperr.CodeOf(err))

	_, err = s.projects.FindByID(s.ctx, p.ID)
	s.NoError(err)
}

func (s *ServiceSuite) TestCheckOrder() {
	s.Run("role gate runs before existence", func() {
		err := s.svc.Delete(s.ctx, s.owner, "missing")
		s.Equal(apperr.CodeForbidden, apperr.CodeOf(err))

		_, err = s.svc.SetMembers(s.ctx, s.owner, "missing", projects.MembersInput{})
		s.Equal(apperr.CodeForbidden, apperr.CodeOf(err))
	})

	s.Run("existence runs before project scope", func() {
		_, err := s.svc.Update(s.ctx, s.stranger, "missing", projects.UpdateInput{Status: ptr(models.StatusDone)})
		s.Equal(apperr.CodeNotFound, apperr.CodeOf(err))

		s.Equal(apperr.CodeNotFound, apperr.CodeOf(s.svc.Delete(s.ctx, s.admin, "missing")))
	})

	s.Run("validation runs before anything else", func() {
		_, err := s.svc.Update(s.ctx, s.stranger, "missing", projects.UpdateInput{Title: ptr("X")})
		s.Equal(apperr.CodeValidation, apperr.CodeOf(err))
	})
}

func (s *ServiceSuite) TestCreateMembers() {
	s.Run("non-admin members are dropped", func() {
		p, err := s.svc.Create(s.ctx, s.owner, projects.CreateInput{
			Title: "SEO Campaign", Client: "Umbrella", Budget: ptr(int64(8000)),
			Members: []string{s.stranger.ID},
		})
		s.Require().NoError(err)
		s.Empty(p.MemberIDs())
		s.NotContains(s.auditFor(p.ID)[0].Diff, "members")
	})

	s.Run("admin members are kept and recorded", func() {
		p, err := s.svc.Create(s.ctx, s.admin, projects.CreateInput{
			Title: "Data Pipeline", Client: "Soylent", Budget: ptr(int64(35000)),
			Members: []string{s.assignee.ID, s.assignee.ID},
		})
		s.Require().NoError(err)
		s.Equal([]string{s.assignee.ID}, p.MemberIDs())
		s.Equal([]any{s.assignee.ID}, plain(s.auditFor(p.ID)[0].Diff)["members"])

		page, err := s.svc.List(s.ctx, s.assignee, projects.Query{Q: "soylent"})
		s.Require().NoError(err)
		s.Equal(int64(1), page.Total)
	})

	s.Run("unknown member ids are rejected", func() {
		_, err := s.svc.Create(s.ctx, s.admin, projects.CreateInput{
			Title: "Support Retainer", Client: "Stark Industries", Budget: ptr(int64(6000)),
			Members: []string{"ghost"},
		})
		s.Equal(apperr.CodeValidation, apperr.CodeOf(err))
		s.Contains(apperr.FieldsOf(err), "memberIds")
	})
}

func (s *ServiceSuite) TestSetMembersRejectsUnknownUsers() {
	p := s.createAs(s.owner, "Mobile App", "Globex")

	_, err := s.svc.SetMembers(s.ctx, s.admin, p.ID, projects.MembersInput{MemberIDs: []string{s.assignee.ID, "ghost"}})
	s.Equal(apperr.CodeValidation, apperr.CodeOf(err))

	stored, err := s.projects.FindByID(s.ctx, p.ID)
	s.Require().NoError(err)
	s.Empty(stored.MemberIDs())
}

func (s *ServiceSuite) TestListFiltersAndPaging() {
	for i := 0; i < 25; i++ {
		s.createAs(s.owner, fmt.Sprintf("Project %02d", i), "Initech")
	}
	s.createAs(s.admin, "Website Redesign", "Acme Corp")
	s.createAs(s.admin, "Mobile App", "Globex")

	page, err := s.svc.List(s.ctx, s.owner, projects.Query{Page: 3, Size: 10})
	s.Require().NoError(err)
	s.Equal(int64(25), page.Total)
	s.Len(page.Items, 5)
	s.Equal(3, page.Page)
	s.Equal(10, page.Size)

	page, err = s.svc.List(s.ctx, s.admin, projects.Query{Q: "acme"})
	s.Require().NoError(err)
	s.Require().Len(page.Items, 1)
	s.Equal("Acme Corp", page.Items[0].Client)

	page, err = s.svc.List(s.ctx, s.admin, projects.Query{Size: 1000})
	s.Require().NoError(err)
	s.Equal(100, page.Size)
	s.Len(page.Items, 27)
}

func (s *ServiceSuite) TestAuditFailureDoesNotFailMutation() {
	appender := &failingAppender{}
	appender.On("Append", mock.Anything, mock.Anything).Return(errors.New("audit store unavailable"))
	svc := projects.NewService(s.projects, appender, s.users, s.metrics, dbtest.DiscardLogger())

	p, err := svc.Create(s.ctx, s.owner, projects.CreateInput{Title: "Mobile App", Client: "Globex", Budget: ptr(int64(1))})
	s.Require().NoError(err)

	_, err = s.projects.FindByID(s.ctx, p.ID)
	s.Require().NoError(err)
	s.Equal(1.0, testutil.ToFloat64(s.metrics.AuditAppendFailures))
	appender.AssertNumberOfCalls(s.T(), "Append", 1)
}

func (s *ServiceSuite) TestConcurrentWriterIsReplayed() {
	p := s.createAs(s.owner, "Website Redesign", "Acme Corp")
	racing := &racingStore{ProjectStore: s.projects, race: func(ctx context.Context, id string) error {
		other, err := s.projects.FindByID(ctx, id)
		if err != nil {
			return err
		}
		other.Client = "Acme Holdings"
		return s.projects.Update(ctx, other, other.Version)
	}}
	svc := projects.NewService(racing, s.audit, s.users, s.metrics, dbtest.DiscardLogger())

	updated, err := svc.Update(s.ctx, s.owner, p.ID, projects.UpdateInput{Budget: ptr(int64(20000))})
	s.Require().NoError(err)
	s.Equal("Acme Holdings", updated.Client)
	s.Equal(int64(20000), updated.Budget)
	s.Equal(3, updated.Version)

	logs := s.auditFor(p.ID)
	s.Equal([]string{"budget"}, keys(logs[0].Diff))
}

func (s *ServiceSuite) TestPersistentConflictGivesUp() {
	p := s.createAs(s.owner, "Website Redesign", "Acme Corp")
	svc := projects.NewService(&conflictingStore{ProjectStore: s.projects}, s.audit, s.users, s.metrics, dbtest.DiscardLogger())

	_, err := svc.Update(s.ctx, s.owner, p.ID, projects.UpdateInput{Budget: ptr(int64(1))})
	s.Equal(apperr.CodeConflict, apperr.CodeOf(err))
	s.Len(s.auditFor(p.ID), 1)
}

// Two actors updating different fields at once: both changes land and each
// audit entry holds only its own field.
func (s *ServiceSuite) TestParallelUpdatesSerialize() {
	p := s.ownedWithAssignee()

	var wg sync.WaitGroup
	errs := make([]error, 2)
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, errs[0] = s.svc.Update(s.ctx, s.owner, p.ID, projects.UpdateInput{Budget: ptr(int64(99000))})
	}()
	go func() {
		defer wg.Done()
		_, errs[1] = s.svc.Update(s.ctx, s.assignee, p.ID, projects.UpdateInput{Status: ptr(models.StatusOnHold)})
	}()
	wg.Wait()
	s.Require().NoError(errs[0])
	s.Require().NoError(errs[1])

	stored, err := s.projects.FindByID(s.ctx, p.ID)
	s.Require().NoError(err)
	s.Equal(int64(99000), stored.Budget)
	s.Equal(models.StatusOnHold, stored.Status)

	logs := s.auditFor(p.ID)
	var changed [][]string
	for _, l := range logs[:2] {
		changed = append(changed, keys(l.Diff))
	}
	s.ElementsMatch([][]string{{"budget"}, {"status"}}, changed)
}

// plain decodes a stored diff the way an API client sees it.
func plain(d datatypes.JSONMap) map[string]any {
	raw, err := json.Marshal(d)
	if err != nil {
		panic(err)
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		panic(err)
	}
	return out
}

func keys(m map[string]any) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

type failingAppender struct {
	mock.Mock
}

func (f *failingAppender) Append(ctx context.Context, entry *models.AuditLog) error {
	return f.Called(ctx, entry).Error(0)
}

// racingStore lets another writer commit right before the first update.
type racingStore struct {
	projects.ProjectStore
	race  func(ctx context.Context, id string) error
	raced bool
}

func (r *racingStore) Update(ctx context.Context, p *models.Project, expectedVersion int) error {
	if !r.raced {
		r.raced = true
		if err := r.race(ctx, p.ID); err != nil {
			return err
		}
	}
	return r.ProjectStore.Update(ctx, p, expectedVersion)
}

type conflictingStore struct {
	projects.ProjectStore
}

func (c *conflictingStore) Update(context.Context, *models.Project, int) error {
	return fmt.Errorf("update project: %w", database.ErrConflict)
}
