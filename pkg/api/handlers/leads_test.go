package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/salespipehq/salespipe/pkg/assignment"
	"github.com/salespipehq/salespipe/pkg/audit"
	"github.com/salespipehq/salespipe/pkg/domain"
	"github.com/salespipehq/salespipe/pkg/models"
	"github.com/salespipehq/salespipe/pkg/pipeline"
)

type fakeLeadRepo struct {
	leads  map[int]*models.Lead
	nextID int
}

func newFakeLeadRepo() *fakeLeadRepo {
	return &fakeLeadRepo{leads: map[int]*models.Lead{}, nextID: 1}
}

func (r *fakeLeadRepo) add(lead models.Lead) *models.Lead {
	lead.ID = r.nextID
	r.nextID++
	now := time.Now()
	lead.CreatedAt = now
	lead.UpdatedAt = now
	r.leads[lead.ID] = &lead
	return r.leads[lead.ID]
}

func (r *fakeLeadRepo) List(ctx context.Context, filter models.LeadFilter) ([]models.Lead, error) {
	var out []models.Lead
	for id := 1; id < r.nextID; id++ {
		lead, ok := r.leads[id]
		if !ok {
			continue
		}
		if filter.Stage != "" && lead.Stage != filter.Stage {
			continue
		}
		if filter.Unassigned && lead.AssignedTo != nil {
			continue
		}
		out = append(out, *lead)
	}
	return out, nil
}

func (r *fakeLeadRepo) GetByID(ctx context.Context, id int) (*models.Lead, error) {
	lead, ok := r.leads[id]
	if !ok {
		return nil, domain.NewNotFoundError("lead")
	}
	copied := *lead
	return &copied, nil
}

func (r *fakeLeadRepo) Create(ctx context.Context, lead *models.Lead) error {
	created := r.add(*lead)
	*lead = *created
	return nil
}

func (r *fakeLeadRepo) UpdateAssignee(ctx context.Context, leadID int, userID *int) error {
	lead, ok := r.leads[leadID]
	if !ok {
		return domain.NewNotFoundError("lead")
	}
	lead.AssignedTo = userID
	return nil
}

func (r *fakeLeadRepo) UpdateStage(ctx context.Context, leadID int, stage string) error {
	lead, ok := r.leads[leadID]
	if !ok {
		return domain.NewNotFoundError("lead")
	}
	lead.Stage = stage
	return nil
}

func (r *fakeLeadRepo) UpdateFollowUp(ctx context.Context, leadID int, at time.Time) error {
	lead, ok := r.leads[leadID]
	if !ok {
		return domain.NewNotFoundError("lead")
	}
	lead.NextFollowUp = &at
	return nil
}

func (r *fakeLeadRepo) ListUnassigned(ctx context.Context) ([]models.Lead, error) {
	return r.List(ctx, models.LeadFilter{Unassigned: true})
}

func (r *fakeLeadRepo) ListFollowUpsDue(ctx context.Context, by time.Time) ([]models.Lead, error) {
	return nil, nil
}

type fakeUserRepo struct {
	users map[int]*models.User
}

func (r *fakeUserRepo) List(ctx context.Context, role string) ([]models.User, error) {
	var out []models.User
	for id := 1; id <= len(r.users); id++ {
		if u, ok := r.users[id]; ok && (role == "" || u.Role == role) {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id int) (*models.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, domain.NewNotFoundError("user")
	}
	copied := *u
	return &copied, nil
}

func (r *fakeUserRepo) ListEligibleAgents(ctx context.Context) ([]models.User, error) {
	var out []models.User
	for id := 1; id <= len(r.users); id++ {
		if u, ok := r.users[id]; ok && u.IsEligibleAgent() {
			out = append(out, *u)
		}
	}
	return out, nil
}

type fakeActivityRepo struct {
	activities []models.Activity
}

func (r *fakeActivityRepo) Create(ctx context.Context, a *models.Activity) error {
	a.ID = len(r.activities) + 1
	a.CreatedAt = time.Now()
	r.activities = append(r.activities, *a)
	return nil
}

func (r *fakeActivityRepo) ListByLead(ctx context.Context, leadID, limit int) ([]models.Activity, error) {
	var out []models.Activity
	for i := len(r.activities) - 1; i >= 0; i-- {
		if r.activities[i].LeadID == leadID {
			out = append(out, r.activities[i])
		}
	}
	return out, nil
}

type testEnv struct {
	echo       *echo.Echo
	handler    *LeadHandler
	leads      *fakeLeadRepo
	users      *fakeUserRepo
	activities *fakeActivityRepo
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	leads := newFakeLeadRepo()
	users := &fakeUserRepo{users: map[int]*models.User{
		1: {ID: 1, Name: "Alice", Role: models.RoleSalesExecutive, Active: true},
		2: {ID: 2, Name: "Bob", Role: models.RoleSalesExecutive, Active: true},
	}}
	activities := &fakeActivityRepo{}

	auditService := audit.NewService(activities, nil)
	service := assignment.NewService(leads, users, auditService, pipeline.Default(), nil, nil)

	e := echo.New()
	e.Validator = NewValidator()

	return &testEnv{
		echo:       e,
		handler:    NewLeadHandler(service, leads, nil, nil, nil),
		leads:      leads,
		users:      users,
		activities: activities,
	}
}

func (env *testEnv) request(method, path, body string) (echo.Context, *httptest.ResponseRecorder) {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	return env.echo.NewContext(req, rec), rec
}

func TestListLeads_FiltersByStage(t *testing.T) {
	env := newTestEnv(t)
	env.leads.add(models.Lead{Name: "Acme", Stage: "new"})
	env.leads.add(models.Lead{Name: "Globex", Stage: "qualified"})

	c, rec := env.request(http.MethodGet, "/api/v1/leads?stage=qualified", "")
	require.NoError(t, env.handler.ListLeads(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var got []models.Lead
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "Globex", got[0].Name)
}

func TestListLeads_EmptyIsJSONArray(t *testing.T) {
	env := newTestEnv(t)

	c, rec := env.request(http.MethodGet, "/api/v1/leads", "")
	require.NoError(t, env.handler.ListLeads(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]", strings.TrimSpace(rec.Body.String()))
}

func TestCreateLead_ForcesFirstStage(t *testing.T) {
	env := newTestEnv(t)

	c, rec := env.request(http.MethodPost, "/api/v1/leads", `{"name":"Acme Corp","value":1000}`)
	require.NoError(t, env.handler.CreateLead(c))
	assert.Equal(t, http.StatusCreated, rec.Code)

	var got models.Lead
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "new", got.Stage)
}

func TestCreateLead_MissingNameRejected(t *testing.T) {
	env := newTestEnv(t)

	c, rec := env.request(http.MethodPost, "/api/v1/leads", `{"value":1000}`)
	require.NoError(t, env.handler.CreateLead(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAutoAssign_ReturnsReport(t *testing.T) {
	env := newTestEnv(t)
	for i := 0; i < 5; i++ {
		env.leads.add(models.Lead{Name: "Lead", Stage: "new"})
	}

	c, rec := env.request(http.MethodPost, "/api/v1/leads/auto-assign", "")
	require.NoError(t, env.handler.AutoAssign(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var report assignment.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, 5, report.Assigned)
	assert.Equal(t, 0, report.Failed)
}

func TestAssignLead_Manual(t *testing.T) {
	env := newTestEnv(t)
	lead := env.leads.add(models.Lead{Name: "Acme", Stage: "new"})

	c, rec := env.request(http.MethodPatch, "/api/v1/leads/1/assign", `{"user_id":2}`)
	c.SetParamNames("id")
	c.SetParamValues("1")
	require.NoError(t, env.handler.AssignLead(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	require.NotNil(t, env.leads.leads[lead.ID].AssignedTo)
	assert.Equal(t, 2, *env.leads.leads[lead.ID].AssignedTo)
}

func TestAssignLead_UnknownLead(t *testing.T) {
	env := newTestEnv(t)

	c, rec := env.request(http.MethodPatch, "/api/v1/leads/99/assign", `{"user_id":1}`)
	c.SetParamNames("id")
	c.SetParamValues("99")
	require.NoError(t, env.handler.AssignLead(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAssignLead_BadIDParam(t *testing.T) {
	env := newTestEnv(t)

	c, rec := env.request(http.MethodPatch, "/api/v1/leads/abc/assign", `{"user_id":1}`)
	c.SetParamNames("id")
	c.SetParamValues("abc")
	require.NoError(t, env.handler.AssignLead(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChangeStage_MovesLead(t *testing.T) {
	env := newTestEnv(t)
	lead := env.leads.add(models.Lead{Name: "Acme", Stage: "new"})

	c, rec := env.request(http.MethodPatch, "/api/v1/leads/1/stage", `{"stage":"qualified"}`)
	c.SetParamNames("id")
	c.SetParamValues("1")
	require.NoError(t, env.handler.ChangeStage(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "qualified", env.leads.leads[lead.ID].Stage)
}

func TestChangeStage_UnknownStageRejected(t *testing.T) {
	env := newTestEnv(t)
	lead := env.leads.add(models.Lead{Name: "Acme", Stage: "new"})

	c, rec := env.request(http.MethodPatch, "/api/v1/leads/1/stage", `{"stage":"bogus"}`)
	c.SetParamNames("id")
	c.SetParamValues("1")
	require.NoError(t, env.handler.ChangeStage(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "new", env.leads.leads[lead.ID].Stage)
}

func TestScheduleFollowUp_SetsDate(t *testing.T) {
	env := newTestEnv(t)
	lead := env.leads.add(models.Lead{Name: "Acme", Stage: "new"})

	c, rec := env.request(http.MethodPatch, "/api/v1/leads/1/follow-up", `{"date":"2026-09-15","time":"14:30"}`)
	c.SetParamNames("id")
	c.SetParamValues("1")
	require.NoError(t, env.handler.ScheduleFollowUp(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	require.NotNil(t, env.leads.leads[lead.ID].NextFollowUp)
	got := *env.leads.leads[lead.ID].NextFollowUp
	assert.Equal(t, time.Date(2026, 9, 15, 14, 30, 0, 0, time.Local), got)
}

func TestScheduleFollowUp_MalformedDate(t *testing.T) {
	env := newTestEnv(t)
	env.leads.add(models.Lead{Name: "Acme", Stage: "new"})

	c, rec := env.request(http.MethodPatch, "/api/v1/leads/1/follow-up", `{"date":"15-09-2026"}`)
	c.SetParamNames("id")
	c.SetParamValues("1")
	require.NoError(t, env.handler.ScheduleFollowUp(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStages_ReturnsBoardOrder(t *testing.T) {
	env := newTestEnv(t)

	c, rec := env.request(http.MethodGet, "/api/v1/stages", "")
	require.NoError(t, env.handler.Stages(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var got []models.Stage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 6)
	assert.Equal(t, "new", got[0].ID)
	assert.Equal(t, "lost", got[5].ID)
}
