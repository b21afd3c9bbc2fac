package jobs

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/salespipehq/salespipe/pkg/dispatch"
	"github.com/salespipehq/salespipe/pkg/domain"
	"github.com/salespipehq/salespipe/pkg/models"
)

type fakeLeadRepo struct {
	due []models.Lead
}

func (r *fakeLeadRepo) List(ctx context.Context, f models.LeadFilter) ([]models.Lead, error) {
	return nil, nil
}
func (r *fakeLeadRepo) GetByID(ctx context.Context, id int) (*models.Lead, error) { return nil, nil }
func (r *fakeLeadRepo) Create(ctx context.Context, l *models.Lead) error          { return nil }
func (r *fakeLeadRepo) UpdateAssignee(ctx context.Context, id int, u *int) error  { return nil }
func (r *fakeLeadRepo) UpdateStage(ctx context.Context, id int, s string) error   { return nil }
func (r *fakeLeadRepo) UpdateFollowUp(ctx context.Context, id int, at time.Time) error {
	return nil
}
func (r *fakeLeadRepo) ListUnassigned(ctx context.Context) ([]models.Lead, error) { return nil, nil }
func (r *fakeLeadRepo) ListFollowUpsDue(ctx context.Context, by time.Time) ([]models.Lead, error) {
	return r.due, nil
}

type fakeUserRepo struct {
	users map[int]*models.User
}

func (r *fakeUserRepo) List(ctx context.Context, role string) ([]models.User, error) {
	return nil, nil
}
func (r *fakeUserRepo) GetByID(ctx context.Context, id int) (*models.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, domain.NewNotFoundError("user")
	}
	return u, nil
}
func (r *fakeUserRepo) ListEligibleAgents(ctx context.Context) ([]models.User, error) {
	return nil, nil
}

type fakeSecrets struct{}

func (fakeSecrets) GetSecret(ctx context.Context, key string) (string, error) {
	switch key {
	case "SENDGRID_API_KEY":
		return "SG.test", nil
	case "SENDGRID_FROM_EMAIL":
		return "noreply@salespipe.test", nil
	}
	return "", domain.NewConfigurationError("unknown secret: " + key)
}
func (fakeSecrets) RefreshCache(ctx context.Context) error { return nil }

type capturingEmailProvider struct {
	mu   sync.Mutex
	sent []dispatch.EmailMessage
}

func (p *capturingEmailProvider) Send(ctx context.Context, msg dispatch.EmailMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = append(p.sent, msg)
	return nil
}

func dueEarlier() *time.Time {
	at := time.Now().Add(-time.Hour).Truncate(time.Minute)
	return &at
}

func intPtr(v int) *int { return &v }

func TestSendFollowUpReminders_GroupsByAgent(t *testing.T) {
	provider := &capturingEmailProvider{}
	dispatcher := dispatch.New(dispatch.Config{}, fakeSecrets{}, nil,
		func(dispatch.EmailCredentials) dispatch.EmailProvider { return provider }, nil, nil, nil)

	leads := &fakeLeadRepo{due: []models.Lead{
		{ID: 1, Name: "Acme", Stage: "qualified", AssignedTo: intPtr(1), NextFollowUp: dueEarlier()},
		{ID: 2, Name: "Globex", Stage: "proposal", AssignedTo: intPtr(1), NextFollowUp: dueEarlier()},
		{ID: 3, Name: "Initech", Stage: "new", AssignedTo: intPtr(2), NextFollowUp: dueEarlier()},
	}}
	users := &fakeUserRepo{users: map[int]*models.User{
		1: {ID: 1, Name: "Alice", Email: "alice@salespipe.test"},
		2: {ID: 2, Name: "Bob", Email: "bob@salespipe.test"},
	}}

	s := NewScheduler(leads, users, dispatcher, nil)
	require.NoError(t, s.SendFollowUpReminders(context.Background()))

	require.Len(t, provider.sent, 2)
	byTo := map[string]dispatch.EmailMessage{}
	for _, msg := range provider.sent {
		byTo[msg.To] = msg
	}

	alice, ok := byTo["alice@salespipe.test"]
	require.True(t, ok)
	assert.Contains(t, alice.Subject, "2 lead(s)")
	assert.Contains(t, alice.TextBody, "Acme")
	assert.Contains(t, alice.TextBody, "Globex")

	bob, ok := byTo["bob@salespipe.test"]
	require.True(t, ok)
	assert.Contains(t, bob.TextBody, "Initech")
}

func TestSendFollowUpReminders_SkipsUnassigned(t *testing.T) {
	provider := &capturingEmailProvider{}
	dispatcher := dispatch.New(dispatch.Config{}, fakeSecrets{}, nil,
		func(dispatch.EmailCredentials) dispatch.EmailProvider { return provider }, nil, nil, nil)

	leads := &fakeLeadRepo{due: []models.Lead{
		{ID: 1, Name: "Orphan", Stage: "new", NextFollowUp: dueEarlier()},
	}}
	users := &fakeUserRepo{users: map[int]*models.User{}}

	s := NewScheduler(leads, users, dispatcher, nil)
	require.NoError(t, s.SendFollowUpReminders(context.Background()))
	assert.Empty(t, provider.sent)
}

func TestSendFollowUpReminders_NoDueLeads(t *testing.T) {
	provider := &capturingEmailProvider{}
	dispatcher := dispatch.New(dispatch.Config{}, fakeSecrets{}, nil,
		func(dispatch.EmailCredentials) dispatch.EmailProvider { return provider }, nil, nil, nil)

	s := NewScheduler(&fakeLeadRepo{}, &fakeUserRepo{users: map[int]*models.User{}}, dispatcher, nil)
	require.NoError(t, s.SendFollowUpReminders(context.Background()))
	assert.Empty(t, provider.sent)
}

func TestRegisterFollowUpReminders_RejectsBadSpec(t *testing.T) {
	s := NewScheduler(&fakeLeadRepo{}, &fakeUserRepo{}, nil, nil)
	assert.Error(t, s.RegisterFollowUpReminders("not a cron spec"))
	assert.NoError(t, s.RegisterFollowUpReminders("0 8 * * *"))
}
