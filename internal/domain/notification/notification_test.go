package notification

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"ctf-portal/internal/domain/flag"
	"ctf-portal/internal/domain/team"
	"ctf-portal/internal/normalize"
	"ctf-portal/internal/session"
)

var base = time.Date(2024, 10, 15, 10, 0, 0, 0, time.UTC)

func at(minutes int) normalize.Time {
	return normalize.Time{Time: base.Add(time.Duration(minutes) * time.Minute)}
}

type fakeSubmissions struct {
	items []flag.Submission
	err   error
}

func (f *fakeSubmissions) MySubmissions(ctx context.Context, q flag.SubmissionQuery) (normalize.Page[flag.Submission], error) {
	if f.err != nil {
		return normalize.EmptyPage[flag.Submission](), f.err
	}
	return normalize.Page[flag.Submission]{Items: f.items}, nil
}

type fakeTeams struct {
	teams     []team.Team
	apps      map[normalize.ID][]team.Application
	listErr   error
	appErr    map[normalize.ID]error
	appCalls  atomic.Int32
	gotStatus atomic.Value
}

func (f *fakeTeams) List(ctx context.Context, q team.ListQuery) (normalize.Page[team.Team], error) {
	if f.listErr != nil {
		return normalize.EmptyPage[team.Team](), f.listErr
	}
	return normalize.Page[team.Team]{Items: f.teams}, nil
}

func (f *fakeTeams) Applications(ctx context.Context, id normalize.ID, q team.ApplicationQuery) (normalize.Page[team.Application], error) {
	f.appCalls.Add(1)
	f.gotStatus.Store(q.Status)
	if err := f.appErr[id]; err != nil {
		return normalize.EmptyPage[team.Application](), err
	}
	return normalize.Page[team.Application]{Items: f.apps[id]}, nil
}

func newFixture(t *testing.T) (*Service, *fakeSubmissions, *fakeTeams) {
	subs := &fakeSubmissions{items: []flag.Submission{
		{ID: 501, Correct: true, PointsAwarded: 100, SubmittedAt: at(5), ChallengeID: 42, ChallengeTitle: "Easy Web"},
		{ID: 502, Correct: false, SubmittedAt: at(1)},
	}}
	teams := &fakeTeams{
		teams: []team.Team{
			{ID: 11, Name: "Alpha", CaptainID: 4, AuditState: team.AuditApproved, AuditedAt: at(3)},
			{ID: 12, Name: "Beta", CaptainID: 4, AuditState: team.AuditPending},
			{ID: 13, Name: "Gamma", CaptainID: 9, AuditState: "APPROVED", AuditedAt: at(9)},
		},
		apps: map[normalize.ID][]team.Application{
			11: {{ID: 70, ApplicantName: "frank", AppliedAt: at(7)}},
			12: {{ID: 71, AppliedAt: at(2)}},
		},
	}
	svc := NewService(subs, teams, zaptest.NewLogger(t))
	svc.now = func() time.Time { return base.Add(time.Hour) }
	return svc, subs, teams
}

func TestAllAggregatesNewestFirst(t *testing.T) {
	svc, _, teams := newFixture(t)

	got := svc.All(context.Background(), session.Principal{ID: 4, Name: "dave"})
	ids := make([]string, 0, len(got))
	for _, n := range got {
		ids = append(ids, n.ID)
	}
	assert.Equal(t, []string{"join-request-70", "flag-501", "team-audit-11", "join-request-71", "flag-502"}, ids)
	assert.Equal(t, int32(2), teams.appCalls.Load())
	assert.Equal(t, team.StatusPending, teams.gotStatus.Load())

	assert.Equal(t, KindJoinRequest, got[0].Kind)
	assert.Equal(t, `frank asked to join your team "Alpha"`, got[0].Message)
	assert.Equal(t, normalize.ID(70), got[0].ApplicationID)
	assert.Equal(t, "Easy Web: Correct flag, 100 points awarded", got[1].Message)
	assert.Equal(t, `A user asked to join your team "Beta"`, got[3].Message)
}

func TestAllSourceFailuresContributeNothing(t *testing.T) {
	svc, subs, teams := newFixture(t)
	subs.err = errors.New("boom")
	teams.appErr = map[normalize.ID]error{11: errors.New("boom")}

	got := svc.All(context.Background(), session.Principal{ID: 4})
	ids := make([]string, 0, len(got))
	for _, n := range got {
		ids = append(ids, n.ID)
	}
	assert.Equal(t, []string{"team-audit-11", "join-request-71"}, ids)

	teams.listErr = errors.New("boom")
	assert.Equal(t, []Notification{}, svc.All(context.Background(), session.Principal{ID: 4}))
}

func TestAllAnonymousIsEmpty(t *testing.T) {
	svc, _, teams := newFixture(t)
	assert.Equal(t, []Notification{}, svc.All(context.Background(), session.Principal{}))
	assert.Zero(t, teams.appCalls.Load())
}

func TestMissingTimeFallsBackToNow(t *testing.T) {
	svc, subs, teams := newFixture(t)
	subs.items = []flag.Submission{{ID: 600}}
	teams.teams = nil

	got := svc.All(context.Background(), session.Principal{ID: 4})
	require.Len(t, got, 1)
	assert.Equal(t, base.Add(time.Hour), got[0].Time)
	assert.Equal(t, "1 hour ago", got[0].Ago(base.Add(2*time.Hour)))
}

func TestTrackerPrimesThenReportsNew(t *testing.T) {
	tr := NewTracker()
	first := []Notification{{ID: "flag-1"}, {ID: "flag-2"}}
	assert.Empty(t, tr.Fresh(first))
	assert.Empty(t, tr.Fresh(first))

	next := append([]Notification{{ID: "join-request-9"}}, first...)
	assert.Equal(t, []Notification{{ID: "join-request-9"}}, tr.Fresh(next))
	assert.Empty(t, tr.Fresh(next))
}
