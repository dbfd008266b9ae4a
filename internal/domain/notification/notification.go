// Package notification derives the user's notices from platform state.
// The platform has no notification feed; notices are rebuilt on every call
// from flag submissions, team reviews and pending join requests.
package notification

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"ctf-portal/internal/domain"
	"ctf-portal/internal/domain/flag"
	"ctf-portal/internal/domain/team"
	"ctf-portal/internal/normalize"
	"ctf-portal/internal/session"
)

type Kind string

const (
	KindFlagSubmission Kind = "flag_submission"
	KindTeamAudit      Kind = "team_audit"
	KindJoinRequest    Kind = "member_join_request"
)

// Page sizes used when scanning each source.
const (
	submissionScan  = 50
	teamScan        = 100
	applicationScan = 50
	applicationJobs = 4
)

type Notification struct {
	ID            string       `json:"id"`
	Kind          Kind         `json:"type"`
	Title         string       `json:"title"`
	Message       string       `json:"message"`
	Time          time.Time    `json:"time"`
	ChallengeID   normalize.ID `json:"challengeId,omitempty"`
	TeamID        normalize.ID `json:"teamId,omitempty"`
	ApplicationID normalize.ID `json:"applicationId,omitempty"`
}

// Ago renders the notice's age relative to now, e.g. "3 minutes ago".
func (n Notification) Ago(now time.Time) string {
	return humanize.RelTime(n.Time, now, "ago", "from now")
}

type Submissions interface {
	MySubmissions(ctx context.Context, q flag.SubmissionQuery) (normalize.Page[flag.Submission], error)
}

type Teams interface {
	List(ctx context.Context, q team.ListQuery) (normalize.Page[team.Team], error)
	Applications(ctx context.Context, id normalize.ID, q team.ApplicationQuery) (normalize.Page[team.Application], error)
}

type Service struct {
	submissions Submissions
	teams       Teams
	logger      *zap.Logger
	now         func() time.Time
}

func NewService(submissions Submissions, teams Teams, logger *zap.Logger) *Service {
	return &Service{submissions: submissions, teams: teams, logger: logger, now: time.Now}
}

// All gathers the principal's notices, newest first. A source that fails
// contributes nothing; All itself never fails.
func (s *Service) All(ctx context.Context, p session.Principal) []Notification {
	if p.ID == 0 {
		return []Notification{}
	}

	var (
		mu  sync.Mutex
		out []Notification
	)
	collect := func(items []Notification) {
		mu.Lock()
		out = append(out, items...)
		mu.Unlock()
	}

	var g errgroup.Group
	g.Go(func() error {
		collect(s.flagNotices(ctx))
		return nil
	})
	g.Go(func() error {
		collect(s.teamNotices(ctx, p.ID))
		return nil
	})
	_ = g.Wait()

	if out == nil {
		return []Notification{}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Time.Equal(out[j].Time) {
			return out[i].Time.After(out[j].Time)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (s *Service) flagNotices(ctx context.Context) []Notification {
	page, err := s.submissions.MySubmissions(ctx, flag.SubmissionQuery{PageQuery: domain.PageQuery{Size: submissionScan}})
	if err != nil {
		s.logger.Warn("flag notices unavailable", zap.Error(err))
		return nil
	}
	out := make([]Notification, 0, len(page.Items))
	for _, sub := range page.Items {
		n := Notification{
			ID:          fmt.Sprintf("flag-%s", sub.ID),
			Kind:        KindFlagSubmission,
			Time:        s.timeOr(sub.SubmittedAt),
			ChallengeID: sub.ChallengeID,
		}
		if sub.Correct {
			n.Title = "Flag accepted"
			n.Message = fmt.Sprintf("Correct flag, %d points awarded", sub.PointsAwarded)
		} else {
			n.Title = "Flag rejected"
			n.Message = "The flag you submitted is incorrect, try again"
		}
		if sub.ChallengeTitle != "" {
			n.Message = sub.ChallengeTitle + ": " + n.Message
		}
		out = append(out, n)
	}
	return out
}

// teamNotices covers the teams the user captains: approved reviews and
// pending join requests.
func (s *Service) teamNotices(ctx context.Context, user normalize.ID) []Notification {
	page, err := s.teams.List(ctx, team.ListQuery{PageQuery: domain.PageQuery{Size: teamScan}})
	if err != nil {
		s.logger.Warn("team notices unavailable", zap.Error(err))
		return nil
	}

	var captained []team.Team
	for _, t := range page.Items {
		if t.IsCaptain(user) {
			captained = append(captained, t)
		}
	}

	var out []Notification
	for _, t := range captained {
		if !t.Approved() {
			continue
		}
		out = append(out, Notification{
			ID:      fmt.Sprintf("team-audit-%s", t.ID),
			Kind:    KindTeamAudit,
			Title:   "Team approved",
			Message: fmt.Sprintf("Your team %q passed review", t.Name),
			Time:    s.timeOr(t.AuditedAt, t.CreatedAt),
			TeamID:  t.ID,
		})
	}

	requests := make([][]Notification, len(captained))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(applicationJobs)
	for i, t := range captained {
		g.Go(func() error {
			requests[i] = s.joinRequests(gctx, t)
			return nil
		})
	}
	_ = g.Wait()
	for _, r := range requests {
		out = append(out, r...)
	}
	return out
}

func (s *Service) joinRequests(ctx context.Context, t team.Team) []Notification {
	q := team.ApplicationQuery{PageQuery: domain.PageQuery{Size: applicationScan}, Status: team.StatusPending}
	page, err := s.teams.Applications(ctx, t.ID, q)
	if err != nil {
		s.logger.Warn("join requests unavailable", zap.Stringer("team", t.ID), zap.Error(err))
		return nil
	}
	out := make([]Notification, 0, len(page.Items))
	for _, app := range page.Items {
		applicant := app.ApplicantName
		if applicant == "" {
			applicant = "A user"
		}
		out = append(out, Notification{
			ID:            fmt.Sprintf("join-request-%s", app.ID),
			Kind:          KindJoinRequest,
			Title:         "Join request",
			Message:       fmt.Sprintf("%s asked to join your team %q", applicant, t.Name),
			Time:          s.timeOr(app.AppliedAt),
			TeamID:        t.ID,
			ApplicationID: app.ID,
		})
	}
	return out
}

func (s *Service) timeOr(candidates ...normalize.Time) time.Time {
	for _, t := range candidates {
		if !t.IsZero() {
			return t.Time
		}
	}
	return s.now()
}
