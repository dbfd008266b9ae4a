package handler

import (
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"ctf-portal/internal/domain"
	"ctf-portal/internal/domain/admin"
	"ctf-portal/internal/domain/challenge"
	"ctf-portal/internal/domain/competition"
	"ctf-portal/internal/domain/flag"
	"ctf-portal/internal/domain/notification"
	"ctf-portal/internal/domain/team"
	"ctf-portal/internal/normalize"
	"ctf-portal/internal/session"
	"ctf-portal/pkg/errors"
)

const (
	dashboardCompetitions = 5
	dashboardSubmissions  = 5
	detailLeaderboard     = 10
)

// ViewHandler serves the guarded pages as JSON view models.
type ViewHandler struct {
	logger *zap.Logger
	now    func() time.Time
}

func NewViewHandler(logger *zap.Logger) *ViewHandler {
	return &ViewHandler{logger: logger, now: time.Now}
}

type guestView struct {
	Action string `json:"action"`
}

// Login describes the login page. The guard keeps authenticated users away.
func (h *ViewHandler) Login(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, r, guestView{Action: "/auth/login"}, http.StatusOK)
}

func (h *ViewHandler) Register(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, r, guestView{Action: "/auth/register"}, http.StatusOK)
}

type dashboardView struct {
	User          *session.Principal                      `json:"user"`
	Competitions  normalize.Page[competition.Competition] `json:"competitions"`
	Teams         normalize.Page[team.Team]               `json:"teams"`
	Submissions   normalize.Page[flag.Submission]         `json:"submissions"`
	Notifications int                                     `json:"notifications"`
}

func (h *ViewHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	a := agent(r)
	v := dashboardView{User: a.Session.Principal()}

	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() (err error) {
		v.Competitions, err = a.Competitions.List(ctx, competition.ListQuery{
			PageQuery: domain.PageQuery{Size: dashboardCompetitions},
			Type:      "ongoing",
		})
		return err
	})
	g.Go(func() (err error) {
		v.Teams, err = a.Teams.MyTeams(ctx, domain.PageQuery{})
		return err
	})
	g.Go(func() (err error) {
		v.Submissions, err = a.Flags.MySubmissions(ctx, flag.SubmissionQuery{
			PageQuery: domain.PageQuery{Size: dashboardSubmissions},
		})
		return err
	})
	if v.User != nil {
		g.Go(func() error {
			v.Notifications = len(a.Notifications.All(ctx, *v.User))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		WriteError(w, r, h.logger, err)
		return
	}
	WriteJSON(w, r, v, http.StatusOK)
}

func (h *ViewHandler) Competitions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := agent(r).Competitions.List(r.Context(), competition.ListQuery{
		PageQuery: pageQuery(r),
		Type:      q.Get("type"),
		Keyword:   q.Get("keyword"),
		Sort:      q.Get("sort"),
	})
	if err != nil {
		WriteError(w, r, h.logger, err)
		return
	}
	WriteJSON(w, r, page, http.StatusOK)
}

type competitionView struct {
	Competition *competition.Competition `json:"competition"`
	Challenges  []challenge.Challenge    `json:"challenges"`
	MyTeam      *team.Team               `json:"myTeam"`
	Leaderboard []flag.Entry             `json:"leaderboard"`
}

func (h *ViewHandler) Competition(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		WriteError(w, r, h.logger, err)
		return
	}
	a := agent(r)
	var v competitionView

	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() (err error) {
		v.Competition, err = a.Competitions.Get(ctx, id)
		return err
	})
	g.Go(func() (err error) {
		v.Challenges, err = a.Challenges.ByCompetition(ctx, id)
		return err
	})
	g.Go(func() error {
		v.MyTeam = a.Teams.MyTeam(ctx, id)
		return nil
	})
	g.Go(func() error {
		board, err := a.Flags.Leaderboard(ctx, id, domain.PageQuery{Size: detailLeaderboard})
		v.Leaderboard = board.Items
		return err
	})
	if err := g.Wait(); err != nil {
		WriteError(w, r, h.logger, err)
		return
	}
	WriteJSON(w, r, v, http.StatusOK)
}

type teamsView struct {
	Mine         normalize.Page[team.Team]        `json:"mine"`
	Applications normalize.Page[team.Application] `json:"applications"`
	// Browse lists the teams of one competition when competitionId is given.
	Browse *normalize.Page[team.Team] `json:"browse,omitempty"`
}

func (h *ViewHandler) Teams(w http.ResponseWriter, r *http.Request) {
	compID, err := queryID(r, "competitionId")
	if err != nil {
		WriteError(w, r, h.logger, err)
		return
	}
	a := agent(r)
	var v teamsView

	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() (err error) {
		v.Mine, err = a.Teams.MyTeams(ctx, domain.PageQuery{})
		return err
	})
	g.Go(func() (err error) {
		v.Applications, err = a.Teams.MyApplications(ctx, domain.PageQuery{})
		return err
	})
	if compID > 0 {
		g.Go(func() error {
			page, err := a.Teams.List(ctx, team.ListQuery{
				PageQuery:     pageQuery(r),
				CompetitionID: compID,
				Keyword:       r.URL.Query().Get("keyword"),
			})
			v.Browse = &page
			return err
		})
	}
	if err := g.Wait(); err != nil {
		WriteError(w, r, h.logger, err)
		return
	}
	WriteJSON(w, r, v, http.StatusOK)
}

func (h *ViewHandler) Problems(w http.ResponseWriter, r *http.Request) {
	compID, err := queryID(r, "competitionId")
	if err != nil {
		WriteError(w, r, h.logger, err)
		return
	}
	q := r.URL.Query()
	page, err := agent(r).Challenges.List(r.Context(), challenge.ListQuery{
		PageQuery:     pageQuery(r),
		CompetitionID: compID,
		Category:      q.Get("category"),
		Difficulty:    q.Get("difficulty"),
		Keyword:       q.Get("keyword"),
	})
	if err != nil {
		WriteError(w, r, h.logger, err)
		return
	}
	WriteJSON(w, r, page, http.StatusOK)
}

func (h *ViewHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	compID, err := queryID(r, "competitionId")
	if err == nil && compID == 0 {
		err = errors.NewBadRequestError("competitionId is required")
	}
	if err != nil {
		WriteError(w, r, h.logger, err)
		return
	}
	page, err := agent(r).Flags.Leaderboard(r.Context(), compID, pageQuery(r))
	if err != nil {
		WriteError(w, r, h.logger, err)
		return
	}
	WriteJSON(w, r, page, http.StatusOK)
}

type notificationView struct {
	notification.Notification
	Ago string `json:"ago"`
}

func (h *ViewHandler) Notifications(w http.ResponseWriter, r *http.Request) {
	a := agent(r)
	p := a.Session.Principal()
	if p == nil {
		WriteError(w, r, h.logger, errors.NewAuthenticationError("not logged in"))
		return
	}
	now := h.now()
	list := a.Notifications.All(r.Context(), *p)
	out := make([]notificationView, 0, len(list))
	for _, n := range list {
		out = append(out, notificationView{Notification: n, Ago: n.Ago(now)})
	}
	WriteJSON(w, r, out, http.StatusOK)
}

func (h *ViewHandler) Profile(w http.ResponseWriter, r *http.Request) {
	user, err := agent(r).Auth.Profile(r.Context())
	if err != nil {
		WriteError(w, r, h.logger, err)
		return
	}
	WriteJSON(w, r, user, http.StatusOK)
}

func (h *ViewHandler) Admin(w http.ResponseWriter, r *http.Request) {
	stats, err := agent(r).Admin.Dashboard(r.Context())
	if err != nil {
		WriteError(w, r, h.logger, err)
		return
	}
	WriteJSON(w, r, stats, http.StatusOK)
}

func (h *ViewHandler) AdminUsers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := agent(r).Admin.Users(r.Context(), admin.UserQuery{
		PageQuery: pageQuery(r),
		Sort:      q.Get("sort"),
		Keyword:   q.Get("keyword"),
	})
	if err != nil {
		WriteError(w, r, h.logger, err)
		return
	}
	WriteJSON(w, r, page, http.StatusOK)
}

func (h *ViewHandler) AdminTeams(w http.ResponseWriter, r *http.Request) {
	compID, err := queryID(r, "competitionId")
	if err != nil {
		WriteError(w, r, h.logger, err)
		return
	}
	page, err := agent(r).Admin.Teams(r.Context(), admin.TeamQuery{
		PageQuery:     pageQuery(r),
		CompetitionID: compID,
		AuditState:    r.URL.Query().Get("auditState"),
	})
	if err != nil {
		WriteError(w, r, h.logger, err)
		return
	}
	WriteJSON(w, r, page, http.StatusOK)
}

func (h *ViewHandler) AdminCompetitions(w http.ResponseWriter, r *http.Request) {
	page, err := agent(r).Admin.Competitions(r.Context(), admin.CompetitionQuery{
		PageQuery: pageQuery(r),
		Status:    r.URL.Query().Get("status"),
	})
	if err != nil {
		WriteError(w, r, h.logger, err)
		return
	}
	WriteJSON(w, r, page, http.StatusOK)
}

func (h *ViewHandler) AdminFlagSubmissions(w http.ResponseWriter, r *http.Request) {
	compID, err := queryID(r, "competitionId")
	if err != nil {
		WriteError(w, r, h.logger, err)
		return
	}
	userID, err := queryID(r, "userId")
	if err != nil {
		WriteError(w, r, h.logger, err)
		return
	}
	page, err := agent(r).Admin.FlagSubmissions(r.Context(), flag.SubmissionQuery{
		PageQuery:     pageQuery(r),
		CompetitionID: compID,
		UserID:        userID,
		Sort:          r.URL.Query().Get("sort"),
	})
	if err != nil {
		WriteError(w, r, h.logger, err)
		return
	}
	WriteJSON(w, r, page, http.StatusOK)
}

func pageQuery(r *http.Request) domain.PageQuery {
	return domain.PageQuery{Page: queryInt(r, "page"), Size: queryInt(r, "size")}
}
