package team

import (
	"encoding/json"

	"ctf-portal/internal/domain"
	"ctf-portal/internal/normalize"
)

// Audit states. Older endpoints report the numeric codes, newer ones the
// names.
const (
	AuditPending  = "0"
	AuditApproved = "1"
	AuditRejected = "2"
)

// Application statuses.
const (
	StatusPending  = "PENDING"
	StatusApproved = "APPROVED"
	StatusRejected = "REJECTED"
)

type Member struct {
	UserID   normalize.ID   `json:"userId"`
	Name     string         `json:"name"`
	Email    string         `json:"email,omitempty"`
	Phone    string         `json:"phone,omitempty"`
	Captain  bool           `json:"captain"`
	JoinedAt normalize.Time `json:"joinedAt"`
}

// UnmarshalJSON accepts both the membership row ({"user": {...},
// "joinTime": ...}) and the flattened member view.
func (m *Member) UnmarshalJSON(b []byte) error {
	rec := normalize.ParseRecord(b)
	user := rec
	if child := rec.Child("user"); len(child) > 0 {
		user = child
	}
	id, err := user.ID(normalize.User)
	if err != nil {
		return err
	}
	captain, _ := rec.Bool("isCaptain", "captain")
	*m = Member{
		UserID:   id,
		Name:     user.Name(normalize.User),
		Email:    user.String("userEmail", "email"),
		Phone:    user.String("phoneNumber", "phone"),
		Captain:  captain,
		JoinedAt: rec.Time("joinTime", "joinedAt"),
	}
	return nil
}

type Team struct {
	ID               normalize.ID   `json:"id"`
	Name             string         `json:"name"`
	Description      string         `json:"description,omitempty"`
	CompetitionID    normalize.ID   `json:"competitionId,omitempty"`
	CompetitionTitle string         `json:"competitionTitle,omitempty"`
	CaptainID        normalize.ID   `json:"captainId,omitempty"`
	CaptainName      string         `json:"captainName,omitempty"`
	AuditState       string         `json:"auditState,omitempty"`
	AuditRemark      string         `json:"auditRemark,omitempty"`
	AuditedAt        normalize.Time `json:"auditedAt"`
	CreatedAt        normalize.Time `json:"createdAt"`
	Members          []Member       `json:"members"`
}

func (t *Team) UnmarshalJSON(b []byte) error {
	var wire struct {
		Description string `json:"description"`
		AuditRemark string `json:"auditRemark"`
	}
	rec, id, err := normalize.DecodeEntity(b, normalize.Team, &wire)
	if err != nil {
		return err
	}
	competition := rec.Child("competition").Name(normalize.Competition)
	if competition == "" {
		competition = rec.String("competitionName", "competitionTitle")
	}
	captain := rec.Child("captain").Name(normalize.User)
	if captain == "" {
		captain = rec.String("captainName")
	}
	members := []Member{}
	for _, key := range []string{"members", "teamMembers"} {
		raw, ok := rec[key]
		if !ok {
			continue
		}
		var list []json.RawMessage
		if err := json.Unmarshal(raw, &list); err != nil {
			continue
		}
		for _, item := range list {
			var m Member
			if err := json.Unmarshal(item, &m); err == nil {
				members = append(members, m)
			}
		}
		break
	}
	*t = Team{
		ID:               id,
		Name:             rec.Name(normalize.Team),
		Description:      wire.Description,
		CompetitionID:    rec.RefID("competition", normalize.Competition, "competitionId", "competitionID"),
		CompetitionTitle: competition,
		CaptainID:        rec.RefID("captain", normalize.User, "captainId", "captainID"),
		CaptainName:      captain,
		AuditState:       rec.Text("auditState"),
		AuditRemark:      wire.AuditRemark,
		AuditedAt:        rec.Time("auditTime", "auditedAt"),
		CreatedAt:        rec.Time("creationTime", "createTime", "createdAt"),
		Members:          members,
	}
	return nil
}

// Approved reports whether the team passed review.
func (t *Team) Approved() bool {
	return t.AuditState == AuditApproved || t.AuditState == StatusApproved
}

// IsCaptain reports whether user leads the team.
func (t *Team) IsCaptain(user normalize.ID) bool {
	return user != 0 && t.CaptainID == user
}

// AuditLabel renders the audit state for display.
func AuditLabel(state string) string {
	switch state {
	case AuditPending, StatusPending:
		return "pending"
	case AuditApproved, StatusApproved:
		return "approved"
	case AuditRejected, StatusRejected:
		return "rejected"
	case "":
		return "-"
	}
	return state
}

type Application struct {
	ID            normalize.ID   `json:"id"`
	TeamID        normalize.ID   `json:"teamId,omitempty"`
	TeamName      string         `json:"teamName,omitempty"`
	ApplicantID   normalize.ID   `json:"applicantId,omitempty"`
	ApplicantName string         `json:"applicantName,omitempty"`
	Status        string         `json:"status"`
	Remark        string         `json:"remark,omitempty"`
	AppliedAt     normalize.Time `json:"appliedAt"`
	ProcessedAt   normalize.Time `json:"processedAt"`
}

func (a *Application) UnmarshalJSON(b []byte) error {
	var wire struct {
		Remark string `json:"remark"`
	}
	rec, id, err := normalize.DecodeEntity(b, normalize.Application, &wire)
	if err != nil {
		return err
	}
	teamName := rec.Child("team").Name(normalize.Team)
	if teamName == "" {
		teamName = rec.String("teamName")
	}
	applicant := rec.Child("applicant").Name(normalize.User)
	if applicant == "" {
		applicant = rec.String("applicantName")
	}
	*a = Application{
		ID:            id,
		TeamID:        rec.RefID("team", normalize.Team, "teamId", "teamID"),
		TeamName:      teamName,
		ApplicantID:   rec.RefID("applicant", normalize.User, "applicantId", "applicantID"),
		ApplicantName: applicant,
		Status:        rec.Text("status"),
		Remark:        wire.Remark,
		AppliedAt:     rec.Time("applyTime", "appliedAt"),
		ProcessedAt:   rec.Time("processTime", "processedAt"),
	}
	return nil
}

// Eligibility answers whether the caller may apply to a team.
type Eligibility struct {
	CanJoin bool   `json:"canJoin"`
	Reason  string `json:"reason,omitempty"`
}

type CreateRequest struct {
	Name          string       `json:"teamName" validate:"required,notblank,max=50"`
	CompetitionID normalize.ID `json:"competitionId" validate:"required"`
	Description   string       `json:"description,omitempty" validate:"max=500"`
}

type UpdateRequest struct {
	Name        string `json:"teamName,omitempty" validate:"omitempty,notblank,max=50"`
	Description string `json:"description,omitempty" validate:"max=500"`
}

type ListQuery struct {
	domain.PageQuery
	CompetitionID normalize.ID
	AuditState    string
	Keyword       string
}

type ApplicationQuery struct {
	domain.PageQuery
	Status string
}

// Stats is the free-form figures map for one team.
type Stats map[string]any
