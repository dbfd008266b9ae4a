package competition

import (
	"ctf-portal/internal/domain"
	"ctf-portal/internal/normalize"
)

// Status values reported by the platform.
const (
	StatusDraft     = "DRAFT"
	StatusPublished = "PUBLISHED"
	StatusOngoing   = "ONGOING"
	StatusFinished  = "FINISHED"
	StatusCancelled = "CANCELLED"
)

type Competition struct {
	ID            normalize.ID   `json:"id"`
	Title         string         `json:"title"`
	Introduction  string         `json:"introduction,omitempty"`
	TeamSizeLimit int            `json:"teamSizeLimit,omitempty"`
	MaxTeams      int            `json:"maxTeams,omitempty"`
	StartTime     normalize.Time `json:"startTime"`
	EndTime       normalize.Time `json:"endTime"`
	PublishTime   normalize.Time `json:"publishTime"`
	Status        string         `json:"status,omitempty"`
	AuditStatus   string         `json:"auditStatus,omitempty"`
	AuditRemark   string         `json:"auditRemark,omitempty"`
	Public        bool           `json:"public"`
	CreatorID     normalize.ID   `json:"creatorId,omitempty"`
	CreatorName   string         `json:"creatorName,omitempty"`
}

func (c *Competition) UnmarshalJSON(b []byte) error {
	var wire struct {
		Introduction  string `json:"introduction"`
		TeamSizeLimit int    `json:"teamSizeLimit"`
		MaxTeams      int    `json:"maxTeams"`
		AuditRemark   string `json:"auditRemark"`
	}
	rec, id, err := normalize.DecodeEntity(b, normalize.Competition, &wire)
	if err != nil {
		return err
	}
	public, ok := rec.Bool("isPublic", "public")
	if !ok {
		public = true
	}
	creator := rec.Child("creator")
	creatorName := creator.Name(normalize.User)
	if creatorName == "" {
		creatorName = rec.String("creatorName")
	}
	*c = Competition{
		ID:            id,
		Title:         rec.Name(normalize.Competition),
		Introduction:  wire.Introduction,
		TeamSizeLimit: wire.TeamSizeLimit,
		MaxTeams:      wire.MaxTeams,
		StartTime:     rec.Time("startTime", "startAt"),
		EndTime:       rec.Time("endTime", "endAt"),
		PublishTime:   rec.Time("publishTime"),
		Status:        rec.Text("status"),
		AuditStatus:   rec.Text("auditStatus"),
		AuditRemark:   wire.AuditRemark,
		Public:        public,
		CreatorID:     rec.RefID("creator", normalize.User, "creatorId", "creatorID"),
		CreatorName:   creatorName,
	}
	return nil
}

// CreateRequest is the payload for creating a competition. Times use the
// platform's local date-time layout, e.g. 2024-10-15T10:00:00.
type CreateRequest struct {
	Title         string `json:"title" validate:"required,notblank,max=100"`
	Introduction  string `json:"introduction,omitempty" validate:"max=2000"`
	TeamSizeLimit int    `json:"teamSizeLimit,omitempty" validate:"omitempty,min=1,max=20"`
	MaxTeams      int    `json:"maxTeams,omitempty" validate:"omitempty,min=1"`
	StartTime     string `json:"startTime" validate:"required,datetime=2006-01-02T15:04:05"`
	EndTime       string `json:"endTime" validate:"required,datetime=2006-01-02T15:04:05"`
	IsPublic      *bool  `json:"isPublic,omitempty"`
}

// ListQuery filters the public competition list. Type is one of ongoing,
// upcoming, finished, my or all; Keyword takes precedence over Type.
type ListQuery struct {
	domain.PageQuery
	Type    string
	Keyword string
	Sort    string
}

// Statistics is the free-form figures map the platform returns.
type Statistics map[string]any
