package admin

import (
	"ctf-portal/internal/domain"
	"ctf-portal/internal/normalize"
)

// Stats is a free-form figures map (dashboard, team and competition
// statistics).
type Stats map[string]any

// UpdateUserRequest edits an account. Unset fields are left unchanged.
type UpdateUserRequest struct {
	UserName       string `json:"userName,omitempty" validate:"omitempty,notblank,min=2,max=32"`
	Email          string `json:"userEmail,omitempty" validate:"omitempty,email"`
	Phone          string `json:"phoneNumber,omitempty" validate:"omitempty,cnphone"`
	Gender         string `json:"gender,omitempty" validate:"omitempty,max=8"`
	SchoolWorkunit string `json:"schoolWorkunit,omitempty" validate:"omitempty,max=128"`
	UserType       string `json:"userType,omitempty" validate:"omitempty,oneof=ORDINARY ADMIN"`
	Active         *bool  `json:"userStatus,omitempty"`
}

// CompetitionRequest creates or edits a competition from the back office.
type CompetitionRequest struct {
	Title         string `json:"title" validate:"required,notblank,max=100"`
	Introduction  string `json:"introduction,omitempty" validate:"max=2000"`
	TeamSizeLimit int    `json:"teamSizeLimit,omitempty" validate:"omitempty,min=1,max=20"`
	MaxTeams      int    `json:"maxTeams,omitempty" validate:"omitempty,min=1"`
	StartTime     string `json:"startTime" validate:"required,datetime=2006-01-02T15:04:05"`
	EndTime       string `json:"endTime" validate:"required,datetime=2006-01-02T15:04:05"`
	Status        string `json:"status,omitempty" validate:"omitempty,oneof=DRAFT PUBLISHED ONGOING FINISHED CANCELLED"`
	IsPublic      *bool  `json:"isPublic,omitempty"`
}

type UserQuery struct {
	domain.PageQuery
	Sort    string
	Keyword string
}

type TeamQuery struct {
	domain.PageQuery
	CompetitionID normalize.ID
	AuditState    string
}

type CompetitionQuery struct {
	domain.PageQuery
	Status string
}
