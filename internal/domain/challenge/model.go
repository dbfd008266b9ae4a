package challenge

import (
	"encoding/json"

	"ctf-portal/internal/domain"
	"ctf-portal/internal/normalize"
)

// Difficulty levels used by the platform.
const (
	DifficultyEasy   = "Easy"
	DifficultyMedium = "Medium"
	DifficultyHard   = "Hard"
)

type Challenge struct {
	ID               normalize.ID   `json:"id"`
	CompetitionID    normalize.ID   `json:"competitionId,omitempty"`
	CompetitionTitle string         `json:"competitionTitle,omitempty"`
	Title            string         `json:"title"`
	Description      string         `json:"description,omitempty"`
	Category         string         `json:"category,omitempty"`
	Difficulty       string         `json:"difficulty,omitempty"`
	Points           int            `json:"points"`
	Active           bool           `json:"active"`
	CreatedAt        normalize.Time `json:"createdAt"`
	AttachmentURL    string         `json:"attachmentUrl,omitempty"`
	Hint             string         `json:"hint,omitempty"`
	SolveCount       int            `json:"solveCount"`
	Solved           bool           `json:"solved"`
}

func (c *Challenge) UnmarshalJSON(b []byte) error {
	var wire struct {
		Description   string `json:"description"`
		Category      string `json:"category"`
		Difficulty    string `json:"difficulty"`
		AttachmentURL string `json:"attachmentUrl"`
		Hint          string `json:"hint"`
	}
	rec, id, err := normalize.DecodeEntity(b, normalize.Challenge, &wire)
	if err != nil {
		return err
	}
	active, ok := rec.Bool("isActive", "active")
	if !ok {
		active = true
	}
	solved, _ := rec.Bool("solved")
	title := rec.Child("competition").Name(normalize.Competition)
	if title == "" {
		title = rec.String("competitionTitle")
	}
	*c = Challenge{
		ID:               id,
		CompetitionID:    rec.RefID("competition", normalize.Competition, "competitionId", "competitionID"),
		CompetitionTitle: title,
		Title:            rec.Name(normalize.Challenge),
		Description:      wire.Description,
		Category:         wire.Category,
		Difficulty:       wire.Difficulty,
		Points:           rec.Int("points", "score"),
		Active:           active,
		CreatedAt:        rec.Time("createTime", "createdAt"),
		AttachmentURL:    wire.AttachmentURL,
		Hint:             wire.Hint,
		SolveCount:       rec.Int("solveCount"),
		Solved:           solved,
	}
	return nil
}

type Hint struct {
	ID        normalize.ID   `json:"id"`
	Content   string         `json:"content"`
	Cost      int            `json:"cost"`
	CreatedAt normalize.Time `json:"createdAt"`
}

func (h *Hint) UnmarshalJSON(b []byte) error {
	var wire struct {
		Content string `json:"content"`
	}
	rec, id, err := normalize.DecodeEntity(b, normalize.Hint, &wire)
	if err != nil {
		return err
	}
	*h = Hint{
		ID:        id,
		Content:   wire.Content,
		Cost:      rec.Int("cost"),
		CreatedAt: rec.Time("createTime", "createdAt"),
	}
	return nil
}

// SubmitResult is the verdict on one flag submission. AlreadySolved is set
// when the caller had solved the challenge before; no submission is
// recorded in that case.
type SubmitResult struct {
	Correct       bool           `json:"isCorrect"`
	Message       string         `json:"message,omitempty"`
	SubmissionID  normalize.ID   `json:"submissionId,omitempty"`
	SubmittedAt   normalize.Time `json:"submitTime"`
	PointsAwarded int            `json:"pointsAwarded"`
	AlreadySolved bool           `json:"alreadySolved"`
}

func (r *SubmitResult) UnmarshalJSON(b []byte) error {
	rec := normalize.ParseRecord(b)
	correct, _ := rec.Bool("isCorrect", "correct")
	already, _ := rec.Bool("alreadySolved")
	*r = SubmitResult{
		Correct:       correct,
		Message:       rec.String("message"),
		SubmissionID:  rec.OptionalID(normalize.Submission),
		SubmittedAt:   rec.Time("submitTime", "submittedAt"),
		PointsAwarded: rec.Int("pointsAwarded", "points"),
		AlreadySolved: already,
	}
	return nil
}

type SubmitRequest struct {
	Flag string `json:"flag" validate:"required,notblank,max=256"`
}

// Request creates or updates a challenge. The platform expects the owning
// competition as a nested reference.
type Request struct {
	CompetitionID normalize.ID `json:"-" validate:"required"`
	Title         string       `json:"title" validate:"required,notblank,max=100"`
	Description   string       `json:"description,omitempty"`
	Category      string       `json:"category" validate:"required,notblank"`
	Difficulty    string       `json:"difficulty" validate:"required,oneof=Easy Medium Hard"`
	Points        int          `json:"points" validate:"min=0,max=10000"`
	Flag          string       `json:"flag,omitempty" validate:"max=256"`
	AttachmentURL string       `json:"attachmentUrl,omitempty" validate:"omitempty,url"`
	Hint          string       `json:"hint,omitempty"`
	Active        *bool        `json:"isActive,omitempty"`
}

func (r Request) MarshalJSON() ([]byte, error) {
	type plain Request
	return json.Marshal(struct {
		plain
		Competition map[string]normalize.ID `json:"competition"`
	}{plain(r), map[string]normalize.ID{"competitionID": r.CompetitionID}})
}

// ListQuery filters the challenge list. Blank filters are not sent.
type ListQuery struct {
	domain.PageQuery
	CompetitionID normalize.ID
	Category      string
	Difficulty    string
	Keyword       string
}
