package writeup

import (
	"ctf-portal/internal/normalize"
)

type WriteUp struct {
	ID               normalize.ID   `json:"id"`
	Title            string         `json:"title"`
	Content          string         `json:"content,omitempty"`
	AuthorID         normalize.ID   `json:"authorId,omitempty"`
	AuthorName       string         `json:"authorName,omitempty"`
	CompetitionID    normalize.ID   `json:"competitionId,omitempty"`
	CompetitionTitle string         `json:"competitionTitle,omitempty"`
	CreatedAt        normalize.Time `json:"createdAt"`
}

func (w *WriteUp) UnmarshalJSON(b []byte) error {
	var wire struct {
		Content string `json:"content"`
	}
	rec, id, err := normalize.DecodeEntity(b, normalize.WriteUp, &wire)
	if err != nil {
		return err
	}
	author := rec.Child("user").Name(normalize.User)
	if author == "" {
		author = rec.String("authorName", "userName")
	}
	competition := rec.Child("competition").Name(normalize.Competition)
	if competition == "" {
		competition = rec.String("competitionTitle")
	}
	*w = WriteUp{
		ID:               id,
		Title:            rec.Name(normalize.WriteUp),
		Content:          wire.Content,
		AuthorID:         rec.RefID("user", normalize.User, "authorId", "userId", "userID"),
		AuthorName:       author,
		CompetitionID:    rec.RefID("competition", normalize.Competition, "competitionId", "competitionID"),
		CompetitionTitle: competition,
		CreatedAt:        rec.Time("createTime", "createdAt"),
	}
	return nil
}

// UploadRequest creates the caller's write-up for a competition, or
// replaces it if one exists.
type UploadRequest struct {
	CompetitionID normalize.ID `json:"competitionId" validate:"required"`
	Title         string       `json:"title" validate:"required,notblank,max=100"`
	Content       string       `json:"content" validate:"required,notblank,max=200000"`
}
