package flag

import (
	"ctf-portal/internal/domain"
	"ctf-portal/internal/normalize"
)

// Entry is one leaderboard row. The board ranks either teams or
// individual users; EntityType says which.
type Entry struct {
	Rank          int          `json:"rank"`
	EntityID      normalize.ID `json:"entityId"`
	EntityType    string       `json:"entityType,omitempty"`
	EntityName    string       `json:"entityName"`
	CompetitionID normalize.ID `json:"competitionId,omitempty"`
	TotalScore    int          `json:"totalScore"`
	SolveCount    int          `json:"solveCount"`
}

func (e *Entry) UnmarshalJSON(b []byte) error {
	rec := normalize.ParseRecord(b)
	id, err := normalize.ResolveID(rec, []string{"entityId", "entityID", "teamId", "userId"})
	if err != nil {
		return err
	}
	*e = Entry{
		Rank:          rec.Int("rank"),
		EntityID:      id,
		EntityType:    rec.String("entityType"),
		EntityName:    rec.String("entityName", "teamName", "userName", "name"),
		CompetitionID: rec.RefID("competition", normalize.Competition, "competitionId", "competitionID"),
		TotalScore:    rec.Int("totalScore", "score"),
		SolveCount:    rec.Int("solveCount"),
	}
	return nil
}

type Submission struct {
	ID               normalize.ID   `json:"id"`
	Content          string         `json:"content,omitempty"`
	Correct          bool           `json:"correct"`
	PointsAwarded    int            `json:"pointsAwarded"`
	SubmittedAt      normalize.Time `json:"submittedAt"`
	ChallengeID      normalize.ID   `json:"challengeId,omitempty"`
	ChallengeTitle   string         `json:"challengeTitle,omitempty"`
	CompetitionID    normalize.ID   `json:"competitionId,omitempty"`
	CompetitionTitle string         `json:"competitionTitle,omitempty"`
	UserID           normalize.ID   `json:"userId,omitempty"`
	UserName         string         `json:"userName,omitempty"`
	TeamID           normalize.ID   `json:"teamId,omitempty"`
	TeamName         string         `json:"teamName,omitempty"`
}

func (s *Submission) UnmarshalJSON(b []byte) error {
	var wire struct{}
	rec, id, err := normalize.DecodeEntity(b, normalize.Submission, &wire)
	if err != nil {
		return err
	}
	correct, _ := rec.Bool("isCorrect", "correct")
	*s = Submission{
		ID:               id,
		Content:          rec.String("submittedContent", "content"),
		Correct:          correct,
		PointsAwarded:    rec.Int("pointsAwarded"),
		SubmittedAt:      rec.Time("submitTime", "submittedAt"),
		ChallengeID:      rec.RefID("challenge", normalize.Challenge, "challengeId", "challengeID"),
		ChallengeTitle:   childName(rec, "challenge", normalize.Challenge, "challengeTitle"),
		CompetitionID:    rec.RefID("competition", normalize.Competition, "competitionId", "competitionID"),
		CompetitionTitle: childName(rec, "competition", normalize.Competition, "competitionTitle"),
		UserID:           rec.RefID("user", normalize.User, "userId", "userID"),
		UserName:         childName(rec, "user", normalize.User, "userName"),
		TeamID:           rec.RefID("team", normalize.Team, "teamId", "teamID"),
		TeamName:         childName(rec, "team", normalize.Team, "teamName"),
	}
	return nil
}

func childName(rec normalize.Record, key string, k normalize.Kind, flat string) string {
	if name := rec.Child(key).Name(k); name != "" {
		return name
	}
	return rec.String(flat)
}

// SubmissionQuery filters the submission log.
type SubmissionQuery struct {
	domain.PageQuery
	CompetitionID normalize.ID
	UserID        normalize.ID
	Sort          string
}
