package models

import (
	"time"

	"github.com/google/uuid"
)

// Location is an office or hub used as the grouping unit for participation ranking.
type Location struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	TotalPeople int       `json:"total_people"`
	CreatedAt   time.Time `json:"created_at"`
}

// Challenge status values.
const (
	ChallengeDraft     = "draft"
	ChallengeActive    = "active"
	ChallengeCompleted = "completed"
)

// DateLayout is the wire and storage format for challenge dates.
const DateLayout = "2006-01-02"

// Challenge is a time-boxed mission employees submit work against.
// StartDate and EndDate are calendar dates in YYYY-MM-DD form.
type Challenge struct {
	ID           uuid.UUID `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	WhyItMatters *string   `json:"why_it_matters"`
	VideoURL     *string   `json:"video_url"`
	StartDate    string    `json:"start_date"`
	EndDate      string    `json:"end_date"`
	Status       string    `json:"status"`
	CreatedBy    uuid.UUID `json:"created_by"`
	CreatedAt    time.Time `json:"created_at"`
}

// HasEnded reports whether today (YYYY-MM-DD) is after the end date.
// Dates in DateLayout compare correctly as strings.
func (c *Challenge) HasEnded(today string) bool {
	return c.EndDate < today
}

// IsOpen reports whether the challenge is active and today falls inside its window.
func (c *Challenge) IsOpen(today string) bool {
	return c.Status == ChallengeActive && c.StartDate <= today && today <= c.EndDate
}

// ChallengeRef is the projection joined onto submissions.
type ChallengeRef struct {
	ID    uuid.UUID `json:"id"`
	Title string    `json:"title"`
}

// Review status values shared by submissions, frictions and use-cases.
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
	StatusResolved = "resolved" // frictions only
)

// Submission is a user's work against a challenge. At most one per (user, challenge).
type Submission struct {
	ID          uuid.UUID     `json:"id"`
	ChallengeID uuid.UUID     `json:"challenge_id"`
	UserID      uuid.UUID     `json:"user_id"`
	LocationID  uuid.UUID     `json:"location_id"`
	Content     string        `json:"content"`
	FileURL     *string       `json:"file_url"`
	Status      string        `json:"status"`
	Feedback    *string       `json:"feedback"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
	User        *UserRef      `json:"user,omitempty"`
	Challenge   *ChallengeRef `json:"challenge,omitempty"`
}

// Friction frequencies.
const (
	FrequencyDaily   = "daily"
	FrequencyWeekly  = "weekly"
	FrequencyMonthly = "monthly"
)

// Friction is a reported recurring workflow pain point.
type Friction struct {
	ID          uuid.UUID `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	Frequency   string    `json:"frequency"`
	ImpactScore *int      `json:"impact_score"`
	Status      string    `json:"status"`
	SubmittedBy uuid.UUID `json:"submitted_by"`
	Votes       int       `json:"votes"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Submitter   *UserRef  `json:"submitter,omitempty"`
}

// Use-case complexity levels.
const (
	ComplexityBeginner     = "beginner"
	ComplexityIntermediate = "intermediate"
	ComplexityAdvanced     = "advanced"
)

// UseCaseStep is one ordered step of a use-case.
type UseCaseStep struct {
	Title       string `json:"title" validate:"required,notblank,max=200"`
	Description string `json:"description" validate:"max=2000"`
}

// UseCase is a shared example of an AI-assisted workflow.
// At most one use-case is featured at any time.
type UseCase struct {
	ID          uuid.UUID     `json:"id"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Category    string        `json:"category"`
	Complexity  string        `json:"complexity"`
	Tools       []string      `json:"tools"`
	Steps       []UseCaseStep `json:"steps"`
	ImageURL    *string       `json:"image_url"`
	IsFeatured  bool          `json:"is_featured"`
	Status      string        `json:"status"`
	SubmittedBy uuid.UUID     `json:"submitted_by"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
	Submitter   *UserRef      `json:"submitter,omitempty"`
}

// LeaderboardEntry is one location's participation standing.
type LeaderboardEntry struct {
	Location          Location `json:"location"`
	SubmissionsCount  int      `json:"submissions_count"`
	ParticipationRate int      `json:"participation_rate"`
}
