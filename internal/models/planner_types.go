package models

import "time"

// PlannerResource names a plan-limited family-planner table.
type PlannerResource string

const (
	ResourceSavedPrograms PlannerResource = "saved_programs"
	ResourceChildren      PlannerResource = "children"
	ResourceAdults        PlannerResource = "adults"
)

// SavedProgram is the model for the 'saved_programs' table.
type SavedProgram struct {
	ID        string    `json:"id" db:"id"`
	AccountID string    `json:"accountId" db:"account_id"`
	ProgramID string    `json:"programId" db:"program_id"`
	Notes     *string   `json:"notes,omitempty" db:"notes"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// Child is the model for the 'children' table.
type Child struct {
	ID        string    `json:"id" db:"id"`
	AccountID string    `json:"accountId" db:"account_id"`
	Name      string    `json:"name" db:"name"`
	BirthYear *int      `json:"birthYear,omitempty" db:"birth_year"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// Adult is the model for the 'adults' table.
type Adult struct {
	ID        string    `json:"id" db:"id"`
	AccountID string    `json:"accountId" db:"account_id"`
	Name      string    `json:"name" db:"name"`
	Email     *string   `json:"email,omitempty" db:"email"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}
