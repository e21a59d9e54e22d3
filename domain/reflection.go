package domain

import (
	"time"

	appErrors "civica-backend/pkg/errors"

	"github.com/google/uuid"
)

// Reflection is a student's end-of-cycle summary, written once per
// (student, cohort) during the reflection phase.
type Reflection struct {
	ID            string
	StudentID     string
	CohortID      string
	TopPriorities []string
	WhatChanged   string
	WhatSurprised string
	NextSteps     string
	CompletedAt   time.Time
}

// NewReflection creates a reflection. The repository enforces the
// once-per-(student, cohort) rule with a conditional write.
func NewReflection(studentID, cohortID string, topPriorities []string, whatChanged, whatSurprised, nextSteps string) (*Reflection, error) {
	if studentID == "" || cohortID == "" {
		return nil, appErrors.NewValidationError("studentID and cohortID are required")
	}
	if len(topPriorities) == 0 {
		return nil, appErrors.NewValidationError("topPriorities cannot be empty")
	}
	return &Reflection{
		ID:            uuid.New().String(),
		StudentID:     studentID,
		CohortID:      cohortID,
		TopPriorities: topPriorities,
		WhatChanged:   whatChanged,
		WhatSurprised: whatSurprised,
		NextSteps:     nextSteps,
		CompletedAt:   time.Now().UTC(),
	}, nil
}
