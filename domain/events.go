package domain

import "time"

// DomainEvent is the minimal contract the event publisher needs.
type DomainEvent interface {
	EventType() string
	AggregateID() string
	OccurredAt() time.Time
}

// CohortPhaseChanged is emitted after a successful phase transition.
// Publication is best effort; a publish failure never fails the request.
type CohortPhaseChanged struct {
	CohortID  string    `json:"cohortId"`
	TeacherID string    `json:"teacherId"`
	FromPhase Phase     `json:"fromPhase"`
	ToPhase   Phase     `json:"toPhase"`
	Timestamp time.Time `json:"timestamp"`
}

func (e CohortPhaseChanged) EventType() string     { return "cohort.phase_changed" }
func (e CohortPhaseChanged) AggregateID() string   { return e.CohortID }
func (e CohortPhaseChanged) OccurredAt() time.Time { return e.Timestamp }

// StudentJoinedCohort is emitted after a join code is redeemed.
type StudentJoinedCohort struct {
	CohortID  string    `json:"cohortId"`
	StudentID string    `json:"studentId"`
	Timestamp time.Time `json:"timestamp"`
}

func (e StudentJoinedCohort) EventType() string     { return "cohort.student_joined" }
func (e StudentJoinedCohort) AggregateID() string   { return e.CohortID }
func (e StudentJoinedCohort) OccurredAt() time.Time { return e.Timestamp }
