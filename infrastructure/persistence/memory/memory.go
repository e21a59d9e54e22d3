// Package memory provides in-memory implementations of the repository
// ports. They mirror the DynamoDB semantics (conditional-write conflicts,
// atomic counters, index ordering) closely enough for unit tests to
// exercise the invariants without a real table.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"civica-backend/application/ports"
	"civica-backend/domain"
	appErrors "civica-backend/pkg/errors"
)

// Store is an in-memory stand-in for the single table. It implements every
// repository port.
type Store struct {
	mu sync.RWMutex

	users           map[string]*domain.User            // userID -> user
	emails          map[string]string                  // lower(email) -> userID (uniqueness guard)
	teacherProfiles map[string]*domain.TeacherProfile  // userID -> profile
	cohorts         map[string]*domain.Cohort          // cohortID -> cohort
	joinCodes       map[string]string                  // CODE -> cohortID (uniqueness guard)
	memberships     map[string]*domain.StudentProfile  // cohortID+"/"+userID -> profile
	positions       map[string]*domain.Position        // positionID -> position
	posts           map[string]*domain.DiscussionPost  // postID -> post
	reflections     map[string]*domain.Reflection      // cohortID+"/"+studentID -> reflection

	// shouldFailOn forces an error for a named method, for failure-path
	// tests (e.g. counter drift after a successful post write).
	shouldFailOn map[string]error
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		users:           make(map[string]*domain.User),
		emails:          make(map[string]string),
		teacherProfiles: make(map[string]*domain.TeacherProfile),
		cohorts:         make(map[string]*domain.Cohort),
		joinCodes:       make(map[string]string),
		memberships:     make(map[string]*domain.StudentProfile),
		positions:       make(map[string]*domain.Position),
		posts:           make(map[string]*domain.DiscussionPost),
		reflections:     make(map[string]*domain.Reflection),
		shouldFailOn:    make(map[string]error),
	}
}

var (
	_ ports.UserRepository       = (*Store)(nil)
	_ ports.CohortRepository     = (*Store)(nil)
	_ ports.PositionRepository   = (*Store)(nil)
	_ ports.DiscussionRepository = (*Store)(nil)
	_ ports.ReflectionRepository = (*Store)(nil)
)

// SetError configures the store to fail a specific method.
func (s *Store) SetError(method string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shouldFailOn[method] = err
}

// ClearErrors removes all configured failures.
func (s *Store) ClearErrors() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shouldFailOn = make(map[string]error)
}

func (s *Store) failure(method string) error {
	return s.shouldFailOn[method]
}

// --- UserRepository ---

func (s *Store) CreateUser(_ context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure("CreateUser"); err != nil {
		return err
	}
	email := strings.ToLower(user.Email)
	if _, taken := s.emails[email]; taken {
		return appErrors.NewConflictError("email already registered")
	}
	if _, exists := s.users[user.ID]; exists {
		return appErrors.NewConflictError("user already exists")
	}
	u := *user
	s.users[user.ID] = &u
	s.emails[email] = user.ID
	return nil
}

func (s *Store) GetUserByID(_ context.Context, userID string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[userID]
	if !ok {
		return nil, appErrors.NewNotFoundError("user")
	}
	u := *user
	return &u, nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	userID, ok := s.emails[strings.ToLower(email)]
	if !ok {
		return nil, appErrors.NewNotFoundError("user")
	}
	u := *s.users[userID]
	return &u, nil
}

func (s *Store) PutTeacherProfile(_ context.Context, profile *domain.TeacherProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := *profile
	s.teacherProfiles[profile.UserID] = &p
	return nil
}

func (s *Store) GetTeacherProfile(_ context.Context, userID string) (*domain.TeacherProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	profile, ok := s.teacherProfiles[userID]
	if !ok {
		return nil, appErrors.NewNotFoundError("teacher profile")
	}
	p := *profile
	return &p, nil
}

// --- CohortRepository ---

func (s *Store) CreateCohort(_ context.Context, cohort *domain.Cohort) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure("CreateCohort"); err != nil {
		return err
	}
	code := domain.NormalizeJoinCode(cohort.JoinCode)
	if _, taken := s.joinCodes[code]; taken {
		return appErrors.NewConflictError("create cohort: conditional check failed")
	}
	if _, exists := s.cohorts[cohort.ID]; exists {
		return appErrors.NewConflictError("create cohort: conditional check failed")
	}
	c := *cohort
	c.JoinCode = code
	s.cohorts[cohort.ID] = &c
	s.joinCodes[code] = cohort.ID
	return nil
}

func (s *Store) GetCohortByID(_ context.Context, cohortID string) (*domain.Cohort, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cohort, ok := s.cohorts[cohortID]
	if !ok {
		return nil, appErrors.NewNotFoundError("cohort")
	}
	c := *cohort
	return &c, nil
}

func (s *Store) GetCohortByJoinCode(_ context.Context, code string) (*domain.Cohort, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cohortID, ok := s.joinCodes[domain.NormalizeJoinCode(code)]
	if !ok {
		return nil, appErrors.NewNotFoundError("cohort")
	}
	c := *s.cohorts[cohortID]
	return &c, nil
}

func (s *Store) GetCohortsByTeacher(_ context.Context, teacherID string) ([]*domain.Cohort, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var cohorts []*domain.Cohort
	for _, cohort := range s.cohorts {
		if cohort.TeacherID == teacherID {
			c := *cohort
			cohorts = append(cohorts, &c)
		}
	}
	// Newest first, matching the index ordering.
	sort.Slice(cohorts, func(i, j int) bool {
		return cohorts[i].CreatedAt.After(cohorts[j].CreatedAt)
	})
	return cohorts, nil
}

func (s *Store) UpdateCohort(_ context.Context, cohortID string, update ports.CohortUpdate) (*domain.Cohort, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cohort, ok := s.cohorts[cohortID]
	if !ok {
		return nil, appErrors.NewNotFoundError("cohort")
	}
	if update.Name != nil {
		cohort.Name = *update.Name
	}
	if update.Status != nil {
		cohort.Status = *update.Status
	}
	cohort.UpdatedAt = time.Now().UTC()
	c := *cohort
	return &c, nil
}

func (s *Store) AdvancePhase(_ context.Context, cohortID string, adv domain.PhaseAdvance) (*domain.Cohort, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cohort, ok := s.cohorts[cohortID]
	if !ok {
		return nil, appErrors.NewNotFoundError("cohort")
	}
	if cohort.CurrentPhase != adv.From {
		return nil, appErrors.NewConflictError("cohort phase changed concurrently")
	}
	cohort.CurrentPhase = adv.To
	if adv.SetStatus != "" {
		cohort.Status = adv.SetStatus
	}
	if adv.StartDate != nil {
		t := *adv.StartDate
		cohort.StartDate = &t
	}
	if adv.EndDate != nil {
		t := *adv.EndDate
		cohort.EndDate = &t
	}
	cohort.UpdatedAt = time.Now().UTC()
	c := *cohort
	return &c, nil
}

func membershipKey(cohortID, userID string) string {
	return cohortID + "/" + userID
}

func (s *Store) CreateStudentProfile(_ context.Context, profile *domain.StudentProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure("CreateStudentProfile"); err != nil {
		return err
	}
	key := membershipKey(profile.CohortID, profile.UserID)
	if _, exists := s.memberships[key]; exists {
		return appErrors.NewConflictError("student already joined this cohort")
	}
	p := *profile
	s.memberships[key] = &p

	// Counter update mirrors the atomic ADD; an injected failure leaves
	// the membership durable and the count low, like production drift.
	if err := s.failure("IncrementStudentCount"); err == nil {
		if cohort, ok := s.cohorts[profile.CohortID]; ok {
			cohort.StudentCount++
		}
	}
	return nil
}

func (s *Store) GetStudentProfile(_ context.Context, cohortID, userID string) (*domain.StudentProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	profile, ok := s.memberships[membershipKey(cohortID, userID)]
	if !ok {
		return nil, appErrors.NewNotFoundError("student profile")
	}
	p := *profile
	return &p, nil
}

func (s *Store) GetStudentProfilesByCohort(_ context.Context, cohortID string) ([]*domain.StudentProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var profiles []*domain.StudentProfile
	for _, profile := range s.memberships {
		if profile.CohortID == cohortID {
			p := *profile
			profiles = append(profiles, &p)
		}
	}
	sort.Slice(profiles, func(i, j int) bool {
		return profiles[i].JoinedAt.Before(profiles[j].JoinedAt)
	})
	return profiles, nil
}

func (s *Store) GetCohortsByStudent(_ context.Context, userID string) ([]*domain.StudentProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var profiles []*domain.StudentProfile
	for _, profile := range s.memberships {
		if profile.UserID == userID {
			p := *profile
			profiles = append(profiles, &p)
		}
	}
	sort.Slice(profiles, func(i, j int) bool {
		return profiles[i].JoinedAt.After(profiles[j].JoinedAt)
	})
	return profiles, nil
}

// --- PositionRepository ---

func (s *Store) CreatePosition(_ context.Context, position *domain.Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure("CreatePosition"); err != nil {
		return err
	}
	if _, exists := s.positions[position.ID]; exists {
		return appErrors.NewConflictError("position already exists")
	}
	p := *position
	s.positions[position.ID] = &p
	return nil
}

func (s *Store) GetPositionByID(_ context.Context, positionID string) (*domain.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	position, ok := s.positions[positionID]
	if !ok {
		return nil, appErrors.NewNotFoundError("position")
	}
	p := *position
	return &p, nil
}

func (s *Store) GetPositionsByPolicy(_ context.Context, cohortID, policyID string) ([]*domain.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var positions []*domain.Position
	for _, position := range s.positions {
		if position.CohortID == cohortID && position.PolicyID == policyID {
			p := *position
			positions = append(positions, &p)
		}
	}
	sort.Slice(positions, func(i, j int) bool {
		return positions[i].CreatedAt.Before(positions[j].CreatedAt)
	})
	return positions, nil
}

func (s *Store) GetPositionsByStudent(_ context.Context, studentID string) ([]*domain.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var positions []*domain.Position
	for _, position := range s.positions {
		if position.StudentID == studentID {
			p := *position
			positions = append(positions, &p)
		}
	}
	sort.Slice(positions, func(i, j int) bool {
		return positions[i].CreatedAt.Before(positions[j].CreatedAt)
	})
	return positions, nil
}

// --- DiscussionRepository ---

func (s *Store) CreatePost(_ context.Context, post *domain.DiscussionPost) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure("CreatePost"); err != nil {
		return err
	}
	if _, exists := s.posts[post.ID]; exists {
		return appErrors.NewConflictError("post already exists")
	}
	p := *post
	s.posts[post.ID] = &p
	return nil
}

func (s *Store) GetPostByID(_ context.Context, postID string) (*domain.DiscussionPost, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	post, ok := s.posts[postID]
	if !ok {
		return nil, appErrors.NewNotFoundError("post")
	}
	p := *post
	return &p, nil
}

func (s *Store) GetPostsByPolicy(_ context.Context, cohortID, policyID string) ([]*domain.DiscussionPost, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var posts []*domain.DiscussionPost
	for _, post := range s.posts {
		if post.CohortID == cohortID && post.PolicyID == policyID {
			p := *post
			posts = append(posts, &p)
		}
	}
	sort.Slice(posts, func(i, j int) bool {
		return posts[i].CreatedAt.Before(posts[j].CreatedAt)
	})
	return posts, nil
}

func (s *Store) GetReplies(_ context.Context, parentID string) ([]*domain.DiscussionPost, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var replies []*domain.DiscussionPost
	for _, post := range s.posts {
		if post.ParentID == parentID {
			p := *post
			replies = append(replies, &p)
		}
	}
	sort.Slice(replies, func(i, j int) bool {
		return replies[i].CreatedAt.Before(replies[j].CreatedAt)
	})
	return replies, nil
}

func (s *Store) IncrementReplyCount(_ context.Context, post *domain.DiscussionPost, delta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure("IncrementReplyCount"); err != nil {
		return err
	}
	stored, ok := s.posts[post.ID]
	if !ok {
		return appErrors.NewNotFoundError("post")
	}
	stored.ReplyCount += delta
	return nil
}

func (s *Store) SetFlagged(_ context.Context, post *domain.DiscussionPost, flagged bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.posts[post.ID]
	if !ok {
		return appErrors.NewNotFoundError("post")
	}
	stored.IsFlagged = flagged
	stored.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *Store) DeletePost(_ context.Context, post *domain.DiscussionPost) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.posts[post.ID]; !ok {
		return appErrors.NewNotFoundError("post")
	}
	delete(s.posts, post.ID)
	return nil
}

// --- ReflectionRepository ---

func (s *Store) CreateReflection(_ context.Context, reflection *domain.Reflection) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure("CreateReflection"); err != nil {
		return err
	}
	key := membershipKey(reflection.CohortID, reflection.StudentID)
	if _, exists := s.reflections[key]; exists {
		return appErrors.NewConflictError("reflection already submitted for this cohort")
	}
	ref := *reflection
	s.reflections[key] = &ref
	return nil
}

func (s *Store) GetReflection(_ context.Context, cohortID, studentID string) (*domain.Reflection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	reflection, ok := s.reflections[membershipKey(cohortID, studentID)]
	if !ok {
		return nil, appErrors.NewNotFoundError("reflection")
	}
	ref := *reflection
	return &ref, nil
}

func (s *Store) GetReflectionsByCohort(_ context.Context, cohortID string) ([]*domain.Reflection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var reflections []*domain.Reflection
	for _, reflection := range s.reflections {
		if reflection.CohortID == cohortID {
			ref := *reflection
			reflections = append(reflections, &ref)
		}
	}
	sort.Slice(reflections, func(i, j int) bool {
		return reflections[i].CompletedAt.Before(reflections[j].CompletedAt)
	})
	return reflections, nil
}
