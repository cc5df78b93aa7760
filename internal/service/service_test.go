package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/refillia/refillia-system/internal/model"
	"github.com/refillia/refillia-system/internal/repository"
)

func TestHashPasswordDeterministic(t *testing.T) {
	a := hashPassword("user", "pass")
	b := hashPassword("user", "pass")
	c := hashPassword("user", "other")

	if string(a) != string(b) {
		t.Fatalf("hashPassword must be deterministic, got %x and %x", a, b)
	}
	if string(a) == string(c) {
		t.Fatalf("different passwords must produce different hashes")
	}
}

// stubRepo реализует Repository для юнит-тестов сервиса.
type stubRepo struct {
	createProfileID  string
	createProfileErr error

	profile    *model.UserProfile
	profileErr error
	passHash   []byte

	appliedDeltas map[string][]model.ProfileDelta

	station    *model.Station
	stationErr error

	createdStation     *model.Station
	createStationErr   error
	createStationDelta model.ProfileDelta

	transitioned       bool
	transitionErr      error
	transitionCalls    int
	transitionBonus    model.ProfileDelta
	transitionFailures int

	updatedStation *model.Station
	updateOK       bool
	updateErr      error

	deleteErr error

	pendingRows  []model.ModerationRow
	verifiedRows []model.ModerationRow
	searchRows   []model.ModerationRow
	listErr      error

	feedback          *model.Feedback
	feedbackErr       error
	feedbackDelta     model.ProfileDelta
	feedbackByStation []model.Feedback

	activity            *model.RefillActivity
	activityErr         error
	settleActivity      *model.RefillActivity
	settleErr           error
	settleDelta         model.ProfileDelta
	settlePoints        int
	settleBottles       int
	settleNotBefore     time.Time
	getPendingNotBefore time.Time
}

func (s *stubRepo) Close() error { return nil }

func (s *stubRepo) CreateProfile(ctx context.Context, username, email string, passwordHash []byte) (string, error) {
	return s.createProfileID, s.createProfileErr
}

func (s *stubRepo) GetProfileByUsername(ctx context.Context, username string) (*model.UserProfile, []byte, error) {
	return s.profile, s.passHash, s.profileErr
}

func (s *stubRepo) GetProfileByID(ctx context.Context, userID string) (*model.UserProfile, error) {
	return s.profile, s.profileErr
}

func (s *stubRepo) recordDelta(userID string, delta model.ProfileDelta) {
	if s.appliedDeltas == nil {
		s.appliedDeltas = make(map[string][]model.ProfileDelta)
	}
	s.appliedDeltas[userID] = append(s.appliedDeltas[userID], delta)
}

func (s *stubRepo) CreateStation(ctx context.Context, st model.Station, delta model.ProfileDelta) (*model.Station, error) {
	s.createStationDelta = delta
	if s.createStationErr != nil {
		return nil, s.createStationErr
	}
	if s.createdStation != nil {
		return s.createdStation, nil
	}
	st.ID = "station-1"
	st.Status = model.StationStatusUnverified
	return &st, nil
}

func (s *stubRepo) GetStation(ctx context.Context, stationID string) (*model.Station, error) {
	return s.station, s.stationErr
}

func (s *stubRepo) TransitionStationStatus(ctx context.Context, stationID string, to model.StationStatus, allowedFrom []model.StationStatus, ownerBonus model.ProfileDelta) (bool, error) {
	s.transitionCalls++
	s.transitionBonus = ownerBonus
	if s.transitionFailures > 0 {
		s.transitionFailures--
		return false, errors.New("transition failed")
	}
	if s.transitionErr != nil {
		return false, s.transitionErr
	}
	if s.transitioned && s.station != nil {
		s.station.Status = to
		// Бонус применяется вместе с переходом, как в хранилище.
		if ownerBonus != (model.ProfileDelta{}) {
			s.recordDelta(s.station.AddedBy, ownerBonus)
		}
	}
	return s.transitioned, nil
}

func (s *stubRepo) UpdateVerifiedStationFields(ctx context.Context, stationID string, edit model.StationEdit) (*model.Station, bool, error) {
	return s.updatedStation, s.updateOK, s.updateErr
}

func (s *stubRepo) DeleteStationCascade(ctx context.Context, stationID string) error {
	return s.deleteErr
}

func (s *stubRepo) ListPendingStations(ctx context.Context) ([]model.ModerationRow, error) {
	return s.pendingRows, s.listErr
}

func (s *stubRepo) ListVerifiedStations(ctx context.Context, limit int) ([]model.ModerationRow, error) {
	return s.verifiedRows, s.listErr
}

func (s *stubRepo) SearchStations(ctx context.Context, query string) ([]model.ModerationRow, error) {
	return s.searchRows, s.listErr
}

func (s *stubRepo) CreateFeedback(ctx context.Context, f model.Feedback, delta model.ProfileDelta) (*model.Feedback, error) {
	s.feedbackDelta = delta
	return s.feedback, s.feedbackErr
}

func (s *stubRepo) GetFeedbackByStation(ctx context.Context, stationID string) ([]model.Feedback, error) {
	return s.feedbackByStation, nil
}

func (s *stubRepo) CreatePendingActivity(ctx context.Context, userID, stationID string) (*model.RefillActivity, error) {
	return s.activity, s.activityErr
}

func (s *stubRepo) GetPendingActivity(ctx context.Context, userID, stationID string, notBefore time.Time) (*model.RefillActivity, error) {
	s.getPendingNotBefore = notBefore
	return s.activity, s.activityErr
}

func (s *stubRepo) SettlePendingActivity(ctx context.Context, userID, stationID string, notBefore time.Time, refilled bool, points, bottles int, delta model.ProfileDelta) (*model.RefillActivity, error) {
	s.settleNotBefore = notBefore
	s.settlePoints = points
	s.settleBottles = bottles
	s.settleDelta = delta
	return s.settleActivity, s.settleErr
}

func testPolicy() Policy {
	return Policy{
		PointsStationSubmitted: 50,
		PointsStationVerified:  25,
		PointsFeedback:         10,
		PointsRefillConfirmed:  10,
		PointsRefillDeclined:   1,
		RefillConfirmWindow:    30 * time.Minute,
		VerifiedListLimit:      100,
	}
}

func TestRegisterUser_PropagatesDuplicateError(t *testing.T) {
	repo := &stubRepo{
		createProfileErr: repository.ErrUserExists,
	}
	svc := NewService(repo, testPolicy())

	_, err := svc.RegisterUser(context.Background(), "user", "user@example.com", "pass")
	if !errors.Is(err, repository.ErrUserExists) {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}
}

func TestAuthenticateUser_InvalidCredentials(t *testing.T) {
	repo := &stubRepo{
		profile: &model.UserProfile{
			ID:       "user-1",
			Username: "user",
		},
		passHash: hashPassword("user", "correct"),
	}

	svc := NewService(repo, testPolicy())

	_, err := svc.AuthenticateUser(context.Background(), "user", "wrong")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestProfileLevel(t *testing.T) {
	tests := []struct {
		points int
		level  int
		title  string
	}{
		{points: 0, level: 1, title: "Hydration Helper"},
		{points: 150, level: 2, title: "Hydration Helper"},
		{points: 250, level: 3, title: "Refill Ranger"},
		{points: 350, level: 4, title: "Water Warrior"},
		{points: 500, level: 6, title: "Hydration Hero"},
	}

	for _, tt := range tests {
		if got := ProfileLevel(tt.points); got != tt.level {
			t.Fatalf("ProfileLevel(%d) = %d, want %d", tt.points, got, tt.level)
		}
		if got := LevelTitle(tt.points); got != tt.title {
			t.Fatalf("LevelTitle(%d) = %q, want %q", tt.points, got, tt.title)
		}
	}
}
