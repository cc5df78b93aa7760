package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/refillia/refillia-system/internal/model"
	"github.com/refillia/refillia-system/internal/repository"
)

func verifiedStation() *model.Station {
	return &model.Station{
		ID:     "station-1",
		Status: model.StationStatusVerified,
	}
}

func TestGiveFeedback_InvalidRating(t *testing.T) {
	svc := NewService(&stubRepo{station: verifiedStation()}, testPolicy())

	for _, rating := range []int{0, 6, -1} {
		_, err := svc.GiveFeedback(context.Background(), testUser, "station-1", rating, "")
		if !errors.Is(err, ErrValidation) {
			t.Fatalf("rating %d: expected ErrValidation, got %v", rating, err)
		}
	}
}

func TestGiveFeedback_UnverifiedStationRejected(t *testing.T) {
	repo := &stubRepo{
		station: &model.Station{
			ID:     "station-1",
			Status: model.StationStatusUnverified,
		},
	}
	svc := NewService(repo, testPolicy())

	_, err := svc.GiveFeedback(context.Background(), testUser, "station-1", 4, "nice")
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestGiveFeedback_AwardsPoints(t *testing.T) {
	repo := &stubRepo{
		station: verifiedStation(),
		feedback: &model.Feedback{
			ID:        "feedback-1",
			StationID: "station-1",
			UserID:    "user-1",
			Rating:    4,
		},
	}
	svc := NewService(repo, testPolicy())

	_, err := svc.GiveFeedback(context.Background(), testUser, "station-1", 4, "nice")
	if err != nil {
		t.Fatalf("GiveFeedback error: %v", err)
	}

	if repo.feedbackDelta.FeedbackGiven != 1 {
		t.Fatalf("feedback given delta = %d, want 1", repo.feedbackDelta.FeedbackGiven)
	}
	if repo.feedbackDelta.Points != 10 {
		t.Fatalf("points delta = %d, want 10", repo.feedbackDelta.Points)
	}
}

func TestGiveFeedback_DuplicatePropagatesConflict(t *testing.T) {
	repo := &stubRepo{
		station:     verifiedStation(),
		feedbackErr: repository.ErrFeedbackExists,
	}
	svc := NewService(repo, testPolicy())

	_, err := svc.GiveFeedback(context.Background(), testUser, "station-1", 4, "nice")
	if !errors.Is(err, repository.ErrFeedbackExists) {
		t.Fatalf("expected ErrFeedbackExists, got %v", err)
	}
}

func TestRequestDirections_UnverifiedStationRejected(t *testing.T) {
	repo := &stubRepo{
		station: &model.Station{
			ID:     "station-1",
			Status: model.StationStatusReported,
		},
	}
	svc := NewService(repo, testPolicy())

	_, err := svc.RequestDirections(context.Background(), testUser, "station-1")
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

// pendingWindowRepo моделирует контракт хранилища ожидающих активностей:
// не более одной на пару, повторное создание перезапускает отсчёт окна,
// выборка и расчёт отфильтровывают записи старше notBefore.
type pendingWindowRepo struct {
	*stubRepo
	now     func() time.Time
	pending *model.RefillActivity
}

func (r *pendingWindowRepo) CreatePendingActivity(ctx context.Context, userID, stationID string) (*model.RefillActivity, error) {
	if r.pending == nil || r.pending.Settled {
		r.pending = &model.RefillActivity{
			ID:        "activity-1",
			UserID:    userID,
			StationID: stationID,
			CreatedAt: r.now(),
		}
	} else {
		r.pending.CreatedAt = r.now()
		r.pending.UpdatedAt = r.now()
	}
	return r.pending, nil
}

func (r *pendingWindowRepo) GetPendingActivity(ctx context.Context, userID, stationID string, notBefore time.Time) (*model.RefillActivity, error) {
	if r.pending == nil || r.pending.Settled || r.pending.CreatedAt.Before(notBefore) {
		return nil, repository.ErrNoPendingActivity
	}
	return r.pending, nil
}

func (r *pendingWindowRepo) SettlePendingActivity(ctx context.Context, userID, stationID string, notBefore time.Time, refilled bool, points, bottles int, delta model.ProfileDelta) (*model.RefillActivity, error) {
	if r.pending == nil || r.pending.Settled || r.pending.CreatedAt.Before(notBefore) {
		return nil, repository.ErrNoPendingActivity
	}
	r.pending.Settled = true
	r.pending.Refilled = refilled
	r.pending.PointsEarned = points
	r.pending.BottlesSaved = bottles
	r.stubRepo.recordDelta(userID, delta)
	return r.pending, nil
}

func TestRequestDirections_RefreshesExpiredPending(t *testing.T) {
	start := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	clock := start
	repo := &pendingWindowRepo{
		stubRepo: &stubRepo{station: verifiedStation()},
		now:      func() time.Time { return clock },
	}
	svc := NewService(repo, testPolicy())
	svc.now = repo.now

	if _, err := svc.RequestDirections(context.Background(), testUser, "station-1"); err != nil {
		t.Fatalf("RequestDirections error: %v", err)
	}

	// Первая активность брошена: окно истекло, подсказки нет.
	clock = start.Add(45 * time.Minute)
	if activity, err := svc.PendingRefillPrompt(context.Background(), testUser, "station-1"); err != nil || activity != nil {
		t.Fatalf("expired pending must not prompt, got %+v, %v", activity, err)
	}

	// Новый запрос направлений перезапускает отсчёт для той же пары.
	if _, err := svc.RequestDirections(context.Background(), testUser, "station-1"); err != nil {
		t.Fatalf("repeat RequestDirections error: %v", err)
	}
	if activity, err := svc.PendingRefillPrompt(context.Background(), testUser, "station-1"); err != nil || activity == nil {
		t.Fatalf("refreshed pending must prompt again, got %+v, %v", activity, err)
	}

	// Подтверждение в свежем окне засчитывается, а не теряется навсегда.
	clock = clock.Add(10 * time.Minute)
	settled, err := svc.SettleRefillConfirmation(context.Background(), testUser, "station-1", true)
	if err != nil {
		t.Fatalf("SettleRefillConfirmation error: %v", err)
	}
	if settled == nil || settled.PointsEarned != 10 || settled.BottlesSaved != 1 {
		t.Fatalf("confirmed refill after refresh = %+v, want 10 points and 1 bottle", settled)
	}
}

func TestPendingRefillPrompt_UsesConfirmWindow(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	repo := &stubRepo{
		activity: &model.RefillActivity{
			ID:        "activity-1",
			UserID:    "user-1",
			StationID: "station-1",
		},
	}
	svc := NewService(repo, testPolicy())
	svc.now = func() time.Time { return now }

	activity, err := svc.PendingRefillPrompt(context.Background(), testUser, "station-1")
	if err != nil {
		t.Fatalf("PendingRefillPrompt error: %v", err)
	}
	if activity == nil {
		t.Fatalf("expected a pending activity")
	}

	wantCutoff := now.Add(-30 * time.Minute)
	if !repo.getPendingNotBefore.Equal(wantCutoff) {
		t.Fatalf("cutoff = %v, want %v", repo.getPendingNotBefore, wantCutoff)
	}
}

func TestPendingRefillPrompt_NoActivityMeansNoPrompt(t *testing.T) {
	repo := &stubRepo{
		activityErr: repository.ErrNoPendingActivity,
	}
	svc := NewService(repo, testPolicy())

	activity, err := svc.PendingRefillPrompt(context.Background(), testUser, "station-1")
	if err != nil {
		t.Fatalf("expected silent no-prompt, got %v", err)
	}
	if activity != nil {
		t.Fatalf("expected nil activity, got %+v", activity)
	}
}

func TestSettleRefillConfirmation_Confirmed(t *testing.T) {
	repo := &stubRepo{
		settleActivity: &model.RefillActivity{
			ID:           "activity-1",
			Refilled:     true,
			Settled:      true,
			PointsEarned: 10,
			BottlesSaved: 1,
		},
	}
	svc := NewService(repo, testPolicy())

	activity, err := svc.SettleRefillConfirmation(context.Background(), testUser, "station-1", true)
	if err != nil {
		t.Fatalf("SettleRefillConfirmation error: %v", err)
	}

	if !activity.Refilled || !activity.Settled {
		t.Fatalf("activity not settled as refilled: %+v", activity)
	}
	if repo.settlePoints != 10 || repo.settleBottles != 1 {
		t.Fatalf("settle points/bottles = %d/%d, want 10/1", repo.settlePoints, repo.settleBottles)
	}
	if repo.settleDelta.Points != 10 || repo.settleDelta.BottlesSaved != 1 {
		t.Fatalf("profile delta = %+v, want 10 points and 1 bottle", repo.settleDelta)
	}
}

func TestSettleRefillConfirmation_Declined(t *testing.T) {
	repo := &stubRepo{
		settleActivity: &model.RefillActivity{
			ID:           "activity-1",
			Refilled:     false,
			Settled:      true,
			PointsEarned: 1,
		},
	}
	svc := NewService(repo, testPolicy())

	_, err := svc.SettleRefillConfirmation(context.Background(), testUser, "station-1", false)
	if err != nil {
		t.Fatalf("SettleRefillConfirmation error: %v", err)
	}

	if repo.settlePoints != 1 || repo.settleBottles != 0 {
		t.Fatalf("settle points/bottles = %d/%d, want 1/0", repo.settlePoints, repo.settleBottles)
	}
}

func TestSettleRefillConfirmation_NoPendingIsNoop(t *testing.T) {
	repo := &stubRepo{
		settleErr: repository.ErrNoPendingActivity,
	}
	svc := NewService(repo, testPolicy())

	activity, err := svc.SettleRefillConfirmation(context.Background(), testUser, "station-1", true)
	if err != nil {
		t.Fatalf("settle with no pending activity must be a no-op, got %v", err)
	}
	if activity != nil {
		t.Fatalf("expected nil activity, got %+v", activity)
	}
	if len(repo.appliedDeltas) != 0 {
		t.Fatalf("no-op settle must not touch the profile, got %+v", repo.appliedDeltas)
	}
}

func TestSettleRefillConfirmation_WindowCutoff(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	repo := &stubRepo{
		settleActivity: &model.RefillActivity{ID: "activity-1", Settled: true},
	}
	svc := NewService(repo, testPolicy())
	svc.now = func() time.Time { return now }

	if _, err := svc.SettleRefillConfirmation(context.Background(), testUser, "station-1", true); err != nil {
		t.Fatalf("SettleRefillConfirmation error: %v", err)
	}

	wantCutoff := now.Add(-30 * time.Minute)
	if !repo.settleNotBefore.Equal(wantCutoff) {
		t.Fatalf("cutoff = %v, want %v", repo.settleNotBefore, wantCutoff)
	}
}

func TestQueueOperations_RequireAdmin(t *testing.T) {
	svc := NewService(&stubRepo{}, testPolicy())

	if _, err := svc.ListPendingStations(context.Background(), testUser); !errors.Is(err, ErrAccessDenied) {
		t.Fatalf("ListPendingStations: expected ErrAccessDenied, got %v", err)
	}
	if _, err := svc.ListVerifiedStations(context.Background(), testUser); !errors.Is(err, ErrAccessDenied) {
		t.Fatalf("ListVerifiedStations: expected ErrAccessDenied, got %v", err)
	}
	if _, err := svc.SearchStations(context.Background(), testUser, "fountain"); !errors.Is(err, ErrAccessDenied) {
		t.Fatalf("SearchStations: expected ErrAccessDenied, got %v", err)
	}
}

func TestSearchStations_EmptyQueryRejected(t *testing.T) {
	svc := NewService(&stubRepo{}, testPolicy())

	_, err := svc.SearchStations(context.Background(), testAdmin, "   ")
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestGetStation_HidesUnverifiedFromStrangers(t *testing.T) {
	repo := &stubRepo{
		station: &model.Station{
			ID:      "station-1",
			AddedBy: "owner-1",
			Status:  model.StationStatusUnverified,
		},
	}
	svc := NewService(repo, testPolicy())

	if _, err := svc.GetStation(context.Background(), Actor{ID: "stranger"}, "station-1"); !errors.Is(err, ErrAccessDenied) {
		t.Fatalf("expected ErrAccessDenied, got %v", err)
	}

	if _, err := svc.GetStation(context.Background(), Actor{ID: "owner-1"}, "station-1"); err != nil {
		t.Fatalf("owner must see own unverified station, got %v", err)
	}

	if _, err := svc.GetStation(context.Background(), testAdmin, "station-1"); err != nil {
		t.Fatalf("admin must see unverified station, got %v", err)
	}
}
