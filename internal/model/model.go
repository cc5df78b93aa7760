// Package model содержит доменные сущности сервиса рефиллиа.
package model

import "time"

// StationStatus описывает статус станции пополнения воды в процессе модерации.
type StationStatus string

const (
	StationStatusUnverified StationStatus = "unverified"
	StationStatusVerified   StationStatus = "verified"
	StationStatusRejected   StationStatus = "rejected"
	StationStatusReported   StationStatus = "reported"
)

// ReviewDecision описывает решение администратора по станции.
type ReviewDecision string

const (
	DecisionVerified ReviewDecision = "verified"
	DecisionRejected ReviewDecision = "rejected"
)

// Station описывает станцию пополнения воды, добавленную пользователем.
type Station struct {
	ID          string
	Name        string
	Description string
	Landmark    string
	Contact     string
	OpeningTime string
	ClosingTime string
	Days        string
	WaterLevel  string
	Latitude    float64
	Longitude   float64
	Status      StationStatus
	AddedBy     string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// SubmitterIdentity содержит данные автора станции для очереди модерации.
type SubmitterIdentity struct {
	Username string
	Email    string
}

// ModerationRow описывает станцию вместе с автором в очереди модерации.
// Submitter равен nil, если профиль автора не найден.
type ModerationRow struct {
	Station   Station
	Submitter *SubmitterIdentity
}

// Feedback описывает отзыв пользователя о проверенной станции.
type Feedback struct {
	ID        string
	StationID string
	UserID    string
	Rating    int
	Comment   string
	CreatedAt time.Time
}

// RefillActivity описывает один факт отправки пользователя к станции
// и последующее подтверждение пополнения. Settled=false означает,
// что активность ещё ожидает ответа пользователя; Refilled хранит сам ответ.
type RefillActivity struct {
	ID           string
	UserID       string
	StationID    string
	Refilled     bool
	Settled      bool
	PointsEarned int
	BottlesSaved int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// StationEdit описывает частичное обновление описательных полей станции.
// Нулевые указатели означают, что поле не меняется. Координаты и статус
// через эту структуру не изменяются.
type StationEdit struct {
	Name        *string
	Description *string
	Landmark    *string
	Contact     *string
	OpeningTime *string
	ClosingTime *string
	Days        *string
	WaterLevel  *string
}

// UserProfile описывает профиль пользователя с накопленными агрегатами.
type UserProfile struct {
	ID            string
	Username      string
	Email         string
	IsAdmin       bool
	Points        int
	StationsAdded int
	FeedbackGiven int
	BottlesSaved  int
	CreatedAt     time.Time
}

// ProfileDelta описывает атомарное изменение агрегатов профиля.
type ProfileDelta struct {
	Points        int
	StationsAdded int
	FeedbackGiven int
	BottlesSaved  int
}
