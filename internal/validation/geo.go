// Package validation содержит функции валидации входных данных.
package validation

// IsValidLatitude проверяет, что широта лежит в диапазоне [-90, 90].
func IsValidLatitude(lat float64) bool {
	return lat >= -90 && lat <= 90
}

// IsValidLongitude проверяет, что долгота лежит в диапазоне [-180, 180].
func IsValidLongitude(lon float64) bool {
	return lon >= -180 && lon <= 180
}

// IsValidCoordinates проверяет пару координат станции.
func IsValidCoordinates(lat, lon float64) bool {
	return IsValidLatitude(lat) && IsValidLongitude(lon)
}

// IsValidRating проверяет, что оценка отзыва лежит в диапазоне от 1 до 5.
func IsValidRating(rating int) bool {
	return rating >= 1 && rating <= 5
}
