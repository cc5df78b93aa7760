package validation

import "testing"

func TestIsValidCoordinates(t *testing.T) {
	tests := []struct {
		name  string
		lat   float64
		lon   float64
		valid bool
	}{
		{
			name:  "valid point in india",
			lat:   20.0,
			lon:   78.0,
			valid: true,
		},
		{
			name:  "boundary values",
			lat:   -90,
			lon:   180,
			valid: true,
		},
		{
			name:  "latitude above range",
			lat:   90.5,
			lon:   0,
			valid: false,
		},
		{
			name:  "latitude below range",
			lat:   -91,
			lon:   0,
			valid: false,
		},
		{
			name:  "longitude above range",
			lat:   0,
			lon:   180.1,
			valid: false,
		},
		{
			name:  "longitude below range",
			lat:   0,
			lon:   -181,
			valid: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IsValidCoordinates(tt.lat, tt.lon)
			if got != tt.valid {
				t.Fatalf("IsValidCoordinates(%v, %v) = %v, want %v", tt.lat, tt.lon, got, tt.valid)
			}
		})
	}
}

func TestIsValidRating(t *testing.T) {
	tests := []struct {
		rating int
		valid  bool
	}{
		{rating: 1, valid: true},
		{rating: 5, valid: true},
		{rating: 0, valid: false},
		{rating: 6, valid: false},
		{rating: -3, valid: false},
	}

	for _, tt := range tests {
		got := IsValidRating(tt.rating)
		if got != tt.valid {
			t.Fatalf("IsValidRating(%d) = %v, want %v", tt.rating, got, tt.valid)
		}
	}
}
