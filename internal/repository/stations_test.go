package repository

import "testing"

func TestSearchPatternEscapesLikeMetacharacters(t *testing.T) {
	tests := []struct {
		query string
		want  string
	}{
		{query: "fountain", want: "%fountain%"},
		{query: "%", want: `%\%%`},
		{query: "_", want: `%\_%`},
		{query: `C:\park`, want: `%C:\\park%`},
		{query: "50%_off", want: `%50\%\_off%`},
	}

	for _, tt := range tests {
		if got := searchPattern(tt.query); got != tt.want {
			t.Fatalf("searchPattern(%q) = %q, want %q", tt.query, got, tt.want)
		}
	}
}
