package allocation

import (
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/clubhub/internal/domain/models"
)

func TestEligibility_IsEligible(t *testing.T) {
	tests := []struct {
		name   string
		minAge int
		born   time.Time
		want   bool
		reason string
	}{
		{"ten on the cutoff", 0, time.Date(2015, time.June, 1, 0, 0, 0, 0, time.UTC), true, ""},
		{"ten the day after the cutoff", 0, time.Date(2015, time.June, 2, 0, 0, 0, 0, time.UTC), false, "minimum age of 10"},
		{"well over", 0, time.Date(2005, time.March, 3, 0, 0, 0, 0, time.UTC), true, ""},
		{"not yet born", 0, time.Date(2025, time.July, 1, 0, 0, 0, 0, time.UTC), false, "not yet born"},
		{"custom minimum", 12, time.Date(2014, time.January, 1, 0, 0, 0, 0, time.UTC), false, "minimum age of 12"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ok, why := Eligibility{MinAge: tc.minAge}.IsEligible(models.Member{DateOfBirth: tc.born}, 2025)
			if ok != tc.want {
				t.Fatalf("IsEligible: got %v, want %v (%s)", ok, tc.want, why)
			}
			if tc.reason == "" && why != "" {
				t.Errorf("reason: got %q, want empty", why)
			}
			if tc.reason != "" && !strings.Contains(why, tc.reason) {
				t.Errorf("reason: got %q, want it to contain %q", why, tc.reason)
			}
		})
	}
}
