package profile

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStudentProfile_BelowThreshold(t *testing.T) {
	tests := []struct {
		name     string
		attended int
		total    int
		wantPct  float64
		wantLow  bool
	}{
		{name: "never marked", wantPct: 0, wantLow: false},
		{name: "all present", attended: 5, total: 5, wantPct: 100},
		{name: "exactly at threshold", attended: 4, total: 5, wantPct: 80},
		{name: "below", attended: 3, total: 4, wantPct: 75, wantLow: true},
		{name: "all absent", attended: 0, total: 2, wantPct: 0, wantLow: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := StudentProfile{AttendedDays: tt.attended, TotalDays: tt.total}
			assert.InDelta(t, tt.wantPct, p.Percentage(), 1e-9)
			assert.Equal(t, tt.wantLow, p.BelowThreshold(80))
		})
	}
}
