package report

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	"github.com/shankerdev/campus/core"
	"github.com/shankerdev/campus/core/attendance"
)

func TestAttendanceWorkbook(t *testing.T) {
	month := core.NewDate(2026, time.October, 1)
	rows := []attendance.ReportRow{
		{Name: "Asha Rao", Email: "asha@campus.edu", Semester: null.IntFrom(3), PresentDays: 3, MarkedDays: 4},
		{Name: "Bilal Khan", Email: "bilal@campus.edu", PresentDays: 0, MarkedDays: 0},
	}

	buf, err := AttendanceWorkbook(month, rows)
	require.NoError(t, err)

	got, err := ReadAttendanceWorkbook(buf)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, attendanceHeader, got[0])
	assert.Equal(t, []string{"Asha Rao", "asha@campus.edu", "3", "3", "4", "75.00%"}, got[1])
	assert.Equal(t, "Bilal Khan", got[2][0])
	assert.Equal(t, "0.00%", got[2][5])
}

func TestAttendanceFilename(t *testing.T) {
	assert.Equal(t, "attendance_report_2026_03.xlsx", AttendanceFilename(core.NewDate(2026, time.March, 17)))
}
