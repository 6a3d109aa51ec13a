package core

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		in      string
		want    Date
		wantErr bool
	}{
		{in: "2026-10-15", want: NewDate(2026, time.October, 15)},
		{in: "2026-10-15T23:30:00+05:45", want: NewDate(2026, time.October, 15)},
		{in: "15/10/2026", wantErr: true},
		{in: "2026-02-30", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDate(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s", got)
		})
	}
}

func TestDate_JSON(t *testing.T) {
	type payload struct {
		Due Date `json:"due"`
	}

	data, err := json.Marshal(payload{Due: NewDate(2026, time.March, 1)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"due":"2026-03-01"}`, string(data))

	data, err = json.Marshal(payload{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"due":null}`, string(data))

	for _, in := range []string{`{"due":null}`, `{"due":""}`, `{}`} {
		var p payload
		require.NoError(t, json.Unmarshal([]byte(in), &p), in)
		assert.True(t, p.Due.IsZero(), in)
	}

	var p payload
	assert.Error(t, json.Unmarshal([]byte(`{"due":"tomorrow"}`), &p))
}

func TestDate_Arithmetic(t *testing.T) {
	d := NewDate(2026, time.February, 27)
	assert.Equal(t, "2026-03-01", d.AddDays(2).String())
	assert.True(t, d.Before(d.AddDays(1)))
	assert.True(t, d.After(d.AddDays(-1)))
	assert.Equal(t, "February 27, 2026", d.Long())
	assert.Equal(t, "", Date{}.String())
}

func TestDate_Scan(t *testing.T) {
	var d Date
	require.NoError(t, d.Scan(time.Date(2026, time.May, 4, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "2026-05-04", d.String())

	require.NoError(t, d.Scan([]byte("2026-05-05")))
	assert.Equal(t, "2026-05-05", d.String())

	require.NoError(t, d.Scan(nil))
	assert.True(t, d.IsZero())

	assert.Error(t, d.Scan(42))

	v, err := Date{}.Value()
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestDateOf(t *testing.T) {
	kathmandu := time.FixedZone("NPT", 5*3600+45*60)
	// 20:00 UTC is already the next day in Kathmandu
	instant := time.Date(2026, time.October, 15, 20, 0, 0, 0, time.UTC)

	assert.Equal(t, time.Date(2026, time.October, 16, 0, 0, 0, 0, time.UTC), DateOf(instant, kathmandu))
	assert.Equal(t, time.Date(2026, time.October, 15, 0, 0, 0, 0, time.UTC), DateOf(instant, nil))
}

func TestToday(t *testing.T) {
	defer func() { NowFunc = time.Now }()
	NowFunc = func() time.Time { return time.Date(2026, time.December, 31, 23, 0, 0, 0, time.UTC) }

	assert.Equal(t, NewDate(2026, time.December, 31), DateFrom(Today(time.UTC)))
	assert.Equal(t, NewDate(2027, time.January, 1), DateFrom(Today(time.FixedZone("NPT", 5*3600+45*60))))
}

func TestMonthRange(t *testing.T) {
	from, to := MonthRange(time.Date(2026, time.December, 17, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2026, time.December, 1, 0, 0, 0, 0, time.UTC), from)
	assert.Equal(t, time.Date(2027, time.January, 1, 0, 0, 0, 0, time.UTC), to)
}
