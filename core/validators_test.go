package core

import (
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type signup struct {
	Email string `json:"email" validate:"required,campusemail"`
	Phone string `json:"phone" validate:"omitempty,phone10"`
	Due   Date   `json:"due_date" validate:"required,notpast"`
}

func TestInitValidators(t *testing.T) {
	defer func() { NowFunc = time.Now }()
	NowFunc = func() time.Time { return time.Date(2026, time.October, 15, 18, 0, 0, 0, time.UTC) }

	validate := validator.New()
	translator := NewTranslator()
	InitValidators(validate, translator, time.UTC)

	today := NewDate(2026, time.October, 15)
	tests := []struct {
		name string
		in   signup
		want map[string]string
	}{
		{name: "ok", in: signup{Email: "asha@campus.np", Phone: "9800000001", Due: today}},
		{
			name: "bad email and phone",
			in:   signup{Email: "asha@campus", Phone: "98000", Due: today.AddDays(3)},
			want: map[string]string{
				"email": "enter a valid email address",
				"phone": "phone number must be exactly 10 digits",
			},
		},
		{
			name: "past due date",
			in:   signup{Email: "asha@campus.np", Due: today.AddDays(-1)},
			want: map[string]string{"due_date": "due_date cannot be in the past"},
		},
		{
			name: "missing",
			in:   signup{},
			want: map[string]string{"email": "this field is required", "due_date": "this field is required"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validate.Struct(tt.in)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			var verrs validator.ValidationErrors
			require.ErrorAs(t, err, &verrs)
			got := make(map[string]string, len(verrs))
			for _, e := range verrs {
				got[e.Field()] = e.Translate(translator)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}
