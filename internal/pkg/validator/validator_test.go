package validator

import (
	"testing"
	"time"
)

func TestIsEmpty(t *testing.T) {
	cases := []struct {
		input string
		want  bool
	}{
		{"", true},
		{"   ", true},
		{"abc", false},
		{" abc ", false},
	}
	for _, c := range cases {
		got := IsEmpty(c.input)
		if got != c.want {
			t.Errorf("IsEmpty(%q) = %v, want %v", c.input, got, c.want)
		}
	}
}

func TestIsValidUUID(t *testing.T) {
	valid := []string{
		"0188d0f2-7b8c-7b4a-8a2b-6b8b8b8b8b8b",
		"123e4567-e89b-12d3-a456-426614174000",
		"0188D0F2-7B8C-7B4A-8A2B-6B8B8B8B8B8B",
	}
	invalid := []string{
		"0188d0f27b8c7b4a8a2b6b8b8b8b8b8b",
		"g188d0f2-7b8c-7b4a-8a2b-6b8b8b8b8b8b",
		"{0188d0f2-7b8c-7b4a-8a2b-6b8b8b8b8b8b}",
		"",
	}
	for _, id := range valid {
		if !IsValidUUID(id) {
			t.Errorf("IsValidUUID(%q) = false, want true", id)
		}
	}
	for _, id := range invalid {
		if IsValidUUID(id) {
			t.Errorf("IsValidUUID(%q) = true, want false", id)
		}
	}
}

func TestIsValidDate(t *testing.T) {
	valid := []string{"2023-01-01", "2000-12-31", "2024-02-29"}
	invalid := []string{"2023-13-01", "2023-01-32", "2023/01/01", "01-01-2023", "2023-02-29", ""}
	for _, s := range valid {
		if _, ok := IsValidDate(s); !ok {
			t.Errorf("IsValidDate(%q) = false, want true", s)
		}
	}
	for _, s := range invalid {
		if _, ok := IsValidDate(s); ok {
			t.Errorf("IsValidDate(%q) = true, want false", s)
		}
	}
}

func TestIsValidClock(t *testing.T) {
	valid := []string{"09:00", "17:30", "00:00", "23:59"}
	invalid := []string{"24:00", "9am", "17:60", ""}
	for _, s := range valid {
		if _, ok := IsValidClock(s); !ok {
			t.Errorf("IsValidClock(%q) = false, want true", s)
		}
	}
	for _, s := range invalid {
		if _, ok := IsValidClock(s); ok {
			t.Errorf("IsValidClock(%q) = true, want false", s)
		}
	}
}

func TestValidationErrors_Error(t *testing.T) {
	errs := ValidationErrors{
		{Field: "project_id", Message: "invalid"},
		{Field: "work_role", Message: "required"},
	}
	got := errs.Error()
	want := "project_id: invalid; work_role: required"
	if got != want {
		t.Errorf("ValidationErrors.Error() = %q, want %q", got, want)
	}
}

func TestValidationErrors_ToMap(t *testing.T) {
	errs := ValidationErrors{
		{Field: "project_id", Message: "invalid"},
		{Field: "work_role", Message: "required"},
	}
	got := errs.ToMap()
	want := map[string]string{"project_id": "invalid", "work_role": "required"}
	if len(got) != len(want) {
		t.Errorf("ValidationErrors.ToMap() length = %d, want %d", len(got), len(want))
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("ValidationErrors.ToMap()[%q] = %q, want %q", k, got[k], v)
		}
	}
}

func TestValidationErrors_Err(t *testing.T) {
	var errs ValidationErrors
	if errs.Err() != nil {
		t.Errorf("empty ValidationErrors.Err() = %v, want nil", errs.Err())
	}
	errs.Add("date", "required")
	if errs.Err() == nil {
		t.Errorf("ValidationErrors.Err() = nil, want error")
	}
}

func TestParseDateRange(t *testing.T) {
	r, err := ParseDateRange("2024-01-10", "2024-01-12")
	if err != nil {
		t.Fatalf("ParseDateRange() error = %v", err)
	}
	if !r.Contains(time.Date(2024, 1, 11, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("range should contain 2024-01-11")
	}
	if r.Contains(time.Date(2024, 1, 13, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("range should not contain 2024-01-13")
	}

	open, err := ParseDateRange("", "")
	if err != nil {
		t.Fatalf("ParseDateRange(empty) error = %v", err)
	}
	if open.Start != nil || open.End != nil {
		t.Errorf("empty bounds should stay nil")
	}

	if _, err := ParseDateRange("2024-01-12", "2024-01-10"); err == nil {
		t.Errorf("inverted range should fail")
	}
	if _, err := ParseDateRange("yesterday", ""); err == nil {
		t.Errorf("malformed start should fail")
	}
}

func TestDateOf(t *testing.T) {
	jakarta := time.FixedZone("WIB", 7*3600)
	// 20:00 UTC on Jan 9 is already Jan 10 in UTC+7.
	got := DateOf(time.Date(2024, 1, 9, 20, 0, 0, 0, time.UTC), jakarta)
	want := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("DateOf() = %v, want %v", got, want)
	}
}
