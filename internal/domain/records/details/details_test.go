package details

import (
	"errors"
	"strings"
	"testing"
	"time"
)

var at = time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)

func TestNormalize_ReportsJSONFieldNames(t *testing.T) {
	cases := []struct {
		name string
		in   Details
		want string
	}{
		{"meal type", &Meal{MealType: "brunch"}, "mealType must be one of breakfast, lunch, dinner, snack"},
		{"meal missing", &Meal{}, "mealType is required"},
		{"bristol", &BowelMovement{BristolType: 9}, "bristolType must be at most 7"},
		{"sleep quality", &Sleep{Quality: 6}, "quality must be at most 5"},
		{"diastolic", &BloodPressure{Systolic: 120, Diastolic: 130}, "diastolic must be lower than systolic"},
		{"systolic range", &BloodPressure{Systolic: 20, Diastolic: 10}, "systolic must be at least 40"},
		{"glucose", &Glucose{Value: 0}, "value must be greater than 0"},
		{"glucose unit", &Glucose{Value: 90, Unit: "g"}, "unit must be one of mg/dL, mmol/L"},
		{"insulin", &Insulin{Units: 400}, "units must be at most 300"},
		{"doctor email", &Doctor{Name: "Dr. Ruiz", Email: "ruiz-at-clinic"}, "email must be a valid email"},
		{"pharmacy", &Pharmacy{Name: "  "}, "name is required"},
		{"note", &Note{Content: " "}, "content is required"},
		{"medication log", &MedicationLog{MedicationID: "m1", Status: "lost"}, "status must be one of taken, skipped"},
		{"appointment", &Appointment{Title: "Checkup", Status: "maybe"}, "status must be one of scheduled, completed, cancelled"},
	}
	for _, tc := range cases {
		err := tc.in.Normalize(at)
		if !errors.Is(err, ErrInvalid) {
			t.Fatalf("%s: expected ErrInvalid, got %v", tc.name, err)
		}
		if !strings.Contains(err.Error(), tc.want) {
			t.Fatalf("%s: expected %q in %q", tc.name, tc.want, err.Error())
		}
	}
}

func TestNormalize_AcceptsAndDefaults(t *testing.T) {
	m := &Meal{MealType: " Lunch ", AmountEaten: "most"}
	if err := m.Normalize(at); err != nil || m.MealType != "lunch" {
		t.Fatalf("meal: %v %+v", err, m)
	}

	g := &Glucose{Value: 5.4}
	if err := g.Normalize(at); err != nil || g.Unit != GlucoseUnitMgDL {
		t.Fatalf("glucose: %v %+v", err, g)
	}

	a := &Appointment{Title: " Checkup "}
	if err := a.Normalize(at); err != nil || a.Status != AppointmentScheduled || a.Title != "Checkup" {
		t.Fatalf("appointment: %v %+v", err, a)
	}

	// los teléfonos aceptan formato local
	d := &Doctor{Name: "Dr. Ruiz", Phone: "555-0101", Email: " ruiz@clinic.org "}
	if err := d.Normalize(at); err != nil || d.Email != "ruiz@clinic.org" {
		t.Fatalf("doctor: %v %+v", err, d)
	}

	bp := &BloodPressure{Systolic: 120, Diastolic: 80, Position: "sitting"}
	if err := bp.Normalize(at); err != nil {
		t.Fatalf("blood pressure: %v", err)
	}
}

func TestNormalize_TimestampRules(t *testing.T) {
	before := at.Add(-time.Hour)
	if err := (&Sleep{EndTime: &before}).Normalize(at); !errors.Is(err, ErrInvalid) {
		t.Fatalf("sleep ending before it starts must fail, got %v", err)
	}
	if err := (&Appointment{Title: "x", EndTime: &before}).Normalize(at); !errors.Is(err, ErrInvalid) {
		t.Fatalf("appointment ending before it starts must fail, got %v", err)
	}
	after := at.Add(7 * time.Hour)
	s := &Sleep{EndTime: &after, Quality: 4}
	if err := s.Normalize(at); err != nil || s.Minutes(at) != 420 {
		t.Fatalf("sleep: %v minutes=%d", err, s.Minutes(at))
	}
}
