package carestats

import (
	"context"
	"encoding/json"
	"sort"
	"testing"
	"time"

	"caregiver-support/internal/domain/records"
	"caregiver-support/internal/middleware"
	"caregiver-support/internal/platform/logger"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type fakeLister struct {
	items []records.Record
}

func (f *fakeLister) add(kind records.Kind, recipientID string, at time.Time, det string) {
	f.items = append(f.items, records.Record{
		ID:              string(kind) + "-" + at.Format(time.RFC3339),
		CareRecipientID: recipientID,
		Kind:            kind,
		OccurredAt:      at,
		Details:         json.RawMessage(det),
	})
}

func (f *fakeLister) List(_ context.Context, flt records.ListFilter) ([]records.Record, error) {
	out := make([]records.Record, 0)
	for _, r := range f.items {
		if r.CareRecipientID != flt.CareRecipientID {
			continue
		}
		if len(flt.Kinds) > 0 && !hasKind(flt.Kinds, r.Kind) {
			continue
		}
		if flt.From != nil && r.OccurredAt.Before(*flt.From) {
			continue
		}
		if flt.To != nil && !r.OccurredAt.Before(*flt.To) {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OccurredAt.After(out[j].OccurredAt) })
	if flt.Limit > 0 && len(out) > flt.Limit {
		out = out[:flt.Limit]
	}
	return out, nil
}

func hasKind(kinds []records.Kind, k records.Kind) bool {
	for _, x := range kinds {
		if x == k {
			return true
		}
	}
	return false
}

func TestService_Today(t *testing.T) {
	now := time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)
	day := func(h, m int) time.Time { return time.Date(2025, 3, 10, h, m, 0, 0, time.UTC) }

	f := &fakeLister{}
	// medicación activa 2 veces al día + una terminada ayer
	f.add(records.KindMedications, "7", day(0, 0).AddDate(0, -1, 0), `{"name":"Metformin","timesPerDay":2,"active":true}`)
	f.add(records.KindMedications, "7", day(0, 0).AddDate(0, -1, 0), `{"name":"Old","timesPerDay":1,"active":true,"endDate":"2025-03-09T00:00:00Z"}`)
	f.add(records.KindMedicationLogs, "7", day(8, 0), `{"medicationId":"m1","status":"taken"}`)
	f.add(records.KindMedicationLogs, "7", day(20, 0).AddDate(0, 0, -1), `{"medicationId":"m1","status":"taken"}`)

	f.add(records.KindMeals, "7", day(8, 30), `{"mealType":"breakfast"}`)
	f.add(records.KindMeals, "7", day(12, 30), `{"mealType":"lunch"}`)
	f.add(records.KindMeals, "8", day(12, 30), `{"mealType":"lunch"}`)

	// anoche: 22:00 -> 06:30
	f.add(records.KindSleep, "7", day(22, 0).AddDate(0, 0, -1), `{"endTime":"2025-03-10T06:30:00Z"}`)

	f.add(records.KindBowelMovements, "7", day(9, 0), `{}`)
	f.add(records.KindUrination, "7", day(7, 0), `{}`)
	f.add(records.KindUrination, "7", day(11, 0), `{}`)

	f.add(records.KindBloodPressure, "7", day(7, 0).AddDate(0, 0, -2), `{"systolic":120,"diastolic":80}`)
	f.add(records.KindBloodPressure, "7", day(7, 0), `{"systolic":135,"diastolic":85,"pulse":70}`)
	f.add(records.KindInsulin, "7", day(8, 0), `{"units":4}`)
	f.add(records.KindInsulin, "7", day(13, 0), `{"units":6.5}`)

	f.add(records.KindAppointments, "7", day(10, 0), `{"title":"Lab","status":"completed"}`)
	f.add(records.KindAppointments, "7", day(16, 0), `{"title":"Cardio","status":"scheduled"}`)
	f.add(records.KindAppointments, "7", day(15, 0), `{"title":"Dentist","status":"cancelled"}`)

	f.add(records.KindNotes, "7", day(10, 0), `{"content":"ok"}`)

	svc := NewService(f)
	svc.now = func() time.Time { return now }

	sum, err := svc.Today(context.Background(), "7", nil)
	if err != nil {
		t.Fatalf("Today error: %v", err)
	}

	if sum.Date != "2025-03-10" {
		t.Fatalf("unexpected date %s", sum.Date)
	}
	if sum.Medications.Scheduled != 2 || sum.Medications.Taken != 1 {
		t.Fatalf("unexpected medication progress %+v", sum.Medications)
	}
	if sum.Meals.Count != 2 || sum.Meals.Goal != MealGoal {
		t.Fatalf("unexpected meals %+v", sum.Meals)
	}
	if sum.Sleep.Sessions != 1 || sum.Sleep.TotalMinutes != 510 {
		t.Fatalf("unexpected sleep %+v", sum.Sleep)
	}
	if sum.BowelMovements.Count != 1 || sum.Urination.Count != 2 || !sum.Urination.Last.Equal(day(11, 0)) {
		t.Fatalf("unexpected event counts %+v %+v", sum.BowelMovements, sum.Urination)
	}
	if sum.BloodPressure == nil || sum.BloodPressure.Systolic != 135 {
		t.Fatalf("expected latest blood pressure 135, got %+v", sum.BloodPressure)
	}
	if sum.Glucose != nil {
		t.Fatalf("expected no glucose reading")
	}
	if sum.Insulin.Doses != 2 || sum.Insulin.Units != 10.5 {
		t.Fatalf("unexpected insulin %+v", sum.Insulin)
	}
	if sum.Appointments.Count != 2 || sum.Appointments.Next == nil || sum.Appointments.Next.Title != "Cardio" {
		t.Fatalf("unexpected appointments %+v", sum.Appointments)
	}
	if sum.Notes != 1 {
		t.Fatalf("expected 1 note, got %d", sum.Notes)
	}
}

func TestService_Today_UsesTimeZone(t *testing.T) {
	loc := time.FixedZone("UTC-5", -5*3600)
	// 02:00 UTC del 11 => 21:00 del 10 en UTC-5
	now := time.Date(2025, 3, 11, 2, 0, 0, 0, time.UTC)

	f := &fakeLister{}
	f.add(records.KindMeals, "7", time.Date(2025, 3, 10, 23, 0, 0, 0, time.UTC), `{"mealType":"dinner"}`)
	f.add(records.KindMeals, "7", time.Date(2025, 3, 10, 4, 0, 0, 0, time.UTC), `{"mealType":"snack"}`)

	svc := NewService(f)
	svc.now = func() time.Time { return now }

	sum, err := svc.Today(context.Background(), "7", loc)
	if err != nil {
		t.Fatalf("Today error: %v", err)
	}
	if sum.Date != "2025-03-10" || sum.Meals.Count != 1 {
		t.Fatalf("expected 1 meal on 2025-03-10 local, got %s %+v", sum.Date, sum.Meals)
	}
}

func TestService_Today_SkipsAndLogsUnreadableDetails(t *testing.T) {
	now := time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)
	at := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	f := &fakeLister{}
	f.add(records.KindMedicationLogs, "7", at, `{"status":`)
	f.add(records.KindMedicationLogs, "7", at.Add(time.Hour), `{"medicationId":"m1","status":"taken"}`)
	f.add(records.KindInsulin, "7", at, `{"units":"four"}`)

	core, logs := observer.New(zapcore.DebugLevel)
	ctx := middleware.WithLogger(context.Background(), logger.FromZap(zap.New(core)))

	svc := NewService(f)
	svc.now = func() time.Time { return now }

	sum, err := svc.Today(ctx, "7", nil)
	if err != nil {
		t.Fatalf("Today error: %v", err)
	}
	if sum.Medications.Taken != 1 || sum.Medications.Skipped != 0 {
		t.Fatalf("an unreadable log must not count as taken: %+v", sum.Medications)
	}
	if sum.Insulin.Doses != 0 {
		t.Fatalf("an unreadable dose must not count: %+v", sum.Insulin)
	}

	entries := logs.FilterMessage("skipping record with unreadable details").All()
	if len(entries) != 2 {
		t.Fatalf("expected 2 warnings, got %d", len(entries))
	}
	for _, e := range entries {
		if e.Level != zapcore.WarnLevel || e.ContextMap()["care_recipient_id"] != "7" {
			t.Fatalf("unexpected entry %+v", e)
		}
	}
}
