package carestats

import (
	"context"
	"errors"
	"strings"
	"time"

	"caregiver-support/internal/domain/records"
	"caregiver-support/internal/domain/records/details"
	"caregiver-support/internal/middleware"
)

var ErrInvalidInput = errors.New("invalid input")

// RecordLister es la parte de records.Service que necesita el agregado.
type RecordLister interface {
	List(ctx context.Context, filter records.ListFilter) ([]records.Record, error)
}

type Service struct {
	records RecordLister
	now     func() time.Time
}

func NewService(lister RecordLister) *Service {
	return &Service{
		records: lister,
		now:     time.Now,
	}
}

var dailyKinds = []records.Kind{
	records.KindMedicationLogs,
	records.KindMeals,
	records.KindSleep,
	records.KindBowelMovements,
	records.KindUrination,
	records.KindInsulin,
	records.KindAppointments,
	records.KindNotes,
}

// Today calcula el resumen del día actual en loc (nil => UTC).
func (s *Service) Today(ctx context.Context, careRecipientID string, loc *time.Location) (Summary, error) {
	careRecipientID = strings.TrimSpace(careRecipientID)
	if careRecipientID == "" {
		return Summary{}, ErrInvalidInput
	}
	if loc == nil {
		loc = time.UTC
	}

	now := s.now().In(loc)
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	dayEnd := dayStart.AddDate(0, 0, 1)

	out := Summary{
		CareRecipientID: careRecipientID,
		Date:            dayStart.Format(time.DateOnly),
		TimeZone:        loc.String(),
		Meals:           MealProgress{Goal: MealGoal},
	}

	// El sueño de anoche empieza ayer; se cuenta por hora de fin.
	from := dayStart.Add(-24 * time.Hour)
	daily, err := s.records.List(ctx, records.ListFilter{
		CareRecipientID: careRecipientID,
		Kinds:           dailyKinds,
		From:            &from,
		To:              &dayEnd,
	})
	if err != nil {
		return Summary{}, err
	}

	today := func(t time.Time) bool {
		return !t.Before(dayStart) && t.Before(dayEnd)
	}

	for _, rec := range daily {
		if rec.Kind == records.KindSleep {
			var sl details.Sleep
			if decode(ctx, rec, &sl) && sl.EndTime != nil && today(*sl.EndTime) {
				out.Sleep.Sessions++
				out.Sleep.TotalMinutes += sl.Minutes(rec.OccurredAt)
			}
			continue
		}
		if !today(rec.OccurredAt) {
			continue
		}

		switch rec.Kind {
		case records.KindMedicationLogs:
			var l details.MedicationLog
			if !decode(ctx, rec, &l) {
				continue
			}
			if l.Status == details.MedicationLogSkipped {
				out.Medications.Skipped++
			} else {
				out.Medications.Taken++
			}
		case records.KindMeals:
			out.Meals.Count++
		case records.KindBowelMovements:
			countEvent(&out.BowelMovements, rec.OccurredAt)
		case records.KindUrination:
			countEvent(&out.Urination, rec.OccurredAt)
		case records.KindInsulin:
			var in details.Insulin
			if !decode(ctx, rec, &in) {
				continue
			}
			out.Insulin.Doses++
			out.Insulin.Units += in.Units
		case records.KindAppointments:
			var a details.Appointment
			if !decode(ctx, rec, &a) {
				continue
			}
			if a.Status == details.AppointmentCancelled {
				continue
			}
			out.Appointments.Count++
			if a.Status == details.AppointmentScheduled && !rec.OccurredAt.Before(now) {
				if out.Appointments.Next == nil || rec.OccurredAt.Before(out.Appointments.Next.StartTime) {
					out.Appointments.Next = &NextAppointment{
						ID:        rec.ID,
						Title:     a.Title,
						Location:  a.Location,
						StartTime: rec.OccurredAt,
					}
				}
			}
		case records.KindNotes:
			out.Notes++
		}
	}

	if out.Medications.Scheduled, err = s.scheduledDoses(ctx, careRecipientID, dayStart, dayEnd); err != nil {
		return Summary{}, err
	}
	if out.BloodPressure, out.Glucose, err = s.latestReadings(ctx, careRecipientID, dayEnd); err != nil {
		return Summary{}, err
	}
	return out, nil
}

func (s *Service) scheduledDoses(ctx context.Context, careRecipientID string, dayStart, dayEnd time.Time) (int, error) {
	meds, err := s.records.List(ctx, records.ListFilter{
		CareRecipientID: careRecipientID,
		Kinds:           []records.Kind{records.KindMedications},
		To:              &dayEnd,
	})
	if err != nil {
		return 0, err
	}

	total := 0
	for _, rec := range meds {
		var m details.Medication
		if !decode(ctx, rec, &m) {
			continue
		}
		if m.ActiveOn(rec.OccurredAt, dayStart, dayEnd) {
			total += max(m.TimesPerDay, 1)
		}
	}
	return total, nil
}

// latestReadings toma la última lectura registrada (no solo de hoy).
func (s *Service) latestReadings(ctx context.Context, careRecipientID string, until time.Time) (*BloodPressureReading, *GlucoseReading, error) {
	var bp *BloodPressureReading
	var gl *GlucoseReading

	last, err := s.records.List(ctx, records.ListFilter{
		CareRecipientID: careRecipientID,
		Kinds:           []records.Kind{records.KindBloodPressure},
		To:              &until,
		Limit:           1,
	})
	if err != nil {
		return nil, nil, err
	}
	if len(last) > 0 {
		var d details.BloodPressure
		if decode(ctx, last[0], &d) {
			bp = &BloodPressureReading{Systolic: d.Systolic, Diastolic: d.Diastolic, Pulse: d.Pulse, At: last[0].OccurredAt}
		}
	}

	last, err = s.records.List(ctx, records.ListFilter{
		CareRecipientID: careRecipientID,
		Kinds:           []records.Kind{records.KindGlucose},
		To:              &until,
		Limit:           1,
	})
	if err != nil {
		return nil, nil, err
	}
	if len(last) > 0 {
		var d details.Glucose
		if decode(ctx, last[0], &d) {
			gl = &GlucoseReading{Value: d.Value, Unit: d.Unit, At: last[0].OccurredAt}
		}
	}
	return bp, gl, nil
}

// decode lee los detalles guardados; un registro ilegible queda fuera del
// resumen y se registra.
func decode(ctx context.Context, rec records.Record, into any) bool {
	if err := rec.DecodeDetails(into); err != nil {
		middleware.Log(ctx).Warn("skipping record with unreadable details", map[string]any{
			"error":             err,
			"record_id":         rec.ID,
			"kind":              string(rec.Kind),
			"care_recipient_id": rec.CareRecipientID,
		})
		return false
	}
	return true
}

func countEvent(c *EventCount, at time.Time) {
	c.Count++
	if c.Last == nil || at.After(*c.Last) {
		t := at
		c.Last = &t
	}
}
