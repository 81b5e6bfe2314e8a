package carestats

import "time"

// MealGoal es la meta diaria de comidas del dashboard.
const MealGoal = 3

// Summary es el agregado "hoy" de un care recipient en una zona horaria.
type Summary struct {
	CareRecipientID string
	Date            string // YYYY-MM-DD en TimeZone
	TimeZone        string

	Medications    MedicationProgress
	Meals          MealProgress
	Sleep          SleepSummary
	BowelMovements EventCount
	Urination      EventCount
	BloodPressure  *BloodPressureReading
	Glucose        *GlucoseReading
	Insulin        InsulinSummary
	Appointments   AppointmentSummary
	Notes          int
}

type MedicationProgress struct {
	Scheduled int
	Taken     int
	Skipped   int
}

type MealProgress struct {
	Count int
	Goal  int
}

type SleepSummary struct {
	Sessions     int
	TotalMinutes int
}

type EventCount struct {
	Count int
	Last  *time.Time
}

type BloodPressureReading struct {
	Systolic  int
	Diastolic int
	Pulse     int
	At        time.Time
}

type GlucoseReading struct {
	Value float64
	Unit  string
	At    time.Time
}

type InsulinSummary struct {
	Doses int
	Units float64
}

type AppointmentSummary struct {
	Count int
	Next  *NextAppointment
}

type NextAppointment struct {
	ID        string
	Title     string
	Location  string
	StartTime time.Time
}
