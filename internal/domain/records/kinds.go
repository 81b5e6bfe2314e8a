package records

import (
	"caregiver-support/internal/domain/records/details"
)

// Kind identifica el tipo de registro; coincide con el path REST (/api/{kind}).
type Kind string

const (
	KindMedications    Kind = "medications"
	KindMedicationLogs Kind = "medication-logs"
	KindMeals          Kind = "meals"
	KindSleep          Kind = "sleep"
	KindBowelMovements Kind = "bowel-movements"
	KindUrination      Kind = "urination"
	KindBloodPressure  Kind = "blood-pressure"
	KindGlucose        Kind = "glucose"
	KindInsulin        Kind = "insulin"
	KindAppointments   Kind = "appointments"
	KindDoctors        Kind = "doctors"
	KindPharmacies     Kind = "pharmacies"
	KindNotes          Kind = "notes"
)

// KindSpec describe cómo se serializa y valida cada tipo de registro.
type KindSpec struct {
	Kind Kind

	// TimeField es el nombre JSON del timestamp del registro.
	// Vacío => el registro no tiene timestamp propio y se ordena por createdAt.
	TimeField    string
	TimeRequired bool

	newDetails func() details.Details
}

// Resource es el path REST de la colección, p.ej. "/api/meals".
func (k KindSpec) Resource() string {
	return "/api/" + string(k.Kind)
}

var kindTable = []KindSpec{
	{Kind: KindMedications, TimeField: "startDate", newDetails: func() details.Details { return &details.Medication{} }},
	{Kind: KindMedicationLogs, TimeField: "takenAt", newDetails: func() details.Details { return &details.MedicationLog{} }},
	{Kind: KindMeals, TimeField: "consumedAt", newDetails: func() details.Details { return &details.Meal{} }},
	{Kind: KindSleep, TimeField: "startTime", TimeRequired: true, newDetails: func() details.Details { return &details.Sleep{} }},
	{Kind: KindBowelMovements, TimeField: "occuredAt", newDetails: func() details.Details { return &details.BowelMovement{} }},
	{Kind: KindUrination, TimeField: "occuredAt", newDetails: func() details.Details { return &details.Urination{} }},
	{Kind: KindBloodPressure, TimeField: "timeOfReading", newDetails: func() details.Details { return &details.BloodPressure{} }},
	{Kind: KindGlucose, TimeField: "timeOfReading", newDetails: func() details.Details { return &details.Glucose{} }},
	{Kind: KindInsulin, TimeField: "administeredAt", newDetails: func() details.Details { return &details.Insulin{} }},
	{Kind: KindAppointments, TimeField: "startTime", TimeRequired: true, newDetails: func() details.Details { return &details.Appointment{} }},
	{Kind: KindDoctors, newDetails: func() details.Details { return &details.Doctor{} }},
	{Kind: KindPharmacies, newDetails: func() details.Details { return &details.Pharmacy{} }},
	{Kind: KindNotes, TimeField: "occuredAt", newDetails: func() details.Details { return &details.Note{} }},
}

// Kinds devuelve la tabla completa en orden estable.
func Kinds() []KindSpec {
	out := make([]KindSpec, len(kindTable))
	copy(out, kindTable)
	return out
}

func Lookup(k Kind) (KindSpec, bool) {
	for _, s := range kindTable {
		if s.Kind == k {
			return s, true
		}
	}
	return KindSpec{}, false
}
