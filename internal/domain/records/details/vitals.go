package details

import (
	"strings"
	"time"
)

type BloodPressure struct {
	Systolic  int    `json:"systolic" validate:"min=40,max=300"`
	Diastolic int    `json:"diastolic" validate:"min=20,max=200,ltfield=Systolic"`
	Pulse     int    `json:"pulse,omitempty" validate:"min=0,max=300"`
	Position  string `json:"position,omitempty" validate:"omitempty,oneof=sitting standing lying"`
}

func (b *BloodPressure) Normalize(time.Time) error {
	return Validate(b)
}

const (
	GlucoseUnitMgDL  = "mg/dL"
	GlucoseUnitMmolL = "mmol/L"
)

type Glucose struct {
	Value        float64 `json:"value" validate:"gt=0"`
	Unit         string  `json:"unit,omitempty" validate:"oneof=mg/dL mmol/L"`
	MealRelation string  `json:"mealRelation,omitempty" validate:"omitempty,oneof=fasting before_meal after_meal bedtime random"`
}

func (g *Glucose) Normalize(time.Time) error {
	if g.Unit == "" {
		g.Unit = GlucoseUnitMgDL
	}
	return Validate(g)
}

type Insulin struct {
	Units       float64 `json:"units" validate:"gt=0,max=300"`
	InsulinType string  `json:"insulinType,omitempty"`
	Site        string  `json:"site,omitempty"`
}

func (i *Insulin) Normalize(time.Time) error {
	i.InsulinType = strings.TrimSpace(i.InsulinType)
	return Validate(i)
}
