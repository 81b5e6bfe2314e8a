package details

import (
	"strings"
	"time"
)

type Meal struct {
	MealType    string `json:"mealType" validate:"required,oneof=breakfast lunch dinner snack"`
	Description string `json:"description,omitempty"`
	AmountEaten string `json:"amountEaten,omitempty" validate:"omitempty,oneof=none some most all"`
}

func (m *Meal) Normalize(time.Time) error {
	m.MealType = strings.ToLower(strings.TrimSpace(m.MealType))
	return Validate(m)
}

type Sleep struct {
	EndTime *time.Time `json:"endTime,omitempty"`
	Quality int        `json:"quality,omitempty" validate:"omitempty,min=1,max=5"` // 0 = sin dato
}

func (s *Sleep) Normalize(startTime time.Time) error {
	if s.EndTime != nil && !s.EndTime.After(startTime) {
		return invalid("endTime must be after startTime")
	}
	return Validate(s)
}

// Minutes devuelve la duración; 0 si el sueño no terminó.
func (s Sleep) Minutes(startTime time.Time) int {
	if s.EndTime == nil {
		return 0
	}
	return int(s.EndTime.Sub(startTime).Minutes())
}

type BowelMovement struct {
	BristolType int    `json:"bristolType,omitempty" validate:"omitempty,min=1,max=7"`
	Color       string `json:"color,omitempty"`
	HasBlood    bool   `json:"hasBlood,omitempty"`
}

func (b *BowelMovement) Normalize(time.Time) error {
	return Validate(b)
}

type Urination struct {
	VolumeML int    `json:"volumeMl,omitempty" validate:"min=0"`
	Color    string `json:"color,omitempty"`
	Urgency  string `json:"urgency,omitempty" validate:"omitempty,oneof=normal urgent"`
	Leakage  bool   `json:"leakage,omitempty"`
}

func (u *Urination) Normalize(time.Time) error {
	return Validate(u)
}

type Note struct {
	Title    string `json:"title,omitempty"`
	Content  string `json:"content" validate:"required"`
	Category string `json:"category,omitempty"`
}

func (n *Note) Normalize(time.Time) error {
	n.Title = strings.TrimSpace(n.Title)
	n.Content = strings.TrimSpace(n.Content)
	return Validate(n)
}
