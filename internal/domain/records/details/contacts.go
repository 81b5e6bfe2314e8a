package details

import (
	"strings"
	"time"
)

type AppointmentStatus string

const (
	AppointmentScheduled AppointmentStatus = "scheduled"
	AppointmentCompleted AppointmentStatus = "completed"
	AppointmentCancelled AppointmentStatus = "cancelled"
)

type Appointment struct {
	Title    string            `json:"title" validate:"required"`
	Location string            `json:"location,omitempty"`
	DoctorID string            `json:"doctorId,omitempty"`
	EndTime  *time.Time        `json:"endTime,omitempty"`
	Status   AppointmentStatus `json:"status,omitempty" validate:"oneof=scheduled completed cancelled"`
}

func (a *Appointment) Normalize(startTime time.Time) error {
	a.Title = strings.TrimSpace(a.Title)
	if a.EndTime != nil && a.EndTime.Before(startTime) {
		return invalid("endTime must not be before startTime")
	}
	if a.Status == "" {
		a.Status = AppointmentScheduled
	}
	return Validate(a)
}

type Doctor struct {
	Name      string `json:"name" validate:"required"`
	Specialty string `json:"specialty,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Email     string `json:"email,omitempty" validate:"omitempty,email"`
	Address   string `json:"address,omitempty"`
}

func (d *Doctor) Normalize(time.Time) error {
	d.Name = strings.TrimSpace(d.Name)
	d.Email = strings.TrimSpace(d.Email)
	return Validate(d)
}

type Pharmacy struct {
	Name    string `json:"name" validate:"required"`
	Phone   string `json:"phone,omitempty"`
	Address string `json:"address,omitempty"`
}

func (p *Pharmacy) Normalize(time.Time) error {
	p.Name = strings.TrimSpace(p.Name)
	return Validate(p)
}
