package api

import "time"

type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

type CareRecipient struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Status      string    `json:"status"`
	OwnerUserID string    `json:"ownerUserId"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Record es el payload plano de un registro: careRecipientId, el campo de
// tiempo del tipo, notes y los campos específicos.
type Record map[string]any

func (r Record) ID() string {
	s, _ := r["id"].(string)
	return s
}

func (r Record) CareRecipientID() string {
	s, _ := r["careRecipientId"].(string)
	return s
}

type ListOptions struct {
	From  *time.Time
	To    *time.Time
	Limit int
}

type EventCount struct {
	Count int        `json:"count"`
	Last  *time.Time `json:"last"`
}

type TodayStats struct {
	CareRecipientID string `json:"careRecipientId"`
	Date            string `json:"date"`
	TimeZone        string `json:"timeZone"`

	Medications struct {
		Scheduled int `json:"scheduled"`
		Taken     int `json:"taken"`
		Skipped   int `json:"skipped"`
	} `json:"medications"`
	Meals struct {
		Count int `json:"count"`
		Goal  int `json:"goal"`
	} `json:"meals"`
	Sleep struct {
		Sessions     int `json:"sessions"`
		TotalMinutes int `json:"totalMinutes"`
	} `json:"sleep"`

	BowelMovements EventCount `json:"bowelMovements"`
	Urination      EventCount `json:"urination"`

	BloodPressure *struct {
		Systolic      int       `json:"systolic"`
		Diastolic     int       `json:"diastolic"`
		Pulse         int       `json:"pulse"`
		TimeOfReading time.Time `json:"timeOfReading"`
	} `json:"bloodPressure"`
	Glucose *struct {
		Value         float64   `json:"value"`
		Unit          string    `json:"unit"`
		TimeOfReading time.Time `json:"timeOfReading"`
	} `json:"glucose"`

	Insulin struct {
		Doses int     `json:"doses"`
		Units float64 `json:"units"`
	} `json:"insulin"`
	Appointments struct {
		Count int `json:"count"`
		Next  *struct {
			ID        string    `json:"id"`
			Title     string    `json:"title"`
			Location  string    `json:"location"`
			StartTime time.Time `json:"startTime"`
		} `json:"next"`
	} `json:"appointments"`
	Notes int `json:"notes"`
}

// EmergencyInfo es la vista bloqueada: nunca trae contenido.
type EmergencyInfo struct {
	ID              string    `json:"id"`
	CareRecipientID string    `json:"careRecipientId"`
	Locked          bool      `json:"locked"`
	HasPIN          bool      `json:"hasPin"`
	UnlockMode      string    `json:"unlockMode"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

type EmergencyContact struct {
	Name         string `json:"name"`
	Relationship string `json:"relationship,omitempty"`
	Phone        string `json:"phone"`
}

type EmergencyContents struct {
	BloodType             string             `json:"bloodType"`
	Allergies             string             `json:"allergies"`
	Conditions            string             `json:"conditions"`
	Medications           string             `json:"medications"`
	EmergencyContacts     []EmergencyContact `json:"emergencyContacts"`
	PhysicianName         string             `json:"physicianName"`
	PhysicianPhone        string             `json:"physicianPhone"`
	InsuranceProvider     string             `json:"insuranceProvider"`
	InsurancePolicyNumber string             `json:"insurancePolicyNumber"`
	DNR                   bool               `json:"dnr"`
	AdditionalNotes       string             `json:"additionalNotes"`
}

// UnlockedEmergencyInfo solo llega como respuesta de un verify exitoso.
type UnlockedEmergencyInfo struct {
	ID              string `json:"id"`
	CareRecipientID string `json:"careRecipientId"`
	HasPIN          bool   `json:"hasPin"`
	EmergencyContents
	UpdatedAt time.Time `json:"updatedAt"`
}

// Credential: una de las dos; PIN tiene prioridad en el servidor.
type Credential struct {
	PIN      string `json:"pin,omitempty"`
	Password string `json:"password,omitempty"`
}

type VerifyResult struct {
	Verified      bool                   `json:"verified"`
	EmergencyInfo *UnlockedEmergencyInfo `json:"emergencyInfo,omitempty"`
}
