package querycache

// StatsResource es el agregado del dashboard; casi todo recurso lo alimenta.
const StatsResource = "/api/care-stats/today"

const EmergencyInfoResource = "/api/emergency-info"

// Table mapea recurso mutado => recursos cuyas claves quedan obsoletas.
// El recurso mutado siempre se incluye a sí mismo.
type Table map[string][]string

func (t Table) Affected(resource string) []string {
	out := []string{resource}
	seen := map[string]bool{resource: true}
	for _, r := range t[resource] {
		if !seen[r] {
			seen[r] = true
			out = append(out, r)
		}
	}
	return out
}

// DefaultTable cubre todos los recursos por recipient del servidor.
func DefaultTable() Table {
	return Table{
		"/api/medications":     {"/api/medication-logs", StatsResource},
		"/api/medication-logs": {StatsResource},
		"/api/meals":           {StatsResource},
		"/api/sleep":           {StatsResource},
		"/api/bowel-movements": {StatsResource},
		"/api/urination":       {StatsResource},
		"/api/blood-pressure":  {StatsResource},
		"/api/glucose":         {StatsResource},
		"/api/insulin":         {StatsResource},
		"/api/appointments":    {StatsResource},
		"/api/doctors":         {"/api/appointments", StatsResource},
		"/api/pharmacies":      {StatsResource},
		"/api/notes":           {StatsResource},
		EmergencyInfoResource:  {},
	}
}
