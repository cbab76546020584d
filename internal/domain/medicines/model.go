package medicines

import "time"

// Medicine es un medicamento del idoso (tabla medicines).
type Medicine struct {
	ID     int64
	UserID string

	Nome    string
	Dose    string // texto libre ("1 comprimido", "10ml")
	Estoque int

	// FrequenciaHoras nil (o <= 0) = sin recordatorio periódico.
	FrequenciaHoras *int
	// UltimaDose nil = dosis pendiente ahora.
	UltimaDose *time.Time

	CreatedAt time.Time
}

// IsDue calcula en lectura si toca una dosis:
// nunca tomada, o pasaron frequencia_horas desde la última.
func (m Medicine) IsDue(now time.Time) bool {
	if m.UltimaDose == nil {
		return true
	}
	if m.FrequenciaHoras == nil || *m.FrequenciaHoras <= 0 {
		return false
	}
	next := m.UltimaDose.Add(time.Duration(*m.FrequenciaHoras) * time.Hour)
	return !now.Before(next)
}

// NextDueAt devuelve cuándo vuelve a quedar pendiente. ok=false si no tiene frecuencia.
func (m Medicine) NextDueAt() (time.Time, bool) {
	if m.UltimaDose == nil {
		return time.Time{}, true
	}
	if m.FrequenciaHoras == nil || *m.FrequenciaHoras <= 0 {
		return time.Time{}, false
	}
	return m.UltimaDose.Add(time.Duration(*m.FrequenciaHoras) * time.Hour), true
}
