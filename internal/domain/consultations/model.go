package consultations

import "time"

type Tipo string

const (
	TipoPresencial   Tipo = "presencial"
	TipoTelemedicina Tipo = "telemedicina"
)

func (t Tipo) Valid() bool {
	switch t {
	case TipoPresencial, TipoTelemedicina:
		return true
	}
	return false
}

// Consultation es una consulta agendada (tabla consultation).
// Solo se crea; no se edita ni se borra.
type Consultation struct {
	ID     int64
	UserID string

	Nome     string // nombre del paciente
	DataHora time.Time
	Tipo     Tipo

	Medico        string
	Especialidade string

	CreatedAt time.Time
}
