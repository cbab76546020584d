package profiles

import "time"

// Profile es la fila de identidad de cada usuario (id = id del usuario en auth).
type Profile struct {
	ID string

	Name        string
	Email       string
	Phone       string // solo dígitos
	CPF         string // solo dígitos
	Address     string
	SpecialCare string

	Carer   bool    // cuenta de cuidador
	CarerID *string // cuidador responsable (nil = sin vínculo)

	DeviceToken string

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (p Profile) Linked() bool {
	return p.CarerID != nil && *p.CarerID != ""
}

// LinkedTo indica si el perfil está vinculado al cuidador dado.
func (p Profile) LinkedTo(carerID string) bool {
	return p.Linked() && *p.CarerID == carerID
}
