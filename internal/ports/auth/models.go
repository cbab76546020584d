package auth

// Claims representa la información extraída del token.
type Claims struct {
	UserID string
	Email  string
	Role   string // "authenticated", "anon", ...

	// user_metadata del backend (name, cpf, phone, carer).
	Metadata map[string]any
}
