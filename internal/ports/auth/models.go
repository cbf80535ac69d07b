package auth

// Claims representa la identidad ya autenticada extraída del token.
// Role viene tal cual del claim; el dominio lo normaliza (case-insensitive).
type Claims struct {
	UserID string
	Role   string
	Email  string
}
