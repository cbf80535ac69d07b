package directory

import "context"

// Profile es lo único que el portal necesita del directorio de usuarios:
// el nombre para mostrar en respuestas y notificaciones.
type Profile struct {
	UserID      string
	DisplayName string
	Email       string
}

// Directory resuelve perfiles por id. Los consumidores lo tratan como
// best-effort: si falla, se responde sin nombre.
type Directory interface {
	FindByID(ctx context.Context, userID string) (Profile, error)
}
