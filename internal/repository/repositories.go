package repository

import (
	"gorm.io/gorm"
)

// Repositories holds all repository instances
type Repositories struct {
	User         UserRepository
	Proyecto     ProyectoRepository
	Vivienda     ViviendaRepository
	Cliente      ClienteRepository
	Abono        AbonoRepository
	Renuncia     RenunciaRepository
	Notification NotificationRepository
	RefreshToken RefreshTokenRepository
}

// NewRepositories creates all repository instances
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:         NewUserRepository(db),
		Proyecto:     NewProyectoRepository(db),
		Vivienda:     NewViviendaRepository(db),
		Cliente:      NewClienteRepository(db),
		Abono:        NewAbonoRepository(db),
		Renuncia:     NewRenunciaRepository(db),
		Notification: NewNotificationRepository(db),
		RefreshToken: NewRefreshTokenRepository(db),
	}
}
