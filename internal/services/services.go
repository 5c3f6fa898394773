package services

import (
	"gorm.io/gorm"

	"github.com/rmoralesv/viviendas-api/internal/config"
	"github.com/rmoralesv/viviendas-api/internal/datasync"
	"github.com/rmoralesv/viviendas-api/internal/jobs"
	"github.com/rmoralesv/viviendas-api/internal/repository"
)

// Services holds all service instances
type Services struct {
	Auth         *AuthService
	User         *UserService
	Proyecto     *ProyectoService
	Vivienda     *ViviendaService
	Cliente      *ClienteService
	Abono        *AbonoService
	Renuncia     *RenunciaService
	Notification *NotificationService
	Report       *ReportService
	Export       *ExportService
	Audit        *AuditService
	Job          *JobService
}

// NewServices creates all service instances
func NewServices(repos *repository.Repositories, worker *jobs.Worker, sync *datasync.Invalidator, cfg *config.Config, db *gorm.DB) *Services {
	notificationSvc := NewNotificationService(repos.Notification, repos.User)
	auditSvc := NewAuditService(db)
	jobSvc := NewJobService(worker)

	return &Services{
		Auth:         NewAuthService(repos.User, repos.RefreshToken, cfg),
		User:         NewUserService(repos.User, auditSvc),
		Proyecto:     NewProyectoService(repos.Proyecto, repos.Vivienda, auditSvc, sync),
		Vivienda:     NewViviendaService(repos.Vivienda, repos.Proyecto, repos.Cliente, auditSvc, sync),
		Cliente:      NewClienteService(repos.Cliente, repos.Vivienda, repos.Abono, repos.Renuncia, notificationSvc, auditSvc, worker, sync),
		Abono:        NewAbonoService(repos.Abono, repos.Cliente, repos.Vivienda, notificationSvc, auditSvc, worker, sync),
		Renuncia:     NewRenunciaService(repos.Renuncia, repos.Cliente, repos.Vivienda, repos.Abono, notificationSvc, auditSvc, worker, sync),
		Notification: notificationSvc,
		Report:       NewReportService(repos.Cliente, repos.Abono, repos.Renuncia),
		Export:       NewExportService(repos.Abono, repos.Vivienda, repos.Cliente, repos.Renuncia),
		Audit:        auditSvc,
		Job:          jobSvc,
	}
}
