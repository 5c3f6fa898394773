package services

import "errors"

// Common service errors
var (
	ErrNotFound             = errors.New("registro no encontrado")
	ErrInvalidPassword      = errors.New("contraseña inválida")
	ErrUnauthorized         = errors.New("no autorizado")
	ErrInvalidState         = errors.New("transición de estado inválida")
	ErrDuplicate            = errors.New("registro duplicado")
	ErrViviendaNoDisponible = errors.New("la vivienda ya fue asignada a otro cliente")
	ErrProcesoFinalizado    = errors.New("el proceso de venta ya fue finalizado con factura")
	ErrTieneHistorial       = errors.New("el registro tiene historial asociado y no puede eliminarse")
)

// ValidationError carries per-field messages for a rejected write.
// Handlers render it as a 422 with the field map intact.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	for _, msg := range e.Fields {
		return msg
	}
	return "datos inválidos"
}

// NewValidationError builds a ValidationError from field/message pairs
func NewValidationError(pairs ...string) *ValidationError {
	fields := make(map[string]string, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		fields[pairs[i]] = pairs[i+1]
	}
	return &ValidationError{Fields: fields}
}

// IsValidationError reports whether err is a ValidationError and returns it
func IsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
