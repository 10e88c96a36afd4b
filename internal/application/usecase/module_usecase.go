package usecase

import (
	"context"
	"fmt"

	"github.com/jhoicas/agrocloud-api/internal/domain/entity"
	"github.com/jhoicas/agrocloud-api/internal/domain/repository"
)

// ModuleService verifica qué módulos SaaS tiene habilitados una organización.
// Es el único punto de la aplicación que conoce la lógica de activación de módulos.
type ModuleService struct {
	modules repository.ModuleRepository
}

// NewModuleService construye el servicio de módulos.
func NewModuleService(modules repository.ModuleRepository) *ModuleService {
	return &ModuleService{modules: modules}
}

// HasActiveModule informa si la organización tiene el módulo habilitado.
// Devuelve false (sin error) si el módulo no existe o no está habilitado.
// Devuelve error solo ante fallos de infraestructura (DB caída, timeout, etc.).
func (s *ModuleService) HasActiveModule(ctx context.Context, tenantID, moduleName string) (bool, error) {
	if tenantID == "" || moduleName == "" {
		return false, fmt.Errorf("module: tenantID y moduleName son obligatorios")
	}
	code, ok := entity.ParseModuleCode(moduleName)
	if !ok {
		return false, nil
	}
	return s.modules.HasActiveModule(ctx, tenantID, code)
}

// Enabled lista los códigos habilitados de la organización.
func (s *ModuleService) Enabled(ctx context.Context, tenantID string) ([]entity.ModuleCode, error) {
	rows, err := s.modules.ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	out := make([]entity.ModuleCode, 0, len(rows))
	for _, m := range rows {
		if m.Enabled {
			out = append(out, m.ModuleCode)
		}
	}
	return out, nil
}
