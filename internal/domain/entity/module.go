package entity

import "time"

// ModuleCode módulo SaaS habilitable por organización.
type ModuleCode string

const (
	ModuleCampo        ModuleCode = "campo"
	ModuleEmpaque      ModuleCode = "empaque"
	ModuleInventario   ModuleCode = "inventario"
	ModuleFinanzas     ModuleCode = "finanzas"
	ModuleTrabajadores ModuleCode = "trabajadores"
	ModuleAsistencia   ModuleCode = "asistencia"
)

// ParseModuleCode valida el código de módulo.
func ParseModuleCode(s string) (ModuleCode, bool) {
	switch m := ModuleCode(s); m {
	case ModuleCampo, ModuleEmpaque, ModuleInventario, ModuleFinanzas, ModuleTrabajadores, ModuleAsistencia:
		return m, true
	}
	return "", false
}

// DefaultModules conjunto fijo de módulos habilitados al crear una organización.
func DefaultModules() []ModuleCode {
	return []ModuleCode{
		ModuleCampo,
		ModuleEmpaque,
		ModuleInventario,
		ModuleFinanzas,
		ModuleTrabajadores,
		ModuleAsistencia,
	}
}

// TenantModule fila de tenant_modules.
type TenantModule struct {
	TenantID   string
	ModuleCode ModuleCode
	Enabled    bool
	CreatedAt  time.Time
}
