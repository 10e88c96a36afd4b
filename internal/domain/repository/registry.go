package repository

// Registry agrupa los repositorios de una misma unidad de trabajo.
// Dentro de TxRunner.Run todos comparten la transacción.
type Registry struct {
	Tenants       TenantRepository
	Memberships   MembershipRepository
	Workers       WorkerRepository
	Invitations   InvitationRepository
	Checkouts     CheckoutRepository
	WebhookEvents WebhookEventRepository
	Audit         AuditRepository
	Profiles      ProfileRepository
	Modules       ModuleRepository
}
