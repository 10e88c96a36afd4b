package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/agrocloud-api/internal/domain"
	"github.com/jhoicas/agrocloud-api/internal/domain/entity"
	"github.com/jhoicas/agrocloud-api/internal/domain/repository"
	"github.com/jhoicas/agrocloud-api/internal/infrastructure/memory"
)

func newTenant(id, slug string, maxUsers, current int) *entity.Tenant {
	return &entity.Tenant{ID: id, Name: slug, Slug: slug, Plan: entity.PlanBasico, CreatedBy: "u-1",
		MaxUsers: maxUsers, CurrentUsers: current, PaymentStatus: entity.PaymentActive}
}

func TestTenantRepo_SlugUnicoYCupos(t *testing.T) {
	ctx := context.Background()
	repos := memory.NewStore().Registry()

	require.NoError(t, repos.Tenants.Create(ctx, newTenant("t1", "finca-sur", 2, 1)))
	assert.ErrorIs(t, repos.Tenants.Create(ctx, newTenant("t2", "finca-sur", 2, 1)), domain.ErrSlugTaken)

	n, err := repos.Tenants.ReserveSeat(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	_, err = repos.Tenants.ReserveSeat(ctx, "t1")
	assert.ErrorIs(t, err, domain.ErrSeatLimitReached)

	require.NoError(t, repos.Tenants.ReleaseSeat(ctx, "t1"))
	require.NoError(t, repos.Tenants.ReleaseSeat(ctx, "t1"))
	require.NoError(t, repos.Tenants.ReleaseSeat(ctx, "t1"))
	got, _ := repos.Tenants.GetByID(ctx, "t1")
	assert.Equal(t, 0, got.CurrentUsers, "current_users nunca negativo")
}

func TestTenantRepo_SinLimite(t *testing.T) {
	ctx := context.Background()
	repos := memory.NewStore().Registry()
	require.NoError(t, repos.Tenants.Create(ctx, newTenant("t1", "ilimitada", 0, 50)))
	n, err := repos.Tenants.ReserveSeat(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, 51, n)
}

func TestInvitationRepo_IndiceParcial(t *testing.T) {
	ctx := context.Background()
	repos := memory.NewStore().Registry()
	now := time.Now()
	inv := &entity.Invitation{ID: "i1", TenantID: "t1", Email: "Ana@Finca.co", Role: entity.RoleCampo,
		Token: "tok-1", ExpiresAt: now.Add(time.Hour)}
	require.NoError(t, repos.Invitations.Create(ctx, inv))

	dup := *inv
	dup.ID, dup.Token, dup.Email = "i2", "tok-2", "ana@finca.co"
	assert.ErrorIs(t, repos.Invitations.Create(ctx, &dup), domain.ErrInvitationExists)

	// Otro rol no choca.
	other := dup
	other.Role = entity.RoleEmpaque
	require.NoError(t, repos.Invitations.Create(ctx, &other))

	ok, err := repos.Invitations.MarkAccepted(ctx, "i1", now)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = repos.Invitations.MarkAccepted(ctx, "i1", now)
	require.NoError(t, err)
	assert.False(t, ok, "una invitación se consume una sola vez")

	// Aceptada ya no bloquea una nueva.
	require.NoError(t, repos.Invitations.Create(ctx, &dup))
}

func TestInvitationRepo_RevokeExpired(t *testing.T) {
	ctx := context.Background()
	repos := memory.NewStore().Registry()
	now := time.Now()
	old := &entity.Invitation{ID: "i1", TenantID: "t1", Email: "a@b.co", Role: entity.RoleAdmin,
		Token: "tok-1", ExpiresAt: now.Add(-time.Minute)}
	require.NoError(t, repos.Invitations.Create(ctx, old))

	pending, err := repos.Invitations.FindPending(ctx, "t1", "a@b.co", entity.RoleAdmin, now)
	require.NoError(t, err)
	assert.Nil(t, pending)

	require.NoError(t, repos.Invitations.RevokeExpired(ctx, "t1", "A@B.co", entity.RoleAdmin, now))
	fresh := &entity.Invitation{ID: "i2", TenantID: "t1", Email: "a@b.co", Role: entity.RoleAdmin,
		Token: "tok-2", ExpiresAt: now.Add(time.Hour)}
	require.NoError(t, repos.Invitations.Create(ctx, fresh))

	got, _ := repos.Invitations.GetByID(ctx, "i1")
	assert.Equal(t, entity.InvitationRevoked, got.State(now))
}

func TestTxRunner_RollbackRestauraEstado(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	tx := memory.NewTxRunner(store)
	boom := errors.New("boom")

	err := tx.Run(ctx, func(repos repository.Registry) error {
		if err := repos.Tenants.Create(ctx, newTenant("t1", "finca-sur", 10, 1)); err != nil {
			return err
		}
		if err := repos.Memberships.Create(ctx, &entity.Membership{ID: "m1", TenantID: "t1", UserID: "u-1"}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	repos := store.Registry()
	got, _ := repos.Tenants.GetByID(ctx, "t1")
	assert.Nil(t, got)
	members, _ := repos.Memberships.ListByTenant(ctx, "t1")
	assert.Empty(t, members)
}

func TestTxRunner_RollbackConservaEscriturasAjenas(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	outside := store.Registry()
	tx := memory.NewTxRunner(store)
	_, err := outside.WebhookEvents.Insert(ctx, &entity.WebhookEvent{EventID: "order_created:9", EventType: "order_created"})
	require.NoError(t, err)

	done := make(chan error, 1)
	err = tx.Run(ctx, func(repos repository.Registry) error {
		require.NoError(t, repos.Tenants.Create(ctx, newTenant("t1", "finca-sur", 10, 1)))
		go func() { done <- outside.WebhookEvents.MarkFailed(ctx, "order_created:9", "concurrente") }()
		time.Sleep(20 * time.Millisecond)
		return errors.New("boom")
	})
	require.Error(t, err)
	require.NoError(t, <-done)

	got, _ := outside.Tenants.GetByID(ctx, "t1")
	assert.Nil(t, got)
	ev, _ := outside.WebhookEvents.Get(ctx, "order_created:9")
	require.NotNil(t, ev)
	assert.Equal(t, 1, ev.RetryCount)
	assert.Equal(t, "concurrente", ev.Error)
}

func TestWebhookEventRepo_InsertIdempotente(t *testing.T) {
	ctx := context.Background()
	repos := memory.NewStore().Registry()
	ev := &entity.WebhookEvent{EventID: "order_created:1", EventType: "order_created"}

	inserted, err := repos.WebhookEvents.Insert(ctx, ev)
	require.NoError(t, err)
	assert.True(t, inserted)
	inserted, err = repos.WebhookEvents.Insert(ctx, ev)
	require.NoError(t, err)
	assert.False(t, inserted)

	require.NoError(t, repos.WebhookEvents.MarkFailed(ctx, ev.EventID, "x"))
	require.NoError(t, repos.WebhookEvents.MarkFailed(ctx, ev.EventID, "y"))
	got, _ := repos.WebhookEvents.Get(ctx, ev.EventID)
	assert.Equal(t, 2, got.RetryCount)
	assert.Equal(t, "y", got.Error)
	assert.False(t, got.Processed)

	require.NoError(t, repos.WebhookEvents.MarkProcessed(ctx, ev.EventID, "t1", time.Now()))
	require.NoError(t, repos.WebhookEvents.MarkFailed(ctx, ev.EventID, "z"))
	got, _ = repos.WebhookEvents.Get(ctx, ev.EventID)
	assert.False(t, got.Processed, "un fallo posterior al commit reabre el evento")
	assert.Nil(t, got.ProcessedAt)
	assert.Equal(t, 3, got.RetryCount)
}
