package ports

import (
	"context"

	"github.com/jhoicas/agrocloud-api/internal/domain/repository"
)

// TxRunner ejecuta fn dentro de una transacción; los repos recibidos comparten la tx.
// Si fn retorna error se hace rollback y se devuelve ese error.
type TxRunner interface {
	Run(ctx context.Context, fn func(repos repository.Registry) error) error
}
