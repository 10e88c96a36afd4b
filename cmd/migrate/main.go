// migrate aplica las migraciones SQL embebidas sobre la base configurada y termina.
//
// Uso: go run ./cmd/migrate
// Lee la misma configuración que la API (DATABASE_URL o DB_HOST/DB_PORT/...).
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jhoicas/agrocloud-api/internal/infrastructure/postgres"
	"github.com/jhoicas/agrocloud-api/pkg/config"
	"github.com/jhoicas/agrocloud-api/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Cargar configuración: %v\n", err)
		os.Exit(1)
	}
	if cfg.DB.Driver != "postgres" {
		fmt.Fprintf(os.Stderr, "DB_DRIVER=%s no usa migraciones\n", cfg.DB.Driver)
		os.Exit(1)
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: "info"})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pool, err := postgres.NewPool(ctx, cfg.DB, log.Component("postgres"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Conexión a PostgreSQL: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	applied, err := postgres.Migrate(ctx, pool)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Migraciones: %v\n", err)
		os.Exit(1)
	}
	if len(applied) == 0 {
		fmt.Println("Sin migraciones pendientes")
		return
	}
	for _, name := range applied {
		fmt.Printf("Aplicada: %s\n", name)
	}
}
