package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// Config agrupa la configuración de la aplicación (lectura vía Viper desde env y opcionalmente archivo).
type Config struct {
	App       AppConfig
	DB        DBConfig
	JWT       JWTConfig
	HTTP      HTTPConfig
	Identity  IdentityConfig
	Billing   BillingConfig
	SMTP      SMTPConfig
	RateLimit RateLimitConfig
}

// AppConfig configuración general de la aplicación.
type AppConfig struct {
	Env     string // development, staging, production
	Name    string
	BaseURL string // URL pública del frontend, usada en enlaces de invitación
}

// DBConfig configuración de PostgreSQL.
// Si DatabaseURL no está vacío, se usa como connection string completo (ej. DATABASE_URL de Supabase).
type DBConfig struct {
	Driver      string // postgres | memory
	DatabaseURL string
	Host        string
	Port        int
	User        string
	Password    string
	DBName      string
	SSLMode     string
	MaxConns    int
	MinConns    int
}

// ConnectionString devuelve el DSN a usar: DATABASE_URL si está definido, si no el construido con DSN().
func (c DBConfig) ConnectionString() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return c.DSN()
}

// DSN arma el connection string con URL encoding para caracteres especiales en la contraseña.
func (c DBConfig) DSN() string {
	u := &url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     "/" + c.DBName,
		RawQuery: fmt.Sprintf("sslmode=%s", c.SSLMode),
	}
	return u.String()
}

// JWTConfig configuración de JWT. Con el proveedor hosted, Secret es el JWT secret del proyecto.
type JWTConfig struct {
	Secret     string
	Expiration int // minutos
	Issuer     string
}

// HTTPConfig configuración del servidor HTTP.
type HTTPConfig struct {
	Host string
	Port int
}

// Addr devuelve la dirección de escucha (host:port).
func (c HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// IdentityConfig proveedor de identidad (hosted = API admin compatible con GoTrue, local = tabla auth_users).
type IdentityConfig struct {
	Provider        string
	URL             string
	AnonKey         string
	ServiceRoleKey  string
	SystemUserID    string // dueño de respaldo (created_by) para tenants creados por el sistema
	SystemUserEmail string
}

// BillingConfig proveedor de suscripciones (Lemon Squeezy).
type BillingConfig struct {
	APIKey             string
	StoreID            string
	VariantBasico      string
	VariantProfesional string
	VariantEnterprise  string
	WebhookSecret      string
	TestMode           bool
}

// Variants devuelve el mapa plan → variant id configurado (omite los vacíos).
func (c BillingConfig) Variants() map[string]string {
	out := make(map[string]string, 3)
	if c.VariantBasico != "" {
		out["basico"] = c.VariantBasico
	}
	if c.VariantProfesional != "" {
		out["profesional"] = c.VariantProfesional
	}
	if c.VariantEnterprise != "" {
		out["enterprise"] = c.VariantEnterprise
	}
	return out
}

// SMTPConfig servidor de correo para el proveedor de identidad local.
type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

// Enabled informa si hay un servidor SMTP configurado.
func (c SMTPConfig) Enabled() bool { return c.Host != "" }

// RateLimitConfig límites por IP en rutas públicas.
type RateLimitConfig struct {
	RPS   float64
	Burst int
}

// Load lee la configuración desde variables de entorno (y opcionalmente desde archivo).
// Las env vars tienen prioridad. Nombres esperados: APP_ENV, DB_HOST, JWT_SECRET, LEMON_API_KEY, etc.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // ignoramos error si no existe

	v.SetConfigName("config")
	v.AddConfigPath("./config")
	_ = v.ReadInConfig()

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	cfg := &Config{
		App: AppConfig{
			Env:     getString(v, "APP_ENV", "development"),
			Name:    getString(v, "APP_NAME", "agrocloud-api"),
			BaseURL: strings.TrimRight(getString(v, "APP_BASE_URL", "http://localhost:3000"), "/"),
		},
		DB: DBConfig{
			Driver:      getString(v, "DB_DRIVER", "postgres"),
			DatabaseURL: getString(v, "DATABASE_URL", ""),
			Host:        getString(v, "DB_HOST", "localhost"),
			Port:        getInt(v, "DB_PORT", 5432),
			User:        getString(v, "DB_USER", "postgres"),
			Password:    getString(v, "DB_PASSWORD", ""),
			DBName:      getString(v, "DB_NAME", "agrocloud"),
			SSLMode:     getString(v, "DB_SSLMODE", "disable"),
			MaxConns:    getInt(v, "DB_MAX_CONNS", 25),
			MinConns:    getInt(v, "DB_MIN_CONNS", 2),
		},
		JWT: JWTConfig{
			Secret:     getString(v, "JWT_SECRET", ""),
			Expiration: getInt(v, "JWT_EXPIRATION_MINUTES", 60),
			Issuer:     getString(v, "JWT_ISSUER", "agrocloud"),
		},
		HTTP: HTTPConfig{
			Host: getString(v, "HTTP_HOST", "0.0.0.0"),
			Port: getInt(v, "HTTP_PORT", 8080),
		},
		Identity: IdentityConfig{
			Provider:        getString(v, "IDENTITY_PROVIDER", "hosted"),
			URL:             strings.TrimRight(getString(v, "SUPABASE_URL", ""), "/"),
			AnonKey:         getString(v, "SUPABASE_ANON_KEY", ""),
			ServiceRoleKey:  getString(v, "SUPABASE_SERVICE_ROLE_KEY", ""),
			SystemUserID:    getString(v, "SYSTEM_USER_ID", ""),
			SystemUserEmail: getString(v, "SYSTEM_USER_EMAIL", "sistema@agrocloud.local"),
		},
		Billing: BillingConfig{
			APIKey:             getString(v, "LEMON_API_KEY", ""),
			StoreID:            getString(v, "LEMON_STORE_ID", ""),
			VariantBasico:      getString(v, "LEMON_VARIANT_BASICO", ""),
			VariantProfesional: getString(v, "LEMON_VARIANT_PROFESIONAL", ""),
			VariantEnterprise:  getString(v, "LEMON_VARIANT_ENTERPRISE", ""),
			WebhookSecret:      getString(v, "LEMON_WEBHOOK_SECRET", ""),
			TestMode:           getBool(v, "LEMON_TEST_MODE", true),
		},
		SMTP: SMTPConfig{
			Host:     getString(v, "SMTP_HOST", ""),
			Port:     getInt(v, "SMTP_PORT", 587),
			User:     getString(v, "SMTP_USER", ""),
			Password: getString(v, "SMTP_PASSWORD", ""),
			From:     getString(v, "SMTP_FROM", "no-reply@agrocloud.local"),
		},
		RateLimit: RateLimitConfig{
			RPS:   getFloat(v, "RATE_LIMIT_RPS", 2),
			Burst: getInt(v, "RATE_LIMIT_BURST", 10),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.DB.Driver {
	case "postgres", "memory":
	default:
		return fmt.Errorf("config: DB_DRIVER inválido %q", c.DB.Driver)
	}
	switch c.Identity.Provider {
	case "hosted":
		if c.Identity.URL == "" || c.Identity.ServiceRoleKey == "" {
			return fmt.Errorf("config: SUPABASE_URL y SUPABASE_SERVICE_ROLE_KEY son obligatorios con IDENTITY_PROVIDER=hosted")
		}
	case "local":
	default:
		return fmt.Errorf("config: IDENTITY_PROVIDER inválido %q", c.Identity.Provider)
	}
	if c.JWT.Secret == "" {
		return fmt.Errorf("config: JWT_SECRET es obligatorio")
	}
	return nil
}

func getString(v *viper.Viper, key, def string) string {
	if v.IsSet(key) {
		return v.GetString(key)
	}
	return def
}

func getInt(v *viper.Viper, key string, def int) int {
	if !v.IsSet(key) {
		return def
	}
	if s, ok := v.Get(key).(string); ok {
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return def
		}
		return n
	}
	return v.GetInt(key)
}

func getFloat(v *viper.Viper, key string, def float64) float64 {
	if !v.IsSet(key) {
		return def
	}
	if s, ok := v.Get(key).(string); ok {
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return def
		}
		return f
	}
	return v.GetFloat64(key)
}

func getBool(v *viper.Viper, key string, def bool) bool {
	if !v.IsSet(key) {
		return def
	}
	if s, ok := v.Get(key).(string); ok {
		b, err := strconv.ParseBool(strings.TrimSpace(s))
		if err != nil {
			return def
		}
		return b
	}
	return v.GetBool(key)
}
