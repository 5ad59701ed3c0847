package integration

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"sync"
	"testing"
	"time"

	"eato/internal/auth"
	"eato/internal/cache"
	"eato/internal/config"
	"eato/internal/database"
	"eato/internal/events"
	"eato/internal/handler"
	"eato/internal/mail"
	"eato/internal/repository"
	"eato/internal/router"
	"eato/internal/service"
	"eato/internal/storage"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

const testAdminCode = "integration-admin-code"

// TestDB represents a test database instance.
type TestDB struct {
	Container *postgres.PostgresContainer
	Pool      *pgxpool.Pool
	ConnStr   string
}

// SetupTestDB creates a PostgreSQL test container with the application
// schema applied.
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()

	ctx := context.Background()

	postgresContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	connStr, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		t.Fatalf("failed to create connection pool: %v", err)
	}

	if err := pool.Ping(ctx); err != nil {
		t.Fatalf("failed to ping database: %v", err)
	}

	if err := database.Migrate(ctx, pool, zerolog.Nop()); err != nil {
		t.Fatalf("failed to apply schema: %v", err)
	}

	t.Cleanup(func() {
		pool.Close()
		if err := postgresContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	return &TestDB{
		Container: postgresContainer,
		Pool:      pool,
		ConnStr:   connStr,
	}
}

// CleanupDB cleans all data from test tables.
func CleanupDB(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()

	ctx := context.Background()

	tables := []string{"order_items", "orders", "cart", "product_sizes", "products", "otp", "users"}
	for _, table := range tables {
		_, err := pool.Exec(ctx, fmt.Sprintf("DELETE FROM %s", table))
		if err != nil {
			t.Logf("failed to clean table %s: %v", table, err)
		}
	}
}

var otpPattern = regexp.MustCompile(`letter-spacing: 6px;">(\d{6})<`)

// outbox records every email instead of sending it.
type outbox struct {
	mu       sync.Mutex
	messages []mail.Message
}

func (o *outbox) Send(_ context.Context, msg mail.Message) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.messages = append(o.messages, msg)
	return nil
}

// lastOTP returns the newest verification code sent to email.
func (o *outbox) lastOTP(email string) string {
	o.mu.Lock()
	defer o.mu.Unlock()
	for i := len(o.messages) - 1; i >= 0; i-- {
		m := o.messages[i]
		if len(m.To) == 1 && m.To[0] == email {
			if match := otpPattern.FindStringSubmatch(m.HTML); match != nil {
				return match[1]
			}
		}
	}
	return ""
}

// subjects returns the subject of every email sent to email, oldest first.
func (o *outbox) subjects(email string) []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	var out []string
	for _, m := range o.messages {
		if len(m.To) == 1 && m.To[0] == email {
			out = append(out, m.Subject)
		}
	}
	return out
}

// TestServer is the full HTTP stack over a real database.
type TestServer struct {
	Handler http.Handler
	Outbox  *outbox
}

func setupTestServer(t *testing.T, testDB *TestDB) *TestServer {
	t.Helper()

	logger := zerolog.Nop()
	ttls := cache.DefaultTTLs()
	store := cache.NewMemory(time.Minute, time.Minute)
	box := &outbox{}
	notifier := mail.NewNotifier(box, "Eato Team")

	productRepo := repository.NewProductRepository(testDB.Pool, logger)
	cartRepo := repository.NewCartRepository(testDB.Pool, logger)
	orderRepo := repository.NewOrderRepository(testDB.Pool, logger)
	userRepo := repository.NewUserRepository(testDB.Pool, logger)
	otpRepo := repository.NewOTPRepository(testDB.Pool, logger)

	hasher := auth.NewBcryptHasher(4)
	tokens := auth.NewTokenManager("integration-secret", time.Hour)
	authCfg := config.AuthConfig{
		JWTSecret:           "integration-secret",
		TokenTTL:            time.Hour,
		AdminSecretCode:     testAdminCode,
		RequireVerifiedMail: true,
	}
	otpCfg := config.OTPConfig{TTL: 10 * time.Minute, MaxAttempts: 3, SweepInterval: time.Minute}

	productService := service.NewProductService(productRepo, cartRepo, store, ttls, storage.DisabledImageStore{}, logger)
	cartService := service.NewCartService(cartRepo, productRepo, store, ttls, logger)
	orderService := service.NewOrderService(orderRepo, productRepo, userRepo, store, ttls, events.NopPublisher{}, logger)
	otpService := service.NewOTPService(otpRepo, hasher, notifier, otpCfg, logger)
	userService := service.NewUserService(userRepo, otpService, hasher, tokens, notifier, store, ttls, authCfg, logger)

	h := router.New(router.Handlers{
		Auth:    handler.NewAuthHandler(userService, logger),
		User:    handler.NewUserHandler(userService, orderService, cartService, logger),
		Product: handler.NewProductHandler(productService, logger),
		Order:   handler.NewOrderHandler(orderService, logger),
		OTP:     handler.NewOTPHandler(otpService, logger),
	}, tokens, config.RateLimitConfig{}, logger)

	return &TestServer{Handler: h, Outbox: box}
}
