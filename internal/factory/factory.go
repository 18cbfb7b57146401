package factory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"net/netip"
	"sync"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	"go.uber.org/zap"

	"lifestyle-api/internal/bucketing"
	"lifestyle-api/internal/client"
	"lifestyle-api/internal/config"
	"lifestyle-api/internal/encryption"
	"lifestyle-api/internal/handler"
	"lifestyle-api/internal/hashing"
	chrepo "lifestyle-api/internal/repository/clickhouse"
	"lifestyle-api/internal/repository/elastic"
	"lifestyle-api/internal/repository/fixture"
	"lifestyle-api/internal/repository/postgres"
	redisrepo "lifestyle-api/internal/repository/redis"
	"lifestyle-api/internal/repository/scylla"
	"lifestyle-api/internal/service"
	"lifestyle-api/internal/session"
	"lifestyle-api/internal/tls"
)

const (
	initTimeout    = 30 * time.Second
	requestTimeout = 20 * time.Second
	readyTimeout   = 3 * time.Second
)

// Factory manages the lifecycle of all application dependencies
type Factory struct {
	config     *config.Config
	logger     *zap.Logger
	tlsManager *tls.TLSManager
	secrets    *encryption.SecretResolver

	db *sql.DB

	// Optional backends; nil when disabled or unreachable outside production
	redisClient      *client.RedisClient
	scyllaClient     *scylla.ScyllaClient
	kafkaProducer    *client.KafkaProducer
	esClient         *client.ESClient
	clickhouseClient *client.ClickHouseClient

	hasher           *hashing.Hasher
	bucketingManager *bucketing.BucketingManager
	issuer           *session.Issuer
	appStore         *client.AppStoreClient

	serviceFactory *service.ServiceFactory

	closeOnce sync.Once
}

// NewFactory resolves secrets, opens Postgres and connects the enabled
// backends. In production any enabled backend that fails is fatal.
func NewFactory(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Factory, error) {
	ctx, cancel := context.WithTimeout(ctx, initTimeout)
	defer cancel()

	f := &Factory{config: cfg, logger: logger}

	if cfg.Server.EnableTLS {
		f.tlsManager = tls.NewTLSManager(cfg.Server, cfg.IsProduction(), logger.Named("tls"))
	}

	if err := f.initializeSecrets(ctx); err != nil {
		return nil, fmt.Errorf("failed to resolve secrets: %w", err)
	}

	if err := f.initializeDatabase(ctx); err != nil {
		return nil, err
	}

	if err := f.initializeClients(ctx); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to initialize clients: %w", err)
	}

	f.initializeManagers()

	logger.Info("Factory initialized successfully",
		zap.String("environment", cfg.Environment),
		zap.Bool("tls_enabled", cfg.Server.EnableTLS),
		zap.Bool("kms_enabled", cfg.KMS.Enabled),
		zap.Bool("rate_limiting", f.redisClient != nil),
		zap.Bool("scylla_messages", f.scyllaClient != nil),
		zap.Bool("elasticsearch_profiles", f.esClient != nil),
		zap.Bool("kafka_events", f.kafkaProducer != nil),
		zap.Bool("clickhouse_audit", f.clickhouseClient != nil),
	)

	return f, nil
}

// initializeSecrets replaces kms: prefixed secrets in the config with plaintext
func (f *Factory) initializeSecrets(ctx context.Context) error {
	var kmsClient encryption.KMSAPI
	if f.config.KMS.Enabled {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(f.config.KMS.Region))
		if err != nil {
			return fmt.Errorf("load aws config: %w", err)
		}
		kmsClient = kms.NewFromConfig(awsCfg)
	}
	f.secrets = encryption.NewSecretResolver(kmsClient, f.config.KMS.KeyID)

	secret, err := f.secrets.Resolve(ctx, f.config.Session.Secret)
	if err != nil {
		return fmt.Errorf("session secret: %w", err)
	}
	f.config.Session.Secret = secret

	shared, err := f.secrets.Resolve(ctx, f.config.AppStore.SharedSecret)
	if err != nil {
		return fmt.Errorf("app store shared secret: %w", err)
	}
	f.config.AppStore.SharedSecret = shared

	return nil
}

func (f *Factory) initializeDatabase(ctx context.Context) error {
	db, err := postgres.Open(ctx, f.config.Postgres)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	f.db = db

	if f.config.Postgres.AutoMigrate {
		if err := postgres.RunMigrations(ctx, db); err != nil {
			db.Close()
			return fmt.Errorf("postgres migrations: %w", err)
		}
		f.logger.Info("Database migrations applied")
	}

	f.logger.Info("Postgres connection established")
	return nil
}

// initializeClients connects the optional backends with health checks
func (f *Factory) initializeClients(ctx context.Context) error {
	var initErrors []error
	production := f.config.IsProduction()

	if f.config.Redis.Enabled {
		if c, err := client.NewRedisClient(f.config.Redis); err != nil {
			initErrors = append(initErrors, fmt.Errorf("redis: %w", err))
		} else if err := c.HealthCheck(ctx); err != nil {
			c.Close()
			initErrors = append(initErrors, fmt.Errorf("redis health check: %w", err))
		} else {
			f.redisClient = c
			f.logger.Info("Redis client initialized and healthy")
		}
	}

	if f.config.Scylla.Enabled {
		if c, err := scylla.NewScyllaClient(f.config.Scylla, production); err != nil {
			initErrors = append(initErrors, fmt.Errorf("scylla: %w", err))
		} else if err := c.HealthCheck(ctx); err != nil {
			c.Close()
			initErrors = append(initErrors, fmt.Errorf("scylla health check: %w", err))
		} else {
			f.scyllaClient = c
			f.logger.Info("ScyllaDB client initialized and healthy")
		}
	}

	if f.config.Elasticsearch.Enabled {
		if c, err := client.NewElasticsearchClient(f.config.Elasticsearch, !production); err != nil {
			initErrors = append(initErrors, fmt.Errorf("elasticsearch: %w", err))
		} else if err := c.HealthCheck(ctx); err != nil {
			c.Close()
			initErrors = append(initErrors, fmt.Errorf("elasticsearch health check: %w", err))
		} else {
			f.esClient = c
			f.logger.Info("Elasticsearch client initialized and healthy")
		}
	}

	if f.config.Clickhouse.Enabled {
		if c, err := client.NewClickHouseClient(f.config.Clickhouse, production); err != nil {
			initErrors = append(initErrors, fmt.Errorf("clickhouse: %w", err))
		} else if err := c.HealthCheck(ctx); err != nil {
			c.Close()
			initErrors = append(initErrors, fmt.Errorf("clickhouse health check: %w", err))
		} else {
			f.clickhouseClient = c
			f.logger.Info("ClickHouse client initialized and healthy")
		}
	}

	// Events are best-effort, so an unreachable broker never blocks startup
	if f.config.Kafka.Enabled {
		f.kafkaProducer = client.NewKafkaProducer(f.config.Kafka, f.logger.Named("kafka"))
		if err := f.kafkaProducer.HealthCheck(ctx); err != nil {
			f.logger.Warn("Kafka brokers unreachable - events will be retried per publish", zap.Error(err))
		}
	}

	if len(initErrors) > 0 {
		if production {
			return errors.Join(initErrors...)
		}
		for _, err := range initErrors {
			f.logger.Warn("Optional backend unavailable - using in-process fallback", zap.Error(err))
		}
	}

	return nil
}

func (f *Factory) initializeManagers() {
	f.hasher = hashing.NewHasher()
	f.bucketingManager = bucketing.NewBucketingManager(f.config.Bucketing)
	f.issuer = session.NewIssuer([]byte(f.config.Session.Secret), f.config.Session.Issuer, f.config.Session.Expiry)
	f.appStore = client.NewAppStoreClient(f.config.AppStore, f.logger.Named("appstore"))
}

// ServiceFactory wires each service port to its backend, or to the
// in-process fallback when that backend is off.
func (f *Factory) ServiceFactory() *service.ServiceFactory {
	if f.serviceFactory != nil {
		return f.serviceFactory
	}

	deps := service.Dependencies{
		Users:         postgres.NewUserRepository(f.db),
		Waitlist:      postgres.NewWaitlistRepository(f.db),
		Hasher:        f.hasher,
		AppStore:      f.appStore,
		Profiles:      fixture.NewProfileSource(fixture.DemoProfiles()),
		Conversations: fixture.NewConversationStore(),
		Events:        service.NopPublisher{},
		Audit:         service.NopAuditSink{},
		LoginRule: service.LimitRule{
			Limit:  f.config.RateLimit.LoginAttempts,
			Window: f.config.RateLimit.LoginWindow,
		},
		WaitlistRule: service.LimitRule{
			Limit:  f.config.RateLimit.WaitlistAttempts,
			Window: f.config.RateLimit.WaitlistWindow,
		},
	}

	if f.redisClient != nil {
		deps.Limiter = redisrepo.NewRateLimitCache(f.redisClient)
	}
	if f.esClient != nil {
		deps.Profiles = elastic.NewProfileRepository(f.esClient, f.config.Elasticsearch.ProfileIndex)
	}
	if f.scyllaClient != nil {
		deps.Conversations = scylla.NewConversationRepository(f.scyllaClient)
	}
	if f.kafkaProducer != nil {
		deps.Events = f.kafkaProducer
	}
	if f.clickhouseClient != nil {
		deps.Audit = chrepo.NewSecurityEventRepository(f.clickhouseClient, f.bucketingManager)
	}

	f.serviceFactory = service.NewServiceFactory(deps, f.logger)
	return f.serviceFactory
}

// Router builds the HTTP handler tree
func (f *Factory) Router() http.Handler {
	services := f.ServiceFactory()
	cookie := handler.CookieConfig{Name: f.config.Session.CookieName, Secure: f.config.Session.SecureCookie}

	return handler.NewRouter(handler.Handlers{
		Auth:         handler.NewAuthHandler(services.AuthService(), f.issuer, cookie, f.logger.Named("auth")),
		Waitlist:     handler.NewWaitlistHandler(services.WaitlistService(), f.logger.Named("waitlist")),
		Subscription: handler.NewSubscriptionHandler(services.SubscriptionService(), f.logger.Named("subscription")),
		Discover:     handler.NewDiscoverHandler(services.DiscoverService(), f.logger.Named("discover")),
		Messaging:    handler.NewMessagingHandler(services.MessagingService(), f.logger.Named("messaging")),
		Health:       handler.NewHealthHandler(f.HealthChecks(), readyTimeout, f.logger.Named("health")),
	}, handler.RouterOptions{
		RequireTLS:     f.config.Server.EnableTLS && f.config.IsProduction(),
		AllowedOrigins: f.config.CORS.AllowedOrigins,
		Sessions:       f.issuer,
		CookieName:     f.config.Session.CookieName,
		RequestTimeout: requestTimeout,
		TrustedProxies: f.trustedProxies(),
	}, f.logger)
}

// trustedProxies skips entries Validate already rejected
func (f *Factory) trustedProxies() []netip.Prefix {
	var out []netip.Prefix
	for _, raw := range f.config.Server.TrustedProxies {
		if p, err := config.ParseTrustedProxy(raw); err == nil {
			out = append(out, p)
		}
	}
	return out
}

// HealthChecks returns one readiness probe per connected backend. Kafka
// is left out since events never block a request.
func (f *Factory) HealthChecks() map[string]handler.HealthCheck {
	checks := map[string]handler.HealthCheck{
		"postgres": f.db.PingContext,
	}
	if f.redisClient != nil {
		checks["redis"] = f.redisClient.HealthCheck
	}
	if f.scyllaClient != nil {
		checks["scylla"] = f.scyllaClient.HealthCheck
	}
	if f.esClient != nil {
		checks["elasticsearch"] = f.esClient.HealthCheck
	}
	if f.clickhouseClient != nil {
		checks["clickhouse"] = f.clickhouseClient.HealthCheck
	}
	return checks
}

func (f *Factory) Close() error {
	f.closeOnce.Do(func() {
		f.logger.Info("Shutting down factory...")

		if f.kafkaProducer != nil {
			if err := f.kafkaProducer.Close(); err != nil {
				f.logger.Error("Failed to close Kafka producer", zap.Error(err))
			} else {
				f.logger.Info("Kafka producer closed")
			}
		}

		if f.clickhouseClient != nil {
			if err := f.clickhouseClient.Close(); err != nil {
				f.logger.Error("Failed to close ClickHouse client", zap.Error(err))
			} else {
				f.logger.Info("ClickHouse client closed")
			}
		}

		if f.esClient != nil {
			f.esClient.Close()
			f.logger.Info("Elasticsearch client closed")
		}

		if f.scyllaClient != nil {
			if err := f.scyllaClient.Close(); err != nil {
				f.logger.Error("Failed to close ScyllaDB session", zap.Error(err))
			} else {
				f.logger.Info("ScyllaDB client closed")
			}
		}

		if f.redisClient != nil {
			if err := f.redisClient.Close(); err != nil {
				f.logger.Error("Failed to close Redis client", zap.Error(err))
			} else {
				f.logger.Info("Redis client closed")
			}
		}

		if f.db != nil {
			if err := f.db.Close(); err != nil {
				f.logger.Error("Failed to close Postgres pool", zap.Error(err))
			}
		}

		f.logger.Info("Factory shutdown completed")
	})

	return nil
}

func (f *Factory) Config() *config.Config {
	return f.config
}

// TLSManager is nil when TLS is disabled
func (f *Factory) TLSManager() *tls.TLSManager {
	return f.tlsManager
}
