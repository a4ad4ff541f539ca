package database

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gocql/gocql"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"tutora_back_end/internal/config"
)

// --- Configuration ScyllaDB ---
type ScyllaKeyspaceConfig struct {
	Hosts       []string
	Keyspace    string
	Username    string
	Password    string
	SSLEnabled  bool
	CACertPath  string
	Timeout     time.Duration
	NumConns    int
	Consistency gocql.Consistency
}

// ScyllaManager garde une session par keyspace
type ScyllaManager struct {
	sessions map[string]*gocql.Session
	configs  map[string]ScyllaKeyspaceConfig
	log      *zap.Logger
	mu       sync.Mutex
}

// Connections regroupe les clients partagés par les dépôts
type Connections struct {
	Scylla *ScyllaManager
	Redis  *redis.Client
	MinIO  *minio.Client
	Bucket string

	LearningKeyspace string
	BillingKeyspace  string
}

// Connect ouvre ScyllaDB, Redis et MinIO ; la première erreur arrête le démarrage
func Connect(ctx context.Context, cfg config.Config, log *zap.Logger) (*Connections, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	scylla, err := NewScyllaManager(keyspaceConfigs(cfg), log)
	if err != nil {
		return nil, err
	}

	rdb, err := connectRedis(ctx, cfg)
	if err != nil {
		scylla.Close()
		return nil, err
	}
	log.Info("✅ Connecté à Redis", zap.String("addr", cfg.RedisHost))

	mc, err := connectMinIO(ctx, cfg, log)
	if err != nil {
		scylla.Close()
		_ = rdb.Close()
		return nil, err
	}

	log.Info("✅ Toutes les bases de données sont connectées")
	return &Connections{
		Scylla:           scylla,
		Redis:            rdb,
		MinIO:            mc,
		Bucket:           cfg.MinioBucket,
		LearningKeyspace: cfg.ScyllaLearningKS,
		BillingKeyspace:  cfg.ScyllaBillingKS,
	}, nil
}

func (c *Connections) Close() {
	c.Scylla.Close()
	_ = c.Redis.Close()
}

// Learning : inscriptions, cours, remises de devoirs
func (c *Connections) Learning() (*gocql.Session, error) {
	return c.Scylla.GetSession(c.LearningKeyspace)
}

// Billing : coupons et intents de paiement
func (c *Connections) Billing() (*gocql.Session, error) {
	return c.Scylla.GetSession(c.BillingKeyspace)
}

// =============================================
// SCYLLA DB (multi-keyspaces)
// =============================================

func keyspaceConfigs(cfg config.Config) map[string]ScyllaKeyspaceConfig {
	configs := make(map[string]ScyllaKeyspaceConfig)
	for _, ks := range []string{cfg.ScyllaLearningKS, cfg.ScyllaBillingKS} {
		if ks == "" {
			continue
		}
		configs[ks] = ScyllaKeyspaceConfig{
			Hosts:      cfg.ScyllaHosts,
			Keyspace:   ks,
			Username:   cfg.ScyllaUsername,
			Password:   cfg.ScyllaPassword,
			SSLEnabled: cfg.ScyllaSSLEnabled,
			CACertPath: cfg.ScyllaSSLCAPath,
			Timeout:    cfg.StorageTimeout,
			NumConns:   cfg.ScyllaNumConns,
			// LOCAL_QUORUM + SERIAL pour les écritures conditionnelles
			Consistency: gocql.LocalQuorum,
		}
	}
	return configs
}

// NewScyllaManager ouvre une session pour chaque keyspace configuré.
// Les tables sont créées par scripts/scylladb_init.cql, pas au démarrage.
func NewScyllaManager(configs map[string]ScyllaKeyspaceConfig, log *zap.Logger) (*ScyllaManager, error) {
	sm := &ScyllaManager{
		sessions: make(map[string]*gocql.Session),
		configs:  configs,
		log:      log,
	}
	for keyspace := range configs {
		if _, err := sm.GetSession(keyspace); err != nil {
			sm.Close()
			return nil, fmt.Errorf("échec initialisation keyspace %s: %w", keyspace, err)
		}
	}
	return sm, nil
}

func createScyllaCluster(config ScyllaKeyspaceConfig) *gocql.ClusterConfig {
	cluster := gocql.NewCluster(config.Hosts...)
	cluster.Keyspace = config.Keyspace
	cluster.Consistency = config.Consistency
	cluster.SerialConsistency = gocql.LocalSerial
	cluster.Timeout = config.Timeout
	cluster.NumConns = config.NumConns

	cluster.MaxWaitSchemaAgreement = 30 * time.Second
	cluster.ReconnectInterval = 1 * time.Second
	if config.Username != "" {
		cluster.Authenticator = gocql.PasswordAuthenticator{
			Username: config.Username,
			Password: config.Password,
		}
	}

	if config.SSLEnabled {
		cluster.SslOpts = &gocql.SslOptions{
			CaPath:                 config.CACertPath,
			EnableHostVerification: config.CACertPath != "",
		}
	}

	cluster.PoolConfig.HostSelectionPolicy = gocql.TokenAwareHostPolicy(gocql.RoundRobinHostPolicy())
	return cluster
}

// GetSession retourne la session d'un keyspace, recréée si elle ne répond plus
func (sm *ScyllaManager) GetSession(keyspace string) (*gocql.Session, error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	config, exists := sm.configs[keyspace]
	if !exists {
		return nil, fmt.Errorf("keyspace '%s' non configuré", keyspace)
	}

	if session, exists := sm.sessions[keyspace]; exists {
		if !session.Closed() {
			return session, nil
		}
		delete(sm.sessions, keyspace)
	}

	session, err := createScyllaCluster(config).CreateSession()
	if err != nil {
		return nil, fmt.Errorf("erreur création session pour %s: %w", keyspace, err)
	}

	sm.sessions[keyspace] = session
	sm.log.Info("✅ Nouvelle session ScyllaDB", zap.String("keyspace", keyspace), zap.String("user", config.Username))
	return session, nil
}

func (sm *ScyllaManager) Close() {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	for keyspace, session := range sm.sessions {
		session.Close()
		sm.log.Info("🔌 Session ScyllaDB fermée", zap.String("keyspace", keyspace))
	}
	sm.sessions = make(map[string]*gocql.Session)
}

// =============================================
// REDIS
// =============================================

func connectRedis(ctx context.Context, cfg config.Config) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisHost,
		Password: cfg.RedisPassword,
		DB:       0,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("connexion Redis: %w", err)
	}
	return rdb, nil
}

// =============================================
// MINIO
// =============================================

func connectMinIO(ctx context.Context, cfg config.Config, log *zap.Logger) (*minio.Client, error) {
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: cfg.MinioUseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("connexion MinIO: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.MinioBucket)
	if err != nil {
		return nil, fmt.Errorf("vérification bucket MinIO: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.MinioBucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("création bucket MinIO: %w", err)
		}
		log.Info("🪣 Bucket créé", zap.String("bucket", cfg.MinioBucket))
	}

	log.Info("✅ Connecté à MinIO", zap.String("endpoint", cfg.MinioEndpoint))
	return client, nil
}
