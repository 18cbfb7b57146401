package scylla

import (
	"context"
	"fmt"
	"time"

	"github.com/gocql/gocql"
	"go.uber.org/zap"

	"lifestyle-api/internal/config"
	"lifestyle-api/internal/util"
)

// Statements holds the CQL used by the repositories. gocql prepares and
// caches each statement string on first use.
type Statements struct {
	ListConversations  string
	GetConversation    string
	UpsertConversation string
	ListMessages       string
	InsertMessage      string
	Ping               string
}

var statements = Statements{
	ListConversations: `
        SELECT conversation_id, peer_id, peer_name, last_message, last_message_at
        FROM conversations_by_user WHERE user_id = ?`,
	GetConversation: `
        SELECT conversation_id, peer_id, peer_name, last_message, last_message_at
        FROM conversations_by_user WHERE user_id = ? AND conversation_id = ?`,
	UpsertConversation: `
        UPDATE conversations_by_user SET peer_id = ?, peer_name = ?, last_message = ?, last_message_at = ?
        WHERE user_id = ? AND conversation_id = ?`,
	ListMessages: `
        SELECT message_id, sender_id, body, sent_at
        FROM messages_by_conversation WHERE conversation_id = ? LIMIT ?`,
	InsertMessage: `
        INSERT INTO messages_by_conversation (conversation_id, message_id, sender_id, body, sent_at)
        VALUES (?, ?, ?, ?, ?)`,
	Ping: `SELECT cluster_name FROM system.local`,
}

type ScyllaClient struct {
	Session    *gocql.Session
	Statements Statements
}

// NewClusterConfig builds the gocql cluster settings without connecting
func NewClusterConfig(cfg config.ScyllaConfig, production bool) *gocql.ClusterConfig {
	cluster := gocql.NewCluster(cfg.Nodes...)
	cluster.Keyspace = cfg.Keyspace
	cluster.Consistency = gocql.LocalQuorum
	cluster.Timeout = 10 * time.Second
	cluster.ConnectTimeout = 10 * time.Second
	cluster.NumConns = 4
	cluster.SocketKeepalive = 30 * time.Second
	cluster.MaxPreparedStmts = 1000
	cluster.PageSize = 1000
	cluster.RetryPolicy = &gocql.ExponentialBackoffRetryPolicy{
		Min:        100 * time.Millisecond,
		Max:        2 * time.Second,
		NumRetries: 3,
	}

	if production {
		cluster.SslOpts = &gocql.SslOptions{
			CaPath:                 util.GetEnv("SCYLLA_CA_PATH", "/etc/scylla/certs/ca.pem"),
			EnableHostVerification: true,
		}
	}

	if cfg.Username != "" && cfg.Password != "" {
		cluster.Authenticator = gocql.PasswordAuthenticator{
			Username: cfg.Username,
			Password: cfg.Password,
		}
	}
	return cluster
}

func NewScyllaClient(cfg config.ScyllaConfig, production bool) (*ScyllaClient, error) {
	session, err := NewClusterConfig(cfg, production).CreateSession()
	if err != nil {
		return nil, fmt.Errorf("failed to create scylla session: %w", err)
	}

	util.Info("ScyllaDB client initialized",
		zap.Strings("nodes", cfg.Nodes),
		zap.String("keyspace", cfg.Keyspace))

	return &ScyllaClient{Session: session, Statements: statements}, nil
}

func (s *ScyllaClient) Close() error {
	if s.Session != nil {
		s.Session.Close()
		util.Info("ScyllaDB client closed")
	}
	return nil
}

func (s *ScyllaClient) HealthCheck(ctx context.Context) error {
	var clusterName string
	err := s.Session.Query(s.Statements.Ping).WithContext(ctx).Scan(&clusterName)
	if err != nil {
		return fmt.Errorf("scylla health check failed: %w", err)
	}

	util.Debug("ScyllaDB health check passed", zap.String("cluster_name", clusterName))
	return nil
}
