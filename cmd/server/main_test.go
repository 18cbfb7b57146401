package main

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"lifestyle-api/internal/config"
	"lifestyle-api/internal/tls"
)

func TestRootCommand_Subcommands(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["serve"])
	assert.True(t, names["migrate"])
	assert.NotNil(t, rootCmd.RunE)
}

func TestNewServers_Plain(t *testing.T) {
	cfg := &config.Config{Server: config.ServerConfig{Port: 8080}}

	servers := newServers(cfg, http.NotFoundHandler(), nil)
	require.Len(t, servers, 1)
	assert.Equal(t, ":8080", servers[0].Addr)
	assert.Nil(t, servers[0].TLSConfig)
}

func TestNewServers_TLS(t *testing.T) {
	server := config.ServerConfig{Port: 8080, TLSPort: 8443, EnableTLS: true, AutoCertDir: t.TempDir()}
	cfg := &config.Config{Server: server}

	servers := newServers(cfg, http.NotFoundHandler(), tls.NewTLSManager(server, false, zap.NewNop()))
	require.Len(t, servers, 1)
	assert.Equal(t, ":8443", servers[0].Addr)
	assert.NotNil(t, servers[0].TLSConfig)
}

func TestNewServers_AutoCertAddsChallengeServer(t *testing.T) {
	server := config.ServerConfig{Port: 8080, TLSPort: 8443, EnableTLS: true, AutoCert: true, Domain: "api.example.com", AutoCertDir: t.TempDir()}
	cfg := &config.Config{Server: server}

	servers := newServers(cfg, http.NotFoundHandler(), tls.NewTLSManager(server, true, zap.NewNop()))
	require.Len(t, servers, 2)
	assert.Equal(t, ":8443", servers[0].Addr)
	assert.Equal(t, ":8080", servers[1].Addr)
	assert.Nil(t, servers[1].TLSConfig)
}
