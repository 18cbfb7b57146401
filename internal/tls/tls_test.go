package tls

import (
	"crypto/tls"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"lifestyle-api/internal/config"
)

func TestDevCertGenerator_CreatesAndReuses(t *testing.T) {
	dir := t.TempDir()
	gen := NewDevCertGenerator(dir, zap.NewNop())

	cert, err := gen.GenerateCert([]string{"localhost", "127.0.0.1"})
	require.NoError(t, err)
	require.NotNil(t, cert.Leaf)
	assert.Equal(t, []string{"localhost"}, cert.Leaf.DNSNames)
	assert.Len(t, cert.Leaf.IPAddresses, 1)

	info, err := os.Stat(filepath.Join(dir, "dev-key.pem"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	again := NewDevCertGenerator(dir, zap.NewNop())
	reused, err := again.GenerateCert([]string{"localhost"})
	require.NoError(t, err)
	assert.Equal(t, cert.Leaf.SerialNumber, reused.Leaf.SerialNumber)
}

func TestDevCertGenerator_RegeneratesExpired(t *testing.T) {
	dir := t.TempDir()
	gen := NewDevCertGenerator(dir, zap.NewNop())

	first, err := gen.GenerateCert([]string{"localhost"})
	require.NoError(t, err)

	later := NewDevCertGenerator(dir, zap.NewNop())
	later.now = func() time.Time { return time.Now().Add(2 * devCertValidity) }
	second, err := later.GenerateCert([]string{"localhost"})
	require.NoError(t, err)
	assert.NotEqual(t, first.Leaf.SerialNumber, second.Leaf.SerialNumber)
}

func TestTLSManager_FallsBackToSelfSigned(t *testing.T) {
	m := NewTLSManager(config.ServerConfig{EnableTLS: true, AutoCertDir: t.TempDir()}, false, zap.NewNop())
	assert.Nil(t, m.AutocertManager())

	cert, err := m.GetCertificate(&tls.ClientHelloInfo{ServerName: "localhost"})
	require.NoError(t, err)
	assert.Contains(t, cert.Leaf.DNSNames, "localhost")

	cfg := m.GetTLSConfig()
	assert.Equal(t, uint16(tls.VersionTLS12), cfg.MinVersion)
}

func TestTLSManager_ProductionWithoutCertificate(t *testing.T) {
	m := NewTLSManager(config.ServerConfig{EnableTLS: true, AutoCertDir: t.TempDir()}, true, zap.NewNop())

	_, err := m.GetCertificate(&tls.ClientHelloInfo{ServerName: "api.example.com"})
	assert.Error(t, err)
}
