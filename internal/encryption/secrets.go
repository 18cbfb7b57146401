package encryption

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	"go.uber.org/zap"

	"lifestyle-api/internal/util"
)

// KMSPrefix marks a configuration value as base64 KMS ciphertext
const KMSPrefix = "kms:"

var (
	ErrDecryptionFailed = errors.New("decryption failed")
	ErrKMSDisabled      = errors.New("kms-encrypted secret supplied but KMS is disabled")
)

// KMSAPI is the part of the KMS client used here
type KMSAPI interface {
	Decrypt(ctx context.Context, params *kms.DecryptInput, optFns ...func(*kms.Options)) (*kms.DecryptOutput, error)
}

// SecretResolver turns configuration values into plaintext secrets.
// Plain values pass through; "kms:" values are decrypted once and cached.
type SecretResolver struct {
	kmsClient KMSAPI
	keyID     string
	cache     sync.Map
}

// NewSecretResolver accepts a nil client when KMS is disabled
func NewSecretResolver(kmsClient KMSAPI, keyID string) *SecretResolver {
	return &SecretResolver{kmsClient: kmsClient, keyID: keyID}
}

func (r *SecretResolver) Resolve(ctx context.Context, value string) (string, error) {
	if !strings.HasPrefix(value, KMSPrefix) {
		return value, nil
	}
	if cached, ok := r.cache.Load(value); ok {
		return cached.(string), nil
	}
	if r.kmsClient == nil {
		return "", ErrKMSDisabled
	}

	blob, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(value, KMSPrefix))
	if err != nil {
		return "", fmt.Errorf("%w: invalid base64: %v", ErrDecryptionFailed, err)
	}

	input := &kms.DecryptInput{CiphertextBlob: blob}
	if r.keyID != "" {
		input.KeyId = aws.String(r.keyID)
	}

	out, err := r.kmsClient.Decrypt(ctx, input)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecryptionFailed, err)
	}

	plaintext := string(out.Plaintext)
	r.cache.Store(value, plaintext)

	util.Debug("Resolved KMS secret", zap.Int("length", len(plaintext)))
	return plaintext, nil
}
