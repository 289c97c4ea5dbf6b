// Package envelope implements hybrid encryption for transfer payloads: each
// payload is sealed with a fresh AES-256-GCM content key, and the content key
// is wrapped with the organization's RSA public key (OAEP). An optional
// key-management transit service can additionally wrap the content key;
// decryption prefers that wrap and falls back to the local RSA unwrap.
package envelope

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/meridianbank/corebank/internal/config"
)

const (
	contentKeySize = 32 // AES-256
	nonceSize      = 12 // GCM standard nonce
	gcmTagSize     = 16
)

var (
	// ErrNoKeyPair is a fatal misconfiguration: without an RSA key pair the
	// service would have to store plaintext disguised as ciphertext. Raised
	// at startup, never per-call.
	ErrNoKeyPair = errors.New("envelope encryption requires a configured RSA key pair")

	// ErrDecryptionFailed covers authentication-tag mismatches and key
	// unwrap failures
	ErrDecryptionFailed = errors.New("envelope decryption failed")
)

// Envelope is the encrypted form of a transfer payload
type Envelope struct {
	WrappedKey   []byte `json:"wrapped_key"`
	Nonce        []byte `json:"nonce"`
	AuthTag      []byte `json:"auth_tag"`
	Ciphertext   []byte `json:"ciphertext"`
	ExternalWrap string `json:"external_wrap,omitempty"`
}

// Service encrypts and decrypts payload envelopes. Key material is read-only
// after construction and safe for unsynchronized concurrent use.
type Service struct {
	publicKey  *rsa.PublicKey
	privateKey *rsa.PrivateKey
	transit    KeyWrapper
	logger     *slog.Logger
}

// NewService loads the RSA key pair named by cfg and wires the optional
// transit wrapper. A missing or unparsable key pair fails construction.
func NewService(cfg *config.CryptoConfig, transit KeyWrapper, logger *slog.Logger) (*Service, error) {
	if cfg.PublicKeyPath == "" || cfg.PrivateKeyPath == "" {
		return nil, ErrNoKeyPair
	}

	pub, err := loadPublicKey(cfg.PublicKeyPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoKeyPair, err)
	}
	priv, err := loadPrivateKey(cfg.PrivateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoKeyPair, err)
	}

	if transit == nil {
		transit = NoopWrapper{}
	}

	return &Service{
		publicKey:  pub,
		privateKey: priv,
		transit:    transit,
		logger:     logger,
	}, nil
}

// NewServiceWithKeys builds a service from in-memory keys. Used by tests and
// callers that manage key material themselves.
func NewServiceWithKeys(priv *rsa.PrivateKey, transit KeyWrapper, logger *slog.Logger) (*Service, error) {
	if priv == nil {
		return nil, ErrNoKeyPair
	}
	if transit == nil {
		transit = NoopWrapper{}
	}
	return &Service{
		publicKey:  &priv.PublicKey,
		privateKey: priv,
		transit:    transit,
		logger:     logger,
	}, nil
}

// Encrypt serializes payload as JSON and seals it: fresh 256-bit content key
// and 96-bit nonce per call, AES-GCM for the payload, RSA-OAEP for the key.
// When a transit service is configured, the content key is also wrapped
// externally; a transit failure degrades to local-only wrapping.
func (s *Service) Encrypt(ctx context.Context, payload any) (*Envelope, error) {
	plaintext, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize payload: %w", err)
	}

	contentKey := make([]byte, contentKeySize)
	if _, err := rand.Read(contentKey); err != nil {
		return nil, fmt.Errorf("failed to generate content key: %w", err)
	}
	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	block, err := aes.NewCipher(contentKey)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize GCM: %w", err)
	}

	sealed := gcm.Seal(nil, nonce, plaintext, nil)
	ciphertext := sealed[:len(sealed)-gcmTagSize]
	authTag := sealed[len(sealed)-gcmTagSize:]

	wrappedKey, err := rsa.EncryptOAEP(sha256.New(), rand.Reader, s.publicKey, contentKey, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to wrap content key: %w", err)
	}

	env := &Envelope{
		WrappedKey: wrappedKey,
		Nonce:      nonce,
		AuthTag:    authTag,
		Ciphertext: ciphertext,
	}

	if s.transit.Enabled() {
		token, err := s.transit.Wrap(ctx, contentKey)
		if err != nil {
			// Transit is best-effort: the local RSA wrap already protects
			// the key, so publishing continues without the external wrap.
			s.logger.Warn("transit key wrap failed, continuing with local wrap only", "error", err)
		} else {
			env.ExternalWrap = token
		}
	}

	return env, nil
}

// Decrypt unwraps the content key and opens the envelope, returning the
// serialized payload. Tag verification failures yield ErrDecryptionFailed.
func (s *Service) Decrypt(ctx context.Context, env *Envelope) ([]byte, error) {
	contentKey, err := s.unwrapKey(ctx, env)
	if err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(contentKey)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid content key", ErrDecryptionFailed)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecryptionFailed, err)
	}

	sealed := make([]byte, 0, len(env.Ciphertext)+len(env.AuthTag))
	sealed = append(sealed, env.Ciphertext...)
	sealed = append(sealed, env.AuthTag...)

	plaintext, err := gcm.Open(nil, env.Nonce, sealed, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: authentication tag mismatch", ErrDecryptionFailed)
	}

	return plaintext, nil
}

// unwrapKey prefers the external wrap when present, falling back to the
// local RSA unwrap if the transit service is unreachable or its result is
// not a valid content key.
func (s *Service) unwrapKey(ctx context.Context, env *Envelope) ([]byte, error) {
	if env.ExternalWrap != "" && s.transit.Enabled() {
		key, err := s.transit.Unwrap(ctx, env.ExternalWrap)
		if err == nil && len(key) == contentKeySize {
			return key, nil
		}
		s.logger.Warn("transit key unwrap failed, falling back to local unwrap", "error", err)
	}

	key, err := rsa.DecryptOAEP(sha256.New(), rand.Reader, s.privateKey, env.WrappedKey, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: key unwrap failed", ErrDecryptionFailed)
	}
	return key, nil
}

func loadPublicKey(path string) (*rsa.PublicKey, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read public key: %w", err)
	}
	block, _ := pem.Decode(raw)
	if block == nil {
		return nil, errors.New("no PEM block in public key file")
	}
	parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse public key: %w", err)
	}
	pub, ok := parsed.(*rsa.PublicKey)
	if !ok {
		return nil, errors.New("public key is not RSA")
	}
	return pub, nil
}

func loadPrivateKey(path string) (*rsa.PrivateKey, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read private key: %w", err)
	}
	block, _ := pem.Decode(raw)
	if block == nil {
		return nil, errors.New("no PEM block in private key file")
	}
	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return key, nil
	}
	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}
	priv, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, errors.New("private key is not RSA")
	}
	return priv, nil
}
