// Package auth signs session tokens and hashes passwords.
package auth

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jason-s-yu/uno/internal/config"
)

var ErrInvalidToken = errors.New("invalid token")

// privateKey and publicKey sign and verify session tokens.
var (
	privateKey ed25519.PrivateKey
	publicKey  ed25519.PublicKey

	// tokenTTL is the lifetime of new tokens; 0 means they carry no exp claim.
	tokenTTL time.Duration
)

// Init generates a fresh ed25519 key pair. Tokens issued before a restart
// stop verifying.
func Init(cfg config.Auth) error {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return fmt.Errorf("failed to generate ed25519 key pair: %w", err)
	}
	return setKeys(priv, pub, cfg)
}

// InitFromPath reads a raw ed25519 key pair from disk.
func InitFromPath(privatePath, publicPath string, cfg config.Auth) error {
	priv, err := os.ReadFile(privatePath)
	if err != nil {
		return fmt.Errorf("failed to read private key file: %w", err)
	}
	pub, err := os.ReadFile(publicPath)
	if err != nil {
		return fmt.Errorf("failed to read public key file: %w", err)
	}
	if len(priv) != ed25519.PrivateKeySize || len(pub) != ed25519.PublicKeySize {
		return fmt.Errorf("key files do not hold a raw ed25519 key pair")
	}
	return setKeys(ed25519.PrivateKey(priv), ed25519.PublicKey(pub), cfg)
}

func setKeys(priv ed25519.PrivateKey, pub ed25519.PublicKey, cfg config.Auth) error {
	ttl, err := cfg.TokenTTL()
	if err != nil {
		return err
	}
	privateKey, publicKey, tokenTTL = priv, pub, ttl
	return nil
}

// CreateJWT signs a token whose subject is userID.
func CreateJWT(userID uuid.UUID) (string, error) {
	if privateKey == nil {
		return "", errors.New("auth keys not initialised")
	}
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:  userID.String(),
		IssuedAt: jwt.NewNumericDate(now),
	}
	if tokenTTL > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(tokenTTL))
	}
	return jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims).SignedString(privateKey)
}

// AuthenticateJWT verifies tokenString and returns its subject.
func AuthenticateJWT(tokenString string) (uuid.UUID, error) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (any, error) {
		return publicKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodEdDSA.Alg()}))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: bad subject: %v", ErrInvalidToken, err)
	}
	return userID, nil
}
