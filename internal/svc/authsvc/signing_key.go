package authsvc

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// ErrInvalidSigningKey is returned when a key file does not hold a PEM encoded RSA private key.
var ErrInvalidSigningKey = errors.New("invalid signing key")

const (
	// KeyType is the PEM block type written for RS256 signing keys.
	KeyType = "RSA PRIVATE KEY"

	pkcs8KeyType = "PRIVATE KEY"

	// DefaultKeySize is the size in bits of generated keys.
	DefaultKeySize = 2048
)

// DecodePrivateKey reads a PEM encoded RSA private key in PKCS#1 or PKCS#8 form.
func DecodePrivateKey(key io.Reader) (*rsa.PrivateKey, error) {
	buf, err := io.ReadAll(key)
	if err != nil {
		return nil, fmt.Errorf("read key: %w", err)
	}

	block, _ := pem.Decode(buf)
	if block == nil {
		return nil, fmt.Errorf("decode key: %w: no PEM block", ErrInvalidSigningKey)
	}

	switch block.Type {
	case KeyType:
		privateKey, err := x509.ParsePKCS1PrivateKey(block.Bytes)
		if err != nil {
			return nil, errors.Join(ErrInvalidSigningKey, fmt.Errorf("parse pkcs1 key: %w", err))
		}

		return privateKey, nil
	case pkcs8KeyType:
		parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, errors.Join(ErrInvalidSigningKey, fmt.Errorf("parse pkcs8 key: %w", err))
		}

		privateKey, ok := parsed.(*rsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("%w: %T is not an RSA key", ErrInvalidSigningKey, parsed)
		}

		return privateKey, nil
	default:
		return nil, fmt.Errorf("%w: unexpected block %q", ErrInvalidSigningKey, block.Type)
	}
}

// GeneratePrivateKey creates a new RSA private key with the specified bit size.
func GeneratePrivateKey(bits int) (*rsa.PrivateKey, error) {
	signingKey, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}

	return signingKey, nil
}

// EncodePrivateKey returns signingKey as a PKCS#1 PEM block.
func EncodePrivateKey(signingKey *rsa.PrivateKey) ([]byte, error) {
	//nolint:exhaustruct
	encoded := pem.EncodeToMemory(&pem.Block{
		Type:  KeyType,
		Bytes: x509.MarshalPKCS1PrivateKey(signingKey),
	})
	if encoded == nil {
		return nil, fmt.Errorf("encode key: %w", ErrInvalidSigningKey)
	}

	return encoded, nil
}

// GetPrivateKey loads the RS256 signing key at path. A missing file is created
// with a fresh key, readable by the owner only, so restarts keep issued tokens valid.
func GetPrivateKey(path string) (*rsa.PrivateKey, error) {
	signingKey, err := loadPrivateKey(path)
	if errors.Is(err, fs.ErrNotExist) {
		return createPrivateKey(path)
	}

	return signingKey, err
}

func loadPrivateKey(path string) (*rsa.PrivateKey, error) {
	keyFile, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open key file: %w", err)
	}
	defer keyFile.Close()

	signingKey, err := DecodePrivateKey(keyFile)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	return signingKey, nil
}

func createPrivateKey(path string) (*rsa.PrivateKey, error) {
	signingKey, err := GeneratePrivateKey(DefaultKeySize)
	if err != nil {
		return nil, err
	}

	keyBytes, err := EncodePrivateKey(signingKey)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create key dir: %w", err)
	}

	// Another process may have created the key since loadPrivateKey.
	keyFile, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if errors.Is(err, fs.ErrExist) {
		return loadPrivateKey(path)
	} else if err != nil {
		return nil, fmt.Errorf("create key file: %w", err)
	}
	defer keyFile.Close()

	if _, err := keyFile.Write(keyBytes); err != nil {
		return nil, fmt.Errorf("write key file: %w", err)
	}

	return signingKey, nil
}
