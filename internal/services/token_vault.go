package services

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/nacl/secretbox"
)

const nonceSize = 24

var ErrTokenCorrupt = errors.New("sealed token is corrupt")

// TokenVault 加密存储 GitHub access token，密钥由 SESSION_SECRET 派生
type TokenVault struct {
	key [32]byte
}

func NewTokenVault(secret string) (*TokenVault, error) {
	if secret == "" {
		return nil, errors.New("token vault: empty secret")
	}
	v := &TokenVault{}
	r := hkdf.New(sha256.New, []byte(secret), nil, []byte("arcadepress access token"))
	if _, err := io.ReadFull(r, v.key[:]); err != nil {
		return nil, fmt.Errorf("token vault: derive key: %w", err)
	}
	return v, nil
}

// Seal 空字符串原样返回
func (v *TokenVault) Seal(plain string) (string, error) {
	if plain == "" {
		return "", nil
	}
	var nonce [nonceSize]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return "", err
	}
	box := secretbox.Seal(nonce[:], []byte(plain), &nonce, &v.key)
	return base64.RawURLEncoding.EncodeToString(box), nil
}

func (v *TokenVault) Open(sealed string) (string, error) {
	if sealed == "" {
		return "", nil
	}
	box, err := base64.RawURLEncoding.DecodeString(sealed)
	if err != nil || len(box) < nonceSize+secretbox.Overhead {
		return "", ErrTokenCorrupt
	}
	var nonce [nonceSize]byte
	copy(nonce[:], box[:nonceSize])
	plain, ok := secretbox.Open(nil, box[nonceSize:], &nonce, &v.key)
	if !ok {
		return "", ErrTokenCorrupt
	}
	return string(plain), nil
}
