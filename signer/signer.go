// Package signer produces the public profile representation and the
// signatures that let third parties verify it originated from this
// authority.
package signer

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
)

var randomReader = rand.Reader

type TexturesSigner interface {
	SignTextures(textures string) (string, error)
}

func NewSigner(key *rsa.PrivateKey) *Signer {
	return &Signer{Key: key}
}

type Signer struct {
	Key *rsa.PrivateKey
}

// SignTextures signs the property value exactly as it is transmitted
// to clients, so a verifier validates the bytes it received.
func (s *Signer) SignTextures(textures string) (string, error) {
	if s.Key == nil {
		return "", errors.New("Key is empty")
	}

	messageHash := sha1.New()
	_, _ = messageHash.Write([]byte(textures))
	messageHashSum := messageHash.Sum(nil)

	signature, err := rsa.SignPKCS1v15(randomReader, s.Key, crypto.SHA1, messageHashSum)
	if err != nil {
		return "", err
	}

	return base64.StdEncoding.EncodeToString(signature), nil
}

func (s *Signer) GetPublicKey() (*rsa.PublicKey, error) {
	if s.Key == nil {
		return nil, errors.New("Key is empty")
	}

	return &s.Key.PublicKey, nil
}

// GetPublicKeyPem renders the public part of the signing key in the
// SPKI form published on the server metadata endpoint.
func (s *Signer) GetPublicKeyPem() (string, error) {
	publicKey, err := s.GetPublicKey()
	if err != nil {
		return "", err
	}

	asn1Bytes, err := x509.MarshalPKIXPublicKey(publicKey)
	if err != nil {
		return "", err
	}

	result := pem.EncodeToMemory(&pem.Block{
		Type:  "PUBLIC KEY",
		Bytes: asn1Bytes,
	})

	return string(result), nil
}

// ParsePrivateKey reads an RSA private key from its PEM representation
// in either PKCS#1 or PKCS#8 form.
func ParsePrivateKey(data []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, errors.New("Unable to decode PEM block with the private key")
	}

	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return key, nil
	}

	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, err
	}

	key, isRsa := parsed.(*rsa.PrivateKey)
	if !isRsa {
		return nil, errors.New("The private key is not an RSA key")
	}

	return key, nil
}
