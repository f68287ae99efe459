// Package textures is the content-addressed store for skin and cape
// images.
package textures

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/elyby/yggdrasil/db"
)

func NewManager(repo db.TexturesRepository) *Manager {
	return &Manager{TexturesRepo: repo}
}

type Manager struct {
	TexturesRepo db.TexturesRepository
}

// Save stores the blob under the digest of its content and returns the
// hash. Re-uploading identical bytes is a no-op.
func (m *Manager) Save(data []byte) (string, error) {
	digest := sha256.Sum256(data)
	hash := hex.EncodeToString(digest[:])

	err := m.TexturesRepo.SaveTexture(hash, data)
	if err != nil {
		return "", err
	}

	return hash, nil
}

// FindByHash returns nil when no blob is stored under the hash.
func (m *Manager) FindByHash(hash string) ([]byte, error) {
	return m.TexturesRepo.FindTextureByHash(hash)
}
