package filestore

import (
	"crypto/rand"
	"encoding/json"
	"io"

	internalerrors "github.com/jrsteele09/mento-client/internal/errors"
	"github.com/pkg/errors"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/nacl/secretbox"
)

// ErrStoreSealed is returned when the file cannot be opened with the configured passphrase.
var ErrStoreSealed = internalerrors.ErrStoreSealed

const (
	saltLength  = 16
	nonceLength = 24
	keyLength   = 32

	kdfTime    uint32 = 2
	kdfMemory  uint32 = 19 * 1024
	kdfThreads uint8  = 1
)

type sealedBox struct {
	Salt  []byte `json:"salt"`
	Nonce []byte `json:"nonce"`
	Box   []byte `json:"box"`
}

type sealer struct {
	salt []byte
	key  [keyLength]byte
}

// newSealer derives the secretbox key from passphrase. A nil salt generates a new one.
func newSealer(passphrase string, salt []byte) (*sealer, error) {
	if salt == nil {
		salt = make([]byte, saltLength)
		if _, err := io.ReadFull(rand.Reader, salt); err != nil {
			return nil, errors.Wrap(err, "filestore salt")
		}
	}
	s := &sealer{salt: salt}
	derived := argon2.IDKey([]byte(passphrase), salt, kdfTime, kdfMemory, kdfThreads, keyLength)
	copy(s.key[:], derived)
	return s, nil
}

func (s *sealer) seal(values map[string]string) (*sealedBox, error) {
	plain, err := json.Marshal(values)
	if err != nil {
		return nil, errors.Wrap(err, "filestore seal encode")
	}

	var nonce [nonceLength]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return nil, errors.Wrap(err, "filestore nonce")
	}
	return &sealedBox{
		Salt:  s.salt,
		Nonce: nonce[:],
		Box:   secretbox.Seal(nil, plain, &nonce, &s.key),
	}, nil
}

func (s *sealer) open(box *sealedBox) (map[string]string, error) {
	if len(box.Nonce) != nonceLength {
		return nil, errors.Wrap(ErrStoreSealed, "filestore nonce length")
	}
	var nonce [nonceLength]byte
	copy(nonce[:], box.Nonce)

	plain, ok := secretbox.Open(nil, box.Box, &nonce, &s.key)
	if !ok {
		return nil, errors.Wrap(ErrStoreSealed, "filestore open")
	}

	values := make(map[string]string)
	if err := json.Unmarshal(plain, &values); err != nil {
		return nil, errors.Wrap(err, "filestore seal decode")
	}
	return values, nil
}
