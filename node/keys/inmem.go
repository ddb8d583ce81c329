package keys

import (
	"crypto"
	"crypto/rand"
	"sort"
	"sync"

	"github.com/cloudflare/circl/sign/ed448"
	"github.com/pkg/errors"
)

type InMemoryKeyManager struct {
	store   map[string]Key
	storeMx sync.RWMutex
}

func NewInMemoryKeyManager() *InMemoryKeyManager {
	return &InMemoryKeyManager{
		store: make(map[string]Key),
	}
}

// CreateSigningKey implements KeyManager
func (f *InMemoryKeyManager) CreateSigningKey(
	id string,
	keyType KeyType,
) (crypto.Signer, error) {
	if keyType != KeyTypeEd448 {
		return nil, UnsupportedKeyTypeErr
	}

	pubkey, privkey, err := ed448.GenerateKey(rand.Reader)
	if err != nil {
		return nil, errors.Wrap(err, "could not generate key")
	}

	f.save(Key{
		Id:         id,
		Type:       keyType,
		PublicKey:  ByteString(pubkey),
		PrivateKey: ByteString(privkey),
	})

	return privkey, nil
}

// GetRawKey implements KeyManager
func (f *InMemoryKeyManager) GetRawKey(id string) (*Key, error) {
	key, err := f.read(id)
	if err != nil {
		return nil, err
	}

	return &key, nil
}

// GetSigningKey implements KeyManager
func (f *InMemoryKeyManager) GetSigningKey(id string) (crypto.Signer, error) {
	key, err := f.read(id)
	if err != nil {
		return nil, err
	}

	return signerFor(key)
}

// PutRawKey implements KeyManager
func (f *InMemoryKeyManager) PutRawKey(key *Key) error {
	f.save(*key)
	return nil
}

// DeleteKey implements KeyManager
func (f *InMemoryKeyManager) DeleteKey(id string) error {
	f.storeMx.Lock()
	defer f.storeMx.Unlock()

	if _, ok := f.store[id]; !ok {
		return KeyNotFoundErr
	}

	delete(f.store, id)
	return nil
}

// ListKeys implements KeyManager
func (f *InMemoryKeyManager) ListKeys() ([]*Key, error) {
	f.storeMx.RLock()
	defer f.storeMx.RUnlock()

	keys := make([]*Key, 0, len(f.store))
	for _, k := range f.store {
		key := k
		keys = append(keys, &key)
	}

	sort.Slice(keys, func(i, j int) bool { return keys[i].Id < keys[j].Id })
	return keys, nil
}

var _ KeyManager = (*InMemoryKeyManager)(nil)

func (f *InMemoryKeyManager) save(key Key) {
	f.storeMx.Lock()
	f.store[key.Id] = Key{
		Id:         key.Id,
		Type:       key.Type,
		PublicKey:  append(ByteString{}, key.PublicKey...),
		PrivateKey: append(ByteString{}, key.PrivateKey...),
	}
	f.storeMx.Unlock()
}

func (f *InMemoryKeyManager) read(id string) (Key, error) {
	f.storeMx.RLock()
	defer f.storeMx.RUnlock()

	key, ok := f.store[id]
	if !ok {
		return Key{}, KeyNotFoundErr
	}

	return key, nil
}

func signerFor(key Key) (crypto.Signer, error) {
	switch key.Type {
	case KeyTypeEd448:
		if len(key.PrivateKey) != ed448.PrivateKeySize {
			return nil, errors.Wrap(UnsupportedKeyTypeErr, "invalid private key")
		}

		return ed448.PrivateKey(key.PrivateKey), nil
	}

	return nil, UnsupportedKeyTypeErr
}
