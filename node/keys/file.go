package keys

import (
	"crypto"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"io"
	"os"
	"sort"
	"sync"

	"github.com/cloudflare/circl/sign/ed448"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gopkg.in/yaml.v2"
	"source.quilibrium.com/quilibrium/monorepo/timelock/node/config"
)

const ivSize = 12

// FileKeyManager keeps keys in a yaml file, with private keys sealed by
// AES-GCM under the configured encryption key.
type FileKeyManager struct {
	keyStoreConfig *config.KeyStoreFileConfig
	logger         *zap.Logger
	key            ByteString
	store          map[string]Key
	storeMx        sync.Mutex
}

func NewFileKeyManager(
	keyStoreConfig *config.KeyConfig,
	logger *zap.Logger,
) (*FileKeyManager, error) {
	if keyStoreConfig.KeyStoreFile == nil {
		return nil, errors.New("key store config missing")
	}

	key, err := hex.DecodeString(keyStoreConfig.KeyStoreFile.EncryptionKey)
	if err != nil {
		return nil, errors.Wrap(err, "could not decode encryption key")
	}

	if _, err := aes.NewCipher(key); err != nil {
		return nil, errors.Wrap(err, "could not construct cipher")
	}

	flag := os.O_RDONLY

	if keyStoreConfig.KeyStoreFile.CreateIfMissing {
		flag |= os.O_CREATE
	}

	file, err := os.OpenFile(
		keyStoreConfig.KeyStoreFile.Path,
		flag,
		os.FileMode(0600),
	)
	if err != nil {
		return nil, errors.Wrap(err, "could not open store")
	}

	defer file.Close()

	store := make(map[string]Key)
	d := yaml.NewDecoder(file)
	if err := d.Decode(store); err != nil && !errors.Is(err, io.EOF) {
		return nil, errors.Wrap(err, "could not decode")
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	logger.Debug(
		"loaded key store",
		zap.String("path", keyStoreConfig.KeyStoreFile.Path),
		zap.Int("keys", len(store)),
	)

	return &FileKeyManager{
		keyStoreConfig: keyStoreConfig.KeyStoreFile,
		logger:         logger,
		key:            key,
		store:          store,
	}, nil
}

// CreateSigningKey implements KeyManager
func (f *FileKeyManager) CreateSigningKey(
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

	if err = f.save(
		Key{
			Id:         id,
			Type:       keyType,
			PublicKey:  ByteString(pubkey),
			PrivateKey: ByteString(privkey),
		},
	); err != nil {
		return nil, errors.Wrap(err, "could not save")
	}

	f.logger.Info("created signing key", zap.String("key_id", id))
	return privkey, nil
}

// GetRawKey implements KeyManager
func (f *FileKeyManager) GetRawKey(id string) (*Key, error) {
	f.storeMx.Lock()
	defer f.storeMx.Unlock()

	key, err := f.read(id)
	if err != nil {
		return nil, err
	}

	return &key, nil
}

// GetSigningKey implements KeyManager
func (f *FileKeyManager) GetSigningKey(id string) (crypto.Signer, error) {
	key, err := f.GetRawKey(id)
	if err != nil {
		return nil, err
	}

	return signerFor(*key)
}

// PutRawKey implements KeyManager
func (f *FileKeyManager) PutRawKey(key *Key) error {
	return f.save(*key)
}

// DeleteKey implements KeyManager
func (f *FileKeyManager) DeleteKey(id string) error {
	f.storeMx.Lock()
	defer f.storeMx.Unlock()

	removed, ok := f.store[id]
	if !ok {
		return KeyNotFoundErr
	}

	delete(f.store, id)
	if err := f.write(); err != nil {
		f.store[id] = removed
		return err
	}

	return nil
}

// ListKeys implements KeyManager
func (f *FileKeyManager) ListKeys() ([]*Key, error) {
	f.storeMx.Lock()
	defer f.storeMx.Unlock()

	keys := make([]*Key, 0, len(f.store))
	for id := range f.store {
		key, err := f.read(id)
		if err != nil {
			return nil, err
		}

		keys = append(keys, &key)
	}

	sort.Slice(keys, func(i, j int) bool { return keys[i].Id < keys[j].Id })
	return keys, nil
}

var _ KeyManager = (*FileKeyManager)(nil)

func (f *FileKeyManager) save(key Key) error {
	encKey, err := f.encrypt(key.PrivateKey)
	if err != nil {
		return errors.Wrap(err, "could not encrypt")
	}

	f.storeMx.Lock()
	defer f.storeMx.Unlock()

	previous, existed := f.store[key.Id]
	f.store[key.Id] = Key{
		Id:         key.Id,
		Type:       key.Type,
		PublicKey:  key.PublicKey,
		PrivateKey: encKey,
	}

	if err := f.write(); err != nil {
		if existed {
			f.store[key.Id] = previous
		} else {
			delete(f.store, key.Id)
		}

		return err
	}

	return nil
}

// write must be called with storeMx held.
func (f *FileKeyManager) write() error {
	file, err := os.OpenFile(
		f.keyStoreConfig.Path,
		os.O_CREATE|os.O_RDWR|os.O_TRUNC,
		os.FileMode(0600),
	)
	if err != nil {
		return errors.Wrap(err, "could not open store")
	}

	defer file.Close()

	e := yaml.NewEncoder(file)
	if err := e.Encode(f.store); err != nil {
		return errors.Wrap(err, "could not store")
	}

	return errors.Wrap(e.Close(), "could not store")
}

// read must be called with storeMx held.
func (f *FileKeyManager) read(id string) (Key, error) {
	stored, ok := f.store[id]
	if !ok {
		return Key{}, KeyNotFoundErr
	}

	data, err := f.decrypt(stored.PrivateKey)
	if err != nil {
		return Key{}, errors.Wrap(err, "could not decrypt")
	}

	return Key{
		Id:         stored.Id,
		Type:       stored.Type,
		PublicKey:  stored.PublicKey,
		PrivateKey: data,
	}, nil
}

func (f *FileKeyManager) encrypt(data []byte) ([]byte, error) {
	iv := [ivSize]byte{}
	if _, err := rand.Read(iv[:]); err != nil {
		return nil, errors.Wrap(err, "could not generate iv")
	}

	aesCipher, err := aes.NewCipher(f.key)
	if err != nil {
		return nil, errors.Wrap(err, "could not construct cipher")
	}

	gcm, err := cipher.NewGCM(aesCipher)
	if err != nil {
		return nil, errors.Wrap(err, "could not construct block")
	}

	ciphertext := gcm.Seal(nil, iv[:], data, nil)
	return append(append([]byte{}, iv[:]...), ciphertext...), nil
}

func (f *FileKeyManager) decrypt(data []byte) ([]byte, error) {
	if len(data) < ivSize {
		return nil, errors.New("ciphertext too short")
	}

	iv := data[:ivSize]
	aesCipher, err := aes.NewCipher(f.key)
	if err != nil {
		return nil, errors.Wrap(err, "could not construct cipher")
	}

	gcm, err := cipher.NewGCM(aesCipher)
	if err != nil {
		return nil, errors.Wrap(err, "could not construct block")
	}

	plaintext, err := gcm.Open(nil, iv, data[ivSize:], nil)
	return plaintext, errors.Wrap(err, "could not decrypt ciphertext")
}
