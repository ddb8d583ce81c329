package timelock

import (
	"context"
	"crypto"
	"crypto/rand"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math/big"
	"sync"
	"sync/atomic"

	"github.com/cloudflare/circl/sign/ed448"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/crypto/sha3"
	"source.quilibrium.com/quilibrium/monorepo/timelock/node/config"
	"source.quilibrium.com/quilibrium/monorepo/timelock/node/keys"
	"source.quilibrium.com/quilibrium/monorepo/timelock/node/metrics"
	"source.quilibrium.com/quilibrium/monorepo/timelock/node/store"
	"source.quilibrium.com/quilibrium/monorepo/timelock/pkg/cipher"
	"source.quilibrium.com/quilibrium/monorepo/timelock/pkg/core/iqc"
	"source.quilibrium.com/quilibrium/monorepo/timelock/pkg/vdf"
)

// Service seals messages behind a verifiable delay and opens them again. The
// record store, key manager and metrics are optional.
type Service struct {
	config     *config.VDFConfig
	logger     *zap.Logger
	store      store.RecordStore
	keyManager keys.KeyManager
	metrics    *metrics.Metrics

	progress      atomic.Pointer[vdf.ProgressFunc]
	constructions map[string]vdf.Construction
	constructMx   sync.Mutex
}

func NewService(
	cfg *config.VDFConfig,
	logger *zap.Logger,
	recordStore store.RecordStore,
	keyManager keys.KeyManager,
	metrics *metrics.Metrics,
) *Service {
	if cfg == nil {
		cfg = config.DefaultVDFConfig()
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	return &Service{
		config:        cfg,
		logger:        logger,
		store:         recordStore,
		keyManager:    keyManager,
		metrics:       metrics,
		constructions: make(map[string]vdf.Construction),
	}
}

// SetProgress installs a hook called while the delay is computed.
func (s *Service) SetProgress(progress vdf.ProgressFunc) {
	if progress == nil {
		s.progress.Store(nil)
		return
	}

	s.progress.Store(&progress)
}

func (s *Service) progressFor(name string) vdf.ProgressFunc {
	observe := s.metrics.ProgressFunc(name)
	return func(done, total uint64) {
		if observe != nil {
			observe(done, total)
		}

		if progress := s.progress.Load(); progress != nil {
			(*progress)(done, total)
		}
	}
}

func (s *Service) bits(name string, bits uint32) uint32 {
	if bits != 0 {
		return bits
	}

	if name == vdf.RSAWesolowski {
		return s.config.RSAModulusBits
	}

	return s.config.DiscriminantBits
}

// construction returns the construction for the group parameters. Class
// group constructions are kept so their discriminant cache is reused.
func (s *Service) construction(
	name string,
	bits uint32,
	modulus *big.Int,
	trapdoor *vdf.RSATrapdoor,
) (vdf.Construction, error) {
	if name == "" {
		name = s.config.Construction
	}

	params := vdf.Params{
		Bits:      s.bits(name, bits),
		Modulus:   modulus,
		Trapdoor:  trapdoor,
		CacheSize: s.config.DiscriminantCacheSize,
		Progress:  s.progressFor(name),
	}

	if name != vdf.ClassGroupWesolowski {
		return vdf.New(name, params, s.logger)
	}

	key := fmt.Sprintf("%s/%d", name, params.Bits)

	s.constructMx.Lock()
	defer s.constructMx.Unlock()

	if c, ok := s.constructions[key]; ok {
		return c, nil
	}

	c, err := vdf.New(name, params, s.logger)
	if err != nil {
		return nil, err
	}

	s.constructions[key] = c
	return c, nil
}

func (s *Service) recordConstruction(record *Record) (vdf.Construction, error) {
	return s.construction(record.Construction, record.Bits, record.Modulus(), nil)
}

// Encrypt solves the delay for the request's seed and seals the text under a
// key derived from the output. RSA records get a fresh trapdoor, so sealing
// them skips the delay.
func (s *Service) Encrypt(
	ctx context.Context,
	request *EncryptRequest,
) (*Record, error) {
	if request.X == nil {
		return nil, errors.Wrap(ErrInvalidRecord, "encrypt: missing x")
	}

	name := request.Construction
	if name == "" {
		name = s.config.Construction
	}

	timer := s.metrics.Timer("encrypt", name)
	defer timer.ObserveDuration()

	var trapdoor *vdf.RSATrapdoor
	if name == vdf.RSAWesolowski {
		var err error
		trapdoor, err = vdf.GenerateRSATrapdoor(rand.Reader, s.bits(name, request.Bits))
		if err != nil {
			return nil, errors.Wrap(err, "encrypt")
		}
	}

	construction, err := s.construction(name, request.Bits, nil, trapdoor)
	if err != nil {
		return nil, errors.Wrap(err, "encrypt")
	}

	x := request.X.BigInt()
	t := uint64(request.T)

	s.logger.Info(
		"sealing record",
		zap.String("construction", name),
		zap.Uint64("iterations", t),
		zap.Int("message_length", len(request.OriginalText)),
	)

	out, err := construction.Solve(ctx, x, t)
	if err != nil {
		return nil, errors.Wrap(err, "encrypt")
	}

	nonce, err := cipher.NewNonce(rand.Reader)
	if err != nil {
		return nil, errors.Wrap(err, "encrypt")
	}

	ciphertext, tag, err := cipher.Encrypt(
		cipher.DeriveKey(out.Y),
		nonce,
		[]byte(request.OriginalText),
	)
	if err != nil {
		return nil, errors.Wrap(err, "encrypt")
	}

	params := construction.Params()
	record := &Record{
		Construction:  name,
		Version:       config.GetVersionString(),
		X:             NewInteger(x),
		T:             Iterations(t),
		Bits:          params.Bits,
		MessageLength: len(request.OriginalText),
		Nonce:         cipher.EncodeNonce(nonce),
		CipherText:    ciphertext,
		Tag:           tag,
		Proof:         out.Proof,
	}

	if params.Modulus != nil {
		record.N = params.Modulus.Bytes()
	}

	if err := s.sign(record); err != nil {
		return nil, errors.Wrap(err, "encrypt")
	}

	if err := s.persist(record, construction, out); err != nil {
		return nil, errors.Wrap(err, "encrypt")
	}

	return record, nil
}

// Decrypt recovers the plaintext of the record. A solution already in the
// store is verified and used; otherwise the delay is paid in full.
func (s *Service) Decrypt(ctx context.Context, record *Record) ([]byte, error) {
	if err := s.check(record); err != nil {
		return nil, errors.Wrap(err, "decrypt")
	}

	timer := s.metrics.Timer("decrypt", record.Construction)
	defer timer.ObserveDuration()

	construction, err := s.recordConstruction(record)
	if err != nil {
		return nil, errors.Wrap(err, "decrypt")
	}

	x := record.X.BigInt()
	t := uint64(record.T)

	out, err := s.cachedSolution(construction, x, t)
	if err != nil {
		return nil, errors.Wrap(err, "decrypt")
	}

	if out != nil {
		ok, err := s.verify(construction, x, t, out)
		if err != nil {
			return nil, errors.Wrap(err, "decrypt")
		}

		if !ok {
			return nil, errors.Wrap(vdf.ErrProofRejected, "decrypt: stored solution")
		}
	} else {
		s.logger.Info(
			"evaluating delay",
			zap.String("construction", construction.Name()),
			zap.Uint64("iterations", t),
		)

		out, err = construction.Evaluate(ctx, x, t)
		if err != nil {
			return nil, errors.Wrap(err, "decrypt")
		}

		out.Proof = record.Proof
		ok, err := s.verify(construction, x, t, out)
		if err != nil || !ok {
			s.logger.Warn(
				"record proof does not match evaluated output",
				zap.Uint64("iterations", t),
				zap.Error(err),
			)
		} else if err := s.persistSolution(construction, x, t, out); err != nil {
			return nil, errors.Wrap(err, "decrypt")
		}
	}

	plaintext, err := s.open(record, out)
	return plaintext, errors.Wrap(err, "decrypt")
}

// DecryptWithSolution opens the record with an output computed elsewhere,
// refusing it unless its proof verifies.
func (s *Service) DecryptWithSolution(
	ctx context.Context,
	record *Record,
	out *vdf.Output,
) ([]byte, error) {
	if err := s.check(record); err != nil {
		return nil, errors.Wrap(err, "decrypt with solution")
	}

	construction, err := s.recordConstruction(record)
	if err != nil {
		return nil, errors.Wrap(err, "decrypt with solution")
	}

	x := record.X.BigInt()
	t := uint64(record.T)

	ok, err := s.verify(construction, x, t, out)
	if err != nil {
		return nil, errors.Wrap(err, "decrypt with solution")
	}

	if !ok {
		return nil, errors.Wrap(vdf.ErrProofRejected, "decrypt with solution")
	}

	if err := s.persistSolution(construction, x, t, out); err != nil {
		return nil, errors.Wrap(err, "decrypt with solution")
	}

	plaintext, err := s.open(record, out)
	return plaintext, errors.Wrap(err, "decrypt with solution")
}

// Verify checks the record's signature and its proof against the output.
// Without a stored solution the output is evaluated first.
func (s *Service) Verify(ctx context.Context, record *Record) (bool, error) {
	if err := s.checkSignature(record); err != nil {
		if errors.Is(err, ErrInvalidSignature) {
			return false, nil
		}

		return false, errors.Wrap(err, "verify")
	}

	construction, err := s.recordConstruction(record)
	if err != nil {
		return false, errors.Wrap(err, "verify")
	}

	timer := s.metrics.Timer("verify", construction.Name())
	defer timer.ObserveDuration()

	x := record.X.BigInt()
	t := uint64(record.T)

	out, err := s.cachedSolution(construction, x, t)
	if err != nil {
		return false, errors.Wrap(err, "verify")
	}

	if out == nil {
		if out, err = construction.Evaluate(ctx, x, t); err != nil {
			return false, errors.Wrap(err, "verify")
		}
	}

	ok, err := s.verify(
		construction,
		x,
		t,
		&vdf.Output{Y: out.Y, Proof: record.Proof},
	)
	return ok, errors.Wrap(err, "verify")
}

// VerifyOutputs checks outputs for the records concurrently, returning the
// verdicts in record order.
func (s *Service) VerifyOutputs(
	ctx context.Context,
	records []*Record,
	outs []*vdf.Output,
) ([]bool, error) {
	if len(records) != len(outs) {
		return nil, errors.Wrap(ErrInvalidRecord, "verify outputs: length mismatch")
	}

	items := make([]vdf.VerifyItem, len(records))
	for i, record := range records {
		construction, err := s.recordConstruction(record)
		if err != nil {
			return nil, errors.Wrapf(err, "verify outputs: record %d", i)
		}

		items[i] = vdf.VerifyItem{
			Construction: construction,
			X:            record.X.BigInt(),
			T:            uint64(record.T),
			Output:       outs[i],
		}
	}

	results, err := vdf.VerifyAll(ctx, items, s.config.VerifyWorkers)
	if err != nil {
		return nil, errors.Wrap(err, "verify outputs")
	}

	for i, ok := range results {
		s.metrics.ObserveVerification(items[i].Construction.Name(), ok)
	}

	return results, nil
}

// SolveRequest names the group and delay for a standalone solve.
type SolveRequest struct {
	Construction string
	Bits         uint32
	Modulus      *big.Int
	X            *big.Int
	T            uint64
}

// Solve computes the output and proof for the seed, storing them so records
// over the same parameters open without another delay.
func (s *Service) Solve(
	ctx context.Context,
	request *SolveRequest,
) (*vdf.Output, error) {
	construction, err := s.construction(
		request.Construction,
		request.Bits,
		request.Modulus,
		nil,
	)
	if err != nil {
		return nil, errors.Wrap(err, "solve")
	}

	timer := s.metrics.Timer("solve", construction.Name())
	defer timer.ObserveDuration()

	handle := vdf.NewVDF(construction, request.T, request.X)
	if err := handle.Execute(ctx); err != nil {
		return nil, errors.Wrap(err, "solve")
	}

	out := handle.GetOutput()
	if err := s.persistSolution(construction, request.X, request.T, out); err != nil {
		return nil, errors.Wrap(err, "solve")
	}

	return out, nil
}

// check validates what can be validated before any delay work.
func (s *Service) check(record *Record) error {
	if record.X == nil {
		return errors.Wrap(ErrInvalidRecord, "missing x")
	}

	if len(record.CipherText) != record.MessageLength {
		return errors.Wrapf(
			ErrCipherLengthMismatch,
			"cipher text of %d bytes, message length %d",
			len(record.CipherText),
			record.MessageLength,
		)
	}

	if record.Version != "" {
		version, err := config.ParseVersion(record.Version)
		if err != nil || !config.IsCompatible(version) {
			return errors.Wrapf(ErrIncompatibleVersion, "version %s", record.Version)
		}
	}

	return s.checkSignature(record)
}

func (s *Service) open(record *Record, out *vdf.Output) ([]byte, error) {
	nonce, err := cipher.DecodeNonce(record.Nonce)
	if err != nil {
		return nil, err
	}

	return cipher.Decrypt(cipher.DeriveKey(out.Y), nonce, record.CipherText, record.Tag)
}

func (s *Service) verify(
	construction vdf.Construction,
	x *big.Int,
	t uint64,
	out *vdf.Output,
) (bool, error) {
	ok, err := construction.Verify(x, t, out)
	if err != nil {
		return false, err
	}

	s.metrics.ObserveVerification(construction.Name(), ok)
	return ok, nil
}

// sign attests the record with the configured sealer key, creating the key
// on first use.
func (s *Service) sign(record *Record) error {
	if s.keyManager == nil || s.config.SealerKeyId == "" {
		return nil
	}

	signer, err := s.keyManager.GetSigningKey(s.config.SealerKeyId)
	if errors.Is(err, keys.KeyNotFoundErr) {
		signer, err = s.keyManager.CreateSigningKey(
			s.config.SealerKeyId,
			keys.KeyTypeEd448,
		)
	}
	if err != nil {
		return errors.Wrap(err, "sign")
	}

	publicKey, ok := signer.Public().(ed448.PublicKey)
	if !ok {
		return errors.Wrap(keys.UnsupportedKeyTypeErr, "sign")
	}

	record.SealerKey = HexBytes(publicKey)
	record.Signature = nil

	message, err := record.SigningBytes()
	if err != nil {
		return errors.Wrap(err, "sign")
	}

	signature, err := signer.Sign(rand.Reader, message, crypto.Hash(0))
	if err != nil {
		return errors.Wrap(err, "sign")
	}

	record.Signature = signature
	return nil
}

func (s *Service) checkSignature(record *Record) error {
	if len(record.Signature) == 0 && len(record.SealerKey) == 0 {
		return nil
	}

	if len(record.SealerKey) != ed448.PublicKeySize ||
		len(record.Signature) != ed448.SignatureSize {
		return errors.Wrap(ErrInvalidSignature, "check signature")
	}

	message, err := record.SigningBytes()
	if err != nil {
		return errors.Wrap(err, "check signature")
	}

	if !ed448.Verify(
		ed448.PublicKey(record.SealerKey),
		message,
		record.Signature,
		"",
	) {
		return errors.Wrap(ErrInvalidSignature, "check signature")
	}

	return nil
}

// solutionKey identifies an output by the group and delay it was computed
// for.
func solutionKey(construction vdf.Construction, x *big.Int, t uint64) []byte {
	params := construction.Params()
	h := sha3.New256()
	h.Write([]byte(construction.Name()))
	h.Write([]byte{0x00})
	h.Write(binary.BigEndian.AppendUint32(nil, params.Bits))
	if params.Modulus != nil {
		modulus := params.Modulus.Bytes()
		h.Write(binary.BigEndian.AppendUint32(nil, uint32(len(modulus))))
		h.Write(modulus)
	}
	h.Write(iqc.EncodeBigIntBigEndian(x))
	h.Write(binary.BigEndian.AppendUint64(nil, t))

	return h.Sum(nil)
}

func (s *Service) cachedSolution(
	construction vdf.Construction,
	x *big.Int,
	t uint64,
) (*vdf.Output, error) {
	if s.store == nil {
		return nil, nil
	}

	out, err := s.store.GetSolution(solutionKey(construction, x, t))
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}

	return out, err
}

func (s *Service) persistSolution(
	construction vdf.Construction,
	x *big.Int,
	t uint64,
	out *vdf.Output,
) error {
	if s.store == nil {
		return nil
	}

	return s.store.PutSolution(solutionKey(construction, x, t), out, nil)
}

func (s *Service) persist(
	record *Record,
	construction vdf.Construction,
	out *vdf.Output,
) error {
	if s.store == nil {
		return nil
	}

	id, err := record.Id()
	if err != nil {
		return errors.Wrap(err, "persist")
	}

	data, err := json.Marshal(record)
	if err != nil {
		return errors.Wrap(err, "persist")
	}

	txn, err := s.store.NewTransaction()
	if err != nil {
		return errors.Wrap(err, "persist")
	}

	if err := s.store.PutRecord(id, data, txn); err != nil {
		txn.Abort()
		return errors.Wrap(err, "persist")
	}

	if err := s.store.PutSolution(
		solutionKey(construction, record.X.BigInt(), uint64(record.T)),
		out,
		txn,
	); err != nil {
		txn.Abort()
		return errors.Wrap(err, "persist")
	}

	if err := txn.Commit(); err != nil {
		return errors.Wrap(err, "persist")
	}

	s.logger.Info("stored record", zap.String("record_id", id))
	return nil
}

// Records lists the stored records by id.
func (s *Service) Records() ([]string, []*Record, error) {
	if s.store == nil {
		return nil, nil, nil
	}

	iter, err := s.store.RangeRecords()
	if err != nil {
		return nil, nil, errors.Wrap(err, "records")
	}

	defer iter.Close()

	ids := []string{}
	records := []*Record{}
	for iter.First(); iter.Valid(); iter.Next() {
		stored, err := iter.Value()
		if err != nil {
			return nil, nil, errors.Wrap(err, "records")
		}

		record, err := ParseRecord(stored.Data)
		if err != nil {
			return nil, nil, errors.Wrap(err, "records")
		}

		ids = append(ids, stored.Id)
		records = append(records, record)
	}

	return ids, records, nil
}

func (s *Service) GetRecord(id string) (*Record, error) {
	if s.store == nil {
		return nil, errors.Wrap(store.ErrNotFound, "get record")
	}

	data, err := s.store.GetRecord(id)
	if err != nil {
		return nil, errors.Wrap(err, "get record")
	}

	record, err := ParseRecord(data)
	return record, errors.Wrap(err, "get record")
}

func (s *Service) DeleteRecord(id string) error {
	if s.store == nil {
		return errors.Wrap(store.ErrNotFound, "delete record")
	}

	if _, err := s.store.GetRecord(id); err != nil {
		return errors.Wrap(err, "delete record")
	}

	return errors.Wrap(s.store.DeleteRecord(id, nil), "delete record")
}
