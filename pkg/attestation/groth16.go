package attestation

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/binary"
	"math/big"
	"sync"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/r1cs"

	"github.com/trustwrapper/core/pkg/contracts"
)

// Groth16Scheme is a real Groth16 SNARK over BN254, proving
// VerdictCircuit's bucket-consistency constraint. Setup performs the
// one-time circuit compilation and trusted setup; Prove and Verify are
// safe for concurrent use once Setup has run.
type Groth16Scheme struct {
	thresholds contracts.RiskLevelThresholds

	mu    sync.RWMutex
	cs    constraint.ConstraintSystem
	pk    groth16.ProvingKey
	vk    groth16.VerifyingKey
	ready bool
}

// NewGroth16Scheme builds a Groth16Scheme. thresholds is compiled into
// the circuit's constraints at Setup time.
func NewGroth16Scheme(thresholds contracts.RiskLevelThresholds) *Groth16Scheme {
	return &Groth16Scheme{thresholds: thresholds}
}

func (s *Groth16Scheme) Tag() contracts.ProofSchemeTag { return contracts.SchemeSNARKGroth16Style }

// Setup compiles VerdictCircuit and runs the Groth16 trusted setup. It
// is idempotent.
func (s *Groth16Scheme) Setup() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ready {
		return nil
	}

	circuit := &VerdictCircuit{
		LowThreshold:    scaleTrust(s.thresholds.Low),
		MediumThreshold: scaleTrust(s.thresholds.Medium),
		HighThreshold:   scaleTrust(s.thresholds.High),
	}
	cs, err := frontend.Compile(ecc.BN254.ScalarField(), r1cs.NewBuilder, circuit)
	if err != nil {
		return contracts.NewVerifyError(contracts.ErrConfigInvalid, "compile verdict circuit", err)
	}
	pk, vk, err := groth16.Setup(cs)
	if err != nil {
		return contracts.NewVerifyError(contracts.ErrConfigInvalid, "groth16 trusted setup", err)
	}

	s.cs, s.pk, s.vk = cs, pk, vk
	s.ready = true
	return nil
}

// Prove runs the (potentially slow) Groth16 proving routine on a
// goroutine so it can be abandoned the instant ctx expires, per the
// PROVE_TIMEOUT failure semantics: a timed-out Prove leaves the caller
// free to emit the bare Verdict with no Attestation.
func (s *Groth16Scheme) Prove(ctx context.Context, w *Witness, public contracts.PublicInputs) ([]byte, error) {
	type result struct {
		blob []byte
		err  error
	}
	done := make(chan result, 1)
	go func() {
		blob, err := s.proveSync(w, public)
		done <- result{blob, err}
	}()

	select {
	case <-ctx.Done():
		return nil, contracts.NewVerifyError(contracts.ErrProveTimeout, "groth16 prove deadline exceeded", ctx.Err())
	case r := <-done:
		return r.blob, r.err
	}
}

func (s *Groth16Scheme) proveSync(w *Witness, public contracts.PublicInputs) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.ready {
		return nil, contracts.NewVerifyError(contracts.ErrConfigInvalid, "groth16 scheme not set up", nil)
	}

	nonce, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return nil, contracts.NewVerifyError(contracts.ErrConfigInvalid, "generate blinding nonce", err)
	}

	trustFixed := big.NewInt(scaleTrust(w.TrustScore))
	factorsBits := new(big.Int).SetUint64(uint64(w.Factors))
	bucket := evalBucketCommitment(trustFixed, factorsBits, nonce)

	assignment := &VerdictCircuit{
		BucketCommitment: bucket,
		RiskLevel:        int64(public.RiskLevel),
		TrustScoreFixed:  trustFixed,
		FactorsBits:      factorsBits,
		Nonce:            nonce,
	}
	witnessData, err := frontend.NewWitness(assignment, ecc.BN254.ScalarField())
	if err != nil {
		return nil, contracts.NewVerifyError(contracts.ErrInputMalformed, "build groth16 witness", err)
	}

	proof, err := groth16.Prove(s.cs, s.pk, witnessData)
	if err != nil {
		return nil, contracts.NewVerifyError(contracts.ErrProveTimeout, "groth16 prove failed", err)
	}

	var buf bytes.Buffer
	if _, err := proof.WriteTo(&buf); err != nil {
		return nil, contracts.NewVerifyError(contracts.ErrConfigInvalid, "serialize groth16 proof", err)
	}

	return encodeGroth16Proof(buf.Bytes(), bucket), nil
}

// Verify rebuilds the public witness from proof's own embedded
// BucketCommitment plus public.RiskLevel and checks it against the
// compiled verification key.
func (s *Groth16Scheme) Verify(proofBlob []byte, public contracts.PublicInputs) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.ready {
		return false, contracts.NewVerifyError(contracts.ErrConfigInvalid, "groth16 scheme not set up", nil)
	}

	proofBytes, bucket, err := decodeGroth16Proof(proofBlob)
	if err != nil {
		return false, err
	}

	proof := groth16.NewProof(ecc.BN254)
	if _, err := proof.ReadFrom(bytes.NewReader(proofBytes)); err != nil {
		return false, contracts.NewVerifyError(contracts.ErrInputMalformed, "deserialize groth16 proof", err)
	}

	publicAssignment := &VerdictCircuit{
		BucketCommitment: bucket,
		RiskLevel:        int64(public.RiskLevel),
	}
	publicWitness, err := frontend.NewWitness(publicAssignment, ecc.BN254.ScalarField(), frontend.PublicOnly())
	if err != nil {
		return false, contracts.NewVerifyError(contracts.ErrInputMalformed, "build groth16 public witness", err)
	}

	if err := groth16.Verify(proof, s.vk, publicWitness); err != nil {
		return false, nil
	}
	return true, nil
}

// scaleTrust fixes a [0,100] trust score (or threshold) to an integer
// so it can live in a circuit's scalar field without rounding noise.
func scaleTrust(trust float64) int64 { return int64(trust * 100) }

// evalBucketCommitment is the Go-side mirror of circuit.go's
// bucketCommitment, evaluated over the BN254 scalar field so it agrees
// bit-for-bit with what the compiled circuit checks.
func evalBucketCommitment(trustScoreFixed, factorsBits, nonce *big.Int) *big.Int {
	r := big.NewInt(7)
	r2 := new(big.Int).Mul(r, r)

	result := new(big.Int).Set(trustScoreFixed)
	result.Add(result, new(big.Int).Mul(factorsBits, r))
	result.Add(result, new(big.Int).Mul(nonce, r2))
	return result.Mod(result, ecc.BN254.ScalarField())
}

// encodeGroth16Proof packs a serialized Groth16 proof alongside the
// prover's BucketCommitment, which Verify needs to rebuild the public
// witness: [4-byte LE proof length][proof bytes][32-byte bucket].
func encodeGroth16Proof(proofBytes []byte, bucket *big.Int) []byte {
	out := make([]byte, 4+len(proofBytes)+32)
	binary.LittleEndian.PutUint32(out[:4], uint32(len(proofBytes)))
	copy(out[4:4+len(proofBytes)], proofBytes)
	bucket.FillBytes(out[4+len(proofBytes):])
	return out
}

func decodeGroth16Proof(blob []byte) ([]byte, *big.Int, error) {
	if len(blob) < 4+32 {
		return nil, nil, contracts.NewVerifyError(contracts.ErrInputMalformed, "groth16 proof blob too short", nil)
	}
	n := binary.LittleEndian.Uint32(blob[:4])
	if uint32(len(blob)) != 4+n+32 {
		return nil, nil, contracts.NewVerifyError(contracts.ErrInputMalformed, "groth16 proof blob length mismatch", nil)
	}
	proofBytes := blob[4 : 4+n]
	bucket := new(big.Int).SetBytes(blob[4+n:])
	return proofBytes, bucket, nil
}
