package contracts

import (
	"encoding/binary"
	"time"
)

// ProofSchemeTag identifies which ProofScheme produced an Attestation.
type ProofSchemeTag uint16

const (
	SchemeHashBindingOnly ProofSchemeTag = iota + 1
	SchemeSNARKGroth16Style
	SchemeSTARKStyle
)

// Attestation is the succinct, shareable witness that a Verdict was
// produced under a declared policy. proof_blob is opaque to consumers;
// only the public inputs are meaningful outside C4.
type Attestation struct {
	VerdictCommitment [32]byte       `json:"verdict_commitment"`
	ProofBlob         []byte         `json:"proof_blob"`
	PublicInputs      PublicInputs   `json:"public_inputs"`
	SchemeTag         ProofSchemeTag `json:"scheme_tag"`
	CreatedAt         time.Time      `json:"created_at"`
}

// PublicInputs is the bit-exact layout proof schemes bind to:
//
//	[ policy_version:u32 | code_version:u32 | timestamp:u64 |
//	  verdict_commitment:32B | recommendation:u8 | risk_level:u8 ]
//
// little-endian, no padding.
type PublicInputs struct {
	PolicyVersion     uint32
	CodeVersion       uint32
	Timestamp         uint64
	VerdictCommitment [32]byte
	Recommendation    uint8
	RiskLevel         uint8
}

const publicInputsWireLen = 4 + 4 + 8 + 32 + 1 + 1

// MarshalBinary renders PublicInputs to its bit-exact wire layout.
func (p PublicInputs) MarshalBinary() ([]byte, error) {
	buf := make([]byte, publicInputsWireLen)
	off := 0
	binary.LittleEndian.PutUint32(buf[off:], p.PolicyVersion)
	off += 4
	binary.LittleEndian.PutUint32(buf[off:], p.CodeVersion)
	off += 4
	binary.LittleEndian.PutUint64(buf[off:], p.Timestamp)
	off += 8
	copy(buf[off:off+32], p.VerdictCommitment[:])
	off += 32
	buf[off] = p.Recommendation
	off++
	buf[off] = p.RiskLevel
	return buf, nil
}

// UnmarshalBinary parses the bit-exact wire layout produced by MarshalBinary.
func (p *PublicInputs) UnmarshalBinary(data []byte) error {
	if len(data) != publicInputsWireLen {
		return errInputMalformed("public inputs: wrong length")
	}
	off := 0
	p.PolicyVersion = binary.LittleEndian.Uint32(data[off:])
	off += 4
	p.CodeVersion = binary.LittleEndian.Uint32(data[off:])
	off += 4
	p.Timestamp = binary.LittleEndian.Uint64(data[off:])
	off += 8
	copy(p.VerdictCommitment[:], data[off:off+32])
	off += 32
	p.Recommendation = data[off]
	off++
	p.RiskLevel = data[off]
	return nil
}

// RecommendationCode and RiskLevelCode give the u8 wire encodings used in
// PublicInputs; kept alongside the enums they encode so the mapping
// cannot drift out of sync silently.
func RecommendationCode(r Recommendation) uint8 {
	switch r {
	case RecommendApprove:
		return 0
	case RecommendReview:
		return 1
	case RecommendReject:
		return 2
	default:
		return 255
	}
}

func RiskLevelCode(l RiskLevel) uint8 {
	switch l {
	case RiskLow:
		return 0
	case RiskMedium:
		return 1
	case RiskHigh:
		return 2
	case RiskCritical:
		return 3
	default:
		return 255
	}
}
