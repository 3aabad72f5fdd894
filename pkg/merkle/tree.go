// Package merkle builds a Merkle tree over N Verdict commitments, with
// an individual inclusion proof per leaf. pkg/attestation does not use
// it: every Attestation covers exactly one Verdict.
package merkle

import (
	"crypto/sha256"
	"errors"
)

const (
	leafPrefix = "trustwrapper:merkle:leaf:v1\x00"
	nodePrefix = "trustwrapper:merkle:node:v1\x00"
)

// ErrEmptyBatch is returned when a proving round has no leaves.
var ErrEmptyBatch = errors.New("merkle: batch has no leaves")

// Tree is a binary Merkle tree over an ordered list of leaf hashes.
// Odd levels duplicate their last node rather than leaving it unpaired,
// so the tree is always fully balanced.
type Tree struct {
	levels [][][32]byte // levels[0] = leaves, levels[len-1] = [root]
}

// Root returns the tree's root hash.
func (t *Tree) Root() [32]byte {
	top := t.levels[len(t.levels)-1]
	return top[0]
}

// LeafCount returns the number of leaves the tree was built from
// (before any odd-count duplication).
func (t *Tree) LeafCount() int { return len(t.levels[0]) }

// leafHash domain-separates a raw 32-byte commitment before it enters
// the tree, so a commitment can never be replayed as an internal node.
func leafHash(commitment [32]byte) [32]byte {
	h := sha256.New()
	h.Write([]byte(leafPrefix))
	h.Write(commitment[:])
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

func nodeHash(left, right [32]byte) [32]byte {
	h := sha256.New()
	h.Write([]byte(nodePrefix))
	h.Write(left[:])
	h.Write(right[:])
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// Build constructs a Tree over commitments, which must be given in the
// fixed order the batch was proven in (the same order callers will
// later request inclusion proofs against).
func Build(commitments [][32]byte) (*Tree, error) {
	if len(commitments) == 0 {
		return nil, ErrEmptyBatch
	}
	leaves := make([][32]byte, len(commitments))
	for i, c := range commitments {
		leaves[i] = leafHash(c)
	}
	levels := [][][32]byte{leaves}
	cur := leaves
	for len(cur) > 1 {
		next := buildNextLevel(cur)
		levels = append(levels, next)
		cur = next
	}
	return &Tree{levels: levels}, nil
}

func buildNextLevel(level [][32]byte) [][32]byte {
	if len(level)%2 == 1 {
		level = append(level, level[len(level)-1])
	}
	next := make([][32]byte, 0, len(level)/2)
	for i := 0; i < len(level); i += 2 {
		next = append(next, nodeHash(level[i], level[i+1]))
	}
	return next
}
