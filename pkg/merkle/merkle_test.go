package merkle

import (
	"crypto/sha256"
	"testing"

	"github.com/stretchr/testify/require"
)

func commitment(b byte) [32]byte {
	return sha256.Sum256([]byte{b})
}

func TestBuildEmptyBatch(t *testing.T) {
	_, err := Build(nil)
	require.ErrorIs(t, err, ErrEmptyBatch)
}

func TestBuildSingleLeafRootEqualsProof(t *testing.T) {
	c := commitment(1)
	tree, err := Build([][32]byte{c})
	require.NoError(t, err)
	require.Equal(t, 1, tree.LeafCount())

	proof, err := tree.Prove(0)
	require.NoError(t, err)
	require.Empty(t, proof.Steps)
	require.True(t, Verify(tree.Root(), c, proof))
}

func TestBuildOddLeafCountDuplicatesLast(t *testing.T) {
	commitments := [][32]byte{commitment(1), commitment(2), commitment(3)}
	tree, err := Build(commitments)
	require.NoError(t, err)
	require.Equal(t, 3, tree.LeafCount())

	for i, c := range commitments {
		proof, err := tree.Prove(i)
		require.NoError(t, err)
		require.True(t, Verify(tree.Root(), c, proof), "leaf %d should verify", i)
	}
}

func TestProveOutOfRange(t *testing.T) {
	tree, err := Build([][32]byte{commitment(1), commitment(2)})
	require.NoError(t, err)

	_, err = tree.Prove(-1)
	require.Error(t, err)
	_, err = tree.Prove(2)
	require.Error(t, err)
}

func TestVerifyRejectsWrongCommitment(t *testing.T) {
	commitments := [][32]byte{commitment(1), commitment(2), commitment(3), commitment(4)}
	tree, err := Build(commitments)
	require.NoError(t, err)

	proof, err := tree.Prove(2)
	require.NoError(t, err)
	require.False(t, Verify(tree.Root(), commitment(9), proof))
}

func TestDifferentBatchesProduceDifferentRoots(t *testing.T) {
	treeA, err := Build([][32]byte{commitment(1), commitment(2)})
	require.NoError(t, err)
	treeB, err := Build([][32]byte{commitment(1), commitment(3)})
	require.NoError(t, err)
	require.NotEqual(t, treeA.Root(), treeB.Root())
}
