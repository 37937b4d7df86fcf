package dedup

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignEmptyContent(t *testing.T) {
	signer := NewSigner(64)

	sig := signer.Sign("")
	require.Len(t, sig, 64)
	for i, v := range sig {
		assert.Zero(t, v, "slot %d", i)
	}

	// whitespace-only content also has zero tokens
	sig = signer.Sign("   \t\n  ")
	for _, v := range sig {
		assert.Zero(t, v)
	}
}

func TestSignDeterministic(t *testing.T) {
	signer := NewSigner(32)
	assert.Equal(t, signer.Sign("the quick brown fox"), signer.Sign("the quick brown fox"))
}

func TestSignTokenOrderIrrelevant(t *testing.T) {
	// MinHash is over the token set, so order must not matter
	signer := NewSigner(32)
	assert.Equal(t, signer.Sign("alpha beta gamma"), signer.Sign("gamma alpha beta"))
}

func TestSimilarityIdentity(t *testing.T) {
	signer := NewSigner(64)
	sig := signer.Sign("hello world")
	assert.Equal(t, 1.0, Similarity(sig, sig))
}

func TestSimilarityLengthMismatch(t *testing.T) {
	a := NewSigner(64).Sign("hello world")
	b := NewSigner(32).Sign("hello world")
	assert.Equal(t, 0.0, Similarity(a, b))
}

func TestSimilarityEmptySignatures(t *testing.T) {
	assert.Equal(t, 0.0, Similarity(nil, nil))
	assert.Equal(t, 0.0, Similarity([]uint64{}, []uint64{}))
}

func TestSimilarityDisjointContent(t *testing.T) {
	signer := NewSigner(64)
	a := signer.Sign("alpha beta gamma delta")
	b := signer.Sign("one two three four")
	assert.Less(t, Similarity(a, b), 0.3)
}

func TestDefaultPermutations(t *testing.T) {
	signer := NewSigner(0)
	assert.Len(t, signer.Sign("x"), DefaultPermutations)
}

func TestGroupNearDuplicates(t *testing.T) {
	signer := NewSigner(64)

	contentA := "quarterly sales revenue exceeded projections across every region this period " +
		"with enterprise accounts driving most of the growth while retention improved and " +
		"churn dropped sharply among mid market customers after the new onboarding program " +
		"rolled out in january"
	contentB := "quarterly sales revenue exceeded projections across every region this period " +
		"with enterprise accounts driving most of the growth while retention improved and " +
		"churn dropped sharply among mid market customers after the new onboarding program " +
		"rolled out in february"

	entries := []BatchEntry{
		{ID: "1", Topic: "sales", Content: contentA},
		{ID: "2", Topic: "sales", Content: contentB},
		{ID: "3", Topic: "sales", Content: "completely unrelated note about office supplies inventory"},
		{ID: "4", Topic: "hiring", Content: "two engineers start next month"},
	}

	groups := signer.GroupNearDuplicates(entries, 0.8)

	require.Contains(t, groups, "sales")
	require.Len(t, groups["sales"], 1)
	pair := groups["sales"][0]
	assert.Equal(t, "1", pair.IDA)
	assert.Equal(t, "2", pair.IDB)
	assert.GreaterOrEqual(t, pair.Similarity, 0.8)

	// singleton topics produce no pairs
	assert.NotContains(t, groups, "hiring")
}

func TestGroupNearDuplicatesCrossTopicIsolation(t *testing.T) {
	signer := NewSigner(64)

	// identical content in different topics must not pair up
	entries := []BatchEntry{
		{ID: "a", Topic: "t1", Content: "same exact content here"},
		{ID: "b", Topic: "t2", Content: "same exact content here"},
	}
	groups := signer.GroupNearDuplicates(entries, 0.5)
	assert.Empty(t, groups)
}
