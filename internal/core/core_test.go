package core

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorKindMatching(t *testing.T) {
	err := Preconditionf("votingpower.Compute", "reputation_score", "got %d", 2000)
	assert.True(t, errors.Is(err, ErrPrecondition))
	assert.False(t, errors.Is(err, ErrState))
	assert.Equal(t, KindPrecondition, KindOf(err))

	wrapped := fmt.Errorf("update participant: %w", err)
	assert.True(t, errors.Is(wrapped, ErrPrecondition))
	assert.Equal(t, KindPrecondition, KindOf(wrapped))
	assert.Contains(t, err.Error(), "[reputation_score]")
}

func TestKindOfForeignError(t *testing.T) {
	assert.Equal(t, Kind(0), KindOf(errors.New("plain")))
}

func TestMulU64Overflow(t *testing.T) {
	v, err := MulU64("test", 1<<32, 1<<31)
	require.NoError(t, err)
	assert.Equal(t, uint64(1)<<63, v)

	_, err = MulU64("test", math.MaxUint64, 2)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrArithmetic))
}

func TestAddU64Overflow(t *testing.T) {
	_, err := AddU64("test", math.MaxUint64, 1)
	assert.True(t, errors.Is(err, ErrArithmetic))

	sum, err := SumU64("test", 1, 2, 3)
	require.NoError(t, err)
	assert.Equal(t, uint64(6), sum)
}

func TestWeightedSum(t *testing.T) {
	v, err := WeightedSum("test", []uint64{10, 20}, []uint64{3, 4})
	require.NoError(t, err)
	assert.Equal(t, uint64(110), v)

	_, err = WeightedSum("test", []uint64{1}, []uint64{1, 2})
	assert.True(t, errors.Is(err, ErrArithmetic))

	_, err = WeightedSum("test", []uint64{math.MaxUint64}, []uint64{100})
	assert.True(t, errors.Is(err, ErrArithmetic))
}

func TestCheckLenCountsCharacters(t *testing.T) {
	assert.NoError(t, CheckLen("test", "reason", strings.Repeat("é", 10), 10))
	err := CheckLen("test", "reason", strings.Repeat("a", 11), 10)
	assert.True(t, errors.Is(err, ErrPrecondition))
}
