package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStatusList(t *testing.T) {
	l := NewStatusList("did:example:issuer", "VerifiableAttestation")
	assert.Len(t, l.Bitstring, pageSizeBytes)
	assert.Equal(t, int64(0), l.RevokedCount)
	assert.Equal(t, int64(0), l.NextFreeIndex)
	assert.Equal(t, int64(0), l.PopCount())
}

func TestAllocateIndex(t *testing.T) {
	l := NewStatusList("did:example:issuer", "VerifiableAttestation")

	for want := int64(0); want < 10; want++ {
		assert.Equal(t, want, l.AllocateIndex())
	}
	assert.Equal(t, int64(10), l.NextFreeIndex)
}

func TestAllocateIndexGrowsByPages(t *testing.T) {
	l := NewStatusList("did:example:issuer", "VerifiableAttestation")
	l.NextFreeIndex = PageSizeBits

	idx := l.AllocateIndex()
	assert.Equal(t, int64(PageSizeBits), idx)
	assert.Len(t, l.Bitstring, 2*pageSizeBytes)

	set, err := l.SetBit(idx)
	require.NoError(t, err)
	assert.True(t, set)
}

func TestSetBit(t *testing.T) {
	l := NewStatusList("did:example:issuer", "VerifiableAttestation")
	idx := l.AllocateIndex()

	revoked, err := l.Bit(idx)
	require.NoError(t, err)
	assert.False(t, revoked)

	set, err := l.SetBit(idx)
	require.NoError(t, err)
	assert.True(t, set)
	assert.Equal(t, int64(1), l.RevokedCount)

	revoked, err = l.Bit(idx)
	require.NoError(t, err)
	assert.True(t, revoked)

	// setting twice must not inflate the counter
	set, err = l.SetBit(idx)
	require.NoError(t, err)
	assert.False(t, set)
	assert.Equal(t, int64(1), l.RevokedCount)
}

func TestSetBitOutOfRange(t *testing.T) {
	l := NewStatusList("did:example:issuer", "VerifiableAttestation")
	l.AllocateIndex()

	_, err := l.SetBit(-1)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)

	_, err = l.SetBit(l.NextFreeIndex)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)

	_, err = l.Bit(l.NextFreeIndex)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
}

func TestRevokedCountMatchesPopCount(t *testing.T) {
	l := NewStatusList("did:example:issuer", "VerifiableAttestation")
	for i := 0; i < 1000; i++ {
		l.AllocateIndex()
	}
	for _, i := range []int64{0, 7, 8, 63, 64, 511, 512, 999, 7, 63} {
		_, err := l.SetBit(i)
		require.NoError(t, err)
	}
	assert.Equal(t, l.PopCount(), l.RevokedCount)
	assert.Equal(t, int64(8), l.RevokedCount)
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	l := NewStatusList("did:example:issuer", "VerifiableAttestation")
	for i := 0; i < 200; i++ {
		l.AllocateIndex()
	}
	for _, i := range []int64{1, 42, 128, 199} {
		_, err := l.SetBit(i)
		require.NoError(t, err)
	}

	encoded, err := l.Encode()
	require.NoError(t, err)
	assert.NotEmpty(t, encoded)
	// an almost empty page compresses well below its raw size
	assert.Less(t, len(encoded), pageSizeBytes)

	decoded, err := DecodeBitstring(encoded)
	require.NoError(t, err)
	assert.Equal(t, l.Bitstring, decoded)
}

func TestDecodeBitstringCorrupt(t *testing.T) {
	_, err := DecodeBitstring([]byte("this is not deflate data"))
	assert.ErrorIs(t, err, ErrCorruptEncoding)
}

func TestBitLayout(t *testing.T) {
	l := NewStatusList("did:example:issuer", "VerifiableAttestation")
	for i := 0; i < 16; i++ {
		l.AllocateIndex()
	}

	_, err := l.SetBit(0)
	require.NoError(t, err)
	assert.Equal(t, byte(0x01), l.Bitstring[0])

	_, err = l.SetBit(7)
	require.NoError(t, err)
	assert.Equal(t, byte(0x81), l.Bitstring[0])

	_, err = l.SetBit(9)
	require.NoError(t, err)
	assert.Equal(t, byte(0x02), l.Bitstring[1])
}
