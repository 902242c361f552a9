package domain

import (
	"bytes"
	"compress/flate"
	"errors"
	"fmt"
	"io"
	"math/bits"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgtype"
)

// PageSizeBits is the growth unit of a status list bitstring. Lists are
// allocated in whole pages so the encoded blob has a predictable shape.
const PageSizeBits = 131072

const pageSizeBytes = PageSizeBits / 8

var (
	// ErrIndexOutOfRange is returned when a bit index beyond the allocated range is accessed
	ErrIndexOutOfRange = errors.New("bit index out of range")
	// ErrCorruptEncoding is returned when an encoded status list cannot be decoded
	ErrCorruptEncoding = errors.New("corrupt status list encoding")
)

// StatusList is the bit indexed revocation ledger for one issuer and
// credential type. Bit i records whether the credential assigned index i is
// revoked. Bit i lives in byte i/8 under mask 1<<(i%8), so bit 0 is the least
// significant bit of byte 0.
type StatusList struct {
	ID               uuid.UUID
	IssuerDID        string
	CredentialTypeID string
	Bitstring        []byte
	RevokedCount     int64
	NextFreeIndex    int64
	Metadata         pgtype.JSONB
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// NewStatusList returns an empty status list for the given issuer and
// credential type, sized to one page
func NewStatusList(issuerDID, credentialTypeID string) *StatusList {
	return &StatusList{
		IssuerDID:        issuerDID,
		CredentialTypeID: credentialTypeID,
		Bitstring:        make([]byte, pageSizeBytes),
		Metadata:         pgtype.JSONB{Status: pgtype.Null},
	}
}

// AllocateIndex hands out the next free bit index and advances the cursor,
// growing the bitstring by whole pages when the cursor crosses the current
// capacity. Indices are never reused. Callers must hold the list row lock.
func (l *StatusList) AllocateIndex() int64 {
	idx := l.NextFreeIndex
	l.NextFreeIndex++
	for int(idx/8) >= len(l.Bitstring) {
		l.Bitstring = append(l.Bitstring, make([]byte, pageSizeBytes)...)
	}
	return idx
}

// SetBit sets bit i to 1 and maintains RevokedCount by delta. Setting an
// already set bit is a no-op. It reports whether the bit changed.
func (l *StatusList) SetBit(i int64) (bool, error) {
	if i < 0 || i >= l.NextFreeIndex {
		return false, fmt.Errorf("%w: index %d, next free index %d", ErrIndexOutOfRange, i, l.NextFreeIndex)
	}
	mask := byte(1) << (i % 8)
	if l.Bitstring[i/8]&mask != 0 {
		return false, nil
	}
	l.Bitstring[i/8] |= mask
	l.RevokedCount++
	return true, nil
}

// Bit returns the revocation state of index i
func (l *StatusList) Bit(i int64) (bool, error) {
	if i < 0 || i >= l.NextFreeIndex {
		return false, fmt.Errorf("%w: index %d, next free index %d", ErrIndexOutOfRange, i, l.NextFreeIndex)
	}
	return l.Bitstring[i/8]&(byte(1)<<(i%8)) != 0, nil
}

// PopCount returns the number of set bits in the bitstring
func (l *StatusList) PopCount() int64 {
	var n int64
	for _, b := range l.Bitstring {
		n += int64(bits.OnesCount8(b))
	}
	return n
}

// Encode compresses the bitstring with DEFLATE for persistence
func (l *StatusList) Encode() ([]byte, error) {
	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, flate.BestCompression)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(l.Bitstring); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeBitstring is the inverse of Encode. Round trips are exact:
// DecodeBitstring(l.Encode()) returns l.Bitstring byte for byte.
func DecodeBitstring(encoded []byte) ([]byte, error) {
	r := flate.NewReader(bytes.NewReader(encoded))
	defer func() { _ = r.Close() }()

	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptEncoding, err)
	}
	return raw, nil
}
