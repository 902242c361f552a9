package tests

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eudiconnect/credential-platform/internal/cache"
	"github.com/eudiconnect/credential-platform/internal/core/domain"
	"github.com/eudiconnect/credential-platform/internal/repositories"
)

const (
	testIssuerDID = "did:example:issuer-1"
	testCredType  = "VerifiableAttestation"
)

func TestStatusListGetOrCreate(t *testing.T) {
	ctx := context.Background()
	repo := repositories.NewStatusList(storage, &cache.NullCache{})

	list, err := repo.GetOrCreate(ctx, testIssuerDID, testCredType)
	require.NoError(t, err)
	assert.Equal(t, testIssuerDID, list.IssuerDID)
	assert.Equal(t, testCredType, list.CredentialTypeID)
	assert.Equal(t, int64(0), list.RevokedCount)
	assert.Equal(t, int64(0), list.NextFreeIndex)
	assert.Len(t, list.Bitstring, domain.PageSizeBits/8)

	again, err := repo.GetOrCreate(ctx, testIssuerDID, testCredType)
	require.NoError(t, err)
	assert.Equal(t, list.ID, again.ID)

	other, err := repo.GetOrCreate(ctx, "did:example:issuer-2", testCredType)
	require.NoError(t, err)
	assert.NotEqual(t, list.ID, other.ID)
}

func TestStatusListAssignIndex(t *testing.T) {
	ctx := context.Background()
	repo := repositories.NewStatusList(storage, &cache.NullCache{})
	merchantID := uuid.New()

	first, err := repo.AssignIndex(ctx, "did:example:assign", testCredType, merchantID, uuid.New())
	require.NoError(t, err)
	assert.Equal(t, int64(0), first.BitIndex)

	second, err := repo.AssignIndex(ctx, "did:example:assign", testCredType, merchantID, uuid.New())
	require.NoError(t, err)
	assert.Equal(t, int64(1), second.BitIndex)
	assert.Equal(t, first.StatusListID, second.StatusListID)

	list, err := repo.GetByID(ctx, first.StatusListID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), list.NextFreeIndex)
}

func TestStatusListAssignIndexDuplicateCredential(t *testing.T) {
	ctx := context.Background()
	repo := repositories.NewStatusList(storage, &cache.NullCache{})
	credentialID := uuid.New()

	_, err := repo.AssignIndex(ctx, "did:example:dup", testCredType, uuid.New(), credentialID)
	require.NoError(t, err)

	_, err = repo.AssignIndex(ctx, "did:example:dup", testCredType, uuid.New(), credentialID)
	assert.ErrorIs(t, err, repositories.ErrCredentialAlreadyAssigned)
}

func TestStatusListAssignIndexConcurrent(t *testing.T) {
	ctx := context.Background()
	repo := repositories.NewStatusList(storage, &cache.NullCache{})
	merchantID := uuid.New()

	const workers = 20
	indexes := make(chan int64, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assignment, err := repo.AssignIndex(ctx, "did:example:concurrent", testCredType, merchantID, uuid.New())
			assert.NoError(t, err)
			if err == nil {
				indexes <- assignment.BitIndex
			}
		}()
	}
	wg.Wait()
	close(indexes)

	seen := map[int64]bool{}
	for idx := range indexes {
		assert.False(t, seen[idx], "bit index %d assigned twice", idx)
		seen[idx] = true
	}
	assert.Len(t, seen, workers)
}

func TestStatusListRevoke(t *testing.T) {
	ctx := context.Background()
	repo := repositories.NewStatusList(storage, &cache.NullCache{})

	assignment, err := repo.AssignIndex(ctx, "did:example:revoke", testCredType, uuid.New(), uuid.New())
	require.NoError(t, err)

	revoked, err := repo.IsRevoked(ctx, assignment.StatusListID, assignment.BitIndex)
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, repo.Revoke(ctx, assignment.StatusListID, assignment.BitIndex))

	revoked, err = repo.IsRevoked(ctx, assignment.StatusListID, assignment.BitIndex)
	require.NoError(t, err)
	assert.True(t, revoked)

	list, err := repo.GetByID(ctx, assignment.StatusListID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), list.RevokedCount)
	assert.Equal(t, list.PopCount(), list.RevokedCount)

	// revoking again leaves the counter untouched
	require.NoError(t, repo.Revoke(ctx, assignment.StatusListID, assignment.BitIndex))
	list, err = repo.GetByID(ctx, assignment.StatusListID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), list.RevokedCount)
}

func TestStatusListRevokeUnknownList(t *testing.T) {
	ctx := context.Background()
	repo := repositories.NewStatusList(storage, &cache.NullCache{})

	err := repo.Revoke(ctx, uuid.New(), 0)
	assert.ErrorIs(t, err, repositories.ErrStatusListNotFound)
}

func TestStatusListRevokeUnassignedIndex(t *testing.T) {
	ctx := context.Background()
	repo := repositories.NewStatusList(storage, &cache.NullCache{})

	assignment, err := repo.AssignIndex(ctx, "did:example:oob", testCredType, uuid.New(), uuid.New())
	require.NoError(t, err)

	err = repo.Revoke(ctx, assignment.StatusListID, assignment.BitIndex+100)
	assert.ErrorIs(t, err, domain.ErrIndexOutOfRange)
}

func TestStatusListGetAssignment(t *testing.T) {
	ctx := context.Background()
	repo := repositories.NewStatusList(storage, &cache.NullCache{})
	credentialID := uuid.New()

	_, err := repo.GetAssignment(ctx, credentialID)
	assert.ErrorIs(t, err, repositories.ErrCredentialNotAssigned)

	created, err := repo.AssignIndex(ctx, "did:example:lookup", testCredType, uuid.New(), credentialID)
	require.NoError(t, err)

	assignment, err := repo.GetAssignment(ctx, credentialID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, assignment.ID)
	assert.Equal(t, created.StatusListID, assignment.StatusListID)
	assert.Equal(t, created.BitIndex, assignment.BitIndex)
}

func TestStatusListGetByIDNotFound(t *testing.T) {
	ctx := context.Background()
	repo := repositories.NewStatusList(storage, &cache.NullCache{})

	_, err := repo.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, repositories.ErrStatusListNotFound)
}
