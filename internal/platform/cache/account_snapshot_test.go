package cache

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trading_bridge/internal/feature/accounts/domain/entity"
)

func TestNewAccountSnapshotStore_Defaults(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name              string
		ttl               time.Duration
		namespace         string
		expectedTTL       time.Duration
		expectedNamespace string
	}{
		{"defaults when zero/empty", 0, "", 24 * time.Hour, "accounts"},
		{"custom values preserved", time.Hour, "custom", time.Hour, "custom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s := NewAccountSnapshotStore(nil, tt.ttl, tt.namespace)
			assert.Equal(t, tt.expectedTTL, s.ttl)
			assert.Equal(t, tt.expectedNamespace, s.namespace)
		})
	}
}

func TestAccountSnapshotStore_NilRedisBypass(t *testing.T) {
	t.Parallel()

	s := NewAccountSnapshotStore(nil, 0, "")
	require.NoError(t, s.Save(context.Background(), []entity.Account{{AccountID: "acc-1"}}))

	accounts, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Nil(t, accounts)
}

func TestAccountSnapshotStore_SaveAndLoad(t *testing.T) {
	t.Parallel()

	accounts := []entity.Account{
		{AccountID: "acc-1", BrokerID: "tradovate", Balance: 1000, Active: true, Nickname: "main",
			Extra: map[string]any{"environment": "demo"}},
	}
	blob, err := json.Marshal(accounts)
	require.NoError(t, err)

	rdb, mock := redismock.NewClientMock()
	defer func() { _ = rdb.Close() }()

	mock.ExpectSet("accounts:snapshot", blob, 24*time.Hour).SetVal("OK")
	mock.ExpectGet("accounts:snapshot").SetVal(string(blob))

	s := NewAccountSnapshotStore(rdb, 0, "")
	require.NoError(t, s.Save(context.Background(), accounts))

	loaded, err := s.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, "acc-1", loaded[0].AccountID)
	assert.Equal(t, "demo", loaded[0].Extra["environment"])

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountSnapshotStore_LoadMissingKey(t *testing.T) {
	t.Parallel()

	rdb, mock := redismock.NewClientMock()
	defer func() { _ = rdb.Close() }()
	mock.ExpectGet("accounts:snapshot").RedisNil()

	s := NewAccountSnapshotStore(rdb, 0, "")
	accounts, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Nil(t, accounts)
	require.NoError(t, mock.ExpectationsWereMet())
}
