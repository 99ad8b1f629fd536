package app

import (
	"context"
	"testing"

	"github.com/dmitrijs2005/courier/internal/client/config"
	"github.com/dmitrijs2005/courier/internal/common"
	"github.com/dmitrijs2005/courier/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.DataDir = t.TempDir()
	// grpc.NewClient does not dial until the first call.
	cfg.ServerEndpointAddr = "127.0.0.1:1"
	return cfg
}

func TestNew_FirstRunCreatesVerifier(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)

	a, err := New(ctx, cfg, []byte("secret"), logging.Discard())
	require.NoError(t, err)

	salt, err := a.Settings.Get(ctx, KeySalt)
	require.NoError(t, err)
	assert.Len(t, salt, 16)
	_, err = a.Settings.Get(ctx, KeyCheck)
	require.NoError(t, err)
	assert.Equal(t, "", a.Identifier(ctx))
	require.NoError(t, a.Close())

	again, err := New(ctx, cfg, []byte("secret"), logging.Discard())
	require.NoError(t, err)
	require.NoError(t, again.Close())
}

func TestNew_WrongPassphrase(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)

	a, err := New(ctx, cfg, []byte("secret"), logging.Discard())
	require.NoError(t, err)
	require.NoError(t, a.Close())

	_, err = New(ctx, cfg, []byte("not-it"), logging.Discard())
	require.ErrorIs(t, err, ErrWrongPassphrase)
	assert.ErrorIs(t, err, common.ErrUnauthorized)
}

func TestNew_RestoresStoredSession(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)

	a, err := New(ctx, cfg, nil, logging.Discard())
	require.NoError(t, err)
	require.NoError(t, a.Settings.Set(ctx, KeyIdentifier, []byte("+15550001")))
	require.NoError(t, a.Settings.Set(ctx, KeyAccessToken, []byte("tok")))
	require.NoError(t, a.Close())

	again, err := New(ctx, cfg, nil, logging.Discard())
	require.NoError(t, err)
	defer again.Close()
	assert.Equal(t, "+15550001", again.Identifier(ctx))
}

func TestNewMessageID_Unique(t *testing.T) {
	assert.NotEqual(t, NewMessageID(), NewMessageID())
}
