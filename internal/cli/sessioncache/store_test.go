package sessioncache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yndnr/servicelayer-go/internal/infra/sealbox"
	"github.com/yndnr/servicelayer-go/pkg/servicelayer"
)

func testBox(t *testing.T) *sealbox.Box {
	t.Helper()
	key, err := sealbox.GenerateKey()
	require.NoError(t, err)
	box, err := sealbox.New(key)
	require.NoError(t, err)
	return box
}

func testSession() *servicelayer.Session {
	issued := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	return &servicelayer.Session{
		ID:             "abc123",
		Company:        "TEST",
		BaseURL:        "https://sap:50000/b1s/v1/",
		Username:       "manager",
		TimeoutMinutes: 30,
		IssuedAt:       issued,
		ExpiresAt:      servicelayer.ExpiryFor(issued, 30),
	}
}

func TestStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := New(t.TempDir(), "dev", testBox(t))

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)

	want := testSession()
	require.NoError(t, s.Save(ctx, want))

	data, err := os.ReadFile(s.Path())
	require.NoError(t, err)
	assert.True(t, sealbox.IsSealed(string(data[:len(data)-1])))
	assert.NotContains(t, string(data), "abc123")

	info, err := os.Stat(s.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	got, err = s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, want.ID, got.ID)
	assert.True(t, want.ExpiresAt.Equal(got.ExpiresAt))

	require.NoError(t, s.Clear(ctx))
	require.NoError(t, s.Clear(ctx))
	got, err = s.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestStore_BoundToProfile(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	box := testBox(t)

	dev := New(dir, "dev", box)
	require.NoError(t, dev.Save(ctx, testSession()))

	// A cache file copied over another profile's does not open.
	data, err := os.ReadFile(dev.Path())
	require.NoError(t, err)
	prod := New(dir, "prod", box)
	require.NoError(t, os.WriteFile(prod.Path(), data, 0o600))

	_, err = prod.Load(ctx)
	assert.Error(t, err)
}

func TestStore_WrongKey(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	require.NoError(t, New(dir, "dev", testBox(t)).Save(ctx, testSession()))

	_, err := New(dir, "dev", testBox(t)).Load(ctx)
	assert.Error(t, err)
}

func TestStore_DefaultName(t *testing.T) {
	s := New("/tmp/x", "", nil)
	assert.Equal(t, "/tmp/x/default.session", s.Path())

	s = New("/tmp/x", "a/b", nil)
	assert.Equal(t, "/tmp/x/a_b.session", s.Path())
}

func TestStore_SaveNilClears(t *testing.T) {
	ctx := context.Background()
	s := New(t.TempDir(), "dev", testBox(t))
	require.NoError(t, s.Save(ctx, testSession()))
	require.NoError(t, s.Save(ctx, nil))
	_, err := os.Stat(s.Path())
	assert.True(t, os.IsNotExist(err))
}
