package cmd

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	"github.com/storacha/grantlink/internal/testutil"
)

func newApp() *cli.App {
	return &cli.App{
		Name:     "grantlink",
		Commands: []*cli.Command{GrantCmd, CheckCmd, VersionCmd},
	}
}

func TestGrantPut(t *testing.T) {
	dataDir := t.TempDir()
	hash := testutil.RandomHash()

	err := newApp().Run([]string{"grantlink", "grant", "put", "--data-dir", dataDir, "--key", "dir/file.txt", "--hash", hash})
	require.NoError(t, err)

	err = newApp().Run([]string{"grantlink", "grant", "put", "--data-dir", dataDir, "--key", "dir/shared.txt", "--hash", hash, "--reusable"})
	require.NoError(t, err)

	grants, closeStore, err := openGrantStore(dataDir)
	require.NoError(t, err)
	defer closeStore()

	now := time.Now().Unix()
	d, err := grants.Lookup(context.Background(), hash, "dir/file.txt", now)
	require.NoError(t, err)
	require.True(t, d.Authorized)
	require.True(t, d.OneTime)

	d, err = grants.Lookup(context.Background(), hash, "dir/shared.txt", now)
	require.NoError(t, err)
	require.True(t, d.Authorized)
	require.False(t, d.OneTime)
}

func TestGrantPutInvalid(t *testing.T) {
	dataDir := t.TempDir()

	err := newApp().Run([]string{"grantlink", "grant", "put", "--data-dir", dataDir, "--key", "dir/file.txt", "--hash", "ABC"})
	require.Error(t, err)

	err = newApp().Run([]string{"grantlink", "grant", "put", "--data-dir", dataDir, "--key", "bad key"})
	require.Error(t, err)
}

func TestNewCapabilityHash(t *testing.T) {
	a := testutil.Must(newCapabilityHash())(t)
	b := testutil.Must(newCapabilityHash())(t)
	require.Regexp(t, "^[a-f0-9]{64}$", a)
	require.NotEqual(t, a, b)
}

func TestCheck(t *testing.T) {
	err := newApp().Run([]string{"grantlink", "check", "dir/file.txt", "bob123", testutil.RandomHash()})
	require.NoError(t, err)

	err = newApp().Run([]string{"grantlink", "check", "dir/file.txt", "b", testutil.RandomHash()})
	require.ErrorContains(t, err, "alias")

	err = newApp().Run([]string{"grantlink", "check", "dir/file.txt"})
	require.Error(t, err)
}
