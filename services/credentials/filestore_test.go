package credsvc

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) *FileStore {
	return NewFileStore(filepath.Join(t.TempDir(), "nested", "credentials.json"))
}

func TestFileStore_loggedOut(t *testing.T) {
	fs := newStore(t)

	token, err := fs.Token()
	require.NoError(t, err)
	assert.Empty(t, token)

	role, err := fs.Role()
	require.NoError(t, err)
	assert.Empty(t, role)

	assert.NoError(t, fs.Invalidate())
	assert.NoError(t, fs.Clear())
}

func TestFileStore_Store(t *testing.T) {
	tests := []struct {
		name      string
		stores    [][2]string
		wantToken string
		wantRole  string
	}{
		{name: "learner", stores: [][2]string{{RoleLearner, "L1"}}, wantToken: "L1", wantRole: RoleLearner},
		{name: "admin", stores: [][2]string{{RoleAdmin, "A1"}}, wantToken: "A1", wantRole: RoleAdmin},
		{name: "admin replaces learner", stores: [][2]string{{RoleLearner, "L1"}, {RoleAdmin, "A1"}}, wantToken: "A1", wantRole: RoleAdmin},
		{name: "learner replaces admin", stores: [][2]string{{RoleAdmin, "A1"}, {RoleLearner, "L2"}}, wantToken: "L2", wantRole: RoleLearner},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := newStore(t)
			for _, s := range tt.stores {
				require.NoError(t, fs.Store(s[0], s[1]))
			}

			token, err := fs.Token()
			require.NoError(t, err)
			assert.Equal(t, tt.wantToken, token)

			role, err := fs.Role()
			require.NoError(t, err)
			assert.Equal(t, tt.wantRole, role)

			fi, err := os.Stat(fs.Path())
			require.NoError(t, err)
			assert.Equal(t, os.FileMode(0600), fi.Mode().Perm())
		})
	}
}

func TestFileStore_StoreUnknownRole(t *testing.T) {
	fs := newStore(t)
	assert.Error(t, fs.Store("tutor", "x"))
}

func TestFileStore_adminPreferred(t *testing.T) {
	fs := newStore(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(fs.Path()), 0700))
	require.NoError(t, ioutil.WriteFile(fs.Path(), []byte(`{"admin_token":"A","user_token":"L"}`), 0600))

	token, err := fs.Token()
	require.NoError(t, err)
	assert.Equal(t, "A", token)

	// dropping the admin token falls back to the learner one
	require.NoError(t, fs.Invalidate())
	token, err = fs.Token()
	require.NoError(t, err)
	assert.Equal(t, "L", token)

	require.NoError(t, fs.Invalidate())
	token, err = fs.Token()
	require.NoError(t, err)
	assert.Empty(t, token)

	_, err = os.Stat(fs.Path())
	assert.True(t, os.IsNotExist(err))
}

func TestFileStore_corrupt(t *testing.T) {
	fs := newStore(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(fs.Path()), 0700))
	require.NoError(t, ioutil.WriteFile(fs.Path(), []byte(`{not json`), 0600))

	_, err := fs.Token()
	assert.Error(t, err)

	require.NoError(t, fs.Clear())
	token, err := fs.Token()
	require.NoError(t, err)
	assert.Empty(t, token)
}
