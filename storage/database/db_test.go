package database

import (
	"database/sql"
	"io/fs"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/courseapp/courseapp/core"
)

func TestMigrate(t *testing.T) {
	var gotCmd, gotDir string
	var gotArgs []string
	gooseRunFunc = func(command string, db *sql.DB, fsys fs.FS, dir string, args ...string) error {
		gotCmd, gotDir, gotArgs = command, dir, args
		if _, err := fs.Stat(fsys, dir+"/00001_init.sql"); err != nil {
			return err
		}
		if command == "lol" {
			return errors.New(`"lol": no such command`)
		}
		return nil
	}

	require.NoError(t, Migrate(nil, "up-to", "1"))
	assert.Equal(t, "up-to", gotCmd)
	assert.Equal(t, "migrations", gotDir)
	assert.Equal(t, []string{"1"}, gotArgs)

	err := Migrate(nil, "lol")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no such command")
}

func TestOpen_noURL(t *testing.T) {
	_, err := Open(new(core.Config))
	assert.Equal(t, errNoURL, err)
}
