package database

import (
	"context"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListMigrations(t *testing.T) {
	fsys := fstest.MapFS{
		"migrations/0002_create_flags.up.sql":   {Data: []byte("CREATE TABLE flags ();")},
		"migrations/0001_create_users.up.sql":   {Data: []byte("CREATE TABLE users ();")},
		"migrations/0001_create_users.down.sql": {Data: []byte("DROP TABLE users;")},
		"migrations/README.md":                  {Data: []byte("notes")},
	}

	names, err := ListMigrations(fsys, "migrations")
	require.NoError(t, err)
	assert.Equal(t, []string{"0001_create_users.up.sql", "0002_create_flags.up.sql"}, names)
}

func TestApplyDir_MissingDirectory(t *testing.T) {
	m := NewMigrator(nil, nil)

	err := m.ApplyDir(context.Background(), t.TempDir()+"/absent")
	assert.Error(t, err)
}

func TestApplyDir_NoMigrations(t *testing.T) {
	m := NewMigrator(nil, nil)

	err := m.ApplyDir(context.Background(), t.TempDir())
	assert.NoError(t, err)
}
