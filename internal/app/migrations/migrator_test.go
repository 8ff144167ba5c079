package migrations

import (
	"io/fs"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEmbeddedMigrations(t *testing.T) {
	sub, err := fs.Sub(embedded, "sql")
	require.NoError(t, err)

	migrations, err := Load(sub)
	require.NoError(t, err)
	require.Len(t, migrations, 3)
	assert.Equal(t, "001", migrations[0].Version)
	assert.Equal(t, "users", migrations[0].Name)
	assert.Contains(t, migrations[2].SQL, "community_posts")
}

func TestLoadOrdersAndRejectsDuplicates(t *testing.T) {
	src := fstest.MapFS{
		"002_b.sql":  {Data: []byte("SELECT 2;")},
		"001_a.sql":  {Data: []byte("SELECT 1;")},
		"README.txt": {Data: []byte("ignored")},
	}
	migrations, err := Load(src)
	require.NoError(t, err)
	require.Len(t, migrations, 2)
	assert.Equal(t, "a", migrations[0].Name)

	src["001_dup.sql"] = &fstest.MapFile{Data: []byte("SELECT 3;")}
	_, err = Load(src)
	assert.ErrorContains(t, err, "duplicate migration version 001")

	_, err = Load(fstest.MapFS{"broken.sql": {Data: []byte("")}})
	assert.Error(t, err)
}
