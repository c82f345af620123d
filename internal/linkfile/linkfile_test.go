package linkfile

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRead_SkipsBlankAndComments(t *testing.T) {
	path := filepath.Join(t.TempDir(), "links.txt")
	content := "https://shop.example/a\n\n# seeds\n  https://shop.example/b  \n####https://shop.example/list\nhttps://shop.example/c"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	links, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://shop.example/a", "https://shop.example/b", "https://shop.example/c"}, links)
}

func TestRead_MissingFile(t *testing.T) {
	_, err := Read(filepath.Join(t.TempDir(), "nope.txt"))
	assert.Error(t, err)
}

func TestWriter_AppendsBlocks(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.txt")
	require.NoError(t, os.WriteFile(path, []byte("https://old.example/x\n"), 0o644))

	w, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, w.WriteBlock("https://shop.example/list?page=1", []string{"https://shop.example/p/1", "https://shop.example/p/2"}))
	require.NoError(t, w.WriteBlock("https://shop.example/empty", nil))
	require.NoError(t, w.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "https://old.example/x\n"+
		"####https://shop.example/list?page=1\n"+
		"https://shop.example/p/1\nhttps://shop.example/p/2\n"+
		"####https://shop.example/empty\n", string(data))

	links, err := Read(path)
	require.NoError(t, err)
	assert.Len(t, links, 3)
}

func TestDefaultOutputName(t *testing.T) {
	at := time.Date(2024, 3, 5, 14, 7, 9, 0, time.UTC)
	assert.Equal(t, "product_urls_acme_store_20240305-140709.txt", DefaultOutputName("Acme Store", at))
	assert.Equal(t, "product_urls_site_20240305-140709.txt", DefaultOutputName("  ", at))
}
