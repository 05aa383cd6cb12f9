package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLocalStorageObjectStore(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStorage(dir)
	require.NoError(t, err)
	store.WithPublicBase("/uploads/")

	key, err := store.Put(context.Background(), "resumes/A1/cv.pdf", strings.NewReader("resume"), "application/pdf")
	require.NoError(t, err)

	file, err := store.Open(key)
	require.NoError(t, err)
	body, err := io.ReadAll(file)
	require.NoError(t, err)
	require.NoError(t, file.Close())
	require.Equal(t, "resume", string(body))

	url, err := store.URL(context.Background(), key)
	require.NoError(t, err)
	require.Equal(t, "/uploads/resumes/A1/cv.pdf", url)

	require.NoError(t, store.Remove(context.Background(), key))
	_, err = os.Stat(filepath.Join(dir, key))
	require.True(t, os.IsNotExist(err))
}

func TestLocalStorageRejectsTraversal(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	_, err = store.Save("../escape.txt", []byte("x"))
	require.Error(t, err)
	_, err = store.Open("/etc/passwd")
	require.Error(t, err)
}

func TestLocalStorageCleanupOlderThan(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStorage(dir)
	require.NoError(t, err)

	_, err = store.Save("old/roster.csv", []byte("a"))
	require.NoError(t, err)
	_, err = store.Save("fresh/roster.csv", []byte("b"))
	require.NoError(t, err)
	past := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(dir, "old", "roster.csv"), past, past))

	deleted, err := store.CleanupOlderThan(24 * time.Hour)
	require.NoError(t, err)
	require.Equal(t, []string{filepath.Join("old", "roster.csv")}, deleted)
}

func TestObjectKeySanitisesName(t *testing.T) {
	key := ObjectKey("resumes", "CS/2021 01", "..\\My CV (final).pdf", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
	require.True(t, strings.HasPrefix(key, "resumes/CS_2021_01/20240301-"))
	require.True(t, strings.HasSuffix(key, "-My_CV_final_.pdf"))
}
