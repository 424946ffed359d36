// Copyright 2026 moviesim Project Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package blob

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/juju/errors"
	"github.com/moviesim/moviesim/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPOSIX(t *testing.T) {
	// create client
	client := NewPOSIX(filepath.Join(t.TempDir(), "blob"))

	// empty store
	names, err := client.List()
	assert.NoError(t, err)
	assert.Empty(t, names)

	// write a temp file
	w, done, err := client.Create("genre.matrix")
	require.NoError(t, err)
	_, err = w.Write([]byte("hello world"))
	assert.NoError(t, err)
	assert.NoError(t, w.Close())
	assert.NoError(t, <-done)

	// read the file
	r, err := client.Open("genre.matrix")
	require.NoError(t, err)
	content, err := io.ReadAll(r)
	assert.NoError(t, err)
	assert.Equal(t, "hello world", string(content))
	assert.NoError(t, r.Close())

	// list files
	w, done, err = client.Create("tag.matrix")
	require.NoError(t, err)
	assert.NoError(t, w.Close())
	assert.NoError(t, <-done)
	names, err = client.List()
	assert.NoError(t, err)
	assert.Equal(t, []string{"genre.matrix", "tag.matrix"}, names)

	// remove file
	assert.NoError(t, client.Remove("genre.matrix"))
	names, err = client.List()
	assert.NoError(t, err)
	assert.Equal(t, []string{"tag.matrix"}, names)

	// missing file
	_, err = client.Open("genre.matrix")
	assert.True(t, errors.Is(err, errors.NotFound))
	assert.True(t, errors.Is(client.Remove("genre.matrix"), errors.NotFound))
}

func TestPOSIX_CloseWithError(t *testing.T) {
	dir := t.TempDir()
	client := NewPOSIX(dir)
	w, done, err := client.Create("genre.matrix")
	require.NoError(t, err)
	_, err = w.Write([]byte("partial"))
	assert.NoError(t, err)
	assert.NoError(t, w.CloseWithError(errors.New("marshal failed")))
	assert.ErrorContains(t, <-done, "marshal failed")

	// nothing is left behind
	_, err = os.Stat(filepath.Join(dir, "genre.matrix"))
	assert.True(t, os.IsNotExist(err))
	_, err = client.Open("genre.matrix")
	assert.True(t, errors.Is(err, errors.NotFound))
}

func TestPOSIX_WriteError(t *testing.T) {
	if _, err := os.Stat("/dev/full"); err != nil {
		t.Skip("/dev/full is not available")
	}
	dir := t.TempDir()
	client := NewPOSIX(dir)

	// a large write fails instead of blocking
	require.NoError(t, os.Symlink("/dev/full", filepath.Join(dir, "genre.matrix")))
	w, done, err := client.Create("genre.matrix")
	require.NoError(t, err)
	_, err = w.Write(bytes.Repeat([]byte{1}, 1<<20))
	assert.Error(t, err)
	assert.NoError(t, w.Close())
	assert.Error(t, <-done)
	_, err = os.Lstat(filepath.Join(dir, "genre.matrix"))
	assert.True(t, os.IsNotExist(err))

	// a small write is reported by the done channel
	require.NoError(t, os.Symlink("/dev/full", filepath.Join(dir, "tag.matrix")))
	w, done, err = client.Create("tag.matrix")
	require.NoError(t, err)
	_, _ = w.Write([]byte("hello"))
	assert.NoError(t, w.Close())
	assert.Error(t, <-done)
}

func TestOpen(t *testing.T) {
	store, err := Open(config.BlobConfig{Type: config.BlobPOSIX, Dir: t.TempDir()})
	assert.NoError(t, err)
	assert.IsType(t, &POSIX{}, store)

	_, err = Open(config.BlobConfig{Type: "ftp"})
	assert.True(t, errors.Is(err, errors.NotSupported))
}
