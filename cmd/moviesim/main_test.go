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

package main

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/juju/errors"
	"github.com/moviesim/moviesim/cmd/version"
	"github.com/moviesim/moviesim/config"
	"github.com/moviesim/moviesim/logics"
	"github.com/moviesim/moviesim/storage"
	"github.com/moviesim/moviesim/storage/data"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestConfig(t *testing.T) *config.Config {
	dir := t.TempDir()
	files := map[string]string{
		data.MoviesFile: "movieId,title,genres\n" +
			"1,Movie 1,Action|Comedy\n" +
			"2,Movie 2,Comedy|Drama\n" +
			"3,Movie 3,Action|Drama\n" +
			"4,Movie 4,Western\n",
		data.RatingsFile: "userId,movieId,rating,timestamp\n" +
			"1,1,4.0,964982703\n" +
			"1,3,4.5,964981247\n" +
			"2,1,3.0,964982224\n" +
			"2,2,3.5,964983815\n",
		data.TagsFile: "userId,movieId,tag,timestamp\n" +
			"1,1,explosions,1445714994\n" +
			"1,3,explosions,1445714996\n",
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	conf := config.GetDefaultConfig()
	conf.Database.DataStore = storage.CSVPrefix + dir
	conf.Blob.Dir = t.TempDir()
	require.NoError(t, conf.Validate())
	return conf
}

func TestBuildAndRecommend(t *testing.T) {
	ctx := context.Background()
	conf := newTestConfig(t)
	require.NoError(t, build(ctx, conf, io.Discard))
	for _, name := range []string{logics.SignalGenre, logics.SignalTag, logics.SignalRating} {
		assert.FileExists(t, filepath.Join(conf.Blob.Dir, logics.BlobName(name)))
	}
	// no genome scores in the dataset
	assert.NoFileExists(t, filepath.Join(conf.Blob.Dir, logics.BlobName(logics.SignalGenome)))

	var out bytes.Buffer
	require.NoError(t, recommend(ctx, conf, "movie 1", &out))
	assert.Contains(t, out.String(), "Movie 3")
	assert.Contains(t, out.String(), "Movie 2")
	assert.NotContains(t, out.String(), "Movie 1 ")

	// unknown title
	err := recommend(ctx, conf, "Casablanca", io.Discard)
	assert.True(t, errors.Is(err, errors.NotFound))

	// nothing above the threshold
	out.Reset()
	conf.Recommend.Threshold = 1
	require.NoError(t, recommend(ctx, conf, "Movie 4", &out))
	assert.Equal(t, "no recommendations found\n", out.String())
}

func TestRecommend_MissingMatrix(t *testing.T) {
	conf := newTestConfig(t)
	err := recommend(context.Background(), conf, "Movie 1", io.Discard)
	assert.True(t, errors.Is(err, errors.NotFound))
}

func TestImportDataset(t *testing.T) {
	ctx := context.Background()
	conf := newTestConfig(t)
	source := conf.Database.DataStore
	conf.Database.DataStore = storage.SQLitePrefix + filepath.Join(t.TempDir(), "data.db")
	require.NoError(t, importDataset(ctx, conf, source, 2, true, io.Discard))

	db, err := data.Open(conf.Database.DataStore, conf.Database.TablePrefix)
	require.NoError(t, err)
	defer db.Close()
	movies, err := db.GetMovies(ctx)
	require.NoError(t, err)
	assert.Len(t, movies, 4)

	// build from the imported store
	require.NoError(t, build(ctx, conf, io.Discard))
	var out bytes.Buffer
	require.NoError(t, recommend(ctx, conf, "Movie 1", &out))
	assert.Contains(t, out.String(), "Movie 3")

	err = importDataset(ctx, conf, conf.Database.DataStore, 2, false, io.Discard)
	assert.True(t, errors.Is(err, errors.NotValid))
}

func TestRenderRecommendations(t *testing.T) {
	var out bytes.Buffer
	err := renderRecommendations(&out, []logics.Recommendation{
		{MovieId: 3, Title: "Movie 3", Genres: []string{"Action", "Drama"}, Score: 0.5, AvgRating: 4.5},
		{MovieId: 2, Title: "Movie 2", Score: 0.25},
	})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Action|Drama")
	assert.Contains(t, out.String(), "0.5000")
	assert.Contains(t, out.String(), "4.50")
	assert.Contains(t, out.String(), "0.2500")
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	rootCommand.SetOut(&out)
	rootCommand.SetArgs([]string{"version"})
	require.NoError(t, rootCommand.Execute())
	assert.Equal(t, version.BuildInfo(), out.String())
}
