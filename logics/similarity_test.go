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

package logics

import (
	"context"
	"fmt"
	"math/rand"
	"testing"

	"github.com/jaswdr/faker"
	"github.com/juju/errors"
	"github.com/moviesim/moviesim/dataset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newThreeMovieDataset(t *testing.T) *dataset.Dataset {
	d, err := dataset.NewDataset([]dataset.Movie{
		{Id: 1, Title: "Movie 1", Genres: []string{"Action", "Comedy"}},
		{Id: 2, Title: "Movie 2", Genres: []string{"Comedy", "Drama"}},
		{Id: 3, Title: "Movie 3", Genres: []string{"Action", "Drama"}},
	}, nil, nil, nil)
	require.NoError(t, err)
	return d
}

func newFakeDataset(t *testing.T, numMovies, numUsers int) *dataset.Dataset {
	fake := faker.NewWithSeed(rand.NewSource(0))
	genres := []string{"Action", "Adventure", "Comedy", "Drama", "Horror", "Romance", "Thriller"}
	var (
		movies  []dataset.Movie
		tags    []dataset.Tag
		ratings []dataset.Rating
		scores  []dataset.GenomeScore
	)
	for i := 0; i < numMovies; i++ {
		movies = append(movies, dataset.Movie{
			Id:     int64(i + 1),
			Title:  fmt.Sprintf("%s (%d)", fake.Lorem().Sentence(3), 1950+i),
		})
		for j := 0; j < fake.IntBetween(0, 3); j++ {
			movies[i].Genres = append(movies[i].Genres, fake.RandomStringElement(genres))
		}
		for j := 0; j < fake.IntBetween(0, 3); j++ {
			tags = append(tags, dataset.Tag{
				UserId:  int64(fake.IntBetween(1, numUsers)),
				MovieId: int64(i + 1),
				Tag:     fake.Lorem().Word(),
			})
		}
		for j := 0; j < 4; j++ {
			scores = append(scores, dataset.GenomeScore{
				MovieId:   int64(i + 1),
				TagId:     int64(j + 1),
				Tag:       fmt.Sprintf("tag %d", j),
				Relevance: float32(fake.IntBetween(0, 100)) / 100,
			})
		}
	}
	for u := 1; u <= numUsers; u++ {
		for j := 0; j < 5; j++ {
			ratings = append(ratings, dataset.Rating{
				UserId:  int64(u),
				MovieId: int64(fake.IntBetween(1, numMovies)),
				Rating:  float32(fake.IntBetween(1, 10)) / 2,
			})
		}
	}
	d, err := dataset.NewDataset(movies, tags, ratings, scores)
	require.NoError(t, err)
	return d
}

func assertSymmetric(t *testing.T, m *Matrix) {
	for i := 0; i < m.Size(); i++ {
		for j := 0; j < m.Size(); j++ {
			assert.Equal(t, m.Get(i, j), m.Get(j, i), "%s[%d][%d]", m.Name(), i, j)
			assert.GreaterOrEqual(t, m.Get(i, j), float32(0))
			assert.LessOrEqual(t, m.Get(i, j), float32(1))
		}
	}
}

func TestBuildGenreSimilarity(t *testing.T) {
	m, err := BuildGenreSimilarity(context.Background(), newThreeMovieDataset(t), 1)
	require.NoError(t, err)
	assert.Equal(t, SignalGenre, m.Name())
	assertSymmetric(t, m)
	for i := 0; i < 3; i++ {
		assert.InDelta(t, 1, m.Get(i, i), 1e-6)
		for j := 0; j < 3; j++ {
			if i != j {
				assert.InDelta(t, 0.5, m.Get(i, j), 1e-6)
			}
		}
	}
}

func TestBuildGenreSimilarity_EmptyGenres(t *testing.T) {
	d, err := dataset.NewDataset([]dataset.Movie{
		{Id: 1, Title: "Untitled 1"},
		{Id: 2, Title: "Heat", Genres: []string{"Action", "Crime"}},
		{Id: 3, Title: "Untitled 2", Genres: []string{" "}},
		{Id: 4, Title: "Untitled 3"},
	}, nil, nil, nil)
	require.NoError(t, err)
	m, err := BuildGenreSimilarity(context.Background(), d, 2)
	require.NoError(t, err)
	assertSymmetric(t, m)
	// movies without genres share the placeholder
	assert.InDelta(t, 1, m.Get(0, 3), 1e-6)
	assert.InDelta(t, 1, m.Get(0, 2), 1e-6)
	assert.Zero(t, m.Get(0, 1))
	assert.Zero(t, m.Get(3, 1))

	d, err = dataset.NewDataset([]dataset.Movie{{Id: 1, Title: "A"}, {Id: 2, Title: "B"}}, nil, nil, nil)
	require.NoError(t, err)
	_, err = BuildGenreSimilarity(context.Background(), d, 1)
	assert.True(t, errors.Is(err, errors.NotValid))

	d, err = dataset.NewDataset(nil, nil, nil, nil)
	require.NoError(t, err)
	_, err = BuildGenreSimilarity(context.Background(), d, 1)
	assert.True(t, errors.Is(err, errors.NotValid))
}

func TestBuildTagSimilarity(t *testing.T) {
	d, err := dataset.NewDataset([]dataset.Movie{
		{Id: 1, Title: "Toy Story"},
		{Id: 2, Title: "Toy Story 2"},
		{Id: 3, Title: "Heat"},
		{Id: 4, Title: "Jumanji"},
	}, []dataset.Tag{
		{MovieId: 1, Tag: "Pixar"},
		{MovieId: 1, Tag: "toys"},
		{MovieId: 2, Tag: "pixar"},
		{MovieId: 2, Tag: "Toys "},
		{MovieId: 3, Tag: "heist"},
	}, nil, nil)
	require.NoError(t, err)
	m, err := BuildTagSimilarity(context.Background(), d, 1)
	require.NoError(t, err)
	assert.Equal(t, SignalTag, m.Name())
	assertSymmetric(t, m)
	assert.InDelta(t, 1, m.Get(0, 1), 1e-6)
	assert.Zero(t, m.Get(0, 2))
	assert.Zero(t, m.Get(2, 3))
	assert.InDelta(t, 1, m.Get(3, 3), 1e-6)

	// no tags at all
	m, err = BuildTagSimilarity(context.Background(), newThreeMovieDataset(t), 1)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			assert.InDelta(t, 1, m.Get(i, j), 1e-6)
		}
	}
}

func TestBuildRatingSimilarity(t *testing.T) {
	d, err := dataset.NewDataset([]dataset.Movie{
		{Id: 1, Title: "A"},
		{Id: 2, Title: "B"},
		{Id: 3, Title: "C"},
	}, nil, []dataset.Rating{
		{UserId: 1, MovieId: 1, Rating: 4},
		{UserId: 2, MovieId: 1, Rating: 3},
		{UserId: 1, MovieId: 2, Rating: 4},
		{UserId: 2, MovieId: 2, Rating: 3},
	}, nil)
	require.NoError(t, err)
	m, err := BuildRatingSimilarity(context.Background(), d, 1)
	require.NoError(t, err)
	assert.Equal(t, SignalRating, m.Name())
	assertSymmetric(t, m)
	assert.InDelta(t, 1, m.Get(0, 1), 1e-6)
	// zero vectors are dissimilar to everything, including themselves
	for i := 0; i < 3; i++ {
		assert.Zero(t, m.Get(2, i))
	}
}

func TestBuildGenomeSimilarity(t *testing.T) {
	d, err := dataset.NewDataset([]dataset.Movie{
		{Id: 1, Title: "A"},
		{Id: 2, Title: "B"},
		{Id: 3, Title: "C"},
		{Id: 4, Title: "D"},
	}, nil, nil, []dataset.GenomeScore{
		{MovieId: 1, TagId: 1, Tag: "dark", Relevance: 0.9},
		{MovieId: 1, TagId: 2, Tag: "funny", Relevance: 0.1},
		{MovieId: 2, TagId: 1, Tag: "dark", Relevance: 0.9},
		{MovieId: 2, TagId: 2, Tag: "funny", Relevance: 0.1},
		{MovieId: 3, TagId: 2, Tag: "funny", Relevance: 1},
	})
	require.NoError(t, err)
	m, err := BuildGenomeSimilarity(context.Background(), d, 1)
	require.NoError(t, err)
	assert.Equal(t, SignalGenome, m.Name())
	assertSymmetric(t, m)
	// identical profiles
	assert.InDelta(t, 1, m.Get(0, 1), 1e-6)
	assert.InDelta(t, 0.1/0.9055385, m.Get(0, 2), 1e-5)
	assert.Zero(t, m.Get(3, 0))
	assert.Zero(t, m.Get(3, 3))
}

func TestBuildSimilarities(t *testing.T) {
	d := newFakeDataset(t, 50, 20)
	var progress []string
	sims, err := BuildSimilarities(context.Background(), d, BuildOptions{
		Jobs:         4,
		EnableGenre:  true,
		EnableTag:    true,
		EnableRating: true,
		EnableGenome: true,
		Progress:     func(signal string) { progress = append(progress, signal) },
	})
	require.NoError(t, err)
	assert.Equal(t, []string{SignalGenome, SignalGenre, SignalRating, SignalTag}, sims.Names())
	assert.Equal(t, Signals, progress)
	assert.NoError(t, sims.Validate(d))
	for _, name := range sims.Names() {
		assertSymmetric(t, sims[name])
	}

	// genome is skipped without genome scores
	sims, err = BuildSimilarities(context.Background(), newThreeMovieDataset(t), BuildOptions{
		Jobs:         1,
		EnableGenre:  true,
		EnableGenome: true,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{SignalGenre}, sims.Names())

	// nothing enabled
	_, err = BuildSimilarities(context.Background(), d, BuildOptions{Jobs: 1})
	assert.True(t, errors.Is(err, errors.NotValid))
}

func TestBuildSimilarities_Cancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := BuildSimilarities(ctx, newFakeDataset(t, 10, 5), BuildOptions{Jobs: 2, EnableRating: true})
	assert.ErrorIs(t, err, context.Canceled)
}
