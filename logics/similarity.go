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
	"strings"
	"time"

	"github.com/juju/errors"
	"github.com/moviesim/moviesim/base/log"
	"github.com/moviesim/moviesim/dataset"
	"go.uber.org/zap"
)

const (
	SignalGenre  = "genre"
	SignalTag    = "tag"
	SignalRating = "rating"
	SignalGenome = "genome"
)

// Signals lists the built-in similarity signals in build order.
var Signals = []string{SignalGenre, SignalTag, SignalRating, SignalGenome}

// BuildOptions selects which similarity matrices are built and how many workers build them.
type BuildOptions struct {
	Jobs         int
	EnableGenre  bool
	EnableTag    bool
	EnableRating bool
	EnableGenome bool
	// Progress is called after each matrix has been built.
	Progress func(signal string)
}

// BuildGenreSimilarity computes the TF-IDF cosine similarity between the genre sets of movies.
func BuildGenreSimilarity(ctx context.Context, d *dataset.Dataset, jobs int) (*Matrix, error) {
	if d.Count() == 0 {
		return nil, errors.NotValidf("genres of empty dataset")
	}
	docs := make([]string, d.Count())
	hasGenres := false
	for i, movie := range d.GetMovies() {
		if len(movie.Genres) > 0 {
			hasGenres = true
			docs[i] = strings.Join(movie.Genres, " ")
		} else {
			docs[i] = dataset.Placeholder
		}
	}
	if !hasGenres {
		return nil, errors.NotValidf("genres of all %d movies are empty", d.Count())
	}
	return buildTextSimilarity(ctx, SignalGenre, d, docs, jobs)
}

// BuildTagSimilarity computes the TF-IDF cosine similarity between the aggregated tags of movies.
// Movies without tags share the placeholder document.
func BuildTagSimilarity(ctx context.Context, d *dataset.Dataset, jobs int) (*Matrix, error) {
	if d.Count() == 0 {
		return nil, errors.NotValidf("tags of empty dataset")
	}
	docs := make([]string, d.Count())
	for i, movie := range d.GetMovies() {
		if movie.Tags != "" {
			docs[i] = movie.Tags
		} else {
			docs[i] = dataset.Placeholder
		}
	}
	return buildTextSimilarity(ctx, SignalTag, d, docs, jobs)
}

func buildTextSimilarity(ctx context.Context, name string, d *dataset.Dataset, docs []string, jobs int) (*Matrix, error) {
	start := time.Now()
	tfidf := NewTFIDF()
	vectors, err := tfidf.FitTransform(docs)
	if err != nil {
		return nil, errors.Annotatef(err, "vectorize %s", name)
	}
	m, err := PairwiseCosine(ctx, name, d.GetIds(), vectors, jobs)
	if err != nil {
		return nil, errors.Trace(err)
	}
	BuildSeconds.WithLabelValues(name).Observe(time.Since(start).Seconds())
	log.Logger().Info("build similarity matrix",
		zap.String("signal", name),
		zap.Int("n_movies", d.Count()),
		zap.Int("n_terms", len(tfidf.Vocabulary())),
		zap.Duration("elapsed", time.Since(start)))
	return m, nil
}

// BuildRatingSimilarity computes the cosine similarity between movie rating vectors, one column
// per user. Movies without ratings are similar to nothing.
func BuildRatingSimilarity(ctx context.Context, d *dataset.Dataset, jobs int) (*Matrix, error) {
	start := time.Now()
	vectors := make([]SparseVector, d.Count())
	for i := range vectors {
		users, ratings := d.GetMovieRatings(i)
		vectors[i] = SparseVector{Indices: users, Values: ratings}
	}
	m, err := PairwiseCosine(ctx, SignalRating, d.GetIds(), vectors, jobs)
	if err != nil {
		return nil, errors.Trace(err)
	}
	BuildSeconds.WithLabelValues(SignalRating).Observe(time.Since(start).Seconds())
	log.Logger().Info("build similarity matrix",
		zap.String("signal", SignalRating),
		zap.Int("n_movies", d.Count()),
		zap.Int("n_users", d.CountUsers()),
		zap.Duration("elapsed", time.Since(start)))
	return m, nil
}

// BuildGenomeSimilarity computes the cosine similarity between genome relevance vectors, one
// column per genome tag. Movies without genome scores are similar to nothing.
func BuildGenomeSimilarity(ctx context.Context, d *dataset.Dataset, jobs int) (*Matrix, error) {
	start := time.Now()
	vectors := make([]SparseVector, d.Count())
	for i := range vectors {
		tags, relevance := d.GetMovieGenome(i)
		vectors[i] = SparseVector{Indices: tags, Values: relevance}
	}
	m, err := PairwiseCosine(ctx, SignalGenome, d.GetIds(), vectors, jobs)
	if err != nil {
		return nil, errors.Trace(err)
	}
	BuildSeconds.WithLabelValues(SignalGenome).Observe(time.Since(start).Seconds())
	log.Logger().Info("build similarity matrix",
		zap.String("signal", SignalGenome),
		zap.Int("n_movies", d.Count()),
		zap.Int("n_tags", d.CountGenomeTags()),
		zap.Duration("elapsed", time.Since(start)))
	return m, nil
}

// BuildSimilarities builds every enabled similarity matrix. The genome matrix is skipped when the
// dataset has no genome scores.
func BuildSimilarities(ctx context.Context, d *dataset.Dataset, opts BuildOptions) (Similarities, error) {
	builders := []struct {
		name    string
		enabled bool
		build   func(context.Context, *dataset.Dataset, int) (*Matrix, error)
	}{
		{SignalGenre, opts.EnableGenre, BuildGenreSimilarity},
		{SignalTag, opts.EnableTag, BuildTagSimilarity},
		{SignalRating, opts.EnableRating, BuildRatingSimilarity},
		{SignalGenome, opts.EnableGenome && d.CountGenomeTags() > 0, BuildGenomeSimilarity},
	}
	sims := make(Similarities)
	for _, builder := range builders {
		if !builder.enabled {
			continue
		}
		m, err := builder.build(ctx, d, opts.Jobs)
		if err != nil {
			return nil, errors.Trace(err)
		}
		sims[builder.name] = m
		if opts.Progress != nil {
			opts.Progress(builder.name)
		}
	}
	if len(sims) == 0 {
		return nil, errors.NotValidf("no similarity signal enabled")
	}
	return sims, nil
}
