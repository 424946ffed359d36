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
	"slices"
	"strings"
	"time"

	"github.com/juju/errors"
	"github.com/moviesim/moviesim/dataset"
)

// Recommendation is a movie similar to the query movie.
type Recommendation struct {
	MovieId   int64
	Title     string
	Genres    []string
	Score     float32
	AvgRating float32
	Tags      string
}

// Query describes one recommendation request.
type Query struct {
	Title     string
	Weights   Weights
	TopN      int
	Threshold float32
	// Filter is an optional boolean expression, see MovieFilter.
	Filter string
}

// Recommender answers queries over a dataset and its similarity matrices. Both are only read, so
// a Recommender may serve concurrent queries.
type Recommender struct {
	dataset      *dataset.Dataset
	similarities Similarities
}

// NewRecommender checks that every matrix is aligned with the dataset.
func NewRecommender(d *dataset.Dataset, sims Similarities) (*Recommender, error) {
	if err := sims.Validate(d); err != nil {
		return nil, errors.Trace(err)
	}
	return &Recommender{dataset: d, similarities: sims}, nil
}

// Resolve finds the row of a title. A case-insensitive exact match wins over a substring match;
// among several matches the first movie in dataset order is chosen.
func (r *Recommender) Resolve(title string) (int, error) {
	query := strings.ToLower(strings.TrimSpace(title))
	if query == "" {
		return -1, errors.NotFoundf("title %q", title)
	}
	substring := -1
	for i, movie := range r.dataset.GetMovies() {
		candidate := strings.ToLower(movie.Title)
		if candidate == query {
			return i, nil
		}
		if substring < 0 && strings.Contains(candidate, query) {
			substring = i
		}
	}
	if substring < 0 {
		return -1, errors.NotFoundf("title %q", title)
	}
	return substring, nil
}

// Recommend returns up to TopN movies whose blended similarity to the query movie is at least
// Threshold, best first. Ties keep dataset order. The query movie itself is never returned. An
// empty result is not an error.
func (r *Recommender) Recommend(q Query) ([]Recommendation, error) {
	start := time.Now()
	result, err := r.recommend(q)
	switch {
	case errors.Is(err, errors.NotFound):
		RecommendTotal.WithLabelValues(OutcomeNotFound).Inc()
	case err != nil:
		RecommendTotal.WithLabelValues(OutcomeInvalid).Inc()
	case len(result) == 0:
		RecommendTotal.WithLabelValues(OutcomeEmpty).Inc()
	default:
		RecommendTotal.WithLabelValues(OutcomeOK).Inc()
	}
	RecommendSeconds.Observe(time.Since(start).Seconds())
	return result, err
}

func (r *Recommender) recommend(q Query) ([]Recommendation, error) {
	if q.TopN <= 0 {
		return nil, errors.NotValidf("top n %d", q.TopN)
	}
	var filter *MovieFilter
	if q.Filter != "" {
		var err error
		if filter, err = NewMovieFilter(q.Filter); err != nil {
			return nil, errors.Trace(err)
		}
	}
	index, err := r.Resolve(q.Title)
	if err != nil {
		return nil, errors.Trace(err)
	}
	// BlendRow returns a private copy, the shared matrices stay untouched.
	scores, err := BlendRow(r.similarities, q.Weights, index)
	if err != nil {
		return nil, errors.Trace(err)
	}
	scores[index] = 0

	candidates := make([]int, 0, len(scores))
	for i, score := range scores {
		// NaN never passes
		if i == index || !(score >= q.Threshold) {
			continue
		}
		if filter != nil && !filter.Match(r.dataset.GetMovie(i), score) {
			continue
		}
		candidates = append(candidates, i)
	}
	slices.SortStableFunc(candidates, func(a, b int) int {
		switch {
		case scores[a] > scores[b]:
			return -1
		case scores[a] < scores[b]:
			return 1
		default:
			return 0
		}
	})
	if len(candidates) > q.TopN {
		candidates = candidates[:q.TopN]
	}
	recommendations := make([]Recommendation, len(candidates))
	for i, c := range candidates {
		movie := r.dataset.GetMovie(c)
		recommendations[i] = Recommendation{
			MovieId:   movie.Id,
			Title:     movie.Title,
			Genres:    movie.Genres,
			Score:     scores[c],
			AvgRating: movie.AvgRating,
			Tags:      movie.Tags,
		}
	}
	return recommendations, nil
}

// Recommend resolves title in d and returns up to topN similar movies ranked by the weighted blend
// of sims. See Recommender.Recommend.
func Recommend(title string, d *dataset.Dataset, sims Similarities, weights Weights, topN int, threshold float32) ([]Recommendation, error) {
	r, err := NewRecommender(d, sims)
	if err != nil {
		RecommendTotal.WithLabelValues(OutcomeInvalid).Inc()
		return nil, errors.Trace(err)
	}
	return r.Recommend(Query{
		Title:     title,
		Weights:   weights,
		TopN:      topN,
		Threshold: threshold,
	})
}
