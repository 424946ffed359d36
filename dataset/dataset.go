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

package dataset

import (
	"sort"
	"strings"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/juju/errors"
	"github.com/moviesim/moviesim/base/log"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// Placeholder replaces empty genre and tag documents so that the vectorizer never sees an empty
// document. Movies sharing the placeholder are similar to each other.
const Placeholder = "unknown"

// Movie is a row of every similarity matrix. Tags, AvgRating and NumRatings are derived from the
// tag and rating records when the dataset is built.
type Movie struct {
	Id         int64
	Title      string
	Genres     []string
	Tags       string
	AvgRating  float32
	NumRatings int
}

type Tag struct {
	UserId    int64
	MovieId   int64
	Tag       string
	Timestamp time.Time
}

type Rating struct {
	UserId    int64
	MovieId   int64
	Rating    float32
	Timestamp time.Time
}

// GenomeScore is the relevance of a genome tag to a movie.
type GenomeScore struct {
	MovieId   int64
	TagId     int64
	Tag       string
	Relevance float32
}

// Dataset is the read-only view of movies, tags, ratings and genome scores. The order of movies is
// fixed at construction and defines the row order of all similarity matrices.
type Dataset struct {
	movies []Movie
	index  map[int64]int
	genres mapset.Set[string]

	// sparse movie x user rating rows, columns in ascending order
	userIndex    map[int64]int32
	ratingUsers  [][]int32
	ratingValues [][]float32

	// sparse movie x genome tag relevance rows, columns in ascending order
	genomeDict   *FreqDict
	genomeTags   [][]int32
	genomeValues [][]float32
}

// NewDataset builds a dataset. Movie ids must be unique and titles non-empty. Tags, ratings and
// genome scores referencing unknown movies are skipped.
func NewDataset(movies []Movie, tags []Tag, ratings []Rating, scores []GenomeScore) (*Dataset, error) {
	d := &Dataset{
		movies:     make([]Movie, len(movies)),
		index:      make(map[int64]int, len(movies)),
		genres:     mapset.NewThreadUnsafeSet[string](),
		userIndex:  make(map[int64]int32),
		genomeDict: NewFreqDict(),
	}
	for i, movie := range movies {
		if _, exist := d.index[movie.Id]; exist {
			return nil, errors.NotValidf("duplicate movie id %d", movie.Id)
		}
		if strings.TrimSpace(movie.Title) == "" {
			return nil, errors.NotValidf("empty title of movie %d", movie.Id)
		}
		d.index[movie.Id] = i
		d.movies[i] = Movie{
			Id:     movie.Id,
			Title:  movie.Title,
			Genres: NormalizeGenres(movie.Genres),
		}
		d.genres.Append(d.movies[i].Genres...)
	}
	d.aggregateTags(tags)
	d.aggregateRatings(ratings)
	d.aggregateGenome(scores)
	return d, nil
}

func (d *Dataset) aggregateTags(tags []Tag) {
	docs := make([][]string, len(d.movies))
	ignored := 0
	for _, tag := range tags {
		i, ok := d.index[tag.MovieId]
		if !ok {
			ignored++
			continue
		}
		docs[i] = append(docs[i], NormalizeTag(tag.Tag))
	}
	for i := range docs {
		d.movies[i].Tags = strings.Join(docs[i], " ")
	}
	if ignored > 0 {
		log.Logger().Warn("ignore tags of unknown movies", zap.Int("count", ignored))
	}
}

func (d *Dataset) aggregateRatings(ratings []Rating) {
	rows := make([]map[int32]float32, len(d.movies))
	ignored := 0
	for _, rating := range ratings {
		i, ok := d.index[rating.MovieId]
		if !ok {
			ignored++
			continue
		}
		u, ok := d.userIndex[rating.UserId]
		if !ok {
			u = int32(len(d.userIndex))
			d.userIndex[rating.UserId] = u
		}
		if rows[i] == nil {
			rows[i] = make(map[int32]float32)
		}
		// the last rating of a user wins
		rows[i][u] = rating.Rating
	}
	d.ratingUsers, d.ratingValues = sortRows(rows)
	for i := range d.movies {
		if n := len(d.ratingValues[i]); n > 0 {
			d.movies[i].NumRatings = n
			d.movies[i].AvgRating = lo.Sum(d.ratingValues[i]) / float32(n)
		}
	}
	if ignored > 0 {
		log.Logger().Warn("ignore ratings of unknown movies", zap.Int("count", ignored))
	}
}

func (d *Dataset) aggregateGenome(scores []GenomeScore) {
	rows := make([]map[int32]float32, len(d.movies))
	ignored := 0
	for _, score := range scores {
		i, ok := d.index[score.MovieId]
		if !ok {
			ignored++
			continue
		}
		name := strings.TrimSpace(strings.ToLower(score.Tag))
		if name == "" {
			name = Placeholder
		}
		if rows[i] == nil {
			rows[i] = make(map[int32]float32)
		}
		rows[i][int32(d.genomeDict.Id(name))] = score.Relevance
	}
	d.genomeTags, d.genomeValues = sortRows(rows)
	if ignored > 0 {
		log.Logger().Warn("ignore genome scores of unknown movies", zap.Int("count", ignored))
	}
}

func sortRows(rows []map[int32]float32) ([][]int32, [][]float32) {
	indices := make([][]int32, len(rows))
	values := make([][]float32, len(rows))
	for i, row := range rows {
		indices[i] = lo.Keys(row)
		sort.Slice(indices[i], func(a, b int) bool { return indices[i][a] < indices[i][b] })
		values[i] = make([]float32, len(indices[i]))
		for j, k := range indices[i] {
			values[i][j] = row[k]
		}
	}
	return indices, values
}

// Count returns the number of movies.
func (d *Dataset) Count() int {
	return len(d.movies)
}

// GetMovies returns movies in row order. The slice is shared and must not be modified.
func (d *Dataset) GetMovies() []Movie {
	return d.movies
}

func (d *Dataset) GetMovie(i int) Movie {
	return d.movies[i]
}

// GetIds returns movie ids in row order.
func (d *Dataset) GetIds() []int64 {
	return lo.Map(d.movies, func(m Movie, _ int) int64 { return m.Id })
}

// IndexOf returns the row of a movie.
func (d *Dataset) IndexOf(id int64) (int, bool) {
	i, ok := d.index[id]
	return i, ok
}

// GetGenres returns all distinct genres in ascending order.
func (d *Dataset) GetGenres() []string {
	genres := d.genres.ToSlice()
	sort.Strings(genres)
	return genres
}

// CountUsers returns the number of users that rated at least one movie.
func (d *Dataset) CountUsers() int {
	return len(d.userIndex)
}

// GetMovieRatings returns the ratings of the i-th movie keyed by dense user index in ascending order.
func (d *Dataset) GetMovieRatings(i int) ([]int32, []float32) {
	return d.ratingUsers[i], d.ratingValues[i]
}

// CountGenomeTags returns the number of distinct genome tags.
func (d *Dataset) CountGenomeTags() int {
	return d.genomeDict.Count()
}

// GetGenomeTags returns genome tag names in column order.
func (d *Dataset) GetGenomeTags() []string {
	return d.genomeDict.Strings()
}

// GetMovieGenome returns the genome relevance of the i-th movie keyed by genome tag column.
func (d *Dataset) GetMovieGenome(i int) ([]int32, []float32) {
	return d.genomeTags[i], d.genomeValues[i]
}

// NormalizeTag lowercases and trims a tag. Empty tags become the placeholder.
func NormalizeTag(tag string) string {
	tag = strings.ToLower(strings.TrimSpace(tag))
	if tag == "" {
		return Placeholder
	}
	return tag
}

// NormalizeGenres trims genres, drops empty ones and removes duplicates keeping first occurrence.
func NormalizeGenres(genres []string) []string {
	normalized := make([]string, 0, len(genres))
	for _, genre := range genres {
		if genre = strings.TrimSpace(genre); genre != "" {
			normalized = append(normalized, genre)
		}
	}
	return lo.Uniq(normalized)
}
