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

package data

import (
	"bufio"
	"context"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/juju/errors"
	"github.com/moviesim/moviesim/base/log"
	"go.uber.org/zap"
)

const (
	MoviesFile       = "movies.csv"
	TagsFile         = "tags.csv"
	RatingsFile      = "ratings.csv"
	GenomeScoresFile = "genome-scores.csv"
	GenomeTagsFile   = "genome-tags.csv"

	// NoGenres marks a movie without genres in MovieLens.
	NoGenres = "(no genres listed)"
)

// CSVDatabase reads a MovieLens directory. It is read-only.
type CSVDatabase struct {
	dir string
}

func NewCSVDatabase(dir string) *CSVDatabase {
	return &CSVDatabase{dir: dir}
}

func (db *CSVDatabase) Init() error {
	return nil
}

func (db *CSVDatabase) Ping() error {
	_, err := os.Stat(filepath.Join(db.dir, MoviesFile))
	if os.IsNotExist(err) {
		return errors.NewNotFound(err, filepath.Join(db.dir, MoviesFile))
	}
	return errors.Trace(err)
}

func (db *CSVDatabase) Close() error {
	return nil
}

func (db *CSVDatabase) Purge() error {
	return ErrReadOnly
}

func (db *CSVDatabase) BatchInsertMovies(context.Context, []Movie) error {
	return ErrReadOnly
}

func (db *CSVDatabase) BatchInsertTags(context.Context, []Tag) error {
	return ErrReadOnly
}

func (db *CSVDatabase) BatchInsertRatings(context.Context, []Rating) error {
	return ErrReadOnly
}

func (db *CSVDatabase) BatchInsertGenomeScores(context.Context, []GenomeScore) error {
	return ErrReadOnly
}

// GetMovies reads movies.csv. Movies are returned in file order.
func (db *CSVDatabase) GetMovies(ctx context.Context) ([]Movie, error) {
	var movies []Movie
	err := db.scan(ctx, MoviesFile, true, []string{"movieId", "title", "genres"}, func(record []string) error {
		movieId, err := strconv.ParseInt(record[0], 10, 64)
		if err != nil {
			return errors.Trace(err)
		}
		var genres []string
		if record[2] != NoGenres && record[2] != "" {
			genres = strings.Split(record[2], "|")
		}
		movies = append(movies, Movie{MovieId: movieId, Title: record[1], Genres: genres})
		return nil
	})
	return movies, err
}

func (db *CSVDatabase) GetTags(ctx context.Context) ([]Tag, error) {
	var tags []Tag
	err := db.scan(ctx, TagsFile, false, []string{"userId", "movieId", "tag", "timestamp"}, func(record []string) error {
		userId, movieId, err := parseIds(record[0], record[1])
		if err != nil {
			return errors.Trace(err)
		}
		timestamp, err := parseTimestamp(record[3])
		if err != nil {
			return errors.Trace(err)
		}
		tags = append(tags, Tag{UserId: userId, MovieId: movieId, Tag: record[2], Timestamp: timestamp})
		return nil
	})
	return tags, err
}

func (db *CSVDatabase) GetRatings(ctx context.Context) ([]Rating, error) {
	var ratings []Rating
	err := db.scan(ctx, RatingsFile, false, []string{"userId", "movieId", "rating", "timestamp"}, func(record []string) error {
		userId, movieId, err := parseIds(record[0], record[1])
		if err != nil {
			return errors.Trace(err)
		}
		rating, err := strconv.ParseFloat(record[2], 32)
		if err != nil {
			return errors.Trace(err)
		}
		timestamp, err := parseTimestamp(record[3])
		if err != nil {
			return errors.Trace(err)
		}
		ratings = append(ratings, Rating{UserId: userId, MovieId: movieId, Rating: float32(rating), Timestamp: timestamp})
		return nil
	})
	return ratings, err
}

// GetGenomeScores joins genome-scores.csv with the tag names in genome-tags.csv.
func (db *CSVDatabase) GetGenomeScores(ctx context.Context) ([]GenomeScore, error) {
	names := make(map[int64]string)
	err := db.scan(ctx, GenomeTagsFile, false, []string{"tagId", "tag"}, func(record []string) error {
		tagId, err := strconv.ParseInt(record[0], 10, 64)
		if err != nil {
			return errors.Trace(err)
		}
		names[tagId] = record[1]
		return nil
	})
	if err != nil {
		return nil, errors.Trace(err)
	}
	var scores []GenomeScore
	err = db.scan(ctx, GenomeScoresFile, false, []string{"movieId", "tagId", "relevance"}, func(record []string) error {
		movieId, tagId, err := parseIds(record[0], record[1])
		if err != nil {
			return errors.Trace(err)
		}
		relevance, err := strconv.ParseFloat(record[2], 32)
		if err != nil {
			return errors.Trace(err)
		}
		name, ok := names[tagId]
		if !ok {
			name = strconv.FormatInt(tagId, 10)
		}
		scores = append(scores, GenomeScore{MovieId: movieId, TagId: tagId, Tag: name, Relevance: float32(relevance)})
		return nil
	})
	return scores, err
}

// scan reads a CSV file with a header and passes the named columns of every record to handle. A
// missing optional file yields no records.
func (db *CSVDatabase) scan(ctx context.Context, name string, required bool, columns []string, handle func([]string) error) error {
	path := filepath.Join(db.dir, name)
	file, err := os.Open(path)
	if os.IsNotExist(err) {
		if required {
			return errors.NewNotFound(err, path)
		}
		log.Logger().Info("skip missing dataset file", zap.String("file", path))
		return nil
	} else if err != nil {
		return errors.Trace(err)
	}
	defer file.Close()

	reader := csv.NewReader(bufio.NewReader(file))
	reader.ReuseRecord = true
	header, err := reader.Read()
	if err != nil {
		return errors.Annotatef(err, "read header of %s", path)
	}
	index := make(map[string]int, len(header))
	for i, column := range header {
		index[strings.TrimSpace(strings.TrimPrefix(column, "\ufeff"))] = i
	}
	positions := make([]int, len(columns))
	for i, column := range columns {
		position, ok := index[column]
		if !ok {
			return errors.NotValidf("column %s of %s", column, path)
		}
		positions[i] = position
	}
	fields := make([]string, len(columns))
	for lineNumber := 2; ; lineNumber++ {
		if lineNumber%100000 == 0 && ctx.Err() != nil {
			return errors.Trace(ctx.Err())
		}
		record, err := reader.Read()
		if err == io.EOF {
			break
		} else if err != nil {
			return errors.Annotatef(err, "read %s", path)
		}
		for i, position := range positions {
			fields[i] = record[position]
		}
		if err = handle(fields); err != nil {
			return errors.Annotatef(err, "line %d of %s", lineNumber, path)
		}
	}
	return nil
}

func parseIds(a, b string) (int64, int64, error) {
	x, err := strconv.ParseInt(a, 10, 64)
	if err != nil {
		return 0, 0, errors.Trace(err)
	}
	y, err := strconv.ParseInt(b, 10, 64)
	if err != nil {
		return 0, 0, errors.Trace(err)
	}
	return x, y, nil
}

func parseTimestamp(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	seconds, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}, errors.Trace(err)
	}
	return time.Unix(seconds, 0).UTC(), nil
}
