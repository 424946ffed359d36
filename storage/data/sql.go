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
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/juju/errors"
	"github.com/moviesim/moviesim/storage"
	"github.com/samber/lo"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SQLDriver int

const (
	MySQL SQLDriver = iota
	Postgres
	SQLite
)

const genreSeparator = "|"

type SQLMovie struct {
	MovieId int64  `gorm:"column:movie_id;primaryKey;autoIncrement:false"`
	Title   string `gorm:"column:title;type:text not null"`
	Genres  string `gorm:"column:genres;type:text not null"`
}

type SQLTag struct {
	Id        int64     `gorm:"column:id;primaryKey;autoIncrement"`
	UserId    int64     `gorm:"column:user_id;not null"`
	MovieId   int64     `gorm:"column:movie_id;not null;index"`
	Tag       string    `gorm:"column:tag;type:text not null"`
	Timestamp time.Time `gorm:"column:time_stamp;not null"`
}

type SQLRating struct {
	UserId    int64     `gorm:"column:user_id;primaryKey;autoIncrement:false"`
	MovieId   int64     `gorm:"column:movie_id;primaryKey;autoIncrement:false;index"`
	Rating    float32   `gorm:"column:rating;not null"`
	Timestamp time.Time `gorm:"column:time_stamp;not null"`
}

type SQLGenomeScore struct {
	MovieId   int64   `gorm:"column:movie_id;primaryKey;autoIncrement:false"`
	TagId     int64   `gorm:"column:tag_id;primaryKey;autoIncrement:false"`
	Tag       string  `gorm:"column:tag;type:text not null"`
	Relevance float32 `gorm:"column:relevance;not null"`
}

// SQLDatabase stores the dataset in MySQL, Postgres or SQLite.
type SQLDatabase struct {
	storage.TablePrefix
	gormDB *gorm.DB
	client *sql.DB
	driver SQLDriver
}

func (d *SQLDatabase) Init() error {
	db := d.gormDB
	if d.driver == MySQL {
		db = db.Set("gorm:table_options", "ENGINE=InnoDB")
	}
	if err := db.AutoMigrate(SQLMovie{}, SQLTag{}, SQLRating{}, SQLGenomeScore{}); err != nil {
		return errors.Trace(err)
	}
	return nil
}

func (d *SQLDatabase) Ping() error {
	return d.client.Ping()
}

func (d *SQLDatabase) Close() error {
	return d.client.Close()
}

func (d *SQLDatabase) Purge() error {
	for _, table := range []string{d.MoviesTable(), d.TagsTable(), d.RatingsTable(), d.GenomeScoresTable()} {
		if err := d.gormDB.Exec("DELETE FROM " + table).Error; err != nil {
			return errors.Trace(err)
		}
	}
	return nil
}

func (d *SQLDatabase) BatchInsertMovies(ctx context.Context, movies []Movie) error {
	if len(movies) == 0 {
		return nil
	}
	rows := lo.Map(movies, func(movie Movie, _ int) SQLMovie {
		return SQLMovie{
			MovieId: movie.MovieId,
			Title:   movie.Title,
			Genres:  strings.Join(movie.Genres, genreSeparator),
		}
	})
	err := d.gormDB.WithContext(ctx).Table(d.MoviesTable()).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "movie_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"title", "genres"}),
	}).Create(&rows).Error
	return errors.Trace(err)
}

func (d *SQLDatabase) BatchInsertTags(ctx context.Context, tags []Tag) error {
	if len(tags) == 0 {
		return nil
	}
	rows := lo.Map(tags, func(tag Tag, _ int) SQLTag {
		return SQLTag{
			UserId:    tag.UserId,
			MovieId:   tag.MovieId,
			Tag:       tag.Tag,
			Timestamp: tag.Timestamp.UTC(),
		}
	})
	return errors.Trace(d.gormDB.WithContext(ctx).Table(d.TagsTable()).Create(&rows).Error)
}

func (d *SQLDatabase) BatchInsertRatings(ctx context.Context, ratings []Rating) error {
	if len(ratings) == 0 {
		return nil
	}
	// the last rating of a user in a batch wins
	latest := make(map[lo.Tuple2[int64, int64]]int, len(ratings))
	var rows []SQLRating
	for _, rating := range ratings {
		key := lo.T2(rating.UserId, rating.MovieId)
		row := SQLRating{
			UserId:    rating.UserId,
			MovieId:   rating.MovieId,
			Rating:    rating.Rating,
			Timestamp: rating.Timestamp.UTC(),
		}
		if i, exist := latest[key]; exist {
			rows[i] = row
		} else {
			latest[key] = len(rows)
			rows = append(rows, row)
		}
	}
	err := d.gormDB.WithContext(ctx).Table(d.RatingsTable()).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "movie_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"rating", "time_stamp"}),
	}).Create(&rows).Error
	return errors.Trace(err)
}

func (d *SQLDatabase) BatchInsertGenomeScores(ctx context.Context, scores []GenomeScore) error {
	if len(scores) == 0 {
		return nil
	}
	latest := make(map[lo.Tuple2[int64, int64]]int, len(scores))
	var rows []SQLGenomeScore
	for _, score := range scores {
		key := lo.T2(score.MovieId, score.TagId)
		row := SQLGenomeScore{
			MovieId:   score.MovieId,
			TagId:     score.TagId,
			Tag:       score.Tag,
			Relevance: score.Relevance,
		}
		if i, exist := latest[key]; exist {
			rows[i] = row
		} else {
			latest[key] = len(rows)
			rows = append(rows, row)
		}
	}
	err := d.gormDB.WithContext(ctx).Table(d.GenomeScoresTable()).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "movie_id"}, {Name: "tag_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"tag", "relevance"}),
	}).Create(&rows).Error
	return errors.Trace(err)
}

func (d *SQLDatabase) GetMovies(ctx context.Context) ([]Movie, error) {
	var rows []SQLMovie
	if err := d.gormDB.WithContext(ctx).Table(d.MoviesTable()).Order("movie_id").Find(&rows).Error; err != nil {
		return nil, errors.Trace(err)
	}
	return lo.Map(rows, func(row SQLMovie, _ int) Movie {
		var genres []string
		if row.Genres != "" {
			genres = strings.Split(row.Genres, genreSeparator)
		}
		return Movie{MovieId: row.MovieId, Title: row.Title, Genres: genres}
	}), nil
}

func (d *SQLDatabase) GetTags(ctx context.Context) ([]Tag, error) {
	var rows []SQLTag
	if err := d.gormDB.WithContext(ctx).Table(d.TagsTable()).Order("id").Find(&rows).Error; err != nil {
		return nil, errors.Trace(err)
	}
	return lo.Map(rows, func(row SQLTag, _ int) Tag {
		return Tag{UserId: row.UserId, MovieId: row.MovieId, Tag: row.Tag, Timestamp: row.Timestamp.UTC()}
	}), nil
}

func (d *SQLDatabase) GetRatings(ctx context.Context) ([]Rating, error) {
	var rows []SQLRating
	if err := d.gormDB.WithContext(ctx).Table(d.RatingsTable()).Order("user_id, movie_id").Find(&rows).Error; err != nil {
		return nil, errors.Trace(err)
	}
	return lo.Map(rows, func(row SQLRating, _ int) Rating {
		return Rating{UserId: row.UserId, MovieId: row.MovieId, Rating: row.Rating, Timestamp: row.Timestamp.UTC()}
	}), nil
}

func (d *SQLDatabase) GetGenomeScores(ctx context.Context) ([]GenomeScore, error) {
	var rows []SQLGenomeScore
	if err := d.gormDB.WithContext(ctx).Table(d.GenomeScoresTable()).Order("movie_id, tag_id").Find(&rows).Error; err != nil {
		return nil, errors.Trace(err)
	}
	return lo.Map(rows, func(row SQLGenomeScore, _ int) GenomeScore {
		return GenomeScore{MovieId: row.MovieId, TagId: row.TagId, Tag: row.Tag, Relevance: row.Relevance}
	}), nil
}
