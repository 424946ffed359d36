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
	"strings"
	"time"

	"github.com/XSAM/otelsql"
	_ "github.com/go-sql-driver/mysql"
	"github.com/juju/errors"
	_ "github.com/lib/pq"
	"github.com/moviesim/moviesim/base/log"
	"github.com/moviesim/moviesim/dataset"
	"github.com/moviesim/moviesim/storage"
	"github.com/samber/lo"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/x/mongo/driver/connstring"
	"go.opentelemetry.io/contrib/instrumentation/go.mongodb.org/mongo-driver/mongo/otelmongo"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	_ "modernc.org/sqlite"
)

// ErrReadOnly is returned when writing to a read-only store.
var ErrReadOnly = errors.NotSupportedf("writing to read-only dataset store")

type Movie struct {
	MovieId int64    `bson:"movie_id"`
	Title   string   `bson:"title"`
	Genres  []string `bson:"genres"`
}

type Tag struct {
	UserId    int64     `bson:"user_id"`
	MovieId   int64     `bson:"movie_id"`
	Tag       string    `bson:"tag"`
	Timestamp time.Time `bson:"timestamp"`
}

type Rating struct {
	UserId    int64     `bson:"user_id"`
	MovieId   int64     `bson:"movie_id"`
	Rating    float32   `bson:"rating"`
	Timestamp time.Time `bson:"timestamp"`
}

type GenomeScore struct {
	MovieId   int64   `bson:"movie_id"`
	TagId     int64   `bson:"tag_id"`
	Tag       string  `bson:"tag"`
	Relevance float32 `bson:"relevance"`
}

// Database stores movies, tags, ratings and genome scores. Movies are returned in ascending order
// of ids, tags in insertion order. Inserting a rating or a genome score for an existing key
// overwrites it.
type Database interface {
	Init() error
	Ping() error
	Close() error
	Purge() error
	BatchInsertMovies(ctx context.Context, movies []Movie) error
	BatchInsertTags(ctx context.Context, tags []Tag) error
	BatchInsertRatings(ctx context.Context, ratings []Rating) error
	BatchInsertGenomeScores(ctx context.Context, scores []GenomeScore) error
	GetMovies(ctx context.Context) ([]Movie, error)
	GetTags(ctx context.Context) ([]Tag, error)
	GetRatings(ctx context.Context) ([]Rating, error)
	GetGenomeScores(ctx context.Context) ([]GenomeScore, error)
}

// Open a dataset store. The scheme of path selects the store.
func Open(path, tablePrefix string) (Database, error) {
	var err error
	if strings.HasPrefix(path, storage.CSVPrefix) {
		return NewCSVDatabase(path[len(storage.CSVPrefix):]), nil
	} else if strings.HasPrefix(path, storage.MySQLPrefix) {
		name := path[len(storage.MySQLPrefix):]
		isolationVarName, err := storage.ProbeMySQLIsolationVariableName(name)
		if err != nil {
			return nil, errors.Trace(err)
		}
		if name, err = storage.AppendMySQLParams(name, map[string]string{
			"sql_mode":       "'ONLY_FULL_GROUP_BY,STRICT_TRANS_TABLES,ERROR_FOR_DIVISION_BY_ZERO,NO_ENGINE_SUBSTITUTION'",
			isolationVarName: "'READ-UNCOMMITTED'",
			"parseTime":      "true",
		}); err != nil {
			return nil, errors.Trace(err)
		}
		database := new(SQLDatabase)
		database.driver = MySQL
		database.TablePrefix = storage.TablePrefix(tablePrefix)
		if database.client, err = otelsql.Open("mysql", name,
			otelsql.WithAttributes(attribute.String("db.system", "mysql")),
			otelsql.WithSpanOptions(otelsql.SpanOptions{DisableErrSkip: true}),
		); err != nil {
			return nil, errors.Trace(err)
		}
		database.gormDB, err = gorm.Open(mysql.New(mysql.Config{Conn: database.client}), storage.NewGORMConfig(tablePrefix))
		if err != nil {
			return nil, errors.Trace(err)
		}
		return database, nil
	} else if strings.HasPrefix(path, storage.PostgresPrefix) || strings.HasPrefix(path, storage.PostgreSQLPrefix) {
		database := new(SQLDatabase)
		database.driver = Postgres
		database.TablePrefix = storage.TablePrefix(tablePrefix)
		if database.client, err = otelsql.Open("postgres", path,
			otelsql.WithAttributes(attribute.String("db.system", "postgresql")),
			otelsql.WithSpanOptions(otelsql.SpanOptions{DisableErrSkip: true}),
		); err != nil {
			return nil, errors.Trace(err)
		}
		database.gormDB, err = gorm.Open(postgres.New(postgres.Config{Conn: database.client}), storage.NewGORMConfig(tablePrefix))
		if err != nil {
			return nil, errors.Trace(err)
		}
		return database, nil
	} else if strings.HasPrefix(path, storage.MongoPrefix) || strings.HasPrefix(path, storage.MongoSrvPrefix) {
		database := new(MongoDB)
		opts := options.Client()
		opts.ApplyURI(path)
		opts.Monitor = otelmongo.NewMonitor()
		if database.client, err = mongo.Connect(context.Background(), opts); err != nil {
			return nil, errors.Trace(err)
		}
		if cs, err := connstring.ParseAndValidate(path); err != nil {
			return nil, errors.Trace(err)
		} else {
			database.dbName = cs.Database
			database.TablePrefix = storage.TablePrefix(tablePrefix)
		}
		return database, nil
	} else if strings.HasPrefix(path, storage.SQLitePrefix) {
		if path, err = storage.AppendURLParams(path, []lo.Tuple2[string, string]{
			{A: "_pragma", B: "busy_timeout(10000)"},
			{A: "_pragma", B: "journal_mode(wal)"},
		}); err != nil {
			return nil, errors.Trace(err)
		}
		name := path[len(storage.SQLitePrefix):]
		database := new(SQLDatabase)
		database.driver = SQLite
		database.TablePrefix = storage.TablePrefix(tablePrefix)
		if database.client, err = otelsql.Open("sqlite", name,
			otelsql.WithAttributes(attribute.String("db.system", "sqlite")),
			otelsql.WithSpanOptions(otelsql.SpanOptions{DisableErrSkip: true}),
		); err != nil {
			return nil, errors.Trace(err)
		}
		database.gormDB, err = gorm.Open(sqlite.Dialector{Conn: database.client}, storage.NewGORMConfig(tablePrefix))
		if err != nil {
			return nil, errors.Trace(err)
		}
		return database, nil
	}
	return nil, errors.NotSupportedf("dataset store %s", log.RedactDBURL(path))
}

// LoadDataset reads everything from a store and builds the dataset.
func LoadDataset(ctx context.Context, db Database) (*dataset.Dataset, error) {
	start := time.Now()
	movies, err := db.GetMovies(ctx)
	if err != nil {
		return nil, errors.Annotate(err, "load movies")
	}
	tags, err := db.GetTags(ctx)
	if err != nil {
		return nil, errors.Annotate(err, "load tags")
	}
	ratings, err := db.GetRatings(ctx)
	if err != nil {
		return nil, errors.Annotate(err, "load ratings")
	}
	scores, err := db.GetGenomeScores(ctx)
	if err != nil {
		return nil, errors.Annotate(err, "load genome scores")
	}
	d, err := dataset.NewDataset(
		lo.Map(movies, func(m Movie, _ int) dataset.Movie {
			return dataset.Movie{Id: m.MovieId, Title: m.Title, Genres: m.Genres}
		}),
		lo.Map(tags, func(t Tag, _ int) dataset.Tag {
			return dataset.Tag{UserId: t.UserId, MovieId: t.MovieId, Tag: t.Tag, Timestamp: t.Timestamp}
		}),
		lo.Map(ratings, func(r Rating, _ int) dataset.Rating {
			return dataset.Rating{UserId: r.UserId, MovieId: r.MovieId, Rating: r.Rating, Timestamp: r.Timestamp}
		}),
		lo.Map(scores, func(s GenomeScore, _ int) dataset.GenomeScore {
			return dataset.GenomeScore{MovieId: s.MovieId, TagId: s.TagId, Tag: s.Tag, Relevance: s.Relevance}
		}),
	)
	if err != nil {
		return nil, errors.Trace(err)
	}
	log.Logger().Info("load dataset",
		zap.Int("n_movies", len(movies)),
		zap.Int("n_tags", len(tags)),
		zap.Int("n_ratings", len(ratings)),
		zap.Int("n_genome_scores", len(scores)),
		zap.Duration("elapsed", time.Since(start)))
	return d, nil
}

// Import copies all records from src to dst in batches. progress receives the number of records
// copied so far.
func Import(ctx context.Context, src, dst Database, batchSize int, progress func(int)) error {
	if batchSize <= 0 {
		return errors.NotValidf("batch size %d", batchSize)
	}
	copied := 0
	report := func(n int) {
		copied += n
		if progress != nil {
			progress(copied)
		}
	}
	movies, err := src.GetMovies(ctx)
	if err != nil {
		return errors.Trace(err)
	}
	for _, chunk := range lo.Chunk(movies, batchSize) {
		if err = dst.BatchInsertMovies(ctx, chunk); err != nil {
			return errors.Trace(err)
		}
		report(len(chunk))
	}
	tags, err := src.GetTags(ctx)
	if err != nil {
		return errors.Trace(err)
	}
	for _, chunk := range lo.Chunk(tags, batchSize) {
		if err = dst.BatchInsertTags(ctx, chunk); err != nil {
			return errors.Trace(err)
		}
		report(len(chunk))
	}
	ratings, err := src.GetRatings(ctx)
	if err != nil {
		return errors.Trace(err)
	}
	for _, chunk := range lo.Chunk(ratings, batchSize) {
		if err = dst.BatchInsertRatings(ctx, chunk); err != nil {
			return errors.Trace(err)
		}
		report(len(chunk))
	}
	scores, err := src.GetGenomeScores(ctx)
	if err != nil {
		return errors.Trace(err)
	}
	for _, chunk := range lo.Chunk(scores, batchSize) {
		if err = dst.BatchInsertGenomeScores(ctx, chunk); err != nil {
			return errors.Trace(err)
		}
		report(len(chunk))
	}
	return nil
}
