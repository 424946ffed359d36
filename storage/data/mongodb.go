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

	"github.com/juju/errors"
	"github.com/moviesim/moviesim/storage"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoDB stores the dataset in four collections. Tags keep insertion order through _id.
type MongoDB struct {
	storage.TablePrefix
	client *mongo.Client
	dbName string
}

func (db *MongoDB) Init() error {
	ctx := context.Background()
	d := db.client.Database(db.dbName)
	// list collections
	collections, err := d.ListCollectionNames(ctx, bson.M{})
	if err != nil {
		return errors.Trace(err)
	}
	exists := make(map[string]bool, len(collections))
	for _, collectionName := range collections {
		exists[collectionName] = true
	}
	// create collections
	for _, collectionName := range []string{db.MoviesTable(), db.TagsTable(), db.RatingsTable(), db.GenomeScoresTable()} {
		if !exists[collectionName] {
			if err = d.CreateCollection(ctx, collectionName); err != nil {
				return errors.Trace(err)
			}
		}
	}
	// create index
	_, err = d.Collection(db.MoviesTable()).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.M{"movie_id": 1},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return errors.Trace(err)
	}
	_, err = d.Collection(db.RatingsTable()).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "movie_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return errors.Trace(err)
	}
	_, err = d.Collection(db.GenomeScoresTable()).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "movie_id", Value: 1}, {Key: "tag_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return errors.Trace(err)
}

func (db *MongoDB) Ping() error {
	return db.client.Ping(context.Background(), nil)
}

// Close connection to MongoDB.
func (db *MongoDB) Close() error {
	return db.client.Disconnect(context.Background())
}

func (db *MongoDB) Purge() error {
	ctx := context.Background()
	for _, collectionName := range []string{db.MoviesTable(), db.TagsTable(), db.RatingsTable(), db.GenomeScoresTable()} {
		c := db.client.Database(db.dbName).Collection(collectionName)
		if _, err := c.DeleteMany(ctx, bson.M{}); err != nil {
			return errors.Trace(err)
		}
	}
	return nil
}

func (db *MongoDB) BatchInsertMovies(ctx context.Context, movies []Movie) error {
	if len(movies) == 0 {
		return nil
	}
	c := db.client.Database(db.dbName).Collection(db.MoviesTable())
	var models []mongo.WriteModel
	for _, movie := range movies {
		models = append(models, mongo.NewUpdateOneModel().
			SetUpsert(true).
			SetFilter(bson.M{"movie_id": bson.M{"$eq": movie.MovieId}}).
			SetUpdate(bson.M{"$set": movie}))
	}
	_, err := c.BulkWrite(ctx, models)
	return errors.Trace(err)
}

func (db *MongoDB) BatchInsertTags(ctx context.Context, tags []Tag) error {
	if len(tags) == 0 {
		return nil
	}
	c := db.client.Database(db.dbName).Collection(db.TagsTable())
	docs := make([]any, len(tags))
	for i, tag := range tags {
		tag.Timestamp = tag.Timestamp.UTC()
		docs[i] = tag
	}
	_, err := c.InsertMany(ctx, docs, options.InsertMany().SetOrdered(true))
	return errors.Trace(err)
}

func (db *MongoDB) BatchInsertRatings(ctx context.Context, ratings []Rating) error {
	if len(ratings) == 0 {
		return nil
	}
	c := db.client.Database(db.dbName).Collection(db.RatingsTable())
	var models []mongo.WriteModel
	for _, rating := range ratings {
		rating.Timestamp = rating.Timestamp.UTC()
		models = append(models, mongo.NewUpdateOneModel().
			SetUpsert(true).
			SetFilter(bson.M{"user_id": rating.UserId, "movie_id": rating.MovieId}).
			SetUpdate(bson.M{"$set": rating}))
	}
	// ordered writes keep the last rating of a user
	_, err := c.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(true))
	return errors.Trace(err)
}

func (db *MongoDB) BatchInsertGenomeScores(ctx context.Context, scores []GenomeScore) error {
	if len(scores) == 0 {
		return nil
	}
	c := db.client.Database(db.dbName).Collection(db.GenomeScoresTable())
	var models []mongo.WriteModel
	for _, score := range scores {
		models = append(models, mongo.NewUpdateOneModel().
			SetUpsert(true).
			SetFilter(bson.M{"movie_id": score.MovieId, "tag_id": score.TagId}).
			SetUpdate(bson.M{"$set": score}))
	}
	_, err := c.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(true))
	return errors.Trace(err)
}

func (db *MongoDB) GetMovies(ctx context.Context) ([]Movie, error) {
	return find[Movie](ctx, db.client.Database(db.dbName).Collection(db.MoviesTable()), bson.D{{Key: "movie_id", Value: 1}})
}

func (db *MongoDB) GetTags(ctx context.Context) ([]Tag, error) {
	tags, err := find[Tag](ctx, db.client.Database(db.dbName).Collection(db.TagsTable()), bson.D{{Key: "_id", Value: 1}})
	for i := range tags {
		tags[i].Timestamp = tags[i].Timestamp.UTC()
	}
	return tags, err
}

func (db *MongoDB) GetRatings(ctx context.Context) ([]Rating, error) {
	ratings, err := find[Rating](ctx, db.client.Database(db.dbName).Collection(db.RatingsTable()), bson.D{{Key: "user_id", Value: 1}, {Key: "movie_id", Value: 1}})
	for i := range ratings {
		ratings[i].Timestamp = ratings[i].Timestamp.UTC()
	}
	return ratings, err
}

func (db *MongoDB) GetGenomeScores(ctx context.Context) ([]GenomeScore, error) {
	return find[GenomeScore](ctx, db.client.Database(db.dbName).Collection(db.GenomeScoresTable()), bson.D{{Key: "movie_id", Value: 1}, {Key: "tag_id", Value: 1}})
}

func find[T any](ctx context.Context, c *mongo.Collection, sort bson.D) ([]T, error) {
	r, err := c.Find(ctx, bson.M{}, options.Find().SetSort(sort))
	if err != nil {
		return nil, errors.Trace(err)
	}
	defer r.Close(ctx)
	var results []T
	for r.Next(ctx) {
		var result T
		if err = r.Decode(&result); err != nil {
			return nil, errors.Trace(err)
		}
		results = append(results, result)
	}
	return results, errors.Trace(r.Err())
}
