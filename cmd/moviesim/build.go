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
	"context"
	"io"
	"os"
	"time"

	"github.com/juju/errors"
	"github.com/moviesim/moviesim/base/log"
	"github.com/moviesim/moviesim/config"
	"github.com/moviesim/moviesim/dataset"
	"github.com/moviesim/moviesim/logics"
	"github.com/moviesim/moviesim/storage/blob"
	"github.com/moviesim/moviesim/storage/data"
	"github.com/samber/lo"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var buildCommand = &cobra.Command{
	Use:   "build",
	Short: "Build similarity matrices from the dataset store",
	Run: func(cmd *cobra.Command, args []string) {
		conf := loadConfig(cmd)
		if jobs, _ := cmd.Flags().GetInt("jobs"); jobs > 0 {
			conf.Similarity.Jobs = jobs
		}
		if err := build(cmd.Context(), conf, os.Stderr); err != nil {
			log.Logger().Fatal("failed to build similarity matrices", zap.Error(err))
		}
	},
}

func init() {
	buildCommand.Flags().IntP("jobs", "j", 0, "number of jobs (overrides similarity.jobs)")
}

func loadDataset(ctx context.Context, conf *config.Config) (*dataset.Dataset, error) {
	db, err := data.Open(conf.Database.DataStore, conf.Database.TablePrefix)
	if err != nil {
		return nil, errors.Annotatef(err, "open dataset store %s", log.RedactDBURL(conf.Database.DataStore))
	}
	defer db.Close()
	return data.LoadDataset(ctx, db)
}

// build computes every enabled similarity matrix and writes it to the blob store.
func build(ctx context.Context, conf *config.Config, progress io.Writer) error {
	d, err := loadDataset(ctx, conf)
	if err != nil {
		return errors.Trace(err)
	}
	store, err := blob.Open(conf.Blob)
	if err != nil {
		return errors.Trace(err)
	}

	enabled := lo.Count([]bool{
		conf.Similarity.EnableGenre,
		conf.Similarity.EnableTag,
		conf.Similarity.EnableRating,
		conf.Similarity.EnableGenome && d.CountGenomeTags() > 0,
	}, true)
	bar := progressbar.NewOptions(enabled,
		progressbar.OptionSetWriter(progress),
		progressbar.OptionSetDescription("Building similarity matrices"),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish())
	start := time.Now()
	sims, err := logics.BuildSimilarities(ctx, d, logics.BuildOptions{
		Jobs:         conf.Similarity.Jobs,
		EnableGenre:  conf.Similarity.EnableGenre,
		EnableTag:    conf.Similarity.EnableTag,
		EnableRating: conf.Similarity.EnableRating,
		EnableGenome: conf.Similarity.EnableGenome,
		Progress: func(signal string) {
			_ = bar.Add(1)
		},
	})
	if err != nil {
		return errors.Trace(err)
	}
	_ = bar.Finish()

	for _, name := range sims.Names() {
		if err = logics.SaveMatrix(store, sims[name]); err != nil {
			return errors.Annotatef(err, "save %s similarity", name)
		}
	}
	log.Logger().Info("build similarity matrices",
		zap.Strings("signals", sims.Names()),
		zap.Int("n_movies", d.Count()),
		zap.Duration("elapsed", time.Since(start)))
	return nil
}
