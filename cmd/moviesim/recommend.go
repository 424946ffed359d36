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
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/juju/errors"
	"github.com/moviesim/moviesim/base/log"
	"github.com/moviesim/moviesim/config"
	"github.com/moviesim/moviesim/logics"
	"github.com/moviesim/moviesim/storage/blob"
	"github.com/olekukonko/tablewriter"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var recommendCommand = &cobra.Command{
	Use:   "recommend <title>",
	Short: "Recommend movies similar to a title",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		conf := loadConfig(cmd)
		flags := cmd.Flags()
		if flags.Changed("top-n") {
			conf.Recommend.TopN, _ = flags.GetInt("top-n")
		}
		if flags.Changed("threshold") {
			conf.Recommend.Threshold, _ = flags.GetFloat32("threshold")
		}
		if flags.Changed("filter") {
			conf.Recommend.Filter, _ = flags.GetString("filter")
		}
		if err := recommend(cmd.Context(), conf, args[0], cmd.OutOrStdout()); err != nil {
			if errors.Is(err, errors.NotFound) {
				log.Logger().Fatal("movie not found", zap.String("title", args[0]), zap.Error(err))
			}
			log.Logger().Fatal("failed to recommend", zap.Error(err))
		}
	},
}

func init() {
	recommendCommand.Flags().IntP("top-n", "n", 10, "number of recommendations (overrides recommend.top_n)")
	recommendCommand.Flags().Float32P("threshold", "t", 0, "minimal similarity score (overrides recommend.threshold)")
	recommendCommand.Flags().StringP("filter", "f", "", "candidate filter expression, e.g. 'score > 0.2 && movie.AvgRating >= 3'")
}

// loadSimilarities reads the matrices of all weighted signals from the blob store.
func loadSimilarities(store blob.Store, weights logics.Weights) (logics.Similarities, error) {
	sims := make(logics.Similarities)
	for _, name := range logics.Signals {
		if weights[name] <= 0 {
			continue
		}
		m, err := logics.LoadMatrix(store, name)
		if errors.Is(err, errors.NotFound) {
			return nil, errors.Annotatef(err, "%s similarity has not been built", name)
		} else if err != nil {
			return nil, errors.Trace(err)
		}
		sims[name] = m
	}
	if len(sims) == 0 {
		return nil, errors.NotValidf("no positive blend weight")
	}
	return sims, nil
}

func recommend(ctx context.Context, conf *config.Config, title string, out io.Writer) error {
	d, err := loadDataset(ctx, conf)
	if err != nil {
		return errors.Trace(err)
	}
	store, err := blob.Open(conf.Blob)
	if err != nil {
		return errors.Trace(err)
	}
	weights := logics.Weights(conf.Recommend.Weights.Map())
	sims, err := loadSimilarities(store, weights)
	if err != nil {
		return errors.Trace(err)
	}
	recommender, err := logics.NewRecommender(d, sims)
	if err != nil {
		return errors.Trace(err)
	}
	recommendations, err := recommender.Recommend(logics.Query{
		Title:     title,
		Weights:   weights,
		TopN:      conf.Recommend.TopN,
		Threshold: conf.Recommend.Threshold,
		Filter:    conf.Recommend.Filter,
	})
	if err != nil {
		return errors.Trace(err)
	}
	return renderRecommendations(out, recommendations)
}

func renderRecommendations(out io.Writer, recommendations []logics.Recommendation) error {
	if len(recommendations) == 0 {
		_, err := fmt.Fprintln(out, "no recommendations found")
		return errors.Trace(err)
	}
	table := tablewriter.NewWriter(out)
	table.Header("Rank", "Title", "Genres", "Score", "Avg Rating")
	for i, r := range recommendations {
		avgRating := "-"
		if r.AvgRating > 0 {
			avgRating = strconv.FormatFloat(float64(r.AvgRating), 'f', 2, 32)
		}
		if err := table.Append([]string{
			strconv.Itoa(i + 1),
			r.Title,
			strings.Join(lo.Ternary(len(r.Genres) > 0, r.Genres, []string{"-"}), "|"),
			strconv.FormatFloat(float64(r.Score), 'f', 4, 32),
			avgRating,
		}); err != nil {
			return errors.Trace(err)
		}
	}
	return errors.Trace(table.Render())
}
