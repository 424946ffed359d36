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

	"github.com/juju/errors"
	"github.com/moviesim/moviesim/base/log"
	"github.com/moviesim/moviesim/config"
	"github.com/moviesim/moviesim/storage/data"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var importCommand = &cobra.Command{
	Use:   "import <source>",
	Short: "Import a dataset (e.g. csv://ml-latest-small) into the data store",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		conf := loadConfig(cmd)
		batchSize, _ := cmd.Flags().GetInt("batch-size")
		purge, _ := cmd.Flags().GetBool("purge")
		if err := importDataset(cmd.Context(), conf, args[0], batchSize, purge, os.Stderr); err != nil {
			log.Logger().Fatal("failed to import dataset", zap.Error(err))
		}
	},
}

func init() {
	importCommand.Flags().Int("batch-size", 1000, "number of records per insert")
	importCommand.Flags().Bool("purge", false, "remove existing records before importing")
}

func importDataset(ctx context.Context, conf *config.Config, source string, batchSize int, purge bool, progress io.Writer) error {
	if source == conf.Database.DataStore {
		return errors.NotValidf("import %s into itself", log.RedactDBURL(source))
	}
	src, err := data.Open(source, "")
	if err != nil {
		return errors.Annotatef(err, "open source %s", log.RedactDBURL(source))
	}
	defer src.Close()
	dst, err := data.Open(conf.Database.DataStore, conf.Database.TablePrefix)
	if err != nil {
		return errors.Annotatef(err, "open data store %s", log.RedactDBURL(conf.Database.DataStore))
	}
	defer dst.Close()
	if err = dst.Init(); err != nil {
		return errors.Trace(err)
	}
	if purge {
		if err = dst.Purge(); err != nil {
			return errors.Trace(err)
		}
	}

	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(progress),
		progressbar.OptionSetDescription("Importing records"),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish())
	var total int
	err = data.Import(ctx, src, dst, batchSize, func(n int) {
		total = n
		_ = bar.Set(n)
	})
	if err != nil {
		return errors.Trace(err)
	}
	_ = bar.Finish()
	log.Logger().Info("import dataset",
		zap.String("source", log.RedactDBURL(source)),
		zap.String("data_store", log.RedactDBURL(conf.Database.DataStore)),
		zap.Int("n_records", total))
	return nil
}
