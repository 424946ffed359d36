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

package config

import (
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/juju/errors"
	"github.com/spf13/viper"
)

const (
	BlobPOSIX = "posix"
	BlobS3    = "s3"
	BlobGCS   = "gcs"
	BlobAzure = "azure"
)

// Config is the configuration for moviesim.
type Config struct {
	Database   DatabaseConfig   `mapstructure:"database"`
	Blob       BlobConfig       `mapstructure:"blob"`
	Similarity SimilarityConfig `mapstructure:"similarity"`
	Recommend  RecommendConfig  `mapstructure:"recommend"`
}

// DatabaseConfig is the configuration for the dataset store.
type DatabaseConfig struct {
	DataStore   string `mapstructure:"data_store" validate:"required,startswith=csv://|startswith=sqlite://|startswith=mysql://|startswith=postgres://|startswith=postgresql://|startswith=mongodb://|startswith=mongodb+srv://"`
	TablePrefix string `mapstructure:"table_prefix"`
}

// BlobConfig is the configuration for the store of similarity matrices.
type BlobConfig struct {
	Type  string          `mapstructure:"type" validate:"oneof=posix s3 gcs azure"`
	Dir   string          `mapstructure:"dir" validate:"required_if=Type posix"`
	S3    S3Config        `mapstructure:"s3"`
	GCS   GCSConfig       `mapstructure:"gcs"`
	Azure AzureBlobConfig `mapstructure:"azure"`
}

type S3Config struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	Bucket          string `mapstructure:"bucket"`
	Prefix          string `mapstructure:"prefix"`
	UseSSL          bool   `mapstructure:"use_ssl"`
}

type GCSConfig struct {
	Bucket          string `mapstructure:"bucket"`
	Prefix          string `mapstructure:"prefix"`
	CredentialsFile string `mapstructure:"credentials_file"`
}

type AzureBlobConfig struct {
	AccountName      string `mapstructure:"account_name"`
	AccountKey       string `mapstructure:"account_key"`
	Endpoint         string `mapstructure:"endpoint"`
	ConnectionString string `mapstructure:"connection_string"`
	Container        string `mapstructure:"container"`
	Prefix           string `mapstructure:"prefix"`
}

// SimilarityConfig selects the similarity matrices to build.
type SimilarityConfig struct {
	Jobs         int  `mapstructure:"jobs" validate:"gte=1"`
	EnableGenre  bool `mapstructure:"enable_genre"`
	EnableTag    bool `mapstructure:"enable_tag"`
	EnableRating bool `mapstructure:"enable_rating"`
	EnableGenome bool `mapstructure:"enable_genome"`
}

type RecommendConfig struct {
	TopN      int           `mapstructure:"top_n" validate:"gt=0"`
	Threshold float32       `mapstructure:"threshold" validate:"gte=0"`
	Filter    string        `mapstructure:"filter"`
	Weights   WeightsConfig `mapstructure:"weights"`
}

// WeightsConfig holds the weight of each similarity signal. Weights are not normalized.
type WeightsConfig struct {
	Genre  float32 `mapstructure:"genre" validate:"gte=0"`
	Tag    float32 `mapstructure:"tag" validate:"gte=0"`
	Rating float32 `mapstructure:"rating" validate:"gte=0"`
	Genome float32 `mapstructure:"genome" validate:"gte=0"`
}

// Map returns weights keyed by signal name. Zero weights are omitted.
func (w WeightsConfig) Map() map[string]float32 {
	weights := make(map[string]float32)
	for name, weight := range map[string]float32{
		"genre":  w.Genre,
		"tag":    w.Tag,
		"rating": w.Rating,
		"genome": w.Genome,
	} {
		if weight != 0 {
			weights[name] = weight
		}
	}
	return weights
}

func GetDefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			DataStore: "csv://ml-latest-small",
		},
		Blob: BlobConfig{
			Type: BlobPOSIX,
			Dir:  "matrices",
		},
		Similarity: SimilarityConfig{
			Jobs:         1,
			EnableGenre:  true,
			EnableTag:    true,
			EnableRating: true,
			EnableGenome: true,
		},
		Recommend: RecommendConfig{
			TopN:      10,
			Threshold: 0,
			Weights: WeightsConfig{
				Genre:  0.4,
				Tag:    0.3,
				Rating: 0.3,
			},
		},
	}
}

func setDefault() {
	defaultConfig := GetDefaultConfig()
	// [database]
	viper.SetDefault("database.data_store", defaultConfig.Database.DataStore)
	viper.SetDefault("database.table_prefix", defaultConfig.Database.TablePrefix)
	// [blob]
	viper.SetDefault("blob.type", defaultConfig.Blob.Type)
	viper.SetDefault("blob.dir", defaultConfig.Blob.Dir)
	viper.SetDefault("blob.s3.endpoint", defaultConfig.Blob.S3.Endpoint)
	viper.SetDefault("blob.s3.access_key_id", defaultConfig.Blob.S3.AccessKeyID)
	viper.SetDefault("blob.s3.secret_access_key", defaultConfig.Blob.S3.SecretAccessKey)
	viper.SetDefault("blob.s3.bucket", defaultConfig.Blob.S3.Bucket)
	viper.SetDefault("blob.s3.prefix", defaultConfig.Blob.S3.Prefix)
	viper.SetDefault("blob.s3.use_ssl", defaultConfig.Blob.S3.UseSSL)
	viper.SetDefault("blob.gcs.bucket", defaultConfig.Blob.GCS.Bucket)
	viper.SetDefault("blob.gcs.prefix", defaultConfig.Blob.GCS.Prefix)
	viper.SetDefault("blob.gcs.credentials_file", defaultConfig.Blob.GCS.CredentialsFile)
	viper.SetDefault("blob.azure.account_name", defaultConfig.Blob.Azure.AccountName)
	viper.SetDefault("blob.azure.account_key", defaultConfig.Blob.Azure.AccountKey)
	viper.SetDefault("blob.azure.endpoint", defaultConfig.Blob.Azure.Endpoint)
	viper.SetDefault("blob.azure.connection_string", defaultConfig.Blob.Azure.ConnectionString)
	viper.SetDefault("blob.azure.container", defaultConfig.Blob.Azure.Container)
	viper.SetDefault("blob.azure.prefix", defaultConfig.Blob.Azure.Prefix)
	// [similarity]
	viper.SetDefault("similarity.jobs", defaultConfig.Similarity.Jobs)
	viper.SetDefault("similarity.enable_genre", defaultConfig.Similarity.EnableGenre)
	viper.SetDefault("similarity.enable_tag", defaultConfig.Similarity.EnableTag)
	viper.SetDefault("similarity.enable_rating", defaultConfig.Similarity.EnableRating)
	viper.SetDefault("similarity.enable_genome", defaultConfig.Similarity.EnableGenome)
	// [recommend]
	viper.SetDefault("recommend.top_n", defaultConfig.Recommend.TopN)
	viper.SetDefault("recommend.threshold", defaultConfig.Recommend.Threshold)
	viper.SetDefault("recommend.filter", defaultConfig.Recommend.Filter)
	viper.SetDefault("recommend.weights.genre", defaultConfig.Recommend.Weights.Genre)
	viper.SetDefault("recommend.weights.tag", defaultConfig.Recommend.Weights.Tag)
	viper.SetDefault("recommend.weights.rating", defaultConfig.Recommend.Weights.Rating)
	viper.SetDefault("recommend.weights.genome", defaultConfig.Recommend.Weights.Genome)
}

type configBinding struct {
	key string
	env string
}

// LoadConfig loads configuration from a TOML file. Defaults fill missing keys and environment
// variables override both. An empty path loads defaults and environment variables only.
func LoadConfig(path string) (*Config, error) {
	viper.Reset()
	setDefault()

	bindings := []configBinding{
		{"database.data_store", "MOVIESIM_DATA_STORE"},
		{"database.table_prefix", "MOVIESIM_TABLE_PREFIX"},
		{"blob.type", "MOVIESIM_BLOB_TYPE"},
		{"blob.dir", "MOVIESIM_BLOB_DIR"},
		{"blob.s3.endpoint", "S3_ENDPOINT"},
		{"blob.s3.access_key_id", "S3_ACCESS_KEY_ID"},
		{"blob.s3.secret_access_key", "S3_SECRET_ACCESS_KEY"},
		{"blob.gcs.credentials_file", "GOOGLE_APPLICATION_CREDENTIALS"},
		{"blob.azure.account_name", "AZURE_STORAGE_ACCOUNT"},
		{"blob.azure.account_key", "AZURE_STORAGE_KEY"},
		{"blob.azure.connection_string", "AZURE_STORAGE_CONNECTION_STRING"},
		{"similarity.jobs", "MOVIESIM_JOBS"},
	}
	for _, binding := range bindings {
		if err := viper.BindEnv(binding.key, binding.env); err != nil {
			return nil, errors.Trace(err)
		}
	}
	// the remaining keys follow MOVIESIM_<SECTION>_<KEY>
	viper.SetEnvPrefix("MOVIESIM")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if path != "" {
		viper.SetConfigType("toml")
		viper.SetConfigFile(path)
		if err := viper.ReadInConfig(); err != nil {
			return nil, errors.Annotatef(err, "read config %s", path)
		}
	}
	var conf Config
	if err := viper.Unmarshal(&conf, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))); err != nil {
		return nil, errors.Trace(err)
	}
	if err := conf.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	return &conf, nil
}

// Validate checks the configuration. All failures are reported as errors.NotValid.
func (config *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(config); err != nil {
		return errors.NewNotValid(err, "invalid config")
	}
	return nil
}
