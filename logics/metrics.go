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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	OutcomeOK       = "ok"
	OutcomeEmpty    = "empty"
	OutcomeNotFound = "not_found"
	OutcomeInvalid  = "invalid"
)

var (
	BuildSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "moviesim",
		Subsystem: "similarity",
		Name:      "build_seconds",
		Buckets:   prometheus.ExponentialBuckets(0.01, 4, 10),
	}, []string{"signal"})
	RecommendTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "moviesim",
		Subsystem: "recommend",
		Name:      "queries_total",
	}, []string{"outcome"})
	RecommendSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "moviesim",
		Subsystem: "recommend",
		Name:      "query_seconds",
	})
)
