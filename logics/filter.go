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
	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/juju/errors"
	"github.com/moviesim/moviesim/base/log"
	"github.com/moviesim/moviesim/dataset"
	"go.uber.org/zap"
)

// MovieFilter keeps candidates for which a boolean expression holds. The expression sees the
// candidate as `movie` and its blended similarity as `score`, e.g.
//
//	movie.AvgRating >= 3.5 && "Comedy" in movie.Genres
type MovieFilter struct {
	expression string
	program    *vm.Program
}

func NewMovieFilter(expression string) (*MovieFilter, error) {
	program, err := expr.Compile(expression, expr.Env(map[string]any{
		"movie": dataset.Movie{},
		"score": float32(0),
	}), expr.AsBool())
	if err != nil {
		return nil, errors.NewNotValid(err, "compile filter")
	}
	return &MovieFilter{expression: expression, program: program}, nil
}

func (f *MovieFilter) String() string {
	return f.expression
}

// Match evaluates the filter. Evaluation errors reject the candidate.
func (f *MovieFilter) Match(movie dataset.Movie, score float32) bool {
	result, err := expr.Run(f.program, map[string]any{
		"movie": movie,
		"score": score,
	})
	if err != nil {
		log.Logger().Error("evaluate filter function",
			zap.String("filter", f.expression), zap.Int64("movie_id", movie.Id), zap.Error(err))
		return false
	}
	return result.(bool)
}
