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
	"context"

	"github.com/juju/errors"
	"github.com/moviesim/moviesim/common/floats"
	"github.com/moviesim/moviesim/common/parallel"
)

type posting struct {
	row   int32
	value float32
}

// PairwiseCosine computes the cosine similarity between every pair of vectors and stores it in a
// new matrix. Zero vectors are similar to nothing, including themselves. Results are clipped to
// [0, 1]. Rows are computed by up to jobs workers.
func PairwiseCosine(ctx context.Context, name string, ids []int64, vectors []SparseVector, jobs int) (*Matrix, error) {
	if len(ids) != len(vectors) {
		return nil, errors.NotValidf("%d ids for %d vectors", len(ids), len(vectors))
	}
	n := len(vectors)
	normalized := make([]SparseVector, n)
	numColumns := 0
	for i, v := range vectors {
		normalized[i] = v.Normalized()
		for _, c := range v.Indices {
			numColumns = max(numColumns, int(c)+1)
		}
	}
	// inverted index from column to rows in ascending order
	postings := make([][]posting, numColumns)
	for i, v := range normalized {
		for k, c := range v.Indices {
			if v.Values[k] != 0 {
				postings[c] = append(postings[c], posting{row: int32(i), value: v.Values[k]})
			}
		}
	}

	m := NewMatrix(name, ids)
	if jobs < 1 {
		jobs = 1
	}
	scratch := make([][]float32, jobs)
	for i := range scratch {
		scratch[i] = make([]float32, n)
	}
	err := parallel.Parallel(ctx, n, jobs, func(workerId, i int) error {
		buf := scratch[workerId]
		floats.Zero(buf)
		// Shared columns are visited in ascending order for both (i, j) and (j, i), so the
		// accumulated sums are bit-identical and the matrix is exactly symmetric.
		v := normalized[i]
		for k, c := range v.Indices {
			for _, p := range postings[c] {
				buf[p.row] += v.Values[k] * p.value
			}
		}
		floats.Clip(buf, 0, 1)
		copy(m.data[i], buf)
		return nil
	})
	if err != nil {
		return nil, errors.Trace(err)
	}
	return m, nil
}
