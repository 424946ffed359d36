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
	"math/rand"
	"testing"

	"github.com/chewxy/math32"
	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func randomVectors(n, dim int, density float64) []SparseVector {
	rng := rand.New(rand.NewSource(42))
	vectors := make([]SparseVector, n)
	for i := range vectors {
		for j := 0; j < dim; j++ {
			if rng.Float64() < density {
				vectors[i].Indices = append(vectors[i].Indices, int32(j))
				vectors[i].Values = append(vectors[i].Values, rng.Float32()*5)
			}
		}
	}
	return vectors
}

func TestPairwiseCosine(t *testing.T) {
	vectors := randomVectors(50, 30, 0.2)
	// a zero vector
	vectors[7] = SparseVector{}
	ids := make([]int64, len(vectors))
	for i := range ids {
		ids[i] = int64(i + 1)
	}
	m, err := PairwiseCosine(context.Background(), "test", ids, vectors, 4)
	require.NoError(t, err)
	assert.Equal(t, "test", m.Name())
	assert.Equal(t, len(vectors), m.Size())
	assert.Equal(t, ids, m.Ids())

	for i := range vectors {
		for j := range vectors {
			// exact symmetry
			assert.Equal(t, m.Get(i, j), m.Get(j, i))
			assert.GreaterOrEqual(t, m.Get(i, j), float32(0))
			assert.LessOrEqual(t, m.Get(i, j), float32(1))
			assert.False(t, math32.IsNaN(m.Get(i, j)))
			if vectors[i].Norm() == 0 || vectors[j].Norm() == 0 {
				assert.Zero(t, m.Get(i, j))
				continue
			}
			expected := vectors[i].Dot(vectors[j]) / vectors[i].Norm() / vectors[j].Norm()
			assert.InDelta(t, expected, m.Get(i, j), 1e-5)
		}
		if vectors[i].Norm() > 0 {
			assert.InDelta(t, 1, m.Get(i, i), 1e-5)
		}
	}
	assert.Zero(t, m.Get(7, 7))

	// the result does not depend on the number of jobs
	sequential, err := PairwiseCosine(context.Background(), "test", ids, vectors, 1)
	require.NoError(t, err)
	assert.Equal(t, sequential.data, m.data)
}

func TestPairwiseCosine_Invalid(t *testing.T) {
	_, err := PairwiseCosine(context.Background(), "test", []int64{1}, randomVectors(2, 3, 1), 1)
	assert.True(t, errors.Is(err, errors.NotValid))
}

func TestPairwiseCosine_Cancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	vectors := randomVectors(100, 10, 0.5)
	_, err := PairwiseCosine(ctx, "test", make([]int64, len(vectors)), vectors, 2)
	assert.ErrorIs(t, err, context.Canceled)
}
