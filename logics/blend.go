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
	"sort"

	"github.com/chewxy/math32"
	"github.com/juju/errors"
	"github.com/moviesim/moviesim/base/log"
	"github.com/moviesim/moviesim/common/floats"
	"github.com/moviesim/moviesim/dataset"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// Similarities are similarity matrices keyed by signal name.
type Similarities map[string]*Matrix

// Names returns signal names in ascending order. Blending always sums signals in this order so
// that results do not depend on map iteration.
func (s Similarities) Names() []string {
	names := lo.Keys(s)
	sort.Strings(names)
	return names
}

// Size returns the common size of all matrices.
func (s Similarities) Size() (int, error) {
	if len(s) == 0 {
		return 0, errors.NotValidf("empty similarities")
	}
	size := -1
	for _, name := range s.Names() {
		m := s[name]
		if m == nil {
			return 0, errors.NotValidf("nil matrix %s", name)
		}
		if size < 0 {
			size = m.Size()
		} else if m.Size() != size {
			return 0, errors.NotValidf("matrix %s is %dx%d but others are %dx%d",
				name, m.Size(), m.Size(), size, size)
		}
	}
	return size, nil
}

// Validate checks that all matrices are aligned with the movie order of a dataset.
func (s Similarities) Validate(d *dataset.Dataset) error {
	if _, err := s.Size(); err != nil {
		return errors.Trace(err)
	}
	for _, name := range s.Names() {
		if err := s[name].Validate(d); err != nil {
			return errors.Trace(err)
		}
	}
	return nil
}

// Weights are blend weights keyed by signal name. Signals without a weight are ignored.
type Weights map[string]float32

// Validate checks that weights are non-negative and finite and that every named signal exists,
// even when its weight is zero.
// Weights are not normalized; a sum far from 1 only produces a warning.
func (w Weights) Validate(sims Similarities) error {
	var sum float32
	for name, weight := range w {
		if math32.IsNaN(weight) || math32.IsInf(weight, 0) || weight < 0 {
			return errors.NotValidf("weight %v of signal %s", weight, name)
		}
		if _, exist := sims[name]; !exist {
			return errors.NotValidf("weight of missing signal %s", name)
		}
		sum += weight
	}
	if math32.Abs(sum-1) > 1e-3 {
		log.Logger().Warn("blend weights do not sum to 1", zap.Float32("sum", sum))
	}
	return nil
}

// Blend returns the weighted sum of all similarity matrices as a new matrix.
func Blend(sims Similarities, weights Weights) (*Matrix, error) {
	n, err := sims.Size()
	if err != nil {
		return nil, errors.Trace(err)
	}
	if err = weights.Validate(sims); err != nil {
		return nil, errors.Trace(err)
	}
	names := sims.Names()
	blended := NewMatrix("blended", sims[names[0]].Ids())
	for i := 0; i < n; i++ {
		blendRow(sims, names, weights, i, blended.data[i])
	}
	return blended, nil
}

// BlendRow returns the i-th row of the weighted sum of all similarity matrices. The returned slice
// is freshly allocated.
func BlendRow(sims Similarities, weights Weights, i int) ([]float32, error) {
	n, err := sims.Size()
	if err != nil {
		return nil, errors.Trace(err)
	}
	if i < 0 || i >= n {
		return nil, errors.NotValidf("row %d of %dx%d matrix", i, n, n)
	}
	if err = weights.Validate(sims); err != nil {
		return nil, errors.Trace(err)
	}
	row := make([]float32, n)
	blendRow(sims, sims.Names(), weights, i, row)
	return row, nil
}

func blendRow(sims Similarities, names []string, weights Weights, i int, dst []float32) {
	floats.Zero(dst)
	for _, name := range names {
		if weight := weights[name]; weight > 0 {
			floats.MulConstAdd(sims[name].data[i], weight, dst)
		}
	}
}
