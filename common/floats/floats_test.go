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

package floats

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestZero(t *testing.T) {
	a := []float32{1, 2, 3}
	Zero(a)
	assert.Equal(t, []float32{0, 0, 0}, a)
	m := [][]float32{{1, 2}, {3, 4}}
	MatZero(m)
	assert.Equal(t, [][]float32{{0, 0}, {0, 0}}, m)
}

func TestMulConst(t *testing.T) {
	a := []float32{1, 2, 3, 4}
	MulConst(a, 2)
	assert.Equal(t, []float32{2, 4, 6, 8}, a)
}

func TestMulConstAdd(t *testing.T) {
	a := []float32{1, 2, 3, 4}
	dst := []float32{1, 1, 1, 1}
	MulConstAdd(a, 2, dst)
	assert.Equal(t, []float32{3, 5, 7, 9}, dst)
	assert.Panics(t, func() { MulConstAdd([]float32{1}, 1, nil) })
}

func TestDot(t *testing.T) {
	assert.Equal(t, float32(20), Dot([]float32{1, 2, 3}, []float32{2, 3, 4}))
	assert.Panics(t, func() { Dot([]float32{1}, nil) })
}

func TestNorm(t *testing.T) {
	assert.Equal(t, float32(5), Norm([]float32{3, 4}))
	assert.Zero(t, Norm(nil))
}

func TestClip(t *testing.T) {
	a := []float32{-1, 0.5, 1.5}
	Clip(a, 0, 1)
	assert.Equal(t, []float32{0, 0.5, 1}, a)
}

func TestMax(t *testing.T) {
	assert.Equal(t, float32(3), Max([]float32{1, 3, 2}))
	assert.Panics(t, func() { Max(nil) })
}
