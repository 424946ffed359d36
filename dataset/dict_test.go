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

package dataset

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFreqDict(t *testing.T) {
	dict := NewFreqDict()
	assert.Equal(t, 0, dict.Id("action"))
	assert.Equal(t, 1, dict.Id("comedy"))
	assert.Equal(t, 1, dict.Id("comedy"))
	assert.Equal(t, 2, dict.Id("drama"))
	assert.Equal(t, 2, dict.Id("drama"))
	assert.Equal(t, 2, dict.Id("drama"))
	assert.Equal(t, 3, dict.Count())
	assert.Equal(t, 1, dict.Freq(0))
	assert.Equal(t, 2, dict.Freq(1))
	assert.Equal(t, 3, dict.Freq(2))
	assert.Equal(t, 0, dict.Freq(3))
	assert.Equal(t, []string{"action", "comedy", "drama"}, dict.Strings())

	s, ok := dict.String(1)
	assert.True(t, ok)
	assert.Equal(t, "comedy", s)
	_, ok = dict.String(3)
	assert.False(t, ok)
}

func TestFreqDict_NotCount(t *testing.T) {
	dict := NewFreqDict()
	assert.Equal(t, 0, dict.NotCount("horror"))
	assert.Equal(t, 0, dict.Freq(0))
	assert.Equal(t, 0, dict.Id("horror"))
	assert.Equal(t, 1, dict.Freq(0))

	id, ok := dict.Lookup("horror")
	assert.True(t, ok)
	assert.Equal(t, 0, id)
	_, ok = dict.Lookup("western")
	assert.False(t, ok)
}
