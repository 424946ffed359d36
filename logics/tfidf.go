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
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/chewxy/math32"
	"github.com/juju/errors"
	"github.com/moviesim/moviesim/dataset"
	"github.com/samber/lo"
)

// SparseVector is a vector stored as ascending column indices and their values.
type SparseVector struct {
	Indices []int32
	Values  []float32
}

// Norm returns the L2 norm of the vector.
func (v SparseVector) Norm() float32 {
	var sum float32
	for _, value := range v.Values {
		sum += value * value
	}
	return math32.Sqrt(sum)
}

// Normalized returns a unit length copy of the vector. A zero vector stays zero.
func (v SparseVector) Normalized() SparseVector {
	norm := v.Norm()
	values := make([]float32, len(v.Values))
	if norm > 0 {
		for i, value := range v.Values {
			values[i] = value / norm
		}
	}
	return SparseVector{Indices: v.Indices, Values: values}
}

// Dot computes the dot product of two sparse vectors by merging their indices.
func (v SparseVector) Dot(w SparseVector) (ret float32) {
	i, j := 0, 0
	for i < len(v.Indices) && j < len(w.Indices) {
		switch {
		case v.Indices[i] < w.Indices[j]:
			i++
		case v.Indices[i] > w.Indices[j]:
			j++
		default:
			ret += v.Values[i] * w.Values[j]
			i++
			j++
		}
	}
	return
}

// Tokenize lowercases a document and splits it at every rune that is neither a letter nor a digit.
// Tokens shorter than two runes are dropped.
func Tokenize(doc string) []string {
	fields := strings.FieldsFunc(strings.ToLower(doc), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
	})
	return lo.Filter(fields, func(token string, _ int) bool {
		return utf8.RuneCountInString(token) >= 2
	})
}

// TFIDF turns documents into L2-normalized term vectors weighted by
//
//	tf(t, d) * (ln((1 + n) / (1 + df(t))) + 1)
//
// n is the number of documents and df(t) the number of documents containing t.
type TFIDF struct {
	vocabulary *dataset.FreqDict
	idf        []float32
}

func NewTFIDF() *TFIDF {
	return &TFIDF{vocabulary: dataset.NewFreqDict()}
}

// FitTransform learns the vocabulary and idf of docs and returns one vector per document. Documents
// without any token are replaced by the placeholder document.
func (t *TFIDF) FitTransform(docs []string) ([]SparseVector, error) {
	if len(docs) == 0 {
		return nil, errors.NotValidf("empty corpus")
	}
	t.vocabulary = dataset.NewFreqDict()
	// count term frequency and document frequency
	counts := make([]map[int32]float32, len(docs))
	for i, doc := range docs {
		tokens := Tokenize(doc)
		if len(tokens) == 0 {
			tokens = []string{dataset.Placeholder}
		}
		counts[i] = make(map[int32]float32)
		for _, token := range tokens {
			id, seen := t.vocabulary.Lookup(token)
			if !seen || counts[i][int32(id)] == 0 {
				id = t.vocabulary.Id(token)
			}
			counts[i][int32(id)]++
		}
	}
	if t.vocabulary.Count() == 0 {
		return nil, errors.NotValidf("empty vocabulary")
	}
	n := float32(len(docs))
	t.idf = make([]float32, t.vocabulary.Count())
	for i := range t.idf {
		t.idf[i] = math32.Log((1+n)/(1+float32(t.vocabulary.Freq(i)))) + 1
	}
	// weight and normalize
	vectors := make([]SparseVector, len(docs))
	for i, count := range counts {
		indices := lo.Keys(count)
		sort.Slice(indices, func(a, b int) bool { return indices[a] < indices[b] })
		values := make([]float32, len(indices))
		for j, term := range indices {
			values[j] = count[term] * t.idf[term]
		}
		vectors[i] = SparseVector{Indices: indices, Values: values}.Normalized()
	}
	return vectors, nil
}

// Vocabulary returns terms in column order.
func (t *TFIDF) Vocabulary() []string {
	return t.vocabulary.Strings()
}

// IDF returns the inverse document frequency of each term in column order.
func (t *TFIDF) IDF() []float32 {
	return t.idf
}
