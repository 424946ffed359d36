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
	"bufio"
	"io"
	"slices"

	"github.com/chewxy/math32"
	"github.com/juju/errors"
	"github.com/moviesim/moviesim/base/encoding"
	"github.com/moviesim/moviesim/base/log"
	"github.com/moviesim/moviesim/dataset"
	"github.com/moviesim/moviesim/storage/blob"
	"go.uber.org/zap"
)

const matrixHeader = "moviesim/matrix"

// Matrix is a square similarity matrix whose rows and columns follow the movie order of a dataset.
// It is never modified after it has been built or loaded.
type Matrix struct {
	name string
	ids  []int64
	data [][]float32
}

// NewMatrix creates a zero matrix for the movies ids. Rows share one backing array.
func NewMatrix(name string, ids []int64) *Matrix {
	n := len(ids)
	backing := make([]float32, n*n)
	data := make([][]float32, n)
	for i := range data {
		data[i] = backing[i*n : (i+1)*n : (i+1)*n]
	}
	return &Matrix{name: name, ids: slices.Clone(ids), data: data}
}

// NewMatrixFromRows copies rows into a new matrix. Rows must form a square matrix of len(ids).
func NewMatrixFromRows(name string, ids []int64, rows [][]float32) (*Matrix, error) {
	if len(rows) != len(ids) {
		return nil, errors.NotValidf("matrix %s has %d rows for %d movies", name, len(rows), len(ids))
	}
	m := NewMatrix(name, ids)
	for i, row := range rows {
		if len(row) != len(ids) {
			return nil, errors.NotValidf("row %d of matrix %s has %d columns for %d movies", i, name, len(row), len(ids))
		}
		copy(m.data[i], row)
	}
	return m, nil
}

func (m *Matrix) Name() string {
	return m.name
}

// Size returns the number of rows.
func (m *Matrix) Size() int {
	return len(m.ids)
}

// Ids returns movie ids in row order.
func (m *Matrix) Ids() []int64 {
	return m.ids
}

func (m *Matrix) Get(i, j int) float32 {
	return m.data[i][j]
}

// Row returns a copy of the i-th row. Callers may modify it freely.
func (m *Matrix) Row(i int) []float32 {
	return slices.Clone(m.data[i])
}

// Validate checks that the matrix is aligned with the movie order of a dataset.
func (m *Matrix) Validate(d *dataset.Dataset) error {
	if m.Size() != d.Count() {
		return errors.NotValidf("matrix %s is %dx%d but the dataset has %d movies",
			m.name, m.Size(), m.Size(), d.Count())
	}
	for i, movie := range d.GetMovies() {
		if m.ids[i] != movie.Id {
			return errors.NotValidf("row %d of matrix %s is movie %d but the dataset has movie %d",
				i, m.name, m.ids[i], movie.Id)
		}
	}
	return nil
}

// Marshal writes the matrix to a byte stream.
func (m *Matrix) Marshal(w io.Writer) error {
	if err := encoding.WriteString(w, matrixHeader); err != nil {
		return errors.Trace(err)
	}
	if err := encoding.WriteString(w, m.name); err != nil {
		return errors.Trace(err)
	}
	if err := encoding.WriteInt64s(w, m.ids); err != nil {
		return errors.Trace(err)
	}
	return encoding.WriteMatrix(w, m.data)
}

// UnmarshalMatrix reads a matrix written by Marshal.
func UnmarshalMatrix(r io.Reader) (*Matrix, error) {
	header, err := encoding.ReadString(r)
	if err != nil {
		return nil, errors.Trace(err)
	}
	if header != matrixHeader {
		return nil, errors.NotValidf("matrix header %q", header)
	}
	name, err := encoding.ReadString(r)
	if err != nil {
		return nil, errors.Trace(err)
	}
	ids, err := encoding.ReadInt64s(r)
	if err != nil {
		return nil, errors.Trace(err)
	}
	// rows are allocated as they are read so a corrupt id count cannot exhaust memory
	m := &Matrix{name: name, ids: ids, data: make([][]float32, 0, min(len(ids), 1024))}
	for i := range ids {
		row := make([]float32, len(ids))
		if err = encoding.ReadMatrix(r, [][]float32{row}); err != nil {
			return nil, errors.Annotatef(err, "read row %d of matrix %s", i, name)
		}
		for j, value := range row {
			if math32.IsNaN(value) || value < 0 || value > 1 {
				return nil, errors.NotValidf("similarity %v at (%d, %d) of matrix %s", value, i, j, name)
			}
		}
		m.data = append(m.data, row)
	}
	return m, nil
}

// BlobName returns the name of the blob that stores a matrix.
func BlobName(name string) string {
	return name + ".matrix"
}

// SaveMatrix writes a matrix to a blob store. It returns once the blob has been persisted; a
// failed write leaves no blob behind.
func SaveMatrix(store blob.Store, m *Matrix) error {
	w, done, err := store.Create(BlobName(m.name))
	if err != nil {
		return errors.Trace(err)
	}
	buf := bufio.NewWriter(w)
	if err = m.Marshal(buf); err == nil {
		err = buf.Flush()
	}
	if err != nil {
		_ = w.CloseWithError(err)
		<-done
		return errors.Annotatef(err, "write matrix %s", m.name)
	}
	if err = w.Close(); err != nil {
		<-done
		return errors.Trace(err)
	}
	if err = <-done; err != nil {
		return errors.Annotatef(err, "persist matrix %s", m.name)
	}
	log.Logger().Info("save similarity matrix", zap.String("name", m.name), zap.Int("size", m.Size()))
	return nil
}

// LoadMatrix reads a matrix from a blob store.
func LoadMatrix(store blob.Store, name string) (*Matrix, error) {
	r, err := store.Open(BlobName(name))
	if err != nil {
		return nil, errors.Trace(err)
	}
	defer func() {
		if err := r.Close(); err != nil {
			log.Logger().Error("failed to close blob", zap.String("name", name), zap.Error(err))
		}
	}()
	m, err := UnmarshalMatrix(bufio.NewReader(r))
	if err != nil {
		return nil, errors.Trace(err)
	}
	if m.name != name {
		return nil, errors.NotValidf("blob %s contains matrix %s", BlobName(name), m.name)
	}
	return m, nil
}
