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

package encoding

import (
	"encoding/binary"
	"io"
	"strconv"

	"github.com/juju/errors"
)

// WriteMatrix writes matrix to byte stream.
func WriteMatrix(w io.Writer, m [][]float32) error {
	for i := range m {
		err := binary.Write(w, binary.LittleEndian, m[i])
		if err != nil {
			return errors.Trace(err)
		}
	}
	return nil
}

// ReadMatrix reads matrix from byte stream. Rows of m must be allocated by the caller.
func ReadMatrix(r io.Reader, m [][]float32) error {
	for i := range m {
		err := binary.Read(r, binary.LittleEndian, m[i])
		if err != nil {
			return errors.Trace(err)
		}
	}
	return nil
}

// WriteString writes string to byte stream.
func WriteString(w io.Writer, s string) error {
	return WriteBytes(w, []byte(s))
}

// ReadString reads string from byte stream.
func ReadString(r io.Reader) (string, error) {
	data, err := ReadBytes(r)
	return string(data), err
}

// WriteBytes writes bytes to byte stream.
func WriteBytes(w io.Writer, s []byte) error {
	err := binary.Write(w, binary.LittleEndian, int32(len(s)))
	if err != nil {
		return errors.Trace(err)
	}
	n, err := w.Write(s)
	if err != nil {
		return errors.Trace(err)
	} else if n != len(s) {
		return errors.New("fail to write string")
	}
	return nil
}

// ReadBytes reads bytes from byte stream. Memory grows with the bytes actually read, so a corrupt
// length fails with io.ErrUnexpectedEOF instead of a huge allocation.
func ReadBytes(r io.Reader) ([]byte, error) {
	var length int32
	err := binary.Read(r, binary.LittleEndian, &length)
	if err != nil {
		return nil, errors.Trace(err)
	}
	if length < 0 {
		return nil, errors.NotValidf("byte length %d", length)
	}
	data := make([]byte, 0, min(int(length), chunkSize))
	for len(data) < int(length) {
		n := min(int(length)-len(data), chunkSize)
		data = append(data, make([]byte, n)...)
		if _, err = io.ReadFull(r, data[len(data)-n:]); err != nil {
			return nil, errors.Trace(unexpectedEOF(err))
		}
	}
	return data, nil
}

// WriteInt64s writes a length-prefixed slice of 64-bit integers.
func WriteInt64s(w io.Writer, a []int64) error {
	if err := binary.Write(w, binary.LittleEndian, int64(len(a))); err != nil {
		return errors.Trace(err)
	}
	return errors.Trace(binary.Write(w, binary.LittleEndian, a))
}

// ReadInt64s reads a length-prefixed slice of 64-bit integers. Like ReadBytes, it allocates in
// chunks as data arrives.
func ReadInt64s(r io.Reader) ([]int64, error) {
	var length int64
	if err := binary.Read(r, binary.LittleEndian, &length); err != nil {
		return nil, errors.Trace(err)
	}
	if length < 0 {
		return nil, errors.NotValidf("slice length %d", length)
	}
	a := make([]int64, 0, min(length, chunkSize))
	for int64(len(a)) < length {
		n := int(min(length-int64(len(a)), chunkSize))
		a = append(a, make([]int64, n)...)
		if err := binary.Read(r, binary.LittleEndian, a[len(a)-n:]); err != nil {
			return nil, errors.Trace(unexpectedEOF(err))
		}
	}
	return a, nil
}

// chunkSize is the number of elements allocated at a time by length-prefixed readers.
const chunkSize = 1 << 16

func unexpectedEOF(err error) error {
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}

func FormatFloat32(val float32) string {
	return strconv.FormatFloat(float64(val), 'f', -1, 32)
}
