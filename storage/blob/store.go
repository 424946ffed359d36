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

package blob

import (
	"io"

	"github.com/juju/errors"
	"github.com/moviesim/moviesim/config"
)

// Store persists named blobs such as similarity matrices.
type Store interface {
	// Open a blob for reading. A missing blob is reported as errors.NotFound.
	Open(name string) (io.ReadCloser, error)
	// Create a blob for writing. The done channel yields the result of the upload once the writer
	// has been closed. Closing the writer with CloseWithError discards the blob.
	Create(name string) (Writer, chan error, error)
	// List names of all blobs.
	List() ([]string, error)
	// Remove a blob.
	Remove(name string) error
}

// Writer writes the content of a blob.
type Writer interface {
	io.WriteCloser
	// CloseWithError aborts the upload. Nothing is persisted.
	CloseWithError(err error) error
}

// Open creates the blob store selected by the configuration.
func Open(cfg config.BlobConfig) (Store, error) {
	switch cfg.Type {
	case config.BlobPOSIX, "":
		return NewPOSIX(cfg.Dir), nil
	case config.BlobS3:
		return NewS3(cfg.S3)
	case config.BlobGCS:
		return NewGCS(cfg.GCS)
	case config.BlobAzure:
		return NewAzureBlob(cfg.Azure)
	}
	return nil, errors.NotSupportedf("blob store %s", cfg.Type)
}
