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

package data

import (
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/moviesim/moviesim/storage"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type DatabaseTestSuite struct {
	suite.Suite
	Database
	newDatabase func(t *testing.T) Database
}

func (s *DatabaseTestSuite) SetupTest() {
	s.Database = s.newDatabase(s.T())
}

func (s *DatabaseTestSuite) TearDownTest() {
	s.NoError(s.Database.Close())
}

func (s *DatabaseTestSuite) TestMovies() {
	testMovies(s.T(), s.Database)
}

func (s *DatabaseTestSuite) TestTags() {
	testTags(s.T(), s.Database)
}

func (s *DatabaseTestSuite) TestRatings() {
	testRatings(s.T(), s.Database)
}

func (s *DatabaseTestSuite) TestGenomeScores() {
	testGenomeScores(s.T(), s.Database)
}

func (s *DatabaseTestSuite) TestPurge() {
	testPurge(s.T(), s.Database)
}

func (s *DatabaseTestSuite) TestLoadDataset() {
	testLoadDataset(s.T(), s.Database)
}

func (s *DatabaseTestSuite) TestImport() {
	dir := s.T().TempDir()
	writeMovieLens(s.T(), dir)
	testImport(s.T(), NewCSVDatabase(dir), s.Database)
}

func (s *DatabaseTestSuite) TestPing() {
	s.NoError(s.Database.Ping())
}

func newTestSQLite(t *testing.T) Database {
	db, err := Open(storage.SQLitePrefix+filepath.Join(t.TempDir(), "sqlite.db"), "moviesim_")
	require.NoError(t, err)
	require.NoError(t, db.Init())
	return db
}

func TestSQLite(t *testing.T) {
	suite.Run(t, &DatabaseTestSuite{newDatabase: newTestSQLite})
}

// newTestServerDatabase creates a fresh database on a server given by an environment variable.
func newTestServerDatabase(t *testing.T, uri, driver, prefix string) Database {
	name := "moviesim_" + strings.ToLower(strings.ReplaceAll(t.Name(), "/", "_"))
	dsn := uri[len(prefix):]
	if driver == "postgres" {
		dsn = uri
	}
	conn, err := sql.Open(driver, dsn)
	require.NoError(t, err)
	_, err = conn.Exec("DROP DATABASE IF EXISTS " + name)
	require.NoError(t, err)
	_, err = conn.Exec("CREATE DATABASE " + name)
	require.NoError(t, err)
	require.NoError(t, conn.Close())

	if driver == "postgres" {
		uri = strings.TrimSuffix(uri, "/") + "/" + name + "?sslmode=disable"
	} else {
		uri = uri + name
	}
	db, err := Open(uri, "")
	require.NoError(t, err)
	require.NoError(t, db.Init())
	return db
}

func TestMySQL(t *testing.T) {
	uri := os.Getenv("MYSQL_URI")
	if uri == "" {
		t.Skip("MYSQL_URI is not set")
	}
	suite.Run(t, &DatabaseTestSuite{newDatabase: func(t *testing.T) Database {
		return newTestServerDatabase(t, uri, "mysql", storage.MySQLPrefix)
	}})
}

func TestPostgres(t *testing.T) {
	uri := os.Getenv("POSTGRES_URI")
	if uri == "" {
		t.Skip("POSTGRES_URI is not set")
	}
	suite.Run(t, &DatabaseTestSuite{newDatabase: func(t *testing.T) Database {
		return newTestServerDatabase(t, uri, "postgres", storage.PostgresPrefix)
	}})
}
