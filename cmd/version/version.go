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

package version

import (
	"fmt"
	"runtime"
	"strings"
)

// Set at build time with -ldflags "-X github.com/moviesim/moviesim/cmd/version.Version=...".
var (
	Version   = "unknown-version"
	GitCommit = "unknown-commit"
	BuildTime = "unknown-buildtime"
)

// MatrixFormat is the version of the binary layout of similarity matrices.
const MatrixFormat = "v1"

func BuildInfo() string {
	var buildInfo strings.Builder
	buildInfo.WriteString(fmt.Sprintln("Version:\t", Version))
	buildInfo.WriteString(fmt.Sprintln("Matrix format:\t", MatrixFormat))
	buildInfo.WriteString(fmt.Sprintln("Go version:\t", runtime.Version()))
	buildInfo.WriteString(fmt.Sprintln("Git commit:\t", GitCommit))
	buildInfo.WriteString(fmt.Sprintln("Built:\t\t", BuildTime))
	buildInfo.WriteString(fmt.Sprintf("OS/Arch:\t %s/%s\n", runtime.GOOS, runtime.GOARCH))
	return buildInfo.String()
}
