package core

import (
	_ "embed"
	"strings"
)

//go:embed version.txt
var versionRevision string

func Version() string {
	return strings.TrimSpace(versionRevision)
}
