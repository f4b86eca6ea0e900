package core

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// CleanString trims all leading and trailing whitespace in `s` and optionally lowers it.
func CleanString(s string, lower ...bool) string {
	s = strings.TrimSpace(s)
	if len(lower) > 0 && lower[0] {
		return strings.ToLower(s)
	}
	return s
}

// Getwd walks up from the working directory to the module root (the directory holding go.mod).
// go test runs inside the package directory, so relative config paths would break otherwise.
// Outside of a source checkout the working directory itself is returned.
func Getwd() (string, error) {
	wd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	currDir := wd
	for {
		if fi, err := os.Stat(filepath.Join(currDir, "go.mod")); err == nil && !fi.IsDir() {
			return currDir, nil
		}
		newDir := filepath.Dir(currDir)
		if newDir == currDir {
			return wd, nil
		}
		currDir = newDir
	}
}

var errInvalidID = errors.New("invalid id")

// PathID cleans an id received from the outside before it is put in a URL path.
func PathID(id string) (string, error) {
	id = CleanString(id)
	if id == "" || strings.ContainsAny(id, "/?#") {
		return "", errInvalidID
	}
	return id, nil
}
