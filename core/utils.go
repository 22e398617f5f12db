package core

import (
	"log"
	"os"
	"path/filepath"
	"strings"
)

// CleanString trims surrounding whitespace; pass true to also lowercase.
func CleanString(s string, lower ...bool) string {
	s = strings.TrimSpace(s)
	if len(lower) > 0 && lower[0] {
		s = strings.ToLower(s)
	}
	return s
}

// Getwd locates the project root by walking up from the current directory
// until it finds one named after the project. "go test" runs each package
// from its own directory, so relative paths to assets/ and config/ would
// otherwise break under tests,
// see: https://stackoverflow.com/questions/23847003/golang-tests-and-working-directory
func Getwd() string {
	const root = "quizzyverse"

	dir, err := os.Getwd()
	if err != nil {
		log.Fatal(err)
	}
	for {
		if filepath.Base(dir) == root {
			if fi, err := os.Stat(dir); err == nil && fi.IsDir() {
				return dir
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			log.Fatalf("project root %q not found", root)
		}
		dir = parent
	}
}
