// Package version extracts the package version declared in Go source.
//
// The source is tokenized, never parsed or evaluated: the first
// `version := "X"` short variable declaration wins and later declarations
// are ignored.
package version

import (
	"fmt"
	"go/scanner"
	"go/token"
	"os"
	"strconv"

	"github.com/danmuck/ockamctl/internal/failure"
)

// ErrNotFound is returned when no version declaration exists.
var ErrNotFound = fmt.Errorf("%w: version declaration not found", failure.ErrConfiguration)

const identifier = "version"

// FromFile reads path and resolves its version declaration.
func FromFile(path string) (string, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("%w: read version source %s: %v", failure.ErrConfiguration, path, err)
	}
	v, err := FromSource(src)
	if err != nil {
		return "", fmt.Errorf("%s: %w", path, err)
	}
	return v, nil
}

// FromSource returns X from the first `version := "X"` in src.
func FromSource(src []byte) (string, error) {
	fset := token.NewFileSet()
	file := fset.AddFile("", fset.Base(), len(src))

	var s scanner.Scanner
	// Lexical errors are tolerated; the scanner skips past them.
	s.Init(file, src, func(token.Position, string) {}, 0)

	// 0: waiting for ident, 1: saw ident, 2: saw :=
	state := 0
	for {
		_, tok, lit := s.Scan()
		if tok == token.EOF {
			return "", ErrNotFound
		}

		switch {
		case tok == token.IDENT && lit == identifier:
			state = 1
		case tok == token.DEFINE && state == 1:
			state = 2
		case tok == token.STRING && state == 2:
			v, err := strconv.Unquote(lit)
			if err != nil {
				state = 0
				continue
			}
			return v, nil
		default:
			state = 0
		}
	}
}
