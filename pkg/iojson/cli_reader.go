package iojson

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v3"
	"golang.org/x/term"
)

// ErrNoInput is returned when neither a file nor piped input is available.
var ErrNoInput = errors.New("no input provided (stdin is a terminal); use -f flag or pipe JSON input")

// FileReader decodes a single JSON document of type T from the file named by
// its --file flag, or from the command's input stream when the flag is empty
// or "-". Unknown fields are rejected.
type FileReader[T any] struct {
	path string
}

func (fr *FileReader[T]) Flag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:        "file",
		Aliases:     []string{"f"},
		Usage:       "path to JSON file, - for stdin (default stdin)",
		Destination: &fr.path,
		TakesFile:   true,
	}
}

// Read decodes from the flag's file or from stdin. A nil stdin means
// os.Stdin.
func (fr *FileReader[T]) Read(stdin io.Reader) (T, error) {
	var input T

	if fr.path != "" && fr.path != "-" {
		f, err := os.Open(fr.path)
		if err != nil {
			return input, fmt.Errorf("open file: %w", err)
		}
		defer func() { _ = f.Close() }()
		return decode[T](f)
	}

	if stdin == nil {
		stdin = os.Stdin
	}
	if f, ok := stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return input, ErrNoInput
	}

	return decode[T](stdin)
}

func decode[T any](r io.Reader) (T, error) {
	var input T

	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&input); err != nil {
		if errors.Is(err, io.EOF) {
			return input, fmt.Errorf("decode JSON: empty input")
		}
		return input, fmt.Errorf("decode JSON: %w", err)
	}

	return input, nil
}
