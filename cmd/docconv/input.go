// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/term"

	"github.com/pdiddy/docconv/internal/preview"
	"github.com/pdiddy/docconv/pkg/types"
)

// readPassword is a test seam for term.ReadPassword.
var readPassword = term.ReadPassword

// stdinIsTerminal is a test seam for the terminal check.
var stdinIsTerminal = func() bool { return term.IsTerminal(int(os.Stdin.Fd())) }

var errNoTerminal = errors.New("no terminal to prompt for a password; use --password or .secrets/pdf-password")

// promptPassword asks for a password on the terminal without echo.
func promptPassword(w io.Writer) (string, error) {
	if !stdinIsTerminal() {
		return "", errNoTerminal
	}
	if _, err := fmt.Fprint(w, "Enter PDF password: "); err != nil {
		return "", err
	}
	pw, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(w)
	if err != nil {
		return "", err
	}
	return string(pw), nil
}

type move struct {
	name string
	pos  int
}

// parseMoves parses name:pos pairs. The name may itself contain colons;
// the position is taken after the last one.
func parseMoves(specs []string) ([]move, error) {
	moves := make([]move, 0, len(specs))
	for _, s := range specs {
		i := strings.LastIndex(s, ":")
		if i <= 0 {
			return nil, fmt.Errorf("invalid move %q: want name:position", s)
		}
		pos, err := strconv.Atoi(s[i+1:])
		if err != nil || pos < 1 {
			return nil, fmt.Errorf("invalid move %q: position must be a positive integer", s)
		}
		moves = append(moves, move{name: s[:i], pos: pos})
	}
	return moves, nil
}

// parseRotations parses page:degrees pairs such as "2:90".
func parseRotations(specs []string) ([]types.Rotation, error) {
	rots := make([]types.Rotation, 0, len(specs))
	for _, s := range specs {
		page, deg, ok := strings.Cut(s, ":")
		if !ok {
			return nil, fmt.Errorf("invalid rotation %q: want page:degrees", s)
		}
		p, err := strconv.Atoi(strings.TrimSpace(page))
		if err != nil {
			return nil, fmt.Errorf("invalid rotation %q: bad page number", s)
		}
		d, err := strconv.Atoi(strings.TrimSpace(deg))
		if err != nil {
			return nil, fmt.Errorf("invalid rotation %q: bad degrees", s)
		}
		rots = append(rots, types.Rotation{Page: p, Degrees: d})
	}
	return rots, nil
}

// runRotateREPL lets the user page through v and rotate pages.
//
//	n  next page        p  previous page
//	r  rotate 90°       s  submit
//	q  quit without submitting
//
// The loop ends on s, on q (returning errAborted), or on end of input,
// which submits.
func runRotateREPL(in io.Reader, w io.Writer, v *preview.Viewer) error {
	scanner := bufio.NewScanner(in)
	for {
		cur := v.Current()
		fmt.Fprintf(w, "page %d/%d rotation %d° [n]ext [p]rev [r]otate [s]ubmit [q]uit > ", cur.Num, v.Len(), cur.Rotation)
		if !scanner.Scan() {
			fmt.Fprintln(w)
			return scanner.Err()
		}
		switch strings.ToLower(strings.TrimSpace(scanner.Text())) {
		case "n", "next":
			if !v.Next() {
				fmt.Fprintln(w, "already on the last page")
			}
		case "p", "prev":
			if !v.Prev() {
				fmt.Fprintln(w, "already on the first page")
			}
		case "r", "rotate":
			v.Rotate()
		case "s", "submit":
			return nil
		case "q", "quit":
			return errAborted
		case "":
		default:
			fmt.Fprintln(w, "commands: n, p, r, s, q")
		}
	}
}

var errAborted = errors.New("aborted")
