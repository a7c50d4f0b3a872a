// Package portlist turns user-supplied, comma-separated port text into
// an ordered knock sequence.
package portlist

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Sequence is an ordered list of ports.  Order is the knock order and
// duplicates are knocked as many times as they appear.
type Sequence []uint16

// String renders the sequence in the same form Parse accepts.
func (s Sequence) String() string {
	parts := make([]string, len(s))
	for i, p := range s {
		parts[i] = strconv.FormatUint(uint64(p), 10)
	}
	return strings.Join(parts, ", ")
}

// Diagnostic describes one token that could not be used as a port.
type Diagnostic struct {
	Position int    // 1-based index among the comma-separated tokens
	Token    string // trimmed token text
	Reason   string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("entry %d %q: %s", d.Position, d.Token, d.Reason)
}

// Parse splits text on commas and returns every valid port in order,
// plus one Diagnostic for each non-empty token that is not an integer
// in [0, 65535].  A single leading '+' is accepted.  Empty tokens are skipped but still count toward the
// position of later tokens.  Parse never fails as a whole.
func Parse(text string) (Sequence, []Diagnostic) {
	var (
		seq   Sequence
		diags []Diagnostic
	)
	for i, raw := range strings.Split(text, ",") {
		tok := strings.TrimSpace(raw)
		if tok == "" {
			continue
		}
		n, err := strconv.ParseUint(strings.TrimPrefix(tok, "+"), 10, 16)
		if err != nil {
			diags = append(diags, Diagnostic{
				Position: i + 1,
				Token:    tok,
				Reason:   reason(err),
			})
			continue
		}
		seq = append(seq, uint16(n))
	}
	return seq, diags
}

func reason(err error) string {
	var ne *strconv.NumError
	if errors.As(err, &ne) {
		switch {
		case errors.Is(ne.Err, strconv.ErrRange):
			return "out of range 0-65535"
		case errors.Is(ne.Err, strconv.ErrSyntax):
			return "not a number"
		}
		return ne.Err.Error()
	}
	return err.Error()
}
