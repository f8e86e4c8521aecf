// Package position models the six-field board position exchanged with the engine.
package position

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// ErrMalformed is returned for any position string that cannot be sent to the engine.
var ErrMalformed = errors.New("invalid FEN string")

// fieldCount is the number of space-separated fields in a FEN string
const fieldCount = 6

// Position is a parsed FEN record
type Position struct {
	Placement string `json:"pos"`
	Turn      string `json:"turn"`
	Castling  string `json:"castle"`
	EnPassant string `json:"enPassant"`
	Halfmove  int    `json:"halfmove"`
	Fullmove  int    `json:"fullmove"`
}

// Start is the position every new game begins from
var Start = Position{
	Placement: "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR",
	Turn:      "w",
	Castling:  "KQkq",
	EnPassant: "-",
	Halfmove:  0,
	Fullmove:  0,
}

// Parse splits a FEN string into its six fields.
// Only the field count, the two counters and control characters are checked;
// board legality is the caller's concern.
func Parse(fen string) (Position, error) {
	for _, r := range fen {
		if unicode.IsControl(r) {
			return Position{}, fmt.Errorf("%w: contains control characters", ErrMalformed)
		}
	}

	fields := strings.Split(fen, " ")
	if len(fields) != fieldCount {
		return Position{}, fmt.Errorf("%w: expected %d fields, got %d", ErrMalformed, fieldCount, len(fields))
	}
	for i, f := range fields {
		if f == "" {
			return Position{}, fmt.Errorf("%w: field %d is empty", ErrMalformed, i+1)
		}
	}

	halfmove, err := parseCounter(fields[4])
	if err != nil {
		return Position{}, fmt.Errorf("%w: halfmove clock: %v", ErrMalformed, err)
	}
	fullmove, err := parseCounter(fields[5])
	if err != nil {
		return Position{}, fmt.Errorf("%w: fullmove number: %v", ErrMalformed, err)
	}

	return Position{
		Placement: fields[0],
		Turn:      fields[1],
		Castling:  fields[2],
		EnPassant: fields[3],
		Halfmove:  halfmove,
		Fullmove:  fullmove,
	}, nil
}

func parseCounter(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, fmt.Errorf("negative value %d", n)
	}
	return n, nil
}

// String returns the canonical wire form accepted by the engine
func (p Position) String() string {
	return fmt.Sprintf("%s %s %s %s %d %d",
		p.Placement, p.Turn, p.Castling, p.EnPassant, p.Halfmove, p.Fullmove)
}
