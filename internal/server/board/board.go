// Package board renders the piece placement of a position.
package board

import (
	"errors"
	"fmt"
	"strings"

	"chessd/internal/server/position"
)

// ErrPlacement is returned for a placement field that does not describe 8x8 squares
var ErrPlacement = errors.New("invalid piece placement")

type Board struct {
	squares [8][8]byte
	turn    string
}

// FromPosition lays out the placement field of pos
func FromPosition(pos position.Position) (*Board, error) {
	b := &Board{turn: pos.Turn}

	ranks := strings.Split(pos.Placement, "/")
	if len(ranks) != 8 {
		return nil, fmt.Errorf("%w: expected 8 ranks, got %d", ErrPlacement, len(ranks))
	}

	for r := 0; r < 8; r++ {
		file := 0
		for _, ch := range ranks[r] {
			switch {
			case ch >= '1' && ch <= '8':
				file += int(ch - '0')
			case strings.ContainsRune("pnbrqkPNBRQK", ch):
				if file >= 8 {
					return nil, fmt.Errorf("%w: too many pieces in rank %d", ErrPlacement, 8-r)
				}
				b.squares[r][file] = byte(ch)
				file++
			default:
				return nil, fmt.Errorf("%w: unexpected %q in rank %d", ErrPlacement, ch, 8-r)
			}
		}
		if file != 8 {
			return nil, fmt.Errorf("%w: rank %d has %d files", ErrPlacement, 8-r, file)
		}
	}

	return b, nil
}

// ToASCII creates an ASCII representation of the board, white at the bottom
func (b *Board) ToASCII() string {
	var sb strings.Builder
	sb.WriteString("  a b c d e f g h\n")

	for r := 0; r < 8; r++ {
		fmt.Fprintf(&sb, "%d ", 8-r)
		for f := 0; f < 8; f++ {
			square := fmt.Sprintf("%c%c", 'a'+f, '8'-r)
			if piece := b.PieceAt(square); piece == 0 {
				sb.WriteString(". ")
			} else {
				fmt.Fprintf(&sb, "%c ", piece)
			}
		}
		fmt.Fprintf(&sb, " %d\n", 8-r)
	}
	sb.WriteString("  a b c d e f g h")

	return sb.String()
}

// Turn is "w" or "b" as given by the position
func (b *Board) Turn() string {
	return b.turn
}

// PieceAt returns the piece letter on an algebraic square, or 0
func (b *Board) PieceAt(square string) byte {
	if len(square) != 2 {
		return 0
	}
	if square[0] < 'a' || square[0] > 'h' || square[1] < '1' || square[1] > '8' {
		return 0
	}
	file := square[0] - 'a'
	rank := '8' - square[1]
	return b.squares[rank][file]
}
