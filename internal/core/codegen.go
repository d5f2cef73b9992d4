package core

import (
	"fmt"

	nanoid "github.com/jaevor/go-nanoid"
)

const (
	// RoomCodeAlphabet is the symbol set room codes are drawn from.
	RoomCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	// RoomCodeLength is the number of symbols in a room code.
	RoomCodeLength = 6
)

// CodeGenerator produces candidate room codes. Implementations must be safe for concurrent use.
type CodeGenerator interface {
	Generate() string
}

// RandomCodeGenerator draws codes uniformly from RoomCodeAlphabet using crypto/rand.
type RandomCodeGenerator struct {
	next func() string
}

// NewRandomCodeGenerator builds a generator for RoomCodeLength-symbol codes.
func NewRandomCodeGenerator() (*RandomCodeGenerator, error) {
	gen, err := nanoid.CustomASCII(RoomCodeAlphabet, RoomCodeLength)
	if err != nil {
		return nil, fmt.Errorf("init room code generator: %w", err)
	}
	return &RandomCodeGenerator{next: gen}, nil
}

// Generate returns a fresh code.
func (g *RandomCodeGenerator) Generate() string {
	return g.next()
}

// IsValidRoomCode reports whether code has the shape of a generated room code.
func IsValidRoomCode(code string) bool {
	if len(code) != RoomCodeLength {
		return false
	}
	for i := 0; i < len(code); i++ {
		c := code[i]
		if !((c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')) {
			return false
		}
	}
	return true
}
