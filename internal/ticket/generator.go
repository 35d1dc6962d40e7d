// Package ticket produces the opaque tokens complaints are looked up by.
package ticket

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"math/big"
)

// Policy names accepted by NewGenerator.
const (
	PolicyAlnum6 = "alnum6"
	PolicyHex8   = "hex8"
)

const (
	alnumAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
	alnumLength   = 6
	hexByteCount  = 4
)

// Generator returns a new ticket token on every call. Tokens are not checked
// for uniqueness; the complaint store enforces that.
type Generator interface {
	Generate() (string, error)
}

// NewGenerator returns the generator for the named policy.
func NewGenerator(policy string) (Generator, error) {
	return newGeneratorWithSource(policy, rand.Reader)
}

func newGeneratorWithSource(policy string, src io.Reader) (Generator, error) {
	switch policy {
	case "", PolicyAlnum6:
		return &alnumGenerator{src: src, length: alnumLength}, nil
	case PolicyHex8:
		return &hexGenerator{src: src, size: hexByteCount}, nil
	default:
		return nil, fmt.Errorf("unknown ticket policy %q", policy)
	}
}

type alnumGenerator struct {
	src    io.Reader
	length int
}

func (g *alnumGenerator) Generate() (string, error) {
	max := big.NewInt(int64(len(alnumAlphabet)))
	out := make([]byte, g.length)
	for i := range out {
		n, err := rand.Int(g.src, max)
		if err != nil {
			return "", fmt.Errorf("generate ticket: %w", err)
		}
		out[i] = alnumAlphabet[n.Int64()]
	}
	return string(out), nil
}

type hexGenerator struct {
	src  io.Reader
	size int
}

func (g *hexGenerator) Generate() (string, error) {
	buf := make([]byte, g.size)
	if _, err := io.ReadFull(g.src, buf); err != nil {
		return "", fmt.Errorf("generate ticket: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// GeneratorFunc adapts a plain function to the Generator interface.
type GeneratorFunc func() (string, error)

// Generate calls f.
func (f GeneratorFunc) Generate() (string, error) {
	return f()
}
