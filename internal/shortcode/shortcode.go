// Package shortcode generates and checks the codes that identify shortened URLs.
package shortcode

import (
	"regexp"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

const (
	// Alphabet is the set of characters short codes are drawn from.
	Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

	DefaultLength = 6
	MinLength     = 3
	MaxLength     = 20
)

var validRe = regexp.MustCompile(`^[A-Za-z0-9]{3,20}$`)

// Generate returns a random code of the given length drawn uniformly from Alphabet.
// It panics if the random source fails.
func Generate(length int) string {
	return gonanoid.MustGenerate(Alphabet, length)
}

// Valid reports whether code is an acceptable user-requested short code.
func Valid(code string) bool {
	return validRe.MatchString(code)
}
