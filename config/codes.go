package config

import (
	"fmt"
	"strings"
)

// Codes is the cheat-code configuration: decoys are checked in declared
// order before the real code.
type Codes struct {
	Fake []string
	Real string
}

// NewCodes trims and lower-cases every code and drops empty ones. An empty
// code would be a substring of every buffer, so it can never be configured.
func NewCodes(fake []string, real string) (Codes, error) {
	var c Codes
	for _, code := range fake {
		code = strings.ToLower(strings.TrimSpace(code))
		if code == "" {
			continue
		}
		if !isLetters(code) {
			return Codes{}, fmt.Errorf("cheat code %q must contain only letters a-z", code)
		}
		c.Fake = append(c.Fake, code)
	}

	c.Real = strings.ToLower(strings.TrimSpace(real))
	if c.Real != "" && !isLetters(c.Real) {
		return Codes{}, fmt.Errorf("secret code %q must contain only letters a-z", c.Real)
	}
	return c, nil
}

// Window is the longest configured code length.
func (c Codes) Window() int {
	n := len(c.Real)
	for _, code := range c.Fake {
		if len(code) > n {
			n = len(code)
		}
	}
	return n
}

func isLetters(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < 'a' || s[i] > 'z' {
			return false
		}
	}
	return true
}
