package verify

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// Codes are exactly six digits; the range excludes leading zeros so the
// string and numeric forms never disagree.
const (
	codeMin = 100000
	codeMax = 999999
)

// CodeIssuer generates one-time numeric verification codes. No cross-user
// uniqueness is required: codes are only ever matched against the submitting
// user's own pending rows.
type CodeIssuer interface {
	Issue() (int, error)
}

// RandomCodeIssuer draws codes uniformly from the six-digit space.
type RandomCodeIssuer struct{}

func (RandomCodeIssuer) Issue() (int, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(codeMax-codeMin+1))
	if err != nil {
		return 0, fmt.Errorf("issue code: %w", err)
	}
	return codeMin + int(n.Int64()), nil
}

// ParseCode interprets a message as a verification code: exactly six
// characters, all digits. Anything else falls through to the free-text path.
func ParseCode(text string) (int, bool) {
	if len(text) != 6 {
		return 0, false
	}
	code := 0
	for i := 0; i < len(text); i++ {
		c := text[i]
		if c < '0' || c > '9' {
			return 0, false
		}
		code = code*10 + int(c-'0')
	}
	return code, true
}
