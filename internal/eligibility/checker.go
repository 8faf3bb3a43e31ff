// Package eligibility decides whether an email address may verify a
// community. Syntax validity is checked once here, independent of policy, so
// call sites never duplicate the pattern.
package eligibility

import (
	"context"
	"regexp"

	"vouch/internal/identity"
)

// emailPattern is deliberately permissive: it gates obvious non-addresses, not
// full RFC 5322 conformance. Policy decides authorization.
var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// ValidSyntax reports whether the string is shaped like an email address.
// An input failing this check is never eligible regardless of policy.
func ValidSyntax(email string) bool {
	return emailPattern.MatchString(email)
}

// Checker is one of the two deployment policies: a global authorized-address
// roster or a per-community domain allow-list.
type Checker interface {
	// Eligible reports whether the email may verify the given community.
	// Callers must have validated syntax first via ValidSyntax.
	Eligible(ctx context.Context, email string, community identity.Community) (bool, error)
}

// DomainChecker allows any email whose domain (the substring after the last
// '@') appears in the community allow-list. An empty allow-list means the
// community is open: any syntactically valid email is accepted.
type DomainChecker struct{}

func NewDomainChecker() DomainChecker {
	return DomainChecker{}
}

func (DomainChecker) Eligible(_ context.Context, email string, community identity.Community) (bool, error) {
	if len(community.AllowedDomains) == 0 {
		return true, nil
	}
	domain := domainOf(email)
	for _, allowed := range community.AllowedDomains {
		if domain == allowed {
			return true, nil
		}
	}
	return false, nil
}

func domainOf(email string) string {
	for i := len(email) - 1; i >= 0; i-- {
		if email[i] == '@' {
			return email[i+1:]
		}
	}
	return ""
}
