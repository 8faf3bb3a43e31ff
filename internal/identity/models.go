package identity

// Status is the durable verification state of an Identity. Pending is not a
// stored status: an unverified row with an email and code on file is pending.
type Status int

const (
	StatusUnverified Status = iota
	StatusVerified
)

func (s Status) String() string {
	if s == StatusVerified {
		return "verified"
	}
	return "unverified"
}

// Community holds per-workspace verification configuration. Rows are created
// on first sight with defaults and mutated only through admin operations.
type Community struct {
	ID             string
	VerifyOnJoin   bool
	VerifiedRole   string
	AllowedDomains []string
}

// DefaultVerifiedRole names the role granted on verification when an admin has
// not configured one.
const DefaultVerifiedRole = "verified"

// UnverifiedRole is the placeholder role revoked once a member verifies.
const UnverifiedRole = "unverified"

// NewCommunity returns a Community with default configuration.
func NewCommunity(id string) Community {
	return Community{
		ID:           id,
		VerifyOnJoin: false,
		VerifiedRole: DefaultVerifiedRole,
	}
}

// Identity is the verification record for one user within one community.
// At most one Identity exists per (UserID, CommunityID).
//
// Email is authoritative only when Status is verified; a non-empty Email on an
// unverified row is an in-flight attempt.
type Identity struct {
	UserID      string
	CommunityID string
	Email       string
	PendingCode int
	Status      Status
}

// Pending reports whether the identity has an issued code awaiting
// confirmation.
func (i Identity) Pending() bool {
	return i.Status == StatusUnverified && i.Email != "" && i.PendingCode != 0
}
