package verify

// Command is a side-effect request produced by a state transition. The
// decision steps stay pure by returning commands; the Dispatcher executes
// them against the platform ports.
type Command interface {
	isCommand()
}

// PromptVerification asks the user by direct message to submit their email
// address for one community.
type PromptVerification struct {
	CommunityID string
	UserID      string
}

// SendNotice delivers literal text to the user by direct message.
type SendNotice struct {
	UserID string
	Text   string
}

// SendCodeEmail delivers the one-time code and then notifies the user of the
// delivery outcome. One email is sent per submission no matter how many
// communities the code was applied to.
type SendCodeEmail struct {
	UserID string
	Email  string
	Code   int
}

// GrantRole requests idempotent role reconciliation: ensure the role exists
// and the user holds it.
type GrantRole struct {
	CommunityID string
	UserID      string
	Role        string
}

// RevokeRole requests idempotent removal of a role the user may hold.
type RevokeRole struct {
	CommunityID string
	UserID      string
	Role        string
}

// AnnounceVerified tells the user they are verified on a community and
// prompts for the optional team name.
type AnnounceVerified struct {
	CommunityID string
	UserID      string
}

// Rename sets the user's nickname to "<Prefix>-<username>" in one community
// and confirms by direct message.
type Rename struct {
	CommunityID string
	UserID      string
	Prefix      string
}

func (PromptVerification) isCommand() {}
func (SendNotice) isCommand()         {}
func (SendCodeEmail) isCommand()      {}
func (GrantRole) isCommand()          {}
func (RevokeRole) isCommand()         {}
func (AnnounceVerified) isCommand()   {}
func (Rename) isCommand()             {}
