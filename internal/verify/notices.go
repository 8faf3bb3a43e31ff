package verify

// Notice texts mirror the bot's established wording; downstream transports
// may reformat but the core owns the content.
const (
	noticeEmailSent = "Email sent. Reply here with your verification code. " +
		"If you haven't received it, check your spam folder."
	noticeEmailFailed   = "Email failed to send."
	noticeInvalidEmail  = "Invalid email."
	noticeNoCommunity   = "You have not joined a community."
	noticeIncorrectCode = "Incorrect code."

	promptFormat = "To verify yourself on %s, reply here with your email address."

	verifiedFormat = "You have been verified on %s. Please enter your team name. " +
		"If you are not on a team, send \"" + SkipToken + "\""

	renamedFormat = "Nickname successfully changed to %s. If your team name changes, " +
		"reply back with the new name."
)

// SkipToken suppresses the post-verification nickname update.
const SkipToken = ".SKIP"

// EmailSubject heads every verification email.
const EmailSubject = "Verify your community email"
