package verify

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"golang.org/x/sync/errgroup"

	"vouch/internal/audit"
	"vouch/internal/platform/metrics"
	"vouch/internal/roles"
)

// Dispatcher executes command lists against the platform ports. Commands from
// one event run in order on one goroutine; separate events run independently
// so a slow email send for one user never delays another user's transition.
//
// Execution errors are reported to the affected user and logged; they are
// never propagated across events. State was already committed by the service,
// so the recovery path is user retry, not rollback.
type Dispatcher struct {
	messenger  Messenger
	email      EmailSender
	reconciler *roles.Reconciler
	audit      audit.Publisher
	metrics    *metrics.Metrics
	logger     *slog.Logger
	group      *errgroup.Group
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

func WithDispatcherAudit(publisher audit.Publisher) DispatcherOption {
	return func(d *Dispatcher) {
		if publisher != nil {
			d.audit = publisher
		}
	}
}

func WithDispatcherMetrics(m *metrics.Metrics) DispatcherOption {
	return func(d *Dispatcher) {
		d.metrics = m
	}
}

func WithDispatcherLogger(logger *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithConcurrency bounds the number of events executing side effects at once.
func WithConcurrency(limit int) DispatcherOption {
	return func(d *Dispatcher) {
		if limit > 0 {
			d.group.SetLimit(limit)
		}
	}
}

func NewDispatcher(messenger Messenger, email EmailSender, reconciler *roles.Reconciler, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		messenger:  messenger,
		email:      email,
		reconciler: reconciler,
		audit:      audit.Nop{},
		logger:     slog.Default(),
		group:      &errgroup.Group{},
	}
	d.group.SetLimit(16)
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch queues one event's commands for background execution. The event
// context's cancellation is detached: side effects are fire-and-forget and
// must outlive the inbound handler.
func (d *Dispatcher) Dispatch(ctx context.Context, commands []Command) {
	if len(commands) == 0 {
		return
	}
	ctx = context.WithoutCancel(ctx)
	d.group.Go(func() error {
		d.Run(ctx, commands)
		return nil
	})
}

// Run executes commands synchronously, in order. Transports that need the
// outcome before replying call this directly.
func (d *Dispatcher) Run(ctx context.Context, commands []Command) {
	for _, command := range commands {
		d.execute(ctx, command)
	}
}

// Close waits for in-flight side effects to finish.
func (d *Dispatcher) Close() {
	_ = d.group.Wait()
}

func (d *Dispatcher) execute(ctx context.Context, command Command) {
	switch c := command.(type) {
	case SendNotice:
		if err := d.messenger.SendDirect(ctx, c.UserID, c.Text); err != nil {
			d.logger.ErrorContext(ctx, "notice send failed", "user_id", c.UserID, "error", err)
		}

	case PromptVerification:
		name := d.communityName(ctx, c.CommunityID)
		text := fmt.Sprintf(promptFormat, name)
		if err := d.messenger.SendDirect(ctx, c.UserID, text); err != nil {
			d.logger.ErrorContext(ctx, "verification prompt failed",
				"user_id", c.UserID, "community_id", c.CommunityID, "error", err)
		}

	case SendCodeEmail:
		d.sendCodeEmail(ctx, c)

	case GrantRole:
		if err := d.reconciler.Grant(ctx, c.CommunityID, c.UserID, c.Role); err != nil {
			d.logger.ErrorContext(ctx, "role grant failed",
				"user_id", c.UserID, "community_id", c.CommunityID, "role", c.Role, "error", err)
		}

	case RevokeRole:
		if err := d.reconciler.Revoke(ctx, c.CommunityID, c.UserID, c.Role); err != nil {
			d.logger.ErrorContext(ctx, "role revoke failed",
				"user_id", c.UserID, "community_id", c.CommunityID, "role", c.Role, "error", err)
		}

	case AnnounceVerified:
		name := d.communityName(ctx, c.CommunityID)
		text := fmt.Sprintf(verifiedFormat, name)
		if err := d.messenger.SendDirect(ctx, c.UserID, text); err != nil {
			d.logger.ErrorContext(ctx, "verification announcement failed",
				"user_id", c.UserID, "community_id", c.CommunityID, "error", err)
		}

	case Rename:
		d.rename(ctx, c)

	default:
		d.logger.ErrorContext(ctx, "unknown command", "command", fmt.Sprintf("%T", command))
	}
}

// sendCodeEmail delivers the code and reports the outcome to the user. The
// pending state was committed before dispatch, so a delivery failure leaves
// the user free to resubmit the email and supersede the stuck code.
func (d *Dispatcher) sendCodeEmail(ctx context.Context, c SendCodeEmail) {
	err := d.email.Send(ctx, c.Email, EmailSubject, strconv.Itoa(c.Code))
	if err != nil {
		d.metrics.IncEmailFailures()
		event := audit.NewEvent(audit.KindDeliveryFailed)
		event.UserID = c.UserID
		event.Email = c.Email
		event.Detail = err.Error()
		d.audit.Emit(ctx, event)
		d.logger.ErrorContext(ctx, "verification email failed",
			"user_id", c.UserID, "error", err)
		if err := d.messenger.SendDirect(ctx, c.UserID, noticeEmailFailed); err != nil {
			d.logger.ErrorContext(ctx, "failure notice failed", "user_id", c.UserID, "error", err)
		}
		return
	}
	d.metrics.IncEmailsSent()
	if err := d.messenger.SendDirect(ctx, c.UserID, noticeEmailSent); err != nil {
		d.logger.ErrorContext(ctx, "delivery notice failed", "user_id", c.UserID, "error", err)
	}
}

func (d *Dispatcher) rename(ctx context.Context, c Rename) {
	base, err := d.messenger.UserName(ctx, c.CommunityID, c.UserID)
	if err != nil {
		d.logger.ErrorContext(ctx, "username lookup failed",
			"user_id", c.UserID, "community_id", c.CommunityID, "error", err)
		return
	}
	nick := c.Prefix + "-" + base
	if err := d.messenger.SetNickname(ctx, c.CommunityID, c.UserID, nick); err != nil {
		d.logger.ErrorContext(ctx, "nickname update failed",
			"user_id", c.UserID, "community_id", c.CommunityID, "error", err)
		return
	}
	if err := d.messenger.SendDirect(ctx, c.UserID, fmt.Sprintf(renamedFormat, nick)); err != nil {
		d.logger.ErrorContext(ctx, "rename notice failed", "user_id", c.UserID, "error", err)
	}
}

// communityName falls back to the raw ID when the platform lookup fails so a
// notice is still sent.
func (d *Dispatcher) communityName(ctx context.Context, communityID string) string {
	name, err := d.messenger.CommunityName(ctx, communityID)
	if err != nil || name == "" {
		return communityID
	}
	return name
}
