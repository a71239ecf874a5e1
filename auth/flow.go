// Package auth orchestrates the OAuth authorization-code sign-in flow:
// initialize against the backend, hand off to the external browser, validate
// the deep-link callback, exchange the code, persist the session and project
// the result for the UI.
package auth

import (
	"context"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/recipevault/go-client-auth/auth/state"
	"github.com/recipevault/go-client-auth/gateway"
	"github.com/recipevault/go-client-auth/sessions"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Phase is the flow controller's current position in the sign-in sequence.
type Phase string

const (
	PhaseIdle                 Phase = "idle"
	PhaseInitializing         Phase = "initializing"
	PhaseAwaitingExternalAuth Phase = "awaiting_external_auth"
	PhaseValidatingCallback   Phase = "validating_callback"
	PhaseExchangingCode       Phase = "exchanging_code"
	PhasePersisting           Phase = "persisting"
	PhaseRedirecting          Phase = "redirecting"
)

// OutcomeType classifies how the external authorization step ended.
type OutcomeType string

const (
	// OutcomeSuccess carries a callback URL with code and state.
	OutcomeSuccess OutcomeType = "success"
	// OutcomeCancel means the user dismissed the external step. Not an error.
	OutcomeCancel OutcomeType = "cancel"
	// OutcomeUnknown is any result the platform reported that is neither
	// success nor cancel.
	OutcomeUnknown OutcomeType = "unknown"
)

// Outcome is the result of the external authorization step.
type Outcome struct {
	Type        OutcomeType
	CallbackURL string
}

// GatewayClient is the backend auth API surface the flow depends on.
type GatewayClient interface {
	Initialize(ctx context.Context, redirectURI string) *gateway.InitResult
	Complete(ctx context.Context, req gateway.CompleteRequest) *gateway.CompleteResult
}

// Browser opens the external authorization URL outside the app.
type Browser interface {
	Open(ctx context.Context, rawURL string) error
}

// Navigator resumes the UI into the authenticated area or back to the
// unauthenticated entry point. Navigation itself is a collaborator concern.
type Navigator interface {
	ToAuthenticated(path string)
	ToUnauthenticated()
}

// Deps bundles the flow controller's collaborators.
type Deps struct {
	Store      *sessions.Store
	Gateway    GatewayClient
	Projection *state.Store
	Browser    Browser
	Navigator  Navigator
}

// Flow is the sign-in flow controller. One attempt at a time: a second SignIn
// while one is in flight is rejected rather than racing on the stored
// handshake state.
type Flow struct {
	deps        Deps
	redirectURI string
	nowTime     func() time.Time
	log         zerolog.Logger

	inFlight atomic.Bool
	lock     sync.Mutex
	phase    Phase
	// pendingRedirect is the path to resume at after this attempt succeeds.
	pendingRedirect string
}

// Option configures a Flow.
type Option func(*Flow)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) Option {
	return func(f *Flow) {
		f.nowTime = nowFunc
	}
}

// WithLogger sets the flow logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(f *Flow) {
		f.log = logger
	}
}

// NewFlow creates a flow controller. redirectURI is the callback the external
// step redirects to, registered with the backend during initialization.
func NewFlow(deps Deps, redirectURI string, options ...Option) (*Flow, error) {
	if deps.Store == nil {
		return nil, errors.New("[NewFlow] session store is required")
	}
	if deps.Gateway == nil {
		return nil, errors.New("[NewFlow] gateway client is required")
	}
	if deps.Projection == nil {
		return nil, errors.New("[NewFlow] projection store is required")
	}
	if deps.Browser == nil {
		return nil, errors.New("[NewFlow] browser is required")
	}
	if deps.Navigator == nil {
		return nil, errors.New("[NewFlow] navigator is required")
	}
	if redirectURI == "" {
		return nil, errors.New("[NewFlow] redirectURI is required")
	}

	flow := &Flow{
		deps:        deps,
		redirectURI: redirectURI,
		nowTime:     time.Now,
		log:         log.Logger,
		phase:       PhaseIdle,
	}
	for _, opt := range options {
		opt(flow)
	}
	return flow, nil
}

// Phase returns the controller's current phase.
func (f *Flow) Phase() Phase {
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.phase
}

func (f *Flow) setPhase(p Phase) {
	f.lock.Lock()
	f.phase = p
	f.lock.Unlock()
}

// SignIn starts a sign-in attempt: initializes with the backend, stores the
// anti-CSRF state, then opens the external browser. redirectPath is where the
// UI resumes after success. The attempt then waits, possibly indefinitely,
// for HandleAuthResult. Failures are recorded in the projection, not
// returned; the only error is ErrSignInInProgress.
func (f *Flow) SignIn(ctx context.Context, redirectPath string) error {
	if !f.inFlight.CompareAndSwap(false, true) {
		return ErrSignInInProgress
	}

	attemptID := uuid.New().String()
	logger := f.log.With().Str("attempt_id", attemptID).Logger()

	f.setPhase(PhaseInitializing)
	f.deps.Projection.ClearError()
	f.deps.Projection.SetLoading(true)
	f.lock.Lock()
	f.pendingRedirect = redirectPath
	f.lock.Unlock()

	initResult := f.deps.Gateway.Initialize(ctx, f.redirectURI)
	if initResult == nil {
		logger.Warn().Msg("Sign-in initialization failed")
		f.failAttempt(msgSignInFailed)
		return nil
	}

	// The state must be durable before the browser opens: a crash during the
	// external step must not leave a callback we cannot verify.
	if err := f.deps.Store.SetOAuthState(ctx, initResult.State); err != nil {
		logger.Err(err).Msg("Failed to store oauth state")
		f.failAttempt(msgSignInFailed)
		return nil
	}

	f.setPhase(PhaseAwaitingExternalAuth)
	if err := f.deps.Browser.Open(ctx, initResult.AuthURL); err != nil {
		logger.Err(err).Msg("Failed to open external browser")
		_ = f.deps.Store.DeleteOAuthState(ctx)
		f.failAttempt(msgSignInFailed)
		return nil
	}

	logger.Info().Msg("Awaiting external authorization")
	return nil
}

// HandleCallback finishes a sign-in attempt from a deep-link callback URL.
func (f *Flow) HandleCallback(ctx context.Context, callbackURL string) {
	f.HandleAuthResult(ctx, Outcome{Type: OutcomeSuccess, CallbackURL: callbackURL})
}

// HandleAuthResult consumes the outcome of the external authorization step.
// Cancel returns silently to idle; an unrecognized outcome is an error;
// success runs callback validation, code exchange and persistence. Every path
// ends idle with loading off.
func (f *Flow) HandleAuthResult(ctx context.Context, outcome Outcome) {
	defer func() {
		f.deps.Projection.SetLoading(false)
		f.setPhase(PhaseIdle)
		f.inFlight.Store(false)
	}()

	switch outcome.Type {
	case OutcomeCancel:
		// The abandoned attempt's state is spent: leaving it behind would
		// let a replayed callback pass the CSRF comparison later.
		_ = f.deps.Store.DeleteOAuthState(ctx)
		f.log.Info().Msg("Sign-in cancelled by user")
	case OutcomeSuccess:
		f.completeSignIn(ctx, outcome.CallbackURL)
	default:
		_ = f.deps.Store.DeleteOAuthState(ctx)
		f.log.Warn().Str("outcome", string(outcome.Type)).Msg("Unrecognized external auth outcome")
		f.deps.Projection.SetError(msgCompleteFailed)
	}
}

func (f *Flow) completeSignIn(ctx context.Context, callbackURL string) {
	f.setPhase(PhaseValidatingCallback)

	code, callbackState, ok := parseCallback(callbackURL)
	if !ok {
		f.log.Warn().Msg("Callback missing code or state")
		_ = f.deps.Store.DeleteOAuthState(ctx)
		f.deps.Projection.SetError(msgMissingCodeOrState)
		return
	}

	// Single-use comparison: whatever the result, the stored state is gone
	// after this point.
	storedState, err := f.deps.Store.OAuthState(ctx)
	_ = f.deps.Store.DeleteOAuthState(ctx)
	if err != nil || storedState != callbackState {
		f.log.Warn().Msg("Callback state does not match stored oauth state")
		f.deps.Projection.SetError(msgStateMismatch)
		return
	}

	f.setPhase(PhaseExchangingCode)
	completeResult := f.deps.Gateway.Complete(ctx, gateway.CompleteRequest{
		Code:        code,
		State:       callbackState,
		RedirectURI: f.redirectURI,
	})
	if completeResult == nil {
		f.deps.Projection.SetError(msgCompleteFailed)
		return
	}

	f.setPhase(PhasePersisting)
	if err := f.deps.Store.SetSession(ctx, completeResult.Token, completeResult.ExpiresAt, &completeResult.User); err != nil {
		f.log.Err(err).Msg("Failed to persist session")
		f.deps.Projection.SetError(msgPersistFailed)
		return
	}

	f.lock.Lock()
	redirectPath := f.pendingRedirect
	f.lock.Unlock()
	// The redirect hint is the least critical write; losing it costs a
	// landing page, not the session.
	if err := f.deps.Store.SetPostLoginRedirect(ctx, redirectPath); err != nil {
		f.log.Err(err).Msg("Failed to store post-login redirect")
	}

	f.setPhase(PhaseRedirecting)
	f.deps.Projection.SetAuthenticated(&completeResult.User)
	f.deps.Navigator.ToAuthenticated(redirectPath)
	f.log.Info().Str("user", completeResult.User.ExternalID).Msg("Sign-in complete")
}

// SignOut clears the durable session and projects the signed-out state.
// Best-effort forward-only: a storage failure is recorded but the in-memory
// state still becomes unauthenticated.
func (f *Flow) SignOut(ctx context.Context) {
	f.deps.Projection.ClearError()
	f.deps.Projection.SetLoading(true)
	defer f.deps.Projection.SetLoading(false)

	if err := f.deps.Store.ClearSession(ctx); err != nil {
		f.log.Err(err).Msg("Failed to clear session on sign-out")
		f.deps.Projection.SetError(msgSignOutFailed)
	}

	f.deps.Projection.SetUnauthenticated()
	f.deps.Navigator.ToUnauthenticated()
}

// failAttempt records the error, resets loading and releases the attempt slot.
// Used on failures before the external step hands control back.
func (f *Flow) failAttempt(msg string) {
	f.deps.Projection.SetError(msg)
	f.deps.Projection.SetLoading(false)
	f.setPhase(PhaseIdle)
	f.inFlight.Store(false)
}

// parseCallback extracts code and state from the deep-link callback URL.
func parseCallback(callbackURL string) (code, callbackState string, ok bool) {
	parsed, err := url.Parse(callbackURL)
	if err != nil {
		return "", "", false
	}
	query := parsed.Query()
	code = query.Get("code")
	callbackState = query.Get("state")
	if code == "" || callbackState == "" {
		return "", "", false
	}
	return code, callbackState, true
}
