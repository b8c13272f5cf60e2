// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"github.com/jeranaias/zhai-tui/internal/chatapi"
	"github.com/jeranaias/zhai-tui/internal/logger"
	"github.com/jeranaias/zhai-tui/internal/storage"
)

// Persisted keys.
const (
	KeyAuthToken = "authToken"
	KeyUserInfo  = "userInfo"
)

// MaxUserNameLength is the longest accepted username, in characters.
const MaxUserNameLength = 20

// =============================================================================
// SESSION
// =============================================================================

// Session is an authenticated identity.
type Session struct {
	UserName string `json:"userName"`
	UserID   string `json:"userId"`
	Token    string `json:"token"`
}

// Valid reports whether every field is present.
func (s Session) Valid() bool {
	return s.UserName != "" && s.UserID != "" && s.Token != ""
}

// =============================================================================
// ERRORS
// =============================================================================

// LoginRejectedError is a login refused for a reason the user can act on.
type LoginRejectedError struct {
	Reason string
	Cause  error
}

func (e *LoginRejectedError) Error() string {
	return "login rejected: " + e.Reason
}

func (e *LoginRejectedError) Unwrap() error {
	return e.Cause
}

// IsLoginRejected reports whether err is a LoginRejectedError.
func IsLoginRejected(err error) bool {
	var rejected *LoginRejectedError
	return errors.As(err, &rejected)
}

// CorruptStateError describes persisted session data that was discarded.
type CorruptStateError struct {
	Key   string
	Cause error
}

func (e *CorruptStateError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("corrupt persisted session (%s)", e.Key)
	}
	return fmt.Sprintf("corrupt persisted session (%s): %v", e.Key, e.Cause)
}

func (e *CorruptStateError) Unwrap() error {
	return e.Cause
}

// Validate checks a username the way the backend does, after trimming
// surrounding whitespace. It returns the trimmed name.
func Validate(username string) (string, error) {
	name := strings.TrimSpace(username)
	if name == "" {
		return "", &LoginRejectedError{Reason: "username must not be empty"}
	}
	if utf8.RuneCountInString(name) > MaxUserNameLength {
		return "", &LoginRejectedError{Reason: fmt.Sprintf("username must be at most %d characters", MaxUserNameLength)}
	}
	return name, nil
}

// =============================================================================
// STORE
// =============================================================================

// Authenticator performs the remote login.
type Authenticator interface {
	Login(ctx context.Context, username string) (*chatapi.LoginResponse, error)
}

// ChangeFunc observes session transitions. ok is false after logout.
type ChangeFunc func(s Session, ok bool)

// Options configures NewStore.
type Options struct {
	// LoginRatePerMinute limits sustained login attempts (default: 10)
	LoginRatePerMinute int
	// LoginBurst is how many attempts may be made back to back (default: 3)
	LoginBurst int
	// Logger (default: logger.WithPrefix("session"))
	Logger *log.Logger
}

// Store holds the current Session and its persisted copy.
type Store struct {
	mu       sync.RWMutex
	kv       storage.Store
	auth     Authenticator
	limiter  *rate.Limiter
	log      *log.Logger
	current  Session
	loggedIn bool

	cbMu      sync.Mutex
	callbacks []ChangeFunc
}

// NewStore creates a logged-out Store. Call Restore to pick up a
// persisted session.
func NewStore(kv storage.Store, auth Authenticator, opts Options) *Store {
	if opts.LoginRatePerMinute <= 0 {
		opts.LoginRatePerMinute = 10
	}
	if opts.LoginBurst <= 0 {
		opts.LoginBurst = 3
	}
	if opts.Logger == nil {
		opts.Logger = logger.WithPrefix("session")
	}
	every := rate.Every(time.Minute / time.Duration(opts.LoginRatePerMinute))
	return &Store{
		kv:      kv,
		auth:    auth,
		limiter: rate.NewLimiter(every, opts.LoginBurst),
		log:     opts.Logger,
	}
}

// OnChange registers fn to run after every login, logout and restore.
func (s *Store) OnChange(fn ChangeFunc) {
	s.cbMu.Lock()
	defer s.cbMu.Unlock()
	s.callbacks = append(s.callbacks, fn)
}

func (s *Store) notify(sess Session, ok bool) {
	s.cbMu.Lock()
	callbacks := make([]ChangeFunc, len(s.callbacks))
	copy(callbacks, s.callbacks)
	s.cbMu.Unlock()

	for _, fn := range callbacks {
		fn(sess, ok)
	}
}

// Current returns the session, if logged in.
func (s *Store) Current() (Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current, s.loggedIn
}

// Login validates username, authenticates it remotely and persists the
// resulting session. Validation failures and backend refusals are
// LoginRejectedError; transport failures are returned as they are.
func (s *Store) Login(ctx context.Context, username string) (Session, error) {
	name, err := Validate(username)
	if err != nil {
		return Session{}, err
	}
	if !s.limiter.Allow() {
		return Session{}, &LoginRejectedError{Reason: "too many login attempts, wait a moment and try again"}
	}

	resp, err := s.auth.Login(ctx, name)
	if err != nil {
		var ce *chatapi.ClientError
		if chatapi.IsLoginRejected(err) && errors.As(err, &ce) {
			return Session{}, &LoginRejectedError{Reason: ce.Message, Cause: err}
		}
		return Session{}, err
	}

	sess := Session{UserName: resp.UserName, UserID: resp.UserID, Token: resp.Token}
	if !sess.Valid() {
		return Session{}, fmt.Errorf("incomplete login response for %q", name)
	}

	s.mu.Lock()
	if err := s.persist(ctx, sess); err != nil {
		s.mu.Unlock()
		return Session{}, err
	}
	s.current = sess
	s.loggedIn = true
	s.mu.Unlock()

	s.log.Info("logged in", "user", sess.UserName, "user_id", sess.UserID)
	s.notify(sess, true)
	return sess, nil
}

// persist must be called with mu held. A partial write is rolled back.
func (s *Store) persist(ctx context.Context, sess Session) error {
	info, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	if err := s.kv.Set(ctx, KeyAuthToken, sess.Token); err != nil {
		return fmt.Errorf("persist session: %w", err)
	}
	if err := s.kv.Set(ctx, KeyUserInfo, string(info)); err != nil {
		_ = s.kv.Delete(ctx, KeyAuthToken)
		return fmt.Errorf("persist session: %w", err)
	}
	return nil
}

// Logout forgets the session and its persisted copy. Logging out while
// logged out is a no-op.
func (s *Store) Logout(ctx context.Context) error {
	s.mu.Lock()
	was := s.loggedIn
	s.current = Session{}
	s.loggedIn = false
	err := s.kv.Delete(ctx, KeyAuthToken, KeyUserInfo)
	s.mu.Unlock()

	if err != nil {
		return fmt.Errorf("clear persisted session: %w", err)
	}
	if was {
		s.log.Info("logged out")
		s.notify(Session{}, false)
	}
	return nil
}

// Restore loads the persisted session. Missing data means logged out;
// corrupt or partial data is cleared, logged and also means logged out.
// When the store itself cannot be read the record is kept.
func (s *Store) Restore(ctx context.Context) (Session, bool) {
	s.mu.Lock()
	sess, err := s.load(ctx)
	if err != nil {
		var corrupt *CorruptStateError
		if errors.As(err, &corrupt) {
			s.log.Warn("discarding persisted session", "err", err)
			if delErr := s.kv.Delete(ctx, KeyAuthToken, KeyUserInfo); delErr != nil {
				s.log.Warn("could not clear persisted session", "err", delErr)
			}
		} else {
			// Storage is down; keep the record for the next start.
			s.log.Warn("could not read persisted session", "err", err)
		}
		s.current, s.loggedIn = Session{}, false
		s.mu.Unlock()
		return Session{}, false
	}
	if !sess.Valid() {
		s.current, s.loggedIn = Session{}, false
		s.mu.Unlock()
		return Session{}, false
	}
	s.current, s.loggedIn = sess, true
	s.mu.Unlock()

	s.log.Debug("restored session", "user", sess.UserName)
	s.notify(sess, true)
	return sess, true
}

// load must be called with mu held. It returns a zero Session and nil
// when nothing is persisted.
func (s *Store) load(ctx context.Context) (Session, error) {
	token, tokErr := s.kv.Get(ctx, KeyAuthToken)
	info, infoErr := s.kv.Get(ctx, KeyUserInfo)

	tokAbsent := errors.Is(tokErr, storage.ErrNotFound)
	infoAbsent := errors.Is(infoErr, storage.ErrNotFound)
	switch {
	case tokAbsent && infoAbsent:
		return Session{}, nil
	case tokErr != nil && !tokAbsent:
		return Session{}, readError(KeyAuthToken, tokErr)
	case infoErr != nil && !infoAbsent:
		return Session{}, readError(KeyUserInfo, infoErr)
	case tokAbsent:
		return Session{}, &CorruptStateError{Key: KeyAuthToken, Cause: errors.New("missing")}
	case infoAbsent:
		return Session{}, &CorruptStateError{Key: KeyUserInfo, Cause: errors.New("missing")}
	}

	var sess Session
	if err := json.Unmarshal([]byte(info), &sess); err != nil {
		return Session{}, &CorruptStateError{Key: KeyUserInfo, Cause: err}
	}
	if !sess.Valid() {
		return Session{}, &CorruptStateError{Key: KeyUserInfo, Cause: errors.New("incomplete session")}
	}
	if sess.Token != token {
		return Session{}, &CorruptStateError{Key: KeyAuthToken, Cause: errors.New("token does not match user info")}
	}
	return sess, nil
}

// readError classifies a failed Get. Only undecodable data is corrupt
// state; anything else is the store being unavailable.
func readError(key string, err error) error {
	if errors.Is(err, storage.ErrCorrupt) {
		return &CorruptStateError{Key: key, Cause: err}
	}
	return fmt.Errorf("read %s: %w", key, err)
}
