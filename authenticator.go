package contacts

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// mailTimeout bounds the background verification mail dispatch
const mailTimeout = 10 * time.Second

// Auther orchestrates the credential lifecycle: registration, email
// verification, login, and logout. It owns the single-active-session
// invariant: each successful login overwrites the user's stored token,
// superseding whatever token was issued before.
type Auther struct {
	repo   RepositoryManager
	cfg    Config
	tokens TokenService
	mailer Mailer
	logger Logger
}

// NewAuthenticator returns a new Auther
func NewAuthenticator(repo RepositoryManager, cfg Config) *Auther {
	tokens := NewTokenService(
		[]byte(cfg.GetSigningKey()),
		cfg.GetTokenExpiration(),
		cfg.GetIssuer(),
		defLogger{},
	)

	return &Auther{
		repo:   repo,
		cfg:    cfg,
		tokens: tokens,
		mailer: NewLogMailer(defLogger{}),
		logger: defLogger{},
	}
}

func (s *Auther) WithLogger(logger Logger) *Auther {
	s.logger = logger
	// Update the TokenService logger as well
	s.tokens = NewTokenService(
		[]byte(s.cfg.GetSigningKey()),
		s.cfg.GetTokenExpiration(),
		s.cfg.GetIssuer(),
		logger,
	)
	return s
}

func (s *Auther) WithMailer(mailer Mailer) *Auther {
	if mailer != nil {
		s.mailer = mailer
	}
	return s
}

// TokenService returns the TokenService instance used by this Auther
func (s *Auther) TokenService() TokenService {
	return s.tokens
}

// RegisterMessage is the registration input after transport validation
type RegisterMessage struct {
	Email        string `json:"email"`
	Password     string `json:"password"`
	Subscription string `json:"subscription"`
}

// Register creates a new unverified user. The password is hashed before
// the insert, the avatar URL derives from the email, and a one-time
// verification token is attached. The verification mail is dispatched
// after the transaction commits, fire-and-forget.
func (s *Auther) Register(ctx context.Context, msg RegisterMessage) (*User, error) {
	user := &User{}

	err := s.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := s.repo.Users().GetByEmailTx(ctx, tx, msg.Email); err == nil {
			return ErrEmailInUse
		} else if !goerrors.IsNotFound(err) {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check email availability")
		}

		hash, err := HashPassword(msg.Password)
		if err != nil {
			var richErr *goerrors.Error
			if goerrors.As(err, &richErr) {
				return richErr
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
		}

		user.Email = msg.Email
		user.PasswordHash = hash
		user.Subscription = msg.Subscription
		user.AvatarURL = GravatarURL(msg.Email)
		user.VerificationToken = NewVerificationToken()

		if user, err = s.repo.Users().RegisterTx(ctx, tx, user); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryConflict, "could not create user").
				WithCode(goerrors.CodeConflict)
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return nil, richErr
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "user registration transaction failed")
	}

	s.dispatchVerificationMail(user.Email, user.VerificationToken)

	return user, nil
}

// Login verifies the credential pair and issues a fresh bearer token,
// overwriting the stored one. Unknown email, unverified account, and
// password mismatch are indistinguishable to the caller. Two concurrent
// logins race on the token column; the last write wins and the earlier
// token is superseded.
func (s *Auther) Login(ctx context.Context, email, password string) (string, error) {
	user, err := s.repo.Users().GetByEmail(ctx, email)
	if err != nil {
		if goerrors.IsNotFound(err) {
			return "", ErrInvalidCredentials
		}
		s.logger.Error("Login user lookup error: %v", err)
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load user")
	}

	if !user.Verified {
		return "", ErrInvalidCredentials
	}

	if err := ComparePasswordAndHash(password, user.PasswordHash); err != nil {
		return "", ErrInvalidCredentials
	}

	token, err := s.tokens.Generate(user.ID.String())
	if err != nil {
		s.logger.Error("Login token generation error: %v", err)
		return "", err
	}

	if err := s.repo.Users().StoreSessionToken(ctx, user.ID, token); err != nil {
		s.logger.Error("Login token persist error: %v", err)
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to store session token")
	}

	return token, nil
}

// Logout clears the stored token. The bearer token the caller presented
// stops passing the middleware immediately after.
func (s *Auther) Logout(ctx context.Context, user *User) error {
	if err := s.repo.Users().ClearSessionToken(ctx, user.ID); err != nil {
		if goerrors.IsNotFound(err) {
			return ErrUnauthorized
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to clear session token")
	}
	return nil
}

// Verify consumes a one-time verification token. A replayed or unknown
// token fails identically; the flow does not reveal whether the token
// ever existed.
func (s *Auther) Verify(ctx context.Context, token string) (*User, error) {
	user, err := s.repo.Users().GetByVerificationToken(ctx, token)
	if err != nil {
		if goerrors.IsNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to look up verification token")
	}

	if err := s.repo.Users().MarkVerified(ctx, user.ID); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to mark user verified")
	}

	user.Verified = true
	user.VerificationToken = ""

	return user, nil
}

// ResendVerification regenerates the one-time token for a still
// unverified account and dispatches a fresh mail.
func (s *Auther) ResendVerification(ctx context.Context, email string) error {
	user, err := s.repo.Users().GetByEmail(ctx, email)
	if err != nil {
		if goerrors.IsNotFound(err) {
			return ErrUserNotFound
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load user")
	}

	if user.Verified {
		return ErrAlreadyVerified
	}

	token := NewVerificationToken()
	if err := s.repo.Users().ResetVerificationToken(ctx, user.ID, token); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to reset verification token")
	}

	s.dispatchVerificationMail(user.Email, token)

	return nil
}

// ValidateBearer checks the token signature and expiry and returns the
// embedded user id. Middleware hook.
func (s *Auther) ValidateBearer(raw string) (string, error) {
	claims, err := s.tokens.Validate(raw)
	if err != nil {
		return "", err
	}
	return claims.UserID(), nil
}

// ResolveBearer loads the token's subject and confirms the presented
// token is the user's current one. A structurally valid but superseded
// token fails here, which is what makes logout and re-login invalidate
// prior tokens. Middleware hook; every failure maps to the same error.
func (s *Auther) ResolveBearer(ctx context.Context, userID, raw string) (any, error) {
	id, err := uuid.Parse(userID)
	if err != nil {
		return nil, ErrUnauthorized
	}

	user, err := s.repo.Users().GetByID(ctx, id.String())
	if err != nil {
		return nil, ErrUnauthorized
	}

	if user.Token == "" || user.Token != raw {
		return nil, ErrUnauthorized
	}

	return user, nil
}

func (s *Auther) dispatchVerificationMail(email, token string) {
	link := VerificationLink(s.cfg.GetBaseURL(), token)

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), mailTimeout)
		defer cancel()

		if err := s.mailer.SendVerification(ctx, email, link); err != nil {
			s.logger.Warn("verification mail delivery failed for %s: %v", email, err)
		}
	}()
}
