// Package auth implements account signup, verification, login and the
// bearer-token gate in front of protected routes.
package auth

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront/internal/config"
	"storefront/internal/models"
	"storefront/internal/notify"
	"storefront/internal/store"
)

// ForgotPasswordMessage is returned whether or not the address has an account.
const ForgotPasswordMessage = "If a user with that email exists, a password reset link has been sent."

const defaultUserAgent = "unknown"

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

type Options struct {
	Users    store.UserRepository
	Tokens   *TokenIssuer
	Notifier Notifier
	// Google is optional. When nil, Google flows trust the email and
	// googleId sent by the client.
	Google      GoogleVerifier
	Factors     config.Factors
	FrontendURL string
	Logger      zerolog.Logger

	// StrictGoogle refuses Google flows while Google is nil instead of
	// trusting the client.
	StrictGoogle bool
}

type Service struct {
	users        store.UserRepository
	tokens       *TokenIssuer
	notifier     Notifier
	google       GoogleVerifier
	strictGoogle bool
	factors      config.Factors
	frontendURL  string
	logger       zerolog.Logger
	now          func() time.Time
}

func NewService(opts Options) *Service {
	return &Service{
		users:        opts.Users,
		tokens:       opts.Tokens,
		notifier:     opts.Notifier,
		google:       opts.Google,
		strictGoogle: opts.StrictGoogle,
		factors:      opts.Factors,
		frontendURL:  strings.TrimRight(opts.FrontendURL, "/"),
		logger:       opts.Logger,
		now:          time.Now,
	}
}

// Result is returned by every flow that authenticates the caller. SessionID
// is empty for tokens that are not bound to a session.
type Result struct {
	Token     string
	SessionID string
	User      *models.User
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *Service) findByEmail(ctx context.Context, email string) (*models.User, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	return user, err
}

type SignupInput struct {
	Name      string
	Email     string
	Password  string
	Phone     string
	UserAgent string
}

// Signup creates an unverified account and sends the verification code. The
// returned token carries no session.
func (s *Service) Signup(ctx context.Context, in SignupInput) (*Result, error) {
	name := strings.TrimSpace(in.Name)
	email := normalizeEmail(in.Email)
	phone := strings.TrimSpace(in.Phone)

	var missing []string
	if name == "" {
		missing = append(missing, "name is required")
	}
	if email == "" {
		missing = append(missing, "email is required")
	}
	if in.Password == "" {
		missing = append(missing, "password is required")
	}
	if s.factors.RequiresPhone() && phone == "" {
		missing = append(missing, "phone is required")
	}
	if len(missing) > 0 {
		return nil, invalid(missing...)
	}
	if !emailPattern.MatchString(email) {
		return nil, invalid("Invalid email format")
	}

	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	if phone != "" {
		taken, err := s.users.ExistsByPhone(ctx, phone)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, ErrPhoneTaken
		}
	}

	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{
		Name:        name,
		Email:       email,
		Phone:       phone,
		Role:        models.RoleUser,
		Credentials: []models.Credential{models.PasswordCredential(hash)},
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, s.duplicateSignup(ctx, email, phone)
		}
		return nil, err
	}

	if err := s.issueOTP(ctx, user, false); err != nil {
		return nil, err
	}

	token, err := s.tokens.Issue(user.ID, "")
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}

	s.logger.Info().Str("userId", user.ID.Hex()).Msg("user signed up")
	return &Result{Token: token, User: user}, nil
}

// duplicateSignup reports which unique field a concurrent signup claimed
// between the pre-checks and the insert.
func (s *Service) duplicateSignup(ctx context.Context, email, phone string) error {
	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return ErrEmailTaken
	}
	if phone != "" {
		if taken, err := s.users.ExistsByPhone(ctx, phone); err == nil && taken {
			return ErrPhoneTaken
		}
	}
	return ErrEmailTaken
}

// issueOTP stores a fresh code, replacing any earlier one, and delivers it.
// Delivery failures do not roll back the stored code.
func (s *Service) issueOTP(ctx context.Context, user *models.User, resent bool) error {
	code, err := generateOTP()
	if err != nil {
		return fmt.Errorf("generate otp: %w", err)
	}
	expires := s.now().Add(OTPTTL)

	if err := s.users.SetOTP(ctx, user.ID, code, expires); err != nil {
		return err
	}
	user.OTP = code
	user.OTPExpires = &expires

	msg, err := notify.OTPEmail(code, int(OTPTTL/time.Minute), resent)
	if err != nil {
		return err
	}
	if err := s.notifier.SendEmail(ctx, user.Email, msg); err != nil {
		return fmt.Errorf("send otp email: %w", err)
	}

	if s.factors.RequiresPhone() && user.Phone != "" {
		if err := s.notifier.SendSMS(ctx, user.Phone); err != nil {
			return fmt.Errorf("send otp sms: %w", err)
		}
	}
	return nil
}

type VerifyOTPInput struct {
	Email     string
	EmailOTP  string
	Phone     string
	PhoneOTP  string
	UserAgent string
}

// VerifyOTP consumes the email code (and the SMS code when phone is a
// required factor), marks the user verified and starts a session.
func (s *Service) VerifyOTP(ctx context.Context, in VerifyOTPInput) (*Result, error) {
	email := normalizeEmail(in.Email)
	code := strings.TrimSpace(in.EmailOTP)
	if email == "" || code == "" {
		return nil, invalid("Email and email OTP are required.")
	}

	user, err := s.findByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user.IsVerified {
		return nil, ErrAlreadyVerified
	}
	if user.OTP == "" {
		return nil, ErrInvalidOTP
	}
	if user.OTP != code {
		cleared, err := s.users.RecordOTPFailure(ctx, user.ID, MaxOTPAttempts)
		if err != nil {
			return nil, err
		}
		if cleared {
			s.logger.Warn().Str("userId", user.ID.Hex()).Msg("otp cleared after repeated failures")
		}
		return nil, ErrInvalidOTP
	}
	if user.OTPExpires == nil || s.now().After(*user.OTPExpires) {
		return nil, ErrOTPExpired
	}

	if s.factors.RequiresPhone() {
		phone := strings.TrimSpace(in.Phone)
		if phone == "" {
			phone = user.Phone
		}
		phoneCode := strings.TrimSpace(in.PhoneOTP)
		if phone == "" || phoneCode == "" {
			return nil, invalid("Phone and phone OTP are required.")
		}
		approved, err := s.notifier.VerifySMS(ctx, phone, phoneCode)
		if err != nil {
			return nil, err
		}
		if !approved {
			return nil, ErrInvalidPhoneOTP
		}
	}

	consumed, err := s.users.ConsumeOTP(ctx, user.ID, code)
	if err != nil {
		return nil, err
	}
	if !consumed {
		return nil, ErrInvalidOTP
	}
	user.IsVerified = true
	user.OTP = ""
	user.OTPExpires = nil

	s.logger.Info().Str("userId", user.ID.Hex()).Msg("user verified")
	return s.startSession(ctx, user, in.UserAgent)
}

func (s *Service) ResendOTP(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if email == "" {
		return invalid("Email is required.")
	}

	user, err := s.findByEmail(ctx, email)
	if err != nil {
		return err
	}
	if user.IsVerified {
		return ErrAlreadyVerified
	}
	return s.issueOTP(ctx, user, true)
}

// SendPhoneOTP starts an SMS verification for any phone number.
func (s *Service) SendPhoneOTP(ctx context.Context, phone string) error {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return invalid("Phone number is required.")
	}
	return s.notifier.SendSMS(ctx, phone)
}

type LoginInput struct {
	Email     string
	Password  string
	UserAgent string
}

func (s *Service) Login(ctx context.Context, in LoginInput) (*Result, error) {
	email := normalizeEmail(in.Email)
	if email == "" || in.Password == "" {
		return nil, invalid("Email and password are required.")
	}

	user, err := s.findByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	hash, ok := user.PasswordHash()
	if !ok || !ComparePassword(hash, in.Password) {
		s.logger.Warn().Str("userId", user.ID.Hex()).Msg("login rejected")
		return nil, ErrInvalidCredentials
	}

	return s.startSession(ctx, user, in.UserAgent)
}

// createSession records a new session and evicts the oldest ones beyond
// MaxSessions in the same write.
func (s *Service) createSession(ctx context.Context, userID primitive.ObjectID, userAgent string) (models.Session, error) {
	id, err := newSessionID()
	if err != nil {
		return models.Session{}, fmt.Errorf("generate session id: %w", err)
	}
	userAgent = strings.TrimSpace(userAgent)
	if userAgent == "" {
		userAgent = defaultUserAgent
	}

	session := models.Session{SessionID: id, UserAgent: userAgent, CreatedAt: s.now()}
	if err := s.users.PushSession(ctx, userID, session, MaxSessions); err != nil {
		return models.Session{}, err
	}
	return session, nil
}

func (s *Service) startSession(ctx context.Context, user *models.User, userAgent string) (*Result, error) {
	session, err := s.createSession(ctx, user.ID, userAgent)
	if err != nil {
		return nil, err
	}

	token, err := s.tokens.Issue(user.ID, session.SessionID)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}

	user.Sessions = append(user.Sessions, session)
	if len(user.Sessions) > MaxSessions {
		user.Sessions = user.Sessions[len(user.Sessions)-MaxSessions:]
	}

	s.logger.Info().Str("userId", user.ID.Hex()).Str("sessionId", session.SessionID).Msg("session started")
	return &Result{Token: token, SessionID: session.SessionID, User: user}, nil
}

type GoogleInput struct {
	Name      string
	Email     string
	GoogleID  string
	PhotoURL  string
	IDToken   string
	UserAgent string
}

// resolveGoogle returns the email and Google account id of the caller.
func (s *Service) resolveGoogle(ctx context.Context, in GoogleInput) (string, string, error) {
	if s.google == nil {
		if s.strictGoogle {
			return "", "", ErrGoogleUnavailable
		}
		email := normalizeEmail(in.Email)
		googleID := strings.TrimSpace(in.GoogleID)
		if email == "" || googleID == "" {
			return "", "", invalid("Email and Google ID are required.")
		}
		return email, googleID, nil
	}

	if strings.TrimSpace(in.IDToken) == "" {
		return "", "", invalid("idToken is required.")
	}
	identity, err := s.google.Verify(ctx, in.IDToken)
	if err != nil {
		if errors.Is(err, ErrInvalidGoogleAudience) || errors.Is(err, ErrTokenInvalid) {
			return "", "", err
		}
		return "", "", fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	if !identity.EmailVerified {
		return "", "", ErrGoogleEmailUnverified
	}
	return normalizeEmail(identity.Email), identity.Subject, nil
}

// linkGoogle checks googleID against the account and links it when the
// account is verified and has no Google credential yet.
func (s *Service) linkGoogle(ctx context.Context, user *models.User, googleID string) error {
	if existing, ok := user.ExternalID(models.ProviderGoogle); ok {
		if existing != googleID {
			return ErrGoogleMismatch
		}
		return nil
	}
	if !user.IsVerified {
		return ErrGoogleMismatch
	}

	cred := models.ExternalCredential(models.ProviderGoogle, googleID)
	if err := s.users.AddCredential(ctx, user.ID, cred); err != nil {
		return err
	}
	user.Credentials = append(user.Credentials, cred)
	s.logger.Info().Str("userId", user.ID.Hex()).Msg("google account linked")
	return nil
}

// GoogleSignup creates a verified account for a new Google user. Existing
// accounts go through the same checks as GoogleLogin.
func (s *Service) GoogleSignup(ctx context.Context, in GoogleInput) (*Result, error) {
	email, googleID, err := s.resolveGoogle(ctx, in)
	if err != nil {
		return nil, err
	}

	user, err := s.users.FindByEmail(ctx, email)
	switch {
	case err == nil:
		if err := s.linkGoogle(ctx, user, googleID); err != nil {
			return nil, err
		}
	case errors.Is(err, store.ErrNotFound):
		name := strings.TrimSpace(in.Name)
		if name == "" {
			name = strings.SplitN(email, "@", 2)[0]
		}
		user = &models.User{
			Name:        name,
			Email:       email,
			Role:        models.RoleUser,
			Credentials: []models.Credential{models.ExternalCredential(models.ProviderGoogle, googleID)},
			IsVerified:  true,
			PhotoURL:    strings.TrimSpace(in.PhotoURL),
		}
		if err := s.users.Create(ctx, user); err != nil {
			if errors.Is(err, store.ErrDuplicate) {
				return nil, ErrEmailTaken
			}
			return nil, err
		}
		s.logger.Info().Str("userId", user.ID.Hex()).Msg("google user signed up")
	default:
		return nil, err
	}

	return s.startSession(ctx, user, in.UserAgent)
}

func (s *Service) GoogleLogin(ctx context.Context, in GoogleInput) (*Result, error) {
	email, googleID, err := s.resolveGoogle(ctx, in)
	if err != nil {
		return nil, err
	}

	user, err := s.users.FindByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNoGoogleAccount
	}
	if err != nil {
		return nil, err
	}
	if err := s.linkGoogle(ctx, user, googleID); err != nil {
		return nil, err
	}

	return s.startSession(ctx, user, in.UserAgent)
}

// ForgotPassword emails a reset link when the address has an account. Callers
// respond with ForgotPasswordMessage either way.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if email == "" {
		return invalid("Email is required.")
	}

	user, err := s.users.FindByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	raw, err := newResetToken()
	if err != nil {
		return fmt.Errorf("generate reset token: %w", err)
	}
	if err := s.users.SetResetToken(ctx, user.ID, hashToken(raw), s.now().Add(ResetTokenTTL)); err != nil {
		return err
	}

	link := s.frontendURL + "/reset-password/" + raw
	msg, err := notify.PasswordResetEmail(link, int(ResetTokenTTL/time.Minute))
	if err != nil {
		return err
	}
	if err := s.notifier.SendEmail(ctx, user.Email, msg); err != nil {
		return fmt.Errorf("send reset email: %w", err)
	}

	s.logger.Info().Str("userId", user.ID.Hex()).Msg("password reset requested")
	return nil
}

// ResetPassword replaces the password of the account holding rawToken. The
// returned token is not bound to a session.
func (s *Service) ResetPassword(ctx context.Context, rawToken, password string) (string, error) {
	if len(password) < MinPasswordLength {
		return "", invalid(fmt.Sprintf("Password must be at least %d characters.", MinPasswordLength))
	}
	rawToken = strings.TrimSpace(rawToken)
	if rawToken == "" {
		return "", ErrInvalidOrExpiredToken
	}

	user, err := s.users.FindByResetToken(ctx, hashToken(rawToken), s.now())
	if errors.Is(err, store.ErrNotFound) {
		return "", ErrInvalidOrExpiredToken
	}
	if err != nil {
		return "", err
	}

	hash, err := HashPassword(password)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	if err := s.users.SetPassword(ctx, user.ID, hash); err != nil {
		return "", err
	}
	if err := s.users.ClearResetToken(ctx, user.ID); err != nil {
		return "", err
	}

	token, err := s.tokens.Issue(user.ID, "")
	if err != nil {
		return "", fmt.Errorf("issue token: %w", err)
	}

	s.logger.Info().Str("userId", user.ID.Hex()).Msg("password reset")
	return token, nil
}

// Authenticate resolves an Authorization header to the calling principal.
// Tokens bound to a session stop working once that session is evicted.
func (s *Service) Authenticate(ctx context.Context, header string) (Principal, error) {
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return Principal{}, ErrNoToken
	}

	subject, err := s.tokens.Parse(parts[1])
	if err != nil {
		return Principal{}, err
	}

	user, err := s.users.FindByID(ctx, subject.UserID)
	if errors.Is(err, store.ErrNotFound) {
		return Principal{}, ErrUserNotFound
	}
	if err != nil {
		return Principal{}, err
	}

	if subject.SessionID != "" && !user.HasSession(subject.SessionID) {
		return Principal{}, ErrSessionExpired
	}

	return Principal{
		UserID:    user.ID,
		Email:     user.Email,
		Role:      user.Role,
		SessionID: subject.SessionID,
	}, nil
}

// Logout revokes the caller's session. Tokens without a session are a no-op.
func (s *Service) Logout(ctx context.Context, p Principal) error {
	if p.SessionID == "" {
		return nil
	}
	if err := s.users.RemoveSession(ctx, p.UserID, p.SessionID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	s.logger.Info().Str("userId", p.UserID.Hex()).Str("sessionId", p.SessionID).Msg("session ended")
	return nil
}

func (s *Service) Me(ctx context.Context, userID primitive.ObjectID) (*models.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	return user, err
}
