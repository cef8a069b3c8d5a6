package internal

import (
	"net/http"
	"strings"
	"time"

	"github.com/derWhity/devcamper/internal/ctxhelper"
	"github.com/derWhity/devcamper/internal/log"
	"github.com/derWhity/devcamper/internal/mailer"
	"github.com/derWhity/devcamper/internal/models"
	"github.com/derWhity/devcamper/internal/repos"
	"github.com/derWhity/devcamper/internal/token"
	"github.com/derWhity/devcamper/internal/validate"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

// AuthService provides the functions a user needs to manage the own account and session
type AuthService interface {
	// Register creates a new user account and logs the user in
	Register(ctx context.Context, doc []byte) (*SessionInfo, error)
	// Login tries to log-in the user with the given credentials and returns the info about the created session if login
	// was successful
	Login(ctx context.Context, doc []byte) (*SessionInfo, error)
	// Logout ends the session of the current call
	Logout(ctx context.Context) error
	// Current returns the user logged in for the current call
	Current(ctx context.Context) (*models.User, error)
	// UpdateDetails changes name and e-mail address of the current user
	UpdateDetails(ctx context.Context, doc []byte) (*models.User, error)
	// UpdatePassword changes the password of the current user after checking the current one. A new session is
	// returned.
	UpdatePassword(ctx context.Context, doc []byte) (*SessionInfo, error)
	// ForgotPassword sends a password reset link to the user with the given e-mail address
	ForgotPassword(ctx context.Context, doc []byte) error
	// ResetPassword sets a new password using a reset token and logs the user in
	ResetPassword(ctx context.Context, resetToken string, doc []byte) (*SessionInfo, error)
	// Authenticate returns the session and user carried by the given token. Invalid, expired or revoked tokens result
	// in nil values without error.
	// This service function will be used internally and does not have an endpoint
	Authenticate(ctx context.Context, tok string) (*models.Session, *models.User, error)
}

// -- AuthService implementation ---------------------------------------------------------------------------------------

// SessionInfo is returned whenever a session is created. It contains the signed token identifying the session.
type SessionInfo struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authService struct {
	logger    *logrus.Entry
	users     repos.UserRepo
	sessions  repos.SessionRepo
	issuer    *token.Issuer
	mail      mailer.Mailer
	publicURL string
	now       func() time.Time
}

// NewAuthService creates a new auth service instance. Password reset links point to the given public URL.
func NewAuthService(
	ur repos.UserRepo,
	sr repos.SessionRepo,
	issuer *token.Issuer,
	mail mailer.Mailer,
	publicURL string,
	logger *logrus.Entry,
) AuthService {
	return &authService{
		logger:    logger,
		users:     ur,
		sessions:  sr,
		issuer:    issuer,
		mail:      mail,
		publicURL: strings.TrimRight(publicURL, "/"),
		now:       time.Now,
	}
}

// issue creates a new session for the user
func (s *authService) issue(u *models.User) (*SessionInfo, error) {
	tok, sess, err := s.issuer.Issue(u)
	if err != nil {
		s.logger.WithError(err).WithField(log.FldUser, u.ID).Error("Failed to issue token")
		return nil, MakeError(http.StatusInternalServerError, ErrCodeUnknown, "Failed to create session")
	}
	return &SessionInfo{Token: tok, ExpiresAt: sess.ExpiresAt}, nil
}

// currentUser loads the user of the current call from storage
func (s *authService) currentUser(ctx context.Context) (*models.User, error) {
	u := ctxhelper.User(ctx)
	if u == nil {
		return nil, ErrNotAuthorized
	}
	fresh, err := s.users.GetByID(ctx, u.ID)
	if err != nil {
		return nil, repoError(s.logger, err, errNotFound(ErrCodeUserNotFound, "User", u.ID), "Failed to load user")
	}
	return fresh, nil
}

// Register creates a new user account and logs the user in
func (s *authService) Register(ctx context.Context, doc []byte) (*SessionInfo, error) {
	var req struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
		Role     string `json:"role"`
	}
	if err := validate.Register.Decode(doc, &req); err != nil {
		return nil, errValidation(err)
	}
	u := models.User{
		Name:  validate.Sanitize(req.Name),
		Email: req.Email,
		Role:  req.Role,
	}
	if u.Role == "" {
		u.Role = models.RoleUser
	}
	if err := u.SetPassword(req.Password); err != nil {
		s.logger.WithError(err).Error("Failed to hash password")
		return nil, MakeError(http.StatusInternalServerError, ErrCodeUnknown, "Failed to register user")
	}
	if err := s.users.Create(ctx, &u); err != nil {
		return nil, repoError(s.logger, err, nil, "Failed to store user")
	}
	ctxhelper.Logger(ctx).WithFields(logrus.Fields{log.FldUser: u.ID, log.FldRole: u.Role}).Info("User registered")
	return s.issue(&u)
}

// Login tries to log-in the user with the given credentials and returns the info about the created session if login
// was successful
func (s *authService) Login(ctx context.Context, doc []byte) (*SessionInfo, error) {
	var req credentials
	if err := validate.Login.Decode(doc, &req); err != nil {
		return nil, errValidation(err)
	}
	errLogin := MakeError(http.StatusUnauthorized, ErrCodeLoginFailed, "Invalid credentials")
	u, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		return nil, repoError(s.logger, err, errLogin, "Failed to authenticate user")
	}
	if err := u.CheckPassword(req.Password); err != nil {
		ctxhelper.Logger(ctx).WithField(log.FldEmail, req.Email).Info("Login failed")
		return nil, errLogin
	}
	return s.issue(u)
}

// Logout ends the session of the current call
func (s *authService) Logout(ctx context.Context) error {
	sess := ctxhelper.Session(ctx)
	if sess == nil {
		return ErrNotAuthorized
	}
	if err := s.sessions.Revoke(sess); err != nil {
		s.logger.WithError(err).Error("Failed to revoke session")
		return MakeError(http.StatusInternalServerError, ErrCodeUnknown, "Failed to logout")
	}
	return nil
}

// Current returns the user logged in for the current call
func (s *authService) Current(ctx context.Context) (*models.User, error) {
	return s.currentUser(ctx)
}

// UpdateDetails changes name and e-mail address of the current user
func (s *authService) UpdateDetails(ctx context.Context, doc []byte) (*models.User, error) {
	var req struct {
		Name  string `json:"name"`
		Email string `json:"email"`
	}
	if err := validate.UpdateDetails.DecodeClean(doc, &req); err != nil {
		return nil, errValidation(err)
	}
	u, err := s.currentUser(ctx)
	if err != nil {
		return nil, err
	}
	if req.Name != "" {
		u.Name = req.Name
	}
	if req.Email != "" {
		u.Email = req.Email
	}
	if err := s.users.Update(ctx, u); err != nil {
		return nil, repoError(s.logger, err, errNotFound(ErrCodeUserNotFound, "User", u.ID), "Failed to update user")
	}
	return u, nil
}

// UpdatePassword changes the password of the current user after checking the current one
func (s *authService) UpdatePassword(ctx context.Context, doc []byte) (*SessionInfo, error) {
	var req struct {
		CurrentPassword string `json:"currentPassword"`
		NewPassword     string `json:"newPassword"`
	}
	if err := validate.UpdatePassword.Decode(doc, &req); err != nil {
		return nil, errValidation(err)
	}
	u, err := s.currentUser(ctx)
	if err != nil {
		return nil, err
	}
	if err := u.CheckPassword(req.CurrentPassword); err != nil {
		return nil, MakeError(http.StatusUnauthorized, ErrCodeLoginFailed, "Password is incorrect")
	}
	if err := u.SetPassword(req.NewPassword); err != nil {
		s.logger.WithError(err).Error("Failed to hash password")
		return nil, MakeError(http.StatusInternalServerError, ErrCodeUnknown, "Failed to update password")
	}
	if err := s.users.Update(ctx, u); err != nil {
		return nil, repoError(s.logger, err, errNotFound(ErrCodeUserNotFound, "User", u.ID), "Failed to update user")
	}
	return s.issue(u)
}

// ForgotPassword sends a password reset link to the user with the given e-mail address
func (s *authService) ForgotPassword(ctx context.Context, doc []byte) error {
	var req credentials
	if err := validate.ForgotPassword.Decode(doc, &req); err != nil {
		return errValidation(err)
	}
	u, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		return repoError(
			s.logger,
			err,
			MakeError(http.StatusNotFound, ErrCodeUserNotFound, "There is no user with that email"),
			"Failed to load user",
		)
	}
	resetToken, err := u.NewResetToken(s.now())
	if err != nil {
		s.logger.WithError(err).Error("Failed to create reset token")
		return MakeError(http.StatusInternalServerError, ErrCodeUnknown, "Failed to create reset token")
	}
	if err := s.users.Update(ctx, u); err != nil {
		return repoError(s.logger, err, nil, "Failed to store reset token")
	}
	link := s.publicURL + apiBasePath + "/auth/password/" + resetToken
	msg := mailer.Message{
		To:      u.Email,
		Subject: "Password reset token",
		Body: "You are receiving this email because you (or someone else) has requested the reset of a password. " +
			"Please make a PUT request to: \n\n" + link,
	}
	if err := s.mail.Send(ctx, msg); err != nil {
		s.logger.WithError(err).WithField(log.FldUser, u.ID).Error("Failed to send reset mail")
		u.ClearResetToken()
		if err := s.users.Update(ctx, u); err != nil {
			s.logger.WithError(err).WithField(log.FldUser, u.ID).Error("Failed to remove reset token")
		}
		return MakeError(http.StatusInternalServerError, ErrCodeMailFailed, "Email could not be sent")
	}
	return nil
}

// ResetPassword sets a new password using a reset token and logs the user in
func (s *authService) ResetPassword(ctx context.Context, resetToken string, doc []byte) (*SessionInfo, error) {
	var req credentials
	if err := validate.ResetPassword.Decode(doc, &req); err != nil {
		return nil, errValidation(err)
	}
	u, err := s.users.GetByResetToken(ctx, models.HashResetToken(resetToken), s.now())
	if err != nil {
		return nil, repoError(
			s.logger,
			err,
			MakeError(http.StatusBadRequest, ErrCodeTokenNotFound, "Invalid token"),
			"Failed to load user",
		)
	}
	if err := u.SetPassword(req.Password); err != nil {
		s.logger.WithError(err).Error("Failed to hash password")
		return nil, MakeError(http.StatusInternalServerError, ErrCodeUnknown, "Failed to reset password")
	}
	u.ClearResetToken()
	if err := s.users.Update(ctx, u); err != nil {
		return nil, repoError(s.logger, err, nil, "Failed to update user")
	}
	return s.issue(u)
}

// Authenticate returns the session and user carried by the given token
func (s *authService) Authenticate(ctx context.Context, tok string) (*models.Session, *models.User, error) {
	sess, err := s.issuer.Parse(tok)
	if err != nil {
		if err == token.ErrInvalid {
			return nil, nil, nil
		}
		return nil, nil, err
	}
	if s.sessions.IsRevoked(sess.ID) {
		return nil, nil, nil
	}
	u, err := s.users.GetByID(ctx, sess.UserID)
	if err != nil {
		if err == repos.ErrEntityNotExisting {
			return nil, nil, nil
		}
		s.logger.WithError(err).Error("Failed to retrieve user data from repo")
		return nil, nil, MakeError(
			http.StatusInternalServerError,
			ErrCodeRepoError,
			"Failed to retrieve user information from storage",
		)
	}
	return sess, u, nil
}
