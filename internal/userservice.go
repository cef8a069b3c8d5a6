package internal

import (
	"net/http"

	"github.com/derWhity/devcamper/internal/ctxhelper"
	"github.com/derWhity/devcamper/internal/log"
	"github.com/derWhity/devcamper/internal/models"
	"github.com/derWhity/devcamper/internal/query"
	"github.com/derWhity/devcamper/internal/repos"
	"github.com/derWhity/devcamper/internal/validate"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

// UserService gives administrators access to all user accounts
type UserService interface {
	// List returns the requested page of users matching the query
	List(ctx context.Context, d *query.Descriptor) (*query.Result, error)
	// Get returns the user with the given ID
	Get(ctx context.Context, id string) (*models.User, error)
	// Create creates a new user from the given JSON document
	Create(ctx context.Context, doc []byte) (*models.User, error)
	// Update changes the user with the given ID using the fields of the JSON document
	Update(ctx context.Context, id string, doc []byte) (*models.User, error)
	// Delete removes the user with the given ID
	Delete(ctx context.Context, id string) error
}

// -- UserService implementation ---------------------------------------------------------------------------------------

// userFields are the fields of a user an administrator may set
type userFields struct {
	Name     *string `json:"name"`
	Email    *string `json:"email"`
	Role     *string `json:"role"`
	Password *string `json:"password"`
}

type userService struct {
	logger *logrus.Entry
	repo   repos.UserRepo
}

// NewUserService creates a new user service instance
func NewUserService(repo repos.UserRepo, logger *logrus.Entry) UserService {
	return &userService{logger, repo}
}

func (f *userFields) applyTo(u *models.User) error {
	if f.Name != nil {
		u.Name = validate.Sanitize(*f.Name)
	}
	if f.Email != nil {
		u.Email = *f.Email
	}
	if f.Role != nil {
		u.Role = *f.Role
	}
	if f.Password != nil {
		return u.SetPassword(*f.Password)
	}
	return nil
}

// List returns the requested page of users matching the query
func (s *userService) List(ctx context.Context, d *query.Descriptor) (*query.Result, error) {
	res, err := query.Run[models.User](ctx, s.repo, d)
	if err != nil {
		return nil, repoError(s.logger, err, nil, "Failed to load user information from storage")
	}
	return res, nil
}

// Get returns the user with the given ID
func (s *userService) Get(ctx context.Context, id string) (*models.User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, repoError(
			s.logger,
			err,
			errNotFound(ErrCodeUserNotFound, "User", id),
			"Failed to load user information from storage",
		)
	}
	return u, nil
}

// Create creates a new user from the given JSON document
func (s *userService) Create(ctx context.Context, doc []byte) (*models.User, error) {
	var req userFields
	doc, err := stripKeys(doc, protectedUserKeys...)
	if err != nil {
		return nil, errValidation(err)
	}
	if err := validate.CreateUser.Decode(doc, &req); err != nil {
		return nil, errValidation(err)
	}
	u := models.User{Role: models.RoleUser}
	if err := req.applyTo(&u); err != nil {
		s.logger.WithError(err).Error("Failed to hash password")
		return nil, MakeError(http.StatusInternalServerError, ErrCodeUnknown, "Failed to create user")
	}
	if err := s.repo.Create(ctx, &u); err != nil {
		return nil, repoError(s.logger, err, nil, "Failed to store user")
	}
	ctxhelper.Logger(ctx).WithFields(logrus.Fields{log.FldID: u.ID, log.FldRole: u.Role}).Info("User created")
	return &u, nil
}

// Update changes the user with the given ID using the fields of the JSON document
func (s *userService) Update(ctx context.Context, id string, doc []byte) (*models.User, error) {
	var req userFields
	doc, err := stripKeys(doc, protectedUserKeys...)
	if err != nil {
		return nil, errValidation(err)
	}
	if err := validate.UpdateUser.Decode(doc, &req); err != nil {
		return nil, errValidation(err)
	}
	u, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := req.applyTo(u); err != nil {
		s.logger.WithError(err).Error("Failed to hash password")
		return nil, MakeError(http.StatusInternalServerError, ErrCodeUnknown, "Failed to update user")
	}
	if err := s.repo.Update(ctx, u); err != nil {
		return nil, repoError(s.logger, err, errNotFound(ErrCodeUserNotFound, "User", id), "Failed to update user")
	}
	return u, nil
}

// Delete removes the user with the given ID
func (s *userService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return repoError(s.logger, err, errNotFound(ErrCodeUserNotFound, "User", id), "Failed to delete user")
	}
	ctxhelper.Logger(ctx).WithField(log.FldID, id).Info("User deleted")
	return nil
}
