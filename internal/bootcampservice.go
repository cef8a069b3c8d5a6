package internal

import (
	"bytes"
	"fmt"
	"net/http"
	"path"
	"strings"

	"github.com/derWhity/devcamper/internal/ctxhelper"
	"github.com/derWhity/devcamper/internal/filestore"
	"github.com/derWhity/devcamper/internal/geocoder"
	"github.com/derWhity/devcamper/internal/log"
	"github.com/derWhity/devcamper/internal/models"
	"github.com/derWhity/devcamper/internal/policy"
	"github.com/derWhity/devcamper/internal/query"
	"github.com/derWhity/devcamper/internal/repos"
	"github.com/derWhity/devcamper/internal/validate"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

// BootcampService provides access to the bootcamps listed in the directory
type BootcampService interface {
	// List returns the requested page of bootcamps matching the query - including their courses
	List(ctx context.Context, d *query.Descriptor) (*query.Result, error)
	// Get returns the bootcamp with the given ID - including its courses
	Get(ctx context.Context, id string) (*models.Bootcamp, error)
	// GetByOwner returns the bootcamp published by the given user
	GetByOwner(ctx context.Context, userID string) (*models.Bootcamp, error)
	// Create publishes a new bootcamp owned by the current user
	Create(ctx context.Context, doc []byte) (*models.Bootcamp, error)
	// Update changes the bootcamp with the given ID using the fields of the JSON document
	Update(ctx context.Context, id string, doc []byte) (*models.Bootcamp, error)
	// Delete removes the bootcamp with the given ID together with its courses and reviews
	Delete(ctx context.Context, id string) error
	// UploadPhoto stores a new photo for the bootcamp with the given ID and returns its file name
	UploadPhoto(ctx context.Context, id string, up *Upload) (string, error)
}

// Upload is a file uploaded by the client
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// -- BootcampService implementation -----------------------------------------------------------------------------------

type bootcampService struct {
	logger      *logrus.Entry
	repo        repos.BootcampRepo
	courses     repos.CourseRepo
	geo         geocoder.Geocoder
	policy      *policy.Enforcer
	photos      filestore.Store
	maxFileSize int64
}

// NewBootcampService creates a new bootcamp service instance. Photos are stored in the given store and may not be
// larger than maxFileSize bytes.
func NewBootcampService(
	repo repos.BootcampRepo,
	courses repos.CourseRepo,
	geo geocoder.Geocoder,
	p *policy.Enforcer,
	photos filestore.Store,
	maxFileSize int64,
	logger *logrus.Entry,
) BootcampService {
	return &bootcampService{
		logger:      logger,
		repo:        repo,
		courses:     courses,
		geo:         geo,
		policy:      p,
		photos:      photos,
		maxFileSize: maxFileSize,
	}
}

func errBootcampNotFound(id string) *HTTPError {
	return errNotFound(ErrCodeBootcampNotFound, "Bootcamp", id)
}

// List returns the requested page of bootcamps matching the query
func (s *bootcampService) List(ctx context.Context, d *query.Descriptor) (*query.Result, error) {
	lister := populated[models.Bootcamp]{s.repo, fillCourses(s.courses)}
	res, err := query.Run[models.Bootcamp](ctx, lister, d)
	if err != nil {
		return nil, repoError(s.logger, err, nil, "Failed to load bootcamp information from storage")
	}
	return res, nil
}

// Get returns the bootcamp with the given ID
func (s *bootcampService) Get(ctx context.Context, id string) (*models.Bootcamp, error) {
	b, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	list := []models.Bootcamp{*b}
	if err := fillCourses(s.courses)(ctx, list); err != nil {
		return nil, repoError(s.logger, err, nil, "Failed to load course information from storage")
	}
	return &list[0], nil
}

// load returns the plain bootcamp
func (s *bootcampService) load(ctx context.Context, id string) (*models.Bootcamp, error) {
	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, repoError(s.logger, err, errBootcampNotFound(id), "Failed to load bootcamp information from storage")
	}
	return b, nil
}

// GetByOwner returns the bootcamp published by the given user
func (s *bootcampService) GetByOwner(ctx context.Context, userID string) (*models.Bootcamp, error) {
	list, err := s.repo.GetByOwner(ctx, userID)
	if err != nil {
		return nil, repoError(s.logger, err, nil, "Failed to load bootcamp information from storage")
	}
	if len(list) == 0 {
		return nil, MakeError(http.StatusNotFound, ErrCodeBootcampNotFound, "No bootcamp found for user "+userID)
	}
	return s.Get(ctx, list[0].ID)
}

// geocode resolves the address into the location of a bootcamp
func (s *bootcampService) geocode(ctx context.Context, address string) (*models.Location, error) {
	if s.geo == nil {
		return nil, &query.LookupError{Code: address, Err: geocoder.ErrNotConfigured}
	}
	res, err := s.geo.Geocode(ctx, address)
	if err != nil || len(res) == 0 {
		if err == nil || err == geocoder.ErrNoResults {
			return nil, &query.LookupError{Code: address, NotFound: true, Err: err}
		}
		return nil, &query.LookupError{Code: address, Err: err}
	}
	return models.LocationFromGeocode(res[0]), nil
}

// Create publishes a new bootcamp owned by the current user
func (s *bootcampService) Create(ctx context.Context, doc []byte) (*models.Bootcamp, error) {
	sub := currentSubject(ctx)
	if !s.policy.Can(sub, "", policy.ResBootcamp, policy.ActCreate) {
		return nil, errForbidden(sub.Role)
	}
	var b models.Bootcamp
	if err := decodeBody(validate.CreateBootcamp, doc, &b, protectedBootcampKeys); err != nil {
		return nil, err
	}
	// Only users allowed to manage foreign bootcamps may publish more than one
	if !s.policy.Can(sub, "", policy.ResBootcamp, policy.ActUpdate) {
		owned, err := s.repo.GetByOwner(ctx, sub.ID)
		if err != nil {
			return nil, repoError(s.logger, err, nil, "Failed to load bootcamp information from storage")
		}
		if len(owned) > 0 {
			return nil, MakeError(
				http.StatusBadRequest,
				ErrCodeIllegalValue,
				fmt.Sprintf("The user with ID %s has already published a bootcamp", sub.ID),
			)
		}
	}
	loc, err := s.geocode(ctx, b.Address)
	if err != nil {
		return nil, repoError(s.logger, err, nil, "Failed to geocode address")
	}
	b.Location = loc
	b.Slug = models.Slugify(b.Name)
	b.User = sub.ID
	if err := s.repo.Create(ctx, &b); err != nil {
		return nil, repoError(s.logger, err, nil, "Failed to store bootcamp")
	}
	ctxhelper.Logger(ctx).WithField(log.FldBootcamp, b.ID).Info("Bootcamp created")
	return &b, nil
}

// authorize loads the bootcamp and checks if the current user may perform the action on it
func (s *bootcampService) authorize(ctx context.Context, id, action string) (*models.Bootcamp, error) {
	b, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	sub := currentSubject(ctx)
	if !s.policy.Can(sub, b.User, policy.ResBootcamp, action) {
		return nil, MakeError(
			http.StatusForbidden,
			ErrCodeForbidden,
			fmt.Sprintf("User %s is not authorized to %s this bootcamp", sub.ID, action),
		)
	}
	return b, nil
}

// Update changes the bootcamp with the given ID using the fields of the JSON document
func (s *bootcampService) Update(ctx context.Context, id string, doc []byte) (*models.Bootcamp, error) {
	b, err := s.authorize(ctx, id, policy.ActUpdate)
	if err != nil {
		return nil, err
	}
	oldName, oldAddress := b.Name, b.Address
	if err := decodeBody(validate.UpdateBootcamp, doc, b, protectedBootcampKeys); err != nil {
		return nil, err
	}
	if b.Name != oldName {
		b.Slug = models.Slugify(b.Name)
	}
	if b.Address != oldAddress {
		if b.Location, err = s.geocode(ctx, b.Address); err != nil {
			return nil, repoError(s.logger, err, nil, "Failed to geocode address")
		}
	}
	if err := s.repo.Update(ctx, b); err != nil {
		return nil, repoError(s.logger, err, errBootcampNotFound(id), "Failed to update bootcamp")
	}
	return s.Get(ctx, id)
}

// Delete removes the bootcamp with the given ID together with its courses and reviews
func (s *bootcampService) Delete(ctx context.Context, id string) error {
	if _, err := s.authorize(ctx, id, policy.ActDelete); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return repoError(s.logger, err, errBootcampNotFound(id), "Failed to delete bootcamp")
	}
	ctxhelper.Logger(ctx).WithField(log.FldBootcamp, id).Info("Bootcamp deleted")
	return nil
}

// UploadPhoto stores a new photo for the bootcamp with the given ID and returns its file name
func (s *bootcampService) UploadPhoto(ctx context.Context, id string, up *Upload) (string, error) {
	b, err := s.authorize(ctx, id, policy.ActUpdate)
	if err != nil {
		return "", err
	}
	if up == nil || len(up.Data) == 0 {
		return "", MakeError(http.StatusBadRequest, ErrCodeUploadFailed, "Please upload a file")
	}
	if !strings.HasPrefix(up.ContentType, "image/") {
		return "", MakeError(http.StatusBadRequest, ErrCodeUploadFailed, "Please upload an image file")
	}
	if int64(len(up.Data)) > s.maxFileSize {
		return "", MakeError(
			http.StatusBadRequest,
			ErrCodeUploadFailed,
			fmt.Sprintf("Please upload an image less than %d bytes", s.maxFileSize),
		)
	}
	name := fmt.Sprintf("photo_%s%s", b.ID, path.Ext(path.Base(up.Filename)))
	if err := s.photos.Save(ctx, name, up.ContentType, bytes.NewReader(up.Data), int64(len(up.Data))); err != nil {
		s.logger.WithError(err).WithField(log.FldBootcamp, id).Error("Failed to store photo")
		return "", MakeError(http.StatusInternalServerError, ErrCodeUploadFailed, "Problem with file upload")
	}
	b.Photo = name
	if err := s.repo.Update(ctx, b); err != nil {
		return "", repoError(s.logger, err, errBootcampNotFound(id), "Failed to update bootcamp")
	}
	return name, nil
}
