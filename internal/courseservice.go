package internal

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/derWhity/devcamper/internal/ctxhelper"
	"github.com/derWhity/devcamper/internal/log"
	"github.com/derWhity/devcamper/internal/models"
	"github.com/derWhity/devcamper/internal/policy"
	"github.com/derWhity/devcamper/internal/query"
	"github.com/derWhity/devcamper/internal/repos"
	"github.com/derWhity/devcamper/internal/validate"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

// CourseService provides access to the courses offered by the bootcamps
type CourseService interface {
	// List returns the requested page of courses matching the query - including their bootcamp
	List(ctx context.Context, d *query.Descriptor) (*query.Result, error)
	// Get returns the course with the given ID - including its bootcamp
	Get(ctx context.Context, id string) (*models.Course, error)
	// Create adds a new course to a bootcamp. If no bootcamp ID is given, it is taken from the document's "bootcamp"
	// field.
	Create(ctx context.Context, bootcampID string, doc []byte) (*models.Course, error)
	// Update changes the course with the given ID using the fields of the JSON document
	Update(ctx context.Context, id string, doc []byte) (*models.Course, error)
	// Delete removes the course with the given ID
	Delete(ctx context.Context, id string) error
}

// -- CourseService implementation -------------------------------------------------------------------------------------

type courseService struct {
	logger    *logrus.Entry
	repo      repos.CourseRepo
	bootcamps repos.BootcampRepo
	policy    *policy.Enforcer
}

// NewCourseService creates a new course service instance
func NewCourseService(
	repo repos.CourseRepo,
	bootcamps repos.BootcampRepo,
	p *policy.Enforcer,
	logger *logrus.Entry,
) CourseService {
	return &courseService{logger, repo, bootcamps, p}
}

func errCourseNotFound(id string) *HTTPError {
	return errNotFound(ErrCodeCourseNotFound, "Course", id)
}

// List returns the requested page of courses matching the query
func (s *courseService) List(ctx context.Context, d *query.Descriptor) (*query.Result, error) {
	lister := populated[models.Course]{s.repo, fillBootcampRefs(s.bootcamps)}
	res, err := query.Run[models.Course](ctx, lister, d)
	if err != nil {
		return nil, repoError(s.logger, err, nil, "Failed to load course information from storage")
	}
	return res, nil
}

// Get returns the course with the given ID
func (s *courseService) Get(ctx context.Context, id string) (*models.Course, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, repoError(s.logger, err, errCourseNotFound(id), "Failed to load course information from storage")
	}
	list := []models.Course{*c}
	if err := fillBootcampRefs(s.bootcamps)(ctx, list); err != nil {
		return nil, repoError(s.logger, err, nil, "Failed to load bootcamp information from storage")
	}
	return &list[0], nil
}

// recompute updates the average cost of the bootcamp after its courses have changed
func (s *courseService) recompute(ctx context.Context, bootcampID string) error {
	if err := s.bootcamps.RecomputeAverages(ctx, bootcampID); err != nil {
		return repoError(s.logger, err, errBootcampNotFound(bootcampID), "Failed to update the average cost")
	}
	return nil
}

// Create adds a new course to a bootcamp
func (s *courseService) Create(ctx context.Context, bootcampID string, doc []byte) (*models.Course, error) {
	if bootcampID == "" {
		var ref struct {
			Bootcamp string `json:"bootcamp"`
		}
		if err := json.Unmarshal(doc, &ref); err != nil || ref.Bootcamp == "" {
			return nil, MakeError(http.StatusBadRequest, ErrCodeRequiredFieldMissing, "Missing bootcamp of the course")
		}
		bootcampID = ref.Bootcamp
	}
	b, err := s.bootcamps.GetByID(ctx, bootcampID)
	if err != nil {
		return nil, repoError(s.logger, err, errBootcampNotFound(bootcampID), "Failed to load bootcamp")
	}
	sub := currentSubject(ctx)
	if !s.policy.Can(sub, b.User, policy.ResCourse, policy.ActCreate) {
		return nil, MakeError(
			http.StatusForbidden,
			ErrCodeForbidden,
			fmt.Sprintf("User %s is not authorized to add a course to bootcamp %s", sub.ID, b.ID),
		)
	}
	var c models.Course
	if err := decodeBody(validate.CreateCourse, doc, &c, protectedCourseKeys); err != nil {
		return nil, err
	}
	c.BootcampID = b.ID
	c.User = sub.ID
	if err := s.repo.Create(ctx, &c); err != nil {
		return nil, repoError(s.logger, err, nil, "Failed to store course")
	}
	ctxhelper.Logger(ctx).WithFields(logrus.Fields{log.FldID: c.ID, log.FldBootcamp: b.ID}).Info("Course created")
	if err := s.recompute(ctx, b.ID); err != nil {
		return nil, err
	}
	return &c, nil
}

// authorize loads the course and checks if the current user may perform the action on it
func (s *courseService) authorize(ctx context.Context, id, action string) (*models.Course, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, repoError(s.logger, err, errCourseNotFound(id), "Failed to load course information from storage")
	}
	sub := currentSubject(ctx)
	if !s.policy.Can(sub, c.User, policy.ResCourse, action) {
		return nil, MakeError(
			http.StatusForbidden,
			ErrCodeForbidden,
			fmt.Sprintf("User %s is not authorized to %s course %s", sub.ID, action, c.ID),
		)
	}
	return c, nil
}

// Update changes the course with the given ID using the fields of the JSON document
func (s *courseService) Update(ctx context.Context, id string, doc []byte) (*models.Course, error) {
	c, err := s.authorize(ctx, id, policy.ActUpdate)
	if err != nil {
		return nil, err
	}
	if err := decodeBody(validate.UpdateCourse, doc, c, protectedCourseKeys); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, c); err != nil {
		return nil, repoError(s.logger, err, errCourseNotFound(id), "Failed to update course")
	}
	if err := s.recompute(ctx, c.BootcampID); err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// Delete removes the course with the given ID
func (s *courseService) Delete(ctx context.Context, id string) error {
	c, err := s.authorize(ctx, id, policy.ActDelete)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return repoError(s.logger, err, errCourseNotFound(id), "Failed to delete course")
	}
	return s.recompute(ctx, c.BootcampID)
}
