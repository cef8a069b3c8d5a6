package internal

import (
	"fmt"
	"net/http"

	"github.com/derWhity/devcamper/internal/models"
	"github.com/derWhity/devcamper/internal/policy"
	"github.com/derWhity/devcamper/internal/query"
	"github.com/derWhity/devcamper/internal/repos"
	"github.com/derWhity/devcamper/internal/validate"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

// ReviewService provides access to the reviews users have written about bootcamps
type ReviewService interface {
	// List returns the requested page of reviews matching the query - including their authors
	List(ctx context.Context, d *query.Descriptor) (*query.Result, error)
	// Get returns the review with the given ID
	Get(ctx context.Context, id string) (*models.Review, error)
	// Create adds a review of the current user to the bootcamp. Every user can review a bootcamp only once.
	Create(ctx context.Context, bootcampID string, doc []byte) (*models.Review, error)
	// Update changes the review with the given ID using the fields of the JSON document
	Update(ctx context.Context, id string, doc []byte) (*models.Review, error)
	// Delete removes the review with the given ID
	Delete(ctx context.Context, id string) error
}

// -- ReviewService implementation -------------------------------------------------------------------------------------

type reviewService struct {
	logger    *logrus.Entry
	repo      repos.ReviewRepo
	bootcamps repos.BootcampRepo
	users     repos.UserRepo
	policy    *policy.Enforcer
}

// NewReviewService creates a new review service instance
func NewReviewService(
	repo repos.ReviewRepo,
	bootcamps repos.BootcampRepo,
	users repos.UserRepo,
	p *policy.Enforcer,
	logger *logrus.Entry,
) ReviewService {
	return &reviewService{logger, repo, bootcamps, users, p}
}

func errReviewNotFound(id string) *HTTPError {
	return errNotFound(ErrCodeReviewNotFound, "Review", id)
}

// List returns the requested page of reviews matching the query
func (s *reviewService) List(ctx context.Context, d *query.Descriptor) (*query.Result, error) {
	lister := populated[models.Review]{s.repo, fillUserRefs(s.users)}
	res, err := query.Run[models.Review](ctx, lister, d)
	if err != nil {
		return nil, repoError(s.logger, err, nil, "Failed to load review information from storage")
	}
	return res, nil
}

// Get returns the review with the given ID
func (s *reviewService) Get(ctx context.Context, id string) (*models.Review, error) {
	r, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, repoError(s.logger, err, errReviewNotFound(id), "Failed to load review information from storage")
	}
	list := []models.Review{*r}
	if err := fillUserRefs(s.users)(ctx, list); err != nil {
		return nil, repoError(s.logger, err, nil, "Failed to load user information from storage")
	}
	return &list[0], nil
}

// recompute updates the average rating of the bootcamp after its reviews have changed
func (s *reviewService) recompute(ctx context.Context, bootcampID string) error {
	if err := s.bootcamps.RecomputeAverages(ctx, bootcampID); err != nil {
		return repoError(s.logger, err, errBootcampNotFound(bootcampID), "Failed to update the average rating")
	}
	return nil
}

// Create adds a review of the current user to the bootcamp
func (s *reviewService) Create(ctx context.Context, bootcampID string, doc []byte) (*models.Review, error) {
	sub := currentSubject(ctx)
	if !s.policy.Can(sub, "", policy.ResReview, policy.ActCreate) {
		return nil, errForbidden(sub.Role)
	}
	b, err := s.bootcamps.GetByID(ctx, bootcampID)
	if err != nil {
		return nil, repoError(s.logger, err, errBootcampNotFound(bootcampID), "Failed to load bootcamp")
	}
	var r models.Review
	if err := decodeBody(validate.CreateReview, doc, &r, protectedReviewKeys); err != nil {
		return nil, err
	}
	r.Bootcamp = b.ID
	r.UserID = sub.ID
	if err := s.repo.Create(ctx, &r); err != nil {
		return nil, repoError(s.logger, err, nil, "Failed to store review")
	}
	if err := s.recompute(ctx, b.ID); err != nil {
		return nil, err
	}
	return &r, nil
}

// authorize loads the review and checks if the current user may perform the action on it
func (s *reviewService) authorize(ctx context.Context, id, action string) (*models.Review, error) {
	r, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, repoError(s.logger, err, errReviewNotFound(id), "Failed to load review information from storage")
	}
	sub := currentSubject(ctx)
	if !s.policy.Can(sub, r.UserID, policy.ResReview, action) {
		return nil, MakeError(
			http.StatusForbidden,
			ErrCodeForbidden,
			fmt.Sprintf("User %s is not authorized to %s review %s", sub.ID, action, r.ID),
		)
	}
	return r, nil
}

// Update changes the review with the given ID using the fields of the JSON document
func (s *reviewService) Update(ctx context.Context, id string, doc []byte) (*models.Review, error) {
	r, err := s.authorize(ctx, id, policy.ActUpdate)
	if err != nil {
		return nil, err
	}
	if err := decodeBody(validate.UpdateReview, doc, r, protectedReviewKeys); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, r); err != nil {
		return nil, repoError(s.logger, err, errReviewNotFound(id), "Failed to update review")
	}
	if err := s.recompute(ctx, r.Bootcamp); err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// Delete removes the review with the given ID
func (s *reviewService) Delete(ctx context.Context, id string) error {
	r, err := s.authorize(ctx, id, policy.ActDelete)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return repoError(s.logger, err, errReviewNotFound(id), "Failed to delete review")
	}
	return s.recompute(ctx, r.Bootcamp)
}
