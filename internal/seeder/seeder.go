// Package seeder imports fixture data into the storage and removes all data again
package seeder

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/derWhity/devcamper/internal/geocoder"
	"github.com/derWhity/devcamper/internal/log"
	"github.com/derWhity/devcamper/internal/models"
	"github.com/derWhity/devcamper/internal/repos"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

// Names of the fixture files inside the import directory
const (
	UsersFile     = "users.json"
	BootcampsFile = "bootcamps.json"
	CoursesFile   = "courses.json"
	ReviewsFile   = "reviews.json"
)

// Seeder fills the repositories with fixture data
type Seeder struct {
	logger    *logrus.Entry
	users     repos.UserRepo
	bootcamps repos.BootcampRepo
	courses   repos.CourseRepo
	reviews   repos.ReviewRepo
	geo       geocoder.Geocoder
}

// New creates a seeder working on the given repositories. Bootcamp addresses are resolved using the geocoder.
func New(
	ur repos.UserRepo,
	br repos.BootcampRepo,
	cr repos.CourseRepo,
	rr repos.ReviewRepo,
	geo geocoder.Geocoder,
	logger *logrus.Entry,
) *Seeder {
	return &Seeder{logger, ur, br, cr, rr, geo}
}

// Fixture records may use the "_id" key of the original data files
type fixtureID struct {
	ID    string `json:"id"`
	OldID string `json:"_id"`
}

func (f fixtureID) get() string {
	if f.ID != "" {
		return f.ID
	}
	return f.OldID
}

type userFixture struct {
	fixtureID
	Name     string `json:"name"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	Password string `json:"password"`
}

type bootcampFixture struct {
	OldID string `json:"_id"`
	models.Bootcamp
}

type courseFixture struct {
	fixtureID
	Title                string  `json:"title"`
	Description          string  `json:"description"`
	Weeks                string  `json:"weeks"`
	Tuition              float64 `json:"tuition"`
	MinimumSkill         string  `json:"minimumSkill"`
	ScholarshipAvailable bool    `json:"scholarshipAvailable"`
	Bootcamp             string  `json:"bootcamp"`
	User                 string  `json:"user"`
}

type reviewFixture struct {
	fixtureID
	Title    string `json:"title"`
	Text     string `json:"text"`
	Rating   int    `json:"rating"`
	Bootcamp string `json:"bootcamp"`
	User     string `json:"user"`
}

// readFixture decodes a fixture file. Missing files result in false without error.
func (s *Seeder) readFixture(dir, name string, v interface{}) (bool, error) {
	fileName := filepath.Join(dir, name)
	logger := s.logger.WithField(log.FldFile, fileName)
	f, err := os.Open(fileName)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Info("Fixture file does not exist - skipping")
			return false, nil
		}
		return false, errors.Wrapf(err, "readFixture: cannot open %s", fileName)
	}
	defer f.Close()
	if err := json.NewDecoder(f).Decode(v); err != nil {
		return false, errors.Wrapf(err, "readFixture: cannot decode %s", fileName)
	}
	logger.Info("Importing fixture file")
	return true, nil
}

// Import reads the fixture files from the directory and stores their records. Files that do not exist are skipped.
func (s *Seeder) Import(ctx context.Context, dir string) error {
	var users []userFixture
	if ok, err := s.readFixture(dir, UsersFile, &users); err != nil {
		return err
	} else if ok {
		for _, f := range users {
			u := models.User{ID: f.get(), Name: f.Name, Email: f.Email, Role: f.Role}
			if u.Role == "" {
				u.Role = models.RoleUser
			}
			if err := u.SetPassword(f.Password); err != nil {
				return errors.Wrapf(err, "Import: cannot set password of user %s", f.Email)
			}
			if err := s.users.Create(ctx, &u); err != nil {
				return errors.Wrapf(err, "Import: cannot create user %s", f.Email)
			}
		}
	}

	var bootcamps []bootcampFixture
	if ok, err := s.readFixture(dir, BootcampsFile, &bootcamps); err != nil {
		return err
	} else if ok {
		for _, f := range bootcamps {
			b := f.Bootcamp
			if b.ID == "" {
				b.ID = f.OldID
			}
			b.Slug = models.Slugify(b.Name)
			b.AverageCost, b.AverageRating, b.Courses = nil, nil, nil
			if b.Location == nil && b.Address != "" {
				b.Location = s.locate(ctx, b.Address)
			}
			if err := s.bootcamps.Create(ctx, &b); err != nil {
				return errors.Wrapf(err, "Import: cannot create bootcamp %s", b.Name)
			}
		}
	}

	touched := map[string]bool{}
	var courses []courseFixture
	if ok, err := s.readFixture(dir, CoursesFile, &courses); err != nil {
		return err
	} else if ok {
		for _, f := range courses {
			c := models.Course{
				ID:                   f.get(),
				Title:                f.Title,
				Description:          f.Description,
				Weeks:                f.Weeks,
				Tuition:              f.Tuition,
				MinimumSkill:         f.MinimumSkill,
				ScholarshipAvailable: f.ScholarshipAvailable,
				BootcampID:           f.Bootcamp,
				User:                 f.User,
			}
			if err := s.courses.Create(ctx, &c); err != nil {
				return errors.Wrapf(err, "Import: cannot create course %s", c.Title)
			}
			touched[c.BootcampID] = true
		}
	}

	var reviews []reviewFixture
	if ok, err := s.readFixture(dir, ReviewsFile, &reviews); err != nil {
		return err
	} else if ok {
		for _, f := range reviews {
			r := models.Review{
				ID:       f.get(),
				Title:    f.Title,
				Text:     f.Text,
				Rating:   f.Rating,
				Bootcamp: f.Bootcamp,
				UserID:   f.User,
			}
			if err := s.reviews.Create(ctx, &r); err != nil {
				return errors.Wrapf(err, "Import: cannot create review %s", r.Title)
			}
			touched[r.Bootcamp] = true
		}
	}

	for id := range touched {
		if err := s.bootcamps.RecomputeAverages(ctx, id); err != nil {
			return errors.Wrapf(err, "Import: cannot compute the averages of bootcamp %s", id)
		}
	}
	s.logger.WithFields(logrus.Fields{
		"users":     len(users),
		"bootcamps": len(bootcamps),
		"courses":   len(courses),
		"reviews":   len(reviews),
	}).Info("Fixture data imported")
	return nil
}

// locate resolves the address of an imported bootcamp - bootcamps whose address cannot be resolved are imported
// without location
func (s *Seeder) locate(ctx context.Context, address string) *models.Location {
	if s.geo == nil {
		return nil
	}
	res, err := s.geo.Geocode(ctx, address)
	if err != nil || len(res) == 0 {
		s.logger.WithError(err).WithField(log.FldAddress, address).Warn("Cannot resolve bootcamp address")
		return nil
	}
	return models.LocationFromGeocode(res[0])
}

// Destroy removes all data from the repositories
func (s *Seeder) Destroy(ctx context.Context) error {
	if err := s.reviews.Purge(ctx); err != nil {
		return errors.Wrap(err, "Destroy: cannot remove reviews")
	}
	if err := s.courses.Purge(ctx); err != nil {
		return errors.Wrap(err, "Destroy: cannot remove courses")
	}
	if err := s.bootcamps.Purge(ctx); err != nil {
		return errors.Wrap(err, "Destroy: cannot remove bootcamps")
	}
	if err := s.users.Purge(ctx); err != nil {
		return errors.Wrap(err, "Destroy: cannot remove users")
	}
	s.logger.Info("All data destroyed")
	return nil
}

// EnsureAdmin creates the administrator account if no user with its e-mail address exists
func (s *Seeder) EnsureAdmin(ctx context.Context, name, email, password string) error {
	_, err := s.users.GetByEmail(ctx, email)
	if err == nil {
		return nil
	}
	if errors.Cause(err) != repos.ErrEntityNotExisting {
		return errors.Wrap(err, "EnsureAdmin: cannot look up administrator")
	}
	u := models.User{Name: name, Email: email, Role: models.RoleAdmin}
	if err := u.SetPassword(password); err != nil {
		return errors.Wrap(err, "EnsureAdmin: cannot set password")
	}
	if err := s.users.Create(ctx, &u); err != nil {
		return errors.Wrap(err, "EnsureAdmin: cannot create administrator")
	}
	s.logger.WithFields(logrus.Fields{log.FldID: u.ID, log.FldEmail: u.Email}).Info("Created administrator account")
	return nil
}
