// Package sqlite provides a bootcamp repository that uses SQLite for storing bootcamps
package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/derWhity/devcamper/internal/log"
	"github.com/derWhity/devcamper/internal/models"
	"github.com/derWhity/devcamper/internal/query"
	"github.com/derWhity/devcamper/internal/repos"
	"github.com/derWhity/devcamper/internal/repos/sqlquery"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

const (
	// The field names in the bootcamp table
	fieldNames = `id, name, slug, description, website, phone, email, address, lat, lon, formattedAddress, street,
                    city, state, zipcode, country, careers, averageRating, averageCost, photo, housing, jobAssistance,
                    jobGuarantee, acceptGi, userId, createdAt`
)

var table = &sqlquery.Table{
	Name:      "Bootcamps",
	Schema:    repos.BootcampSchema,
	LatColumn: "lat",
	LonColumn: "lon",
}

// row is the flat database representation of a bootcamp
type row struct {
	ID               string          `db:"id"`
	Name             string          `db:"name"`
	Slug             string          `db:"slug"`
	Description      string          `db:"description"`
	Website          string          `db:"website"`
	Phone            string          `db:"phone"`
	Email            string          `db:"email"`
	Address          string          `db:"address"`
	Lat              sql.NullFloat64 `db:"lat"`
	Lon              sql.NullFloat64 `db:"lon"`
	FormattedAddress string          `db:"formattedAddress"`
	Street           string          `db:"street"`
	City             string          `db:"city"`
	State            string          `db:"state"`
	Zipcode          string          `db:"zipcode"`
	Country          string          `db:"country"`
	Careers          string          `db:"careers"`
	AverageRating    sql.NullFloat64 `db:"averageRating"`
	AverageCost      sql.NullFloat64 `db:"averageCost"`
	Photo            string          `db:"photo"`
	Housing          bool            `db:"housing"`
	JobAssistance    bool            `db:"jobAssistance"`
	JobGuarantee     bool            `db:"jobGuarantee"`
	AcceptGi         bool            `db:"acceptGi"`
	UserID           string          `db:"userId"`
	CreatedAt        time.Time       `db:"createdAt"`
}

func toRow(b *models.Bootcamp) (*row, error) {
	careers := b.Careers
	if careers == nil {
		careers = []string{}
	}
	rawCareers, err := json.Marshal(careers)
	if err != nil {
		return nil, errors.Wrap(err, "toRow: cannot serialize careers")
	}
	r := &row{
		ID: b.ID, Name: b.Name, Slug: b.Slug, Description: b.Description, Website: b.Website, Phone: b.Phone,
		Email: b.Email, Address: b.Address, Careers: string(rawCareers), AverageRating: nullFloat(b.AverageRating),
		AverageCost: nullFloat(b.AverageCost), Photo: b.Photo, Housing: b.Housing, JobAssistance: b.JobAssistance,
		JobGuarantee: b.JobGuarantee, AcceptGi: b.AcceptGi, UserID: b.User, CreatedAt: b.CreatedAt,
	}
	if l := b.Location; l != nil {
		if len(l.Coordinates) >= 2 {
			p := l.Point()
			r.Lat = sql.NullFloat64{Float64: p.Lat, Valid: true}
			r.Lon = sql.NullFloat64{Float64: p.Lon, Valid: true}
		}
		r.FormattedAddress, r.Street, r.City, r.State, r.Zipcode, r.Country =
			l.FormattedAddress, l.Street, l.City, l.State, l.Zipcode, l.Country
	}
	return r, nil
}

func (r *row) toModel() (models.Bootcamp, error) {
	b := models.Bootcamp{
		ID: r.ID, Name: r.Name, Slug: r.Slug, Description: r.Description, Website: r.Website, Phone: r.Phone,
		Email: r.Email, Address: r.Address, Photo: r.Photo, Housing: r.Housing, JobAssistance: r.JobAssistance,
		JobGuarantee: r.JobGuarantee, AcceptGi: r.AcceptGi, User: r.UserID, CreatedAt: r.CreatedAt,
		AverageRating: floatPtr(r.AverageRating), AverageCost: floatPtr(r.AverageCost),
	}
	if err := json.Unmarshal([]byte(r.Careers), &b.Careers); err != nil {
		return b, errors.Wrapf(err, "toModel: illegal careers in bootcamp %s", r.ID)
	}
	if r.Lat.Valid && r.Lon.Valid {
		b.Location = models.NewLocation(r.Lat.Float64, r.Lon.Float64)
	} else if r.FormattedAddress != "" {
		b.Location = &models.Location{Type: models.GeoJSONPoint}
	}
	if b.Location != nil {
		b.Location.FormattedAddress, b.Location.Street, b.Location.City = r.FormattedAddress, r.Street, r.City
		b.Location.State, b.Location.Zipcode, b.Location.Country = r.State, r.Zipcode, r.Country
	}
	return b, nil
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func floatPtr(f sql.NullFloat64) *float64 {
	if !f.Valid {
		return nil
	}
	v := f.Float64
	return &v
}

// BootcampRepo implements repos.BootcampRepo and provides access to bootcamps stored inside a SQLite database
type BootcampRepo struct {
	logger  *logrus.Entry
	db      *sqlx.DB
	timeout time.Duration
}

// New creates a new BootcampRepo
func New(db *sqlx.DB, timeout time.Duration, logger *logrus.Entry) repos.BootcampRepo {
	return &BootcampRepo{logger, db, timeout}
}

// Count returns the number of bootcamps matching the descriptor
func (r *BootcampRepo) Count(ctx context.Context, d *query.Descriptor) (int, error) {
	ctx, cancel := repos.WithTimeout(ctx, r.timeout)
	defer cancel()
	stmt, args, err := table.Count(d)
	if err != nil {
		return 0, err
	}
	var num int
	if err := r.db.GetContext(ctx, &num, stmt, args...); err != nil {
		return 0, err
	}
	return num, nil
}

// Find returns the requested page of bootcamps matching the descriptor
func (r *BootcampRepo) Find(ctx context.Context, d *query.Descriptor) ([]models.Bootcamp, error) {
	r.logger.WithFields(logrus.Fields{
		log.FldPage:  d.Page,
		log.FldLimit: d.Limit,
	}).Debug("Searching for bootcamps")
	ctx, cancel := repos.WithTimeout(ctx, r.timeout)
	defer cancel()
	stmt, args, err := table.Select(fieldNames, d)
	if err != nil {
		return nil, err
	}
	return r.selectBootcamps(ctx, stmt, args...)
}

func (r *BootcampRepo) selectBootcamps(ctx context.Context, stmt string, args ...interface{}) ([]models.Bootcamp, error) {
	var rows []row
	if err := r.db.SelectContext(ctx, &rows, stmt, args...); err != nil {
		return nil, err
	}
	ret := make([]models.Bootcamp, 0, len(rows))
	for _, rw := range rows {
		b, err := rw.toModel()
		if err != nil {
			return nil, err
		}
		ret = append(ret, b)
	}
	return ret, nil
}

// Create creates a new bootcamp
func (r *BootcampRepo) Create(ctx context.Context, b *models.Bootcamp) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now().UTC()
	}
	if b.Photo == "" {
		b.Photo = models.DefaultPhoto
	}
	r.logger.WithField(log.FldBootcamp, b.ID).Debug("Creating bootcamp")
	rw, err := toRow(b)
	if err != nil {
		return err
	}
	ctx, cancel := repos.WithTimeout(ctx, r.timeout)
	defer cancel()
	stmt := fmt.Sprintf(`INSERT INTO Bootcamps(%s) VALUES(
        :id, :name, :slug, :description, :website, :phone, :email, :address, :lat, :lon, :formattedAddress, :street,
        :city, :state, :zipcode, :country, :careers, :averageRating, :averageCost, :photo, :housing, :jobAssistance,
        :jobGuarantee, :acceptGi, :userId, :createdAt
    )`, fieldNames)
	_, err = r.db.NamedExecContext(ctx, stmt, rw)
	if sqlquery.IsUniqueViolation(err) {
		return repos.ErrDuplicate
	}
	return err
}

// Update updates an existing bootcamp. The averages are not touched - they are maintained by RecomputeAverages.
func (r *BootcampRepo) Update(ctx context.Context, b *models.Bootcamp) error {
	r.logger.WithField(log.FldBootcamp, b.ID).Debug("Updating bootcamp")
	rw, err := toRow(b)
	if err != nil {
		return err
	}
	ctx, cancel := repos.WithTimeout(ctx, r.timeout)
	defer cancel()
	stmt := `UPDATE Bootcamps SET
        name = :name, slug = :slug, description = :description, website = :website, phone = :phone, email = :email,
        address = :address, lat = :lat, lon = :lon, formattedAddress = :formattedAddress, street = :street,
        city = :city, state = :state, zipcode = :zipcode, country = :country, careers = :careers, photo = :photo,
        housing = :housing, jobAssistance = :jobAssistance, jobGuarantee = :jobGuarantee, acceptGi = :acceptGi,
        userId = :userId
    WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, stmt, rw)
	if err != nil {
		if sqlquery.IsUniqueViolation(err) {
			return repos.ErrDuplicate
		}
		return err
	}
	if num, err := res.RowsAffected(); err != nil || num == 0 {
		if err != nil {
			return fmt.Errorf("Update: Failed to get number of updated rows: %v", err)
		}
		return repos.ErrEntityNotExisting
	}
	return nil
}

// Delete removes a bootcamp together with its courses and reviews
func (r *BootcampRepo) Delete(ctx context.Context, id string) error {
	r.logger.WithField(log.FldBootcamp, id).Debug("Deleting bootcamp")
	ctx, cancel := repos.WithTimeout(ctx, r.timeout)
	defer cancel()
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	for _, stmt := range []string{"DELETE FROM Courses WHERE bootcampId = ?", "DELETE FROM Reviews WHERE bootcampId = ?"} {
		if _, err := tx.ExecContext(ctx, stmt, id); err != nil {
			return repos.DoRollback(tx, err)
		}
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM Bootcamps WHERE id = ?", id)
	if err != nil {
		return repos.DoRollback(tx, err)
	}
	if num, err := res.RowsAffected(); err != nil || num == 0 {
		if err != nil {
			return repos.DoRollback(tx, err)
		}
		return repos.DoRollback(tx, repos.ErrEntityNotExisting)
	}
	return tx.Commit()
}

// GetByID returns the bootcamp with the given ID
func (r *BootcampRepo) GetByID(ctx context.Context, id string) (*models.Bootcamp, error) {
	ctx, cancel := repos.WithTimeout(ctx, r.timeout)
	defer cancel()
	var rw row
	err := r.db.GetContext(ctx, &rw, fmt.Sprintf("SELECT %s FROM Bootcamps WHERE id = ?", fieldNames), id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, repos.ErrEntityNotExisting
		}
		return nil, err
	}
	b, err := rw.toModel()
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// GetByOwner returns all bootcamps owned by the given user - oldest first
func (r *BootcampRepo) GetByOwner(ctx context.Context, userID string) ([]models.Bootcamp, error) {
	ctx, cancel := repos.WithTimeout(ctx, r.timeout)
	defer cancel()
	stmt := fmt.Sprintf("SELECT %s FROM Bootcamps WHERE userId = ? ORDER BY createdAt, id", fieldNames)
	return r.selectBootcamps(ctx, stmt, userID)
}

// RecomputeAverages updates the average course cost (rounded up) and the average rating of the given bootcamp. The
// averages are removed if there are no courses or reviews left.
func (r *BootcampRepo) RecomputeAverages(ctx context.Context, id string) error {
	r.logger.WithField(log.FldBootcamp, id).Debug("Recomputing bootcamp averages")
	ctx, cancel := repos.WithTimeout(ctx, r.timeout)
	defer cancel()
	var avgCost, avgRating sql.NullFloat64
	if err := r.db.GetContext(ctx, &avgCost, "SELECT AVG(tuition) FROM Courses WHERE bootcampId = ?", id); err != nil {
		return errors.Wrap(err, "RecomputeAverages: cannot compute average cost")
	}
	if err := r.db.GetContext(ctx, &avgRating, "SELECT AVG(rating) FROM Reviews WHERE bootcampId = ?", id); err != nil {
		return errors.Wrap(err, "RecomputeAverages: cannot compute average rating")
	}
	if avgCost.Valid {
		avgCost.Float64 = math.Ceil(avgCost.Float64)
	}
	res, err := r.db.ExecContext(ctx, "UPDATE Bootcamps SET averageCost = ?, averageRating = ? WHERE id = ?",
		avgCost, avgRating, id)
	if err != nil {
		return err
	}
	if num, _ := res.RowsAffected(); num == 0 {
		return repos.ErrEntityNotExisting
	}
	return nil
}

// Purge removes all bootcamps and everything attached to them
func (r *BootcampRepo) Purge(ctx context.Context) error {
	for _, stmt := range []string{"DELETE FROM Courses", "DELETE FROM Reviews", "DELETE FROM Bootcamps"} {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return errors.Wrap(err, "Purge: "+strings.Fields(stmt)[2])
		}
	}
	return nil
}
