package internal

import (
	"github.com/derWhity/devcamper/internal/models"
	"github.com/derWhity/devcamper/internal/query"
	"github.com/derWhity/devcamper/internal/repos"
	"golang.org/x/net/context"
)

// populated wraps a lister and fills the references of every fetched page
type populated[T any] struct {
	query.Lister[T]
	fill func(ctx context.Context, items []T) error
}

// Find returns the requested page with all references filled
func (p populated[T]) Find(ctx context.Context, d *query.Descriptor) ([]T, error) {
	items, err := p.Lister.Find(ctx, d)
	if err != nil {
		return nil, err
	}
	if err := p.fill(ctx, items); err != nil {
		return nil, err
	}
	return items, nil
}

// byIDs builds a descriptor selecting all records with one of the given IDs
func byIDs(ids []string) *query.Descriptor {
	return &query.Descriptor{
		Filters: []query.Condition{{Field: query.IDField, Op: query.OpIn, Values: ids}},
		Page:    query.DefaultPage,
	}
}

// uniqueIDs returns the distinct, non-empty IDs in order of appearance
func uniqueIDs(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	ret := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != "" && !seen[id] {
			seen[id] = true
			ret = append(ret, id)
		}
	}
	return ret
}

// fillCourses attaches the courses of every bootcamp
func fillCourses(courses repos.CourseRepo) func(context.Context, []models.Bootcamp) error {
	return func(ctx context.Context, bootcamps []models.Bootcamp) error {
		if len(bootcamps) == 0 {
			return nil
		}
		ids := make([]string, len(bootcamps))
		for i := range bootcamps {
			ids[i] = bootcamps[i].ID
		}
		list, err := courses.ListByBootcamps(ctx, ids)
		if err != nil {
			return err
		}
		byBootcamp := make(map[string][]models.Course)
		for _, c := range list {
			byBootcamp[c.BootcampID] = append(byBootcamp[c.BootcampID], c)
		}
		for i := range bootcamps {
			bootcamps[i].Courses = byBootcamp[bootcamps[i].ID]
		}
		return nil
	}
}

// fillBootcampRefs attaches the short form of the offering bootcamp to every course
func fillBootcampRefs(bootcamps repos.BootcampRepo) func(context.Context, []models.Course) error {
	return func(ctx context.Context, courses []models.Course) error {
		ids := make([]string, len(courses))
		for i := range courses {
			ids[i] = courses[i].BootcampID
		}
		ids = uniqueIDs(ids)
		if len(ids) == 0 {
			return nil
		}
		list, err := bootcamps.Find(ctx, byIDs(ids))
		if err != nil {
			return err
		}
		refs := make(map[string]*models.BootcampRef, len(list))
		for i := range list {
			refs[list[i].ID] = list[i].Ref()
		}
		for i := range courses {
			courses[i].Bootcamp = refs[courses[i].BootcampID]
		}
		return nil
	}
}

// fillUserRefs attaches the short form of the author to every review
func fillUserRefs(users repos.UserRepo) func(context.Context, []models.Review) error {
	return func(ctx context.Context, reviews []models.Review) error {
		ids := make([]string, len(reviews))
		for i := range reviews {
			ids[i] = reviews[i].UserID
		}
		ids = uniqueIDs(ids)
		if len(ids) == 0 {
			return nil
		}
		list, err := users.Find(ctx, byIDs(ids))
		if err != nil {
			return err
		}
		refs := make(map[string]*models.UserRef, len(list))
		for i := range list {
			refs[list[i].ID] = list[i].Ref()
		}
		for i := range reviews {
			reviews[i].User = refs[reviews[i].UserID]
		}
		return nil
	}
}
