package scylla

import (
	"context"

	"github.com/gocql/gocql"
	"github.com/pkg/errors"

	"tutora_back_end/internal/models"
)

// CourseCatalog lit la vue catalogue maintenue par le service des cours
type CourseCatalog struct {
	session *gocql.Session
}

func NewCourseCatalog(session *gocql.Session) *CourseCatalog {
	return &CourseCatalog{session: session}
}

func (c *CourseCatalog) FindCourse(ctx context.Context, id string) (*models.Course, error) {
	var (
		course models.Course
		cents  int64
	)
	err := c.session.Query(`SELECT course_id, title, price_cents, verified FROM courses WHERE course_id = ?`, id).
		WithContext(ctx).
		Scan(&course.ID, &course.Title, &cents, &course.Verified)
	if errors.Is(err, gocql.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "lecture cours")
	}
	course.Price = models.FromMinorUnits(cents)
	return &course, nil
}
