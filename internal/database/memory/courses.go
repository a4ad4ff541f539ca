package memory

import (
	"context"
	"sync"

	"tutora_back_end/internal/models"
)

type CourseCatalog struct {
	mu      sync.RWMutex
	courses map[string]models.Course
}

func NewCourseCatalog(seed ...models.Course) *CourseCatalog {
	c := &CourseCatalog{courses: make(map[string]models.Course)}
	for _, course := range seed {
		c.courses[course.ID] = course
	}
	return c
}

func (c *CourseCatalog) FindCourse(ctx context.Context, id string) (*models.Course, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	course, ok := c.courses[id]
	if !ok {
		return nil, nil
	}
	return &course, nil
}

func (c *CourseCatalog) Put(course models.Course) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.courses[course.ID] = course
}
