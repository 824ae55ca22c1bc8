package pagination

import (
	"strconv"

	"github.com/classpod/core/internal/pkg/response"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const (
	defaultSize = 10
	maxSize     = 100
)

// Query is a sanitized page request. Zero values never reach the database;
// FromContext clamps everything into range.
type Query struct {
	Page int
	Size int
}

// FromContext reads ?page= and ?size= from the request. Garbage and
// out-of-range values fall back to sane defaults instead of erroring, so a
// sloppy client still gets a first page.
func FromContext(c *gin.Context) Query {
	q := Query{
		Page: atoiDefault(c.Query("page"), 1),
		Size: atoiDefault(c.Query("size"), defaultSize),
	}
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Size < 1 {
		q.Size = defaultSize
	} else if q.Size > maxSize {
		q.Size = maxSize
	}
	return q
}

func (q Query) offset() int { return (q.Page - 1) * q.Size }

// Paginate counts the full result set, loads the requested page into dest
// and builds the response metadata. The count runs on a detached session so
// it does not leak clauses into the page query.
func Paginate[T any](tx *gorm.DB, q Query, dest *[]T) (response.Pagination, error) {
	var total int64
	if err := tx.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return response.Pagination{}, err
	}

	if err := tx.Offset(q.offset()).Limit(q.Size).Find(dest).Error; err != nil {
		return response.Pagination{}, err
	}

	pages := int(total / int64(q.Size))
	if total%int64(q.Size) != 0 {
		pages++
	}
	return response.Pagination{
		Total:       total,
		CurrentPage: q.Page,
		TotalPage:   pages,
		Size:        q.Size,
		HasNextPage: q.Page < pages,
	}, nil
}

func atoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
