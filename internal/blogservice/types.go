package blogservice

import (
	"database/sql"
	"fmt"
	"strings"
	"time"
)

type BlogState string

const (
	StateDraft     BlogState = "draft"
	StatePublished BlogState = "published"
)

type Blog struct {
	ID          int       `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Tags        []string  `json:"tags"`
	Author      string    `json:"author"`
	OwnerID     int       `json:"owner"`
	State       BlogState `json:"state"`
	Body        string    `json:"body"`
	ReadCount   int       `json:"read_count"`
	ReadingTime int       `json:"reading_time"`
	CreatedAt   time.Time `json:"timestamp"`
	Owner       *Owner    `json:"user,omitempty"`
}

// Owner is the public projection of the owning user joined into blog
// reads. The password digest is never part of it.
type Owner struct {
	ID        int    `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
}

type BlogModel struct {
	db *sql.DB
}

type BlogService struct {
	m *BlogModel
}

type CreateBlogRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
	Author      string   `json:"author"`
	Body        string   `json:"body"`
	OwnerID     int      `json:"-"`
}

// UpdateBlogRequest carries one optional field per mutable blog
// attribute. A nil field was not provided and leaves the stored value
// alone; an empty string also means "no change". Tags differ: any
// tags array in the request, including an empty one, replaces the
// stored tags outright.
type UpdateBlogRequest struct {
	Title       *string  `json:"title"`
	Description *string  `json:"description"`
	Tags        []string `json:"tags"`
	Author      *string  `json:"author"`
	Body        *string  `json:"body"`
	State       *string  `json:"state"`
}

// Filters holds the query parameters shared by the blog list
// endpoints.
type Filters struct {
	Page   int
	Limit  int
	Author string
	Title  string
	Tags   []string
	Sort   string
}

func (f Filters) limit() int {
	if f.Limit < 1 {
		return 20
	}
	return f.Limit
}

func (f Filters) page() int {
	if f.Page < 1 {
		return 1
	}
	return f.Page
}

func (f Filters) offset() int {
	return (f.page() - 1) * f.limit()
}

var sortColumns = map[string]string{
	"read_count":   "read_count",
	"reading_time": "reading_time",
	"timestamp":    "created_at",
}

// orderClause maps a "field:asc|desc" sort parameter onto an ORDER BY
// clause. Unrecognised fields yield the empty string: no sort applied.
func (f Filters) orderClause() string {
	if f.Sort == "" {
		return ""
	}

	field, direction, _ := strings.Cut(f.Sort, ":")
	column, ok := sortColumns[field]
	if !ok {
		return ""
	}

	if direction == "desc" {
		return fmt.Sprintf(" ORDER BY b.%s DESC", column)
	}
	return fmt.Sprintf(" ORDER BY b.%s ASC", column)
}
