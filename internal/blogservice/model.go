package blogservice

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
)

var (
	ErrRecordNotFound = errors.New("record not found")
	ErrUserForeignKey = errors.New("owner does not exist")
)

func newBlogModel(db *sql.DB) *BlogModel {
	return &BlogModel{db: db}
}

// ForeignKeyError reports whether err is a foreign key constraint
// violation on the named constraint.
func ForeignKeyError(err error, name string) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		if pqErr.Code == "23503" && pqErr.Constraint == name {
			return true
		}
	}

	return false
}

const blogColumns = `b.id, b.title, b.description, b.tags, b.author, b.owner_id, b.state, b.body, b.read_count, b.reading_time, b.created_at,
		u.id, u.first_name, u.last_name, u.email`

func scanBlog(row interface{ Scan(...any) error }) (*Blog, error) {
	var blog Blog
	var owner Owner

	err := row.Scan(
		&blog.ID,
		&blog.Title,
		&blog.Description,
		pq.Array(&blog.Tags),
		&blog.Author,
		&blog.OwnerID,
		&blog.State,
		&blog.Body,
		&blog.ReadCount,
		&blog.ReadingTime,
		&blog.CreatedAt,
		&owner.ID,
		&owner.FirstName,
		&owner.LastName,
		&owner.Email,
	)
	if err != nil {
		return nil, err
	}

	blog.Owner = &owner
	return &blog, nil
}

func (m *BlogModel) insert(ctx context.Context, blog *Blog) error {
	query := `
		INSERT INTO blogs (title, description, tags, author, owner_id, state, body, reading_time)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, read_count, created_at`

	args := []any{
		blog.Title,
		blog.Description,
		pq.Array(blog.Tags),
		blog.Author,
		blog.OwnerID,
		blog.State,
		blog.Body,
		blog.ReadingTime,
	}

	err := m.db.QueryRowContext(ctx, query, args...).Scan(&blog.ID, &blog.ReadCount, &blog.CreatedAt)
	if err != nil {
		switch {
		case ForeignKeyError(err, "blogs_owner_id_fkey"):
			return ErrUserForeignKey
		default:
			return err
		}
	}

	return nil
}

// getBlogByID fetches a blog regardless of state. Used by the
// ownership check, never exposed to unauthenticated reads.
func (m *BlogModel) getBlogByID(ctx context.Context, id int) (*Blog, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM blogs b
		JOIN users u ON b.owner_id = u.id
		WHERE b.id = $1`, blogColumns)

	blog, err := scanBlog(m.db.QueryRowContext(ctx, query, id))
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, ErrRecordNotFound
		default:
			return nil, err
		}
	}

	return blog, nil
}

// getVisibleBlog fetches a blog that is either published or a draft
// owned by the viewer. A missing row and an inaccessible row are the
// same ErrRecordNotFound.
func (m *BlogModel) getVisibleBlog(ctx context.Context, id, viewerID int) (*Blog, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM blogs b
		JOIN users u ON b.owner_id = u.id
		WHERE b.id = $1 AND (b.state = 'published' OR (b.state = 'draft' AND b.owner_id = $2))`, blogColumns)

	blog, err := scanBlog(m.db.QueryRowContext(ctx, query, id, viewerID))
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, ErrRecordNotFound
		default:
			return nil, err
		}
	}

	return blog, nil
}

// incrementReadCount bumps the counter in a separate statement from
// the preceding read. Concurrent fetches of the same blog can race and
// under-count; that is accepted.
func (m *BlogModel) incrementReadCount(ctx context.Context, id int) error {
	query := `
		UPDATE blogs
		SET read_count = read_count + 1
		WHERE id = $1`

	_, err := m.db.ExecContext(ctx, query, id)
	return err
}

func (m *BlogModel) updateBlog(ctx context.Context, blog *Blog) error {
	query := `
		UPDATE blogs
		SET title = $1, description = $2, tags = $3, author = $4, state = $5, body = $6, reading_time = $7
		WHERE id = $8 AND owner_id = $9
		RETURNING read_count`

	args := []any{
		blog.Title,
		blog.Description,
		pq.Array(blog.Tags),
		blog.Author,
		blog.State,
		blog.Body,
		blog.ReadingTime,
		blog.ID,
		blog.OwnerID,
	}

	err := m.db.QueryRowContext(ctx, query, args...).Scan(&blog.ReadCount)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return ErrRecordNotFound
		default:
			return err
		}
	}

	return nil
}

func (m *BlogModel) deleteBlog(ctx context.Context, blogID, ownerID int) error {
	query := `
		DELETE FROM blogs
		WHERE id = $1 AND owner_id = $2`

	res, err := m.db.ExecContext(ctx, query, blogID, ownerID)
	if err != nil {
		return err
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}

	if rows != 1 {
		switch {
		case rows == 0:
			return ErrRecordNotFound
		default:
			return fmt.Errorf("expected 1 row to be affected, got %d", rows)
		}
	}

	return nil
}

// selectBlogs runs a filtered, paginated list query. conds are ANDed
// WHERE conditions referencing the blogs table as b; order is an
// ORDER BY clause or empty for no ordering.
func (m *BlogModel) selectBlogs(ctx context.Context, conds []string, args []any, order string, limit, offset int) ([]Blog, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM blogs b
		JOIN users u ON b.owner_id = u.id
		WHERE %s%s
		LIMIT $%d OFFSET $%d`, blogColumns, strings.Join(conds, " AND "), order, len(args)+1, len(args)+2)

	args = append(args, limit, offset)

	rows, err := m.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	blogs := []Blog{}
	for rows.Next() {
		blog, err := scanBlog(rows)
		if err != nil {
			return nil, err
		}
		blogs = append(blogs, *blog)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return blogs, nil
}

// countBlogs returns the total number of rows matching conds, as a
// second query alongside selectBlogs.
func (m *BlogModel) countBlogs(ctx context.Context, conds []string, args []any) (int, error) {
	query := fmt.Sprintf(`
		SELECT count(*)
		FROM blogs b
		WHERE %s`, strings.Join(conds, " AND "))

	var total int
	err := m.db.QueryRowContext(ctx, query, args...).Scan(&total)
	if err != nil {
		return 0, err
	}

	return total, nil
}
