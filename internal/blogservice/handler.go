package blogservice

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/graylock/blogapi/internal/common"
	"github.com/lib/pq"
)

func NewBlogService(db *sql.DB) *BlogService {
	return &BlogService{m: newBlogModel(db)}
}

// Create stores a new blog post. The owner is the authenticated
// requester, the state always starts as draft and the reading time is
// derived from the body.
func (s *BlogService) Create(ctx context.Context, req *CreateBlogRequest) (*Blog, error) {
	v := common.NewValidator()
	validateTitle(v, req.Title)
	validateAuthor(v, req.Author)
	validateBody(v, req.Body)
	validateInt(v, req.OwnerID, "owner")
	if !v.Valid() {
		return nil, v.ValidationError()
	}

	blog := &Blog{
		Title:       req.Title,
		Description: req.Description,
		Tags:        req.Tags,
		Author:      req.Author,
		OwnerID:     req.OwnerID,
		State:       StateDraft,
		Body:        req.Body,
		ReadingTime: readingTime(req.Body),
	}
	if blog.Tags == nil {
		blog.Tags = []string{}
	}

	if err := s.m.insert(ctx, blog); err != nil {
		return nil, err
	}

	return blog, nil
}

// Get returns a blog by id regardless of its state. It exists for the
// ownership check on mutating routes; reads go through GetVisible.
func (s *BlogService) Get(ctx context.Context, id int) (*Blog, error) {
	v := common.NewValidator()
	validateInt(v, id, "id")
	if !v.Valid() {
		return nil, v.ValidationError()
	}

	return s.m.getBlogByID(ctx, id)
}

// GetVisible returns a blog visible to the viewer (published, or the
// viewer's own draft) and bumps its read count. The increment is a
// separate write from the read, so concurrent fetches may under-count.
// Pass viewerID 0 for unauthenticated callers.
func (s *BlogService) GetVisible(ctx context.Context, id, viewerID int) (*Blog, error) {
	v := common.NewValidator()
	validateInt(v, id, "id")
	if !v.Valid() {
		return nil, v.ValidationError()
	}

	blog, err := s.m.getVisibleBlog(ctx, id, viewerID)
	if err != nil {
		return nil, err
	}

	if err := s.m.incrementReadCount(ctx, blog.ID); err != nil {
		return nil, err
	}
	blog.ReadCount++

	return blog, nil
}

// Update applies the provided fields of req to blog and saves it. Nil
// and empty-string fields leave the stored value alone, but a non-nil
// tags slice always replaces the stored tags, so an explicit empty
// array clears them. A state value outside draft/published is silently
// ignored. The reading time is recomputed from the resulting body.
func (s *BlogService) Update(ctx context.Context, blog *Blog, req *UpdateBlogRequest) (*Blog, error) {
	if req.Title != nil && *req.Title != "" {
		blog.Title = *req.Title
	}
	if req.Description != nil && *req.Description != "" {
		blog.Description = *req.Description
	}
	if req.Tags != nil {
		blog.Tags = req.Tags
	}
	if req.Author != nil && *req.Author != "" {
		blog.Author = *req.Author
	}
	if req.Body != nil && *req.Body != "" {
		blog.Body = *req.Body
	}
	if req.State != nil {
		switch BlogState(*req.State) {
		case StateDraft, StatePublished:
			blog.State = BlogState(*req.State)
		}
	}
	blog.ReadingTime = readingTime(blog.Body)

	v := common.NewValidator()
	validateTitle(v, blog.Title)
	validateAuthor(v, blog.Author)
	validateBody(v, blog.Body)
	validateInt(v, blog.ID, "id")
	validateInt(v, blog.OwnerID, "owner")
	if !v.Valid() {
		return nil, v.ValidationError()
	}

	if err := s.m.updateBlog(ctx, blog); err != nil {
		return nil, err
	}

	return blog, nil
}

// Delete removes a blog owned by ownerID.
func (s *BlogService) Delete(ctx context.Context, blogID, ownerID int) error {
	v := common.NewValidator()
	validateInt(v, blogID, "id")
	validateInt(v, ownerID, "owner")
	if !v.Valid() {
		return v.ValidationError()
	}

	return s.m.deleteBlog(ctx, blogID, ownerID)
}

// ListPublished lists published blogs matching the filters, with the
// total matching count.
func (s *BlogService) ListPublished(ctx context.Context, f Filters) ([]Blog, int, error) {
	conds := []string{"b.state = 'published'"}
	conds, args := appendFilterConds(conds, nil, f)

	return s.list(ctx, conds, args, f.orderClause(), f)
}

// ListDrafts lists the owner's draft blogs. Drafts belonging to other
// users are never reachable through this path, and the author filter
// does not apply: drafts are already scoped to a single owner.
func (s *BlogService) ListDrafts(ctx context.Context, ownerID int, f Filters) ([]Blog, int, error) {
	v := common.NewValidator()
	validateInt(v, ownerID, "owner")
	if !v.Valid() {
		return nil, 0, v.ValidationError()
	}

	f.Author = ""

	conds := []string{"b.state = 'draft'"}
	args := []any{ownerID}
	conds = append(conds, fmt.Sprintf("b.owner_id = $%d", len(args)))
	conds, args = appendFilterConds(conds, args, f)

	return s.list(ctx, conds, args, f.orderClause(), f)
}

// ListByOwner lists all of the owner's blogs, optionally restricted to
// an exact state value.
func (s *BlogService) ListByOwner(ctx context.Context, ownerID int, state string, f Filters) ([]Blog, int, error) {
	v := common.NewValidator()
	validateInt(v, ownerID, "owner")
	if !v.Valid() {
		return nil, 0, v.ValidationError()
	}

	args := []any{ownerID}
	conds := []string{fmt.Sprintf("b.owner_id = $%d", len(args))}
	if state != "" {
		args = append(args, state)
		conds = append(conds, fmt.Sprintf("b.state = $%d", len(args)))
	}

	return s.list(ctx, conds, args, "", f)
}

func (s *BlogService) list(ctx context.Context, conds []string, args []any, order string, f Filters) ([]Blog, int, error) {
	blogs, err := s.m.selectBlogs(ctx, conds, args, order, f.limit(), f.offset())
	if err != nil {
		return nil, 0, err
	}

	total, err := s.m.countBlogs(ctx, conds, args)
	if err != nil {
		return nil, 0, err
	}

	return blogs, total, nil
}

// appendFilterConds adds the author/title/tags filters as
// case-insensitive regex conditions, matching how the search
// parameters are documented.
func appendFilterConds(conds []string, args []any, f Filters) ([]string, []any) {
	if f.Author != "" {
		args = append(args, f.Author)
		conds = append(conds, fmt.Sprintf("b.author ~* $%d", len(args)))
	}
	if f.Title != "" {
		args = append(args, f.Title)
		conds = append(conds, fmt.Sprintf("b.title ~* $%d", len(args)))
	}
	if len(f.Tags) > 0 {
		args = append(args, pq.Array(f.Tags))
		conds = append(conds, fmt.Sprintf("EXISTS (SELECT 1 FROM unnest(b.tags) tag WHERE tag ~* ANY($%d))", len(args)))
	}

	return conds, args
}
