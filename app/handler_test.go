package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func createTestUser(app *application, db *sql.DB, email string) (*string, *int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	user, token, err := app.userService.Signup(ctx, "John", "Doe", email, "password123")
	if err != nil {
		return nil, nil, err
	}

	return &token, &user.ID, nil
}

func createTestBlog(db *sql.DB, ownerID int, title, state string) (*int, error) {
	var blogID int
	err := db.QueryRow("INSERT INTO blogs (title, tags, author, owner_id, state, body) VALUES ($1, $2, $3, $4, $5, $6) RETURNING id", title, pq.Array([]string{"go"}), "John Doe", ownerID, state, "This is a test blog body.").Scan(&blogID)
	if err != nil {
		return nil, err
	}

	return &blogID, nil
}

func cleanupTables(t *testing.T, db *sql.DB) {
	t.Cleanup(func() {
		_, err := db.Exec("DELETE FROM blogs")
		assert.NoError(t, err)

		_, err = db.Exec("DELETE FROM users")
		assert.NoError(t, err)
	})
}

func TestSignupUserHandler(t *testing.T) {
	app, db := newTestApplication(t)

	ts := newTestServer(t, app.routes())

	testCases := []struct {
		name       string
		payload    any
		setup      func(db *sql.DB) error
		wantStatus int
		wantBody   envelope
	}{
		{
			name: "Valid Request",
			payload: map[string]any{
				"first_name": "John",
				"last_name":  "Doe",
				"email":      "john.doe@example.com",
				"password":   "password123",
			},
			wantStatus: http.StatusCreated,
		},
		{
			name: "Missing First Name",
			payload: map[string]any{
				"last_name": "Doe",
				"email":     "john.doe@example.com",
				"password":  "password123",
			},
			wantStatus: http.StatusBadRequest,
			wantBody:   envelope{"message": "first_name must be provided"},
		},
		{
			name: "Malformed Email",
			payload: map[string]any{
				"first_name": "John",
				"last_name":  "Doe",
				"email":      "john.doe",
				"password":   "password123",
			},
			wantStatus: http.StatusBadRequest,
			wantBody:   envelope{"message": "email must be a valid email address"},
		},
		{
			name: "Short Password",
			payload: map[string]any{
				"first_name": "John",
				"last_name":  "Doe",
				"email":      "john.doe@example.com",
				"password":   "abc",
			},
			wantStatus: http.StatusBadRequest,
			wantBody:   envelope{"message": "password must be between 6 and 72 characters long"},
		},
		{
			name: "Duplicate Email",
			payload: map[string]any{
				"first_name": "Jane",
				"last_name":  "Doe",
				"email":      "john.doe@example.com",
				"password":   "password123",
			},
			setup: func(db *sql.DB) error {
				_, _, err := createTestUser(app, db, "john.doe@example.com")
				return err
			},
			wantStatus: http.StatusConflict,
			wantBody:   envelope{"message": "a user with this email address already exists"},
		},
		{
			name: "Duplicate Email Different Case",
			payload: map[string]any{
				"first_name": "Jane",
				"last_name":  "Doe",
				"email":      "John.Doe@Example.com",
				"password":   "password123",
			},
			setup: func(db *sql.DB) error {
				_, _, err := createTestUser(app, db, "john.doe@example.com")
				return err
			},
			wantStatus: http.StatusConflict,
			wantBody:   envelope{"message": "a user with this email address already exists"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if tc.setup != nil {
				err := tc.setup(db)
				assert.NoError(t, err)
			}

			status, _, gotBody := ts.post(t, "/api/v1/auth/signup", tc.payload, nil)
			assert.Equal(t, tc.wantStatus, status)

			if tc.wantBody != nil {
				assert.JSONEq(t, tc.wantBody.JSON(), gotBody.JSON())
			}

			if status == http.StatusCreated {
				assert.Equal(t, "success", gotBody["status"])
				assert.NotEmpty(t, gotBody["token"])

				data := gotBody["data"].(map[string]any)
				user := data["user"].(map[string]any)
				assert.Equal(t, "john.doe@example.com", user["email"])
				assert.Equal(t, "John", user["first_name"])
				assert.NotContains(t, user, "password")
			}

			t.Cleanup(func() {
				_, err := db.Exec("DELETE FROM users")
				assert.NoError(t, err)
			})
		})
	}
}

func TestSigninUserHandler(t *testing.T) {
	app, db := newTestApplication(t)

	ts := newTestServer(t, app.routes())

	setup := func(db *sql.DB) error {
		_, _, err := createTestUser(app, db, "john.doe@example.com")
		return err
	}

	testCases := []struct {
		name       string
		payload    any
		wantStatus int
		wantBody   envelope
	}{
		{
			name: "Valid Request",
			payload: map[string]any{
				"email":    "john.doe@example.com",
				"password": "password123",
			},
			wantStatus: http.StatusOK,
		},
		{
			name: "Wrong Password",
			payload: map[string]any{
				"email":    "john.doe@example.com",
				"password": "wrongpassword",
			},
			wantStatus: http.StatusUnauthorized,
			wantBody:   envelope{"message": "Incorrect email or password"},
		},
		{
			name: "Unknown Email",
			payload: map[string]any{
				"email":    "nobody@example.com",
				"password": "password123",
			},
			wantStatus: http.StatusUnauthorized,
			wantBody:   envelope{"message": "Incorrect email or password"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := setup(db)
			assert.NoError(t, err)

			status, _, gotBody := ts.post(t, "/api/v1/auth/signin", tc.payload, nil)
			assert.Equal(t, tc.wantStatus, status)

			if tc.wantBody != nil {
				assert.JSONEq(t, tc.wantBody.JSON(), gotBody.JSON())
			}

			if status == http.StatusOK {
				assert.Equal(t, "success", gotBody["status"])
				assert.NotEmpty(t, gotBody["token"])
			}

			t.Cleanup(func() {
				_, err := db.Exec("DELETE FROM users")
				assert.NoError(t, err)
			})
		})
	}
}

func TestListPublishedBlogsHandler(t *testing.T) {
	app, db := newTestApplication(t)

	ts := newTestServer(t, app.routes())

	_, userID, err := createTestUser(app, db, "john.doe@example.com")
	assert.NoError(t, err)

	_, err = createTestBlog(db, *userID, "Published Blog", "published")
	assert.NoError(t, err)

	_, err = createTestBlog(db, *userID, "Draft Blog", "draft")
	assert.NoError(t, err)

	cleanupTables(t, db)

	t.Run("Published Only", func(t *testing.T) {
		status, _, gotBody := ts.get(t, "/api/v1/blogs", nil)
		assert.Equal(t, http.StatusOK, status)
		assert.Equal(t, "success", gotBody["status"])
		assert.EqualValues(t, 1, gotBody["results"])
		assert.EqualValues(t, 1, gotBody["total"])

		data := gotBody["data"].(map[string]any)
		blogs := data["blogs"].([]any)
		blog := blogs[0].(map[string]any)
		assert.Equal(t, "Published Blog", blog["title"])
	})

	t.Run("State Draft Rejected", func(t *testing.T) {
		status, _, gotBody := ts.get(t, "/api/v1/blogs?state=draft", nil)
		assert.Equal(t, http.StatusBadRequest, status)
		assert.Equal(t, `Invalid state value. Only "published" blogs can be queried here. Use /drafts for draft blogs.`, gotBody["message"])
	})

	t.Run("State Published Accepted", func(t *testing.T) {
		status, _, _ := ts.get(t, "/api/v1/blogs?state=published", nil)
		assert.Equal(t, http.StatusOK, status)
	})

	t.Run("Author Filter", func(t *testing.T) {
		status, _, gotBody := ts.get(t, "/api/v1/blogs?author=john", nil)
		assert.Equal(t, http.StatusOK, status)
		assert.EqualValues(t, 1, gotBody["results"])
	})
}

func TestGetBlogHandler(t *testing.T) {
	app, db := newTestApplication(t)

	ts := newTestServer(t, app.routes())

	token, userID, err := createTestUser(app, db, "john.doe@example.com")
	assert.NoError(t, err)

	publishedID, err := createTestBlog(db, *userID, "Published Blog", "published")
	assert.NoError(t, err)

	draftID, err := createTestBlog(db, *userID, "Draft Blog", "draft")
	assert.NoError(t, err)

	cleanupTables(t, db)

	t.Run("Published Anonymous", func(t *testing.T) {
		status, _, gotBody := ts.get(t, fmt.Sprintf("/api/v1/blogs/%d", *publishedID), nil)
		assert.Equal(t, http.StatusOK, status)

		data := gotBody["data"].(map[string]any)
		blog := data["blog"].(map[string]any)
		assert.Equal(t, "Published Blog", blog["title"])
		assert.EqualValues(t, 1, blog["read_count"])
	})

	t.Run("Read Count Increments Per Fetch", func(t *testing.T) {
		status, _, _ := ts.get(t, fmt.Sprintf("/api/v1/blogs/%d", *publishedID), nil)
		assert.Equal(t, http.StatusOK, status)

		var readCount int
		err := db.QueryRow("SELECT read_count FROM blogs WHERE id = $1", *publishedID).Scan(&readCount)
		assert.NoError(t, err)
		assert.Equal(t, 2, readCount)
	})

	t.Run("Draft Hidden From Anonymous", func(t *testing.T) {
		status, _, gotBody := ts.get(t, fmt.Sprintf("/api/v1/blogs/%d", *draftID), nil)
		assert.Equal(t, http.StatusNotFound, status)
		assert.JSONEq(t, `{"message": "Blog not found or not accessible"}`, gotBody.JSON())
	})

	t.Run("Draft Visible To Owner", func(t *testing.T) {
		status, _, gotBody := ts.get(t, fmt.Sprintf("/api/v1/blogs/%d", *draftID), token)
		assert.Equal(t, http.StatusOK, status)

		data := gotBody["data"].(map[string]any)
		blog := data["blog"].(map[string]any)
		assert.Equal(t, "Draft Blog", blog["title"])
	})

	t.Run("Missing Blog", func(t *testing.T) {
		status, _, gotBody := ts.get(t, "/api/v1/blogs/999999", nil)
		assert.Equal(t, http.StatusNotFound, status)
		assert.JSONEq(t, `{"message": "Blog not found or not accessible"}`, gotBody.JSON())
	})
}

func TestCreateBlogHandler(t *testing.T) {
	app, db := newTestApplication(t)

	ts := newTestServer(t, app.routes())

	testCases := []struct {
		name       string
		payload    any
		withToken  bool
		wantStatus int
		wantBody   envelope
	}{
		{
			name: "Valid Request",
			payload: map[string]any{
				"title":  "Test Blog",
				"tags":   []string{"go", "testing"},
				"author": "John Doe",
				"body":   "This is a test blog body.",
			},
			withToken:  true,
			wantStatus: http.StatusCreated,
		},
		{
			name: "No Authentication Token",
			payload: map[string]any{
				"title":  "Test Blog",
				"author": "John Doe",
				"body":   "This is a test blog body.",
			},
			withToken:  false,
			wantStatus: http.StatusUnauthorized,
			wantBody:   envelope{"message": "Not authorized, no token"},
		},
		{
			name: "Missing Title",
			payload: map[string]any{
				"author": "John Doe",
				"body":   "This is a test blog body.",
			},
			withToken:  true,
			wantStatus: http.StatusBadRequest,
			wantBody:   envelope{"message": "title must be provided"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			token, userID, err := createTestUser(app, db, "john.doe@example.com")
			assert.NoError(t, err)

			if !tc.withToken {
				token = nil
			}

			status, _, gotBody := ts.post(t, "/api/v1/blogs", tc.payload, token)
			assert.Equal(t, tc.wantStatus, status)

			if tc.wantBody != nil {
				assert.JSONEq(t, tc.wantBody.JSON(), gotBody.JSON())
			}

			if status == http.StatusCreated {
				data := gotBody["data"].(map[string]any)
				blog := data["blog"].(map[string]any)
				assert.Equal(t, "draft", blog["state"])
				assert.EqualValues(t, *userID, blog["owner"])
				assert.EqualValues(t, 1, blog["reading_time"])
			}

			t.Cleanup(func() {
				_, err := db.Exec("DELETE FROM blogs")
				assert.NoError(t, err)

				_, err = db.Exec("DELETE FROM users")
				assert.NoError(t, err)
			})
		})
	}
}

func TestUpdateBlogHandler(t *testing.T) {
	app, db := newTestApplication(t)

	ts := newTestServer(t, app.routes())

	t.Run("Owner Updates Title", func(t *testing.T) {
		token, userID, err := createTestUser(app, db, "john.doe@example.com")
		assert.NoError(t, err)

		blogID, err := createTestBlog(db, *userID, "Original Title", "draft")
		assert.NoError(t, err)

		cleanupTables(t, db)

		status, _, gotBody := ts.put(t, fmt.Sprintf("/api/v1/blogs/%d", *blogID), token, map[string]any{"title": "New Title"})
		assert.Equal(t, http.StatusOK, status)

		data := gotBody["data"].(map[string]any)
		blog := data["blog"].(map[string]any)
		assert.Equal(t, "New Title", blog["title"])
		assert.Equal(t, "This is a test blog body.", blog["body"])
	})

	t.Run("Non Owner Is Rejected", func(t *testing.T) {
		_, ownerID, err := createTestUser(app, db, "owner@example.com")
		assert.NoError(t, err)

		blogID, err := createTestBlog(db, *ownerID, "Original Title", "draft")
		assert.NoError(t, err)

		otherToken, _, err := createTestUser(app, db, "other@example.com")
		assert.NoError(t, err)

		cleanupTables(t, db)

		status, _, gotBody := ts.put(t, fmt.Sprintf("/api/v1/blogs/%d", *blogID), otherToken, map[string]any{"title": "Hijacked"})
		assert.Equal(t, http.StatusForbidden, status)
		assert.JSONEq(t, `{"message": "Not authorized to perform this action"}`, gotBody.JSON())

		var title string
		err = db.QueryRow("SELECT title FROM blogs WHERE id = $1", *blogID).Scan(&title)
		assert.NoError(t, err)
		assert.Equal(t, "Original Title", title)
	})

	t.Run("Missing Blog", func(t *testing.T) {
		token, _, err := createTestUser(app, db, "john.doe@example.com")
		assert.NoError(t, err)

		cleanupTables(t, db)

		status, _, gotBody := ts.put(t, "/api/v1/blogs/999999", token, map[string]any{"title": "New Title"})
		assert.Equal(t, http.StatusNotFound, status)
		assert.JSONEq(t, `{"message": "Blog not found"}`, gotBody.JSON())
	})

	t.Run("No Authentication Token", func(t *testing.T) {
		_, userID, err := createTestUser(app, db, "john.doe@example.com")
		assert.NoError(t, err)

		blogID, err := createTestBlog(db, *userID, "Original Title", "draft")
		assert.NoError(t, err)

		cleanupTables(t, db)

		status, _, gotBody := ts.put(t, fmt.Sprintf("/api/v1/blogs/%d", *blogID), nil, map[string]any{"title": "New Title"})
		assert.Equal(t, http.StatusUnauthorized, status)
		assert.JSONEq(t, `{"message": "Not authorized, no token"}`, gotBody.JSON())
	})
}

func TestDeleteBlogHandler(t *testing.T) {
	app, db := newTestApplication(t)

	ts := newTestServer(t, app.routes())

	token, userID, err := createTestUser(app, db, "john.doe@example.com")
	assert.NoError(t, err)

	otherToken, _, err := createTestUser(app, db, "other@example.com")
	assert.NoError(t, err)

	blogID, err := createTestBlog(db, *userID, "Test Blog", "published")
	assert.NoError(t, err)

	cleanupTables(t, db)

	t.Run("Non Owner Is Rejected", func(t *testing.T) {
		status, _, gotBody := ts.delete(t, fmt.Sprintf("/api/v1/blogs/%d", *blogID), otherToken)
		assert.Equal(t, http.StatusForbidden, status)
		assert.JSONEq(t, `{"message": "Not authorized to perform this action"}`, gotBody.JSON())
	})

	t.Run("Owner Deletes", func(t *testing.T) {
		status, _, gotBody := ts.delete(t, fmt.Sprintf("/api/v1/blogs/%d", *blogID), token)
		assert.Equal(t, http.StatusNoContent, status)
		assert.Nil(t, gotBody)
	})

	t.Run("Delete Again", func(t *testing.T) {
		status, _, gotBody := ts.delete(t, fmt.Sprintf("/api/v1/blogs/%d", *blogID), token)
		assert.Equal(t, http.StatusNotFound, status)
		assert.JSONEq(t, `{"message": "Blog not found"}`, gotBody.JSON())
	})
}

func TestListMyBlogsHandler(t *testing.T) {
	app, db := newTestApplication(t)

	ts := newTestServer(t, app.routes())

	token, userID, err := createTestUser(app, db, "john.doe@example.com")
	assert.NoError(t, err)

	_, err = createTestBlog(db, *userID, "Published Blog", "published")
	assert.NoError(t, err)

	_, err = createTestBlog(db, *userID, "Draft Blog", "draft")
	assert.NoError(t, err)

	cleanupTables(t, db)

	t.Run("No Authentication Token", func(t *testing.T) {
		status, _, gotBody := ts.get(t, "/api/v1/blogs/my-blogs", nil)
		assert.Equal(t, http.StatusUnauthorized, status)
		assert.JSONEq(t, `{"message": "Not authorized, no token"}`, gotBody.JSON())
	})

	t.Run("All Own Blogs", func(t *testing.T) {
		status, _, gotBody := ts.get(t, "/api/v1/blogs/my-blogs", token)
		assert.Equal(t, http.StatusOK, status)
		assert.EqualValues(t, 2, gotBody["results"])
		assert.EqualValues(t, 2, gotBody["total"])
	})

	t.Run("Filtered By State", func(t *testing.T) {
		status, _, gotBody := ts.get(t, "/api/v1/blogs/my-blogs?state=published", token)
		assert.Equal(t, http.StatusOK, status)
		assert.EqualValues(t, 1, gotBody["results"])
	})
}

func TestListDraftBlogsHandler(t *testing.T) {
	app, db := newTestApplication(t)

	ts := newTestServer(t, app.routes())

	token, userID, err := createTestUser(app, db, "john.doe@example.com")
	assert.NoError(t, err)

	otherToken, otherID, err := createTestUser(app, db, "other@example.com")
	assert.NoError(t, err)

	_, err = createTestBlog(db, *userID, "My Draft", "draft")
	assert.NoError(t, err)

	_, err = createTestBlog(db, *userID, "My Published", "published")
	assert.NoError(t, err)

	_, err = createTestBlog(db, *otherID, "Other Draft", "draft")
	assert.NoError(t, err)

	cleanupTables(t, db)

	t.Run("No Authentication Token", func(t *testing.T) {
		status, _, gotBody := ts.get(t, "/api/v1/blogs/drafts", nil)
		assert.Equal(t, http.StatusUnauthorized, status)
		assert.JSONEq(t, `{"message": "Not authorized, no token"}`, gotBody.JSON())
	})

	t.Run("Own Drafts Only", func(t *testing.T) {
		status, _, gotBody := ts.get(t, "/api/v1/blogs/drafts", token)
		assert.Equal(t, http.StatusOK, status)
		assert.EqualValues(t, 1, gotBody["results"])

		data := gotBody["data"].(map[string]any)
		blogs := data["blogs"].([]any)
		blog := blogs[0].(map[string]any)
		assert.Equal(t, "My Draft", blog["title"])
	})

	t.Run("Other User Sees Their Own", func(t *testing.T) {
		status, _, gotBody := ts.get(t, "/api/v1/blogs/drafts", otherToken)
		assert.Equal(t, http.StatusOK, status)
		assert.EqualValues(t, 1, gotBody["results"])
	})
}
