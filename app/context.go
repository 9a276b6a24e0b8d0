package main

import (
	"context"
	"net/http"

	"github.com/graylock/blogapi/internal/blogservice"
	"github.com/graylock/blogapi/internal/userservice"
)

type contextKey string

const (
	userContextKey = contextKey("user")
	blogContextKey = contextKey("blog")
)

func (app *application) createUserContext(r *http.Request, user *userservice.User) *http.Request {
	ctx := context.WithValue(r.Context(), userContextKey, user)
	return r.WithContext(ctx)
}

func (app *application) getUserContext(r *http.Request) *userservice.User {
	user, ok := r.Context().Value(userContextKey).(*userservice.User)
	if !ok {
		return nil
	}
	return user
}

func (app *application) createBlogContext(r *http.Request, blog *blogservice.Blog) *http.Request {
	ctx := context.WithValue(r.Context(), blogContextKey, blog)
	return r.WithContext(ctx)
}

func (app *application) getBlogContext(r *http.Request) *blogservice.Blog {
	blog, ok := r.Context().Value(blogContextKey).(*blogservice.Blog)
	if !ok {
		return nil
	}
	return blog
}
