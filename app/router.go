package main

import (
	"net/http"

	"github.com/julienschmidt/httprouter"
)

func (app *application) routes() http.Handler {
	router := httprouter.New()

	router.NotFound = http.HandlerFunc(app.notFoundErrorResponse)
	router.MethodNotAllowed = http.HandlerFunc(app.methodNotAllowedErrorResponse)

	router.HandlerFunc(http.MethodGet, "/", app.welcomeHandler)
	router.HandlerFunc(http.MethodGet, "/api/v1/healthcheck", app.healthCheckHandler)

	// user service
	router.HandlerFunc(http.MethodPost, "/api/v1/auth/signup", app.signupUserHandler)
	router.HandlerFunc(http.MethodPost, "/api/v1/auth/signin", app.signinUserHandler)

	// blog service. The :id route also resolves the reserved my-blogs
	// and drafts segments, see getBlogHandler.
	router.HandlerFunc(http.MethodGet, "/api/v1/blogs", app.listPublishedBlogsHandler)
	router.HandlerFunc(http.MethodPost, "/api/v1/blogs", app.requireAuthUser(app.createBlogHandler))
	router.HandlerFunc(http.MethodGet, "/api/v1/blogs/:id", app.getBlogHandler)
	router.HandlerFunc(http.MethodPut, "/api/v1/blogs/:id", app.requireBlogOwner(app.updateBlogHandler))
	router.HandlerFunc(http.MethodDelete, "/api/v1/blogs/:id", app.requireBlogOwner(app.deleteBlogHandler))

	return app.recoverPanic(app.enableCORS(app.rateLimit(app.logRequest(app.authenticate(router)))))
}
