package main

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/julienschmidt/httprouter"

	"github.com/graylock/blogapi/internal/blogservice"
	"github.com/graylock/blogapi/internal/common"
	"github.com/graylock/blogapi/internal/userservice"
)

func (app *application) welcomeHandler(w http.ResponseWriter, r *http.Request) {
	err := app.writeJSON(w, http.StatusOK, envelope{"message": "Welcome to the Blogging API"}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}
}

type signupUserRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

func (app *application) signupUserHandler(w http.ResponseWriter, r *http.Request) {
	var input signupUserRequest

	err := app.parseJSON(w, r, &input)
	if err != nil {
		app.badRequestErrorResponse(w, r, err)
		return
	}

	user, token, err := app.userService.Signup(r.Context(), input.FirstName, input.LastName, input.Email, input.Password)
	if err != nil {
		switch {
		case errors.Is(err, userservice.ErrDuplicateEmail):
			app.duplicateEmailErrorResponse(w, r)
		case errors.As(err, &common.ValidationError{}):
			validationErr := err.(common.ValidationError)
			app.failedValidationErrorResponse(w, r, validationErr.Message())
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	err = app.writeJSON(w, http.StatusCreated, envelope{"status": "success", "token": token, "data": envelope{"user": user}}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}
}

type signinUserRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (app *application) signinUserHandler(w http.ResponseWriter, r *http.Request) {
	var input signinUserRequest

	err := app.parseJSON(w, r, &input)
	if err != nil {
		app.badRequestErrorResponse(w, r, err)
		return
	}

	user, token, err := app.userService.Signin(r.Context(), input.Email, input.Password)
	if err != nil {
		switch {
		case errors.Is(err, userservice.ErrAuthenticationFailure):
			app.invalidCredentialsErrorResponse(w, r)
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"status": "success", "token": token, "data": envelope{"user": user}}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}
}

func (app *application) createBlogHandler(w http.ResponseWriter, r *http.Request) {
	var input blogservice.CreateBlogRequest

	err := app.parseJSON(w, r, &input)
	if err != nil {
		app.badRequestErrorResponse(w, r, err)
		return
	}

	user := app.getUserContext(r)
	input.OwnerID = user.ID

	blog, err := app.blogService.Create(r.Context(), &input)
	if err != nil {
		switch {
		case errors.As(err, &common.ValidationError{}):
			validationErr := err.(common.ValidationError)
			app.failedValidationErrorResponse(w, r, validationErr.Message())
		case errors.Is(err, blogservice.ErrUserForeignKey):
			app.tokenUserNotFoundErrorResponse(w, r)
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	err = app.writeJSON(w, http.StatusCreated, envelope{"status": "success", "data": envelope{"blog": blog}}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}
}

const stateRejectionMessage = `Invalid state value. Only "published" blogs can be queried here. Use /drafts for draft blogs.`

func (app *application) listPublishedBlogsHandler(w http.ResponseWriter, r *http.Request) {
	// an explicit state other than "published" is refused here; the
	// redundant state=published passes through.
	if state := r.URL.Query().Get("state"); state != "" && state != string(blogservice.StatePublished) {
		app.writeErrorResponse(w, r, http.StatusBadRequest, stateRejectionMessage)
		return
	}

	filters, err := app.readFilters(r)
	if err != nil {
		app.badRequestErrorResponse(w, r, err)
		return
	}

	blogs, total, err := app.blogService.ListPublished(r.Context(), filters)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"status": "success", "results": len(blogs), "total": total, "data": envelope{"blogs": blogs}}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}
}

func (app *application) getMyBlogsHandler(w http.ResponseWriter, r *http.Request) {
	filters, err := app.readFilters(r)
	if err != nil {
		app.badRequestErrorResponse(w, r, err)
		return
	}

	user := app.getUserContext(r)
	state := r.URL.Query().Get("state")

	blogs, total, err := app.blogService.ListByOwner(r.Context(), user.ID, state, filters)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"status": "success", "results": len(blogs), "total": total, "data": envelope{"blogs": blogs}}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}
}

func (app *application) getDraftBlogsHandler(w http.ResponseWriter, r *http.Request) {
	filters, err := app.readFilters(r)
	if err != nil {
		app.badRequestErrorResponse(w, r, err)
		return
	}

	user := app.getUserContext(r)

	blogs, total, err := app.blogService.ListDrafts(r.Context(), user.ID, filters)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"status": "success", "results": len(blogs), "total": total, "data": envelope{"blogs": blogs}}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}
}

// getBlogHandler also serves /blogs/my-blogs and /blogs/drafts.
// httprouter cannot register static siblings next to the :id segment,
// so the reserved names are dispatched here before the value is
// treated as a blog ID.
func (app *application) getBlogHandler(w http.ResponseWriter, r *http.Request) {
	params := httprouter.ParamsFromContext(r.Context())

	switch params.ByName("id") {
	case "my-blogs":
		app.requireAuthUser(app.getMyBlogsHandler)(w, r)
		return
	case "drafts":
		app.requireAuthUser(app.getDraftBlogsHandler)(w, r)
		return
	}

	id, err := strconv.Atoi(params.ByName("id"))
	if err != nil {
		app.badRequestErrorResponse(w, r, errors.New("invalid ID parameter"))
		return
	}

	user := app.getUserContext(r)

	blog, err := app.blogService.GetVisible(r.Context(), id, user.ID)
	if err != nil {
		switch {
		case errors.Is(err, blogservice.ErrRecordNotFound):
			app.blogNotAccessibleErrorResponse(w, r)
		case errors.As(err, &common.ValidationError{}):
			app.blogNotAccessibleErrorResponse(w, r)
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"status": "success", "data": envelope{"blog": blog}}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}
}

func (app *application) updateBlogHandler(w http.ResponseWriter, r *http.Request) {
	var input blogservice.UpdateBlogRequest

	err := app.parseJSON(w, r, &input)
	if err != nil {
		app.badRequestErrorResponse(w, r, err)
		return
	}

	blog := app.getBlogContext(r)

	updated, err := app.blogService.Update(r.Context(), blog, &input)
	if err != nil {
		switch {
		case errors.As(err, &common.ValidationError{}):
			validationErr := err.(common.ValidationError)
			app.failedValidationErrorResponse(w, r, validationErr.Message())
		case errors.Is(err, blogservice.ErrRecordNotFound):
			app.blogNotFoundErrorResponse(w, r)
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"status": "success", "data": envelope{"blog": updated}}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}
}

func (app *application) deleteBlogHandler(w http.ResponseWriter, r *http.Request) {
	blog := app.getBlogContext(r)
	user := app.getUserContext(r)

	err := app.blogService.Delete(r.Context(), blog.ID, user.ID)
	if err != nil {
		switch {
		case errors.Is(err, blogservice.ErrRecordNotFound):
			app.blogNotFoundErrorResponse(w, r)
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
