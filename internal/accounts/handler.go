package accounts

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/lunchmates/lunchmates/internal/shared"
	"github.com/lunchmates/lunchmates/internal/view"
)

const (
	flashConfirmationSent = "A confirmation email has been sent to your account, please follow link there to complete registration"
	flashAccountCreated   = "Your account has been created! You are now able to login."
	flashLoginFailed      = "Login Unsuccessful. Please check email and password"
	flashInvalidToken     = "That is an invalid or expired token"
	flashResetSent        = "An email has been sent with instructions to reset the password."
	flashPasswordUpdated  = "Your password has been updated! You are now able to login."
	flashAccountUpdated   = "Your account has been updated!"
)

// Handler wires the HTTP endpoints for the account lifecycle.
type Handler struct {
	logger         *slog.Logger
	service        *Service
	templates      *view.Engine
	sessionManager *shared.SessionManager
	csrfManager    *shared.CSRFManager
	validator      *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, templates *view.Engine, sessions *shared.SessionManager, csrf *shared.CSRFManager) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:         logger,
		service:        service,
		templates:      templates,
		sessionManager: sessions,
		csrfManager:    csrf,
		validator:      validator.New(),
	}
}

// MountRoutes registers the account routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/pre_register", h.showPreRegister)
	r.Post("/pre_register", h.handlePreRegister)
	r.Get("/register/{token}", h.showRegister)
	r.Post("/register/{token}", h.handleRegister)
	r.Get("/login", h.showLogin)
	r.Post("/login", h.handleLogin)
	r.Get("/logout", h.handleLogout)
	r.Get("/reset_password", h.showResetRequest)
	r.Post("/reset_password", h.handleResetRequest)
	r.Get("/reset_password/{token}", h.showResetToken)
	r.Post("/reset_password/{token}", h.handleResetToken)

	r.Group(func(r chi.Router) {
		r.Use(h.RequireUser)
		r.Get("/dashboard", h.showDashboard)
		r.Post("/dashboard", h.showDashboard)
		r.Get("/account", h.showAccount)
		r.Post("/account", h.handleAccount)
	})
}

// RequireUser redirects anonymous requests to the login page, preserving
// the requested path for the post-login redirect.
func (h *Handler) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := shared.SessionFromContext(r.Context())
		if !sess.LoggedIn() {
			http.Redirect(w, r, "/login?next="+url.QueryEscape(r.URL.Path), http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// redirectIfAuthed bounces already-authenticated users off the anonymous
// flows (pre-register, register, login, reset) to the dashboard.
func (h *Handler) redirectIfAuthed(w http.ResponseWriter, r *http.Request) bool {
	sess := shared.SessionFromContext(r.Context())
	if sess.LoggedIn() {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return true
	}
	return false
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, page, title string, data any) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrfManager.EnsureToken(r.Context(), sess)
	var flash *shared.FlashMessage
	if sess != nil {
		flash = sess.PopFlash()
	}
	viewData := view.TemplateData{
		Title:       title,
		CSRFToken:   csrfToken,
		Flash:       flash,
		CurrentPath: r.URL.Path,
		LoggedIn:    sess.LoggedIn(),
		Zipcode:     sess.Zipcode(),
		Data:        data,
	}
	if status != http.StatusOK {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(status)
	}
	if err := h.templates.Render(w, page, viewData); err != nil {
		h.logger.Error("render page", slog.String("page", page), slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func (h *Handler) flashAndRedirect(w http.ResponseWriter, r *http.Request, kind, message, location string) {
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sess.AddFlash(shared.FlashMessage{Kind: kind, Message: message})
	}
	http.Redirect(w, r, location, http.StatusSeeOther)
}

// fieldErrors flattens validator output into per-field messages.
func (h *Handler) fieldErrors(err error) map[string]string {
	errs := make(map[string]string)
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			switch fe.Tag() {
			case "required":
				errs[fe.Field()] = "This field is required."
			case "email":
				errs[fe.Field()] = "Please enter a valid email address."
			case "min":
				errs[fe.Field()] = "Must be at least " + fe.Param() + " characters."
			case "max":
				errs[fe.Field()] = "Must be at most " + fe.Param() + " characters."
			case "eqfield":
				errs[fe.Field()] = "Passwords do not match."
			default:
				errs[fe.Field()] = "Invalid value."
			}
		}
	} else if err != nil {
		errs["General"] = "Invalid input."
	}
	return errs
}

// Pre-registration

type preRegisterForm struct {
	Email string `validate:"required,email"`
}

type preRegisterPageData struct {
	Form   preRegisterForm
	Errors map[string]string
}

func (h *Handler) showPreRegister(w http.ResponseWriter, r *http.Request) {
	if h.redirectIfAuthed(w, r) {
		return
	}
	h.render(w, r, http.StatusOK, "pages/pre_register.html", "Register", preRegisterPageData{})
}

func (h *Handler) handlePreRegister(w http.ResponseWriter, r *http.Request) {
	if h.redirectIfAuthed(w, r) {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	form := preRegisterForm{Email: strings.TrimSpace(r.PostFormValue("email"))}
	if err := h.validator.Struct(form); err != nil {
		h.render(w, r, http.StatusBadRequest, "pages/pre_register.html", "Register", preRegisterPageData{Form: form, Errors: h.fieldErrors(err)})
		return
	}
	if err := h.service.PreRegister(r.Context(), form.Email); err != nil {
		h.logger.Error("pre-register", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	h.flashAndRedirect(w, r, "info", flashConfirmationSent, "/pre_register")
}

// Registration

type registerForm struct {
	Username        string `validate:"required,min=3,max=64"`
	Password        string `validate:"required,min=8"`
	ConfirmPassword string `validate:"required,eqfield=Password"`
}

type registerPageData struct {
	Email  string
	Form   registerForm
	Errors map[string]string
}

func (h *Handler) showRegister(w http.ResponseWriter, r *http.Request) {
	if h.redirectIfAuthed(w, r) {
		return
	}
	email, err := h.service.RedeemRegistrationToken(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		h.flashAndRedirect(w, r, "warning", flashInvalidToken, "/pre_register")
		return
	}
	h.render(w, r, http.StatusOK, "pages/register.html", "Register", registerPageData{Email: email})
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	if h.redirectIfAuthed(w, r) {
		return
	}
	email, err := h.service.RedeemRegistrationToken(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		h.flashAndRedirect(w, r, "warning", flashInvalidToken, "/pre_register")
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	form := registerForm{
		Username:        strings.TrimSpace(r.PostFormValue("username")),
		Password:        r.PostFormValue("password"),
		ConfirmPassword: r.PostFormValue("confirm_password"),
	}
	data := registerPageData{Email: email, Form: form}
	if err := h.validator.Struct(form); err != nil {
		data.Errors = h.fieldErrors(err)
		h.render(w, r, http.StatusBadRequest, "pages/register.html", "Register", data)
		return
	}
	if _, err := h.service.Register(r.Context(), email, form.Username, form.Password); err != nil {
		switch {
		case errors.Is(err, shared.ErrDuplicateEmail):
			data.Errors = map[string]string{"General": "An account with this email already exists."}
		case errors.Is(err, shared.ErrDuplicateUsername):
			data.Errors = map[string]string{"Username": "That username is already taken."}
		default:
			h.logger.Error("register", slog.Any("error", err))
			data.Errors = map[string]string{"General": "Something went wrong, please try again."}
		}
		h.render(w, r, http.StatusBadRequest, "pages/register.html", "Register", data)
		return
	}
	h.flashAndRedirect(w, r, "success", flashAccountCreated, "/login")
}

// Login / logout

type loginForm struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required"`
}

type loginPageData struct {
	Form   loginForm
	Next   string
	Errors map[string]string
}

// safeNext only allows same-site relative redirect targets.
func safeNext(next string) string {
	if strings.HasPrefix(next, "/") && !strings.HasPrefix(next, "//") {
		return next
	}
	return ""
}

func (h *Handler) showLogin(w http.ResponseWriter, r *http.Request) {
	if h.redirectIfAuthed(w, r) {
		return
	}
	data := loginPageData{Next: safeNext(r.URL.Query().Get("next"))}
	h.render(w, r, http.StatusOK, "pages/login.html", "Login", data)
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if h.redirectIfAuthed(w, r) {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	form := loginForm{
		Email:    strings.TrimSpace(r.PostFormValue("email")),
		Password: r.PostFormValue("password"),
	}
	next := safeNext(r.PostFormValue("next"))
	data := loginPageData{Form: form, Next: next}
	if err := h.validator.Struct(form); err != nil {
		data.Errors = h.fieldErrors(err)
		h.render(w, r, http.StatusBadRequest, "pages/login.html", "Login", data)
		return
	}
	user, err := h.service.Authenticate(r.Context(), form.Email, form.Password)
	if err != nil {
		// Same message for unknown email and wrong password.
		data.Errors = map[string]string{"General": flashLoginFailed}
		h.render(w, r, http.StatusBadRequest, "pages/login.html", "Login", data)
		return
	}
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		h.logger.Error("session missing during login")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	sess.SetUser(strconv.FormatInt(user.ID, 10))
	sess.SetZipcode(user.Zipcode)
	if next == "" {
		next = "/dashboard"
	}
	http.Redirect(w, r, next, http.StatusSeeOther)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess != nil {
		sess.ClearUser()
		h.sessionManager.Destroy(sess)
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// Password reset

type resetRequestForm struct {
	Email string `validate:"required,email"`
}

type resetRequestPageData struct {
	Form   resetRequestForm
	Errors map[string]string
}

func (h *Handler) showResetRequest(w http.ResponseWriter, r *http.Request) {
	if h.redirectIfAuthed(w, r) {
		return
	}
	h.render(w, r, http.StatusOK, "pages/reset_request.html", "Reset Password", resetRequestPageData{})
}

func (h *Handler) handleResetRequest(w http.ResponseWriter, r *http.Request) {
	if h.redirectIfAuthed(w, r) {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	form := resetRequestForm{Email: strings.TrimSpace(r.PostFormValue("email"))}
	if err := h.validator.Struct(form); err != nil {
		h.render(w, r, http.StatusBadRequest, "pages/reset_request.html", "Reset Password", resetRequestPageData{Form: form, Errors: h.fieldErrors(err)})
		return
	}
	if err := h.service.RequestPasswordReset(r.Context(), form.Email); err != nil {
		h.logger.Error("reset request", slog.Any("error", err))
	}
	// Identical message whether or not the email is registered.
	h.flashAndRedirect(w, r, "info", flashResetSent, "/login")
}

type resetPasswordForm struct {
	Password        string `validate:"required,min=8"`
	ConfirmPassword string `validate:"required,eqfield=Password"`
}

type resetPasswordPageData struct {
	Form   resetPasswordForm
	Errors map[string]string
}

func (h *Handler) showResetToken(w http.ResponseWriter, r *http.Request) {
	if h.redirectIfAuthed(w, r) {
		return
	}
	if _, err := h.service.RedeemResetToken(r.Context(), chi.URLParam(r, "token")); err != nil {
		h.flashAndRedirect(w, r, "warning", flashInvalidToken, "/reset_password")
		return
	}
	h.render(w, r, http.StatusOK, "pages/reset_token.html", "Reset Password", resetPasswordPageData{})
}

func (h *Handler) handleResetToken(w http.ResponseWriter, r *http.Request) {
	if h.redirectIfAuthed(w, r) {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	form := resetPasswordForm{
		Password:        r.PostFormValue("password"),
		ConfirmPassword: r.PostFormValue("confirm_password"),
	}
	if err := h.validator.Struct(form); err != nil {
		h.render(w, r, http.StatusBadRequest, "pages/reset_token.html", "Reset Password", resetPasswordPageData{Form: form, Errors: h.fieldErrors(err)})
		return
	}
	if err := h.service.ResetPassword(r.Context(), chi.URLParam(r, "token"), form.Password); err != nil {
		if errors.Is(err, shared.ErrInvalidToken) {
			h.flashAndRedirect(w, r, "warning", flashInvalidToken, "/reset_password")
			return
		}
		h.logger.Error("reset password", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	h.flashAndRedirect(w, r, "success", flashPasswordUpdated, "/login")
}

// Dashboard / account

type dashboardPageData struct {
	Username string
	Zipcode  string
}

func (h *Handler) showDashboard(w http.ResponseWriter, r *http.Request) {
	user, err := h.currentUser(r)
	if err != nil {
		h.forceLogout(w, r)
		return
	}
	sess := shared.SessionFromContext(r.Context())
	h.render(w, r, http.StatusOK, "pages/dashboard.html", "Dashboard", dashboardPageData{
		Username: user.Username,
		Zipcode:  sess.Zipcode(),
	})
}

type accountForm struct {
	Username string `validate:"required,min=3,max=64"`
	Zipcode  string `validate:"omitempty,numeric,min=4,max=10"`
}

type accountPageData struct {
	Email  string
	Form   accountForm
	Errors map[string]string
}

func (h *Handler) showAccount(w http.ResponseWriter, r *http.Request) {
	user, err := h.currentUser(r)
	if err != nil {
		h.forceLogout(w, r)
		return
	}
	data := accountPageData{
		Email: user.Email,
		Form:  accountForm{Username: user.Username, Zipcode: user.Zipcode},
	}
	h.render(w, r, http.StatusOK, "pages/account.html", "Account", data)
}

func (h *Handler) handleAccount(w http.ResponseWriter, r *http.Request) {
	user, err := h.currentUser(r)
	if err != nil {
		h.forceLogout(w, r)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	form := accountForm{
		Username: strings.TrimSpace(r.PostFormValue("username")),
		Zipcode:  strings.TrimSpace(r.PostFormValue("zipcode")),
	}
	data := accountPageData{Email: user.Email, Form: form}
	if err := h.validator.Struct(form); err != nil {
		data.Errors = h.fieldErrors(err)
		h.render(w, r, http.StatusBadRequest, "pages/account.html", "Account", data)
		return
	}
	if err := h.service.UpdateProfile(r.Context(), user.ID, form.Username, form.Zipcode); err != nil {
		if errors.Is(err, shared.ErrDuplicateUsername) {
			data.Errors = map[string]string{"Username": "That username is already taken."}
			h.render(w, r, http.StatusBadRequest, "pages/account.html", "Account", data)
			return
		}
		h.logger.Error("update account", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sess.SetZipcode(form.Zipcode)
	}
	h.flashAndRedirect(w, r, "success", flashAccountUpdated, "/account")
}

// currentUser resolves the session identity to a user row.
func (h *Handler) currentUser(r *http.Request) (*User, error) {
	sess := shared.SessionFromContext(r.Context())
	if !sess.LoggedIn() {
		return nil, shared.ErrInvalidCredentials
	}
	id, err := strconv.ParseInt(sess.User(), 10, 64)
	if err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	user, err := h.service.Get(r.Context(), id)
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, shared.ErrInvalidCredentials
	}
	return user, nil
}

// forceLogout drops a session whose identity no longer resolves.
func (h *Handler) forceLogout(w http.ResponseWriter, r *http.Request) {
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sess.ClearUser()
		h.sessionManager.Destroy(sess)
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}
