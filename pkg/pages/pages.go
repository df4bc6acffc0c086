package pages

import (
	"context"
	"errors"
	"io/fs"
	"net/http"
	"net/url"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ekaya-inc/aihub/pkg/apperrors"
	"github.com/ekaya-inc/aihub/pkg/audit"
	"github.com/ekaya-inc/aihub/pkg/auth"
	"github.com/ekaya-inc/aihub/pkg/handlers"
	"github.com/ekaya-inc/aihub/pkg/middleware"
	"github.com/ekaya-inc/aihub/pkg/models"
	"github.com/ekaya-inc/aihub/pkg/repositories"
	"github.com/ekaya-inc/aihub/pkg/services"
)

// Authenticator resolves the signed-in user of a request.
type Authenticator interface {
	Authenticate(r *http.Request) (*models.User, *auth.Claims, error)
}

// View is the data passed to every page template.
type View struct {
	User      *models.User
	CSRFToken string
	Nav       string
	Page      any
}

// Services are the read paths the pages render from.
type Services struct {
	Challenges  services.ChallengeService
	Submissions services.SubmissionService
	Frictions   services.FrictionService
	UseCases    services.UseCaseService
	Locations   services.LocationService
	Leaderboard services.LeaderboardService
	Home        services.HomeService
}

// Handler serves the HTML pages and their static assets.
type Handler struct {
	svc       Services
	templates *Templates
	auth      Authenticator
	static    fs.FS
	clock     services.Clock
	auditor   *audit.SecurityAuditor
	logger    *zap.Logger
}

// NewHandler creates a page handler. static is served under /static/.
func NewHandler(
	svc Services,
	templates *Templates,
	authenticator Authenticator,
	static fs.FS,
	clock services.Clock,
	auditor *audit.SecurityAuditor,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		svc:       svc,
		templates: templates,
		auth:      authenticator,
		static:    static,
		clock:     clock,
		auditor:   auditor,
		logger:    logger,
	}
}

// RegisterRoutes registers the page routes.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(h.static)))
	mux.HandleFunc("GET /login", h.Login)
	mux.HandleFunc("GET /{$}", h.requireUser(h.Home))
	mux.HandleFunc("GET /missions", h.requireUser(h.Missions))
	mux.HandleFunc("GET /missions/{id}", h.requireUser(h.Mission))
	mux.HandleFunc("GET /frictions", h.requireUser(h.Frictions))
	mux.HandleFunc("GET /frictions/{id}", h.requireUser(h.Friction))
	mux.HandleFunc("GET /use-cases", h.requireUser(h.UseCases))
	mux.HandleFunc("GET /leaderboard", h.requireUser(h.Leaderboard))
	mux.HandleFunc("GET /moderate", h.requireUser(h.Moderate))
}

// requireUser redirects anonymous visitors to the sign-in page and stores the
// caller in the request context for the services.
func (h *Handler) requireUser(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, claims, err := h.auth.Authenticate(r)
		if err != nil {
			if errors.Is(err, apperrors.ErrUnauthenticated) {
				http.Redirect(w, r, "/login?next="+url.QueryEscape(r.URL.RequestURI()), http.StatusFound)
				return
			}
			h.logger.Error("Failed to load user", zap.Error(err))
			h.renderError(w, r, http.StatusInternalServerError)
			return
		}
		ctx := auth.WithUser(r.Context(), user)
		if claims != nil {
			ctx = context.WithValue(ctx, auth.ClaimsKey, claims)
		}
		next(w, r.WithContext(ctx))
	}
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, page, nav string, data any) {
	user, _ := auth.GetUser(r.Context())
	h.templates.Render(w, http.StatusOK, page, &View{
		User:      user,
		CSRFToken: middleware.CSRFToken(r),
		Nav:       nav,
		Page:      data,
	})
}

type errorPage struct {
	Title   string
	Message string
}

func (h *Handler) renderError(w http.ResponseWriter, r *http.Request, status int) {
	page := errorPage{Title: "Something went wrong", Message: "Try again in a moment."}
	switch status {
	case http.StatusNotFound:
		page = errorPage{Title: "Not found", Message: "That page does not exist or was removed."}
	case http.StatusForbidden:
		page = errorPage{Title: "Moderators only", Message: "You need the moderator role to view this page."}
	}
	user, _ := auth.GetUser(r.Context())
	h.templates.Render(w, status, "error", &View{
		User:      user,
		CSRFToken: middleware.CSRFToken(r),
		Page:      page,
	})
}

// failed logs a query error behind a list section that will show its empty state.
func (h *Handler) failed(r *http.Request, section string, err error) bool {
	if err == nil {
		return false
	}
	h.logger.Warn("Failed to load page section",
		zap.String("path", r.URL.Path),
		zap.String("section", section),
		zap.Error(err))
	return true
}

type loginPage struct {
	Error string
	Next  string
}

var loginErrors = map[string]string{
	handlers.LoginErrorDomain: "Sign-in is limited to company accounts.",
	handlers.LoginErrorState:  "Your sign-in session expired. Please try again.",
	handlers.LoginErrorFailed: "Sign-in failed. Please try again.",
}

// Login renders the sign-in page, or sends signed-in users onward.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	next := r.URL.Query().Get("next")
	if next == "" {
		next = "/"
	}
	if _, _, err := h.auth.Authenticate(r); err == nil && r.URL.Query().Get("error") == "" {
		http.Redirect(w, r, handlers.SafeRedirect(next), http.StatusFound)
		return
	}
	h.render(w, r, "login", "", loginPage{
		Error: loginErrors[r.URL.Query().Get("error")],
		Next:  next,
	})
}

type homePage struct {
	Challenge   *models.Challenge
	Leaderboard []models.LeaderboardEntry
	Failed      bool
}

// Home renders the current mission and the top locations.
func (h *Handler) Home(w http.ResponseWriter, r *http.Request) {
	preview, err := h.svc.Home.Get(r.Context())
	page := homePage{Failed: h.failed(r, "home", err)}
	if err == nil {
		page.Challenge = preview.Challenge
		page.Leaderboard = preview.Leaderboard
	}
	h.render(w, r, "home", "", page)
}

type missionsPage struct {
	Active []*models.Challenge
	Past   []*models.Challenge
	Failed bool
}

// Missions renders active and past challenges.
func (h *Handler) Missions(w http.ResponseWriter, r *http.Request) {
	lists, err := h.svc.Challenges.ListAll(r.Context())
	page := missionsPage{Failed: h.failed(r, "challenges", err)}
	if err == nil {
		page.Active = lists.Active
		page.Past = lists.Past
	}
	h.render(w, r, "missions", "missions", page)
}

type missionPage struct {
	Challenge    *models.Challenge
	Open         bool
	Mine         *models.Submission
	Approved     []*models.Submission
	Locations    []*models.Location
	HomeLocation string
	Failed       bool
}

// Mission renders one challenge with its approved submissions and, while the
// challenge is open, the caller's submission form.
func (h *Handler) Mission(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	challenge, err := h.svc.Challenges.Get(r.Context(), id)
	if err != nil {
		h.renderLookupError(w, r, err)
		return
	}

	user, _ := auth.GetUser(r.Context())
	page := missionPage{
		Challenge: challenge,
		Open:      challenge.IsOpen(h.today()),
	}
	if user.LocationID != nil {
		page.HomeLocation = user.LocationID.String()
	}

	submissions, err := h.svc.Submissions.List(r.Context(), &id)
	page.Failed = h.failed(r, "submissions", err)
	for _, s := range submissions {
		if s.UserID == user.ID {
			page.Mine = s
		}
		if s.Status == models.StatusApproved {
			page.Approved = append(page.Approved, s)
		}
	}

	if page.Open && page.Mine == nil {
		locations, err := h.svc.Locations.List(r.Context())
		if h.failed(r, "locations", err) {
			page.Open = false
		}
		page.Locations = locations
	}

	h.render(w, r, "mission", "missions", page)
}

type frictionsPage struct {
	Frictions []*models.Friction
	Filter    repositories.FrictionFilter
	Failed    bool
}

// Frictions renders the friction board with category and sort filters.
func (h *Handler) Frictions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := repositories.FrictionFilter{
		Category: q.Get("category"),
		Sort:     q.Get("sort"),
	}
	frictions, err := h.svc.Frictions.List(r.Context(), filter)
	h.render(w, r, "frictions", "frictions", frictionsPage{
		Frictions: frictions,
		Filter:    filter,
		Failed:    h.failed(r, "frictions", err),
	})
}

type frictionPage struct {
	Friction *models.Friction
}

// Friction renders one friction with its vote button.
func (h *Handler) Friction(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	friction, err := h.svc.Frictions.Get(r.Context(), id)
	if err != nil {
		h.renderLookupError(w, r, err)
		return
	}
	h.render(w, r, "friction", "frictions", frictionPage{Friction: friction})
}

type useCasesPage struct {
	Featured *models.UseCase
	UseCases []*models.UseCase
	Filter   repositories.UseCaseFilter
	Failed   bool
}

// UseCases renders the featured use-case and the approved catalogue.
func (h *Handler) UseCases(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := repositories.UseCaseFilter{
		Category: q.Get("category"),
		Tool:     q.Get("tool"),
		Sort:     q.Get("sort"),
	}
	page := useCasesPage{Filter: filter}

	featured, err := h.svc.UseCases.GetFeatured(r.Context())
	if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		h.failed(r, "featured", err)
	}
	page.Featured = featured

	useCases, err := h.svc.UseCases.List(r.Context(), filter)
	page.Failed = h.failed(r, "use_cases", err)
	page.UseCases = useCases

	h.render(w, r, "use_cases", "use-cases", page)
}

type leaderboardPage struct {
	Entries []models.LeaderboardEntry
	Failed  bool
}

// Leaderboard renders every location ranked by participation.
func (h *Handler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	entries, err := h.svc.Leaderboard.Get(r.Context())
	h.render(w, r, "leaderboard", "leaderboard", leaderboardPage{
		Entries: entries,
		Failed:  h.failed(r, "leaderboard", err),
	})
}

type moderatePage struct {
	Submissions       []*models.Submission
	Frictions         []*models.Friction
	UseCases          []*models.UseCase
	SubmissionsFailed bool
	FrictionsFailed   bool
	UseCasesFailed    bool
}

// Moderate renders the pending queues. Moderators only.
func (h *Handler) Moderate(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.GetUser(r.Context())
	if !user.IsModerator() {
		h.auditor.LogModeratorAccessDenied(r.Context(), r.URL.Path, r.RemoteAddr)
		h.renderError(w, r, http.StatusForbidden)
		return
	}

	var page moderatePage
	var err error
	page.Submissions, err = h.svc.Submissions.ListPending(r.Context())
	page.SubmissionsFailed = h.failed(r, "submissions", err)
	page.Frictions, err = h.svc.Frictions.ListPending(r.Context())
	page.FrictionsFailed = h.failed(r, "frictions", err)
	page.UseCases, err = h.svc.UseCases.ListPending(r.Context())
	page.UseCasesFailed = h.failed(r, "use_cases", err)

	h.render(w, r, "moderate", "moderate", page)
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		h.renderError(w, r, http.StatusNotFound)
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) renderLookupError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, apperrors.ErrNotFound) {
		h.renderError(w, r, http.StatusNotFound)
		return
	}
	h.logger.Error("Failed to load page", zap.String("path", r.URL.Path), zap.Error(err))
	h.renderError(w, r, http.StatusInternalServerError)
}

func (h *Handler) today() string {
	return h.clock().UTC().Format(models.DateLayout)
}
