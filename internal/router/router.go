package router // package router wires HTTP routes to handlers and middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/trailhead-labs/tour-booking/internal/handler"
	"github.com/trailhead-labs/tour-booking/internal/middleware"
	"github.com/trailhead-labs/tour-booking/internal/model"
	"github.com/trailhead-labs/tour-booking/internal/token"
)

// Deps carries everything route registration needs. RateLimit guards the
// public credential endpoints and may be a pass-through.
type Deps struct {
	Auth      *handler.AuthHandler
	Users     *handler.UserHandler
	Tours     *handler.TourHandler
	Reviews   *handler.ReviewHandler
	Bookings  *handler.BookingHandler
	Views     *handler.ViewHandler
	Tokens    *token.Service
	Resolver  middleware.UserResolver
	RateLimit echo.MiddlewareFunc
}

// Register attaches all application routes to the Echo instance.
func Register(e *echo.Echo, d Deps) {
	e.GET("/healthz", handler.Health)

	protect := middleware.Protect(d.Tokens, d.Resolver)
	loggedIn := middleware.IsLoggedIn(d.Tokens, d.Resolver)

	registerUserRoutes(e, d, protect)
	registerTourRoutes(e, d, protect)
	registerReviewRoutes(e.Group("/api/v1/reviews", protect), d)
	registerBookingRoutes(e, d, protect)
	registerViewRoutes(e, d, protect, loggedIn)
}

// registerUserRoutes mounts the auth endpoints, the account endpoints and the
// admin user CRUD. The first five routes are public; everything after runs
// behind the session middleware.
func registerUserRoutes(e *echo.Echo, d Deps, protect echo.MiddlewareFunc) {
	g := e.Group("/api/v1/users")

	g.POST("/signup", d.Auth.Signup, d.RateLimit)
	g.POST("/login", d.Auth.Login, d.RateLimit)
	g.GET("/logout", d.Auth.Logout)
	g.POST("/forgotPassword", d.Auth.ForgotPassword, d.RateLimit)
	g.PATCH("/resetPassword/:token", d.Auth.ResetPassword)

	auth := e.Group("/api/v1/users", protect)
	auth.GET("/me", d.Users.GetMe)
	auth.PATCH("/updatePassword", d.Auth.UpdatePassword)
	auth.PATCH("/updateMe", d.Users.UpdateMe)
	auth.DELETE("/deleteMe", d.Users.DeleteMe)

	admin := e.Group("/api/v1/users", protect, middleware.RestrictTo(model.RoleAdmin))
	admin.GET("", d.Users.List)
	admin.GET("/:id", d.Users.Get)
	admin.PATCH("/:id", d.Users.Update)
	admin.DELETE("/:id", d.Users.Delete)
}

func registerTourRoutes(e *echo.Echo, d Deps, protect echo.MiddlewareFunc) {
	g := e.Group("/api/v1/tours")

	g.GET("", d.Tours.List)
	g.GET("/top-5-cheap", d.Tours.AliasTopTours)
	g.GET("/tours-stats", d.Tours.Stats)
	g.GET("/monthly-plan/:year", d.Tours.MonthlyPlan, protect,
		middleware.RestrictTo(model.RoleAdmin, model.RoleLeadGuide, model.RoleGuide))
	g.GET("/:id", d.Tours.Get)

	manage := middleware.RestrictTo(model.RoleAdmin, model.RoleLeadGuide)
	g.POST("", d.Tours.Create, protect, manage)
	g.PATCH("/:id", d.Tours.Update, protect, manage)
	g.DELETE("/:id", d.Tours.Delete, protect, manage)

	// Nested reviews for one tour reuse the review handlers with the tour id
	// coming from the path.
	nested := e.Group("/api/v1/tours/:tourId/reviews", protect)
	registerReviewRoutes(nested, d)
}

// registerReviewRoutes is shared by /api/v1/reviews and the nested tour
// group; the group already carries the session middleware.
func registerReviewRoutes(g *echo.Group, d Deps) {
	g.GET("", d.Reviews.List)
	g.POST("", d.Reviews.Create, middleware.RestrictTo(model.RoleUser))
	g.GET("/:id", d.Reviews.Get)
	g.PATCH("/:id", d.Reviews.Update, middleware.RestrictTo(model.RoleUser, model.RoleAdmin))
	g.DELETE("/:id", d.Reviews.Delete, middleware.RestrictTo(model.RoleUser, model.RoleAdmin))
}

func registerBookingRoutes(e *echo.Echo, d Deps, protect echo.MiddlewareFunc) {
	g := e.Group("/api/v1/bookings", protect)

	g.GET("/checkout-session/:tourId", d.Bookings.GetCheckoutSession)

	manage := middleware.RestrictTo(model.RoleAdmin, model.RoleLeadGuide)
	g.GET("", d.Bookings.List, manage)
	g.POST("", d.Bookings.Create, manage)
	g.GET("/:id", d.Bookings.Get, manage)
	g.PATCH("/:id", d.Bookings.Update, manage)
	g.DELETE("/:id", d.Bookings.Delete, manage)
}

// registerViewRoutes mounts the server-rendered pages. Public pages use the
// non-failing session check so they render guest and member variants; account
// pages require a login.
func registerViewRoutes(e *echo.Echo, d Deps, protect, loggedIn echo.MiddlewareFunc) {
	e.GET("/", d.Views.GetOverview, loggedIn)
	e.GET("/tour/:tourSlug", d.Views.GetTour, loggedIn)
	e.GET("/login", d.Views.Login, loggedIn)
	e.GET("/me", d.Views.GetAccount, protect)
	e.GET("/my-tours", d.Views.GetMyTours, protect)
}
