package routes

import (
	"github.com/dhalloran/scrawl/internal/handlers"
	"github.com/dhalloran/scrawl/internal/middleware"
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all application routes
func RegisterRoutes(
	router chi.Router,
	captchaHandler *handlers.CaptchaHandler,
	contactHandler *handlers.ContactHandler,
) {
	// Challenge creation and contact submission are abuse magnets; both get
	// IP rate limiting. Event/verify traffic is bounded by session lifetime.
	createLimit := middleware.DefaultChallengeRateLimit()
	submitLimit := middleware.DefaultContactRateLimit()

	router.Route("/api/captcha", func(r chi.Router) {
		r.With(middleware.RateLimitByIP(createLimit)).Post("/challenge", captchaHandler.Start)
		r.Get("/challenge/{id}", captchaHandler.Get)
		r.Post("/challenge/{id}/refresh", captchaHandler.Refresh)
		r.Post("/challenge/{id}/events", captchaHandler.Events)
		r.With(middleware.RateLimitByIP(submitLimit)).Post("/challenge/{id}/verify", captchaHandler.Verify)
	})

	router.With(middleware.RateLimitByIP(submitLimit)).Post("/api/contact", contactHandler.Submit)
}
