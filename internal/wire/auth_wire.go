package wire

import (
	"context"

	"toolcart/internal/adaptor"
	"toolcart/pkg/middleware"
	"toolcart/pkg/utils"

	"github.com/go-chi/chi/v5"
	"golang.org/x/time/rate"
)

func wireAuth(
	ctx context.Context,
	r chi.Router,
	authHandler *adaptor.AuthHandler,
	deps Dependencies,
	config *utils.Config,
) {
	// Secret-issuing and secret-checking routes share one per-IP budget
	clientIP := middleware.NewClientIP(config.Limit.TrustedProxies)
	limiter := middleware.NewRateLimiter(ctx, rate.Limit(config.Limit.RPS), config.Limit.Burst, clientIP, deps.Metrics)

	r.Route("/api/auth", func(r chi.Router) {
		r.Use(limiter.Limit)

		r.Post("/send-otp", authHandler.SendOTP)
		r.Post("/resend-otp", authHandler.ResendOTP)
		r.Post("/verify-otp", authHandler.VerifyOTP)
		r.Post("/forgot-password", authHandler.ForgotPassword)
		r.Post("/reset-password", authHandler.ResetPassword)
	})
}
