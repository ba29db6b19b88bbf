package router

import (
	"github.com/go-chi/chi/v5"
	"github.com/majorphones/topup/handler"
	"github.com/majorphones/topup/identity"
	"github.com/majorphones/topup/infra/middle"
)

// Routes mounts the authenticated API under /v1
func Routes(r chi.Router, jwtService *identity.JWTService, depositHandler *handler.DepositHandler, walletHandler *handler.WalletHandler) {
	r.Route("/v1", func(r chi.Router) {
		r.Use(middle.AuthMiddleware(jwtService))

		r.Get("/methods", depositHandler.ListMethods)
		r.Post("/session/reset", depositHandler.ResetSession)
		r.Route("/deposit", func(r chi.Router) {
			r.Post("/select", depositHandler.SelectMethod)
			r.Post("/amount", depositHandler.EnterAmount)
			r.Post("/submit", depositHandler.Submit)
			r.Post("/dismiss", depositHandler.DismissError)
			r.Post("/widget/complete", depositHandler.CompleteWidget)
		})

		r.Route("/wallet", func(r chi.Router) {
			r.Get("/assets", walletHandler.ListAssets)
			r.Post("/select", walletHandler.SelectAsset)
			r.Post("/generate", walletHandler.GenerateAddress)
		})
	})
}
