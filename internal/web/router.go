package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/squaresclub/gatedb/internal/handlers"
)

func Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", handlers.Health)

	// --- Gate: the door check-in desk ---
	r.Route("/gate", func(gr chi.Router) {
		gr.Get("/", handlers.GateIndex)
		gr.Get("/dance/{id}", handlers.SigninPage)
		gr.Get("/books/{id}", handlers.BooksPage)
		gr.Post("/signin", handlers.SigninSubmit)
		gr.Post("/undo", handlers.UndoSubmit)
	})

	// --- Online payments ---
	r.Route("/pay", func(pr chi.Router) {
		pr.Post("/", handlers.PayStart)
		// The gateway callback authenticates by (id, nonce) possession only.
		pr.Post("/cybersource/{id}/{nonce}", handlers.PayPostCybersource)
		pr.Get("/error", handlers.PayError)
		pr.Get("/receipt/{id}/{nonce}", handlers.PayReceipt)
		pr.Get("/receipt/{id}/{nonce}/qr.png", handlers.ReceiptQR)
	})

	// --- Admin: period management ---
	r.Route("/admin", func(ar chi.Router) {
		ar.Post("/periods", handlers.AdminCreatePeriod)
		ar.Post("/periods/copy", handlers.AdminCopySubscriptions)
	})

	return r
}
