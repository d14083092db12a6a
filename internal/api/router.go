package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/ansuz/internal/auth"
	"github.com/starford/ansuz/internal/noteservice"
)

// NewRouter creates a chi router with all API routes mounted.
// resolver turns bearer tokens into user identities.
// events, if non-nil, is mounted at GET /events inside the identity group.
// publisher, if non-nil, receives note change notifications.
func NewRouter(svc *noteservice.Service, resolver auth.Resolver, events http.Handler, publisher NotePublisher) chi.Router {
	h := NewHandler(svc, publisher)

	r := chi.NewRouter()
	r.Use(IdentityMiddleware(resolver))

	r.Route("/notes", func(r chi.Router) {
		r.Get("/", h.ListNotes)
		r.Post("/", h.CreateNote)

		// Static segments must be declared alongside the {id} routes; chi
		// gives them precedence.
		r.Get("/conversations", h.ListConversations)
		r.Get("/conversations/{conversationID}", h.ConversationThread)

		r.Get("/{id}", h.GetNote)
		r.Put("/{id}", h.UpdateNote)
		r.Patch("/{id}", h.UpdateNote)
		r.Delete("/{id}", h.DeleteNote)
		r.Post("/{id}/summarize", h.SummarizeNote)
	})

	// SSE endpoint (protected by the same identity middleware).
	if events != nil {
		r.Get("/events", events.ServeHTTP)
	}

	return r
}
