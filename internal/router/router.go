package router

import (
	"net/http"

	"github.com/bodycount/backend/internal/archive"
	"github.com/bodycount/backend/internal/auth"
	"github.com/bodycount/backend/internal/billing"
	"github.com/bodycount/backend/internal/insight"
	"github.com/bodycount/backend/internal/journal"
	"github.com/bodycount/backend/internal/ledger"
	"github.com/bodycount/backend/internal/middleware"
)

// Deps bundles the feature handlers the router mounts.
type Deps struct {
	Auth    *auth.Handler
	Ledger  *ledger.Handler
	Journal *journal.Handler
	Insight *insight.Handler
	Archive *archive.Handler
	Billing *billing.Handler

	TokenValidator middleware.TokenValidator
}

// New returns an http.Handler serving the API under /api/v1. Auth, billing
// packs, and the payment webhook are public; everything else requires a
// bearer token.
func New(d Deps) http.Handler {
	mux := http.NewServeMux()
	base := "/api/v1"
	authed := middleware.JWTAuth(d.TokenValidator)

	mux.HandleFunc("POST "+base+"/auth/register", d.Auth.Register)
	mux.HandleFunc("POST "+base+"/auth/login", d.Auth.Login)

	protect := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, authed(h))
	}

	protect("GET "+base+"/account/me", d.Auth.Me)
	protect("PATCH "+base+"/account/settings", d.Auth.UpdateSettings)

	protect("GET "+base+"/credits", d.Ledger.Balance)

	protect("GET "+base+"/relationships", d.Journal.ListRelationships)
	protect("POST "+base+"/relationships", d.Journal.CreateRelationship)
	protect("PATCH "+base+"/relationships/{id}", d.Journal.UpdateRelationship)
	protect("DELETE "+base+"/relationships/{id}", d.Journal.DeleteRelationship)

	protect("GET "+base+"/wishlist", d.Journal.ListWishlist)
	protect("POST "+base+"/wishlist", d.Journal.CreateWishlistItem)
	protect("PATCH "+base+"/wishlist/{id}", d.Journal.UpdateWishlistItem)
	protect("DELETE "+base+"/wishlist/{id}", d.Journal.DeleteWishlistItem)

	protect("GET "+base+"/mirror", d.Journal.GetMirror)
	protect("PUT "+base+"/mirror", d.Journal.PutMirror)

	protect("POST "+base+"/insights/generate", d.Insight.Generate)

	protect("GET "+base+"/insights/archive", d.Archive.List)
	protect("POST "+base+"/insights/archive", d.Archive.Create)
	protect("PATCH "+base+"/insights/archive/{id}", d.Archive.Update)
	protect("DELETE "+base+"/insights/archive/{id}", d.Archive.Delete)
	protect("GET "+base+"/insights/folders", d.Archive.Folders)

	mux.HandleFunc("GET "+base+"/billing/packs", d.Billing.Packs)
	protect("POST "+base+"/billing/checkout", d.Billing.Checkout)
	mux.HandleFunc("POST "+base+"/billing/webhook", d.Billing.Webhook)

	return mux
}
