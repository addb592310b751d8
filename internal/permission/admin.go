package permission

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
)

// NameLookup resolves the name of a connected player.
type NameLookup func(subject uuid.UUID) (string, bool)

// Admin serves grant management for a Store over HTTP.
type Admin struct {
	store  *Store
	secret string
	names  NameLookup
}

// NewAdmin creates the handler. Requests must carry secret in the "secret"
// query parameter when it is set. names may be nil.
func NewAdmin(store *Store, secret string, names NameLookup) *Admin {
	return &Admin{store: store, secret: secret, names: names}
}

// Routes registers the permission endpoints on mux.
func (a *Admin) Routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /permissions/{uuid}", a.authorized(a.list))
	mux.HandleFunc("PUT /permissions/{uuid}/{perm}", a.authorized(a.grant))
	mux.HandleFunc("DELETE /permissions/{uuid}/{perm}", a.authorized(a.revoke))
}

type subjectResponse struct {
	UUID        string   `json:"uuid"`
	Name        string   `json:"name,omitempty"`
	Permissions []string `json:"permissions"`
}

func (a *Admin) authorized(h func(http.ResponseWriter, *http.Request, uuid.UUID)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if a.secret != "" {
			got := r.URL.Query().Get("secret")
			if subtle.ConstantTimeCompare([]byte(got), []byte(a.secret)) != 1 {
				http.Error(w, "invalid secret", http.StatusUnauthorized)
				return
			}
		}
		subject, err := uuid.Parse(r.PathValue("uuid"))
		if err != nil {
			http.Error(w, "invalid uuid", http.StatusBadRequest)
			return
		}
		h(w, r, subject)
	}
}

func (a *Admin) list(w http.ResponseWriter, _ *http.Request, subject uuid.UUID) {
	a.respond(w, subject)
}

func (a *Admin) grant(w http.ResponseWriter, r *http.Request, subject uuid.UUID) {
	if err := a.store.Grant(subject, a.name(subject), r.PathValue("perm")); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	a.respond(w, subject)
}

func (a *Admin) revoke(w http.ResponseWriter, r *http.Request, subject uuid.UUID) {
	if err := a.store.Revoke(subject, r.PathValue("perm")); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	a.respond(w, subject)
}

func (a *Admin) respond(w http.ResponseWriter, subject uuid.UUID) {
	perms, err := a.store.Permissions(subject)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if perms == nil {
		perms = []string{}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(subjectResponse{
		UUID:        subject.String(),
		Name:        a.name(subject),
		Permissions: perms,
	})
}

func (a *Admin) name(subject uuid.UUID) string {
	if a.names == nil {
		return ""
	}
	name, _ := a.names(subject)
	return name
}
