package permission

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAdminServer(t *testing.T, names NameLookup) (*Store, *httptest.Server) {
	t.Helper()
	store := newTestStore(t, time.Minute)
	mux := http.NewServeMux()
	NewAdmin(store, "s3cret", names).Routes(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return store, srv
}

func doRequest(t *testing.T, method, url string) (*http.Response, subjectResponse) {
	t.Helper()
	req, err := http.NewRequest(method, url, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var body subjectResponse
	if resp.StatusCode == http.StatusOK {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	}
	return resp, body
}

func TestAdmin_GrantListRevoke(t *testing.T) {
	id := uuid.New()
	store, srv := newAdminServer(t, func(subject uuid.UUID) (string, bool) {
		return "Notch", subject == id
	})
	base := srv.URL + "/permissions/" + id.String()

	resp, body := doRequest(t, http.MethodPut, base+"/"+BypassPermission+"?secret=s3cret")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Notch", body.Name)
	assert.Equal(t, []string{"antihealthindicator.bypass"}, body.Permissions)
	assert.True(t, store.HasPermission(id, BypassPermission))

	_, body = doRequest(t, http.MethodGet, base+"?secret=s3cret")
	assert.Equal(t, []string{"antihealthindicator.bypass"}, body.Permissions)

	resp, body = doRequest(t, http.MethodDelete, base+"/"+BypassPermission+"?secret=s3cret")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, body.Permissions)
	assert.False(t, store.HasPermission(id, BypassPermission))
}

func TestAdmin_UnknownSubjectListsEmpty(t *testing.T) {
	_, srv := newAdminServer(t, nil)

	resp, body := doRequest(t, http.MethodGet, srv.URL+"/permissions/"+uuid.NewString()+"?secret=s3cret")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []string{}, body.Permissions)
	assert.Empty(t, body.Name)
}

func TestAdmin_RejectsBadSecret(t *testing.T) {
	store, srv := newAdminServer(t, nil)
	id := uuid.New()

	resp, _ := doRequest(t, http.MethodPut, srv.URL+"/permissions/"+id.String()+"/"+BypassPermission+"?secret=nope")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.False(t, store.HasPermission(id, BypassPermission))
}

func TestAdmin_RejectsBadUUID(t *testing.T) {
	_, srv := newAdminServer(t, nil)

	resp, _ := doRequest(t, http.MethodGet, srv.URL+"/permissions/not-a-uuid?secret=s3cret")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
