package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResource(t *testing.T) {
	for _, in := range []string{"meals", "/meals", "/api/meals", " api/meals/ "} {
		assert.Equal(t, "/api/meals", Resource(in), in)
	}
}

func TestClient_SendsTokenAndMapsErrors(t *testing.T) {
	var gotAuth, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/auth/login":
			_ = json.NewEncoder(w).Encode(map[string]any{"token": "tok-1", "user": map[string]string{"id": "u1"}})
		case "/api/meals":
			gotAuth = r.Header.Get("Authorization")
			gotQuery = r.URL.RawQuery
			_ = json.NewEncoder(w).Encode([]map[string]any{{"id": "m1", "careRecipientId": "7"}})
		case "/api/emergency-info":
			http.Error(w, "emergency info not found", http.StatusNotFound)
		case "/api/care-recipients/9":
			http.Error(w, "forbidden", http.StatusForbidden)
		default:
			http.Error(w, "bad", http.StatusBadRequest)
		}
	}))
	defer srv.Close()

	c, err := New(srv.URL, 0)
	require.NoError(t, err)
	assert.False(t, c.Authenticated())

	u, err := c.Login(context.Background(), "ana@example.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, "u1", u.ID)
	assert.True(t, c.Authenticated())

	recs, err := c.ListRecords(context.Background(), "meals", "7", ListOptions{Limit: 10})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "m1", recs[0].ID())
	assert.Equal(t, "7", recs[0].CareRecipientID())
	assert.Equal(t, "Bearer tok-1", gotAuth)
	assert.Equal(t, "careRecipientId=7&limit=10", gotQuery)

	_, err = c.EmergencyInfo(context.Background(), "7")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, c.DeleteCareRecipient(context.Background(), "9"), ErrForbidden)

	_, err = c.CreateRecord(context.Background(), "sleep", map[string]any{"careRecipientId": "7"})
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestNew_RequiresBaseURL(t *testing.T) {
	_, err := New("", 0)
	assert.Error(t, err)
}

func TestClient_EmergencyMutationsCarryCredential(t *testing.T) {
	var bodies []map[string]any
	var methods []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/emergency-info/e1", r.URL.Path)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		bodies = append(bodies, body)
		methods = append(methods, r.Method)

		if body["pin"] != "1234" {
			http.Error(w, "invalid credential", http.StatusForbidden)
			return
		}
		if r.Method == http.MethodDelete {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"id": "e1", "hasPin": false, "bloodType": "A-"})
	}))
	defer srv.Close()

	c, err := New(srv.URL, 0)
	require.NoError(t, err)
	ctx := context.Background()

	noPIN := ""
	out, err := c.UpdateEmergencyInfo(ctx, "e1", Credential{PIN: "1234"}, EmergencyInfoUpdate{
		NewPIN:   &noPIN,
		Contents: &EmergencyContents{BloodType: "A-"},
	})
	require.NoError(t, err)
	assert.Equal(t, "A-", out.BloodType)
	assert.False(t, out.HasPIN)

	_, err = c.UpdateEmergencyInfo(ctx, "e1", Credential{Password: "nope"}, EmergencyInfoUpdate{})
	assert.ErrorIs(t, err, ErrForbidden)

	require.NoError(t, c.DeleteEmergencyInfo(ctx, "e1", Credential{PIN: "1234"}))

	require.Len(t, bodies, 3)
	assert.Equal(t, []string{http.MethodPatch, http.MethodPatch, http.MethodDelete}, methods)
	assert.Equal(t, "", bodies[0]["newPin"], "an empty new pin clears it")
	assert.Equal(t, "A-", bodies[0]["contents"].(map[string]any)["bloodType"])
	assert.Equal(t, map[string]any{"password": "nope"}, bodies[1])
	assert.Equal(t, map[string]any{"pin": "1234"}, bodies[2])
}

func TestClient_GetRecord(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/meals/m1" {
			http.Error(w, "record not found", http.StatusNotFound)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"id": "m1", "careRecipientId": "7", "mealType": "lunch"})
	}))
	defer srv.Close()

	c, err := New(srv.URL, 0)
	require.NoError(t, err)

	rec, err := c.GetRecord(context.Background(), "meals", "m1")
	require.NoError(t, err)
	assert.Equal(t, "m1", rec.ID())
	assert.Equal(t, "lunch", rec["mealType"])

	_, err = c.GetRecord(context.Background(), "meals", "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}
