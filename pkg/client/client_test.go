package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devclub-edu/leaderboard/internal/models"
)

func TestLoginStoresToken(t *testing.T) {
	var gotAuth string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/auth/login":
			var req models.LoginRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "ann@example.com", req.Email)
			w.Write([]byte(`{"success":true,"data":{"token":"tok-1","role":"student"}}`))
		case "/tasks":
			gotAuth = r.Header.Get("Authorization")
			w.Write([]byte(`{"success":true,"data":{"tasks":[{"id":"t1","name":"Arrays","completed":true,"points":100}]}}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer ts.Close()

	c := NewClient(ts.URL)
	resp, err := c.Login(context.Background(), "ann@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, models.RoleStudent, resp.Role)
	assert.Equal(t, "tok-1", c.Token())

	tasks, err := c.Tasks(context.Background())
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.True(t, tasks[0].Completed)
	assert.Equal(t, "Bearer tok-1", gotAuth)
}

func TestAPIErrorCarriesFields(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"success":false,"error":{"code":"validation_error","message":"Please enter a valid email","fields":{"email":"Please enter a valid email"}}}`))
	}))
	defer ts.Close()

	_, err := NewClient(ts.URL).Signup(context.Background(), models.SignupRequest{Email: "bad"})
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "validation_error", apiErr.Code)
	assert.Equal(t, "Please enter a valid email", apiErr.Fields["email"])
}

func TestLeaderboardPath(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/leaderboard/dsa", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":true,"data":{"domain":"dsa","leaderboard":[{"rank":1,"name":"Ann","email":"ann@example.com","points":300}],"total":1}}`))
	}))
	defer ts.Close()

	entries, err := NewClient(ts.URL).Leaderboard(context.Background(), models.DomainDSA)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 300, entries[0].Points)
}

func TestNonJSONResponse(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer ts.Close()

	err := NewClient(ts.URL).Health(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 502")
}
