package authsvc_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Bars-377/web-chat/internal/domain"
	"github.com/Bars-377/web-chat/internal/svc/authsvc"
)

func setupTestMux(t *testing.T) (*http.ServeMux, *authsvc.AuthService) {
	t.Helper()

	svc := setupTestService(t)
	mux := http.NewServeMux()
	authsvc.NewHTTPTransport(svc, authsvc.HTTPTransportConfig{}).RegisterRoutes(mux)

	return mux, svc
}

func postJSON(mux http.Handler, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	return rec
}

func postForm(mux http.Handler, path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	return rec
}

func decodeDetail(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()

	var resp domain.ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))

	return resp.Detail
}

func tokenCookie(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == authsvc.DefaultCookieName {
			return cookie
		}
	}

	return nil
}

func TestHTTPTransport_Register(t *testing.T) {
	t.Parallel()

	mux, svc := setupTestMux(t)

	rec := postJSON(mux, "/register/", `{"username":"alice","email":"alice@example.com","password":"password123"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp domain.RegisterResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "user created", resp.Message)
	assert.Positive(t, resp.UserID)
	assert.Equal(t, domain.TokenTypeBearer, resp.TokenType)

	claims, err := svc.Tokens.Verify(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Username)

	cookie := tokenCookie(rec)
	require.NotNil(t, cookie)
	assert.Equal(t, resp.AccessToken, cookie.Value)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, "/", cookie.Path)

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantDetail string
	}{
		{
			name:       "duplicate username",
			body:       `{"username":"alice","email":"other@example.com","password":"password123"}`,
			wantStatus: http.StatusConflict,
			wantDetail: "username already registered",
		},
		{
			name:       "duplicate email",
			body:       `{"username":"alice2","email":"alice@example.com","password":"password123"}`,
			wantStatus: http.StatusConflict,
			wantDetail: "email already registered",
		},
		{
			name:       "invalid email",
			body:       `{"username":"carol","email":"carol","password":"password123"}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "malformed body",
			body:       `{"username":`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "empty body",
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postJSON(mux, "/register/", tt.body)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Nil(t, tokenCookie(rec))

			detail := decodeDetail(t, rec)
			if tt.wantDetail != "" {
				assert.Equal(t, tt.wantDetail, detail)
			}
		})
	}
}

func TestHTTPTransport_Login(t *testing.T) {
	t.Parallel()

	mux, svc := setupTestMux(t)

	rec := postJSON(mux, "/register/", `{"username":"alice","email":"alice@example.com","password":"password123"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	t.Run("success", func(t *testing.T) {
		rec := postForm(mux, "/token/", url.Values{"username": {"alice"}, "password": {"password123"}})
		require.Equal(t, http.StatusOK, rec.Code)

		var resp domain.AuthTokenResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, "bearer", resp.TokenType)

		claims, err := svc.Tokens.Verify(resp.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, "alice", claims.Username)

		cookie := tokenCookie(rec)
		require.NotNil(t, cookie)
		assert.Equal(t, resp.AccessToken, cookie.Value)
	})

	// Unknown user and wrong password must be indistinguishable.
	failures := []struct {
		name string
		form url.Values
	}{
		{name: "wrong password", form: url.Values{"username": {"alice"}, "password": {"wrong"}}},
		{name: "unknown user", form: url.Values{"username": {"nobody"}, "password": {"password123"}}},
	}

	for _, tt := range failures {
		t.Run(tt.name, func(t *testing.T) {
			rec := postForm(mux, "/token/", tt.form)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, "Invalid username or password", decodeDetail(t, rec))
			assert.Nil(t, tokenCookie(rec))
		})
	}
}

func TestHTTPTransport_Validate(t *testing.T) {
	t.Parallel()

	mux, svc := setupTestMux(t)

	token, err := svc.Tokens.Issue("alice")
	require.NoError(t, err)

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantBody   string
	}{
		{name: "valid", header: "Bearer " + token.Encoded, wantStatus: http.StatusOK, wantBody: "alice"},
		{name: "invalid", header: "Bearer forged", wantStatus: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Basic " + token.Encoded, wantStatus: http.StatusBadRequest},
		{name: "missing", wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(http.MethodGet, "/token/validate", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}

			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)

			if tt.wantBody != "" {
				assert.Equal(t, tt.wantBody, rec.Body.String())
			}
		})
	}
}
