package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

type stubValidator map[string]string

func (s stubValidator) Validate(token string) (string, error) {
	owner, ok := s[token]
	if !ok {
		return "", errors.New("invalid token")
	}
	return owner, nil
}

func newAuthRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(JWT(stubValidator{"good": "u1"}))
	router.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(ContextOwnerKey))
	})
	return router
}

func TestJWTSetsOwner(t *testing.T) {
	router := newAuthRouter()

	for name, req := range map[string]*http.Request{
		"header": func() *http.Request {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.Header.Set("Authorization", "Bearer good")
			return r
		}(),
		"query": httptest.NewRequest(http.MethodGet, "/?access_token=good", nil),
	} {
		t.Run(name, func(t *testing.T) {
			recorder := httptest.NewRecorder()
			router.ServeHTTP(recorder, req)
			if recorder.Code != http.StatusOK {
				t.Fatalf("unexpected status: %d", recorder.Code)
			}
			if got := recorder.Body.String(); got != "u1" {
				t.Fatalf("unexpected owner: %s", got)
			}
		})
	}
}

func TestJWTRejectsMissingOrMalformed(t *testing.T) {
	router := newAuthRouter()

	cases := map[string]string{
		"missing":   "",
		"scheme":    "Basic good",
		"empty":     "Bearer ",
		"malformed": "Bearer",
	}
	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if header != "" {
				req.Header.Set("Authorization", header)
			}
			recorder := httptest.NewRecorder()
			router.ServeHTTP(recorder, req)
			if recorder.Code != http.StatusUnauthorized {
				t.Fatalf("unexpected status: %d", recorder.Code)
			}
		})
	}
}

func TestJWTMapsValidatorFailure(t *testing.T) {
	router := newAuthRouter()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer bad")
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)

	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected status: %d", recorder.Code)
	}
}
