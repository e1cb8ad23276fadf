package middleware

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/eaglebank/corebank/shared/apperrors"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

const testSecret = "test-secret"

func init() {
	gin.SetMode(gin.TestMode)
	// jwtSecret is resolved once per process; pin it before any test runs.
	jwtSecretOnce.Do(func() { jwtSecretVal = []byte(testSecret) })
}

func signToken(t *testing.T, secret string, expiresIn time.Duration) string {
	t.Helper()
	claims := Claims{
		OperatorID: "op-1",
		Role:       "teller",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiresIn)),
		},
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestAuthMiddleware(t *testing.T) {
	tests := []struct {
		name           string
		header         string
		expectedStatus int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized},
		{"bad signature", "Bearer " + signToken(t, "other", time.Hour), http.StatusUnauthorized},
		{"expired", "Bearer " + signToken(t, testSecret, -time.Minute), http.StatusUnauthorized},
		{"valid", "Bearer " + signToken(t, testSecret, time.Hour), http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.GET("/p", AuthMiddleware(), func(c *gin.Context) {
				id, _ := GetOperatorID(c)
				c.String(http.StatusOK, id)
			})

			req, _ := http.NewRequest(http.MethodGet, "/p", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.expectedStatus {
				t.Fatalf("expected %d, got %d: %s", tt.expectedStatus, w.Code, w.Body.String())
			}
			if tt.expectedStatus == http.StatusOK && w.Body.String() != "op-1" {
				t.Errorf("operator id = %q", w.Body.String())
			}
		})
	}
}

func TestRespondWithAppError(t *testing.T) {
	tests := []struct {
		err            error
		expectedStatus int
		expectedBody   string
	}{
		{fmt.Errorf("%w: account 4", apperrors.ErrNotFound), http.StatusNotFound, `{"message":"not found: account 4"}`},
		{fmt.Errorf("%w: balance 10", apperrors.ErrInsufficientBalance), http.StatusUnprocessableEntity, `{"message":"Insufficient balance"}`},
		{errors.New("pq: connection refused"), http.StatusInternalServerError, `{"message":"Internal server error"}`},
	}

	for _, tt := range tests {
		r := gin.New()
		r.Use(LoggingMiddleware(zap.NewNop()))
		r.GET("/e", func(c *gin.Context) { RespondWithAppError(c, tt.err) })

		req, _ := http.NewRequest(http.MethodGet, "/e", nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		if w.Code != tt.expectedStatus {
			t.Errorf("%v: expected %d, got %d", tt.err, tt.expectedStatus, w.Code)
		}
		if w.Body.String() != tt.expectedBody {
			t.Errorf("%v: body = %s", tt.err, w.Body.String())
		}
	}
}

func TestValidateRequest(t *testing.T) {
	type req struct {
		Name string `validate:"required"`
		Age  int    `validate:"gte=0,lte=150"`
	}

	if errs := ValidateRequest(req{Name: "a", Age: 3}); errs != nil {
		t.Fatalf("unexpected errors %+v", errs)
	}

	errs := ValidateRequest(req{Age: 200})
	if len(errs) != 2 {
		t.Fatalf("expected 2 errors, got %+v", errs)
	}
	if errs[0].Field != "Name" || errs[0].Type != "required" {
		t.Errorf("unexpected first error %+v", errs[0])
	}
}

func TestIssueTokenRoundTrip(t *testing.T) {
	token, err := IssueToken("op-9", "supervisor", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	claims, err := ParseToken(token)
	if err != nil {
		t.Fatal(err)
	}
	if claims.OperatorID != "op-9" || claims.Role != "supervisor" {
		t.Errorf("claims = %+v", claims)
	}

	if _, err := IssueToken("", "", time.Hour); err == nil {
		t.Error("issued a token without operator")
	}
}

func TestRefreshToken(t *testing.T) {
	r := gin.New()
	r.POST("/refresh", AuthMiddleware(), RefreshToken(time.Hour))

	req, _ := http.NewRequest(http.MethodPost, "/refresh", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, time.Minute))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var body struct {
		Token     string `json:"token"`
		ExpiresIn int64  `json:"expiresIn"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	claims, err := ParseToken(body.Token)
	if err != nil || claims.OperatorID != "op-1" || body.ExpiresIn != 3600 {
		t.Errorf("refreshed token claims %+v, expiresIn %d, err %v", claims, body.ExpiresIn, err)
	}
}
