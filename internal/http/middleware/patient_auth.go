package middleware

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/harborview-health/patient-portal/internal/identity"
)

// patientClaims is the token shape minted by the portal's session service.
// The profile fields seed the booking draft so the patient does not retype
// what the hospital already knows.
type patientClaims struct {
	jwt.RegisteredClaims
	Role         string `json:"role"`
	FullName     string `json:"name"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	DateOfBirth  string `json:"birthdate"`
	Address      string `json:"address"`
	InsuranceRef string `json:"insurance_ref"`
}

// PatientJWT enforces an HMAC-signed JWT on patient endpoints and exposes the
// authenticated profile through the request context.
func PatientJWT(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret == "" {
				http.Error(w, "patient auth disabled", http.StatusUnauthorized)
				return
			}
			auth := r.Header.Get("Authorization")
			if auth == "" || !strings.HasPrefix(auth, "Bearer ") {
				http.Error(w, "missing authorization header", http.StatusUnauthorized)
				return
			}
			tokenString := strings.TrimPrefix(auth, "Bearer ")
			claims := patientClaims{}
			token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return []byte(secret), nil
			})
			if err != nil || !token.Valid {
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}

			profile := &identity.Profile{
				UserID:       claims.Subject,
				Role:         claims.Role,
				FullName:     claims.FullName,
				Email:        claims.Email,
				Phone:        claims.Phone,
				DateOfBirth:  claims.DateOfBirth,
				Address:      claims.Address,
				InsuranceRef: claims.InsuranceRef,
			}
			next.ServeHTTP(w, r.WithContext(identity.WithProfile(r.Context(), profile)))
		})
	}
}
