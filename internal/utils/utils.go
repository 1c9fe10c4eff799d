package utils

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/ArowuTest/bridgetunes-draw-console/internal/models"
)

// ErrInvalidToken is returned for tokens that cannot become a session.
var ErrInvalidToken = errors.New("invalid token")

// GenerateJWT issues an HS256 session token for subject. Used by the CLI and
// tests; production tokens come from the promo backend.
func GenerateJWT(subject, role, secret string, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"sub":  subject,
		"role": role,
		"exp":  time.Now().Add(ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// SessionFromToken turns a bearer token into a Session. With a secret the
// signature and expiry are verified. Without one the token is only decoded,
// the backend being the authority that checks it on every call.
func SessionFromToken(tokenString, secret string) (models.Session, error) {
	claims := jwt.MapClaims{}
	var err error
	if secret != "" {
		_, err = jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errors.New("unexpected signing method")
			}
			return []byte(secret), nil
		})
	} else {
		_, _, err = jwt.NewParser().ParseUnverified(tokenString, claims)
	}
	if err != nil {
		return models.Session{}, err
	}

	session := models.Session{Token: tokenString}
	session.Subject, _ = claims.GetSubject()
	if session.Subject == "" {
		// older backend tokens carry user_id instead of sub
		session.Subject, _ = claims["user_id"].(string)
	}
	session.Role, _ = claims["role"].(string)
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		session.ExpiresAt = exp.Time
	}
	if session.Key() == "" {
		return models.Session{}, ErrInvalidToken
	}
	return session, nil
}

// MaskMSISDN hides the middle of a phone number, keeping the first and last
// three characters. Values shorter than seven characters are returned as is.
func MaskMSISDN(msisdn string) string {
	if len(msisdn) < 7 {
		return msisdn
	}
	return msisdn[:3] + "***" + msisdn[len(msisdn)-3:]
}
