package main

import (
	"crypto/rand"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const (
	jwtExpiry        = 12 * time.Hour
	bcryptCost       = 12
	loginRateWindow  = 60 * time.Second
	maxLoginAttempts = 10
	adminSubject     = "admin"
)

var (
	ErrAdminDisabled   = errors.New("admin api disabled")
	ErrBadCredentials  = errors.New("invalid password")
	ErrTooManyAttempts = errors.New("too many login attempts, try again later")
)

// Auth guards the admin API. The password hash and JWT secret live only in
// memory.
type Auth struct {
	passHash  []byte
	jwtSecret []byte
	now       func() time.Time

	// Rate limiting for login attempts (IP -> attempts)
	rateMu  sync.Mutex
	rateMap map[string]*rateEntry
}

type rateEntry struct {
	Count   int
	ResetAt time.Time
}

// NewAuth hashes password for later comparison. An empty password yields an
// Auth that rejects every login.
func NewAuth(password string) (*Auth, error) {
	return newAuthWithCost(password, bcryptCost)
}

func newAuthWithCost(password string, cost int) (*Auth, error) {
	a := &Auth{
		now:     time.Now,
		rateMap: make(map[string]*rateEntry),
	}
	a.jwtSecret = make([]byte, 32)
	if _, err := rand.Read(a.jwtSecret); err != nil {
		return nil, fmt.Errorf("generate jwt secret: %w", err)
	}
	if password == "" {
		return a, nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return nil, fmt.Errorf("hash admin password: %w", err)
	}
	a.passHash = hash
	return a, nil
}

// Enabled reports whether an admin password was configured.
func (a *Auth) Enabled() bool {
	return len(a.passHash) > 0
}

// Login checks the admin password and returns a signed token
func (a *Auth) Login(password, ip string) (string, error) {
	if !a.Enabled() {
		return "", ErrAdminDisabled
	}
	if !a.checkRate(ip) {
		return "", ErrTooManyAttempts
	}
	if err := bcrypt.CompareHashAndPassword(a.passHash, []byte(password)); err != nil {
		return "", ErrBadCredentials
	}
	return a.generateToken()
}

// ValidateToken checks signature, expiry and subject.
func (a *Auth) ValidateToken(tokenStr string) error {
	if !a.Enabled() {
		return ErrAdminDisabled
	}
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return a.jwtSecret, nil
	}, jwt.WithTimeFunc(a.now))
	if err != nil {
		return err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return fmt.Errorf("invalid token")
	}
	if sub, _ := claims["sub"].(string); sub != adminSubject {
		return fmt.Errorf("invalid token claims")
	}
	return nil
}

func (a *Auth) generateToken() (string, error) {
	now := a.now()
	claims := jwt.MapClaims{
		"sub": adminSubject,
		"exp": now.Add(jwtExpiry).Unix(),
		"iat": now.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.jwtSecret)
}

func (a *Auth) checkRate(ip string) bool {
	a.rateMu.Lock()
	defer a.rateMu.Unlock()

	now := a.now()
	entry, ok := a.rateMap[ip]
	if !ok || now.After(entry.ResetAt) {
		a.rateMap[ip] = &rateEntry{Count: 1, ResetAt: now.Add(loginRateWindow)}
		return true
	}
	entry.Count++
	return entry.Count <= maxLoginAttempts
}
