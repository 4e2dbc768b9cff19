package rpc

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"securewrap/crypto"
	"securewrap/observability/logging"
)

type contextKey string

const contextKeyCaller contextKey = "securewrap.caller"

// AuthConfig controls bearer token issuance and validation.
type AuthConfig struct {
	HMACSecret string
	Issuer     string
	Audience   string
	TokenTTL   time.Duration
	// LoginSkew bounds the distance between a login timestamp and the
	// server clock.
	LoginSkew time.Duration
}

// Authenticator issues HS256 caller tokens after a signed login and
// authenticates requests bearing them.
type Authenticator struct {
	cfg    AuthConfig
	secret []byte
	now    func() time.Time
	logger *slog.Logger
}

func NewAuthenticator(cfg AuthConfig) *Authenticator {
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = time.Hour
	}
	if cfg.LoginSkew <= 0 {
		cfg.LoginSkew = 2 * time.Minute
	}
	return &Authenticator{
		cfg:    cfg,
		secret: []byte(strings.TrimSpace(cfg.HMACSecret)),
		now:    time.Now,
		logger: slog.Default(),
	}
}

// LoginRequest proves control of Address by signing
// crypto.LoginDigest(Address, Timestamp).
type LoginRequest struct {
	Address   string `json:"address"`
	Timestamp int64  `json:"timestamp"`
	Signature string `json:"signature"`
}

type LoginResponse struct {
	Token     string `json:"token"`
	Caller    string `json:"caller"`
	ExpiresAt int64  `json:"expires_at"`
}

// Login verifies the signed request and issues a token for the signer.
func (a *Authenticator) Login(req LoginRequest) (*LoginResponse, error) {
	now := a.now()
	issued := time.Unix(req.Timestamp, 0)
	if skew := now.Sub(issued); skew > a.cfg.LoginSkew || skew < -a.cfg.LoginSkew {
		return nil, fmt.Errorf("login timestamp outside allowed skew of %s", a.cfg.LoginSkew)
	}
	sig, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(req.Signature), "0x"))
	if err != nil {
		return nil, fmt.Errorf("signature: %w", err)
	}
	addr, err := crypto.VerifyLogin(strings.TrimSpace(req.Address), req.Timestamp, sig)
	if err != nil {
		return nil, err
	}
	token, expires, err := a.Issue(addr.Raw())
	if err != nil {
		return nil, err
	}
	return &LoginResponse{Token: token, Caller: addr.String(), ExpiresAt: expires.Unix()}, nil
}

// Issue signs a token naming caller as its subject.
func (a *Authenticator) Issue(caller [20]byte) (string, time.Time, error) {
	if len(a.secret) == 0 {
		return "", time.Time{}, errors.New("auth secret not configured")
	}
	now := a.now()
	expires := now.Add(a.cfg.TokenTTL)
	claims := jwt.RegisteredClaims{
		Subject:   crypto.Format(caller),
		Issuer:    a.cfg.Issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expires),
	}
	if a.cfg.Audience != "" {
		claims.Audience = jwt.ClaimStrings{a.cfg.Audience}
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expires, nil
}

// Parse validates a token and returns its caller.
func (a *Authenticator) Parse(tokenString string) ([20]byte, error) {
	if len(a.secret) == 0 {
		return [20]byte{}, errors.New("auth secret not configured")
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(a.now),
		jwt.WithExpirationRequired(),
	}
	if a.cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.cfg.Issuer))
	}
	if a.cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(a.cfg.Audience))
	}
	claims := new(jwt.RegisteredClaims)
	token, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return a.secret, nil
	}, opts...)
	if err != nil {
		return [20]byte{}, err
	}
	if !token.Valid {
		return [20]byte{}, errInvalidToken
	}
	return crypto.ParseRaw(claims.Subject)
}

// Middleware rejects requests without a valid bearer token and stores the
// authenticated caller in the request context.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString := extractBearer(r.Header.Get("Authorization"))
		if tokenString == "" {
			writeError(w, codeUnauthenticated, errMissingToken.Error())
			return
		}
		caller, err := a.Parse(tokenString)
		if err != nil {
			a.logger.Warn("bearer token rejected",
				logging.MaskField("token", tokenString),
				slog.String("path", r.URL.Path),
				slog.Any("error", err))
			writeError(w, codeUnauthenticated, errInvalidToken.Error())
			return
		}
		ctx := context.WithValue(r.Context(), contextKeyCaller, caller)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// CallerFromContext returns the caller authenticated by Middleware.
func CallerFromContext(ctx context.Context) ([20]byte, bool) {
	caller, ok := ctx.Value(contextKeyCaller).([20]byte)
	return caller, ok
}

func extractBearer(header string) string {
	header = strings.TrimSpace(header)
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "InvalidRequest", fmt.Sprintf("decode login: %v", err))
		return
	}
	resp, err := s.auth.Login(req)
	if err != nil {
		s.logger.Warn("login rejected",
			slog.String("caller", req.Address),
			logging.MaskField("signature", req.Signature),
			slog.Any("error", err))
		writeError(w, codeUnauthenticated, err.Error())
		return
	}
	s.logger.Info("caller logged in", "caller", resp.Caller)
	writeJSON(w, http.StatusOK, resp)
}
