// Package server exposes the attendance backend over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"tagattend/internal/accounts"
	"tagattend/internal/attendance"
	"tagattend/internal/auth"
	"tagattend/internal/httpmiddleware"
	"tagattend/internal/registration"
	"tagattend/internal/students"
)

// Scanner is armed to report its next read against a pending registration.
type Scanner interface {
	Arm(ctx context.Context, p registration.Pending) error
}

// HealthCheck reports the state of one dependency on /healthz.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) bool
}

// Deps are the services the handlers call.
type Deps struct {
	Attendance *attendance.Service
	Students   *students.Service
	Accounts   *accounts.Service
	Pending    registration.Store
	Scanner    Scanner
	Limiter    httpmiddleware.Limiter
	Health     []HealthCheck
	Log        *zap.Logger
}

// Options carry the HTTP-facing configuration.
type Options struct {
	JWTIssuer     string
	JWTSigningKey string
	AccessTTL     time.Duration
	ScannerTTL    time.Duration
	CORSOrigins   []string
	SecureCookie  bool
}

type Server struct {
	Deps
	opts Options
}

// New builds the gin engine with every route registered.
func New(deps Deps, opts Options) *gin.Engine {
	if deps.Log == nil {
		deps.Log = zap.NewNop()
	}
	s := &Server{Deps: deps, opts: opts}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(httpmiddleware.AccessLog(deps.Log, "/healthz", "/metrics"))
	r.Use(corsMiddleware(opts.CORSOrigins))
	r.Use(httpmiddleware.SecurityHeaders())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/healthz", s.healthz)

	var verify auth.Verifier
	if deps.Accounts != nil {
		verify = s.currentPrincipal
	}
	authn := auth.Authenticate(opts.JWTSigningKey, opts.JWTIssuer, verify)
	admin := auth.RequireRoles(accounts.RoleAdmin)
	staff := auth.RequireRoles(accounts.RoleAdmin, accounts.RoleViewer)
	device := auth.RequireRoles(auth.RoleScanner, accounts.RoleAdmin)

	r.POST("/auth/login", s.limit("login", httpmiddleware.ByClientIP), s.login)
	r.POST("/auth/logout", s.logout)
	r.GET("/auth/me", authn, s.me)
	r.POST("/auth/scanners", authn, admin, s.issueScanner)

	r.POST("/attendances/upload", authn, device, s.limit("upload", chargePrincipal), s.upload)
	r.GET("/attendances/data", authn, staff, tableHandler(s.Log, "attendance", s.Attendance.Query))

	st := r.Group("/students", authn)
	st.GET("/data", admin, tableHandler(s.Log, "students", s.Students.Query))
	st.POST("", admin, s.createStudent)
	st.PUT("/:id", admin, s.updateStudent)
	st.DELETE("/:id", admin, s.deleteStudent)
	st.POST("/pending", admin, s.beginRegistration)
	st.GET("/pending/:token", admin, s.pollRegistration)
	st.POST("/pending/:token/tag", device, s.attachTag)

	users := r.Group("/users", authn, admin)
	users.GET("/data", tableHandler(s.Log, "users", s.Accounts.Query))
	users.POST("", s.createUser)
	users.PUT("/:id", s.updateUser)
	users.DELETE("/:id", s.deleteUser)

	return r
}

func (s *Server) limit(route string, key httpmiddleware.KeyFunc) gin.HandlerFunc {
	if s.Limiter == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return httpmiddleware.RateLimit(s.Limiter, route, key, s.Log)
}

// chargePrincipal meters account holders by username. Scanner devices are
// never metered so that no scan is dropped.
func chargePrincipal(c *gin.Context) (string, bool) {
	p, ok := auth.PrincipalFrom(c)
	if !ok {
		return httpmiddleware.ByClientIP(c)
	}
	if p.Role == auth.RoleScanner {
		return "", false
	}
	return "user:" + p.Subject, true
}

// currentPrincipal reloads the role of an account-backed token. Scanner
// tokens have no account and keep the role they were issued with.
func (s *Server) currentPrincipal(ctx context.Context, p auth.Principal) (auth.Principal, error) {
	if p.Role == auth.RoleScanner {
		return p, nil
	}
	a, err := s.Accounts.Current(ctx, p.Subject)
	if errors.Is(err, accounts.ErrNotFound) {
		return auth.Principal{}, fmt.Errorf("%w: %s", auth.ErrRevoked, p.Subject)
	}
	if err != nil {
		return auth.Principal{}, err
	}
	return auth.Principal{Subject: a.Username, Role: a.Role}, nil
}

func (s *Server) healthz(c *gin.Context) {
	status := http.StatusOK
	checks := gin.H{}
	for _, h := range s.Health {
		ok := h.Check(c.Request.Context())
		checks[h.Name] = ok
		if !ok {
			status = http.StatusServiceUnavailable
		}
	}
	state := "ok"
	if status != http.StatusOK {
		state = "degraded"
	}
	c.JSON(status, gin.H{"status": state, "checks": checks})
}

// corsMiddleware reflects any origin when none are configured, as browsers on
// the school LAN reach the API by IP.
func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		AllowCredentials: true,
		MaxAge:           24 * time.Hour,
	}
	if len(origins) > 0 {
		cfg.AllowOrigins = origins
	} else {
		cfg.AllowOriginFunc = func(string) bool { return true }
	}
	return cors.New(cfg)
}
