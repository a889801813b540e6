package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/carrent-dev/carrent/internal/auth"
)

// Page is the descriptor the rendering layer turns into HTML
type Page struct {
	Page       string       `json:"page"`
	Title      string       `json:"title"`
	Section    string       `json:"section,omitempty"`
	User       *SessionUser `json:"user,omitempty"`
	Navigation []NavItem    `json:"navigation"`
	Error      string       `json:"error,omitempty"`
	Data       gin.H        `json:"data,omitempty"`
}

// NavItem is one navigation link
type NavItem struct {
	Label  string `json:"label"`
	Href   string `json:"href"`
	Method string `json:"method,omitempty"`
}

var (
	adminSections = map[string]string{
		"":          "Admin overview",
		"cars":      "Manage cars",
		"users":     "Manage users",
		"locations": "Manage locations",
		"bookings":  "Manage bookings",
	}
	dashboardSections = map[string]string{
		"":         "My dashboard",
		"bookings": "My bookings",
		"profile":  "My profile",
	}
)

// navigationFor builds the menu for the caller's role
func navigationFor(claims *auth.Claims) []NavItem {
	signOut := NavItem{Label: "Sign out", Href: "/api/auth/logout", Method: http.MethodPost}

	switch {
	case claims == nil:
		return []NavItem{
			{Label: "Home", Href: "/"},
			{Label: "Sign in", Href: "/auth/login"},
			{Label: "Register", Href: "/auth/register"},
		}
	case claims.IsAdmin():
		return []NavItem{
			{Label: "Overview", Href: "/admin"},
			{Label: "Cars", Href: "/admin/cars"},
			{Label: "Users", Href: "/admin/users"},
			{Label: "Locations", Href: "/admin/locations"},
			{Label: "Bookings", Href: "/admin/bookings"},
			signOut,
		}
	default:
		return []NavItem{
			{Label: "Home", Href: "/"},
			{Label: "Dashboard", Href: "/dashboard"},
			{Label: "My bookings", Href: "/dashboard/bookings"},
			{Label: "Profile", Href: "/dashboard/profile"},
			signOut,
		}
	}
}

// renderPage fills in the user and navigation and writes the descriptor
func (s *Server) renderPage(c *gin.Context, status int, page Page) {
	claims, _ := GetClaims(c)
	if claims != nil {
		page.User = sessionUser(claims)
	}
	page.Navigation = navigationFor(claims)
	c.JSON(status, page)
}

func (s *Server) homePage(c *gin.Context) {
	s.renderPage(c, http.StatusOK, Page{Page: "home", Title: "CarRent"})
}

func (s *Server) loginDescriptor(c *gin.Context, callback, message string) Page {
	if callback == "" {
		callback = c.Query(callbackKey)
	}
	return Page{
		Page:  "login",
		Title: "Sign in",
		Error: message,
		Data: gin.H{
			"action":      "/auth/login",
			"callbackUrl": callback,
			"registerUrl": "/auth/register",
		},
	}
}

func (s *Server) registerDescriptor(message string) Page {
	return Page{
		Page:  "register",
		Title: "Create an account",
		Error: message,
		Data: gin.H{
			"action":   "/auth/register",
			"loginUrl": s.gate.LoginPath(),
		},
	}
}

func (s *Server) loginPage(c *gin.Context) {
	s.renderPage(c, http.StatusOK, s.loginDescriptor(c, "", ""))
}

func (s *Server) registerPage(c *gin.Context) {
	s.renderPage(c, http.StatusOK, s.registerDescriptor(""))
}

func (s *Server) dashboardPage(c *gin.Context) {
	s.sectionPage(c, "dashboard", dashboardSections)
}

func (s *Server) adminPage(c *gin.Context) {
	s.sectionPage(c, "admin", adminSections)
}

func (s *Server) sectionPage(c *gin.Context, area string, sections map[string]string) {
	section := strings.ToLower(c.Param("section"))
	title, ok := sections[section]
	if !ok {
		s.notFound(c)
		return
	}
	s.renderPage(c, http.StatusOK, Page{Page: area, Title: title, Section: section})
}

// unauthorizedPage is shown to signed-in users who lack the role for a page
func (s *Server) unauthorizedPage(c *gin.Context) {
	back := "/"
	if claims, ok := GetClaims(c); ok {
		back = s.gate.DefaultRoute(claims.Role)
	}
	s.renderPage(c, http.StatusForbidden, Page{
		Page:  "unauthorized",
		Title: "Access denied",
		Error: "You do not have permission to view this page",
		Data:  gin.H{"back": back},
	})
}

func (s *Server) notFound(c *gin.Context) {
	if strings.HasPrefix(c.Request.URL.Path, apiPrefix) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
		return
	}
	s.renderPage(c, http.StatusNotFound, Page{Page: "not_found", Title: "Page not found"})
}
