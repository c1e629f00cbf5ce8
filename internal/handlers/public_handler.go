package handlers

import (
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"
)

const appName = "securenotes"

type PublicInfo struct {
	AppName     string `json:"app_name"`
	Version     string `json:"version"`
	Description string `json:"description"`
}

type RouteDoc struct {
	Method string `json:"method"`
	Path   string `json:"path"`
}

type APIDocsResponse struct {
	Title   string     `json:"title"`
	Version string     `json:"version"`
	Routes  []RouteDoc `json:"routes"`
}

// APIInfo points developers at the documentation and the route areas.
type APIInfo struct {
	Name          string            `json:"name"`
	Version       string            `json:"version"`
	Documentation map[string]string `json:"documentation"`
	Endpoints     map[string]string `json:"endpoints"`
}

type PublicHandler struct {
	version string
	routes  func() gin.RoutesInfo
}

// NewPublicHandler creates the handler for anonymous endpoints. routes lists
// the registered routes for the API description.
func NewPublicHandler(version string, routes func() gin.RoutesInfo) *PublicHandler {
	return &PublicHandler{version: version, routes: routes}
}

func (h *PublicHandler) AppInfo(c *gin.Context) {
	c.JSON(http.StatusOK, PublicInfo{
		AppName:     appName,
		Version:     h.version,
		Description: "Public information for all users.",
	})
}

func (h *PublicHandler) Info(c *gin.Context) {
	c.JSON(http.StatusOK, APIInfo{
		Name:    appName,
		Version: h.version,
		Documentation: map[string]string{
			"openapi-docs": "/v3/api-docs",
		},
		Endpoints: map[string]string{
			"authentication":  "/api/auth/*",
			"user-resources":  "/api/user/*",
			"admin-functions": "/api/admin/*",
			"notes":           "/api/notes",
			"public":          "/api/public/*",
		},
	})
}

// Welcome greets an authenticated caller on the root path.
func (h *PublicHandler) Welcome(c *gin.Context) {
	c.JSON(http.StatusOK, MessageResponse{Message: "You are logged in"})
}

// APIDocs lists every registered route.
func (h *PublicHandler) APIDocs(c *gin.Context) {
	docs := []RouteDoc{}
	if h.routes != nil {
		for _, r := range h.routes() {
			docs = append(docs, RouteDoc{Method: r.Method, Path: r.Path})
		}
	}
	sort.Slice(docs, func(i, j int) bool {
		if docs[i].Path == docs[j].Path {
			return docs[i].Method < docs[j].Method
		}
		return docs[i].Path < docs[j].Path
	})

	c.JSON(http.StatusOK, APIDocsResponse{Title: appName, Version: h.version, Routes: docs})
}
