// Package mockserver is an in-memory implementation of the revision-versioned
// list service. It backs `todosync serve-mock` and the HTTP client tests.
package mockserver

import (
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"

	"todosync/backend/remote"
)

// Options configures a Server
type Options struct {
	Token    string // Accepted bearer/OAuth token; empty disables auth
	Revision int64  // Starting revision
	Debug    bool   // Log every request
}

// Server is the mock list service
type Server struct {
	mu       sync.Mutex
	elements map[string]remote.Element
	revision int64
	token    string
	failNext []int

	router *gin.Engine
}

// New creates a server with an empty list
func New(opts Options) *Server {
	if opts.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	if opts.Debug {
		router.Use(gin.Logger())
	}

	s := &Server{
		elements: make(map[string]remote.Element),
		revision: opts.Revision,
		token:    opts.Token,
		router:   router,
	}

	router.Use(s.injectFailure, s.authenticate)
	router.GET("/list", s.handleList)
	router.PATCH("/list", s.requireRevision, s.handleBulkUpdate)
	router.GET("/list/:id", s.handleGet)
	router.POST("/list", s.requireRevision, s.handleAdd)
	router.PUT("/list/:id", s.requireRevision, s.handleEdit)
	router.DELETE("/list/:id", s.requireRevision, s.handleDelete)

	return s
}

// Handler returns the HTTP handler, for httptest servers
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run starts listening on addr
func (s *Server) Run(addr string) error {
	return s.router.Run(addr)
}

// Revision returns the current revision
func (s *Server) Revision() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.revision
}

// Elements returns the stored elements ordered by (created_at, id)
func (s *Server) Elements() []remote.Element {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sortedLocked()
}

// Put stores an element as another client would and bumps the revision
func (s *Server) Put(el remote.Element) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.elements[el.ID] = el
	s.revision++
}

// FailNext makes the next request answer with status
func (s *Server) FailNext(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext = append(s.failNext, status)
}

type errorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type listBody struct {
	List []remote.Element `json:"list"`
}

type elementBody struct {
	Element *remote.Element `json:"element"`
}

func abort(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, errorResponse{Status: "error", Message: message})
}

func (s *Server) injectFailure(c *gin.Context) {
	s.mu.Lock()
	var status int
	if len(s.failNext) > 0 {
		status = s.failNext[0]
		s.failNext = s.failNext[1:]
	}
	s.mu.Unlock()

	if status != 0 {
		abort(c, status, "injected failure")
		return
	}
	c.Next()
}

func (s *Server) authenticate(c *gin.Context) {
	if s.token == "" {
		c.Next()
		return
	}
	header := c.GetHeader("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || (scheme != "Bearer" && scheme != "OAuth") || token != s.token {
		abort(c, http.StatusUnauthorized, "unauthorized")
		return
	}
	c.Next()
}

const revisionKey = "revision"

// requireRevision rejects mutations without a well-formed revision. Handlers
// compare it with the current one inside their critical section.
func (s *Server) requireRevision(c *gin.Context) {
	presented, err := strconv.ParseInt(c.GetHeader(remote.RevisionHeader), 10, 64)
	if err != nil {
		abort(c, http.StatusBadRequest, "missing or malformed revision")
		return
	}
	c.Set(revisionKey, presented)
	c.Next()
}

// currentLocked aborts with 400 unless the presented revision is the current one
func (s *Server) currentLocked(c *gin.Context) bool {
	if c.GetInt64(revisionKey) != s.revision {
		abort(c, http.StatusBadRequest, "unsynchronized data")
		return false
	}
	return true
}

func (s *Server) handleList(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.JSON(http.StatusOK, gin.H{"status": "ok", "list": s.sortedLocked(), "revision": s.revision})
}

func (s *Server) handleBulkUpdate(c *gin.Context) {
	var body listBody
	if err := c.ShouldBindJSON(&body); err != nil {
		abort(c, http.StatusBadRequest, "malformed list")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.currentLocked(c) {
		return
	}
	s.elements = make(map[string]remote.Element, len(body.List))
	for _, el := range body.List {
		s.elements[el.ID] = el
	}
	s.revision++
	c.JSON(http.StatusOK, gin.H{"status": "ok", "list": s.sortedLocked(), "revision": s.revision})
}

func (s *Server) handleGet(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	el, ok := s.elements[c.Param("id")]
	if !ok {
		abort(c, http.StatusNotFound, "element not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "element": el, "revision": s.revision})
}

func (s *Server) handleAdd(c *gin.Context) {
	var body elementBody
	if err := c.ShouldBindJSON(&body); err != nil || body.Element == nil || body.Element.ID == "" {
		abort(c, http.StatusBadRequest, "malformed element")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.currentLocked(c) {
		return
	}
	if _, exists := s.elements[body.Element.ID]; exists {
		abort(c, http.StatusBadRequest, "duplicate element id")
		return
	}
	s.elements[body.Element.ID] = *body.Element
	s.revision++
	c.JSON(http.StatusOK, gin.H{"status": "ok", "element": body.Element, "revision": s.revision})
}

func (s *Server) handleEdit(c *gin.Context) {
	var body elementBody
	if err := c.ShouldBindJSON(&body); err != nil || body.Element == nil {
		abort(c, http.StatusBadRequest, "malformed element")
		return
	}
	id := c.Param("id")
	body.Element.ID = id

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.currentLocked(c) {
		return
	}
	if _, ok := s.elements[id]; !ok {
		abort(c, http.StatusNotFound, "element not found")
		return
	}
	s.elements[id] = *body.Element
	s.revision++
	c.JSON(http.StatusOK, gin.H{"status": "ok", "element": body.Element, "revision": s.revision})
}

func (s *Server) handleDelete(c *gin.Context) {
	id := c.Param("id")

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.currentLocked(c) {
		return
	}
	el, ok := s.elements[id]
	if !ok {
		abort(c, http.StatusNotFound, "element not found")
		return
	}
	delete(s.elements, id)
	s.revision++
	c.JSON(http.StatusOK, gin.H{"status": "ok", "element": el, "revision": s.revision})
}

func (s *Server) sortedLocked() []remote.Element {
	out := make([]remote.Element, 0, len(s.elements))
	for _, el := range s.elements {
		out = append(out, el)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt != out[j].CreatedAt {
			return out[i].CreatedAt < out[j].CreatedAt
		}
		return out[i].ID < out[j].ID
	})
	return out
}
