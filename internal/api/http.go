// Package api exposes the engine over HTTP: layout generation, input
// commands, and camera state as JSON, SSE, or websocket frames.
package api

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"gallery3d/internal/geometry/vector"
	"gallery3d/internal/layout"
	"gallery3d/internal/nav"
	"gallery3d/internal/scene"
	"gallery3d/internal/sim"
)

// Options are the server-side defaults for layout requests.
type Options struct {
	Layout   layout.Request
	Seed     int64
	Adjuster scene.Adjuster
}

type Server struct {
	eng    *sim.Engine
	gen    *layout.Generator
	opts   Options
	logger *zap.Logger
	router *gin.Engine
}

func NewServer(eng *sim.Engine, opts Options, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Adjuster == nil {
		opts.Adjuster = scene.NoOp
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	s := &Server{
		eng:    eng,
		gen:    layout.NewGenerator(logger),
		opts:   opts,
		logger: logger.Named("api"),
		router: router,
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() {
	s.router.GET("/health", s.health)
	s.router.GET("/state", s.state)

	s.router.POST("/layout", s.layoutCmd)
	s.router.GET("/placements", s.placements)

	cmd := s.router.Group("/command")
	{
		cmd.POST("/key", s.keyCmd)
		cmd.POST("/select", s.selectCmd)
		cmd.POST("/dismiss", s.dismissCmd)
		cmd.POST("/reset", s.resetCmd)
		cmd.POST("/pose", s.poseCmd)
	}

	s.router.GET("/stream", s.streamSSE)
	s.router.GET("/ws", s.streamWS)
}

func (s *Server) health(c *gin.Context) {
	c.String(http.StatusOK, "ok\n")
}

func (s *Server) state(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	st, err := s.eng.GetState(ctx)
	if err != nil {
		c.JSON(http.StatusRequestTimeout, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, st)
}

type layoutBody struct {
	Items   []scene.Item    `json:"items"`
	Request *layout.Request `json:"request,omitempty"`
	Seed    *int64          `json:"seed,omitempty"`
}

// layoutCmd scatters the posted items and loads them into the engine.
// Without an explicit request the server defaults are used; a zero
// itemCount means one position per item. Positions are only generated for
// posted items, so itemCount may not exceed len(items).
func (s *Server) layoutCmd(c *gin.Context) {
	var body layoutBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	req := s.opts.Layout
	if body.Request != nil {
		req = *body.Request
	}
	if req.ItemCount == 0 {
		req.ItemCount = len(body.Items)
	}
	if req.ItemCount > len(body.Items) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "itemCount exceeds the number of posted items"})
		return
	}
	seed := s.opts.Seed
	if body.Seed != nil {
		seed = *body.Seed
	}

	res, err := s.gen.Generate(req, layout.NewRand(seed))
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, layout.ErrInvalidRequest) {
			status = http.StatusBadRequest
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	binding, err := scene.Bind(body.Items, res, s.opts.Adjuster)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !s.eng.Submit(sim.SceneCommand{At: time.Now(), Binding: binding}) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "engine busy"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"placements": binding.Placements(),
		"unbound":    binding.Unbound(),
		"unplaced":   res.Unplaced,
		"attempts":   res.Attempts,
	})
}

func (s *Server) placements(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	ps, err := s.eng.Placements(ctx)
	if err != nil {
		c.JSON(http.StatusRequestTimeout, gin.H{"error": err.Error()})
		return
	}
	if ps == nil {
		ps = []scene.Placement{}
	}
	c.JSON(http.StatusOK, ps)
}

type keyBody struct {
	Key  string `json:"key" binding:"required"`
	Down bool   `json:"down"`
}

func (s *Server) keyCmd(c *gin.Context) {
	var body keyBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	key, err := nav.ParseKey(body.Key)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s.accept(c, sim.KeyCommand{At: time.Now(), Key: key, Down: body.Down})
}

type selectBody struct {
	ItemID   string       `json:"itemId"`
	Position *vector.Vec3 `json:"position,omitempty"`
}

func (s *Server) selectCmd(c *gin.Context) {
	var body selectBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if body.ItemID == "" && body.Position == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "itemId or position required"})
		return
	}
	if body.Position == nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		ps, err := s.eng.Placements(ctx)
		if err != nil {
			c.JSON(http.StatusRequestTimeout, gin.H{"error": err.Error()})
			return
		}
		if !containsItem(ps, body.ItemID) {
			c.JSON(http.StatusNotFound, gin.H{"error": scene.ErrUnknownItem.Error()})
			return
		}
	}
	s.accept(c, sim.SelectCommand{At: time.Now(), ItemID: body.ItemID, Position: body.Position})
}

func (s *Server) dismissCmd(c *gin.Context) {
	s.accept(c, sim.DismissCommand{At: time.Now()})
}

func (s *Server) resetCmd(c *gin.Context) {
	s.accept(c, sim.ResetCommand{At: time.Now()})
}

func (s *Server) poseCmd(c *gin.Context) {
	var body nav.Pose
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	s.accept(c, sim.PoseCommand{At: time.Now(), Pose: body})
}

func (s *Server) accept(c *gin.Context, cmd sim.Command) {
	if !s.eng.Submit(cmd) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "engine busy"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "accepted", "type": cmd.Type()})
}

func (s *Server) streamSSE(c *gin.Context) {
	ctx := c.Request.Context()
	ch, unsub := s.eng.Subscribe(ctx)
	defer unsub()

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case st, ok := <-ch:
			if !ok {
				return false
			}
			c.SSEvent("state", st)
			return true
		}
	})
}

func containsItem(ps []scene.Placement, id string) bool {
	for _, p := range ps {
		if p.Item.ID == id {
			return true
		}
	}
	return false
}
