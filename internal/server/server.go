package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/insightcoder/insightcoder/internal/config"
	"github.com/insightcoder/insightcoder/internal/core"
	"github.com/insightcoder/insightcoder/internal/jobs"
	"github.com/insightcoder/insightcoder/internal/llm"
	"github.com/insightcoder/insightcoder/internal/progress"
	"github.com/insightcoder/insightcoder/internal/store"
)

type Server struct {
	Runner  *jobs.Runner
	Tracker progress.Tracker
	Store   *store.Store
	Logger  *zap.Logger
}

// NewServer wires the engine, progress tracker, and job store from config.
// The tracker is Redis-backed when a Redis URL is configured, in-memory
// otherwise.
func NewServer(cfg *config.Config, logger *zap.Logger) (*Server, error) {
	llmClient, err := llm.NewClient(context.Background(), cfg.LLM)
	if err != nil {
		return nil, err
	}

	var tracker progress.Tracker
	if cfg.Redis.URL != "" {
		tracker, err = progress.NewRedisTracker(cfg.Redis.URL, logger)
		if err != nil {
			return nil, err
		}
		logger.Info("using redis progress tracker")
	} else {
		tracker = progress.NewMemoryTracker()
	}

	var jobStore *store.Store
	if cfg.Store.Path != "" {
		jobStore, err = store.Open(cfg.Store.Path)
		if err != nil {
			return nil, err
		}
	}

	engine := core.NewEngine(llmClient, cfg, logger)
	return &Server{
		Runner: &jobs.Runner{
			Engine:  engine,
			Tracker: tracker,
			Store:   jobStore,
			Logger:  logger,
		},
		Tracker: tracker,
		Store:   jobStore,
		Logger:  logger,
	}, nil
}

func (s *Server) SetupRouter() *gin.Engine {
	r := gin.Default()

	r.GET("/health", s.Health)
	r.POST("/jobs", s.CreateJob)
	r.GET("/jobs", s.ListJobs)
	r.GET("/jobs/:id", s.GetJob)
	r.GET("/jobs/:id/progress", s.GetProgress)
	r.DELETE("/jobs/:id/progress", s.DeleteProgress)

	return r
}

func (s *Server) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type CreateJobRequest struct {
	RawPath   string `json:"raw_path" binding:"required"`
	FormPath  string `json:"form_path"`
	Variables []struct {
		Name     string `json:"name" binding:"required"`
		Question string `json:"question"`
	} `json:"variables" binding:"required,min=1"`
	Mode string `json:"mode"`
}

// CreateJob accepts a classification job and runs it in the background.
// Progress is available at /jobs/:id/progress while it runs.
func (s *Server) CreateJob(c *gin.Context) {
	var req CreateJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	job := store.Job{
		ID:        uuid.NewString(),
		Status:    store.JobQueued,
		RawPath:   req.RawPath,
		FormPath:  req.FormPath,
		Mode:      req.Mode,
		CreatedAt: time.Now(),
	}
	if job.Mode == "" {
		job.Mode = "incremental"
	}
	for _, v := range req.Variables {
		job.Variables = append(job.Variables, store.Variable{Name: v.Name, Question: v.Question})
	}

	if s.Store != nil {
		if err := s.Store.CreateJob(job); err != nil {
			s.Logger.Error("failed to persist job", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create job"})
			return
		}
	}

	go func() {
		if err := s.Runner.Run(context.Background(), job); err != nil {
			s.Logger.Error("job failed", zap.String("job", job.ID), zap.Error(err))
		}
	}()

	c.JSON(http.StatusAccepted, gin.H{"job_id": job.ID, "status": store.JobQueued})
}

func (s *Server) GetJob(c *gin.Context) {
	id := c.Param("id")

	if s.Store != nil {
		job, err := s.Store.GetJob(id)
		if err == nil {
			c.JSON(http.StatusOK, job)
			return
		}
	}

	// Without a job store, fall back to live progress state.
	if status, ok := s.Tracker.Get(id); ok {
		c.JSON(http.StatusOK, gin.H{"id": id, "status": status.Status, "results": status.Results})
		return
	}
	c.JSON(http.StatusNotFound, gin.H{"error": "Job not found"})
}

func (s *Server) ListJobs(c *gin.Context) {
	if s.Store == nil {
		c.JSON(http.StatusOK, gin.H{"jobs": []store.Job{}})
		return
	}
	list, err := s.Store.ListJobs(50)
	if err != nil {
		s.Logger.Error("failed to list jobs", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list jobs"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"jobs": list})
}

func (s *Server) GetProgress(c *gin.Context) {
	status, ok := s.Tracker.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Job not found"})
		return
	}
	c.JSON(http.StatusOK, status)
}

func (s *Server) DeleteProgress(c *gin.Context) {
	s.Tracker.Delete(c.Param("id"))
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}
