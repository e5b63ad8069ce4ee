// Package server exposes the HTTP surface: the alert ingestion endpoint the
// monitoring stack posts to, and the management API that edits teams,
// providers and the template. Provider identities are masked on every read
// path; raw URLs and headers never leave the store through this package.
package server

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/imanbakhtiari/alerting/models"
	"github.com/imanbakhtiari/alerting/notify"
	"github.com/imanbakhtiari/alerting/receivers"
	"github.com/imanbakhtiari/alerting/store"
)

// Server wires the store and the dispatcher into HTTP handlers.
type Server struct {
	store      *store.Store
	dispatcher *notify.Dispatcher
	gatherer   prometheus.Gatherer
	logger     log.Logger
}

func New(st *store.Store, dispatcher *notify.Dispatcher, gatherer prometheus.Gatherer, logger log.Logger) *Server {
	return &Server{
		store:      st,
		dispatcher: dispatcher,
		gatherer:   gatherer,
		logger:     logger,
	}
}

// Router builds the gin engine with all routes attached.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.POST("/alert/:team", s.handleAlert)
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if s.gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))
	}

	api := r.Group("/api/v1")
	api.GET("/config", s.handleGetConfig)
	api.POST("/teams/:team/numbers", s.handleAddNumber)
	api.DELETE("/teams/:team/numbers/:number", s.handleRemoveNumber)
	api.POST("/providers", s.handleAddProvider)
	api.DELETE("/providers/:index", s.handleRemoveProvider)
	api.PUT("/template", s.handleSetTemplate)

	return r
}

// handleAlert ingests one webhook payload addressed to a team. The response
// acknowledges acceptance and processing of the batch; per-target failures
// are visible in logs and metrics, not in the HTTP status.
func (s *Server) handleAlert(c *gin.Context) {
	team := c.Param("team")

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read request body"})
		return
	}

	alerts, err := models.ParsePayload(body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := s.dispatcher.Dispatch(c.Request.Context(), team, alerts)
	if err != nil {
		if errors.Is(err, store.ErrTeamNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		level.Error(s.logger).Log("msg", "dispatch failed", "team", team, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "dispatch failed"})
		return
	}

	level.Info(s.logger).Log("msg", "alert batch processed",
		"team", team,
		"alerts", len(alerts),
		"recipients", result.RecipientsNotified,
		"attempts", len(result.Outcomes),
	)
	c.JSON(http.StatusOK, gin.H{
		"status":              "ok",
		"recipients_notified": result.RecipientsNotified,
		"attempts":            len(result.Outcomes),
	})
}

type providerView struct {
	URL     string            `json:"url"`
	Kind    receivers.Kind    `json:"kind"`
	Headers map[string]string `json:"headers,omitempty"`
}

func maskProvider(p receivers.Provider) providerView {
	return providerView{
		URL:     receivers.MaskURL(p.URL),
		Kind:    p.Kind,
		Headers: receivers.MaskHeaders(p.Headers),
	}
}

func (s *Server) handleGetConfig(c *gin.Context) {
	snap := s.store.Snapshot()

	providers := make([]providerView, 0, len(snap.Providers))
	for _, p := range snap.Providers {
		providers = append(providers, maskProvider(p))
	}

	c.JSON(http.StatusOK, gin.H{
		"teams":     snap.Teams,
		"providers": providers,
		"template":  snap.Template,
	})
}

func (s *Server) handleAddNumber(c *gin.Context) {
	var req struct {
		Number string `json:"number" binding:"required"`
		Label  string `json:"label"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := s.store.AddRecipient(c.Param("team"), receivers.Recipient{Number: req.Number, Label: req.Label})
	switch {
	case errors.Is(err, store.ErrTeamNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, store.ErrRecipientExists):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusCreated, gin.H{"status": "ok"})
	}
}

func (s *Server) handleRemoveNumber(c *gin.Context) {
	err := s.store.RemoveRecipient(c.Param("team"), c.Param("number"))
	switch {
	case errors.Is(err, store.ErrTeamNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	default:
		c.Status(http.StatusNoContent)
	}
}

func (s *Server) handleAddProvider(c *gin.Context) {
	var req struct {
		URL     string            `json:"url" binding:"required"`
		Headers map[string]string `json:"headers"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	p, err := s.store.AddProvider(req.URL, req.Headers)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, maskProvider(p))
}

func (s *Server) handleRemoveProvider(c *gin.Context) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "index must be an integer"})
		return
	}
	if err := s.store.RemoveProvider(index); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleSetTemplate(c *gin.Context) {
	var req struct {
		Template string `json:"template"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.store.SetTemplate(req.Template); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
