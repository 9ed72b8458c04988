package api

import (
	"bytes"
	"errors"
	"net/http"
	"strconv"
	"time"

	"crm-insight/internal/analytics"
	"crm-insight/internal/loader"
	"crm-insight/internal/service"
	"crm-insight/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.uber.org/zap"
)

// Handler contains HTTP handlers
type Handler struct {
	insightService *service.InsightService
	logger         *zap.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(insightService *service.InsightService) *Handler {
	return &Handler{
		insightService: insightService,
		logger:         util.GetLogger(),
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.GET("/filters", h.getFilters)
		v1.GET("/overview", h.getOverview)
		v1.GET("/customers", h.listCustomers)
		v1.GET("/customers/:code", h.getCustomer)
		v1.GET("/vendors", h.listVendors)
		v1.GET("/vendors/:zone", h.getVendor)
		v1.GET("/alerts", h.getAlerts)
		v1.GET("/alerts/export", h.exportVisitList)
		v1.POST("/cache/invalidate", h.invalidateCache)
	}
}

// WithCORS wraps the router for the dashboard front end
func WithCORS(next http.Handler, allowedOrigins []string) http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	})
	return c.Handler(next)
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck reports ready once the source can be loaded
func (h *Handler) readinessCheck(c *gin.Context) {
	if _, err := h.insightService.Result(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "not ready",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

func (h *Handler) bindFilter(c *gin.Context) (analytics.Filter, bool) {
	var filter analytics.Filter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid filter",
			"details": err.Error(),
		})
		return filter, false
	}
	return filter, true
}

// bindThresholds reads recency_days and effectiveness, falling back to the
// configured thresholds
func (h *Handler) bindThresholds(c *gin.Context) (analytics.Thresholds, bool) {
	t := h.insightService.DefaultThresholds()

	if raw := c.Query("recency_days"); raw != "" {
		days, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid recency_days", "details": err.Error()})
			return t, false
		}
		t.RecencyDays = days
	}
	if raw := c.Query("effectiveness"); raw != "" {
		ratio, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid effectiveness", "details": err.Error()})
			return t, false
		}
		t.Effectiveness = ratio
	}
	return t, true
}

// respondError maps service errors to status codes
func (h *Handler) respondError(c *gin.Context, err error) {
	var schemaErr *loader.SchemaError
	var loadErr *loader.DataLoadError

	status, message := http.StatusInternalServerError, "Internal error"
	switch {
	case errors.As(err, &schemaErr):
		status, message = http.StatusUnprocessableEntity, "Invalid data schema"
	case errors.As(err, &loadErr):
		status, message = http.StatusBadGateway, "Failed to load data"
	case errors.Is(err, analytics.ErrInvalidThreshold):
		status, message = http.StatusBadRequest, "Invalid threshold"
	case errors.Is(err, service.ErrCustomerNotFound):
		status, message = http.StatusNotFound, "Customer not found"
	case errors.Is(err, service.ErrVendorNotFound):
		status, message = http.StatusNotFound, "Vendor not found"
	}

	if status >= http.StatusInternalServerError {
		h.logger.Error("Request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	c.JSON(status, gin.H{
		"error":   message,
		"details": err.Error(),
	})
}

func (h *Handler) getFilters(c *gin.Context) {
	opts, err := h.insightService.Filters(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, opts)
}

func (h *Handler) getOverview(c *gin.Context) {
	filter, ok := h.bindFilter(c)
	if !ok {
		return
	}

	overview, err := h.insightService.Overview(c.Request.Context(), filter)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, overview)
}

func (h *Handler) listCustomers(c *gin.Context) {
	filter, ok := h.bindFilter(c)
	if !ok {
		return
	}

	customers, err := h.insightService.Customers(c.Request.Context(), filter, c.Query("code"), c.Query("name"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"count":     len(customers),
		"customers": customers,
	})
}

func (h *Handler) getCustomer(c *gin.Context) {
	filter, ok := h.bindFilter(c)
	if !ok {
		return
	}

	detail, err := h.insightService.Customer(c.Request.Context(), c.Param("code"), filter)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

func (h *Handler) listVendors(c *gin.Context) {
	filter, ok := h.bindFilter(c)
	if !ok {
		return
	}

	vendors, err := h.insightService.Vendors(c.Request.Context(), filter)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"vendors": vendors})
}

func (h *Handler) getVendor(c *gin.Context) {
	filter, ok := h.bindFilter(c)
	if !ok {
		return
	}

	detail, err := h.insightService.Vendor(c.Request.Context(), c.Param("zone"), filter)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

func (h *Handler) getAlerts(c *gin.Context) {
	filter, ok := h.bindFilter(c)
	if !ok {
		return
	}
	thresholds, ok := h.bindThresholds(c)
	if !ok {
		return
	}

	report, err := h.insightService.Alerts(c.Request.Context(), filter, thresholds)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *Handler) exportVisitList(c *gin.Context) {
	filter, ok := h.bindFilter(c)
	if !ok {
		return
	}
	thresholds, ok := h.bindThresholds(c)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if _, err := h.insightService.ExportVisitList(c.Request.Context(), &buf, filter, thresholds); err != nil {
		h.respondError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="visit_list.csv"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

func (h *Handler) invalidateCache(c *gin.Context) {
	if err := h.insightService.Invalidate(c.Request.Context()); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":    "invalidated",
		"source_id": h.insightService.SourceID(),
	})
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
