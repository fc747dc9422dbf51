package dashboard

import (
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/rawblock/arb-engine/internal/registry"
	"github.com/rawblock/arb-engine/internal/store"
)

// Handler wires the registry (for the /pools debug view), the optional
// Postgres store (for paginated historical opportunities), and the feed
// (for the live websocket stream and its in-memory fallback history) into
// the gin route table.
type Handler struct {
	reg   *registry.Registry
	store *store.Store
	feed  *Feed
	hub   *Hub
}

// SetupRouter builds the dashboard's gin.Engine: a public group (health,
// stream) and a bearer-protected, rate-limited group (opportunities,
// pools).
func SetupRouter(reg *registry.Registry, st *store.Store, feed *Feed, hub *Hub) *gin.Engine {
	r := gin.Default()

	// CORS — configurable via ALLOWED_ORIGINS env var.
	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	r.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if allowedOrigins == "" || allowedOrigins == "*" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		} else {
			for _, allowed := range strings.Split(allowedOrigins, ",") {
				if strings.TrimSpace(allowed) == origin {
					c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
					break
				}
			}
		}
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, Accept, Origin, Cache-Control")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	})

	h := &Handler{reg: reg, store: st, feed: feed, hub: hub}

	pub := r.Group("/api/v1")
	{
		pub.GET("/health", h.handleHealth)
		pub.GET("/stream", hub.Subscribe)
	}

	protected := r.Group("/api/v1")
	protected.Use(AuthMiddleware())
	protected.Use(NewRateLimiter(30, 5).Middleware())
	{
		protected.GET("/opportunities", h.handleOpportunities)
		protected.GET("/pools", h.handlePools)
	}

	return r
}

func (h *Handler) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":        "operational",
		"engine":        "arb-engine",
		"storeConnected": h.store != nil,
	})
}

// handleOpportunities returns a page of historical opportunities: from
// Postgres when a store is configured, otherwise the feed's bounded
// in-memory history.
func (h *Handler) handleOpportunities(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	if h.store != nil {
		rows, total, err := h.store.GetOpportunities(c.Request.Context(), page, limit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch opportunities", "details": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": rows, "totalCount": total, "page": page, "limit": limit})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": h.feed.Recent(limit), "source": "in-memory"})
}

// handlePools returns a registry snapshot for debugging.
func (h *Handler) handlePools(c *gin.Context) {
	pools := h.reg.Pools()
	out := make([]gin.H, 0, len(pools))
	for _, p := range pools {
		mints := p.Mints()
		rin, rout, ok := p.Reserves(mints[0], mints[1])
		entry := gin.H{
			"name":        p.Name(),
			"poolAddress": p.PoolAddress().String(),
			"mintA":       mints[0].String(),
			"mintB":       mints[1].String(),
		}
		if ok {
			entry["reserveA"] = rin.String()
			entry["reserveB"] = rout.String()
		}
		out = append(out, entry)
	}
	c.JSON(http.StatusOK, gin.H{"data": out, "totalCount": len(out)})
}
