package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"stsdash/analytics"
	"stsdash/normalization"
)

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"rows":     len(s.dataset.Rows),
		"built_at": s.dataset.BuiltAt.Format(time.RFC3339),
	})
}

// handleStats serves the headline figures.
func (s *Server) handleStats(c *gin.Context) {
	rows := s.dataset.Rows
	pub := analytics.PublicOnly(rows)

	stats := gin.H{
		"total":        analytics.CountDistinct(rows),
		"public":       len(pub),
		"private":      analytics.CountDistinct(rows) - len(pub),
		"cross_border": len(analytics.DifferentIssuerCountry(pub)),
		"built_at":     s.dataset.BuiltAt.Format(time.RFC3339),
	}

	if s.dataset.FXRates != nil {
		total, err := analytics.TotalInEUR(pub, s.dataset.FXRates)
		if err != nil {
			s.logger.Warn("EUR total unavailable", "error", err)
		} else {
			stats["total_issued_eur"] = total
			stats["fx_date"] = s.dataset.FXDate.Format("2006-01-02")
		}
	}

	if s.dataset.GDP != nil {
		counts := analytics.CountBy(pub, normalization.ColOriginatorCountryFull)
		corr, err := analytics.GDPCorrelation(counts, s.dataset.GDP)
		if err != nil {
			s.logger.Warn("GDP correlation unavailable", "error", err)
		} else {
			stats["gdp_correlation"] = corr
		}
	}

	c.JSON(http.StatusOK, stats)
}

// handleByCountry counts public securitisations per country. The side query
// parameter selects the originator (default) or issuer dimension; full=true
// switches from ISO codes to full country names.
func (s *Server) handleByCountry(c *gin.Context) {
	side := c.DefaultQuery("side", "originator")
	full := c.Query("full") == "true"

	var col normalization.Column
	switch {
	case side == "originator" && full:
		col = normalization.ColOriginatorCountryFull
	case side == "originator":
		col = normalization.ColOriginatorCountry
	case side == "issuer" && full:
		col = normalization.ColIssuerCountryFull
	case side == "issuer":
		col = normalization.ColIssuerCountry
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "side must be originator or issuer"})
		return
	}

	pub := analytics.PublicOnly(s.dataset.Rows)
	c.JSON(http.StatusOK, gin.H{
		"side":   side,
		"counts": analytics.CountBy(pub, col),
	})
}

func (s *Server) handleByAssetClass(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"counts": analytics.CountByField(s.dataset.Rows, func(r normalization.Row) string {
			return r.UnderlyingAssets
		}),
		"abcp": analytics.CountByField(s.dataset.Rows, func(r normalization.Row) string {
			return r.ABCPStatus
		}),
	})
}

func (s *Server) handleByCurrency(c *gin.Context) {
	pub := analytics.PublicOnly(s.dataset.Rows)
	c.JSON(http.StatusOK, gin.H{
		"counts": analytics.CountBy(pub, normalization.ColCurrency),
	})
}

func (s *Server) handleMonthly(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"counts": analytics.MonthlyCounts(s.dataset.Rows),
	})
}

func (s *Server) handleCumulative(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"points": analytics.CumulativeCounts(s.dataset.Rows),
	})
}

func (s *Server) handleCrossTab(c *gin.Context) {
	c.JSON(http.StatusOK, analytics.OriginatorVsIssuer(s.dataset.Rows))
}

// handleMap serves the boundary features of the originator countries present
// in the data, with the per-country counts keyed by ISO code. Choropleth
// views join the two on the feature id.
func (s *Server) handleMap(c *gin.Context) {
	if s.dataset.Map == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "map data not loaded"})
		return
	}

	pub := analytics.PublicOnly(s.dataset.Rows)
	counts := analytics.CountBy(pub, normalization.ColOriginatorCountry)
	codes := make(map[string]bool, len(counts))
	for _, item := range counts {
		codes[item.Label] = true
	}

	c.JSON(http.StatusOK, gin.H{
		"geojson": s.dataset.Map.Filter(codes),
		"counts":  counts,
	})
}
