// Package middleware provides HTTP middleware for the presentation layer.
package middleware

import (
	"net/http"
	"time"

	"github.com/AtRiskMedia/tractstack-telemetry/internal/application/services"
	"github.com/AtRiskMedia/tractstack-telemetry/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/tractstack-telemetry/internal/infrastructure/persistence/cookies"
	"github.com/gin-gonic/gin"
)

// Headers a page sends to describe its own location. Without them the
// request's Referer is taken as the page URL.
const (
	PageURLHeader      = "X-Page-URL"
	PageReferrerHeader = "X-Page-Referrer"
)

// PageInstanceHeader names the page instance a request belongs to. The
// response always carries the id the request was served under; a page sends
// it back on its later requests so they share one runtime.
const PageInstanceHeader = "X-Page-Instance"

const pageKey = "page"

// PageOpener returns the page runtime for a request and the page instance
// id it is cached under
type PageOpener interface {
	OpenPage(r *http.Request, instanceID, href, referrer string) (*services.PageRuntime, string, *cookies.Jar)
}

// cookieWriter flushes the page's queued cookies into the headers right
// before the status line is committed. Events emitted later, such as a late
// presence signal, only reach the jar's overlay.
type cookieWriter struct {
	gin.ResponseWriter
	jar *cookies.Jar
}

func (w *cookieWriter) WriteHeader(code int) {
	w.jar.Flush(w.ResponseWriter.Header())
	w.ResponseWriter.WriteHeader(code)
}

func (w *cookieWriter) WriteHeaderNow() {
	w.jar.Flush(w.ResponseWriter.Header())
	w.ResponseWriter.WriteHeaderNow()
}

func (w *cookieWriter) Write(data []byte) (int, error) {
	w.jar.Flush(w.ResponseWriter.Header())
	return w.ResponseWriter.Write(data)
}

func (w *cookieWriter) WriteString(s string) (int, error) {
	w.jar.Flush(w.ResponseWriter.Header())
	return w.ResponseWriter.WriteString(s)
}

// PageMiddleware attaches the request to its page runtime and stores it on
// the context. Cookie writes reach the response until its headers are written.
func PageMiddleware(opener PageOpener, logger *logging.ChanneledLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		href := firstNonEmpty(c.GetHeader(PageURLHeader), c.Query("url"), c.Request.Referer())
		referrer := firstNonEmpty(c.GetHeader(PageReferrerHeader), c.Query("referrer"))

		requested := firstNonEmpty(c.GetHeader(PageInstanceHeader), c.Query("page"))

		rt, instanceID, jar := opener.OpenPage(c.Request, requested, href, referrer)
		c.Header(PageInstanceHeader, instanceID)
		c.Writer = &cookieWriter{ResponseWriter: c.Writer, jar: jar}
		defer jar.Flush(c.Writer.Header())

		logger.HTTP().Debug("Page runtime attached",
			"path", c.Request.URL.Path,
			"reused", requested != "" && requested == instanceID,
			"anonymousId", logging.MaskID(rt.Identity.ID),
			"created", rt.Identity.Created,
			"migrated", rt.Identity.Migrated,
			"duration", time.Since(start))

		c.Set(pageKey, rt)
		c.Next()
	}
}

// GetPageRuntime retrieves the page runtime opened for this request
func GetPageRuntime(c *gin.Context) (*services.PageRuntime, bool) {
	v, exists := c.Get(pageKey)
	if !exists {
		return nil, false
	}
	rt, ok := v.(*services.PageRuntime)
	return rt, ok
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
