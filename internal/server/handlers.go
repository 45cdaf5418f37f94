package server

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jmylchreest/linkmagico/internal/logger"
	"github.com/jmylchreest/linkmagico/internal/version"
	"github.com/jmylchreest/linkmagico/pkg/chat"
	"github.com/jmylchreest/linkmagico/pkg/product"
)

const (
	msgURLRequired     = "URL é obrigatória"
	msgMessageRequired = "Mensagem é obrigatória"
	msgInvalidJSON     = "JSON inválido"
	msgBodyTooLarge    = "Corpo da requisição muito grande"
	msgChatFailed      = "Desculpe, ocorreu um erro. Tente novamente em alguns instantes."
)

type extractRequest struct {
	URL string `json:"url"`
}

type chatRequest struct {
	Message    string `json:"message"`
	URL        string `json:"url"`
	ProductURL string `json:"productUrl"`
}

type chatResponse struct {
	Response string          `json:"response"`
	Product  *product.Result `json:"product,omitempty"`
}

type healthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Fetcher string `json:"fetcher"`
	Cached  int    `json:"cached"`
}

// bind decodes the JSON body into dst. It writes the error response and
// returns false when the body is unusable. An empty body decodes as {}.
func bind(c *gin.Context, dst any) bool {
	err := c.ShouldBindJSON(dst)
	if err == nil || errors.Is(err, io.EOF) {
		return true
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": msgBodyTooLarge})
		return false
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": msgInvalidJSON})
	return false
}

// handleExtract answers 200 with the product, or 500 with the fallback
// product and its error when extraction failed.
func (s *Server) handleExtract(c *gin.Context) {
	var req extractRequest
	if !bind(c, &req) {
		return
	}
	url := strings.TrimSpace(req.URL)
	if url == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msgURLRequired})
		return
	}

	result := s.extractor.Extract(c.Request.Context(), url)
	if result.Failed() {
		logger.Warn("extraction failed",
			"url", url,
			"kind", result.Error.Kind,
			"error", result.Error.Message,
			"request_id", c.GetString(requestIDKey))
		c.JSON(http.StatusInternalServerError, result)
		return
	}
	c.JSON(http.StatusOK, result)
}

// handleChat answers a shopper message. When a product URL is given the
// cached extraction is used, extracting it first on a miss.
func (s *Server) handleChat(c *gin.Context) {
	var req chatRequest
	if !bind(c, &req) {
		return
	}
	message := strings.TrimSpace(req.Message)
	if message == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msgMessageRequired})
		return
	}

	var p product.Result
	var attached *product.Result
	if url := strings.TrimSpace(coalesce(req.URL, req.ProductURL)); url != "" {
		cached, ok := s.extractor.LookupCached(url)
		if !ok {
			cached = s.extractor.Extract(c.Request.Context(), url)
		}
		p = cached
		attached = &p
	}

	reply, err := s.responder.Respond(c.Request.Context(), message, p)
	if err != nil {
		logger.Error("chat reply failed",
			"responder", s.responder.Name(),
			"error", err,
			"request_id", c.GetString(requestIDKey))
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":    msgInternalError,
			"response": msgChatFailed,
		})
		return
	}

	if s.metrics != nil {
		s.metrics.ObserveChatReply(s.responder.Name(), chat.Topic(message))
	}
	c.JSON(http.StatusOK, chatResponse{Response: reply, Product: attached})
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, healthResponse{
		Status:  "ok",
		Version: version.String(),
		Fetcher: s.extractor.FetcherType(),
		Cached:  s.extractor.CachedCount(),
	})
}

func coalesce(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
