// Package server is the thin transport shim in front of the Brain: web chat,
// WhatsApp webhook, session info, and the analytics dashboard read.
package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog/log"

	catalogx "github.com/aryanranjan/aria/brain/catalog"
	contractx "github.com/aryanranjan/aria/brain/contract"
	convlogx "github.com/aryanranjan/aria/brain/convlog"
	sessionx "github.com/aryanranjan/aria/brain/session"
	twiliox "github.com/aryanranjan/aria/pkg/twilio"
)

type Config struct {
	Addr string `split_words:"true" default:":8000"`
}

// Brain is the orchestrator surface the transport consumes.
type Brain interface {
	HandleMessage(ctx context.Context, in contractx.Inbound) (contractx.Outbound, error)
	CompleteStyleDNA(ctx context.Context, userID string) (contractx.SessionInfo, error)
	AddToCart(ctx context.Context, userID, productID string, qty int) (contractx.SessionInfo, error)
	Checkout(ctx context.Context, userID string) (contractx.Receipt, error)
}

// DashboardReader aggregates the conversation log for the analytics endpoint.
type DashboardReader interface {
	Dashboard(ctx context.Context) (convlogx.Dashboard, error)
}

type Server struct {
	echo      *echo.Echo
	addr      string
	brain     Brain
	store     sessionx.Store
	dashboard DashboardReader
	whatsapp  *twiliox.Client
}

func New(cfg Config, brain Brain, store sessionx.Store, dashboard DashboardReader, whatsapp *twiliox.Client) (*Server, error) {
	if brain == nil {
		return nil, errors.New("brain is required")
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	s := &Server{
		echo:      e,
		addr:      cfg.Addr,
		brain:     brain,
		store:     store,
		dashboard: dashboard,
		whatsapp:  whatsapp,
	}

	e.GET("/health", s.handleHealth)
	api := e.Group("/api/v1")
	api.POST("/chat/message", s.handleChatMessage)
	api.GET("/chat/session/:user_id", s.handleSessionInfo)
	api.POST("/whatsapp/webhook", s.handleWhatsAppWebhook)
	api.POST("/color/style-dna/:user_id", s.handleStyleDNAComplete)
	api.POST("/cart/:user_id/items", s.handleCartAdd)
	api.POST("/cart/:user_id/checkout", s.handleCheckout)
	api.GET("/analytics/dashboard", s.handleDashboard)

	return s, nil
}

func (s *Server) Start() error {
	err := s.echo.Start(s.addr)
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "aria-backend",
	})
}

type chatResponse struct {
	Response    string               `json:"response"`
	UserID      string               `json:"user_id"`
	Channel     string               `json:"channel"`
	SessionInfo contractx.SessionInfo `json:"session_info"`
}

func (s *Server) handleChatMessage(c echo.Context) error {
	var in contractx.Inbound
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(in.UserID) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "user_id is required")
	}
	if in.Channel == "" {
		in.Channel = "web"
	}

	out, err := s.brain.HandleMessage(c.Request().Context(), in)
	if err != nil {
		log.Error().Err(err).Str("user_id", in.UserID).Msg("chat message failed")
		return echo.NewHTTPError(http.StatusInternalServerError, "something went wrong, please try again")
	}

	return c.JSON(http.StatusOK, chatResponse{
		Response:    out.Response,
		UserID:      in.UserID,
		Channel:     in.Channel,
		SessionInfo: out.SessionInfo,
	})
}

func (s *Server) handleSessionInfo(c echo.Context) error {
	userID := strings.TrimSpace(c.Param("user_id"))
	if userID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "user_id is required")
	}
	if s.store == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "session store not configured")
	}

	sess, err := s.store.Get(c.Request().Context(), userID)
	if err != nil {
		if errors.Is(err, sessionx.ErrSessionNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "no session for user")
		}
		return echo.NewHTTPError(http.StatusServiceUnavailable, "session store unreachable")
	}

	return c.JSON(http.StatusOK, contractx.SessionInfo{
		ChannelsUsed:    sess.ChannelsUsed,
		ChannelSwitches: sess.ChannelSwitchCount,
		CartCount:       sess.CartCount(),
		HasStyleDNA:     sess.StyleDNAFlag,
	})
}

// handleWhatsAppWebhook consumes Twilio's form post. With a send client
// configured the webhook acks immediately and delivers the reply out of
// band; otherwise the reply rides back in the TwiML response.
func (s *Server) handleWhatsAppWebhook(c echo.Context) error {
	from := strings.TrimSpace(c.FormValue("From"))
	body := c.FormValue("Body")
	if from == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "From is required")
	}

	in := contractx.Inbound{
		UserID:  strings.TrimPrefix(from, "whatsapp:"),
		Message: body,
		Channel: "whatsapp",
	}

	if s.whatsapp != nil {
		detached := context.WithoutCancel(c.Request().Context())
		go func() {
			ctx, cancel := context.WithTimeout(detached, 2*time.Minute)
			defer cancel()
			out, err := s.brain.HandleMessage(ctx, in)
			if err != nil {
				log.Error().Err(err).Str("user_id", in.UserID).Msg("whatsapp message failed")
				return
			}
			if err := s.whatsapp.SendMessage(ctx, from, out.Response); err != nil {
				log.Error().Err(err).Str("user_id", in.UserID).Msg("whatsapp send failed")
			}
		}()
		return c.Blob(http.StatusOK, "application/xml", []byte(twiliox.TwiMLResponse("")))
	}

	out, err := s.brain.HandleMessage(c.Request().Context(), in)
	if err != nil {
		log.Error().Err(err).Str("user_id", in.UserID).Msg("whatsapp message failed")
		out.Response = "Something went wrong. Please try again."
	}
	return c.Blob(http.StatusOK, "application/xml", []byte(twiliox.TwiMLResponse(out.Response)))
}

// handleStyleDNAComplete is the set-path for the style-DNA flag: the color
// analysis itself runs outside the core, this endpoint records its completion
// on the session.
func (s *Server) handleStyleDNAComplete(c echo.Context) error {
	userID := strings.TrimSpace(c.Param("user_id"))
	if userID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "user_id is required")
	}

	info, err := s.brain.CompleteStyleDNA(c.Request().Context(), userID)
	if err != nil {
		return opError(err, "style DNA completion failed")
	}
	return c.JSON(http.StatusOK, info)
}

type cartAddRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

func (s *Server) handleCartAdd(c echo.Context) error {
	userID := strings.TrimSpace(c.Param("user_id"))
	if userID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "user_id is required")
	}
	var req cartAddRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(req.ProductID) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "product_id is required")
	}

	info, err := s.brain.AddToCart(c.Request().Context(), userID, req.ProductID, req.Quantity)
	if err != nil {
		if errors.Is(err, catalogx.ErrProductNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "unknown product")
		}
		return opError(err, "cart update failed")
	}
	return c.JSON(http.StatusOK, info)
}

func (s *Server) handleCheckout(c echo.Context) error {
	userID := strings.TrimSpace(c.Param("user_id"))
	if userID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "user_id is required")
	}

	receipt, err := s.brain.Checkout(c.Request().Context(), userID)
	if err != nil {
		return opError(err, "checkout failed")
	}
	return c.JSON(http.StatusOK, receipt)
}

// opError maps the brain's error taxonomy onto HTTP statuses for the
// non-chat session writes, which have no degraded mode.
func opError(err error, msg string) *echo.HTTPError {
	switch {
	case errors.Is(err, contractx.ErrValidation):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, contractx.ErrSessionBusy):
		return echo.NewHTTPError(http.StatusConflict, "session is busy, please retry")
	case errors.Is(err, contractx.ErrContinuityUnavailable):
		return echo.NewHTTPError(http.StatusServiceUnavailable, "session store unreachable")
	default:
		log.Error().Err(err).Msg(msg)
		return echo.NewHTTPError(http.StatusInternalServerError, msg)
	}
}

func (s *Server) handleDashboard(c echo.Context) error {
	if s.dashboard == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "analytics not configured")
	}
	dashboard, err := s.dashboard.Dashboard(c.Request().Context())
	if err != nil {
		log.Error().Err(err).Msg("dashboard aggregation failed")
		return echo.NewHTTPError(http.StatusInternalServerError, "dashboard unavailable")
	}
	return c.JSON(http.StatusOK, dashboard)
}
