// Package api contains all endpoints available
package api

import (
	"fmt"
	"time"

	"physlab/lab-api/config"
	"physlab/lab-api/db"
	"physlab/lab-api/internal/service"
	"physlab/lab-api/pkg/middleware"
	"physlab/lab-api/pkg/security"

	cache "github.com/chenyahui/gin-cache"
	"github.com/chenyahui/gin-cache/persist"
	ginzap "github.com/gin-contrib/zap"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/gorm"
)

const (
	gray  = "\x1b[90m"
	reset = "\x1b[0m"
)

var store = persist.NewMemoryStore(time.Minute)

type API struct {
	DB       *gorm.DB
	Router   *gin.Engine
	Argon    *security.ArgonHash
	Verifier *service.Verifier
	Chat     *service.ChatService
}

func NewRouter() (*API, error) {
	a := &API{}

	db, err := db.New()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database, %w", err)
	}
	a.DB = db

	makeLogger()

	router := gin.New()
	a.Router = router

	router.Use(
		cors.New(cors.Config{
			AllowOrigins:     viper.GetStringSlice("host.cors_origins"),
			AllowMethods:     []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
			ExposeHeaders:    []string{"Content-Length"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}),
		gin.Recovery(),
		middleware.NewRequestIDMiddleware(),
		ginzap.GinzapWithConfig(zap.L(), &ginzap.Config{
			TimeFormat: "15:04:05.000",
			UTC:        true,
			Skipper: func(c *gin.Context) bool {
				return c.Request.Method == "HEAD"
			},
			Context: func(c *gin.Context) []zapcore.Field {
				fields := []zapcore.Field{}

				if v := c.GetString("requestID"); v != "" {
					fields = append(fields, zap.String("request_id", v))
				}

				if v := c.GetString("userID"); v != "" {
					fields = append(fields, zap.String("userID", v))
				}

				return fields
			},
		}),
	)

	router.HandleMethodNotAllowed = true
	router.RedirectFixedPath = true

	var mailer service.Mailer = service.SMTPMailer{}
	if viper.GetString("mail.sender") == "" {
		mailer = service.LogMailer{}
	}

	a.Verifier = service.NewVerifier(db, mailer,
		viper.GetDuration("auth.otp_ttl"),
		viper.GetDuration("auth.resend_cooldown"))

	if config.SweepOnStartup() {
		a.Verifier.SweepExpired()
	}
	a.Verifier.StartSweeper(viper.GetDuration("auth.sweep_interval"))

	corpus, err := service.LoadCorpus()
	if err != nil {
		return nil, fmt.Errorf("failed to load resource corpus, %w", err)
	}

	queue := service.NewChatQueue(service.NewGeminiClient(),
		viper.GetDuration("chat.cooldown"),
		viper.GetDuration("chat.request_timeout"))

	a.Chat = service.NewChatService(queue, corpus,
		viper.GetString("chat.prompt_template"),
		viper.GetInt("chat.max_resources"))

	a.Argon = security.New()

	jwt := middleware.NewJWTMiddleware()
	limiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		RequestsPerSecond: 5,
		Burst:             10,
	})

	main := router.Group("", limiter.Middleware())
	{
		// HEAD /heartbeat 		-> Used to check if the server is alive
		main.HEAD("/heartbeat", a.Heartbeat)

		// GET /health			-> Reports config/readiness state
		main.GET("/health", cacheFor(30), a.Health)
	}

	auth := main.Group("/auth", middleware.BodySizeLimiter(1<<20))
	{
		// POST /auth/send-otp 		-> Emails a one-time code
		auth.POST("/send-otp", a.SendOTP)

		// POST /auth/verify-otp 	-> Checks a code without spending it on a registration
		auth.POST("/verify-otp", a.VerifyOTP)

		// POST /auth/resend-otp 	-> Replaces the current code, subject to the cooldown
		auth.POST("/resend-otp", a.SendOTP)

		// POST /auth/register 		-> Creates a verified account, requires a valid code
		auth.POST("/register", a.Register)

		// POST /auth/login 		-> Issues a session token
		auth.POST("/login", a.Login)

		// GET /auth/verify		-> Returns the identity inside a bearer token
		auth.GET("/verify", jwt, a.SessionVerify)
	}

	{
		// POST /chat			-> Ranks resources, queues the prompt, returns the answer
		main.POST("/chat", middleware.BodySizeLimiter(1<<20), a.ChatAsk)
	}

	return a, nil
}

func makeLogger() {
	cfg := zap.NewDevelopmentConfig()
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	cfg.EncoderConfig.EncodeTime = func(t time.Time, pae zapcore.PrimitiveArrayEncoder) {
		pae.AppendString(gray + t.Format("15:04:05.000") + reset)
	}
	cfg.EncoderConfig.EncodeCaller = func(ec zapcore.EntryCaller, pae zapcore.PrimitiveArrayEncoder) {
		pae.AppendString(gray + ec.TrimmedPath() + reset)
	}

	cfg.DisableStacktrace = true

	log, _ := cfg.Build()
	zap.ReplaceGlobals(log)
}

func cacheFor(sec int) gin.HandlerFunc {
	return cache.CacheByRequestURI(store, time.Second*time.Duration(sec))
}
