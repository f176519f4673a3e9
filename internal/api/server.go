package api

import (
	"context"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	swaggerfiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/lotterydesk/lottery-api/docs"
	v1 "github.com/lotterydesk/lottery-api/internal/api/handler/v1"
	"github.com/lotterydesk/lottery-api/internal/api/middleware"
	"github.com/lotterydesk/lottery-api/internal/config"
	"github.com/lotterydesk/lottery-api/internal/gateway/zarinpal"
	"github.com/lotterydesk/lottery-api/internal/notify"
	"github.com/lotterydesk/lottery-api/internal/pkg/ratelimit"
	"github.com/lotterydesk/lottery-api/internal/repository"
	"github.com/lotterydesk/lottery-api/internal/repository/dao"
	"github.com/lotterydesk/lottery-api/internal/service"
	"github.com/lotterydesk/lottery-api/internal/sms"
)

type Server struct {
	Config *config.AppConfig
	Router *gin.Engine

	feed     *v1.FeedHandler
	telegram *notify.Telegram
}

// NewServer wires every handler. rdb may be nil, in which case OTP rate
// limits are kept in memory.
func NewServer(conf *config.AppConfig, db *gorm.DB, rdb *redis.Client) *Server {
	gin.SetMode(conf.Gin.Mode)
	engine := gin.New()

	s := &Server{
		Config: conf,
		Router: engine,
		feed:   v1.NewFeedHandler(conf.API.AllowedCORSDomains),
	}

	s.MountMiddlewares()

	lotterySvc := s.initLotteryService(db)
	authHandler := s.initAuthHandler(db, rdb)
	userHandler := s.initUserHandler(db, lotterySvc)
	paymentHandler := s.initPaymentHandler(db, lotterySvc)
	lotteryHandler := v1.NewLotteryHandler(lotterySvc)
	feedbackHandler := s.initFeedbackHandler(db)
	s.MountHandlers(authHandler, userHandler, paymentHandler, lotteryHandler, feedbackHandler, s.feed)

	return s
}

// RunBackground starts the live feed hub and the Telegram sender. They stop
// when ctx is done.
func (s *Server) RunBackground(ctx context.Context) {
	go s.feed.Run(ctx)
	if s.telegram != nil {
		go s.telegram.Run(ctx)
	}
}

func (s *Server) smsClient() *sms.Client {
	if s.Config.SMS == nil {
		return sms.NewClient(&config.SMSConfig{})
	}

	return sms.NewClient(s.Config.SMS)
}

func (s *Server) initLotteryService(db *gorm.DB) *service.LotteryService {
	repo := repository.NewLotteryRepository(dao.NewLotteryDAO(db), dao.NewTxManager(db))
	payments := repository.NewPaymentRepository(dao.NewPaymentDAO(db))
	users := repository.NewUserRepository(dao.NewUserDAO(db))

	var notifier service.WinnerNotifier = sms.LogSender{}
	if client := s.smsClient(); client.Configured() {
		notifier = client
	}

	publishers := notify.Fanout{s.feed}
	if s.Config.Telegram != nil && s.Config.Telegram.BotToken != "" {
		tg, err := notify.NewTelegram(s.Config.Telegram)
		if err != nil {
			zap.L().Warn("telegram notifications disabled", zap.Error(err))
		} else {
			s.telegram = tg
			publishers = append(publishers, tg)
		}
	}

	return service.NewLotteryService(repo, payments, users, notifier, publishers, s.Config.Lottery)
}

func (s *Server) initAuthHandler(db *gorm.DB, rdb *redis.Client) *v1.AuthHandler {
	repo := repository.NewUserRepository(dao.NewUserDAO(db))

	var limiter service.RateLimiter = ratelimit.NewMemory(s.Config.OTP.RateLimit, s.Config.OTP.RateWindow)
	if rdb != nil {
		limiter = ratelimit.NewRedis(rdb, s.Config.OTP.RateLimit, s.Config.OTP.RateWindow)
	}

	var sender service.OTPSender = sms.LogSender{}
	if client := s.smsClient(); client.Configured() {
		sender = client
	} else if s.Config.API.Environment == "production" {
		zap.L().Warn("sms provider not configured, otp codes will only be logged")
	}

	svc := service.NewAuthService(repo, limiter, sender, s.Config.OTP)
	handler := v1.NewAuthHandler(s.Config.API, svc)

	return handler
}

func (s *Server) initUserHandler(db *gorm.DB, lotterySvc *service.LotteryService) *v1.UserHandler {
	repo := repository.NewUserRepository(dao.NewUserDAO(db))
	svc := service.NewUserService(repo, lotterySvc)
	handler := v1.NewUserHandler(svc)

	return handler
}

func (s *Server) initPaymentHandler(db *gorm.DB, lotterySvc *service.LotteryService) *v1.PaymentHandler {
	payments := repository.NewPaymentRepository(dao.NewPaymentDAO(db))
	users := repository.NewUserRepository(dao.NewUserDAO(db))

	zarinpalConf := s.Config.Zarinpal
	if zarinpalConf == nil {
		zarinpalConf = &config.ZarinpalConfig{}
	}
	if zarinpalConf.CallbackURL == "" {
		zarinpalConf.CallbackURL = s.Config.API.BaseURL + "/api/v1/payments/verify"
	}

	svc := service.NewPaymentService(lotterySvc, payments, users, zarinpal.NewClient(zarinpalConf))
	handler := v1.NewPaymentHandler(svc, s.Config.API.FrontendURL)

	return handler
}

func (s *Server) initFeedbackHandler(db *gorm.DB) *v1.FeedbackHandler {
	repo := repository.NewFeedbackRepository(dao.NewFeedbackDAO(db))
	svc := service.NewFeedbackService(repo)
	handler := v1.NewFeedbackHandler(svc)

	return handler
}

func (s *Server) MountMiddlewares() {
	s.Router.Use(gin.Recovery())
	s.Router.Use(requestid.New())
	s.Router.Use(middleware.Logger())
	s.Router.Use(middleware.ConfigCORS(s.Config.API.AllowedCORSDomains))
}

func (s *Server) MountHandlers(
	authHandler *v1.AuthHandler,
	userHandler *v1.UserHandler,
	paymentHandler *v1.PaymentHandler,
	lotteryHandler *v1.LotteryHandler,
	feedbackHandler *v1.FeedbackHandler,
	feedHandler *v1.FeedHandler,
) {
	const basePath = "/api/v1"

	authenticator := middleware.NewAuthenticator(s.Config.API.JWTSigningKey)

	public := s.Router.Group(basePath)
	{
		public.POST("/auth/send-otp", authHandler.HandleSendOTP)
		public.POST("/auth/verify-otp", authHandler.HandleVerifyOTP)
		public.POST("/auth/precheck", authHandler.HandlePrecheck)
		public.POST("/auth/logout", authHandler.HandleLogout)
		public.GET("/lottery/active", lotteryHandler.HandleGetActiveRound)
		public.GET("/payments/verify", paymentHandler.HandleVerifyPayment)
		public.POST("/feedback", feedbackHandler.HandleSubmitFeedback)
	}

	users := s.Router.Group(basePath, authenticator.VerifyJWT())
	{
		users.GET("/users/me", userHandler.HandleGetMe)
		users.PATCH("/users/me", userHandler.HandleUpdateProfile)
		users.GET("/users/me/dashboard", userHandler.HandleDashboard)
		users.POST("/payments", paymentHandler.HandleCreatePayment)
	}

	admin := s.Router.Group(basePath+"/admin", authenticator.VerifyJWT(), middleware.RequireAdmin())
	{
		admin.GET("/overview", lotteryHandler.HandleOverview)
		admin.GET("/settings", lotteryHandler.HandleGetSettings)
		admin.PUT("/settings", lotteryHandler.HandleUpdateSettings)
		admin.GET("/rounds", lotteryHandler.HandleListRounds)
		admin.POST("/rounds", lotteryHandler.HandleNewRound)
		admin.GET("/rounds/:roundID", lotteryHandler.HandleGetRound)
		admin.POST("/rounds/close", lotteryHandler.HandleCloseRound)
		admin.POST("/codes/gift", lotteryHandler.HandleGiftCodes)
		admin.POST("/winners", lotteryHandler.HandleRegisterWinner)
		admin.GET("/finance", lotteryHandler.HandleFinance)
		admin.GET("/feedback", feedbackHandler.HandleListFeedback)
		admin.PATCH("/feedback/:feedbackID", feedbackHandler.HandleUpdateFeedbackStatus)
		admin.GET("/feed", feedHandler.HandleWebSocket)
	}

	s.Router.GET("/", v1.HandleHealthcheck)

	// Setup Swagger UI.
	docs.SwaggerInfo.Host = s.Config.API.BaseURL
	docs.SwaggerInfo.BasePath = basePath
	docs.SwaggerInfo.Title = "Lottery API"
	docs.SwaggerInfo.Description = "Rounds, lottery codes, payments and winners."
	docs.SwaggerInfo.Version = "1.0"
	s.Router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerfiles.Handler))
}
