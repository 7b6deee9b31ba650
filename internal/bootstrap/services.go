package bootstrap

import (
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"legiseye/internal/ai"
	"legiseye/internal/app"
	"legiseye/internal/cache"
	"legiseye/internal/config"
	"legiseye/internal/logging"
	"legiseye/internal/mail"
	"legiseye/internal/repository"
	"legiseye/internal/retrieval"
	"legiseye/internal/vectorindex"
)

// Backends are the connected dependencies services are built on. Index and
// the queues may be nil: analysis, chat persistence and email then run inline.
type Backends struct {
	Config     *config.Config
	Logger     *zap.Logger
	DB         *gorm.DB
	Redis      *redis.Client
	Index      vectorindex.Index
	Provider   ai.Provider
	Translator app.Translator
	MailSender mail.Sender

	MessageQueue  app.Publisher
	AnalysisQueue app.Publisher
	EmailQueue    app.Publisher
}

type repositories struct {
	users         *repository.UserRepository
	documents     *repository.DocumentRepository
	analyses      *repository.AnalysisRepository
	chunks        *repository.ChunkRepository
	messages      *repository.ChatMessageRepository
	teams         *repository.TeamRepository
	members       *repository.MemberRepository
	invitations   *repository.InvitationRepository
	shares        *repository.ShareRepository
	comments      *repository.CommentRepository
	notifications *repository.NotificationRepository
}

// Services holds every application service the transport layer exposes.
type Services struct {
	Auth          *app.AuthService
	Documents     *app.DocumentService
	Analysis      *app.AnalysisService
	Chat          *app.ChatService
	Teams         *app.TeamService
	Invitations   *app.InvitationService
	Sharing       *app.SharingService
	Comments      *app.CommentService
	Notifications *app.NotificationService
	Translation   *app.TranslationService

	repos      repositories
	mailSender mail.Sender
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

// NewServices builds the repositories and every application service.
func NewServices(b Backends) *Services {
	cfg := b.Config
	logger := logging.OrNop(b.Logger)
	db := b.DB

	repos := repositories{
		users:         repository.NewUserRepository(db),
		documents:     repository.NewDocumentRepository(db),
		analyses:      repository.NewAnalysisRepository(db),
		chunks:        repository.NewChunkRepository(db),
		messages:      repository.NewChatMessageRepository(db),
		teams:         repository.NewTeamRepository(db),
		members:       repository.NewMemberRepository(db),
		invitations:   repository.NewInvitationRepository(db),
		shares:        repository.NewShareRepository(db),
		comments:      repository.NewCommentRepository(db),
		notifications: repository.NewNotificationRepository(db),
	}

	analysisCache := cache.NewAnalysisCache(b.Redis, seconds(cfg.Redis.AnalysisTTLSeconds), seconds(cfg.Redis.TranslationTTLSeconds))
	historyCache := cache.NewHistoryCache(b.Redis, seconds(cfg.Redis.HistoryTTLSeconds), seconds(cfg.Redis.HistoryDirtyTTLSeconds))

	mailSender := b.MailSender
	if mailSender == nil {
		mailSender = mail.NewSender(cfg.Mail, logger.Named("mail"))
	}
	mailer := app.NewMailer(b.EmailQueue, mailSender, logger.Named("mail"))
	notifications := app.NewNotificationService(repos.notifications, logger.Named("notification"))

	analysis := app.NewAnalysisService(
		repos.documents, repos.analyses, repos.chunks, repos.users,
		b.Provider, b.Provider, b.Index, analysisCache, notifications, mailer,
		app.AnalysisServiceConfig{MaxChars: cfg.LLM.MaxAnalysisChars, BaseURL: cfg.App.BaseURL},
		logger.Named("analysis"),
	)

	retriever := retrieval.NewRetriever(b.Provider, b.Index, repos.chunks, retrieval.Options{
		TopK:            cfg.Chat.TopK,
		MinScore:        cfg.Chat.MinScore,
		MaxContextChars: cfg.Chat.MaxContextChars,
	}, logger.Named("retrieval"))

	return &Services{
		Auth: app.NewAuthService(
			repos.users,
			cfg.Auth.JWTSecret,
			time.Duration(cfg.Auth.JWTExpireMinute)*time.Minute,
		),
		Documents: app.NewDocumentService(
			repos.documents, repos.analyses, repos.shares, repos.members,
			b.Index, analysisCache, analysis, b.AnalysisQueue, notifications,
			app.DocumentServiceConfig{StorageDir: cfg.Storage.Dir, MaxUploadBytes: cfg.MaxUploadBytes()},
			logger.Named("document"),
		),
		Analysis: analysis,
		Chat: app.NewChatService(
			repos.documents, repos.shares, repos.users, repos.analyses, repos.messages,
			retriever, b.Provider, b.MessageQueue, historyCache, analysisCache,
			cfg.Chat.MaxHistory, logger.Named("chat"),
		),
		Teams: app.NewTeamService(repos.teams, repos.members, notifications, logger.Named("team")),
		Invitations: app.NewInvitationService(
			repos.teams, repos.members, repos.users, repos.invitations, notifications, mailer,
			app.InvitationServiceConfig{
				TTL:     time.Duration(cfg.Mail.InviteTTLHours) * time.Hour,
				BaseURL: cfg.App.BaseURL,
			},
			logger.Named("invitation"),
		),
		Sharing:       app.NewSharingService(repos.documents, repos.teams, repos.members, repos.shares, notifications, logger.Named("sharing")),
		Comments:      app.NewCommentService(repos.documents, repos.shares, repos.comments, notifications, logger.Named("comment")),
		Notifications: notifications,
		Translation: app.NewTranslationService(
			repos.documents, repos.shares, repos.analyses,
			b.Translator,
			analysisCache, logger.Named("translation"),
		),

		repos:      repos,
		mailSender: mailSender,
	}
}
