package proctorService

import (
	proctoring "ProctorGuard/internal/api/proctor"
	proctorRepository "ProctorGuard/internal/api/proctor/repository"
	"ProctorGuard/pkg/metrics"
	"ProctorGuard/pkg/proctor"
	"ProctorGuard/pkg/redis"
	"ProctorGuard/pkg/s3"
	"ProctorGuard/pkg/smtp"
	"ProctorGuard/pkg/utils"
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

const DefaultLiveStatusTTL = 30 * time.Second

type IProctorService interface {
	AnalyzeFrame(ctx context.Context, examID string, image []byte) (*proctoring.AnalyzeResponse, error)
	LogViolation(ctx context.Context, req proctoring.CreateViolationRequest) (*proctoring.ViolationResponse, error)
	GetViolations(ctx context.Context, examID string) (*proctoring.ViolationListResponse, error)
	GetLiveStatus(ctx context.Context, examID string) (*proctoring.LiveStatusResponse, error)
	GetCatalogue(ctx context.Context) *proctoring.CatalogueResponse
	UpdateCatalogue(ctx context.Context, req proctoring.UpdateCatalogueRequest) (*proctoring.CatalogueResponse, error)
	StreamOpened()
	StreamClosed()
}

// Analyzer is the part of the engine the service drives.
type Analyzer interface {
	Analyze(ctx context.Context, frame proctor.Frame) (*proctor.Report, error)
	Catalogue() proctor.Catalogue
	Reconfigure(c proctor.Catalogue) error
}

type Options struct {
	EvidenceUpload bool
	LiveStatusTTL  time.Duration

	// Alerts mails AlertRecipients whenever a frame reaches high severity.
	Alerts          smtp.ItfSmtp
	AlertRecipients []string
}

type proctorService struct {
	log     *logrus.Logger
	engine  Analyzer
	repo    proctorRepository.Repository
	sink    proctor.ViolationSink
	redis   redis.IRedis
	s3      s3.ItfS3
	metrics metrics.IMetrics
	utils   utils.IUtils
	opts    Options
	now     func() time.Time
	streams *streamCounter
}

func NewProctorService(
	log *logrus.Logger,
	engine Analyzer,
	repo proctorRepository.Repository,
	redisClient redis.IRedis,
	s3Client s3.ItfS3,
	m metrics.IMetrics,
	u utils.IUtils,
	opts Options,
) IProctorService {
	if opts.LiveStatusTTL <= 0 {
		opts.LiveStatusTTL = DefaultLiveStatusTTL
	}

	return &proctorService{
		log:     log,
		engine:  engine,
		repo:    repo,
		sink:    proctorRepository.NewViolationSink(repo, u),
		redis:   redisClient,
		s3:      s3Client,
		metrics: m,
		utils:   u,
		opts:    opts,
		now:     time.Now,
		streams: &streamCounter{},
	}
}
