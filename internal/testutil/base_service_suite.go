package testutil

import (
	"context"
	"time"

	"github.com/menumate/menumate/internal/cache"
	"github.com/menumate/menumate/internal/config"
	"github.com/menumate/menumate/internal/domain/checkoutlink"
	"github.com/menumate/menumate/internal/domain/plan"
	"github.com/menumate/menumate/internal/domain/subscription"
	"github.com/menumate/menumate/internal/domain/webhookevent"
	"github.com/menumate/menumate/internal/logger"
	"github.com/menumate/menumate/internal/notification"
	"github.com/menumate/menumate/internal/types"
	"github.com/menumate/menumate/internal/validator"
	"github.com/stretchr/testify/suite"
)

// Stores holds all the repository interfaces for testing
type Stores struct {
	PlanRepo         plan.Repository
	CheckoutLinkRepo checkoutlink.Repository
	SubRepo          subscription.Repository
	WebhookEventRepo webhookevent.Repository
}

// BaseServiceTestSuite provides common functionality for all service test suites
type BaseServiceTestSuite struct {
	suite.Suite
	ctx     context.Context
	stores  Stores
	gateway *MockGateway
	sink    *CaptureSink
	fanout  *notification.Fanout
	cache   cache.Cache
	logger  *logger.Logger
	config  *config.Configuration
	now     time.Time
}

// SetupSuite is called once before running the tests in the suite
func (s *BaseServiceTestSuite) SetupSuite() {
	validator.NewValidator()

	s.config = config.GetDefaultConfig()

	var err error
	s.logger, err = logger.NewLogger(s.config)
	if err != nil {
		s.T().Fatalf("failed to create logger: %v", err)
	}
}

// SetupTest is called before each test
func (s *BaseServiceTestSuite) SetupTest() {
	s.setupContext()
	s.setupStores()
	s.now = time.Now().UTC()
}

// TearDownTest is called after each test
func (s *BaseServiceTestSuite) TearDownTest() {
	s.clearStores()
}

func (s *BaseServiceTestSuite) setupContext() {
	s.ctx = SetupContext()
}

func (s *BaseServiceTestSuite) setupStores() {
	s.stores = Stores{
		PlanRepo:         NewInMemoryPlanStore(),
		CheckoutLinkRepo: NewInMemoryCheckoutLinkStore(),
		SubRepo:          NewInMemorySubscriptionStore(),
		WebhookEventRepo: NewInMemoryWebhookEventStore(),
	}

	s.gateway = NewMockGateway()
	s.sink = NewCaptureSink()
	s.fanout = notification.NewFanout(s.logger, s.sink)
	s.cache = cache.NewInMemoryCache()
}

func (s *BaseServiceTestSuite) clearStores() {
	s.stores.PlanRepo.(*InMemoryPlanStore).Clear()
	s.stores.CheckoutLinkRepo.(*InMemoryCheckoutLinkStore).Clear()
	s.stores.SubRepo.(*InMemorySubscriptionStore).Clear()
	s.stores.WebhookEventRepo.(*InMemoryWebhookEventStore).Clear()
	s.sink.Clear()
	s.cache.Flush(s.ctx)
}

// GetContext returns the test context
func (s *BaseServiceTestSuite) GetContext() context.Context {
	return s.ctx
}

// GetStores returns the in-memory repository set
func (s *BaseServiceTestSuite) GetStores() Stores {
	return s.stores
}

// GetGateway returns the mock provider gateway
func (s *BaseServiceTestSuite) GetGateway() *MockGateway {
	return s.gateway
}

// GetSink returns the capture sink wired into the fan-out
func (s *BaseServiceTestSuite) GetSink() *CaptureSink {
	return s.sink
}

// GetFanout returns the notification fan-out
func (s *BaseServiceTestSuite) GetFanout() *notification.Fanout {
	return s.fanout
}

// GetCache returns the test cache
func (s *BaseServiceTestSuite) GetCache() cache.Cache {
	return s.cache
}

// GetLogger returns the test logger
func (s *BaseServiceTestSuite) GetLogger() *logger.Logger {
	return s.logger
}

// GetConfig returns the test configuration
func (s *BaseServiceTestSuite) GetConfig() *config.Configuration {
	return s.config
}

// GetNow returns the time captured at test setup
func (s *BaseServiceTestSuite) GetNow() time.Time {
	return s.now
}

// GetUUID returns a fresh unique id
func (s *BaseServiceTestSuite) GetUUID() string {
	return types.GenerateUUID()
}
