package notification_test

import (
	"context"
	"testing"

	"github.com/menumate/menumate/internal/config"
	"github.com/menumate/menumate/internal/logger"
	"github.com/menumate/menumate/internal/notification"
	"github.com/menumate/menumate/internal/testutil"
	"github.com/menumate/menumate/internal/types"
	"github.com/stretchr/testify/suite"
)

type FanoutSuite struct {
	suite.Suite
	logger *logger.Logger
}

func TestFanout(t *testing.T) {
	suite.Run(t, new(FanoutSuite))
}

func (s *FanoutSuite) SetupSuite() {
	var err error
	s.logger, err = logger.NewLogger(config.GetDefaultConfig())
	s.Require().NoError(err)
}

func (s *FanoutSuite) newEvent(name string) *types.NotificationEvent {
	event, err := types.NewNotificationEvent(name, types.DefaultTenantID, map[string]string{"id": "link_1"})
	s.Require().NoError(err)
	return event
}

func (s *FanoutSuite) TestPublishDeliversToAllSinks() {
	first := testutil.NewCaptureSink()
	second := testutil.NewCaptureSink()
	fanout := notification.NewFanout(s.logger, first, second)

	event := s.newEvent(types.EventCheckoutLinkCreated)
	fanout.Publish(context.Background(), event)

	s.Equal([]string{types.EventCheckoutLinkCreated}, first.EventNames())
	s.Equal([]string{types.EventCheckoutLinkCreated}, second.EventNames())
}

func (s *FanoutSuite) TestPublishWithNoSinksIsNoOp() {
	fanout := notification.NewFanout(s.logger)
	fanout.Publish(context.Background(), s.newEvent(types.EventCheckoutLinkUsed))
}

func (s *FanoutSuite) TestPublishNilEventIsNoOp() {
	sink := testutil.NewCaptureSink()
	fanout := notification.NewFanout(s.logger, sink)

	fanout.Publish(context.Background(), nil)
	s.Empty(sink.Events())
}

func (s *FanoutSuite) TestFailingSinkDoesNotAffectOthers() {
	capture := testutil.NewCaptureSink()
	fanout := notification.NewFanout(s.logger, testutil.FailingSink{}, capture)

	fanout.Publish(context.Background(), s.newEvent(types.EventSubscriptionCanceled))
	s.Equal([]string{types.EventSubscriptionCanceled}, capture.EventNames())
}

func (s *FanoutSuite) TestPanickingSinkDoesNotAffectOthers() {
	capture := testutil.NewCaptureSink()
	fanout := notification.NewFanout(s.logger, testutil.PanickingSink{}, capture)

	s.NotPanics(func() {
		fanout.Publish(context.Background(), s.newEvent(types.EventSubscriptionTrialExtend))
	})
	s.Equal([]string{types.EventSubscriptionTrialExtend}, capture.EventNames())
}

func (s *FanoutSuite) TestEveryPublishReachesEverySink() {
	capture := testutil.NewCaptureSink()
	fanout := notification.NewFanout(s.logger, testutil.PanickingSink{}, testutil.FailingSink{}, capture)

	names := []string{
		types.EventCheckoutLinkCreated,
		types.EventCheckoutLinkUsed,
		types.EventCheckoutLinkExpired,
	}
	for _, name := range names {
		fanout.Publish(context.Background(), s.newEvent(name))
	}
	s.Equal(names, capture.EventNames())
}
