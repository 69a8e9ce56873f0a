package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/wfunc/fod-bridge/internal/models"
)

// EventRepositoryTestSuite 事件仓库测试套件
type EventRepositoryTestSuite struct {
	suite.Suite
	repo *EventRepository
	ctx  context.Context
	now  time.Time
}

func (s *EventRepositoryTestSuite) SetupTest() {
	s.repo = NewEventRepository(TestDB(s.T()))
	s.ctx = context.Background()
	s.now = time.Now().UTC().Truncate(time.Second)
}

func (s *EventRepositoryTestSuite) seed() {
	events := []*models.BridgeEvent{
		CreateTestEvent(models.EventOverlayState, 1, true, s.now.Add(-3*time.Hour)),
		CreateTestEvent(models.EventOverlayState, 0, true, s.now.Add(-2*time.Hour)),
		CreateTestEvent(models.EventTouchMode, 1, false, s.now.Add(-time.Hour)),
		CreateTestEvent(models.EventFingerDown, 22, true, s.now),
	}
	s.Require().NoError(s.repo.CreateBatch(s.ctx, events))
}

func (s *EventRepositoryTestSuite) TestCreate() {
	event := &models.BridgeEvent{Kind: models.EventVendorError, Value: 5, Detail: "vendor 1", Success: false}
	s.Require().NoError(s.repo.Create(s.ctx, event))
	s.NotZero(event.ID)

	events, total, err := s.repo.Query(s.ctx, &models.EventQuery{})
	s.Require().NoError(err)
	s.Equal(int64(1), total)
	AssertEvent(s.T(), event, events[0])
}

func (s *EventRepositoryTestSuite) TestCreateBatchEmpty() {
	s.NoError(s.repo.CreateBatch(s.ctx, nil))
}

func (s *EventRepositoryTestSuite) TestQueryFilters() {
	s.seed()

	events, total, err := s.repo.Query(s.ctx, &models.EventQuery{Kind: models.EventOverlayState})
	s.Require().NoError(err)
	s.Equal(int64(2), total)
	// 时间倒序
	s.Equal(int32(0), events[0].Value)
	s.Equal(int32(1), events[1].Value)

	failed := false
	_, total, err = s.repo.Query(s.ctx, &models.EventQuery{Success: &failed})
	s.Require().NoError(err)
	s.Equal(int64(1), total)

	start := s.now.Add(-90 * time.Minute)
	_, total, err = s.repo.Query(s.ctx, &models.EventQuery{StartTime: &start})
	s.Require().NoError(err)
	s.Equal(int64(2), total)
}

func (s *EventRepositoryTestSuite) TestQueryPagination() {
	s.seed()

	events, total, err := s.repo.Query(s.ctx, &models.EventQuery{Limit: 2, Offset: 1})
	s.Require().NoError(err)
	s.Equal(int64(4), total)
	s.Len(events, 2)
	s.Equal(models.EventTouchMode, events[0].Kind)
}

func (s *EventRepositoryTestSuite) TestCountByKind() {
	s.seed()

	counts, err := s.repo.CountByKind(s.ctx)
	s.Require().NoError(err)
	s.Equal([]models.EventCount{
		{Kind: models.EventFingerDown, Count: 1},
		{Kind: models.EventOverlayState, Count: 2},
		{Kind: models.EventTouchMode, Count: 1},
	}, counts)
}

func (s *EventRepositoryTestSuite) TestDeleteBefore() {
	s.seed()

	deleted, err := s.repo.DeleteBefore(s.ctx, s.now.Add(-90*time.Minute))
	s.Require().NoError(err)
	s.Equal(int64(2), deleted)

	_, total, err := s.repo.Query(s.ctx, &models.EventQuery{})
	s.Require().NoError(err)
	s.Equal(int64(2), total)
}

func TestEventRepositorySuite(t *testing.T) {
	suite.Run(t, new(EventRepositoryTestSuite))
}
