package service

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/receiptorhq/receiptor/internal/audit/domain"
	"github.com/receiptorhq/receiptor/internal/audit/repository"
	"github.com/receiptorhq/receiptor/internal/clock"
	"github.com/receiptorhq/receiptor/internal/observability/obscontext"
	"github.com/receiptorhq/receiptor/pkg/db/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (domain.Service, *clock.FakeClock, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Event{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	fc := clock.NewFakeClock(time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC))

	svc := New(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: fc,
		Repo:  repository.Provide(),
	})
	return svc, fc, db
}

func TestAppend_RecordsActorAndRequestID(t *testing.T) {
	svc, _, db := newTestService(t)

	ctx := obscontext.WithRequestID(context.Background(), "req-123")
	ctx = obscontext.WithActor(ctx, "user")

	node, err := snowflake.NewNode(2)
	require.NoError(t, err)
	receiptID := node.Generate()

	svc.Append(ctx, domain.KindReceiptUploaded, &receiptID, map[string]any{
		"filename": "receipt.png",
	})

	var events []domain.Event
	require.NoError(t, db.Find(&events).Error)
	require.Len(t, events, 1)
	assert.Equal(t, domain.KindReceiptUploaded, events[0].Kind)
	assert.Equal(t, "user", events[0].Actor)
	require.NotNil(t, events[0].ReceiptID)
	assert.Equal(t, receiptID, *events[0].ReceiptID)
	assert.Equal(t, "receipt.png", events[0].Metadata["filename"])
	assert.Equal(t, "req-123", events[0].Metadata["request_id"])
}

func TestAppend_SwallowsStoreFailure(t *testing.T) {
	svc, _, db := newTestService(t)

	// Dropping the table makes every insert fail; Append must not panic
	// and the caller sees nothing.
	require.NoError(t, db.Migrator().DropTable(&domain.Event{}))

	svc.Append(context.Background(), domain.KindReceiptDeleted, nil, nil)
}

func TestList_FiltersAndPagination(t *testing.T) {
	svc, fc, _ := newTestService(t)
	ctx := context.Background()

	node, err := snowflake.NewNode(2)
	require.NoError(t, err)
	receiptID := node.Generate()

	for i := 0; i < 3; i++ {
		svc.Append(ctx, domain.KindReceiptUploaded, &receiptID, nil)
		fc.Advance(time.Minute)
	}
	svc.Append(ctx, domain.KindRuleCreated, nil, nil)

	byKind, err := svc.List(ctx, domain.ListEventsRequest{Kind: "receipt.uploaded"})
	require.NoError(t, err)
	assert.Len(t, byKind.Events, 3)

	byReceipt, err := svc.List(ctx, domain.ListEventsRequest{ReceiptID: receiptID.String()})
	require.NoError(t, err)
	assert.Len(t, byReceipt.Events, 3)

	// Newest first, two pages.
	page1, err := svc.List(ctx, domain.ListEventsRequest{
		Pagination: pagination.Pagination{PageSize: 3},
	})
	require.NoError(t, err)
	require.Len(t, page1.Events, 3)
	assert.True(t, page1.HasMore)
	assert.Equal(t, domain.KindRuleCreated, page1.Events[0].Kind)

	page2, err := svc.List(ctx, domain.ListEventsRequest{
		Pagination: pagination.Pagination{PageSize: 3, PageToken: page1.NextPageToken},
	})
	require.NoError(t, err)
	require.Len(t, page2.Events, 1)
	assert.False(t, page2.HasMore)
}

func TestList_Validation(t *testing.T) {
	svc, fc, _ := newTestService(t)
	ctx := context.Background()

	start := fc.Now()
	end := start.Add(-time.Hour)
	_, err := svc.List(ctx, domain.ListEventsRequest{StartAt: &start, EndAt: &end})
	assert.ErrorIs(t, err, domain.ErrInvalidTimeRange)

	_, err = svc.List(ctx, domain.ListEventsRequest{ReceiptID: "not-an-id"})
	assert.ErrorIs(t, err, domain.ErrInvalidReceiptID)

	_, err = svc.List(ctx, domain.ListEventsRequest{
		Pagination: pagination.Pagination{PageToken: "%%%"},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidPageToken)
}
