package service_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	auditdomain "github.com/smallbiznis/eventledger/internal/audit/domain"
	"github.com/smallbiznis/eventledger/internal/audit/repository"
	"github.com/smallbiznis/eventledger/internal/audit/service"
	"github.com/smallbiznis/eventledger/internal/clock"
	"github.com/smallbiznis/eventledger/pkg/telemetry/correlation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupService(t *testing.T) (auditdomain.Service, *clock.FakeClock) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&auditdomain.AuditLog{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	clk := clock.NewFakeClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	svc := service.NewService(service.Params{
		DB:    conn,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  repository.Provide(),
		Clock: clk,
	})
	return svc, clk
}

func TestAuditLogUsesContextActor(t *testing.T) {
	svc, _ := setupService(t)
	ctx := auditdomain.WithActor(context.Background(), auditdomain.ActorTypeStaff, "cashier-7")
	ctx = correlation.ContextWithCorrelationID(ctx, "01HZZCORRELATION")

	require.NoError(t, svc.AuditLog(ctx, nil, auditdomain.Entry{
		Action:     "payment.note_added",
		TargetType: auditdomain.TargetPayment,
		TargetID:   "42",
		Metadata:   map[string]any{"note": "bank slip attached", "signature": "abcdef123456"},
	}))

	resp, err := svc.List(context.Background(), auditdomain.ListAuditLogRequest{TargetID: "42"})
	require.NoError(t, err)
	require.Len(t, resp.AuditLogs, 1)

	entry := resp.AuditLogs[0]
	assert.Equal(t, string(auditdomain.ActorTypeStaff), entry.ActorType)
	require.NotNil(t, entry.ActorID)
	assert.Equal(t, "cashier-7", *entry.ActorID)
	assert.Equal(t, "bank slip attached", entry.Metadata["note"])
	assert.Equal(t, "****3456", entry.Metadata["signature"])
	assert.Equal(t, "01HZZCORRELATION", entry.Metadata["correlation_id"])
}

func TestAuditLogRejectsEmptyAction(t *testing.T) {
	svc, _ := setupService(t)
	err := svc.AuditLog(context.Background(), nil, auditdomain.Entry{Action: " "})
	require.ErrorIs(t, err, auditdomain.ErrInvalidAction)
}

func TestListPaginates(t *testing.T) {
	svc, clk := setupService(t)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		clk.Advance(time.Minute)
		require.NoError(t, svc.AuditLog(ctx, nil, auditdomain.Entry{
			Action:     "registration.recomputed",
			TargetType: auditdomain.TargetRegistration,
			TargetID:   "7",
		}))
	}

	first, err := svc.List(ctx, auditdomain.ListAuditLogRequest{})
	require.NoError(t, err)
	assert.Len(t, first.AuditLogs, 5)
	assert.False(t, first.HasMore)

	page := auditdomain.ListAuditLogRequest{}
	page.PageSize = 2
	second, err := svc.List(ctx, page)
	require.NoError(t, err)
	require.Len(t, second.AuditLogs, 2)
	require.True(t, second.HasMore)

	page.PageToken = second.NextPageToken
	third, err := svc.List(ctx, page)
	require.NoError(t, err)
	require.Len(t, third.AuditLogs, 2)
	assert.True(t, third.AuditLogs[0].CreatedAt.Before(second.AuditLogs[1].CreatedAt))
}

func TestListRejectsBadRange(t *testing.T) {
	svc, _ := setupService(t)
	start := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	end := start.Add(-time.Hour)
	_, err := svc.List(context.Background(), auditdomain.ListAuditLogRequest{StartAt: &start, EndAt: &end})
	require.ErrorIs(t, err, auditdomain.ErrInvalidTimeRange)

	req := auditdomain.ListAuditLogRequest{}
	req.PageToken = "not-base64!"
	_, err = svc.List(context.Background(), req)
	require.ErrorIs(t, err, auditdomain.ErrInvalidPageToken)
}
