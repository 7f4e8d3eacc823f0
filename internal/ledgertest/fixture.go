// Package ledgertest wires the ledger against in-memory SQLite for tests.
package ledgertest

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	auditdomain "github.com/smallbiznis/eventledger/internal/audit/domain"
	auditrepo "github.com/smallbiznis/eventledger/internal/audit/repository"
	auditservice "github.com/smallbiznis/eventledger/internal/audit/service"
	"github.com/smallbiznis/eventledger/internal/clock"
	"github.com/smallbiznis/eventledger/internal/config"
	"github.com/smallbiznis/eventledger/internal/lock"
	paymentdomain "github.com/smallbiznis/eventledger/internal/payment/domain"
	paymentrepo "github.com/smallbiznis/eventledger/internal/payment/repository"
	paymentservice "github.com/smallbiznis/eventledger/internal/payment/service"
	"github.com/smallbiznis/eventledger/internal/registration/catalog"
	regdomain "github.com/smallbiznis/eventledger/internal/registration/domain"
	regrepo "github.com/smallbiznis/eventledger/internal/registration/repository"
	regservice "github.com/smallbiznis/eventledger/internal/registration/service"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Start is the fixed wall time every fixture begins at.
var Start = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

type Fixture struct {
	DB          *gorm.DB
	Node        *snowflake.Node
	Clock       *clock.FakeClock
	Cfg         config.Config
	Catalog     *catalog.Static
	Locker      lock.Locker
	AuditSvc    auditdomain.Service
	PaymentRepo paymentdomain.Repository
	RegRepo     regdomain.Repository
	Registry    regdomain.Service
	Ledger      *paymentservice.Service
}

// DefaultConfig is the ledger policy used unless a test overrides it.
func DefaultConfig() config.Config {
	return config.Config{
		Ledger: config.LedgerConfig{
			OfflineDefaultStatus: "confirmed",
			AllowReopen:          true,
			CheckoutWindow:       48 * time.Hour,
		},
		Gateway: config.GatewayConfig{
			Provider:      "mercadopago",
			Mock:          true,
			RefundTimeout: time.Second,
		},
	}
}

// New builds a fixture. Extra models are migrated alongside the ledger tables.
func New(t *testing.T, cfg config.Config, models ...any) *Fixture {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	all := append([]any{
		&regdomain.Registration{},
		&catalog.PricingRecord{},
		&paymentdomain.Payment{},
		&paymentdomain.CallbackRecord{},
		&auditdomain.AuditLog{},
	}, models...)
	require.NoError(t, conn.AutoMigrate(all...))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	f := &Fixture{
		DB:          conn,
		Node:        node,
		Clock:       clock.NewFakeClock(Start),
		Cfg:         cfg,
		Catalog:     catalog.NewStatic(),
		Locker:      lock.NewLocal(),
		PaymentRepo: paymentrepo.Provide(),
		RegRepo:     regrepo.Provide(),
	}
	f.AuditSvc = auditservice.NewService(auditservice.Params{
		DB:    conn,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  auditrepo.Provide(),
		Clock: f.Clock,
	})
	f.Registry = regservice.NewService(regservice.Params{
		DB:       conn,
		Log:      zap.NewNop(),
		GenID:    node,
		Repo:     f.RegRepo,
		Catalog:  f.Catalog,
		AuditSvc: f.AuditSvc,
		Clock:    f.Clock,
	})
	f.Ledger = paymentservice.NewService(paymentservice.Params{
		DB:       conn,
		Log:      zap.NewNop(),
		GenID:    node,
		Cfg:      cfg,
		Repo:     f.PaymentRepo,
		RegRepo:  f.RegRepo,
		Catalog:  f.Catalog,
		AuditSvc: f.AuditSvc,
		Locker:   f.Locker,
		Clock:    f.Clock,
	})
	return f
}

// Open registers pricing in the catalog and opens the registration.
func (f *Fixture) Open(t *testing.T, orderCode string, pricing regdomain.Pricing) *regdomain.Registration {
	t.Helper()
	if pricing.EventID == 0 {
		pricing.EventID = 1
	}
	f.Catalog.Set(orderCode, pricing)
	reg, err := f.Registry.Open(context.Background(), regdomain.OpenRequest{OrderCode: orderCode})
	require.NoError(t, err)
	return reg
}

// Reload reads the registration as persisted.
func (f *Fixture) Reload(t *testing.T, id snowflake.ID) *regdomain.Registration {
	t.Helper()
	reg, err := f.Registry.Get(context.Background(), id)
	require.NoError(t, err)
	return reg
}

func Dec(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func DecPtr(v string) *decimal.Decimal {
	d := decimal.RequireFromString(v)
	return &d
}

func Single(price string) regdomain.Pricing {
	return regdomain.Pricing{PaymentMode: regdomain.PaymentModeSingle, FinalPrice: Dec(price)}
}

func BalanceDue(price, deposit string) regdomain.Pricing {
	return regdomain.Pricing{
		PaymentMode:      regdomain.PaymentModeBalanceDue,
		FinalPrice:       Dec(price),
		MinDepositAmount: DecPtr(deposit),
	}
}

func Offline(regID snowflake.ID, method paymentdomain.Method, amount string) paymentdomain.Attempt {
	return paymentdomain.Attempt{
		RegistrationID: regID,
		Channel:        paymentdomain.ChannelOffline,
		Method:         method,
		Amount:         Dec(amount),
		Actor:          "staff-1",
	}
}

func Online(regID snowflake.ID, ref string, st paymentdomain.Status, amount string) paymentdomain.Attempt {
	return paymentdomain.Attempt{
		RegistrationID:    regID,
		Channel:           paymentdomain.ChannelOnline,
		Method:            paymentdomain.MethodCreditCard,
		Status:            st,
		Amount:            Dec(amount),
		Installments:      1,
		CardBrand:         "visa",
		ExternalReference: ref,
	}
}
