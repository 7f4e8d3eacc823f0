package migration

import (
	auditdomain "github.com/smallbiznis/eventledger/internal/audit/domain"
	cancellationdomain "github.com/smallbiznis/eventledger/internal/cancellation/domain"
	expensedomain "github.com/smallbiznis/eventledger/internal/expense/domain"
	feeratedomain "github.com/smallbiznis/eventledger/internal/feerate/domain"
	paymentdomain "github.com/smallbiznis/eventledger/internal/payment/domain"
	"github.com/smallbiznis/eventledger/internal/registration/catalog"
	regdomain "github.com/smallbiznis/eventledger/internal/registration/domain"
	"gorm.io/gorm"
)

// Models lists every persisted type, in dependency order.
func Models() []any {
	return []any{
		&catalog.PricingRecord{},
		&regdomain.Registration{},
		&paymentdomain.Payment{},
		&paymentdomain.CallbackRecord{},
		&cancellationdomain.RefundAttempt{},
		&auditdomain.AuditLog{},
		&expensedomain.Expense{},
		&feeratedomain.VersionRecord{},
	}
}

func AutoMigrate(conn *gorm.DB) error {
	return conn.AutoMigrate(Models()...)
}
