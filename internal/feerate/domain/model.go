package domain

import (
	"strings"
	"time"

	"github.com/gosimple/slug"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// BrandKey is a normalized card brand ("visa", "american-express").
type BrandKey string

// NormalizeBrand maps free-form brand names from gateways and staff input
// onto the keys used in rate tables.
func NormalizeBrand(raw string) BrandKey {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	return BrandKey(slug.Make(raw))
}

type PixRate struct {
	Percent  decimal.Decimal `json:"percent" yaml:"percent"`
	FixedFee decimal.Decimal `json:"fixedFee" yaml:"fixedFee"`
}

type CardRate struct {
	Percent    decimal.Decimal `json:"percent" yaml:"percent"`
	MinimumFee decimal.Decimal `json:"minimumFee" yaml:"minimumFee"`
}

// BrandRate overrides the card defaults for one brand. Nil fields fall back.
type BrandRate struct {
	DefaultPercent     *decimal.Decimal        `json:"defaultPercent,omitempty" yaml:"defaultPercent,omitempty"`
	MinimumFee         *decimal.Decimal        `json:"minimumFee,omitempty" yaml:"minimumFee,omitempty"`
	InstallmentPercent map[int]decimal.Decimal `json:"installmentPercent,omitempty" yaml:"installmentPercent,omitempty"`
}

// Installment returns the brand MDR for an installment count, if configured.
func (b BrandRate) Installment(n int) (decimal.Decimal, bool) {
	v, ok := b.InstallmentPercent[n]
	return v, ok
}

// RateTable is the immutable fee configuration pinned by a Snapshot.
type RateTable struct {
	Pix               *PixRate
	CreditCardDefault *CardRate
	PerInstallment    map[int]decimal.Decimal
	PerBrand          map[BrandKey]BrandRate
}

func (t RateTable) Brand(key BrandKey) (BrandRate, bool) {
	if key == "" {
		return BrandRate{}, false
	}
	b, ok := t.PerBrand[key]
	return b, ok
}

// RR returns the installment surcharge layered over the brand MDR.
func (t RateTable) RR(installments int) (decimal.Decimal, bool) {
	v, ok := t.PerInstallment[installments]
	return v, ok
}

// Clone deep-copies the table so a published snapshot never shares maps
// with the caller.
func (t RateTable) Clone() RateTable {
	out := RateTable{}
	if t.Pix != nil {
		pix := *t.Pix
		out.Pix = &pix
	}
	if t.CreditCardDefault != nil {
		card := *t.CreditCardDefault
		out.CreditCardDefault = &card
	}
	if t.PerInstallment != nil {
		out.PerInstallment = make(map[int]decimal.Decimal, len(t.PerInstallment))
		for k, v := range t.PerInstallment {
			out.PerInstallment[k] = v
		}
	}
	if t.PerBrand != nil {
		out.PerBrand = make(map[BrandKey]BrandRate, len(t.PerBrand))
		for k, v := range t.PerBrand {
			brand := BrandRate{}
			if v.DefaultPercent != nil {
				p := *v.DefaultPercent
				brand.DefaultPercent = &p
			}
			if v.MinimumFee != nil {
				m := *v.MinimumFee
				brand.MinimumFee = &m
			}
			if v.InstallmentPercent != nil {
				brand.InstallmentPercent = make(map[int]decimal.Decimal, len(v.InstallmentPercent))
				for n, pct := range v.InstallmentPercent {
					brand.InstallmentPercent[n] = pct
				}
			}
			out.PerBrand[k] = brand
		}
	}
	return out
}

const (
	SourceFile   = "file"
	SourceImport = "import"
	SourceManual = "manual"
)

// Snapshot is one published, immutable version of the rate table.
// Callers must treat Table as read-only.
type Snapshot struct {
	Version   int64
	Table     RateTable
	Checksum  string
	Source    string
	Note      string
	CreatedBy string
	CreatedAt time.Time
}

// PublishRequest describes a new rate version.
type PublishRequest struct {
	Table     RateTable
	Source    string
	Note      string
	CreatedBy string
}

// VersionRecord is the relational row for a snapshot.
type VersionRecord struct {
	Version   int64          `gorm:"primaryKey;autoIncrement:false"`
	Rates     datatypes.JSON `gorm:"type:jsonb;not null"`
	Checksum  string         `gorm:"type:text;not null"`
	Source    string         `gorm:"type:text;not null"`
	Note      string         `gorm:"type:text"`
	CreatedBy string         `gorm:"type:text"`
	CreatedAt time.Time      `gorm:"not null"`
}

func (VersionRecord) TableName() string { return "fee_rate_versions" }
