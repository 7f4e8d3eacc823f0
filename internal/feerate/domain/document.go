package domain

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Document is the external shape of a rate table, shared by rate files,
// imports and the stored JSON column:
//
//	pix: {percent: 0.99, fixedFee: 0}
//	creditCard:
//	  default: {percent: 3.49, minimumFee: 0.50}
//	  installmentPercent: {2: 1.0, 3: 1.0}
//	  brandRates:
//	    visa: {defaultPercent: 2.2, minimumFee: 3.00, installmentPercent: {3: 2.5}}
type Document struct {
	Pix        *PixRate       `json:"pix,omitempty" yaml:"pix,omitempty"`
	CreditCard *CreditCardDoc `json:"creditCard,omitempty" yaml:"creditCard,omitempty"`
}

type CreditCardDoc struct {
	Default            *CardRate               `json:"default,omitempty" yaml:"default,omitempty"`
	InstallmentPercent map[int]decimal.Decimal `json:"installmentPercent,omitempty" yaml:"installmentPercent,omitempty"`
	BrandRates         map[string]BrandRate    `json:"brandRates,omitempty" yaml:"brandRates,omitempty"`
}

// FromDocument validates a document and builds the typed table.
func FromDocument(doc Document) (RateTable, error) {
	table := RateTable{}
	if doc.Pix != nil {
		if doc.Pix.Percent.IsNegative() || doc.Pix.FixedFee.IsNegative() {
			return RateTable{}, fmt.Errorf("%w: pix rates must not be negative", ErrInvalidRateTable)
		}
		pix := *doc.Pix
		table.Pix = &pix
	}
	if doc.CreditCard == nil {
		return table, nil
	}

	card := doc.CreditCard
	if card.Default != nil {
		if card.Default.Percent.IsNegative() || card.Default.MinimumFee.IsNegative() {
			return RateTable{}, fmt.Errorf("%w: credit card default must not be negative", ErrInvalidRateTable)
		}
		def := *card.Default
		table.CreditCardDefault = &def
	}
	if len(card.InstallmentPercent) > 0 {
		table.PerInstallment = make(map[int]decimal.Decimal, len(card.InstallmentPercent))
		for n, pct := range card.InstallmentPercent {
			if err := validateInstallmentRate(n, pct); err != nil {
				return RateTable{}, err
			}
			table.PerInstallment[n] = pct
		}
	}
	if len(card.BrandRates) > 0 {
		table.PerBrand = make(map[BrandKey]BrandRate, len(card.BrandRates))
		for raw, rate := range card.BrandRates {
			key := NormalizeBrand(raw)
			if key == "" {
				return RateTable{}, fmt.Errorf("%w: empty brand key", ErrInvalidRateTable)
			}
			if _, dup := table.PerBrand[key]; dup {
				return RateTable{}, fmt.Errorf("%w: brand %q listed twice", ErrInvalidRateTable, key)
			}
			if rate.DefaultPercent != nil && rate.DefaultPercent.IsNegative() {
				return RateTable{}, fmt.Errorf("%w: brand %q default percent is negative", ErrInvalidRateTable, key)
			}
			if rate.MinimumFee != nil && rate.MinimumFee.IsNegative() {
				return RateTable{}, fmt.Errorf("%w: brand %q minimum fee is negative", ErrInvalidRateTable, key)
			}
			for n, pct := range rate.InstallmentPercent {
				if err := validateInstallmentRate(n, pct); err != nil {
					return RateTable{}, fmt.Errorf("brand %q: %w", key, err)
				}
			}
			table.PerBrand[key] = rate
		}
	}
	return table.Clone(), nil
}

func validateInstallmentRate(n int, pct decimal.Decimal) error {
	if n < 1 {
		return fmt.Errorf("%w: installment count %d", ErrInvalidRateTable, n)
	}
	if pct.IsNegative() {
		return fmt.Errorf("%w: installment %d percent is negative", ErrInvalidRateTable, n)
	}
	return nil
}

// ToDocument renders the table in its external shape.
func ToDocument(t RateTable) Document {
	t = t.Clone()
	doc := Document{Pix: t.Pix}
	if t.CreditCardDefault == nil && len(t.PerInstallment) == 0 && len(t.PerBrand) == 0 {
		return doc
	}
	card := &CreditCardDoc{
		Default:            t.CreditCardDefault,
		InstallmentPercent: t.PerInstallment,
	}
	if len(t.PerBrand) > 0 {
		card.BrandRates = make(map[string]BrandRate, len(t.PerBrand))
		for k, v := range t.PerBrand {
			card.BrandRates[string(k)] = v
		}
	}
	doc.CreditCard = card
	return doc
}

func DecodeYAML(data []byte) (RateTable, error) {
	var doc Document
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return RateTable{}, fmt.Errorf("%w: %v", ErrInvalidRateTable, err)
	}
	return FromDocument(doc)
}

func EncodeYAML(t RateTable) ([]byte, error) {
	return yaml.Marshal(ToDocument(t))
}

func DecodeJSON(data []byte) (RateTable, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return RateTable{}, fmt.Errorf("%w: %v", ErrInvalidRateTable, err)
	}
	return FromDocument(doc)
}

func EncodeJSON(t RateTable) ([]byte, error) {
	return json.Marshal(ToDocument(t))
}

// Checksum fingerprints the canonical JSON form so identical tables are
// not republished as new versions.
func Checksum(t RateTable) (string, error) {
	raw, err := EncodeJSON(t)
	if err != nil {
		return "", err
	}
	// encoding/json sorts map keys, which makes the encoding canonical.
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}

// BrandKeys lists configured brands in stable order.
func (t RateTable) BrandKeys() []BrandKey {
	keys := make([]BrandKey, 0, len(t.PerBrand))
	for k := range t.PerBrand {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
