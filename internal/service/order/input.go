package order

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Additional-Code/florex/internal/entity"
	"github.com/Additional-Code/florex/internal/validation"
	"github.com/Additional-Code/florex/pkg/errorbank"
)

// CreateInput is the payload for a new draft order.
type CreateInput struct {
	Code     string      `json:"codigo" validate:"required,max=30"`
	ClientID int64       `json:"cliente_id" validate:"gt=0"`
	Date     string      `json:"fecha" validate:"required,datetime=2006-01-02"`
	Currency string      `json:"moneda" validate:"required,oneof=USD CRC"`
	UserID   int64       `json:"usuario_id" validate:"gt=0"`
	Agency   string      `json:"agencia,omitempty" validate:"max=100"`
	Terminal string      `json:"terminal,omitempty" validate:"max=100"`
	Lines    []LineInput `json:"lineas" validate:"min=1,dive"`
}

// LineInput is one product line of CreateInput.
type LineInput struct {
	ProductID   int64           `json:"producto_id" validate:"gt=0"`
	VariantID   *int64          `json:"variante_id,omitempty" validate:"omitempty,gt=0"`
	SizeID      *int64          `json:"medida_id,omitempty" validate:"omitempty,gt=0"`
	PackagingID *int64          `json:"empaque_id,omitempty" validate:"omitempty,gt=0"`
	ProviderID  *int64          `json:"proveedor_id,omitempty" validate:"omitempty,gt=0"`
	Boxes       int             `json:"cajas" validate:"gt=0"`
	UnitPrice   decimal.Decimal `json:"precio_unitario"`
	Description string          `json:"descripcion,omitempty" validate:"max=255"`
	Assorted    []AssortedInput `json:"surtido,omitempty" validate:"dive"`
}

// AssortedInput is a sub-line of a mixed box.
type AssortedInput struct {
	VariantID *int64 `json:"variante_id,omitempty" validate:"omitempty,gt=0"`
	SizeID    *int64 `json:"medida_id,omitempty" validate:"omitempty,gt=0"`
	Stems     int    `json:"tallos" validate:"gt=0"`
}

func normalize(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// toEntity normalises text to upper case, validates in and builds a draft
// order whose totals are derived from its lines.
func (in CreateInput) toEntity() (*entity.Order, error) {
	in.Code = normalize(in.Code)
	in.Currency = normalize(in.Currency)
	in.Agency = normalize(in.Agency)
	in.Terminal = normalize(in.Terminal)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	date, _ := time.Parse(time.DateOnly, in.Date)

	now := time.Now().UTC()
	order := &entity.Order{
		Code:      in.Code,
		ClientID:  in.ClientID,
		Date:      date,
		Currency:  entity.Currency(in.Currency),
		Status:    entity.OrderStatusDraft,
		Agency:    in.Agency,
		Terminal:  in.Terminal,
		UserID:    in.UserID,
		CreatedAt: now,
		UpdatedAt: now,
		Lines:     make([]*entity.OrderLine, 0, len(in.Lines)),
	}
	for i, l := range in.Lines {
		if l.UnitPrice.IsNegative() {
			return nil, errorbank.Validation("validation failed",
				errorbank.WithDetail(fmt.Sprintf("lineas[%d].precio_unitario", i), "precio_unitario must not be negative"))
		}
		line := &entity.OrderLine{
			ProductID:   l.ProductID,
			VariantID:   l.VariantID,
			SizeID:      l.SizeID,
			PackagingID: l.PackagingID,
			ProviderID:  l.ProviderID,
			Boxes:       l.Boxes,
			UnitPrice:   l.UnitPrice,
			Description: normalize(l.Description),
		}
		for _, a := range l.Assorted {
			line.Assorted = append(line.Assorted, &entity.AssortedItem{
				VariantID: a.VariantID,
				SizeID:    a.SizeID,
				Stems:     a.Stems,
			})
		}
		order.Lines = append(order.Lines, line)
	}
	order.RecomputeTotals()
	return order, nil
}
