package entity

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

// OrderStatus is the lifecycle state of a sales order.
type OrderStatus string

const (
	OrderStatusDraft     OrderStatus = "BORRADOR"
	OrderStatusConfirmed OrderStatus = "CONFIRMADO"
	OrderStatusExported  OrderStatus = "EXPORTADO"
	OrderStatusVoided    OrderStatus = "ANULADO"
	OrderStatusShipped   OrderStatus = "ENVIADO"
	OrderStatusInvoiced  OrderStatus = "FACTURADO"
)

// Currency of the order amounts.
type Currency string

const (
	CurrencyUSD Currency = "USD"
	CurrencyCRC Currency = "CRC"
)

// Order is a sales order (pedido de venta).
//
// ExportID is set if and only if Status is OrderStatusExported.
type Order struct {
	bun.BaseModel `bun:"table:pedidos_venta,alias:o"`

	ID        int64           `bun:"id,pk,autoincrement"`
	Code      string          `bun:"codigo,notnull,unique"`
	ClientID  int64           `bun:"cliente_id,notnull"`
	Date      time.Time       `bun:"fecha,notnull"`
	Currency  Currency        `bun:"moneda,notnull"`
	Status    OrderStatus     `bun:"estado,notnull"`
	Subtotal  decimal.Decimal `bun:"subtotal,type:numeric(14,2),notnull"`
	Total     decimal.Decimal `bun:"total,type:numeric(14,2),notnull"`
	ExportID  *int64          `bun:"exportacion_id"`
	Agency    string          `bun:"agencia"`
	Terminal  string          `bun:"terminal"`
	UserID    int64           `bun:"usuario_id,notnull"`
	CreatedAt time.Time       `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt time.Time       `bun:"updated_at,nullzero"`

	Client *Client      `bun:"rel:belongs-to,join:cliente_id=id"`
	Lines  []*OrderLine `bun:"-"`
}

// Boxes sums the boxes of all lines.
func (o *Order) Boxes() int {
	total := 0
	for _, line := range o.Lines {
		if line != nil {
			total += line.Boxes
		}
	}
	return total
}

// RecomputeTotals sets line and order amounts from quantities and unit prices.
func (o *Order) RecomputeTotals() {
	subtotal := decimal.Zero
	for _, line := range o.Lines {
		if line == nil {
			continue
		}
		line.Subtotal = line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Boxes))).Round(2)
		line.Total = line.Subtotal
		subtotal = subtotal.Add(line.Subtotal)
	}
	o.Subtotal = subtotal
	o.Total = subtotal
}

// OrderLine is one product line of an order.
type OrderLine struct {
	bun.BaseModel `bun:"table:pedidos_venta_detalle,alias:d"`

	ID          int64           `bun:"id,pk,autoincrement"`
	OrderID     int64           `bun:"pedido_id,notnull"`
	ProductID   int64           `bun:"producto_id,notnull"`
	VariantID   *int64          `bun:"variante_id"`
	SizeID      *int64          `bun:"medida_id"`
	PackagingID *int64          `bun:"empaque_id"`
	ProviderID  *int64          `bun:"proveedor_id"`
	Boxes       int             `bun:"cajas,notnull"`
	UnitPrice   decimal.Decimal `bun:"precio_unitario,type:numeric(14,4),notnull"`
	Subtotal    decimal.Decimal `bun:"subtotal,type:numeric(14,2),notnull"`
	Total       decimal.Decimal `bun:"total,type:numeric(14,2),notnull"`
	Description string          `bun:"descripcion"`

	Product   *Product        `bun:"rel:belongs-to,join:producto_id=id"`
	Variant   *Variant        `bun:"rel:belongs-to,join:variante_id=id"`
	Size      *Size           `bun:"rel:belongs-to,join:medida_id=id"`
	Packaging *Packaging      `bun:"rel:belongs-to,join:empaque_id=id"`
	Provider  *Provider       `bun:"rel:belongs-to,join:proveedor_id=id"`
	Assorted  []*AssortedItem `bun:"-"`
}

// AssortedItem is a sub-line of a mixed ("surtido") box.
type AssortedItem struct {
	bun.BaseModel `bun:"table:pedidos_venta_surtido,alias:s"`

	ID        int64  `bun:"id,pk,autoincrement"`
	LineID    int64  `bun:"detalle_id,notnull"`
	VariantID *int64 `bun:"variante_id"`
	SizeID    *int64 `bun:"medida_id"`
	Stems     int    `bun:"tallos,notnull"`

	Variant *Variant `bun:"rel:belongs-to,join:variante_id=id"`
	Size    *Size    `bun:"rel:belongs-to,join:medida_id=id"`
}
