package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/Additional-Code/florex/internal/entity"
)

// Ref is a named reference to master data.
type Ref struct {
	ID     int64  `json:"id"`
	Nombre string `json:"nombre"`
}

// AssortedResponse is one sub-line of a mixed box.
type AssortedResponse struct {
	ID       int64 `json:"id"`
	Variante *Ref  `json:"variante,omitempty"`
	Medida   *Ref  `json:"medida,omitempty"`
	Tallos   int   `json:"tallos"`
}

// LineResponse is one product line.
type LineResponse struct {
	ID             int64              `json:"id"`
	Producto       Ref                `json:"producto"`
	Familia        *Ref               `json:"familia,omitempty"`
	Variante       *Ref               `json:"variante,omitempty"`
	Medida         *Ref               `json:"medida,omitempty"`
	Empaque        *Ref               `json:"empaque,omitempty"`
	Proveedor      *Ref               `json:"proveedor,omitempty"`
	Cajas          int                `json:"cajas"`
	PrecioUnitario decimal.Decimal    `json:"precio_unitario"`
	Subtotal       decimal.Decimal    `json:"subtotal"`
	Total          decimal.Decimal    `json:"total"`
	Descripcion    string             `json:"descripcion,omitempty"`
	Surtido        []AssortedResponse `json:"surtido,omitempty"`
}

// OrderResponse represents an order as exposed via transport layers.
type OrderResponse struct {
	ID            int64           `json:"id"`
	Codigo        string          `json:"codigo"`
	Cliente       Ref             `json:"cliente"`
	Fecha         string          `json:"fecha"`
	Moneda        string          `json:"moneda"`
	Estado        string          `json:"estado"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	Total         decimal.Decimal `json:"total"`
	TotalCajas    int             `json:"total_cajas"`
	ExportacionID *int64          `json:"exportacion_id"`
	Agencia       string          `json:"agencia,omitempty"`
	Terminal      string          `json:"terminal,omitempty"`
	Lineas        []LineResponse  `json:"lineas"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// NewOrderResponse maps an expanded order.
func NewOrderResponse(o *entity.Order) OrderResponse {
	resp := OrderResponse{
		ID:            o.ID,
		Codigo:        o.Code,
		Cliente:       Ref{ID: o.ClientID},
		Fecha:         o.Date.Format(time.DateOnly),
		Moneda:        string(o.Currency),
		Estado:        string(o.Status),
		Subtotal:      o.Subtotal,
		Total:         o.Total,
		TotalCajas:    o.Boxes(),
		ExportacionID: o.ExportID,
		Agencia:       o.Agency,
		Terminal:      o.Terminal,
		Lineas:        make([]LineResponse, 0, len(o.Lines)),
		CreatedAt:     o.CreatedAt,
		UpdatedAt:     o.UpdatedAt,
	}
	if o.Client != nil {
		resp.Cliente.Nombre = o.Client.Name
	}
	for _, l := range o.Lines {
		resp.Lineas = append(resp.Lineas, newLineResponse(l))
	}
	return resp
}

// NewOrderResponses maps a list of orders.
func NewOrderResponses(orders []*entity.Order) []OrderResponse {
	out := make([]OrderResponse, 0, len(orders))
	for _, o := range orders {
		out = append(out, NewOrderResponse(o))
	}
	return out
}

func newLineResponse(l *entity.OrderLine) LineResponse {
	resp := LineResponse{
		ID:             l.ID,
		Producto:       Ref{ID: l.ProductID},
		Cajas:          l.Boxes,
		PrecioUnitario: l.UnitPrice,
		Subtotal:       l.Subtotal,
		Total:          l.Total,
		Descripcion:    l.Description,
	}
	if l.Product != nil {
		resp.Producto.Nombre = l.Product.Name
		if l.Product.Family != nil {
			resp.Familia = &Ref{ID: l.Product.Family.ID, Nombre: l.Product.Family.Name}
		}
	}
	if l.Variant != nil {
		resp.Variante = &Ref{ID: l.Variant.ID, Nombre: l.Variant.Name}
	}
	if l.Size != nil {
		resp.Medida = &Ref{ID: l.Size.ID, Nombre: l.Size.Name}
	}
	if l.Packaging != nil {
		resp.Empaque = &Ref{ID: l.Packaging.ID, Nombre: l.Packaging.Name}
	}
	if l.Provider != nil {
		resp.Proveedor = &Ref{ID: l.Provider.ID, Nombre: l.Provider.Name}
	}
	for _, a := range l.Assorted {
		item := AssortedResponse{ID: a.ID, Tallos: a.Stems}
		if a.Variant != nil {
			item.Variante = &Ref{ID: a.Variant.ID, Nombre: a.Variant.Name}
		}
		if a.Size != nil {
			item.Medida = &Ref{ID: a.Size.ID, Nombre: a.Size.Name}
		}
		resp.Surtido = append(resp.Surtido, item)
	}
	return resp
}
