package dto

import (
	"time"

	"github.com/Additional-Code/florex/internal/entity"
	"github.com/Additional-Code/florex/internal/service/aggregate"
)

// ExportResponse is an export batch summary as listed in the registry.
type ExportResponse struct {
	ID        int64     `json:"id"`
	Fecha     string    `json:"fecha"`
	Usuario   Ref       `json:"usuario"`
	Estado    string    `json:"estado"`
	Pedidos   int       `json:"total_pedidos"`
	CreatedAt time.Time `json:"created_at"`
}

// ExportDetailResponse is a batch with its orders.
type ExportDetailResponse struct {
	ExportResponse
	Detalle []OrderResponse `json:"pedidos"`
}

// CommitResponse answers a successful commit.
type CommitResponse struct {
	ExportResponse
	PedidoIDs []int64 `json:"pedido_ids"`
}

// PreviewResponse is the candidate set with its rollups.
type PreviewResponse struct {
	Pedidos     []OrderResponse          `json:"pedidos"`
	PorCliente  []aggregate.ClientTotal  `json:"por_cliente"`
	PorProducto []aggregate.ProductTotal `json:"por_producto"`
	Resumen     aggregate.Summary        `json:"resumen"`
}

// NewExportResponse maps a batch summary.
func NewExportResponse(b *entity.ExportBatch) ExportResponse {
	resp := ExportResponse{
		ID:        b.ID,
		Fecha:     b.Date.Format(time.DateOnly),
		Usuario:   Ref{ID: b.UserID},
		Estado:    b.Status,
		Pedidos:   b.OrderCount,
		CreatedAt: b.CreatedAt,
	}
	if b.User != nil {
		resp.Usuario.Nombre = b.User.Name
	}
	return resp
}

// NewExportResponses maps a registry page.
func NewExportResponses(batches []*entity.ExportBatch) []ExportResponse {
	out := make([]ExportResponse, 0, len(batches))
	for _, b := range batches {
		out = append(out, NewExportResponse(b))
	}
	return out
}

// NewExportDetailResponse maps a batch with its expanded orders.
func NewExportDetailResponse(b *entity.ExportBatch) ExportDetailResponse {
	return ExportDetailResponse{
		ExportResponse: NewExportResponse(b),
		Detalle:        NewOrderResponses(b.Orders),
	}
}

// NewCommitResponse maps a committed batch.
func NewCommitResponse(b *entity.ExportBatch, ids []int64) CommitResponse {
	return CommitResponse{ExportResponse: NewExportResponse(b), PedidoIDs: ids}
}

// NewPreviewResponse maps orders and their rollups.
func NewPreviewResponse(orders []*entity.Order, summary aggregate.Result) PreviewResponse {
	return PreviewResponse{
		Pedidos:     NewOrderResponses(orders),
		PorCliente:  summary.ByClient,
		PorProducto: summary.ByProduct,
		Resumen:     summary.Summary,
	}
}
