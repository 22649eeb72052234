package order

import (
	"context"

	"github.com/uptrace/bun"

	"github.com/Additional-Code/florex/internal/entity"
)

// Expand loads lines (product, family, variant, size, packaging, provider) and
// assorted sub-lines for orders, preserving line order by id.
func Expand(ctx context.Context, db bun.IDB, orders []*entity.Order) error {
	if len(orders) == 0 {
		return nil
	}

	byID := make(map[int64]*entity.Order, len(orders))
	orderIDs := make([]int64, 0, len(orders))
	for _, o := range orders {
		o.Lines = make([]*entity.OrderLine, 0)
		byID[o.ID] = o
		orderIDs = append(orderIDs, o.ID)
	}

	lines := make([]*entity.OrderLine, 0)
	err := db.NewSelect().
		Model(&lines).
		Relation("Product").
		Relation("Product.Family").
		Relation("Variant").
		Relation("Size").
		Relation("Packaging").
		Relation("Provider").
		Where("d.pedido_id IN (?)", bun.In(orderIDs)).
		OrderExpr("d.pedido_id ASC, d.id ASC").
		Scan(ctx)
	if err != nil {
		return err
	}
	if len(lines) == 0 {
		return nil
	}

	lineByID := make(map[int64]*entity.OrderLine, len(lines))
	lineIDs := make([]int64, 0, len(lines))
	for _, line := range lines {
		line.Assorted = make([]*entity.AssortedItem, 0)
		lineByID[line.ID] = line
		lineIDs = append(lineIDs, line.ID)
		if o, ok := byID[line.OrderID]; ok {
			o.Lines = append(o.Lines, line)
		}
	}

	items := make([]*entity.AssortedItem, 0)
	err = db.NewSelect().
		Model(&items).
		Relation("Variant").
		Relation("Size").
		Where("s.detalle_id IN (?)", bun.In(lineIDs)).
		OrderExpr("s.detalle_id ASC, s.id ASC").
		Scan(ctx)
	if err != nil {
		return err
	}
	for _, item := range items {
		if line, ok := lineByID[item.LineID]; ok {
			line.Assorted = append(line.Assorted, item)
		}
	}
	return nil
}
