// Package aggregate derives per-client and per-product box rollups from a set
// of expanded orders. Everything here is a pure function of its input.
package aggregate

import (
	"sort"
	"strconv"

	"github.com/Additional-Code/florex/internal/entity"
)

const (
	nullKey      = "null"
	noPackaging  = "N/A"
	keySeparator = "-"
)

// ClientTotal is the rollup of one client's orders.
type ClientTotal struct {
	ClientID   int64  `json:"cliente_id"`
	ClientName string `json:"cliente"`
	Orders     int    `json:"pedidos"`
	Boxes      int    `json:"total_cajas"`
}

// ProductTotal is the rollup of one (product, variant, packaging) bucket.
type ProductTotal struct {
	Key         string `json:"key"`
	ProductID   int64  `json:"producto_id"`
	ProductName string `json:"producto"`
	VariantName string `json:"variante,omitempty"`
	Packaging   string `json:"empaque"`
	Boxes       int    `json:"total_cajas"`
}

// Summary holds the grand totals.
type Summary struct {
	Orders int `json:"total_pedidos"`
	Boxes  int `json:"total_cajas"`
}

// Result bundles every rollup of an order set.
type Result struct {
	ByClient  []ClientTotal  `json:"por_cliente"`
	ByProduct []ProductTotal `json:"por_producto"`
	Summary   Summary        `json:"resumen"`
}

// Summarize computes the rollups for orders.
//
// The summary box total always equals the sum of ByClient and the sum of
// ByProduct. Nil orders and lines are skipped.
func Summarize(orders []*entity.Order) Result {
	clients := make(map[int64]*ClientTotal)
	products := make(map[string]*ProductTotal)
	summary := Summary{}

	for _, order := range orders {
		if order == nil {
			continue
		}
		summary.Orders++

		ct, ok := clients[order.ClientID]
		if !ok {
			ct = &ClientTotal{ClientID: order.ClientID}
			if order.Client != nil {
				ct.ClientName = order.Client.Name
			}
			clients[order.ClientID] = ct
		}
		ct.Orders++

		for _, line := range order.Lines {
			if line == nil {
				continue
			}
			ct.Boxes += line.Boxes
			summary.Boxes += line.Boxes

			key := ProductKey(line)
			pt, ok := products[key]
			if !ok {
				pt = newProductTotal(key, line)
				products[key] = pt
			}
			pt.Boxes += line.Boxes
		}
	}

	result := Result{
		ByClient:  make([]ClientTotal, 0, len(clients)),
		ByProduct: make([]ProductTotal, 0, len(products)),
		Summary:   summary,
	}
	for _, ct := range clients {
		result.ByClient = append(result.ByClient, *ct)
	}
	for _, pt := range products {
		result.ByProduct = append(result.ByProduct, *pt)
	}

	sort.Slice(result.ByClient, func(i, j int) bool {
		a, b := result.ByClient[i], result.ByClient[j]
		if a.ClientName != b.ClientName {
			return a.ClientName < b.ClientName
		}
		return a.ClientID < b.ClientID
	})
	sort.Slice(result.ByProduct, func(i, j int) bool {
		a, b := result.ByProduct[i], result.ByProduct[j]
		if a.Boxes != b.Boxes {
			return a.Boxes > b.Boxes
		}
		return a.Key < b.Key
	})

	return result
}

// ProductKey returns "<product>-<variant>-<packaging>" for line, with missing
// references spelled "null" so lines lacking them share a bucket.
func ProductKey(line *entity.OrderLine) string {
	return strconv.FormatInt(line.ProductID, 10) +
		keySeparator + optionalID(line.VariantID) +
		keySeparator + optionalID(line.PackagingID)
}

func optionalID(id *int64) string {
	if id == nil {
		return nullKey
	}
	return strconv.FormatInt(*id, 10)
}

func newProductTotal(key string, line *entity.OrderLine) *ProductTotal {
	pt := &ProductTotal{
		Key:       key,
		ProductID: line.ProductID,
		Packaging: noPackaging,
	}
	if line.Product != nil {
		pt.ProductName = line.Product.Name
	}
	if line.Variant != nil {
		pt.VariantName = line.Variant.Name
	}
	if line.Packaging != nil {
		pt.Packaging = line.Packaging.Name
	}
	return pt
}
