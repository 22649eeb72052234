// Package dashboard computes yearly sales rollups for the dashboard.
package dashboard

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Additional-Code/florex/internal/entity"
)

// TopClients bounds the per-client rollup.
const TopClients = 10

// Totals maps a currency code to an amount.
type Totals map[entity.Currency]decimal.Decimal

func (t Totals) add(c entity.Currency, amount decimal.Decimal) {
	t[c] = t[c].Add(amount)
}

// MonthSales is the rollup of one calendar month.
type MonthSales struct {
	Month  int    `json:"mes"`
	Orders int    `json:"pedidos"`
	Totals Totals `json:"totales"`
}

// StatusCount counts orders in one status.
type StatusCount struct {
	Status entity.OrderStatus `json:"estado"`
	Orders int                `json:"pedidos"`
}

// ClientSales is the rollup of one client.
type ClientSales struct {
	ClientID   int64  `json:"cliente_id"`
	ClientName string `json:"cliente"`
	Orders     int    `json:"pedidos"`
	Totals     Totals `json:"totales"`
}

// Sales is the dashboard payload for one year.
type Sales struct {
	Year     int           `json:"anio"`
	ByMonth  []MonthSales  `json:"por_mes"`
	ByStatus []StatusCount `json:"por_estado"`
	ByClient []ClientSales `json:"por_cliente"`
}

// Build groups orders of year. Every order is counted by status; voided
// orders are left out of the month and client rollups. Months always run
// 1 to 12.
func Build(year int, orders []*entity.Order) Sales {
	months := make([]MonthSales, 12)
	for i := range months {
		months[i] = MonthSales{Month: i + 1, Totals: Totals{}}
	}
	statuses := make(map[entity.OrderStatus]int)
	clients := make(map[int64]*ClientSales)

	for _, o := range orders {
		if o == nil || o.Date.Year() != year {
			continue
		}
		statuses[o.Status]++
		if o.Status == entity.OrderStatusVoided {
			continue
		}

		m := &months[o.Date.Month()-time.January]
		m.Orders++
		m.Totals.add(o.Currency, o.Total)

		c, ok := clients[o.ClientID]
		if !ok {
			c = &ClientSales{ClientID: o.ClientID, Totals: Totals{}}
			if o.Client != nil {
				c.ClientName = o.Client.Name
			}
			clients[o.ClientID] = c
		}
		c.Orders++
		c.Totals.add(o.Currency, o.Total)
	}

	sales := Sales{Year: year, ByMonth: months}
	for status, n := range statuses {
		sales.ByStatus = append(sales.ByStatus, StatusCount{Status: status, Orders: n})
	}
	sort.Slice(sales.ByStatus, func(i, j int) bool {
		return sales.ByStatus[i].Status < sales.ByStatus[j].Status
	})

	for _, c := range clients {
		sales.ByClient = append(sales.ByClient, *c)
	}
	sort.Slice(sales.ByClient, func(i, j int) bool {
		a, b := sales.ByClient[i], sales.ByClient[j]
		if a.Orders != b.Orders {
			return a.Orders > b.Orders
		}
		if a.ClientName != b.ClientName {
			return a.ClientName < b.ClientName
		}
		return a.ClientID < b.ClientID
	})
	if len(sales.ByClient) > TopClients {
		sales.ByClient = sales.ByClient[:TopClients]
	}
	if sales.ByStatus == nil {
		sales.ByStatus = []StatusCount{}
	}
	if sales.ByClient == nil {
		sales.ByClient = []ClientSales{}
	}
	return sales
}
