package seeder

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/florex/internal/database"
	"github.com/Additional-Code/florex/internal/entity"
	orderrepo "github.com/Additional-Code/florex/internal/repository/order"
)

// Module provides the seeder to Fx.
var Module = fx.Provide(New)

// Seeder performs database seeding for local/dev setups.
type Seeder struct {
	db     *bun.DB
	orders *orderrepo.Repository
	logger *zap.Logger
}

// New constructs a Seeder backed by the primary database connection.
func New(conns *database.Connections, orders *orderrepo.Repository, logger *zap.Logger) *Seeder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Seeder{db: conns.Writer, orders: orders, logger: logger}
}

// Catalog is the master data written by MasterData.
type Catalog struct {
	user      *entity.User
	clients   []*entity.Client
	products  []*entity.Product
	variants  []*entity.Variant
	sizes     []*entity.Size
	packaging []*entity.Packaging
	provider  *entity.Provider
}

// Run seeds master data and sample orders. It does nothing when users
// already exist.
func (s *Seeder) Run(ctx context.Context) error {
	exists, err := s.db.NewSelect().Model((*entity.User)(nil)).Exists(ctx)
	if err != nil {
		return err
	}
	if exists {
		s.logger.Info("seed skipped; data already present")
		return nil
	}

	cat, err := s.MasterData(ctx)
	if err != nil {
		return fmt.Errorf("seed master data: %w", err)
	}
	n, err := s.Orders(ctx, cat, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("seed orders: %w", err)
	}
	s.logger.Info("seed data applied", zap.Int("clients", len(cat.clients)), zap.Int("orders", n))
	return nil
}

// MasterData inserts users, clients and the product catalog in one transaction.
func (s *Seeder) MasterData(ctx context.Context) (*Catalog, error) {
	family := &entity.Family{Name: "ROSAS"}
	cat := &Catalog{
		user: &entity.User{Name: "OPERADOR EXPORTACIONES", Email: "exportaciones@florex.local"},
		clients: []*entity.Client{
			{Name: "BLOEM BV", Agency: "KLM CARGO", Terminal: "AMS"},
			{Name: "ANDES FLOWERS", Agency: "AVIANCA CARGO", Terminal: "MIA"},
			{Name: "TOKYO HANA", Agency: "LATAM CARGO", Terminal: "NRT"},
		},
		sizes:     []*entity.Size{{Name: "50CM"}, {Name: "60CM"}, {Name: "70CM"}},
		packaging: []*entity.Packaging{{Name: "HB"}, {Name: "QB"}},
		provider:  &entity.Provider{Name: "FINCA LA ESPERANZA"},
	}

	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		insert := func(model any) error {
			_, err := tx.NewInsert().Model(model).Exec(ctx)
			return err
		}
		if err := insert(cat.user); err != nil {
			return err
		}
		if err := insert(family); err != nil {
			return err
		}
		if err := insert(cat.provider); err != nil {
			return err
		}
		for _, c := range cat.clients {
			if err := insert(c); err != nil {
				return err
			}
		}
		for _, m := range cat.sizes {
			if err := insert(m); err != nil {
				return err
			}
		}
		for _, p := range cat.packaging {
			if err := insert(p); err != nil {
				return err
			}
		}

		cat.products = []*entity.Product{
			{Name: "ROSA FREEDOM", FamilyID: &family.ID},
			{Name: "ROSA EXPLORER", FamilyID: &family.ID},
		}
		for _, p := range cat.products {
			if err := insert(p); err != nil {
				return err
			}
		}
		cat.variants = []*entity.Variant{
			{ProductID: cat.products[0].ID, Name: "ROJA"},
			{ProductID: cat.products[1].ID, Name: "ROJA INTENSO"},
		}
		for _, v := range cat.variants {
			if err := insert(v); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return cat, nil
}

// Orders writes one confirmed order per client for each of the three days
// ending on day, ready to be exported. It returns the number of orders.
func (s *Seeder) Orders(ctx context.Context, cat *Catalog, day time.Time) (int, error) {
	day = time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	count := 0
	for d := 2; d >= 0; d-- {
		date := day.AddDate(0, 0, -d)
		for i, client := range cat.clients {
			now := time.Now().UTC()
			order := &entity.Order{
				Code:      fmt.Sprintf("PV-%s-%02d", date.Format("20060102"), i+1),
				ClientID:  client.ID,
				Date:      date,
				Currency:  entity.CurrencyUSD,
				Status:    entity.OrderStatusConfirmed,
				Agency:    client.Agency,
				Terminal:  client.Terminal,
				UserID:    cat.user.ID,
				CreatedAt: now,
				UpdatedAt: now,
				Lines:     s.sampleLines(cat, i+d),
			}
			order.RecomputeTotals()
			if err := s.orders.Create(ctx, order); err != nil {
				return count, err
			}
			count++
		}
	}
	return count, nil
}

func (s *Seeder) sampleLines(cat *Catalog, seed int) []*entity.OrderLine {
	product := cat.products[seed%len(cat.products)]
	variant := cat.variants[seed%len(cat.variants)]
	size := cat.sizes[seed%len(cat.sizes)]
	pack := cat.packaging[seed%len(cat.packaging)]

	return []*entity.OrderLine{
		{
			ProductID:   product.ID,
			VariantID:   &variant.ID,
			SizeID:      &size.ID,
			PackagingID: &pack.ID,
			ProviderID:  &cat.provider.ID,
			Boxes:       4 + seed,
			UnitPrice:   decimal.RequireFromString("38.50"),
		},
		{
			ProductID:   cat.products[0].ID,
			PackagingID: &cat.packaging[0].ID,
			Boxes:       1,
			UnitPrice:   decimal.RequireFromString("42.00"),
			Description: "SURTIDO",
			Assorted: []*entity.AssortedItem{
				{VariantID: &cat.variants[0].ID, SizeID: &cat.sizes[1].ID, Stems: 150},
				{VariantID: &cat.variants[1].ID, SizeID: &cat.sizes[2].ID, Stems: 100},
			},
		},
	}
}
