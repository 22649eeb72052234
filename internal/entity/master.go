package entity

import "github.com/uptrace/bun"

// User is the application user that creates orders and export batches.
type User struct {
	bun.BaseModel `bun:"table:usuarios,alias:u"`

	ID    int64  `bun:"id,pk,autoincrement"`
	Name  string `bun:"nombre,notnull"`
	Email string `bun:"email,unique"`
}

// Client is a buyer of exported flowers.
type Client struct {
	bun.BaseModel `bun:"table:clientes,alias:c"`

	ID       int64  `bun:"id,pk,autoincrement"`
	Name     string `bun:"nombre,notnull"`
	Agency   string `bun:"agencia"`
	Terminal string `bun:"terminal"`
}

// Family groups products (roses, carnations, foliage...).
type Family struct {
	bun.BaseModel `bun:"table:familias,alias:f"`

	ID   int64  `bun:"id,pk,autoincrement"`
	Name string `bun:"nombre,notnull"`
}

type Product struct {
	bun.BaseModel `bun:"table:productos,alias:p"`

	ID       int64  `bun:"id,pk,autoincrement"`
	Name     string `bun:"nombre,notnull"`
	FamilyID *int64 `bun:"familia_id"`

	Family *Family `bun:"rel:belongs-to,join:familia_id=id"`
}

// Variant is a variety of a product (e.g. a rose colour).
type Variant struct {
	bun.BaseModel `bun:"table:variantes,alias:v"`

	ID        int64  `bun:"id,pk,autoincrement"`
	ProductID int64  `bun:"producto_id,notnull"`
	Name      string `bun:"nombre,notnull"`
}

// Size is the stem length or grade.
type Size struct {
	bun.BaseModel `bun:"table:medidas,alias:m"`

	ID   int64  `bun:"id,pk,autoincrement"`
	Name string `bun:"nombre,notnull"`
}

type Packaging struct {
	bun.BaseModel `bun:"table:empaques,alias:em"`

	ID   int64  `bun:"id,pk,autoincrement"`
	Name string `bun:"nombre,notnull"`
}

// Provider is the farm supplying a line.
type Provider struct {
	bun.BaseModel `bun:"table:proveedores,alias:pr"`

	ID   int64  `bun:"id,pk,autoincrement"`
	Name string `bun:"nombre,notnull"`
}
