package entity

import (
	"time"

	"github.com/uptrace/bun"
)

// ExportStatusProcessed is the status given to a freshly committed batch.
const ExportStatusProcessed = "PROCESADA"

// ExportBatch (exportacion) is an immutable set of orders exported together.
type ExportBatch struct {
	bun.BaseModel `bun:"table:exportaciones,alias:e"`

	ID        int64     `bun:"id,pk,autoincrement"`
	Date      time.Time `bun:"fecha,notnull"`
	UserID    int64     `bun:"usuario_id,notnull"`
	Status    string    `bun:"estado,notnull"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`

	User       *User    `bun:"rel:belongs-to,join:usuario_id=id"`
	Orders     []*Order `bun:"-"`
	OrderCount int      `bun:"-"`
}
