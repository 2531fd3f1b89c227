package repos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"shopfront/internal/cart"
	"shopfront/internal/domain"
)

// CartRepo persists session carts in SQLite. It satisfies cart.Store.
type CartRepo struct{ db *sqlx.DB }

func NewCartRepo(db *sqlx.DB) *CartRepo { return &CartRepo{db: db} }

var _ cart.Store = (*CartRepo)(nil)

type cartItemRow struct {
	ProductID   string `db:"product_id"`
	Name        string `db:"name"`
	Price       string `db:"price"`
	Image       string `db:"image"`
	Description string `db:"description"`
	Stock       int    `db:"stock"`
	Qty         int    `db:"qty"`
}

func (r *CartRepo) Load(ctx context.Context, sessionID string) (*cart.Cart, error) {
	rows := []cartItemRow{}
	if err := r.db.SelectContext(ctx, &rows, `
	  SELECT product_id, name, price, COALESCE(image,'') AS image,
	         COALESCE(description,'') AS description, stock, qty
	  FROM cart_items
	  WHERE session_id = ?
	  ORDER BY position
	`, sessionID); err != nil {
		return nil, err
	}
	items := make([]cart.Item, 0, len(rows))
	for _, row := range rows {
		price, err := decimal.NewFromString(row.Price)
		if err != nil {
			// unreadable snapshot; drop the line rather than fail the whole cart
			continue
		}
		items = append(items, cart.Item{
			Product: domain.Product{
				ID:          row.ProductID,
				Name:        row.Name,
				Price:       price,
				Image:       row.Image,
				Description: row.Description,
				Stock:       row.Stock,
			},
			Quantity: row.Qty,
		})
	}
	return cart.FromItems(items), nil
}

// Save replaces the stored lines with the cart's current contents. An empty cart
// removes the session's row.
func (r *CartRepo) Save(ctx context.Context, sessionID string, c *cart.Cart) error {
	items := c.Items()
	if len(items) == 0 {
		return r.Delete(ctx, sessionID)
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO carts(session_id, updated_at) VALUES(?, ?)
		ON CONFLICT(session_id) DO UPDATE SET updated_at = excluded.updated_at
	`, sessionID, time.Now().UTC().Format(time.RFC3339)); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM cart_items WHERE session_id = ?`, sessionID); err != nil {
		return err
	}
	for i, it := range items {
		p := it.Product
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO cart_items(session_id,product_id,position,name,price,image,description,stock,qty)
			VALUES(?,?,?,?,?,?,?,?,?)
		`, sessionID, p.ID, i, p.Name, p.Price.String(), p.Image, p.Description, p.Stock, it.Quantity); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (r *CartRepo) Delete(ctx context.Context, sessionID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM carts WHERE session_id = ?`, sessionID)
	return err
}
