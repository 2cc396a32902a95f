package store

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/streamreact/companion/internal/domain"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// For in-memory SQLite, multiple connections create separate databases.
	// Keep a single connection to avoid schema/data disappearing across goroutines.
	if dsn == ":memory:" || strings.Contains(dsn, "mode=memory") {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// migrate runs database migrations.
func (s *SQLiteStore) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS triggers (
			id TEXT PRIMARY KEY,
			keyword TEXT NOT NULL,
			video_url TEXT NOT NULL,
			category TEXT NOT NULL,
			priority INTEGER NOT NULL DEFAULT 0,
			is_active INTEGER NOT NULL DEFAULT 1,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_triggers_priority ON triggers(priority DESC)`,
		`CREATE TABLE IF NOT EXISTS messages (
			id TEXT PRIMARY KEY,
			content TEXT NOT NULL,
			user_id TEXT NOT NULL,
			username TEXT NOT NULL,
			avatar TEXT,
			type TEXT NOT NULL DEFAULT 'text',
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_created ON messages(created_at)`,
		`CREATE TABLE IF NOT EXISTS donations (
			id TEXT PRIMARY KEY,
			amount TEXT NOT NULL,
			message TEXT,
			user_id TEXT NOT NULL,
			username TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS products (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			description TEXT,
			price TEXT NOT NULL,
			image TEXT,
			category TEXT NOT NULL DEFAULT 'general',
			is_active INTEGER NOT NULL DEFAULT 1,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS purchases (
			id TEXT PRIMARY KEY,
			product_id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			username TEXT NOT NULL,
			quantity INTEGER NOT NULL DEFAULT 1,
			total_price TEXT NOT NULL,
			balance_after TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (product_id) REFERENCES products(id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_purchases_product ON purchases(product_id)`,
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			description TEXT,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\n%s", err, m)
		}
	}

	// Older databases predate product images.
	return s.ensureColumn("products", "image", "ALTER TABLE products ADD COLUMN image TEXT")
}

func (s *SQLiteStore) ensureColumn(tableName, columnName, ddl string) error {
	rows, err := s.db.Query(fmt.Sprintf("PRAGMA table_info(%s)", tableName))
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var cid int
		var name, ctype string
		var notnull int
		var dfltValue sql.NullString
		var pk int
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dfltValue, &pk); err != nil {
			return err
		}
		if name == columnName {
			return nil
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	_, err = s.db.Exec(ddl)
	return err
}

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateTrigger creates a new trigger.
func (s *SQLiteStore) CreateTrigger(ctx context.Context, trigger *domain.Trigger) error {
	fillIdentity(&trigger.ID, &trigger.CreatedAt)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO triggers (id, keyword, video_url, category, priority, is_active, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		trigger.ID, trigger.Keyword, trigger.VideoURL, trigger.Category, trigger.Priority, trigger.Active, trigger.CreatedAt)
	return err
}

// GetTrigger retrieves a trigger by ID.
func (s *SQLiteStore) GetTrigger(ctx context.Context, id string) (*domain.Trigger, error) {
	var t domain.Trigger
	err := s.db.QueryRowContext(ctx,
		`SELECT id, keyword, video_url, category, priority, is_active, created_at FROM triggers WHERE id = ?`,
		id).Scan(&t.ID, &t.Keyword, &t.VideoURL, &t.Category, &t.Priority, &t.Active, &t.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// ListTriggers returns triggers by priority descending, ties in insertion
// order.
func (s *SQLiteStore) ListTriggers(ctx context.Context, activeOnly bool) ([]domain.Trigger, error) {
	query := `SELECT id, keyword, video_url, category, priority, is_active, created_at FROM triggers`
	if activeOnly {
		query += ` WHERE is_active = 1`
	}
	query += ` ORDER BY priority DESC, rowid ASC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var triggers []domain.Trigger
	for rows.Next() {
		var t domain.Trigger
		if err := rows.Scan(&t.ID, &t.Keyword, &t.VideoURL, &t.Category, &t.Priority, &t.Active, &t.CreatedAt); err != nil {
			return nil, err
		}
		triggers = append(triggers, t)
	}
	return triggers, rows.Err()
}

// CreateMessage creates a new chat message.
func (s *SQLiteStore) CreateMessage(ctx context.Context, message *domain.ChatMessage) error {
	fillIdentity(&message.ID, &message.CreatedAt)
	if message.Kind == "" {
		message.Kind = domain.MessageKindText
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (id, content, user_id, username, avatar, type, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		message.ID, message.Content, message.AuthorID, message.AuthorName, nullString(message.Avatar), message.Kind, message.CreatedAt)
	return err
}

// ListMessages returns the most recent messages, oldest first.
func (s *SQLiteStore) ListMessages(ctx context.Context, limit int) ([]domain.ChatMessage, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, content, user_id, username, avatar, type, created_at FROM messages ORDER BY created_at DESC, rowid DESC LIMIT ?`,
		normalizeLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []domain.ChatMessage
	for rows.Next() {
		var m domain.ChatMessage
		var avatar sql.NullString
		if err := rows.Scan(&m.ID, &m.Content, &m.AuthorID, &m.AuthorName, &avatar, &m.Kind, &m.CreatedAt); err != nil {
			return nil, err
		}
		m.Avatar = avatar.String
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

// CreateDonation creates a new donation.
func (s *SQLiteStore) CreateDonation(ctx context.Context, donation *domain.Donation) error {
	fillIdentity(&donation.ID, &donation.CreatedAt)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO donations (id, amount, message, user_id, username, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		donation.ID, donation.Amount.String(), nullString(donation.Message), donation.AuthorID, donation.AuthorName, donation.CreatedAt)
	return err
}

// ListDonations returns the most recent donations, newest first.
func (s *SQLiteStore) ListDonations(ctx context.Context, limit int) ([]domain.Donation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, amount, message, user_id, username, created_at FROM donations ORDER BY created_at DESC, rowid DESC LIMIT ?`,
		normalizeLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var donations []domain.Donation
	for rows.Next() {
		var d domain.Donation
		var message sql.NullString
		if err := rows.Scan(&d.ID, &d.Amount, &message, &d.AuthorID, &d.AuthorName, &d.CreatedAt); err != nil {
			return nil, err
		}
		d.Message = message.String
		donations = append(donations, d)
	}
	return donations, rows.Err()
}

// CreateProduct creates a new product.
func (s *SQLiteStore) CreateProduct(ctx context.Context, product *domain.Product) error {
	fillIdentity(&product.ID, &product.CreatedAt)
	if product.Category == "" {
		product.Category = "general"
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO products (id, name, description, price, image, category, is_active, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		product.ID, product.Name, nullString(product.Description), product.Price.String(), nullString(product.Image),
		product.Category, product.Active, product.CreatedAt)
	return err
}

// GetProduct retrieves a product by ID.
func (s *SQLiteStore) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, description, price, image, category, is_active, created_at FROM products WHERE id = ?`, id)
	p, err := scanProduct(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// ListProducts returns active products, newest first.
func (s *SQLiteStore) ListProducts(ctx context.Context) ([]domain.Product, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, description, price, image, category, is_active, created_at FROM products WHERE is_active = 1 ORDER BY created_at DESC, rowid DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []domain.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, *p)
	}
	return products, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanProduct(row rowScanner) (*domain.Product, error) {
	var p domain.Product
	var description, image sql.NullString
	if err := row.Scan(&p.ID, &p.Name, &description, &p.Price, &image, &p.Category, &p.Active, &p.CreatedAt); err != nil {
		return nil, err
	}
	p.Description = description.String
	p.Image = image.String
	return &p, nil
}

// CreatePurchase records a purchase and the balance it left behind.
func (s *SQLiteStore) CreatePurchase(ctx context.Context, purchase *domain.Purchase) error {
	fillIdentity(&purchase.ID, &purchase.CreatedAt)
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO purchases (id, product_id, user_id, username, quantity, total_price, balance_after, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			purchase.ID, purchase.ProductID, purchase.UserID, purchase.Username, purchase.Quantity,
			purchase.TotalPrice.String(), purchase.BalanceAfter.String(), purchase.CreatedAt); err != nil {
			return err
		}
		return upsertSetting(ctx, tx, domain.SettingBalance, purchase.BalanceAfter.String(), "")
	})
}

// GetPurchaseStats summarises purchases with the ten most bought products.
func (s *SQLiteStore) GetPurchaseStats(ctx context.Context) (*domain.PurchaseStats, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT product_id, quantity, total_price FROM purchases ORDER BY rowid ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := &domain.PurchaseStats{TotalSpent: decimal.Zero, TopProducts: []domain.ProductStat{}}
	byProduct := make(map[string]*domain.ProductStat)
	var order []string
	for rows.Next() {
		var productID string
		var quantity int
		var total decimal.Decimal
		if err := rows.Scan(&productID, &quantity, &total); err != nil {
			return nil, err
		}
		stats.TotalPurchases++
		stats.TotalSpent = stats.TotalSpent.Add(total)

		ps, ok := byProduct[productID]
		if !ok {
			ps = &domain.ProductStat{Product: &domain.Product{ID: productID}, TotalSpent: decimal.Zero}
			byProduct[productID] = ps
			order = append(order, productID)
		}
		ps.TotalQuantity += quantity
		ps.TotalSpent = ps.TotalSpent.Add(total)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	for _, id := range order {
		stats.TopProducts = append(stats.TopProducts, *byProduct[id])
	}
	sort.SliceStable(stats.TopProducts, func(i, j int) bool {
		return stats.TopProducts[i].TotalQuantity > stats.TopProducts[j].TotalQuantity
	})
	if len(stats.TopProducts) > 10 {
		stats.TopProducts = stats.TopProducts[:10]
	}

	for i := range stats.TopProducts {
		p, err := s.GetProduct(ctx, stats.TopProducts[i].Product.ID)
		if err != nil {
			return nil, err
		}
		if p != nil {
			stats.TopProducts[i].Product = p
		}
	}
	return stats, nil
}

// GetSetting retrieves a setting by key.
func (s *SQLiteStore) GetSetting(ctx context.Context, key string) (*domain.Setting, error) {
	var st domain.Setting
	var description sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT key, value, description, updated_at FROM settings WHERE key = ?`,
		key).Scan(&st.Key, &st.Value, &description, &st.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	st.Description = description.String
	return &st, nil
}

// SetSetting inserts or updates a setting. An empty description keeps the
// stored one.
func (s *SQLiteStore) SetSetting(ctx context.Context, key, value, description string) error {
	return upsertSetting(ctx, s.db, key, value, description)
}

// ListSettings returns all settings ordered by key.
func (s *SQLiteStore) ListSettings(ctx context.Context) ([]domain.Setting, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value, description, updated_at FROM settings ORDER BY key ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var settings []domain.Setting
	for rows.Next() {
		var st domain.Setting
		var description sql.NullString
		if err := rows.Scan(&st.Key, &st.Value, &description, &st.UpdatedAt); err != nil {
			return nil, err
		}
		st.Description = description.String
		settings = append(settings, st)
	}
	return settings, rows.Err()
}

// SetBalances writes balance and max_balance together. An empty
// maxDescription keeps the stored one.
func (s *SQLiteStore) SetBalances(ctx context.Context, balance, max decimal.Decimal, maxDescription string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := upsertSetting(ctx, tx, domain.SettingMaxBalance, max.String(), maxDescription); err != nil {
			return err
		}
		return upsertSetting(ctx, tx, domain.SettingBalance, balance.String(), "")
	})
}

// ResetBalance writes balance and clears the purchase history.
func (s *SQLiteStore) ResetBalance(ctx context.Context, balance decimal.Decimal) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := upsertSetting(ctx, tx, domain.SettingBalance, balance.String(), ""); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `DELETE FROM purchases`)
		return err
	})
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func upsertSetting(ctx context.Context, db execer, key, value, description string) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO settings (key, value, description, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			description = COALESCE(excluded.description, settings.description),
			updated_at = excluded.updated_at`,
		key, value, nullString(description), time.Now())
	return err
}

func (s *SQLiteStore) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func fillIdentity(id *string, createdAt *time.Time) {
	if *id == "" {
		*id = uuid.New().String()
	}
	if createdAt.IsZero() {
		*createdAt = time.Now()
	}
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	return limit
}
