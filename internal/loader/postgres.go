package loader

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"crm-insight/internal/models"
	"crm-insight/internal/util"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// DefaultSchema is used when Fetch receives an empty id
const DefaultSchema = "public"

// PostgresSource reads the three tables from a Postgres schema; the id passed
// to Fetch names the schema
type PostgresSource struct {
	db     *sqlx.DB
	tables SheetNames
}

// NewPostgresSource connects to the database
func NewPostgresSource(databaseURL string, tables SheetNames) (*PostgresSource, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return NewPostgresSourceFromDB(db, tables), nil
}

// NewPostgresSourceFromDB wraps an existing connection
func NewPostgresSourceFromDB(db *sqlx.DB, tables SheetNames) *PostgresSource {
	return &PostgresSource{db: db, tables: tables}
}

// Close closes the database connection
func (s *PostgresSource) Close() error {
	return s.db.Close()
}

func (s *PostgresSource) Kind() string {
	return KindPostgres
}

type orderRow struct {
	CustomerID sql.NullString  `db:"codigo_cliente"`
	Product    sql.NullString  `db:"producto"`
	Quantity   sql.NullFloat64 `db:"cantidad"`
	UnitPrice  sql.NullFloat64 `db:"precio_unitario"`
	OrderDate  sql.NullTime    `db:"fecha_pedido"`
}

type deliveryRow struct {
	CustomerID   sql.NullString `db:"codigo_cliente"`
	DeliveryDate sql.NullTime   `db:"fecha_entrega"`
}

type customerRow struct {
	ID           sql.NullString `db:"codigo_cliente"`
	Name         sql.NullString `db:"nombre"`
	Phone        sql.NullString `db:"telefono"`
	Address      sql.NullString `db:"direccion"`
	BusinessType sql.NullString `db:"tipo_negocio"`
	Attendant    sql.NullString `db:"quien_atiende"`
	Zone         sql.NullString `db:"zona"`
}

// Fetch reads orders, deliveries and customers from the schema
func (s *PostgresSource) Fetch(ctx context.Context, schema string) (*models.Dataset, error) {
	ctx, span := util.StartSpan(ctx, "PostgresSource.Fetch")
	defer span.End()

	if schema == "" {
		schema = DefaultSchema
	}

	if _, err := s.columns(ctx, schema, s.tables.Orders, orderColumns); err != nil {
		return nil, asLoadError(schema, err)
	}
	if _, err := s.columns(ctx, schema, s.tables.Deliveries, deliveryColumns); err != nil {
		return nil, asLoadError(schema, err)
	}
	customerCols, err := s.columns(ctx, schema, s.tables.Customers, customerColumns)
	if err != nil {
		return nil, asLoadError(schema, err)
	}

	var orders []orderRow
	query := fmt.Sprintf("SELECT %s FROM %s", strings.Join(orderColumns, ", "), qualify(schema, s.tables.Orders))
	if err := s.db.SelectContext(ctx, &orders, query); err != nil {
		return nil, &DataLoadError{Source: schema, Cause: fmt.Errorf("failed to select orders: %w", err)}
	}

	var deliveries []deliveryRow
	query = fmt.Sprintf("SELECT %s FROM %s", strings.Join(deliveryColumns, ", "), qualify(schema, s.tables.Deliveries))
	if err := s.db.SelectContext(ctx, &deliveries, query); err != nil {
		return nil, &DataLoadError{Source: schema, Cause: fmt.Errorf("failed to select deliveries: %w", err)}
	}

	zone := "NULL AS " + ColZone
	if customerCols[ColZone] {
		zone = ColZone
	}
	var customers []customerRow
	query = fmt.Sprintf("SELECT %s, %s FROM %s", strings.Join(customerColumns, ", "), zone, qualify(schema, s.tables.Customers))
	if err := s.db.SelectContext(ctx, &customers, query); err != nil {
		return nil, &DataLoadError{Source: schema, Cause: fmt.Errorf("failed to select customers: %w", err)}
	}

	ds, err := toDataset(s.tables.Orders, orders, deliveries, customers)
	if err != nil {
		return nil, err
	}
	return ds, nil
}

// columns checks that table exists in schema and carries the required columns
func (s *PostgresSource) columns(ctx context.Context, schema, table string, required []string) (map[string]bool, error) {
	var names []string
	err := s.db.SelectContext(ctx, &names,
		"SELECT column_name FROM information_schema.columns WHERE table_schema = $1 AND table_name = $2",
		schema, table)
	if err != nil {
		return nil, fmt.Errorf("failed to inspect table %s: %w", table, err)
	}
	if len(names) == 0 {
		return nil, &SchemaError{Table: table, NoTable: true}
	}

	present := make(map[string]bool, len(names))
	for _, name := range names {
		present[strings.ToLower(name)] = true
	}

	var missing []string
	for _, col := range required {
		if !present[col] {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, &SchemaError{Table: table, Missing: missing}
	}
	return present, nil
}

func qualify(schema, table string) string {
	return pq.QuoteIdentifier(schema) + "." + pq.QuoteIdentifier(table)
}

// toDataset converts the scanned rows; row numbers in a SchemaError are
// 1-based positions in the result set
func toDataset(ordersTable string, orders []orderRow, deliveries []deliveryRow, customers []customerRow) (*models.Dataset, error) {
	ds := &models.Dataset{
		Orders:     make([]models.Order, 0, len(orders)),
		Deliveries: make([]models.Delivery, 0, len(deliveries)),
		Customers:  make([]models.Customer, 0, len(customers)),
	}

	for i, r := range orders {
		quantity, err := checkQuantity(r.Quantity.Float64)
		if err != nil {
			return nil, &SchemaError{Table: ordersTable, Column: ColQuantity, Row: i + 1,
				Value: strconv.FormatFloat(r.Quantity.Float64, 'g', -1, 64), Cause: err}
		}
		if err := checkPrice(r.UnitPrice.Float64); err != nil {
			return nil, &SchemaError{Table: ordersTable, Column: ColUnitPrice, Row: i + 1,
				Value: strconv.FormatFloat(r.UnitPrice.Float64, 'g', -1, 64), Cause: err}
		}

		o := models.Order{
			CustomerID: strings.TrimSpace(r.CustomerID.String),
			Product:    strings.TrimSpace(r.Product.String),
			Quantity:   quantity,
			UnitPrice:  r.UnitPrice.Float64,
		}
		if r.OrderDate.Valid {
			o.OrderDate = r.OrderDate.Time.UTC()
		}
		ds.Orders = append(ds.Orders, o)
	}

	for _, r := range deliveries {
		d := models.Delivery{CustomerID: strings.TrimSpace(r.CustomerID.String)}
		if r.DeliveryDate.Valid {
			d.DeliveryDate = r.DeliveryDate.Time.UTC()
		}
		ds.Deliveries = append(ds.Deliveries, d)
	}

	for _, r := range customers {
		zone := strings.TrimSpace(r.Zone.String)
		if zone == "" {
			zone = DefaultZone
		}
		ds.Customers = append(ds.Customers, models.Customer{
			ID:           strings.TrimSpace(r.ID.String),
			Name:         strings.TrimSpace(r.Name.String),
			Phone:        strings.TrimSpace(r.Phone.String),
			Address:      SanitizeAddress(r.Address.String),
			BusinessType: strings.TrimSpace(r.BusinessType.String),
			Attendant:    strings.TrimSpace(r.Attendant.String),
			Zone:         zone,
		})
	}
	return ds, nil
}
