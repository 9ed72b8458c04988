package loader

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const columnsQuery = "SELECT column_name FROM information_schema.columns WHERE table_schema = $1 AND table_name = $2"

func newMockSource(t *testing.T) (*PostgresSource, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgresSourceFromDB(sqlx.NewDb(db, "postgres"), DefaultSheetNames()), mock
}

func expectColumns(mock sqlmock.Sqlmock, schema, table string, columns ...string) {
	rows := sqlmock.NewRows([]string{"column_name"})
	for _, c := range columns {
		rows.AddRow(c)
	}
	mock.ExpectQuery(columnsQuery).WithArgs(schema, table).WillReturnRows(rows)
}

func TestPostgresSourceFetch(t *testing.T) {
	s, mock := newMockSource(t)
	day := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

	expectColumns(mock, "public", "pedido", orderColumns...)
	expectColumns(mock, "public", "entregado", deliveryColumns...)
	expectColumns(mock, "public", "clientes", customerColumns...)

	mock.ExpectQuery(`SELECT codigo_cliente, producto, cantidad, precio_unitario, fecha_pedido FROM "public"."pedido"`).
		WillReturnRows(sqlmock.NewRows(orderColumns).
			AddRow("101", "Arroz", 10, 100.0, day).
			AddRow(" 102 ", "Sal", 2.0, 20.0, nil))
	mock.ExpectQuery(`SELECT codigo_cliente, fecha_entrega FROM "public"."entregado"`).
		WillReturnRows(sqlmock.NewRows(deliveryColumns).AddRow("101", day.AddDate(0, 0, 1)))
	mock.ExpectQuery(`SELECT codigo_cliente, nombre, telefono, direccion, tipo_negocio, quien_atiende, NULL AS zona FROM "public"."clientes"`).
		WillReturnRows(sqlmock.NewRows(append(append([]string{}, customerColumns...), ColZone)).
			AddRow("101", "Colmado Juan", "809", `"Calle 1"`, "colmado", "Pedro", nil))

	ds, err := s.Fetch(context.Background(), "")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	require.Len(t, ds.Orders, 2)
	assert.Equal(t, int64(10), ds.Orders[0].Quantity)
	assert.Equal(t, day, ds.Orders[0].OrderDate)
	assert.Equal(t, "102", ds.Orders[1].CustomerID)
	assert.True(t, ds.Orders[1].OrderDate.IsZero())

	require.Len(t, ds.Deliveries, 1)
	require.Len(t, ds.Customers, 1)
	assert.Equal(t, "Calle 1", ds.Customers[0].Address)
	assert.Equal(t, DefaultZone, ds.Customers[0].Zone)
}

func TestPostgresSourceZoneColumn(t *testing.T) {
	s, mock := newMockSource(t)

	expectColumns(mock, "crm", "pedido", orderColumns...)
	expectColumns(mock, "crm", "entregado", deliveryColumns...)
	expectColumns(mock, "crm", "clientes", append(append([]string{}, customerColumns...), ColZone)...)

	mock.ExpectQuery(`SELECT codigo_cliente, producto, cantidad, precio_unitario, fecha_pedido FROM "crm"."pedido"`).
		WillReturnRows(sqlmock.NewRows(orderColumns))
	mock.ExpectQuery(`SELECT codigo_cliente, fecha_entrega FROM "crm"."entregado"`).
		WillReturnRows(sqlmock.NewRows(deliveryColumns))
	mock.ExpectQuery(`SELECT codigo_cliente, nombre, telefono, direccion, tipo_negocio, quien_atiende, zona FROM "crm"."clientes"`).
		WillReturnRows(sqlmock.NewRows(append(append([]string{}, customerColumns...), ColZone)).
			AddRow("101", "Colmado Juan", "", "", "colmado", "Pedro", "Norte"))

	ds, err := s.Fetch(context.Background(), "crm")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
	assert.Empty(t, ds.Orders)
	assert.Equal(t, "Norte", ds.Customers[0].Zone)
}

func TestPostgresSourceSchemaErrors(t *testing.T) {
	s, mock := newMockSource(t)
	expectColumns(mock, "public", "pedido")

	_, err := s.Fetch(context.Background(), "public")
	var schemaErr *SchemaError
	require.True(t, errors.As(err, &schemaErr))
	assert.True(t, schemaErr.NoTable)

	s, mock = newMockSource(t)
	expectColumns(mock, "public", "pedido", orderColumns...)
	expectColumns(mock, "public", "entregado", ColCustomerID)

	_, err = s.Fetch(context.Background(), "public")
	require.True(t, errors.As(err, &schemaErr))
	assert.Equal(t, []string{ColDeliveryDate}, schemaErr.Missing)
}

func TestPostgresSourceRejectsInvalidAmounts(t *testing.T) {
	day := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		quantity float64
		price    float64
		column   string
		row      int
		cause    error
	}{
		{"negative quantity", -4, 10, ColQuantity, 2, errNegative},
		{"fractional quantity", 2.6, 10, ColQuantity, 2, errFractional},
		{"NaN price", 1, math.NaN(), ColUnitPrice, 2, errNotFinite},
		{"infinite price", 1, math.Inf(1), ColUnitPrice, 2, errNotFinite},
		{"negative price", 1, -0.5, ColUnitPrice, 2, errNegative},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, mock := newMockSource(t)
			expectColumns(mock, "public", "pedido", orderColumns...)
			expectColumns(mock, "public", "entregado", deliveryColumns...)
			expectColumns(mock, "public", "clientes", customerColumns...)

			mock.ExpectQuery(`SELECT codigo_cliente, producto, cantidad, precio_unitario, fecha_pedido FROM "public"."pedido"`).
				WillReturnRows(sqlmock.NewRows(orderColumns).
					AddRow("101", "Arroz", 10.0, 100.0, day).
					AddRow("101", "Sal", tt.quantity, tt.price, day))
			mock.ExpectQuery(`SELECT codigo_cliente, fecha_entrega FROM "public"."entregado"`).
				WillReturnRows(sqlmock.NewRows(deliveryColumns))
			mock.ExpectQuery(`SELECT codigo_cliente, nombre, telefono, direccion, tipo_negocio, quien_atiende, NULL AS zona FROM "public"."clientes"`).
				WillReturnRows(sqlmock.NewRows(append(append([]string{}, customerColumns...), ColZone)))

			ds, err := s.Fetch(context.Background(), "public")
			assert.Nil(t, ds)

			var schemaErr *SchemaError
			require.True(t, errors.As(err, &schemaErr))
			assert.Equal(t, "pedido", schemaErr.Table)
			assert.Equal(t, tt.column, schemaErr.Column)
			assert.Equal(t, tt.row, schemaErr.Row)
			assert.True(t, errors.Is(err, tt.cause))

			var loadErr *DataLoadError
			assert.False(t, errors.As(err, &loadErr))
		})
	}
}

func TestPostgresSourceQueryFailure(t *testing.T) {
	s, mock := newMockSource(t)
	mock.ExpectQuery(columnsQuery).WithArgs("public", "pedido").WillReturnError(errors.New("connection refused"))

	_, err := s.Fetch(context.Background(), "public")
	var loadErr *DataLoadError
	require.True(t, errors.As(err, &loadErr))
	assert.Equal(t, "public", loadErr.Source)
}
