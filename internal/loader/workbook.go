package loader

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"crm-insight/internal/models"

	"github.com/xuri/excelize/v2"
)

// Column names shared by every source
const (
	ColCustomerID   = "codigo_cliente"
	ColProduct      = "producto"
	ColQuantity     = "cantidad"
	ColUnitPrice    = "precio_unitario"
	ColOrderDate    = "fecha_pedido"
	ColDeliveryDate = "fecha_entrega"
	ColName         = "nombre"
	ColPhone        = "telefono"
	ColAddress      = "direccion"
	ColBusinessType = "tipo_negocio"
	ColAttendant    = "quien_atiende"
	ColZone         = "zona"
)

// DefaultZone is assigned to customers without a zone
const DefaultZone = "No especificada"

var (
	orderColumns    = []string{ColCustomerID, ColProduct, ColQuantity, ColUnitPrice, ColOrderDate}
	deliveryColumns = []string{ColCustomerID, ColDeliveryDate}
	customerColumns = []string{ColCustomerID, ColName, ColPhone, ColAddress, ColBusinessType, ColAttendant}
)

var (
	errUnrecognizedDate = errors.New("unrecognized date format")
	errNotFinite        = errors.New("not a finite number")
	errNegative         = errors.New("negative value")
	errFractional       = errors.New("quantity is not a whole number")
)

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"02/01/2006",
	time.RFC3339,
}

// SheetNames names the worksheet holding each table
type SheetNames struct {
	Orders     string
	Deliveries string
	Customers  string
}

// DefaultSheetNames returns the sheet names of the CRM workbook
func DefaultSheetNames() SheetNames {
	return SheetNames{
		Orders:     "pedido",
		Deliveries: "entregado",
		Customers:  "clientes",
	}
}

// ParseWorkbook reads the three tables from an xlsx workbook. Schema problems
// are returned as *SchemaError; anything else means the container itself
// could not be read.
func ParseWorkbook(r io.Reader, names SheetNames) (*models.Dataset, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	orders, err := readTable(f, names.Orders, orderColumns)
	if err != nil {
		return nil, err
	}
	deliveries, err := readTable(f, names.Deliveries, deliveryColumns)
	if err != nil {
		return nil, err
	}
	customers, err := readTable(f, names.Customers, customerColumns)
	if err != nil {
		return nil, err
	}

	ds := &models.Dataset{}
	if ds.Orders, err = parseOrders(orders); err != nil {
		return nil, err
	}
	if ds.Deliveries, err = parseDeliveries(deliveries); err != nil {
		return nil, err
	}
	ds.Customers = parseCustomers(customers)
	return ds, nil
}

// table is a header-indexed view of a worksheet
type table struct {
	name    string
	columns map[string]int
	rows    [][]string
}

func readTable(f *excelize.File, sheet string, required []string) (*table, error) {
	actual := ""
	for _, name := range f.GetSheetList() {
		if strings.EqualFold(strings.TrimSpace(name), sheet) {
			actual = name
			break
		}
	}
	if actual == "" {
		return nil, &SchemaError{Table: sheet, NoTable: true}
	}

	rows, err := f.GetRows(actual, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", actual, err)
	}
	return newTable(sheet, rows, required)
}

func newTable(name string, rows [][]string, required []string) (*table, error) {
	t := &table{name: name, columns: make(map[string]int)}
	if len(rows) > 0 {
		for i, header := range rows[0] {
			key := strings.ToLower(strings.TrimSpace(header))
			if _, ok := t.columns[key]; !ok && key != "" {
				t.columns[key] = i
			}
		}
		t.rows = rows[1:]
	}

	var missing []string
	for _, col := range required {
		if !t.has(col) {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, &SchemaError{Table: name, Missing: missing}
	}
	return t, nil
}

func (t *table) has(column string) bool {
	_, ok := t.columns[column]
	return ok
}

func (t *table) value(row []string, column string) string {
	i, ok := t.columns[column]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func (t *table) invalid(column string, index int, value string, cause error) *SchemaError {
	// +2: one for the header, one for 1-based sheet rows
	return &SchemaError{Table: t.name, Column: column, Row: index + 2, Value: value, Cause: cause}
}

func blank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

func parseOrders(t *table) ([]models.Order, error) {
	orders := make([]models.Order, 0, len(t.rows))
	for i, row := range t.rows {
		if blank(row) {
			continue
		}

		raw := t.value(row, ColQuantity)
		quantity, err := parseQuantity(raw)
		if err != nil {
			return nil, t.invalid(ColQuantity, i, raw, err)
		}
		raw = t.value(row, ColUnitPrice)
		price, err := parsePrice(raw)
		if err != nil {
			return nil, t.invalid(ColUnitPrice, i, raw, err)
		}
		raw = t.value(row, ColOrderDate)
		orderDate, err := parseDate(raw)
		if err != nil {
			return nil, t.invalid(ColOrderDate, i, raw, err)
		}

		orders = append(orders, models.Order{
			CustomerID: t.value(row, ColCustomerID),
			Product:    t.value(row, ColProduct),
			Quantity:   quantity,
			UnitPrice:  price,
			OrderDate:  orderDate,
		})
	}
	return orders, nil
}

func parseDeliveries(t *table) ([]models.Delivery, error) {
	deliveries := make([]models.Delivery, 0, len(t.rows))
	for i, row := range t.rows {
		if blank(row) {
			continue
		}

		raw := t.value(row, ColDeliveryDate)
		deliveryDate, err := parseDate(raw)
		if err != nil {
			return nil, t.invalid(ColDeliveryDate, i, raw, err)
		}

		deliveries = append(deliveries, models.Delivery{
			CustomerID:   t.value(row, ColCustomerID),
			DeliveryDate: deliveryDate,
		})
	}
	return deliveries, nil
}

func parseCustomers(t *table) []models.Customer {
	customers := make([]models.Customer, 0, len(t.rows))
	for _, row := range t.rows {
		if blank(row) {
			continue
		}

		zone := t.value(row, ColZone)
		if zone == "" {
			zone = DefaultZone
		}

		customers = append(customers, models.Customer{
			ID:           t.value(row, ColCustomerID),
			Name:         t.value(row, ColName),
			Phone:        t.value(row, ColPhone),
			Address:      SanitizeAddress(t.value(row, ColAddress)),
			BusinessType: t.value(row, ColBusinessType),
			Attendant:    t.value(row, ColAttendant),
			Zone:         zone,
		})
	}
	return customers
}

// SanitizeAddress drops double quotes and surrounding whitespace
func SanitizeAddress(address string) string {
	return strings.TrimSpace(strings.ReplaceAll(address, `"`, ""))
}

func parseNumber(raw string) (float64, error) {
	if raw == "" {
		return 0, nil
	}
	return strconv.ParseFloat(raw, 64)
}

func parseQuantity(raw string) (int64, error) {
	v, err := parseNumber(raw)
	if err != nil {
		return 0, err
	}
	return checkQuantity(v)
}

func parsePrice(raw string) (float64, error) {
	v, err := parseNumber(raw)
	if err != nil {
		return 0, err
	}
	return v, checkPrice(v)
}

// checkQuantity accepts finite, non-negative whole numbers
func checkQuantity(v float64) (int64, error) {
	if err := checkPrice(v); err != nil {
		return 0, err
	}
	if v != math.Trunc(v) {
		return 0, errFractional
	}
	return int64(v), nil
}

func checkPrice(v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return errNotFinite
	}
	if v < 0 {
		return errNegative
	}
	return nil
}

// parseDate accepts Excel serial numbers and the common text layouts. An
// empty cell yields the zero time.
func parseDate(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	if serial, err := strconv.ParseFloat(raw, 64); err == nil {
		return excelize.ExcelDateToTime(serial, false)
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, errUnrecognizedDate
}
