package service

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"time"

	"crm-insight/internal/analytics"
	"crm-insight/internal/models"
	"crm-insight/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrCustomerNotFound = errors.New("customer not found")
	ErrVendorNotFound   = errors.New("vendor not found")
)

// VisitListHeader is the header row of the exported visit list
var VisitListHeader = []string{"name", "customer_id", "zone", "phone", "address", "priority"}

// DatasetLoader loads and invalidates the raw dataset of a source
type DatasetLoader interface {
	Load(ctx context.Context, sourceID string) (*models.Dataset, error)
	Invalidate(ctx context.Context, sourceID string) error
}

// VisitListPublisher announces exported visit lists
type VisitListPublisher interface {
	PublishVisitListExported(ctx context.Context, event *models.VisitListExportedEvent) error
}

// Options configures an InsightService
type Options struct {
	SourceID   string
	Thresholds analytics.Thresholds
	TopN       int
	VendorTopN int
	// Now is the reference clock for recency; defaults to time.Now
	Now func() time.Time
}

// InsightService derives the dashboard views from the configured source
type InsightService struct {
	loader     DatasetLoader
	publisher  VisitListPublisher
	sourceID   string
	thresholds analytics.Thresholds
	topN       int
	vendorTopN int
	now        func() time.Time
	logger     *zap.Logger
}

// NewInsightService creates a new insight service; zero options take defaults
func NewInsightService(loader DatasetLoader, publisher VisitListPublisher, opts Options) *InsightService {
	if opts.Thresholds == (analytics.Thresholds{}) {
		opts.Thresholds = analytics.DefaultThresholds()
	}
	if opts.TopN <= 0 {
		opts.TopN = analytics.DefaultTopN
	}
	if opts.VendorTopN <= 0 {
		opts.VendorTopN = analytics.DefaultVendorTopN
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &InsightService{
		loader:     loader,
		publisher:  publisher,
		sourceID:   opts.SourceID,
		thresholds: opts.Thresholds,
		topN:       opts.TopN,
		vendorTopN: opts.VendorTopN,
		now:        opts.Now,
		logger:     util.GetLogger(),
	}
}

// SourceID returns the configured source id
func (s *InsightService) SourceID() string {
	return s.sourceID
}

// DefaultThresholds returns the configured alert thresholds
func (s *InsightService) DefaultThresholds() analytics.Thresholds {
	return s.thresholds
}

// Result loads the dataset and runs the pipeline. On failure it returns an
// empty result together with the error.
func (s *InsightService) Result(ctx context.Context) (*analytics.Result, error) {
	ctx, span := util.StartSpan(ctx, "InsightService.Result")
	defer span.End()

	ds, err := s.loader.Load(ctx, s.sourceID)
	if err != nil {
		return analytics.EmptyResult(), err
	}

	start := time.Now()
	result := analytics.Run(ds, s.now(), s.topN)
	util.PipelineDuration.Observe(time.Since(start).Seconds())

	if result.Empty() {
		s.logger.Warn("Dataset produced no customers", zap.String("source_id", s.sourceID))
	}
	return result, nil
}

// Invalidate drops the cached dataset so the next request reloads it
func (s *InsightService) Invalidate(ctx context.Context) error {
	if err := s.loader.Invalidate(ctx, s.sourceID); err != nil {
		return fmt.Errorf("failed to invalidate dataset: %w", err)
	}
	return nil
}

// Filters lists the selectable zones, segments and months
func (s *InsightService) Filters(ctx context.Context) (analytics.FilterOptions, error) {
	result, err := s.Result(ctx)
	if err != nil {
		return analytics.FilterOptions{}, err
	}
	return analytics.Options(result.Customers, result.Orders), nil
}

// Overview is the general dashboard
type Overview struct {
	Empty          bool                     `json:"empty"`
	KPIs           analytics.KPIs           `json:"kpis"`
	Segments       []analytics.SegmentStats `json:"segments"`
	TopProducts    []models.ProductRanking  `json:"top_products"`
	BottomProducts []models.ProductRanking  `json:"bottom_products"`
	OrderDates     analytics.DateRange      `json:"order_dates"`
	DeliveryDates  analytics.DateRange      `json:"delivery_dates"`
}

// Overview computes KPIs and segments for the filtered customers
func (s *InsightService) Overview(ctx context.Context, filter analytics.Filter) (*Overview, error) {
	ctx, span := util.StartSpan(ctx, "InsightService.Overview")
	defer span.End()

	result, err := s.Result(ctx)
	if err != nil {
		return nil, err
	}

	customers := filter.Apply(result.Customers)
	return &Overview{
		Empty:          len(customers) == 0,
		KPIs:           analytics.Summarize(customers),
		Segments:       analytics.SegmentBreakdown(customers),
		TopProducts:    result.TopProducts,
		BottomProducts: result.BottomProducts,
		OrderDates:     result.OrderDates,
		DeliveryDates:  result.DeliveryDates,
	}, nil
}

// Customers returns the filtered customers, narrowed by exact code or by
// name substring when given
func (s *InsightService) Customers(ctx context.Context, filter analytics.Filter, code, name string) ([]models.EnrichedCustomer, error) {
	result, err := s.Result(ctx)
	if err != nil {
		return nil, err
	}

	customers := filter.Apply(result.Customers)
	switch {
	case code != "":
		customers = analytics.SearchByCode(customers, code)
	case name != "":
		customers = analytics.SearchByName(customers, name)
	}
	return customers, nil
}

// CustomerDetail is the single-customer view
type CustomerDetail struct {
	Customer        models.EnrichedCustomer `json:"customer"`
	TopProducts     []models.ProductRanking `json:"top_products"`
	Recommendations []models.ProductRanking `json:"recommendations"`
	Opportunities   []models.Opportunity    `json:"opportunities"`
	Cadence         models.Cadence          `json:"cadence"`
	Pitch           analytics.Pitch         `json:"pitch"`
}

// Customer builds the detail view of one customer. Recommendations come from
// customers of the same business type and zone within the filtered table.
func (s *InsightService) Customer(ctx context.Context, code string, filter analytics.Filter) (*CustomerDetail, error) {
	ctx, span := util.StartSpan(ctx, "InsightService.Customer")
	defer span.End()

	result, err := s.Result(ctx)
	if err != nil {
		return nil, err
	}

	found := analytics.SearchByCode(result.Customers, code)
	if len(found) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrCustomerNotFound, code)
	}
	customer := found[0]

	own := analytics.OrdersForCustomers(result.Orders, []string{customer.ID})
	pool := analytics.SimilarCustomerPool(filter.Apply(result.Customers), customer.BusinessType, customer.Zone)

	detail := &CustomerDetail{
		Customer:        customer,
		TopProducts:     analytics.TopN(own, s.topN),
		Recommendations: analytics.Recommendations(pool, result.Orders, s.topN),
		Opportunities:   analytics.Opportunities(own, result.Orders, s.topN),
		Cadence:         analytics.ContactCadence(customer.RecencyDays),
	}
	detail.Pitch = analytics.PitchFor(customer.Segment, detail.TopProducts, detail.Recommendations)
	return detail, nil
}

// Vendors compares zones over the filtered customers
func (s *InsightService) Vendors(ctx context.Context, filter analytics.Filter) ([]analytics.VendorStats, error) {
	result, err := s.Result(ctx)
	if err != nil {
		return nil, err
	}
	return analytics.CompareVendors(filter.Apply(result.Customers)), nil
}

// VendorDetail is the single-vendor view
type VendorDetail struct {
	Zone              string                    `json:"zone"`
	KPIs              analytics.KPIs            `json:"kpis"`
	TopProducts       []models.ProductRanking   `json:"top_products"`
	Segments          []analytics.SegmentStats  `json:"segments"`
	InactiveCustomers []models.EnrichedCustomer `json:"inactive_customers"`
	Summary           analytics.VendorSummary   `json:"summary"`
}

// Vendor builds the detail view of one zone
func (s *InsightService) Vendor(ctx context.Context, zone string, filter analytics.Filter) (*VendorDetail, error) {
	ctx, span := util.StartSpan(ctx, "InsightService.Vendor")
	defer span.End()

	result, err := s.Result(ctx)
	if err != nil {
		return nil, err
	}

	filter.Zone = zone
	customers := filter.Apply(result.Customers)
	if len(customers) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrVendorNotFound, zone)
	}

	orders := analytics.OrdersForCustomers(result.Orders, analytics.CustomerIDs(customers))
	return &VendorDetail{
		Zone:              zone,
		KPIs:              analytics.Summarize(customers),
		TopProducts:       analytics.TopN(orders, s.vendorTopN),
		Segments:          analytics.SegmentBreakdown(customers),
		InactiveCustomers: analytics.InSegment(customers, models.SegmentInactive),
		Summary:           analytics.SummarizeVendor(customers),
	}, nil
}

// AlertReport lists the customers flagged under the given thresholds
type AlertReport struct {
	Thresholds analytics.Thresholds      `json:"thresholds"`
	Summary    analytics.AlertSummary    `json:"summary"`
	Customers  []models.EnrichedCustomer `json:"customers"`
}

// Alerts classifies the filtered customers
func (s *InsightService) Alerts(ctx context.Context, filter analytics.Filter, t analytics.Thresholds) (*AlertReport, error) {
	ctx, span := util.StartSpan(ctx, "InsightService.Alerts")
	defer span.End()

	if err := t.Validate(); err != nil {
		return nil, err
	}

	result, err := s.Result(ctx)
	if err != nil {
		return nil, err
	}

	classified := analytics.Classify(filter.Apply(result.Customers), t)
	summary := analytics.SummarizeAlerts(classified)
	for _, p := range []models.Priority{models.PriorityHigh, models.PriorityMedium, models.PriorityLow} {
		util.AlertedCustomers.WithLabelValues(string(p)).Set(float64(summary.ByPriority[p]))
	}

	return &AlertReport{
		Thresholds: t,
		Summary:    summary,
		Customers:  analytics.Alerted(classified),
	}, nil
}

// ExportVisitList writes the alerted customers as CSV and announces the export
func (s *InsightService) ExportVisitList(ctx context.Context, w io.Writer, filter analytics.Filter, t analytics.Thresholds) (int, error) {
	ctx, span := util.StartSpan(ctx, "InsightService.ExportVisitList")
	defer span.End()

	report, err := s.Alerts(ctx, filter, t)
	if err != nil {
		return 0, err
	}

	if err := WriteVisitList(w, report.Customers); err != nil {
		return 0, err
	}
	util.VisitListsExportedTotal.Inc()

	if s.publisher != nil {
		visits := make([]models.VisitData, 0, len(report.Customers))
		for _, c := range report.Customers {
			visits = append(visits, models.VisitData{CustomerID: c.ID, Zone: c.Zone, Priority: c.Priority})
		}
		event := &models.VisitListExportedEvent{
			BaseEvent: models.BaseEvent{
				EventID:   uuid.New().String(),
				EventType: models.EventTypeVisitListExported,
				Timestamp: time.Now(),
			},
			SourceID:               s.sourceID,
			RecencyThresholdDays:   t.RecencyDays,
			EffectivenessThreshold: t.Effectiveness,
			Visits:                 visits,
		}
		if err := s.publisher.PublishVisitListExported(ctx, event); err != nil {
			s.logger.Error("Failed to publish VisitListExported event", zap.Error(err))
		}
	}

	s.logger.Info("Visit list exported", zap.Int("customers", len(report.Customers)))
	return len(report.Customers), nil
}

// WriteVisitList writes customers as a CSV visit list
func WriteVisitList(w io.Writer, customers []models.EnrichedCustomer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(VisitListHeader); err != nil {
		return fmt.Errorf("failed to write visit list: %w", err)
	}
	for _, c := range customers {
		if err := cw.Write([]string{c.Name, c.ID, c.Zone, c.Phone, c.Address, string(c.Priority)}); err != nil {
			return fmt.Errorf("failed to write visit list: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
