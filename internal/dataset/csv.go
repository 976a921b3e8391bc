package dataset

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/retailops/ims-analytics/internal/engine"
	"github.com/retailops/ims-analytics/internal/models"
)

// Table file names inside the data directory. The first seven are
// required; the last three are the optional analytic tables whose absence
// degrades the LTV, retention and attribution components to
// "data unavailable".
const (
	fileOrders          = "orders.csv"
	fileClustered       = "orders_clustered.csv"
	fileEventStats      = "event_stats.csv"
	filePageStats       = "page_stats.csv"
	fileClickStats      = "click_stats.csv"
	fileClusterChannels = "cluster_channels.csv"
	fileEfficiency      = "product_efficiency.csv"
	fileLTV             = "ltv.csv"
	fileIntervals       = "order_intervals.csv"
	fileAttribution     = "attribution.csv"
)

var requiredFiles = []string{
	fileOrders, fileClustered, fileEventStats, filePageStats,
	fileClickStats, fileClusterChannels, fileEfficiency,
}

var optionalFiles = []string{fileLTV, fileIntervals, fileAttribution}

const dateLayout = "2006-01-02"

// CSVSource loads the snapshot from delimited text exports in a single
// data directory.
type CSVSource struct {
	dir string
}

// NewCSVSource creates a source over the given data directory.
func NewCSVSource(dir string) *CSVSource {
	return &CSVSource{dir: dir}
}

// Name identifies the source kind in logs and metrics.
func (s *CSVSource) Name() string { return "csv" }

// Version is the maximum modification time across all known table files,
// so touching any export invalidates the cached snapshot.
func (s *CSVSource) Version(ctx context.Context) (string, error) {
	var latest time.Time
	for _, name := range requiredFiles {
		info, err := os.Stat(filepath.Join(s.dir, name))
		if err != nil {
			return "", fmt.Errorf("stat %s: %w", name, err)
		}
		if info.ModTime().After(latest) {
			latest = info.ModTime()
		}
	}
	for _, name := range optionalFiles {
		info, err := os.Stat(filepath.Join(s.dir, name))
		if err != nil {
			continue
		}
		if info.ModTime().After(latest) {
			latest = info.ModTime()
		}
	}
	return strconv.FormatInt(latest.UnixNano(), 10), nil
}

// Load reads every table. Required tables fail loudly; optional tables
// come back nil when the file is missing.
func (s *CSVSource) Load(ctx context.Context) (*models.Snapshot, error) {
	snap := &models.Snapshot{}
	var err error

	if snap.Orders, err = s.loadOrders(fileOrders); err != nil {
		return nil, err
	}
	if snap.Clustered, err = s.loadClustered(); err != nil {
		return nil, err
	}
	if snap.Events, err = s.loadEventStats(); err != nil {
		return nil, err
	}
	if snap.Pages, err = s.loadPageStats(); err != nil {
		return nil, err
	}
	if snap.Clicks, err = s.loadClickStats(); err != nil {
		return nil, err
	}
	if snap.ClusterChannel, err = s.loadClusterChannels(); err != nil {
		return nil, err
	}
	if snap.Efficiency, err = s.loadEfficiency(); err != nil {
		return nil, err
	}

	if snap.LTV, err = s.loadLTV(); err != nil {
		return nil, err
	}
	if snap.Intervals, err = s.loadIntervals(); err != nil {
		return nil, err
	}
	if snap.Attribution, err = s.loadAttribution(); err != nil {
		return nil, err
	}
	return snap, nil
}

// table is one parsed CSV: a header index plus data rows.
type table struct {
	name string
	cols map[string]int
	rows [][]string
}

func (s *CSVSource) read(name string, optional bool) (*table, error) {
	f, err := os.Open(filepath.Join(s.dir, name))
	if err != nil {
		if optional && os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}
	if len(records) == 0 {
		return &table{name: name, cols: map[string]int{}}, nil
	}

	cols := make(map[string]int, len(records[0]))
	for i, h := range records[0] {
		cols[strings.TrimSpace(strings.ToLower(h))] = i
	}
	return &table{name: name, cols: cols, rows: records[1:]}, nil
}

// col resolves a required column or reports a SchemaError.
func (t *table) col(name string) (int, error) {
	i, ok := t.cols[name]
	if !ok {
		return 0, &engine.SchemaError{Table: t.name, Column: name}
	}
	return i, nil
}

// optionalCol resolves a column that may be absent, returning -1 then.
func (t *table) optionalCol(name string) int {
	if i, ok := t.cols[name]; ok {
		return i
	}
	return -1
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func parseFloatCell(row []string, i int) float64 {
	v, err := strconv.ParseFloat(cell(row, i), 64)
	if err != nil {
		return 0
	}
	return v
}

func parseIntCell(row []string, i int) int {
	v, err := strconv.Atoi(cell(row, i))
	if err != nil {
		return 0
	}
	return v
}

func parseBoolCell(row []string, i int) bool {
	switch strings.ToLower(cell(row, i)) {
	case "1", "true", "y", "yes":
		return true
	}
	return false
}

func parseDateCell(row []string, i int) time.Time {
	t, err := time.Parse(dateLayout, cell(row, i))
	if err != nil {
		return time.Time{}
	}
	return t
}

func (s *CSVSource) loadOrders(name string) ([]models.OrderLine, error) {
	t, err := s.read(name, false)
	if err != nil {
		return nil, err
	}
	return parseOrderRows(t)
}

func parseOrderRows(t *table) ([]models.OrderLine, error) {
	required := []string{"order_id", "order_date", "channel", "payment_method", "product_code", "product_name", "quantity", "paid_amount"}
	idx := make(map[string]int, len(required))
	for _, c := range required {
		i, err := t.col(c)
		if err != nil {
			return nil, err
		}
		idx[c] = i
	}
	grade := t.optionalCol("grade")
	weight := t.optionalCol("weight_class")
	isSet := t.optionalCol("is_set")
	isEvent := t.optionalCol("is_event")
	supply := t.optionalCol("supply_cost")

	out := make([]models.OrderLine, 0, len(t.rows))
	for _, row := range t.rows {
		out = append(out, models.OrderLine{
			OrderID:       cell(row, idx["order_id"]),
			OrderDate:     parseDateCell(row, idx["order_date"]),
			Channel:       cell(row, idx["channel"]),
			PaymentMethod: cell(row, idx["payment_method"]),
			ProductCode:   cell(row, idx["product_code"]),
			ProductName:   cell(row, idx["product_name"]),
			Grade:         cell(row, grade),
			WeightClass:   cell(row, weight),
			IsSet:         parseBoolCell(row, isSet),
			IsEvent:       parseBoolCell(row, isEvent),
			Quantity:      parseIntCell(row, idx["quantity"]),
			PaidAmount:    parseFloatCell(row, idx["paid_amount"]),
			SupplyCost:    parseFloatCell(row, supply),
		})
	}
	return out, nil
}

func (s *CSVSource) loadClustered() ([]models.ClusteredOrder, error) {
	t, err := s.read(fileClustered, false)
	if err != nil {
		return nil, err
	}
	lines, err := parseOrderRows(t)
	if err != nil {
		return nil, err
	}
	clusterIdx, err := t.col("cluster")
	if err != nil {
		return nil, err
	}

	out := make([]models.ClusteredOrder, len(lines))
	for i, row := range t.rows {
		out[i] = models.ClusteredOrder{OrderLine: lines[i], Cluster: parseIntCell(row, clusterIdx)}
	}
	return out, nil
}

func (s *CSVSource) loadEventStats() ([]models.DailyEventStat, error) {
	t, err := s.read(fileEventStats, false)
	if err != nil {
		return nil, err
	}
	dateIdx, err := t.col("date")
	if err != nil {
		return nil, err
	}
	pvIdx, err := t.col("page_views")
	if err != nil {
		return nil, err
	}
	dauIdx, err := t.col("dau_members")
	if err != nil {
		return nil, err
	}
	revisitIdx := t.optionalCol("revisit_rate_pct")

	out := make([]models.DailyEventStat, 0, len(t.rows))
	for _, row := range t.rows {
		out = append(out, models.DailyEventStat{
			Date:           parseDateCell(row, dateIdx),
			PageViews:      parseIntCell(row, pvIdx),
			DAUMembers:     parseIntCell(row, dauIdx),
			RevisitRatePct: parseFloatCell(row, revisitIdx),
		})
	}
	return out, nil
}

func (s *CSVSource) loadPageStats() ([]models.PageStat, error) {
	t, err := s.read(filePageStats, false)
	if err != nil {
		return nil, err
	}
	titleIdx, err := t.col("title")
	if err != nil {
		return nil, err
	}
	viewsIdx, err := t.col("views")
	if err != nil {
		return nil, err
	}

	out := make([]models.PageStat, 0, len(t.rows))
	for _, row := range t.rows {
		out = append(out, models.PageStat{
			Title: cell(row, titleIdx),
			Views: parseIntCell(row, viewsIdx),
		})
	}
	return out, nil
}

func (s *CSVSource) loadClickStats() ([]models.ClickStat, error) {
	t, err := s.read(fileClickStats, false)
	if err != nil {
		return nil, err
	}
	productIdx, err := t.col("product_name")
	if err != nil {
		return nil, err
	}
	viewsIdx, err := t.col("views")
	if err != nil {
		return nil, err
	}
	clicksIdx, err := t.col("clicks")
	if err != nil {
		return nil, err
	}
	dateIdx := t.optionalCol("date")

	out := make([]models.ClickStat, 0, len(t.rows))
	for _, row := range t.rows {
		out = append(out, models.ClickStat{
			Date:        parseDateCell(row, dateIdx),
			ProductName: cell(row, productIdx),
			Views:       parseIntCell(row, viewsIdx),
			Clicks:      parseIntCell(row, clicksIdx),
		})
	}
	return out, nil
}

// loadClusterChannels parses the wide cluster x channel matrix: the first
// column is the cluster id, every further header is a channel name.
func (s *CSVSource) loadClusterChannels() ([]models.ClusterChannelShare, error) {
	f, err := os.Open(filepath.Join(s.dir, fileClusterChannels))
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", fileClusterChannels, err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", fileClusterChannels, err)
	}
	if len(records) < 1 || len(records[0]) < 2 {
		return nil, &engine.SchemaError{Table: fileClusterChannels, Column: "channel columns"}
	}

	channels := records[0][1:]
	var out []models.ClusterChannelShare
	for _, row := range records[1:] {
		cluster, _ := strconv.Atoi(strings.TrimSpace(row[0]))
		for i, ch := range channels {
			out = append(out, models.ClusterChannelShare{
				Cluster:  cluster,
				Channel:  strings.TrimSpace(ch),
				SharePct: parseFloatCell(row, i+1),
			})
		}
	}
	return out, nil
}

func (s *CSVSource) loadEfficiency() ([]models.ProductEfficiency, error) {
	t, err := s.read(fileEfficiency, false)
	if err != nil {
		return nil, err
	}
	required := []string{"product_code", "product_name", "ctr_pct", "rpc", "rpv", "view_count", "revenue"}
	idx := make(map[string]int, len(required))
	for _, c := range required {
		i, err := t.col(c)
		if err != nil {
			return nil, err
		}
		idx[c] = i
	}
	// supply_cost is the one column allowed to be absent: it defaults to
	// 0 and margin figures downstream degrade instead of failing.
	supplyIdx := t.optionalCol("supply_cost")

	out := make([]models.ProductEfficiency, 0, len(t.rows))
	for _, row := range t.rows {
		out = append(out, models.ProductEfficiency{
			ProductCode: cell(row, idx["product_code"]),
			ProductName: cell(row, idx["product_name"]),
			CTRPct:      parseFloatCell(row, idx["ctr_pct"]),
			RPC:         parseFloatCell(row, idx["rpc"]),
			RPV:         parseFloatCell(row, idx["rpv"]),
			ViewCount:   parseIntCell(row, idx["view_count"]),
			Revenue:     parseFloatCell(row, idx["revenue"]),
			SupplyCost:  parseFloatCell(row, supplyIdx),
		})
	}
	return out, nil
}

func (s *CSVSource) loadLTV() ([]models.CustomerLTVRecord, error) {
	t, err := s.read(fileLTV, true)
	if err != nil || t == nil {
		return nil, err
	}
	required := []string{"customer_id", "recency_days", "frequency", "monetary", "ltv_score", "cluster"}
	idx := make(map[string]int, len(required))
	for _, c := range required {
		i, err := t.col(c)
		if err != nil {
			return nil, err
		}
		idx[c] = i
	}

	out := make([]models.CustomerLTVRecord, 0, len(t.rows))
	for _, row := range t.rows {
		out = append(out, models.CustomerLTVRecord{
			CustomerID:  cell(row, idx["customer_id"]),
			RecencyDays: parseIntCell(row, idx["recency_days"]),
			Frequency:   parseIntCell(row, idx["frequency"]),
			Monetary:    parseFloatCell(row, idx["monetary"]),
			LTVScore:    parseFloatCell(row, idx["ltv_score"]),
			Cluster:     parseIntCell(row, idx["cluster"]),
		})
	}
	return out, nil
}

func (s *CSVSource) loadIntervals() ([]models.OrderIntervalRecord, error) {
	t, err := s.read(fileIntervals, true)
	if err != nil || t == nil {
		return nil, err
	}
	clusterIdx, err := t.col("cluster")
	if err != nil {
		return nil, err
	}
	intervalIdx, err := t.col("avg_interval_days")
	if err != nil {
		return nil, err
	}

	out := make([]models.OrderIntervalRecord, 0, len(t.rows))
	for _, row := range t.rows {
		out = append(out, models.OrderIntervalRecord{
			Cluster:         parseIntCell(row, clusterIdx),
			AvgIntervalDays: parseFloatCell(row, intervalIdx),
		})
	}
	return out, nil
}

func (s *CSVSource) loadAttribution() ([]models.ChannelAttributionRecord, error) {
	t, err := s.read(fileAttribution, true)
	if err != nil || t == nil {
		return nil, err
	}
	required := []string{"channel", "spend", "revenue", "orders"}
	idx := make(map[string]int, len(required))
	for _, c := range required {
		i, err := t.col(c)
		if err != nil {
			return nil, err
		}
		idx[c] = i
	}

	out := make([]models.ChannelAttributionRecord, 0, len(t.rows))
	for _, row := range t.rows {
		out = append(out, models.ChannelAttributionRecord{
			Channel: cell(row, idx["channel"]),
			Spend:   parseFloatCell(row, idx["spend"]),
			Revenue: parseFloatCell(row, idx["revenue"]),
			Orders:  parseIntCell(row, idx["orders"]),
		})
	}
	return out, nil
}
