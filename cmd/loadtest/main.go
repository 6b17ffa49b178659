// Команда loadtest нагружает gRPC-сервис истории статусов: меняет статусы
// заказов из заданного диапазона и, по желанию, перечитывает их историю.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	grpcsvc "github.com/vladislavdragonenkov/oms-history/internal/service/grpc"
)

type loadMode string

const (
	// modeChange переключает заказ на следующий статус из списка.
	modeChange loadMode = "change"
	// modeNote добавляет комментарий без смены статуса.
	modeNote loadMode = "note"
	// modeChangeList после смены статуса читает историю заказа.
	modeChangeList loadMode = "change-list"
)

const (
	methodUpdate = "UpdateStatusHistory"
	methodList   = "ListStatusHistory"
)

type config struct {
	addr        string
	total       int
	totalSet    bool
	duration    time.Duration
	concurrency int
	connections int
	timeout     time.Duration
	mode        loadMode
	orderFrom   int64
	orderTo     int64
	statuses    []int64
	languageID  int64
	adminID     int64
	notify      int
	outputPath  string
}

// historyClient: часть grpcsvc.HistoryClient, которую использует нагрузка.
type historyClient interface {
	UpdateStatusHistory(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*wrapperspb.Int64Value, error)
	ListStatusHistory(ctx context.Context, in *wrapperspb.Int64Value, opts ...grpc.CallOption) (*structpb.Struct, error)
}

func parseConfig(args []string) (config, error) {
	var (
		cfg           config
		modeValue     string
		statusesValue string
	)

	fs := flag.NewFlagSet("loadtest", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&cfg.addr, "addr", "localhost:50051", "gRPC target address")
	fs.IntVar(&cfg.total, "total", 400, "total scenarios in count mode; with -duration only used when explicitly set")
	fs.DurationVar(&cfg.duration, "duration", 0, "optional time-based run duration (e.g. 10m)")
	fs.IntVar(&cfg.concurrency, "concurrency", 40, "number of concurrent workers")
	fs.IntVar(&cfg.connections, "connections", 20, "number of gRPC client connections")
	fs.DurationVar(&cfg.timeout, "timeout", 5*time.Second, "per-RPC timeout")
	fs.StringVar(&modeValue, "mode", string(modeChange), "load mode: change | note | change-list")
	fs.Int64Var(&cfg.orderFrom, "order-from", 1, "first order id of the target range")
	fs.Int64Var(&cfg.orderTo, "order-to", 100, "last order id of the target range")
	fs.StringVar(&statusesValue, "statuses", "1,2,3", "comma-separated status ids to rotate through")
	fs.Int64Var(&cfg.languageID, "language-id", 1, "session language id")
	fs.Int64Var(&cfg.adminID, "admin-id", 0, "session admin id (0 = no admin)")
	fs.IntVar(&cfg.notify, "customer-notified", -1, "customer_notified flag: -1 | 0 | 1")
	fs.StringVar(&cfg.outputPath, "output", "", "optional JSON report output file path")
	if err := fs.Parse(args); err != nil {
		return cfg, err
	}

	fs.Visit(func(f *flag.Flag) {
		if f.Name == "total" {
			cfg.totalSet = true
		}
	})

	mode, err := parseMode(modeValue)
	if err != nil {
		return cfg, err
	}
	cfg.mode = mode

	statuses, err := parseStatuses(statusesValue)
	if err != nil {
		return cfg, err
	}
	cfg.statuses = statuses

	switch {
	case cfg.duration < 0:
		return cfg, errors.New("duration must be >= 0")
	case cfg.duration == 0 && cfg.total <= 0:
		return cfg, errors.New("total must be > 0 when duration is not set")
	case cfg.duration > 0 && cfg.totalSet && cfg.total <= 0:
		return cfg, errors.New("total must be > 0 when explicitly set with duration")
	case cfg.concurrency <= 0:
		return cfg, errors.New("concurrency must be > 0")
	case cfg.connections <= 0:
		return cfg, errors.New("connections must be > 0")
	case cfg.timeout <= 0:
		return cfg, errors.New("timeout must be > 0")
	case cfg.orderFrom <= 0 || cfg.orderTo < cfg.orderFrom:
		return cfg, errors.New("order range must satisfy 0 < order-from <= order-to")
	case cfg.languageID <= 0:
		return cfg, errors.New("language-id must be > 0")
	case cfg.adminID < 0:
		return cfg, errors.New("admin-id must be >= 0")
	case cfg.notify < -1 || cfg.notify > 1:
		return cfg, errors.New("customer-notified must be -1, 0 or 1")
	}

	return cfg, nil
}

func parseMode(value string) (loadMode, error) {
	switch mode := loadMode(strings.TrimSpace(value)); mode {
	case modeChange, modeNote, modeChangeList:
		return mode, nil
	default:
		return "", fmt.Errorf("unsupported mode: %s", value)
	}
}

func parseStatuses(raw string) ([]int64, error) {
	var statuses []int64
	for _, chunk := range strings.Split(raw, ",") {
		chunk = strings.TrimSpace(chunk)
		if chunk == "" {
			continue
		}
		id, err := strconv.ParseInt(chunk, 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid status id %q", chunk)
		}
		statuses = append(statuses, id)
	}
	if len(statuses) == 0 {
		return nil, errors.New("at least one status id is required")
	}
	return statuses, nil
}

func main() {
	cfg, err := parseConfig(os.Args[1:])
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	conns := make([]*grpc.ClientConn, 0, cfg.connections)
	clients := make([]historyClient, 0, cfg.connections)
	for i := 0; i < cfg.connections; i++ {
		conn, dialErr := grpc.NewClient(cfg.addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
		if dialErr != nil {
			_, _ = fmt.Fprintf(os.Stderr, "failed to create grpc client connection: %v\n", dialErr)
			os.Exit(1)
		}
		conns = append(conns, conn)
		clients = append(clients, grpcsvc.NewHistoryClient(conn))
	}
	defer func() {
		for _, conn := range conns {
			_ = conn.Close()
		}
	}()

	result := runLoad(clients, cfg)

	printReport(os.Stdout, result, cfg)
	if cfg.outputPath != "" {
		if err := writeJSONReport(cfg.outputPath, result); err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "failed to write report: %v\n", err)
			os.Exit(1)
		}
	}

	if result.FailedScenarios > 0 {
		os.Exit(1)
	}
}

// runLoad распределяет сценарии по воркерам и собирает отчёт.
func runLoad(clients []historyClient, cfg config) report {
	startedAt := time.Now()
	col := newCollector()

	jobs := make(chan int, cfg.concurrency*2)
	var failures int64
	var wg sync.WaitGroup

	for workerID := 0; workerID < cfg.concurrency; workerID++ {
		wg.Add(1)
		go func(cli historyClient) {
			defer wg.Done()
			for index := range jobs {
				if err := runScenario(cli, cfg, index, col); err != nil {
					atomic.AddInt64(&failures, 1)
				}
			}
		}(clients[workerID%len(clients)])
	}

	dispatchJobs(jobs, cfg)
	wg.Wait()

	result := col.buildReport(startedAt, time.Since(startedAt))
	if result.FailedScenarios == 0 && failures > 0 {
		result.FailedScenarios = failures
		result.ErrorRate = ratio(result.FailedScenarios, result.TotalScenarios)
	}
	return result
}

func dispatchJobs(jobs chan<- int, cfg config) {
	defer close(jobs)

	if cfg.duration <= 0 {
		for i := 0; i < cfg.total; i++ {
			jobs <- i
		}
		return
	}

	timer := time.NewTimer(cfg.duration)
	defer timer.Stop()

	for i := 0; ; i++ {
		if cfg.totalSet && i >= cfg.total {
			return
		}
		select {
		case <-timer.C:
			return
		case jobs <- i:
		}
	}
}

// scenarioTarget выбирает заказ и статус для сценария по его номеру.
func scenarioTarget(cfg config, index int) (orderID, statusID int64) {
	span := cfg.orderTo - cfg.orderFrom + 1
	orderID = cfg.orderFrom + int64(index)%span
	// новый проход по диапазону берёт следующий статус, чтобы он действительно менялся
	round := int64(index) / span
	statusID = cfg.statuses[int(round%int64(len(cfg.statuses)))]
	return orderID, statusID
}

func runScenario(client historyClient, cfg config, index int, col *collector) error {
	scenarioStart := time.Now()
	scenarioCode := codes.OK
	defer func() {
		col.record(scenarioMethod, time.Since(scenarioStart), scenarioCode)
	}()

	orderID, statusID := scenarioTarget(cfg, index)
	fields := map[string]any{
		"orders_id":         orderID,
		"orders_status_id":  statusID,
		"customer_notified": cfg.notify,
		"updated_by":        "loadtest",
	}
	if cfg.mode == modeNote {
		fields["orders_status_id"] = -1
		fields["comments"] = fmt.Sprintf("load note #%d", index)
	}

	req, err := structpb.NewStruct(fields)
	if err != nil {
		scenarioCode = codes.Internal
		return fmt.Errorf("build request: %w", err)
	}

	historyID, err := callUpdate(client, cfg, req, col)
	if err != nil {
		scenarioCode = grpcCode(err)
		return err
	}
	if historyID <= 0 {
		scenarioCode = codes.Internal
		return errors.New("update returned empty history id")
	}

	if cfg.mode != modeChangeList {
		return nil
	}
	if err := callList(client, cfg, orderID, col); err != nil {
		scenarioCode = grpcCode(err)
		return err
	}
	return nil
}

func (cfg config) outgoingContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.timeout)
	pairs := []string{grpcsvc.MetadataLanguageID, strconv.FormatInt(cfg.languageID, 10)}
	if cfg.adminID > 0 {
		pairs = append(pairs, grpcsvc.MetadataAdminID, strconv.FormatInt(cfg.adminID, 10))
	}
	return metadata.AppendToOutgoingContext(ctx, pairs...), cancel
}

func callUpdate(client historyClient, cfg config, req *structpb.Struct, col *collector) (int64, error) {
	ctx, cancel := cfg.outgoingContext()
	defer cancel()

	start := time.Now()
	resp, err := client.UpdateStatusHistory(ctx, req)
	col.record(methodUpdate, time.Since(start), grpcCode(err))
	if err != nil {
		return 0, err
	}
	return resp.GetValue(), nil
}

func callList(client historyClient, cfg config, orderID int64, col *collector) error {
	ctx, cancel := cfg.outgoingContext()
	defer cancel()

	start := time.Now()
	_, err := client.ListStatusHistory(ctx, wrapperspb.Int64(orderID))
	col.record(methodList, time.Since(start), grpcCode(err))
	return err
}

func grpcCode(err error) codes.Code {
	if err == nil {
		return codes.OK
	}
	return status.Code(err)
}
