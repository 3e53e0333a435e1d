package server

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/ogurasousui/cafe-staffing/internal/adapters/grpc/handler"
	"github.com/ogurasousui/cafe-staffing/internal/core/cafe"
	"github.com/ogurasousui/cafe-staffing/internal/core/employee"
)

type recordingObserver struct {
	mu    sync.Mutex
	calls []string
}

func (r *recordingObserver) ObserveRPC(method, code string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, method+" "+code)
}

func (r *recordingObserver) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

type panickingCafes struct {
	cafe.UseCase
}

func (panickingCafes) GetCafe(context.Context, cafe.GetCafeInput) (*cafe.Cafe, error) {
	panic("boom")
}

type missingEmployees struct {
	employee.UseCase
}

func (missingEmployees) GetEmployee(context.Context, employee.GetEmployeeInput) (*employee.Employee, error) {
	return nil, employee.ErrEmployeeNotFound
}

func startServer(t *testing.T, obs RPCObserver, log *zap.Logger) *grpc.ClientConn {
	t.Helper()

	lis := bufconn.Listen(1 << 20)
	srv := New("bufnet", panickingCafes{}, missingEmployees{}, log, obs)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- srv.Serve(ctx, lis)
	}()
	t.Cleanup(func() {
		cancel()
		assert.NoError(t, <-done)
	})

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestServer_HealthCheck(t *testing.T) {
	t.Parallel()

	conn := startServer(t, nil, nil)
	client := healthpb.NewHealthClient(conn)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for _, name := range []string{"", handler.CafeServiceName, handler.EmployeeServiceName} {
		resp, err := client.Check(ctx, &healthpb.HealthCheckRequest{Service: name})
		require.NoError(t, err)
		assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus(), name)
	}
}

func TestServer_InterceptorsObserveAndRecover(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zap.InfoLevel)
	obs := &recordingObserver{}
	conn := startServer(t, obs, zap.New(core))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := conn.Invoke(ctx, "/"+handler.EmployeeServiceName+"/GetEmployee", &structpb.Struct{}, new(structpb.Struct))
	assert.Equal(t, codes.NotFound, status.Code(err))

	err = conn.Invoke(ctx, "/"+handler.CafeServiceName+"/GetCafe", &structpb.Struct{}, new(structpb.Struct))
	assert.Equal(t, codes.Internal, status.Code(err))

	assert.Equal(t, []string{
		"/" + handler.EmployeeServiceName + "/GetEmployee NotFound",
		"/" + handler.CafeServiceName + "/GetCafe Internal",
	}, obs.snapshot())

	assert.Equal(t, 1, logs.FilterMessage("rpc rejected").Len())
	assert.Equal(t, 1, logs.FilterMessage("panic in rpc handler").Len())
	assert.Equal(t, 1, logs.FilterMessage("rpc failed").Len())
}
