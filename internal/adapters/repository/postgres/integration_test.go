//go:build integration

// 行ロックによる払い出しの直列化はこのファイルでのみ検証されるため、CI では `go test -tags integration ./...` を実行します。

package postgres

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/ogurasousui/cafe-staffing/internal/core/cafe"
	"github.com/ogurasousui/cafe-staffing/internal/core/employee"
	"github.com/ogurasousui/cafe-staffing/internal/core/identifier"
	pgdb "github.com/ogurasousui/cafe-staffing/internal/platform/db/postgres"
)

type stack struct {
	pool      *pgxpool.Pool
	cafes     *cafe.Service
	employees *employee.Service
}

func startPostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	ctr, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("cafe_staffing"),
		tcpostgres.WithUsername("app"),
		tcpostgres.WithPassword("app"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = ctr.Terminate(context.Background())
	})

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	dir, err := filepath.Abs("../../../../assets/migrations")
	require.NoError(t, err)
	m, err := migrate.New("file://"+filepath.ToSlash(dir), dsn)
	require.NoError(t, err)
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		t.Fatalf("apply migrations: %v", err)
	}
	_, _ = m.Close()

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	return pool
}

func newStack(t *testing.T) *stack {
	t.Helper()

	pool := startPostgres(t)
	tx := pgdb.NewTransactionManager(pool)

	cafeSvc := cafe.NewService(NewCafeRepository(pool, nil), nil, tx)
	ids := identifier.NewAllocator(NewSequenceRepository(pool, nil), "UI", 7)
	empSvc := employee.NewService(NewEmployeeRepository(pool, nil), cafeSvc, ids, nil, tx)

	return &stack{pool: pool, cafes: cafeSvc, employees: empSvc}
}

func (s *stack) createEmployee(t *testing.T, name string, cafeID *string) *employee.Employee {
	t.Helper()

	created, err := s.employees.CreateEmployee(context.Background(), employee.CreateEmployeeInput{
		Name:   name,
		Email:  fmt.Sprintf("%s@example.com", name),
		Phone:  "91234567",
		Gender: employee.GenderFemale,
		CafeID: cafeID,
	})
	require.NoError(t, err)
	return created
}

func TestIntegration_Lifecycle(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()

	brew, err := s.cafes.CreateCafe(ctx, cafe.CreateCafeInput{Name: "Brew Lab", Description: "espresso", Location: "Downtown"})
	require.NoError(t, err)
	leaf, err := s.cafes.CreateCafe(ctx, cafe.CreateCafeInput{Name: "Leaf Cafe", Description: "tea", Location: "Uptown"})
	require.NoError(t, err)

	first := s.createEmployee(t, "alicetan", &brew.ID)
	assert.Equal(t, "UI0000001", first.ID)
	require.NotNil(t, first.Assignment)
	assert.Equal(t, brew.ID, first.Assignment.CafeID)

	second := s.createEmployee(t, "boblimm", nil)
	assert.Equal(t, "UI0000002", second.ID)
	assert.Nil(t, second.Assignment)

	missing := "00000000-0000-4000-8000-000000000000"
	_, err = s.employees.CreateEmployee(ctx, employee.CreateEmployeeInput{
		Name: "ghostly", Email: "ghost@example.com", Phone: "81234567", Gender: employee.GenderMale, CafeID: &missing,
	})
	require.ErrorIs(t, err, employee.ErrCafeNotFound)

	third := s.createEmployee(t, "carolng", nil)
	assert.Equal(t, "UI0000003", third.ID, "a failed create must not consume an identifier")

	moved, err := s.employees.UpdateEmployee(ctx, employee.UpdateEmployeeInput{ID: first.ID, CafeID: &leaf.ID})
	require.NoError(t, err)
	require.NotNil(t, moved.Assignment)
	assert.Equal(t, leaf.ID, moved.Assignment.CafeID)

	list, err := s.cafes.ListCafes(ctx, cafe.ListCafesInput{})
	require.NoError(t, err)
	require.Len(t, list.Cafes, 2)
	assert.Equal(t, leaf.ID, list.Cafes[0].Cafe.ID)
	assert.Equal(t, 1, list.Cafes[0].Employees)
	assert.Equal(t, 0, list.Cafes[1].Employees)

	require.NoError(t, s.cafes.DeleteCafe(ctx, cafe.DeleteCafeInput{ID: leaf.ID}))

	got, err := s.employees.GetEmployee(ctx, employee.GetEmployeeInput{ID: first.ID})
	require.NoError(t, err)
	assert.Nil(t, got.Assignment, "deleting a cafe removes its assignments")

	require.NoError(t, s.employees.DeleteEmployee(ctx, employee.DeleteEmployeeInput{ID: third.ID}))
	fourth := s.createEmployee(t, "danielle", nil)
	assert.Equal(t, "UI0000004", fourth.ID, "identifiers are never reused")

	var orphans int
	require.NoError(t, s.pool.QueryRow(ctx, `
        SELECT COUNT(*) FROM employee_cafe ec
         WHERE NOT EXISTS (SELECT 1 FROM employees e WHERE e.id = ec.employee_id)
            OR NOT EXISTS (SELECT 1 FROM cafes c WHERE c.id = ec.cafe_id)
    `).Scan(&orphans))
	assert.Zero(t, orphans)
}

func TestIntegration_ConcurrentCreatesYieldDistinctIdentifiers(t *testing.T) {
	s := newStack(t)

	const workers = 20

	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		ids []string
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			created, err := s.employees.CreateEmployee(context.Background(), employee.CreateEmployeeInput{
				Name:   fmt.Sprintf("worker%02d", i),
				Email:  fmt.Sprintf("worker%02d@example.com", i),
				Phone:  "81234567",
				Gender: employee.GenderMale,
			})
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			ids = append(ids, created.ID)
			mu.Unlock()
		}(i)
	}
	wg.Wait()

	require.Len(t, ids, workers)
	sort.Strings(ids)
	for i, id := range ids {
		assert.Equal(t, fmt.Sprintf("UI%07d", i+1), id)
	}
}
