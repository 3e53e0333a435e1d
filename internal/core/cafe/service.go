package cafe

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Clock は現在時刻を提供します。
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now().UTC()
}

// TransactionManager はトランザクション制御の抽象化です。
type TransactionManager interface {
	WithinReadOnly(ctx context.Context, fn func(context.Context) error) error
	WithinReadWrite(ctx context.Context, fn func(context.Context) error) error
}

type noopTransactionManager struct{}

func (noopTransactionManager) WithinReadOnly(ctx context.Context, fn func(context.Context) error) error {
	if fn == nil {
		return nil
	}
	return fn(ctx)
}

func (noopTransactionManager) WithinReadWrite(ctx context.Context, fn func(context.Context) error) error {
	if fn == nil {
		return nil
	}
	return fn(ctx)
}

const (
	defaultListPageSize = 50
	maxListPageSize     = 200
)

var (
	validate = validator.New()
	tracer   = otel.Tracer("github.com/ogurasousui/cafe-staffing/internal/core/cafe")
)

// Service はカフェに関するユースケースをまとめます。
type Service struct {
	repo  Repository
	clock Clock
	tx    TransactionManager
	log   *zap.Logger
	newID func() string
}

// UseCase はカフェユースケースの公開インターフェースです。
type UseCase interface {
	CreateCafe(ctx context.Context, in CreateCafeInput) (*Cafe, error)
	GetCafe(ctx context.Context, in GetCafeInput) (*Cafe, error)
	ListCafes(ctx context.Context, in ListCafesInput) (*ListCafesResult, error)
	UpdateCafe(ctx context.Context, in UpdateCafeInput) (*Cafe, error)
	DeleteCafe(ctx context.Context, in DeleteCafeInput) error
}

// Option は Service の任意設定です。
type Option func(*Service)

// WithLogger はロガーを設定します。
func WithLogger(log *zap.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// NewService は Service を生成します。
func NewService(repo Repository, clock Clock, tx TransactionManager, opts ...Option) *Service {
	if clock == nil {
		clock = realClock{}
	}
	if tx == nil {
		tx = noopTransactionManager{}
	}
	s := &Service{
		repo:  repo,
		clock: clock,
		tx:    tx,
		log:   zap.NewNop(),
		newID: func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateCafeInput はカフェ作成時の入力です。
type CreateCafeInput struct {
	Name        string
	Description string
	Logo        *string
	Location    string
}

// UpdateCafeInput はカフェ更新時の入力です。nil のフィールドは変更しません。
type UpdateCafeInput struct {
	ID          string
	Name        *string
	Description *string
	Logo        *string
	Location    *string
}

// DeleteCafeInput はカフェ削除時の入力です。
type DeleteCafeInput struct {
	ID string
}

// GetCafeInput はカフェ取得時の入力です。
type GetCafeInput struct {
	ID string
}

// ListCafesInput は一覧取得時の入力です。
type ListCafesInput struct {
	PageSize  int
	PageToken string
	Location  *string
}

// ListCafesResult は一覧取得結果を表します。社員数の多い順に並びます。
type ListCafesResult struct {
	Cafes         []*Roster
	NextPageToken string
}

// CreateCafe は新しいカフェを作成します。
func (s *Service) CreateCafe(ctx context.Context, in CreateCafeInput) (_ *Cafe, err error) {
	ctx, span := tracer.Start(ctx, "cafe.CreateCafe")
	defer func() { endSpan(span, err) }()

	name, err := normalizeName(in.Name)
	if err != nil {
		return nil, err
	}

	description, err := normalizeDescription(in.Description)
	if err != nil {
		return nil, err
	}

	location, err := normalizeLocation(in.Location)
	if err != nil {
		return nil, err
	}

	logo, err := normalizeLogo(in.Logo)
	if err != nil {
		return nil, err
	}

	var created *Cafe
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		now := s.clock.Now()
		cafe := &Cafe{
			ID:          s.newID(),
			Name:        name,
			Description: description,
			Logo:        logo,
			Location:    location,
			CreatedAt:   now,
			UpdatedAt:   now,
		}

		result, err := s.repo.Create(txCtx, cafe)
		if err != nil {
			return err
		}

		created = result
		return nil
	}); err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.String("cafe.id", created.ID))
	s.log.Info("cafe created", zap.String("cafe_id", created.ID), zap.String("location", created.Location))

	return created, nil
}

// UpdateCafe はカフェ情報を更新します。
func (s *Service) UpdateCafe(ctx context.Context, in UpdateCafeInput) (_ *Cafe, err error) {
	ctx, span := tracer.Start(ctx, "cafe.UpdateCafe", trace.WithAttributes(attribute.String("cafe.id", in.ID)))
	defer func() { endSpan(span, err) }()

	id, err := normalizeID(in.ID)
	if err != nil {
		return nil, err
	}

	var updated *Cafe
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		existing, err := s.repo.FindByID(txCtx, id)
		if err != nil {
			return err
		}

		changed := false

		if in.Name != nil {
			name, err := normalizeName(*in.Name)
			if err != nil {
				return err
			}
			existing.Name = name
			changed = true
		}

		if in.Description != nil {
			description, err := normalizeDescription(*in.Description)
			if err != nil {
				return err
			}
			existing.Description = description
			changed = true
		}

		if in.Location != nil {
			location, err := normalizeLocation(*in.Location)
			if err != nil {
				return err
			}
			existing.Location = location
			changed = true
		}

		if in.Logo != nil {
			logo, err := normalizeLogo(in.Logo)
			if err != nil {
				return err
			}
			existing.Logo = logo
			changed = true
		}

		if !changed {
			updated = existing
			return nil
		}

		existing.UpdatedAt = s.clock.Now()

		result, err := s.repo.Update(txCtx, existing)
		if err != nil {
			return err
		}

		updated = result
		return nil
	}); err != nil {
		return nil, err
	}

	return updated, nil
}

// DeleteCafe はカフェを削除します。配属中の社員の配属も同時に削除されます。
func (s *Service) DeleteCafe(ctx context.Context, in DeleteCafeInput) (err error) {
	ctx, span := tracer.Start(ctx, "cafe.DeleteCafe", trace.WithAttributes(attribute.String("cafe.id", in.ID)))
	defer func() { endSpan(span, err) }()

	id, err := normalizeID(in.ID)
	if err != nil {
		return err
	}

	var removed int
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		n, err := s.repo.Delete(txCtx, id)
		if err != nil {
			return err
		}
		removed = n
		return nil
	}); err != nil {
		return err
	}

	span.SetAttributes(attribute.Int("cafe.assignments_removed", removed))
	s.log.Info("cafe deleted", zap.String("cafe_id", id), zap.Int("assignments_removed", removed))

	return nil
}

// GetCafe は ID でカフェを取得します。
func (s *Service) GetCafe(ctx context.Context, in GetCafeInput) (_ *Cafe, err error) {
	ctx, span := tracer.Start(ctx, "cafe.GetCafe", trace.WithAttributes(attribute.String("cafe.id", in.ID)))
	defer func() { endSpan(span, err) }()

	id, err := normalizeID(in.ID)
	if err != nil {
		return nil, err
	}

	var cafe *Cafe
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		result, err := s.repo.FindByID(txCtx, id)
		if err != nil {
			return err
		}
		cafe = result
		return nil
	}); err != nil {
		return nil, err
	}

	return cafe, nil
}

// Exists はカフェが存在するかを返します。不正な ID は存在しないものとして扱います。
func (s *Service) Exists(ctx context.Context, id string) (bool, error) {
	normalized, err := normalizeID(id)
	if err != nil {
		return false, nil
	}

	var exists bool
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		ok, err := s.repo.Exists(txCtx, normalized)
		if err != nil {
			return err
		}
		exists = ok
		return nil
	}); err != nil {
		return false, err
	}

	return exists, nil
}

// ListCafes はカフェと配属社員数の一覧を取得します。
func (s *Service) ListCafes(ctx context.Context, in ListCafesInput) (_ *ListCafesResult, err error) {
	ctx, span := tracer.Start(ctx, "cafe.ListCafes")
	defer func() { endSpan(span, err) }()

	limit, err := normalizePageSize(in.PageSize)
	if err != nil {
		return nil, err
	}

	offset, err := parsePageToken(in.PageToken)
	if err != nil {
		return nil, err
	}

	var location *string
	if in.Location != nil {
		if trimmed := strings.TrimSpace(*in.Location); trimmed != "" {
			location = &trimmed
			span.SetAttributes(attribute.String("cafe.location", trimmed))
		}
	}

	var (
		rosters   []*Roster
		nextToken string
	)

	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		result, token, err := s.repo.ListWithEmployeeCounts(txCtx, ListCafesFilter{
			Limit:    limit,
			Offset:   offset,
			Location: location,
		})
		if err != nil {
			return err
		}
		rosters = result
		nextToken = token
		return nil
	}); err != nil {
		return nil, err
	}

	return &ListCafesResult{
		Cafes:         rosters,
		NextPageToken: nextToken,
	}, nil
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func normalizeID(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", fmt.Errorf("id: %w", ErrInvalidID)
	}
	lower := strings.ToLower(trimmed)
	if err := validate.Var(lower, "uuid"); err != nil {
		return "", fmt.Errorf("id %q: %w", trimmed, ErrInvalidID)
	}
	return lower, nil
}

func normalizeName(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if err := validate.Var(trimmed, "min=6,max=10"); err != nil {
		return "", ErrInvalidName
	}
	return trimmed, nil
}

func normalizeDescription(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if err := validate.Var(trimmed, "max=256"); err != nil {
		return "", ErrInvalidDescription
	}
	return trimmed, nil
}

func normalizeLocation(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if err := validate.Var(trimmed, "min=1,max=200"); err != nil {
		return "", ErrInvalidLocation
	}
	return trimmed, nil
}

func normalizeLogo(raw *string) (*string, error) {
	if raw == nil {
		return nil, nil
	}

	trimmed := strings.TrimSpace(*raw)
	if trimmed == "" {
		return nil, nil
	}
	if err := validate.Var(trimmed, "max=512"); err != nil {
		return nil, ErrInvalidLogo
	}

	logo := trimmed
	return &logo, nil
}

func normalizePageSize(pageSize int) (int, error) {
	if pageSize <= 0 {
		return defaultListPageSize, nil
	}
	if pageSize > maxListPageSize {
		return 0, ErrInvalidPageSize
	}
	return pageSize, nil
}

func parsePageToken(token string) (int, error) {
	if strings.TrimSpace(token) == "" {
		return 0, nil
	}

	offset, err := strconv.Atoi(token)
	if err != nil || offset < 0 {
		return 0, ErrInvalidPageToken
	}

	return offset, nil
}
