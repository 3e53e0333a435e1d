package handler

import (
	"context"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/ogurasousui/cafe-staffing/internal/core/cafe"
)

// CafeGrpcHandler は CafeService の gRPC 実装です。
type CafeGrpcHandler struct {
	svc cafe.UseCase
}

// NewCafeGrpcHandler は CafeGrpcHandler を生成します。
func NewCafeGrpcHandler(svc cafe.UseCase) *CafeGrpcHandler {
	return &CafeGrpcHandler{svc: svc}
}

// CreateCafe はカフェを作成します。
func (h *CafeGrpcHandler) CreateCafe(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if err := requireRequest(req); err != nil {
		return nil, err
	}

	name, err := stringField(req, "name")
	if err != nil {
		return nil, err
	}
	description, err := stringField(req, "description")
	if err != nil {
		return nil, err
	}
	logo, err := optionalStringField(req, "logo")
	if err != nil {
		return nil, err
	}
	location, err := stringField(req, "location")
	if err != nil {
		return nil, err
	}

	created, err := h.svc.CreateCafe(ctx, cafe.CreateCafeInput{
		Name:        name,
		Description: description,
		Logo:        logo,
		Location:    location,
	})
	if err != nil {
		return nil, toStatusError(err)
	}

	return toStruct(cafeFields(created))
}

// UpdateCafe はカフェ情報を更新します。logo に null を指定するとロゴを外します。
func (h *CafeGrpcHandler) UpdateCafe(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if err := requireRequest(req); err != nil {
		return nil, err
	}

	id, err := stringField(req, "id")
	if err != nil {
		return nil, err
	}

	in := cafe.UpdateCafeInput{ID: id}
	if in.Name, err = optionalStringField(req, "name"); err != nil {
		return nil, err
	}
	if in.Description, err = optionalStringField(req, "description"); err != nil {
		return nil, err
	}
	if in.Location, err = optionalStringField(req, "location"); err != nil {
		return nil, err
	}

	logo, logoSet, err := nullableStringField(req, "logo")
	if err != nil {
		return nil, err
	}
	if logoSet {
		if logo == nil {
			empty := ""
			logo = &empty
		}
		in.Logo = logo
	}

	updated, err := h.svc.UpdateCafe(ctx, in)
	if err != nil {
		return nil, toStatusError(err)
	}

	return toStruct(cafeFields(updated))
}

// DeleteCafe はカフェと、そのカフェへの配属を削除します。
func (h *CafeGrpcHandler) DeleteCafe(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if err := requireRequest(req); err != nil {
		return nil, err
	}

	id, err := stringField(req, "id")
	if err != nil {
		return nil, err
	}

	if err := h.svc.DeleteCafe(ctx, cafe.DeleteCafeInput{ID: id}); err != nil {
		return nil, toStatusError(err)
	}

	return &structpb.Struct{}, nil
}

// GetCafe はカフェを取得します。
func (h *CafeGrpcHandler) GetCafe(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if err := requireRequest(req); err != nil {
		return nil, err
	}

	id, err := stringField(req, "id")
	if err != nil {
		return nil, err
	}

	found, err := h.svc.GetCafe(ctx, cafe.GetCafeInput{ID: id})
	if err != nil {
		return nil, toStatusError(err)
	}

	return toStruct(cafeFields(found))
}

// ListCafes はカフェと配属社員数の一覧を取得します。
func (h *CafeGrpcHandler) ListCafes(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if err := requireRequest(req); err != nil {
		return nil, err
	}

	location, err := optionalStringField(req, "location")
	if err != nil {
		return nil, err
	}
	pageSize, err := intField(req, "page_size")
	if err != nil {
		return nil, err
	}
	pageToken, err := stringField(req, "page_token")
	if err != nil {
		return nil, err
	}

	result, err := h.svc.ListCafes(ctx, cafe.ListCafesInput{
		PageSize:  pageSize,
		PageToken: pageToken,
		Location:  location,
	})
	if err != nil {
		return nil, toStatusError(err)
	}

	cafes := make([]any, 0, len(result.Cafes))
	for _, roster := range result.Cafes {
		fields := cafeFields(roster.Cafe)
		fields["employees"] = roster.Employees
		cafes = append(cafes, fields)
	}

	return toStruct(map[string]any{
		"cafes":           cafes,
		"next_page_token": result.NextPageToken,
	})
}

func cafeFields(c *cafe.Cafe) map[string]any {
	if c == nil {
		return map[string]any{}
	}

	return map[string]any{
		"id":          c.ID,
		"name":        c.Name,
		"description": c.Description,
		"logo":        stringOrNil(c.Logo),
		"location":    c.Location,
		"created_at":  formatTimestamp(c.CreatedAt),
		"updated_at":  formatTimestamp(c.UpdatedAt),
	}
}
