package cafe

import "errors"

var (
	// ErrCafeNotFound はカフェが存在しない場合に返却されます。
	ErrCafeNotFound = errors.New("cafe: not found")
	// ErrCafeConflict は ID 重複などで保存できない場合に返却されます。
	ErrCafeConflict = errors.New("cafe: conflict")
	// ErrInvalidID は ID が不正な場合に返却されます。
	ErrInvalidID = errors.New("cafe: invalid id")
	// ErrInvalidName はカフェ名が不正な場合に返却されます。
	ErrInvalidName = errors.New("cafe: invalid name")
	// ErrInvalidDescription は説明が不正な場合に返却されます。
	ErrInvalidDescription = errors.New("cafe: invalid description")
	// ErrInvalidLocation は所在地が不正な場合に返却されます。
	ErrInvalidLocation = errors.New("cafe: invalid location")
	// ErrInvalidLogo はロゴの参照が不正な場合に返却されます。
	ErrInvalidLogo = errors.New("cafe: invalid logo")
	// ErrInvalidPageSize は一覧取得時のページサイズが不正な場合に返却されます。
	ErrInvalidPageSize = errors.New("cafe: invalid page size")
	// ErrInvalidPageToken は一覧取得時のページトークンが不正な場合に返却されます。
	ErrInvalidPageToken = errors.New("cafe: invalid page token")
)
