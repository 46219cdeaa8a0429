package httpdto

type Response[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Code    string `json:"code,omitempty"`
}

func NewSuccessResponse[T any](data T) Response[T] {
	return Response[T]{
		Success: true,
		Data:    data,
	}
}

func NewErrorResponse(err string, code string) Response[any] {
	return Response[any]{
		Success: false,
		Error:   err,
		Code:    code,
	}
}

// NewConflictResponse reports every colliding path of an admission
// conflict under data.failed.
func NewConflictResponse[T any](err string, failed []T) Response[map[string][]T] {
	return Response[map[string][]T]{
		Success: false,
		Error:   err,
		Code:    "CONFLICT",
		Data:    map[string][]T{"failed": failed},
	}
}
