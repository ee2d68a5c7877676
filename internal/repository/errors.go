package repository

import "errors"

var (
	ErrNotFound = errors.New("not found")

	//一意制約違反（idempotency_key、開いているセッションなど）
	ErrDuplicate = errors.New("duplicate")
)
