package usecase

import (
	"context"
	"net/http"
	"strings"
	"time"

	"ordercore/internal/domain/model"
	repo "ordercore/internal/repository"
)

// 監査ログの参照（管理者向け）
type AuditLogUsecase struct {
	logs repo.AuditLogRepository
}

func NewAuditLogUsecase(logs repo.AuditLogRepository) *AuditLogUsecase {
	return &AuditLogUsecase{logs: logs}
}

type AuditLogQuery struct {
	ActorUserID  int64
	Action       string
	ResourceType string
	ResourceID   string
	From         *time.Time
	To           *time.Time
	Limit        int
	Offset       int
}

func (u *AuditLogUsecase) List(ctx context.Context, q AuditLogQuery) ([]model.AuditLog, error) {
	if q.From != nil && q.To != nil && q.From.After(*q.To) {
		return nil, NewHTTPError(http.StatusBadRequest, "from must be before to")
	}
	if q.Limit < 0 || q.Offset < 0 {
		return nil, NewHTTPError(http.StatusBadRequest, "invalid paging")
	}

	f := repo.AuditLogFilter{
		CreatedFrom: q.From,
		CreatedTo:   q.To,
		Limit:       q.Limit,
		Offset:      q.Offset,
	}
	if q.ActorUserID > 0 {
		id := q.ActorUserID
		f.ActorUserID = &id
	}
	if s := strings.ToUpper(strings.TrimSpace(q.Action)); s != "" {
		a := model.AuditAction(s)
		f.Action = &a
	}
	if s := strings.ToLower(strings.TrimSpace(q.ResourceType)); s != "" {
		t := model.AuditResourceType(s)
		f.ResourceType = &t
	}
	if s := strings.TrimSpace(q.ResourceID); s != "" {
		f.ResourceID = &s
	}

	logs, err := u.logs.List(ctx, f)
	if err != nil {
		return nil, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if logs == nil {
		logs = []model.AuditLog{}
	}
	return logs, nil
}
