package handler

import (
	"github.com/dtroode/accounts-server/internal/api/http/response"
	"github.com/dtroode/accounts-server/internal/model"
)

func accountView(a model.Account) map[string]any {
	view := map[string]any{
		"id":           a.ID.String(),
		"phone":        a.Phone,
		"username":     a.Username,
		"email":        a.Email,
		"bio":          a.Bio,
		"avatar":       nil,
		"is_active":    a.IsActive,
		"is_staff":     a.IsStaff,
		"is_superuser": a.IsSuperuser,
		"is_deleted":   a.IsDeleted,
		"deleted_at":   nil,
		"created_at":   a.CreatedAt.UTC(),
		"updated_at":   a.UpdatedAt.UTC(),
		"has_password": a.HasPassword(),
	}
	if a.AvatarRef != "" {
		view["avatar"] = "/accounts/" + a.ID.String() + "/avatar"
	}
	if a.DeletedAt != nil {
		view["deleted_at"] = a.DeletedAt.UTC()
	}
	return view
}

func sessionView(s model.Session) map[string]any {
	return map[string]any{
		"access":             s.AccessToken,
		"access_expires_at":  s.AccessExpiresAt.UTC(),
		"refresh":            s.RefreshToken,
		"refresh_expires_at": s.RefreshExpiresAt.UTC(),
	}
}

func listView(list model.AccountList, fields []string) map[string]any {
	results := make([]map[string]any, 0, len(list.Items))
	for _, a := range list.Items {
		results = append(results, response.Project(accountView(a), fields))
	}
	return map[string]any{
		"count":     list.Total,
		"page":      list.Page.Number,
		"page_size": list.Page.Size,
		"results":   results,
	}
}
