package remote

import (
	"context"
	"fmt"
	"strings"

	"github.com/lacag-app/lacag/internal/model"
)

// FetchUsername returns the profile username of the session user, or "" when
// the profile has none.
func (a *Adapter) FetchUsername(ctx context.Context, sess *model.Session) (string, error) {
	if err := checkSession(sess); err != nil {
		return "", err
	}
	var rows []struct {
		Username *string `json:"username"`
	}
	err := a.client.From(tableProfiles).
		Select("username").
		Eq("id", sess.UserID).
		Limit(1).
		Do(ctx, sess.AccessToken, &rows)
	if err != nil {
		return "", fmt.Errorf("fetching profile: %w", err)
	}
	if len(rows) == 0 || rows[0].Username == nil {
		return "", nil
	}
	return strings.TrimSpace(*rows[0].Username), nil
}
