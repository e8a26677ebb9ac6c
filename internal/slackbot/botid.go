package slackbot

import (
	"context"
	"errors"
	"fmt"

	"github.com/slack-go/slack"
)

var ErrBotNotFound = errors.New("bot user not found")

// FindBotID looks up the user id of the workspace member called name.
func FindBotID(ctx context.Context, api *slack.Client, name string) (string, error) {
	users, err := api.GetUsersContext(ctx)
	if err != nil {
		return "", fmt.Errorf("list slack users: %w", err)
	}
	for _, u := range users {
		if u.Name == name {
			return u.ID, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrBotNotFound, name)
}

// SelfID returns the user id the token authenticates as.
func SelfID(ctx context.Context, api *slack.Client) (string, error) {
	auth, err := api.AuthTestContext(ctx)
	if err != nil {
		return "", fmt.Errorf("slack auth test: %w", err)
	}
	return auth.UserID, nil
}
